// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/spf13/afero"

	"github.com/jeranaias/mediguard/internal/util"
)

const fileExt = ".json"

// FileStore stores each key as <dir>/<escaped key>.json.
type FileStore struct {
	fs  afero.Fs
	dir string

	mu     sync.Mutex
	closed bool

	// known holds the digest of the content this process last wrote or
	// read per key, so the watcher can skip our own writes.
	known map[string][sha256.Size]byte
}

// NewFileStore creates the directory if needed and returns a store rooted there.
func NewFileStore(fs afero.Fs, dir string) (*FileStore, error) {
	if err := fs.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &FileStore{
		fs:    fs,
		dir:   dir,
		known: make(map[string][sha256.Size]byte),
	}, nil
}

// Dir returns the directory holding the key files.
func (s *FileStore) Dir() string {
	return s.dir
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, url.PathEscape(key)+fileExt)
}

// keyFromName maps a file name back to its key. ok is false for files the
// store did not create (temp files, foreign files).
func keyFromName(name string) (string, bool) {
	if !strings.HasSuffix(name, fileExt) || strings.HasPrefix(name, ".tmp-") {
		return "", false
	}
	key, err := url.PathUnescape(strings.TrimSuffix(name, fileExt))
	if err != nil || ValidateKey(key) != nil {
		return "", false
	}
	return key, true
}

func (s *FileStore) Get(key string) ([]byte, bool, error) {
	if err := ValidateKey(key); err != nil {
		return nil, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, false, ErrClosed
	}

	data, err := afero.ReadFile(s.fs, s.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			delete(s.known, key)
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	s.known[key] = sha256.Sum256(data)
	return data, true, nil
}

func (s *FileStore) Set(key string, value []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	if err := util.AtomicWriteFileWithDir(s.fs, s.path(key), value, 0600, 0700); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	s.known[key] = sha256.Sum256(value)
	return nil
}

func (s *FileStore) Remove(key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	if err := s.fs.Remove(s.path(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", key, err)
	}
	delete(s.known, key)
	return nil
}

func (s *FileStore) Keys() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}

	entries, err := afero.ReadDir(s.fs, s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list storage directory: %w", err)
	}

	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if key, ok := keyFromName(e.Name()); ok {
			keys = append(keys, key)
		}
	}
	slices.Sort(keys)
	return keys, nil
}

func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// changed reports whether key's on-disk state differs from what this
// process last saw, and records the new state.
func (s *FileStore) changed(key string) (Change, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Change{}, false
	}

	prev, had := s.known[key]
	data, err := afero.ReadFile(s.fs, s.path(key))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return Change{}, false
		}
		if !had {
			return Change{}, false
		}
		delete(s.known, key)
		return Change{Key: key, Removed: true}, true
	}

	sum := sha256.Sum256(data)
	if had && sum == prev {
		return Change{}, false
	}
	s.known[key] = sum
	return Change{Key: key}, true
}
