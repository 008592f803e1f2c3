// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/spf13/afero"
)

// =============================================================================
// KEYS
// =============================================================================

// Keys owned by the core stores. Each store reads and writes only its own key.
const (
	ProfileKey    = "mediguard_profile"
	TranscriptKey = "mediguard_chat"
)

// MaxKeyLength bounds key length so every backend can store it.
const MaxKeyLength = 200

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrClosed is returned by any operation on a closed store.
	ErrClosed = errors.New("storage closed")

	// ErrInvalidKey is returned for empty, oversized or non-UTF-8 keys.
	ErrInvalidKey = errors.New("invalid storage key")

	// ErrUnknownBackend is returned by Open for an unrecognized backend name.
	ErrUnknownBackend = errors.New("unknown storage backend")
)

// ValidateKey checks that key is usable by every backend.
func ValidateKey(key string) error {
	switch {
	case key == "":
		return fmt.Errorf("%w: empty", ErrInvalidKey)
	case len(key) > MaxKeyLength:
		return fmt.Errorf("%w: longer than %d bytes", ErrInvalidKey, MaxKeyLength)
	case !utf8.ValidString(key):
		return fmt.Errorf("%w: not valid UTF-8", ErrInvalidKey)
	case strings.ContainsRune(key, 0):
		return fmt.Errorf("%w: contains NUL", ErrInvalidKey)
	}
	return nil
}

// =============================================================================
// STORE INTERFACE
// =============================================================================

// Store is a durable string-keyed store of byte values.
//
// Implementations are safe for concurrent use. Set and Remove must not
// return before the change is durable.
type Store interface {
	// Get returns the value for key. ok is false when the key is absent.
	Get(key string) (value []byte, ok bool, err error)

	// Set stores value under key, replacing any previous value.
	Set(key string, value []byte) error

	// Remove deletes key. Removing an absent key is not an error.
	Remove(key string) error

	// Keys lists the stored keys in ascending order.
	Keys() ([]string, error)

	// Close releases the backend. Further calls return ErrClosed.
	Close() error
}

// Change reports that a key was modified outside this process.
type Change struct {
	Key     string
	Removed bool
}

// Watcher is implemented by backends that can observe external changes.
type Watcher interface {
	Watch(ctx context.Context) (<-chan Change, error)
}

// =============================================================================
// FACTORY
// =============================================================================

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
	BackendMemory = "memory"
)

// Backends lists every backend Open accepts.
var Backends = []string{BackendFile, BackendSQLite, BackendBadger, BackendMemory}

// Options selects and configures a backend.
type Options struct {
	Backend string
	Dir     string

	// Fs overrides the filesystem for the file backend. Defaults to the OS.
	Fs afero.Fs
}

// Open creates the backend named by opts.Backend rooted at opts.Dir.
func Open(opts Options) (Store, error) {
	switch opts.Backend {
	case "", BackendFile:
		fs := opts.Fs
		if fs == nil {
			fs = afero.NewOsFs()
		}
		return NewFileStore(fs, filepath.Join(opts.Dir, "store"))
	case BackendSQLite:
		return NewSQLiteStore(context.Background(), filepath.Join(opts.Dir, "mediguard.db"))
	case BackendBadger:
		return NewBadgerStore(filepath.Join(opts.Dir, "badger"))
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
	}
}
