// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package security

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/afero"

	"github.com/jeranaias/mediguard/internal/util"
)

// =============================================================================
// FILE-BASED KEYSTORE
// =============================================================================

// FileKeyStore keeps a raw key in a file readable only by its owner.
type FileKeyStore struct {
	fs   afero.Fs
	path string
}

// NewFileKeyStore creates a key store at path on fs.
func NewFileKeyStore(fs afero.Fs, path string) *FileKeyStore {
	return &FileKeyStore{fs: fs, path: path}
}

// Path returns the key file location.
func (f *FileKeyStore) Path() string {
	return f.path
}

// Store saves the key with 0600 permissions.
// RELIABILITY: Atomic write with fsync prevents data loss on crash
func (f *FileKeyStore) Store(key []byte) error {
	if err := util.AtomicWriteFileWithDir(f.fs, f.path, key, 0600, 0700); err != nil {
		return fmt.Errorf("failed to write key file: %w", err)
	}
	return nil
}

// Retrieve reads the key.
func (f *FileKeyStore) Retrieve() ([]byte, error) {
	key, err := afero.ReadFile(f.fs, f.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}
	return key, nil
}

// Exists reports whether the key file exists.
func (f *FileKeyStore) Exists() bool {
	ok, err := afero.Exists(f.fs, f.path)
	return err == nil && ok
}

// Delete removes the key file.
func (f *FileKeyStore) Delete() error {
	if err := f.fs.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete key file: %w", err)
	}
	return nil
}

// LoadOrCreateSealer returns a Sealer keyed from the store, generating and
// saving a new key on first use.
func LoadOrCreateSealer(ks *FileKeyStore) (*Sealer, error) {
	if !ks.Exists() {
		key, err := GenerateKey()
		if err != nil {
			return nil, err
		}
		defer ZeroBytes(key)
		if err := ks.Store(key); err != nil {
			return nil, err
		}
		return NewSealer(key)
	}

	key, err := ks.Retrieve()
	if err != nil {
		return nil, err
	}
	defer ZeroBytes(key)
	return NewSealer(key)
}

// LoadOrCreateSalt reads the salt file at path on fs, creating it on first use.
func LoadOrCreateSalt(fsys afero.Fs, path string) ([]byte, error) {
	salt, err := afero.ReadFile(fsys, path)
	if err == nil && len(salt) == SaltSize {
		return salt, nil
	}
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read salt: %w", err)
	}

	salt, err = GenerateSalt()
	if err != nil {
		return nil, err
	}
	if err := util.AtomicWriteFileWithDir(fsys, path, salt, 0600, 0700); err != nil {
		return nil, fmt.Errorf("failed to save salt: %w", err)
	}
	return salt, nil
}
