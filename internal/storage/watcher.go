// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/afero"
)

// DefaultDebounce coalesces the burst of events one atomic write produces.
const DefaultDebounce = 100 * time.Millisecond

// ErrWatchUnsupported is returned when the store's filesystem is not the OS.
var ErrWatchUnsupported = errors.New("watch requires an OS filesystem")

// =============================================================================
// FILE STORE WATCHER
// =============================================================================

// Watch reports keys changed by other processes until ctx is cancelled.
// Writes made through this store are not reported.
func (s *FileStore) Watch(ctx context.Context) (<-chan Change, error) {
	return s.WatchWithDebounce(ctx, DefaultDebounce)
}

// WatchWithDebounce is Watch with an explicit debounce interval.
func (s *FileStore) WatchWithDebounce(ctx context.Context, debounce time.Duration) (<-chan Change, error) {
	if _, ok := s.fs.(*afero.OsFs); !ok {
		return nil, ErrWatchUnsupported
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := w.Add(s.dir); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", s.dir, err)
	}

	fw := &fileWatcher{
		store:    s,
		watcher:  w,
		debounce: debounce,
		pending:  make(map[string]time.Time),
		out:      make(chan Change, 16),
	}
	go fw.run(ctx)
	return fw.out, nil
}

type fileWatcher struct {
	store    *FileStore
	watcher  *fsnotify.Watcher
	debounce time.Duration

	mu      sync.Mutex
	pending map[string]time.Time // key -> last event time

	out chan Change
}

func (fw *fileWatcher) run(ctx context.Context) {
	defer close(fw.out)
	defer fw.watcher.Close()
	defer func() {
		if r := recover(); r != nil {
			log.Printf("STORAGE_WATCH_PANIC | dir=%s panic=%v", fw.store.dir, r)
		}
	}()

	ticker := time.NewTicker(fw.debounce / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			key, ok := keyFromName(filepath.Base(event.Name))
			if !ok {
				continue
			}
			fw.mu.Lock()
			fw.pending[key] = time.Now()
			fw.mu.Unlock()

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("STORAGE_WATCH_ERROR | dir=%s error=%v", fw.store.dir, err)

		case <-ticker.C:
			for _, key := range fw.due() {
				change, ok := fw.store.changed(key)
				if !ok {
					continue
				}
				select {
				case fw.out <- change:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

// due removes and returns keys whose last event is older than the debounce.
func (fw *fileWatcher) due() []string {
	now := time.Now()
	fw.mu.Lock()
	defer fw.mu.Unlock()

	var keys []string
	for key, at := range fw.pending {
		if now.Sub(at) >= fw.debounce {
			keys = append(keys, key)
			delete(fw.pending, key)
		}
	}
	return keys
}
