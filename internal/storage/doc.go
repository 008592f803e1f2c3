// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides the durable key-value store behind the profile
// and transcript stores.
//
// Each key holds one JSON document. Three backends implement Store:
//
//   - FileStore: one file per key, written atomically (temp file, fsync, rename)
//   - SQLiteStore: a kv table in a SQLite database
//   - BadgerStore: an embedded Badger database
//
// Every Set and Remove is durable before it returns. A missing key is not
// an error: Get reports (nil, false, nil).
//
// # Usage
//
//	store, err := storage.Open(storage.Options{Backend: "file", Dir: dataDir})
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	data, ok, err := store.Get(storage.ProfileKey)
package storage
