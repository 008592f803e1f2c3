// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package security seals secrets at rest.
//
// A Sealer encrypts short strings (the profile's API key) with AES-256-GCM
// and renders them as ENC:base64(nonce|ciphertext|tag). The key comes from a
// FileKeyStore (generated on first use, 0600) or from a passphrase via
// PBKDF2-SHA-256.
package security
