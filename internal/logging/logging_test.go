// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package logging

import (
	"bytes"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/mediguard/internal/config"
)

func restoreStdLogger(t *testing.T) {
	t.Helper()
	out, flags := log.Writer(), log.Flags()
	t.Cleanup(func() {
		log.SetOutput(out)
		log.SetFlags(flags)
	})
}

func TestWriter_VerboseWithoutFile(t *testing.T) {
	var buf bytes.Buffer
	w, err := Writer(config.LogConfig{Verbose: true}, &buf)
	require.NoError(t, err)

	_, err = w.Write([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, "hello", buf.String())
	assert.NoError(t, w.Close())
}

func TestWriter_QuietWithoutFile(t *testing.T) {
	var buf bytes.Buffer
	w, err := Writer(config.LogConfig{}, &buf)
	require.NoError(t, err)

	_, err = w.Write([]byte("hello"))
	require.NoError(t, err)
	assert.Zero(t, buf.Len())
}

func TestSetup_File(t *testing.T) {
	restoreStdLogger(t)
	path := filepath.Join(t.TempDir(), "logs", "mediguard.log")

	closer, err := Setup(config.LogConfig{File: path, MaxSizeMB: 1, MaxBackups: 1})
	require.NoError(t, err)

	log.Printf("PROFILE_SAVED | key=%s", "userProfile")
	New("offline").Printf("CACHE_EVICT | name=%s", "v0")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "LOG_START | file="+path)
	assert.Contains(t, text, "PROFILE_SAVED | key=userProfile")
	assert.True(t, strings.Contains(text, "offline CACHE_EVICT | name=v0"), text)
}

func TestSetup_BadDirectory(t *testing.T) {
	restoreStdLogger(t)
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0600))

	_, err := Setup(config.LogConfig{File: filepath.Join(blocker, "sub", "x.log")})
	assert.Error(t, err)
}
