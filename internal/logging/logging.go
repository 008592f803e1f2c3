// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging routes the standard logger to a rotated file.
//
// Log lines use the "EVENT | key=value" form throughout the codebase, so
// only the destination is configured here.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/jeranaias/mediguard/internal/config"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Writer returns the destination described by cfg.
//
// With a file configured, output goes to a lumberjack rotating writer.
// Otherwise it goes to stderr when verbose and is discarded when not, so a
// full-screen UI is never scribbled over.
func Writer(cfg config.LogConfig, stderr io.Writer) (io.WriteCloser, error) {
	if cfg.File == "" {
		if cfg.Verbose {
			return nopWriteCloser{stderr}, nil
		}
		return nopWriteCloser{io.Discard}, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.File), 0700); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	return &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   true,
	}, nil
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// Setup points the standard logger at cfg's destination. The returned
// closer flushes the log file and must be closed on exit.
func Setup(cfg config.LogConfig) (io.Closer, error) {
	w, err := Writer(cfg, os.Stderr)
	if err != nil {
		return nopCloser{}, err
	}
	log.SetOutput(w)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	if cfg.File != "" {
		log.Printf("LOG_START | file=%s max_size_mb=%d max_backups=%d", cfg.File, cfg.MaxSizeMB, cfg.MaxBackups)
	}
	return w, nil
}

// New returns a logger with a component prefix that shares the standard
// logger's destination.
func New(component string) *log.Logger {
	return log.New(log.Writer(), component+" ", log.Flags()|log.Lmsgprefix)
}
