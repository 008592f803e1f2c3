// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package presentation

import (
	"maps"
	"slices"
	"sync"
)

// Attribute names written to the Environment.
const (
	StyleAccent     = "--primary-color"
	ClassDark       = "dark"
	ClassMonochrome = "theme-bw"
	ClassNeon       = "theme-neon"
	MetaThemeColor  = "theme-color"

	// DarkIndicatorColor is the status-bar color in dark mode regardless of accent.
	DarkIndicatorColor = "#000000"
)

// Environment is the rendering boundary: a document with a root element,
// a body and meta tags.
type Environment interface {
	SetStyleProperty(name, value string)
	SetRootClass(name string, on bool)
	SetBodyClass(name string, on bool)
	SetMeta(name, content string)
}

// =============================================================================
// DOCUMENT
// =============================================================================

// Document is an in-memory Environment. Front ends read it through Snapshot.
type Document struct {
	mu          sync.RWMutex
	styles      map[string]string
	rootClasses map[string]bool
	bodyClasses map[string]bool
	meta        map[string]string
}

// NewDocument creates an empty document.
func NewDocument() *Document {
	return &Document{
		styles:      make(map[string]string),
		rootClasses: make(map[string]bool),
		bodyClasses: make(map[string]bool),
		meta:        make(map[string]string),
	}
}

func (d *Document) SetStyleProperty(name, value string) {
	d.mu.Lock()
	d.styles[name] = value
	d.mu.Unlock()
}

func (d *Document) SetRootClass(name string, on bool) {
	d.mu.Lock()
	setClass(d.rootClasses, name, on)
	d.mu.Unlock()
}

func (d *Document) SetBodyClass(name string, on bool) {
	d.mu.Lock()
	setClass(d.bodyClasses, name, on)
	d.mu.Unlock()
}

func (d *Document) SetMeta(name, content string) {
	d.mu.Lock()
	d.meta[name] = content
	d.mu.Unlock()
}

func setClass(set map[string]bool, name string, on bool) {
	if on {
		set[name] = true
	} else {
		delete(set, name)
	}
}

// Snapshot is a point-in-time copy of a Document. Class lists are sorted
// and never nil, so two snapshots of the same state compare equal.
type Snapshot struct {
	Styles      map[string]string
	RootClasses []string
	BodyClasses []string
	Meta        map[string]string
}

// Snapshot copies the current attributes.
func (d *Document) Snapshot() Snapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return Snapshot{
		Styles:      maps.Clone(d.styles),
		RootClasses: sortedClasses(d.rootClasses),
		BodyClasses: sortedClasses(d.bodyClasses),
		Meta:        maps.Clone(d.meta),
	}
}

func sortedClasses(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

// HasRootClass reports whether the root element carries class.
func (s Snapshot) HasRootClass(class string) bool {
	return slices.Contains(s.RootClasses, class)
}

// HasBodyClass reports whether the body carries class.
func (s Snapshot) HasBodyClass(class string) bool {
	return slices.Contains(s.BodyClasses, class)
}
