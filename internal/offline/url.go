// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package offline

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrInvalidURLScheme is returned when a URL scheme is not http or https.
	// Prevents file://, javascript://, data:// and other schemes from
	// entering the cache.
	ErrInvalidURLScheme = errors.New("only http and https schemes are allowed")

	// ErrInvalidOrigin is returned for an origin that is not an absolute
	// http(s) URL with a host.
	ErrInvalidOrigin = errors.New("invalid origin")

	// ErrEmptyManifest is returned when there is nothing to install.
	ErrEmptyManifest = errors.New("manifest is empty")
)

// =============================================================================
// URL HANDLING
// =============================================================================

// ParseOrigin validates an origin such as "http://localhost:8080".
func ParseOrigin(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOrigin, err)
	}
	if err := ValidateURL(u); err != nil {
		return nil, err
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: %q has no host", ErrInvalidOrigin, raw)
	}
	return &url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/"}, nil
}

// ValidateURL checks the scheme. Scheme validation always applies,
// whatever the origin.
func ValidateURL(u *url.URL) error {
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return fmt.Errorf("%w: %q", ErrInvalidURLScheme, u.String())
	}
	return nil
}

// ResolveManifest resolves manifest entries against origin. Relative
// entries become same-origin URLs; absolute ones (a CDN stylesheet) are
// kept verbatim. Duplicates after resolution are dropped.
func ResolveManifest(origin *url.URL, entries []string) ([]string, error) {
	if len(entries) == 0 {
		return nil, ErrEmptyManifest
	}

	seen := make(map[string]bool, len(entries))
	out := make([]string, 0, len(entries))
	for _, entry := range entries {
		ref, err := url.Parse(strings.TrimSpace(entry))
		if err != nil {
			return nil, fmt.Errorf("manifest entry %q: %w", entry, err)
		}
		abs := origin.ResolveReference(ref)
		if err := ValidateURL(abs); err != nil {
			return nil, fmt.Errorf("manifest entry %q: %w", entry, err)
		}
		key := CacheKey(abs)
		if !seen[key] {
			seen[key] = true
			out = append(out, key)
		}
	}
	return out, nil
}

// CacheKey is the lookup key for a URL: the absolute URL without fragment.
func CacheKey(u *url.URL) string {
	c := *u
	c.Fragment = ""
	c.RawFragment = ""
	c.Scheme = strings.ToLower(c.Scheme)
	c.Host = strings.ToLower(c.Host)
	if c.Path == "" && c.Opaque == "" {
		c.Path = "/"
	}
	return c.String()
}

// IsLocalhost checks if a host string refers to localhost.
// Accepts: "localhost", "127.0.0.1", "::1", "[::1]", and any IPv6 loopback variant.
func IsLocalhost(host string) bool {
	// Normalize the host (remove port if present)
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}

	host = strings.ToLower(strings.Trim(host, "[]"))
	if host == "localhost" {
		return true
	}

	// net.IP.IsLoopback covers 127.0.0.0/8 and every spelling of ::1
	if ip := net.ParseIP(host); ip != nil {
		return ip.IsLoopback()
	}
	return false
}
