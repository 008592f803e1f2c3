// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package offline

import (
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Client is an open page the worker may control.
type Client struct {
	ID         string
	URL        string
	Controller string // version serving this client, empty if uncontrolled
	OpenedAt   time.Time
}

// Clients is a registry of open pages.
type Clients struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

// NewClients creates an empty registry.
func NewClients() *Clients {
	return &Clients{clients: make(map[string]*Client)}
}

// Open registers a page with an optional initial controller.
func (c *Clients) Open(pageURL, controller string) *Client {
	cl := &Client{
		ID:         uuid.NewString(),
		URL:        pageURL,
		Controller: controller,
		OpenedAt:   time.Now(),
	}
	c.mu.Lock()
	c.clients[cl.ID] = cl
	c.mu.Unlock()

	out := *cl
	return &out
}

// Close unregisters a page. It reports whether the id was known.
func (c *Clients) Close(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.clients[id]
	delete(c.clients, id)
	return ok
}

// Claim makes version the controller of every open page and returns how
// many changed.
func (c *Clients) Claim(version string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, cl := range c.clients {
		if cl.Controller != version {
			cl.Controller = version
			n++
		}
	}
	return n
}

// Get returns a copy of a registered page.
func (c *Clients) Get(id string) (Client, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cl, ok := c.clients[id]
	if !ok {
		return Client{}, false
	}
	return *cl, true
}

// Controlled returns the controller of a page.
func (c *Clients) Controlled(id string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cl, ok := c.clients[id]
	if !ok || cl.Controller == "" {
		return "", false
	}
	return cl.Controller, true
}

// List returns copies of the open pages, oldest first.
func (c *Clients) List() []Client {
	c.mu.RLock()
	out := make([]Client, 0, len(c.clients))
	for _, cl := range c.clients {
		out = append(out, *cl)
	}
	c.mu.RUnlock()

	slices.SortFunc(out, func(a, b Client) int {
		if n := a.OpenedAt.Compare(b.OpenedAt); n != 0 {
			return n
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

// Len returns the number of open pages.
func (c *Clients) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.clients)
}
