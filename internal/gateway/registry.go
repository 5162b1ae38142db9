package gateway

import (
	"slices"
	"sync"

	"github.com/google/uuid"
)

// Registry tracks connected clients across gateway services.
type Registry struct {
	mu      sync.RWMutex
	clients map[uuid.UUID]*Client
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{clients: make(map[uuid.UUID]*Client)}
}

// Add registers c.
func (r *Registry) Add(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[c.ID()] = c
}

// Remove unregisters the client with id.
func (r *Registry) Remove(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.clients, id)
}

// Get returns the client with id.
func (r *Registry) Get(id uuid.UUID) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[id]
	return c, ok
}

// Len returns the number of connected clients.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// ByUsername returns the connections announced under name, on any service.
func (r *Registry) ByUsername(name string) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Client
	for _, c := range r.clients {
		if c.Username() == name {
			out = append(out, c)
		}
	}
	return out
}

// Count returns the number of clients connected to service.
func (r *Registry) Count(service Kind) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, c := range r.clients {
		if c.Service() == service {
			n++
		}
	}
	return n
}

// Snapshot returns the connected clients ordered by id.
func (r *Registry) Snapshot() []*Client {
	r.mu.RLock()
	out := make([]*Client, 0, len(r.clients))
	for _, c := range r.clients {
		out = append(out, c)
	}
	r.mu.RUnlock()

	slices.SortFunc(out, func(a, b *Client) int {
		return slices.Compare(a.id[:], b.id[:])
	})
	return out
}
