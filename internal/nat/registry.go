package nat

import (
	"net/netip"
	"sync"
	"time"
)

// Peer is the state kept for an established SRP peer.
type Peer struct {
	Addr         netip.AddrPort
	ChecksumInit uint16
	SenderSig    uint16
	// Seg is the sequence number of the last segment received from the peer.
	Seg      uint16
	LastSeen time.Time
}

type entry struct {
	mu      sync.Mutex
	peer    Peer
	removed bool
}

// Registry is the set of established peers keyed by address.
// The map is guarded by one RWMutex; each peer has its own mutex so that
// updates to the same peer never interleave while different peers proceed
// in parallel.
type Registry struct {
	mu    sync.RWMutex
	peers map[netip.AddrPort]*entry
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{peers: make(map[netip.AddrPort]*entry)}
}

// Establish creates the peer or resets it on a repeated SYN.
func (r *Registry) Establish(p Peer) Peer {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.peers[p.Addr]
	if !ok {
		e = &entry{}
		r.peers[p.Addr] = e
	}

	e.mu.Lock()
	e.peer = p
	e.mu.Unlock()
	return p
}

// Update runs fn on the peer under its lock and returns the updated state.
// It reports false if the address is unknown.
func (r *Registry) Update(addr netip.AddrPort, fn func(*Peer)) (Peer, bool) {
	r.mu.RLock()
	e, ok := r.peers[addr]
	r.mu.RUnlock()
	if !ok {
		return Peer{}, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.removed {
		return Peer{}, false
	}
	if fn != nil {
		fn(&e.peer)
	}
	return e.peer, true
}

// Find returns the peer at addr.
func (r *Registry) Find(addr netip.AddrPort) (Peer, bool) {
	return r.Update(addr, nil)
}

// Remove deletes the peer and returns its last state.
func (r *Registry) Remove(addr netip.AddrPort) (Peer, bool) {
	r.mu.Lock()
	e, ok := r.peers[addr]
	if ok {
		delete(r.peers, addr)
	}
	r.mu.Unlock()
	if !ok {
		return Peer{}, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.removed = true
	return e.peer, true
}

// Len returns the number of established peers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.peers)
}

// RemoveIdle drops peers not seen since before.
func (r *Registry) RemoveIdle(before time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for addr, e := range r.peers {
		e.mu.Lock()
		if e.peer.LastSeen.Before(before) {
			e.removed = true
			delete(r.peers, addr)
			n++
		}
		e.mu.Unlock()
	}
	return n
}
