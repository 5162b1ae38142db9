package nat

import (
	"fmt"
	"net/netip"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Basic(t *testing.T) {
	reg := NewRegistry()
	addr := netip.MustParseAddrPort("10.0.0.1:1000")

	_, ok := reg.Find(addr)
	assert.False(t, ok)

	reg.Establish(Peer{Addr: addr, SenderSig: 7, Seg: 1})
	p, ok := reg.Update(addr, func(p *Peer) { p.Seg = 2 })
	require.True(t, ok)
	assert.Equal(t, uint16(2), p.Seg)
	assert.Equal(t, uint16(7), p.SenderSig)

	// repeated SYN resets
	reg.Establish(Peer{Addr: addr, SenderSig: 9})
	p, _ = reg.Find(addr)
	assert.Equal(t, uint16(9), p.SenderSig)
	assert.Equal(t, uint16(0), p.Seg)
	assert.Equal(t, 1, reg.Len())

	p, ok = reg.Remove(addr)
	require.True(t, ok)
	assert.Equal(t, uint16(9), p.SenderSig)
	_, ok = reg.Remove(addr)
	assert.False(t, ok)
	_, ok = reg.Update(addr, nil)
	assert.False(t, ok)
}

func TestRegistry_RemoveIdle(t *testing.T) {
	reg := NewRegistry()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := range 4 {
		reg.Establish(Peer{
			Addr:     netip.AddrPortFrom(netip.MustParseAddr("10.0.0.1"), uint16(1000+i)),
			LastSeen: base.Add(time.Duration(i) * time.Minute),
		})
	}

	assert.Equal(t, 2, reg.RemoveIdle(base.Add(2*time.Minute)))
	assert.Equal(t, 2, reg.Len())
	assert.Equal(t, 0, reg.RemoveIdle(base))
}

func TestRegistry_Concurrent(t *testing.T) {
	reg := NewRegistry()
	const peers, updates = 16, 200

	var wg sync.WaitGroup
	for i := range peers {
		addr := netip.MustParseAddrPort(fmt.Sprintf("10.0.1.%d:5000", i+1))
		reg.Establish(Peer{Addr: addr})
		for range 4 {
			wg.Go(func() {
				for range updates {
					reg.Update(addr, func(p *Peer) { p.Seg++ })
				}
			})
		}
	}
	wg.Go(func() {
		for range updates {
			reg.Len()
			reg.RemoveIdle(time.Time{})
		}
	})
	wg.Wait()

	assert.Equal(t, peers, reg.Len())
	for i := range peers {
		p, ok := reg.Find(netip.MustParseAddrPort(fmt.Sprintf("10.0.1.%d:5000", i+1)))
		require.True(t, ok)
		assert.Equal(t, uint16(4*updates), p.Seg)
	}
}
