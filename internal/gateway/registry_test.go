package gateway

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	a := newTestClient(KindProxy)
	b := newTestClient(KindLobby)
	a.SetUsername("hero")
	b.SetUsername("hero")

	r.Add(a)
	r.Add(b)
	assert.Equal(t, 2, r.Len())
	assert.Equal(t, 1, r.Count(KindProxy))
	assert.Len(t, r.ByUsername("hero"), 2)
	assert.Empty(t, r.ByUsername("other"))

	got, ok := r.Get(a.ID())
	assert.True(t, ok)
	assert.Same(t, a, got)

	snap := r.Snapshot()
	assert.Len(t, snap, 2)

	r.Remove(a.ID())
	_, ok = r.Get(a.ID())
	assert.False(t, ok)
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_Concurrent(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	for range 32 {
		wg.Go(func() {
			c := newTestClient(KindRouterWM)
			r.Add(c)
			c.SetUsername("x")
			r.ByUsername("x")
			r.Snapshot()
			r.Remove(c.ID())
		})
	}
	wg.Wait()

	assert.Equal(t, 0, r.Len())
}

func TestBytePool(t *testing.T) {
	p := NewBytePool(16)

	b := p.Get(8)
	assert.Len(t, b, 8)
	b[0] = 0xFF
	p.Put(b)

	b = p.Get(8)
	assert.Equal(t, byte(0), b[0], "reused buffers are cleared")

	big := p.Get(64)
	assert.Len(t, big, 64)
	p.Put(nil)
}
