package swrcache

import "sync"

type slot[V any] struct {
	refs    int
	pending *Pending[V]
}

// gate admits at most one pending computation per key. Slots exist only while
// someone holds a reference and are removed under the same lock that creates
// them.
type gate[K comparable, V any] struct {
	mu    sync.Mutex
	slots map[K]*slot[V]
}

func newGate[K comparable, V any]() *gate[K, V] {
	return &gate[K, V]{slots: make(map[K]*slot[V])}
}

// acquire joins the key's pending computation or starts a new one. A leader
// holds two references: one for its wait and one for the computation, which
// must release with leader=true.
func (g *gate[K, V]) acquire(key K) (p *Pending[V], leader bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	s := g.slot(key)
	s.refs++
	if s.pending != nil {
		return s.pending, false
	}
	s.pending = newPending[V](false)
	s.refs++
	return s.pending, true
}

// tryAcquire starts a background computation only if nothing is pending.
// The single reference it takes belongs to the computation.
func (g *gate[K, V]) tryAcquire(key K) (*Pending[V], bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if s, ok := g.slots[key]; ok && s.pending != nil {
		return nil, false
	}
	s := g.slot(key)
	s.refs++
	s.pending = newPending[V](true)
	return s.pending, true
}

func (g *gate[K, V]) release(key K, p *Pending[V], leader bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	s, ok := g.slots[key]
	if !ok {
		return
	}
	if leader && s.pending == p {
		s.pending = nil
	}
	s.refs--
	if s.refs <= 0 {
		delete(g.slots, key)
	}
}

func (g *gate[K, V]) len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.slots)
}

// caller holds g.mu
func (g *gate[K, V]) slot(key K) *slot[V] {
	s, ok := g.slots[key]
	if !ok {
		s = &slot[V]{}
		g.slots[key] = s
	}
	return s
}
