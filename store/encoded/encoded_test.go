package encoded

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unkn0wn-root/swrcache"
	"github.com/unkn0wn-root/swrcache/codec"
	pr "github.com/unkn0wn-root/swrcache/provider"
)

type memProvider struct {
	mu     sync.Mutex
	m      map[string][]byte
	ttls   map[string]time.Duration
	reject bool
	getErr error
}

var _ pr.Provider = (*memProvider)(nil)

func newMemProvider() *memProvider {
	return &memProvider{m: make(map[string][]byte), ttls: make(map[string]time.Duration)}
}

func (p *memProvider) Get(_ context.Context, key string) ([]byte, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.getErr != nil {
		return nil, false, p.getErr
	}
	b, ok := p.m[key]
	return b, ok, nil
}

func (p *memProvider) Set(_ context.Context, key string, value []byte, _ int64, ttl time.Duration) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.reject {
		return false, nil
	}
	p.m[key] = value
	p.ttls[key] = ttl
	return true, nil
}

func (p *memProvider) Del(_ context.Context, key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.m, key)
	return nil
}

func (p *memProvider) Close(context.Context) error { return nil }

func (p *memProvider) has(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.m[key]
	return ok
}

type healHooks struct {
	swrcache.NopHooks
	mu       sync.Mutex
	heals    []string
	rejected []string
}

func (h *healHooks) SelfHeal(_, reason string) {
	h.mu.Lock()
	h.heals = append(h.heals, reason)
	h.mu.Unlock()
}

func (h *healHooks) ProviderSetRejected(sk string) {
	h.mu.Lock()
	h.rejected = append(h.rejected, sk)
	h.mu.Unlock()
}

type fixedClock struct{ t time.Time }

func (c *fixedClock) Now() time.Time { return c.t }

type user struct {
	ID   int    `msgpack:"id" cbor:"id"`
	Name string `msgpack:"name" cbor:"name"`
}

func newStore(t *testing.T, p pr.Provider, c codec.Codec[user], h swrcache.Hooks, clk swrcache.Clock) *Store[user] {
	t.Helper()
	s, err := New(Options[user]{Namespace: "users", Provider: p, Codec: c, Hooks: h, Clock: clk})
	require.NoError(t, err)
	return s
}

func TestNewValidates(t *testing.T) {
	_, err := New(Options[user]{Provider: newMemProvider(), Codec: codec.Msgpack[user]{}})
	assert.Error(t, err)
	_, err = New(Options[user]{Namespace: "n", Codec: codec.Msgpack[user]{}})
	assert.Error(t, err)
	_, err = New(Options[user]{Namespace: "n", Provider: newMemProvider()})
	assert.Error(t, err)
}

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	clk := &fixedClock{t: time.Unix(1000, 0)}

	for name, c := range map[string]codec.Codec[user]{
		"msgpack": codec.Msgpack[user]{},
		"cbor":    codec.MustCBOR[user](true),
		"json":    codec.JSON[user]{},
	} {
		t.Run(name, func(t *testing.T) {
			p := newMemProvider()
			s := newStore(t, p, c, nil, clk)

			e := swrcache.NewEntry(user{ID: 1, Name: "ada"}, clk.t, time.Minute, 5*time.Minute)
			require.NoError(t, s.Set(ctx, "1", e, e.TTL(clk.t)))
			assert.True(t, p.has("swr:users:1"))
			assert.Equal(t, 5*time.Minute, p.ttls["swr:users:1"])

			got, ok, err := s.Get(ctx, "1")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, e.Value, got.Value)
			assert.True(t, e.FreshUntil.Equal(got.FreshUntil))
			assert.True(t, e.ExpiresAt.Equal(got.ExpiresAt))

			require.NoError(t, s.Del(ctx, "1"))
			_, ok, err = s.Get(ctx, "1")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestSelfHeal(t *testing.T) {
	ctx := context.Background()
	clk := &fixedClock{t: time.Unix(1000, 0)}
	p := newMemProvider()
	h := &healHooks{}
	s := newStore(t, p, codec.Msgpack[user]{}, h, clk)

	// foreign bytes
	_, _ = p.Set(ctx, "swr:users:junk", []byte("not a frame"), 0, 0)
	_, ok, err := s.Get(ctx, "junk")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, p.has("swr:users:junk"))

	// frame outlived its expiry (provider ignored TTL)
	e := swrcache.NewEntry(user{ID: 2}, clk.t, time.Second, time.Second)
	require.NoError(t, s.Set(ctx, "old", e, time.Second))
	clk.t = clk.t.Add(2 * time.Second)
	_, ok, err = s.Get(ctx, "old")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, p.has("swr:users:old"))

	// valid frame, undecodable payload
	j := newStore(t, p, codec.JSON[user]{}, nil, clk)
	e = swrcache.NewEntry(user{ID: 3}, clk.t, time.Minute, time.Minute)
	require.NoError(t, j.Set(ctx, "mixed", e, time.Minute))
	_, ok, err = s.Get(ctx, "mixed")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, []string{"corrupt", "expired", "value_decode"}, h.heals)
}

func TestProviderRejectAndErrors(t *testing.T) {
	ctx := context.Background()
	p := newMemProvider()
	h := &healHooks{}
	s := newStore(t, p, codec.Msgpack[user]{}, h, nil)

	p.reject = true
	e := swrcache.NewEntry(user{ID: 1}, time.Now(), time.Minute, time.Minute)
	require.NoError(t, s.Set(ctx, "1", e, time.Minute))
	assert.Equal(t, []string{"swr:users:1"}, h.rejected)

	boom := errors.New("boom")
	p.getErr = boom
	_, ok, err := s.Get(ctx, "1")
	assert.False(t, ok)
	assert.ErrorIs(t, err, boom)
}
