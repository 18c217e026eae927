package genstore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisGenStore(t *testing.T, ttl time.Duration) (*miniredis.Miniredis, *RedisGenStore) {
	t.Helper()
	mr := miniredis.RunT(t)
	s := NewRedisGenStoreWithTTL(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "users", ttl)
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return mr, s
}

func TestRedisSnapshotAndBump(t *testing.T) {
	ctx := context.Background()
	mr, s := newRedisGenStore(t, 0)

	if g, err := s.Snapshot(ctx, "k"); err != nil || g != 0 {
		t.Fatalf("missing key: got (%d, %v) want 0", g, err)
	}
	for want := uint64(1); want <= 2; want++ {
		g, err := s.Bump(ctx, "k")
		if err != nil || g != want {
			t.Fatalf("Bump got (%d, %v) want %d", g, err, want)
		}
	}
	if g, _ := s.Snapshot(ctx, "k"); g != 2 {
		t.Fatalf("Snapshot=%d want 2", g)
	}
	if !mr.Exists("swr:gen:users:k") {
		t.Fatalf("generation not stored under its namespaced key")
	}
	if ttl := mr.TTL("swr:gen:users:k"); ttl != 0 {
		t.Fatalf("ttl=%v want none", ttl)
	}
}

func TestRedisBumpRefreshesTTL(t *testing.T) {
	ctx := context.Background()
	mr, s := newRedisGenStore(t, time.Hour)

	if _, err := s.Bump(ctx, "k"); err != nil {
		t.Fatal(err)
	}
	mr.FastForward(30 * time.Minute)
	if g, err := s.Bump(ctx, "k"); err != nil || g != 2 {
		t.Fatalf("Bump got (%d, %v) want 2", g, err)
	}
	if ttl := mr.TTL("swr:gen:users:k"); ttl != time.Hour {
		t.Fatalf("ttl=%v want 1h", ttl)
	}

	mr.FastForward(2 * time.Hour)
	if g, _ := s.Snapshot(ctx, "k"); g != 0 {
		t.Fatalf("expired generation=%d want 0", g)
	}
}

func TestRedisSnapshotParseError(t *testing.T) {
	mr, s := newRedisGenStore(t, 0)
	if err := mr.Set("swr:gen:users:k", "nope"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Snapshot(context.Background(), "k"); err == nil {
		t.Fatalf("non-numeric generation must fail")
	}
}

func TestRedisCloseTwice(t *testing.T) {
	_, s := newRedisGenStore(t, 0)
	if err := s.Close(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(context.Background()); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}
