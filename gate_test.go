package swrcache

import (
	"sync"
	"testing"
)

func TestGateLeaderAndJoiners(t *testing.T) {
	g := newGate[string, int]()

	p, leader := g.acquire("k")
	if !leader {
		t.Fatalf("first acquire must lead")
	}
	q, leader := g.acquire("k")
	if leader || q != p {
		t.Fatalf("second acquire must join the same pending")
	}
	if got := g.refs("k"); got != 3 {
		t.Fatalf("refs=%d want 3 (leader wait + computation + joiner)", got)
	}

	// computation done
	g.release("k", p, true)
	if r, leader := g.acquire("k"); !leader || r == p {
		t.Fatalf("after the leader released, a new computation must start")
	} else {
		g.release("k", r, true)
		g.release("k", r, false)
	}

	g.release("k", p, false)
	g.release("k", p, false)
	if g.len() != 0 {
		t.Fatalf("slots=%d want 0", g.len())
	}
}

func TestGateTryAcquire(t *testing.T) {
	g := newGate[string, int]()

	p, leader := g.acquire("k")
	if !leader {
		t.Fatal("expected leader")
	}
	if _, ok := g.tryAcquire("k"); ok {
		t.Fatalf("tryAcquire must fail while a computation is pending")
	}
	g.release("k", p, true)
	g.release("k", p, false)

	bp, ok := g.tryAcquire("k")
	if !ok || !bp.background {
		t.Fatalf("tryAcquire on idle key must start a background computation")
	}
	jp, leader := g.acquire("k")
	if leader || jp != bp {
		t.Fatalf("foreground acquire must join the background computation")
	}
	g.release("k", bp, true)
	g.release("k", jp, false)
	if g.len() != 0 {
		t.Fatalf("slots=%d want 0", g.len())
	}
}

func TestGateDrainsUnderContention(t *testing.T) {
	g := newGate[int, int]()
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := i % 7
			p, leader := g.acquire(key)
			if leader {
				g.release(key, p, true)
				p.resolve(i, nil)
			}
			<-p.Done()
			g.release(key, p, false)
		}(i)
	}
	wg.Wait()
	if g.len() != 0 {
		t.Fatalf("slots=%d want 0", g.len())
	}
}
