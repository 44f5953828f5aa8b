package harness

import (
	"fmt"
	"sync"
	"testing"
)

func TestAllocPortsMonotonic(t *testing.T) {
	a := AllocPorts()
	b := AllocPorts()

	if b.Gossip != a.Gossip+1 {
		t.Errorf("gossip ports not consecutive: %d then %d", a.Gossip, b.Gossip)
	}
	if b.Flight != a.Flight+1 {
		t.Errorf("flight ports not consecutive: %d then %d", a.Flight, b.Flight)
	}
	if b.Pgwire != a.Pgwire+1 {
		t.Errorf("pgwire ports not consecutive: %d then %d", a.Pgwire, b.Pgwire)
	}
	if b.Trexas != a.Trexas+1 {
		t.Errorf("trexas ports not consecutive: %d then %d", a.Trexas, b.Trexas)
	}
}

func TestAllocPortsSlotsDisjoint(t *testing.T) {
	p := AllocPorts()

	seen := map[int]string{}
	for port, slot := range map[int]string{
		p.Gossip: "gossip",
		p.Flight: "flight",
		p.Pgwire: "pgwire",
		p.Trexas: "trexas",
	} {
		if other, dup := seen[port]; dup {
			t.Errorf("port %d allocated to both %s and %s", port, slot, other)
		}
		seen[port] = slot
	}
}

func TestAllocPortsConcurrent(t *testing.T) {
	const workers = 32

	var (
		mu   sync.Mutex
		sets []PortSet
		wg   sync.WaitGroup
	)

	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()

			p := AllocPorts()
			mu.Lock()
			sets = append(sets, p)
			mu.Unlock()
		}()
	}
	wg.Wait()

	gossip := map[int]bool{}
	for _, p := range sets {
		if gossip[p.Gossip] {
			t.Fatalf("gossip port %d handed out twice", p.Gossip)
		}
		gossip[p.Gossip] = true
	}
}

func TestGossipAddr(t *testing.T) {
	p := AllocPorts()

	want := fmt.Sprintf("127.0.0.1:%d", p.Gossip)
	if got := p.GossipAddr(); got != want {
		t.Errorf("GossipAddr() = %q, want %q", got, want)
	}
}
