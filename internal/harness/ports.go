package harness

import (
	"fmt"
	"sync/atomic"
)

// Each listener class gets its own port range so a stray connection to the
// wrong service is immediately obvious from the port number alone.
const (
	gossipPortBase = 19000
	flightPortBase = 19100
	pgwirePortBase = 19200
	trexasPortBase = 19300
)

// portCounter hands out ports from a base, each exactly once per process.
type portCounter struct {
	next atomic.Int64
}

func newPortCounter(base int) *portCounter {
	c := &portCounter{}
	c.next.Store(int64(base))

	return c
}

func (c *portCounter) alloc() int {
	return int(c.next.Add(1) - 1)
}

var (
	gossipPorts = newPortCounter(gossipPortBase)
	flightPorts = newPortCounter(flightPortBase)
	pgwirePorts = newPortCounter(pgwirePortBase)
	trexasPorts = newPortCounter(trexasPortBase)
)

// PortSet is the block of ports reserved for one node.
type PortSet struct {
	Gossip int
	Flight int
	Pgwire int
	Trexas int
}

// AllocPorts reserves a fresh port for every service class. Ports are never
// reused within a process, so nodes from concurrent tests cannot collide.
func AllocPorts() PortSet {
	return PortSet{
		Gossip: gossipPorts.alloc(),
		Flight: flightPorts.alloc(),
		Pgwire: pgwirePorts.alloc(),
		Trexas: trexasPorts.alloc(),
	}
}

// GossipAddr returns the loopback address peers use to join this node.
func (p PortSet) GossipAddr() string {
	return fmt.Sprintf("127.0.0.1:%d", p.Gossip)
}
