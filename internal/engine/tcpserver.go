package engine

import (
	"fmt"
	"net"
	"sort"
	"sync"

	"github.com/p-hoffmann/trextest/pkg/wire"
)

// tcpServer backs the transport modules. It accepts connections, writes an
// identification banner, and hangs up; tests probe that the right listener
// answers on the right port, not the protocol itself.
type tcpServer struct {
	banner string

	mu        sync.Mutex
	listeners map[string]*tcpListener
}

type tcpListener struct {
	host string
	port int
	ln   net.Listener
}

func newTCPServer(banner string) *tcpServer {
	return &tcpServer{
		banner:    banner,
		listeners: make(map[string]*tcpListener),
	}
}

func (t *tcpServer) start(host string, port int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	addr := fmt.Sprintf("%s:%d", host, port)
	if _, exists := t.listeners[addr]; exists {
		return fmt.Errorf("already listening on %s", addr)
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	t.listeners[addr] = &tcpListener{host: host, port: port, ln: ln}
	go t.serve(ln)

	return nil
}

func (t *tcpServer) serve(ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return
		}

		fmt.Fprintf(conn, "%s\n", t.banner)
		conn.Close()
	}
}

// stop closes the listener on one address.
func (t *tcpServer) stop(host string, port int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	addr := fmt.Sprintf("%s:%d", host, port)
	l, exists := t.listeners[addr]
	if !exists {
		return fmt.Errorf("not listening on %s", addr)
	}

	l.ln.Close()
	delete(t.listeners, addr)

	return nil
}

// stopAll closes every listener and reports whether any were running.
func (t *tcpServer) stopAll() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.listeners) == 0 {
		return false
	}

	for addr, l := range t.listeners {
		l.ln.Close()
		delete(t.listeners, addr)
	}

	return true
}

// status lists running listeners, sorted by port.
func (t *tcpServer) status() wire.Rows {
	t.mu.Lock()
	defer t.mu.Unlock()

	rows := wire.Rows{}
	for _, l := range t.listeners {
		rows = append(rows, wire.Row{l.host, l.port, "running"})
	}

	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Int(1) < rows[j].Int(1)
	})

	return rows
}
