package engine

import (
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/p-hoffmann/trextest/pkg/wire"
)

// trexasModule runs the application server stub: a real HTTP listener with
// the health endpoint the runtime scenarios probe.
type trexasModule struct {
	mu   sync.Mutex
	srv  *http.Server
	host string
	port int
}

func loadTrexas(e *Engine) error {
	t := &trexasModule{}

	e.registerScalar("trex_start_server", func(args []any) (any, error) {
		host, err := stringArg("trex_start_server", args, 0)
		if err != nil {
			return nil, err
		}
		port, err := intArg("trex_start_server", args, 1)
		if err != nil {
			return nil, err
		}

		if err := t.start(host, int(port)); err != nil {
			return fmt.Sprintf("Error: starting trexas server: %v", err), nil
		}

		return fmt.Sprintf("Trexas server started on %s:%d", host, port), nil
	})

	e.registerScalar("trex_stop_server", func(args []any) (any, error) {
		if !t.stop() {
			return "Error: trexas server not running", nil
		}

		return "Trexas server stopped", nil
	})

	e.registerTable("trex_server_status", func() (wire.Rows, error) {
		return t.status(), nil
	})

	e.onClose(func() { t.stop() })

	return nil
}

func (t *trexasModule) start(host string, port int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.srv != nil {
		return fmt.Errorf("already running on %s:%d", t.host, t.port)
	}

	ln, err := net.Listen("tcp", fmt.Sprintf("%s:%d", host, port))
	if err != nil {
		return err
	}

	started := time.Now()
	mux := http.NewServeMux()
	mux.HandleFunc("/_internal/health", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status":"ok","uptime_seconds":%d}`, int64(time.Since(started).Seconds()))
	})

	srv := &http.Server{Handler: mux}
	go srv.Serve(ln)

	t.srv, t.host, t.port = srv, host, port

	return nil
}

func (t *trexasModule) stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.srv == nil {
		return false
	}

	t.srv.Close()
	t.srv = nil

	return true
}

func (t *trexasModule) status() wire.Rows {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.srv == nil {
		return wire.Rows{}
	}

	return wire.Rows{{t.host, t.port, "running"}}
}
