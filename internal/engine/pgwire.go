package engine

import (
	"fmt"

	"github.com/p-hoffmann/trextest/pkg/wire"
)

// loadPgwire registers the postgres wire compatibility stub. Extra
// arguments to start_pgwire_server (connection limits and the like) are
// accepted and ignored.
func loadPgwire(e *Engine) error {
	srv := newTCPServer("trex-pgwire/3")

	e.registerScalar("start_pgwire_server", func(args []any) (any, error) {
		host, err := stringArg("start_pgwire_server", args, 0)
		if err != nil {
			return nil, err
		}
		port, err := intArg("start_pgwire_server", args, 1)
		if err != nil {
			return nil, err
		}

		if err := srv.start(host, int(port)); err != nil {
			return fmt.Sprintf("Error: starting pgwire server: %v", err), nil
		}

		return fmt.Sprintf("Pgwire server started on %s:%d", host, port), nil
	})

	e.registerScalar("stop_pgwire_server", func(args []any) (any, error) {
		host, err := stringArg("stop_pgwire_server", args, 0)
		if err != nil {
			return nil, err
		}
		port, err := intArg("stop_pgwire_server", args, 1)
		if err != nil {
			return nil, err
		}

		if err := srv.stop(host, int(port)); err != nil {
			return fmt.Sprintf("Error: stopping pgwire server: %v", err), nil
		}

		return fmt.Sprintf("Pgwire server stopped on %s:%d", host, port), nil
	})

	e.registerScalar("pgwire_version", func(args []any) (any, error) {
		return "trex-pgwire 0.3.0", nil
	})

	e.registerTable("pgwire_server_status", func() (wire.Rows, error) {
		return srv.status(), nil
	})

	e.onClose(func() { srv.stopAll() })

	return nil
}
