package engine

import (
	"fmt"

	"github.com/p-hoffmann/trextest/pkg/wire"
)

// loadFlight registers the flight transport stub, the data-plane listener
// cluster nodes expose next to gossip.
func loadFlight(e *Engine) error {
	srv := newTCPServer("trex-flight/1")

	e.registerScalar("start_flight_server", func(args []any) (any, error) {
		host, err := stringArg("start_flight_server", args, 0)
		if err != nil {
			return nil, err
		}
		port, err := intArg("start_flight_server", args, 1)
		if err != nil {
			return nil, err
		}

		if err := srv.start(host, int(port)); err != nil {
			return fmt.Sprintf("Error: starting flight server: %v", err), nil
		}

		return fmt.Sprintf("Flight server started on %s:%d", host, port), nil
	})

	e.registerScalar("stop_flight_server", func(args []any) (any, error) {
		host, err := stringArg("stop_flight_server", args, 0)
		if err != nil {
			return nil, err
		}
		port, err := intArg("stop_flight_server", args, 1)
		if err != nil {
			return nil, err
		}

		if err := srv.stop(host, int(port)); err != nil {
			return fmt.Sprintf("Error: stopping flight server: %v", err), nil
		}

		return fmt.Sprintf("Flight server stopped on %s:%d", host, port), nil
	})

	e.registerTable("flight_server_status", func() (wire.Rows, error) {
		return srv.status(), nil
	})

	e.onClose(func() { srv.stopAll() })

	return nil
}
