package standalone

import (
	"fmt"

	. "github.com/p-hoffmann/trextest/internal/harness"
)

func Flight() *Suite {
	var node *Node

	return NewSuite().
		// 0
		Setup(func(r *Run) {
			node = r.Node("node", "flight")
		}).

		// 1
		Test("Start the Flight Server", func(r *Run) {
			command := fmt.Sprintf("SELECT start_flight_server('0.0.0.0', %d)", node.Ports.Flight)
			rows := r.Exec(node, command)
			Expect(command, rows[0].Str(0), Contains("Flight server started"))

			r.WaitPort(node.Ports.Flight)
		}).

		// 2
		Test("Status Reports the Listener", func(r *Run) {
			rows := r.Exec(node, "SELECT * FROM flight_server_status()")
			Expect("status row count", len(rows), Is(1))
			Expect("status port", rows[0].Int(1), Is(int64(node.Ports.Flight)))
			Expect("status state", rows[0].Str(2), Is("running"))
		}).

		// 3
		Test("Stop the Flight Server", func(r *Run) {
			command := fmt.Sprintf("SELECT stop_flight_server('0.0.0.0', %d)", node.Ports.Flight)
			rows := r.Exec(node, command)
			Expect(command, rows[0].Str(0), Contains("Flight server stopped"))

			rows = r.Exec(node, "SELECT * FROM flight_server_status()")
			Expect("status after stop", len(rows), Is(0))

			rows = r.Exec(node, command)
			Expect("double stop", rows[0].Str(0), Contains("Error:"))
		})
}
