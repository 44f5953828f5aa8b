package standalone

import (
	"fmt"

	. "github.com/p-hoffmann/trextest/internal/harness"
)

func Discovery() *Suite {
	var node *Node

	return NewSuite().
		// 0
		Setup(func(r *Run) {
			node = r.Node("node", "swarm", "flight")
			r.Exec(node, "CREATE TABLE users AS SELECT * FROM range(500)")

			command := fmt.Sprintf("SELECT swarm_start('127.0.0.1', %d, 'solo')", node.Ports.Gossip)
			rows := r.Exec(node, command)
			Expect(command, rows[0].Str(0), Contains("Swarm started"))
		}).

		// 1
		Test("Node Lists Itself as a Data Node", func(r *Run) {
			rows := r.WaitRows(node, "SELECT * FROM swarm_nodes()", MinRows(1), WaitOptions{})
			Expect("node state", rows[0].Str(4), Is("alive"))
			Expect("data node flag", rows[0].Str(3), Is("true"))

			cfg := r.Exec(node, "SELECT * FROM swarm_config()")
			Expect("cluster id", cfg[0].Str(1), Is("solo"))
		}).

		// 2
		Test("Catalog Announces the Table", func(r *Run) {
			rows := r.WaitRows(node, "SELECT * FROM swarm_tables()", MinRows(1), WaitOptions{})
			Expect("table name", rows[0].Str(1), Is("users"))
			Expect("approx rows", rows[0].Int(2), Is(int64(500)))
			Expect("schema hash", rows[0].Str(3), Matches(`^0x[0-9A-F]+$`))
		}).

		// 3
		Test("Service Registry Tracks the Flight Transport", func(r *Run) {
			r.Exec(node, fmt.Sprintf("SELECT start_flight_server('0.0.0.0', %d)", node.Ports.Flight))

			command := fmt.Sprintf("SELECT swarm_register_service('flight', '127.0.0.1', %d)", node.Ports.Flight)
			rows := r.Exec(node, command)
			Expect(command, rows[0].Str(0), Contains("Registered service flight"))

			rows = r.WaitRows(node, "SELECT * FROM swarm_services()", MinRows(1), WaitOptions{})
			Expect("service name", rows[0].Str(1), Is("flight"))
			Expect("service host", rows[0].Str(2), Is("127.0.0.1"))
			Expect("service port", rows[0].Int(3), Is(int64(node.Ports.Flight)))
			Expect("service status", rows[0].Str(4), Is("running"))
		}).

		// 4
		Test("Gossip Stops Cleanly", func(r *Run) {
			rows := r.Exec(node, "SELECT swarm_stop()")
			Expect("SELECT swarm_stop()", rows[0].Str(0), Contains("Gossip stopped"))

			msg := r.ExecErr(node, "SELECT * FROM swarm_nodes()")
			Expect("nodes after stop", msg, Contains("swarm not started"))

			rows = r.Exec(node, "SELECT swarm_set_key('k', 'v')")
			Expect("set key after stop", rows[0].Str(0), Is("Error: swarm not started"))
		})
}
