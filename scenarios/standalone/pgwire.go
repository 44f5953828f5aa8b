package standalone

import (
	"fmt"

	. "github.com/p-hoffmann/trextest/internal/harness"
)

func Pgwire() *Suite {
	var node *Node

	return NewSuite().
		// 0
		Setup(func(r *Run) {
			node = r.Node("node", "pgwire")
		}).

		// 1
		Test("Version Answers Without a Listener", func(r *Run) {
			rows := r.Exec(node, "SELECT pgwire_version()")
			Expect("SELECT pgwire_version()", rows[0].Str(0), Is("trex-pgwire 0.3.0"))
		}).

		// 2
		Test("Start Accepts Extra Options", func(r *Run) {
			command := fmt.Sprintf("SELECT start_pgwire_server('127.0.0.1', %d, 'secret', 100)", node.Ports.Pgwire)
			rows := r.Exec(node, command)
			Expect(command, rows[0].Str(0), Contains("Pgwire server started"))

			r.WaitPort(node.Ports.Pgwire)

			rows = r.Exec(node, "SELECT * FROM pgwire_server_status()")
			Expect("status row count", len(rows), Is(1))
			Expect("status port", rows[0].Int(1), Is(int64(node.Ports.Pgwire)))
		}).

		// 3
		Test("Stop Tears the Listener Down", func(r *Run) {
			command := fmt.Sprintf("SELECT stop_pgwire_server('127.0.0.1', %d)", node.Ports.Pgwire)
			rows := r.Exec(node, command)
			Expect(command, rows[0].Str(0), Contains("Pgwire server stopped"))

			rows = r.Exec(node, "SELECT * FROM pgwire_server_status()")
			Expect("status after stop", len(rows), Is(0))
		})
}
