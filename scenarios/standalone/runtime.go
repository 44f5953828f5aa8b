package standalone

import (
	"fmt"

	. "github.com/p-hoffmann/trextest/internal/harness"
)

func Runtime() *Suite {
	var node *Node

	return NewSuite().
		// 0
		Setup(func(r *Run) {
			node = r.Node("node", "trexas")
		}).

		// 1
		Test("Start the Application Server", func(r *Run) {
			command := fmt.Sprintf("SELECT trex_start_server('127.0.0.1', %d)", node.Ports.Trexas)
			rows := r.Exec(node, command)
			Expect(command, rows[0].Str(0), Contains("Trexas server started"))

			r.WaitPort(node.Ports.Trexas)
		}).

		// 2
		Test("Health Endpoint Answers", func(r *Run) {
			url := fmt.Sprintf("http://127.0.0.1:%d/_internal/health", node.Ports.Trexas)
			status, body := r.HTTPGet(url)

			Expect("health status code", status, Is(200))
			ExpectJSON("health body", body, Field("status", Is("ok")))
		}).

		// 3
		Test("Stop the Application Server", func(r *Run) {
			rows := r.Exec(node, "SELECT trex_stop_server()")
			Expect("SELECT trex_stop_server()", rows[0].Str(0), Is("Trexas server stopped"))

			rows = r.Exec(node, "SELECT * FROM trex_server_status()")
			Expect("status after stop", len(rows), Is(0))

			rows = r.Exec(node, "SELECT trex_stop_server()")
			Expect("double stop", rows[0].Str(0), Contains("not running"))
		})
}
