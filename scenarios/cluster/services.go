package cluster

import (
	"fmt"
	"time"

	. "github.com/p-hoffmann/trextest/internal/harness"
	"github.com/p-hoffmann/trextest/pkg/wire"
)

func Services() *Suite {
	var nodeA, nodeB *Node

	flightEverywhere := func(rows wire.Rows) bool {
		count := 0
		for _, row := range rows {
			if row.Str(1) == "flight" {
				count++
			}
		}
		return count >= 2
	}

	return NewSuite().
		// 0
		Setup(func(r *Run) {
			nodeA, nodeB = r.Cluster2(ordersUS, ordersEU, "trex-services")
			r.WaitRows(nodeA, "SELECT * FROM swarm_nodes()", MinRows(2),
				WaitOptions{Timeout: 15 * time.Second})
		}).

		// 1
		Test("Concurrent Registrations Converge", func(r *Run) {
			register := func(n *Node) func() {
				return func() {
					msg := r.Exec(n, fmt.Sprintf(
						"SELECT swarm_register_service('flight', '127.0.0.1', %d)", n.Ports.Flight))
					Expect("register on "+n.Name, msg[0].Str(0), Contains("Registered service flight"))
				}
			}
			r.Concurrently(register(nodeA), register(nodeB))

			opts := WaitOptions{Timeout: 15 * time.Second}
			for _, n := range []*Node{nodeA, nodeB} {
				rows := r.WaitRows(n, "SELECT * FROM swarm_services()", flightEverywhere, opts)

				ports := map[int64]bool{}
				for _, row := range rows {
					if row.Str(1) == "flight" {
						ports[row.Int(3)] = true
					}
				}
				Expect("distinct flight ports on "+n.Name, len(ports), Is(2))
			}
		}).

		// 2
		Test("Each Transport Answers on Its Port", func(r *Run) {
			r.WaitPort(nodeA.Ports.Flight)
			r.WaitPort(nodeB.Ports.Flight)
		})
}
