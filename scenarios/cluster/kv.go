package cluster

import (
	"fmt"
	"time"

	. "github.com/p-hoffmann/trextest/internal/harness"
	"github.com/p-hoffmann/trextest/pkg/wire"
)

func GossipKV() *Suite {
	var nodeA, nodeB *Node

	serviceNamed := func(name string) Predicate {
		return func(rows wire.Rows) bool {
			for _, row := range rows {
				if row.Str(1) == name {
					return true
				}
			}
			return false
		}
	}

	serviceGone := func(name string) Predicate {
		return func(rows wire.Rows) bool {
			for _, row := range rows {
				if row.Str(1) == name {
					return false
				}
			}
			return true
		}
	}

	return NewSuite().
		// 0
		Setup(func(r *Run) {
			nodeA, nodeB = r.Cluster2(ordersUS, ordersEU, "trex-kv")
			r.WaitRows(nodeA, "SELECT * FROM swarm_nodes()", MinRows(2),
				WaitOptions{Timeout: 15 * time.Second})
		}).

		// 1
		Test("Writes Propagate Between Nodes", func(r *Run) {
			msg := r.Exec(nodeA,
				`SELECT swarm_set_key('service:etl', '{"host":"10.0.0.8","port":8100,"status":"running","config":{}}')`)
			Expect("set_key result", msg[0].Str(0), Contains("propagating to cluster"))

			rows := r.WaitRows(nodeB, "SELECT * FROM swarm_services()", serviceNamed("etl"),
				WaitOptions{Timeout: 15 * time.Second})

			for _, row := range rows {
				if row.Str(1) != "etl" {
					continue
				}
				Expect("etl host", row.Str(2), Is("10.0.0.8"))
				Expect("etl port", row.Int(3), Is(int64(8100)))
				Expect("etl status", row.Str(4), Is("running"))
			}
		}).

		// 2
		Test("Deletes Tombstone Across the Cluster", func(r *Run) {
			msg := r.Exec(nodeA, "SELECT swarm_delete_key('service:etl')")
			Expect("delete_key result", msg[0].Str(0), Contains("Deleted service:etl"))

			r.WaitRows(nodeB, "SELECT * FROM swarm_services()", serviceGone("etl"),
				WaitOptions{Timeout: 15 * time.Second})
		}).

		// 3
		Test("Rapid Overwrites Settle on the Last Value", func(r *Run) {
			for i := 1; i <= 5; i++ {
				r.Exec(nodeA, fmt.Sprintf(
					`SELECT swarm_set_key('service:cache', '{"host":"10.0.0.9","port":%d,"status":"running","config":{}}')`,
					9000+i))
			}

			rows := r.WaitRows(nodeB, "SELECT * FROM swarm_services()",
				func(rows wire.Rows) bool {
					for _, row := range rows {
						if row.Str(1) == "cache" && row.Int(3) == 9005 {
							return true
						}
					}
					return false
				},
				WaitOptions{Timeout: 15 * time.Second})

			for _, row := range rows {
				if row.Str(1) == "cache" {
					Expect("cache port after overwrites", row.Int(3), Is(int64(9005)))
				}
			}
		})
}
