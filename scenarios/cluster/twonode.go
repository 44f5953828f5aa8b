package cluster

import (
	"sort"
	"strings"
	"time"

	. "github.com/p-hoffmann/trextest/internal/harness"
)

func TwoNode() *Suite {
	var nodeA, nodeB *Node

	return NewSuite().
		// 0
		Setup(func(r *Run) {
			nodeA, nodeB = r.Cluster2(ordersUS, ordersEU, "trex-two")
		}).

		// 1
		Test("Both Nodes See Both Members", func(r *Run) {
			opts := WaitOptions{Timeout: 15 * time.Second}

			for _, n := range []*Node{nodeA, nodeB} {
				rows := r.WaitRows(n, "SELECT * FROM swarm_nodes()", MinRows(2), opts)
				for _, row := range rows {
					Expect("member state on "+n.Name, row.Str(4), Is("alive"))
				}
			}
		}).

		// 2
		Test("Catalogs Converge on Both Nodes", func(r *Run) {
			opts := WaitOptions{Timeout: 15 * time.Second}

			for _, n := range []*Node{nodeA, nodeB} {
				rows := r.WaitRows(n, "SELECT * FROM swarm_tables()", MinRows(2), opts)

				names := rows.Col(1)
				sort.Strings(names)
				Expect("tables on "+n.Name, strings.Join(names, ","), Is("orders_eu,orders_us"))
			}
		}).

		// 3
		Test("Row Counts Travel with the Catalog", func(r *Run) {
			rows := r.WaitRows(nodeB, "SELECT * FROM swarm_tables()", MinRows(2), WaitOptions{})

			for _, row := range rows {
				switch row.Str(1) {
				case "orders_us":
					Expect("orders_us approx rows", row.Int(2), Is(int64(1000)))
				case "orders_eu":
					Expect("orders_eu approx rows", row.Int(2), Is(int64(800)))
				}
			}
		}).

		// 4
		Test("Both Members Report as Data Nodes", func(r *Run) {
			rows := r.WaitRows(nodeA, "SELECT * FROM swarm_nodes()", MinRows(2), WaitOptions{})

			for _, row := range rows {
				Expect("data node flag for "+row.Str(1), row.Str(3), Is("true"))
			}
		})
}
