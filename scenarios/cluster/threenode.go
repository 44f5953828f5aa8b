package cluster

import (
	"sort"
	"strings"
	"time"

	. "github.com/p-hoffmann/trextest/internal/harness"
	"github.com/p-hoffmann/trextest/pkg/wire"
)

func ThreeNode() *Suite {
	var nodeA, nodeB, nodeC *Node

	return NewSuite().
		// 0
		Setup(func(r *Run) {
			nodeA, nodeB, nodeC = r.Cluster3(ordersUS, ordersEU, ordersAP, "trex-three")
		}).

		// 1
		Test("All Three Members Converge", func(r *Run) {
			opts := WaitOptions{Timeout: 20 * time.Second}

			for _, n := range []*Node{nodeA, nodeB, nodeC} {
				rows := r.WaitRows(n, "SELECT * FROM swarm_nodes()", MinRows(3), opts)
				for _, row := range rows {
					Expect("member state on "+n.Name, row.Str(4), Is("alive"))
				}
			}
		}).

		// 2
		Test("Every Node Sees the Full Catalog", func(r *Run) {
			opts := WaitOptions{Timeout: 20 * time.Second}

			for _, n := range []*Node{nodeA, nodeB, nodeC} {
				rows := r.WaitRows(n, "SELECT * FROM swarm_tables()", MinRows(3), opts)

				names := rows.Col(1)
				sort.Strings(names)
				Expect("tables on "+n.Name, strings.Join(names, ","), Is("orders_ap,orders_eu,orders_us"))
			}
		}).

		// 3
		Test("Late Tables Propagate", func(r *Run) {
			r.Exec(nodeC, "CREATE TABLE orders_sa AS SELECT * FROM range(250)")

			hasOrdersSA := func(rows wire.Rows) bool {
				for _, row := range rows {
					if row.Str(1) == "orders_sa" {
						return true
					}
				}
				return false
			}

			rows := r.WaitRows(nodeA, "SELECT * FROM swarm_tables()", hasOrdersSA,
				WaitOptions{Timeout: 15 * time.Second})

			for _, row := range rows {
				if row.Str(1) == "orders_sa" {
					Expect("orders_sa approx rows", row.Int(2), Is(int64(250)))
				}
			}
		})
}
