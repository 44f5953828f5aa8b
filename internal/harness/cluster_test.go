package harness

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestTwoNodeClusterConvergence(t *testing.T) {
	if testing.Short() {
		t.Skip("gossip convergence takes seconds")
	}

	f, err := NewFactory(workerConfig(t, "engine"))
	if err != nil {
		t.Fatalf("NewFactory: %v", err)
	}
	t.Cleanup(func() {
		if err := f.Close(); err != nil {
			t.Errorf("closing factory: %v", err)
		}
	})

	nodeA, nodeB, err := SetupTwoNodeCluster(f,
		[]string{"CREATE TABLE orders_us AS SELECT * FROM range(1000)"},
		[]string{"CREATE TABLE orders_eu AS SELECT * FROM range(800)"},
		"harness-test")
	if err != nil {
		t.Fatalf("SetupTwoNodeCluster: %v", err)
	}

	ctx := context.Background()
	opts := WaitOptions{Timeout: 15 * time.Second, Interval: 250 * time.Millisecond}

	for _, n := range []*Node{nodeA, nodeB} {
		rows, err := WaitFor(ctx, n, "SELECT * FROM swarm_nodes()", MinRows(2), opts)
		if err != nil {
			t.Fatalf("membership on %s: %v", n.Name, err)
		}
		for _, row := range rows {
			if row.Str(4) != "alive" {
				t.Errorf("node %s sees member %s in state %q", n.Name, row.Str(1), row.Str(4))
			}
		}
	}

	rows, err := WaitFor(ctx, nodeB, "SELECT * FROM swarm_tables()", MinRows(2), opts)
	if err != nil {
		t.Fatalf("catalog on %s: %v", nodeB.Name, err)
	}

	names := rows.Col(1)
	sort.Strings(names)
	if diff := cmp.Diff([]string{"orders_eu", "orders_us"}, names); diff != "" {
		t.Errorf("catalog mismatch (-want +got):\n%s", diff)
	}
}

func TestClusterNodeStartsItsTransports(t *testing.T) {
	if testing.Short() {
		t.Skip("spawns a real node process")
	}

	f, err := NewFactory(workerConfig(t, "engine"))
	if err != nil {
		t.Fatalf("NewFactory: %v", err)
	}
	t.Cleanup(func() {
		if err := f.Close(); err != nil {
			t.Errorf("closing factory: %v", err)
		}
	})

	n, err := CreateNodeWithTables(f, ClusterNode{
		Name:      "solo",
		ClusterID: "harness-test",
		Tables:    []string{"CREATE TABLE t AS SELECT * FROM range(10)"},
	})
	if err != nil {
		t.Fatalf("CreateNodeWithTables: %v", err)
	}

	rows, err := n.Execute("SELECT * FROM flight_server_status()")
	if err != nil {
		t.Fatalf("flight_server_status: %v", err)
	}
	if len(rows) != 1 || int(rows[0].Int(1)) != n.Ports.Flight {
		t.Errorf("flight status = %v, want one listener on port %d", rows, n.Ports.Flight)
	}

	rows, err = n.Execute("SELECT * FROM swarm_tables()")
	if err != nil {
		t.Fatalf("swarm_tables: %v", err)
	}
	if len(rows) != 1 || rows[0].Str(1) != "t" {
		t.Errorf("swarm_tables = %v, want the local table announced", rows)
	}
}
