package harness

import (
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"
)

// ClusterNode describes one node of a gossip cluster.
type ClusterNode struct {
	// Name is the logical node name.
	Name string
	// ClusterID is the gossip cluster identifier; nodes from different
	// clusters refuse to merge.
	ClusterID string
	// Tables are DDL statements, executed in order before gossip starts.
	Tables []string
	// Seeds is a comma-separated list of gossip addresses to join. Empty
	// means this node starts a new cluster.
	Seeds string
}

// CreateNodeWithTables starts a node with the swarm and flight modules,
// creates its tables, joins it to the gossip cluster, and starts its
// flight transport. The node is closed again on any failure past startup.
// Convergence is the caller's problem; poll with WaitFor.
func CreateNodeWithTables(f *Factory, spec ClusterNode) (*Node, error) {
	n, err := f.NewNode(NodeOptions{
		Name:    spec.Name,
		Modules: []string{"swarm", "flight"},
	})
	if err != nil {
		return nil, err
	}

	for _, ddl := range spec.Tables {
		if _, err := n.Execute(ddl); err != nil {
			n.Close()
			return nil, fmt.Errorf("node %s: creating tables: %w", spec.Name, err)
		}
	}

	var start string
	if spec.Seeds == "" {
		start = fmt.Sprintf("SELECT swarm_start('127.0.0.1', %d, '%s')",
			n.Ports.Gossip, spec.ClusterID)
	} else {
		start = fmt.Sprintf("SELECT swarm_start_seeds('127.0.0.1', %d, '%s', '%s')",
			n.Ports.Gossip, spec.ClusterID, spec.Seeds)
	}
	if err := execLifecycle(n, start); err != nil {
		n.Close()
		return nil, fmt.Errorf("node %s: starting gossip: %w", spec.Name, err)
	}

	flight := fmt.Sprintf("SELECT start_flight_server('0.0.0.0', %d)", n.Ports.Flight)
	if err := execLifecycle(n, flight); err != nil {
		n.Close()
		return nil, fmt.Errorf("node %s: starting flight transport: %w", spec.Name, err)
	}

	return n, nil
}

// execLifecycle runs a lifecycle command and surfaces the engine's "Error:"
// rows, which lifecycle functions return instead of failing the command.
func execLifecycle(n *Node, command string) error {
	rows, err := n.Execute(command)
	if err != nil {
		return err
	}

	if len(rows) > 0 {
		if msg := rows[0].Str(0); strings.HasPrefix(msg, "Error:") {
			return fmt.Errorf("%s", msg)
		}
	}

	return nil
}

// SetupTwoNodeCluster builds a seed node with dataset A and a second node
// with dataset B joined to it. Nodes come back in creation order.
func SetupTwoNodeCluster(f *Factory, tablesA, tablesB []string, clusterID string) (*Node, *Node, error) {
	nodeA, err := CreateNodeWithTables(f, ClusterNode{
		Name:      "node-a",
		ClusterID: clusterID,
		Tables:    tablesA,
	})
	if err != nil {
		return nil, nil, err
	}

	nodeB, err := CreateNodeWithTables(f, ClusterNode{
		Name:      "node-b",
		ClusterID: clusterID,
		Tables:    tablesB,
		Seeds:     nodeA.Ports.GossipAddr(),
	})
	if err != nil {
		nodeA.Close()
		return nil, nil, err
	}

	return nodeA, nodeB, nil
}

// SetupThreeNodeCluster builds a seed node plus two more joined to it. The
// two joiners start concurrently since neither depends on the other.
func SetupThreeNodeCluster(f *Factory, tablesA, tablesB, tablesC []string, clusterID string) (*Node, *Node, *Node, error) {
	nodeA, err := CreateNodeWithTables(f, ClusterNode{
		Name:      "node-a",
		ClusterID: clusterID,
		Tables:    tablesA,
	})
	if err != nil {
		return nil, nil, nil, err
	}

	var (
		nodeB, nodeC *Node
		g            errgroup.Group
	)
	seeds := nodeA.Ports.GossipAddr()

	g.Go(func() error {
		var err error
		nodeB, err = CreateNodeWithTables(f, ClusterNode{
			Name:      "node-b",
			ClusterID: clusterID,
			Tables:    tablesB,
			Seeds:     seeds,
		})
		return err
	})
	g.Go(func() error {
		var err error
		nodeC, err = CreateNodeWithTables(f, ClusterNode{
			Name:      "node-c",
			ClusterID: clusterID,
			Tables:    tablesC,
			Seeds:     seeds,
		})
		return err
	})

	if err := g.Wait(); err != nil {
		nodeA.Close()
		if nodeB != nil {
			nodeB.Close()
		}
		if nodeC != nil {
			nodeC.Close()
		}
		return nil, nil, nil, err
	}

	return nodeA, nodeB, nodeC, nil
}
