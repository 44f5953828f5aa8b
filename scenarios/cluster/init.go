package cluster

import "github.com/p-hoffmann/trextest/internal/registry"

func init() {
	scenario := &registry.Scenario{
		Name: "Gossip Cluster",
		Summary: `Builds multi-node clusters over gossip and checks that membership,
the table catalog, the replicated key/value state, and the service registry
converge on every node.`,
	}

	scenario.AddStage("two-node", "Two Nodes Converge", TwoNode)
	scenario.AddStage("three-node", "Three Nodes Converge", ThreeNode)
	scenario.AddStage("gossip-kv", "Replicated Keys and Tombstones", GossipKV)
	scenario.AddStage("services", "Service Registry Convergence", Services)

	registry.Register("cluster", scenario)
}

// Per-node datasets used across the stages.
var (
	ordersUS = []string{"CREATE TABLE orders_us AS SELECT * FROM range(1000)"}
	ordersEU = []string{"CREATE TABLE orders_eu AS SELECT * FROM range(800)"}
	ordersAP = []string{"CREATE TABLE orders_ap AS SELECT * FROM range(600)"}
)
