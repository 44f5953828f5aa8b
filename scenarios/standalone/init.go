package standalone

import "github.com/p-hoffmann/trextest/internal/registry"

func init() {
	scenario := &registry.Scenario{
		Name: "Standalone Node",
		Summary: `Exercises a single node: the query surface, the table catalog,
and each optional module in isolation.`,
	}

	scenario.AddStage("smoke", "Queries and the Table Catalog", Smoke)
	scenario.AddStage("flight", "Flight Transport Lifecycle", Flight)
	scenario.AddStage("pgwire", "Pgwire Compatibility Listener", Pgwire)
	scenario.AddStage("discovery", "Single-Node Service Discovery", Discovery)
	scenario.AddStage("runtime", "Application Server Health", Runtime)

	registry.Register("standalone", scenario)
}
