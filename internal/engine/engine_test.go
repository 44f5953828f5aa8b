package engine

import (
	"bufio"
	"fmt"
	"net"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/p-hoffmann/trextest/pkg/wire"
)

func mustExecute(t *testing.T, e *Engine, command string) wire.Rows {
	t.Helper()

	rows, err := e.Execute(command)
	if err != nil {
		t.Fatalf("Execute(%q): %v", command, err)
	}

	return rows
}

func freePort(t *testing.T) int {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("reserving a port: %v", err)
	}
	defer ln.Close()

	return ln.Addr().(*net.TCPAddr).Port
}

func TestEngineLiterals(t *testing.T) {
	e := New()
	defer e.Close()

	tests := []struct {
		command string
		want    wire.Rows
	}{
		{"SELECT 1", wire.Rows{{int64(1)}}},
		{"SELECT 'hello'", wire.Rows{{"hello"}}},
		{"SELECT 3.25", wire.Rows{{3.25}}},
		{"SELECT TRUE", wire.Rows{{true}}},
		{"SELECT NULL", wire.Rows{{nil}}},
	}

	for _, tc := range tests {
		rows := mustExecute(t, e, tc.command)
		if diff := cmp.Diff(tc.want, rows); diff != "" {
			t.Errorf("%s mismatch (-want +got):\n%s", tc.command, diff)
		}
	}
}

func TestEngineUnknownModule(t *testing.T) {
	err := New().Load("bogus")
	if err == nil || !strings.Contains(err.Error(), `unknown module "bogus"`) {
		t.Errorf("Load: got %v", err)
	}
}

func TestEngineLoadIdempotent(t *testing.T) {
	e := New()
	defer e.Close()

	if err := e.Load("flight"); err != nil {
		t.Fatalf("first Load: %v", err)
	}
	if err := e.Load("flight"); err != nil {
		t.Fatalf("second Load: %v", err)
	}
}

func TestEngineUnknownFunctions(t *testing.T) {
	e := New()
	defer e.Close()

	_, err := e.Execute("SELECT nope()")
	if err == nil || !strings.Contains(err.Error(), `unknown function "nope"`) {
		t.Errorf("scalar: got %v", err)
	}

	_, err = e.Execute("SELECT * FROM nope()")
	if err == nil || !strings.Contains(err.Error(), `unknown table function "nope"`) {
		t.Errorf("table: got %v", err)
	}
}

func TestEngineCatalogLifecycle(t *testing.T) {
	e := New()
	defer e.Close()

	mustExecute(t, e, "CREATE TABLE orders AS SELECT * FROM range(1000)")

	rows := mustExecute(t, e, "SELECT COUNT(*) FROM orders")
	if got := rows[0].Int(0); got != 1000 {
		t.Errorf("count = %d, want 1000", got)
	}

	_, err := e.Execute("CREATE TABLE orders AS SELECT * FROM range(5)")
	if err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Errorf("duplicate create: got %v", err)
	}

	mustExecute(t, e, "DROP TABLE orders")

	_, err = e.Execute("SELECT COUNT(*) FROM orders")
	if err == nil || !strings.Contains(err.Error(), "does not exist") {
		t.Errorf("count after drop: got %v", err)
	}

	_, err = e.Execute("DROP TABLE orders")
	if err == nil || !strings.Contains(err.Error(), "does not exist") {
		t.Errorf("double drop: got %v", err)
	}
}

func TestEnginePanicsSurfaceAsErrors(t *testing.T) {
	e := New()
	defer e.Close()

	e.registerScalar("boom", func(args []any) (any, error) {
		panic("kaboom")
	})

	_, err := e.Execute("SELECT boom()")
	if err == nil || !strings.Contains(err.Error(), "internal error: kaboom") {
		t.Errorf("got %v", err)
	}

	// The engine must stay usable after a function panic.
	rows := mustExecute(t, e, "SELECT 1")
	if rows[0].Int(0) != 1 {
		t.Errorf("engine wedged after panic")
	}
}

func TestSwarmFunctionsBeforeStart(t *testing.T) {
	e := New()
	defer e.Close()

	if err := e.Load("swarm"); err != nil {
		t.Fatalf("Load: %v", err)
	}

	// Lifecycle functions report failure as a result row.
	rows := mustExecute(t, e, "SELECT swarm_set_key('k', 'v')")
	if got := rows[0].Str(0); got != "Error: swarm not started" {
		t.Errorf("swarm_set_key = %q", got)
	}

	rows = mustExecute(t, e, "SELECT swarm_stop()")
	if got := rows[0].Str(0); got != "Error: swarm not started" {
		t.Errorf("swarm_stop = %q", got)
	}

	// Introspection functions fail the command outright.
	_, err := e.Execute("SELECT * FROM swarm_nodes()")
	if err == nil || !strings.Contains(err.Error(), "swarm not started") {
		t.Errorf("swarm_nodes: got %v", err)
	}
}

func TestSwarmSingleNode(t *testing.T) {
	e := New()
	defer e.Close()

	if err := e.Load("swarm"); err != nil {
		t.Fatalf("Load: %v", err)
	}

	mustExecute(t, e, "CREATE TABLE users AS SELECT * FROM range(500)")

	port := freePort(t)
	rows := mustExecute(t, e, fmt.Sprintf("SELECT swarm_start('127.0.0.1', %d, 'solo')", port))
	if got := rows[0].Str(0); !strings.Contains(got, "Swarm started on") {
		t.Fatalf("swarm_start = %q", got)
	}

	rows = mustExecute(t, e, fmt.Sprintf("SELECT swarm_start('127.0.0.1', %d, 'solo')", port))
	if got := rows[0].Str(0); got != "Error: swarm already started" {
		t.Errorf("second swarm_start = %q", got)
	}

	rows = mustExecute(t, e, "SELECT * FROM swarm_nodes()")
	if len(rows) != 1 {
		t.Fatalf("swarm_nodes returned %d rows", len(rows))
	}
	if got := rows[0].Str(4); got != "alive" {
		t.Errorf("member state = %q", got)
	}
	if got := rows[0].Str(3); got != "true" {
		t.Errorf("data node flag = %q, want true for a node with tables", got)
	}

	// The pre-start table must have been announced at startup.
	rows = mustExecute(t, e, "SELECT * FROM swarm_tables()")
	if len(rows) != 1 || rows[0].Str(1) != "users" {
		t.Fatalf("swarm_tables = %v", rows)
	}
	if got := rows[0].Int(2); got != 500 {
		t.Errorf("approx rows = %d, want 500", got)
	}

	rows = mustExecute(t, e, "SELECT swarm_register_service('flight', '127.0.0.1', 9999)")
	if got := rows[0].Str(0); !strings.Contains(got, "Registered service flight") {
		t.Errorf("register = %q", got)
	}

	rows = mustExecute(t, e, "SELECT * FROM swarm_services()")
	if len(rows) != 1 || rows[0].Str(1) != "flight" || rows[0].Int(3) != 9999 {
		t.Fatalf("swarm_services = %v", rows)
	}

	rows = mustExecute(t, e, "SELECT * FROM swarm_config()")
	config := map[string]string{}
	for _, row := range rows {
		config[row.Str(0)] = row.Str(1)
	}
	if config["cluster"] != "solo" {
		t.Errorf("cluster = %q", config["cluster"])
	}
	if want := fmt.Sprintf("127.0.0.1:%d", port); config["gossip_addr"] != want {
		t.Errorf("gossip_addr = %q, want %q", config["gossip_addr"], want)
	}

	rows = mustExecute(t, e, "SELECT swarm_stop()")
	if got := rows[0].Str(0); !strings.Contains(got, "Gossip stopped for node") {
		t.Errorf("swarm_stop = %q", got)
	}

	_, err := e.Execute("SELECT * FROM swarm_nodes()")
	if err == nil || !strings.Contains(err.Error(), "swarm not started") {
		t.Errorf("swarm_nodes after stop: got %v", err)
	}
}

func TestFlightServerLifecycle(t *testing.T) {
	e := New()
	defer e.Close()

	if err := e.Load("flight"); err != nil {
		t.Fatalf("Load: %v", err)
	}

	port := freePort(t)
	rows := mustExecute(t, e, fmt.Sprintf("SELECT start_flight_server('127.0.0.1', %d)", port))
	if got := rows[0].Str(0); got != fmt.Sprintf("Flight server started on 127.0.0.1:%d", port) {
		t.Fatalf("start = %q", got)
	}

	rows = mustExecute(t, e, "SELECT * FROM flight_server_status()")
	if len(rows) != 1 || rows[0].Int(1) != int64(port) || rows[0].Str(2) != "running" {
		t.Fatalf("status = %v", rows)
	}

	conn, err := net.Dial("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		t.Fatalf("dialing the listener: %v", err)
	}
	banner, err := bufio.NewReader(conn).ReadString('\n')
	conn.Close()
	if err != nil {
		t.Fatalf("reading the banner: %v", err)
	}
	if got := strings.TrimSpace(banner); got != "trex-flight/1" {
		t.Errorf("banner = %q", got)
	}

	rows = mustExecute(t, e, fmt.Sprintf("SELECT stop_flight_server('127.0.0.1', %d)", port))
	if got := rows[0].Str(0); !strings.Contains(got, "Flight server stopped") {
		t.Errorf("stop = %q", got)
	}

	rows = mustExecute(t, e, "SELECT * FROM flight_server_status()")
	if len(rows) != 0 {
		t.Errorf("status after stop = %v", rows)
	}

	rows = mustExecute(t, e, fmt.Sprintf("SELECT stop_flight_server('127.0.0.1', %d)", port))
	if got := rows[0].Str(0); !strings.HasPrefix(got, "Error: stopping flight server") {
		t.Errorf("double stop = %q", got)
	}
}
