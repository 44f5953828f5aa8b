// Package engine implements the reference node: a small query engine with
// loadable modules, driven over stdin/stdout by the harness. It exists so
// integration tests have a node that behaves like the real thing at the
// protocol level without dragging the real thing in.
package engine

import (
	"fmt"
	"time"

	"github.com/p-hoffmann/trextest/pkg/threadsafe"
	"github.com/p-hoffmann/trextest/pkg/wire"
)

// ScalarFunc evaluates a scalar function call into a single cell.
type ScalarFunc func(args []any) (any, error)

// TableFunc produces the rows of a table function call.
type TableFunc func() (wire.Rows, error)

// Engine executes commands one at a time. Modules register functions and
// hooks at load; background goroutines (gossip, listeners) touch only the
// thread-safe parts.
type Engine struct {
	scalars map[string]ScalarFunc
	tables  map[string]TableFunc
	loaded  map[string]bool

	catalog *threadsafe.Map[string, *Table]

	tableHooks []func(*Table)
	dropHooks  []func(name string)
	closers    []func()
}

var moduleLoaders = map[string]func(*Engine) error{
	"swarm":  loadSwarm,
	"flight": loadFlight,
	"pgwire": loadPgwire,
	"trexas": loadTrexas,
}

func New() *Engine {
	e := &Engine{
		scalars: make(map[string]ScalarFunc),
		tables:  make(map[string]TableFunc),
		loaded:  make(map[string]bool),
		catalog: threadsafe.NewMap[string, *Table](),
	}

	e.registerScalar("epoch_ms", func(args []any) (any, error) {
		return time.Now().UnixMilli(), nil
	})

	return e
}

// Load initializes a module by name. Loading a module twice is a no-op.
func (e *Engine) Load(name string) error {
	if e.loaded[name] {
		return nil
	}

	loader, ok := moduleLoaders[name]
	if !ok {
		return fmt.Errorf("unknown module %q", name)
	}

	if err := loader(e); err != nil {
		return fmt.Errorf("loading module %q: %w", name, err)
	}
	e.loaded[name] = true

	return nil
}

// Execute parses and runs one command. Panics inside functions surface as
// errors so a broken module cannot take the serve loop down.
func (e *Engine) Execute(command string) (rows wire.Rows, err error) {
	defer func() {
		if r := recover(); r != nil {
			rows, err = nil, fmt.Errorf("internal error: %v", r)
		}
	}()

	stmt, err := parse(command)
	if err != nil {
		return nil, err
	}

	switch stmt.kind {
	case stmtLiteral:
		return wire.Rows{{stmt.literal}}, nil
	case stmtScalarCall:
		fn, ok := e.scalars[stmt.fn]
		if !ok {
			return nil, fmt.Errorf("unknown function %q", stmt.fn)
		}

		v, err := fn(stmt.args)
		if err != nil {
			return nil, err
		}
		return wire.Rows{{v}}, nil
	case stmtTableCall:
		fn, ok := e.tables[stmt.fn]
		if !ok {
			return nil, fmt.Errorf("unknown table function %q", stmt.fn)
		}
		return fn()
	case stmtCreateTable:
		return e.createTable(stmt)
	case stmtCount:
		return e.count(stmt.table)
	case stmtDropTable:
		return e.dropTable(stmt.table)
	}

	return nil, fmt.Errorf("cannot parse: %s", command)
}

// Close tears down loaded modules in reverse load order.
func (e *Engine) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
}

func (e *Engine) registerScalar(name string, fn ScalarFunc) {
	e.scalars[name] = fn
}

func (e *Engine) registerTable(name string, fn TableFunc) {
	e.tables[name] = fn
}

func (e *Engine) onCreateTable(hook func(*Table)) {
	e.tableHooks = append(e.tableHooks, hook)
}

func (e *Engine) onDropTable(hook func(name string)) {
	e.dropHooks = append(e.dropHooks, hook)
}

func (e *Engine) onClose(fn func()) {
	e.closers = append(e.closers, fn)
}

func stringArg(fn string, args []any, i int) (string, error) {
	if i >= len(args) {
		return "", fmt.Errorf("%s: missing argument %d", fn, i+1)
	}

	s, ok := args[i].(string)
	if !ok {
		return "", fmt.Errorf("%s: argument %d must be a string", fn, i+1)
	}

	return s, nil
}

func intArg(fn string, args []any, i int) (int64, error) {
	if i >= len(args) {
		return 0, fmt.Errorf("%s: missing argument %d", fn, i+1)
	}

	switch v := args[i].(type) {
	case int64:
		return v, nil
	case float64:
		return int64(v), nil
	default:
		return 0, fmt.Errorf("%s: argument %d must be a number", fn, i+1)
	}
}
