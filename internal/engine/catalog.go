package engine

import (
	"fmt"
	"hash/fnv"

	"github.com/p-hoffmann/trextest/pkg/wire"
)

// Table is a catalog entry for a registered table. No data is stored; the
// engine tracks shape only, which is all the harness inspects.
type Table struct {
	Name       string `json:"name"`
	ApproxRows int64  `json:"approx_rows"`
	SchemaHash string `json:"schema_hash"`
}

func (e *Engine) createTable(stmt *statement) (wire.Rows, error) {
	if _, exists := e.catalog.Get(stmt.table); exists {
		return nil, fmt.Errorf("table %q already exists", stmt.table)
	}

	h := fnv.New64a()
	h.Write([]byte(stmt.raw))

	tbl := &Table{
		Name:       stmt.table,
		ApproxRows: stmt.approxRows,
		SchemaHash: fmt.Sprintf("0x%X", h.Sum64()),
	}
	e.catalog.Set(stmt.table, tbl)

	for _, hook := range e.tableHooks {
		hook(tbl)
	}

	return wire.Rows{}, nil
}

func (e *Engine) count(name string) (wire.Rows, error) {
	tbl, ok := e.catalog.Get(name)
	if !ok {
		return nil, fmt.Errorf("table %q does not exist", name)
	}

	return wire.Rows{{tbl.ApproxRows}}, nil
}

func (e *Engine) dropTable(name string) (wire.Rows, error) {
	if _, ok := e.catalog.Get(name); !ok {
		return nil, fmt.Errorf("table %q does not exist", name)
	}
	e.catalog.Delete(name)

	for _, hook := range e.dropHooks {
		hook(name)
	}

	return wire.Rows{}, nil
}
