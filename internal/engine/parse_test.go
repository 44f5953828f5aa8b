package engine

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		command string
		want    *statement
	}{
		{
			name:    "integer literal",
			command: "SELECT 1",
			want:    &statement{kind: stmtLiteral, raw: "SELECT 1", literal: int64(1)},
		},
		{
			name:    "float literal with semicolon",
			command: "SELECT 3.25;",
			want:    &statement{kind: stmtLiteral, raw: "SELECT 3.25;", literal: 3.25},
		},
		{
			name:    "string literal with escaped quote",
			command: "SELECT 'it''s quoted'",
			want:    &statement{kind: stmtLiteral, raw: "SELECT 'it''s quoted'", literal: "it's quoted"},
		},
		{
			name:    "boolean literal",
			command: "select true",
			want:    &statement{kind: stmtLiteral, raw: "select true", literal: true},
		},
		{
			name:    "null literal",
			command: "SELECT NULL",
			want:    &statement{kind: stmtLiteral, raw: "SELECT NULL", literal: nil},
		},
		{
			name:    "scalar call with mixed arguments",
			command: "SELECT swarm_start('127.0.0.1', 19000, 'prod')",
			want: &statement{
				kind: stmtScalarCall,
				raw:  "SELECT swarm_start('127.0.0.1', 19000, 'prod')",
				fn:   "swarm_start",
				args: []any{"127.0.0.1", int64(19000), "prod"},
			},
		},
		{
			name:    "scalar call without arguments",
			command: "SELECT epoch_ms()",
			want: &statement{
				kind: stmtScalarCall,
				raw:  "SELECT epoch_ms()",
				fn:   "epoch_ms",
				args: []any{},
			},
		},
		{
			name:    "table function call",
			command: "SELECT * FROM swarm_nodes()",
			want: &statement{
				kind: stmtTableCall,
				raw:  "SELECT * FROM swarm_nodes()",
				fn:   "swarm_nodes",
			},
		},
		{
			name:    "count",
			command: "SELECT COUNT(*) FROM orders",
			want:    &statement{kind: stmtCount, raw: "SELECT COUNT(*) FROM orders", table: "orders"},
		},
		{
			name:    "create table from range",
			command: "CREATE TABLE orders AS SELECT * FROM range(1000)",
			want: &statement{
				kind:       stmtCreateTable,
				raw:        "CREATE TABLE orders AS SELECT * FROM range(1000)",
				table:      "orders",
				approxRows: 1000,
			},
		},
		{
			name:    "create table with column list",
			command: "CREATE TABLE empty (id INTEGER, name TEXT)",
			want: &statement{
				kind:  stmtCreateTable,
				raw:   "CREATE TABLE empty (id INTEGER, name TEXT)",
				table: "empty",
			},
		},
		{
			name:    "drop table",
			command: "DROP TABLE orders",
			want:    &statement{kind: stmtDropTable, raw: "DROP TABLE orders", table: "orders"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parse(tc.command)
			if err != nil {
				t.Fatalf("parse(%q): %v", tc.command, err)
			}

			if diff := cmp.Diff(tc.want, got, cmp.AllowUnexported(statement{})); diff != "" {
				t.Errorf("statement mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		command string
		wantErr string
	}{
		{"empty", "", "empty command"},
		{"whitespace only", "   ;  ", "empty command"},
		{"garbage", "BOGUS COMMAND", "cannot parse"},
		{"table function with arguments", "SELECT * FROM swarm_nodes(1)", "table functions take no arguments"},
		{"unterminated string", "SELECT 'abc", "unterminated string"},
		{"drop with invalid name", "DROP TABLE 123abc", "invalid table name"},
		{"count of invalid name", "SELECT COUNT(*) FROM no such", "invalid table name"},
		{"create without body", "CREATE TABLE solo", "cannot parse"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := parse(tc.command)
			if err == nil {
				t.Fatalf("parse(%q) succeeded, want error", tc.command)
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("parse(%q) = %v, want it to mention %q", tc.command, err, tc.wantErr)
			}
		})
	}
}

func TestSplitArgs(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"empty", "", nil},
		{"single", "42", []string{"42"}},
		{"comma inside string", "'a,b', 2", []string{"'a,b'", "2"}},
		{"escaped quote", "'it''s', TRUE", []string{"'it''s'", "TRUE"}},
		{
			"json payload",
			`'{"host":"10.0.0.8","port":8100}', 'running'`,
			[]string{`'{"host":"10.0.0.8","port":8100}'`, "'running'"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := splitArgs(tc.input)
			if err != nil {
				t.Fatalf("splitArgs(%q): %v", tc.input, err)
			}

			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("args mismatch (-want +got):\n%s", diff)
			}
		})
	}

	if _, err := splitArgs("1,"); err == nil || !strings.Contains(err.Error(), "trailing comma") {
		t.Errorf("trailing comma: got %v", err)
	}
	if _, err := splitArgs("'abc"); err == nil || !strings.Contains(err.Error(), "unterminated string") {
		t.Errorf("unterminated string: got %v", err)
	}
}
