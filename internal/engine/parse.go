package engine

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

type stmtKind int

const (
	stmtLiteral stmtKind = iota
	stmtScalarCall
	stmtTableCall
	stmtCreateTable
	stmtDropTable
	stmtCount
)

// statement is one parsed command. Only the fields for its kind are set.
type statement struct {
	kind       stmtKind
	raw        string
	literal    any
	fn         string
	args       []any
	table      string
	approxRows int64
}

var (
	identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	rangeRe = regexp.MustCompile(`(?i)range\((\d+)\)`)
)

func parse(command string) (*statement, error) {
	s := strings.TrimSpace(command)
	s = strings.TrimSpace(strings.TrimSuffix(s, ";"))
	if s == "" {
		return nil, fmt.Errorf("empty command")
	}

	upper := strings.ToUpper(s)
	switch {
	case strings.HasPrefix(upper, "SELECT "):
		return parseSelect(command, strings.TrimSpace(s[len("SELECT "):]))
	case strings.HasPrefix(upper, "CREATE TABLE "):
		return parseCreateTable(command, strings.TrimSpace(s[len("CREATE TABLE "):]))
	case strings.HasPrefix(upper, "DROP TABLE "):
		name := strings.TrimSpace(s[len("DROP TABLE "):])
		if !identRe.MatchString(name) {
			return nil, fmt.Errorf("invalid table name: %s", name)
		}
		return &statement{kind: stmtDropTable, raw: command, table: name}, nil
	}

	return nil, fmt.Errorf("cannot parse: %s", command)
}

func parseSelect(raw, rest string) (*statement, error) {
	upper := strings.ToUpper(rest)

	if strings.HasPrefix(upper, "COUNT(*)") {
		after := strings.TrimSpace(rest[len("COUNT(*)"):])
		if !strings.HasPrefix(strings.ToUpper(after), "FROM ") {
			return nil, fmt.Errorf("cannot parse: %s", raw)
		}

		name := strings.TrimSpace(after[len("FROM "):])
		if !identRe.MatchString(name) {
			return nil, fmt.Errorf("invalid table name: %s", name)
		}

		return &statement{kind: stmtCount, raw: raw, table: name}, nil
	}

	if strings.HasPrefix(upper, "* FROM ") {
		call := strings.TrimSpace(rest[len("* FROM "):])
		fn, args, err := parseCall(call)
		if err != nil {
			return nil, fmt.Errorf("cannot parse: %s", raw)
		}
		if len(args) > 0 {
			return nil, fmt.Errorf("table functions take no arguments: %s", fn)
		}

		return &statement{kind: stmtTableCall, raw: raw, fn: fn}, nil
	}

	if fn, args, err := parseCall(rest); err == nil {
		return &statement{kind: stmtScalarCall, raw: raw, fn: fn, args: args}, nil
	}

	literal, err := parseValue(rest)
	if err != nil {
		return nil, err
	}

	return &statement{kind: stmtLiteral, raw: raw, literal: literal}, nil
}

func parseCreateTable(raw, rest string) (*statement, error) {
	end := strings.IndexAny(rest, " (")
	if end == -1 {
		return nil, fmt.Errorf("cannot parse: %s", raw)
	}

	name := rest[:end]
	if !identRe.MatchString(name) {
		return nil, fmt.Errorf("invalid table name: %s", name)
	}

	body := strings.TrimSpace(rest[end:])
	stmt := &statement{kind: stmtCreateTable, raw: raw, table: name}

	switch {
	case strings.HasPrefix(strings.ToUpper(body), "AS "):
		// range(N) in the source query sets the approximate row count.
		if m := rangeRe.FindStringSubmatch(body); m != nil {
			n, err := strconv.ParseInt(m[1], 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid range size: %s", m[1])
			}
			stmt.approxRows = n
		}
	case strings.HasPrefix(body, "(") && strings.HasSuffix(body, ")"):
		// Column-list form registers an empty table.
	default:
		return nil, fmt.Errorf("cannot parse: %s", raw)
	}

	return stmt, nil
}

// parseCall splits "name(arg, ...)" into the function name and its
// evaluated arguments.
func parseCall(s string) (string, []any, error) {
	open := strings.Index(s, "(")
	if open == -1 || !strings.HasSuffix(s, ")") {
		return "", nil, fmt.Errorf("not a function call: %s", s)
	}

	fn := s[:open]
	if !identRe.MatchString(fn) {
		return "", nil, fmt.Errorf("invalid function name: %s", fn)
	}

	rawArgs, err := splitArgs(s[open+1 : len(s)-1])
	if err != nil {
		return "", nil, err
	}

	args := make([]any, 0, len(rawArgs))
	for _, raw := range rawArgs {
		v, err := parseValue(raw)
		if err != nil {
			return "", nil, err
		}
		args = append(args, v)
	}

	return fn, args, nil
}

// splitArgs splits an argument list on commas outside string literals.
// A doubled quote inside a literal escapes it.
func splitArgs(s string) ([]string, error) {
	var (
		args    []string
		current strings.Builder
		inStr   bool
	)

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\'':
			current.WriteByte(c)
			if inStr && i+1 < len(s) && s[i+1] == '\'' {
				current.WriteByte(s[i+1])
				i++
			} else {
				inStr = !inStr
			}
		case c == ',' && !inStr:
			args = append(args, strings.TrimSpace(current.String()))
			current.Reset()
		default:
			current.WriteByte(c)
		}
	}

	if inStr {
		return nil, fmt.Errorf("unterminated string")
	}

	last := strings.TrimSpace(current.String())
	if last != "" {
		args = append(args, last)
	} else if len(args) > 0 {
		return nil, fmt.Errorf("trailing comma in argument list")
	}

	return args, nil
}

// parseValue evaluates a literal: 'string' (with '' escapes), integer,
// float, TRUE, FALSE, or NULL.
func parseValue(s string) (any, error) {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "'") {
		if len(s) < 2 || !strings.HasSuffix(s, "'") {
			return nil, fmt.Errorf("unterminated string")
		}
		return strings.ReplaceAll(s[1:len(s)-1], "''", "'"), nil
	}

	switch strings.ToUpper(s) {
	case "TRUE":
		return true, nil
	case "FALSE":
		return false, nil
	case "NULL":
		return nil, nil
	}

	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f, nil
	}

	return nil, fmt.Errorf("cannot parse value: %s", s)
}
