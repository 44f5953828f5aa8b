// Package wire defines the protocol spoken between the harness and a node
// process: newline-delimited JSON over the child's stdin and stdout.
// Requests are JSON strings (commands) or null (the shutdown sentinel);
// responses are envelopes. The child's stderr is not part of the protocol.
package wire

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
)

// Status tags a response envelope.
type Status string

const (
	// StatusReady is sent once, unsolicited, after the engine loads its modules.
	StatusReady Status = "ready"
	// StatusInitError is sent instead of ready when module loading fails.
	StatusInitError Status = "init_error"
	// StatusOK carries the rows produced by a command.
	StatusOK Status = "ok"
	// StatusError carries an engine-level command failure.
	StatusError Status = "error"
)

// Envelope is a single response message from a node process.
type Envelope struct {
	Status Status `json:"status"`
	Error  string `json:"error,omitempty"`
	Rows   Rows   `json:"rows,omitempty"`
}

// Rows is an ordered result set of scalar cells.
type Rows []Row

// Row holds scalar cells: strings, numbers, bools, or nil. Numbers decoded
// off the wire arrive as json.Number; rows built in-process may hold native
// Go numerics. The accessors tolerate both.
type Row []any

// Str returns cell i as a string, or "" when absent or nil.
func (r Row) Str(i int) string {
	if i < 0 || i >= len(r) {
		return ""
	}

	switch v := r[i].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// Int returns cell i as an int64, or 0 when the cell is not numeric.
func (r Row) Int(i int) int64 {
	if i < 0 || i >= len(r) {
		return 0
	}

	switch v := r[i].(type) {
	case json.Number:
		n, _ := v.Int64()
		return n
	case int:
		return int64(v)
	case int64:
		return v
	case float64:
		return int64(v)
	case string:
		n, _ := strconv.ParseInt(v, 10, 64)
		return n
	default:
		return 0
	}
}

// Float returns cell i as a float64, or 0 when the cell is not numeric.
func (r Row) Float(i int) float64 {
	if i < 0 || i >= len(r) {
		return 0
	}

	switch v := r[i].(type) {
	case json.Number:
		f, _ := v.Float64()
		return f
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return 0
	}
}

// Bool returns cell i as a bool. String cells parse "true"/"false".
func (r Row) Bool(i int) bool {
	if i < 0 || i >= len(r) {
		return false
	}

	switch v := r[i].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	default:
		return false
	}
}

// Col projects column i of every row as strings.
func (rs Rows) Col(i int) []string {
	out := make([]string, 0, len(rs))
	for _, row := range rs {
		out = append(out, row.Str(i))
	}

	return out
}

// Encoder writes protocol messages, one JSON value per line.
type Encoder struct {
	enc *json.Encoder
}

func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{enc: json.NewEncoder(w)}
}

// WriteEnvelope sends a response envelope.
func (e *Encoder) WriteEnvelope(env *Envelope) error {
	return e.enc.Encode(env)
}

// WriteCommand sends a command to a node.
func (e *Encoder) WriteCommand(command string) error {
	return e.enc.Encode(command)
}

// WriteShutdown sends the null shutdown sentinel.
func (e *Encoder) WriteShutdown() error {
	return e.enc.Encode(nil)
}

// Decoder reads protocol messages. Numbers decode as json.Number so values
// survive the trip without float rounding.
type Decoder struct {
	dec *json.Decoder
}

func NewDecoder(r io.Reader) *Decoder {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	return &Decoder{dec: dec}
}

// ReadEnvelope reads the next response envelope.
func (d *Decoder) ReadEnvelope() (*Envelope, error) {
	var env Envelope
	if err := d.dec.Decode(&env); err != nil {
		return nil, err
	}

	return &env, nil
}

// ReadRequest reads the next request. ok is false when the shutdown
// sentinel was received.
func (d *Decoder) ReadRequest() (command string, ok bool, err error) {
	var req *string
	if err := d.dec.Decode(&req); err != nil {
		return "", false, err
	}

	if req == nil {
		return "", false, nil
	}

	return *req, true, nil
}
