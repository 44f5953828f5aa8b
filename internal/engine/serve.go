package engine

import (
	"context"
	"errors"
	"io"

	"github.com/p-hoffmann/trextest/pkg/wire"
)

// Serve runs the node loop: load the modules, report ready (or init_error),
// then answer one command per request until the shutdown sentinel or EOF.
func Serve(ctx context.Context, r io.Reader, w io.Writer, modules []string) error {
	enc := wire.NewEncoder(w)

	eng := New()
	defer eng.Close()

	for _, name := range modules {
		if err := eng.Load(name); err != nil {
			_ = enc.WriteEnvelope(&wire.Envelope{
				Status: wire.StatusInitError,
				Error:  err.Error(),
			})
			return err
		}
	}

	if err := enc.WriteEnvelope(&wire.Envelope{Status: wire.StatusReady}); err != nil {
		return err
	}

	dec := wire.NewDecoder(r)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		command, ok, err := dec.ReadRequest()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if !ok {
			return nil
		}

		env := &wire.Envelope{Status: wire.StatusOK}
		if rows, err := eng.Execute(command); err != nil {
			env = &wire.Envelope{Status: wire.StatusError, Error: err.Error()}
		} else {
			env.Rows = rows
		}

		if err := enc.WriteEnvelope(env); err != nil {
			return err
		}
	}
}
