package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/p-hoffmann/trextest/pkg/wire"
)

func TestServeSession(t *testing.T) {
	reqR, reqW := io.Pipe()
	respR, respW := io.Pipe()

	errCh := make(chan error, 1)
	go func() {
		errCh <- Serve(context.Background(), reqR, respW, nil)
	}()

	enc := wire.NewEncoder(reqW)
	dec := wire.NewDecoder(respR)

	env, err := dec.ReadEnvelope()
	if err != nil {
		t.Fatalf("reading handshake: %v", err)
	}
	if env.Status != wire.StatusReady {
		t.Fatalf("handshake status = %q", env.Status)
	}

	if err := enc.WriteCommand("SELECT 1"); err != nil {
		t.Fatalf("writing command: %v", err)
	}
	env, err = dec.ReadEnvelope()
	if err != nil {
		t.Fatalf("reading response: %v", err)
	}
	if env.Status != wire.StatusOK {
		t.Fatalf("status = %q, error = %q", env.Status, env.Error)
	}
	if diff := cmp.Diff(wire.Rows{{json.Number("1")}}, env.Rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}

	// A failed command answers with an error envelope and keeps serving.
	if err := enc.WriteCommand("BOGUS"); err != nil {
		t.Fatalf("writing command: %v", err)
	}
	env, err = dec.ReadEnvelope()
	if err != nil {
		t.Fatalf("reading response: %v", err)
	}
	if env.Status != wire.StatusError || !strings.Contains(env.Error, "cannot parse") {
		t.Fatalf("status = %q, error = %q", env.Status, env.Error)
	}

	if err := enc.WriteCommand("SELECT 2"); err != nil {
		t.Fatalf("writing command: %v", err)
	}
	env, err = dec.ReadEnvelope()
	if err != nil {
		t.Fatalf("reading response: %v", err)
	}
	if env.Status != wire.StatusOK {
		t.Fatalf("status after error = %q", env.Status)
	}

	if err := enc.WriteShutdown(); err != nil {
		t.Fatalf("writing sentinel: %v", err)
	}
	if err := <-errCh; err != nil {
		t.Errorf("Serve returned %v", err)
	}
}

func TestServeStopsOnEOF(t *testing.T) {
	var out bytes.Buffer

	err := Serve(context.Background(), strings.NewReader(""), &out, nil)
	if err != nil {
		t.Fatalf("Serve returned %v", err)
	}

	env, err := wire.NewDecoder(&out).ReadEnvelope()
	if err != nil {
		t.Fatalf("reading handshake: %v", err)
	}
	if env.Status != wire.StatusReady {
		t.Errorf("handshake status = %q", env.Status)
	}
}

func TestServeInitError(t *testing.T) {
	var out bytes.Buffer

	err := Serve(context.Background(), strings.NewReader(""), &out, []string{"bogus"})
	if err == nil {
		t.Fatal("expected an error for an unknown module")
	}

	env, decErr := wire.NewDecoder(&out).ReadEnvelope()
	if decErr != nil {
		t.Fatalf("reading handshake: %v", decErr)
	}
	if env.Status != wire.StatusInitError {
		t.Errorf("handshake status = %q", env.Status)
	}
	if !strings.Contains(env.Error, `unknown module "bogus"`) {
		t.Errorf("handshake error = %q", env.Error)
	}
}
