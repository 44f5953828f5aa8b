package harness

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/p-hoffmann/trextest/pkg/wire"
)

func TestWaitForImmediateSuccess(t *testing.T) {
	n := startWorkerNode(t)

	rows, err := WaitFor(context.Background(), n, "SELECT 1", MinRows(1), WaitOptions{})
	if err != nil {
		t.Fatalf("WaitFor: %v", err)
	}
	if got := rows[0].Int(0); got != 1 {
		t.Errorf("got %d, want 1", got)
	}
}

func TestWaitForTimeout(t *testing.T) {
	n := startWorkerNode(t)

	never := func(wire.Rows) bool { return false }
	opts := WaitOptions{Timeout: 300 * time.Millisecond, Interval: 50 * time.Millisecond}

	_, err := WaitFor(context.Background(), n, "SELECT 7", never, opts)

	var timeoutErr *WaitTimeoutError
	if !errors.As(err, &timeoutErr) {
		t.Fatalf("expected a *WaitTimeoutError, got %v", err)
	}
	if timeoutErr.Command != "SELECT 7" {
		t.Errorf("Command = %q", timeoutErr.Command)
	}
	if len(timeoutErr.LastRows) != 1 || timeoutErr.LastRows[0].Int(0) != 7 {
		t.Errorf("LastRows = %v, want the last successful result", timeoutErr.LastRows)
	}
	if !strings.Contains(err.Error(), "condition not met within") {
		t.Errorf("unexpected message: %v", err)
	}
}

func TestWaitForCarriesLastError(t *testing.T) {
	n := startWorkerNode(t)

	opts := WaitOptions{Timeout: 300 * time.Millisecond, Interval: 50 * time.Millisecond}

	_, err := WaitFor(context.Background(), n, "BOGUS", MinRows(1), opts)

	var timeoutErr *WaitTimeoutError
	if !errors.As(err, &timeoutErr) {
		t.Fatalf("expected a *WaitTimeoutError, got %v", err)
	}
	if timeoutErr.LastErr == nil {
		t.Fatal("LastErr not populated from the failing command")
	}

	var cmdErr *CommandError
	if !errors.As(timeoutErr.LastErr, &cmdErr) {
		t.Errorf("LastErr = %v, want a *CommandError", timeoutErr.LastErr)
	}
}

func TestWaitForContextCancel(t *testing.T) {
	n := startWorkerNode(t)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	never := func(wire.Rows) bool { return false }
	opts := WaitOptions{Timeout: 10 * time.Second, Interval: 50 * time.Millisecond}

	_, err := WaitFor(ctx, n, "SELECT 1", never, opts)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("got %v, want context.DeadlineExceeded", err)
	}
}
