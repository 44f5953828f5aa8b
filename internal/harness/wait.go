package harness

import (
	"context"
	"time"

	"github.com/p-hoffmann/trextest/pkg/wire"
)

// Predicate decides whether a command's result satisfies a condition.
type Predicate func(rows wire.Rows) bool

// MinRows returns a predicate satisfied once a result has at least n rows.
func MinRows(n int) Predicate {
	return func(rows wire.Rows) bool {
		return len(rows) >= n
	}
}

// WaitOptions tune a single WaitFor call. Zero values fall back to the
// node config's WaitTimeout and PollInterval.
type WaitOptions struct {
	Timeout  time.Duration
	Interval time.Duration
}

// WaitFor re-runs command on the node until pred accepts the result, the
// deadline passes, or ctx is cancelled. Command errors do not abort the
// wait; gossip convergence routinely fails a few polls before it
// succeeds. On timeout the returned *WaitTimeoutError carries the last
// rows and error observed.
func WaitFor(ctx context.Context, n *Node, command string, pred Predicate, opts WaitOptions) (wire.Rows, error) {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = n.config.WaitTimeout
	}

	interval := opts.Interval
	if interval == 0 {
		interval = n.config.PollInterval
	}

	var (
		lastRows wire.Rows
		lastErr  error
	)

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		rows, err := n.Execute(command)
		if err != nil {
			lastErr = err
		} else {
			if rows == nil {
				rows = wire.Rows{}
			}
			lastRows = rows

			if pred(rows) {
				return rows, nil
			}
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(interval):
		}
	}

	return nil, &WaitTimeoutError{
		Command:  command,
		Timeout:  timeout,
		LastRows: lastRows,
		LastErr:  lastErr,
	}
}

// eventually polls condition until it returns true or the timeout passes.
func eventually(ctx context.Context, condition func() bool, timeout, pollInterval time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}

		select {
		case <-ctx.Done():
			return false
		case <-time.After(pollInterval):
		}
	}

	return false
}
