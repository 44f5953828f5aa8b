package harness

import (
	"errors"
	"fmt"
	"time"

	"github.com/p-hoffmann/trextest/pkg/wire"
)

// ErrNodeClosed is returned by operations on a node whose process has been
// shut down, either by Close or because a transport failure poisoned it.
var ErrNodeClosed = errors.New("node is closed")

// CommandError is an engine-level failure: the node process is healthy and
// answered, but the command itself was rejected.
type CommandError struct {
	Command string
	Msg     string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command failed: %s", e.Msg)
}

// WaitTimeoutError reports that WaitFor exhausted its deadline. It carries
// the last observed result so failures show what the node was actually
// returning.
type WaitTimeoutError struct {
	Command  string
	Timeout  time.Duration
	LastRows wire.Rows
	LastErr  error
}

func (e *WaitTimeoutError) Error() string {
	msg := fmt.Sprintf("condition not met within %s for: %s", e.Timeout, e.Command)
	if e.LastRows != nil {
		msg += fmt.Sprintf("\nlast result: %v", e.LastRows)
	}
	if e.LastErr != nil {
		msg += fmt.Sprintf("\nlast error: %v", e.LastErr)
	}

	return msg
}
