package harness

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/p-hoffmann/trextest/pkg/wire"
)

// Node is a handle to one engine process. The harness talks to it over
// stdin/stdout using the wire protocol; stderr streams to a log file in
// the run directory. A node answers one command at a time.
type Node struct {
	// Name identifies the node in logs and cluster listings.
	Name string
	// Ports is the block of ports reserved for this node's services.
	Ports PortSet

	config  *Config
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	enc     *wire.Encoder
	results chan *wire.Envelope
	done    chan struct{}
	logFile *os.File

	mu     sync.Mutex
	closed bool
}

// run pumps response envelopes from the process's stdout into the results
// channel, then reaps the process once the stream ends. The channel closes
// on stream end so pending reads fail fast instead of waiting out their
// timeout. Reaping only after the pump finishes keeps Wait from closing
// the pipe under a pending read.
func (n *Node) run(stdout io.Reader) {
	dec := wire.NewDecoder(stdout)
	for {
		env, err := dec.ReadEnvelope()
		if err != nil {
			break
		}

		n.results <- env
	}
	close(n.results)

	_ = n.cmd.Wait()
	close(n.done)
}

// awaitReady blocks until the engine reports it finished loading modules.
func (n *Node) awaitReady() error {
	select {
	case env, ok := <-n.results:
		if !ok {
			return fmt.Errorf("node %s: engine exited before ready", n.Name)
		}

		switch env.Status {
		case wire.StatusReady:
			return nil
		case wire.StatusInitError:
			return fmt.Errorf("node %s init failed: %s", n.Name, env.Error)
		default:
			return fmt.Errorf("node %s: unexpected handshake status %q", n.Name, env.Status)
		}
	case <-time.After(n.config.StartTimeout):
		return fmt.Errorf("node %s not ready within %s", n.Name, n.config.StartTimeout)
	}
}

// Execute sends one command and waits for its result. Engine-level
// failures come back as *CommandError and leave the node usable; transport
// failures close it. Callers are serialized, so concurrent Executes queue
// up rather than interleave on the stream.
func (n *Node) Execute(command string) (wire.Rows, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return nil, ErrNodeClosed
	}

	if err := n.enc.WriteCommand(command); err != nil {
		n.closeLocked()
		return nil, fmt.Errorf("node %s: sending command: %w", n.Name, err)
	}

	select {
	case env, ok := <-n.results:
		if !ok {
			n.closeLocked()
			return nil, fmt.Errorf("node %s: engine exited mid-command", n.Name)
		}

		switch env.Status {
		case wire.StatusOK:
			return env.Rows, nil
		case wire.StatusError:
			return nil, &CommandError{Command: command, Msg: env.Error}
		default:
			n.closeLocked()
			return nil, fmt.Errorf("node %s: unexpected status %q", n.Name, env.Status)
		}
	case <-time.After(n.config.ExecuteTimeout):
		// A late reply would answer this command, not the next caller's,
		// so the session cannot be trusted after a timeout.
		n.closeLocked()
		return nil, fmt.Errorf("node %s: no response within %s for: %s",
			n.Name, n.config.ExecuteTimeout, command)
	}
}

// Close shuts the node down, gracefully first and by force if it lingers.
// It is safe to call more than once.
func (n *Node) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.closeLocked()
}

func (n *Node) closeLocked() error {
	if n.closed {
		return nil
	}
	n.closed = true

	// The sentinel and the stdin close both signal shutdown; a healthy
	// engine exits on whichever it sees first.
	_ = n.enc.WriteShutdown()
	_ = n.stdin.Close()

	var err error
	select {
	case <-n.done:
	case <-time.After(n.config.ShutdownTimeout):
		n.kill()
		select {
		case <-n.done:
		case <-time.After(n.config.KillTimeout):
			err = fmt.Errorf("node %s: process did not exit after SIGKILL", n.Name)
		}
	}

	if n.logFile != nil {
		_ = n.logFile.Close()
	}

	return err
}

// kill takes down the node's whole process group so spawned children
// cannot outlive it.
func (n *Node) kill() {
	if n.cmd.Process == nil {
		return
	}

	pgid, err := syscall.Getpgid(n.cmd.Process.Pid)
	if err != nil {
		_ = n.cmd.Process.Kill()
		return
	}

	_ = syscall.Kill(-pgid, syscall.SIGKILL)
}
