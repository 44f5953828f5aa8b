package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/p-hoffmann/trextest/pkg/wire"
)

// Run owns the nodes of one suite execution. Test functions drive it and
// panic on failure; Suite.Run recovers and reports.
type Run struct {
	factory *Factory
	config  *Config

	ctx    context.Context
	cancel context.CancelFunc
}

func newRun(ctx context.Context, config *Config) *Run {
	runCtx, cancel := context.WithCancel(ctx)

	factory, err := NewFactory(config)
	if err != nil {
		cancel()
		panic(fmt.Sprintf("failed to create node factory: %v", err))
	}

	return &Run{
		factory: factory,
		config:  config,
		ctx:     runCtx,
		cancel:  cancel,
	}
}

// Factory exposes the node factory for direct use.
func (r *Run) Factory() *Factory {
	return r.factory
}

// Context returns the run's context; it is cancelled when the run ends.
func (r *Run) Context() context.Context {
	return r.ctx
}

// Done cancels the run and shuts down all nodes.
func (r *Run) Done() {
	r.cancel()

	if err := r.factory.Close(); err != nil {
		fmt.Printf("%s cleanup: %v\n", yellow("!"), err)
	}
}

// Node starts a node with the given modules.
func (r *Run) Node(name string, modules ...string) *Node {
	n, err := r.factory.NewNode(NodeOptions{Name: name, Modules: modules})
	if err != nil {
		panic(fmt.Sprintf("An error occurred: %v", err))
	}

	return n
}

// Exec runs a command that must succeed and returns its rows.
func (r *Run) Exec(n *Node, command string) wire.Rows {
	rows, err := n.Execute(command)
	if err != nil {
		panic(fmt.Sprintf("%s\n  Expected: success\n  Actual error: %v", command, err))
	}

	return rows
}

// ExecErr runs a command that must fail with an engine error and returns
// the engine's message.
func (r *Run) ExecErr(n *Node, command string) string {
	_, err := n.Execute(command)
	if err == nil {
		panic(fmt.Sprintf("%s\n  Expected: a command error\n  Actual: success", command))
	}

	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) {
		panic(fmt.Sprintf("%s\n  Expected: a command error\n  Actual error: %v", command, err))
	}

	return cmdErr.Msg
}

// WaitRows polls command until pred accepts the result.
func (r *Run) WaitRows(n *Node, command string, pred Predicate, opts WaitOptions) wire.Rows {
	rows, err := WaitFor(r.ctx, n, command, pred, opts)
	if err != nil {
		panic(err.Error())
	}

	return rows
}

// Cluster2 builds a two-node cluster.
func (r *Run) Cluster2(tablesA, tablesB []string, clusterID string) (*Node, *Node) {
	nodeA, nodeB, err := SetupTwoNodeCluster(r.factory, tablesA, tablesB, clusterID)
	if err != nil {
		panic(fmt.Sprintf("An error occurred: %v", err))
	}

	return nodeA, nodeB
}

// Cluster3 builds a three-node cluster.
func (r *Run) Cluster3(tablesA, tablesB, tablesC []string, clusterID string) (*Node, *Node, *Node) {
	nodeA, nodeB, nodeC, err := SetupThreeNodeCluster(r.factory, tablesA, tablesB, tablesC, clusterID)
	if err != nil {
		panic(fmt.Sprintf("An error occurred: %v", err))
	}

	return nodeA, nodeB, nodeC
}

// WaitPort blocks until something accepts connections on the port.
func (r *Run) WaitPort(port int) {
	addr := fmt.Sprintf("127.0.0.1:%d", port)

	accepted := eventually(r.ctx, func() bool {
		conn, err := net.DialTimeout("tcp", addr, 100*time.Millisecond)
		if err != nil {
			return false
		}

		conn.Close()
		return true
	}, r.config.WaitTimeout, r.config.PollInterval)

	if !accepted {
		panic(fmt.Sprintf("port %s never accepted connections", addr))
	}
}

// HTTPGet fetches a URL and returns the status code and body.
func (r *Run) HTTPGet(url string) (int, string) {
	req, err := http.NewRequestWithContext(r.ctx, http.MethodGet, url, nil)
	if err != nil {
		panic(fmt.Sprintf("An error occurred: %v", err))
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		panic(fmt.Sprintf("An error occurred: %v", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		panic(fmt.Sprintf("An error occurred: %v", err))
	}

	return resp.StatusCode, string(body)
}

// Concurrently runs multiple functions in parallel and waits for completion
func (r *Run) Concurrently(fns ...func()) {
	var wg sync.WaitGroup
	var panicErr any
	var panicMu sync.Mutex

	for _, fn := range fns {
		wg.Add(1)
		go func(f func()) {
			defer wg.Done()
			defer func() {
				err := recover()
				if err != nil {
					panicMu.Lock()
					if panicErr == nil {
						panicErr = err
					}
					panicMu.Unlock()
				}
			}()

			f()
		}(fn)
	}

	wg.Wait()

	if panicErr != nil {
		panic(panicErr)
	}
}
