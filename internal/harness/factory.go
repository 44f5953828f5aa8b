package harness

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/p-hoffmann/trextest/pkg/threadsafe"
	"github.com/p-hoffmann/trextest/pkg/wire"
)

// NodeOptions configure a single node.
type NodeOptions struct {
	// Name identifies the node; auto-generated when empty.
	Name string
	// Modules are the engine modules to load at startup.
	Modules []string
}

// Factory starts node processes and tracks them for cleanup. Every run
// gets its own timestamped directory under the configured working dir.
type Factory struct {
	config     *Config
	workingDir string
	nodes      *threadsafe.Map[string, *Node]
	seq        atomic.Int64
}

// NewFactory creates the run directory and returns a factory using config,
// or DefaultConfig when config is nil.
func NewFactory(config *Config) (*Factory, error) {
	if config == nil {
		config = DefaultConfig()
	}

	timestamp := time.Now().Format("20060102-150405")
	workingDir := filepath.Join(config.WorkingDir, fmt.Sprintf("run-%s", timestamp))
	if err := os.MkdirAll(workingDir, 0755); err != nil {
		return nil, fmt.Errorf("creating run directory: %w", err)
	}

	return &Factory{
		config:     config,
		workingDir: workingDir,
		nodes:      threadsafe.NewMap[string, *Node](),
	}, nil
}

// WorkingDir returns this run's directory, where node logs land.
func (f *Factory) WorkingDir() string {
	return f.workingDir
}

// NewNode starts an engine process with the requested modules, waits for
// its ready handshake, and registers it for cleanup. The process joins its
// own process group so runaway children die with it.
func (f *Factory) NewNode(opts NodeOptions) (*Node, error) {
	name := opts.Name
	if name == "" {
		name = fmt.Sprintf("node-%d", f.seq.Add(1))
	}

	if _, exists := f.nodes.Get(name); exists {
		return nil, fmt.Errorf("node %s already exists", name)
	}

	args := append([]string{}, f.config.EngineArgs...)
	for _, mod := range opts.Modules {
		args = append(args, fmt.Sprintf("--load=%s", mod))
	}

	cmd := exec.Command(f.config.Engine, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Env = append(os.Environ(), f.config.EngineEnv...)

	logPath := filepath.Join(f.workingDir, fmt.Sprintf("%s.log", name))
	logFile, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("creating log file: %w", err)
	}
	cmd.Stderr = logFile

	stdin, err := cmd.StdinPipe()
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("opening stdin pipe: %w", err)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("opening stdout pipe: %w", err)
	}

	n := &Node{
		Name:    name,
		Ports:   AllocPorts(),
		config:  f.config,
		cmd:     cmd,
		stdin:   stdin,
		enc:     wire.NewEncoder(stdin),
		results: make(chan *wire.Envelope, 1),
		done:    make(chan struct{}),
		logFile: logFile,
	}

	if err := cmd.Start(); err != nil {
		logFile.Close()
		return nil, fmt.Errorf("starting node %s: %w", name, err)
	}

	go n.run(stdout)

	if err := n.awaitReady(); err != nil {
		n.Close()
		return nil, err
	}

	f.nodes.Set(name, n)

	return n, nil
}

// Close shuts down every node the factory started, in parallel.
func (f *Factory) Close() error {
	var nodes []*Node
	f.nodes.Range(func(_ string, n *Node) bool {
		nodes = append(nodes, n)
		return true
	})

	var g errgroup.Group
	for _, n := range nodes {
		g.Go(n.Close)
	}

	return g.Wait()
}
