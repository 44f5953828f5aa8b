package harness

import "time"

// Config holds the settings for running node processes.
type Config struct {
	// Engine is the node binary to execute.
	Engine string
	// EngineArgs are extra arguments passed to every node before the
	// per-node module flags.
	EngineArgs []string
	// EngineEnv are extra environment variables (KEY=VALUE) for every node.
	EngineEnv []string
	// WorkingDir is where run directories and node logs are created.
	WorkingDir string
	// StartTimeout bounds the wait for a node's ready handshake.
	StartTimeout time.Duration
	// ExecuteTimeout bounds the wait for a single command's response.
	ExecuteTimeout time.Duration
	// ShutdownTimeout bounds the graceful shutdown after the sentinel.
	ShutdownTimeout time.Duration
	// KillTimeout bounds the wait for the process to die after SIGKILL.
	KillTimeout time.Duration
	// WaitTimeout is the default deadline for WaitFor.
	WaitTimeout time.Duration
	// PollInterval is the default delay between WaitFor attempts.
	PollInterval time.Duration
}

// DefaultConfig returns the default test configuration.
func DefaultConfig() *Config {
	return &Config{
		Engine:          "trexnode",
		WorkingDir:      ".trextest",
		StartTimeout:    15 * time.Second,
		ExecuteTimeout:  30 * time.Second,
		ShutdownTimeout: 5 * time.Second,
		KillTimeout:     2 * time.Second,
		WaitTimeout:     10 * time.Second,
		PollInterval:    500 * time.Millisecond,
	}
}
