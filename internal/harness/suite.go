package harness

import (
	"context"
	"fmt"

	"github.com/fatih/color"
)

var (
	green     = color.New(color.FgGreen).SprintFunc()
	red       = color.New(color.FgRed).SprintFunc()
	yellow    = color.New(color.FgYellow).SprintFunc()
	bold      = color.New(color.Bold).SprintFunc()
	checkMark = green("✓")
	crossMark = red("✗")
)

// Suite represents a test suite with setup and test functions
type Suite struct {
	setupFn func(*Run)
	tests   []TestFunc
	config  *Config
}

// TestFunc represents a single test case with name and function
type TestFunc struct {
	Name string
	Fn   func(*Run)
}

// NewSuite creates a new empty test suite
func NewSuite() *Suite {
	return &Suite{tests: make([]TestFunc, 0)}
}

// WithConfig sets the configuration for the test suite
func (s *Suite) WithConfig(config *Config) *Suite {
	merged := DefaultConfig()

	if config.Engine != "" {
		merged.Engine = config.Engine
	}

	if len(config.EngineArgs) > 0 {
		merged.EngineArgs = config.EngineArgs
	}

	if len(config.EngineEnv) > 0 {
		merged.EngineEnv = config.EngineEnv
	}

	if config.WorkingDir != "" {
		merged.WorkingDir = config.WorkingDir
	}

	if config.StartTimeout != 0 {
		merged.StartTimeout = config.StartTimeout
	}

	if config.ExecuteTimeout != 0 {
		merged.ExecuteTimeout = config.ExecuteTimeout
	}

	if config.ShutdownTimeout != 0 {
		merged.ShutdownTimeout = config.ShutdownTimeout
	}

	if config.KillTimeout != 0 {
		merged.KillTimeout = config.KillTimeout
	}

	if config.WaitTimeout != 0 {
		merged.WaitTimeout = config.WaitTimeout
	}

	if config.PollInterval != 0 {
		merged.PollInterval = config.PollInterval
	}

	s.config = merged
	return s
}

// Setup adds a setup function that runs before all tests
func (s *Suite) Setup(fn func(*Run)) *Suite {
	s.setupFn = fn
	return s
}

// Test adds a test case to the suite
func (s *Suite) Test(name string, fn func(*Run)) *Suite {
	s.tests = append(s.tests, TestFunc{Name: name, Fn: fn})
	return s
}

// Run executes the test suite and returns whether it passed
func (s *Suite) Run(ctx context.Context) bool {
	config := s.config
	if config == nil {
		config = DefaultConfig()
	}

	var (
		run    *Run
		failed bool
	)

	// Create the run and execute setup; failures in either report as SETUP
	func() {
		defer func() {
			err := recover()
			if err != nil {
				failed = true

				fmt.Printf("%s %s\n", crossMark, "SETUP")
				fmt.Printf("\n%s\n", err)
			}
		}()

		run = newRun(ctx, config)
		if s.setupFn != nil {
			s.setupFn(run)
		}
	}()

	if run != nil {
		defer run.Done()
	}

	// Run each test, stopping on first failure or cancellation
	for _, test := range s.tests {
		if failed {
			break
		}

		select {
		case <-ctx.Done():
			return false
		default:
		}

		func() {
			defer func() {
				err := recover()
				if err != nil {
					failed = true

					fmt.Printf("%s %s\n", crossMark, test.Name)
					fmt.Printf("\n%s\n", err)
				}
			}()

			test.Fn(run)
		}()

		if !failed {
			fmt.Printf("%s %s\n", checkMark, test.Name)
		}
	}

	if failed {
		fmt.Printf("\n%s %s\n", bold("FAILED"), crossMark)
	} else {
		fmt.Printf("\n%s %s\n", bold("PASSED"), checkMark)
	}

	return !failed
}
