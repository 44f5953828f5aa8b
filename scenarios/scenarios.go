// Package scenarios pulls in every built-in scenario so a single blank
// import registers them all.
package scenarios

import (
	_ "github.com/p-hoffmann/trextest/scenarios/cluster"
	_ "github.com/p-hoffmann/trextest/scenarios/standalone"
)
