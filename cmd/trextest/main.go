package main

import (
	"context"
	"log"
	"os"

	"github.com/p-hoffmann/trextest/internal/cli"
	commands "github.com/urfave/cli/v3"
)

func main() {
	cmd := &commands.Command{
		Name:  "trextest",
		Usage: "Integration test harness for trex node clusters",
		Commands: []*commands.Command{
			{
				Name:      "run",
				Usage:     "Run a scenario, or one of its stages",
				ArgsUsage: "<scenario> [stage]",
				Flags: []commands.Flag{
					&commands.StringFlag{
						Name:  "engine",
						Usage: "Node binary to spawn (overrides trextest.yaml)",
					},
					&commands.StringFlag{
						Name:  "working-dir",
						Usage: "Directory for run output (overrides trextest.yaml)",
					},
				},
				Action: cli.RunScenario,
			},
			{
				Name:   "list",
				Usage:  "Show available scenarios",
				Action: cli.ListScenarios,
			},
			{
				Name:      "info",
				Usage:     "Show scenario details",
				ArgsUsage: "<scenario>",
				Action:    cli.ShowInfo,
			},
			{
				Name:   "init",
				Usage:  "Write a default trextest.yaml",
				Action: cli.InitConfig,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
