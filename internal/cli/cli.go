package cli

import (
	"context"
	"fmt"
	"sort"

	"github.com/p-hoffmann/trextest/internal/config"
	"github.com/p-hoffmann/trextest/internal/harness"
	"github.com/p-hoffmann/trextest/internal/registry"
	_ "github.com/p-hoffmann/trextest/scenarios"
	commands "github.com/urfave/cli/v3"
)

func RunScenario(ctx context.Context, cmd *commands.Command) error {
	args := cmd.Args().Slice()
	if len(args) == 0 {
		return fmt.Errorf("Scenario name is required\nUsage: trextest run <scenario> [stage]")
	}

	scenario, err := registry.Get(args[0])
	if err != nil {
		return fmt.Errorf("Unknown scenario: %s", args[0])
	}

	// Load configuration; flags override the file
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	hcfg := &harness.Config{
		Engine:     cfg.Engine,
		EngineArgs: cfg.EngineArgs,
		EngineEnv:  cfg.Env,
		WorkingDir: cfg.WorkingDir,
	}

	if engine := cmd.String("engine"); engine != "" {
		hcfg.Engine = engine
	}
	if dir := cmd.String("working-dir"); dir != "" {
		hcfg.WorkingDir = dir
	}

	var stages []string
	switch len(args) {
	case 1:
		// Run every stage in order
		stages = scenario.StageOrder
	case 2:
		stages = []string{args[1]}
	default:
		return fmt.Errorf("Too many arguments\nUsage: trextest run <scenario> [stage]")
	}

	for _, stageKey := range stages {
		stage, err := scenario.GetStage(stageKey)
		if err != nil {
			msg := "\nAvailable stages:\n"
			for _, key := range scenario.StageOrder {
				msg += fmt.Sprintf("- %s\n", key)
			}
			return fmt.Errorf("%w\n%s", err, msg)
		}

		fmt.Printf("%s\n\n", stage.Name)

		if !stage.Fn().WithConfig(hcfg).Run(ctx) {
			return fmt.Errorf("Scenario %s failed at stage %s", scenario.Key, stageKey)
		}

		fmt.Println()
	}

	return nil
}

func ListScenarios(ctx context.Context, cmd *commands.Command) error {
	scenarios := registry.All()

	keys := make([]string, 0, len(scenarios))
	for key := range scenarios {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	fmt.Println("Available scenarios:")
	fmt.Println()

	for _, key := range keys {
		scenario := scenarios[key]
		fmt.Printf("  %-20s - %s (%d stages)\n", key, scenario.Name, scenario.Len())
	}

	fmt.Println()
	fmt.Println("Run with: trextest run <scenario>")

	return nil
}

func ShowInfo(ctx context.Context, cmd *commands.Command) error {
	args := cmd.Args().Slice()
	if len(args) == 0 {
		return fmt.Errorf("Scenario name is required\nUsage: trextest info <scenario>")
	}

	scenario, err := registry.Get(args[0])
	if err != nil {
		return fmt.Errorf("Unknown scenario: %s", args[0])
	}

	fmt.Print(scenario.Describe())

	return nil
}

func InitConfig(ctx context.Context, cmd *commands.Command) error {
	cfg := &config.Config{
		Engine:     "trexnode",
		WorkingDir: ".trextest",
	}

	if err := config.Save(cfg); err != nil {
		return err
	}

	fmt.Println("Created trextest.yaml.")
	fmt.Println("  engine       - Node binary the harness spawns")
	fmt.Println("  working_dir  - Where run directories and node logs go")

	return nil
}
