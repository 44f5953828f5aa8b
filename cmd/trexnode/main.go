package main

import (
	"context"
	"log"
	"os"

	"github.com/p-hoffmann/trextest/internal/engine"
	commands "github.com/urfave/cli/v3"
)

func main() {
	cmd := &commands.Command{
		Name:  "trexnode",
		Usage: "Reference trex node, driven over stdin/stdout",
		Flags: []commands.Flag{
			&commands.StringSliceFlag{
				Name:  "load",
				Usage: "Engine module to load at startup (repeatable)",
			},
		},
		Action: func(ctx context.Context, cmd *commands.Command) error {
			return engine.Serve(ctx, os.Stdin, os.Stdout, cmd.StringSlice("load"))
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
