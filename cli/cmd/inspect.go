package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/benchlink/cli/reader"
	"github.com/pithecene-io/benchlink/cli/render"
)

// InspectCommand returns the inspect command with subcommands.
// Inspect returns a deep view of a single batch.
func InspectCommand() *cli.Command {
	return &cli.Command{
		Name:  "inspect",
		Usage: "Inspect a single stored batch",
		Subcommands: []*cli.Command{
			inspectRunCommand(),
		},
	}
}

func inspectRunCommand() *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "Inspect a batch by run ID, with every sample record",
		ArgsUsage: "<run-id>",
		Flags:     readFlags(true),
		Action:    inspectRunAction,
	}
}

func inspectRunAction(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.Exit("run-id required", 1)
	}
	runID := c.Args().First()

	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	rd, err := openReader(c)
	if err != nil {
		return err
	}
	ctx, cancel := readContext(c)
	defer cancel()

	resp, err := rd.InspectRun(ctx, runID)
	if err != nil {
		if reader.IsNotFound(err) {
			return cli.Exit(fmt.Sprintf("run not found: %s", runID), 1)
		}
		return fmt.Errorf("failed to inspect run: %w", err)
	}

	if c.Bool("tui") {
		return r.RenderTUI("inspect_run", resp)
	}
	return r.Render(resp)
}
