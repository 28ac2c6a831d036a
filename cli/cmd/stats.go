package cmd

import (
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/benchlink/cli/render"
	"github.com/pithecene-io/benchlink/lode"
)

// StatsCommand returns the stats command with subcommands.
// Stats returns aggregated, derived facts.
func StatsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Show aggregated statistics (runs, metrics)",
		Subcommands: []*cli.Command{
			statsRunsCommand(),
			statsMetricsCommand(),
		},
	}
}

func statsRunsCommand() *cli.Command {
	return &cli.Command{
		Name:  "runs",
		Usage: "Show accuracy across stored batches",
		Flags: append(readFlags(true),
			&cli.StringFlag{Name: "suite", Usage: "Filter by suite: mnist, fsdd"},
		),
		Action: statsRunsAction,
	}
}

func statsRunsAction(c *cli.Context) error {
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

	stats, err := rd.StatsRuns(ctx, c.String("suite"))
	if err != nil {
		return fmt.Errorf("failed to read run stats: %w", err)
	}

	if c.Bool("tui") {
		return r.RenderTUI("stats_runs", stats)
	}
	return r.Render(stats)
}

func statsMetricsCommand() *cli.Command {
	return &cli.Command{
		Name:  "metrics",
		Usage: "Show batch metrics (samples, transfers, storage)",
		Flags: append(readFlags(true),
			&cli.StringFlag{Name: "run-id", Usage: "Read metrics for specific run ID"},
			&cli.StringFlag{Name: "suite", Usage: "Filter by suite partition"},
		),
		Action: statsMetricsAction,
	}
}

func statsMetricsAction(c *cli.Context) error {
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

	snapshot, err := rd.StatsMetrics(ctx, c.String("run-id"), c.String("suite"))
	if err != nil {
		if errors.Is(err, lode.ErrNoMetricsFound) {
			return cli.Exit("no metrics records found", 1)
		}
		return fmt.Errorf("failed to read metrics from Lode: %w", err)
	}

	if c.Bool("tui") {
		return r.RenderTUI("stats_metrics", snapshot)
	}
	return r.Render(snapshot)
}
