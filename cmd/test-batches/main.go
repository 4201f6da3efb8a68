package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	cli "github.com/urfave/cli/v3"

	"github.com/okian/containertiming/internal/config"
	"github.com/okian/containertiming/internal/loadgen"
	"github.com/okian/containertiming/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	app := &cli.Command{
		Name:            "test-batches",
		Usage:           "drives a container timing service with random layouts and paint batches",
		HideHelpCommand: true,
		Before:          initLogging,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "http://localhost:9080", Usage: "base `URL` of the service"},
			&cli.IntFlag{Name: "containers", Value: 20, Usage: "number of container roots"},
			&cli.IntFlag{Name: "children", Value: 8, Usage: "painted elements per container"},
			&cli.IntFlag{Name: "batches", Value: 1000, Usage: "number of paint batches"},
			&cli.IntFlag{Name: "workers", Value: runtime.NumCPU(), Usage: "concurrent submitters (1 keeps batch order)"},
			&cli.DurationFlag{Name: "timeout", Value: 30 * time.Second, Usage: "HTTP request timeout"},
			&cli.DurationFlag{Name: "settle", Value: 2 * time.Second, Usage: "wait before verifying reports"},
			&cli.Int64Flag{Name: "seed", Usage: "RNG seed (0 picks one)"},
			&cli.StringFlag{Name: "strategy", Value: config.StrategyAggregatedPaints,
				Usage: "strategy the service runs (" + config.StrategyAggregatedPaints + ", " + config.StrategyEmitNewAreaPainted + ")"},
			&cli.StringFlag{Name: "output", Usage: "write the generated layout and batches to `FILE`"},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "enable debug logging"},
		},
		Action: run,
	}

	err := app.Run(ctx, os.Args)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "test-batches failed: %v\n", err)
		os.Exit(1)
	}
}

func initLogging(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if err := logger.Init(); err != nil {
		return ctx, fmt.Errorf("failed to initialize logger: %w", err)
	}
	if cmd.Bool("verbose") {
		if err := logger.SetLevelString("debug"); err != nil {
			return ctx, err
		}
	}
	return ctx, nil
}

func run(ctx context.Context, cmd *cli.Command) error {
	stats, err := loadgen.Run(ctx, &loadgen.Config{
		BaseURL:    cmd.String("url"),
		Containers: cmd.Int("containers"),
		Children:   cmd.Int("children"),
		Batches:    cmd.Int("batches"),
		Workers:    cmd.Int("workers"),
		Timeout:    cmd.Duration("timeout"),
		Settle:     cmd.Duration("settle"),
		Seed:       cmd.Int64("seed"),
		Strategy:   cmd.String("strategy"),
		OutputFile: cmd.String("output"),
		Verbose:    cmd.Bool("verbose"),
	})
	if stats != nil {
		fmt.Fprintf(os.Stdout, `Batches:    %d generated, %d accepted, %d duplicate, %d rejected, %d failed
Containers: %d painted, %d reported, %d violations
Duration:   %s
`, stats.BatchesGenerated, stats.BatchesAccepted, stats.BatchesDuplicate, stats.BatchesRejected, stats.BatchesFailed,
			stats.ContainersPainted, stats.ContainersReported, stats.Violations, stats.Duration)
	}
	return err
}
