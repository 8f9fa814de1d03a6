// Command sightings-etl runs the stages that turn citizen-science snake
// sightings into a gridded, environment-enriched modeling dataset. Each
// subcommand reads and writes delimited files, so stages can be rerun
// independently.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cobrasdm/sightings-etl/internal/config"
	"github.com/cobrasdm/sightings-etl/internal/observability"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := &app{cfg: cfg, logger: logger, metrics: metrics, stdout: os.Stdout}
	root := a.rootCommand()
	err = root.ExecuteContext(ctx)

	if cfg.PushgatewayURL != "" && a.command != "" {
		if perr := metrics.Push(context.Background(), cfg.PushgatewayURL, cfg.PushgatewayJob, a.command); perr != nil {
			logger.Warn("metrics push failed", "error", perr)
		}
	}

	switch {
	case err == nil:
		return 0
	case errors.Is(err, errValidationFailed):
		return 1
	default:
		logger.Error("command failed", "command", a.command, "error", err)
		return 1
	}
}
