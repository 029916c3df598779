// Command farmwatch subscribes to one map room and prints the crop stage
// changes its local growth mirror predicts between server updates.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"harvesthorizon/internal/client/growth"
	"harvesthorizon/internal/client/wsclient"
	"harvesthorizon/internal/domain/farm"
	"harvesthorizon/internal/platform/config"
	"harvesthorizon/internal/platform/logging"
)

func main() {
	var cfg config.Watch
	if err := config.ParseEnv(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	if cfg.MapID == "" || cfg.OwnerID == "" {
		fmt.Fprintln(os.Stderr, "HH_WATCH_MAP and HH_WATCH_OWNER are required")
		os.Exit(2)
	}
	logger := logging.New(os.Stderr, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("farmwatch exited", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Watch, logger *slog.Logger) error {
	tuning, err := farm.LoadTuning(cfg.TuningPath)
	if err != nil {
		return err
	}
	client, err := wsclient.Dial(ctx, wsclient.Options{URL: cfg.URL, MapID: cfg.MapID, OwnerID: cfg.OwnerID, Logger: logger})
	if err != nil {
		return err
	}
	defer client.Close()

	go func() {
		if err := client.ReadLoop(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("connection closed", "err", err)
		}
	}()

	runner := &growth.Runner{
		Mirror:   growth.NewMirror(farm.NewRules(tuning)),
		Inbound:  client.Inbound(),
		OnNotice: printer(os.Stdout),
		Logger:   logger,
	}
	return runner.Run(ctx)
}

func printer(w io.Writer) func(growth.Notice) {
	return func(n growth.Notice) {
		switch n.Kind {
		case growth.NoticeCropRemoved:
			fmt.Fprintf(w, "%s (%d,%d) %s removed\n", n.At.Format("15:04:05"), n.Coord.X, n.Coord.Y, n.CropType)
		default:
			suffix := ""
			if n.Final {
				suffix = " ready"
			}
			fmt.Fprintf(w, "%s (%d,%d) %s stage %d -> %d%s [%s]\n",
				n.At.Format("15:04:05"), n.Coord.X, n.Coord.Y, n.CropType, n.PrevStage, n.Stage, suffix, n.Kind)
		}
	}
}
