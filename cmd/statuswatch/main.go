// Command statuswatch follows the outcome stream published by kiosks and
// prints one coloured status line per scan.
package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"

	"scanattend/internal/config"
	"scanattend/internal/logging"
	"scanattend/internal/queue"
	"scanattend/internal/scan"
	"scanattend/internal/status"
	"scanattend/internal/store"
)

func init() {
	// Users can disable with NO_COLOR.
	if os.Getenv("NO_COLOR") == "" {
		color.NoColor = false
	}
}

func main() {
	cfg := config.Load()
	log := logging.New(os.Stderr, cfg.LogLevel, cfg.Production())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log, os.Stdout); err != nil {
		log.Error("statuswatch failed", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.App, log *slog.Logger, out io.Writer) error {
	if cfg.QueueBackend == queue.BackendMemory {
		return errors.New("statuswatch needs QUEUE_BACKEND=redis or kafka; the memory stream is private to the kiosk")
	}
	opts := queue.Options{
		Backend: cfg.QueueBackend,
		Key:     cfg.OutcomeTopic,
		Brokers: cfg.KafkaBrokers,
		GroupID: "statuswatch",
		Logger:  log,
	}
	if cfg.QueueBackend == queue.BackendRedis {
		r := store.DialRedis(ctx, cfg.RedisAddr, log)
		defer r.Close()
		opts.Redis = r.Client
	}
	q, closeQueue, err := queue.Open(opts)
	if err != nil {
		return err
	}
	defer closeQueue()

	log.Info("watching outcomes", "backend", cfg.QueueBackend, "stream", cfg.OutcomeTopic)
	p := newPrinter(out)
	err = status.Watch(ctx, q, scan.SinkFunc(p.print), log)
	log.Info("statuswatch stopped")
	return err
}
