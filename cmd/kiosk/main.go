package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"scanattend/internal/attendance"
	"scanattend/internal/camera"
	"scanattend/internal/config"
	"scanattend/internal/httpapi"
	"scanattend/internal/httpmiddleware"
	"scanattend/internal/logging"
	"scanattend/internal/metrics"
	"scanattend/internal/queue"
	"scanattend/internal/scan"
	"scanattend/internal/status"
	"scanattend/internal/store"
)

func main() {
	cfg := config.Load()
	log := logging.New(os.Stderr, cfg.LogLevel, cfg.Production())
	slog.SetDefault(log)

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("kiosk failed", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.App, log *slog.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		return err
	}
	log.Info("database ready", "dialect", db.Dialect)

	var redisClient *store.Redis
	if cfg.QueueBackend == queue.BackendRedis {
		redisClient = store.DialRedis(ctx, cfg.RedisAddr, log)
		defer redisClient.Close()
	}

	opts := queue.Options{Backend: cfg.QueueBackend, Key: cfg.OutcomeTopic, Brokers: cfg.KafkaBrokers, Logger: log}
	if redisClient != nil {
		opts.Redis = redisClient.Client
	}
	q, closeQueue, err := queue.Open(opts)
	if err != nil {
		return err
	}
	defer closeQueue()

	repo := attendance.NewRepository(db.Client)
	registry := attendance.NewRegistry(repo)
	ledger := attendance.NewLedger(repo)

	board := status.NewBoard(cfg.StatusResetDelay)
	defer board.Close()

	sinkCtx, cancelSink := context.WithCancel(context.Background())
	defer cancelSink()
	watchCtx, cancelWatch := context.WithCancel(context.Background())
	defer cancelWatch()
	outcomes := status.NewQueueSink(q, 256, log)
	outcomes.Start(sinkCtx)
	logSink := status.LogSink{Log: log.With("component", "status")}
	if cfg.QueueBackend == queue.BackendMemory {
		// Nothing outside this process can read an in-memory stream, so consume it here.
		go func() {
			if err := status.Watch(watchCtx, q, logSink, log); err != nil {
				log.Error("outcome watch failed", "err", err)
			}
		}()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// A configured zero window means no debouncing.
	window := cfg.DebounceWindow
	if window == 0 {
		window = -1
	}
	coord := scan.NewCoordinator(registry, ledger, status.Fanout{board, outcomes}, scan.Options{
		DebounceWindow: window,
		Location:       loc,
		Logger:         log,
		Metrics:        metrics.NewScan(reg),
	})

	frames := &camera.LatestFrame{}
	producerDone := make(chan struct{})
	if cfg.CameraSnapshot != "" {
		producer := camera.NewProducer(
			camera.NewSnapshotSource(cfg.CameraSnapshot),
			camera.NewQRDecoder(log),
			frames,
			coord,
			camera.ProducerOptions{Interval: cfg.FrameInterval, Logger: log, Metrics: metrics.NewCamera(reg)},
		)
		go func() {
			defer close(producerDone)
			_ = producer.Run(ctx)
		}()
		log.Info("camera enabled", "snapshot", cfg.CameraSnapshot)
	} else {
		close(producerDone)
		log.Info("camera disabled, CAMERA_SNAPSHOT not set")
	}

	router := httpapi.NewRouter(httpapi.Deps{
		Scans:         coord,
		Registry:      registry,
		Ledger:        ledger,
		Board:         board,
		Frames:        frames,
		DB:            db,
		Redis:         redisClient,
		OutcomeKey:    cfg.OutcomeTopic,
		Limiter:       httpmiddleware.NewTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin),
		Gatherer:      reg,
		JWTSigningKey: cfg.JWTSigningKey,
		JWTIssuer:     cfg.JWTIssuer,
		Logger:        log,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		log.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-serveErr:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("server forced shutdown", "err", err)
	}
	<-producerDone
	cancelSink()
	outcomes.Wait()
	cancelWatch()
	log.Info("kiosk stopped")
	return nil
}
