package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/angeloszaimis/blobstream/config"
	"github.com/angeloszaimis/blobstream/internal/backend"
	"github.com/angeloszaimis/blobstream/internal/circuitbreaker"
	"github.com/angeloszaimis/blobstream/internal/handler"
	"github.com/angeloszaimis/blobstream/internal/healthcheck"
	"github.com/angeloszaimis/blobstream/internal/httpserver"
	"github.com/angeloszaimis/blobstream/internal/loadbalancer"
	"github.com/angeloszaimis/blobstream/internal/metadata"
	"github.com/angeloszaimis/blobstream/internal/metrics"
	"github.com/angeloszaimis/blobstream/internal/session"
	"github.com/angeloszaimis/blobstream/internal/strategy"
	"github.com/angeloszaimis/blobstream/internal/workload"
)

func newServeCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the download server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(*configPath)
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			return serve(ctx, cfg, log)
		},
	}
}

// app holds the process-wide components shared by every request.
type app struct {
	breakers  *circuitbreaker.Registry
	table     *workload.Table
	balancer  *loadbalancer.Balancer
	sessions  *session.Cache
	store     *metadata.SQLStore
	collector *metrics.Collector
	handler   *handler.StreamHandler
}

func newApp(ctx context.Context, cfg *config.Config, log *slog.Logger, opener backend.Opener) (*app, error) {
	handles, err := backend.NewPool(cfg.Backends)
	if err != nil {
		return nil, err
	}

	strat, err := strategy.New(cfg.Balancing.Strategy)
	if err != nil {
		return nil, err
	}

	store, err := metadata.OpenStore(ctx, cfg.Metadata.Driver, cfg.Metadata.DSN)
	if err != nil {
		return nil, err
	}

	breakers := circuitbreaker.NewRegistry(
		cfg.CircuitBreaker.FailureThreshold,
		config.Duration(cfg.CircuitBreaker.ResetTimeout),
	)

	table := workload.NewTable(handles)
	balancer := loadbalancer.New(table, strat, breakers)
	sessions := session.NewCache(opener, log)

	collector := metrics.NewCollector(cfg.Metrics.BufferSize, log)
	collector.TrackLoads(table)

	h := handler.NewStreamHandler(log, store, balancer, sessions, collector, handler.Options{
		ChunkSize:         cfg.Stream.ChunkSize,
		MaxBytesPerSecond: cfg.Stream.MaxBytesPerSecond,
	})

	return &app{
		breakers:  breakers,
		table:     table,
		balancer:  balancer,
		sessions:  sessions,
		store:     store,
		collector: collector,
		handler:   h,
	}, nil
}

func (a *app) Close() error {
	return errors.Join(a.sessions.Close(), a.store.Close())
}

func serve(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	a, err := newApp(ctx, cfg, log, backend.BlobOpener)
	if err != nil {
		log.Error("failed to initialize", slog.Any("err", err))
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Error("error releasing resources", slog.Any("err", err))
		}
	}()

	srv, err := httpserver.New(cfg.Server.Address, setupRouter(a), httpserver.Timeouts{
		ReadHeader: config.Duration(cfg.Server.ReadHeaderTimeout),
		Idle:       config.Duration(cfg.Server.IdleTimeout),
	})
	if err != nil {
		log.Error("failed to create server", slog.Any("err", err))
		return err
	}

	log.Info("server starting",
		slog.String("address", cfg.Server.Address),
		slog.String("strategy", cfg.Balancing.Strategy),
		slog.Int("backends", a.table.Len()),
		slog.Int64("chunk_size", cfg.Stream.ChunkSize),
		slog.String("version", version),
	)

	return a.run(ctx, cfg, log, srv, srv.Start)
}

// run serves until ctx is done or start fails. The collector keeps running
// through the graceful shutdown so streams that finish in that window are
// still counted.
func (a *app) run(ctx context.Context, cfg *config.Config, log *slog.Logger, srv *httpserver.Server, start func() error) error {
	collectorCtx, stopCollector := context.WithCancel(context.WithoutCancel(ctx))
	a.collector.Start(collectorCtx)
	defer func() {
		stopCollector()
		<-a.collector.Done()
	}()

	if interval := config.Duration(cfg.HealthCheck.Interval); interval > 0 {
		go healthcheck.Run(ctx, a.table.Handles(), healthcheck.SessionProber(a.sessions), a.breakers, interval, log)
	}

	srvErrCh := make(chan error, 1)
	go func() {
		srvErrCh <- start()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), config.Duration(cfg.Server.ShutdownTimeout))
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("error during shutdown", slog.Any("err", err))
		}
		return nil
	case err := <-srvErrCh:
		if err != nil {
			log.Error("server failed", slog.Any("err", err))
		}
		return err
	}
}
