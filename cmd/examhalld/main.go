package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/john-shalamon/exam-hall-system/internal/app"
	"github.com/john-shalamon/exam-hall-system/internal/async"
	"github.com/john-shalamon/exam-hall-system/internal/common"
	"github.com/john-shalamon/exam-hall-system/internal/ingest"
	"github.com/john-shalamon/exam-hall-system/internal/pipeline"
	"github.com/john-shalamon/exam-hall-system/internal/repository"
	"github.com/john-shalamon/exam-hall-system/internal/server"
)

func main() {
	configPath := flag.String("config", "", "YAML config file (overrides EXAMHALL_CONFIG)")
	flag.Parse()

	cfg, err := common.LoadConfig(*configPath)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := app.NewLogger(os.Stdout, cfg.LogLevel, false)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("examhalld exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg *common.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	if err := repository.HealthCheck(ctx, a.Repo, 3*time.Second, logger); err != nil {
		return fmt.Errorf("database health: %w", err)
	}
	if ok, err := a.Repo.TableExists(ctx); err == nil && !ok {
		logger.Warn("hall_allocations table missing; POST /api/setup or run `hallctl provision`")
	}

	queue := async.NewRunQueue(a.Processor, logger,
		async.WithQueueSize(cfg.Ingest.QueueSize),
		async.WithRunTimeout(cfg.Ingest.RunTimeout),
		async.WithMetrics(a.Metrics),
	)

	httpSrv := &http.Server{
		Addr: cfg.Server.HTTPAddr,
		Handler: server.New(a.Repo, queue, logger,
			server.WithAllowedOrigins(cfg.Server.AllowedOrigins),
			server.WithMaxUploadBytes(cfg.Server.MaxUploadBytes),
		).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	grpcServer := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	reflection.Register(grpcServer)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("http serving", "addr", cfg.Server.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http serve: %w", err)
		}
		return nil
	})

	if cfg.Server.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
		if err != nil {
			return fmt.Errorf("grpc listen: %w", err)
		}
		g.Go(func() error {
			logger.Info("grpc health serving", "addr", cfg.Server.GRPCAddr)
			return grpcServer.Serve(lis)
		})
	}

	if len(cfg.Ingest.WatchDirs) > 0 {
		events, errs, err := ingest.StartWatcher(gctx, ingest.WatchConfig{
			Roots:       cfg.Ingest.WatchDirs,
			Filter:      ingest.Filter{Include: cfg.Ingest.WatchInclude, SkipHidden: true},
			InitialScan: true,
			Debounce:    cfg.Ingest.WatchDebounce,
			Logger:      logger,
		})
		if err != nil {
			return fmt.Errorf("start watcher: %w", err)
		}
		logger.Info("watching drop folders", "roots", cfg.Ingest.WatchDirs)
		g.Go(func() error {
			for {
				select {
				case p, ok := <-events:
					if !ok {
						return nil
					}
					run, err := queue.Enqueue(gctx, pipeline.Source{Name: filepath.Base(p), Path: p}, nil)
					if err != nil {
						logger.Warn("watched file not queued", "path", p, "error", err)
						continue
					}
					logger.Info("watched file queued", "path", p, "run_id", run.ID())
				case err, ok := <-errs:
					if !ok {
						errs = nil
						continue
					}
					logger.Warn("watcher reported error", "error", err)
				}
			}
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down...")
		hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("http shutdown", "error", err)
		}
		grpcServer.GracefulStop()
		queue.Shutdown(shutdownCtx)
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("stopped")
	return nil
}
