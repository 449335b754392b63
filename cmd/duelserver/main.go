// Package main provides the duel server binary: the minimum-mana solver and
// replay builder behind a gRPC service.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/cory-johannsen/spellduel/internal/config"
	"github.com/cory-johannsen/spellduel/internal/duelserver"
	"github.com/cory-johannsen/spellduel/internal/game/scenario"
	"github.com/cory-johannsen/spellduel/internal/game/solver"
	"github.com/cory-johannsen/spellduel/internal/observability"
	"github.com/cory-johannsen/spellduel/internal/server"
	"github.com/cory-johannsen/spellduel/internal/storage"
	"github.com/cory-johannsen/spellduel/internal/storage/stores"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	healthInterval := flag.Duration("db-health-interval", 15*time.Second, "database health check interval (postgres only)")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	logger, err := observability.NewLogger(cfg.Logging, "duelserver")
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting duel server",
		zap.String("grpc_addr", cfg.Server.Addr()),
		zap.String("storage", cfg.Storage.Driver),
	)

	shutdownTracing, err := observability.SetupTracing(ctx, cfg.Tracing)
	if err != nil {
		logger.Fatal("initializing tracing", zap.Error(err))
	}

	var scenarios []scenario.Scenario
	if dir := cfg.Duel.ScenarioDir; dir != "" {
		scenarios, err = scenario.LoadDirectory(dir)
		if err != nil {
			logger.Fatal("loading scenarios", zap.Error(err))
		}
		logger.Info("scenarios loaded", zap.String("dir", dir), zap.Int("count", len(scenarios)))
	}

	opened, err := stores.Open(ctx, cfg)
	if err != nil {
		logger.Fatal("opening solution store", zap.Error(err))
	}
	var s storage.Solver = solver.New(solver.Options{MaxNodes: cfg.Search.MaxNodes}, logger)
	if opened.Store != nil {
		s = storage.NewCached(s, opened.Store, logger)
	}

	srv := duelserver.NewServer(s, duelserver.Options{
		Store:     opened.Store,
		Scenarios: scenarios,
		Defaults:  cfg.Duel.Scenario(),
	}, logger)
	gs, hs := duelserver.NewGRPCServer(srv)

	lc := server.NewLifecycle(logger, cfg.Server.ShutdownTimeout)
	lc.Add("grpc", duelserver.NewService(gs, hs, cfg.Server.Addr(), cfg.Server.ShutdownTimeout, logger))

	if opened.Pool != nil {
		watchCtx, stopWatch := context.WithCancel(ctx)
		done := make(chan struct{})
		lc.Add("db-health", &server.FuncService{
			StartFn: func() error {
				defer close(done)
				opened.Pool.Watch(watchCtx, *healthInterval, 2*time.Second, logger, func(healthy bool) {
					status := grpc_health_v1.HealthCheckResponse_NOT_SERVING
					if healthy {
						status = grpc_health_v1.HealthCheckResponse_SERVING
					}
					hs.SetServingStatus(duelserver.ServiceName, status)
				})
				return nil
			},
			StopFn: func() {
				stopWatch()
				<-done
			},
		})
	}

	lc.OnShutdown("tracing", func(ctx context.Context) error { return shutdownTracing(ctx) })
	lc.OnShutdown("storage", func(context.Context) error { return opened.Close() })

	logger.Info("duel server initialized", zap.Duration("startup", time.Since(start)))
	if err := lc.Run(ctx); err != nil {
		logger.Fatal("duel server stopped with error", zap.Error(err))
	}
}
