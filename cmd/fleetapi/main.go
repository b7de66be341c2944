// Command fleetapi serves the fleet graph over HTTP, with Prometheus
// metrics and a gRPC health service reflecting the graph connection.
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
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/WessleyAI/fleetgraph/engine/fleet"
	"github.com/WessleyAI/fleetgraph/engine/graphdb"
	"github.com/WessleyAI/fleetgraph/pkg/config"
	"github.com/WessleyAI/fleetgraph/pkg/metrics"
)

const healthInterval = 10 * time.Second

func main() {
	cfgPath := flag.String("config", "", "optional YAML config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}
	logger := cfg.Logger(os.Stdout)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	met := metrics.New()
	mgr := graphdb.NewManager(cfg.Graph(), graphdb.WithLogger(logger), graphdb.WithObserver(met))
	if err := mgr.Open(ctx); err != nil {
		return fmt.Errorf("open graph: %w", err)
	}
	defer mgr.Close(context.Background())

	store := fleet.NewStore(mgr, logger)
	if err := store.EnsureConstraints(ctx); err != nil {
		return fmt.Errorf("ensure constraints: %w", err)
	}

	// --- gRPC health ---
	hs := health.NewServer()
	gs := grpc.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	lis, err := net.Listen("tcp", ":"+cfg.HTTP.GRPCPort)
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}
	go func() {
		logger.Info("grpc health server starting", "port", cfg.HTTP.GRPCPort)
		if err := gs.Serve(lis); err != nil {
			logger.Error("grpc server stopped", "err", err)
		}
	}()
	defer gs.GracefulStop()
	go watchHealth(ctx, mgr, hs, healthInterval, logger)

	// --- HTTP ---
	srv := &http.Server{
		Addr:         ":" + cfg.HTTP.Port,
		Handler:      newHandler(store, mgr, met, cfg, logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting", "port", cfg.HTTP.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	hs.Shutdown()
	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}

// watchHealth pings the graph every interval and mirrors the outcome into
// the gRPC health status of the overall server.
func watchHealth(ctx context.Context, p pinger, hs *health.Server, interval time.Duration, logger *slog.Logger) {
	last := healthpb.HealthCheckResponse_UNKNOWN
	check := func() {
		status := healthpb.HealthCheckResponse_SERVING
		if err := p.Ping(ctx); err != nil {
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
		if status != last {
			logger.Info("health status changed", "status", status.String(), "graph", p.State().String())
			last = status
		}
		hs.SetServingStatus("", status)
	}

	check()
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			check()
		}
	}
}
