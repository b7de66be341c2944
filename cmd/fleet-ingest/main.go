// Command fleet-ingest consumes entity and delete messages from NATS and
// applies them to the fleet graph.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/WessleyAI/fleetgraph/engine/fleet"
	"github.com/WessleyAI/fleetgraph/engine/graphdb"
	"github.com/WessleyAI/fleetgraph/engine/ingest"
	"github.com/WessleyAI/fleetgraph/pkg/config"
	"github.com/WessleyAI/fleetgraph/pkg/metrics"
)

func main() {
	var (
		cfgPath     = flag.String("config", "", "optional YAML config file")
		metricsAddr = flag.String("metrics", ":9091", "address for the /metrics endpoint, empty to disable")
	)
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}
	logger := cfg.Logger(os.Stdout)
	slog.SetDefault(logger)

	if err := run(cfg, *metricsAddr, logger); err != nil {
		logger.Error("ingest exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, metricsAddr string, logger *slog.Logger) error {
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

	nc, err := connect(cfg.NATS.URL, logger)
	if err != nil {
		return err
	}
	defer nc.Close()

	consumer := ingest.NewConsumer(ingest.Deps{
		Store:    store,
		Subjects: cfg.Subjects(),
		Metrics:  met,
		Logger:   logger,
	})
	subs, err := consumer.Start(nc)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	var srv *http.Server
	if metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("GET /metrics", met.Handler())
		srv = &http.Server{Addr: metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			logger.Info("metrics server starting", "addr", metricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server stopped", "err", err)
			}
		}()
	}

	<-ctx.Done()
	logger.Info("shutdown signal received")

	// Drain lets in-flight messages finish before the connection closes.
	for _, s := range subs {
		if err := s.Drain(); err != nil {
			logger.Warn("drain subscription", "subject", s.Subject, "err", err)
		}
	}
	if srv != nil {
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutCtx)
	}
	return nil
}

func connect(url string, logger *slog.Logger) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("fleet-ingest"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "err", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect %s: %w", url, err)
	}
	return nc, nil
}
