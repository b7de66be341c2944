// Command fleetgraph is the operator CLI for the fleet graph: seeding,
// reports, entity CRUD, links and publishing ingest messages.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/WessleyAI/fleetgraph/engine/fleet"
	"github.com/WessleyAI/fleetgraph/engine/graphdb"
	"github.com/WessleyAI/fleetgraph/pkg/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(&app{open: openGraph, dial: dialNATS}).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

// app carries state shared by every subcommand.
type app struct {
	cfgPath string
	jsonOut bool

	cfg    config.Config
	logger *slog.Logger

	open func(ctx context.Context, a *app) (*fleet.Store, func(), error)
	dial func(url string) (*nats.Conn, error)
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "fleetgraph",
		Short:         "Query and maintain the aircraft fleet graph",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(a.cfgPath)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = cfg.Logger(cmd.ErrOrStderr())
			return nil
		},
	}
	root.PersistentFlags().StringVar(&a.cfgPath, "config", "", "optional YAML config file")
	root.PersistentFlags().BoolVar(&a.jsonOut, "json", false, "print results as JSON")

	root.AddCommand(
		newReportCmd(a),
		newSeedCmd(a),
		newStatsCmd(a),
		newConstraintsCmd(a),
		newGetCmd(a),
		newListCmd(a),
		newPutCmd(a),
		newDeleteCmd(a),
		newTraverseCmd(a),
		newLinkCmd(a),
		newPublishCmd(a),
	)
	return root
}

func openGraph(ctx context.Context, a *app) (*fleet.Store, func(), error) {
	mgr := graphdb.NewManager(a.cfg.Graph(), graphdb.WithLogger(a.logger))
	if err := mgr.Open(ctx); err != nil {
		return nil, nil, err
	}
	return fleet.NewStore(mgr, a.logger), func() { _ = mgr.Close(context.Background()) }, nil
}

func dialNATS(url string) (*nats.Conn, error) {
	return nats.Connect(url, nats.Name("fleetgraph-cli"))
}

// withStore opens the graph for the duration of fn.
func (a *app) withStore(cmd *cobra.Command, fn func(ctx context.Context, s *fleet.Store) error) error {
	ctx := cmd.Context()
	s, closeFn, err := a.open(ctx, a)
	if err != nil {
		return err
	}
	defer closeFn()
	return fn(ctx, s)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// emit prints v as JSON under --json and via text otherwise.
func (a *app) emit(cmd *cobra.Command, v any, text func(w io.Writer) error) error {
	if a.jsonOut || text == nil {
		return writeJSON(cmd.OutOrStdout(), v)
	}
	return text(cmd.OutOrStdout())
}
