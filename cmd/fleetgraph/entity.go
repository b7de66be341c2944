package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/WessleyAI/fleetgraph/engine/domain"
	"github.com/WessleyAI/fleetgraph/engine/fleet"
)

func kindCompletions() []string {
	var out []string
	for _, k := range domain.Kinds() {
		out = append(out, k.Alias())
	}
	return out
}

func newSeedCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load the sample fleet (idempotent)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withStore(cmd, func(ctx context.Context, s *fleet.Store) error {
				if err := s.EnsureConstraints(ctx); err != nil {
					return err
				}
				sum, err := s.Seed(ctx)
				if err != nil {
					return err
				}
				return a.emit(cmd, sum, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "Seeded %d nodes and %d links\n", sum.Nodes, sum.Links)
					return err
				})
			})
		},
	}
}

func newStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Count nodes by label and relationships by type",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withStore(cmd, func(ctx context.Context, s *fleet.Store) error {
				stats, err := s.Stats(ctx)
				if err != nil {
					return err
				}
				return a.emit(cmd, stats, func(w io.Writer) error {
					tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
					fmt.Fprintln(tw, "TYPE\tNAME\tCOUNT")
					for _, k := range sortedKeys(stats.Nodes) {
						fmt.Fprintf(tw, "node\t%s\t%d\n", k, stats.Nodes[k])
					}
					for _, k := range sortedKeys(stats.Relationships) {
						fmt.Fprintf(tw, "relationship\t%s\t%d\n", k, stats.Relationships[k])
					}
					return tw.Flush()
				})
			})
		},
	}
}

func sortedKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func newConstraintsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "constraints",
		Short: "Create a uniqueness constraint on every identity key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withStore(cmd, func(ctx context.Context, s *fleet.Store) error {
				if err := s.EnsureConstraints(ctx); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Constraints ensured for %d kinds\n", len(domain.Kinds()))
				return nil
			})
		},
	}
}

func newGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:       "get KIND KEY",
		Short:     "Show one entity",
		Args:      cobra.ExactArgs(2),
		ValidArgs: kindCompletions(),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := domain.ParseKind(args[0])
			if err != nil {
				return err
			}
			return a.withStore(cmd, func(ctx context.Context, s *fleet.Store) error {
				e, found, err := s.Get(ctx, kind, args[1])
				if err != nil {
					return err
				}
				if !found {
					return domain.NewNotFoundError(string(kind), args[1])
				}
				return writeJSON(cmd.OutOrStdout(), e)
			})
		},
	}
}

func newListCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:       "list KIND",
		Short:     "List entities of one kind in default order",
		Args:      cobra.ExactArgs(1),
		ValidArgs: kindCompletions(),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := domain.ParseKind(args[0])
			if err != nil {
				return err
			}
			return a.withStore(cmd, func(ctx context.Context, s *fleet.Store) error {
				items, err := s.List(ctx, kind, limit)
				if err != nil {
					return err
				}
				return a.emit(cmd, items, func(w io.Writer) error {
					for _, e := range items {
						if _, err := fmt.Fprintln(w, e.Key()); err != nil {
							return err
						}
					}
					return nil
				})
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", domain.DefaultLimit, "maximum number of results")
	return cmd
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}

func newPutCmd(a *app) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "put KIND",
		Short: "Create or update an entity from a JSON document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := domain.ParseKind(args[0])
			if err != nil {
				return err
			}
			data, err := readInput(cmd, file)
			if err != nil {
				return err
			}
			return a.withStore(cmd, func(ctx context.Context, s *fleet.Store) error {
				e, err := s.CreateJSON(ctx, kind, data)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), e)
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "-", "JSON document, - for stdin")
	return cmd
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete KIND KEY",
		Short: "Delete an entity and its relationships",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := domain.ParseKind(args[0])
			if err != nil {
				return err
			}
			return a.withStore(cmd, func(ctx context.Context, s *fleet.Store) error {
				deleted, err := s.Delete(ctx, kind, args[1])
				if err != nil {
					return err
				}
				return a.emit(cmd, map[string]bool{"deleted": deleted}, func(w io.Writer) error {
					if !deleted {
						_, err := fmt.Fprintf(w, "%s %s not found\n", kind, args[1])
						return err
					}
					_, err := fmt.Fprintf(w, "Deleted %s %s\n", kind, args[1])
					return err
				})
			})
		},
	}
}

func newTraverseCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "traverse KIND KEY NAME",
		Short: "Follow a named traversal from an entity",
		Long: "Follow a named traversal from an entity. Available traversals:\n" +
			traversalHelp(),
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := domain.ParseKind(args[0])
			if err != nil {
				return err
			}
			return a.withStore(cmd, func(ctx context.Context, s *fleet.Store) error {
				res, err := s.Traverse(ctx, kind, args[1], args[2], limit)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), res)
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", domain.DefaultLimit, "maximum number of results")
	return cmd
}

func traversalHelp() string {
	var b strings.Builder
	for _, k := range domain.Kinds() {
		if names := fleet.Traversals(k); len(names) > 0 {
			fmt.Fprintf(&b, "  %-18s %s\n", k.Alias(), strings.Join(names, ", "))
		}
	}
	return b.String()
}

func newLinkCmd(a *app) *cobra.Command {
	var unlink bool
	cmd := &cobra.Command{
		Use:   "link RELATION FROM TO",
		Short: "Create (or with --unlink remove) a relationship between two entities",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			rel, err := fleet.ParseRelation(args[0])
			if err != nil {
				return err
			}
			return a.withStore(cmd, func(ctx context.Context, s *fleet.Store) error {
				op, verb := s.Link, "Linked"
				if unlink {
					op, verb = s.Unlink, "Unlinked"
				}
				ok, err := op(ctx, rel, args[1], args[2])
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("%s: no change for %s -> %s", rel.Rel, args[1], args[2])
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s -[%s]-> %s\n", verb, args[1], rel.Rel, args[2])
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&unlink, "unlink", false, "remove the relationship instead")
	return cmd
}
