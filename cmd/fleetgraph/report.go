package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/WessleyAI/fleetgraph/engine/domain"
	"github.com/WessleyAI/fleetgraph/engine/fleet"
	"github.com/WessleyAI/fleetgraph/pkg/fn"
)

// Report is the fleet overview printed by the report command.
type Report struct {
	Aircraft           domain.Aircraft           `json:"aircraft"`
	Systems            []domain.System           `json:"systems"`
	Components         []domain.Component        `json:"components"`
	Flights            []domain.Flight           `json:"flights"`
	Events             []domain.MaintenanceEvent `json:"maintenance_events"`
	Airports           []domain.Airport          `json:"airports"`
	LatestDestinations []fleet.Destination       `json:"latest_destinations"`
	FaultyComponents   []fleet.Fault             `json:"faulty_components"`
	SignificantDelays  []domain.Delay            `json:"significant_delays"`
}

type reportOpts struct {
	tail       string
	limit      int
	severity   string
	minMinutes int
}

func newReportCmd(a *app) *cobra.Command {
	var o reportOpts
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarize one aircraft and the fleet around it",
		Long: `Summarize one aircraft (its systems, components, flights and maintenance
events) together with fleet-wide airports, latest destinations, faulty
components and significant delays. Without --tail the first aircraft in
default order is used.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withStore(cmd, func(ctx context.Context, s *fleet.Store) error {
				r, err := buildReport(ctx, s, o)
				if err != nil {
					return err
				}
				return a.emit(cmd, r, r.print)
			})
		},
	}
	cmd.Flags().StringVar(&o.tail, "tail", "", "tail number of the aircraft to report on")
	cmd.Flags().IntVar(&o.limit, "limit", 5, "maximum rows per section")
	cmd.Flags().StringVar(&o.severity, "severity", domain.SeverityCritical, "severity for faulty components")
	cmd.Flags().IntVar(&o.minMinutes, "min-delay", 30, "minimum minutes for a significant delay")
	return cmd
}

func pickAircraft(ctx context.Context, s *fleet.Store, tail string) (domain.Aircraft, error) {
	if tail != "" {
		ac, found, err := s.Aircraft.FindByTailNumber(ctx, tail)
		if err != nil {
			return domain.Aircraft{}, err
		}
		if !found {
			return domain.Aircraft{}, domain.NewNotFoundError(string(domain.KindAircraft), tail)
		}
		return ac, nil
	}
	all, err := s.Aircraft.FindAll(ctx, 1)
	if err != nil {
		return domain.Aircraft{}, err
	}
	if len(all) == 0 {
		return domain.Aircraft{}, domain.NewNotFoundError(string(domain.KindAircraft), "")
	}
	return all[0], nil
}

// buildReport resolves the aircraft first, then runs the remaining
// sections concurrently.
func buildReport(ctx context.Context, s *fleet.Store, o reportOpts) (Report, error) {
	ac, err := pickAircraft(ctx, s, o.tail)
	if err != nil {
		return Report{}, err
	}
	r := Report{Aircraft: ac}
	id := ac.AircraftID
	err = fn.FanOut(
		func() (err error) {
			r.Systems, err = s.Aircraft.Systems(ctx, id, o.limit)
			return
		},
		func() (err error) {
			r.Components, err = s.Aircraft.Components(ctx, id, o.limit)
			return
		},
		func() (err error) {
			r.Flights, err = s.Aircraft.Flights(ctx, id, o.limit)
			return
		},
		func() (err error) {
			r.Events, err = s.Aircraft.MaintenanceEvents(ctx, id, o.limit)
			return
		},
		func() (err error) {
			r.Airports, err = s.Airports.FindAll(ctx, o.limit)
			return
		},
		func() (err error) {
			r.LatestDestinations, err = s.Flights.LatestDestinations(ctx, o.limit)
			return
		},
		func() (err error) {
			r.FaultyComponents, err = s.MaintenanceEvents.FaultyComponents(ctx, o.severity, o.limit)
			return
		},
		func() (err error) {
			r.SignificantDelays, err = s.Delays.FindSignificant(ctx, o.minMinutes, o.limit)
			return
		},
	)
	return r, err
}

func (r Report) print(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	ac := r.Aircraft
	fmt.Fprintf(tw, "=== Aircraft %s ===\n", ac.TailNumber)
	fmt.Fprintf(tw, "%s\t%s %s\t%s\n", ac.AircraftID, ac.Manufacturer, ac.Model, ac.Operator)

	fmt.Fprintf(tw, "\n=== Systems (%d) ===\n", len(r.Systems))
	for _, s := range r.Systems {
		fmt.Fprintf(tw, "%s\t%s\n", s.Name, s.Type)
	}
	fmt.Fprintf(tw, "\n=== Components (%d) ===\n", len(r.Components))
	for _, c := range r.Components {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", c.Name, c.Type, c.SystemID)
	}
	fmt.Fprintf(tw, "\n=== Flights (%d) ===\n", len(r.Flights))
	for _, f := range r.Flights {
		fmt.Fprintf(tw, "%s\t%s -> %s\t%s\n", f.FlightNumber, f.Origin, f.Destination, f.ScheduledDeparture)
	}
	fmt.Fprintf(tw, "\n=== Maintenance events (%d) ===\n", len(r.Events))
	for _, e := range r.Events {
		fmt.Fprintf(tw, "[%s]\t%s\t%s\n", e.Severity, e.Fault, e.ReportedAt)
	}
	fmt.Fprintf(tw, "\n=== Airports (%d) ===\n", len(r.Airports))
	for _, ap := range r.Airports {
		fmt.Fprintf(tw, "%s\t%s\t%s, %s\n", ap.IATA, ap.Name, ap.City, ap.Country)
	}
	fmt.Fprintf(tw, "\n=== Latest destinations (%d) ===\n", len(r.LatestDestinations))
	for _, d := range r.LatestDestinations {
		fmt.Fprintf(tw, "%s\t-> %s\t%s\n", d.From.FlightNumber, d.To.IATA, d.From.ScheduledArrival)
	}
	fmt.Fprintf(tw, "\n=== Faulty components (%d) ===\n", len(r.FaultyComponents))
	for _, f := range r.FaultyComponents {
		fmt.Fprintf(tw, "%s\t[%s]\t%s\n", f.From.Name, f.To.Severity, f.To.Fault)
	}
	fmt.Fprintf(tw, "\n=== Significant delays (%d) ===\n", len(r.SignificantDelays))
	for _, d := range r.SignificantDelays {
		fmt.Fprintf(tw, "%s\t%d min\t%s\n", d.FlightID, d.Minutes, d.Cause)
	}
	return tw.Flush()
}
