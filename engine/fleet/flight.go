package fleet

import (
	"context"

	"github.com/WessleyAI/fleetgraph/engine/cypher"
	"github.com/WessleyAI/fleetgraph/engine/domain"
	"github.com/WessleyAI/fleetgraph/engine/graphdb"
	"github.com/WessleyAI/fleetgraph/engine/repo"
)

// Destination pairs a flight with the airport it arrives at.
type Destination = repo.Pair[domain.Flight, domain.Airport]

// FlightRepo stores flights and their delays and endpoints.
type FlightRepo struct {
	*repo.Neo4jRepo[domain.Flight]
}

// NewFlightRepo creates a FlightRepo.
func NewFlightRepo(db graphdb.Provider, opts ...repo.Option) *FlightRepo {
	return &FlightRepo{repo.NewNeo4jRepo(db, domain.KindFlight, domain.FlightFromProps, opts...)}
}

var latestDestinations = cypher.Traversal{
	From:       flightSchema,
	Hops:       []cypher.Hop{{Rel: ArrivesAt.Rel, Dir: cypher.Out, To: airportSchema}},
	Order:      domain.Order{Field: "scheduled_arrival", Desc: true},
	SortSource: true,
}

// Delays returns delays recorded against the flight, longest first.
func (r *FlightRepo) Delays(ctx context.Context, flightID string, limit int) ([]domain.Delay, error) {
	return repo.Traverse(ctx, r.DB(), outbound(HasDelay), flightID, nil, limit, domain.DelayFromProps)
}

// DepartureAirport returns the airport the flight departs from.
func (r *FlightRepo) DepartureAirport(ctx context.Context, flightID string) (domain.Airport, bool, error) {
	return r.endpoint(ctx, DepartsFrom, flightID)
}

// ArrivalAirport returns the airport the flight arrives at.
func (r *FlightRepo) ArrivalAirport(ctx context.Context, flightID string) (domain.Airport, bool, error) {
	return r.endpoint(ctx, ArrivesAt, flightID)
}

func (r *FlightRepo) endpoint(ctx context.Context, rel cypher.Relation, flightID string) (domain.Airport, bool, error) {
	airports, err := repo.Traverse(ctx, r.DB(), outbound(rel), flightID, nil, 1, domain.AirportFromProps)
	if err != nil || len(airports) == 0 {
		return domain.Airport{}, false, err
	}
	return airports[0], true, nil
}

// LatestDestinations returns flights with their arrival airport, latest
// scheduled arrival first.
func (r *FlightRepo) LatestDestinations(ctx context.Context, limit int) ([]Destination, error) {
	q, err := cypher.Pairs(latestDestinations, nil, limit)
	if err != nil {
		return nil, err
	}
	return repo.CollectPairs(ctx, r.DB(), q, domain.FlightFromProps, domain.AirportFromProps)
}

// DelayRepo stores flight delays.
type DelayRepo struct {
	*repo.Neo4jRepo[domain.Delay]
}

// NewDelayRepo creates a DelayRepo.
func NewDelayRepo(db graphdb.Provider, opts ...repo.Option) *DelayRepo {
	return &DelayRepo{repo.NewNeo4jRepo(db, domain.KindDelay, domain.DelayFromProps, opts...)}
}

// FindSignificant returns delays of at least minMinutes, longest first.
func (r *DelayRepo) FindSignificant(ctx context.Context, minMinutes, limit int) ([]domain.Delay, error) {
	if minMinutes < 0 {
		return nil, domain.NewValidationError("min_minutes", "negative", domain.ErrOutOfRange)
	}
	return r.Where(ctx, cypher.Predicate{Field: "minutes", Cmp: cypher.Gte}, int64(minMinutes), limit)
}
