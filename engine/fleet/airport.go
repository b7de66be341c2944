package fleet

import (
	"context"

	"github.com/WessleyAI/fleetgraph/engine/domain"
	"github.com/WessleyAI/fleetgraph/engine/graphdb"
	"github.com/WessleyAI/fleetgraph/engine/repo"
)

// AirportRepo stores airports.
type AirportRepo struct {
	*repo.Neo4jRepo[domain.Airport]
}

// NewAirportRepo creates an AirportRepo.
func NewAirportRepo(db graphdb.Provider, opts ...repo.Option) *AirportRepo {
	return &AirportRepo{repo.NewNeo4jRepo(db, domain.KindAirport, domain.AirportFromProps, opts...)}
}

// FindByIATA looks an airport up by its three-letter IATA code.
func (r *AirportRepo) FindByIATA(ctx context.Context, iata string) (domain.Airport, bool, error) {
	return r.FindBy(ctx, "iata", iata)
}

// FindByICAO looks an airport up by its four-letter ICAO code.
func (r *AirportRepo) FindByICAO(ctx context.Context, icao string) (domain.Airport, bool, error) {
	return r.FindBy(ctx, "icao", icao)
}

// Departures returns flights departing the airport, latest first.
func (r *AirportRepo) Departures(ctx context.Context, airportID string, limit int) ([]domain.Flight, error) {
	return repo.Traverse(ctx, r.DB(), inbound(DepartsFrom), airportID, nil, limit, domain.FlightFromProps)
}

// Arrivals returns flights arriving at the airport, latest departure first.
func (r *AirportRepo) Arrivals(ctx context.Context, airportID string, limit int) ([]domain.Flight, error) {
	return repo.Traverse(ctx, r.DB(), inbound(ArrivesAt), airportID, nil, limit, domain.FlightFromProps)
}
