// Package fleet provides the typed repositories for the aircraft fleet graph
// and the Store that aggregates them.
package fleet

import (
	"context"

	"github.com/WessleyAI/fleetgraph/engine/cypher"
	"github.com/WessleyAI/fleetgraph/engine/domain"
	"github.com/WessleyAI/fleetgraph/engine/graphdb"
	"github.com/WessleyAI/fleetgraph/engine/repo"
)

// AircraftRepo stores aircraft and walks from an aircraft into its flights,
// systems, components and maintenance history. Traversals from an unknown
// aircraft return an empty slice.
type AircraftRepo struct {
	*repo.Neo4jRepo[domain.Aircraft]
}

// NewAircraftRepo creates an AircraftRepo.
func NewAircraftRepo(db graphdb.Provider, opts ...repo.Option) *AircraftRepo {
	return &AircraftRepo{repo.NewNeo4jRepo(db, domain.KindAircraft, domain.AircraftFromProps, opts...)}
}

var aircraftComponents = cypher.Traversal{
	From: aircraftSchema,
	Hops: []cypher.Hop{
		{Rel: HasSystem.Rel, Dir: cypher.Out, To: systemSchema},
		{Rel: HasComponent.Rel, Dir: cypher.Out, To: componentSchema},
	},
	Order: componentSchema.Order,
}

// FindByTailNumber looks an aircraft up by registration.
func (r *AircraftRepo) FindByTailNumber(ctx context.Context, tail string) (domain.Aircraft, bool, error) {
	return r.FindBy(ctx, "tail_number", tail)
}

// FindByOperator lists aircraft flown by operator.
func (r *AircraftRepo) FindByOperator(ctx context.Context, operator string, limit int) ([]domain.Aircraft, error) {
	return r.Where(ctx, cypher.Predicate{Field: "operator", Cmp: cypher.Eq}, operator, limit)
}

// Flights returns flights operated by the aircraft, latest departure first.
func (r *AircraftRepo) Flights(ctx context.Context, aircraftID string, limit int) ([]domain.Flight, error) {
	return repo.Traverse(ctx, r.DB(), outbound(OperatesFlight), aircraftID, nil, limit, domain.FlightFromProps)
}

// Systems returns the aircraft's systems by name.
func (r *AircraftRepo) Systems(ctx context.Context, aircraftID string, limit int) ([]domain.System, error) {
	return repo.Traverse(ctx, r.DB(), outbound(HasSystem), aircraftID, nil, limit, domain.SystemFromProps)
}

// Components returns every component of every system on the aircraft.
func (r *AircraftRepo) Components(ctx context.Context, aircraftID string, limit int) ([]domain.Component, error) {
	return repo.Traverse(ctx, r.DB(), aircraftComponents, aircraftID, nil, limit, domain.ComponentFromProps)
}

// MaintenanceEvents returns events affecting the aircraft, newest first.
func (r *AircraftRepo) MaintenanceEvents(ctx context.Context, aircraftID string, limit int) ([]domain.MaintenanceEvent, error) {
	return repo.Traverse(ctx, r.DB(), inbound(AffectsAircraft), aircraftID, nil, limit, domain.MaintenanceEventFromProps)
}
