package fleet

import (
	"context"

	"github.com/WessleyAI/fleetgraph/engine/cypher"
	"github.com/WessleyAI/fleetgraph/engine/domain"
	"github.com/WessleyAI/fleetgraph/engine/graphdb"
	"github.com/WessleyAI/fleetgraph/engine/repo"
)

// Fault pairs a component with a maintenance event raised on it.
type Fault = repo.Pair[domain.Component, domain.MaintenanceEvent]

// MaintenanceEventRepo stores fault reports and maintenance actions.
type MaintenanceEventRepo struct {
	*repo.Neo4jRepo[domain.MaintenanceEvent]
}

// NewMaintenanceEventRepo creates a MaintenanceEventRepo.
func NewMaintenanceEventRepo(db graphdb.Provider, opts ...repo.Option) *MaintenanceEventRepo {
	return &MaintenanceEventRepo{repo.NewNeo4jRepo(db, domain.KindMaintenanceEvent, domain.MaintenanceEventFromProps, opts...)}
}

var faultyComponents = cypher.Traversal{
	From:  componentSchema,
	Hops:  []cypher.Hop{{Rel: HasEvent.Rel, Dir: cypher.Out, To: eventSchema}},
	Where: &cypher.Predicate{Field: "severity", Cmp: cypher.Eq},
	Order: eventSchema.Order,
}

// FindBySeverity returns events of one severity, newest first.
func (r *MaintenanceEventRepo) FindBySeverity(ctx context.Context, severity string, limit int) ([]domain.MaintenanceEvent, error) {
	return r.Where(ctx, cypher.Predicate{Field: "severity", Cmp: cypher.Eq}, severity, limit)
}

// FaultyComponents returns components with events of the given severity,
// newest event first. An empty severity means CRITICAL.
func (r *MaintenanceEventRepo) FaultyComponents(ctx context.Context, severity string, limit int) ([]Fault, error) {
	if severity == "" {
		severity = domain.SeverityCritical
	}
	q, err := cypher.Pairs(faultyComponents, severity, limit)
	if err != nil {
		return nil, err
	}
	return repo.CollectPairs(ctx, r.DB(), q, domain.ComponentFromProps, domain.MaintenanceEventFromProps)
}
