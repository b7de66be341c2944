package fleet

import (
	"context"
	"log/slog"

	"github.com/WessleyAI/fleetgraph/engine/cypher"
	"github.com/WessleyAI/fleetgraph/engine/domain"
	"github.com/WessleyAI/fleetgraph/engine/graphdb"
	"github.com/WessleyAI/fleetgraph/engine/repo"
)

// Store aggregates the nine entity repositories over one session provider.
type Store struct {
	db     graphdb.Provider
	logger *slog.Logger

	Aircraft          *AircraftRepo
	Airports          *AirportRepo
	Flights           *FlightRepo
	Systems           *SystemRepo
	Components        *ComponentRepo
	Sensors           *SensorRepo
	Readings          *ReadingRepo
	MaintenanceEvents *MaintenanceEventRepo
	Delays            *DelayRepo
}

// NewStore wires every repository to db.
func NewStore(db graphdb.Provider, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	opt := repo.WithLogger(logger)
	return &Store{
		db:                db,
		logger:            logger,
		Aircraft:          NewAircraftRepo(db, opt),
		Airports:          NewAirportRepo(db, opt),
		Flights:           NewFlightRepo(db, opt),
		Systems:           NewSystemRepo(db, opt),
		Components:        NewComponentRepo(db, opt),
		Sensors:           NewSensorRepo(db, opt),
		Readings:          NewReadingRepo(db, opt),
		MaintenanceEvents: NewMaintenanceEventRepo(db, opt),
		Delays:            NewDelayRepo(db, opt),
	}
}

// Link creates one rel edge between two existing nodes. It is idempotent
// and reports false when either endpoint is missing.
func (s *Store) Link(ctx context.Context, rel cypher.Relation, fromKey, toKey string) (bool, error) {
	q, err := cypher.Link(rel, fromKey, toKey)
	if err != nil {
		return false, err
	}
	n, err := repo.Count(ctx, s.db, q, cypher.ColLinked)
	return n > 0, err
}

// Unlink removes the rel edge between two nodes, reporting whether one existed.
func (s *Store) Unlink(ctx context.Context, rel cypher.Relation, fromKey, toKey string) (bool, error) {
	q, err := cypher.Unlink(rel, fromKey, toKey)
	if err != nil {
		return false, err
	}
	n, err := repo.Count(ctx, s.db, q, cypher.ColUnlinked)
	return n > 0, err
}

// Stats counts nodes by label and relationships by type.
type Stats struct {
	Nodes         map[string]int64 `json:"nodes"`
	Relationships map[string]int64 `json:"relationships"`
}

// Stats returns node and relationship counts.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	nodes, err := repo.Counts(ctx, s.db, cypher.CountNodes())
	if err != nil {
		return Stats{}, err
	}
	rels, err := repo.Counts(ctx, s.db, cypher.CountRelationships())
	if err != nil {
		return Stats{}, err
	}
	return Stats{Nodes: nodes, Relationships: rels}, nil
}

// EnsureConstraints declares every identity key unique. Safe to repeat.
func (s *Store) EnsureConstraints(ctx context.Context) error {
	for _, k := range domain.Kinds() {
		q, err := cypher.UniqueConstraint(domain.MustSchema(k))
		if err != nil {
			return err
		}
		if err := repo.Exec(ctx, s.db, q); err != nil {
			return err
		}
	}
	s.logger.Info("graph constraints ensured", "kinds", len(domain.Kinds()))
	return nil
}
