package fleet

import (
	"context"
	"maps"
	"slices"

	"github.com/WessleyAI/fleetgraph/engine/domain"
	"github.com/WessleyAI/fleetgraph/engine/repo"
)

// entityRepo erases the entity type of a repository so callers that only
// know a Kind at runtime (HTTP routes, message subjects) can reach it.
type entityRepo interface {
	create(ctx context.Context, e domain.Entity) (domain.Entity, error)
	get(ctx context.Context, key string) (domain.Entity, bool, error)
	list(ctx context.Context, limit int) ([]domain.Entity, error)
	update(ctx context.Context, e domain.Entity) (domain.Entity, error)
	remove(ctx context.Context, key string) (bool, error)
}

type erased[T domain.Entity] struct {
	r *repo.Neo4jRepo[T]
}

func (a erased[T]) cast(e domain.Entity) (T, error) {
	t, ok := e.(T)
	if !ok {
		var zero T
		return zero, domain.NewValidationError("kind", string(e.Kind()), domain.ErrUnknownKind)
	}
	return t, nil
}

func (a erased[T]) create(ctx context.Context, e domain.Entity) (domain.Entity, error) {
	t, err := a.cast(e)
	if err != nil {
		return nil, err
	}
	got, err := a.r.Create(ctx, t)
	if err != nil {
		return nil, err
	}
	return got, nil
}

func (a erased[T]) get(ctx context.Context, key string) (domain.Entity, bool, error) {
	got, found, err := a.r.FindByKey(ctx, key)
	if err != nil || !found {
		return nil, false, err
	}
	return got, true, nil
}

func (a erased[T]) list(ctx context.Context, limit int) ([]domain.Entity, error) {
	items, err := a.r.FindAll(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Entity, len(items))
	for i, it := range items {
		out[i] = it
	}
	return out, nil
}

func (a erased[T]) update(ctx context.Context, e domain.Entity) (domain.Entity, error) {
	t, err := a.cast(e)
	if err != nil {
		return nil, err
	}
	got, err := a.r.Update(ctx, t)
	if err != nil {
		return nil, err
	}
	return got, nil
}

func (a erased[T]) remove(ctx context.Context, key string) (bool, error) {
	return a.r.Delete(ctx, key)
}

func (s *Store) repoFor(kind domain.Kind) (entityRepo, error) {
	switch kind {
	case domain.KindAircraft:
		return erased[domain.Aircraft]{s.Aircraft.Neo4jRepo}, nil
	case domain.KindAirport:
		return erased[domain.Airport]{s.Airports.Neo4jRepo}, nil
	case domain.KindFlight:
		return erased[domain.Flight]{s.Flights.Neo4jRepo}, nil
	case domain.KindSystem:
		return erased[domain.System]{s.Systems.Neo4jRepo}, nil
	case domain.KindComponent:
		return erased[domain.Component]{s.Components.Neo4jRepo}, nil
	case domain.KindSensor:
		return erased[domain.Sensor]{s.Sensors.Neo4jRepo}, nil
	case domain.KindReading:
		return erased[domain.Reading]{s.Readings.Neo4jRepo}, nil
	case domain.KindMaintenanceEvent:
		return erased[domain.MaintenanceEvent]{s.MaintenanceEvents.Neo4jRepo}, nil
	case domain.KindDelay:
		return erased[domain.Delay]{s.Delays.Neo4jRepo}, nil
	}
	return nil, domain.NewValidationError("kind", string(kind), domain.ErrUnknownKind)
}

// Create upserts any entity through the repository for its kind.
func (s *Store) Create(ctx context.Context, e domain.Entity) (domain.Entity, error) {
	r, err := s.repoFor(e.Kind())
	if err != nil {
		return nil, err
	}
	return r.create(ctx, e)
}

// CreateJSON decodes data as kind and upserts it.
func (s *Store) CreateJSON(ctx context.Context, kind domain.Kind, data []byte) (domain.Entity, error) {
	e, err := domain.DecodeJSON(kind, data)
	if err != nil {
		return nil, err
	}
	return s.Create(ctx, e)
}

// Get looks up an entity of kind by key.
func (s *Store) Get(ctx context.Context, kind domain.Kind, key string) (domain.Entity, bool, error) {
	r, err := s.repoFor(kind)
	if err != nil {
		return nil, false, err
	}
	return r.get(ctx, key)
}

// List returns up to limit entities of kind in default order.
func (s *Store) List(ctx context.Context, kind domain.Kind, limit int) ([]domain.Entity, error) {
	r, err := s.repoFor(kind)
	if err != nil {
		return nil, err
	}
	return r.list(ctx, limit)
}

// UpdateJSON decodes data as kind and replaces the stored entity with key.
// The document's own key must match.
func (s *Store) UpdateJSON(ctx context.Context, kind domain.Kind, key string, data []byte) (domain.Entity, error) {
	e, err := domain.DecodeJSON(kind, data)
	if err != nil {
		return nil, err
	}
	if e.Key() != key {
		return nil, domain.NewValidationError(domain.MustSchema(kind).Key, e.Key(), domain.ErrOutOfRange)
	}
	r, err := s.repoFor(kind)
	if err != nil {
		return nil, err
	}
	return r.update(ctx, e)
}

// Delete removes the entity of kind with key.
func (s *Store) Delete(ctx context.Context, kind domain.Kind, key string) (bool, error) {
	r, err := s.repoFor(kind)
	if err != nil {
		return false, err
	}
	return r.remove(ctx, key)
}

type traversalFunc func(ctx context.Context, s *Store, key string, limit int) (any, error)

var traversals = map[domain.Kind]map[string]traversalFunc{
	domain.KindAircraft: {
		"flights": func(ctx context.Context, s *Store, key string, limit int) (any, error) {
			return s.Aircraft.Flights(ctx, key, limit)
		},
		"systems": func(ctx context.Context, s *Store, key string, limit int) (any, error) {
			return s.Aircraft.Systems(ctx, key, limit)
		},
		"components": func(ctx context.Context, s *Store, key string, limit int) (any, error) {
			return s.Aircraft.Components(ctx, key, limit)
		},
		"maintenance_events": func(ctx context.Context, s *Store, key string, limit int) (any, error) {
			return s.Aircraft.MaintenanceEvents(ctx, key, limit)
		},
	},
	domain.KindAirport: {
		"departures": func(ctx context.Context, s *Store, key string, limit int) (any, error) {
			return s.Airports.Departures(ctx, key, limit)
		},
		"arrivals": func(ctx context.Context, s *Store, key string, limit int) (any, error) {
			return s.Airports.Arrivals(ctx, key, limit)
		},
	},
	domain.KindFlight: {
		"delays": func(ctx context.Context, s *Store, key string, limit int) (any, error) {
			return s.Flights.Delays(ctx, key, limit)
		},
		"departure_airport": func(ctx context.Context, s *Store, key string, _ int) (any, error) {
			return endpointOrNotFound(s.Flights.DepartureAirport(ctx, key))
		},
		"arrival_airport": func(ctx context.Context, s *Store, key string, _ int) (any, error) {
			return endpointOrNotFound(s.Flights.ArrivalAirport(ctx, key))
		},
	},
	domain.KindSystem: {
		"components": func(ctx context.Context, s *Store, key string, limit int) (any, error) {
			return s.Systems.Components(ctx, key, limit)
		},
		"sensors": func(ctx context.Context, s *Store, key string, limit int) (any, error) {
			return s.Systems.Sensors(ctx, key, limit)
		},
		"maintenance_events": func(ctx context.Context, s *Store, key string, limit int) (any, error) {
			return s.Systems.MaintenanceEvents(ctx, key, limit)
		},
	},
	domain.KindComponent: {
		"maintenance_events": func(ctx context.Context, s *Store, key string, limit int) (any, error) {
			return s.Components.MaintenanceEvents(ctx, key, limit)
		},
	},
	domain.KindSensor: {
		"readings": func(ctx context.Context, s *Store, key string, limit int) (any, error) {
			return s.Sensors.Readings(ctx, key, limit)
		},
	},
}

func endpointOrNotFound(a domain.Airport, found bool, err error) (any, error) {
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, domain.NewNotFoundError(string(domain.KindAirport), "")
	}
	return a, nil
}

// Traversals lists the named traversals available from kind.
func Traversals(kind domain.Kind) []string {
	return slices.Sorted(maps.Keys(traversals[kind]))
}

// Traverse runs the named traversal from the entity of kind with key.
func (s *Store) Traverse(ctx context.Context, kind domain.Kind, key, name string, limit int) (any, error) {
	fn, ok := traversals[kind][name]
	if !ok {
		return nil, domain.NewValidationError("traversal", name, domain.ErrUnknownKind)
	}
	return fn(ctx, s, key, limit)
}
