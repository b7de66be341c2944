package fleet

import (
	"context"

	"github.com/WessleyAI/fleetgraph/engine/domain"
	"github.com/WessleyAI/fleetgraph/engine/graphdb"
	"github.com/WessleyAI/fleetgraph/engine/repo"
)

// SystemRepo stores aircraft systems.
type SystemRepo struct {
	*repo.Neo4jRepo[domain.System]
}

// NewSystemRepo creates a SystemRepo.
func NewSystemRepo(db graphdb.Provider, opts ...repo.Option) *SystemRepo {
	return &SystemRepo{repo.NewNeo4jRepo(db, domain.KindSystem, domain.SystemFromProps, opts...)}
}

// Components returns the system's components by name.
func (r *SystemRepo) Components(ctx context.Context, systemID string, limit int) ([]domain.Component, error) {
	return repo.Traverse(ctx, r.DB(), outbound(HasComponent), systemID, nil, limit, domain.ComponentFromProps)
}

// Sensors returns the system's sensors by name.
func (r *SystemRepo) Sensors(ctx context.Context, systemID string, limit int) ([]domain.Sensor, error) {
	return repo.Traverse(ctx, r.DB(), outbound(HasSensor), systemID, nil, limit, domain.SensorFromProps)
}

// MaintenanceEvents returns events affecting the system, newest first.
func (r *SystemRepo) MaintenanceEvents(ctx context.Context, systemID string, limit int) ([]domain.MaintenanceEvent, error) {
	return repo.Traverse(ctx, r.DB(), inbound(AffectsSystem), systemID, nil, limit, domain.MaintenanceEventFromProps)
}

// ComponentRepo stores system components.
type ComponentRepo struct {
	*repo.Neo4jRepo[domain.Component]
}

// NewComponentRepo creates a ComponentRepo.
func NewComponentRepo(db graphdb.Provider, opts ...repo.Option) *ComponentRepo {
	return &ComponentRepo{repo.NewNeo4jRepo(db, domain.KindComponent, domain.ComponentFromProps, opts...)}
}

// MaintenanceEvents returns events raised on the component, newest first.
func (r *ComponentRepo) MaintenanceEvents(ctx context.Context, componentID string, limit int) ([]domain.MaintenanceEvent, error) {
	return repo.Traverse(ctx, r.DB(), outbound(HasEvent), componentID, nil, limit, domain.MaintenanceEventFromProps)
}

// SensorRepo stores sensors.
type SensorRepo struct {
	*repo.Neo4jRepo[domain.Sensor]
}

// NewSensorRepo creates a SensorRepo.
func NewSensorRepo(db graphdb.Provider, opts ...repo.Option) *SensorRepo {
	return &SensorRepo{repo.NewNeo4jRepo(db, domain.KindSensor, domain.SensorFromProps, opts...)}
}

// Readings returns the sensor's readings, newest first.
func (r *SensorRepo) Readings(ctx context.Context, sensorID string, limit int) ([]domain.Reading, error) {
	return repo.Traverse(ctx, r.DB(), outbound(Generates), sensorID, nil, limit, domain.ReadingFromProps)
}

// ReadingRepo stores sensor readings.
type ReadingRepo struct {
	*repo.Neo4jRepo[domain.Reading]
}

// NewReadingRepo creates a ReadingRepo.
func NewReadingRepo(db graphdb.Provider, opts ...repo.Option) *ReadingRepo {
	return &ReadingRepo{repo.NewNeo4jRepo(db, domain.KindReading, domain.ReadingFromProps, opts...)}
}
