package fleet

import (
	"slices"

	"github.com/WessleyAI/fleetgraph/engine/cypher"
	"github.com/WessleyAI/fleetgraph/engine/domain"
)

var (
	aircraftSchema  = domain.MustSchema(domain.KindAircraft)
	airportSchema   = domain.MustSchema(domain.KindAirport)
	flightSchema    = domain.MustSchema(domain.KindFlight)
	systemSchema    = domain.MustSchema(domain.KindSystem)
	componentSchema = domain.MustSchema(domain.KindComponent)
	sensorSchema    = domain.MustSchema(domain.KindSensor)
	readingSchema   = domain.MustSchema(domain.KindReading)
	eventSchema     = domain.MustSchema(domain.KindMaintenanceEvent)
	delaySchema     = domain.MustSchema(domain.KindDelay)
)

// Relationship types between fleet entities.
var (
	OperatesFlight  = cypher.Relation{From: aircraftSchema, Rel: "OPERATES_FLIGHT", To: flightSchema}
	HasSystem       = cypher.Relation{From: aircraftSchema, Rel: "HAS_SYSTEM", To: systemSchema}
	DepartsFrom     = cypher.Relation{From: flightSchema, Rel: "DEPARTS_FROM", To: airportSchema}
	ArrivesAt       = cypher.Relation{From: flightSchema, Rel: "ARRIVES_AT", To: airportSchema}
	HasDelay        = cypher.Relation{From: flightSchema, Rel: "HAS_DELAY", To: delaySchema}
	HasComponent    = cypher.Relation{From: systemSchema, Rel: "HAS_COMPONENT", To: componentSchema}
	HasSensor       = cypher.Relation{From: systemSchema, Rel: "HAS_SENSOR", To: sensorSchema}
	HasEvent        = cypher.Relation{From: componentSchema, Rel: "HAS_EVENT", To: eventSchema}
	AffectsAircraft = cypher.Relation{From: eventSchema, Rel: "AFFECTS_AIRCRAFT", To: aircraftSchema}
	AffectsSystem   = cypher.Relation{From: eventSchema, Rel: "AFFECTS_SYSTEM", To: systemSchema}
	Generates       = cypher.Relation{From: sensorSchema, Rel: "GENERATES", To: readingSchema}
)

var relations = []cypher.Relation{
	OperatesFlight, HasSystem, DepartsFrom, ArrivesAt, HasDelay,
	HasComponent, HasSensor, HasEvent, AffectsAircraft, AffectsSystem, Generates,
}

// Relations lists every relationship type the fleet graph uses.
func Relations() []cypher.Relation { return slices.Clone(relations) }

// ParseRelation resolves a relationship type by name, e.g. "HAS_SYSTEM".
func ParseRelation(name string) (cypher.Relation, error) {
	for _, r := range relations {
		if r.Rel == name {
			return r, nil
		}
	}
	return cypher.Relation{}, domain.NewValidationError("relation", name, domain.ErrUnknownKind)
}

// outbound is a one-hop outgoing traversal along r ordered by the target default.
func outbound(r cypher.Relation) cypher.Traversal {
	return cypher.Traversal{From: r.From, Hops: []cypher.Hop{{Rel: r.Rel, Dir: cypher.Out, To: r.To}}, Order: r.To.Order}
}

// inbound is a one-hop traversal against r's direction, from r.To back to r.From.
func inbound(r cypher.Relation) cypher.Traversal {
	return cypher.Traversal{From: r.To, Hops: []cypher.Hop{{Rel: r.Rel, Dir: cypher.In, To: r.From}}, Order: r.From.Order}
}
