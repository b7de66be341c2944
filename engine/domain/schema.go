package domain

import (
	"slices"
	"strings"
)

// Order is a sort on one declared property.
type Order struct {
	Field string
	Desc  bool
}

// Schema describes how one entity kind is stored: its label, identity
// property, declared properties and default result ordering.
type Schema struct {
	Kind   Kind
	Key    string
	Fields []string
	Order  Order
}

// Label returns the node label for the kind.
func (s Schema) Label() string { return string(s.Kind) }

// HasField reports whether field is a declared property of the kind.
func (s Schema) HasField(field string) bool {
	return slices.Contains(s.Fields, field)
}

var schemas = map[Kind]Schema{
	KindAircraft: {
		Kind:   KindAircraft,
		Key:    "aircraft_id",
		Fields: []string{"aircraft_id", "tail_number", "icao24", "model", "operator", "manufacturer"},
		Order:  Order{Field: "tail_number"},
	},
	KindAirport: {
		Kind:   KindAirport,
		Key:    "airport_id",
		Fields: []string{"airport_id", "iata", "icao", "name", "city", "country", "lat", "lon"},
		Order:  Order{Field: "iata"},
	},
	KindFlight: {
		Kind: KindFlight,
		Key:  "flight_id",
		Fields: []string{
			"flight_id", "flight_number", "aircraft_id", "operator", "origin",
			"destination", "scheduled_departure", "scheduled_arrival",
		},
		Order: Order{Field: "scheduled_departure", Desc: true},
	},
	KindSystem: {
		Kind:   KindSystem,
		Key:    "system_id",
		Fields: []string{"system_id", "aircraft_id", "name", "type"},
		Order:  Order{Field: "name"},
	},
	KindComponent: {
		Kind:   KindComponent,
		Key:    "component_id",
		Fields: []string{"component_id", "system_id", "name", "type"},
		Order:  Order{Field: "name"},
	},
	KindSensor: {
		Kind:   KindSensor,
		Key:    "sensor_id",
		Fields: []string{"sensor_id", "system_id", "name", "type", "unit"},
		Order:  Order{Field: "name"},
	},
	KindReading: {
		Kind:   KindReading,
		Key:    "reading_id",
		Fields: []string{"reading_id", "sensor_id", "timestamp", "value"},
		Order:  Order{Field: "timestamp", Desc: true},
	},
	KindMaintenanceEvent: {
		Kind: KindMaintenanceEvent,
		Key:  "event_id",
		Fields: []string{
			"event_id", "aircraft_id", "system_id", "component_id", "fault",
			"severity", "reported_at", "corrective_action",
		},
		Order: Order{Field: "reported_at", Desc: true},
	},
	KindDelay: {
		Kind:   KindDelay,
		Key:    "delay_id",
		Fields: []string{"delay_id", "flight_id", "cause", "minutes"},
		Order:  Order{Field: "minutes", Desc: true},
	},
}

// kindOrder fixes iteration order for Kinds.
var kindOrder = []Kind{
	KindAircraft, KindAirport, KindFlight, KindSystem, KindComponent,
	KindSensor, KindReading, KindMaintenanceEvent, KindDelay,
}

// SchemaOf returns the schema for kind.
func SchemaOf(kind Kind) (Schema, error) {
	s, ok := schemas[kind]
	if !ok {
		return Schema{}, NewValidationError("kind", string(kind), ErrUnknownKind)
	}
	return s, nil
}

// MustSchema is SchemaOf for the package's own kind constants.
func MustSchema(kind Kind) Schema {
	s, err := SchemaOf(kind)
	if err != nil {
		panic(err)
	}
	return s
}

// Kinds lists every entity kind in a stable order.
func Kinds() []Kind {
	return slices.Clone(kindOrder)
}

// ParseKind resolves a kind from its label or a lowercase alias such as
// "maintenance_event" or "aircraft".
func ParseKind(s string) (Kind, error) {
	for _, k := range kindOrder {
		if string(k) == s || aliasOf(k) == s {
			return k, nil
		}
	}
	return "", NewValidationError("kind", s, ErrUnknownKind)
}

func aliasOf(k Kind) string {
	switch k {
	case KindMaintenanceEvent:
		return "maintenance_event"
	default:
		return strings.ToLower(string(k))
	}
}

// Alias returns the lowercase alias accepted by ParseKind.
func (k Kind) Alias() string { return aliasOf(k) }
