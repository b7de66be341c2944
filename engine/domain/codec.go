package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// props reads typed values out of a property map, keeping the first type
// mismatch. Absent properties read as zero values.
type props struct {
	m   map[string]any
	err error
}

func (p *props) fail(field string, v any) {
	if p.err == nil {
		p.err = fmt.Errorf("%w: %s holds %T", ErrWrongType, field, v)
	}
}

func (p *props) str(field string) string {
	v, ok := p.m[field]
	if !ok || v == nil {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		p.fail(field, v)
	}
	return s
}

func (p *props) float(field string) float64 {
	v, ok := p.m[field]
	if !ok || v == nil {
		return 0
	}
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int64:
		return float64(n)
	case int:
		return float64(n)
	}
	p.fail(field, v)
	return 0
}

func (p *props) int(field string) int {
	v, ok := p.m[field]
	if !ok || v == nil {
		return 0
	}
	switch n := v.(type) {
	case int64:
		if n >= math.MinInt && n <= math.MaxInt {
			return int(n)
		}
	case int:
		return n
	case float64:
		// 2^63 itself is not representable as int64.
		if n == math.Trunc(n) && n >= math.MinInt && n < -math.MinInt {
			return int(n)
		}
	}
	p.fail(field, v)
	return 0
}

// AircraftFromProps builds an Aircraft from node properties.
func AircraftFromProps(m map[string]any) (Aircraft, error) {
	p := &props{m: m}
	a := Aircraft{
		AircraftID:   p.str("aircraft_id"),
		TailNumber:   p.str("tail_number"),
		ICAO24:       p.str("icao24"),
		Model:        p.str("model"),
		Operator:     p.str("operator"),
		Manufacturer: p.str("manufacturer"),
	}
	return a, p.err
}

// AirportFromProps builds an Airport from node properties.
func AirportFromProps(m map[string]any) (Airport, error) {
	p := &props{m: m}
	a := Airport{
		AirportID: p.str("airport_id"),
		IATA:      p.str("iata"),
		ICAO:      p.str("icao"),
		Name:      p.str("name"),
		City:      p.str("city"),
		Country:   p.str("country"),
		Lat:       p.float("lat"),
		Lon:       p.float("lon"),
	}
	return a, p.err
}

// FlightFromProps builds a Flight from node properties.
func FlightFromProps(m map[string]any) (Flight, error) {
	p := &props{m: m}
	f := Flight{
		FlightID:           p.str("flight_id"),
		FlightNumber:       p.str("flight_number"),
		AircraftID:         p.str("aircraft_id"),
		Operator:           p.str("operator"),
		Origin:             p.str("origin"),
		Destination:        p.str("destination"),
		ScheduledDeparture: p.str("scheduled_departure"),
		ScheduledArrival:   p.str("scheduled_arrival"),
	}
	return f, p.err
}

// SystemFromProps builds a System from node properties.
func SystemFromProps(m map[string]any) (System, error) {
	p := &props{m: m}
	s := System{
		SystemID:   p.str("system_id"),
		AircraftID: p.str("aircraft_id"),
		Name:       p.str("name"),
		Type:       p.str("type"),
	}
	return s, p.err
}

// ComponentFromProps builds a Component from node properties.
func ComponentFromProps(m map[string]any) (Component, error) {
	p := &props{m: m}
	c := Component{
		ComponentID: p.str("component_id"),
		SystemID:    p.str("system_id"),
		Name:        p.str("name"),
		Type:        p.str("type"),
	}
	return c, p.err
}

// SensorFromProps builds a Sensor from node properties.
func SensorFromProps(m map[string]any) (Sensor, error) {
	p := &props{m: m}
	s := Sensor{
		SensorID: p.str("sensor_id"),
		SystemID: p.str("system_id"),
		Name:     p.str("name"),
		Type:     p.str("type"),
		Unit:     p.str("unit"),
	}
	return s, p.err
}

// ReadingFromProps builds a Reading from node properties.
func ReadingFromProps(m map[string]any) (Reading, error) {
	p := &props{m: m}
	r := Reading{
		ReadingID: p.str("reading_id"),
		SensorID:  p.str("sensor_id"),
		Timestamp: p.str("timestamp"),
		Value:     p.float("value"),
	}
	return r, p.err
}

// MaintenanceEventFromProps builds a MaintenanceEvent from node properties.
func MaintenanceEventFromProps(m map[string]any) (MaintenanceEvent, error) {
	p := &props{m: m}
	e := MaintenanceEvent{
		EventID:          p.str("event_id"),
		AircraftID:       p.str("aircraft_id"),
		SystemID:         p.str("system_id"),
		ComponentID:      p.str("component_id"),
		Fault:            p.str("fault"),
		Severity:         p.str("severity"),
		ReportedAt:       p.str("reported_at"),
		CorrectiveAction: p.str("corrective_action"),
	}
	return e, p.err
}

// DelayFromProps builds a Delay from node properties.
func DelayFromProps(m map[string]any) (Delay, error) {
	p := &props{m: m}
	d := Delay{
		DelayID:  p.str("delay_id"),
		FlightID: p.str("flight_id"),
		Cause:    p.str("cause"),
		Minutes:  p.int("minutes"),
	}
	return d, p.err
}

// FromProps decodes node properties into the entity type for kind.
func FromProps(kind Kind, m map[string]any) (Entity, error) {
	var (
		e   Entity
		err error
	)
	switch kind {
	case KindAircraft:
		e, err = AircraftFromProps(m)
	case KindAirport:
		e, err = AirportFromProps(m)
	case KindFlight:
		e, err = FlightFromProps(m)
	case KindSystem:
		e, err = SystemFromProps(m)
	case KindComponent:
		e, err = ComponentFromProps(m)
	case KindSensor:
		e, err = SensorFromProps(m)
	case KindReading:
		e, err = ReadingFromProps(m)
	case KindMaintenanceEvent:
		e, err = MaintenanceEventFromProps(m)
	case KindDelay:
		e, err = DelayFromProps(m)
	default:
		return nil, NewValidationError("kind", string(kind), ErrUnknownKind)
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

// DecodeJSON decodes and validates a JSON document as an entity of kind.
// Unknown fields and mistyped scalars are reported as validation errors.
func DecodeJSON(kind Kind, data []byte) (Entity, error) {
	switch kind {
	case KindAircraft:
		return decodeJSON[Aircraft](data)
	case KindAirport:
		return decodeJSON[Airport](data)
	case KindFlight:
		return decodeJSON[Flight](data)
	case KindSystem:
		return decodeJSON[System](data)
	case KindComponent:
		return decodeJSON[Component](data)
	case KindSensor:
		return decodeJSON[Sensor](data)
	case KindReading:
		return decodeJSON[Reading](data)
	case KindMaintenanceEvent:
		return decodeJSON[MaintenanceEvent](data)
	case KindDelay:
		return decodeJSON[Delay](data)
	}
	return nil, NewValidationError("kind", string(kind), ErrUnknownKind)
}

func decodeJSON[T Entity](data []byte) (Entity, error) {
	var e T
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&e); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, NewValidationError(typeErr.Field, typeErr.Value, ErrWrongType)
		}
		return nil, NewValidationError("body", "", err)
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}
