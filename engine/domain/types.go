// Package domain defines the fleet graph entities, their schema and the
// validation gate every entity passes before it reaches the query layer.
package domain

// Kind names an entity kind. It doubles as the node label in the graph.
type Kind string

const (
	KindAircraft         Kind = "Aircraft"
	KindAirport          Kind = "Airport"
	KindFlight           Kind = "Flight"
	KindSystem           Kind = "System"
	KindComponent        Kind = "Component"
	KindSensor           Kind = "Sensor"
	KindReading          Kind = "Reading"
	KindMaintenanceEvent Kind = "MaintenanceEvent"
	KindDelay            Kind = "Delay"
)

// Entity is implemented by every node record.
type Entity interface {
	Kind() Kind
	Key() string
	// Props returns every declared property keyed by its graph name.
	Props() map[string]any
	Validate() error
}

// New runs the validation pass over e and returns it unchanged when valid.
func New[T Entity](e T) (T, error) {
	if err := e.Validate(); err != nil {
		var zero T
		return zero, err
	}
	return e, nil
}

// Aircraft is a commercial aircraft in the fleet.
type Aircraft struct {
	AircraftID   string `json:"aircraft_id" validate:"required"`
	TailNumber   string `json:"tail_number" validate:"required"`
	ICAO24       string `json:"icao24"`
	Model        string `json:"model"`
	Operator     string `json:"operator"`
	Manufacturer string `json:"manufacturer"`
}

func (a Aircraft) Kind() Kind      { return KindAircraft }
func (a Aircraft) Key() string     { return a.AircraftID }
func (a Aircraft) Validate() error { return check(a) }

func (a Aircraft) Props() map[string]any {
	return map[string]any{
		"aircraft_id":  a.AircraftID,
		"tail_number":  a.TailNumber,
		"icao24":       a.ICAO24,
		"model":        a.Model,
		"operator":     a.Operator,
		"manufacturer": a.Manufacturer,
	}
}

// Airport is an airport with its identification codes and location.
type Airport struct {
	AirportID string  `json:"airport_id" validate:"required"`
	IATA      string  `json:"iata"`
	ICAO      string  `json:"icao"`
	Name      string  `json:"name"`
	City      string  `json:"city"`
	Country   string  `json:"country"`
	Lat       float64 `json:"lat" validate:"finite,gte=-90,lte=90"`
	Lon       float64 `json:"lon" validate:"finite,gte=-180,lte=180"`
}

func (a Airport) Kind() Kind      { return KindAirport }
func (a Airport) Key() string     { return a.AirportID }
func (a Airport) Validate() error { return check(a) }

func (a Airport) Props() map[string]any {
	return map[string]any{
		"airport_id": a.AirportID,
		"iata":       a.IATA,
		"icao":       a.ICAO,
		"name":       a.Name,
		"city":       a.City,
		"country":    a.Country,
		"lat":        a.Lat,
		"lon":        a.Lon,
	}
}

// Flight is a scheduled flight operation. Times are opaque ISO-8601 strings.
type Flight struct {
	FlightID           string `json:"flight_id" validate:"required"`
	FlightNumber       string `json:"flight_number"`
	AircraftID         string `json:"aircraft_id" validate:"required"`
	Operator           string `json:"operator"`
	Origin             string `json:"origin"`
	Destination        string `json:"destination"`
	ScheduledDeparture string `json:"scheduled_departure"`
	ScheduledArrival   string `json:"scheduled_arrival"`
}

func (f Flight) Kind() Kind      { return KindFlight }
func (f Flight) Key() string     { return f.FlightID }
func (f Flight) Validate() error { return check(f) }

func (f Flight) Props() map[string]any {
	return map[string]any{
		"flight_id":           f.FlightID,
		"flight_number":       f.FlightNumber,
		"aircraft_id":         f.AircraftID,
		"operator":            f.Operator,
		"origin":              f.Origin,
		"destination":         f.Destination,
		"scheduled_departure": f.ScheduledDeparture,
		"scheduled_arrival":   f.ScheduledArrival,
	}
}

// System is a major aircraft system such as hydraulics or avionics.
type System struct {
	SystemID   string `json:"system_id" validate:"required"`
	AircraftID string `json:"aircraft_id" validate:"required"`
	Name       string `json:"name"`
	Type       string `json:"type"`
}

func (s System) Kind() Kind      { return KindSystem }
func (s System) Key() string     { return s.SystemID }
func (s System) Validate() error { return check(s) }

func (s System) Props() map[string]any {
	return map[string]any{
		"system_id":   s.SystemID,
		"aircraft_id": s.AircraftID,
		"name":        s.Name,
		"type":        s.Type,
	}
}

// Component is a part within an aircraft system.
type Component struct {
	ComponentID string `json:"component_id" validate:"required"`
	SystemID    string `json:"system_id" validate:"required"`
	Name        string `json:"name"`
	Type        string `json:"type"`
}

func (c Component) Kind() Kind      { return KindComponent }
func (c Component) Key() string     { return c.ComponentID }
func (c Component) Validate() error { return check(c) }

func (c Component) Props() map[string]any {
	return map[string]any{
		"component_id": c.ComponentID,
		"system_id":    c.SystemID,
		"name":         c.Name,
		"type":         c.Type,
	}
}

// Sensor monitors a system and generates readings.
type Sensor struct {
	SensorID string `json:"sensor_id" validate:"required"`
	SystemID string `json:"system_id" validate:"required"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Unit     string `json:"unit"`
}

func (s Sensor) Kind() Kind      { return KindSensor }
func (s Sensor) Key() string     { return s.SensorID }
func (s Sensor) Validate() error { return check(s) }

func (s Sensor) Props() map[string]any {
	return map[string]any{
		"sensor_id": s.SensorID,
		"system_id": s.SystemID,
		"name":      s.Name,
		"type":      s.Type,
		"unit":      s.Unit,
	}
}

// Reading is one time-series sample produced by a sensor.
type Reading struct {
	ReadingID string  `json:"reading_id" validate:"required"`
	SensorID  string  `json:"sensor_id" validate:"required"`
	Timestamp string  `json:"timestamp"`
	Value     float64 `json:"value" validate:"finite"`
}

func (r Reading) Kind() Kind      { return KindReading }
func (r Reading) Key() string     { return r.ReadingID }
func (r Reading) Validate() error { return check(r) }

func (r Reading) Props() map[string]any {
	return map[string]any{
		"reading_id": r.ReadingID,
		"sensor_id":  r.SensorID,
		"timestamp":  r.Timestamp,
		"value":      r.Value,
	}
}

// MaintenanceEvent is a fault report or maintenance action.
type MaintenanceEvent struct {
	EventID          string `json:"event_id" validate:"required"`
	AircraftID       string `json:"aircraft_id" validate:"required"`
	SystemID         string `json:"system_id"`
	ComponentID      string `json:"component_id"`
	Fault            string `json:"fault"`
	Severity         string `json:"severity"` // CRITICAL, WARNING, INFO
	ReportedAt       string `json:"reported_at"`
	CorrectiveAction string `json:"corrective_action"`
}

func (m MaintenanceEvent) Kind() Kind      { return KindMaintenanceEvent }
func (m MaintenanceEvent) Key() string     { return m.EventID }
func (m MaintenanceEvent) Validate() error { return check(m) }

func (m MaintenanceEvent) Props() map[string]any {
	return map[string]any{
		"event_id":          m.EventID,
		"aircraft_id":       m.AircraftID,
		"system_id":         m.SystemID,
		"component_id":      m.ComponentID,
		"fault":             m.Fault,
		"severity":          m.Severity,
		"reported_at":       m.ReportedAt,
		"corrective_action": m.CorrectiveAction,
	}
}

// Severity levels used by maintenance events.
const (
	SeverityCritical = "CRITICAL"
	SeverityWarning  = "WARNING"
	SeverityInfo     = "INFO"
)

// Delay is a delay incident recorded against a flight.
type Delay struct {
	DelayID  string `json:"delay_id" validate:"required"`
	FlightID string `json:"flight_id" validate:"required"`
	Cause    string `json:"cause"`
	Minutes  int    `json:"minutes" validate:"gte=0"`
}

func (d Delay) Kind() Kind      { return KindDelay }
func (d Delay) Key() string     { return d.DelayID }
func (d Delay) Validate() error { return check(d) }

func (d Delay) Props() map[string]any {
	return map[string]any{
		"delay_id":  d.DelayID,
		"flight_id": d.FlightID,
		"cause":     d.Cause,
		"minutes":   int64(d.Minutes),
	}
}
