package fleet

import (
	"context"
	"fmt"
	"strings"

	"github.com/WessleyAI/fleetgraph/engine/cypher"
	"github.com/WessleyAI/fleetgraph/engine/domain"
)

// SystemTaxonomy maps the aircraft systems the sample fleet carries to
// their components, keyed by ATA chapter name.
var SystemTaxonomy = map[string][]string{
	"Hydraulic Power":  {"Engine-Driven Pump", "Reservoir", "Accumulator"},
	"Landing Gear":     {"Main Gear Actuator", "Nose Wheel Steering", "Brake Assembly"},
	"Fuel":             {"Boost Pump", "Crossfeed Valve", "Quantity Probe"},
	"Electrical Power": {"Integrated Drive Generator", "Battery", "Transformer Rectifier"},
}

// taxonomyOrder fixes seeding order so keys and results are stable.
var taxonomyOrder = []string{"Electrical Power", "Fuel", "Hydraulic Power", "Landing Gear"}

// SeedSummary reports what Seed wrote.
type SeedSummary struct {
	Nodes int `json:"nodes"`
	Links int `json:"links"`
}

type seeder struct {
	s   *Store
	sum SeedSummary
	err error
}

func (sd *seeder) put(ctx context.Context, e domain.Entity) {
	if sd.err != nil {
		return
	}
	if _, sd.err = sd.s.Create(ctx, e); sd.err == nil {
		sd.sum.Nodes++
	}
}

func (sd *seeder) link(ctx context.Context, rel cypher.Relation, from, to string) {
	if sd.err != nil {
		return
	}
	var ok bool
	if ok, sd.err = sd.s.Link(ctx, rel, from, to); sd.err == nil && ok {
		sd.sum.Links++
	}
}

func slug(s string) string {
	return strings.ToLower(strings.NewReplacer(" ", "-", "/", "-").Replace(s))
}

// Seed writes a small sample fleet: two aircraft with systems, components,
// sensors and readings, three airports, flights with delays, and maintenance
// events. Every write is an upsert, so Seed can be rerun.
func (s *Store) Seed(ctx context.Context) (SeedSummary, error) {
	sd := &seeder{s: s}

	airports := []domain.Airport{
		{AirportID: "AP-JFK", IATA: "JFK", ICAO: "KJFK", Name: "John F. Kennedy International", City: "New York", Country: "US", Lat: 40.6413, Lon: -73.7781},
		{AirportID: "AP-LAX", IATA: "LAX", ICAO: "KLAX", Name: "Los Angeles International", City: "Los Angeles", Country: "US", Lat: 33.9416, Lon: -118.4085},
		{AirportID: "AP-ORD", IATA: "ORD", ICAO: "KORD", Name: "O'Hare International", City: "Chicago", Country: "US", Lat: 41.9742, Lon: -87.9073},
	}
	for _, a := range airports {
		sd.put(ctx, a)
	}

	aircraft := []domain.Aircraft{
		{AircraftID: "AC-1001", TailNumber: "N101FG", ICAO24: "a0b1c2", Model: "A320neo", Operator: "FleetGraph Air", Manufacturer: "Airbus"},
		{AircraftID: "AC-1002", TailNumber: "N102FG", ICAO24: "a0b1c3", Model: "737-800", Operator: "FleetGraph Air", Manufacturer: "Boeing"},
	}
	for _, ac := range aircraft {
		sd.put(ctx, ac)
		for _, sysName := range taxonomyOrder {
			sysID := fmt.Sprintf("%s-%s", ac.AircraftID, slug(sysName))
			sd.put(ctx, domain.System{SystemID: sysID, AircraftID: ac.AircraftID, Name: sysName, Type: slug(sysName)})
			sd.link(ctx, HasSystem, ac.AircraftID, sysID)

			for _, compName := range SystemTaxonomy[sysName] {
				compID := fmt.Sprintf("%s-%s", sysID, slug(compName))
				sd.put(ctx, domain.Component{ComponentID: compID, SystemID: sysID, Name: compName, Type: slug(compName)})
				sd.link(ctx, HasComponent, sysID, compID)
			}

			sensorID := sysID + "-sensor"
			sd.put(ctx, domain.Sensor{SensorID: sensorID, SystemID: sysID, Name: sysName + " Monitor", Type: "pressure", Unit: "psi"})
			sd.link(ctx, HasSensor, sysID, sensorID)
			for i, v := range []float64{2980.5, 3010.0, 2995.25} {
				readingID := fmt.Sprintf("%s-r%d", sensorID, i+1)
				sd.put(ctx, domain.Reading{ReadingID: readingID, SensorID: sensorID, Timestamp: fmt.Sprintf("2024-03-01T1%d:00:00Z", i), Value: v})
				sd.link(ctx, Generates, sensorID, readingID)
			}
		}
	}

	flights := []struct {
		f        domain.Flight
		from, to string
		delay    int
	}{
		{domain.Flight{FlightID: "FL-1", FlightNumber: "FG100", AircraftID: "AC-1001", Operator: "FleetGraph Air", Origin: "JFK", Destination: "LAX",
			ScheduledDeparture: "2024-03-01T08:00:00Z", ScheduledArrival: "2024-03-01T11:30:00Z"}, "AP-JFK", "AP-LAX", 25},
		{domain.Flight{FlightID: "FL-2", FlightNumber: "FG101", AircraftID: "AC-1001", Operator: "FleetGraph Air", Origin: "LAX", Destination: "ORD",
			ScheduledDeparture: "2024-03-01T13:00:00Z", ScheduledArrival: "2024-03-01T19:00:00Z"}, "AP-LAX", "AP-ORD", 0},
		{domain.Flight{FlightID: "FL-3", FlightNumber: "FG200", AircraftID: "AC-1002", Operator: "FleetGraph Air", Origin: "ORD", Destination: "JFK",
			ScheduledDeparture: "2024-03-02T07:15:00Z", ScheduledArrival: "2024-03-02T10:20:00Z"}, "AP-ORD", "AP-JFK", 95},
	}
	for _, fl := range flights {
		sd.put(ctx, fl.f)
		sd.link(ctx, OperatesFlight, fl.f.AircraftID, fl.f.FlightID)
		sd.link(ctx, DepartsFrom, fl.f.FlightID, fl.from)
		sd.link(ctx, ArrivesAt, fl.f.FlightID, fl.to)
		if fl.delay > 0 {
			delayID := fl.f.FlightID + "-d1"
			sd.put(ctx, domain.Delay{DelayID: delayID, FlightID: fl.f.FlightID, Cause: "late inbound aircraft", Minutes: fl.delay})
			sd.link(ctx, HasDelay, fl.f.FlightID, delayID)
		}
	}

	events := []domain.MaintenanceEvent{
		{EventID: "ME-1", AircraftID: "AC-1001", SystemID: "AC-1001-hydraulic-power", ComponentID: "AC-1001-hydraulic-power-engine-driven-pump",
			Fault: "pump output pressure low", Severity: domain.SeverityCritical, ReportedAt: "2024-03-01T12:05:00Z", CorrectiveAction: "replace pump"},
		{EventID: "ME-2", AircraftID: "AC-1002", SystemID: "AC-1002-landing-gear", ComponentID: "AC-1002-landing-gear-brake-assembly",
			Fault: "brake wear indicator at limit", Severity: domain.SeverityWarning, ReportedAt: "2024-03-02T11:00:00Z", CorrectiveAction: "schedule brake change"},
		{EventID: "ME-3", AircraftID: "AC-1002", SystemID: "AC-1002-fuel", ComponentID: "AC-1002-fuel-quantity-probe",
			Fault: "fuel quantity probe missing", Severity: domain.SeverityCritical, ReportedAt: "2024-03-02T12:30:00Z", CorrectiveAction: "install probe"},
	}
	for _, ev := range events {
		sd.put(ctx, ev)
		sd.link(ctx, AffectsAircraft, ev.EventID, ev.AircraftID)
		sd.link(ctx, AffectsSystem, ev.EventID, ev.SystemID)
		sd.link(ctx, HasEvent, ev.ComponentID, ev.EventID)
	}

	if sd.err != nil {
		return sd.sum, fmt.Errorf("seed: %w", sd.err)
	}
	s.logger.Info("sample fleet seeded", "nodes", sd.sum.Nodes, "links", sd.sum.Links)
	return sd.sum, nil
}
