package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromProps_RoundTrip(t *testing.T) {
	entities := []Entity{
		Aircraft{AircraftID: "AC1", TailNumber: "N1", ICAO24: "a1b2c3", Model: "A320", Operator: "Acme", Manufacturer: "Airbus"},
		Airport{AirportID: "AP1", IATA: "JFK", ICAO: "KJFK", Name: "Kennedy", City: "New York", Country: "US", Lat: 40.6, Lon: -73.7},
		Flight{FlightID: "F1", FlightNumber: "AC100", AircraftID: "AC1", Origin: "JFK", Destination: "LAX", ScheduledDeparture: "2024-01-01T10:00:00Z"},
		System{SystemID: "S1", AircraftID: "AC1", Name: "Hydraulics", Type: "hydraulic"},
		Component{ComponentID: "C1", SystemID: "S1", Name: "Pump", Type: "pump"},
		Sensor{SensorID: "SN1", SystemID: "S1", Name: "Pressure", Type: "pressure", Unit: "psi"},
		Reading{ReadingID: "R1", SensorID: "SN1", Timestamp: "2024-01-01T10:00:00Z", Value: 3000.5},
		MaintenanceEvent{EventID: "E1", AircraftID: "AC1", SystemID: "S1", ComponentID: "C1", Fault: "leak", Severity: SeverityWarning},
		Delay{DelayID: "D1", FlightID: "F1", Cause: "weather", Minutes: 45},
	}
	for _, e := range entities {
		got, err := FromProps(e.Kind(), e.Props())
		require.NoError(t, err, e.Kind())
		assert.Equal(t, e, got)
		assert.Equal(t, e.Key(), got.Key())
	}
}

func TestFromProps_DriverNumerics(t *testing.T) {
	// The driver hands integers back as int64 and floats as float64.
	d, err := DelayFromProps(map[string]any{"delay_id": "D1", "flight_id": "F1", "minutes": int64(30)})
	require.NoError(t, err)
	assert.Equal(t, 30, d.Minutes)

	a, err := AirportFromProps(map[string]any{"airport_id": "AP1", "lat": int64(10)})
	require.NoError(t, err)
	assert.Equal(t, 10.0, a.Lat)
}

func TestFromProps_WrongType(t *testing.T) {
	_, err := FromProps(KindAircraft, map[string]any{"aircraft_id": "AC1", "tail_number": int64(7)})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrWrongType)
	assert.NotErrorIs(t, err, ErrValidation, "stored data is not caller input")
	assert.Contains(t, err.Error(), "tail_number")

	_, err = FromProps(KindDelay, map[string]any{"delay_id": "D1", "minutes": 1.5})
	assert.ErrorIs(t, err, ErrWrongType)
}

func TestFromProps_IntOutOfRange(t *testing.T) {
	for _, v := range []any{1e300, -1e300, math.Inf(1), math.NaN(), float64(1 << 63)} {
		_, err := DelayFromProps(map[string]any{"delay_id": "D1", "minutes": v})
		assert.ErrorIs(t, err, ErrWrongType, "%v", v)
	}

	d, err := DelayFromProps(map[string]any{"delay_id": "D1", "minutes": float64(-1 << 53)})
	require.NoError(t, err)
	assert.Equal(t, -1<<53, d.Minutes)
}

func TestFromProps_UnknownKind(t *testing.T) {
	e, err := FromProps(Kind("Vehicle"), map[string]any{})
	assert.Nil(t, e)
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestDecodeJSON(t *testing.T) {
	e, err := DecodeJSON(KindAircraft, []byte(`{"aircraft_id":"AC1","tail_number":"N1","model":"A320"}`))
	require.NoError(t, err)
	assert.Equal(t, Aircraft{AircraftID: "AC1", TailNumber: "N1", Model: "A320"}, e)
}

func TestDecodeJSON_Errors(t *testing.T) {
	cases := []struct {
		name  string
		kind  Kind
		body  string
		cause error
	}{
		{"wrong scalar", KindAircraft, `{"aircraft_id":"AC1","tail_number":5}`, ErrWrongType},
		{"missing key", KindAircraft, `{"tail_number":"N1"}`, ErrRequired},
		{"out of range", KindAirport, `{"airport_id":"AP1","lat":95}`, ErrOutOfRange},
		{"unknown kind", Kind("Vehicle"), `{}`, ErrUnknownKind},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e, err := DecodeJSON(tc.kind, []byte(tc.body))
			assert.Nil(t, e)
			assert.ErrorIs(t, err, ErrValidation)
			assert.ErrorIs(t, err, tc.cause)
		})
	}

	_, err := DecodeJSON(KindAircraft, []byte(`{"aircraft_id":"AC1","tail_number":"N1","vin":"x"}`))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSchemas(t *testing.T) {
	for _, k := range Kinds() {
		s, err := SchemaOf(k)
		require.NoError(t, err)
		assert.True(t, s.HasField(s.Key), "%s key not declared", k)
		assert.True(t, s.HasField(s.Order.Field), "%s order field not declared", k)

		parsed, err := ParseKind(k.Alias())
		require.NoError(t, err)
		assert.Equal(t, k, parsed)
		parsed, err = ParseKind(string(k))
		require.NoError(t, err)
		assert.Equal(t, k, parsed)
	}
	assert.Equal(t, "maintenance_event", KindMaintenanceEvent.Alias())
	assert.Equal(t, "aircraft", KindAircraft.Alias())

	_, err := ParseKind("vehicle")
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestPropsCoverDeclaredFields(t *testing.T) {
	entities := []Entity{
		Aircraft{}, Airport{}, Flight{}, System{}, Component{},
		Sensor{}, Reading{}, MaintenanceEvent{}, Delay{},
	}
	for _, e := range entities {
		s := MustSchema(e.Kind())
		props := e.Props()
		assert.Len(t, props, len(s.Fields), e.Kind())
		for _, f := range s.Fields {
			assert.Contains(t, props, f, e.Kind())
		}
	}
}
