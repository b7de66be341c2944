package domain

import (
	"errors"
	"fmt"
	"math"
	"testing"
)

func TestValidate_Valid(t *testing.T) {
	cases := []Entity{
		Aircraft{AircraftID: "AC1", TailNumber: "N12345", Model: "A320"},
		Airport{AirportID: "AP1", IATA: "JFK", Lat: 40.6413, Lon: -73.7781},
		Airport{AirportID: "AP2", Lat: -90, Lon: 180},
		Flight{FlightID: "F1", AircraftID: "AC1"},
		System{SystemID: "S1", AircraftID: "AC1", Name: "Hydraulics"},
		Component{ComponentID: "C1", SystemID: "S1"},
		Sensor{SensorID: "SN1", SystemID: "S1", Unit: "psi"},
		Reading{ReadingID: "R1", SensorID: "SN1", Value: -12.5},
		MaintenanceEvent{EventID: "E1", AircraftID: "AC1", Severity: SeverityCritical},
		Delay{DelayID: "D1", FlightID: "F1", Minutes: 0},
	}
	for _, e := range cases {
		if err := e.Validate(); err != nil {
			t.Errorf("expected valid for %+v, got %v", e, err)
		}
	}
}

func TestValidate_RequiredFields(t *testing.T) {
	cases := []struct {
		e     Entity
		field string
	}{
		{Aircraft{TailNumber: "N1"}, "aircraft_id"},
		{Aircraft{AircraftID: "AC1"}, "tail_number"},
		{Airport{}, "airport_id"},
		{Flight{FlightID: "F1"}, "aircraft_id"},
		{System{AircraftID: "AC1"}, "system_id"},
		{Component{ComponentID: "C1"}, "system_id"},
		{Sensor{SystemID: "S1"}, "sensor_id"},
		{Reading{ReadingID: "R1"}, "sensor_id"},
		{MaintenanceEvent{EventID: "E1"}, "aircraft_id"},
		{Delay{DelayID: "D1"}, "flight_id"},
	}
	for _, tc := range cases {
		err := tc.e.Validate()
		if !errors.Is(err, ErrValidation) || !errors.Is(err, ErrRequired) {
			t.Errorf("%s: expected required-field validation error, got %v", tc.e.Kind(), err)
			continue
		}
		var ve *ValidationError
		if !errors.As(err, &ve) || ve.Field != tc.field {
			t.Errorf("%s: expected field %q, got %+v", tc.e.Kind(), tc.field, ve)
		}
	}
}

func TestValidate_OutOfRange(t *testing.T) {
	cases := []struct {
		name  string
		e     Entity
		field string
	}{
		{"lat high", Airport{AirportID: "AP1", Lat: 90.5}, "lat"},
		{"lat low", Airport{AirportID: "AP1", Lat: -91}, "lat"},
		{"lon high", Airport{AirportID: "AP1", Lon: 181}, "lon"},
		{"lat nan", Airport{AirportID: "AP1", Lat: math.NaN()}, "lat"},
		{"lon inf", Airport{AirportID: "AP1", Lon: math.Inf(-1)}, "lon"},
		{"reading nan", Reading{ReadingID: "R1", SensorID: "SN1", Value: math.NaN()}, "value"},
		{"reading inf", Reading{ReadingID: "R1", SensorID: "SN1", Value: math.Inf(1)}, "value"},
		{"negative delay", Delay{DelayID: "D1", FlightID: "F1", Minutes: -5}, "minutes"},
	}
	for _, tc := range cases {
		err := tc.e.Validate()
		if !errors.Is(err, ErrOutOfRange) {
			t.Errorf("%s: expected ErrOutOfRange, got %v", tc.name, err)
			continue
		}
		var ve *ValidationError
		if errors.As(err, &ve) && ve.Field != tc.field {
			t.Errorf("%s: expected field %q, got %q", tc.name, tc.field, ve.Field)
		}
	}
}

func TestNew(t *testing.T) {
	a, err := New(Aircraft{AircraftID: "AC1", TailNumber: "N1"})
	if err != nil || a.AircraftID != "AC1" {
		t.Fatalf("got %+v, %v", a, err)
	}
	a, err = New(Aircraft{AircraftID: "AC1"})
	if err == nil {
		t.Fatal("expected error")
	}
	if a != (Aircraft{}) {
		t.Errorf("expected zero value on error, got %+v", a)
	}
}

func TestCheckLimit(t *testing.T) {
	for _, n := range []int{0, 1, DefaultLimit, MaxLimit} {
		if err := CheckLimit(n); err != nil {
			t.Errorf("limit %d: unexpected error %v", n, err)
		}
	}
	for _, n := range []int{NoLimit, -100, MaxLimit + 1} {
		err := CheckLimit(n)
		if !errors.Is(err, ErrUnbounded) || !errors.Is(err, ErrValidation) {
			t.Errorf("limit %d: expected ErrUnbounded, got %v", n, err)
		}
	}
}

func TestErrorKinds(t *testing.T) {
	kinds := []error{ErrValidation, ErrConnection, ErrQuery, ErrNotFound}
	cases := []struct {
		err  error
		kind error
	}{
		{NewValidationError("f", "v", ErrRequired), ErrValidation},
		{NewConnectionError("open", ErrAuth), ErrConnection},
		{NewQueryError("lookup", "Aircraft", errors.New("boom")), ErrQuery},
		{NewNotFoundError("Aircraft", "AC1"), ErrNotFound},
	}
	for _, tc := range cases {
		for _, k := range kinds {
			if got := errors.Is(tc.err, k); got != (k == tc.kind) {
				t.Errorf("%v: errors.Is(%v) = %v", tc.err, k, got)
			}
		}
	}
}

func TestQueryErrorOmitsValues(t *testing.T) {
	err := NewQueryError("update", "Aircraft", errors.New("constraint violated"))
	if got := err.Error(); got != "query: update Aircraft: constraint violated" {
		t.Errorf("got %q", got)
	}
	nf := NewNotFoundError("Aircraft", "secret-key")
	if got := nf.Error(); got != "Aircraft not found" {
		t.Errorf("got %q", got)
	}
}

func TestErrorKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{NewValidationError("f", "v", ErrRequired), "validation"},
		{NewNotFoundError("Aircraft", "AC1"), "not_found"},
		{NewConnectionError("open", ErrAuth), "connection"},
		{fmt.Errorf("wrapped: %w", NewQueryError("list", "Flight", ErrNoResult)), "query"},
		{errors.New("plain"), ""},
	}
	for _, tt := range tests {
		if got := ErrorKind(tt.err); got != tt.want {
			t.Errorf("ErrorKind(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
