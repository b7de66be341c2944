// Package graphdb owns the connection to the property-graph database: the
// driver lifecycle, session acquisition and the mapping of driver failures
// onto the domain error kinds.
package graphdb

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/WessleyAI/fleetgraph/engine/cypher"
)

// Result is a forward-only cursor over query rows.
type Result interface {
	Next(ctx context.Context) bool
	Record() *neo4j.Record
	Err() error
}

// Session runs queries produced by the cypher package. Only builder output
// is accepted, so every value reaches the database as a parameter.
type Session interface {
	Run(ctx context.Context, q cypher.Query) (Result, error)
	Close(ctx context.Context) error
}

// Mode selects read or write routing for a session.
type Mode int

const (
	Write Mode = iota
	Read
)

func (m Mode) String() string {
	if m == Read {
		return "read"
	}
	return "write"
}

// Provider hands out sessions. Callers must Close every session they acquire.
type Provider interface {
	Session(ctx context.Context, mode Mode) (Session, error)
}

// State is the lifecycle state of a Manager.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
	Failed
	Closed
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Failed:
		return "failed"
	case Closed:
		return "closed"
	}
	return "unknown"
}
