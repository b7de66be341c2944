package graphdb

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/WessleyAI/fleetgraph/engine/domain"
)

// Classify maps a driver error onto the domain error kinds. Errors that
// already carry a kind pass through unchanged. Messages never include
// query parameters.
func Classify(op, label string, err error) error {
	if err == nil {
		return nil
	}
	if hasKind(err) {
		return err
	}
	if cause := connectionCause(err); cause != nil {
		return domain.NewConnectionError(op, fmt.Errorf("%w: %w", cause, err))
	}
	return domain.NewQueryError(op, label, err)
}

// classifyConnect is Classify for connection setup, where every failure is
// a ConnectionError.
func classifyConnect(op string, err error) error {
	if err == nil {
		return nil
	}
	if hasKind(err) {
		return err
	}
	cause := connectionCause(err)
	if cause == nil {
		cause = domain.ErrUnreachable
	}
	return domain.NewConnectionError(op, fmt.Errorf("%w: %w", cause, err))
}

func hasKind(err error) bool {
	return errors.Is(err, domain.ErrValidation) ||
		errors.Is(err, domain.ErrConnection) ||
		errors.Is(err, domain.ErrQuery) ||
		errors.Is(err, domain.ErrNotFound)
}

// connectionCause returns the sentinel for connection-class failures, or nil.
func connectionCause(err error) error {
	var neoErr *neo4j.Neo4jError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return domain.ErrTimeout
	case errors.As(err, &neoErr) && strings.HasPrefix(neoErr.Code, "Neo.ClientError.Security."):
		return domain.ErrAuth
	case neo4j.IsConnectivityError(err):
		return domain.ErrUnreachable
	}
	return nil
}
