package ingest

import (
	"fmt"
	"strings"

	"github.com/WessleyAI/fleetgraph/engine/domain"
)

// Ingest actions, the second token of a subject.
const (
	ActionUpsert = "upsert"
	ActionDelete = "delete"
)

// DefaultPrefix is the default first subject token.
const DefaultPrefix = "fleet"

// Subjects names the ingest subjects under one prefix:
// <prefix>.upsert.<kind>, <prefix>.delete.<kind> and <prefix>.dlq, where
// kind is the lowercase alias such as "maintenance_event".
type Subjects struct {
	Prefix string
}

func (s Subjects) prefix() string {
	if s.Prefix == "" {
		return DefaultPrefix
	}
	return s.Prefix
}

// Upsert returns the upsert subject for kind.
func (s Subjects) Upsert(kind domain.Kind) string {
	return s.prefix() + "." + ActionUpsert + "." + kind.Alias()
}

// Delete returns the delete subject for kind.
func (s Subjects) Delete(kind domain.Kind) string {
	return s.prefix() + "." + ActionDelete + "." + kind.Alias()
}

// DLQ returns the dead letter subject.
func (s Subjects) DLQ() string { return s.prefix() + ".dlq" }

// For returns the subject for action on kind.
func (s Subjects) For(action string, kind domain.Kind) (string, error) {
	switch action {
	case ActionUpsert:
		return s.Upsert(kind), nil
	case ActionDelete:
		return s.Delete(kind), nil
	}
	return "", domain.NewValidationError("action", action, domain.ErrUnknownKind)
}

// Parse splits an ingest subject into its action and kind.
func (s Subjects) Parse(subject string) (string, domain.Kind, error) {
	rest, ok := strings.CutPrefix(subject, s.prefix()+".")
	if !ok {
		return "", "", domain.NewValidationError("subject", subject, domain.ErrUnknownKind)
	}
	action, alias, ok := strings.Cut(rest, ".")
	if !ok || (action != ActionUpsert && action != ActionDelete) {
		return "", "", domain.NewValidationError("subject", subject, domain.ErrUnknownKind)
	}
	kind, err := domain.ParseKind(alias)
	if err != nil {
		return "", "", err
	}
	return action, kind, nil
}

// Message is one inbound ingest message.
type Message struct {
	ID      string
	Subject string
	Data    []byte
}

// DeleteRequest is the body of a delete message.
type DeleteRequest struct {
	Key string `json:"key"`
}

// Ack is the reply to every ingest message.
type Ack struct {
	ID        string      `json:"id"`
	OK        bool        `json:"ok"`
	Action    string      `json:"action,omitempty"`
	Kind      domain.Kind `json:"kind,omitempty"`
	Key       string      `json:"key,omitempty"`
	Deleted   *bool       `json:"deleted,omitempty"`
	ErrorKind string      `json:"error_kind,omitempty"`
	Error     string      `json:"error,omitempty"`
}

// Err turns a failed Ack back into an error for callers.
func (a Ack) Err() error {
	if a.OK {
		return nil
	}
	kind := a.ErrorKind
	if kind == "" {
		kind = "error"
	}
	return fmt.Errorf("ingest %s %s rejected (%s): %s", a.Action, a.Kind, kind, a.Error)
}

// command is a decoded, validated ingest message.
type command struct {
	id     string
	action string
	kind   domain.Kind
	key    string
	entity domain.Entity
}

// dlqMessage is published to the dead letter subject when a message could
// not be applied because the graph was unavailable.
type dlqMessage struct {
	ID      string `json:"id"`
	Subject string `json:"subject"`
	Data    []byte `json:"data"`
	Error   string `json:"error"`
}
