// Package ingest consumes entity upserts and deletes from NATS and applies
// them to the fleet graph, replying to each message with an Ack.
package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/WessleyAI/fleetgraph/engine/domain"
	"github.com/WessleyAI/fleetgraph/engine/fleet"
	"github.com/WessleyAI/fleetgraph/pkg/fn"
	"github.com/WessleyAI/fleetgraph/pkg/natsutil"
	"github.com/WessleyAI/fleetgraph/pkg/resilience"
)

// Queue is the queue group consumers join so each message is applied once.
const Queue = "fleet-ingest"

// Recorder counts processed messages.
type Recorder interface {
	IngestHandled(action string, kind domain.Kind, err error)
}

type nopRecorder struct{}

func (nopRecorder) IngestHandled(string, domain.Kind, error) {}

// Deps holds what a Consumer needs.
type Deps struct {
	Store    *fleet.Store
	Subjects Subjects
	// Breaker guards graph writes. Nil gets a breaker that opens on
	// connection errors only.
	Breaker *resilience.Breaker
	// Retry applies to connection errors. Zero MaxAttempts means fn.DefaultRetry.
	Retry   fn.RetryOpts
	Metrics Recorder
	Logger  *slog.Logger
}

// Consumer applies ingest messages to the graph.
type Consumer struct {
	deps     Deps
	log      *slog.Logger
	pipeline fn.Stage[Message, Ack]
}

func isConnection(err error) bool { return errors.Is(err, domain.ErrConnection) }

// NewConsumer builds the decode and apply pipeline.
func NewConsumer(deps Deps) *Consumer {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Metrics == nil {
		deps.Metrics = nopRecorder{}
	}
	if deps.Breaker == nil {
		opts := resilience.DefaultBreakerOpts
		opts.IsFailure = isConnection
		deps.Breaker = resilience.NewBreaker(opts)
	}
	if deps.Retry.MaxAttempts == 0 {
		deps.Retry = fn.DefaultRetry
	}
	deps.Retry.Retryable = isConnection

	c := &Consumer{deps: deps, log: deps.Logger}
	decode := fn.Traced("ingest.decode", fn.Lift(c.decode))
	apply := fn.Traced("ingest.apply",
		fn.RetryStage(deps.Retry, resilience.Stage(deps.Breaker, fn.Lift(c.apply))))
	c.pipeline = fn.Then(decode, apply)
	return c
}

func (c *Consumer) decode(_ context.Context, m Message) (command, error) {
	action, kind, err := c.deps.Subjects.Parse(m.Subject)
	if err != nil {
		return command{}, err
	}
	cmd := command{id: m.ID, action: action, kind: kind}
	switch action {
	case ActionUpsert:
		e, err := domain.DecodeJSON(kind, m.Data)
		if err != nil {
			return command{}, err
		}
		cmd.entity, cmd.key = e, e.Key()
	case ActionDelete:
		var req DeleteRequest
		dec := json.NewDecoder(bytes.NewReader(m.Data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			return command{}, domain.NewValidationError("body", "", err)
		}
		if req.Key == "" {
			return command{}, domain.NewValidationError(domain.MustSchema(kind).Key, "", domain.ErrRequired)
		}
		cmd.key = req.Key
	}
	return cmd, nil
}

func (c *Consumer) apply(ctx context.Context, cmd command) (Ack, error) {
	ack := Ack{ID: cmd.id, OK: true, Action: cmd.action, Kind: cmd.kind, Key: cmd.key}
	switch cmd.action {
	case ActionUpsert:
		if _, err := c.deps.Store.Create(ctx, cmd.entity); err != nil {
			return Ack{}, err
		}
	case ActionDelete:
		deleted, err := c.deps.Store.Delete(ctx, cmd.kind, cmd.key)
		if err != nil {
			return Ack{}, err
		}
		ack.Deleted = &deleted
	}
	return ack, nil
}

// Process runs one message through the pipeline. Failures come back as an
// Ack with OK false; the error is returned alongside for the caller.
func (c *Consumer) Process(ctx context.Context, m Message) (Ack, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	action, kind, _ := c.deps.Subjects.Parse(m.Subject)
	ack, err := c.pipeline(ctx, m).Unwrap()
	c.deps.Metrics.IngestHandled(action, kind, err)
	if err != nil {
		ack = Ack{ID: m.ID, Action: action, Kind: kind, ErrorKind: domain.ErrorKind(err), Error: err.Error()}
		if errors.Is(err, domain.ErrValidation) {
			c.log.Warn("ingest: rejected", "id", m.ID, "subject", m.Subject, "error_kind", ack.ErrorKind)
		} else {
			c.log.Error("ingest: apply failed", "id", m.ID, "subject", m.Subject, "error", err)
		}
		return ack, err
	}
	c.log.Info("ingest: applied", "id", ack.ID, "action", ack.Action, "kind", ack.Kind, "key", ack.Key)
	return ack, nil
}

// Start subscribes to every upsert and delete subject in the Queue group.
// Each message is answered with an Ack. Messages that fail because the
// graph is unreachable are also copied to the dead letter subject.
func (c *Consumer) Start(nc *nats.Conn) ([]*nats.Subscription, error) {
	p := c.deps.Subjects.prefix()
	var subs []*nats.Subscription
	for _, action := range []string{ActionUpsert, ActionDelete} {
		sub, err := natsutil.Handle(nc, p+"."+action+".*", Queue, func(ctx context.Context, msg *nats.Msg) {
			c.handle(ctx, nc, msg)
		})
		if err != nil {
			for _, s := range subs {
				_ = s.Unsubscribe()
			}
			return nil, err
		}
		subs = append(subs, sub)
	}
	c.log.Info("ingest: consuming", "prefix", p, "queue", Queue)
	return subs, nil
}

func (c *Consumer) handle(ctx context.Context, nc *nats.Conn, msg *nats.Msg) {
	id := msg.Header.Get(nats.MsgIdHdr)
	ack, err := c.Process(ctx, Message{ID: id, Subject: msg.Subject, Data: msg.Data})
	if err != nil && (isConnection(err) || errors.Is(err, resilience.ErrCircuitOpen)) {
		dlq := dlqMessage{ID: ack.ID, Subject: msg.Subject, Data: msg.Data, Error: err.Error()}
		if perr := natsutil.Publish(ctx, nc, c.deps.Subjects.DLQ(), dlq); perr != nil {
			c.log.Error("ingest: dlq publish failed", "id", ack.ID, "error", perr)
		}
	}
	if rerr := natsutil.Respond(ctx, msg, ack); rerr != nil {
		c.log.Error("ingest: reply failed", "id", ack.ID, "error", rerr)
	}
}

// Send publishes one ingest message and waits for its Ack.
func Send(ctx context.Context, nc *nats.Conn, subject string, body json.RawMessage) (Ack, error) {
	return natsutil.Request[json.RawMessage, Ack](ctx, nc, subject, body)
}
