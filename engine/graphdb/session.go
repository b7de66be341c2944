package graphdb

import (
	"context"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/WessleyAI/fleetgraph/engine/cypher"
)

// neo4jSession adapts neo4j.SessionWithContext to Session and traces each query.
type neo4jSession struct {
	sess     neo4j.SessionWithContext
	mode     Mode
	tracer   trace.Tracer
	observer Observer
	database string
}

func (s *neo4jSession) Run(ctx context.Context, q cypher.Query) (Result, error) {
	label := q.Label()
	ctx, span := s.tracer.Start(ctx, "graph."+string(q.Shape.Op),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "neo4j"),
			attribute.String("db.namespace", s.database),
			attribute.String("db.operation.name", string(q.Shape.Op)),
			attribute.String("db.graph.label", label),
		))
	defer span.End()

	start := time.Now()
	res, err := s.sess.Run(ctx, q.Text, q.Params)
	err = Classify(string(q.Shape.Op), label, err)
	s.observer.QueryDone(q.Shape.Op, label, time.Since(start), err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return res, nil
}

func (s *neo4jSession) Close(ctx context.Context) error {
	s.observer.SessionClosed(s.mode)
	return s.sess.Close(ctx)
}
