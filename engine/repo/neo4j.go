package repo

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/WessleyAI/fleetgraph/engine/cypher"
	"github.com/WessleyAI/fleetgraph/engine/domain"
	"github.com/WessleyAI/fleetgraph/engine/graphdb"
)

// Neo4jRepo is a generic graph-backed repository for one entity kind.
type Neo4jRepo[T domain.Entity] struct {
	db     graphdb.Provider
	schema domain.Schema
	decode Decoder[T]
	logger *slog.Logger
}

// Compile-time interface check.
var _ Repository[domain.Aircraft] = (*Neo4jRepo[domain.Aircraft])(nil)

// Option configures a Neo4jRepo.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets the logger for failed operations (default slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// NewNeo4jRepo creates a repository for kind. It panics on an unknown kind,
// which is a programming error.
func NewNeo4jRepo[T domain.Entity](db graphdb.Provider, kind domain.Kind, decode Decoder[T], opts ...Option) *Neo4jRepo[T] {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Neo4jRepo[T]{db: db, schema: domain.MustSchema(kind), decode: decode, logger: o.logger}
}

var tracer = otel.Tracer("github.com/WessleyAI/fleetgraph/engine/repo")

// observe wraps one repository operation in a span and logs its failure.
// Only the operation and label are recorded.
func observe(ctx context.Context, logger *slog.Logger, op, label string, fn func(ctx context.Context) error) error {
	ctx, span := tracer.Start(ctx, "repo."+op,
		trace.WithAttributes(attribute.String("db.graph.label", label)))
	defer span.End()
	err := fn(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, op+" failed")
		logger.DebugContext(ctx, "repository operation failed", "op", op, "label", label, "err", err)
	}
	return err
}

func (r *Neo4jRepo[T]) observe(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	return observe(ctx, r.logger, op, r.schema.Label(), fn)
}

// Schema returns the schema the repository reads and writes.
func (r *Neo4jRepo[T]) Schema() domain.Schema { return r.schema }

// DB returns the session provider backing the repository.
func (r *Neo4jRepo[T]) DB() graphdb.Provider { return r.db }

func (r *Neo4jRepo[T]) Create(ctx context.Context, e T) (T, error) {
	var zero T
	if err := e.Validate(); err != nil {
		return zero, err
	}
	q, err := cypher.Upsert(r.schema, e.Props())
	if err != nil {
		return zero, err
	}
	got, found, err := r.one(ctx, "create", q)
	if err != nil {
		return zero, err
	}
	if !found {
		return zero, domain.NewQueryError(string(q.Shape.Op), r.schema.Label(), domain.ErrNoResult)
	}
	return got, nil
}

func (r *Neo4jRepo[T]) FindByKey(ctx context.Context, key string) (T, bool, error) {
	q, err := cypher.Lookup(r.schema, key)
	if err != nil {
		var zero T
		return zero, false, err
	}
	return r.one(ctx, "find_by_key", q)
}

// FindBy returns the first entity whose field equals value, by key order.
func (r *Neo4jRepo[T]) FindBy(ctx context.Context, field, value string) (T, bool, error) {
	q, err := cypher.LookupBy(r.schema, field, value)
	if err != nil {
		var zero T
		return zero, false, err
	}
	return r.one(ctx, "find_by", q)
}

func (r *Neo4jRepo[T]) FindAll(ctx context.Context, limit int) ([]T, error) {
	q, err := cypher.List(r.schema, r.schema.Order, limit)
	if err != nil {
		return nil, err
	}
	return r.collect(ctx, "find_all", q)
}

// Where returns up to limit entities matching pred against value.
func (r *Neo4jRepo[T]) Where(ctx context.Context, pred cypher.Predicate, value any, limit int) ([]T, error) {
	q, err := cypher.Filter(r.schema, pred, value, r.schema.Order, limit)
	if err != nil {
		return nil, err
	}
	return r.collect(ctx, "where", q)
}

func (r *Neo4jRepo[T]) Update(ctx context.Context, e T) (T, error) {
	var zero T
	if err := e.Validate(); err != nil {
		return zero, err
	}
	q, err := cypher.Update(r.schema, e.Props())
	if err != nil {
		return zero, err
	}
	got, found, err := r.one(ctx, "update", q)
	if err != nil {
		return zero, err
	}
	if !found {
		return zero, domain.NewNotFoundError(r.schema.Label(), e.Key())
	}
	return got, nil
}

func (r *Neo4jRepo[T]) Delete(ctx context.Context, key string) (bool, error) {
	q, err := cypher.Delete(r.schema, key)
	if err != nil {
		return false, err
	}
	var n int64
	err = r.observe(ctx, "delete", func(ctx context.Context) error {
		var err error
		n, err = Count(ctx, r.db, q, cypher.ColDeleted)
		return err
	})
	return n > 0, err
}

func (r *Neo4jRepo[T]) one(ctx context.Context, op string, q cypher.Query) (T, bool, error) {
	var (
		got   T
		found bool
	)
	err := r.observe(ctx, op, func(ctx context.Context) error {
		var err error
		got, found, err = One(ctx, r.db, q, cypher.ColNode, r.decode)
		return err
	})
	return got, found, err
}

func (r *Neo4jRepo[T]) collect(ctx context.Context, op string, q cypher.Query) ([]T, error) {
	var items []T
	err := r.observe(ctx, op, func(ctx context.Context) error {
		var err error
		items, err = Collect(ctx, r.db, q, cypher.ColNode, r.decode)
		return err
	})
	return items, err
}

// Traverse follows t from the entity with key and decodes the targets.
func Traverse[B any](ctx context.Context, db graphdb.Provider, t cypher.Traversal, key string, value any, limit int, decode Decoder[B]) ([]B, error) {
	q, err := cypher.Traverse(t, key, value, limit)
	if err != nil {
		return nil, err
	}
	var items []B
	err = observe(ctx, slog.Default(), "traverse", q.Label(), func(ctx context.Context) error {
		var err error
		items, err = Collect(ctx, db, q, cypher.ColNode, decode)
		return err
	})
	return items, err
}

// run executes q in its own session and hands each record to fn. Writes get
// a write session; everything else is routed for reading.
func run(ctx context.Context, db graphdb.Provider, q cypher.Query, fn func(*neo4j.Record) (bool, error)) error {
	mode := graphdb.Read
	if q.Writes() {
		mode = graphdb.Write
	}
	return graphdb.WithSession(ctx, db, mode, func(sess graphdb.Session) error {
		res, err := sess.Run(ctx, q)
		if err != nil {
			return err
		}
		for res.Next(ctx) {
			more, err := fn(res.Record())
			if err != nil {
				return err
			}
			if !more {
				return nil
			}
		}
		return graphdb.Classify(string(q.Shape.Op), q.Label(), res.Err())
	})
}

// Collect runs q and decodes the node in column col of every row.
func Collect[T any](ctx context.Context, db graphdb.Provider, q cypher.Query, col string, decode Decoder[T]) ([]T, error) {
	items := []T{}
	err := run(ctx, db, q, func(rec *neo4j.Record) (bool, error) {
		props, err := nodeProps(q, rec, col)
		if err != nil {
			return false, err
		}
		item, err := decode(props)
		if err != nil {
			return false, badValue(q, err)
		}
		items = append(items, item)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// One runs q and decodes the first row, reporting whether one was returned.
func One[T any](ctx context.Context, db graphdb.Provider, q cypher.Query, col string, decode Decoder[T]) (T, bool, error) {
	var (
		item  T
		found bool
	)
	err := run(ctx, db, q, func(rec *neo4j.Record) (bool, error) {
		props, err := nodeProps(q, rec, col)
		if err != nil {
			return false, err
		}
		item, err = decode(props)
		if err != nil {
			return false, badValue(q, err)
		}
		found = true
		return false, nil
	})
	if err != nil {
		var zero T
		return zero, false, err
	}
	return item, found, nil
}

// CollectPairs runs a traversal returning (a, n) rows and decodes both sides.
func CollectPairs[A, B any](ctx context.Context, db graphdb.Provider, q cypher.Query, decodeA Decoder[A], decodeB Decoder[B]) ([]Pair[A, B], error) {
	pairs := []Pair[A, B]{}
	err := observe(ctx, slog.Default(), "traverse_pairs", q.Label(), func(ctx context.Context) error {
		return run(ctx, db, q, func(rec *neo4j.Record) (bool, error) {
			pa, err := nodeProps(q, rec, cypher.ColSource)
			if err != nil {
				return false, err
			}
			pb, err := nodeProps(q, rec, cypher.ColNode)
			if err != nil {
				return false, err
			}
			a, err := decodeA(pa)
			if err != nil {
				return false, badValue(q, err)
			}
			b, err := decodeB(pb)
			if err != nil {
				return false, badValue(q, err)
			}
			pairs = append(pairs, Pair[A, B]{From: a, To: b})
			return true, nil
		})
	})
	if err != nil {
		return nil, err
	}
	return pairs, nil
}

// Count runs q and returns the integer in column col of the first row.
func Count(ctx context.Context, db graphdb.Provider, q cypher.Query, col string) (int64, error) {
	var n int64
	err := run(ctx, db, q, func(rec *neo4j.Record) (bool, error) {
		v, ok := rec.Get(col)
		if !ok {
			return false, badColumn(q, col, nil)
		}
		i, ok := v.(int64)
		if !ok {
			return false, badColumn(q, col, v)
		}
		n = i
		return false, nil
	})
	return n, err
}

// Counts runs a grouped count query returning (label, count) rows.
func Counts(ctx context.Context, db graphdb.Provider, q cypher.Query) (map[string]int64, error) {
	out := map[string]int64{}
	err := run(ctx, db, q, func(rec *neo4j.Record) (bool, error) {
		lv, _ := rec.Get(cypher.ColLabel)
		cv, _ := rec.Get(cypher.ColCount)
		label, ok := lv.(string)
		if !ok {
			// Unlabelled nodes group under null.
			label = ""
		}
		n, ok := cv.(int64)
		if !ok {
			return false, badColumn(q, cypher.ColCount, cv)
		}
		out[label] += n
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Exec runs q for its side effects, draining any rows.
func Exec(ctx context.Context, db graphdb.Provider, q cypher.Query) error {
	return run(ctx, db, q, func(*neo4j.Record) (bool, error) { return true, nil })
}

func nodeProps(q cypher.Query, rec *neo4j.Record, col string) (map[string]any, error) {
	v, ok := rec.Get(col)
	if !ok {
		return nil, badColumn(q, col, nil)
	}
	switch n := v.(type) {
	case neo4j.Node:
		return n.Props, nil
	case *neo4j.Node:
		return n.Props, nil
	case map[string]any:
		return n, nil
	}
	return nil, badColumn(q, col, v)
}

func badColumn(q cypher.Query, col string, v any) error {
	return domain.NewQueryError(string(q.Shape.Op), q.Label(),
		fmt.Errorf("%w: column %q holds %T", domain.ErrNoResult, col, v))
}

// badValue reports a stored node that does not decode. The query already
// ran, so this is an execution failure rather than bad input.
func badValue(q cypher.Query, err error) error {
	return domain.NewQueryError(string(q.Shape.Op), q.Label(), err)
}
