// Package graphtest provides an in-memory graphdb.Provider for tests. It
// executes builder queries by their Shape, never by parsing Cypher text, and
// tracks outstanding sessions so tests can assert they are released.
package graphtest

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/WessleyAI/fleetgraph/engine/cypher"
	"github.com/WessleyAI/fleetgraph/engine/domain"
	"github.com/WessleyAI/fleetgraph/engine/graphdb"
)

type edge struct {
	rel                string
	fromLabel, fromKey string
	toLabel, toKey     string
}

// Graph is an in-memory property graph. The zero value is not usable; call New.
type Graph struct {
	mu          sync.Mutex
	nodes       map[string]map[string]map[string]any // label -> key -> props
	edges       map[edge]struct{}
	constraints map[string]bool
	open        int
	queries     []cypher.Query

	sessionErr error
	runErr     error
	failNext   error
}

var _ graphdb.Provider = (*Graph)(nil)

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		nodes:       make(map[string]map[string]map[string]any),
		edges:       make(map[edge]struct{}),
		constraints: make(map[string]bool),
	}
}

// FailSessions makes every Session call return err until cleared with nil.
func (g *Graph) FailSessions(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sessionErr = err
}

// FailRuns makes every Run return err until cleared with nil.
func (g *Graph) FailRuns(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.runErr = err
}

// FailNextRun makes only the next Run return err.
func (g *Graph) FailNextRun(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failNext = err
}

// OpenSessions reports sessions acquired but not yet closed.
func (g *Graph) OpenSessions() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.open
}

// Queries returns every query run so far.
func (g *Graph) Queries() []cypher.Query {
	g.mu.Lock()
	defer g.mu.Unlock()
	return slices.Clone(g.queries)
}

// NodeCount returns the number of nodes with label.
func (g *Graph) NodeCount(label string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.nodes[label])
}

// EdgeCount returns the number of rel edges.
func (g *Graph) EdgeCount(rel string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for e := range g.edges {
		if e.rel == rel {
			n++
		}
	}
	return n
}

// HasConstraint reports whether a unique constraint was declared on label.
func (g *Graph) HasConstraint(label string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.constraints[label]
}

// Session implements graphdb.Provider.
func (g *Graph) Session(ctx context.Context, mode graphdb.Mode) (graphdb.Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.sessionErr != nil {
		return nil, g.sessionErr
	}
	g.open++
	return &session{g: g, mode: mode}, nil
}

type session struct {
	g      *Graph
	mode   graphdb.Mode
	closed bool
}

func (s *session) Run(ctx context.Context, q cypher.Query) (graphdb.Result, error) {
	if s.closed {
		return nil, domain.NewConnectionError("run", domain.ErrClosed)
	}
	if err := ctx.Err(); err != nil {
		return nil, graphdb.Classify(string(q.Shape.Op), q.Label(), err)
	}
	if s.mode == graphdb.Read && q.Writes() {
		return nil, graphdb.Classify(string(q.Shape.Op), q.Label(), fmt.Errorf("write query %s in read session", q.Shape.Op))
	}
	rows, err := s.g.exec(q)
	if err != nil {
		return nil, graphdb.Classify(string(q.Shape.Op), q.Label(), err)
	}
	return &result{rows: rows}, nil
}

func (s *session) Close(ctx context.Context) error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.g.mu.Lock()
	s.g.open--
	s.g.mu.Unlock()
	return nil
}

type result struct {
	rows []*neo4j.Record
	i    int
}

func (r *result) Next(ctx context.Context) bool {
	if r.i < len(r.rows) {
		r.i++
		return true
	}
	return false
}

func (r *result) Record() *neo4j.Record { return r.rows[r.i-1] }
func (r *result) Err() error            { return nil }

func (g *Graph) exec(q cypher.Query) ([]*neo4j.Record, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.queries = append(g.queries, q)

	if err := g.failNext; err != nil {
		g.failNext = nil
		return nil, err
	}
	if g.runErr != nil {
		return nil, g.runErr
	}
	if q.Text == "" {
		return nil, fmt.Errorf("empty query text")
	}

	sh := q.Shape
	label := sh.Schema.Label()
	switch sh.Op {
	case cypher.OpLookup:
		return g.lookup(sh, q.Params), nil
	case cypher.OpUpsert:
		props := cloneProps(q.Params[cypher.ParamProps])
		key, _ := q.Params[cypher.ParamKey].(string)
		g.label(label)[key] = props
		return []*neo4j.Record{nodeRecord(label, props)}, nil
	case cypher.OpUpdate:
		key, _ := q.Params[cypher.ParamKey].(string)
		if _, ok := g.nodes[label][key]; !ok {
			return nil, nil
		}
		props := cloneProps(q.Params[cypher.ParamProps])
		g.nodes[label][key] = props
		return []*neo4j.Record{nodeRecord(label, props)}, nil
	case cypher.OpDelete:
		key, _ := q.Params[cypher.ParamKey].(string)
		var n int64
		if _, ok := g.nodes[label][key]; ok {
			delete(g.nodes[label], key)
			for e := range g.edges {
				if (e.fromLabel == label && e.fromKey == key) || (e.toLabel == label && e.toKey == key) {
					delete(g.edges, e)
				}
			}
			n = 1
		}
		return []*neo4j.Record{countRecord(cypher.ColDeleted, n)}, nil
	case cypher.OpList, cypher.OpFilter:
		return g.scan(sh, q.Params)
	case cypher.OpTraverse:
		return g.traverse(sh, q.Params)
	case cypher.OpLink, cypher.OpUnlink:
		return g.link(sh, q.Params), nil
	case cypher.OpCountNodes:
		var rows []*neo4j.Record
		for _, l := range slices.Sorted(maps.Keys(g.nodes)) {
			if n := len(g.nodes[l]); n > 0 {
				rows = append(rows, labelCount(l, int64(n)))
			}
		}
		return rows, nil
	case cypher.OpCountRels:
		counts := map[string]int64{}
		for e := range g.edges {
			counts[e.rel]++
		}
		var rows []*neo4j.Record
		for _, rel := range slices.Sorted(maps.Keys(counts)) {
			rows = append(rows, labelCount(rel, counts[rel]))
		}
		return rows, nil
	case cypher.OpConstraint:
		g.constraints[label] = true
		return nil, nil
	}
	return nil, fmt.Errorf("unsupported op %q", sh.Op)
}

func (g *Graph) label(l string) map[string]map[string]any {
	m, ok := g.nodes[l]
	if !ok {
		m = make(map[string]map[string]any)
		g.nodes[l] = m
	}
	return m
}

func (g *Graph) lookup(sh cypher.Shape, params map[string]any) []*neo4j.Record {
	label := sh.Schema.Label()
	if key, ok := params[cypher.ParamKey].(string); ok {
		props, ok := g.nodes[label][key]
		if !ok {
			return nil
		}
		return []*neo4j.Record{nodeRecord(label, props)}
	}
	for _, key := range slices.Sorted(maps.Keys(g.nodes[label])) {
		props := g.nodes[label][key]
		if compare(props[sh.Field], params[cypher.ParamValue]) == 0 {
			return []*neo4j.Record{nodeRecord(label, props)}
		}
	}
	return nil
}

func (g *Graph) scan(sh cypher.Shape, params map[string]any) ([]*neo4j.Record, error) {
	limit, err := limitOf(params)
	if err != nil {
		return nil, err
	}
	label := sh.Schema.Label()
	var matched []map[string]any
	for _, props := range g.nodes[label] {
		if sh.Op == cypher.OpFilter && !match(props[sh.Field], sh.Cmp, params[cypher.ParamValue]) {
			continue
		}
		matched = append(matched, props)
	}
	slices.SortFunc(matched, func(a, b map[string]any) int {
		return orderCompare(a, b, sh.Schema, sh.Order)
	})
	rows := make([]*neo4j.Record, 0, min(limit, len(matched)))
	for _, props := range matched[:min(limit, len(matched))] {
		rows = append(rows, nodeRecord(label, props))
	}
	return rows, nil
}

type pair struct {
	a, n map[string]any
}

func (g *Graph) traverse(sh cypher.Shape, params map[string]any) ([]*neo4j.Record, error) {
	limit, err := limitOf(params)
	if err != nil {
		return nil, err
	}
	from := sh.Schema.Label()
	var starts []string
	if sh.Anchored {
		key, _ := params[cypher.ParamKey].(string)
		if _, ok := g.nodes[from][key]; ok {
			starts = []string{key}
		}
	} else {
		starts = slices.Collect(maps.Keys(g.nodes[from]))
	}

	target := sh.Target()
	var pairs []pair
	for _, start := range starts {
		frontier := []string{start}
		label := from
		for _, h := range sh.Hops {
			var next []string
			for _, k := range frontier {
				next = append(next, g.step(h, label, k)...)
			}
			frontier, label = next, h.To.Label()
		}
		for _, k := range frontier {
			n := g.nodes[target.Label()][k]
			if sh.Where != nil && !match(n[sh.Where.Field], sh.Where.Cmp, params[cypher.ParamValue]) {
				continue
			}
			pairs = append(pairs, pair{a: g.nodes[from][start], n: n})
		}
	}

	slices.SortFunc(pairs, func(x, y pair) int {
		if sh.SortSource {
			if c := orderCompare(x.a, y.a, sh.Schema, sh.Order); c != 0 {
				return c
			}
			return compare(x.n[target.Key], y.n[target.Key])
		}
		return orderCompare(x.n, y.n, target, sh.Order)
	})

	rows := make([]*neo4j.Record, 0, min(limit, len(pairs)))
	for _, p := range pairs[:min(limit, len(pairs))] {
		rows = append(rows, &neo4j.Record{
			Keys:   []string{cypher.ColSource, cypher.ColNode},
			Values: []any{node(from, p.a), node(target.Label(), p.n)},
		})
	}
	return rows, nil
}

// step returns keys of nodes reachable from (label, key) over one hop. Each
// matching edge yields one entry, so parallel paths produce repeated rows.
func (g *Graph) step(h cypher.Hop, label, key string) []string {
	var out []string
	to := h.To.Label()
	for e := range g.edges {
		if e.rel != h.Rel {
			continue
		}
		switch {
		case h.Dir == cypher.Out && e.fromLabel == label && e.fromKey == key && e.toLabel == to:
			out = append(out, e.toKey)
		case h.Dir == cypher.In && e.toLabel == label && e.toKey == key && e.fromLabel == to:
			out = append(out, e.fromKey)
		}
	}
	slices.Sort(out)
	return out
}

func (g *Graph) link(sh cypher.Shape, params map[string]any) []*neo4j.Record {
	h := sh.Hops[0]
	fromKey, _ := params[cypher.ParamFrom].(string)
	toKey, _ := params[cypher.ParamTo].(string)
	e := edge{
		rel:       h.Rel,
		fromLabel: sh.Schema.Label(), fromKey: fromKey,
		toLabel: h.To.Label(), toKey: toKey,
	}
	if sh.Op == cypher.OpUnlink {
		var n int64
		if _, ok := g.edges[e]; ok {
			delete(g.edges, e)
			n = 1
		}
		return []*neo4j.Record{countRecord(cypher.ColUnlinked, n)}
	}
	_, okFrom := g.nodes[e.fromLabel][fromKey]
	_, okTo := g.nodes[e.toLabel][toKey]
	if !okFrom || !okTo {
		return []*neo4j.Record{countRecord(cypher.ColLinked, 0)}
	}
	g.edges[e] = struct{}{}
	return []*neo4j.Record{countRecord(cypher.ColLinked, 1)}
}

func limitOf(params map[string]any) (int, error) {
	switch v := params[cypher.ParamLimit].(type) {
	case int64:
		return int(v), nil
	case int:
		return v, nil
	}
	return 0, fmt.Errorf("missing $%s", cypher.ParamLimit)
}

func cloneProps(v any) map[string]any {
	m, _ := v.(map[string]any)
	out := make(map[string]any, len(m))
	for k, val := range m {
		// The driver stores Go ints as int64.
		if i, ok := val.(int); ok {
			val = int64(i)
		}
		out[k] = val
	}
	return out
}

func node(label string, props map[string]any) neo4j.Node {
	return neo4j.Node{Labels: []string{label}, Props: maps.Clone(props)}
}

func nodeRecord(label string, props map[string]any) *neo4j.Record {
	return &neo4j.Record{Keys: []string{cypher.ColNode}, Values: []any{node(label, props)}}
}

func countRecord(col string, n int64) *neo4j.Record {
	return &neo4j.Record{Keys: []string{col}, Values: []any{n}}
}

func labelCount(label string, n int64) *neo4j.Record {
	return &neo4j.Record{
		Keys:   []string{cypher.ColLabel, cypher.ColCount},
		Values: []any{label, n},
	}
}

func orderCompare(a, b map[string]any, s domain.Schema, o domain.Order) int {
	c := compare(a[o.Field], b[o.Field])
	if o.Desc {
		c = -c
	}
	if c != 0 {
		return c
	}
	return compare(a[s.Key], b[s.Key])
}

func match(v any, op cypher.Cmp, want any) bool {
	if v == nil || want == nil || !sameClass(v, want) {
		return false
	}
	c := compare(v, want)
	switch op {
	case cypher.Eq:
		return c == 0
	case cypher.Gte:
		return c >= 0
	}
	return false
}

func sameClass(a, b any) bool {
	_, an := number(a)
	_, bn := number(b)
	_, as := a.(string)
	_, bs := b.(string)
	return (an && bn) || (as && bs)
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// compare orders values the way ORDER BY does for the types we store:
// numbers numerically, strings lexically, nulls last.
func compare(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	if x, ok := number(a); ok {
		if y, ok := number(b); ok {
			return cmp.Compare(x, y)
		}
		return -1
	}
	if x, ok := a.(string); ok {
		if y, ok := b.(string); ok {
			return cmp.Compare(x, y)
		}
		return 1
	}
	return cmp.Compare(fmt.Sprint(a), fmt.Sprint(b))
}
