// Package cypher turns logical graph operations into parameterized Cypher.
//
// Every caller-supplied value travels in Query.Params under a fixed name
// ($key, $props, $value, $from, $to, $limit). Query text is assembled only
// from schema identifiers, which are checked against the identifier grammar
// and the kind's declared properties before use.
package cypher

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/WessleyAI/fleetgraph/engine/domain"
)

// Op names the logical operation a Query performs.
type Op string

const (
	OpLookup     Op = "lookup"
	OpUpsert     Op = "upsert"
	OpUpdate     Op = "update"
	OpDelete     Op = "delete"
	OpList       Op = "list"
	OpFilter     Op = "filter"
	OpTraverse   Op = "traverse"
	OpLink       Op = "link"
	OpUnlink     Op = "unlink"
	OpCountNodes Op = "count_nodes"
	OpCountRels  Op = "count_relationships"
	OpConstraint Op = "constraint"
)

// Result columns.
const (
	ColNode     = "n"
	ColSource   = "a"
	ColDeleted  = "deleted"
	ColLinked   = "linked"
	ColUnlinked = "unlinked"
	ColLabel    = "label"
	ColCount    = "count"
)

// Parameter names.
const (
	ParamKey   = "key"
	ParamProps = "props"
	ParamValue = "value"
	ParamFrom  = "from"
	ParamTo    = "to"
	ParamLimit = "limit"
)

// Dir is the direction of a relationship relative to the node it is read from.
type Dir int

const (
	Out Dir = iota
	In
)

func (d Dir) String() string {
	if d == In {
		return "in"
	}
	return "out"
}

// Cmp is a comparison operator usable in a predicate.
type Cmp string

const (
	Eq  Cmp = "="
	Gte Cmp = ">="
)

// Predicate compares one declared property against the bound $value.
type Predicate struct {
	Field string
	Cmp   Cmp
}

// Hop is one relationship step to a node of kind To.
type Hop struct {
	Rel string
	Dir Dir
	To  domain.Schema
}

// Shape describes the logical operation behind a Query. It carries no
// caller values; those live in Params.
type Shape struct {
	Op     Op
	Schema domain.Schema
	// Field is the property matched by LookupBy and Filter.
	Field string
	Cmp   Cmp
	// Hops is set for traversals, links and unlinks.
	Hops []Hop
	// Anchored traversals start from the node whose key is $key.
	Anchored bool
	// Where filters traversal targets.
	Where *Predicate
	Order domain.Order
	// SortSource orders traversal rows by the source node instead of the target.
	SortSource bool
}

// Target returns the schema of the nodes a query returns in column n.
func (s Shape) Target() domain.Schema {
	if len(s.Hops) > 0 {
		return s.Hops[len(s.Hops)-1].To
	}
	return s.Schema
}

// Query is a parameterized Cypher statement plus the shape it was built from.
type Query struct {
	Shape  Shape
	Text   string
	Params map[string]any
}

// Label returns the primary label the query operates on.
func (q Query) Label() string { return q.Shape.Schema.Label() }

// Writes reports whether the query modifies the graph.
func (q Query) Writes() bool {
	switch q.Shape.Op {
	case OpUpsert, OpUpdate, OpDelete, OpLink, OpUnlink, OpConstraint:
		return true
	}
	return false
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func ident(s string) error {
	if !identRe.MatchString(s) {
		return domain.NewValidationError("identifier", s, domain.ErrInvalidIdentifier)
	}
	return nil
}

func checkSchema(s domain.Schema) error {
	if err := ident(s.Label()); err != nil {
		return err
	}
	if err := ident(s.Key); err != nil {
		return err
	}
	return nil
}

func checkField(s domain.Schema, field string) error {
	if err := ident(field); err != nil {
		return err
	}
	if !s.HasField(field) {
		return domain.NewValidationError("field", field, domain.ErrInvalidIdentifier)
	}
	return nil
}

func checkKey(field, key string) error {
	if key == "" {
		return domain.NewValidationError(field, key, domain.ErrRequired)
	}
	return nil
}

// nodePattern renders (v:Label {key: $param}) or (v:Label) when param is empty.
func nodePattern(v string, s domain.Schema, param string) string {
	if param == "" {
		return fmt.Sprintf("(%s:%s)", v, s.Label())
	}
	return fmt.Sprintf("(%s:%s {%s: $%s})", v, s.Label(), s.Key, param)
}

func relPattern(h Hop) string {
	if h.Dir == In {
		return fmt.Sprintf("<-[:%s]-", h.Rel)
	}
	return fmt.Sprintf("-[:%s]->", h.Rel)
}

// orderBy renders ORDER BY on v's order field, tie-broken by its key.
func orderBy(v string, s domain.Schema, o domain.Order) string {
	dir := ""
	if o.Desc {
		dir = " DESC"
	}
	clause := fmt.Sprintf("ORDER BY %s.%s%s", v, o.Field, dir)
	if o.Field != s.Key {
		clause += fmt.Sprintf(", %s.%s", v, s.Key)
	}
	return clause
}

func limitParam(limit int) (int64, error) {
	if err := domain.CheckLimit(limit); err != nil {
		return 0, err
	}
	return int64(limit), nil
}

func checkProps(s domain.Schema, props map[string]any) (string, error) {
	for field := range props {
		if err := checkField(s, field); err != nil {
			return "", err
		}
	}
	key, _ := props[s.Key].(string)
	if err := checkKey(s.Key, key); err != nil {
		return "", err
	}
	return key, nil
}

// Lookup finds one node by its identity key.
func Lookup(s domain.Schema, key string) (Query, error) {
	if err := checkSchema(s); err != nil {
		return Query{}, err
	}
	if err := checkKey(s.Key, key); err != nil {
		return Query{}, err
	}
	return Query{
		Shape:  Shape{Op: OpLookup, Schema: s, Field: s.Key, Cmp: Eq},
		Text:   fmt.Sprintf("MATCH %s RETURN n LIMIT 1", nodePattern("n", s, ParamKey)),
		Params: map[string]any{ParamKey: key},
	}, nil
}

// LookupBy finds the first node whose field equals value, ordered by key.
func LookupBy(s domain.Schema, field, value string) (Query, error) {
	if err := checkSchema(s); err != nil {
		return Query{}, err
	}
	if err := checkField(s, field); err != nil {
		return Query{}, err
	}
	if err := checkKey(field, value); err != nil {
		return Query{}, err
	}
	text := fmt.Sprintf("MATCH (n:%s) WHERE n.%s = $%s RETURN n ORDER BY n.%s LIMIT 1",
		s.Label(), field, ParamValue, s.Key)
	return Query{
		Shape:  Shape{Op: OpLookup, Schema: s, Field: field, Cmp: Eq},
		Text:   text,
		Params: map[string]any{ParamValue: value},
	}, nil
}

// Upsert merges a node on its identity key and replaces its properties.
// Running it twice with the same props leaves exactly one node.
func Upsert(s domain.Schema, props map[string]any) (Query, error) {
	if err := checkSchema(s); err != nil {
		return Query{}, err
	}
	key, err := checkProps(s, props)
	if err != nil {
		return Query{}, err
	}
	return Query{
		Shape:  Shape{Op: OpUpsert, Schema: s},
		Text:   fmt.Sprintf("MERGE %s SET n = $%s RETURN n", nodePattern("n", s, ParamKey), ParamProps),
		Params: map[string]any{ParamKey: key, ParamProps: props},
	}, nil
}

// Update replaces the properties of an existing node. It returns no rows
// when the key is absent.
func Update(s domain.Schema, props map[string]any) (Query, error) {
	if err := checkSchema(s); err != nil {
		return Query{}, err
	}
	key, err := checkProps(s, props)
	if err != nil {
		return Query{}, err
	}
	return Query{
		Shape:  Shape{Op: OpUpdate, Schema: s},
		Text:   fmt.Sprintf("MATCH %s SET n = $%s RETURN n", nodePattern("n", s, ParamKey), ParamProps),
		Params: map[string]any{ParamKey: key, ParamProps: props},
	}, nil
}

// Delete removes a node and its relationships, returning the count removed.
func Delete(s domain.Schema, key string) (Query, error) {
	if err := checkSchema(s); err != nil {
		return Query{}, err
	}
	if err := checkKey(s.Key, key); err != nil {
		return Query{}, err
	}
	return Query{
		Shape:  Shape{Op: OpDelete, Schema: s},
		Text:   fmt.Sprintf("MATCH %s DETACH DELETE n RETURN count(n) AS %s", nodePattern("n", s, ParamKey), ColDeleted),
		Params: map[string]any{ParamKey: key},
	}, nil
}

// List returns up to limit nodes of a kind in order.
func List(s domain.Schema, order domain.Order, limit int) (Query, error) {
	if err := checkSchema(s); err != nil {
		return Query{}, err
	}
	if err := checkField(s, order.Field); err != nil {
		return Query{}, err
	}
	lim, err := limitParam(limit)
	if err != nil {
		return Query{}, err
	}
	text := fmt.Sprintf("MATCH (n:%s) RETURN n %s LIMIT $%s", s.Label(), orderBy("n", s, order), ParamLimit)
	return Query{
		Shape:  Shape{Op: OpList, Schema: s, Order: order},
		Text:   text,
		Params: map[string]any{ParamLimit: lim},
	}, nil
}

// Filter returns up to limit nodes whose field compares true against value.
func Filter(s domain.Schema, pred Predicate, value any, order domain.Order, limit int) (Query, error) {
	if err := checkSchema(s); err != nil {
		return Query{}, err
	}
	if err := checkPredicate(s, pred); err != nil {
		return Query{}, err
	}
	if err := checkField(s, order.Field); err != nil {
		return Query{}, err
	}
	lim, err := limitParam(limit)
	if err != nil {
		return Query{}, err
	}
	text := fmt.Sprintf("MATCH (n:%s) WHERE n.%s %s $%s RETURN n %s LIMIT $%s",
		s.Label(), pred.Field, pred.Cmp, ParamValue, orderBy("n", s, order), ParamLimit)
	return Query{
		Shape:  Shape{Op: OpFilter, Schema: s, Field: pred.Field, Cmp: pred.Cmp, Order: order},
		Text:   text,
		Params: map[string]any{ParamValue: value, ParamLimit: lim},
	}, nil
}

func checkPredicate(s domain.Schema, p Predicate) error {
	if err := checkField(s, p.Field); err != nil {
		return err
	}
	switch p.Cmp {
	case Eq, Gte:
		return nil
	}
	return domain.NewValidationError("cmp", string(p.Cmp), domain.ErrInvalidIdentifier)
}

// Traversal is a fixed path from a source kind through one or more hops.
type Traversal struct {
	From  domain.Schema
	Hops  []Hop
	Where *Predicate
	Order domain.Order
	// SortSource orders by the source node's field rather than the target's.
	SortSource bool
}

func (t Traversal) target() domain.Schema {
	return t.Hops[len(t.Hops)-1].To
}

func (t Traversal) check() error {
	if len(t.Hops) == 0 {
		return domain.NewValidationError("hops", "", domain.ErrRequired)
	}
	if err := checkSchema(t.From); err != nil {
		return err
	}
	for _, h := range t.Hops {
		if err := ident(h.Rel); err != nil {
			return err
		}
		if err := checkSchema(h.To); err != nil {
			return err
		}
	}
	if t.Where != nil {
		if err := checkPredicate(t.target(), *t.Where); err != nil {
			return err
		}
	}
	sortSchema := t.target()
	if t.SortSource {
		sortSchema = t.From
	}
	return checkField(sortSchema, t.Order.Field)
}

func (t Traversal) text(anchored bool) string {
	var b strings.Builder
	b.WriteString("MATCH ")
	if anchored {
		b.WriteString(nodePattern("a", t.From, ParamKey))
	} else {
		b.WriteString(nodePattern("a", t.From, ""))
	}
	for i, h := range t.Hops {
		b.WriteString(relPattern(h))
		if i == len(t.Hops)-1 {
			fmt.Fprintf(&b, "(n:%s)", h.To.Label())
		} else {
			fmt.Fprintf(&b, "(:%s)", h.To.Label())
		}
	}
	if t.Where != nil {
		fmt.Fprintf(&b, " WHERE n.%s %s $%s", t.Where.Field, t.Where.Cmp, ParamValue)
	}
	b.WriteString(" RETURN a, n ")
	if t.SortSource {
		b.WriteString(orderBy("a", t.From, t.Order))
		fmt.Fprintf(&b, ", n.%s", t.target().Key)
	} else {
		b.WriteString(orderBy("n", t.target(), t.Order))
	}
	fmt.Fprintf(&b, " LIMIT $%s", ParamLimit)
	return b.String()
}

func (t Traversal) shape(anchored bool) Shape {
	return Shape{
		Op:         OpTraverse,
		Schema:     t.From,
		Hops:       t.Hops,
		Anchored:   anchored,
		Where:      t.Where,
		Order:      t.Order,
		SortSource: t.SortSource,
	}
}

// Traverse follows t from the source node with identity key.
func Traverse(t Traversal, key string, value any, limit int) (Query, error) {
	if err := t.check(); err != nil {
		return Query{}, err
	}
	if err := checkKey(t.From.Key, key); err != nil {
		return Query{}, err
	}
	lim, err := limitParam(limit)
	if err != nil {
		return Query{}, err
	}
	params := map[string]any{ParamKey: key, ParamLimit: lim}
	if t.Where != nil {
		params[ParamValue] = value
	}
	return Query{Shape: t.shape(true), Text: t.text(true), Params: params}, nil
}

// Pairs follows t from every source node, returning (a, n) rows.
func Pairs(t Traversal, value any, limit int) (Query, error) {
	if err := t.check(); err != nil {
		return Query{}, err
	}
	lim, err := limitParam(limit)
	if err != nil {
		return Query{}, err
	}
	params := map[string]any{ParamLimit: lim}
	if t.Where != nil {
		params[ParamValue] = value
	}
	return Query{Shape: t.shape(false), Text: t.text(false), Params: params}, nil
}

// Relation is a directed relationship type between two kinds.
type Relation struct {
	From domain.Schema
	Rel  string
	To   domain.Schema
}

func (r Relation) check() error {
	if err := checkSchema(r.From); err != nil {
		return err
	}
	if err := checkSchema(r.To); err != nil {
		return err
	}
	return ident(r.Rel)
}

func (r Relation) shape(op Op) Shape {
	return Shape{Op: op, Schema: r.From, Hops: []Hop{{Rel: r.Rel, Dir: Out, To: r.To}}}
}

// Link merges one r edge between two existing nodes. It returns linked=0
// when either endpoint is absent.
func Link(r Relation, fromKey, toKey string) (Query, error) {
	if err := r.check(); err != nil {
		return Query{}, err
	}
	if err := checkKey(ParamFrom, fromKey); err != nil {
		return Query{}, err
	}
	if err := checkKey(ParamTo, toKey); err != nil {
		return Query{}, err
	}
	text := fmt.Sprintf("MATCH %s MATCH %s MERGE (a)-[r:%s]->(b) RETURN count(r) AS %s",
		nodePattern("a", r.From, ParamFrom), nodePattern("b", r.To, ParamTo), r.Rel, ColLinked)
	return Query{
		Shape:  r.shape(OpLink),
		Text:   text,
		Params: map[string]any{ParamFrom: fromKey, ParamTo: toKey},
	}, nil
}

// Unlink deletes the r edges between two nodes.
func Unlink(r Relation, fromKey, toKey string) (Query, error) {
	if err := r.check(); err != nil {
		return Query{}, err
	}
	if err := checkKey(ParamFrom, fromKey); err != nil {
		return Query{}, err
	}
	if err := checkKey(ParamTo, toKey); err != nil {
		return Query{}, err
	}
	text := fmt.Sprintf("MATCH %s-[r:%s]->%s DELETE r RETURN count(r) AS %s",
		nodePattern("a", r.From, ParamFrom), r.Rel, nodePattern("b", r.To, ParamTo), ColUnlinked)
	return Query{
		Shape:  r.shape(OpUnlink),
		Text:   text,
		Params: map[string]any{ParamFrom: fromKey, ParamTo: toKey},
	}, nil
}

// CountNodes counts nodes grouped by their first label.
func CountNodes() Query {
	return Query{
		Shape: Shape{Op: OpCountNodes},
		Text:  fmt.Sprintf("MATCH (n) RETURN labels(n)[0] AS %s, count(*) AS %s", ColLabel, ColCount),
	}
}

// CountRelationships counts relationships grouped by type.
func CountRelationships() Query {
	return Query{
		Shape: Shape{Op: OpCountRels},
		Text:  fmt.Sprintf("MATCH ()-[r]->() RETURN type(r) AS %s, count(*) AS %s", ColLabel, ColCount),
	}
}

// UniqueConstraint declares the identity key of s unique.
func UniqueConstraint(s domain.Schema) (Query, error) {
	if err := checkSchema(s); err != nil {
		return Query{}, err
	}
	name := strings.ToLower(s.Label()) + "_" + s.Key + "_unique"
	text := fmt.Sprintf("CREATE CONSTRAINT %s IF NOT EXISTS FOR (n:%s) REQUIRE n.%s IS UNIQUE",
		name, s.Label(), s.Key)
	return Query{Shape: Shape{Op: OpConstraint, Schema: s}, Text: text}, nil
}
