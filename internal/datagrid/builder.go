package datagrid

import (
	"maps"
	"slices"
	"strings"
)

// Join is a left join from an association expression ("parent.field") to an alias.
type Join struct {
	Join  string
	Alias string
}

// String renders the join the way it appears in the query parts.
func (j Join) String() string {
	return "LEFT JOIN " + j.Join + " AS " + j.Alias
}

// QueryBuilder is the mutable query the proxy wraps. Expressions use
// "alias.field" references and ":name" parameters; the builder translates
// them when producing SQL.
type QueryBuilder interface {
	Clone() QueryBuilder
	RootAlias() string
	RootEntity() string

	Joins() []Join
	LeftJoin(join, alias string)

	AndWhere(predicate string)
	Wheres() []string
	SetParameter(name string, value any)
	Parameters() map[string]any

	// OrderBy returns the ORDER BY parts, each "expr" or "expr DIR".
	OrderBy() []string
	ResetOrderBy()
	AddOrderBy(sort, order string)

	SetFirstResult(n int)
	FirstResult() int
	SetMaxResults(n int)
	MaxResults() int

	ToQuery(hints map[string]any) (Query, error)
	ToCountQuery(hints map[string]any) (Query, error)
}

// Query is a compiled statement ready for execution.
type Query struct {
	SQL   string
	Args  []any
	Hints map[string]any
}

// Builder is the squirrel-backed QueryBuilder for objects described by a Catalog.
type Builder struct {
	catalog     Catalog
	rootEntity  string
	rootAlias   string
	selects     []string
	joins       []Join
	wheres      []string
	params      map[string]any
	orderBy     []string
	firstResult int
	maxResults  int
}

// NewBuilder returns a builder selecting from entity under alias.
func NewBuilder(catalog Catalog, entity, alias string) *Builder {
	return &Builder{
		catalog:    catalog,
		rootEntity: entity,
		rootAlias:  alias,
		params:     make(map[string]any),
	}
}

// Select replaces the default row projection with explicit columns.
func (b *Builder) Select(columns ...string) {
	b.selects = slices.Clone(columns)
}

func (b *Builder) Clone() QueryBuilder {
	c := *b
	c.selects = slices.Clone(b.selects)
	c.joins = slices.Clone(b.joins)
	c.wheres = slices.Clone(b.wheres)
	c.params = maps.Clone(b.params)
	c.orderBy = slices.Clone(b.orderBy)
	return &c
}

func (b *Builder) RootAlias() string  { return b.rootAlias }
func (b *Builder) RootEntity() string { return b.rootEntity }

func (b *Builder) Joins() []Join { return slices.Clone(b.joins) }

func (b *Builder) LeftJoin(join, alias string) {
	b.joins = append(b.joins, Join{Join: join, Alias: alias})
}

func (b *Builder) AndWhere(predicate string) {
	b.wheres = append(b.wheres, predicate)
}

func (b *Builder) Wheres() []string { return slices.Clone(b.wheres) }

func (b *Builder) SetParameter(name string, value any) {
	b.params[name] = value
}

func (b *Builder) Parameters() map[string]any { return maps.Clone(b.params) }

func (b *Builder) OrderBy() []string { return slices.Clone(b.orderBy) }

func (b *Builder) ResetOrderBy() { b.orderBy = nil }

func (b *Builder) AddOrderBy(sort, order string) {
	b.orderBy = append(b.orderBy, strings.TrimSpace(sort+" "+order))
}

func (b *Builder) SetFirstResult(n int) { b.firstResult = n }
func (b *Builder) FirstResult() int     { return b.firstResult }
func (b *Builder) SetMaxResults(n int)  { b.maxResults = n }
func (b *Builder) MaxResults() int      { return b.maxResults }
