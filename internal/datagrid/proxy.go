package datagrid

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
)

// Filter mutates a proxy query from the raw input of one filter form field.
type Filter interface {
	Apply(pq *ProxyQuery, data FilterData) error
}

// FilterData is the raw value and operator type submitted for a filter.
// A zero Type selects the filter's default operator.
type FilterData struct {
	Type  int
	Value any
}

// ProxyQuery wraps a QueryBuilder for an admin list. Filters add joins and
// predicates through it, and Finalize produces a deterministically ordered
// query without touching the wrapped builder.
//
// A ProxyQuery is not safe for concurrent use; build one per request.
type ProxyQuery struct {
	queryBuilder      QueryBuilder
	metadata          Metadata
	sortBy            string
	sortOrder         string
	uniqueParameterID int
	entityJoinAliases []string
	hints             map[string]any
}

// NewProxyQuery wraps qb. The proxy takes ownership of the builder.
func NewProxyQuery(qb QueryBuilder, metadata Metadata) *ProxyQuery {
	return &ProxyQuery{
		queryBuilder: qb,
		metadata:     metadata,
		sortOrder:    OrderAsc,
		hints:        make(map[string]any),
	}
}

// QueryBuilder returns the wrapped builder for callers that add their own
// joins or predicates before filters run.
func (pq *ProxyQuery) QueryBuilder() QueryBuilder {
	return pq.queryBuilder
}

// Clone copies the proxy with a deep copy of its builder. The parameter
// counter and join aliases carry over instead of being reset, so a clone
// made mid-way through filtering never reuses a name of its source.
func (pq *ProxyQuery) Clone() *ProxyQuery {
	c := *pq
	c.queryBuilder = pq.queryBuilder.Clone()
	c.entityJoinAliases = slices.Clone(pq.entityJoinAliases)
	c.hints = maps.Clone(pq.hints)
	return &c
}

// SetSort orders the list by field, reached through the association chain.
// order is matched case-insensitively against ASC and DESC.
func (pq *ProxyQuery) SetSort(associations []string, field, order string) error {
	normalized, ok := normalizeSortOrder(order)
	if !ok {
		return fmt.Errorf("%w: %q is not a valid sort order, valid values are %q, %q",
			ErrInvalidOrder, order, OrderAsc, OrderDesc)
	}

	alias, err := pq.EntityJoin(associations)
	if err != nil {
		return fmt.Errorf("sort by %q: %w", field, err)
	}

	pq.sortBy = alias + "." + field
	pq.sortOrder = normalized
	return nil
}

// SortBy returns the qualified sort field, or "" when none was set.
func (pq *ProxyQuery) SortBy() string { return pq.sortBy }

// SortOrder returns ASC or DESC.
func (pq *ProxyQuery) SortOrder() string { return pq.sortOrder }

// SetPageWindow sets the offset of the first row and the maximum number of
// rows. A zero limit means no limit.
func (pq *ProxyQuery) SetPageWindow(offset, limit int) error {
	if offset < 0 || limit < 0 {
		return fmt.Errorf("%w: page window offset=%d limit=%d must not be negative", ErrInvalidArgument, offset, limit)
	}
	pq.queryBuilder.SetFirstResult(offset)
	pq.queryBuilder.SetMaxResults(limit)
	return nil
}

// PageWindow returns the offset and limit set by SetPageWindow.
func (pq *ProxyQuery) PageWindow() (offset, limit int) {
	return pq.queryBuilder.FirstResult(), pq.queryBuilder.MaxResults()
}

// NextParameterName returns the next unique parameter suffix.
func (pq *ProxyQuery) NextParameterName() string {
	id := pq.uniqueParameterID
	pq.uniqueParameterID++
	return strconv.Itoa(id)
}

// EntityJoinAliases returns the join aliases registered so far, in creation order.
func (pq *ProxyQuery) EntityJoinAliases() []string {
	return slices.Clone(pq.entityJoinAliases)
}

// SetHint attaches an execution hint to queries finalized from this proxy.
// Unknown hints are ignored by the executor.
func (pq *ProxyQuery) SetHint(name string, value any) {
	pq.hints[name] = value
}

// ApplyFilter runs f against the proxy.
func (pq *ProxyQuery) ApplyFilter(f Filter, data FilterData) error {
	return f.Apply(pq, data)
}

// Finalize compiles the query with the requested sort first, existing ORDER
// BY parts after it, and the root identifiers last. It may be called any
// number of times.
func (pq *ProxyQuery) Finalize() (Query, error) {
	qb, err := pq.sortedBuilder()
	if err != nil {
		return Query{}, err
	}
	return qb.ToQuery(pq.hints)
}

// FinalizeCount compiles a query counting the distinct root rows that match.
func (pq *ProxyQuery) FinalizeCount() (Query, error) {
	return pq.queryBuilder.ToCountQuery(pq.hints)
}

func (pq *ProxyQuery) sortedBuilder() (QueryBuilder, error) {
	identifiers, err := pq.metadata.IdentifierFields(pq.queryBuilder.RootEntity())
	if err != nil {
		return nil, fmt.Errorf("identifier fields: %w", err)
	}
	return normalizeOrder(pq.queryBuilder, pq.sortBy, pq.sortOrder, identifiers), nil
}
