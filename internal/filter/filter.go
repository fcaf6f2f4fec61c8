// Package filter holds the admin list filters that narrow a datagrid.ProxyQuery.
package filter

import (
	"fmt"
	"strings"

	"github.com/atlekbai/datagrid/internal/datagrid"
)

// Options configures a filter.
type Options struct {
	// FieldName is the filtered field. Defaults to the filter name.
	FieldName string
	// ParentAssociations is the association chain from the root entity to
	// the entity holding FieldName.
	ParentAssociations []string
	// CaseSensitive is nil for the default (case preserved, no comparator).
	CaseSensitive *bool
	// AllowEmpty lets an empty value filter instead of being ignored.
	AllowEmpty bool
}

// base carries what every filter shares: its name, options and whether its
// last application changed the query.
type base struct {
	name   string
	opts   Options
	active bool
}

func newBase(name string, opts Options) base {
	if opts.FieldName == "" {
		opts.FieldName = name
	}
	return base{name: name, opts: opts}
}

func (b *base) Name() string { return b.name }

func (b *base) Options() Options { return b.opts }

// IsActive reports whether the filter added a predicate.
func (b *base) IsActive() bool { return b.active }

// newParameterName returns a parameter name unique within pq.
func (b *base) newParameterName(pq *datagrid.ProxyQuery) string {
	return strings.ReplaceAll(b.name, ".", "_") + "_" + pq.NextParameterName()
}

// scalarString converts a submitted value to its string form. Nil, false and
// empty slices are the empty string, true is "1"; other slices are rejected.
func scalarString(v any) (string, error) {
	switch v := v.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case []string:
		if len(v) == 0 {
			return "", nil
		}
	case []any:
		if len(v) == 0 {
			return "", nil
		}
	case bool:
		if v {
			return "1", nil
		}
		return "", nil
	case fmt.Stringer:
		return v.String(), nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return fmt.Sprint(v), nil
	}
	return "", fmt.Errorf("%w: %T is not a scalar filter value", datagrid.ErrInvalidArgument, v)
}
