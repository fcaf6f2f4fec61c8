package filter

import (
	"fmt"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/atlekbai/datagrid/internal/datagrid"
)

// StringOperator selects how a StringFilter compares its value.
type StringOperator int

const (
	Contains StringOperator = iota + 1
	NotContains
	Equal
	StartsWith
	EndsWith
	NotEqual
)

func (op StringOperator) String() string {
	switch op {
	case Contains:
		return "contains"
	case NotContains:
		return "not_contains"
	case Equal:
		return "equal"
	case StartsWith:
		return "starts_with"
	case EndsWith:
		return "ends_with"
	case NotEqual:
		return "not_equal"
	}
	return fmt.Sprintf("StringOperator(%d)", int(op))
}

// ParseStringOperator maps an operator name to its StringOperator.
func ParseStringOperator(name string) (StringOperator, error) {
	for op := Contains; op <= NotEqual; op++ {
		if op.String() == name {
			return op, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown string operator %q", datagrid.ErrInvalidArgument, name)
}

var _ datagrid.Filter = (*StringFilter)(nil)

// StringFilter matches a text field against the submitted value.
type StringFilter struct {
	base
	functions ComparatorResolver
}

// NewStringFilter returns a filter named name. functions resolves the
// case-sensitive comparator and may be nil.
func NewStringFilter(name string, opts Options, functions ComparatorResolver) *StringFilter {
	return &StringFilter{
		base:      newBase(name, opts),
		functions: functions,
	}
}

// Apply joins the parent associations and filters the configured field.
func (f *StringFilter) Apply(pq *datagrid.ProxyQuery, data datagrid.FilterData) error {
	op, value, ok, err := f.prepare(data)
	if err != nil || !ok {
		return err
	}
	alias, err := pq.EntityJoin(f.opts.ParentAssociations)
	if err != nil {
		return fmt.Errorf("filter %q: %w", f.name, err)
	}
	f.filter(pq, alias, f.opts.FieldName, op, value)
	return nil
}

// Filter adds the predicate for alias.field. It leaves pq untouched when
// the value is empty and empty values are not allowed.
func (f *StringFilter) Filter(pq *datagrid.ProxyQuery, alias, field string, data datagrid.FilterData) error {
	op, value, ok, err := f.prepare(data)
	if err != nil || !ok {
		return err
	}
	f.filter(pq, alias, field, op, value)
	return nil
}

// prepare validates the operator and reports whether the value activates
// the filter. "0" is a value like any other.
func (f *StringFilter) prepare(data datagrid.FilterData) (StringOperator, string, bool, error) {
	op := StringOperator(data.Type)
	if data.Type == 0 {
		op = Contains
	}
	if op < Contains || op > NotEqual {
		return 0, "", false, fmt.Errorf("filter %q: %w: unknown string operator %d", f.name, datagrid.ErrInvalidArgument, data.Type)
	}

	value, err := scalarString(data.Value)
	if err != nil {
		return 0, "", false, fmt.Errorf("filter %q: %w", f.name, err)
	}
	if value == "" && !f.opts.AllowEmpty {
		return op, "", false, nil
	}
	return op, value, true, nil
}

func (f *StringFilter) filter(pq *datagrid.ProxyQuery, alias, field string, op StringOperator, value string) {
	column := alias + "." + field
	parameterName := f.newParameterName(pq)
	placeholder := ":" + parameterName
	left := column

	switch cs := f.opts.CaseSensitive; {
	case cs == nil:
	case *cs:
		if f.functions != nil {
			if binary, ok := f.functions.Lookup(BinaryFunction); ok {
				placeholder = binary(placeholder)
			}
		}
	default:
		left = "LOWER(" + column + ")"
		value = cases.Lower(language.Und).String(value)
	}

	var predicate string
	switch op {
	case Equal:
		predicate = fmt.Sprintf("%s = %s", left, placeholder)
	case NotEqual:
		predicate = fmt.Sprintf("%s <> %s OR %s IS NULL", left, placeholder, column)
	case NotContains:
		predicate = fmt.Sprintf("%s NOT LIKE %s OR %s IS NULL", left, placeholder, column)
	default:
		predicate = fmt.Sprintf("%s LIKE %s", left, placeholder)
	}

	qb := pq.QueryBuilder()
	qb.AndWhere(predicate)
	qb.SetParameter(parameterName, pattern(op, value))
	f.active = true
}

// pattern adds LIKE wildcards around the bound value.
func pattern(op StringOperator, value string) string {
	switch op {
	case Contains, NotContains:
		return "%" + value + "%"
	case StartsWith:
		return value + "%"
	case EndsWith:
		return "%" + value
	}
	return value
}
