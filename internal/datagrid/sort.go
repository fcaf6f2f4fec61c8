package datagrid

import (
	"slices"
	"strings"
)

const (
	OrderAsc  = "ASC"
	OrderDesc = "DESC"
)

// normalizeOrder returns a copy of qb whose ORDER BY starts with sortBy (when
// set), keeps the parts already present, and ends with every identifier field
// of the root entity not yet ordered on. Databases give no stable row order
// for ties, so the identifiers keep page windows from overlapping.
func normalizeOrder(qb QueryBuilder, sortBy, sortOrder string, identifiers []string) QueryBuilder {
	qb = qb.Clone()
	rootAlias := qb.RootAlias()

	if sortBy != "" {
		existing := qb.OrderBy()
		qb.ResetOrderBy()

		if !strings.Contains(sortBy, ".") {
			sortBy = rootAlias + "." + sortBy
		}
		qb.AddOrderBy(sortBy, sortOrder)
		for _, part := range existing {
			qb.AddOrderBy(part, "")
		}
	}

	ordered := make([]string, 0, len(qb.OrderBy()))
	for _, part := range qb.OrderBy() {
		ordered = append(ordered, stripDirection(part))
	}

	for _, id := range identifiers {
		field := rootAlias + "." + id
		if !slices.Contains(ordered, field) {
			qb.AddOrderBy(field, sortOrder)
		}
	}

	return qb
}

// stripDirection removes a trailing ASC or DESC keyword from an ORDER BY part.
func stripDirection(part string) string {
	part = strings.TrimSpace(part)
	i := strings.LastIndexByte(part, ' ')
	if i < 0 {
		return part
	}
	switch strings.ToUpper(part[i+1:]) {
	case OrderAsc, OrderDesc:
		return strings.TrimSpace(part[:i])
	}
	return part
}

// normalizeSortOrder validates order case-insensitively and returns it upper-cased.
func normalizeSortOrder(order string) (string, bool) {
	switch o := strings.ToUpper(strings.TrimSpace(order)); o {
	case OrderAsc, OrderDesc:
		return o, true
	}
	return "", false
}
