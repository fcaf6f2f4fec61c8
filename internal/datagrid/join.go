package datagrid

import (
	"fmt"
	"slices"
)

// joinAliasPrefix starts every synthesized join alias.
const joinAliasPrefix = "s"

// EntityJoin walks an association chain from the root alias and returns the
// alias of the last step. Joins already present on the builder are reused,
// otherwise a left join is added under an alias built from the prefix and
// every step consumed so far ("s_author_company"), so a chain always maps to
// the same alias whatever was joined before.
//
// A synthesized alias that was already registered is reused without a new
// join, even when it was produced by a different chain.
func (pq *ProxyQuery) EntityJoin(associations []string) (string, error) {
	alias := pq.queryBuilder.RootAlias()
	entity := pq.queryBuilder.RootEntity()
	newAlias := joinAliasPrefix

	joins := pq.queryBuilder.Joins()

steps:
	for _, field := range associations {
		target, ok := pq.metadata.AssociationTarget(entity, field)
		if !ok {
			return "", fmt.Errorf("%w: %q has no association %q", ErrUnresolvedAssociation, entity, field)
		}
		entity = target
		newAlias += "_" + field

		// Do not join again what is already joined, by a custom query or an
		// earlier chain.
		expr := alias + "." + field
		for _, j := range joins {
			if j.Join == expr {
				pq.addJoinAlias(j.Alias)
				alias = j.Alias
				continue steps
			}
		}

		if pq.addJoinAlias(newAlias) {
			pq.queryBuilder.LeftJoin(expr, newAlias)
			joins = append(joins, Join{Join: expr, Alias: newAlias})
		}
		alias = newAlias
	}

	return alias, nil
}

// addJoinAlias records alias and reports whether it was new.
func (pq *ProxyQuery) addJoinAlias(alias string) bool {
	if slices.Contains(pq.entityJoinAliases, alias) {
		return false
	}
	pq.entityJoinAliases = append(pq.entityJoinAliases, alias)
	return true
}
