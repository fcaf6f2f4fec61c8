package datagrid

import (
	"fmt"
	"maps"
	"regexp"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/atlekbai/datagrid/internal/schema"
)

const (
	// rowColumn is the JSON row column of the default projection.
	rowColumn = "_row"
	// pageAlias names the distinct page subquery used over collection joins.
	pageAlias = "_page"
)

var fieldRef = regexp.MustCompile(`\b([A-Za-z_][A-Za-z0-9_]*)\.([A-Za-z_][A-Za-z0-9_]*)\b`)

// qi is shorthand for schema.QuoteIdent.
func qi(name string) string { return schema.QuoteIdent(name) }

// ToQuery compiles the page query. When a collection join can repeat root
// rows, the page is taken over distinct root identifiers so that every root
// row fills at most one slot, matching ToCountQuery.
func (b *Builder) ToQuery(hints map[string]any) (Query, error) {
	c, err := b.newCompiler()
	if err != nil {
		return Query{}, err
	}

	var columns []string
	if len(b.selects) == 0 {
		columns = []string{fmt.Sprintf(`to_jsonb(%s.*) AS %s`, qi(b.rootAlias), rowColumn)}
	} else {
		for _, col := range b.selects {
			columns = append(columns, c.qualify(col))
		}
	}

	var qb sq.SelectBuilder
	if c.fansOut {
		qb, err = c.distinctPage(columns)
	} else {
		qb, err = c.ordered(columns)
	}
	if err != nil {
		return Query{}, err
	}
	if b.maxResults > 0 {
		qb = qb.Limit(uint64(b.maxResults))
	}
	if b.firstResult > 0 {
		qb = qb.Offset(uint64(b.firstResult))
	}

	return build(qb, hints)
}

func (c *compiler) ordered(columns []string) (sq.SelectBuilder, error) {
	qb, err := c.filtered(sq.Select(columns...))
	if err != nil {
		return qb, err
	}
	for _, part := range c.b.orderBy {
		sql, args, err := bindNamed(c.qualify(part), c.b.params)
		if err != nil {
			return qb, err
		}
		qb = qb.OrderByClause(sql, args...)
	}
	return qb, nil
}

// distinctPage runs joins and predicates in a DISTINCT ON subquery over the
// root identifiers. The subquery carries the sort keys as _s0, _s1, ... and
// the outer query joins it back to the root table and orders on them. For a
// sort key reached through a collection, the first row per root in sort
// order wins. Custom selects only see the root alias.
func (c *compiler) distinctPage(columns []string) (sq.SelectBuilder, error) {
	root := c.aliases[c.b.rootAlias]
	ids := c.identifierColumns()

	inner := sq.Select().
		Options("DISTINCT ON (" + strings.Join(ids, ", ") + ")").
		OrderBy(ids...)
	on := make([]string, len(ids))
	for i, id := range ids {
		name := fmt.Sprintf("_id%d", i)
		inner = inner.Column(id + " AS " + name)
		on[i] = fmt.Sprintf("%s.%s = %s", qi(pageAlias), name, id)
	}

	var order []string
	for i, part := range c.b.orderBy {
		expr := stripDirection(part)
		dir := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(part), expr))
		sql, args, err := bindNamed(c.qualify(expr), c.b.params)
		if err != nil {
			return inner, err
		}
		key := fmt.Sprintf("_s%d", i)
		inner = inner.
			Column(sq.Alias(sq.Expr(sql, args...), key)).
			OrderByClause(strings.TrimSpace(sql+" "+dir), args...)
		order = append(order, strings.TrimSpace(qi(pageAlias)+"."+key+" "+dir))
	}

	inner, err := c.filtered(inner)
	if err != nil {
		return inner, err
	}
	// Question placeholders keep escaped ?? intact for the outer rebind.
	innerSQL, innerArgs, err := inner.ToSql()
	if err != nil {
		return inner, fmt.Errorf("build page subquery: %w", err)
	}

	return sq.Select(columns...).
		From(root.TableName()+" AS "+qi(c.b.rootAlias)).
		JoinClause(fmt.Sprintf("JOIN (%s) AS %s ON %s", innerSQL, qi(pageAlias), strings.Join(on, " AND ")), innerArgs...).
		OrderBy(order...), nil
}

// ToCountQuery counts distinct root rows matching the joins and predicates.
// Ordering and the page window are ignored.
func (b *Builder) ToCountQuery(hints map[string]any) (Query, error) {
	c, err := b.newCompiler()
	if err != nil {
		return Query{}, err
	}

	cols := c.identifierColumns()
	expr := cols[0]
	if len(cols) > 1 {
		expr = "(" + strings.Join(cols, ", ") + ")"
	}

	qb, err := c.filtered(sq.Select(fmt.Sprintf("count(DISTINCT %s)", expr)))
	if err != nil {
		return Query{}, err
	}
	return build(qb, hints)
}

func build(qb sq.SelectBuilder, hints map[string]any) (Query, error) {
	sql, args, err := qb.PlaceholderFormat(sq.Dollar).ToSql()
	if err != nil {
		return Query{}, fmt.Errorf("build query: %w", err)
	}
	return Query{SQL: sql, Args: args, Hints: maps.Clone(hints)}, nil
}

// compiler translates builder expressions for a single compilation. It maps
// every alias in the query to the object it selects from.
type compiler struct {
	b       *Builder
	aliases map[string]*schema.ObjectDef
	joins   []string
	// fansOut is set when a collection join may repeat root rows.
	fansOut bool
}

func (b *Builder) newCompiler() (*compiler, error) {
	root := b.catalog.Get(b.rootEntity)
	if root == nil {
		return nil, fmt.Errorf("%w: no object registered with api_name %q", ErrInvalidArgument, b.rootEntity)
	}
	c := &compiler{
		b:       b,
		aliases: map[string]*schema.ObjectDef{b.rootAlias: root},
	}
	if err := c.resolveJoins(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *compiler) resolveJoins() error {
	for _, j := range c.b.joins {
		parentAlias, field, ok := strings.Cut(j.Join, ".")
		if !ok {
			return fmt.Errorf("%w: malformed join %q", ErrInvalidArgument, j.Join)
		}
		parent := c.aliases[parentAlias]
		if parent == nil {
			return fmt.Errorf("%w: join %q references unknown alias %q", ErrInvalidArgument, j.Join, parentAlias)
		}
		fd := parent.FieldsByAPIName[field]
		if fd == nil || !fd.IsAssociation() {
			return fmt.Errorf("%w: %q has no association %q", ErrUnresolvedAssociation, parent.APIName, field)
		}
		target := c.b.catalog.GetByID(*fd.LookupObjectID)
		if target == nil {
			return fmt.Errorf("%w: target of %q.%q is not registered", ErrUnresolvedAssociation, parent.APIName, field)
		}

		on, err := joinCondition(parent, parentAlias, fd, target, j.Alias)
		if err != nil {
			return err
		}
		c.aliases[j.Alias] = target
		if fd.Type == schema.FieldCollection {
			c.fansOut = true
		}
		c.joins = append(c.joins, fmt.Sprintf(`%s AS %s ON %s`, target.TableName(), qi(j.Alias), on))
	}
	return nil
}

func joinCondition(parent *schema.ObjectDef, parentAlias string, fd *schema.FieldDef, target *schema.ObjectDef, alias string) (string, error) {
	if fd.Type == schema.FieldCollection {
		if fd.MappedBy == nil {
			return "", fmt.Errorf("%w: collection %q has no mapped_by field", ErrUnresolvedAssociation, fd.APIName)
		}
		return fmt.Sprintf(`%s.%s = %s.%s`,
			qi(alias), qi(target.Column(*fd.MappedBy)),
			qi(parentAlias), qi(parent.Column(parent.Identifiers()[0]))), nil
	}
	return fmt.Sprintf(`%s.%s = %s.%s`,
		qi(alias), qi(target.Column(target.Identifiers()[0])),
		qi(parentAlias), qi(fd.Column())), nil
}

// identifierColumns returns the qualified identifier columns of the root.
func (c *compiler) identifierColumns() []string {
	root := c.aliases[c.b.rootAlias]
	ids := root.Identifiers()
	cols := make([]string, len(ids))
	for i, id := range ids {
		cols[i] = qi(c.b.rootAlias) + "." + qi(root.Column(id))
	}
	return cols
}

// filtered adds FROM, joins and predicates to a select.
func (c *compiler) filtered(qb sq.SelectBuilder) (sq.SelectBuilder, error) {
	root := c.aliases[c.b.rootAlias]
	qb = qb.From(root.TableName() + " AS " + qi(c.b.rootAlias))

	for _, j := range c.joins {
		qb = qb.LeftJoin(j)
	}

	wheres := c.b.wheres
	for _, w := range wheres {
		sql, args, err := bindNamed(c.qualify(w), c.b.params)
		if err != nil {
			return qb, err
		}
		// Squirrel joins predicates with a bare AND.
		if len(wheres) > 1 {
			sql = "(" + sql + ")"
		}
		qb = qb.Where(sq.Expr(sql, args...))
	}
	return qb, nil
}

// qualify rewrites alias.field references into quoted alias and column pairs.
// References to unknown aliases are left alone.
func (c *compiler) qualify(expr string) string {
	return fieldRef.ReplaceAllStringFunc(expr, func(m string) string {
		alias, field, _ := strings.Cut(m, ".")
		obj, ok := c.aliases[alias]
		if !ok {
			return m
		}
		return qi(alias) + "." + qi(obj.Column(field))
	})
}

// bindNamed replaces :name parameters with positional placeholders and
// returns their values in order. Casts (::type) and quoted literals are
// skipped, and literal question marks are escaped for squirrel.
func bindNamed(expr string, params map[string]any) (string, []any, error) {
	var (
		out      strings.Builder
		args     []any
		inString bool
	)
	for i := 0; i < len(expr); i++ {
		ch := expr[i]
		switch {
		case ch == '\'':
			inString = !inString
			out.WriteByte(ch)
			continue
		case ch == '?':
			out.WriteString("??")
			continue
		}
		if inString || ch != ':' || i+1 >= len(expr) || !isIdentStart(expr[i+1]) || (i > 0 && expr[i-1] == ':') {
			out.WriteByte(ch)
			continue
		}

		j := i + 1
		for j < len(expr) && isIdentChar(expr[j]) {
			j++
		}
		name := expr[i+1 : j]
		v, ok := params[name]
		if !ok {
			return "", nil, fmt.Errorf("%w: parameter %q is not bound", ErrInvalidArgument, name)
		}
		out.WriteByte('?')
		args = append(args, v)
		i = j - 1
	}
	return out.String(), args, nil
}

func isIdentStart(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isIdentChar(ch byte) bool {
	return isIdentStart(ch) || (ch >= '0' && ch <= '9')
}
