package builder

import (
	"fmt"

	"github.com/satishbabariya/strata/query/ast"
	"github.com/satishbabariya/strata/query/table"
)

// Join attaches tbl under alias. on adds the ON conditions through the
// usual Where calls; it may be nil for CROSS and NATURAL joins.
func (b *QueryBuilder) Join(kind ast.JoinKind, tbl *table.Table, alias string, on func(q *QueryBuilder)) *QueryBuilder {
	var cond ast.Node
	if on != nil {
		sub := b.Clone()
		sub.def.Where = nil
		sub.def.Having = nil
		sub.err = nil

		on(sub)
		if sub.err != nil {
			return b.fail(sub.err)
		}
		if root := sub.def.Where; !root.IsEmpty() {
			cond = root
		}
	}
	return b.addJoin(kind, tbl, alias, cond)
}

func (b *QueryBuilder) addJoin(kind ast.JoinKind, tbl *table.Table, alias string, on ast.Node) *QueryBuilder {
	if alias == "" {
		alias = tbl.Name
	}

	b.def.Joins = append(b.def.Joins, &ast.Join{
		Table: tbl.Name,
		Alias: alias,
		Kind:  kind,
		On:    on,
	})

	joined := make(map[string][]string, len(b.def.JoinedColumns)+1)
	for k, v := range b.def.JoinedColumns {
		joined[k] = v
	}
	joined[alias] = tbl.Columns
	b.def.JoinedColumns = joined
	return b
}

// equiJoin joins on baseColumn = joinColumn.
func (b *QueryBuilder) equiJoin(kind ast.JoinKind, tbl *table.Table, alias, baseColumn, joinColumn string) *QueryBuilder {
	if baseColumn == "" || joinColumn == "" {
		return b.fail(fmt.Errorf("%w: %s join on %s", ErrMissingColumns, kind, tbl.Name))
	}
	on := &ast.Comparison{Field: baseColumn, Operator: ast.Eq, Value: ast.Col(joinColumn)}
	return b.addJoin(kind, tbl, alias, on)
}

// InnerJoin adds INNER JOIN tbl AS alias ON baseColumn = joinColumn.
func (b *QueryBuilder) InnerJoin(tbl *table.Table, alias, baseColumn, joinColumn string) *QueryBuilder {
	return b.equiJoin(ast.InnerJoin, tbl, alias, baseColumn, joinColumn)
}

// LeftJoin adds a LEFT JOIN.
func (b *QueryBuilder) LeftJoin(tbl *table.Table, alias, baseColumn, joinColumn string) *QueryBuilder {
	return b.equiJoin(ast.LeftJoin, tbl, alias, baseColumn, joinColumn)
}

// RightJoin adds a RIGHT JOIN.
func (b *QueryBuilder) RightJoin(tbl *table.Table, alias, baseColumn, joinColumn string) *QueryBuilder {
	return b.equiJoin(ast.RightJoin, tbl, alias, baseColumn, joinColumn)
}

// FullJoin adds a FULL OUTER JOIN.
func (b *QueryBuilder) FullJoin(tbl *table.Table, alias, baseColumn, joinColumn string) *QueryBuilder {
	return b.equiJoin(ast.FullJoin, tbl, alias, baseColumn, joinColumn)
}

// CrossJoin adds a CROSS JOIN without a condition.
func (b *QueryBuilder) CrossJoin(tbl *table.Table, alias string) *QueryBuilder {
	return b.addJoin(ast.CrossJoin, tbl, alias, nil)
}

// NaturalJoin adds a NATURAL JOIN without a condition.
func (b *QueryBuilder) NaturalJoin(tbl *table.Table, alias string) *QueryBuilder {
	return b.addJoin(ast.NaturalJoin, tbl, alias, nil)
}
