package builder

import (
	"fmt"
	"reflect"

	"github.com/satishbabariya/strata/query/ast"
)

// comparison builds the node for field op value. Negated operator
// spellings become Not{Comparison{base}}; negate flips the result once
// more.
func comparison(field string, op ast.Operator, value any, negate bool) (ast.Node, error) {
	base, negated := ast.Normalize(op)

	c := &ast.Comparison{Field: field, Operator: base}
	switch base {
	case ast.In, ast.Between:
		values, err := toValues(value)
		if err != nil {
			return nil, fmt.Errorf("%w: %s on %q: %v", ast.ErrInvalidComparison, base, field, err)
		}
		c.Values = values
	case ast.IsNull:
	default:
		c.Value = value
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	var node ast.Node = c
	if negated != negate {
		node = &ast.Not{Child: c}
	}
	return node, nil
}

// toValues converts any slice or array into []any.
func toValues(value any) ([]any, error) {
	if values, ok := value.([]any); ok {
		if values == nil {
			return []any{}, nil
		}
		return values, nil
	}

	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("expected a list, got %T", value)
	}
	values := make([]any, rv.Len())
	for i := range values {
		values[i] = rv.Index(i).Interface()
	}
	return values, nil
}

// attach splices node into the root of clause. When the root already
// joins with op the node is appended, otherwise the root is regrouped as
// op[oldRoot, node]. An empty root takes op. Groups are never mutated in
// place.
func (b *QueryBuilder) attach(clause ast.Clause, node ast.Node, op ast.LogicalOperator) *QueryBuilder {
	root := b.def.Root(clause)

	if root.IsEmpty() || root.Operator == op {
		var children []ast.Node
		if root != nil {
			children = make([]ast.Node, 0, len(root.Children)+1)
			children = append(children, root.Children...)
		}
		children = append(children, node)
		b.def.SetRoot(clause, &ast.Group{Operator: op, Children: children})
		return b
	}

	b.def.SetRoot(clause, &ast.Group{Operator: op, Children: []ast.Node{root, node}})
	return b
}

func (b *QueryBuilder) condition(clause ast.Clause, field string, op ast.Operator, value any, logical ast.LogicalOperator, negate bool) *QueryBuilder {
	node, err := comparison(field, op, value, negate)
	if err != nil {
		return b.fail(err)
	}
	return b.attach(clause, node, logical)
}

// group runs fn on a clone with empty predicate roots and splices the
// root it produced. A callback that adds nothing is a no-op.
func (b *QueryBuilder) group(clause ast.Clause, fn func(*QueryBuilder), logical ast.LogicalOperator, negate bool) *QueryBuilder {
	sub := b.Clone()
	sub.def.Where = nil
	sub.def.Having = nil
	sub.err = nil

	fn(sub)
	if sub.err != nil {
		return b.fail(sub.err)
	}

	root := sub.def.Root(clause)
	if root.IsEmpty() {
		return b
	}

	var node ast.Node = root
	if negate {
		node = &ast.Not{Child: root}
	}
	return b.attach(clause, node, logical)
}

func (b *QueryBuilder) raw(clause ast.Clause, sql string, params []any, logical ast.LogicalOperator) *QueryBuilder {
	return b.attach(clause, &ast.Raw{SQL: sql, Params: params}, logical)
}

// Where ANDs field op value into WHERE. In, NotIn, Between and
// NotBetween take a slice; IsNull and IsNotNull ignore value.
func (b *QueryBuilder) Where(field string, op ast.Operator, value any) *QueryBuilder {
	return b.condition(ast.Where, field, op, value, ast.AND, false)
}

// OrWhere ORs field op value into WHERE.
func (b *QueryBuilder) OrWhere(field string, op ast.Operator, value any) *QueryBuilder {
	return b.condition(ast.Where, field, op, value, ast.OR, false)
}

// WhereGroup ANDs the conditions added by fn as one parenthesized group.
func (b *QueryBuilder) WhereGroup(fn func(q *QueryBuilder)) *QueryBuilder {
	return b.group(ast.Where, fn, ast.AND, false)
}

// OrWhereGroup ORs the conditions added by fn as one group.
func (b *QueryBuilder) OrWhereGroup(fn func(q *QueryBuilder)) *QueryBuilder {
	return b.group(ast.Where, fn, ast.OR, false)
}

// WhereRaw ANDs a SQL fragment with ? placeholders into WHERE.
func (b *QueryBuilder) WhereRaw(sql string, params ...any) *QueryBuilder {
	return b.raw(ast.Where, sql, params, ast.AND)
}

// OrWhereRaw ORs a SQL fragment into WHERE.
func (b *QueryBuilder) OrWhereRaw(sql string, params ...any) *QueryBuilder {
	return b.raw(ast.Where, sql, params, ast.OR)
}

// Having ANDs field op value into HAVING.
func (b *QueryBuilder) Having(field string, op ast.Operator, value any) *QueryBuilder {
	return b.condition(ast.Having, field, op, value, ast.AND, false)
}

// OrHaving ORs field op value into HAVING.
func (b *QueryBuilder) OrHaving(field string, op ast.Operator, value any) *QueryBuilder {
	return b.condition(ast.Having, field, op, value, ast.OR, false)
}

// HavingGroup ANDs the HAVING conditions added by fn as one group.
func (b *QueryBuilder) HavingGroup(fn func(q *QueryBuilder)) *QueryBuilder {
	return b.group(ast.Having, fn, ast.AND, false)
}

// OrHavingGroup ORs the HAVING conditions added by fn as one group.
func (b *QueryBuilder) OrHavingGroup(fn func(q *QueryBuilder)) *QueryBuilder {
	return b.group(ast.Having, fn, ast.OR, false)
}

// HavingRaw ANDs a SQL fragment into HAVING.
func (b *QueryBuilder) HavingRaw(sql string, params ...any) *QueryBuilder {
	return b.raw(ast.Having, sql, params, ast.AND)
}

// OrHavingRaw ORs a SQL fragment into HAVING.
func (b *QueryBuilder) OrHavingRaw(sql string, params ...any) *QueryBuilder {
	return b.raw(ast.Having, sql, params, ast.OR)
}

// Not returns the negated condition builders.
func (b *QueryBuilder) Not() *NotBuilder {
	return &NotBuilder{b: b}
}

// NotBuilder adds negated conditions to its QueryBuilder.
type NotBuilder struct {
	b *QueryBuilder
}

// Where ANDs NOT (field op value) into WHERE.
func (n *NotBuilder) Where(field string, op ast.Operator, value any) *QueryBuilder {
	return n.b.condition(ast.Where, field, op, value, ast.AND, true)
}

// OrWhere ORs NOT (field op value) into WHERE.
func (n *NotBuilder) OrWhere(field string, op ast.Operator, value any) *QueryBuilder {
	return n.b.condition(ast.Where, field, op, value, ast.OR, true)
}

// WhereGroup ANDs NOT (group) into WHERE.
func (n *NotBuilder) WhereGroup(fn func(q *QueryBuilder)) *QueryBuilder {
	return n.b.group(ast.Where, fn, ast.AND, true)
}

// OrWhereGroup ORs NOT (group) into WHERE.
func (n *NotBuilder) OrWhereGroup(fn func(q *QueryBuilder)) *QueryBuilder {
	return n.b.group(ast.Where, fn, ast.OR, true)
}

// Having ANDs NOT (field op value) into HAVING.
func (n *NotBuilder) Having(field string, op ast.Operator, value any) *QueryBuilder {
	return n.b.condition(ast.Having, field, op, value, ast.AND, true)
}

// OrHaving ORs NOT (field op value) into HAVING.
func (n *NotBuilder) OrHaving(field string, op ast.Operator, value any) *QueryBuilder {
	return n.b.condition(ast.Having, field, op, value, ast.OR, true)
}

// HavingGroup ANDs NOT (group) into HAVING.
func (n *NotBuilder) HavingGroup(fn func(q *QueryBuilder)) *QueryBuilder {
	return n.b.group(ast.Having, fn, ast.AND, true)
}

// OrHavingGroup ORs NOT (group) into HAVING.
func (n *NotBuilder) OrHavingGroup(fn func(q *QueryBuilder)) *QueryBuilder {
	return n.b.group(ast.Having, fn, ast.OR, true)
}
