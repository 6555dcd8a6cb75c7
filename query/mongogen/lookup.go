package mongogen

import (
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/satishbabariya/strata/query/ast"
)

// ExtractLetVars collects the root identifier of every dotted field
// reference in node (compared fields and column reference values) that
// is not already a $ expression, in first-seen order. References to the
// joined alias itself resolve inside the sub-pipeline and are skipped.
// The base alias binds the whole outer document.
func ExtractLetVars(node ast.Node, baseAlias, joinAlias string) bson.D {
	var vars bson.D
	seen := map[string]bool{joinAlias: true}

	addField := func(field string) {
		if strings.HasPrefix(field, "$") || !strings.Contains(field, ".") {
			return
		}
		root, _, _ := strings.Cut(strings.ReplaceAll(field, `"`, ""), ".")
		if root == "" || seen[root] {
			return
		}
		seen[root] = true

		value := "$" + root
		if root == baseAlias {
			value = "$$ROOT"
		}
		vars = append(vars, bson.E{Key: root, Value: value})
	}
	add := func(v interface{}) {
		if ref, ok := v.(ast.Ref); ok {
			addField(ref.Column)
		}
	}

	var walk func(ast.Node)
	walk = func(node ast.Node) {
		switch n := node.(type) {
		case *ast.Comparison:
			addField(n.Field)
			add(n.Value)
			for _, v := range n.Values {
				add(v)
			}
		case *ast.Group:
			if n == nil {
				return
			}
			for _, child := range n.Children {
				walk(child)
			}
		case *ast.Not:
			walk(n.Child)
		}
	}
	walk(node)

	return vars
}

// exprCompiler renders an ON clause as an aggregation expression that is
// evaluated against the joined collection with the outer document bound
// through let variables.
type exprCompiler struct {
	alias string
	vars  map[string]bool
}

// path turns a qualified field into $field on the joined side or
// $$var.field for let bound roots.
func (c *exprCompiler) path(field string) string {
	field = strings.ReplaceAll(field, `"`, "")
	root, rest, ok := strings.Cut(field, ".")
	switch {
	case ok && root == c.alias:
		return "$" + rest
	case ok && c.vars[root]:
		return "$$" + field
	default:
		return "$" + field
	}
}

func (c *exprCompiler) operand(v interface{}) interface{} {
	if ref, ok := v.(ast.Ref); ok {
		if strings.HasPrefix(ref.Column, "$") {
			return ref.Column
		}
		return c.path(ref.Column)
	}
	return v
}

func (c *exprCompiler) compile(node ast.Node) (interface{}, error) {
	switch n := node.(type) {
	case *ast.Comparison:
		return c.comparison(n)
	case *ast.Group:
		var nodes []ast.Node
		if n != nil {
			for _, child := range n.Children {
				if g, ok := child.(*ast.Group); ok && g.IsEmpty() {
					continue
				}
				nodes = append(nodes, child)
			}
		}
		switch len(nodes) {
		case 0:
			return true, nil
		case 1:
			return c.compile(nodes[0])
		}
		children := make(bson.A, 0, len(nodes))
		for _, child := range nodes {
			expr, err := c.compile(child)
			if err != nil {
				return nil, err
			}
			children = append(children, expr)
		}
		op := "$and"
		if n.Operator == ast.OR {
			op = "$or"
		}
		return bson.D{{Key: op, Value: children}}, nil
	case *ast.Not:
		inner, err := c.compile(n.Child)
		if err != nil {
			return nil, err
		}
		return bson.D{{Key: "$not", Value: bson.A{inner}}}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedNode, node.Type())
	}
}

func (c *exprCompiler) comparison(n *ast.Comparison) (interface{}, error) {
	if err := n.Validate(); err != nil {
		return nil, err
	}

	lhs := c.path(n.Field)

	switch n.Operator {
	case ast.Eq, ast.Ne, ast.Gt, ast.Lt, ast.Gte, ast.Lte:
		return bson.D{{Key: "$" + string(n.Operator), Value: bson.A{lhs, c.operand(n.Value)}}}, nil
	case ast.In:
		values := make(bson.A, len(n.Values))
		for i, v := range n.Values {
			values[i] = c.operand(v)
		}
		return bson.D{{Key: "$in", Value: bson.A{lhs, values}}}, nil
	case ast.Between:
		return bson.D{{Key: "$and", Value: bson.A{
			bson.D{{Key: "$gte", Value: bson.A{lhs, c.operand(n.Values[0])}}},
			bson.D{{Key: "$lte", Value: bson.A{lhs, c.operand(n.Values[1])}}},
		}}}, nil
	case ast.IsNull:
		return bson.D{{Key: "$eq", Value: bson.A{
			bson.D{{Key: "$ifNull", Value: bson.A{lhs, nil}}},
			nil,
		}}}, nil
	}

	pattern, options, err := regexFor(n.Operator, n.Value)
	if err != nil {
		return nil, err
	}
	match := bson.D{
		{Key: "input", Value: lhs},
		{Key: "regex", Value: pattern},
	}
	if options != "" {
		match = append(match, bson.E{Key: "options", Value: options})
	}
	return bson.D{{Key: "$regexMatch", Value: match}}, nil
}

// CompileJoin renders a join as a $lookup stage with a correlated
// sub-pipeline.
func CompileJoin(join *ast.Join, baseAlias string) (bson.D, error) {
	if join.On == nil {
		return nil, fmt.Errorf("%w: %s join without ON condition", ErrUnsupportedNode, join.Kind)
	}

	vars := ExtractLetVars(join.On, baseAlias, join.Alias)
	bound := make(map[string]bool, len(vars))
	for _, v := range vars {
		bound[v.Key] = true
	}

	c := &exprCompiler{alias: join.Alias, vars: bound}
	expr, err := c.compile(join.On)
	if err != nil {
		return nil, err
	}

	if vars == nil {
		vars = bson.D{}
	}

	return bson.D{{Key: "$lookup", Value: bson.D{
		{Key: "from", Value: join.Table},
		{Key: "as", Value: join.Alias},
		{Key: "let", Value: vars},
		{Key: "pipeline", Value: bson.A{
			bson.D{{Key: "$match", Value: bson.D{{Key: "$expr", Value: expr}}}},
		}},
	}}}, nil
}
