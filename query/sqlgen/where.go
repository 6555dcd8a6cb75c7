package sqlgen

import (
	"fmt"
	"strings"

	"github.com/satishbabariya/strata/query/ast"
)

// compileNode renders a predicate node and binds its parameters.
// Empty groups render as the empty string.
func (s *statement) compileNode(node ast.Node) (string, error) {
	switch n := node.(type) {
	case nil:
		return "", nil
	case *ast.Comparison:
		return s.compileComparison(n)
	case *ast.Group:
		return s.compileGroup(n)
	case *ast.Not:
		inner, err := s.compileNode(n.Child)
		if err != nil || inner == "" {
			return inner, err
		}
		return "NOT (" + inner + ")", nil
	case *ast.Raw:
		s.bind(n.Params...)
		return n.SQL, nil
	default:
		return "", fmt.Errorf("unknown AST node type: %s", node.Type())
	}
}

func (s *statement) compileGroup(g *ast.Group) (string, error) {
	if g == nil {
		return "", nil
	}

	compiled := make([]string, 0, len(g.Children))
	for _, child := range g.Children {
		sql, err := s.compileNode(child)
		if err != nil {
			return "", err
		}
		if sql != "" {
			compiled = append(compiled, sql)
		}
	}

	if len(compiled) == 0 {
		return "", nil
	}
	return "(" + strings.Join(compiled, " "+string(g.Operator)+" ") + ")", nil
}

// operand renders a comparison value: a column reference is quoted, any
// other value is bound as a parameter.
func (s *statement) operand(value interface{}) string {
	if ref, ok := value.(ast.Ref); ok {
		return s.quote(ref.Column)
	}
	s.bind(value)
	return "?"
}

func (s *statement) compileComparison(c *ast.Comparison) (string, error) {
	if err := c.Validate(); err != nil {
		return "", err
	}

	column := s.quote(c.Field)

	switch c.Operator {
	case ast.Eq:
		return column + " = " + s.operand(c.Value), nil
	case ast.Ne:
		return column + " != " + s.operand(c.Value), nil
	case ast.Gt:
		return column + " > " + s.operand(c.Value), nil
	case ast.Lt:
		return column + " < " + s.operand(c.Value), nil
	case ast.Gte:
		return column + " >= " + s.operand(c.Value), nil
	case ast.Lte:
		return column + " <= " + s.operand(c.Value), nil
	case ast.In:
		if len(c.Values) == 0 {
			return "1 = 0", nil
		}
		placeholders := make([]string, len(c.Values))
		for i, v := range c.Values {
			placeholders[i] = s.operand(v)
		}
		return column + " IN (" + strings.Join(placeholders, ", ") + ")", nil
	case ast.Between:
		low := s.operand(c.Values[0])
		high := s.operand(c.Values[1])
		return column + " BETWEEN " + low + " AND " + high, nil
	case ast.IsNull:
		return column + " IS NULL", nil
	case ast.Like:
		return column + " LIKE " + s.operand(c.Value), nil
	case ast.StartsWith:
		s.bind(fmt.Sprint(c.Value) + "%")
		return column + " LIKE ?", nil
	case ast.EndsWith:
		s.bind("%" + fmt.Sprint(c.Value))
		return column + " LIKE ?", nil
	case ast.ILike, ast.RegExp, ast.RLike:
		sql, err := s.gen.Match(c.Operator, column)
		if err != nil {
			return "", err
		}
		s.bind(c.Value)
		return sql, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedOp, c.Operator)
	}
}
