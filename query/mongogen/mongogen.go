// Package mongogen compiles query definitions into MongoDB aggregation
// pipelines and write commands.
package mongogen

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/satishbabariya/strata/query/ast"
)

var (
	ErrUnsupportedNode    = errors.New("node is not supported by the document back end")
	ErrUnsupportedOp      = errors.New("operator not supported")
	ErrMissingQueryType   = errors.New("no query type defined")
	ErrMissingValues      = errors.New("query requires values")
	ErrNegativePagination = errors.New("limit and offset must not be negative")
)

// CommandType selects the collection method a Command runs.
type CommandType string

const (
	Aggregate  CommandType = "aggregate"
	InsertMany CommandType = "insertMany"
	UpdateMany CommandType = "updateMany"
	DeleteMany CommandType = "deleteMany"
)

// Command is a compiled document query.
type Command struct {
	Type       CommandType
	Collection string
	Pipeline   []bson.D
	Filter     bson.D
	Documents  []interface{}
	Update     bson.D
}

// filterCompiler turns predicate nodes into query operator documents.
type filterCompiler struct {
	baseAlias string
}

// field strips the base alias from a qualified field name.
func (c *filterCompiler) field(name string) string {
	name = strings.ReplaceAll(name, `"`, "")
	if root, rest, ok := strings.Cut(name, "."); ok && root == c.baseAlias {
		return rest
	}
	return name
}

func (c *filterCompiler) value(v interface{}) interface{} {
	if ref, ok := v.(ast.Ref); ok {
		return ref.Column
	}
	return v
}

func (c *filterCompiler) compile(node ast.Node) (bson.D, error) {
	switch n := node.(type) {
	case nil:
		return bson.D{}, nil
	case *ast.Comparison:
		cond, err := c.condition(n)
		if err != nil {
			return nil, err
		}
		return bson.D{{Key: c.field(n.Field), Value: cond}}, nil
	case *ast.Group:
		return c.group(n)
	case *ast.Not:
		return c.not(n)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedNode, node.Type())
	}
}

// condition renders the operator document of a comparison.
func (c *filterCompiler) condition(n *ast.Comparison) (bson.D, error) {
	if err := n.Validate(); err != nil {
		return nil, err
	}

	switch n.Operator {
	case ast.IsNull:
		return bson.D{{Key: "$exists", Value: false}}, nil
	case ast.Between:
		return bson.D{
			{Key: "$gte", Value: c.value(n.Values[0])},
			{Key: "$lte", Value: c.value(n.Values[1])},
		}, nil
	case ast.In:
		values := make(bson.A, len(n.Values))
		for i, v := range n.Values {
			values[i] = c.value(v)
		}
		return bson.D{{Key: "$in", Value: values}}, nil
	case ast.Eq, ast.Ne, ast.Gt, ast.Lt, ast.Gte, ast.Lte:
		return bson.D{{Key: "$" + string(n.Operator), Value: c.value(n.Value)}}, nil
	}

	pattern, options, err := regexFor(n.Operator, n.Value)
	if err != nil {
		return nil, err
	}
	cond := bson.D{{Key: "$regex", Value: pattern}}
	if options != "" {
		cond = append(cond, bson.E{Key: "$options", Value: options})
	}
	return cond, nil
}

// regexFor translates the pattern operators to a regular expression.
func regexFor(op ast.Operator, value interface{}) (pattern, options string, err error) {
	s := fmt.Sprint(value)
	switch op {
	case ast.Like:
		return likeToRegex(s), "", nil
	case ast.ILike:
		return likeToRegex(s), "i", nil
	case ast.StartsWith:
		return "^" + regexp.QuoteMeta(s), "", nil
	case ast.EndsWith:
		return regexp.QuoteMeta(s) + "$", "", nil
	case ast.RegExp:
		return s, "", nil
	case ast.RLike:
		return s, "i", nil
	}
	return "", "", fmt.Errorf("%w: %s", ErrUnsupportedOp, op)
}

// likeToRegex converts a LIKE pattern (% and _ wildcards) into an
// anchored regular expression.
func likeToRegex(pattern string) string {
	var b strings.Builder
	b.WriteByte('^')
	for _, r := range pattern {
		switch r {
		case '%':
			b.WriteString(".*")
		case '_':
			b.WriteByte('.')
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteByte('$')
	return b.String()
}

// group drops empty children, collapses single-child groups and renders
// the rest as $and/$or.
func (c *filterCompiler) group(g *ast.Group) (bson.D, error) {
	if g == nil {
		return bson.D{}, nil
	}

	children := make(bson.A, 0, len(g.Children))
	for _, child := range g.Children {
		compiled, err := c.compile(child)
		if err != nil {
			return nil, err
		}
		if len(compiled) > 0 {
			children = append(children, compiled)
		}
	}

	switch len(children) {
	case 0:
		return bson.D{}, nil
	case 1:
		return children[0].(bson.D), nil
	}

	op := "$and"
	if g.Operator == ast.OR {
		op = "$or"
	}
	return bson.D{{Key: op, Value: children}}, nil
}

// not inverts isNull directly to $exists: true. Other comparisons are
// wrapped in a field level $not, groups in $nor.
func (c *filterCompiler) not(n *ast.Not) (bson.D, error) {
	switch child := n.Child.(type) {
	case *ast.Comparison:
		if child.Operator == ast.IsNull {
			return bson.D{{Key: c.field(child.Field), Value: bson.D{{Key: "$exists", Value: true}}}}, nil
		}
		cond, err := c.condition(child)
		if err != nil {
			return nil, err
		}
		return bson.D{{Key: c.field(child.Field), Value: bson.D{{Key: "$not", Value: cond}}}}, nil
	case *ast.Not:
		return c.compile(child.Child)
	default:
		inner, err := c.compile(n.Child)
		if err != nil || len(inner) == 0 {
			return inner, err
		}
		return bson.D{{Key: "$nor", Value: bson.A{inner}}}, nil
	}
}

// CompileFilter renders a predicate node as a query filter. Fields
// qualified with baseAlias lose the qualifier.
func CompileFilter(node ast.Node, baseAlias string) (bson.D, error) {
	c := &filterCompiler{baseAlias: baseAlias}
	return c.compile(node)
}

// RemoveFieldAlias turns alias."col" or alias.col into col.
func RemoveFieldAlias(field string) string {
	field = strings.ReplaceAll(field, `"`, "")
	if _, rest, ok := strings.Cut(field, "."); ok {
		return rest
	}
	return field
}
