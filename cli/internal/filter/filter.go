// Package filter parses the --where expressions accepted by the CLI and
// applies them to a query builder.
//
//	name = "bob" and (age >= 18 or admin = true) and not email isNull
//	id in [1, 2, 3] or createdAt between ["2024-01-01", "2024-12-31"]
package filter

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/satishbabariya/strata/query/ast"
	"github.com/satishbabariya/strata/query/builder"
)

// ErrUnknownOperator is returned for operators the builder does not know.
var ErrUnknownOperator = errors.New("unknown filter operator")

// Lexer tokenizes filter expressions.
var Lexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "String", Pattern: `"(?:\\.|[^"\\])*"`},
	{Name: "Number", Pattern: `-?\d+(?:\.\d+)?`},
	{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_.]*`},
	{Name: "Operator", Pattern: `!=|<>|>=|<=|=|>|<`},
	{Name: "Punct", Pattern: `[()\[\],]`},
	{Name: "Whitespace", Pattern: `[ \t\r\n]+`},
})

// Expr is a disjunction of conjunctions.
type Expr struct {
	Pos lexer.Position
	And []*And `@@ ( "or" @@ )*`
}

// And is a conjunction of terms.
type And struct {
	Terms []*Term `@@ ( "and" @@ )*`
}

// Term is an optionally negated condition or parenthesized expression.
type Term struct {
	Not       bool       `@"not"?`
	Group     *Expr      `( "(" @@ ")"`
	Condition *Condition `| @@ )`
}

// Condition compares a field against an optional value.
type Condition struct {
	Pos      lexer.Position
	Field    string `@Ident`
	Operator string `@( Operator | Ident )`
	Value    *Value `@@?`
}

// Value is a literal or a bracketed list of literals.
type Value struct {
	String *string  `  @String`
	Number *string  `| @Number`
	Bool   *string  `| @( "true" | "false" )`
	Null   bool     `| @"null"`
	List   []*Value `| "[" ( @@ ( "," @@ )* )? "]"`
}

var parser = participle.MustBuild[Expr](
	participle.Lexer(Lexer),
	participle.Elide("Whitespace"),
	participle.Unquote("String"),
	participle.UseLookahead(2),
)

// Parse parses a filter expression.
func Parse(input string) (*Expr, error) {
	expr, err := parser.ParseString("where", input)
	if err != nil {
		return nil, fmt.Errorf("parse filter: %w", err)
	}
	return expr, nil
}

var symbolOperators = map[string]ast.Operator{
	"=":  ast.Eq,
	"!=": ast.Ne,
	"<>": ast.Ne,
	">":  ast.Gt,
	"<":  ast.Lt,
	">=": ast.Gte,
	"<=": ast.Lte,
}

var namedOperators = func() map[string]ast.Operator {
	ops := []ast.Operator{
		ast.Eq, ast.Ne, ast.Gt, ast.Lt, ast.Gte, ast.Lte,
		ast.In, ast.Like, ast.ILike, ast.IsNull, ast.Between,
		ast.StartsWith, ast.EndsWith, ast.RegExp, ast.RLike,
		ast.NotIn, ast.NotLike, ast.NotILike, ast.IsNotNull,
		ast.NotBetween, ast.NotRegExp, ast.NotRLike,
	}
	m := make(map[string]ast.Operator, len(ops))
	for _, op := range ops {
		m[strings.ToLower(string(op))] = op
	}
	return m
}()

// Operator resolves a symbol (=, !=, >=, ...) or an operator name
// (in, isNull, notBetween, ...) case-insensitively.
func Operator(s string) (ast.Operator, error) {
	if op, ok := symbolOperators[s]; ok {
		return op, nil
	}
	if op, ok := namedOperators[strings.ToLower(s)]; ok {
		return op, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownOperator, s)
}

// Interface converts the literal to the value passed to the builder.
// Integers become int64, other numbers float64.
func (v *Value) Interface() any {
	switch {
	case v == nil:
		return nil
	case v.String != nil:
		return *v.String
	case v.Number != nil:
		if i, err := strconv.ParseInt(*v.Number, 10, 64); err == nil {
			return i
		}
		f, _ := strconv.ParseFloat(*v.Number, 64)
		return f
	case v.Bool != nil:
		return *v.Bool == "true"
	case v.Null:
		return nil
	default:
		values := make([]any, len(v.List))
		for i, item := range v.List {
			values[i] = item.Interface()
		}
		return values
	}
}

// Apply parses input and ANDs it into the WHERE clause of b. An empty
// input leaves b unchanged.
func Apply(b *builder.QueryBuilder, input string) (*builder.QueryBuilder, error) {
	if strings.TrimSpace(input) == "" {
		return b, nil
	}
	expr, err := Parse(input)
	if err != nil {
		return nil, err
	}
	if err := applyExpr(b, expr, ast.AND, false); err != nil {
		return nil, err
	}
	return b, b.Err()
}

// conditionFunc and groupFunc pick the builder method for a logical
// operator and negation.
func conditionFunc(b *builder.QueryBuilder, logical ast.LogicalOperator, negate bool) func(string, ast.Operator, any) *builder.QueryBuilder {
	switch {
	case negate && logical == ast.OR:
		return b.Not().OrWhere
	case negate:
		return b.Not().Where
	case logical == ast.OR:
		return b.OrWhere
	default:
		return b.Where
	}
}

func groupFunc(b *builder.QueryBuilder, logical ast.LogicalOperator, negate bool) func(func(*builder.QueryBuilder)) *builder.QueryBuilder {
	switch {
	case negate && logical == ast.OR:
		return b.Not().OrWhereGroup
	case negate:
		return b.Not().WhereGroup
	case logical == ast.OR:
		return b.OrWhereGroup
	default:
		return b.WhereGroup
	}
}

// applyExpr attaches expr to b with logical. A disjunction joined by
// OR is spliced term by term, any other becomes one group.
func applyExpr(b *builder.QueryBuilder, expr *Expr, logical ast.LogicalOperator, negate bool) error {
	if len(expr.And) == 1 {
		return applyAnd(b, expr.And[0], logical, negate)
	}
	if logical == ast.OR && !negate {
		for _, and := range expr.And {
			if err := applyAnd(b, and, ast.OR, false); err != nil {
				return err
			}
		}
		return nil
	}

	var err error
	groupFunc(b, logical, negate)(func(q *builder.QueryBuilder) {
		for _, and := range expr.And {
			if err == nil {
				err = applyAnd(q, and, ast.OR, false)
			}
		}
	})
	return err
}

func applyAnd(b *builder.QueryBuilder, and *And, logical ast.LogicalOperator, negate bool) error {
	if len(and.Terms) == 1 {
		return applyTerm(b, and.Terms[0], logical, negate)
	}
	if logical == ast.AND && !negate {
		for _, term := range and.Terms {
			if err := applyTerm(b, term, ast.AND, false); err != nil {
				return err
			}
		}
		return nil
	}

	var err error
	groupFunc(b, logical, negate)(func(q *builder.QueryBuilder) {
		for _, term := range and.Terms {
			if err == nil {
				err = applyTerm(q, term, ast.AND, false)
			}
		}
	})
	return err
}

func applyTerm(b *builder.QueryBuilder, term *Term, logical ast.LogicalOperator, negate bool) error {
	negate = negate != term.Not
	if term.Group != nil {
		return applyExpr(b, term.Group, logical, negate)
	}

	cond := term.Condition
	op, err := Operator(cond.Operator)
	if err != nil {
		return fmt.Errorf("%s: %w", cond.Pos, err)
	}
	conditionFunc(b, logical, negate)(cond.Field, op, cond.Value.Interface())
	return nil
}
