// Package ast defines the predicate AST shared by every query back end.
package ast

import (
	"errors"
	"fmt"
)

// Node is a predicate or join node.
type Node interface {
	Type() NodeType
}

// NodeType represents the type of a node
type NodeType string

const (
	NodeComparison NodeType = "COMPARISON"
	NodeGroup      NodeType = "GROUP"
	NodeNot        NodeType = "NOT"
	NodeJoin       NodeType = "JOIN"
	NodeRaw        NodeType = "RAW"
)

// Operator is a comparison operator.
type Operator string

const (
	// Eq checks equality.
	Eq Operator = "eq"
	// Ne checks inequality.
	Ne Operator = "ne"
	// Gt checks greater than.
	Gt Operator = "gt"
	// Lt checks less than.
	Lt Operator = "lt"
	// Gte checks greater than or equal.
	Gte Operator = "gte"
	// Lte checks less than or equal.
	Lte Operator = "lte"
	// In checks membership in a list.
	In Operator = "in"
	// Like matches a LIKE pattern.
	Like Operator = "like"
	// ILike matches a LIKE pattern ignoring case.
	ILike Operator = "ilike"
	// IsNull checks for NULL.
	IsNull Operator = "isNull"
	// Between checks an inclusive range.
	Between Operator = "between"
	// StartsWith matches a prefix.
	StartsWith Operator = "startsWith"
	// EndsWith matches a suffix.
	EndsWith Operator = "endsWith"
	// RegExp matches a regular expression.
	RegExp Operator = "regExp"
	// RLike matches a regular expression ignoring case.
	RLike Operator = "rlike"

	// Negated spellings. They are stored as Not{Comparison{base}}.
	NotIn      Operator = "notIn"
	NotLike    Operator = "notLike"
	NotILike   Operator = "notIlike"
	IsNotNull  Operator = "isNotNull"
	NotBetween Operator = "notBetween"
	NotRegExp  Operator = "notRegExp"
	NotRLike   Operator = "notRlike"
)

var negatedOperators = map[Operator]Operator{
	NotIn:      In,
	NotLike:    Like,
	NotILike:   ILike,
	IsNotNull:  IsNull,
	NotBetween: Between,
	NotRegExp:  RegExp,
	NotRLike:   RLike,
}

// Normalize resolves a negated spelling to its base operator.
func Normalize(op Operator) (base Operator, negated bool) {
	if base, ok := negatedOperators[op]; ok {
		return base, true
	}
	return op, false
}

// LogicalOperator joins the children of a group.
type LogicalOperator string

const (
	AND LogicalOperator = "AND"
	OR  LogicalOperator = "OR"
)

// Clause selects the predicate root a condition is added to.
type Clause string

const (
	Where  Clause = "WHERE"
	Having Clause = "HAVING"
)

// JoinKind is the SQL join keyword.
type JoinKind string

const (
	InnerJoin   JoinKind = "INNER"
	LeftJoin    JoinKind = "LEFT"
	RightJoin   JoinKind = "RIGHT"
	FullJoin    JoinKind = "FULL OUTER"
	CrossJoin   JoinKind = "CROSS"
	NaturalJoin JoinKind = "NATURAL"
)

// RequiresOn reports whether the join kind needs an ON clause.
func (k JoinKind) RequiresOn() bool {
	return k != CrossJoin && k != NaturalJoin
}

var (
	// ErrInvalidComparison is returned for operator/value shape mismatches.
	ErrInvalidComparison = errors.New("invalid comparison")
	// ErrUnknownOperator is returned for operators outside the known set.
	ErrUnknownOperator = errors.New("unknown operator")
)

// Comparison compares a field against a value, a list of values or
// nothing (IsNull).
type Comparison struct {
	Field    string
	Operator Operator
	Value    any
	Values   []any
}

func (*Comparison) Type() NodeType { return NodeComparison }

// Validate checks that the value shape matches the operator.
func (c *Comparison) Validate() error {
	switch c.Operator {
	case In:
		if c.Values == nil {
			return fmt.Errorf("%w: %s on %q requires a list of values", ErrInvalidComparison, c.Operator, c.Field)
		}
	case Between:
		if len(c.Values) != 2 {
			return fmt.Errorf("%w: between on %q requires exactly 2 values, got %d", ErrInvalidComparison, c.Field, len(c.Values))
		}
	case IsNull:
	case Eq, Ne, Gt, Lt, Gte, Lte, Like, ILike, StartsWith, EndsWith, RegExp, RLike:
		if c.Values != nil {
			return fmt.Errorf("%w: %s on %q takes a single value", ErrInvalidComparison, c.Operator, c.Field)
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnknownOperator, c.Operator)
	}
	return nil
}

// Group joins its children with one logical operator.
type Group struct {
	Operator LogicalOperator
	Children []Node
}

func (*Group) Type() NodeType { return NodeGroup }

// IsEmpty reports whether the group has no children.
func (g *Group) IsEmpty() bool {
	return g == nil || len(g.Children) == 0
}

// Not negates its child.
type Not struct {
	Child Node
}

func (*Not) Type() NodeType { return NodeNot }

// Join attaches another table under an alias.
type Join struct {
	Table string
	Alias string
	Kind  JoinKind
	On    Node
}

func (*Join) Type() NodeType { return NodeJoin }

// Raw is a SQL fragment with positional ? parameters.
type Raw struct {
	SQL    string
	Params []any
}

func (*Raw) Type() NodeType { return NodeRaw }

// Ref marks a comparison value as a column reference rather than a
// bound parameter.
type Ref struct {
	Column string
}

// Col returns a column reference value.
func Col(column string) Ref {
	return Ref{Column: column}
}
