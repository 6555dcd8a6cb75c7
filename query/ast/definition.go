package ast

import "strings"

// QueryType is the statement kind of a definition.
type QueryType string

const (
	Select QueryType = "SELECT"
	Insert QueryType = "INSERT"
	Update QueryType = "UPDATE"
	Delete QueryType = "DELETE"
)

// Direction is a sort direction.
type Direction string

const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

// AggregateFunc is a SQL aggregate function.
type AggregateFunc string

const (
	Count AggregateFunc = "COUNT"
	Sum   AggregateFunc = "SUM"
	Min   AggregateFunc = "MIN"
	Max   AggregateFunc = "MAX"
	Avg   AggregateFunc = "AVG"
)

// Selection is a selected column. An empty As selects the column under
// its own qualified name.
type Selection struct {
	Column string
	As     string
}

// IsWildcard reports whether the selection is table.*.
func (s Selection) IsWildcard() bool {
	return s.As == "" && strings.HasSuffix(s.Column, "*")
}

// Order is one ORDER BY entry.
type Order struct {
	Column    string
	Direction Direction
}

// Aggregate is one aggregated column.
type Aggregate struct {
	Fn     AggregateFunc
	Column string
	As     string
}

// Alias returns As, or the lowercased function name.
func (a Aggregate) Alias() string {
	if a.As != "" {
		return a.As
	}
	return strings.ToLower(string(a.Fn))
}

// Definition accumulates builder calls. It is owned by one builder chain.
type Definition struct {
	QueryType QueryType

	Select     []Selection
	Aggregates []Aggregate
	GroupBy    []string
	Distinct   bool

	Where  *Group
	Having *Group
	Joins  []*Join
	// JoinedColumns maps a join alias to the declared columns of the
	// joined table.
	JoinedColumns map[string][]string

	OrderBy []Order
	Limit   *int
	Offset  *int

	InsertValues []map[string]any
	UpdateValues map[string]any

	BaseAlias   string
	WithDeleted bool
}

// Root returns the predicate root of clause.
func (d *Definition) Root(clause Clause) *Group {
	if clause == Having {
		return d.Having
	}
	return d.Where
}

// SetRoot replaces the predicate root of clause.
func (d *Definition) SetRoot(clause Clause, g *Group) {
	if clause == Having {
		d.Having = g
		return
	}
	d.Where = g
}

// Clone copies every slice and map one level deep. AST nodes are shared;
// they are never mutated after construction.
func (d *Definition) Clone() *Definition {
	c := *d

	c.Select = cloneSlice(d.Select)
	c.Aggregates = cloneSlice(d.Aggregates)
	c.GroupBy = cloneSlice(d.GroupBy)
	c.Joins = cloneSlice(d.Joins)
	c.OrderBy = cloneSlice(d.OrderBy)

	if d.Limit != nil {
		v := *d.Limit
		c.Limit = &v
	}
	if d.Offset != nil {
		v := *d.Offset
		c.Offset = &v
	}

	if d.InsertValues != nil {
		c.InsertValues = make([]map[string]any, len(d.InsertValues))
		for i, row := range d.InsertValues {
			c.InsertValues[i] = cloneMap(row)
		}
	}
	c.UpdateValues = cloneMap(d.UpdateValues)

	if d.JoinedColumns != nil {
		c.JoinedColumns = make(map[string][]string, len(d.JoinedColumns))
		for alias, cols := range d.JoinedColumns {
			c.JoinedColumns[alias] = cols
		}
	}

	return &c
}

func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	return append(make([]T, 0, len(s)), s...)
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	c := make(map[string]any, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}
