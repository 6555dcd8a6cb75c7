// Package sqlgen compiles query definitions into dialect specific SQL.
package sqlgen

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/satishbabariya/strata/query/ast"
	"github.com/satishbabariya/strata/query/table"
)

var (
	ErrMissingQueryType   = errors.New("no query type defined")
	ErrMissingValues      = errors.New("query requires values")
	ErrUnsupportedDialect = errors.New("dialect is not supported")
	ErrUnsupportedOp      = errors.New("operator not supported")
	ErrInvalidJoin        = errors.New("invalid join")
	ErrNegativePagination = errors.New("limit and offset must not be negative")
	ErrAliasedWrite       = errors.New("UPDATE and DELETE cannot alias the table")
)

// Query represents a SQL query with arguments
type Query struct {
	SQL  string
	Args []interface{}
}

// Generator holds the knowledge that differs between SQL dialects.
type Generator interface {
	Dialect() table.Dialect
	// QuoteIdentifier quotes a possibly qualified identifier.
	QuoteIdentifier(name string) string
	// Match renders the dialect specific pattern operators
	// (ilike, regExp, rlike) for an already quoted column.
	Match(op ast.Operator, column string) (string, error)
	// SupportsReturning reports whether UPDATE/DELETE may carry RETURNING.
	SupportsReturning() bool
	// Render turns positional ? placeholders into the final form.
	Render(sql string) string
	// Explain returns the EXPLAIN prefix for the given options.
	Explain(opts ExplainOptions) (string, error)
}

// NewGenerator creates a new SQL generator for the given dialect
func NewGenerator(dialect table.Dialect) (Generator, error) {
	switch dialect {
	case table.Postgres:
		return &PostgresGenerator{}, nil
	case table.MySQL:
		return &MySQLGenerator{}, nil
	case table.SQLite:
		return &SQLiteGenerator{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDialect, dialect)
	}
}

// PostgresGenerator generates PostgreSQL SQL
type PostgresGenerator struct{}

func (g *PostgresGenerator) Dialect() table.Dialect { return table.Postgres }

func (g *PostgresGenerator) QuoteIdentifier(name string) string {
	return table.Postgres.QuoteIdentifier(name)
}

func (g *PostgresGenerator) Match(op ast.Operator, column string) (string, error) {
	switch op {
	case ast.ILike:
		return column + " ILIKE ?", nil
	case ast.RegExp:
		return column + " ~ ?", nil
	case ast.RLike:
		return column + " ~* ?", nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedOp, op)
}

func (g *PostgresGenerator) SupportsReturning() bool { return true }

// Render numbers placeholders $1, $2, ... in order of appearance.
func (g *PostgresGenerator) Render(sql string) string {
	return renumber(sql)
}

// MySQLGenerator generates MySQL SQL
type MySQLGenerator struct{}

func (g *MySQLGenerator) Dialect() table.Dialect { return table.MySQL }

func (g *MySQLGenerator) QuoteIdentifier(name string) string {
	return table.MySQL.QuoteIdentifier(name)
}

func (g *MySQLGenerator) Match(op ast.Operator, column string) (string, error) {
	switch op {
	case ast.ILike:
		return "LOWER(" + column + ") LIKE LOWER(?)", nil
	case ast.RegExp:
		return column + " REGEXP ?", nil
	case ast.RLike:
		return column + " RLIKE ?", nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedOp, op)
}

func (g *MySQLGenerator) SupportsReturning() bool { return false }

func (g *MySQLGenerator) Render(sql string) string { return sql }

// SQLiteGenerator generates SQLite SQL. SQLite has no regular expression
// operator, GLOB stands in for both regExp and rlike.
type SQLiteGenerator struct{}

func (g *SQLiteGenerator) Dialect() table.Dialect { return table.SQLite }

func (g *SQLiteGenerator) QuoteIdentifier(name string) string {
	return table.SQLite.QuoteIdentifier(name)
}

func (g *SQLiteGenerator) Match(op ast.Operator, column string) (string, error) {
	switch op {
	case ast.ILike:
		return "LOWER(" + column + ") LIKE LOWER(?)", nil
	case ast.RegExp, ast.RLike:
		return column + " GLOB ?", nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedOp, op)
}

func (g *SQLiteGenerator) SupportsReturning() bool { return true }

func (g *SQLiteGenerator) Render(sql string) string { return sql }

// renumber replaces every ? outside quoted identifiers and string
// literals with $n.
func renumber(sql string) string {
	var b strings.Builder
	b.Grow(len(sql) + 8)

	n := 0
	var quote byte
	for i := 0; i < len(sql); i++ {
		ch := sql[i]
		switch {
		case quote != 0:
			if ch == quote {
				quote = 0
			}
		case ch == '"' || ch == '\'' || ch == '`':
			quote = ch
		case ch == '?':
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(ch)
	}
	return b.String()
}

// Compile compiles def against tbl for dialect.
func Compile(tbl *table.Table, def *ast.Definition, dialect table.Dialect) (*Query, error) {
	gen, err := NewGenerator(dialect)
	if err != nil {
		return nil, err
	}
	return NewCompiler(gen, tbl).Compile(def)
}

// Compiler assembles statements for one table with one generator.
type Compiler struct {
	gen   Generator
	table *table.Table
}

// NewCompiler creates a compiler.
func NewCompiler(gen Generator, tbl *table.Table) *Compiler {
	return &Compiler{gen: gen, table: tbl}
}

// Generator returns the dialect generator.
func (c *Compiler) Generator() Generator {
	return c.gen
}

// statement carries the parameters of one compilation in text order.
type statement struct {
	*Compiler
	def  *ast.Definition
	args []interface{}
}

func (s *statement) quote(name string) string {
	return s.gen.QuoteIdentifier(name)
}

func (s *statement) bind(values ...interface{}) {
	s.args = append(s.args, values...)
}

// Compile renders def. Clauses are emitted in a fixed order: head,
// joins, WHERE, GROUP BY, HAVING, ORDER BY, LIMIT, OFFSET, RETURNING.
func (c *Compiler) Compile(def *ast.Definition) (*Query, error) {
	s := &statement{Compiler: c, def: def}

	if def.Limit != nil && *def.Limit < 0 || def.Offset != nil && *def.Offset < 0 {
		return nil, ErrNegativePagination
	}
	isWrite := def.QueryType == ast.Update || def.QueryType == ast.Delete
	if isWrite && def.BaseAlias != "" && def.BaseAlias != c.table.Name {
		return nil, fmt.Errorf("%w: %s AS %s", ErrAliasedWrite, c.table.Name, def.BaseAlias)
	}

	var parts []string

	head, err := s.head()
	if err != nil {
		return nil, err
	}
	parts = append(parts, head)

	if def.QueryType != ast.Insert {
		tail, err := s.clauses()
		if err != nil {
			return nil, err
		}
		parts = append(parts, tail...)
	}

	if isWrite && c.gen.SupportsReturning() {
		parts = append(parts, "RETURNING *")
	}

	return &Query{
		SQL:  c.gen.Render(strings.Join(parts, " ")) + ";",
		Args: s.args,
	}, nil
}

func (s *statement) head() (string, error) {
	switch s.def.QueryType {
	case ast.Select:
		return s.selectHead(), nil
	case ast.Insert:
		return s.insertHead()
	case ast.Update:
		return s.updateHead()
	case ast.Delete:
		return "DELETE FROM " + s.quote(s.table.Name), nil
	default:
		return "", ErrMissingQueryType
	}
}

func (s *statement) clauses() ([]string, error) {
	var parts []string

	for _, join := range s.def.Joins {
		sql, err := s.compileJoin(join)
		if err != nil {
			return nil, err
		}
		parts = append(parts, sql)
	}

	where, err := s.compileNode(s.whereRoot())
	if err != nil {
		return nil, err
	}
	if where != "" {
		parts = append(parts, "WHERE "+where)
	}

	if groupBy := s.groupBy(); len(groupBy) > 0 {
		parts = append(parts, "GROUP BY "+strings.Join(groupBy, ", "))
	}

	if s.def.Having != nil {
		having, err := s.compileNode(s.def.Having)
		if err != nil {
			return nil, err
		}
		if having != "" {
			parts = append(parts, "HAVING "+having)
		}
	}

	if len(s.def.OrderBy) > 0 {
		orders := make([]string, len(s.def.OrderBy))
		for i, o := range s.def.OrderBy {
			dir := o.Direction
			if dir == "" {
				dir = ast.Asc
			}
			orders[i] = s.quote(o.Column) + " " + string(dir)
		}
		parts = append(parts, "ORDER BY "+strings.Join(orders, ", "))
	}

	if s.def.Limit != nil {
		parts = append(parts, "LIMIT ?")
		s.bind(*s.def.Limit)
	}
	if s.def.Offset != nil {
		parts = append(parts, "OFFSET ?")
		s.bind(*s.def.Offset)
	}

	return parts, nil
}

// baseAlias is the name rows of the base table are qualified with.
func (s *statement) baseAlias() string {
	if s.def.BaseAlias != "" {
		return s.def.BaseAlias
	}
	return s.table.Name
}

// whereRoot prepends the soft-delete filter to the user's WHERE root.
func (s *statement) whereRoot() ast.Node {
	root := s.def.Where
	if !s.table.IsParanoid() || s.def.WithDeleted {
		if root == nil {
			return nil
		}
		return root
	}

	column := s.table.Paranoid
	if s.def.QueryType == ast.Select {
		column = s.baseAlias() + "." + column
	}
	filter := &ast.Comparison{Field: column, Operator: ast.IsNull}

	if root.IsEmpty() {
		return filter
	}
	if root.Operator == ast.AND {
		return &ast.Group{Operator: ast.AND, Children: append([]ast.Node{filter}, root.Children...)}
	}
	return &ast.Group{Operator: ast.AND, Children: []ast.Node{filter, root}}
}
