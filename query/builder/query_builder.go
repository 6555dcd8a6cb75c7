// Package builder provides the chainable query builder that compiles to
// SQL text or MongoDB commands.
package builder

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/satishbabariya/strata/query/ast"
	"github.com/satishbabariya/strata/query/mongogen"
	"github.com/satishbabariya/strata/query/sqlgen"
	"github.com/satishbabariya/strata/query/table"
	"github.com/satishbabariya/strata/runtime/hooks"
)

var (
	ErrMissingClient  = errors.New("database client not defined")
	ErrNotSQL         = errors.New("dialect does not produce SQL")
	ErrNotDocument    = errors.New("dialect does not produce a pipeline")
	ErrInvalidPage    = errors.New("page and page size must be at least 1")
	ErrMissingColumns = errors.New("join requires both columns")
)

// SQLClient executes compiled SQL and returns rows keyed by column label.
type SQLClient interface {
	Exec(ctx context.Context, q *sqlgen.Query) ([]map[string]any, error)
}

// DocumentClient runs compiled document commands.
type DocumentClient interface {
	Run(ctx context.Context, cmd *mongogen.Command) ([]map[string]any, error)
}

// Option configures a QueryBuilder.
type Option func(*QueryBuilder)

// WithSQLClient attaches the executor used by Exec for SQL dialects.
func WithSQLClient(c SQLClient) Option {
	return func(b *QueryBuilder) { b.sqlClient = c }
}

// WithDocumentClient attaches the executor used by Exec for MongoDB.
func WithDocumentClient(c DocumentClient) Option {
	return func(b *QueryBuilder) { b.docClient = c }
}

// WithHooks attaches a hook registry fired around Exec.
func WithHooks(r *hooks.Registry) Option {
	return func(b *QueryBuilder) { b.hooks = r }
}

// QueryBuilder accumulates a query definition. It is owned by a single
// goroutine; use Clone to fan out.
type QueryBuilder struct {
	table   *table.Table
	dialect table.Dialect
	def     *ast.Definition

	sqlClient SQLClient
	docClient DocumentClient
	hooks     *hooks.Registry

	// err is the first builder error. It is returned by every compile
	// and exec method.
	err error
}

// New creates a builder for tbl compiling to dialect.
func New(tbl *table.Table, dialect table.Dialect, opts ...Option) *QueryBuilder {
	b := &QueryBuilder{
		table:   tbl,
		dialect: dialect,
		def:     &ast.Definition{},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *QueryBuilder) fail(err error) *QueryBuilder {
	if b.err == nil {
		b.err = err
	}
	return b
}

// Err returns the first error recorded while building.
func (b *QueryBuilder) Err() error {
	return b.err
}

// Table returns the base table.
func (b *QueryBuilder) Table() *table.Table {
	return b.table
}

// Dialect returns the dialect the builder compiles to.
func (b *QueryBuilder) Dialect() table.Dialect {
	return b.dialect
}

// Definition returns the accumulated definition. Callers must not
// modify it.
func (b *QueryBuilder) Definition() *ast.Definition {
	return b.def
}

// Alias renames the base table in every clause.
func (b *QueryBuilder) Alias(alias string) *QueryBuilder {
	b.def.BaseAlias = alias
	return b
}

func (b *QueryBuilder) baseAlias() string {
	if b.def.BaseAlias != "" {
		return b.def.BaseAlias
	}
	return b.table.Name
}

// Select makes the query a SELECT. Columns are qualified names such as
// users.id or users.*; use As for aliased columns. No columns selects
// every declared column of the base table.
func (b *QueryBuilder) Select(columns ...string) *QueryBuilder {
	selects := make([]ast.Selection, len(columns))
	for i, col := range columns {
		selects[i] = ast.Selection{Column: col}
	}
	return b.SelectAs(selects...)
}

// SelectAs is Select with explicit selections.
func (b *QueryBuilder) SelectAs(selects ...ast.Selection) *QueryBuilder {
	b.def.QueryType = ast.Select
	b.def.Select = selects
	return b
}

// As builds an aliased selection.
func As(column, alias string) ast.Selection {
	return ast.Selection{Column: column, As: alias}
}

// Insert makes the query an INSERT of rows. Declared columns missing
// from a row are filled with nil, timestamps with the current time.
func (b *QueryBuilder) Insert(rows ...map[string]any) *QueryBuilder {
	createdAt, updatedAt := b.table.TimestampColumns()
	now := table.Now()

	values := make([]map[string]any, len(rows))
	for i, row := range rows {
		fields := make(map[string]any, len(b.table.Columns)+2)
		for _, col := range b.table.Columns {
			fields[col] = row[col]
		}
		for k, v := range row {
			fields[k] = v
		}
		if createdAt != "" && fields[createdAt] == nil {
			fields[createdAt] = now
		}
		if updatedAt != "" && fields[updatedAt] == nil {
			fields[updatedAt] = now
		}
		values[i] = fields
	}

	b.def.QueryType = ast.Insert
	b.def.InsertValues = values
	return b
}

// Update makes the query an UPDATE setting values. updatedAt is filled
// in when the table declares it and values omit it.
func (b *QueryBuilder) Update(values map[string]any) *QueryBuilder {
	set := make(map[string]any, len(values)+1)
	for k, v := range values {
		set[k] = v
	}
	if _, updatedAt := b.table.TimestampColumns(); updatedAt != "" && set[updatedAt] == nil {
		set[updatedAt] = table.Now()
	}

	b.def.QueryType = ast.Update
	b.def.UpdateValues = set
	return b
}

// Delete makes the query a DELETE. On a paranoid table it becomes an
// UPDATE stamping the soft-delete column.
func (b *QueryBuilder) Delete() *QueryBuilder {
	if b.table.IsParanoid() {
		return b.Update(map[string]any{b.table.Paranoid: table.Now()})
	}
	b.def.QueryType = ast.Delete
	return b
}

// Distinct adds DISTINCT to a SELECT.
func (b *QueryBuilder) Distinct() *QueryBuilder {
	b.def.Distinct = true
	return b
}

// Aggregate replaces the aggregate columns.
func (b *QueryBuilder) Aggregate(aggregates ...ast.Aggregate) *QueryBuilder {
	b.def.Aggregates = aggregates
	return b
}

// Agg builds an aggregate column. An empty alias uses the lowercased
// function name.
func Agg(fn ast.AggregateFunc, column, alias string) ast.Aggregate {
	return ast.Aggregate{Fn: fn, Column: column, As: alias}
}

// GroupBy sets the GROUP BY columns.
func (b *QueryBuilder) GroupBy(columns ...string) *QueryBuilder {
	b.def.GroupBy = columns
	return b
}

// OrderBy appends sort keys.
func (b *QueryBuilder) OrderBy(column string, direction ast.Direction) *QueryBuilder {
	b.def.OrderBy = append(b.def.OrderBy, ast.Order{Column: column, Direction: direction})
	return b
}

// Limit sets the LIMIT.
func (b *QueryBuilder) Limit(limit int) *QueryBuilder {
	b.def.Limit = &limit
	return b
}

// Offset sets the OFFSET.
func (b *QueryBuilder) Offset(offset int) *QueryBuilder {
	b.def.Offset = &offset
	return b
}

// ClearLimit removes LIMIT and OFFSET.
func (b *QueryBuilder) ClearLimit() *QueryBuilder {
	b.def.Limit = nil
	b.def.Offset = nil
	return b
}

// Paginate sets LIMIT size and OFFSET (page-1)*size.
func (b *QueryBuilder) Paginate(page, size int) *QueryBuilder {
	if page < 1 || size < 1 {
		return b.fail(fmt.Errorf("%w: page %d, size %d", ErrInvalidPage, page, size))
	}
	return b.Limit(size).Offset((page - 1) * size)
}

// WithDeleted includes soft-deleted rows.
func (b *QueryBuilder) WithDeleted() *QueryBuilder {
	b.def.WithDeleted = true
	return b
}

// Clone returns an independent builder with a copy of the definition.
// Clients and hooks are shared.
func (b *QueryBuilder) Clone() *QueryBuilder {
	c := *b
	c.def = b.def.Clone()
	return &c
}

// ToQuery compiles the builder to SQL.
func (b *QueryBuilder) ToQuery() (*sqlgen.Query, error) {
	if b.err != nil {
		return nil, b.err
	}
	if !b.dialect.IsSQL() {
		return nil, fmt.Errorf("%w: %s", ErrNotSQL, b.dialect)
	}
	return sqlgen.Compile(b.table, b.def, b.dialect)
}

// String returns the compiled SQL, or the JSON form of the compiled
// command for MongoDB. Compile errors yield the empty string.
func (b *QueryBuilder) String() string {
	if b.dialect == table.MongoDB {
		cmd, err := b.ToCommand()
		if err != nil {
			return ""
		}
		return commandString(cmd)
	}

	q, err := b.ToQuery()
	if err != nil {
		return ""
	}
	return q.SQL
}

// ToDebugString returns the compiled SQL with parameters inlined. The
// result is for logs only.
func (b *QueryBuilder) ToDebugString() (string, error) {
	q, err := b.ToQuery()
	if err != nil {
		return "", err
	}
	return sqlgen.DebugString(q), nil
}

// ToPipeline compiles a SELECT to an aggregation pipeline.
func (b *QueryBuilder) ToPipeline() ([]bson.D, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.dialect != table.MongoDB {
		return nil, fmt.Errorf("%w: %s", ErrNotDocument, b.dialect)
	}
	return mongogen.CompilePipeline(b.table, b.def)
}

// ToCommand compiles the builder to a document command.
func (b *QueryBuilder) ToCommand() (*mongogen.Command, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.dialect != table.MongoDB {
		return nil, fmt.Errorf("%w: %s", ErrNotDocument, b.dialect)
	}
	return mongogen.Compile(b.table, b.def)
}

// commandString renders a command as relaxed extended JSON.
func commandString(cmd *mongogen.Command) string {
	var body bson.D
	switch cmd.Type {
	case mongogen.Aggregate:
		body = bson.D{{Key: "pipeline", Value: cmd.Pipeline}}
	case mongogen.InsertMany:
		body = bson.D{{Key: "documents", Value: cmd.Documents}}
	case mongogen.UpdateMany:
		body = bson.D{{Key: "filter", Value: cmd.Filter}, {Key: "update", Value: cmd.Update}}
	default:
		body = bson.D{{Key: "filter", Value: cmd.Filter}}
	}

	doc := bson.D{{Key: string(cmd.Type), Value: cmd.Collection}}
	doc = append(doc, body...)

	out, err := bson.MarshalExtJSON(doc, false, false)
	if err != nil {
		return ""
	}
	return string(out)
}
