// Package queryfile loads the YAML query descriptions compiled by
// `strata compile` and `strata explain`.
//
//	dialect: postgres
//	tables:
//	  users: {columns: [id, name, email]}
//	  posts: {columns: [id, title, authorId, deletedAt], paranoid: deletedAt}
//	query:
//	  from: users
//	  select: [users.id, users.name]
//	  joins:
//	    - {kind: left, table: posts, on: [users.id, posts.authorId]}
//	  where: users.id > 1 and posts.title like "%go%"
//	  order: [{column: users.name, direction: desc}]
//	  limit: 10
package queryfile

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/satishbabariya/strata/cli/internal/filter"
	"github.com/satishbabariya/strata/query/ast"
	"github.com/satishbabariya/strata/query/builder"
	"github.com/satishbabariya/strata/query/sqlgen"
	"github.com/satishbabariya/strata/query/table"
)

var (
	ErrUnknownTable     = errors.New("unknown table")
	ErrUnknownJoin      = errors.New("unknown join kind")
	ErrUnknownAggregate = errors.New("unknown aggregate function")
	ErrUnknownType      = errors.New("unknown query type")
	ErrJoinColumns      = errors.New("join needs a base and a joined column")
	ErrUpdateValues     = errors.New("update needs exactly one values row")
)

// TableSpec declares a table.
type TableSpec struct {
	Columns    []string `yaml:"columns"`
	Paranoid   string   `yaml:"paranoid,omitempty"`
	Timestamps bool     `yaml:"timestamps,omitempty"`
}

// Join joins a declared table. On holds the base and the joined column
// for every kind except cross and natural.
type Join struct {
	Kind  string   `yaml:"kind"`
	Table string   `yaml:"table"`
	Alias string   `yaml:"alias,omitempty"`
	On    []string `yaml:"on,omitempty"`
}

// Order is an ORDER BY entry. Direction defaults to asc.
type Order struct {
	Column    string `yaml:"column"`
	Direction string `yaml:"direction,omitempty"`
}

// Aggregate is a selected aggregate.
type Aggregate struct {
	Fn     string `yaml:"fn"`
	Column string `yaml:"column"`
	Alias  string `yaml:"alias,omitempty"`
}

// Query describes one statement against From.
type Query struct {
	From        string           `yaml:"from"`
	Type        string           `yaml:"type,omitempty"`
	Select      []string         `yaml:"select,omitempty"`
	Distinct    bool             `yaml:"distinct,omitempty"`
	Joins       []Join           `yaml:"joins,omitempty"`
	Where       string           `yaml:"where,omitempty"`
	Aggregates  []Aggregate      `yaml:"aggregates,omitempty"`
	GroupBy     []string         `yaml:"group_by,omitempty"`
	Order       []Order          `yaml:"order,omitempty"`
	Limit       *int             `yaml:"limit,omitempty"`
	Offset      *int             `yaml:"offset,omitempty"`
	Values      []map[string]any `yaml:"values,omitempty"`
	WithDeleted bool             `yaml:"with_deleted,omitempty"`
}

// File is a parsed query file.
type File struct {
	Dialect string               `yaml:"dialect"`
	Tables  map[string]TableSpec `yaml:"tables"`
	Query   Query                `yaml:"query"`
}

// Load reads and parses path from fs.
func Load(fs afero.Fs, path string) (*File, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("read query file: %w", err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse parses a query file. A file without a query only declares
// tables.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	if _, ok := f.Tables[f.Query.From]; f.Query.From != "" && !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTable, f.Query.From)
	}
	return &f, nil
}

// Table returns the declared table name.
func (f *File) Table(name string) (*table.Table, error) {
	spec, ok := f.Tables[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTable, name)
	}

	var opts []table.Option
	if spec.Paranoid != "" {
		opts = append(opts, table.WithParanoid(spec.Paranoid))
	}
	if spec.Timestamps {
		opts = append(opts, table.WithTimestamps())
	}
	return table.New(name, spec.Columns, opts...), nil
}

// Definitions returns every declared table, sorted by name.
func (f *File) Definitions() ([]*table.Table, error) {
	names := make([]string, 0, len(f.Tables))
	for name := range f.Tables {
		names = append(names, name)
	}
	sort.Strings(names)

	tables := make([]*table.Table, len(names))
	for i, name := range names {
		t, err := f.Table(name)
		if err != nil {
			return nil, err
		}
		tables[i] = t
	}
	return tables, nil
}

// Builder builds the query for dialect. An empty dialect uses the one
// named in the file.
func (f *File) Builder(dialect table.Dialect) (*builder.QueryBuilder, error) {
	if dialect == "" {
		d, err := table.ParseDialect(f.Dialect)
		if err != nil {
			return nil, err
		}
		dialect = d
	}

	from, err := f.Table(f.Query.From)
	if err != nil {
		return nil, err
	}
	q := f.Query
	b := builder.New(from, dialect)

	for _, j := range q.Joins {
		if err := f.join(b, j); err != nil {
			return nil, err
		}
	}

	switch strings.ToLower(q.Type) {
	case "", "select":
		b.Select(q.Select...)
		if q.Distinct {
			b.Distinct()
		}
		for _, a := range q.Aggregates {
			fn := ast.AggregateFunc(strings.ToUpper(a.Fn))
			switch fn {
			case ast.Count, ast.Sum, ast.Min, ast.Max, ast.Avg:
			default:
				return nil, fmt.Errorf("%w: %q", ErrUnknownAggregate, a.Fn)
			}
			b.Aggregate(builder.Agg(fn, a.Column, a.Alias))
		}
		if len(q.GroupBy) > 0 {
			b.GroupBy(q.GroupBy...)
		}
	case "insert":
		b.Insert(q.Values...)
	case "update":
		if len(q.Values) != 1 {
			return nil, ErrUpdateValues
		}
		b.Update(q.Values[0])
	case "delete":
		b.Delete()
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, q.Type)
	}

	if _, err := filter.Apply(b, q.Where); err != nil {
		return nil, err
	}
	for _, o := range q.Order {
		dir := ast.Asc
		if strings.EqualFold(o.Direction, "desc") {
			dir = ast.Desc
		}
		b.OrderBy(o.Column, dir)
	}
	if q.Limit != nil {
		b.Limit(*q.Limit)
	}
	if q.Offset != nil {
		b.Offset(*q.Offset)
	}
	if q.WithDeleted {
		b.WithDeleted()
	}
	return b, b.Err()
}

func (f *File) join(b *builder.QueryBuilder, j Join) error {
	tbl, err := f.Table(j.Table)
	if err != nil {
		return err
	}

	kind := strings.ToLower(j.Kind)
	switch kind {
	case "cross":
		b.CrossJoin(tbl, j.Alias)
		return nil
	case "natural":
		b.NaturalJoin(tbl, j.Alias)
		return nil
	}

	if len(j.On) != 2 {
		return fmt.Errorf("%w: %s", ErrJoinColumns, j.Table)
	}
	switch kind {
	case "", "inner":
		b.InnerJoin(tbl, j.Alias, j.On[0], j.On[1])
	case "left":
		b.LeftJoin(tbl, j.Alias, j.On[0], j.On[1])
	case "right":
		b.RightJoin(tbl, j.Alias, j.On[0], j.On[1])
	case "full":
		b.FullJoin(tbl, j.Alias, j.On[0], j.On[1])
	default:
		return fmt.Errorf("%w: %q", ErrUnknownJoin, j.Kind)
	}
	return nil
}

// Output is a compiled query file. SQL dialects fill SQL and Args, the
// document dialect fills Command.
type Output struct {
	Dialect table.Dialect
	SQL     string
	Args    []interface{}
	Command string
}

// Compile compiles the file for dialect.
func (f *File) Compile(dialect table.Dialect) (*Output, error) {
	b, err := f.Builder(dialect)
	if err != nil {
		return nil, err
	}

	out := &Output{Dialect: b.Dialect()}
	if b.Dialect() == table.MongoDB {
		if _, err := b.ToCommand(); err != nil {
			return nil, err
		}
		out.Command = b.String()
		return out, nil
	}

	q, err := b.ToQuery()
	if err != nil {
		return nil, err
	}
	out.SQL, out.Args = q.SQL, q.Args
	return out, nil
}

// Explain compiles the EXPLAIN form of the file for a SQL dialect.
func (f *File) Explain(dialect table.Dialect, opts sqlgen.ExplainOptions) (*Output, error) {
	b, err := f.Builder(dialect)
	if err != nil {
		return nil, err
	}
	q, err := b.ToExplain(opts)
	if err != nil {
		return nil, err
	}
	return &Output{Dialect: b.Dialect(), SQL: q.SQL, Args: q.Args}, nil
}

// Markdown renders the output as a fenced block followed by the bound
// arguments.
func (o *Output) Markdown() string {
	var sb strings.Builder
	if o.Command != "" {
		fmt.Fprintf(&sb, "```json\n%s\n```\n", o.Command)
		return sb.String()
	}

	fmt.Fprintf(&sb, "```sql\n%s\n```\n", o.SQL)
	if len(o.Args) > 0 {
		sb.WriteString("\n| # | value |\n|---|---|\n")
		for i, arg := range o.Args {
			fmt.Fprintf(&sb, "| %d | `%v` |\n", i+1, arg)
		}
	}
	return sb.String()
}

// String renders the output as plain text.
func (o *Output) String() string {
	if o.Command != "" {
		return o.Command
	}
	if len(o.Args) == 0 {
		return o.SQL
	}
	return fmt.Sprintf("%s\n-- args: %v", o.SQL, o.Args)
}
