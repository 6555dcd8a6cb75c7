// Package table declares the tables and documents that queries are built
// against, together with the dialects they can be compiled for.
package table

import (
	"fmt"
	"strings"
	"time"
)

// Dialect identifies a query back end.
type Dialect string

const (
	// Postgres compiles to PostgreSQL text with $n placeholders.
	Postgres Dialect = "postgres"
	// MySQL compiles to MySQL text with ? placeholders.
	MySQL Dialect = "mysql"
	// SQLite compiles to SQLite text with ? placeholders.
	SQLite Dialect = "sqlite"
	// MongoDB compiles to an aggregation pipeline.
	MongoDB Dialect = "mongodb"
)

// ParseDialect maps provider spellings to a Dialect.
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(s) {
	case "postgres", "postgresql", "pg":
		return Postgres, nil
	case "mysql", "mariadb":
		return MySQL, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	case "mongodb", "mongo":
		return MongoDB, nil
	default:
		return "", fmt.Errorf("unsupported dialect: %s", s)
	}
}

// IsSQL reports whether the dialect produces SQL text.
func (d Dialect) IsSQL() bool {
	return d == Postgres || d == MySQL || d == SQLite
}

// Quote returns the identifier quote character of a SQL dialect.
func (d Dialect) Quote() string {
	if d == MySQL {
		return "`"
	}
	return `"`
}

// QuoteIdentifier quotes every dot separated part of identifier.
// Double quotes already present are removed first, so `users."id"`
// and users.id quote the same way.
func (d Dialect) QuoteIdentifier(identifier string) string {
	q := d.Quote()
	parts := strings.Split(identifier, ".")
	for i, part := range parts {
		parts[i] = q + strings.ReplaceAll(part, `"`, "") + q
	}
	return strings.Join(parts, ".")
}

const (
	defaultCreatedAt = "createdAt"
	defaultUpdatedAt = "updatedAt"
	defaultDeletedAt = "deletedAt"
)

// Timestamp configures automatic createdAt/updatedAt columns.
// Empty names fall back to createdAt and updatedAt.
type Timestamp struct {
	CreatedAt        string
	UpdatedAt        string
	DisableCreatedAt bool
	DisableUpdatedAt bool
}

// Table is a declared table (or document collection).
type Table struct {
	Name    string
	Columns []string

	// Timestamp enables createdAt/updatedAt back-filling when set.
	Timestamp *Timestamp
	// Paranoid names the soft-delete marker column. Empty disables
	// soft deletes.
	Paranoid string
}

// Option configures a Table.
type Option func(*Table)

// WithTimestamps enables timestamp columns with default names.
func WithTimestamps() Option {
	return func(t *Table) {
		t.Timestamp = &Timestamp{}
	}
}

// WithCustomTimestamps enables timestamp columns with the given policy.
func WithCustomTimestamps(ts Timestamp) Option {
	return func(t *Table) {
		t.Timestamp = &ts
	}
}

// WithParanoid enables soft deletes. An empty column name uses deletedAt.
func WithParanoid(column string) Option {
	return func(t *Table) {
		if column == "" {
			column = defaultDeletedAt
		}
		t.Paranoid = column
	}
}

// New declares a table.
func New(name string, columns []string, opts ...Option) *Table {
	t := &Table{
		Name:    name,
		Columns: append([]string(nil), columns...),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// HasColumn reports whether name is a declared column.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// TimestampColumns returns the createdAt and updatedAt column names that
// should be back-filled. An empty name means the column is disabled.
func (t *Table) TimestampColumns() (createdAt, updatedAt string) {
	if t.Timestamp == nil {
		return "", ""
	}

	createdAt, updatedAt = defaultCreatedAt, defaultUpdatedAt
	if t.Timestamp.CreatedAt != "" {
		createdAt = t.Timestamp.CreatedAt
	}
	if t.Timestamp.UpdatedAt != "" {
		updatedAt = t.Timestamp.UpdatedAt
	}
	if t.Timestamp.DisableCreatedAt {
		createdAt = ""
	}
	if t.Timestamp.DisableUpdatedAt {
		updatedAt = ""
	}
	return createdAt, updatedAt
}

// IsParanoid reports whether deletes on this table are soft.
func (t *Table) IsParanoid() bool {
	return t.Paranoid != ""
}

// Now is the clock used for timestamps and soft deletes.
var Now = func() time.Time {
	return time.Now().UTC()
}
