// Package executor runs compiled queries against database/sql drivers
// through sqlx and against MongoDB through the official driver.
package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"           // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/satishbabariya/strata/internal/debug"
	"github.com/satishbabariya/strata/query/cache"
	"github.com/satishbabariya/strata/query/sqlgen"
	"github.com/satishbabariya/strata/query/table"
)

var ErrUnsupportedDialect = errors.New("unsupported dialect")

// DriverName maps a dialect to its database/sql driver name.
func DriverName(dialect table.Dialect) (string, error) {
	switch dialect {
	case table.Postgres:
		return "postgres", nil
	case table.MySQL:
		return "mysql", nil
	case table.SQLite:
		return "sqlite3", nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedDialect, dialect)
	}
}

// Options tunes a SQLExecutor.
type Options struct {
	MaxOpenConns int
	// StatementTTL is how long a prepared statement stays cached after it
	// was prepared. An expired statement is closed when it is replaced.
	// Zero uses the cache default; a negative value disables statement
	// caching.
	StatementTTL time.Duration
}

// SQLExecutor executes compiled SQL and returns rows as maps keyed by
// column label.
type SQLExecutor struct {
	db          *sqlx.DB
	dialect     table.Dialect
	stmts       *cache.Store
	middlewares []Middleware
}

// Open connects to dsn with the driver of dialect.
func Open(ctx context.Context, dialect table.Dialect, dsn string, opts Options) (*SQLExecutor, error) {
	driver, err := DriverName(dialect)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", dialect, err)
	}

	// every in-memory SQLite connection is its own database
	if dialect == table.SQLite && strings.Contains(dsn, ":memory:") {
		opts.MaxOpenConns = 1
	}
	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}

	return New(db, dialect, opts), nil
}

// New wraps an open connection pool.
func New(db *sqlx.DB, dialect table.Dialect, opts Options) *SQLExecutor {
	e := &SQLExecutor{db: db, dialect: dialect}
	if opts.StatementTTL >= 0 {
		e.stmts = cache.New(opts.StatementTTL, 0, cache.OnEvicted(func(_ string, value interface{}) {
			if stmt, ok := value.(*sqlx.Stmt); ok {
				_ = stmt.Close()
			}
		}))
	}
	return e
}

// DB returns the underlying connection pool.
func (e *SQLExecutor) DB() *sqlx.DB {
	return e.db
}

// Dialect returns the dialect of the connection.
func (e *SQLExecutor) Dialect() table.Dialect {
	return e.dialect
}

// Close closes cached statements and the pool.
func (e *SQLExecutor) Close() error {
	e.ClearStmtCache()
	return e.db.Close()
}

// ClearStmtCache closes and drops every cached prepared statement.
func (e *SQLExecutor) ClearStmtCache() {
	if e.stmts != nil {
		e.stmts.Clear()
	}
}

// StmtCacheStats returns statistics of the prepared statement cache.
func (e *SQLExecutor) StmtCacheStats() cache.Stats {
	if e.stmts == nil {
		return cache.Stats{}
	}
	return e.stmts.GetStats()
}

// getCachedStmt gets a cached prepared statement or creates a new one
func (e *SQLExecutor) getCachedStmt(ctx context.Context, query string) (*sqlx.Stmt, error) {
	key := cache.StatementKey(string(e.dialect), query)
	if v, ok := e.stmts.Get(key); ok {
		return v.(*sqlx.Stmt), nil
	}

	stmt, err := e.db.PreparexContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare statement: %w", err)
	}
	cached, added := e.stmts.Add(key, stmt, 0)
	if !added {
		// another goroutine prepared it first
		_ = stmt.Close()
		return cached.(*sqlx.Stmt), nil
	}
	return stmt, nil
}

// Exec runs q. Inside Transaction the statement runs on the transaction
// carried by ctx.
func (e *SQLExecutor) Exec(ctx context.Context, q *sqlgen.Query) ([]map[string]any, error) {
	var rows []map[string]any
	err := e.intercept(ctx, q, func() error {
		var err error
		rows, err = e.query(ctx, q)
		return err
	})
	return rows, err
}

func (e *SQLExecutor) query(ctx context.Context, q *sqlgen.Query) ([]map[string]any, error) {
	var (
		rows *sqlx.Rows
		err  error
	)

	switch tx := txFromContext(ctx, e); {
	case tx != nil:
		rows, err = tx.QueryxContext(ctx, q.SQL, q.Args...)
	case e.stmts != nil:
		var stmt *sqlx.Stmt
		stmt, err = e.getCachedStmt(ctx, q.SQL)
		if err != nil {
			return nil, err
		}
		rows, err = stmt.QueryxContext(ctx, q.Args...)
	default:
		rows, err = e.db.QueryxContext(ctx, q.SQL, q.Args...)
	}
	if err != nil {
		return nil, fmt.Errorf("query execution failed: %w", err)
	}
	defer rows.Close()

	return scanRows(rows)
}

// scanRows reads every row into a map. Text returned as []byte is
// converted to string.
func scanRows(rows *sqlx.Rows) ([]map[string]any, error) {
	out := []map[string]any{}
	for rows.Next() {
		row := map[string]any{}
		if err := rows.MapScan(row); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		for k, v := range row {
			if b, ok := v.([]byte); ok {
				row[k] = string(b)
			}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration failed: %w", err)
	}

	debug.Debug("exec", "rows scanned", "count", len(out))
	return out, nil
}
