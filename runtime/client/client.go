// Package client provides the Database facade: a table registry whose
// builders share one executor, one hook registry and, inside
// Transaction, one transaction.
package client

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/satishbabariya/strata/internal/config"
	"github.com/satishbabariya/strata/internal/debug"
	"github.com/satishbabariya/strata/query/builder"
	"github.com/satishbabariya/strata/query/executor"
	"github.com/satishbabariya/strata/query/table"
	"github.com/satishbabariya/strata/runtime/hooks"
)

var (
	// ErrUnknownTable is returned by Table for names never defined.
	ErrUnknownTable = errors.New("unknown table")
	// ErrDuplicateTable is returned by Define for an existing name.
	ErrDuplicateTable = errors.New("table already defined")
	// ErrNoTransactions is returned by Transaction on document databases.
	ErrNoTransactions = errors.New("transactions require a SQL dialect")
)

// Database is the main database client
type Database struct {
	dialect table.Dialect
	sql     *executor.SQLExecutor
	docs    *executor.DocumentExecutor
	hooks   *hooks.Registry

	mu     sync.RWMutex
	tables map[string]*table.Table
}

// Open connects using cfg. The dialect selects the SQL driver or the
// MongoDB client; for MongoDB cfg.Database names the database.
func Open(ctx context.Context, cfg config.Database) (*Database, error) {
	dialect, err := table.ParseDialect(cfg.Dialect)
	if err != nil {
		return nil, err
	}

	if dialect == table.MongoDB {
		docs, err := executor.ConnectMongo(ctx, cfg.URL, cfg.Database, executor.MongoOptions{
			MaxPoolSize: uint64(max(cfg.MaxOpenConns, 0)),
		})
		if err != nil {
			return nil, err
		}
		return NewDocument(docs), nil
	}

	sqlExec, err := executor.Open(ctx, dialect, cfg.URL, executor.Options{
		MaxOpenConns: cfg.MaxOpenConns,
		StatementTTL: cfg.StatementTTL,
	})
	if err != nil {
		return nil, err
	}
	sqlExec.Use(executor.LoggingMiddleware())

	return NewSQL(sqlExec), nil
}

// NewSQL creates a Database on an open SQL executor.
func NewSQL(exec *executor.SQLExecutor) *Database {
	return &Database{
		dialect: exec.Dialect(),
		sql:     exec,
		hooks:   hooks.NewRegistry(),
		tables:  map[string]*table.Table{},
	}
}

// NewDocument creates a Database on a MongoDB executor.
func NewDocument(exec *executor.DocumentExecutor) *Database {
	return &Database{
		dialect: table.MongoDB,
		docs:    exec,
		hooks:   hooks.NewRegistry(),
		tables:  map[string]*table.Table{},
	}
}

// Dialect returns the dialect of the connection.
func (d *Database) Dialect() table.Dialect {
	return d.dialect
}

// SQL returns the SQL executor, nil for document databases.
func (d *Database) SQL() *executor.SQLExecutor {
	return d.sql
}

// Hooks returns the hook registry shared by every builder of d.
func (d *Database) Hooks() *hooks.Registry {
	return d.hooks
}

// Define registers tables.
func (d *Database) Define(tables ...*table.Table) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, t := range tables {
		if _, ok := d.tables[t.Name]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateTable, t.Name)
		}
		d.tables[t.Name] = t
	}
	return nil
}

// Tables returns the defined table names, sorted.
func (d *Database) Tables() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	names := make([]string, 0, len(d.tables))
	for name := range d.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns a defined table.
func (d *Database) Lookup(name string) (*table.Table, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	t, ok := d.tables[name]
	return t, ok
}

// Table returns a fresh builder for name bound to the client and hooks
// of d.
func (d *Database) Table(name string) (*builder.QueryBuilder, error) {
	t, ok := d.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, name)
	}
	return d.Builder(t), nil
}

// Builder returns a builder for t, defined or not.
func (d *Database) Builder(t *table.Table) *builder.QueryBuilder {
	opts := []builder.Option{builder.WithHooks(d.hooks)}
	if d.sql != nil {
		opts = append(opts, builder.WithSQLClient(d.sql))
	}
	if d.docs != nil {
		opts = append(opts, builder.WithDocumentClient(d.docs))
	}
	return builder.New(t, d.dialect, opts...)
}

// AddHook registers fn for every builder of d.
func (d *Database) AddHook(t hooks.Type, fn hooks.Func) hooks.ID {
	return d.hooks.Add(t, fn)
}

// RemoveHook unregisters a hook added with AddHook.
func (d *Database) RemoveHook(id hooks.ID) bool {
	return d.hooks.Remove(id)
}

// Transaction runs fn on one transaction. Builders executed with the
// context handed to fn share it; a nested call opens a savepoint.
func (d *Database) Transaction(ctx context.Context, fn executor.TransactionFunc) error {
	if d.sql == nil {
		return ErrNoTransactions
	}
	return d.sql.Transaction(ctx, fn)
}

// Connect checks the database is reachable.
func (d *Database) Connect(ctx context.Context) error {
	if d.sql != nil {
		return d.sql.DB().PingContext(ctx)
	}
	return d.docs.Database().Client().Ping(ctx, nil)
}

// Close releases the connection.
func (d *Database) Close(ctx context.Context) error {
	debug.Debug("exec", "closing database", "dialect", d.dialect)
	if d.sql != nil {
		return d.sql.Close()
	}
	return d.docs.Close(ctx)
}
