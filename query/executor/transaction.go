package executor

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/satishbabariya/strata/internal/debug"
)

// ErrNoTransaction is returned by Savepoint outside a transaction.
var ErrNoTransaction = errors.New("no transaction in context")

// TransactionFunc runs with a context carrying the transaction.
type TransactionFunc func(ctx context.Context) error

// txState is the transaction carried in a context. owner keeps a
// transaction of one executor from leaking into another one.
type txState struct {
	owner *SQLExecutor
	tx    *sqlx.Tx
	depth int
}

type txKey struct{}

func (e *SQLExecutor) currentTx(ctx context.Context) *txState {
	if st, ok := ctx.Value(txKey{}).(*txState); ok && st.owner == e {
		return st
	}
	return nil
}

func txFromContext(ctx context.Context, owner *SQLExecutor) *sqlx.Tx {
	if st := owner.currentTx(ctx); st != nil {
		return st.tx
	}
	return nil
}

// InTransaction reports whether ctx carries a transaction of e.
func (e *SQLExecutor) InTransaction(ctx context.Context) bool {
	return e.currentTx(ctx) != nil
}

// Transaction runs fn on one transaction. The transaction is rolled back
// when fn returns an error or panics and committed otherwise. Calling
// Transaction again with the context handed to fn opens a savepoint.
func (e *SQLExecutor) Transaction(ctx context.Context, fn TransactionFunc) error {
	return e.TransactionWithOptions(ctx, nil, fn)
}

// ReadOnlyTransaction is Transaction with a read-only transaction.
func (e *SQLExecutor) ReadOnlyTransaction(ctx context.Context, fn TransactionFunc) error {
	return e.TransactionWithOptions(ctx, &sql.TxOptions{ReadOnly: true}, fn)
}

// TransactionWithOptions is Transaction with explicit options. Nested
// calls ignore opts.
func (e *SQLExecutor) TransactionWithOptions(ctx context.Context, opts *sql.TxOptions, fn TransactionFunc) error {
	if st := e.currentTx(ctx); st != nil {
		return e.savepoint(ctx, st, fn)
	}

	tx, err := e.db.BeginTxx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	debug.Debug("exec", "transaction started", "dialect", e.dialect)

	err = guard(func() error {
		return fn(context.WithValue(ctx, txKey{}, &txState{owner: e, tx: tx}))
	}, func() error { return tx.Rollback() })
	if err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	debug.Debug("exec", "transaction committed")
	return nil
}

// Savepoint runs fn inside a savepoint of the transaction carried by ctx.
func (e *SQLExecutor) Savepoint(ctx context.Context, fn TransactionFunc) error {
	st := e.currentTx(ctx)
	if st == nil {
		return ErrNoTransaction
	}
	return e.savepoint(ctx, st, fn)
}

func (e *SQLExecutor) savepoint(ctx context.Context, st *txState, fn TransactionFunc) error {
	st.depth++
	defer func() { st.depth-- }()
	name := fmt.Sprintf("sp_%d", st.depth)

	if _, err := st.tx.ExecContext(ctx, "SAVEPOINT "+name); err != nil {
		return fmt.Errorf("create savepoint %s: %w", name, err)
	}

	err := guard(func() error { return fn(ctx) }, func() error {
		_, err := st.tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+name)
		return err
	})
	if err != nil {
		return err
	}

	if _, err := st.tx.ExecContext(ctx, "RELEASE SAVEPOINT "+name); err != nil {
		return fmt.Errorf("release savepoint %s: %w", name, err)
	}
	return nil
}

// guard runs fn and calls undo when fn fails or panics. A panic is
// re-raised after undo.
func guard(fn func() error, undo func() error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			_ = undo()
			panic(p)
		}
	}()

	if err = fn(); err == nil {
		return nil
	}
	if undoErr := undo(); undoErr != nil {
		return fmt.Errorf("%w (rollback failed: %v)", err, undoErr)
	}
	debug.Debug("exec", "rolled back", "error", err)
	return err
}
