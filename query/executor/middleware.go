package executor

import (
	"context"
	"time"

	"github.com/satishbabariya/strata/internal/debug"
	"github.com/satishbabariya/strata/query/sqlgen"
)

// QueryEvent describes one statement execution. Duration and Err are
// set once the statement ran.
type QueryEvent struct {
	SQL      string
	Args     []any
	Start    time.Time
	Duration time.Duration
	Err      error
}

// Middleware wraps statement execution. next runs the rest of the chain
// and the statement itself.
type Middleware func(ctx context.Context, ev *QueryEvent, next func() error) error

// Use appends middlewares; the first one added runs outermost. It is not
// safe to call concurrently with Exec.
func (e *SQLExecutor) Use(mws ...Middleware) {
	e.middlewares = append(e.middlewares, mws...)
}

func (e *SQLExecutor) intercept(ctx context.Context, q *sqlgen.Query, run func() error) error {
	if len(e.middlewares) == 0 {
		return run()
	}

	ev := &QueryEvent{SQL: q.SQL, Args: q.Args, Start: time.Now()}
	call := func() error {
		ev.Err = run()
		ev.Duration = time.Since(ev.Start)
		return ev.Err
	}
	for i := len(e.middlewares) - 1; i >= 0; i-- {
		mw, inner := e.middlewares[i], call
		call = func() error { return mw(ctx, ev, inner) }
	}
	return call()
}

// LoggingMiddleware logs statements at debug level and failures at warn.
func LoggingMiddleware() Middleware {
	return func(ctx context.Context, ev *QueryEvent, next func() error) error {
		if err := next(); err != nil {
			debug.Warn("exec", "query failed", "sql", ev.SQL, "error", err)
			return err
		}
		debug.Debug("exec", "query completed", "sql", ev.SQL, "params", len(ev.Args), "duration", ev.Duration)
		return nil
	}
}

// Observe calls fn with every finished statement, failed or not.
func Observe(fn func(QueryEvent)) Middleware {
	return func(ctx context.Context, ev *QueryEvent, next func() error) error {
		err := next()
		fn(*ev)
		return err
	}
}
