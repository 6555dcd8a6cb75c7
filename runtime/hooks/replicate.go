package hooks

import (
	"context"

	"github.com/satishbabariya/strata/internal/debug"
	"github.com/satishbabariya/strata/query/ast"
	"github.com/satishbabariya/strata/query/sqlgen"
)

// Replica executes statements forwarded from the primary.
type Replica interface {
	Exec(ctx context.Context, q *sqlgen.Query) ([]map[string]any, error)
}

// Replicate returns an after hook that forwards every SQL write to
// target once it ran on the primary. SELECT statements and document
// commands are not forwarded. Replica errors are logged and dropped.
func Replicate(target Replica) Func {
	return func(ctx context.Context, e Event) {
		if e.Hook != After || e.Type == ast.Select || !e.Dialect.IsSQL() {
			return
		}

		q := &sqlgen.Query{SQL: e.Query, Args: e.Params}
		if _, err := target.Exec(ctx, q); err != nil {
			debug.Warn("hooks", "replica exec failed", "table", e.Table, "error", err)
		}
	}
}
