package builder

import (
	"context"
	"fmt"

	"github.com/satishbabariya/strata/internal/debug"
	"github.com/satishbabariya/strata/query/ast"
	"github.com/satishbabariya/strata/query/sqlgen"
	"github.com/satishbabariya/strata/query/table"
	"github.com/satishbabariya/strata/runtime/hooks"
)

// Exec compiles and runs the query and returns the re-aliased rows.
// UPDATE and DELETE return the affected rows on every SQL dialect; on
// MySQL they are fetched by a follow-up SELECT with the same WHERE.
func (b *QueryBuilder) Exec(ctx context.Context) ([]map[string]any, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.def.QueryType == "" {
		return nil, sqlgen.ErrMissingQueryType
	}
	if b.dialect == table.MongoDB {
		return b.execDocument(ctx)
	}
	if b.sqlClient == nil {
		return nil, ErrMissingClient
	}

	q, err := b.ToQuery()
	if err != nil {
		return nil, err
	}

	event := hooks.Event{
		Query:   q.SQL,
		Params:  q.Args,
		Type:    b.def.QueryType,
		Table:   b.table.Name,
		Dialect: b.dialect,
	}

	event.Hook = hooks.Before
	b.hooks.Fire(ctx, event)

	debug.Debug("exec", "executing query", "table", b.table.Name, "sql", q.SQL, "params", len(q.Args))
	rows, err := b.sqlClient.Exec(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("exec %s on %s: %w", b.def.QueryType, b.table.Name, err)
	}

	returning := b.def.QueryType == ast.Update || b.def.QueryType == ast.Delete
	if returning && b.dialect == table.MySQL {
		rows, err = b.reselect(ctx)
		if err != nil {
			return nil, err
		}
	}

	event.Hook = hooks.After
	b.hooks.Fire(ctx, event)

	out := make([]map[string]any, len(rows))
	for i, row := range rows {
		out[i] = ParseAliasedRow(row, b.def.Select, b.baseAlias())
	}
	return out, nil
}

// reselect fetches the rows matched by the WHERE of an UPDATE or DELETE.
// The SELECT is compiled on its own so its parameters line up with its
// text. Rows whose updated values no longer match are not returned.
func (b *QueryBuilder) reselect(ctx context.Context) ([]map[string]any, error) {
	sel := b.Clone()
	sel.def.QueryType = ast.Select
	sel.def.UpdateValues = nil
	// a soft delete just stamped the marker column
	if b.table.IsParanoid() {
		if _, ok := b.def.UpdateValues[b.table.Paranoid]; ok {
			sel.def.WithDeleted = true
		}
	}

	q, err := sel.ToQuery()
	if err != nil {
		return nil, err
	}
	rows, err := b.sqlClient.Exec(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("reselect %s: %w", b.table.Name, err)
	}
	return rows, nil
}

func (b *QueryBuilder) execDocument(ctx context.Context) ([]map[string]any, error) {
	if b.docClient == nil {
		return nil, ErrMissingClient
	}

	cmd, err := b.ToCommand()
	if err != nil {
		return nil, err
	}

	event := hooks.Event{
		Query:   commandString(cmd),
		Type:    b.def.QueryType,
		Table:   b.table.Name,
		Dialect: b.dialect,
	}

	event.Hook = hooks.Before
	b.hooks.Fire(ctx, event)

	debug.Debug("exec", "running command", "collection", cmd.Collection, "type", cmd.Type)
	rows, err := b.docClient.Run(ctx, cmd)
	if err != nil {
		return nil, fmt.Errorf("run %s on %s: %w", cmd.Type, cmd.Collection, err)
	}

	event.Hook = hooks.After
	b.hooks.Fire(ctx, event)

	return rows, nil
}

// Explain runs the query under the dialect's EXPLAIN form and returns the
// plan rows unchanged.
func (b *QueryBuilder) Explain(ctx context.Context, opts sqlgen.ExplainOptions) ([]map[string]any, error) {
	q, err := b.ToExplain(opts)
	if err != nil {
		return nil, err
	}
	if b.sqlClient == nil {
		return nil, ErrMissingClient
	}
	return b.sqlClient.Exec(ctx, q)
}

// ToExplain compiles the query prefixed with the EXPLAIN form.
func (b *QueryBuilder) ToExplain(opts sqlgen.ExplainOptions) (*sqlgen.Query, error) {
	q, err := b.ToQuery()
	if err != nil {
		return nil, err
	}
	gen, err := sqlgen.NewGenerator(b.dialect)
	if err != nil {
		return nil, err
	}
	return sqlgen.ExplainQuery(gen, q, opts)
}
