package hooks_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/satishbabariya/strata/query/ast"
	"github.com/satishbabariya/strata/query/sqlgen"
	"github.com/satishbabariya/strata/query/table"
	"github.com/satishbabariya/strata/runtime/hooks"
)

func TestRegistryFiresInOrder(t *testing.T) {
	r := hooks.NewRegistry()
	var got []string

	r.Add(hooks.Before, func(context.Context, hooks.Event) { got = append(got, "b1") })
	id := r.Add(hooks.Before, func(context.Context, hooks.Event) { got = append(got, "b2") })
	r.Add(hooks.Before, func(context.Context, hooks.Event) { got = append(got, "b3") })
	r.Add(hooks.After, func(context.Context, hooks.Event) { got = append(got, "a1") })

	r.Fire(context.Background(), hooks.Event{Hook: hooks.Before})
	assert.Equal(t, []string{"b1", "b2", "b3"}, got)

	assert.True(t, r.Remove(id))
	assert.False(t, r.Remove(id))
	assert.Equal(t, 2, r.Len(hooks.Before))

	got = nil
	r.Fire(context.Background(), hooks.Event{Hook: hooks.Before})
	r.Fire(context.Background(), hooks.Event{Hook: hooks.After})
	assert.Equal(t, []string{"b1", "b3", "a1"}, got)
}

func TestNilRegistry(t *testing.T) {
	var r *hooks.Registry
	assert.Equal(t, 0, r.Len(hooks.After))
	assert.NotPanics(t, func() { r.Fire(context.Background(), hooks.Event{Hook: hooks.After}) })
}

type replica struct {
	queries []*sqlgen.Query
	err     error
}

func (r *replica) Exec(_ context.Context, q *sqlgen.Query) ([]map[string]any, error) {
	r.queries = append(r.queries, q)
	return nil, r.err
}

func TestReplicate(t *testing.T) {
	target := &replica{}
	hook := hooks.Replicate(target)
	ctx := context.Background()

	write := hooks.Event{
		Query:   `UPDATE "users" SET "name" = $1;`,
		Params:  []any{"bob"},
		Type:    ast.Update,
		Hook:    hooks.After,
		Table:   "users",
		Dialect: table.Postgres,
	}

	hook(ctx, write)

	skipped := []hooks.Event{
		{Query: "SELECT 1;", Type: ast.Select, Hook: hooks.After, Dialect: table.Postgres},
		{Query: write.Query, Type: ast.Update, Hook: hooks.Before, Dialect: table.Postgres},
		{Query: "{}", Type: ast.Update, Hook: hooks.After, Dialect: table.MongoDB},
	}
	for _, e := range skipped {
		hook(ctx, e)
	}

	if assert.Len(t, target.queries, 1) {
		assert.Equal(t, write.Query, target.queries[0].SQL)
		assert.Equal(t, []any{"bob"}, target.queries[0].Args)
	}

	target.err = errors.New("replica down")
	assert.NotPanics(t, func() { hook(ctx, write) })
	assert.Len(t, target.queries, 2)
}
