package builder_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/strata/query/ast"
	"github.com/satishbabariya/strata/query/builder"
	"github.com/satishbabariya/strata/query/mongogen"
	"github.com/satishbabariya/strata/query/sqlgen"
	"github.com/satishbabariya/strata/query/table"
	"github.com/satishbabariya/strata/runtime/hooks"
)

type recordingClient struct {
	queries []*sqlgen.Query
	rows    [][]map[string]any
	err     error
}

func (c *recordingClient) Exec(_ context.Context, q *sqlgen.Query) ([]map[string]any, error) {
	c.queries = append(c.queries, q)
	if c.err != nil {
		return nil, c.err
	}
	if len(c.rows) == 0 {
		return nil, nil
	}
	rows := c.rows[0]
	c.rows = c.rows[1:]
	return rows, nil
}

type recordingDocs struct {
	commands []*mongogen.Command
}

func (c *recordingDocs) Run(_ context.Context, cmd *mongogen.Command) ([]map[string]any, error) {
	c.commands = append(c.commands, cmd)
	return []map[string]any{{"_id": 1}}, nil
}

func TestExecRequiresQueryTypeAndClient(t *testing.T) {
	_, err := builder.New(users(), table.Postgres).Exec(context.Background())
	assert.ErrorIs(t, err, sqlgen.ErrMissingQueryType)

	_, err = builder.New(users(), table.Postgres).Select().Exec(context.Background())
	assert.ErrorIs(t, err, builder.ErrMissingClient)

	_, err = builder.New(users(), table.MongoDB).Select().Exec(context.Background())
	assert.ErrorIs(t, err, builder.ErrMissingClient)
}

func TestExecRealiasesRows(t *testing.T) {
	client := &recordingClient{rows: [][]map[string]any{{
		{"users.id": 1, "users.name": "a", "p.title": "hello", "authorName": "a"},
	}}}

	rows, err := builder.New(users(), table.Postgres, builder.WithSQLClient(client)).
		SelectAs(
			ast.Selection{Column: "users.id"},
			ast.Selection{Column: "users.name"},
			ast.Selection{Column: "p.title"},
			builder.As("users.name", "authorName"),
		).
		InnerJoin(posts(), "p", "users.id", "p.authorId").
		Exec(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)

	assert.Equal(t, map[string]any{
		"id":         1,
		"name":       "a",
		"authorName": "a",
		"p":          map[string]any{"title": "hello"},
	}, rows[0])
}

func TestExecFiresHooksInOrder(t *testing.T) {
	client := &recordingClient{}
	registry := hooks.NewRegistry()

	var fired []string
	registry.Add(hooks.Before, func(_ context.Context, e hooks.Event) {
		fired = append(fired, "before:"+string(e.Type)+":"+e.Query)
	})
	registry.Add(hooks.After, func(_ context.Context, e hooks.Event) {
		fired = append(fired, "after:"+string(e.Type))
	})

	_, err := builder.New(users(), table.SQLite, builder.WithSQLClient(client), builder.WithHooks(registry)).
		Insert(map[string]any{"id": 1, "name": "a", "email": "e"}).
		Exec(context.Background())
	require.NoError(t, err)

	sql := `INSERT INTO "users" ("id", "name", "email") VALUES (?, ?, ?);`
	assert.Equal(t, []string{"before:INSERT:" + sql, "after:INSERT"}, fired)
	require.Len(t, client.queries, 1)
	assert.Equal(t, []interface{}{1, "a", "e"}, client.queries[0].Args)
}

func TestExecErrorSkipsAfterHooks(t *testing.T) {
	client := &recordingClient{err: errors.New("boom")}
	registry := hooks.NewRegistry()

	after := 0
	registry.Add(hooks.After, func(context.Context, hooks.Event) { after++ })

	_, err := builder.New(users(), table.Postgres, builder.WithSQLClient(client), builder.WithHooks(registry)).
		Select().
		Exec(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Zero(t, after)
}

func TestMySQLUpdateReselects(t *testing.T) {
	freezeClock(t)

	client := &recordingClient{rows: [][]map[string]any{
		nil,
		{{"posts.id": 5, "posts.title": "t"}},
	}}

	rows, err := builder.New(posts(), table.MySQL, builder.WithSQLClient(client)).
		Update(map[string]any{"title": "t"}).
		Where("posts.id", ast.Eq, 5).
		Exec(context.Background())
	require.NoError(t, err)

	require.Len(t, client.queries, 2)
	assert.Equal(t, "UPDATE `posts` SET `title` = ? WHERE (`deletedAt` IS NULL AND `posts`.`id` = ?);", client.queries[0].SQL)
	assert.Equal(t, "SELECT `posts`.`id` AS `posts.id`, `posts`.`authorId` AS `posts.authorId`, `posts`.`title` AS `posts.title`, `posts`.`deletedAt` AS `posts.deletedAt` FROM `posts` WHERE (`posts`.`deletedAt` IS NULL AND `posts`.`id` = ?);", client.queries[1].SQL)
	assert.Equal(t, []interface{}{5}, client.queries[1].Args)

	assert.Equal(t, []map[string]any{{"id": 5, "title": "t"}}, rows)
}

func TestMySQLSoftDeleteReselectsDeletedRows(t *testing.T) {
	freezeClock(t)

	client := &recordingClient{}
	_, err := builder.New(posts(), table.MySQL, builder.WithSQLClient(client)).
		Delete().
		Where("posts.id", ast.Eq, 5).
		Exec(context.Background())
	require.NoError(t, err)

	require.Len(t, client.queries, 2)
	assert.Equal(t, "SELECT `posts`.`id` AS `posts.id`, `posts`.`authorId` AS `posts.authorId`, `posts`.`title` AS `posts.title`, `posts`.`deletedAt` AS `posts.deletedAt` FROM `posts` WHERE (`posts`.`id` = ?);", client.queries[1].SQL)
}

func TestExecDocument(t *testing.T) {
	docs := &recordingDocs{}
	registry := hooks.NewRegistry()

	var events []hooks.Event
	registry.Add(hooks.After, func(_ context.Context, e hooks.Event) { events = append(events, e) })

	rows, err := builder.New(users(), table.MongoDB, builder.WithDocumentClient(docs), builder.WithHooks(registry)).
		Select("users.name").
		Where("users.id", ast.Eq, 1).
		Exec(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []map[string]any{{"_id": 1}}, rows)

	require.Len(t, docs.commands, 1)
	assert.Equal(t, mongogen.Aggregate, docs.commands[0].Type)
	assert.Equal(t, "users", docs.commands[0].Collection)

	require.Len(t, events, 1)
	assert.Equal(t, table.MongoDB, events[0].Dialect)
	assert.Contains(t, events[0].Query, `"aggregate":"users"`)
}
