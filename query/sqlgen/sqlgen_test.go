package sqlgen_test

import (
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/strata/query/ast"
	"github.com/satishbabariya/strata/query/sqlgen"
	"github.com/satishbabariya/strata/query/table"
)

var dialects = []table.Dialect{table.Postgres, table.MySQL, table.SQLite}

func usersTable() *table.Table {
	return table.New("users", []string{"id", "name"})
}

func postsTable() *table.Table {
	return table.New("posts", []string{"id", "authorId", "title", "deletedAt"}, table.WithParanoid(""))
}

func intPtr(v int) *int { return &v }

func TestCompileGolden(t *testing.T) {
	scenarios := []struct {
		name  string
		table *table.Table
		def   func() *ast.Definition
		args  []interface{}
	}{
		{
			name:  "select_join_where",
			table: usersTable(),
			def: func() *ast.Definition {
				return &ast.Definition{
					QueryType: ast.Select,
					BaseAlias: "u",
					Select:    []ast.Selection{{Column: "u.id"}, {Column: "p.title"}},
					Joins: []*ast.Join{{
						Table: "posts",
						Alias: "p",
						Kind:  ast.LeftJoin,
						On:    &ast.Comparison{Field: "u.id", Operator: ast.Eq, Value: ast.Col("p.authorId")},
					}},
					Where: &ast.Group{Operator: ast.AND, Children: []ast.Node{
						&ast.Comparison{Field: "u.name", Operator: ast.ILike, Value: "a%"},
						&ast.Comparison{Field: "p.title", Operator: ast.In, Values: []any{"x", "y"}},
					}},
					OrderBy: []ast.Order{{Column: "u.id", Direction: ast.Asc}},
					Limit:   intPtr(10),
				}
			},
			args: []interface{}{"a%", "x", "y", 10},
		},
		{
			name:  "update_paranoid",
			table: postsTable(),
			def: func() *ast.Definition {
				return &ast.Definition{
					QueryType:    ast.Update,
					UpdateValues: map[string]any{"title": "t"},
					Where: &ast.Group{Operator: ast.AND, Children: []ast.Node{
						&ast.Comparison{Field: "posts.id", Operator: ast.Eq, Value: 1},
					}},
				}
			},
			args: []interface{}{"t", 1},
		},
		{
			name:  "aggregate_distinct",
			table: postsTable(),
			def: func() *ast.Definition {
				return &ast.Definition{
					QueryType: ast.Select,
					Distinct:  true,
					Select:    []ast.Selection{{Column: "posts.authorId"}},
					Aggregates: []ast.Aggregate{
						{Fn: ast.Sum, Column: "posts.id"},
						{Fn: ast.Max, Column: "posts.title", As: "latest"},
					},
					WithDeleted: true,
				}
			},
		},
		{
			name:  "delete_or_not",
			table: usersTable(),
			def: func() *ast.Definition {
				return &ast.Definition{
					QueryType: ast.Delete,
					Where: &ast.Group{Operator: ast.OR, Children: []ast.Node{
						&ast.Group{Operator: ast.AND, Children: []ast.Node{
							&ast.Comparison{Field: "users.id", Operator: ast.Eq, Value: 1},
						}},
						&ast.Not{Child: &ast.Comparison{Field: "users.name", Operator: ast.Between, Values: []any{"a", "m"}}},
					}},
				}
			},
			args: []interface{}{1, "a", "m"},
		},
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)

	for _, sc := range scenarios {
		for _, dialect := range dialects {
			name := fmt.Sprintf("%s_%s", sc.name, dialect)
			t.Run(name, func(t *testing.T) {
				q, err := sqlgen.Compile(sc.table, sc.def(), dialect)
				require.NoError(t, err)
				assert.Equal(t, sc.args, q.Args)
				g.Assert(t, name, []byte(q.SQL+"\n"))
			})
		}
	}
}

func TestWildcardGroupByExpandsJoinedColumns(t *testing.T) {
	def := &ast.Definition{
		QueryType:  ast.Select,
		BaseAlias:  "u",
		Select:     []ast.Selection{{Column: "u.*"}},
		Aggregates: []ast.Aggregate{{Fn: ast.Count, Column: "p.id", As: "posts"}},
		Joins: []*ast.Join{{
			Table: "posts",
			Alias: "p",
			Kind:  ast.LeftJoin,
			On:    &ast.Comparison{Field: "u.id", Operator: ast.Eq, Value: ast.Col("p.authorId")},
		}},
		JoinedColumns: map[string][]string{"p": {"id", "authorId"}},
	}

	q, err := sqlgen.Compile(usersTable(), def, table.Postgres)
	require.NoError(t, err)
	assert.Equal(t,
		`SELECT "u".*, COUNT("p"."id") AS "posts" FROM "users" AS "u" LEFT JOIN "posts" AS "p" ON "u"."id" = "p"."authorId" GROUP BY "u"."id", "u"."name";`,
		q.SQL)

	def.Select = []ast.Selection{{Column: "p.*"}}
	q, err = sqlgen.Compile(usersTable(), def, table.Postgres)
	require.NoError(t, err)
	assert.Contains(t, q.SQL, `GROUP BY "p"."id", "p"."authorId";`)
}

func TestEmptySelectWithoutColumns(t *testing.T) {
	q, err := sqlgen.Compile(table.New("logs", nil), &ast.Definition{QueryType: ast.Select}, table.SQLite)
	require.NoError(t, err)
	assert.Equal(t, `SELECT "logs".* FROM "logs";`, q.SQL)
}

func TestInsertColumnsCoverEveryRow(t *testing.T) {
	def := &ast.Definition{
		QueryType:    ast.Insert,
		InsertValues: []map[string]any{{"id": 1}, {"id": 2, "nickname": "bob"}},
	}

	q, err := sqlgen.Compile(usersTable(), def, table.SQLite)
	require.NoError(t, err)
	assert.Equal(t, `INSERT INTO "users" ("id", "nickname") VALUES (?, ?), (?, ?);`, q.SQL)
	assert.Equal(t, []interface{}{1, nil, 2, "bob"}, q.Args)
}

func TestAliasedWriteIsRejected(t *testing.T) {
	for _, qt := range []ast.QueryType{ast.Update, ast.Delete} {
		def := &ast.Definition{
			QueryType:    qt,
			BaseAlias:    "u",
			UpdateValues: map[string]any{"name": "x"},
			Where: &ast.Group{Operator: ast.AND, Children: []ast.Node{
				&ast.Comparison{Field: "u.id", Operator: ast.Eq, Value: 1},
			}},
		}
		_, err := sqlgen.Compile(usersTable(), def, table.Postgres)
		assert.ErrorIs(t, err, sqlgen.ErrAliasedWrite, qt)
	}

	// the table's own name is not an alias
	q, err := sqlgen.Compile(usersTable(), &ast.Definition{QueryType: ast.Delete, BaseAlias: "users"}, table.Postgres)
	require.NoError(t, err)
	assert.Equal(t, `DELETE FROM "users" RETURNING *;`, q.SQL)
}

func TestRenderSkipsQuotedPlaceholders(t *testing.T) {
	def := &ast.Definition{
		QueryType: ast.Select,
		Select:    []ast.Selection{{Column: "users.id", As: "why?"}},
		Where: &ast.Group{Operator: ast.AND, Children: []ast.Node{
			&ast.Raw{SQL: `"users"."name" <> 'who?' AND "users"."id" > ?`, Params: []any{3}},
		}},
	}

	q, err := sqlgen.Compile(usersTable(), def, table.Postgres)
	require.NoError(t, err)
	assert.Equal(t, `SELECT "users"."id" AS "why?" FROM "users" WHERE ("users"."name" <> 'who?' AND "users"."id" > $1);`, q.SQL)
	assert.Equal(t, []interface{}{3}, q.Args)
}

func TestDialectMatchOperators(t *testing.T) {
	tests := []struct {
		dialect table.Dialect
		op      ast.Operator
		want    string
	}{
		{table.Postgres, ast.RegExp, `"users"."name" ~ $1`},
		{table.Postgres, ast.RLike, `"users"."name" ~* $1`},
		{table.MySQL, ast.RegExp, "`users`.`name` REGEXP ?"},
		{table.MySQL, ast.RLike, "`users`.`name` RLIKE ?"},
		{table.SQLite, ast.RegExp, `"users"."name" GLOB ?`},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s_%s", tt.dialect, tt.op), func(t *testing.T) {
			def := &ast.Definition{
				QueryType: ast.Select,
				Select:    []ast.Selection{{Column: "users.id"}},
				Where: &ast.Group{Operator: ast.AND, Children: []ast.Node{
					&ast.Comparison{Field: "users.name", Operator: tt.op, Value: "^a"},
				}},
			}
			q, err := sqlgen.Compile(usersTable(), def, tt.dialect)
			require.NoError(t, err)
			assert.Contains(t, q.SQL, "WHERE ("+tt.want+");")
		})
	}
}

func TestUnsupportedDialect(t *testing.T) {
	_, err := sqlgen.Compile(usersTable(), &ast.Definition{QueryType: ast.Select}, table.MongoDB)
	assert.ErrorIs(t, err, sqlgen.ErrUnsupportedDialect)
}

func TestExplainPrefixes(t *testing.T) {
	off := false
	on := true

	tests := []struct {
		name    string
		dialect table.Dialect
		opts    sqlgen.ExplainOptions
		want    string
		err     error
	}{
		{name: "postgres bare", dialect: table.Postgres, want: "EXPLAIN"},
		{
			name:    "postgres full",
			dialect: table.Postgres,
			opts: sqlgen.ExplainOptions{
				Format: sqlgen.ExplainYAML, Analyze: true, Verbose: true,
				Summary: &on, Timing: &off, Costs: &off, Buffers: &on,
			},
			want: "EXPLAIN (FORMAT YAML, ANALYZE, SUMMARY ON, TIMING OFF, VERBOSE ON, COSTS OFF, BUFFERS ON)",
		},
		{
			name:    "postgres summary needs analyze",
			dialect: table.Postgres,
			opts:    sqlgen.ExplainOptions{Summary: &on},
			want:    "EXPLAIN",
		},
		{name: "mysql analyze", dialect: table.MySQL, opts: sqlgen.ExplainOptions{Analyze: true}, want: "EXPLAIN ANALYZE"},
		{name: "mysql format", dialect: table.MySQL, opts: sqlgen.ExplainOptions{Format: sqlgen.ExplainJSON}, want: "EXPLAIN FORMAT=JSON"},
		{
			name:    "mysql both",
			dialect: table.MySQL,
			opts:    sqlgen.ExplainOptions{Analyze: true, Format: sqlgen.ExplainJSON},
			err:     sqlgen.ErrExplainClauses,
		},
		{name: "sqlite", dialect: table.SQLite, opts: sqlgen.ExplainOptions{Analyze: true}, want: "EXPLAIN QUERY PLAN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen, err := sqlgen.NewGenerator(tt.dialect)
			require.NoError(t, err)

			got, err := gen.Explain(tt.opts)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDebugString(t *testing.T) {
	tests := []struct {
		name string
		q    *sqlgen.Query
		want string
	}{
		{
			name: "numbered",
			q:    &sqlgen.Query{SQL: `SELECT * FROM "t" WHERE "a" = $1 AND "b" = $2 AND "c" = $10;`, Args: []interface{}{"x'y", true}},
			want: `SELECT * FROM "t" WHERE "a" = 'x''y' AND "b" = true AND "c" = $10;`,
		},
		{
			name: "positional",
			q:    &sqlgen.Query{SQL: "SELECT * FROM `t` WHERE `a?` = ? AND `b` IN (?, ?);", Args: []interface{}{nil, 1, map[string]int{"k": 2}}},
			want: "SELECT * FROM `t` WHERE `a?` = NULL AND `b` IN ('1', '{\"k\":2}');",
		},
		{
			name: "no params",
			q:    &sqlgen.Query{SQL: "SELECT 1;"},
			want: "SELECT 1;",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sqlgen.DebugString(tt.q))
		})
	}
}
