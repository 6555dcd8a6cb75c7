package mongogen_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/satishbabariya/strata/query/ast"
	"github.com/satishbabariya/strata/query/mongogen"
	"github.com/satishbabariya/strata/query/table"
)

func intPtr(v int) *int { return &v }

func where(children ...ast.Node) *ast.Group {
	return &ast.Group{Operator: ast.AND, Children: children}
}

func TestCompilePipeline(t *testing.T) {
	posts := table.New("posts", []string{"id", "authorId", "title", "deletedAt"}, table.WithParanoid(""))

	def := &ast.Definition{
		QueryType: ast.Select,
		Select:    []ast.Selection{{Column: "posts.title"}, {Column: "posts.authorId", As: "author"}},
		Where:     where(cmp("posts.authorId", ast.Eq, 1)),
		Having:    where(cmp("author", ast.Gt, 0)),
		OrderBy:   []ast.Order{{Column: "posts.id", Direction: ast.Desc}, {Column: "posts.title", Direction: ast.Asc}},
		Limit:     intPtr(5),
		Offset:    intPtr(10),
	}

	pipeline, err := mongogen.CompilePipeline(posts, def)
	require.NoError(t, err)

	assert.Equal(t, []bson.D{
		d("$match", d("deletedAt", nil)),
		d("$match", d("authorId", d("$eq", 1))),
		d("$project", d("title", 1, "author", "$authorId")),
		d("$sort", d("id", -1, "title", 1)),
		d("$match", d("author", d("$gt", 0))),
		d("$skip", 10),
		d("$limit", 5),
	}, pipeline)
}

func TestCompilePipelineWithJoin(t *testing.T) {
	users := table.New("users", []string{"id", "name"})

	def := &ast.Definition{
		QueryType: ast.Select,
		Joins: []*ast.Join{{
			Table: "posts",
			Alias: "p",
			Kind:  ast.LeftJoin,
			On:    cmp("users.id", ast.Eq, ast.Col("p.authorId")),
		}},
	}

	pipeline, err := mongogen.CompilePipeline(users, def)
	require.NoError(t, err)
	require.Len(t, pipeline, 2)

	assert.Equal(t, "$lookup", pipeline[0][0].Key)
	assert.Equal(t, d("$project", d("id", 1, "name", 1, "p", 1)), pipeline[1])
}

func TestCompilePipelineWithDeleted(t *testing.T) {
	posts := table.New("posts", []string{"id"}, table.WithParanoid("removedAt"))

	pipeline, err := mongogen.CompilePipeline(posts, &ast.Definition{QueryType: ast.Select, WithDeleted: true})
	require.NoError(t, err)
	assert.Equal(t, []bson.D{d("$project", d("id", 1))}, pipeline)

	pipeline, err = mongogen.CompilePipeline(posts, &ast.Definition{QueryType: ast.Select})
	require.NoError(t, err)
	assert.Equal(t, d("$match", d("removedAt", nil)), pipeline[0])
}

func TestCompilePipelineNegativePagination(t *testing.T) {
	users := table.New("users", []string{"id"})
	_, err := mongogen.CompilePipeline(users, &ast.Definition{QueryType: ast.Select, Offset: intPtr(-1)})
	assert.ErrorIs(t, err, mongogen.ErrNegativePagination)
}

func TestCompileCommands(t *testing.T) {
	users := table.New("users", []string{"id", "name"})
	posts := table.New("posts", []string{"id", "title"}, table.WithParanoid(""))

	t.Run("insertMany keeps declared order", func(t *testing.T) {
		cmd, err := mongogen.Compile(users, &ast.Definition{
			QueryType:    ast.Insert,
			InsertValues: []map[string]any{{"name": "a", "id": 1, "extra": true}},
		})
		require.NoError(t, err)
		assert.Equal(t, mongogen.InsertMany, cmd.Type)
		assert.Equal(t, []interface{}{d("id", 1, "name", "a", "extra", true)}, cmd.Documents)
	})

	t.Run("updateMany combines the soft delete filter", func(t *testing.T) {
		cmd, err := mongogen.Compile(posts, &ast.Definition{
			QueryType:    ast.Update,
			UpdateValues: map[string]any{"title": "t"},
			Where:        where(cmp("posts.id", ast.Eq, 5)),
		})
		require.NoError(t, err)
		assert.Equal(t, mongogen.UpdateMany, cmd.Type)
		assert.Equal(t, d("$and", bson.A{d("deletedAt", nil), d("id", d("$eq", 5))}), cmd.Filter)
		assert.Equal(t, d("$set", d("title", "t")), cmd.Update)
	})

	t.Run("deleteMany", func(t *testing.T) {
		cmd, err := mongogen.Compile(users, &ast.Definition{
			QueryType: ast.Delete,
			Where:     where(cmp("users.id", ast.Eq, 1)),
		})
		require.NoError(t, err)
		assert.Equal(t, mongogen.DeleteMany, cmd.Type)
		assert.Equal(t, "users", cmd.Collection)
		assert.Equal(t, d("id", d("$eq", 1)), cmd.Filter)
	})

	t.Run("missing values", func(t *testing.T) {
		_, err := mongogen.Compile(users, &ast.Definition{QueryType: ast.Update})
		assert.ErrorIs(t, err, mongogen.ErrMissingValues)
		_, err = mongogen.Compile(users, &ast.Definition{QueryType: ast.Insert})
		assert.ErrorIs(t, err, mongogen.ErrMissingValues)
	})

	t.Run("missing query type", func(t *testing.T) {
		_, err := mongogen.Compile(users, &ast.Definition{})
		assert.ErrorIs(t, err, mongogen.ErrMissingQueryType)
	})
}
