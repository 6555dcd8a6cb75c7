// Package demo is the sample application served by `strata serve`. It
// exposes the tables of a Database as a small JSON API.
package demo

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/satishbabariya/strata/cli/internal/filter"
	"github.com/satishbabariya/strata/internal/debug"
	"github.com/satishbabariya/strata/query/ast"
	"github.com/satishbabariya/strata/query/builder"
	"github.com/satishbabariya/strata/query/table"
	"github.com/satishbabariya/strata/router"
	"github.com/satishbabariya/strata/router/middleware"
	"github.com/satishbabariya/strata/runtime/client"
)

const stateKeyTable = "table"

// errBadRequest marks errors caused by the request itself.
var errBadRequest = errors.New("bad request")

func badRequest(err error) error {
	return fmt.Errorf("%w: %v", errBadRequest, err)
}

// Tables are the tables defined when no query file names any.
func Tables() []*table.Table {
	return []*table.Table{
		table.New("users", []string{"id", "name", "email"}),
		table.New("posts", []string{"id", "title", "authorId", "deletedAt"}, table.WithParanoid("")),
	}
}

// listParams are the query parameters of the list endpoints.
type listParams struct {
	Limit  int    `query:"limit"`
	Offset int    `query:"offset"`
	Where  string `query:"where"`
	Order  string `query:"order"`
	Desc   bool   `query:"desc"`
}

type api struct {
	db *client.Database
}

// New registers the demo routes under basePath and compiles the app.
// Only handlers use db, so it may be nil when the routes are just listed.
func New(db *client.Database, basePath string) (*router.App, error) {
	a := &api{db: db}
	app := router.New(basePath)

	app.Use(middleware.RequestID(), middleware.AccessLog())
	app.OnError(a.onError)

	app.Get("/health", middleware.Logged(a.health))
	app.Get("/tables", middleware.Logged(a.tables))
	app.Group("/tables/:table", func(g *router.Router) {
		g.Get("/sql", middleware.Logged(a.sql))
		g.Get("/rows", middleware.Logged(a.list))
		g.Post("/rows", middleware.Logged(a.create))
		g.Get("/rows/:id", middleware.Logged(a.get))
		g.Patch("/rows/:id", middleware.Logged(a.update))
		g.Delete("/rows/:id", middleware.Logged(a.remove))
	}, a.resolveTable)

	if err := app.Compile(); err != nil {
		return nil, err
	}
	return app, nil
}

func (a *api) onError(err error, c *router.Context) *router.Response {
	status := http.StatusInternalServerError
	if errors.Is(err, errBadRequest) || errors.Is(err, ast.ErrInvalidComparison) {
		status = http.StatusBadRequest
	}

	debug.Error("demo", "request failed", "path", c.Path(), "request_id", middleware.GetRequestID(c), "error", err)
	res, jsonErr := c.Status(status).JSON(map[string]any{
		"message":    err.Error(),
		"request_id": middleware.GetRequestID(c),
	})
	if jsonErr != nil {
		return router.InternalServerError()
	}
	return res
}

// resolveTable rejects unknown tables before any handler runs.
func (a *api) resolveTable(c *router.Context, next router.Next) (*router.Response, error) {
	tbl, ok := a.db.Lookup(c.Param("table"))
	if !ok {
		return c.NotFound("unknown table " + c.Param("table"))
	}
	c.Set(stateKeyTable, tbl)
	next()
	return nil, nil
}

func (a *api) builder(c *router.Context) *builder.QueryBuilder {
	v, _ := c.Get(stateKeyTable)
	return a.db.Builder(v.(*table.Table))
}

func (a *api) query(c *router.Context) (*builder.QueryBuilder, error) {
	var p listParams
	if err := c.BindQuery(&p); err != nil {
		return nil, badRequest(err)
	}

	b, err := filter.Apply(a.builder(c).Select(), p.Where)
	if err != nil {
		return nil, badRequest(err)
	}
	if p.Order != "" {
		dir := ast.Asc
		if p.Desc {
			dir = ast.Desc
		}
		b.OrderBy(p.Order, dir)
	}
	if p.Limit > 0 {
		b.Limit(p.Limit)
	}
	if p.Offset > 0 {
		b.Offset(p.Offset)
	}
	return b, nil
}

func (a *api) byID(c *router.Context) *builder.QueryBuilder {
	b := a.builder(c)
	id := any(c.Param("id"))
	if n, err := strconv.ParseInt(c.Param("id"), 10, 64); err == nil {
		id = n
	}
	return b.Where(b.Table().Name+".id", ast.Eq, id)
}

func (a *api) health(c *router.Context) (*router.Response, error) {
	return c.JSON(map[string]any{"status": "ok", "dialect": a.db.Dialect()})
}

func (a *api) tables(c *router.Context) (*router.Response, error) {
	return c.JSON(map[string]any{"tables": a.db.Tables()})
}

func (a *api) sql(c *router.Context) (*router.Response, error) {
	b, err := a.query(c)
	if err != nil {
		return nil, err
	}
	if b.Dialect() == table.MongoDB {
		if _, err := b.ToCommand(); err != nil {
			return nil, err
		}
		return c.Body([]byte(b.String()), "application/json")
	}
	q, err := b.ToQuery()
	if err != nil {
		return nil, err
	}
	return c.JSON(map[string]any{"sql": q.SQL, "args": q.Args})
}

func (a *api) list(c *router.Context) (*router.Response, error) {
	b, err := a.query(c)
	if err != nil {
		return nil, err
	}
	rows, err := b.Exec(c.Context())
	if err != nil {
		return nil, err
	}
	return c.JSON(rows)
}

func (a *api) get(c *router.Context) (*router.Response, error) {
	rows, err := a.byID(c).Select().Limit(1).Exec(c.Context())
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return c.NotFound()
	}
	return c.JSON(rows[0])
}

func (a *api) create(c *router.Context) (*router.Response, error) {
	var values map[string]any
	if err := c.BindJSON(&values); err != nil {
		return nil, badRequest(err)
	}
	rows, err := a.builder(c).Insert(values).Exec(c.Context())
	if err != nil {
		return nil, err
	}
	// SQL inserts return no rows; echo what was written.
	if len(rows) == 0 {
		return c.Status(http.StatusCreated).JSON(values)
	}
	return c.Status(http.StatusCreated).JSON(rows)
}

func (a *api) update(c *router.Context) (*router.Response, error) {
	var values map[string]any
	if err := c.BindJSON(&values); err != nil {
		return nil, badRequest(err)
	}
	rows, err := a.byID(c).Update(values).Exec(c.Context())
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return c.NotFound()
	}
	return c.JSON(rows[0])
}

func (a *api) remove(c *router.Context) (*router.Response, error) {
	if _, err := a.byID(c).Delete().Exec(c.Context()); err != nil {
		return nil, err
	}
	return c.NoContent()
}
