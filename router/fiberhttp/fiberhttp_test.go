package fiberhttp_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/strata/router"
	"github.com/satishbabariya/strata/router/fiberhttp"
)

func TestPath(t *testing.T) {
	tests := []struct {
		in    string
		out   string
		names map[string]string
	}{
		{in: "/", out: "/"},
		{in: "/users", out: "/users", names: map[string]string{}},
		{in: "/users/:id", out: "/users/:id", names: map[string]string{"id": "id"}},
		{in: "/files/*/raw/*", out: "/files/:wildcard0/raw/:wildcard1", names: map[string]string{"wildcard0": "wildcard0", "wildcard1": "wildcard1"}},
	}
	for _, tt := range tests {
		out, names := fiberhttp.Path(tt.in)
		assert.Equal(t, tt.out, out)
		assert.Equal(t, tt.names, names)
	}
}

func body(t *testing.T, res *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return string(b)
}

func TestMount(t *testing.T) {
	app := router.New("/api")
	require.NoError(t, app.Get("/users/:id", func(c *router.Context) (*router.Response, error) {
		return c.SetHeader("X-User", c.Param("id")).Text("user " + c.Param("id"))
	}))
	require.NoError(t, app.Get("/files/*", func(c *router.Context) (*router.Response, error) {
		return c.Text(c.Param("wildcard0"))
	}))
	app.OnNotFound(func(c *router.Context) *router.Response {
		res, _ := c.NotFound("missing")
		return res
	})

	_, err := fiberhttp.New(app)
	assert.ErrorIs(t, err, router.ErrNotCompiled)

	require.NoError(t, app.Compile())
	f, err := fiberhttp.New(app)
	require.NoError(t, err)

	res, err := f.Test(httptest.NewRequest(http.MethodGet, "/api/users/7", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "7", res.Header.Get("X-User"))
	assert.Equal(t, "user 7", body(t, res))

	res, err = f.Test(httptest.NewRequest(http.MethodGet, "/api/files/a.txt", nil))
	require.NoError(t, err)
	assert.Equal(t, "a.txt", body(t, res))

	res, err = f.Test(httptest.NewRequest(http.MethodGet, "/api/files/a/b", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	assert.JSONEq(t, `{"message":"missing"}`, body(t, res))
}
