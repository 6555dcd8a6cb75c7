package middleware_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/strata/internal/debug"
	"github.com/satishbabariya/strata/router"
	"github.com/satishbabariya/strata/router/middleware"
)

func newApp(t *testing.T, h router.Handler) *router.App {
	t.Helper()
	app := router.New("")
	require.NoError(t, app.Use(middleware.RequestID(), middleware.AccessLog()))
	require.NoError(t, app.Get("/", h))
	require.NoError(t, app.Compile())
	return app
}

func echoID(c *router.Context) (*router.Response, error) {
	return c.Text(middleware.GetRequestID(c))
}

func TestRequestIDGenerated(t *testing.T) {
	app := newApp(t, echoID)

	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	id := rec.Header().Get(middleware.HeaderRequestID)
	_, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, id, rec.Body.String())
}

func TestRequestIDPropagated(t *testing.T) {
	app := newApp(t, echoID)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(middleware.HeaderRequestID, "given")
	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, req)

	assert.Equal(t, "given", rec.Header().Get(middleware.HeaderRequestID))
	assert.Equal(t, "given", rec.Body.String())
}

func TestRecover(t *testing.T) {
	app := newApp(t, middleware.Recover(func(c *router.Context) (*router.Response, error) {
		panic("boom")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(middleware.HeaderRequestID, "r-1")
	res := app.Handle(req)

	assert.Equal(t, http.StatusInternalServerError, res.Status)
	assert.JSONEq(t, `{"message":"Internal Server Error","request_id":"r-1"}`, string(res.Body))
}

func TestLogged(t *testing.T) {
	var buf bytes.Buffer
	debug.Init(debug.Options{Level: "debug", JSON: true, Writer: &buf})
	t.Cleanup(func() { debug.Init(debug.Options{Writer: io.Discard}) })

	app := newApp(t, middleware.Logged(func(c *router.Context) (*router.Response, error) {
		return c.Status(http.StatusAccepted).Text("ok")
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(middleware.HeaderRequestID, "r-2")
	app.Handle(req)

	var completed map[string]any
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		var entry map[string]any
		require.NoError(t, json.Unmarshal(line, &entry))
		if entry["msg"] == "request completed" {
			completed = entry
		}
	}
	require.NotNil(t, completed)
	assert.Equal(t, "router", completed["category"])
	assert.Equal(t, "r-2", completed["request_id"])
	assert.Equal(t, float64(http.StatusAccepted), completed["status"])
}
