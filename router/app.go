package router

import (
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/satishbabariya/strata/internal/debug"
)

var (
	// ErrNotCompiled is reported for requests served before Compile.
	ErrNotCompiled = errors.New("router not compiled")
	// ErrNoResponse is reported when a handler returns neither a
	// response nor an error.
	ErrNoResponse = errors.New("handler returned no response")
)

// PanicError wraps a value recovered from a middleware or handler.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// ErrorHandler converts a request failure into a response.
type ErrorHandler func(err error, c *Context) *Response

// NotFoundHandler answers requests no route matches.
type NotFoundHandler func(c *Context) *Response

// CompiledHandler serves one route whose params the transport already
// resolved.
type CompiledHandler func(req *http.Request, params Params) *Response

// RouteInfo describes a compiled route.
type RouteInfo struct {
	Method      string
	Path        string
	Middlewares int
}

// App is the root router. It serves requests once compiled.
type App struct {
	*Router

	onError    ErrorHandler
	onNotFound NotFoundHandler

	compiled map[string]map[string]CompiledHandler
	routes   []RouteInfo
	fast     bool

	pool sync.Pool
}

// New creates an App whose routes live under basePath.
func New(basePath string) *App {
	a := &App{Router: newRouter(basePath)}
	a.pool.New = func() any { return newContext() }
	return a
}

// OnError sets the handler for errors and panics. The default answers
// 500. Set it before serving.
func (a *App) OnError(fn ErrorHandler) {
	a.onError = fn
}

// OnNotFound sets the handler for unmatched requests. The default
// answers 404. Set it before serving.
func (a *App) OnNotFound(fn NotFoundHandler) {
	a.onNotFound = fn
}

// Compile closes registration. It fails with the collected registration
// errors, if any, and otherwise builds the dispatch closures.
func (a *App) Compile() error {
	st := a.state
	if st.compiled {
		return ErrRouterCompiled
	}
	if err := errors.Join(st.errs...); err != nil {
		return err
	}

	global := st.global
	compiled := map[string]map[string]CompiledHandler{}
	var infos []RouteInfo

	for _, route := range st.trie.Routes() {
		if compiled[route.Path] == nil {
			compiled[route.Path] = map[string]CompiledHandler{}
		}

		// handler <- route middlewares <- global middlewares
		invoke := route.Handler
		if mws := route.Middlewares; len(mws) > 0 {
			next := invoke
			invoke = func(c *Context) (*Response, error) { return continueWith(c, mws, next) }
		}
		if len(global) > 0 {
			next := invoke
			invoke = func(c *Context) (*Response, error) { return continueWith(c, global, next) }
		}

		compiled[route.Path][route.Method] = a.wrapCompiledHandler(invoke)
		infos = append(infos, RouteInfo{
			Method:      route.Method,
			Path:        route.Path,
			Middlewares: len(global) + len(route.Middlewares),
		})
		debug.Debug("router", "route compiled", "method", route.Method, "path", route.Path)
	}

	a.compiled = compiled
	a.routes = infos
	a.fast = len(global) == 0
	st.compiled = true

	debug.Info("router", "router compiled", "routes", len(infos), "global_middlewares", len(global))
	return nil
}

// Compiled returns the dispatch map keyed by route path, then method.
// Param and wildcard routes keep their :name and * segments in the key.
func (a *App) Compiled() map[string]map[string]CompiledHandler {
	return a.compiled
}

// Routes lists the compiled routes in trie order.
func (a *App) Routes() []RouteInfo {
	return a.routes
}

func (a *App) wrapCompiledHandler(invoke Handler) CompiledHandler {
	return func(req *http.Request, params Params) (res *Response) {
		c := a.acquire(req, params)
		defer a.release(c)
		defer func() {
			if p := recover(); p != nil {
				res = a.handleError(&PanicError{Value: p}, c)
			}
		}()

		res, err := invoke(c)
		return a.finish(res, err, c)
	}
}

func (a *App) acquire(req *http.Request, params Params) *Context {
	c := a.pool.Get().(*Context)
	c.reset(req, params)
	return c
}

func (a *App) release(c *Context) {
	c.reset(nil, nil)
	a.pool.Put(c)
}

// Handle serves req. Without global middlewares the route is matched
// before a context is built; otherwise the context is built first and
// global middlewares run whether a route matches or not.
func (a *App) Handle(req *http.Request) (res *Response) {
	var (
		route   *Route
		params  Params
		matched bool
	)
	if a.state.compiled && a.fast {
		route, params, matched = a.state.trie.MatchURL(req.URL.Path, req.Method)
	}

	c := a.acquire(req, params)
	defer a.release(c)
	defer func() {
		if p := recover(); p != nil {
			res = a.handleError(&PanicError{Value: p}, c)
		}
	}()

	if !a.state.compiled {
		return a.handleError(ErrNotCompiled, c)
	}

	var err error
	switch {
	case !a.fast:
		res, err = continueWith(c, a.state.global, a.processRoute)
	case matched:
		res, err = runRoute(c, route)
	default:
		res = a.handleNotFound(c)
	}
	return a.finish(res, err, c)
}

func (a *App) processRoute(c *Context) (*Response, error) {
	route, params, ok := a.state.trie.MatchURL(c.req.URL.Path, c.req.Method)
	if !ok {
		return a.handleNotFound(c), nil
	}
	c.setParams(params)
	return runRoute(c, route)
}

func runRoute(c *Context, route *Route) (*Response, error) {
	if len(route.Middlewares) > 0 {
		return continueWith(c, route.Middlewares, route.Handler)
	}
	return route.Handler(c)
}

func (a *App) finish(res *Response, err error, c *Context) *Response {
	if err != nil {
		return a.handleError(err, c)
	}
	if res == nil {
		return a.handleError(ErrNoResponse, c)
	}
	return res
}

func (a *App) handleError(err error, c *Context) *Response {
	debug.Warn("router", "request failed", "method", c.req.Method, "path", c.req.URL.Path, "error", err)
	if a.onError != nil {
		if res := a.onError(err, c); res != nil {
			return res
		}
	}
	return InternalServerError()
}

func (a *App) handleNotFound(c *Context) *Response {
	if a.onNotFound != nil {
		if res := a.onNotFound(c); res != nil {
			return res
		}
	}
	return NotFound()
}

// ServeHTTP implements http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if err := a.Handle(req).Write(w); err != nil {
		debug.Debug("router", "failed to write response", "error", err)
	}
}
