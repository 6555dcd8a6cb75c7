// Package router is an HTTP router built on a segment trie. Routes are
// registered on a Router, then App.Compile closes the build phase and
// precomputes one dispatch closure per route.
package router

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrRouterCompiled is returned for registrations after Compile.
	ErrRouterCompiled = errors.New("router already compiled")
	// ErrInvalidRoute is returned for malformed methods or paths.
	ErrInvalidRoute = errors.New("invalid route")
)

// buildState is shared by a router and its groups.
type buildState struct {
	trie     *Trie
	global   []Middleware
	errs     []error
	compiled bool
}

// Router registers routes. Groups share the trie of their parent and add
// a path prefix and route-level middlewares.
type Router struct {
	prefix      string
	middlewares []Middleware
	root        bool
	state       *buildState
}

func newRouter(basePath string) *Router {
	return &Router{
		prefix: joinPath("", basePath),
		root:   true,
		state:  &buildState{trie: NewTrie()},
	}
}

func (r *Router) fail(err error) error {
	r.state.errs = append(r.state.errs, err)
	return err
}

// Use adds middlewares. On the root router they run for every request,
// matched or not; on a group they run for the group's routes only and
// apply to routes registered afterwards.
func (r *Router) Use(mws ...Middleware) error {
	if r.state.compiled {
		return ErrRouterCompiled
	}
	if r.root {
		r.state.global = append(r.state.global, mws...)
		return nil
	}
	r.middlewares = append(r.middlewares, mws...)
	return nil
}

// Handle registers h for method and path. Errors are also collected and
// returned by Compile.
func (r *Router) Handle(method, path string, h Handler, mws ...Middleware) error {
	if r.state.compiled {
		return ErrRouterCompiled
	}

	method = strings.ToUpper(method)
	switch {
	case method == "":
		return r.fail(fmt.Errorf("%w: empty method for %s", ErrInvalidRoute, path))
	case h == nil:
		return r.fail(fmt.Errorf("%w: nil handler for %s %s", ErrInvalidRoute, method, path))
	case !strings.HasPrefix(path, "/"):
		return r.fail(fmt.Errorf("%w: path %q must start with /", ErrInvalidRoute, path))
	}

	route := &Route{
		Method:      method,
		Handler:     h,
		Middlewares: append(append([]Middleware(nil), r.middlewares...), mws...),
	}
	full := joinPath(r.prefix, path)
	if err := r.state.trie.Insert(full, route); err != nil {
		return r.fail(fmt.Errorf("%s %s: %w", method, full, err))
	}
	return nil
}

// Get registers a GET route.
func (r *Router) Get(path string, h Handler, mws ...Middleware) error {
	return r.Handle(http.MethodGet, path, h, mws...)
}

// Post registers a POST route.
func (r *Router) Post(path string, h Handler, mws ...Middleware) error {
	return r.Handle(http.MethodPost, path, h, mws...)
}

// Put registers a PUT route.
func (r *Router) Put(path string, h Handler, mws ...Middleware) error {
	return r.Handle(http.MethodPut, path, h, mws...)
}

// Patch registers a PATCH route.
func (r *Router) Patch(path string, h Handler, mws ...Middleware) error {
	return r.Handle(http.MethodPatch, path, h, mws...)
}

// Delete registers a DELETE route.
func (r *Router) Delete(path string, h Handler, mws ...Middleware) error {
	return r.Handle(http.MethodDelete, path, h, mws...)
}

// Head registers a HEAD route.
func (r *Router) Head(path string, h Handler, mws ...Middleware) error {
	return r.Handle(http.MethodHead, path, h, mws...)
}

// Options registers an OPTIONS route.
func (r *Router) Options(path string, h Handler, mws ...Middleware) error {
	return r.Handle(http.MethodOptions, path, h, mws...)
}

// Group registers routes under prefix. mws run before each route of the
// group, after the middlewares of enclosing groups.
func (r *Router) Group(prefix string, fn func(g *Router), mws ...Middleware) error {
	if r.state.compiled {
		return ErrRouterCompiled
	}

	g := &Router{
		prefix:      joinPath(r.prefix, prefix),
		middlewares: append(append([]Middleware(nil), r.middlewares...), mws...),
		state:       r.state,
	}
	fn(g)
	return nil
}
