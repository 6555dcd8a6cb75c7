package router

import (
	"errors"
	"fmt"
	"strings"
)

// ErrParamConflict is returned when two routes name the same param
// position differently, as in /users/:id and /users/:name/posts.
var ErrParamConflict = errors.New("conflicting param names")

// Params holds the path values bound by a match. A match without
// params yields a nil map.
type Params map[string]string

// Route is a registered handler. Path is filled in by Routes.
type Route struct {
	Method      string
	Path        string
	Handler     Handler
	Middlewares []Middleware
}

type node struct {
	children      map[string]*node
	paramChild    *node
	wildcardChild *node
	paramName     string
	wildcardName  string
	routes        map[string]*Route
}

func newNode() *node {
	return &node{}
}

// Trie is a segment trie. Per segment a literal child is tried first,
// then the param child, then the wildcard child; the first hit wins and
// matching never backtracks. A wildcard binds exactly one segment under
// wildcard{N}, N counting the wildcards of its route from zero.
type Trie struct {
	root *node
}

// NewTrie returns an empty trie.
func NewTrie() *Trie {
	return &Trie{root: newNode()}
}

// splitPath splits path on / and drops empty segments.
func splitPath(path string) []string {
	parts := strings.Split(path, "/")
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Insert registers route under path. Registering a method twice at the
// same path replaces the earlier route.
func (t *Trie) Insert(path string, route *Route) error {
	return t.root.insert(splitPath(path), route)
}

func (n *node) insert(parts []string, route *Route) error {
	wildcardIndex := 0

	for _, part := range parts {
		switch {
		case part == "*":
			if n.wildcardChild == nil {
				n.wildcardChild = newNode()
				n.wildcardChild.wildcardName = fmt.Sprintf("wildcard%d", wildcardIndex)
			}
			wildcardIndex++
			n = n.wildcardChild

		case strings.HasPrefix(part, ":"):
			name := part[1:]
			if name == "" {
				return fmt.Errorf("%w: empty param name", ErrInvalidRoute)
			}
			if n.paramChild == nil {
				n.paramChild = newNode()
				n.paramChild.paramName = name
			} else if n.paramChild.paramName != name {
				return fmt.Errorf("%w: :%s already registered as :%s", ErrParamConflict, name, n.paramChild.paramName)
			}
			n = n.paramChild

		default:
			if n.children == nil {
				n.children = map[string]*node{}
			}
			child, ok := n.children[part]
			if !ok {
				child = newNode()
				n.children[part] = child
			}
			n = child
		}
	}

	if n.routes == nil {
		n.routes = map[string]*Route{}
	}
	n.routes[route.Method] = route
	return nil
}

// step advances one segment. params is allocated on the first binding.
func (n *node) step(segment string, params Params) (*node, Params) {
	if child, ok := n.children[segment]; ok {
		return child, params
	}
	if n.paramChild != nil {
		if params == nil {
			params = Params{}
		}
		params[n.paramChild.paramName] = segment
		return n.paramChild, params
	}
	if n.wildcardChild != nil {
		if params == nil {
			params = Params{}
		}
		params[n.wildcardChild.wildcardName] = segment
		return n.wildcardChild, params
	}
	return nil, params
}

func (n *node) route(method string, params Params) (*Route, Params, bool) {
	route, ok := n.routes[method]
	if !ok {
		return nil, nil, false
	}
	return route, params, true
}

// Match resolves pre-split segments.
func (t *Trie) Match(parts []string, method string) (*Route, Params, bool) {
	n := t.root
	var params Params

	for _, part := range parts {
		if n, params = n.step(part, params); n == nil {
			return nil, nil, false
		}
	}
	return n.route(method, params)
}

// MatchURL resolves a URL or a bare path by scanning it in place.
// Scheme and host are skipped; the query string and fragment are
// ignored. Segments are not unescaped.
func (t *Trie) MatchURL(rawURL, method string) (*Route, Params, bool) {
	start := 0
	if i := strings.Index(rawURL, "://"); i >= 0 {
		j := strings.IndexByte(rawURL[i+3:], '/')
		if j < 0 {
			return t.root.route(method, nil)
		}
		start = i + 3 + j
	}

	end := len(rawURL)
	if i := strings.IndexAny(rawURL[start:], "?#"); i >= 0 {
		end = start + i
	}

	n := t.root
	var params Params
	segmentStart := start

	for i := start; i <= end; i++ {
		if i < end && rawURL[i] != '/' {
			continue
		}
		if i > segmentStart {
			if n, params = n.step(rawURL[segmentStart:i], params); n == nil {
				return nil, nil, false
			}
		}
		segmentStart = i + 1
	}
	return n.route(method, params)
}

// Routes enumerates every route under prefix, back-filling Route.Path
// with the :param and * conventions. The root path is "/".
func (t *Trie) Routes() []*Route {
	return t.root.collectRoutes("")
}

func (n *node) collectRoutes(path string) []*Route {
	var routes []*Route

	for _, method := range sortedKeys(n.routes) {
		route := n.routes[method]
		route.Path = path
		if route.Path == "" {
			route.Path = "/"
		}
		routes = append(routes, route)
	}

	for _, segment := range sortedKeys(n.children) {
		routes = append(routes, n.children[segment].collectRoutes(path+"/"+segment)...)
	}

	if n.paramChild != nil {
		routes = append(routes, n.paramChild.collectRoutes(path+"/:"+n.paramChild.paramName)...)
	}

	if n.wildcardChild != nil {
		routes = append(routes, n.wildcardChild.collectRoutes(path+"/*")...)
	}

	return routes
}
