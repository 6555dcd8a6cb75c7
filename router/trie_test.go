package router_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/satishbabariya/strata/router"
)

func route(method string) *router.Route {
	return &router.Route{Method: method}
}

func TestTrieMatch(t *testing.T) {
	trie := router.NewTrie()
	require.NoError(t, trie.Insert("/", route("GET")))
	require.NoError(t, trie.Insert("/user/:id", route("GET")))
	require.NoError(t, trie.Insert("/user/me", route("GET")))
	require.NoError(t, trie.Insert("/user/:id/posts/:post", route("GET")))
	require.NoError(t, trie.Insert("/files/*", route("GET")))
	require.NoError(t, trie.Insert("/files/*/raw/*", route("GET")))

	tests := []struct {
		name   string
		url    string
		method string
		found  bool
		params router.Params
	}{
		{name: "root", url: "/", method: "GET", found: true},
		{name: "param", url: "/user/42", method: "GET", found: true, params: router.Params{"id": "42"}},
		{name: "literal beats param", url: "/user/me", method: "GET", found: true},
		{name: "missing trailing segment", url: "/user", method: "GET"},
		{name: "wrong method", url: "/user/42", method: "POST"},
		{name: "nested params", url: "/user/1/posts/2", method: "GET", found: true, params: router.Params{"id": "1", "post": "2"}},
		{name: "wildcard single segment", url: "/files/a", method: "GET", found: true, params: router.Params{"wildcard0": "a"}},
		{name: "wildcard does not span segments", url: "/files/a/b", method: "GET"},
		{name: "second wildcard ordinal", url: "/files/a/raw/b", method: "GET", found: true, params: router.Params{"wildcard0": "a", "wildcard1": "b"}},
		{name: "full url with query", url: "http://example.com/user/7?x=1", method: "GET", found: true, params: router.Params{"id": "7"}},
		{name: "host only", url: "https://example.com", method: "GET", found: true},
		{name: "empty segments ignored", url: "//user//9/", method: "GET", found: true, params: router.Params{"id": "9"}},
		{name: "fragment ignored", url: "/user/3#top", method: "GET", found: true, params: router.Params{"id": "3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, params, ok := trie.MatchURL(tt.url, tt.method)
			require.Equal(t, tt.found, ok)
			if !tt.found {
				assert.Nil(t, r)
				return
			}
			assert.Equal(t, tt.method, r.Method)
			if tt.params == nil {
				assert.Empty(t, params)
			} else {
				assert.Equal(t, tt.params, params)
			}
		})
	}
}

func TestTrieNoBacktracking(t *testing.T) {
	trie := router.NewTrie()
	require.NoError(t, trie.Insert("/a/b/c", route("GET")))
	require.NoError(t, trie.Insert("/a/:x/d", route("GET")))

	// the literal b is taken, so /a/b/d never reaches the param branch
	_, _, ok := trie.MatchURL("/a/b/d", "GET")
	assert.False(t, ok)

	_, params, ok := trie.MatchURL("/a/z/d", "GET")
	require.True(t, ok)
	assert.Equal(t, router.Params{"x": "z"}, params)
}

func TestTrieParamConflict(t *testing.T) {
	trie := router.NewTrie()
	require.NoError(t, trie.Insert("/users/:id", route("GET")))
	require.NoError(t, trie.Insert("/users/:id/posts", route("GET")))

	err := trie.Insert("/users/:name/comments", route("GET"))
	assert.ErrorIs(t, err, router.ErrParamConflict)

	err = trie.Insert("/users/:", route("GET"))
	assert.ErrorIs(t, err, router.ErrInvalidRoute)
}

func TestTrieLastInsertWins(t *testing.T) {
	trie := router.NewTrie()
	first, second := route("GET"), route("GET")
	require.NoError(t, trie.Insert("/x", first))
	require.NoError(t, trie.Insert("/x", second))

	r, _, ok := trie.MatchURL("/x", "GET")
	require.True(t, ok)
	assert.Same(t, second, r)
}

func TestTrieRoutes(t *testing.T) {
	trie := router.NewTrie()
	for _, p := range []string{"/", "/b", "/a", "/a/:id", "/a/:id/*"} {
		require.NoError(t, trie.Insert(p, route("GET")))
	}
	require.NoError(t, trie.Insert("/a", route("POST")))

	var got []string
	for _, r := range trie.Routes() {
		got = append(got, r.Method+" "+r.Path)
	}
	assert.Equal(t, []string{
		"GET /",
		"GET /a",
		"POST /a",
		"GET /a/:id",
		"GET /a/:id/*",
		"GET /b",
	}, got)
}

func segmentGen() *rapid.Generator[string] {
	return rapid.StringMatching(`[a-z0-9]{1,6}`)
}

func TestMatchAgreesWithMatchURL(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		trie := router.NewTrie()

		n := rapid.IntRange(1, 8).Draw(rt, "routes")
		for i := 0; i < n; i++ {
			depth := rapid.IntRange(0, 4).Draw(rt, "depth")
			parts := make([]string, depth)
			for j := range parts {
				switch rapid.IntRange(0, 3).Draw(rt, "kind") {
				case 0:
					parts[j] = ":p" + strings.Repeat("x", j)
				case 1:
					parts[j] = "*"
				default:
					parts[j] = segmentGen().Draw(rt, "literal")
				}
			}
			_ = trie.Insert("/"+strings.Join(parts, "/"), route("GET"))
		}

		segments := rapid.SliceOfN(segmentGen(), 0, 5).Draw(rt, "url")
		r1, p1, ok1 := trie.Match(segments, "GET")
		r2, p2, ok2 := trie.MatchURL("/"+strings.Join(segments, "/")+"?q=1", "GET")

		if ok1 != ok2 || r1 != r2 {
			rt.Fatalf("match mismatch for %v: %v vs %v", segments, ok1, ok2)
		}
		if len(p1) != len(p2) {
			rt.Fatalf("params mismatch: %v vs %v", p1, p2)
		}
		for k, v := range p1 {
			if p2[k] != v {
				rt.Fatalf("param %s: %q vs %q", k, v, p2[k])
			}
		}
	})
}

func TestInsertedLiteralPathsMatch(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		trie := router.NewTrie()
		segments := rapid.SliceOfN(segmentGen(), 0, 6).Draw(rt, "segments")
		r := route("GET")
		if err := trie.Insert("/"+strings.Join(segments, "/"), r); err != nil {
			rt.Fatal(err)
		}

		got, params, ok := trie.Match(segments, "GET")
		if !ok || got != r {
			rt.Fatalf("inserted path %v did not match", segments)
		}
		if len(params) != 0 {
			rt.Fatalf("unexpected params %v", params)
		}

		longer := append(append([]string(nil), segments...), "extra")
		if _, _, ok := trie.Match(longer, "GET"); ok {
			rt.Fatalf("longer path %v matched", longer)
		}
	})
}
