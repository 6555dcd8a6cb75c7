// Package fiberhttp serves a compiled router.App on gofiber.
package fiberhttp

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/satishbabariya/strata/internal/debug"
	"github.com/satishbabariya/strata/router"
)

// Path converts a compiled route path to fiber syntax. Wildcards become
// named params so they keep binding a single segment. It returns the
// fiber path and, per fiber param, the router param name.
func Path(path string) (string, map[string]string) {
	if path == "/" {
		return path, nil
	}

	names := map[string]string{}
	parts := strings.Split(strings.TrimPrefix(path, "/"), "/")
	wildcards := 0
	for i, part := range parts {
		switch {
		case part == "*":
			name := fmt.Sprintf("wildcard%d", wildcards)
			wildcards++
			parts[i] = ":" + name
			names[name] = name
		case strings.HasPrefix(part, ":"):
			names[part[1:]] = part[1:]
		}
	}
	return "/" + strings.Join(parts, "/"), names
}

// Mount registers every compiled route of app on f, in trie order, and
// sends unmatched requests through app.Handle so global middlewares and
// the not-found handler still apply.
func Mount(f *fiber.App, app *router.App) error {
	compiled := app.Compiled()
	if compiled == nil {
		return router.ErrNotCompiled
	}

	for _, info := range app.Routes() {
		h := compiled[info.Path][info.Method]
		path, names := Path(info.Path)
		f.Add(info.Method, path, compiledHandler(h, names))
		debug.Debug("router", "route mounted on fiber", "method", info.Method, "path", path)
	}

	f.Use(func(c *fiber.Ctx) error {
		req, err := adaptor.ConvertRequest(c, false)
		if err != nil {
			return err
		}
		return send(c, app.Handle(req))
	})
	return nil
}

// New creates a fiber app serving app.
func New(app *router.App, cfg ...fiber.Config) (*fiber.App, error) {
	f := fiber.New(cfg...)
	if err := Mount(f, app); err != nil {
		return nil, err
	}
	return f, nil
}

func compiledHandler(h router.CompiledHandler, names map[string]string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		req, err := adaptor.ConvertRequest(c, false)
		if err != nil {
			return err
		}

		var params router.Params
		if len(names) > 0 {
			params = make(router.Params, len(names))
			for fiberName, name := range names {
				params[name] = c.Params(fiberName)
			}
		}
		return send(c, h(req, params))
	}
}

func send(c *fiber.Ctx, res *router.Response) error {
	status := res.Status
	if status == 0 {
		status = http.StatusOK
	}
	c.Status(status)
	for key, values := range res.Header {
		for _, v := range values {
			c.Response().Header.Add(key, v)
		}
	}
	return c.Send(res.Body)
}
