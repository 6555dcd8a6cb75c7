package middleware

import (
	"fmt"
	"net/http"

	"github.com/satishbabariya/strata/internal/debug"
	"github.com/satishbabariya/strata/router"
)

// Recover wraps h so that a panic becomes a 500 JSON response instead
// of reaching the app error handler.
func Recover(h router.Handler) router.Handler {
	return func(c *router.Context) (res *router.Response, err error) {
		defer func() {
			if p := recover(); p != nil {
				debug.Error("router", "handler panicked", "path", c.Path(), "panic", fmt.Sprint(p))
				res, err = c.Status(http.StatusInternalServerError).JSON(map[string]string{
					"message":    "Internal Server Error",
					"request_id": GetRequestID(c),
				})
			}
		}()
		return h(c)
	}
}
