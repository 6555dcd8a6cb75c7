package middleware

import (
	"time"

	"github.com/satishbabariya/strata/internal/debug"
	"github.com/satishbabariya/strata/router"
)

// AccessLog logs each request as it enters the chain, matched or not.
// Middlewares run before the response exists; use Logged to record
// status and latency.
func AccessLog() router.Middleware {
	return func(c *router.Context, next router.Next) (*router.Response, error) {
		debug.Debug("router", "request received",
			"method", c.Method(),
			"path", c.Path(),
			"request_id", GetRequestID(c),
			"remote", c.Request().RemoteAddr,
		)
		next()
		return nil, nil
	}
}

// Logged wraps h and logs the outcome of each call.
func Logged(h router.Handler) router.Handler {
	return func(c *router.Context) (*router.Response, error) {
		start := time.Now()
		res, err := h(c)

		attrs := []any{
			"method", c.Method(),
			"path", c.Path(),
			"request_id", GetRequestID(c),
			"duration", time.Since(start),
		}
		if err != nil {
			debug.Warn("router", "request failed", append(attrs, "error", err)...)
			return res, err
		}
		if res != nil {
			attrs = append(attrs, "status", res.Status)
		}
		debug.Info("router", "request completed", attrs...)
		return res, nil
	}
}
