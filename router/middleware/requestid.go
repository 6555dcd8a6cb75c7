// Package middleware provides router middlewares for request ids,
// access logging and panic recovery.
package middleware

import (
	"github.com/google/uuid"

	"github.com/satishbabariya/strata/router"
)

const (
	// HeaderRequestID is the HTTP header name for request ID
	HeaderRequestID = "X-Request-ID"
	// StateKeyRequestID is the context state key holding the request ID
	StateKeyRequestID = "request_id"
)

// RequestID reuses the X-Request-ID header or generates a UUID, stores
// it in the context state and echoes it on responses built afterwards.
func RequestID() router.Middleware {
	return func(c *router.Context, next router.Next) (*router.Response, error) {
		requestID := c.Header(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		c.Set(StateKeyRequestID, requestID)
		c.SetHeader(HeaderRequestID, requestID)

		next()
		return nil, nil
	}
}

// GetRequestID retrieves the request ID from the context state
func GetRequestID(c *router.Context) string {
	if v, ok := c.Get(StateKeyRequestID); ok {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}
