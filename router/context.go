package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/gorilla/schema"
)

// ErrBodyRead is returned when the request body cannot be read.
var ErrBodyRead = errors.New("failed to read request body")

var queryDecoder = func() *schema.Decoder {
	d := schema.NewDecoder()
	d.SetAliasTag("query")
	d.IgnoreUnknownKeys(true)
	return d
}()

// Context carries one request through middlewares and its handler.
// Contexts are pooled: do not keep a reference after the handler
// returns.
type Context struct {
	req    *http.Request
	params Params

	query   url.Values
	cookies map[string]string
	body    []byte
	read    bool

	state  map[string]any
	status int
	header http.Header
}

func newContext() *Context {
	return &Context{status: http.StatusOK}
}

func (c *Context) reset(req *http.Request, params Params) {
	c.req = req
	c.params = params
	c.query = nil
	c.cookies = nil
	c.body = nil
	c.read = false
	clear(c.state)
	c.status = http.StatusOK
	c.header = nil
}

func (c *Context) setParams(params Params) {
	c.params = params
}

// Request returns the raw request.
func (c *Context) Request() *http.Request {
	return c.req
}

// Context returns the request context.
func (c *Context) Context() context.Context {
	return c.req.Context()
}

// Method returns the request method.
func (c *Context) Method() string {
	return c.req.Method
}

// Path returns the request path.
func (c *Context) Path() string {
	return c.req.URL.Path
}

// Param returns a bound path value.
func (c *Context) Param(key string) string {
	return c.params[key]
}

// Params returns every bound path value. Do not modify the map.
func (c *Context) Params() Params {
	return c.params
}

// Query returns the first value of a query parameter.
func (c *Context) Query(key string) string {
	return c.Queries().Get(key)
}

// Queries returns the parsed query string.
func (c *Context) Queries() url.Values {
	if c.query == nil {
		c.query = c.req.URL.Query()
	}
	return c.query
}

// BindQuery decodes the query string into dst, a pointer to a struct
// whose fields carry `query` tags.
func (c *Context) BindQuery(dst any) error {
	if err := queryDecoder.Decode(dst, c.Queries()); err != nil {
		return fmt.Errorf("invalid query: %w", err)
	}
	return nil
}

// Header returns a request header.
func (c *Context) Header(key string) string {
	return c.req.Header.Get(key)
}

// Cookie returns a request cookie value, or "".
func (c *Context) Cookie(name string) string {
	return c.Cookies()[name]
}

// Cookies returns every request cookie by name.
func (c *Context) Cookies() map[string]string {
	if c.cookies == nil {
		c.cookies = map[string]string{}
		for _, ck := range c.req.Cookies() {
			c.cookies[ck.Name] = ck.Value
		}
	}
	return c.cookies
}

// BodyBytes reads and caches the request body.
func (c *Context) BodyBytes() ([]byte, error) {
	if c.read {
		return c.body, nil
	}
	c.read = true
	if c.req.Body == nil {
		return nil, nil
	}

	b, err := io.ReadAll(c.req.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBodyRead, err)
	}
	c.body = b
	return b, nil
}

// BindJSON decodes the JSON request body into v.
func (c *Context) BindJSON(v any) error {
	b, err := c.BodyBytes()
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// Set stores a value for the rest of the request.
func (c *Context) Set(key string, value any) *Context {
	if c.state == nil {
		c.state = map[string]any{}
	}
	c.state[key] = value
	return c
}

// Get returns a value stored with Set.
func (c *Context) Get(key string) (any, bool) {
	v, ok := c.state[key]
	return v, ok
}

// Status sets the status of responses built afterwards.
func (c *Context) Status(code int) *Context {
	c.status = code
	return c
}

// SetHeader replaces a response header.
func (c *Context) SetHeader(key, value string) *Context {
	if c.header == nil {
		c.header = http.Header{}
	}
	c.header.Set(key, value)
	return c
}

// AddHeader appends a response header value.
func (c *Context) AddHeader(key, value string) *Context {
	if c.header == nil {
		c.header = http.Header{}
	}
	c.header.Add(key, value)
	return c
}

// Body builds a response from the status and headers set so far.
func (c *Context) Body(body []byte, contentType string) (*Response, error) {
	if contentType != "" {
		c.SetHeader("Content-Type", contentType)
	}
	res := &Response{Status: c.status, Body: body}
	if c.header != nil {
		res.Header = c.header.Clone()
	}
	return res, nil
}

// Text responds with plain text.
func (c *Context) Text(s string) (*Response, error) {
	return c.Body([]byte(s), "text/plain; charset=utf-8")
}

// HTML responds with an HTML document.
func (c *Context) HTML(s string) (*Response, error) {
	return c.Body([]byte(s), "text/html; charset=utf-8")
}

// JSON responds with v encoded as JSON.
func (c *Context) JSON(v any) (*Response, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode response: %w", err)
	}
	return c.Body(b, "application/json")
}

// NoContent responds 204 without a body.
func (c *Context) NoContent() (*Response, error) {
	return c.Status(http.StatusNoContent).Body(nil, "")
}

type message struct {
	Message string `json:"message"`
}

// NotFound responds 404 with a JSON message.
func (c *Context) NotFound(msg ...string) (*Response, error) {
	return c.Status(http.StatusNotFound).JSON(message{Message: first(msg, "Not Found")})
}

// Forbidden responds 403 with a JSON message.
func (c *Context) Forbidden(msg ...string) (*Response, error) {
	return c.Status(http.StatusForbidden).JSON(message{Message: first(msg, "Forbidden")})
}

// Redirect responds with a Location header, 301 unless a code is given.
func (c *Context) Redirect(location string, code ...int) (*Response, error) {
	status := http.StatusMovedPermanently
	if len(code) > 0 {
		status = code[0]
	}
	return c.Status(status).SetHeader("Location", location).Body(nil, "")
}

func first(values []string, fallback string) string {
	if len(values) > 0 && values[0] != "" {
		return values[0]
	}
	return fallback
}
