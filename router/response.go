package router

import (
	"net/http"
	"strconv"
)

// Response is the outcome of a request. A nil Header sends no extra
// headers; a nil Body sends no body.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// NewResponse builds a response with a content type.
func NewResponse(status int, contentType string, body []byte) *Response {
	res := &Response{Status: status, Body: body}
	if contentType != "" {
		res.Header = http.Header{"Content-Type": {contentType}}
	}
	return res
}

// InternalServerError returns the default error response.
func InternalServerError() *Response {
	return NewResponse(http.StatusInternalServerError, "text/plain; charset=utf-8", []byte("Internal Server Error"))
}

// NotFound returns the default not-found response.
func NotFound() *Response {
	return NewResponse(http.StatusNotFound, "text/plain; charset=utf-8", []byte("Not Found"))
}

// Write sends res on w.
func (res *Response) Write(w http.ResponseWriter) error {
	h := w.Header()
	for key, values := range res.Header {
		h[key] = append([]string(nil), values...)
	}
	if res.Body != nil && h.Get("Content-Length") == "" {
		h.Set("Content-Length", strconv.Itoa(len(res.Body)))
	}

	status := res.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)

	if len(res.Body) == 0 {
		return nil
	}
	_, err := w.Write(res.Body)
	return err
}
