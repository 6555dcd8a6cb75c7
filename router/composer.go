package router

// Handler produces the response of a route.
type Handler func(c *Context) (*Response, error)

// Next tells the composer to continue with the following middleware.
type Next func()

// Middleware runs before a handler. Returning a response ends the chain
// with that response, even if next was called. Calling next continues
// with the following middleware. Doing neither ends the chain without a
// response and the caller proceeds to its own next step. An error ends
// the chain and is reported to the dispatch boundary.
type Middleware func(c *Context, next Next) (*Response, error)

type composer struct {
	nextCalled bool
}

func (m *composer) next() {
	m.nextCalled = true
}

// compose runs mws in order. It returns a nil response when no
// middleware produced one.
func compose(c *Context, mws []Middleware) (*Response, error) {
	m := composer{}
	next := m.next

	for _, mw := range mws {
		m.nextCalled = false

		res, err := mw(c, next)
		if err != nil {
			return nil, err
		}
		if res != nil {
			return res, nil
		}
		if !m.nextCalled {
			break
		}
	}
	return nil, nil
}

// continueWith runs mws and then, unless a middleware answered, next.
func continueWith(c *Context, mws []Middleware, next Handler) (*Response, error) {
	res, err := compose(c, mws)
	if err != nil {
		return nil, err
	}
	if res != nil {
		return res, nil
	}
	return next(c)
}
