// Package pipeline composes the stages every outbound API request passes
// through: credential attachment, in-flight tracking, error normalization and
// the ambient request-id, logging and metrics stages.
package pipeline

import "net/http"

// Doer sends a request. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// DoerFunc adapts a function to Doer.
type DoerFunc func(req *http.Request) (*http.Response, error)

func (f DoerFunc) Do(req *http.Request) (*http.Response, error) { return f(req) }

// Middleware wraps a Doer with one stage.
type Middleware func(next Doer) Doer

// Chain wraps terminal with mws. The first middleware is the outermost and
// sees the request first.
func Chain(terminal Doer, mws ...Middleware) Doer {
	d := terminal
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] != nil {
			d = mws[i](d)
		}
	}
	return d
}
