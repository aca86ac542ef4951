// ABOUTME: Composes handler middleware for the FitCheck API
// ABOUTME: The first middleware listed wraps all the others

package middleware

import "net/http"

// Middleware wraps a handler with extra behavior.
type Middleware func(http.HandlerFunc) http.HandlerFunc

// Chain wraps h so that Chain(h, a, b) serves as a(b(h)).
func Chain(h http.HandlerFunc, middlewares ...Middleware) http.HandlerFunc {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}
