// Package context carries request-scoped values (trace ID, authenticated
// username, session ID) through a context.Context.
package context

type contextKey string
