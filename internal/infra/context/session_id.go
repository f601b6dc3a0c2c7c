package context

import (
	"context"
)

const contextKeySessionID = contextKey("sessionID")

// SessionIDFromContext extracts the session ID the request was authenticated with.
func SessionIDFromContext(ctx context.Context) (string, bool) {
	sessionID, ok := ctx.Value(contextKeySessionID).(string)

	return sessionID, ok && sessionID != ""
}

// WithSessionID creates a new context with the given session ID value.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, contextKeySessionID, sessionID)
}
