package authclient

import "context"

// AuthClient resolves an opaque session ID to the identity it was issued for.
type AuthClient interface {
	// Validate checks if the given session ID is valid.
	// Returns the username bound to the session, whether the session is valid,
	// and any error encountered during validation. Missing, expired and unknown
	// session IDs are reported as not valid, not as errors.
	Validate(ctx context.Context, sessionID string) (string, bool, error)
}

// Func adapts an ordinary function to the AuthClient interface.
type Func func(ctx context.Context, sessionID string) (string, bool, error)

// Validate implements AuthClient.
func (f Func) Validate(ctx context.Context, sessionID string) (string, bool, error) {
	return f(ctx, sessionID)
}
