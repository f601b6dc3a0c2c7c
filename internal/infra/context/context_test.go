package context_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	context_ "github.com/mkrupp/wardrobe/internal/infra/context"
)

func TestContextValues(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	_, ok := context_.UsernameFromContext(ctx)
	assert.False(t, ok)

	_, ok = context_.UsernameFromContext(context_.WithUsername(ctx, ""))
	assert.False(t, ok, "empty username is not an identity")

	ctx = context_.WithUsername(ctx, "alice")
	ctx = context_.WithSessionID(ctx, "sid")
	ctx = context_.WithTraceID(ctx, "trace")

	username, ok := context_.UsernameFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "alice", username)

	sessionID, ok := context_.SessionIDFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "sid", sessionID)

	traceID, ok := context_.TraceIDFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "trace", traceID)
}
