package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	context_ "github.com/mkrupp/wardrobe/internal/infra/context"
	"github.com/mkrupp/wardrobe/internal/infra/logging"
)

//nolint:paralleltest
func TestGetLogger_JSON(t *testing.T) {
	var buf bytes.Buffer

	logging.Configure(context.Background(), logging.LoggerConfig{
		Level:        "debug",
		JSON:         true,
		OutputHandle: &buf,
	}, "test")

	ctx := context_.WithTraceID(context.Background(), "trace-1")
	ctx = context_.WithUsername(ctx, "alice")

	buf.Reset()
	logging.GetLogger("svc.test").InfoContext(ctx, "hello", "password", "hunter2", "size", 3)

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))

	assert.Equal(t, "hello", record["msg"])
	assert.Equal(t, "svc.test", record["logger"])
	assert.Equal(t, "test", record["app"])
	assert.Equal(t, "[redacted]", record["password"])
	assert.InDelta(t, 3, record["size"], 0)
	assert.Equal(t, map[string]any{"id": "trace-1"}, record["trace"])
	assert.Equal(t, map[string]any{"username": "alice"}, record["caller"])
}

//nolint:paralleltest
func TestGetLogger_ConsolePackageFilter(t *testing.T) {
	var buf bytes.Buffer

	logging.Configure(context.Background(), logging.LoggerConfig{
		Level:        "info",
		Filter:       "repo:error,svc.wardrobesvc:debug",
		OutputHandle: &buf,
	}, "test")

	buf.Reset()
	logging.GetLogger("repo.item").WarnContext(context.Background(), "suppressed warning")
	assert.Empty(t, buf.String())

	logging.GetLogger("svc.wardrobesvc.service").DebugContext(context.Background(), "visible debug", "session_id", "secret")
	assert.Contains(t, buf.String(), "visible debug")
	assert.NotContains(t, buf.String(), "secret")

	buf.Reset()
	logging.GetLogger("svc.authsvc").DebugContext(context.Background(), "default level applies")
	assert.Empty(t, buf.String())

	logging.GetLogger("svc.authsvc").InfoContext(context.Background(), "info passes")
	assert.True(t, strings.Contains(buf.String(), "info passes"))
}

//nolint:paralleltest
func TestGetLogger_Discard(t *testing.T) {
	logging.Configure(context.Background(), logging.LoggerConfig{Output: "discard"}, "test")

	log := logging.GetLogger("anything")
	assert.False(t, log.Enabled(context.Background(), logging.LevelError))
}
