package http

import (
	"net/http"
	"regexp"

	"github.com/google/uuid"

	context_ "github.com/mkrupp/wardrobe/internal/infra/context"
)

const TraceIDHeader = "X-Request-ID"

//nolint:gochecknoglobals
var traceIDPattern = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)

// TracingMiddleware creates middleware that adds request tracing.
// It uses a well-formed X-Request-ID header if present, otherwise generates a new UUIDv7.
// The trace ID is added to the request context and echoed in the response.
func TracingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := getTraceID(r)

		w.Header().Set(TraceIDHeader, traceID)

		next.ServeHTTP(w, r.WithContext(context_.WithTraceID(r.Context(), traceID)))
	})
}

func getTraceID(r *http.Request) string {
	if traceID := r.Header.Get(TraceIDHeader); traceIDPattern.MatchString(traceID) {
		return traceID
	}

	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}

	return id.String()
}
