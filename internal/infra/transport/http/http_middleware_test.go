package http_test

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkrupp/wardrobe/internal/domain"
	context_ "github.com/mkrupp/wardrobe/internal/infra/context"
	"github.com/mkrupp/wardrobe/internal/infra/logging"
	http_ "github.com/mkrupp/wardrobe/internal/infra/transport/http"
	"github.com/mkrupp/wardrobe/internal/svc/authsvc/authclient"
)

var errBackend = errors.New("backend down")

func TestStatusForError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{domain.ErrInvalidInput, http.StatusBadRequest},
		{domain.ErrInvalidCredentials, http.StatusUnauthorized},
		{fmt.Errorf("wrapped: %w", domain.ErrForbidden), http.StatusForbidden},
		{domain.ErrOutOfRange, http.StatusNotFound},
		{domain.ErrAlreadyExists, http.StatusConflict},
		{errors.Join(domain.ErrStorageFailure, errBackend), http.StatusServiceUnavailable},
		{domain.ErrInternal, http.StatusInternalServerError},
		{errBackend, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, http_.StatusForError(tt.err), "error %v", tt.err)
	}
}

func TestWriteError_HidesDetails(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	http_.WriteError(rec, fmt.Errorf("query /var/secret/path: %w", errBackend))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret")
}

func TestSessionMiddleware(t *testing.T) {
	t.Parallel()

	cookies := http_.SessionCookieConfig{CookieName: "sid"}

	authClient := authclient.Func(func(_ context.Context, sessionID string) (string, bool, error) {
		switch sessionID {
		case "valid":
			return "alice", true, nil
		case "broken":
			return "", false, errors.Join(domain.ErrStorageFailure, errBackend)
		default:
			return "", false, nil
		}
	})

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, _ := context_.UsernameFromContext(r.Context())
		sessionID, _ := context_.SessionIDFromContext(r.Context())
		fmt.Fprintf(w, "%s:%s", username, sessionID)
	})

	handler := http_.SessionMiddleware(next, authClient, cookies, logging.NewNopLogger())

	tests := []struct {
		name     string
		cookie   string
		wantCode int
		wantBody string
	}{
		{name: "no cookie", wantCode: http.StatusUnauthorized},
		{name: "unknown session", cookie: "nope", wantCode: http.StatusUnauthorized},
		{name: "resolver failure", cookie: "broken", wantCode: http.StatusServiceUnavailable},
		{name: "valid session", cookie: "valid", wantCode: http.StatusOK, wantBody: "alice:valid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/api/categories/", nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "sid", Value: tt.cookie})
			}

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)

			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, rec.Body.String())
			}
		})
	}
}

func TestTracingMiddleware(t *testing.T) {
	t.Parallel()

	var seen string

	handler := http_.TracingMiddleware(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen, _ = context_.TraceIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(http_.TraceIDHeader, "abc-123")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "abc-123", seen)
	assert.Equal(t, "abc-123", rec.Header().Get(http_.TraceIDHeader))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(http_.TraceIDHeader, "bad id\nwith newline")

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.NotEqual(t, "bad id\nwith newline", seen)
	assert.Len(t, seen, 36)
}

func TestRescueingMiddleware(t *testing.T) {
	t.Parallel()

	handler := http_.RescueingMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}), logging.NewNopLogger())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "boom")
}

func TestMetricsMiddleware(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()

	metrics, err := http_.NewMetrics(reg)
	require.NoError(t, err)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /ok", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.HandleFunc("GET /missing", func(w http.ResponseWriter, _ *http.Request) { http.NotFound(w, nil) })
	mux.Handle("GET "+http_.MetricsPath, metrics.Handler())

	handler := metrics.Middleware(mux)

	for _, path := range []string{"/ok", "/ok", "/missing", http_.MetricsPath} {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, 2, int(testutil.ToFloat64(metricCounter(t, reg, "200"))))
	assert.Equal(t, 1, int(testutil.ToFloat64(metricCounter(t, reg, "404"))))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, http_.MetricsPath, nil))
	assert.Contains(t, rec.Body.String(), "http_requests_total")

	_, err = http_.NewMetrics(reg)
	require.Error(t, err, "registering twice must fail")
}

func metricCounter(t *testing.T, reg *prometheus.Registry, code string) prometheus.Collector {
	t.Helper()

	counter := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests processed.",
	}, []string{"method", "code"})

	err := reg.Register(counter)

	var already prometheus.AlreadyRegisteredError
	require.ErrorAs(t, err, &already)

	//nolint:forcetypeassert
	return already.ExistingCollector.(*prometheus.CounterVec).WithLabelValues(http.MethodGet, code)
}

func TestServe_GracefulShutdown(t *testing.T) {
	t.Parallel()

	sock, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())

	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	done := make(chan error, 1)

	go func() {
		done <- http_.Serve(ctx, sock, handler, http_.HTTPTransportConfig{
			ReadHeaderTimeout: time.Second,
			ShutdownTimeout:   time.Second,
		}, nil, logging.NewNopLogger())
	}()

	resp, err := http.Get("http://" + sock.Addr().String() + "/")
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(http_.TraceIDHeader))

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
