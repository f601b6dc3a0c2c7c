package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/mkrupp/wardrobe/internal/infra/logging"
)

// HTTPTransportConfig contains configuration parameters for HTTP servers.
type HTTPTransportConfig struct {
	// ServerAddr is the network address to listen on
	ServerAddr string `env:"SERVER_ADDR" default:":3005"`

	ReadHeaderTimeout time.Duration `env:"READ_HEADER_TIMEOUT" default:"5s"`
	ReadTimeout       time.Duration `env:"READ_TIMEOUT" default:"30s"`
	WriteTimeout      time.Duration `env:"WRITE_TIMEOUT" default:"30s"`

	// ShutdownTimeout bounds how long in-flight requests may finish after shutdown starts
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" default:"10s"`
}

// HTTPTransport defines the interface for HTTP handlers that can serve requests.
type HTTPTransport interface {
	http.Handler
}

// WrapMiddlewares applies the standard middleware chain used by every server:
// tracing (outermost), metrics, logging and panic recovery (innermost).
// metrics may be nil.
func WrapMiddlewares(handler http.Handler, metrics *Metrics, log logging.Logger) http.Handler {
	handler = RescueingMiddleware(handler, log)
	handler = LoggingMiddleware(handler, log)

	if metrics != nil {
		handler = metrics.Middleware(handler)
	}

	return TracingMiddleware(handler)
}

// ListenAndServe starts an HTTP server with the given handler and configuration.
// The server shuts down gracefully when ctx is cancelled; in that case nil is returned.
func ListenAndServe(ctx context.Context, handler HTTPTransport, cfg HTTPTransportConfig, metrics *Metrics) error {
	log := logging.GetLogger("infra.transport.http")

	sock, err := net.Listen("tcp", cfg.ServerAddr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	return Serve(ctx, sock, handler, cfg, metrics, log)
}

// Serve is like ListenAndServe but accepts connections on an existing listener.
func Serve(
	ctx context.Context,
	sock net.Listener,
	handler HTTPTransport,
	cfg HTTPTransportConfig,
	metrics *Metrics,
	log logging.Logger,
) error {
	//nolint:exhaustruct
	server := &http.Server{
		Handler:           WrapMiddlewares(handler, metrics, log),
		ErrorLog:          logging.GetLogLogger(log, logging.LevelError),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	errCh := make(chan error, 1)

	go func() {
		log.InfoContext(ctx, "listening", "addr", sock.Addr().String())

		errCh <- server.Serve(sock)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.ShutdownTimeout)
	defer cancel()

	log.InfoContext(ctx, "shutting down")

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}

	return nil
}
