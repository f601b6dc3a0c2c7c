package authsvc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"time"

	"github.com/mkrupp/wardrobe/internal/domain"
	context_ "github.com/mkrupp/wardrobe/internal/infra/context"
	"github.com/mkrupp/wardrobe/internal/infra/logging"
	http_ "github.com/mkrupp/wardrobe/internal/infra/transport/http"
)

var (
	// ErrNoUsername is returned when the username is missing from the request.
	ErrNoUsername = fmt.Errorf("%w: no username", domain.ErrInvalidInput)
	// ErrNoPassword is returned when the password is missing from the request.
	ErrNoPassword = fmt.Errorf("%w: no password", domain.ErrInvalidInput)
)

// HTTPTransportConfig contains configuration parameters for the HTTP transport layer.
type HTTPTransportConfig struct {
	http_.SessionCookieConfig

	// MaxCredentialsSize limits the size of register and login request bodies.
	MaxCredentialsSize int64 `env:"MAX_CREDENTIALS_SIZE" default:"65536"`
}

// HTTPTransport handles HTTP requests for the authentication service.
// It provides endpoints for registration, login, logout and identity lookup.
type HTTPTransport struct {
	authSvc *AuthService
	log     logging.Logger
	cfg     HTTPTransportConfig
	mux     *http.ServeMux
}

var _ http_.HTTPTransport = (*HTTPTransport)(nil)

// NewHTTPTransport creates a new HTTPTransport instance with the given configuration.
func NewHTTPTransport(
	authSvc *AuthService,
	cfg HTTPTransportConfig,
) *HTTPTransport {
	ht := &HTTPTransport{
		authSvc: authSvc,
		log:     logging.GetLogger("svc.authsvc.http_transport"),
		cfg:     cfg,
	}

	protected := func(h http.HandlerFunc) http.Handler {
		return http_.SessionMiddleware(h, authSvc, cfg.SessionCookieConfig, ht.log)
	}

	ht.mux = http.NewServeMux()
	ht.mux.HandleFunc("POST /api/register/", ht.HandleRegister)
	ht.mux.HandleFunc("POST /api/login/", ht.HandleLogin)
	ht.mux.Handle("POST /api/logout/", protected(ht.HandleLogout))
	ht.mux.Handle("GET /api/user/", protected(ht.HandleWhoAmI))

	return ht
}

// Routes lists the patterns served by the transport, for mounting on a parent mux.
func (ht *HTTPTransport) Routes() []string {
	return []string{
		"POST /api/register/",
		"POST /api/login/",
		"POST /api/logout/",
		"GET /api/user/",
	}
}

// ServeHTTP implements http.Handler and serves the auth endpoints:
// - POST /api/register/: Register a new account
// - POST /api/login/: Open a session, returned as a cookie
// - POST /api/logout/: Destroy the current session
// - GET /api/user/: Return the caller's username.
func (ht *HTTPTransport) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ht.mux.ServeHTTP(w, r)
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// readCredentials accepts a JSON body or a URL-encoded/multipart form.
func (ht *HTTPTransport) readCredentials(w http.ResponseWriter, r *http.Request) (creds credentials, err error) {
	r.Body = http.MaxBytesReader(w, r.Body, ht.cfg.MaxCredentialsSize)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	switch mediaType {
	case "application/json":
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
			return credentials{}, fmt.Errorf("decode json: %w", errors.Join(domain.ErrInvalidInput, err))
		}
	case "multipart/form-data":
		if err := r.ParseMultipartForm(ht.cfg.MaxCredentialsSize); err != nil {
			return credentials{}, fmt.Errorf("parse multipart form: %w", errors.Join(domain.ErrInvalidInput, err))
		}

		creds = credentials{Username: r.FormValue("username"), Password: r.FormValue("password")}
	default:
		if err := r.ParseForm(); err != nil {
			return credentials{}, fmt.Errorf("parse form: %w", errors.Join(domain.ErrInvalidInput, err))
		}

		creds = credentials{Username: r.PostFormValue("username"), Password: r.PostFormValue("password")}
	}

	if creds.Username == "" {
		return credentials{}, ErrNoUsername
	} else if creds.Password == "" {
		return credentials{}, ErrNoPassword
	}

	return creds, nil
}

// HandleRegister processes account registration requests.
// Expects username and password as form values or JSON.
func (ht *HTTPTransport) HandleRegister(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleRegister(w, r)
}

func (ht *HTTPTransport) handleRegister(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.log.With(logging.Group("http", "method", r.Method, "url", r.URL.String()))

	defer func(ctx context.Context) {
		switch {
		case err == nil:
			log.DebugContext(ctx, "account registered")
		case errors.Is(err, domain.ErrAlreadyExists), errors.Is(err, domain.ErrInvalidInput):
			log.DebugContext(ctx, "account register rejected", "error", err)
		default:
			log.ErrorContext(ctx, "account register failed", "error", err)
		}
	}(r.Context())

	creds, err := ht.readCredentials(w, r)
	if err != nil {
		http_.WriteError(w, err)

		return err
	}

	log = log.With(logging.Group("account", "username", creds.Username))

	if err := ht.authSvc.Register(r.Context(), creds.Username, creds.Password); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			_ = http_.WriteJSON(w, http.StatusConflict, domain.RegisterResponse{Successful: false})
		} else {
			http_.WriteError(w, err)
		}

		return fmt.Errorf("register: %w", err)
	}

	if err := http_.WriteJSON(w, http.StatusOK, domain.RegisterResponse{Successful: true}); err != nil {
		return fmt.Errorf("write response: %w", err)
	}

	return nil
}

// HandleLogin processes login requests.
// On success the session ID is set as an HTTP-only cookie.
func (ht *HTTPTransport) HandleLogin(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleLogin(w, r)
}

func (ht *HTTPTransport) handleLogin(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.log.With(logging.Group("http", "method", r.Method, "url", r.URL.String()))

	defer func(ctx context.Context) {
		if err != nil {
			log.ErrorContext(ctx, "login failed", "error", err)
		} else {
			log.DebugContext(ctx, "logged in")
		}
	}(r.Context())

	creds, err := ht.readCredentials(w, r)
	if err != nil {
		http_.WriteError(w, err)

		return err
	}

	log = log.With(logging.Group("account", "username", creds.Username))

	session, err := ht.authSvc.Login(r.Context(), creds.Username, creds.Password)
	if err != nil {
		http_.WriteError(w, err)

		return fmt.Errorf("login: %w", err)
	}

	ht.cfg.SetSessionCookie(w, session.ID, time.Unix(session.ExpiresAt, 0))

	if err := http_.WriteJSON(w, http.StatusOK, domain.WhoAmIResponse{Username: session.Username}); err != nil {
		return fmt.Errorf("write response: %w", err)
	}

	return nil
}

// HandleLogout destroys the caller's session and clears the cookie.
func (ht *HTTPTransport) HandleLogout(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleLogout(w, r)
}

func (ht *HTTPTransport) handleLogout(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.log.With(logging.Group("http", "method", r.Method, "url", r.URL.String()))

	defer func(ctx context.Context) {
		if err != nil {
			log.ErrorContext(ctx, "logout failed", "error", err)
		} else {
			log.DebugContext(ctx, "logged out")
		}
	}(r.Context())

	sessionID, _ := context_.SessionIDFromContext(r.Context())

	if err := ht.authSvc.Logout(r.Context(), sessionID); err != nil {
		http_.WriteError(w, err)

		return fmt.Errorf("logout: %w", err)
	}

	ht.cfg.ClearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)

	return nil
}

// HandleWhoAmI returns the username bound to the caller's session.
func (ht *HTTPTransport) HandleWhoAmI(w http.ResponseWriter, r *http.Request) {
	username, _ := context_.UsernameFromContext(r.Context())

	if err := http_.WriteJSON(w, http.StatusOK, domain.WhoAmIResponse{Username: username}); err != nil {
		ht.log.ErrorContext(r.Context(), "write response failed", "error", err)
	}
}
