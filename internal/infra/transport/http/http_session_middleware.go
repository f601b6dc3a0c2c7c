package http

import (
	"net/http"
	"time"

	context_ "github.com/mkrupp/wardrobe/internal/infra/context"
	"github.com/mkrupp/wardrobe/internal/infra/logging"
	"github.com/mkrupp/wardrobe/internal/svc/authsvc/authclient"
)

// SessionCookieConfig describes the cookie that carries the session ID.
type SessionCookieConfig struct {
	// CookieName is the name of the session cookie
	CookieName string `env:"COOKIE_NAME" default:"wardrobe_session"`

	// CookieSecure marks the cookie as HTTPS-only
	CookieSecure bool `env:"COOKIE_SECURE" default:"false"`
}

// SetSessionCookie attaches the session ID to the response.
func (cfg SessionCookieConfig) SetSessionCookie(w http.ResponseWriter, sessionID string, expiresAt time.Time) {
	//nolint:exhaustruct
	http.SetCookie(w, &http.Cookie{
		Name:     cfg.CookieName,
		Value:    sessionID,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie tells the client to drop the session cookie.
func (cfg SessionCookieConfig) ClearSessionCookie(w http.ResponseWriter) {
	//nolint:exhaustruct
	http.SetCookie(w, &http.Cookie{
		Name:     cfg.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// SessionID returns the session ID carried by the request, if any.
func (cfg SessionCookieConfig) SessionID(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(cfg.CookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}

	return cookie.Value, true
}

// SessionMiddleware creates middleware that resolves the session cookie to an identity.
// Requests without a valid session are rejected with 401 before reaching next.
// On success, the username and session ID are added to the request context.
func SessionMiddleware(
	next http.Handler,
	authClient authclient.AuthClient,
	cookies SessionCookieConfig,
	log logging.Logger,
) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID, ok := cookies.SessionID(r)
		if !ok {
			log.DebugContext(r.Context(), "no session cookie")
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)

			return
		}

		username, ok, err := authClient.Validate(r.Context(), sessionID)
		if err != nil {
			log.ErrorContext(r.Context(), "validate session failed", "error", err)
			WriteError(w, err)

			return
		} else if !ok {
			log.DebugContext(r.Context(), "invalid session")
			cookies.ClearSessionCookie(w)
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)

			return
		}

		ctx := context_.WithUsername(r.Context(), username)
		ctx = context_.WithSessionID(ctx, sessionID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
