package authsvc

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mkrupp/wardrobe/internal/domain"
	"github.com/mkrupp/wardrobe/internal/infra/logging"
	"github.com/mkrupp/wardrobe/internal/repo/account"
	"github.com/mkrupp/wardrobe/internal/repo/session"
	"github.com/mkrupp/wardrobe/internal/svc/authsvc/authclient"
)

//nolint:gochecknoglobals
var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_-][A-Za-z0-9._-]{0,63}$`)

// AuthConfig contains configuration parameters for the authentication service.
type AuthConfig struct {
	// BcryptCost is the work factor of the password hash
	BcryptCost int `env:"BCRYPT_COST" default:"10"`

	// SessionDuration is how long a session stays valid after login
	SessionDuration time.Duration `env:"SESSION_DURATION" default:"24h"`

	// JanitorInterval is how often expired sessions are purged
	JanitorInterval time.Duration `env:"JANITOR_INTERVAL" default:"10m"`
}

// AuthService provides account registration, credential verification and
// server-side session management.
type AuthService struct {
	Config      AuthConfig
	AccountRepo account.Repository
	SessionRepo session.Repository
	Hasher      PasswordHasher
	Categories  []string
	Log         logging.Logger
	Now         func() time.Time

	logins    *prometheus.CounterVec
	dummyOnce sync.Once
	dummyHash []byte
	dummyErr  error
}

var _ authclient.AuthClient = (*AuthService)(nil)

// NewAuthService creates a new AuthService. Every account it registers is
// provisioned with the given category names, in order.
func NewAuthService(
	ctx context.Context,
	accountRepoFactory account.RepositoryFactory,
	sessionRepoFactory session.RepositoryFactory,
	categories []string,
	cfg AuthConfig,
	reg prometheus.Registerer,
) (*AuthService, error) {
	accountRepo, err := accountRepoFactory(ctx)
	if err != nil {
		return nil, fmt.Errorf("new account repo: %w", err)
	}

	sessionRepo, err := sessionRepoFactory(ctx)
	if err != nil {
		return nil, fmt.Errorf("new session repo: %w", err)
	}

	svc := &AuthService{
		Config:      cfg,
		AccountRepo: accountRepo,
		SessionRepo: sessionRepo,
		Hasher:      BcryptHasher{Cost: cfg.BcryptCost},
		Categories:  categories,
		Log:         logging.GetLogger("svc.authsvc.auth_service"),
		Now:         time.Now,
	}

	if err := svc.RegisterMetrics(reg); err != nil {
		return nil, err
	}

	if _, err := svc.getDummyHash(); err != nil {
		return nil, fmt.Errorf("dummy hash: %w", err)
	}

	return svc, nil
}

// RegisterMetrics registers the login counter with reg.
func (s *AuthService) RegisterMetrics(reg prometheus.Registerer) error {
	s.logins = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_logins_total",
		Help: "Login attempts by result.",
	}, []string{"result"})

	if err := reg.Register(s.logins); err != nil {
		return fmt.Errorf("register logins counter: %w", err)
	}

	return nil
}

// Register creates a new account with the service's categories.
// The password is hashed before any storage is touched; uniqueness of the
// username is enforced atomically by the account repository.
func (s *AuthService) Register(ctx context.Context, username, password string) (err error) {
	log := s.Log.With(logging.Group("account", "username", username))

	defer func() {
		switch {
		case err == nil:
			log.InfoContext(ctx, "account registered")
		case errors.Is(err, domain.ErrAlreadyExists), errors.Is(err, domain.ErrInvalidInput):
			log.InfoContext(ctx, "register rejected", "error", err)
		default:
			log.ErrorContext(ctx, "register failed", "error", err)
		}
	}()

	if !usernamePattern.MatchString(username) {
		return fmt.Errorf("%w: malformed username", domain.ErrInvalidInput)
	} else if password == "" {
		return fmt.Errorf("%w: empty password", domain.ErrInvalidInput)
	}

	hash, err := s.Hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.AccountRepo.CreateAccount(ctx, username, hash, s.Categories); err != nil {
		return fmt.Errorf("create account: %w", err)
	}

	return nil
}

// Verify reports whether password matches the account's stored hash.
// An unknown username and a wrong password are indistinguishable to the caller,
// including in the time taken.
func (s *AuthService) Verify(ctx context.Context, username, password string) (_ bool, err error) {
	defer func() {
		if err != nil {
			s.Log.ErrorContext(ctx, "verify failed", "error", err)
		}
	}()

	acct, err := s.AccountRepo.GetAccount(ctx, username)
	if errors.Is(err, domain.ErrNotFound) {
		hash, herr := s.getDummyHash()
		if herr != nil {
			return false, herr
		}

		s.Hasher.Compare(hash, password)

		return false, nil
	} else if err != nil {
		return false, fmt.Errorf("get account: %w", err)
	}

	return s.Hasher.Compare(acct.PasswordHash, password), nil
}

// Login verifies the credentials and opens a new session for the account.
// Returns ErrInvalidCredentials if verification fails.
func (s *AuthService) Login(ctx context.Context, username, password string) (sess *domain.Session, err error) {
	log := s.Log.With(logging.Group("account", "username", username))

	defer func() {
		switch {
		case err == nil:
			s.countLogin("success")
			log.InfoContext(ctx, "login successful", "expires_at", time.Unix(sess.ExpiresAt, 0).UTC())
		case errors.Is(err, domain.ErrInvalidCredentials):
			s.countLogin("failure")
			log.InfoContext(ctx, "login rejected")
		default:
			s.countLogin("error")
			log.ErrorContext(ctx, "login failed", "error", err)
		}
	}()

	ok, err := s.Verify(ctx, username, password)
	if err != nil {
		return nil, fmt.Errorf("verify: %w", err)
	} else if !ok {
		return nil, domain.ErrInvalidCredentials
	}

	now := s.Now()
	sess = &domain.Session{
		ID:        rand.Text(),
		Username:  username,
		CreatedAt: now.Unix(),
		ExpiresAt: now.Add(s.Config.SessionDuration).Unix(),
	}

	if err := s.SessionRepo.CreateSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	return sess, nil
}

// Logout destroys the session. Unknown session IDs are ignored.
func (s *AuthService) Logout(ctx context.Context, sessionID string) (err error) {
	defer func() {
		if err != nil {
			s.Log.ErrorContext(ctx, "logout failed", "error", err)
		} else {
			s.Log.DebugContext(ctx, "logged out")
		}
	}()

	if err := s.SessionRepo.DeleteSession(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	return nil
}

// Validate implements authclient.AuthClient.
// Unknown and expired sessions are reported as invalid, storage errors as errors.
func (s *AuthService) Validate(ctx context.Context, sessionID string) (_ string, _ bool, err error) {
	if sessionID == "" {
		return "", false, nil
	}

	sess, err := s.SessionRepo.GetSession(ctx, sessionID, s.Now())
	if errors.Is(err, domain.ErrNotFound) {
		s.Log.DebugContext(ctx, "session not found or expired")

		return "", false, nil
	} else if err != nil {
		return "", false, fmt.Errorf("get session: %w", err)
	}

	return sess.Username, true, nil
}

// PruneExpired deletes all sessions that have expired by now.
func (s *AuthService) PruneExpired(ctx context.Context) (int64, error) {
	n, err := s.SessionRepo.DeleteExpired(ctx, s.Now())
	if err != nil {
		return 0, fmt.Errorf("delete expired: %w", err)
	}

	return n, nil
}

// RunJanitor prunes expired sessions every interval until ctx is done.
func (s *AuthService) RunJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.PruneExpired(ctx); err != nil {
				s.Log.WarnContext(ctx, "prune expired sessions failed", "error", err)
			}
		}
	}
}

// getDummyHash returns a hash of a random password at the configured cost,
// compared against when the username is unknown. NewAuthService builds it up
// front so the first unknown-user Verify costs no extra hash.
func (s *AuthService) getDummyHash() ([]byte, error) {
	s.dummyOnce.Do(func() {
		s.dummyHash, s.dummyErr = s.Hasher.Hash(rand.Text())
	})

	return s.dummyHash, s.dummyErr
}

func (s *AuthService) countLogin(result string) {
	if s.logins != nil {
		s.logins.WithLabelValues(result).Inc()
	}
}
