package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"konnekt.org/internal/ids"
)

// Session policy defaults; tune per deployment.
const (
	defaultSessionLifetime = 30 * 24 * time.Hour
	defaultRenewalWindow   = 15 * 24 * time.Hour
	defaultMinPasswordLen  = 8
	defaultMaxPasswordLen  = 24
)

// DefaultRoleName is assigned to every newly registered user.
const DefaultRoleName = "user"

// Service orchestrates registration, login, session validation and logout.
type Service struct {
	store Store
	now   func() time.Time

	sessionLifetime time.Duration
	renewalWindow   time.Duration
	minPasswordLen  int
	maxPasswordLen  int

	onRenew func()
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service) error

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) error {
		if fn != nil {
			s.now = fn
		}
		return nil
	}
}

// WithSessionLifetime configures how long a fresh session lives.
func WithSessionLifetime(d time.Duration) ServiceOption {
	return func(s *Service) error {
		if d <= 0 {
			return errors.New("session lifetime must be positive")
		}
		s.sessionLifetime = d
		return nil
	}
}

// WithRenewalWindow configures the trailing window inside which validation
// pushes the expiry forward.
func WithRenewalWindow(d time.Duration) ServiceOption {
	return func(s *Service) error {
		if d <= 0 {
			return errors.New("renewal window must be positive")
		}
		s.renewalWindow = d
		return nil
	}
}

// WithPasswordBounds configures accepted password length.
func WithPasswordBounds(min, max int) ServiceOption {
	return func(s *Service) error {
		if min <= 0 || max < min {
			return errors.New("invalid password bounds")
		}
		s.minPasswordLen = min
		s.maxPasswordLen = max
		return nil
	}
}

// WithRenewalObserver registers a callback invoked after a session expiry is
// successfully extended. Used to feed metrics without coupling this package
// to the metrics registry.
func WithRenewalObserver(fn func()) ServiceOption {
	return func(s *Service) error {
		s.onRenew = fn
		return nil
	}
}

// NewService constructs Service with optional configuration.
func NewService(store Store, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("auth store is required")
	}
	svc := &Service{
		store:           store,
		now:             time.Now,
		sessionLifetime: defaultSessionLifetime,
		renewalWindow:   defaultRenewalWindow,
		minPasswordLen:  defaultMinPasswordLen,
		maxPasswordLen:  defaultMaxPasswordLen,
	}
	for _, opt := range opts {
		if err := opt(svc); err != nil {
			return nil, err
		}
	}
	if svc.renewalWindow >= svc.sessionLifetime {
		return nil, errors.New("renewal window must be shorter than session lifetime")
	}
	return svc, nil
}

// Registration is the input to Register.
type Registration struct {
	Email           string
	FirstName       string
	LastName        string
	Password        string
	PasswordConfirm string
}

// Credentials is the input to Login.
type Credentials struct {
	Email    string
	Password string
}

// LoginResult bundles the persisted session, the raw client token and the
// public user projection. The token appears here and nowhere else.
type LoginResult struct {
	Session Session
	Token   string
	User    *User
}

// Register validates input, stores the user with the default role set and
// issues a first session. Returns ErrAlreadyExists for a duplicate email.
func (s *Service) Register(ctx context.Context, reg Registration) (LoginResult, error) {
	email := normalizeEmail(reg.Email)
	fields := FieldErrors{}
	if !validEmail(email) {
		fields["email"] = "valid email is required"
	}
	if strings.TrimSpace(reg.FirstName) == "" {
		fields["first_name"] = "first name is required"
	}
	if strings.TrimSpace(reg.LastName) == "" {
		fields["last_name"] = "last name is required"
	}
	if len(reg.Password) < s.minPasswordLen || len(reg.Password) > s.maxPasswordLen {
		fields["password"] = fmt.Sprintf("password must be between %d and %d characters", s.minPasswordLen, s.maxPasswordLen)
	}
	if reg.Password != reg.PasswordConfirm {
		fields["password_confirm"] = "passwords do not match"
	}
	if len(fields) > 0 {
		return LoginResult{}, fields
	}

	users := s.store.Users(ctx)
	if _, err := users.FindByEmail(ctx, email); err == nil {
		return LoginResult{}, ErrAlreadyExists
	} else if !errors.Is(err, ErrNotFound) {
		return LoginResult{}, err
	}

	hash, err := HashPassword(reg.Password)
	if err != nil {
		return LoginResult{}, err
	}

	user, err := users.Create(ctx, NewUser{
		ID:           ids.New(),
		Email:        email,
		FirstName:    strings.TrimSpace(reg.FirstName),
		LastName:     strings.TrimSpace(reg.LastName),
		PasswordHash: hash,
		Roles:        []string{DefaultRoleName},
	})
	if err != nil {
		return LoginResult{}, err
	}

	// Best effort: a failed session insert here leaves a registered user
	// without a session; the client recovers by logging in.
	session, token, err := s.createSession(ctx, user.ID)
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{Session: session, Token: token, User: user}, nil
}

// Login verifies credentials and issues a fresh session. All failure modes
// collapse into ErrInvalidCredentials so responses cannot be used to
// enumerate accounts.
func (s *Service) Login(ctx context.Context, creds Credentials) (LoginResult, error) {
	email := normalizeEmail(creds.Email)
	if email == "" || creds.Password == "" {
		return LoginResult{}, ErrInvalidCredentials
	}

	users := s.store.Users(ctx)
	user, err := users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, err
	}
	hash, err := users.PasswordHash(ctx, user.ID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, err
	}
	if !VerifyPassword(hash, creds.Password) {
		return LoginResult{}, ErrInvalidCredentials
	}

	session, token, err := s.createSession(ctx, user.ID)
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{Session: session, Token: token, User: user}, nil
}

// ValidateSessionToken resolves a presented token to its session and owning
// user. Expired sessions are purged lazily and reported as ErrInvalidSession.
// Inside the trailing renewal window the expiry is pushed forward to
// now+lifetime and persisted before returning; the returned Session is a new
// snapshot, the stored record is never mutated in place by callers.
func (s *Service) ValidateSessionToken(ctx context.Context, token string) (Session, *User, error) {
	if strings.TrimSpace(token) == "" {
		return Session{}, nil, ErrInvalidSession
	}
	sessions := s.store.Sessions(ctx)

	session, err := sessions.Find(ctx, SessionIDFromToken(token))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Session{}, nil, ErrInvalidSession
		}
		return Session{}, nil, err
	}

	user, err := s.store.Users(ctx).Find(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// Orphaned session: the referenced user is gone.
			return Session{}, nil, ErrInvalidSession
		}
		return Session{}, nil, err
	}

	now := s.now().UTC()
	if now.After(session.ExpiresAt) {
		if err := sessions.Delete(ctx, session.ID); err != nil {
			return Session{}, nil, err
		}
		return Session{}, nil, ErrInvalidSession
	}

	if now.After(session.ExpiresAt.Add(-s.renewalWindow)) {
		renewed := session
		renewed.ExpiresAt = now.Add(s.sessionLifetime)
		if err := sessions.UpdateExpiry(ctx, renewed.ID, renewed.ExpiresAt); err != nil {
			return Session{}, nil, err
		}
		if s.onRenew != nil {
			s.onRenew()
		}
		return renewed, user, nil
	}

	return session, user, nil
}

// InvalidateSession deletes the session record. Deleting an absent id is not
// an error.
func (s *Service) InvalidateSession(ctx context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return nil
	}
	return s.store.Sessions(ctx).Delete(ctx, sessionID)
}

func (s *Service) createSession(ctx context.Context, userID string) (Session, string, error) {
	token, err := GenerateSessionToken()
	if err != nil {
		return Session{}, "", err
	}
	session := Session{
		ID:        SessionIDFromToken(token),
		UserID:    userID,
		ExpiresAt: s.now().UTC().Add(s.sessionLifetime),
	}
	if err := s.store.Sessions(ctx).Create(ctx, session); err != nil {
		return Session{}, "", err
	}
	return session, token, nil
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}

// validEmail accepts only a bare RFC 5322 address with a dotted domain. The
// round-trip check rejects inputs the parser would quietly reinterpret, like
// display names or doubled @ signs.
func validEmail(email string) bool {
	if email == "" {
		return false
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return false
	}
	domain := email[strings.LastIndex(email, "@")+1:]
	return strings.Contains(domain, ".")
}
