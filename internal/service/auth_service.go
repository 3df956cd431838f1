package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/spec-kit/user-api/internal/auth"
	"github.com/spec-kit/user-api/internal/domain"
	"github.com/spec-kit/user-api/internal/repository"
)

// PasswordHasher is the one-way hash and compare capability.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hashed string) bool
}

// AuthService verifies credentials and mints tokens.
type AuthService struct {
	users     repository.UsernameLookup
	hasher    PasswordHasher
	tokens    *auth.TokenManager
	ttl       time.Duration
	now       func() time.Time
	decoyOnce sync.Once
	decoy     string
	decoyErr  error
}

// AuthDependencies encapsulates requirements for the auth service.
type AuthDependencies struct {
	Users    repository.UsernameLookup
	Hasher   PasswordHasher
	Tokens   *auth.TokenManager
	TokenTTL time.Duration
	Clock    func() time.Time
}

// NewAuthService builds the service.
func NewAuthService(deps AuthDependencies) *AuthService {
	ttl := deps.TokenTTL
	if ttl <= 0 {
		ttl = auth.DefaultTokenTTL
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &AuthService{
		users:  deps.Users,
		hasher: deps.Hasher,
		tokens: deps.Tokens,
		ttl:    ttl,
		now:    clock,
	}
}

// Login authenticates with the service clock.
func (s *AuthService) Login(ctx context.Context, creds domain.Credentials) (string, time.Time, error) {
	return s.LoginAt(ctx, creds, s.now())
}

// LoginAt authenticates creds and issues a token stamped with now. Unknown users
// and wrong passwords both yield auth.ErrInvalidCredentials.
func (s *AuthService) LoginAt(ctx context.Context, creds domain.Credentials, now time.Time) (string, time.Time, error) {
	user, err := s.users.GetByUsername(ctx, creds.Username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.burnDecoy(creds.Password)
			return "", time.Time{}, auth.ErrInvalidCredentials
		}
		return "", time.Time{}, err
	}
	if !s.hasher.Verify(creds.Password, user.PasswordHash) {
		return "", time.Time{}, auth.ErrInvalidCredentials
	}
	return s.tokens.Issue(user.Username, now, s.ttl)
}

// burnDecoy spends one hash comparison so unknown usernames cost the same as wrong passwords.
func (s *AuthService) burnDecoy(password string) {
	s.decoyOnce.Do(func() {
		s.decoy, s.decoyErr = s.hasher.Hash("decoy-password-never-matches")
	})
	if s.decoyErr == nil {
		s.hasher.Verify(password, s.decoy)
	}
}

// TokenTTL exposes the configured token lifetime.
func (s *AuthService) TokenTTL() time.Duration {
	return s.ttl
}
