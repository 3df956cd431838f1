package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/user-api/internal/observability"
	"github.com/spec-kit/user-api/internal/repository"
)

const (
	principalKey = "auth_principal"
	bearerPrefix = "Bearer "
	rolePrefix   = "ROLE_"
)

type principalCtxKey struct{}

// Principal represents the authenticated caller for a single request.
type Principal struct {
	Subject     string   `json:"subject"`
	Role        string   `json:"role"`
	Authorities []string `json:"authorities"`
}

// NewPrincipal derives authorities from role.
func NewPrincipal(subject, role string) *Principal {
	return &Principal{Subject: subject, Role: role, Authorities: []string{rolePrefix + role}}
}

// AuthMiddleware resolves bearer tokens into principals. It never rejects a
// request itself; Policy.Enforce decides whether a missing principal is fatal.
type AuthMiddleware struct {
	tokens     *TokenManager
	identities repository.UsernameLookup
	now        func() time.Time
	logger     *zap.Logger
	metrics    *observability.Metrics
}

// NewAuthMiddleware constructs middleware. now must be the same clock used to issue tokens.
func NewAuthMiddleware(tokens *TokenManager, identities repository.UsernameLookup, now func() time.Time, logger *zap.Logger, metrics *observability.Metrics) *AuthMiddleware {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthMiddleware{tokens: tokens, identities: identities, now: now, logger: logger, metrics: metrics}
}

// Handle attaches a Principal when the request carries a valid bearer token and
// always continues the chain.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	token, ok := bearerToken(c.Get(fiber.HeaderAuthorization))
	if !ok {
		return c.Next()
	}

	if principal := m.authenticate(c, token); principal != nil {
		SetPrincipal(c, principal)
	}
	return c.Next()
}

func (m *AuthMiddleware) authenticate(c *fiber.Ctx, token string) *Principal {
	subject, err := m.tokens.Subject(token)
	if err != nil {
		m.record(c, err)
		return nil
	}
	if _, attached := PrincipalFromContext(c); attached {
		return nil
	}

	user, err := m.identities.GetByUsername(c.UserContext(), subject)
	if err != nil {
		if !errors.Is(err, repository.ErrUserNotFound) {
			m.logger.Warn("identity lookup failed", zap.Error(err))
		}
		m.record(c, err)
		return nil
	}

	expected := user.Username
	if _, err := m.tokens.Validate(token, &expected, m.now()); err != nil {
		m.record(c, err)
		return nil
	}

	m.record(c, nil)
	return NewPrincipal(user.Username, user.Role)
}

func (m *AuthMiddleware) record(c *fiber.Ctx, err error) {
	outcome := outcomeFor(err)
	m.metrics.RecordAuthOutcome(outcome)
	if err != nil {
		m.logger.Debug("bearer token not accepted",
			zap.String("outcome", outcome),
			zap.String("path", c.Path()),
		)
	}
}

func outcomeFor(err error) string {
	switch {
	case err == nil:
		return "authenticated"
	case errors.Is(err, ErrTokenMalformed):
		return "malformed"
	case errors.Is(err, ErrTokenBadSignature):
		return "bad_signature"
	case errors.Is(err, ErrTokenExpired):
		return "expired"
	case errors.Is(err, ErrSubjectMismatch):
		return "subject_mismatch"
	case errors.Is(err, repository.ErrUserNotFound):
		return "unknown_subject"
	default:
		return "lookup_error"
	}
}

// bearerToken requires the exact, case-sensitive "Bearer " prefix.
func bearerToken(header string) (string, bool) {
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", false
	}
	token := strings.TrimPrefix(header, bearerPrefix)
	if token == "" {
		return "", false
	}
	return token, true
}

// SetPrincipal attaches p to the request locals and its user context.
func SetPrincipal(c *fiber.Ctx, p *Principal) {
	c.Locals(principalKey, p)
	c.SetUserContext(WithPrincipal(c.UserContext(), p))
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok && principal != nil
}

// WithPrincipal returns a context carrying p.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalCtxKey{}, p)
}

// PrincipalFrom extracts the principal from a context built by WithPrincipal.
func PrincipalFrom(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalCtxKey{}).(*Principal)
	return p, ok && p != nil
}
