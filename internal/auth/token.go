package auth

import (
	"errors"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// DefaultTokenTTL is the lifetime of issued tokens unless configured otherwise.
const DefaultTokenTTL = 10 * time.Hour

// Claims describes the JWT payload: sub, iat and exp.
type Claims struct {
	jwt.RegisteredClaims
}

// TokenManager issues and verifies HS256 tokens with a single process-wide secret.
// It holds no mutable state and is safe for concurrent use.
type TokenManager struct {
	secret   []byte
	parser   *jwt.Parser
	segments *jwt.Parser
}

// NewTokenManager builds a new manager.
func NewTokenManager(secret []byte) *TokenManager {
	key := make([]byte, len(secret))
	copy(key, secret)
	return &TokenManager{
		secret: key,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithoutClaimsValidation(),
			jwt.WithStrictDecoding(),
		),
		segments: jwt.NewParser(),
	}
}

// Issue signs a token for subject. Timestamps use NumericDate precision (seconds),
// so now is truncated before expiresAt = now + ttl is computed.
func (tm *TokenManager) Issue(subject string, now time.Time, ttl time.Duration) (string, time.Time, error) {
	issuedAt := now.Truncate(time.Second)
	expiresAt := issuedAt.Add(ttl)
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// Parse checks structure and signature and returns the claims. Expiry is not checked.
func (tm *TokenManager) Parse(tokenStr string) (*Claims, error) {
	parts := strings.Split(tokenStr, ".")
	if len(parts) != 3 {
		return nil, ErrTokenMalformed
	}
	for _, part := range parts {
		if _, err := tm.segments.DecodeSegment(part); err != nil {
			return nil, ErrTokenMalformed
		}
	}

	// Only the canonical encoding of the MAC is accepted; a signature whose
	// unused trailing bits were altered is not the one that was issued.
	signature, err := tm.parser.DecodeSegment(parts[2])
	if err != nil {
		return nil, ErrTokenBadSignature
	}

	// Claims are only decoded once the MAC over header.payload checks out.
	signingString := parts[0] + "." + parts[1]
	if err := jwt.SigningMethodHS256.Verify(signingString, signature, tm.secret); err != nil {
		return nil, ErrTokenBadSignature
	}

	claims := &Claims{}
	if _, err := tm.parser.ParseWithClaims(tokenStr, claims, tm.keyFunc); err != nil {
		if errors.Is(err, jwt.ErrTokenSignatureInvalid) || errors.Is(err, jwt.ErrTokenUnverifiable) {
			return nil, ErrTokenBadSignature
		}
		return nil, ErrTokenMalformed
	}
	return claims, nil
}

// Subject returns the verified subject claim of tokenStr.
func (tm *TokenManager) Subject(tokenStr string) (string, error) {
	claims, err := tm.Parse(tokenStr)
	if err != nil {
		return "", err
	}
	if claims.Subject == "" {
		return "", ErrTokenMalformed
	}
	return claims.Subject, nil
}

func (tm *TokenManager) keyFunc(token *jwt.Token) (interface{}, error) {
	if token.Method != jwt.SigningMethodHS256 {
		return nil, errors.New("unexpected signing method")
	}
	return tm.secret, nil
}
