package auth

import "time"

// Validate parses token and checks expiry against now and, when expectedSubject
// is non-nil, that the subject claim equals it.
func (tm *TokenManager) Validate(token string, expectedSubject *string, now time.Time) (*Claims, error) {
	claims, err := tm.Parse(token)
	if err != nil {
		return nil, err
	}
	if claims.ExpiresAt == nil || !claims.ExpiresAt.After(now) {
		return nil, ErrTokenExpired
	}
	if expectedSubject != nil && claims.Subject != *expectedSubject {
		return nil, ErrSubjectMismatch
	}
	return claims, nil
}
