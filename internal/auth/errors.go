package auth

import "errors"

var (
	// ErrInvalidCredentials covers both unknown usernames and wrong passwords.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrTokenMalformed means the token is not three base64url sections with decodable JSON.
	ErrTokenMalformed = errors.New("token is malformed")
	// ErrTokenBadSignature means the signature does not verify under the configured secret.
	ErrTokenBadSignature = errors.New("token signature is invalid")
	// ErrTokenExpired means expiresAt is not after the validation time.
	ErrTokenExpired = errors.New("token is expired")
	// ErrSubjectMismatch means the subject claim differs from the resolved identity.
	ErrSubjectMismatch = errors.New("token subject does not match identity")
	// ErrAuthorizationDenied means the route requires an identity and none is attached.
	ErrAuthorizationDenied = errors.New("authorization denied")
)
