package auth

import (
	"strings"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testSecret  = []byte("test-secret-key-for-jwt-signing-0123")
	otherSecret = []byte("rotated-secret-key-for-jwt-signing-99")
	testNow     = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
)

func issue(t *testing.T, tm *TokenManager, subject string, now time.Time, ttl time.Duration) string {
	t.Helper()
	token, _, err := tm.Issue(subject, now, ttl)
	require.NoError(t, err)
	return token
}

// mutate replaces the character at i with a different base64url character.
func mutate(s string, i int) string {
	replacement := byte('A')
	if s[i] == 'A' {
		replacement = 'B'
	}
	return s[:i] + string(replacement) + s[i+1:]
}

func TestIssueSetsClaims(t *testing.T) {
	tm := NewTokenManager(testSecret)

	token, expiresAt, err := tm.Issue("jaques", testNow, DefaultTokenTTL)
	require.NoError(t, err)
	assert.Equal(t, testNow.Add(10*time.Hour), expiresAt)

	claims, err := tm.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "jaques", claims.Subject)
	assert.True(t, claims.IssuedAt.Equal(testNow))
	assert.True(t, claims.ExpiresAt.Equal(expiresAt))
}

func TestIssueIsDeterministic(t *testing.T) {
	tm := NewTokenManager(testSecret)
	assert.Equal(t, issue(t, tm, "alice", testNow, time.Hour), issue(t, tm, "alice", testNow, time.Hour))
	assert.NotEqual(t, issue(t, tm, "alice", testNow, time.Hour), issue(t, tm, "alice", testNow.Add(time.Second), time.Hour))
}

func TestParseMalformed(t *testing.T) {
	tm := NewTokenManager(testSecret)
	valid := issue(t, tm, "alice", testNow, time.Hour)

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty", token: ""},
		{name: "single section", token: "not-a-jwt-token"},
		{name: "two sections", token: "abc.def"},
		{name: "four sections", token: valid + ".extra"},
		{name: "bad base64 signature", token: "header.payload.signature"},
		{name: "non base64 characters", token: "***.***.***"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tm.Parse(tt.token)
			assert.ErrorIs(t, err, ErrTokenMalformed)
		})
	}
}

func TestParseRejectsTamperedSignature(t *testing.T) {
	tm := NewTokenManager(testSecret)
	token := issue(t, tm, "alice", testNow, time.Hour)
	parts := strings.Split(token, ".")

	for i := 0; i < len(parts[2]); i++ {
		tampered := parts[0] + "." + parts[1] + "." + mutate(parts[2], i)
		_, err := tm.Parse(tampered)
		require.ErrorIs(t, err, ErrTokenBadSignature, "signature index %d", i)
	}
}

func TestParseRejectsAlternateFinalSignatureCharacter(t *testing.T) {
	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"
	tm := NewTokenManager(testSecret)
	token := issue(t, tm, "alice", testNow, time.Hour)
	parts := strings.Split(token, ".")
	sig := parts[2]
	last := sig[len(sig)-1]

	for _, c := range []byte(alphabet) {
		if c == last {
			continue
		}
		tampered := parts[0] + "." + parts[1] + "." + sig[:len(sig)-1] + string(c)
		_, err := tm.Validate(tampered, nil, testNow)
		require.ErrorIs(t, err, ErrTokenBadSignature, "final signature character %q (issued %q)", c, last)
	}
}

func TestParseRejectsTamperedPayload(t *testing.T) {
	tm := NewTokenManager(testSecret)
	token := issue(t, tm, "alice", testNow, time.Hour)
	parts := strings.Split(token, ".")

	for i := 0; i < len(parts[1]); i++ {
		tampered := parts[0] + "." + mutate(parts[1], i) + "." + parts[2]
		_, err := tm.Parse(tampered)
		require.ErrorIs(t, err, ErrTokenBadSignature, "payload index %d", i)
	}
}

func TestParseRejectsOtherAlgorithms(t *testing.T) {
	tm := NewTokenManager(testSecret)
	claims := jwt.RegisteredClaims{Subject: "alice", ExpiresAt: jwt.NewNumericDate(testNow.Add(time.Hour))}

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = tm.Parse(none)
	assert.ErrorIs(t, err, ErrTokenBadSignature)

	hs384, err := jwt.NewWithClaims(jwt.SigningMethodHS384, claims).SignedString(testSecret)
	require.NoError(t, err)
	_, err = tm.Parse(hs384)
	assert.ErrorIs(t, err, ErrTokenBadSignature)
}

func TestParseAfterSecretRotation(t *testing.T) {
	token := issue(t, NewTokenManager(testSecret), "jaques", testNow, time.Hour)

	_, err := NewTokenManager(otherSecret).Parse(token)
	assert.ErrorIs(t, err, ErrTokenBadSignature)
}

func TestSubjectRequiresNonEmptySubject(t *testing.T) {
	tm := NewTokenManager(testSecret)

	subject, err := tm.Subject(issue(t, tm, "alice", testNow, time.Hour))
	require.NoError(t, err)
	assert.Equal(t, "alice", subject)

	_, err = tm.Subject(issue(t, tm, "", testNow, time.Hour))
	assert.ErrorIs(t, err, ErrTokenMalformed)
}
