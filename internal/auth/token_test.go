package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flipSignatureChar(token string) string {
	i := strings.LastIndex(token, ".") + 1
	b := []byte(token)
	if b[i] == 'A' {
		b[i] = 'B'
	} else {
		b[i] = 'A'
	}
	return string(b)
}

func TestNewTokenService_RequiresKey(t *testing.T) {
	_, err := NewTokenService(nil, time.Hour, "test")
	assert.Error(t, err)

	_, err = NewTokenService(testSecret, 0, "test")
	assert.Error(t, err)
}

func TestTokenService_IssueAndVerify(t *testing.T) {
	svc, err := NewTokenService(testSecret, time.Hour, "test")
	require.NoError(t, err)

	userID := uuid.New()
	tok, exp, err := svc.Issue(userID)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 2*time.Second)

	got, err := svc.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, userID, got)
}

func TestTokenService_ExpiryBoundary(t *testing.T) {
	issuedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	now := issuedAt
	ttl := 7 * 24 * time.Hour

	svc, err := NewTokenService(testSecret, ttl, "test", WithClock(func() time.Time { return now }))
	require.NoError(t, err)

	userID := uuid.New()
	tok, _, err := svc.Issue(userID)
	require.NoError(t, err)

	now = issuedAt.Add(ttl - time.Second)
	got, err := svc.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, userID, got)

	now = issuedAt.Add(ttl + time.Second)
	_, err = svc.Verify(tok)
	assert.ErrorIs(t, err, ErrTokenExpired)
	assert.NotErrorIs(t, err, ErrMalformedToken)
}

func TestTokenService_TamperedSignatureIsNeverExpired(t *testing.T) {
	issuedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	now := issuedAt
	svc, err := NewTokenService(testSecret, time.Hour, "test", WithClock(func() time.Time { return now }))
	require.NoError(t, err)

	tok, _, err := svc.Issue(uuid.New())
	require.NoError(t, err)
	bad := flipSignatureChar(tok)

	_, err = svc.Verify(bad)
	assert.ErrorIs(t, err, ErrMalformedToken)

	// Even once the token is past expiry, a bad signature wins.
	now = issuedAt.Add(2 * time.Hour)
	_, err = svc.Verify(bad)
	assert.ErrorIs(t, err, ErrMalformedToken)
	assert.NotErrorIs(t, err, ErrTokenExpired)
}

func TestTokenService_RejectsForeignTokens(t *testing.T) {
	svc, err := NewTokenService(testSecret, time.Hour, "test")
	require.NoError(t, err)

	other, err := NewTokenService([]byte("another-secret-another-secret-xx"), time.Hour, "test")
	require.NoError(t, err)
	foreign, _, err := other.Issue(uuid.New())
	require.NoError(t, err)

	claims := jwt.RegisteredClaims{
		Subject:   uuid.NewString(),
		Issuer:    "test",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject: uuid.NewString(),
		Issuer:  "test",
	}).SignedString(testSecret)
	require.NoError(t, err)

	badSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "not-a-uuid",
		Issuer:    "test",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(testSecret)
	require.NoError(t, err)

	tests := map[string]string{
		"wrong key":   foreign,
		"alg none":    unsigned,
		"garbage":     "not.a.jwt",
		"no expiry":   noExpiry,
		"bad subject": badSubject,
	}
	for name, tok := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Verify(tok)
			assert.ErrorIs(t, err, ErrMalformedToken)
		})
	}
}
