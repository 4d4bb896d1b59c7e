// AngelaMos | 2026
// jwt_test.go

package auth

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/contacts-backend/internal/config"
	"github.com/carterperez-dev/contacts-backend/internal/core"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:        testSecret,
		SessionExpire: 24 * time.Hour,
		Issuer:        "contacts-api",
		Audience:      "contacts-api",
	}
}

func newTestIssuer(t *testing.T) *TokenIssuer {
	t.Helper()
	i, err := NewTokenIssuer(testJWTConfig())
	require.NoError(t, err)
	return i
}

func TestTokenIssuer_RoundTrip(t *testing.T) {
	i := newTestIssuer(t)

	token, err := i.IssueSession("user-1")
	require.NoError(t, err)
	assert.Len(t, strings.Split(token, "."), 3)

	sub, err := i.VerifySession(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", sub)
}

func TestTokenIssuer_TokensAreUnique(t *testing.T) {
	i := newTestIssuer(t)

	a, err := i.IssueSession("user-1")
	require.NoError(t, err)
	b, err := i.IssueSession("user-1")
	require.NoError(t, err)

	assert.NotEqual(t, a, b, "jti makes every session token distinct")
}

func TestTokenIssuer_Rejects(t *testing.T) {
	i := newTestIssuer(t)
	valid, err := i.IssueSession("user-1")
	require.NoError(t, err)

	otherCfg := testJWTConfig()
	otherCfg.Secret = strings.Repeat("z", 32)
	other, err := NewTokenIssuer(otherCfg)
	require.NoError(t, err)
	foreign, err := other.IssueSession("user-1")
	require.NoError(t, err)

	wrongAudCfg := testJWTConfig()
	wrongAudCfg.Audience = "someone-else"
	wrongAud, err := NewTokenIssuer(wrongAudCfg)
	require.NoError(t, err)
	otherAudience, err := wrongAud.IssueSession("user-1")
	require.NoError(t, err)

	parts := strings.Split(valid, ".")
	tamperedPayload := base64.RawURLEncoding.EncodeToString(
		[]byte(`{"sub":"user-2","type":"session"}`),
	)
	tampered := parts[0] + "." + tamperedPayload + "." + parts[2]

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty", token: ""},
		{name: "garbage", token: "not-a-token"},
		{name: "wrong secret", token: foreign},
		{name: "wrong audience", token: otherAudience},
		{name: "tampered payload", token: tampered},
		{name: "truncated signature", token: valid[:len(valid)-4]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := i.VerifySession(tt.token)
			assert.ErrorIs(t, err, core.ErrTokenInvalid)
		})
	}
}

func TestTokenIssuer_Expiry(t *testing.T) {
	i := newTestIssuer(t)

	issuedAt := time.Now().Add(-25 * time.Hour)
	i.now = func() time.Time { return issuedAt }
	token, err := i.IssueSession("user-1")
	require.NoError(t, err)

	_, err = i.VerifySession(token)
	require.NoError(t, err, "valid at issue time")

	i.now = time.Now
	_, err = i.VerifySession(token)
	assert.ErrorIs(t, err, core.ErrTokenInvalid)
}

func TestTokenIssuer_IssueVerification(t *testing.T) {
	i := newTestIssuer(t)

	a, err := i.IssueVerification()
	require.NoError(t, err)
	b, err := i.IssueVerification()
	require.NoError(t, err)

	assert.Len(t, a, 22, "16 bytes, unpadded base64")
	assert.NotContains(t, a, "=")
	assert.NotEqual(t, a, b)

	_, err = i.VerifySession(a)
	assert.ErrorIs(t, err, core.ErrTokenInvalid)
}

func TestNewTokenIssuer_InvalidConfig(t *testing.T) {
	cfg := testJWTConfig()
	cfg.Secret = ""
	_, err := NewTokenIssuer(cfg)
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	cfg = testJWTConfig()
	cfg.SessionExpire = 0
	_, err = NewTokenIssuer(cfg)
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}
