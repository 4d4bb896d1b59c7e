// AngelaMos | 2026
// jwt.go

package auth

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"

	"github.com/carterperez-dev/contacts-backend/internal/config"
	"github.com/carterperez-dev/contacts-backend/internal/core"
)

const (
	sessionTokenType = "session"

	verificationTokenBytes = 16
)

// TokenIssuer signs and verifies session tokens with a single symmetric
// secret loaded once at startup.
type TokenIssuer struct {
	key    jwk.Key
	config config.JWTConfig
	now    func() time.Time
}

func NewTokenIssuer(cfg config.JWTConfig) (*TokenIssuer, error) {
	if cfg.Secret == "" {
		return nil, fmt.Errorf("token issuer: empty secret: %w", core.ErrInvalidInput)
	}
	if cfg.SessionExpire <= 0 {
		return nil, fmt.Errorf(
			"token issuer: non-positive session expiry: %w",
			core.ErrInvalidInput,
		)
	}

	key, err := jwk.Import([]byte(cfg.Secret))
	if err != nil {
		return nil, fmt.Errorf("import signing key: %w", err)
	}

	if setErr := key.Set(jwk.AlgorithmKey, jwa.HS256()); setErr != nil {
		return nil, fmt.Errorf("set algorithm: %w", setErr)
	}

	return &TokenIssuer{
		key:    key,
		config: cfg,
		now:    time.Now,
	}, nil
}

func (i *TokenIssuer) IssueSession(userID string) (string, error) {
	now := i.now()

	token, err := jwt.NewBuilder().
		JwtID(uuid.New().String()).
		Issuer(i.config.Issuer).
		Audience([]string{i.config.Audience}).
		Subject(userID).
		IssuedAt(now).
		NotBefore(now).
		Expiration(now.Add(i.config.SessionExpire)).
		Claim("type", sessionTokenType).
		Build()
	if err != nil {
		return "", fmt.Errorf("build token: %w", err)
	}

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256(), i.key))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return string(signed), nil
}

// IssueVerification returns 128 random bits, URL-safe encoded. The value
// carries no claims and is only meaningful as a lookup key.
func (i *TokenIssuer) IssueVerification() (string, error) {
	token, err := core.GenerateSecureToken(verificationTokenBytes)
	if err != nil {
		return "", fmt.Errorf("issue verification token: %w", err)
	}
	return token, nil
}

// VerifySession returns the subject of a valid session token. Every
// failure is reported as core.ErrTokenInvalid.
func (i *TokenIssuer) VerifySession(tokenString string) (string, error) {
	if tokenString == "" {
		return "", fmt.Errorf("verify token: empty: %w", core.ErrTokenInvalid)
	}

	token, err := jwt.Parse(
		[]byte(tokenString),
		jwt.WithKey(jwa.HS256(), i.key),
		jwt.WithValidate(true),
		jwt.WithIssuer(i.config.Issuer),
		jwt.WithAudience(i.config.Audience),
		jwt.WithClock(jwt.ClockFunc(i.now)),
	)
	if err != nil {
		return "", fmt.Errorf("verify token: %w", core.ErrTokenInvalid)
	}

	var tokenType string
	if err := token.Get("type", &tokenType); err != nil ||
		tokenType != sessionTokenType {
		return "", fmt.Errorf(
			"verify token: invalid token type: %w",
			core.ErrTokenInvalid,
		)
	}

	subject, ok := token.Subject()
	if !ok || subject == "" {
		return "", fmt.Errorf(
			"verify token: missing subject: %w",
			core.ErrTokenInvalid,
		)
	}

	return subject, nil
}
