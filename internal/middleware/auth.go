// AngelaMos | 2026
// auth.go

package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/carterperez-dev/contacts-backend/internal/core"
)

const PrincipalKey contextKey = "principal"

// Principal is the authenticated caller. Token and TokenHash identify the
// exact session the request was made with.
type Principal struct {
	UserID       string
	Email        string
	Subscription string
	AvatarURL    string
	Token        string
	TokenHash    string
}

type SessionResolver interface {
	ResolveSession(ctx context.Context, token string) (*Principal, error)
}

func Authenticator(resolver SessionResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ExtractToken(r)

			if token == "" {
				core.JSONError(w, core.TokenInvalidError())
				return
			}

			principal, err := resolver.ResolveSession(r.Context(), token)
			if err != nil {
				handleAuthError(w, err)
				return
			}

			ctx := WithPrincipal(r.Context(), principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func ExtractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}

func handleAuthError(w http.ResponseWriter, err error) {
	if core.IsAppError(err) {
		core.JSONError(w, err)
		return
	}

	if errors.Is(err, core.ErrTokenInvalid) {
		core.JSONError(w, core.TokenInvalidError())
		return
	}

	core.InternalServerError(w, err)
}

func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, PrincipalKey, p)
}

func GetPrincipal(ctx context.Context) *Principal {
	if p, ok := ctx.Value(PrincipalKey).(*Principal); ok {
		return p
	}
	return nil
}

func GetUserID(ctx context.Context) string {
	if p := GetPrincipal(ctx); p != nil {
		return p.UserID
	}
	return ""
}

func GetSubscription(ctx context.Context) string {
	if p := GetPrincipal(ctx); p != nil {
		return p.Subscription
	}
	return ""
}
