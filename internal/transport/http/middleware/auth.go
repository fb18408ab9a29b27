package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/marketplace-auth/internal/domain"
)

type contextKey string

const accountKey contextKey = "account"

// Session cookie names.
const (
	UserAccessCookie    = "access_token"
	UserRefreshCookie   = "refresh_token"
	SellerAccessCookie  = "seller_access_token"
	SellerRefreshCookie = "seller_refresh_token"
)

// Authenticator resolves the account behind an access token.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*domain.Account, error)
}

// Auth returns middleware that validates the access token and injects the account into context.
// The token comes from the access_token cookie, then seller_access_token, then a Bearer header.
func Auth(authn Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := TokenFromRequest(r)
			if token == "" {
				WriteError(w, r, domain.Auth("Unauthorized, token is missing"))
				return
			}
			account, err := authn.Authenticate(r.Context(), token)
			if err != nil {
				WriteError(w, r, err)
				return
			}
			ctx := context.WithValue(r.Context(), accountKey, account)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func TokenFromRequest(r *http.Request) string {
	for _, name := range []string{UserAccessCookie, SellerAccessCookie} {
		if c, err := r.Cookie(name); err == nil && c.Value != "" {
			return c.Value
		}
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}

// AccountFromContext extracts the authenticated account from the request context.
func AccountFromContext(ctx context.Context) (*domain.Account, bool) {
	a, ok := ctx.Value(accountKey).(*domain.Account)
	return a, ok
}

// WithAccount returns ctx carrying a, as Auth does.
func WithAccount(ctx context.Context, a *domain.Account) context.Context {
	return context.WithValue(ctx, accountKey, a)
}
