package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/marketplace-auth/internal/domain"
)

// RequireRole returns middleware that allows access only to accounts whose
// role matches one of the provided role names (e.g. domain.RoleSeller).
func RequireRole(allowedRoles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			account, ok := AccountFromContext(r.Context())
			if !ok {
				WriteError(w, r, domain.Auth("Unauthorized, token is missing"))
				return
			}
			for _, role := range allowedRoles {
				if account.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			WriteError(w, r, domain.Forbidden(fmt.Sprintf("Access denied: %s only", strings.Join(allowedRoles, ", "))))
		})
	}
}
