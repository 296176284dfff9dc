package rbac

import (
	"net/http"

	"github.com/mind-engage/aiquiz/internal/api/response"
	"github.com/mind-engage/aiquiz/internal/apierr"
)

var defaultChecker = NewChecker(nil)

// Default is the process-wide checker built from RolePermissions.
func Default() *Checker { return defaultChecker }

// Require enforces a single permission.
func Require(perm string) func(http.Handler) http.Handler {
	return RequireAny(perm)
}

// RequireAny enforces that the role has at least one of the permissions.
func RequireAny(perms ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFromContext(r.Context())
			if !ok {
				response.Error(w, apierr.ErrUnauthenticated)
				return
			}
			if !defaultChecker.Any(p.Role, perms...) {
				response.Error(w, apierr.ErrUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
