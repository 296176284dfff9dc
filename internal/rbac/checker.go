package rbac

import (
	"context"
	"fmt"
	"strings"

	"github.com/mind-engage/aiquiz/internal/apierr"
)

type Checker struct {
	RolePermissions map[string][]string
}

func NewChecker(rp map[string][]string) *Checker {
	if rp == nil {
		rp = RolePermissions
	}
	return &Checker{RolePermissions: rp}
}

func (c *Checker) Has(role, perm string) bool {
	perms, ok := c.RolePermissions[role]
	if !ok {
		return false
	}
	for _, p := range perms {
		if matchPerm(p, perm) {
			return true
		}
	}
	return false
}

func (c *Checker) Any(role string, perms ...string) bool {
	for _, p := range perms {
		if c.Has(role, p) {
			return true
		}
	}
	return false
}

// Owns allows the owner, or anyone whose role holds perm.
func (c *Checker) Owns(p Principal, ownerID, perm string) error {
	if p.ID == "" {
		return apierr.ErrUnauthenticated
	}
	if p.ID == ownerID || c.Has(p.Role, perm) {
		return nil
	}
	return fmt.Errorf("%s does not own this resource: %w", p.ID, apierr.ErrUnauthorized)
}

func matchPerm(pattern, perm string) bool {
	if pattern == "*" || pattern == perm {
		return true
	}
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(perm, strings.TrimSuffix(pattern, "*"))
	}
	return false
}

// ---- principal in context ----

// Principal is the authenticated caller as seen by authorization checks.
type Principal struct {
	ID   string
	Role string
}

type ctxKey struct{}

var ctxKeyPrincipal = ctxKey{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKeyPrincipal, p)
}

func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(ctxKeyPrincipal).(Principal)
	return p, ok && p.ID != ""
}
