package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/mind-engage/aiquiz/internal/api/response"
	"github.com/mind-engage/aiquiz/internal/apierr"
	identity "github.com/mind-engage/aiquiz/internal/auth"
	"github.com/mind-engage/aiquiz/internal/rbac"
)

const (
	AccessCookie  = "access_token"
	RefreshCookie = "refresh_token"
	RefreshPath   = "/api/v1/auth"
)

type Resolver interface {
	ResolveIdentity(ctx context.Context, bearer string) (*identity.User, error)
}

// BearerFromRequest prefers the Authorization header and falls back to the
// access cookie, whose value carries the same "Bearer <t>" form.
func BearerFromRequest(r *http.Request) string {
	if h := strings.TrimSpace(r.Header.Get("Authorization")); h != "" {
		return h
	}
	if c, err := r.Cookie(AccessCookie); err == nil {
		return strings.Trim(c.Value, `"`)
	}
	return ""
}

// RequireUser resolves the caller once per request and stores the account
// and its rbac principal in the context.
func RequireUser(res Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			bearer := BearerFromRequest(r)
			if bearer == "" {
				response.Error(w, apierr.ErrUnauthenticated)
				return
			}
			u, err := res.ResolveIdentity(r.Context(), bearer)
			if err != nil {
				response.Error(w, err)
				return
			}
			if rd := RequestDataFrom(r.Context()); rd != nil {
				rd.UserID = u.ID
			}
			ctx := WithUser(r.Context(), u)
			ctx = rbac.WithPrincipal(ctx, rbac.Principal{ID: u.ID, Role: u.Role})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

type CookieOptions struct {
	Secure bool
}

// SetSessionCookies mirrors each token's expiry onto its cookie.
func SetSessionCookies(w http.ResponseWriter, opts CookieOptions, access, refresh identity.Token) {
	http.SetCookie(w, &http.Cookie{
		Name:     AccessCookie,
		Value:    "Bearer " + access.Value,
		Path:     "/",
		Expires:  access.ExpiresAt,
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	if refresh.Value != "" {
		http.SetCookie(w, &http.Cookie{
			Name:     RefreshCookie,
			Value:    refresh.Value,
			Path:     RefreshPath,
			Expires:  refresh.ExpiresAt,
			HttpOnly: true,
			Secure:   opts.Secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
}

func ClearSessionCookies(w http.ResponseWriter, opts CookieOptions) {
	for name, path := range map[string]string{AccessCookie: "/", RefreshCookie: RefreshPath} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     path,
			Expires:  time.Unix(0, 0),
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   opts.Secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
}
