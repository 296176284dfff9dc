package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mind-engage/aiquiz/internal/apierr"
	identity "github.com/mind-engage/aiquiz/internal/auth"
	"github.com/mind-engage/aiquiz/internal/rbac"
)

type stubResolver struct{ want string }

func (s stubResolver) ResolveIdentity(_ context.Context, bearer string) (*identity.User, error) {
	if bearer != s.want {
		return nil, apierr.ErrUnauthenticated
	}
	return &identity.User{ID: "u1", Role: identity.RoleUser, Active: true}, nil
}

func TestRequireUser(t *testing.T) {
	var seen rbac.Principal
	h := RequireUser(stubResolver{want: "Bearer good"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = rbac.PrincipalFromContext(r.Context())
		if SubjectFromContext(r.Context()) != "u1" {
			t.Error("user missing from context")
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	cases := []struct {
		name  string
		setup func(r *http.Request)
		want  int
	}{
		{"none", func(r *http.Request) {}, http.StatusUnauthorized},
		{"header", func(r *http.Request) { r.Header.Set("Authorization", "Bearer good") }, http.StatusNoContent},
		{"cookie", func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: AccessCookie, Value: "Bearer good"})
		}, http.StatusNoContent},
		{"bad header", func(r *http.Request) { r.Header.Set("Authorization", "Bearer bad") }, http.StatusUnauthorized},
	}
	for _, tc := range cases {
		seen = rbac.Principal{}
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		tc.setup(req)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if rr.Code != tc.want {
			t.Errorf("%s: status %d, want %d", tc.name, rr.Code, tc.want)
		}
		if tc.want == http.StatusNoContent && seen.ID != "u1" {
			t.Errorf("%s: principal = %+v", tc.name, seen)
		}
	}
}

func TestSessionCookies(t *testing.T) {
	exp := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	rr := httptest.NewRecorder()
	SetSessionCookies(rr, CookieOptions{Secure: true},
		identity.Token{Value: "a.b.c", ExpiresAt: exp},
		identity.Token{Value: "d.e.f", ExpiresAt: exp.Add(time.Hour)})

	got := map[string]*http.Cookie{}
	for _, c := range rr.Result().Cookies() {
		got[c.Name] = c
	}
	a, r := got[AccessCookie], got[RefreshCookie]
	if a == nil || r == nil {
		t.Fatalf("cookies = %v", got)
	}
	if a.Value != "Bearer a.b.c" || !a.HttpOnly || !a.Secure || a.SameSite != http.SameSiteLaxMode {
		t.Fatalf("access cookie = %+v", a)
	}
	if r.Path != RefreshPath || !r.Expires.Equal(exp.Add(time.Hour)) {
		t.Fatalf("refresh cookie = %+v", r)
	}
}
