package rbac

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mind-engage/aiquiz/internal/apierr"
)

func TestMatchPerm(t *testing.T) {
	cases := []struct {
		pattern, perm string
		want          bool
	}{
		{"*", "bank:any", true},
		{"bank:*", "bank:any", true},
		{"bank:own", "bank:any", false},
		{"quiz:any", "quiz:any", true},
	}
	for _, c := range cases {
		if got := matchPerm(c.pattern, c.perm); got != c.want {
			t.Errorf("matchPerm(%q,%q) = %v", c.pattern, c.perm, got)
		}
	}
}

func TestOwns(t *testing.T) {
	c := NewChecker(nil)
	alice := Principal{ID: "alice", Role: "user"}
	admin := Principal{ID: "root", Role: "admin"}

	if err := c.Owns(alice, "alice", PermQuizAny); err != nil {
		t.Fatalf("owner denied: %v", err)
	}
	if err := c.Owns(alice, "bob", PermQuizAny); !errors.Is(err, apierr.ErrUnauthorized) {
		t.Fatalf("non-owner err = %v", err)
	}
	if err := c.Owns(admin, "bob", PermQuizAny); err != nil {
		t.Fatalf("admin denied: %v", err)
	}
	if err := c.Owns(Principal{}, "bob", PermQuizAny); !errors.Is(err, apierr.ErrUnauthenticated) {
		t.Fatalf("anonymous err = %v", err)
	}
}

func TestRequire(t *testing.T) {
	h := Require(PermUserList)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	cases := []struct {
		name string
		ctx  context.Context
		want int
	}{
		{"anonymous", context.Background(), http.StatusUnauthorized},
		{"user", WithPrincipal(context.Background(), Principal{ID: "u", Role: "user"}), http.StatusForbidden},
		{"admin", WithPrincipal(context.Background(), Principal{ID: "a", Role: "admin"}), http.StatusNoContent},
	}
	for _, tc := range cases {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/users", nil).WithContext(tc.ctx))
		if rr.Code != tc.want {
			t.Errorf("%s: status %d, want %d", tc.name, rr.Code, tc.want)
		}
	}
}
