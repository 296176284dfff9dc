package users

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mind-engage/aiquiz/internal/apierr"
	"github.com/mind-engage/aiquiz/internal/auth"
	"github.com/mind-engage/aiquiz/internal/db/dbtest"
)

func newUser(id, email string) *auth.User {
	now := time.Unix(1_700_000_000, 0).UTC()
	return &auth.User{ID: id, Email: email, Name: "n", PasswordHash: "h", Role: auth.RoleUser, Active: true, CreatedAt: now, UpdatedAt: now}
}

func TestSQLStoreCRUD(t *testing.T) {
	s := NewSQLStore(dbtest.Open(t))
	ctx := context.Background()

	if err := s.CreateUser(ctx, newUser("u1", "a@example.com")); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateUser(ctx, newUser("u2", "a@example.com")); !errors.Is(err, apierr.ErrConflict) {
		t.Fatalf("duplicate err = %v", err)
	}
	got, err := s.GetUserByEmail(ctx, "a@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != "u1" || !got.Active || got.CreatedAt.Unix() != 1_700_000_000 {
		t.Fatalf("got %+v", got)
	}
	if _, err := s.GetUserByID(ctx, "missing"); !errors.Is(err, apierr.ErrNotFound) {
		t.Fatalf("missing err = %v", err)
	}

	got.Active = false
	got.Name = "renamed"
	if err := s.UpdateUser(ctx, got); err != nil {
		t.Fatal(err)
	}
	again, _ := s.GetUserByID(ctx, "u1")
	if again.Active || again.Name != "renamed" {
		t.Fatalf("update lost: %+v", again)
	}
	if err := s.UpdateUser(ctx, newUser("ghost", "g@example.com")); !errors.Is(err, apierr.ErrNotFound) {
		t.Fatalf("update missing err = %v", err)
	}
}

func TestUpdateProfileEmailConflict(t *testing.T) {
	store := NewSQLStore(dbtest.Open(t))
	svc := NewService(store)
	ctx := context.Background()
	_ = store.CreateUser(ctx, newUser("u1", "a@example.com"))
	_ = store.CreateUser(ctx, newUser("u2", "b@example.com"))

	taken := " A@Example.com "
	if _, err := svc.UpdateProfile(ctx, "u2", Profile{Email: &taken}); !errors.Is(err, apierr.ErrConflict) {
		t.Fatalf("err = %v", err)
	}
	fresh := "C@example.com"
	u, err := svc.UpdateProfile(ctx, "u2", Profile{Email: &fresh})
	if err != nil {
		t.Fatal(err)
	}
	if u.Email != "c@example.com" {
		t.Fatalf("email = %q", u.Email)
	}

	list, err := svc.List(ctx, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].Email != "a@example.com" {
		t.Fatalf("list = %+v", list)
	}
}

func TestUpdateProfileRejectsMalformedEmail(t *testing.T) {
	store := NewSQLStore(dbtest.Open(t))
	svc := NewService(store)
	ctx := context.Background()
	_ = store.CreateUser(ctx, newUser("u1", "a@example.com"))

	for _, bad := range []string{"a b@example.com", "@example.com", "a@", "plain"} {
		if _, err := svc.UpdateProfile(ctx, "u1", Profile{Email: &bad}); !errors.Is(err, apierr.ErrInvalidInput) {
			t.Errorf("UpdateProfile(%q) err = %v", bad, err)
		}
	}
	u, _ := store.GetUserByID(ctx, "u1")
	if u.Email != "a@example.com" {
		t.Fatalf("email changed to %q", u.Email)
	}
}
