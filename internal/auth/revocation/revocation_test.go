package revocation

import (
	"context"
	"testing"
	"time"

	"github.com/mind-engage/aiquiz/internal/db/dbtest"
)

type revoker interface {
	Revoke(ctx context.Context, jti, subject string, until time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

func exercise(t *testing.T, r revoker, clock *time.Time) {
	t.Helper()
	ctx := context.Background()

	if ok, err := r.IsRevoked(ctx, "j1"); err != nil || ok {
		t.Fatalf("fresh jti revoked=%v err=%v", ok, err)
	}
	if err := r.Revoke(ctx, "j1", "u1", clock.Add(time.Hour)); err != nil {
		t.Fatal(err)
	}
	// second revoke of the same jti is a no-op
	if err := r.Revoke(ctx, "j1", "u1", clock.Add(time.Hour)); err != nil {
		t.Fatal(err)
	}
	if ok, _ := r.IsRevoked(ctx, "j1"); !ok {
		t.Fatal("j1 should be revoked")
	}
	if ok, _ := r.IsRevoked(ctx, "j2"); ok {
		t.Fatal("j2 was never revoked")
	}

	*clock = clock.Add(2 * time.Hour)
	if ok, _ := r.IsRevoked(ctx, "j1"); ok {
		t.Fatal("entry should lapse with the token")
	}
}

func TestMemory(t *testing.T) {
	clock := time.Unix(1_700_000_000, 0)
	exercise(t, NewMemory(2, func() time.Time { return clock }), &clock)
}

func TestSQL(t *testing.T) {
	h := dbtest.Open(t)
	clock := time.Unix(1_700_000_000, 0)
	s := NewSQL(h, func() time.Time { return clock })
	exercise(t, s, &clock)

	n, err := s.Purge(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("purged %d rows, want 1", n)
	}
}
