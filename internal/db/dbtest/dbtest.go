// Package dbtest opens throwaway in-memory SQLite databases with the full schema.
package dbtest

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mind-engage/aiquiz/internal/db"
)

func Open(t testing.TB) *sql.DB {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	h, err := db.Open(ctx, db.DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = h.Close() })
	return h
}

// SeedUser inserts a bare user row so owner foreign keys resolve.
func SeedUser(t testing.TB, h *sql.DB, id, email string) {
	t.Helper()
	now := time.Now().Unix()
	if _, err := h.Exec(`INSERT INTO users (id,email,name,password_hash,role,is_active,created_at,updated_at)
		VALUES ($1,$2,'','x','user',1,$3,$3)`, id, email, now); err != nil {
		t.Fatalf("seed user: %v", err)
	}
}
