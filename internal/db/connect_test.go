package db_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"

	"github.com/mind-engage/aiquiz/internal/db"
	"github.com/mind-engage/aiquiz/internal/db/dbtest"
)

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := db.Open(context.Background(), db.Driver("oracle"), ""); err == nil {
		t.Fatal("expected error")
	}
}

func TestSQLiteDSN(t *testing.T) {
	cases := []struct{ in, want string }{
		{
			in:   "file:a.db",
			want: "file:a.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)",
		},
		{
			in:   "file:a.db?mode=rwc&_pragma=busy_timeout(100)",
			want: "file:a.db?mode=rwc&_pragma=busy_timeout(100)&_pragma=foreign_keys(1)&_pragma=synchronous(NORMAL)",
		},
	}
	for _, c := range cases {
		if got := db.SQLiteDSN(c.in); got != c.want {
			t.Errorf("SQLiteDSN(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestForeignKeysOnEveryConnection(t *testing.T) {
	ctx := context.Background()
	h, err := db.Open(ctx, db.DriverSQLite, fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()
	// Released connections are closed, so each query dials a fresh one.
	h.SetMaxIdleConns(0)
	for i := 0; i < 3; i++ {
		var on int
		if err := h.QueryRowContext(ctx, `PRAGMA foreign_keys`).Scan(&on); err != nil {
			t.Fatal(err)
		}
		if on != 1 {
			t.Fatalf("connection %d: foreign_keys = %d", i, on)
		}
	}
}

func TestCascadeDeleteBank(t *testing.T) {
	h := dbtest.Open(t)
	dbtest.SeedUser(t, h, "u1", "u1@example.com")

	mustExec(t, h, `INSERT INTO question_banks (id,user_id,name,created_at,updated_at) VALUES ('b1','u1','bank',0,0)`)
	mustExec(t, h, `INSERT INTO questions (id,bank_id,prompt,answer,created_at) VALUES ('q1','b1','p','a',0)`)
	mustExec(t, h, `INSERT INTO question_stats (question_id) VALUES ('q1')`)
	mustExec(t, h, `DELETE FROM question_banks WHERE id='b1'`)

	for _, table := range []string{"questions", "question_stats"} {
		var n int
		if err := h.QueryRow(`SELECT COUNT(*) FROM ` + table).Scan(&n); err != nil {
			t.Fatal(err)
		}
		if n != 0 {
			t.Fatalf("%s: %d rows survived the cascade", table, n)
		}
	}
}

func TestStatsCheckConstraint(t *testing.T) {
	h := dbtest.Open(t)
	dbtest.SeedUser(t, h, "u1", "u1@example.com")
	mustExec(t, h, `INSERT INTO question_banks (id,user_id,name,created_at,updated_at) VALUES ('b1','u1','bank',0,0)`)
	mustExec(t, h, `INSERT INTO questions (id,bank_id,prompt,answer,created_at) VALUES ('q1','b1','p','a',0)`)
	if _, err := h.Exec(`INSERT INTO question_stats (question_id,attempts,correct_attempts) VALUES ('q1',1,2)`); err == nil {
		t.Fatal("correct_attempts > attempts must be rejected")
	}
}

func TestWithTxRollsBack(t *testing.T) {
	h := dbtest.Open(t)
	boom := errors.New("boom")
	err := db.WithTx(context.Background(), h, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`INSERT INTO users (id,email,password_hash,created_at,updated_at) VALUES ('u9','x@y.z','h',0,0)`); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	var n int
	if err := h.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("insert was committed")
	}
}

func mustExec(t *testing.T, h *sql.DB, q string) {
	t.Helper()
	if _, err := h.Exec(q); err != nil {
		t.Fatalf("%s: %v", q, err)
	}
}
