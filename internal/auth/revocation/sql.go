package revocation

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SQL stores revocations in refresh_revocations. Rows past expires_at are
// ignored on read and swept by Purge.
type SQL struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQL(db *sql.DB, now func() time.Time) *SQL {
	if now == nil {
		now = time.Now
	}
	return &SQL{db: db, now: now}
}

func (s *SQL) Revoke(ctx context.Context, jti, subject string, until time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO refresh_revocations (jti, user_id, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (jti) DO NOTHING`,
		jti, subject, until.Unix(),
	)
	if err != nil {
		return fmt.Errorf("revocation: insert: %w", err)
	}
	return nil
}

func (s *SQL) IsRevoked(ctx context.Context, jti string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM refresh_revocations WHERE jti = $1 AND expires_at > $2`,
		jti, s.now().Unix(),
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("revocation: lookup: %w", err)
	}
	return n > 0, nil
}

// Purge deletes rows whose token would have expired anyway.
func (s *SQL) Purge(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM refresh_revocations WHERE expires_at <= $1`, s.now().Unix())
	if err != nil {
		return 0, fmt.Errorf("revocation: purge: %w", err)
	}
	return res.RowsAffected()
}
