package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/mind-engage/aiquiz/internal/apierr"
	"github.com/mind-engage/aiquiz/internal/auth"
)

// SQLStore implements auth.UserStore over the users table.
type SQLStore struct {
	DB *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{DB: db} }

const userCols = `id, email, name, password_hash, role, is_active, created_at, updated_at`

func (s *SQLStore) CreateUser(ctx context.Context, u *auth.User) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO users (`+userCols+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		u.ID, u.Email, u.Name, u.PasswordHash, u.Role, u.Active, u.CreatedAt.Unix(), u.UpdatedAt.Unix(),
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("email %s: %w", u.Email, apierr.ErrConflict)
	}
	return err
}

func (s *SQLStore) GetUserByEmail(ctx context.Context, email string) (*auth.User, error) {
	row := s.DB.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE email = $1`, email)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", email, apierr.ErrNotFound)
	}
	return u, err
}

func (s *SQLStore) GetUserByID(ctx context.Context, id string) (*auth.User, error) {
	row := s.DB.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE id = $1`, id)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", id, apierr.ErrNotFound)
	}
	return u, err
}

func (s *SQLStore) UpdateUser(ctx context.Context, u *auth.User) error {
	res, err := s.DB.ExecContext(ctx, `
		UPDATE users SET email=$2, name=$3, password_hash=$4, role=$5, is_active=$6, updated_at=$7
		WHERE id=$1`,
		u.ID, u.Email, u.Name, u.PasswordHash, u.Role, u.Active, u.UpdatedAt.Unix(),
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("email %s: %w", u.Email, apierr.ErrConflict)
	}
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("user %s: %w", u.ID, apierr.ErrNotFound)
	}
	return nil
}

// List returns accounts ordered by email.
func (s *SQLStore) List(ctx context.Context, skip, limit int) ([]auth.User, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT `+userCols+` FROM users ORDER BY email LIMIT $1 OFFSET $2`, limit, skip)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []auth.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(sc scanner) (*auth.User, error) {
	var (
		u                auth.User
		created, updated int64
	)
	if err := sc.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.Role, &u.Active, &created, &updated); err != nil {
		return nil, err
	}
	u.CreatedAt = time.Unix(created, 0).UTC()
	u.UpdatedAt = time.Unix(updated, 0).UTC()
	return &u, nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	// modernc sqlite
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
