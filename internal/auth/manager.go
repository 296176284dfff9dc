package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/mind-engage/aiquiz/internal/apierr"
	"github.com/mind-engage/aiquiz/internal/logger"
)

type Options struct {
	AccessTTL      time.Duration
	RefreshTTLDays int
	MinPasswordLen int
	Now            func() time.Time
}

// TokenPair is what a successful login hands to the transport layer.
type TokenPair struct {
	Access  Token `json:"access"`
	Refresh Token `json:"refresh"`
}

// Manager verifies credentials, issues tokens and resolves the caller of each request.
// It holds no per-session state; everything a request needs is in its token.
type Manager struct {
	users   UserStore
	hasher  *PasswordHasher
	codec   *TokenCodec
	revoker Revoker
	log     *logger.Logger
	opts    Options
}

func NewManager(users UserStore, hasher *PasswordHasher, codec *TokenCodec, revoker Revoker, log *logger.Logger, opts Options) *Manager {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.AccessTTL <= 0 {
		opts.AccessTTL = 30 * time.Minute
	}
	if opts.RefreshTTLDays <= 0 {
		opts.RefreshTTLDays = 7
	}
	if opts.MinPasswordLen <= 0 {
		opts.MinPasswordLen = 6
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Manager{
		users:   users,
		hasher:  hasher,
		codec:   codec,
		revoker: revoker,
		log:     log.With("service", "AuthManager"),
		opts:    opts,
	}
}

func (m *Manager) validatePassword(pw string) error {
	if utf8.RuneCountInString(pw) < m.opts.MinPasswordLen {
		return apierr.Invalid("password must be at least %d characters", m.opts.MinPasswordLen)
	}
	return nil
}

func (m *Manager) Register(ctx context.Context, email, password, name string) (*User, error) {
	email = NormalizeEmail(email)
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := m.validatePassword(password); err != nil {
		return nil, err
	}
	if _, err := m.users.GetUserByEmail(ctx, email); err == nil {
		return nil, fmt.Errorf("email %s already registered: %w", email, apierr.ErrConflict)
	} else if !errors.Is(err, apierr.ErrNotFound) {
		return nil, err
	}

	hash, err := m.hasher.Hash(ctx, password)
	if err != nil {
		return nil, err
	}
	now := m.opts.Now().UTC()
	u := &User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         strings.TrimSpace(name),
		PasswordHash: hash,
		Role:         RoleUser,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	// The store's unique index still catches a concurrent duplicate.
	if err := m.users.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	m.log.Info("user registered", "user_id", u.ID)
	return u, nil
}

// VerifyCredentials checks an email/password pair. Account state is only
// revealed after the password matched.
func (m *Manager) VerifyCredentials(ctx context.Context, email, password string) (*User, error) {
	email = NormalizeEmail(email)
	u, err := m.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apierr.ErrNotFound) {
			m.hasher.burn(ctx, password)
		}
		return nil, err
	}
	if err := m.hasher.Compare(ctx, u.PasswordHash, password); err != nil {
		return nil, err
	}
	if !u.Active {
		return nil, fmt.Errorf("user %s: %w", u.ID, apierr.ErrAccountDisabled)
	}
	return u, nil
}

func (m *Manager) IssueAccessToken(userID string, ttl time.Duration) (Token, error) {
	return m.codec.Issue(KindAccess, userID, ttl)
}

func (m *Manager) IssueRefreshToken(userID string, ttlDays int) (Token, error) {
	return m.codec.Issue(KindRefresh, userID, time.Duration(ttlDays)*24*time.Hour)
}

func (m *Manager) Login(ctx context.Context, email, password string) (*User, TokenPair, error) {
	u, err := m.VerifyCredentials(ctx, email, password)
	if err != nil {
		m.log.Warn("login rejected", "error", err)
		return nil, TokenPair{}, err
	}
	access, err := m.IssueAccessToken(u.ID, m.opts.AccessTTL)
	if err != nil {
		return nil, TokenPair{}, err
	}
	refresh, err := m.IssueRefreshToken(u.ID, m.opts.RefreshTTLDays)
	if err != nil {
		return nil, TokenPair{}, err
	}
	return u, TokenPair{Access: access, Refresh: refresh}, nil
}

// ResolveIdentity verifies an access token and loads its subject. It never writes.
// The token may carry a "Bearer" scheme in any letter case.
func (m *Manager) ResolveIdentity(ctx context.Context, bearer string) (*User, error) {
	claims, err := m.codec.Parse(KindAccess, stripBearer(bearer))
	if err != nil {
		return nil, err
	}
	return m.activeSubject(ctx, claims.Subject)
}

func stripBearer(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > len("bearer ") && strings.EqualFold(s[:len("bearer ")], "bearer ") {
		s = s[len("bearer "):]
	}
	return strings.TrimSpace(s)
}

// Refresh mints a new access token from a valid refresh token. The refresh
// token is not rotated; it stays usable until it expires or is logged out.
func (m *Manager) Refresh(ctx context.Context, refreshToken string) (Token, error) {
	claims, err := m.parseRefresh(ctx, refreshToken)
	if err != nil {
		return Token{}, err
	}
	u, err := m.activeSubject(ctx, claims.Subject)
	if err != nil {
		return Token{}, err
	}
	return m.IssueAccessToken(u.ID, m.opts.AccessTTL)
}

// Logout revokes the refresh token until its natural expiry.
func (m *Manager) Logout(ctx context.Context, refreshToken string) error {
	claims, err := m.parseRefresh(ctx, refreshToken)
	if err != nil {
		return err
	}
	if err := m.revoker.Revoke(ctx, claims.ID, claims.Subject, claims.ExpiresAt.Time); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	m.log.Info("refresh token revoked", "user_id", claims.Subject)
	return nil
}

func (m *Manager) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	u, err := m.users.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := m.hasher.Compare(ctx, u.PasswordHash, oldPassword); err != nil {
		return err
	}
	if err := m.validatePassword(newPassword); err != nil {
		return err
	}
	hash, err := m.hasher.Hash(ctx, newPassword)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	u.UpdatedAt = m.opts.Now().UTC()
	return m.users.UpdateUser(ctx, u)
}

// SetActive soft-enables or soft-disables an account.
func (m *Manager) SetActive(ctx context.Context, userID string, active bool) (*User, error) {
	u, err := m.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	u.Active = active
	u.UpdatedAt = m.opts.Now().UTC()
	if err := m.users.UpdateUser(ctx, u); err != nil {
		return nil, err
	}
	m.log.Info("account state changed", "user_id", u.ID, "active", active)
	return u, nil
}

func (m *Manager) parseRefresh(ctx context.Context, raw string) (*Claims, error) {
	claims, err := m.codec.Parse(KindRefresh, strings.TrimSpace(raw))
	if err != nil {
		return nil, err
	}
	revoked, err := m.revoker.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return nil, fmt.Errorf("refresh token revoked: %w", apierr.ErrUnauthenticated)
	}
	return claims, nil
}

func (m *Manager) activeSubject(ctx context.Context, id string) (*User, error) {
	u, err := m.users.GetUserByID(ctx, id)
	if errors.Is(err, apierr.ErrNotFound) {
		return nil, fmt.Errorf("subject %s no longer exists: %w", id, apierr.ErrUnauthenticated)
	}
	if err != nil {
		return nil, err
	}
	if !u.Active {
		return nil, fmt.Errorf("user %s: %w", u.ID, apierr.ErrAccountDisabled)
	}
	return u, nil
}
