package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/mind-engage/aiquiz/internal/apierr"
)

// Kind separates the two token uses. Both share one encoding, so the kind
// travels in the "typ" claim and is checked on every parse.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

const issuer = "aiquiz"

type Claims struct {
	Type Kind `json:"typ"`
	jwt.RegisteredClaims
}

// Token is a signed token plus the expiry the transport layer mirrors onto its cookie.
type Token struct {
	Value     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// TokenCodec signs and verifies HS256 tokens with one shared secret.
type TokenCodec struct {
	key []byte
	now func() time.Time
}

func NewTokenCodec(secret string, now func() time.Time) *TokenCodec {
	if now == nil {
		now = time.Now
	}
	return &TokenCodec{key: []byte(secret), now: now}
}

func (c *TokenCodec) Issue(kind Kind, subject string, ttl time.Duration) (Token, error) {
	if subject == "" {
		return Token{}, errors.New("issue token: empty subject")
	}
	if ttl <= 0 {
		return Token{}, fmt.Errorf("issue token: non-positive ttl %v", ttl)
	}
	now := c.now()
	exp := now.Add(ttl)
	claims := &Claims{
		Type: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.key)
	if err != nil {
		return Token{}, fmt.Errorf("sign token: %w", err)
	}
	return Token{Value: s, ExpiresAt: claims.ExpiresAt.Time}, nil
}

// Parse verifies signature, algorithm, expiry and kind. Every failure wraps apierr.ErrUnauthenticated.
func (c *TokenCodec) Parse(kind Kind, raw string) (*Claims, error) {
	if raw == "" {
		return nil, fmt.Errorf("missing token: %w", apierr.ErrUnauthenticated)
	}
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return c.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(issuer),
	)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, apierr.ErrUnauthenticated)
	}
	if !tok.Valid {
		return nil, fmt.Errorf("invalid token: %w", apierr.ErrUnauthenticated)
	}
	if claims.Type != kind {
		return nil, fmt.Errorf("%s token where %s expected: %w", claims.Type, kind, apierr.ErrUnauthenticated)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("token without subject: %w", apierr.ErrUnauthenticated)
	}
	return claims, nil
}
