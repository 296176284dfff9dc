package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mind-engage/aiquiz/internal/apierr"
)

func TestTokenRoundTrip(t *testing.T) {
	c := NewTokenCodec("k1", nil)
	tok, err := c.Issue(KindAccess, "u1", time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	claims, err := c.Parse(KindAccess, tok.Value)
	if err != nil {
		t.Fatal(err)
	}
	if claims.Subject != "u1" || claims.ID == "" || claims.Issuer != "aiquiz" {
		t.Fatalf("claims = %+v", claims)
	}
}

func TestTokenRejections(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	clock := func() time.Time { return now }
	c := NewTokenCodec("k1", clock)

	access, _ := c.Issue(KindAccess, "u1", time.Minute)
	refresh, _ := c.Issue(KindRefresh, "u1", time.Hour)
	foreign, _ := NewTokenCodec("k2", clock).Issue(KindAccess, "u1", time.Minute)
	none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
		Type:             KindAccess,
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u1", Issuer: issuer, ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour))},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)

	late := NewTokenCodec("k1", func() time.Time { return now.Add(2 * time.Minute) })

	cases := []struct {
		name  string
		codec *TokenCodec
		kind  Kind
		raw   string
	}{
		{"empty", c, KindAccess, ""},
		{"garbage", c, KindAccess, "not.a.token"},
		{"wrong signature", c, KindAccess, foreign.Value},
		{"alg none", c, KindAccess, none},
		{"expired", late, KindAccess, access.Value},
		{"refresh as access", c, KindAccess, refresh.Value},
		{"access as refresh", c, KindRefresh, access.Value},
		{"tampered", c, KindAccess, access.Value[:len(access.Value)-2] + "xx"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.codec.Parse(tc.kind, tc.raw)
			if !errors.Is(err, apierr.ErrUnauthenticated) {
				t.Fatalf("err = %v, want unauthenticated", err)
			}
		})
	}
}

func TestIssueValidatesInput(t *testing.T) {
	c := NewTokenCodec("k1", nil)
	if _, err := c.Issue(KindAccess, "", time.Minute); err == nil {
		t.Fatal("empty subject accepted")
	}
	if _, err := c.Issue(KindAccess, "u1", 0); err == nil {
		t.Fatal("zero ttl accepted")
	}
}

func TestTokenExpiryMatchesTTL(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	c := NewTokenCodec("k1", func() time.Time { return now })
	tok, _ := c.Issue(KindRefresh, "u1", 7*24*time.Hour)
	if !tok.ExpiresAt.Equal(now.Add(7 * 24 * time.Hour)) {
		t.Fatalf("expires_at = %v", tok.ExpiresAt)
	}
	if strings.Count(tok.Value, ".") != 2 {
		t.Fatalf("not a compact JWT: %q", tok.Value)
	}
}
