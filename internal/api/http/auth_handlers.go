package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/mind-engage/aiquiz/internal/api/response"
	"github.com/mind-engage/aiquiz/internal/apierr"
	"github.com/mind-engage/aiquiz/internal/auth"
	authmw "github.com/mind-engage/aiquiz/internal/auth/middleware"
)

type registerReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// POST /auth/register
func RegisterHandler(m *auth.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerReq
		if err := response.Decode(r, &req); err != nil {
			response.Error(w, err)
			return
		}
		u, err := m.Register(r.Context(), req.Email, req.Password, req.Name)
		if err != nil {
			response.Error(w, err)
			return
		}
		response.JSON(w, http.StatusCreated, u)
	}
}

type loginResp struct {
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token"`
	TokenType    string     `json:"token_type"`
	ExpiresAt    int64      `json:"expires_at"`
	RefreshUntil int64      `json:"refresh_expires_at"`
	User         *auth.User `json:"user"`
}

// loginCredentials accepts a JSON body or an OAuth2-style password form
// (username/password), which is what browser login forms post.
func loginCredentials(r *http.Request) (string, string, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
		if err := r.ParseForm(); err != nil {
			return "", "", apierr.Invalid("bad form: %v", err)
		}
		email := r.PostForm.Get("username")
		if email == "" {
			email = r.PostForm.Get("email")
		}
		return email, r.PostForm.Get("password"), nil
	}
	var req struct {
		Email    string `json:"email"`
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := response.Decode(r, &req); err != nil {
		return "", "", err
	}
	if req.Email == "" {
		req.Email = req.Username
	}
	return req.Email, req.Password, nil
}

// POST /auth/login
func LoginHandler(m *auth.Manager, cookies authmw.CookieOptions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		email, password, err := loginCredentials(r)
		if err != nil {
			response.Error(w, err)
			return
		}
		u, pair, err := m.Login(r.Context(), email, password)
		if err != nil {
			response.Error(w, err)
			return
		}
		authmw.SetSessionCookies(w, cookies, pair.Access, pair.Refresh)
		response.OK(w, loginResp{
			AccessToken:  pair.Access.Value,
			RefreshToken: pair.Refresh.Value,
			TokenType:    "bearer",
			ExpiresAt:    pair.Access.ExpiresAt.Unix(),
			RefreshUntil: pair.Refresh.ExpiresAt.Unix(),
			User:         u,
		})
	}
}

// refreshToken prefers the refresh cookie and falls back to a JSON body.
func refreshToken(r *http.Request) (string, error) {
	if c, err := r.Cookie(authmw.RefreshCookie); err == nil && c.Value != "" {
		return c.Value, nil
	}
	if r.ContentLength == 0 {
		return "", nil
	}
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := response.Decode(r, &req); err != nil {
		return "", err
	}
	return req.RefreshToken, nil
}

// POST /auth/refresh
func RefreshHandler(m *auth.Manager, cookies authmw.CookieOptions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, err := refreshToken(r)
		if err != nil {
			response.Error(w, err)
			return
		}
		access, err := m.Refresh(r.Context(), raw)
		if err != nil {
			response.Error(w, err)
			return
		}
		authmw.SetSessionCookies(w, cookies, access, auth.Token{})
		response.OK(w, map[string]any{
			"access_token": access.Value,
			"token_type":   "bearer",
			"expires_at":   access.ExpiresAt.Unix(),
		})
	}
}

// POST /auth/logout revokes the presented refresh token and clears both
// cookies. An already invalid token still logs the browser out.
func LogoutHandler(m *auth.Manager, cookies authmw.CookieOptions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, err := refreshToken(r)
		if err != nil {
			response.Error(w, err)
			return
		}
		if raw != "" {
			if err := m.Logout(r.Context(), raw); err != nil && !errors.Is(err, apierr.ErrUnauthenticated) {
				response.Error(w, err)
				return
			}
		}
		authmw.ClearSessionCookies(w, cookies)
		w.WriteHeader(http.StatusNoContent)
	}
}
