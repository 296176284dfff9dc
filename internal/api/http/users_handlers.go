package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/aiquiz/internal/api/response"
	"github.com/mind-engage/aiquiz/internal/apierr"
	"github.com/mind-engage/aiquiz/internal/auth"
	authmw "github.com/mind-engage/aiquiz/internal/auth/middleware"
	"github.com/mind-engage/aiquiz/internal/users"
)

// GET /users/me
func MeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u := authmw.UserFromContext(r.Context())
		if u == nil {
			response.Error(w, apierr.ErrUnauthenticated)
			return
		}
		response.OK(w, u)
	}
}

// PUT /users/me
func UpdateMeHandler(svc *users.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p users.Profile
		if err := response.Decode(r, &p); err != nil {
			response.Error(w, err)
			return
		}
		u, err := svc.UpdateProfile(r.Context(), authmw.SubjectFromContext(r.Context()), p)
		if err != nil {
			response.Error(w, err)
			return
		}
		response.OK(w, u)
	}
}

// GET /users (admin)
func ListUsersHandler(svc *users.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		skip, limit := page(r)
		out, err := svc.List(r.Context(), skip, limit)
		if err != nil {
			response.Error(w, err)
			return
		}
		response.OK(w, out)
	}
}

type setActiveReq struct {
	Active *bool `json:"is_active"`
}

// PATCH /users/{userID}/active (admin)
func AdminSetActiveHandler(m *auth.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req setActiveReq
		if err := response.Decode(r, &req); err != nil {
			response.Error(w, err)
			return
		}
		if req.Active == nil {
			response.Error(w, apierr.Invalid("is_active is required"))
			return
		}
		u, err := m.SetActive(r.Context(), chi.URLParam(r, "userID"), *req.Active)
		if err != nil {
			response.Error(w, err)
			return
		}
		response.OK(w, u)
	}
}
