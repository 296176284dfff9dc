package http

import (
	"net/http"

	"github.com/mind-engage/aiquiz/internal/api/response"
	"github.com/mind-engage/aiquiz/internal/auth"
	authmw "github.com/mind-engage/aiquiz/internal/auth/middleware"
)

type changePasswordReq struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// POST /users/me/password
func ChangePasswordHandler(m *auth.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req changePasswordReq
		if err := response.Decode(r, &req); err != nil {
			response.Error(w, err)
			return
		}
		if err := m.ChangePassword(r.Context(), authmw.SubjectFromContext(r.Context()), req.OldPassword, req.NewPassword); err != nil {
			response.Error(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
