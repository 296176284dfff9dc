package http

import (
	"net/http"
	"strconv"

	"github.com/mind-engage/aiquiz/internal/rbac"
)

func principal(r *http.Request) rbac.Principal {
	p, _ := rbac.PrincipalFromContext(r.Context())
	return p
}

// page reads ?skip= and ?limit=; bad values fall back to defaults.
func page(r *http.Request) (int, int) {
	q := r.URL.Query()
	skip, _ := strconv.Atoi(q.Get("skip"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	return skip, limit
}
