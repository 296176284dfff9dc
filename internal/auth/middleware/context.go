package auth

import (
	"context"

	identity "github.com/mind-engage/aiquiz/internal/auth"
)

type ctxKey string

const ctxKeyUser ctxKey = "user"

func WithUser(ctx context.Context, u *identity.User) context.Context {
	return context.WithValue(ctx, ctxKeyUser, u)
}

// UserFromContext returns the account resolved by RequireUser, or nil.
func UserFromContext(ctx context.Context) *identity.User {
	if u, ok := ctx.Value(ctxKeyUser).(*identity.User); ok {
		return u
	}
	return nil
}

func SubjectFromContext(ctx context.Context) string {
	if u := UserFromContext(ctx); u != nil {
		return u.ID
	}
	return ""
}

// RequestData is a per-request holder the outer request logger installs so it
// can see who the request resolved to after inner middleware ran.
type RequestData struct {
	UserID string
}

const ctxKeyRequestData ctxKey = "request_data"

func WithRequestData(ctx context.Context) (context.Context, *RequestData) {
	rd := &RequestData{}
	return context.WithValue(ctx, ctxKeyRequestData, rd), rd
}

func RequestDataFrom(ctx context.Context) *RequestData {
	rd, _ := ctx.Value(ctxKeyRequestData).(*RequestData)
	return rd
}
