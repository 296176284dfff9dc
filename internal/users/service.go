package users

import (
	"context"
	"strings"
	"time"

	"github.com/mind-engage/aiquiz/internal/auth"
	"github.com/mind-engage/aiquiz/internal/db"
)

// Profile holds the self-service fields. Nil leaves a field unchanged.
type Profile struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
}

type Service struct {
	Store *SQLStore
	Now   func() time.Time
}

func NewService(store *SQLStore) *Service {
	return &Service{Store: store, Now: time.Now}
}

func (s *Service) Get(ctx context.Context, id string) (*auth.User, error) {
	return s.Store.GetUserByID(ctx, id)
}

func (s *Service) UpdateProfile(ctx context.Context, id string, p Profile) (*auth.User, error) {
	u, err := s.Store.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Name != nil {
		u.Name = strings.TrimSpace(*p.Name)
	}
	if p.Email != nil {
		email := auth.NormalizeEmail(*p.Email)
		if err := auth.ValidateEmail(email); err != nil {
			return nil, err
		}
		u.Email = email
	}
	u.UpdatedAt = s.Now().UTC()
	if err := s.Store.UpdateUser(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) List(ctx context.Context, skip, limit int) ([]auth.User, error) {
	skip, limit = db.Page(skip, limit)
	return s.Store.List(ctx, skip, limit)
}
