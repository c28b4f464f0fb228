package services

import (
	"context"

	"github.com/contactsbook/apiserver/types"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	UpdateRefreshToken(ctx context.Context, id int, token string) error
	ConfirmEmail(ctx context.Context, email string) error
	UpdateAvatar(ctx context.Context, id int, avatarURL string) error
}

// UserService encapsulates user use-cases.
type UserService struct {
	repo UserRepository
}

func NewUserService(repo UserRepository) *UserService {
	return &UserService{repo: repo}
}

func (s *UserService) GetByID(ctx context.Context, id int) (types.User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *UserService) UpdateAvatar(ctx context.Context, id int, avatarURL string) error {
	return s.repo.UpdateAvatar(ctx, id, avatarURL)
}
