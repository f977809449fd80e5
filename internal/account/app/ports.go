package app

import (
	"context"

	"github.com/dwikikusuma/minishop/internal/account/domain"
)

type UserRepo interface {
	// Create fails with domain.ErrUsernameTaken when the name is in use.
	Create(ctx context.Context, u domain.User) (domain.User, error)
	// GetByUsername fails with domain.ErrInvalidCredentials when no such user exists.
	GetByUsername(ctx context.Context, username string) (domain.User, error)
}
