package memory

import (
	"context"

	"github.com/dwikikusuma/minishop/internal/account/domain"
	"github.com/dwikikusuma/minishop/internal/memstore"
)

type UserRepo struct {
	db *memstore.DB
}

func NewUserRepo(db *memstore.DB) *UserRepo {
	return &UserRepo{db: db}
}

func (r *UserRepo) Create(_ context.Context, u domain.User) (domain.User, error) {
	err := r.db.Update(func(tx *memstore.Tx) error {
		if _, taken := tx.UserByName(u.Username); taken {
			return domain.ErrUsernameTaken
		}
		if err := tx.PutUser(memstore.User{ID: u.ID, Username: u.Username, PasswordHash: u.PasswordHash}); err != nil {
			return err
		}
		row, _ := tx.User(u.ID)
		u.CreatedAt = row.CreatedAt
		return nil
	})
	if err != nil {
		return domain.User{}, err
	}
	return u, nil
}

func (r *UserRepo) GetByUsername(_ context.Context, username string) (domain.User, error) {
	var u domain.User
	err := r.db.View(func(tx *memstore.Tx) error {
		row, ok := tx.UserByName(username)
		if !ok {
			return domain.ErrInvalidCredentials
		}
		u = domain.User{ID: row.ID, Username: row.Username, PasswordHash: row.PasswordHash, CreatedAt: row.CreatedAt}
		return nil
	})
	return u, err
}
