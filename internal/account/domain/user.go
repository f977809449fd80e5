package domain

import (
	"errors"
	"time"
)

var (
	ErrInvalidUsername    = errors.New("username must be at least 4 letters")
	ErrInvalidPassword    = errors.New("password must be at least 4 characters")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid username or password")
)

type User struct {
	ID           string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}
