package repository

import (
	"context"

	"aura-board/internal/domain"
)

// UserRepository stores accounts.
type UserRepository interface {
	// FindByEmail returns ErrUserNotFound when no account uses email.
	FindByEmail(ctx context.Context, email string) (*domain.User, error)

	FindByID(ctx context.Context, id uint) (*domain.User, error)

	// Save creates the user, or updates it when ID is set. A taken email
	// yields ErrDuplicateEntry.
	Save(ctx context.Context, user *domain.User) error
}
