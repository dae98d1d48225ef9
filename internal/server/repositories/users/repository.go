// Package users declares the user account repository and its PostgreSQL
// implementation.
package users

import (
	"context"

	"github.com/dmitrijs2005/userservice/internal/server/models"
)

// Repository persists user accounts together with their role memberships.
// Email lookups are case-insensitive.
type Repository interface {
	// FindByEmail returns the user with its roles, or common.ErrorNotFound.
	FindByEmail(ctx context.Context, email string) (*models.User, error)

	ExistsByEmail(ctx context.Context, email string) (bool, error)

	// Create inserts a new user and its role memberships. The caller
	// assigns ID and CreatedAt.
	Create(ctx context.Context, user *models.User) error

	// Save updates the profile fields of an existing user and grants any
	// roles it does not hold yet. Memberships are never removed.
	Save(ctx context.Context, user *models.User) error
}
