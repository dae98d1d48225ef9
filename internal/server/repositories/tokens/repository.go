// Package tokens declares the token store, the authoritative set of live
// bearer tokens, with PostgreSQL and Redis implementations. All operations
// are keyed on the token string.
package tokens

import (
	"context"

	"github.com/dmitrijs2005/userservice/internal/server/models"
)

type Repository interface {
	Exists(ctx context.Context, token string) (bool, error)

	// FindByToken returns the stored row or common.ErrorNotFound.
	FindByToken(ctx context.Context, token string) (*models.Token, error)

	Save(ctx context.Context, token *models.Token) error

	// Delete removes the row and reports whether one was present.
	// Deleting an absent token is not an error.
	Delete(ctx context.Context, token string) (bool, error)
}
