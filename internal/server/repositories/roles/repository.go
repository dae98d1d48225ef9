// Package roles provides read access to the provisioned role definitions.
package roles

import (
	"context"

	"github.com/dmitrijs2005/userservice/internal/server/models"
)

type Repository interface {
	// FindByName returns the role, or common.ErrorNotFound when it has not
	// been provisioned.
	FindByName(ctx context.Context, name string) (*models.Role, error)
}
