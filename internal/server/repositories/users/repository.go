// Package users declares the repository contract for accounts.
package users

import (
	"context"

	"github.com/dmitrijs2005/pulse/internal/server/models"
)

type Repository interface {
	// Create inserts the user and fills ID. A taken username yields
	// common.ErrorAlreadyExists.
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByUserName(ctx context.Context, userName string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
}
