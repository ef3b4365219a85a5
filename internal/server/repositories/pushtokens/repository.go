// Package pushtokens stores device push tokens, unique on the token string.
package pushtokens

import (
	"context"

	"github.com/dmitrijs2005/pulse/internal/server/models"
)

type Repository interface {
	// Upsert inserts the token or moves it to t.UserID and refreshes
	// device_type and updated_at.
	Upsert(ctx context.Context, t *models.PushToken) error
	ListByUser(ctx context.Context, userID string) ([]models.PushToken, error)
	// Delete removes a token regardless of owner; used when delivery says
	// the device is gone.
	Delete(ctx context.Context, token string) error
	// DeleteForUser removes a token only if userID owns it.
	DeleteForUser(ctx context.Context, userID, token string) error
}
