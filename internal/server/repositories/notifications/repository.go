// Package notifications stores activity notifications (likes, comments,
// follows, messages) addressed to a user.
package notifications

import (
	"context"

	"github.com/dmitrijs2005/pulse/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, n *models.Notification) (*models.Notification, error)
	MarkAllRead(ctx context.Context, userID string) (int64, error)
	// CountUnread uses the same NULL-or-false predicate as messages.
	CountUnread(ctx context.Context, userID string) (int64, error)
}
