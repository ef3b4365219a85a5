// Package messages stores direct messages and answers unread counts.
package messages

import (
	"context"

	"github.com/dmitrijs2005/pulse/internal/server/models"
)

type Repository interface {
	// Create inserts m and fills ID, IsRead and CreatedAt from the row.
	Create(ctx context.Context, m *models.Message) (*models.Message, error)

	// MarkRead sets is_read on every unread message senderID sent to
	// receiverID and returns the number of updated rows.
	MarkRead(ctx context.Context, receiverID, senderID string) (int64, error)

	// CountUnread counts rows addressed to receiverID whose is_read is
	// not true. NULL and false are both unread.
	CountUnread(ctx context.Context, receiverID string) (int64, error)
}
