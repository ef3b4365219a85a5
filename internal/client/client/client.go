package client

import (
	"context"

	"github.com/dmitrijs2005/pulse/internal/api"
)

type Client interface {
	Close() error
	Ping(ctx context.Context) error
	Register(ctx context.Context, username, displayName, password string) (string, error)
	Login(ctx context.Context, username, password string) error
	Logout(ctx context.Context) error

	SendMessage(ctx context.Context, receiverID, text string) (*api.Message, error)
	MarkMessagesRead(ctx context.Context, senderID string) (int64, error)
	CountUnreadMessages(ctx context.Context) (int64, error)

	CreateNotification(ctx context.Context, userID, typ, postID, text string) (*api.Notification, error)
	MarkNotificationsRead(ctx context.Context) (int64, error)
	CountUnreadNotifications(ctx context.Context) (int64, error)

	RegisterPushToken(ctx context.Context, token, deviceType string) error
	UnregisterPushToken(ctx context.Context, token string) error

	CreatePulse(ctx context.Context, mediaType string) (*api.Pulse, string, error)
	ListPulses(ctx context.Context) ([]api.Pulse, error)
}
