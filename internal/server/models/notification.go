package models

import "time"

// Notification types produced by the app.
const (
	NotificationMessage = "message"
	NotificationLike    = "like"
	NotificationComment = "comment"
	NotificationFollow  = "follow"
)

type Notification struct {
	ID        string
	UserID    string
	ActorID   string
	Type      string
	PostID    string
	Text      string
	IsRead    *bool
	CreatedAt time.Time
}
