package models

import "time"

// Message is a direct message row. IsRead is nullable: nil and false both
// mean unread.
type Message struct {
	ID         string
	SenderID   string
	ReceiverID string
	Text       string
	IsRead     *bool
	CreatedAt  time.Time
}

// Unread applies the unread predicate (is_read IS NOT TRUE) in Go.
func Unread(isRead *bool) bool {
	return isRead == nil || !*isRead
}
