package realtime

import "encoding/json"

// BroadcastPayload wraps an application event sent over a channel.
type BroadcastPayload struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// TypingPayload is the body of a typing broadcast. SentAt is unix
// milliseconds at the sender and lets receivers drop stale signals.
type TypingPayload struct {
	SenderID string `json:"senderId"`
	IsTyping bool   `json:"isTyping"`
	SentAt   int64  `json:"sentAt"`
}

// PresenceMeta is what a client tracks about itself.
type PresenceMeta struct {
	OnlineAt string `json:"online_at"`
}

// PresenceState is the presence_sync payload: the full membership.
type PresenceState struct {
	Presences map[string]PresenceMeta `json:"presences"`
}

// PresenceDiff is the presence_join / presence_leave payload.
type PresenceDiff struct {
	Key  string       `json:"key"`
	Meta PresenceMeta `json:"meta"`
}

// Row change operations.
const (
	OpInsert = "INSERT"
	OpUpdate = "UPDATE"
	OpDelete = "DELETE"
)

// RowRecord carries only routing columns. Message text never travels on
// row-change topics.
type RowRecord struct {
	ID         string `json:"id,omitempty"`
	SenderID   string `json:"sender_id,omitempty"`
	ReceiverID string `json:"receiver_id,omitempty"`
	UserID     string `json:"user_id,omitempty"`
	ActorID    string `json:"actor_id,omitempty"`
	Type       string `json:"type,omitempty"`
	IsRead     *bool  `json:"is_read,omitempty"`
}

// RowChange is the row_change payload.
type RowChange struct {
	Table  string    `json:"table"`
	Type   string    `json:"type"`
	Record RowRecord `json:"record"`
}

// Involves reports whether userID participates in the changed row:
// sender or receiver for messages, owner for notifications.
func (c RowChange) Involves(userID string) bool {
	if userID == "" {
		return false
	}
	switch c.Table {
	case TableMessages:
		return c.Record.SenderID == userID || c.Record.ReceiverID == userID
	case TableNotifications:
		return c.Record.UserID == userID
	default:
		return false
	}
}

// ErrorPayload is the body of an error frame.
type ErrorPayload struct {
	Message string `json:"message"`
}
