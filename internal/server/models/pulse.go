package models

import "time"

// Pulse is an ephemeral story. The media lives in object storage under
// MediaKey; the row expires 24 hours after creation.
type Pulse struct {
	ID        string
	UserID    string
	MediaKey  string
	MediaType string
	CreatedAt time.Time
	ExpiresAt time.Time
}
