package models

import "time"

// PushToken is a device token owned by a user. Token is unique across users:
// re-registering a token on another account moves it.
type PushToken struct {
	Token      string
	UserID     string
	DeviceType string
	UpdatedAt  time.Time
}
