// Package api describes the Pulse RPC surface: request/response messages,
// the JSON wire codec and the pulse.PulseService descriptor shared by the
// gRPC server and client.
package api

import "time"

type PingRequest struct{}

type PingResponse struct {
	Status string `json:"status"`
}

type RegisterRequest struct {
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
}

type RegisterResponse struct {
	UserID string `json:"user_id"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	UserID       string `json:"user_id"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type RefreshTokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type LogoutResponse struct{}

// Message mirrors a messages row. IsRead is nil for rows nobody has touched.
type Message struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"sender_id"`
	ReceiverID string    `json:"receiver_id"`
	Text       string    `json:"text"`
	IsRead     *bool     `json:"is_read"`
	CreatedAt  time.Time `json:"created_at"`
}

type SendMessageRequest struct {
	ReceiverID string `json:"receiver_id"`
	Text       string `json:"text"`
}

type SendMessageResponse struct {
	Message Message `json:"message"`
}

// MarkMessagesReadRequest marks everything SenderID sent to the caller as read.
type MarkMessagesReadRequest struct {
	SenderID string `json:"sender_id"`
}

type MarkReadResponse struct {
	Updated int64 `json:"updated"`
}

type CountUnreadRequest struct{}

type CountUnreadResponse struct {
	Count int64 `json:"count"`
}

type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ActorID   string    `json:"actor_id"`
	Type      string    `json:"type"`
	PostID    string    `json:"post_id,omitempty"`
	Text      string    `json:"text,omitempty"`
	IsRead    *bool     `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateNotificationRequest is sent by the actor; the caller becomes actor_id.
type CreateNotificationRequest struct {
	UserID string `json:"user_id"`
	Type   string `json:"type"`
	PostID string `json:"post_id,omitempty"`
	Text   string `json:"text,omitempty"`
}

type CreateNotificationResponse struct {
	Notification Notification `json:"notification"`
}

type MarkNotificationsReadRequest struct{}

type RegisterPushTokenRequest struct {
	Token      string `json:"token"`
	DeviceType string `json:"device_type"`
}

type RegisterPushTokenResponse struct{}

type UnregisterPushTokenRequest struct {
	Token string `json:"token"`
}

type UnregisterPushTokenResponse struct{}

type Pulse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	MediaType string    `json:"media_type"`
	MediaURL  string    `json:"media_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

type CreatePulseRequest struct {
	MediaType string `json:"media_type"`
}

type CreatePulseResponse struct {
	Pulse     Pulse  `json:"pulse"`
	UploadURL string `json:"upload_url"`
}

type ListPulsesRequest struct{}

type ListPulsesResponse struct {
	Pulses []Pulse `json:"pulses"`
}
