// Package push delivers device notifications through an Expo-compatible
// push API: one POST carries a batch of messages and the response holds
// one ticket per message, in order.
package push

import (
	"context"
	"errors"
	"fmt"
	"time"

	"resty.dev/v3"
)

const (
	StatusOK    = "ok"
	StatusError = "error"

	// ErrDeviceNotRegistered is the ticket error for tokens whose app was
	// uninstalled or whose registration expired.
	ErrDeviceNotRegistered = "DeviceNotRegistered"

	defaultTimeout = 10 * time.Second
)

// Message is one push notification addressed to a single device token.
type Message struct {
	To    string            `json:"to"`
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
	Sound string            `json:"sound,omitempty"`
}

type TicketDetails struct {
	Error string `json:"error,omitempty"`
}

// Ticket is the per-message delivery result.
type Ticket struct {
	Status  string         `json:"status"`
	ID      string         `json:"id,omitempty"`
	Message string         `json:"message,omitempty"`
	Details *TicketDetails `json:"details,omitempty"`
}

// DeviceGone reports whether the token the ticket belongs to should be
// forgotten.
func (t Ticket) DeviceGone() bool {
	return t.Status == StatusError && t.Details != nil && t.Details.Error == ErrDeviceNotRegistered
}

// Sender delivers a batch and returns tickets aligned with msgs.
type Sender interface {
	Send(ctx context.Context, msgs []Message) ([]Ticket, error)
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type sendResponse struct {
	Data   []Ticket   `json:"data"`
	Errors []apiError `json:"errors"`
}

var ErrEndpoint = errors.New("push endpoint error")

// ExpoSender posts batches to the push endpoint with resty.
type ExpoSender struct {
	client      *resty.Client
	endpoint    string
	accessToken string
}

// NewExpoSender builds a sender. accessToken is optional and sent as a
// bearer token when set.
func NewExpoSender(endpoint, accessToken string) *ExpoSender {
	c := resty.New().SetTimeout(defaultTimeout)
	return &ExpoSender{client: c, endpoint: endpoint, accessToken: accessToken}
}

func (s *ExpoSender) Send(ctx context.Context, msgs []Message) ([]Ticket, error) {
	if len(msgs) == 0 {
		return nil, nil
	}

	var out sendResponse
	req := s.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json").
		SetBody(msgs).
		SetResult(&out)
	if s.accessToken != "" {
		req.SetAuthToken(s.accessToken)
	}

	resp, err := req.Post(s.endpoint)
	if err != nil {
		return nil, fmt.Errorf("push request: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: status %d", ErrEndpoint, resp.StatusCode())
	}
	if len(out.Errors) > 0 {
		return nil, fmt.Errorf("%w: %s: %s", ErrEndpoint, out.Errors[0].Code, out.Errors[0].Message)
	}
	if len(out.Data) != len(msgs) {
		return nil, fmt.Errorf("%w: got %d tickets for %d messages", ErrEndpoint, len(out.Data), len(msgs))
	}
	return out.Data, nil
}

func (s *ExpoSender) Close() error {
	return s.client.Close()
}
