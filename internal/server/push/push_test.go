package push

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTicketDeviceGone(t *testing.T) {
	tests := []struct {
		name string
		t    Ticket
		want bool
	}{
		{name: "ok", t: Ticket{Status: StatusOK, ID: "x"}},
		{name: "error without details", t: Ticket{Status: StatusError}},
		{name: "other error", t: Ticket{Status: StatusError, Details: &TicketDetails{Error: "MessageTooBig"}}},
		{name: "device gone", t: Ticket{Status: StatusError, Details: &TicketDetails{Error: ErrDeviceNotRegistered}}, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.t.DeviceGone())
		})
	}
}

func TestExpoSender_Send(t *testing.T) {
	var gotAuth string
	var gotMsgs []Message

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotMsgs))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"status":"ok","id":"t1"},{"status":"error","message":"gone","details":{"error":"DeviceNotRegistered"}}]}`))
	}))
	defer srv.Close()

	s := NewExpoSender(srv.URL, "pat")
	defer s.Close()

	tickets, err := s.Send(context.Background(), []Message{
		{To: "ExponentPushToken[a]", Title: "Bob", Body: "hi", Data: map[string]string{"type": "message"}},
		{To: "ExponentPushToken[b]", Title: "Bob", Body: "hi"},
	})
	require.NoError(t, err)
	require.Len(t, tickets, 2)
	assert.Equal(t, "t1", tickets[0].ID)
	assert.True(t, tickets[1].DeviceGone())

	assert.Equal(t, "Bearer pat", gotAuth)
	require.Len(t, gotMsgs, 2)
	assert.Equal(t, "message", gotMsgs[0].Data["type"])
}

func TestExpoSender_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "http error", status: http.StatusInternalServerError, body: `{}`},
		{name: "request errors", status: http.StatusOK, body: `{"errors":[{"code":"VALIDATION_ERROR","message":"bad"}]}`},
		{name: "ticket count mismatch", status: http.StatusOK, body: `{"data":[]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			s := NewExpoSender(srv.URL, "")
			defer s.Close()

			_, err := s.Send(context.Background(), []Message{{To: "x"}})
			assert.ErrorIs(t, err, ErrEndpoint)
		})
	}
}

func TestExpoSender_EmptyBatch(t *testing.T) {
	s := NewExpoSender("http://127.0.0.1:1", "")
	defer s.Close()

	tickets, err := s.Send(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, tickets)
}
