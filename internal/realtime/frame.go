// Package realtime defines the websocket wire format shared by the server
// hub and the client: frames, event names, channel naming and payloads.
package realtime

import (
	"encoding/json"
	"strings"
)

// Client → server events.
const (
	EventSubscribe   = "subscribe"
	EventUnsubscribe = "unsubscribe"
	EventBroadcast   = "broadcast"
	EventTrack       = "track"
	EventUntrack     = "untrack"
)

// Server → client events.
const (
	EventSubscribed    = "subscribed"
	EventError         = "error"
	EventPresenceSync  = "presence_sync"
	EventPresenceJoin  = "presence_join"
	EventPresenceLeave = "presence_leave"
	EventRowChange     = "row_change"
)

// Frame is one websocket text message. Seq is set by the hub on presence
// frames and increases per topic.
type Frame struct {
	Topic   string          `json:"topic"`
	Event   string          `json:"event"`
	Ref     string          `json:"ref,omitempty"`
	Seq     uint64          `json:"seq,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewFrame marshals payload into a frame. A nil payload is left empty.
func NewFrame(topic, event string, payload any) (Frame, error) {
	f := Frame{Topic: topic, Event: event}
	if payload == nil {
		return f, nil
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return Frame{}, err
	}
	f.Payload = b
	return f, nil
}

// Decode unmarshals the payload into v.
func (f Frame) Decode(v any) error {
	if len(f.Payload) == 0 {
		return nil
	}
	return json.Unmarshal(f.Payload, v)
}

const (
	// PresenceTopic carries who is online, keyed by user id.
	PresenceTopic = "online-users"

	typingTopicPrefix    = "typing_room_"
	rowChangeTopicPrefix = "realtime:"

	TableMessages      = "messages"
	TableNotifications = "notifications"

	// TypingEvent is the broadcast event name used on typing topics.
	TypingEvent = "typing"
)

// TypingTopic is the channel a recipient listens on for typing signals.
func TypingTopic(recipientID string) string {
	return typingTopicPrefix + recipientID
}

// TypingOwner returns the recipient id encoded in a typing topic.
func TypingOwner(topic string) (string, bool) {
	id, ok := strings.CutPrefix(topic, typingTopicPrefix)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

// RowChangeTopic is the topic row changes of table are published on.
func RowChangeTopic(table string) string {
	return rowChangeTopicPrefix + table
}

// RowChangeTable is the inverse of RowChangeTopic.
func RowChangeTable(topic string) (string, bool) {
	table, ok := strings.CutPrefix(topic, rowChangeTopicPrefix)
	if !ok || table == "" {
		return "", false
	}
	return table, true
}
