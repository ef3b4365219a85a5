package socket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/dmitrijs2005/pulse/internal/realtime"
)

type Status int

const (
	StatusClosed Status = iota
	StatusJoining
	StatusJoined
	StatusErrored
)

func (s Status) String() string {
	switch s {
	case StatusClosed:
		return "closed"
	case StatusJoining:
		return "joining"
	case StatusJoined:
		return "joined"
	case StatusErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// Channel is one topic on the socket. Handlers and subscribe callbacks run
// on the socket read goroutine, one at a time.
type Channel struct {
	topic  string
	socket *Socket

	mu       sync.Mutex
	status   Status
	wanted   bool
	joinRef  string
	onJoin   func(Status, error)
	tracked  *realtime.PresenceMeta
	handlers map[string][]func(realtime.Frame)
}

func newChannel(topic string, s *Socket) *Channel {
	return &Channel{topic: topic, socket: s, handlers: make(map[string][]func(realtime.Frame))}
}

func (c *Channel) Topic() string {
	return c.topic
}

func (c *Channel) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// On registers h for frames with the given event (broadcast,
// presence_sync, presence_join, presence_leave, row_change).
func (c *Channel) On(event string, h func(realtime.Frame)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[event] = append(c.handlers[event], h)
}

// OnBroadcast registers h for broadcasts whose application event matches.
func (c *Channel) OnBroadcast(event string, h func(json.RawMessage)) {
	c.On(realtime.EventBroadcast, func(f realtime.Frame) {
		var bp realtime.BroadcastPayload
		if err := f.Decode(&bp); err != nil || bp.Event != event {
			return
		}
		h(bp.Payload)
	})
}

// Subscribe joins the topic. cb is called with StatusJoined on every
// acknowledged join, including re-joins after Reconnect, and with
// StatusErrored when the hub rejects the join or the connection drops.
// Subscribing an already subscribed channel is a no-op.
func (c *Channel) Subscribe(cb func(Status, error)) error {
	c.mu.Lock()
	if c.wanted {
		c.mu.Unlock()
		return nil
	}
	c.wanted = true
	c.onJoin = cb
	c.mu.Unlock()

	return c.join()
}

func (c *Channel) join() error {
	ref := c.socket.nextRef()

	c.mu.Lock()
	c.joinRef = ref
	c.status = StatusJoining
	c.mu.Unlock()

	if err := c.socket.write(realtime.Frame{Topic: c.topic, Event: realtime.EventSubscribe, Ref: ref}); err != nil {
		c.mu.Lock()
		if c.joinRef == ref {
			c.status = StatusErrored
		}
		c.mu.Unlock()
		return err
	}
	return nil
}

func (c *Channel) rejoin() {
	c.mu.Lock()
	wanted := c.wanted
	c.mu.Unlock()
	if !wanted {
		return
	}
	if err := c.join(); err != nil {
		c.socket.logger.Warn(context.Background(), "rejoin failed", "topic", c.topic, "error", err)
	}
}

// Send publishes a broadcast with the application event name.
func (c *Channel) Send(event string, payload any) error {
	if c.Status() != StatusJoined {
		return ErrNotJoined
	}
	inner, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	f, err := realtime.NewFrame(c.topic, realtime.EventBroadcast, realtime.BroadcastPayload{Event: event, Payload: inner})
	if err != nil {
		return err
	}
	return c.socket.write(f)
}

// Track announces presence on the topic. Before the join is acknowledged
// the meta is remembered and sent once joined; it is re-sent after every
// re-join.
func (c *Channel) Track(meta realtime.PresenceMeta) error {
	c.mu.Lock()
	c.tracked = &meta
	joined := c.status == StatusJoined
	c.mu.Unlock()

	if !joined {
		return nil
	}
	return c.sendTrack(meta)
}

func (c *Channel) sendTrack(meta realtime.PresenceMeta) error {
	f, err := realtime.NewFrame(c.topic, realtime.EventTrack, meta)
	if err != nil {
		return err
	}
	return c.socket.write(f)
}

// Unsubscribe leaves the topic and removes the channel from the socket;
// the next Socket.Channel call for the topic returns a fresh channel.
func (c *Channel) Unsubscribe() error {
	c.mu.Lock()
	wanted := c.wanted
	c.mu.Unlock()

	c.reset()
	c.socket.forget(c)

	if !wanted {
		return nil
	}
	err := c.socket.write(realtime.Frame{Topic: c.topic, Event: realtime.EventUnsubscribe})
	if errors.Is(err, ErrNotConnected) {
		return nil
	}
	return err
}

func (c *Channel) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.wanted = false
	c.status = StatusClosed
	c.joinRef = ""
	c.onJoin = nil
	c.tracked = nil
	c.handlers = make(map[string][]func(realtime.Frame))
}

// lost marks a wanted channel errored after the connection dropped.
func (c *Channel) lost() {
	c.mu.Lock()
	if !c.wanted {
		c.mu.Unlock()
		return
	}
	c.status = StatusErrored
	c.joinRef = ""
	cb := c.onJoin
	c.mu.Unlock()

	if cb != nil {
		cb(StatusErrored, ErrDisconnected)
	}
}

func (c *Channel) handle(f realtime.Frame) {
	switch f.Event {
	case realtime.EventSubscribed:
		c.mu.Lock()
		if !c.wanted || f.Ref != c.joinRef {
			c.mu.Unlock()
			return
		}
		c.status = StatusJoined
		cb := c.onJoin
		meta := c.tracked
		c.mu.Unlock()

		if meta != nil {
			if err := c.sendTrack(*meta); err != nil {
				c.socket.logger.Warn(context.Background(), "track failed", "topic", c.topic, "error", err)
			}
		}
		if cb != nil {
			cb(StatusJoined, nil)
		}

	case realtime.EventError:
		var ep realtime.ErrorPayload
		_ = f.Decode(&ep)

		c.mu.Lock()
		rejected := f.Ref != "" && f.Ref == c.joinRef && c.status == StatusJoining
		if rejected {
			c.status = StatusErrored
		}
		cb := c.onJoin
		c.mu.Unlock()

		if rejected && cb != nil {
			cb(StatusErrored, fmt.Errorf("%w: %s", ErrJoinRejected, ep.Message))
			return
		}
		c.socket.logger.Warn(context.Background(), "channel error", "topic", c.topic, "message", ep.Message)

	default:
		c.mu.Lock()
		hs := slices.Clone(c.handlers[f.Event])
		c.mu.Unlock()
		for _, h := range hs {
			h(f)
		}
	}
}
