// Package socket is the client side of the realtime hub: one websocket per
// session multiplexing named channels with subscribe acknowledgements,
// broadcasts, presence tracking and row-change delivery.
package socket

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/pulse/internal/common"
	"github.com/dmitrijs2005/pulse/internal/logging"
	"github.com/dmitrijs2005/pulse/internal/realtime"
	"github.com/gorilla/websocket"
)

const (
	writeWait        = 10 * time.Second
	handshakeTimeout = 10 * time.Second
)

var (
	ErrNotConnected = errors.New("realtime socket not connected")
	ErrNotJoined    = errors.New("channel not joined")
	ErrJoinRejected = errors.New("subscribe rejected")
	ErrDisconnected = errors.New("realtime connection lost")
)

type Socket struct {
	url    string
	dialer *websocket.Dialer
	logger logging.Logger

	mu       sync.Mutex
	conn     *websocket.Conn
	channels map[string]*Channel

	writeMu sync.Mutex
	refSeq  atomic.Uint64
}

// NewSocket returns a disconnected socket for the hub at rawURL
// (ws://host/realtime/v1/websocket).
func NewSocket(rawURL string, l logging.Logger) *Socket {
	return &Socket{
		url:      rawURL,
		dialer:   &websocket.Dialer{HandshakeTimeout: handshakeTimeout},
		logger:   l.With("module", "realtime_socket"),
		channels: make(map[string]*Channel),
	}
}

// Connect dials the hub with token, replacing any previous connection, and
// re-subscribes every channel that is still wanted.
func (s *Socket) Connect(ctx context.Context, token string) error {
	u, err := url.Parse(s.url)
	if err != nil {
		return fmt.Errorf("realtime url: %w", err)
	}
	q := u.Query()
	q.Set(common.AccessTokenHeaderName, token)
	u.RawQuery = q.Encode()

	conn, _, err := s.dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("realtime dial: %w", err)
	}

	s.mu.Lock()
	old := s.conn
	s.conn = conn
	live := make([]*Channel, 0, len(s.channels))
	for _, ch := range s.channels {
		live = append(live, ch)
	}
	s.mu.Unlock()

	if old != nil {
		_ = old.Close()
	}

	go s.readLoop(conn)

	for _, ch := range live {
		ch.rejoin()
	}

	s.logger.Debug(ctx, "realtime connected", "channels", len(live))
	return nil
}

// Reconnect re-dials with a fresh token. Channels survive and are
// re-subscribed, so it is safe to call on every token refresh.
func (s *Socket) Reconnect(ctx context.Context, token string) error {
	return s.Connect(ctx, token)
}

// Disconnect closes the connection and forgets every channel.
func (s *Socket) Disconnect() {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	chans := s.channels
	s.channels = make(map[string]*Channel)
	s.mu.Unlock()

	for _, ch := range chans {
		ch.reset()
	}
	if conn != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		_ = conn.Close()
	}
}

func (s *Socket) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil
}

// Channel returns the single channel for topic, creating it on first use.
func (s *Socket) Channel(topic string) *Channel {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ch, ok := s.channels[topic]; ok {
		return ch
	}
	ch := newChannel(topic, s)
	s.channels[topic] = ch
	return ch
}

func (s *Socket) forget(ch *Channel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.channels[ch.topic] == ch {
		delete(s.channels, ch.topic)
	}
}

func (s *Socket) nextRef() string {
	return strconv.FormatUint(s.refSeq.Add(1), 10)
}

func (s *Socket) write(f realtime.Frame) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(f)
}

func (s *Socket) readLoop(conn *websocket.Conn) {
	defer func() {
		s.mu.Lock()
		current := s.conn == conn
		var chans []*Channel
		if current {
			s.conn = nil
			for _, ch := range s.channels {
				chans = append(chans, ch)
			}
		}
		s.mu.Unlock()

		_ = conn.Close()
		for _, ch := range chans {
			ch.lost()
		}
	}()

	for {
		var f realtime.Frame
		if err := conn.ReadJSON(&f); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warn(context.Background(), "realtime read failed", "error", err)
			}
			return
		}

		s.mu.Lock()
		ch := s.channels[f.Topic]
		s.mu.Unlock()
		if ch == nil {
			continue
		}
		ch.handle(f)
	}
}
