// Package chatstatus ties the realtime features to the session: it
// connects the socket and starts presence and typing on sign-in, refreshes
// the connection on token rotation and tears everything down on sign-out.
// It also surfaces incoming rows through the notification gate.
package chatstatus

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/pulse/internal/client/notify"
	"github.com/dmitrijs2005/pulse/internal/client/session"
	"github.com/dmitrijs2005/pulse/internal/client/unread"
	"github.com/dmitrijs2005/pulse/internal/logging"
	"github.com/dmitrijs2005/pulse/internal/realtime"
)

const queueSize = 16

type Connection interface {
	Connect(ctx context.Context, token string) error
	Reconnect(ctx context.Context, token string) error
	Disconnect()
}

// Feature is a per-user realtime component such as presence or typing.
type Feature interface {
	Start(userID string)
	Stop()
}

type Identity interface {
	UserID() string
	AccessToken() string
	Subscribe(l session.Listener) func()
}

// Unread is the aggregator view used for row routing and the badge.
// Row change callbacks run once Counts includes the changed row.
type Unread interface {
	Counts() unread.Counts
	OnRowChange(fn func(realtime.RowChange))
}

type Service struct {
	sess      Identity
	conn      Connection
	presence  Feature
	typing    Feature
	unread    Unread
	gate      *notify.Gate
	presenter notify.Presenter
	logger    logging.Logger

	mu     sync.Mutex
	events chan session.Event
	cancel context.CancelFunc
	unsub  func()
	wg     sync.WaitGroup
}

func New(sess Identity, conn Connection, presence, typing Feature, u Unread, gate *notify.Gate, p notify.Presenter, l logging.Logger) *Service {
	s := &Service{
		sess:      sess,
		conn:      conn,
		presence:  presence,
		typing:    typing,
		unread:    u,
		gate:      gate,
		presenter: p,
		logger:    l.With("module", "chat_status"),
	}
	u.OnRowChange(s.onRowChange)
	return s
}

// Start follows the session. Events are handled in order on a worker
// goroutine so sign-in never waits for the websocket dial.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.events = make(chan session.Event, queueSize)
	events := s.events
	s.mu.Unlock()

	s.wg.Add(1)
	go s.work(ctx, events)

	unsub := s.sess.Subscribe(s.enqueue)
	s.mu.Lock()
	s.unsub = unsub
	s.mu.Unlock()

	if userID := s.sess.UserID(); userID != "" {
		s.enqueue(session.Event{Kind: session.SignedIn, UserID: userID, AccessToken: s.sess.AccessToken()})
	}
}

// Stop detaches from the session and shuts the realtime side down.
func (s *Service) Stop() {
	s.mu.Lock()
	if s.cancel == nil {
		s.mu.Unlock()
		return
	}
	s.cancel()
	s.cancel = nil
	unsub := s.unsub
	s.unsub = nil
	s.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	s.wg.Wait()
	s.teardown()
}

func (s *Service) enqueue(ev session.Event) {
	s.mu.Lock()
	events := s.events
	running := s.cancel != nil
	s.mu.Unlock()
	if !running {
		return
	}

	select {
	case events <- ev:
	default:
		s.logger.Warn(context.Background(), "session event queue full", "kind", ev.Kind.String())
	}
}

func (s *Service) work(ctx context.Context, events chan session.Event) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			s.handle(ctx, ev)
		}
	}
}

func (s *Service) handle(ctx context.Context, ev session.Event) {
	switch ev.Kind {
	case session.SignedIn:
		if err := s.conn.Connect(ctx, ev.AccessToken); err != nil {
			s.logger.Warn(ctx, "realtime connect failed", "user_id", ev.UserID, "error", err)
		}
		// channels opened while offline join once the socket connects
		s.presence.Start(ev.UserID)
		s.typing.Start(ev.UserID)

	case session.TokenRefreshed:
		if err := s.conn.Reconnect(ctx, ev.AccessToken); err != nil {
			s.logger.Warn(ctx, "realtime reconnect failed", "user_id", ev.UserID, "error", err)
		}

	case session.SignedOut:
		s.teardown()
	}
}

func (s *Service) teardown() {
	s.typing.Stop()
	s.presence.Stop()
	s.conn.Disconnect()
}

func (s *Service) onRowChange(c realtime.RowChange) {
	if c.Type != realtime.OpInsert {
		return
	}
	me := s.sess.UserID()

	var n notify.Notification
	switch c.Table {
	case realtime.TableMessages:
		if c.Record.ReceiverID != me {
			return
		}
		n = notify.Notification{
			ID:       c.Record.ID,
			Type:     notify.TypeMessage,
			ActorID:  c.Record.SenderID,
			SenderID: c.Record.SenderID,
			Title:    "New message",
			Body:     "from " + c.Record.SenderID,
		}
	case realtime.TableNotifications:
		n = notify.Notification{
			ID:      c.Record.ID,
			Type:    c.Record.Type,
			ActorID: c.Record.ActorID,
			Title:   titleFor(c.Record.Type),
			Body:    "from " + c.Record.ActorID,
		}
	default:
		return
	}

	counts := s.unread.Counts()
	s.gate.Handle(n, s.presenter, counts.Messages+counts.Notifications)
}

func titleFor(typ string) string {
	switch typ {
	case "message":
		return "New message"
	case "like":
		return "New like"
	case "comment":
		return "New comment"
	case "follow":
		return "New follower"
	default:
		return "Pulse"
	}
}
