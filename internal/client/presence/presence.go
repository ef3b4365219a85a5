// Package presence keeps the set of online users from the shared
// presence topic and announces the signed-in user on it.
package presence

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/pulse/internal/client/socket"
	"github.com/dmitrijs2005/pulse/internal/logging"
	"github.com/dmitrijs2005/pulse/internal/realtime"
)

// Channel is the part of a realtime channel the tracker needs.
type Channel interface {
	On(event string, h func(realtime.Frame))
	Subscribe(cb func(socket.Status, error)) error
	Track(meta realtime.PresenceMeta) error
	Unsubscribe() error
}

// Tracker keeps the set of online user ids for the signed-in session.
type Tracker struct {
	open   func(topic string) Channel
	logger logging.Logger
	now    func() time.Time

	mu      sync.Mutex
	gen     uint64
	ch      Channel
	tracked bool
	online  map[string]struct{}
	synced  bool
	lastSeq uint64

	lmu       sync.Mutex
	listeners []func([]string)
}

// New returns a stopped tracker. open resolves a topic to its channel,
// usually (*socket.Socket).Channel.
func New(open func(topic string) Channel, l logging.Logger) *Tracker {
	return &Tracker{
		open:   open,
		logger: l.With("module", "presence"),
		now:    time.Now,
		online: make(map[string]struct{}),
	}
}

// Start subscribes to the presence topic and tracks the caller once the
// subscription is acknowledged. Calling Start on a running tracker is a
// no-op.
func (t *Tracker) Start(userID string) {
	t.mu.Lock()
	if t.ch != nil {
		t.mu.Unlock()
		return
	}
	t.gen++
	gen := t.gen
	ch := t.open(realtime.PresenceTopic)
	t.ch = ch
	t.tracked = false
	t.synced = false
	t.lastSeq = 0
	t.mu.Unlock()

	ch.On(realtime.EventPresenceSync, func(f realtime.Frame) { t.onSync(gen, f) })
	ch.On(realtime.EventPresenceJoin, func(f realtime.Frame) { t.onDiff(gen, f, true) })
	ch.On(realtime.EventPresenceLeave, func(f realtime.Frame) { t.onDiff(gen, f, false) })

	err := ch.Subscribe(func(st socket.Status, err error) { t.onStatus(gen, userID, st, err) })
	if err != nil {
		t.logger.Warn(context.Background(), "presence subscribe failed", "user_id", userID, "error", err)
	}
}

// Stop leaves the presence topic and clears the set.
func (t *Tracker) Stop() {
	t.mu.Lock()
	t.gen++
	ch := t.ch
	t.ch = nil
	changed := len(t.online) > 0
	t.online = make(map[string]struct{})
	t.synced = false
	t.lastSeq = 0
	t.mu.Unlock()

	if ch != nil {
		if err := ch.Unsubscribe(); err != nil {
			t.logger.Warn(context.Background(), "presence unsubscribe failed", "error", err)
		}
	}
	if changed {
		t.notify(nil)
	}
}

// Online returns the sorted ids of online users.
func (t *Tracker) Online() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

func (t *Tracker) IsOnline(userID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.online[userID]
	return ok
}

// OnChange registers fn to receive the sorted set after every change.
func (t *Tracker) OnChange(fn func([]string)) {
	t.lmu.Lock()
	defer t.lmu.Unlock()
	t.listeners = append(t.listeners, fn)
}

func (t *Tracker) onStatus(gen uint64, userID string, st socket.Status, err error) {
	if st != socket.StatusJoined {
		t.logger.Warn(context.Background(), "presence channel unavailable", "status", st.String(), "error", err)
		return
	}

	t.mu.Lock()
	if gen != t.gen {
		t.mu.Unlock()
		return
	}
	// the hub may have restarted the topic, so the next sync is the new baseline
	t.synced = false
	first := !t.tracked
	t.tracked = true
	ch := t.ch
	t.mu.Unlock()

	if !first {
		return
	}
	meta := realtime.PresenceMeta{OnlineAt: t.now().UTC().Format(time.RFC3339)}
	if err := ch.Track(meta); err != nil {
		t.logger.Warn(context.Background(), "presence track failed", "user_id", userID, "error", err)
	}
}

func (t *Tracker) onSync(gen uint64, f realtime.Frame) {
	var state realtime.PresenceState
	if err := f.Decode(&state); err != nil {
		t.logger.Warn(context.Background(), "malformed presence sync", "error", err)
		return
	}

	t.mu.Lock()
	if gen != t.gen || (t.synced && f.Seq <= t.lastSeq) {
		t.mu.Unlock()
		return
	}
	online := make(map[string]struct{}, len(state.Presences))
	for k := range state.Presences {
		online[k] = struct{}{}
	}
	t.online = online
	t.synced = true
	t.lastSeq = f.Seq
	snap := t.snapshotLocked()
	t.mu.Unlock()

	t.notify(snap)
}

func (t *Tracker) onDiff(gen uint64, f realtime.Frame, join bool) {
	var diff realtime.PresenceDiff
	if err := f.Decode(&diff); err != nil || diff.Key == "" {
		t.logger.Warn(context.Background(), "malformed presence diff", "event", f.Event, "error", err)
		return
	}

	t.mu.Lock()
	if gen != t.gen || f.Seq <= t.lastSeq {
		t.mu.Unlock()
		return
	}
	t.lastSeq = f.Seq
	_, had := t.online[diff.Key]
	if join {
		t.online[diff.Key] = struct{}{}
	} else {
		delete(t.online, diff.Key)
	}
	changed := had != join
	snap := t.snapshotLocked()
	t.mu.Unlock()

	if changed {
		t.notify(snap)
	}
}

func (t *Tracker) snapshotLocked() []string {
	out := make([]string, 0, len(t.online))
	for k := range t.online {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (t *Tracker) notify(online []string) {
	t.lmu.Lock()
	ls := append([]func([]string){}, t.listeners...)
	t.lmu.Unlock()

	for _, fn := range ls {
		fn(online)
	}
}
