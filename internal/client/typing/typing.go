// Package typing relays "is typing" signals between users. Outgoing
// signals go to the recipient's typing room; incoming ones are read from
// the caller's own room and expire when the sender goes quiet.
package typing

import (
	"context"
	"encoding/json"
	"errors"
	"maps"
	"sync"
	"time"

	"github.com/dmitrijs2005/pulse/internal/client/socket"
	"github.com/dmitrijs2005/pulse/internal/logging"
	"github.com/dmitrijs2005/pulse/internal/realtime"
)

const DefaultTimeout = 3 * time.Second

var ErrNotStarted = errors.New("typing relay not started")

// Channel is the part of a realtime channel the relay needs.
type Channel interface {
	OnBroadcast(event string, h func(json.RawMessage))
	Subscribe(cb func(socket.Status, error)) error
	Send(event string, payload any) error
	Unsubscribe() error
}

type outgoing struct {
	ch         Channel
	subscribed bool
	pending    *bool
}

type expiry struct {
	id    uint64
	timer Timer
}

// Relay publishes the caller's typing state and tracks who is typing to them.
type Relay struct {
	open    func(topic string) Channel
	clock   Clock
	timeout time.Duration
	logger  logging.Logger

	mu       sync.Mutex
	gen      uint64
	userID   string
	incoming Channel
	typing   map[string]bool
	sentAt   map[string]int64
	timers   map[string]expiry
	armSeq   uint64
	outgoing map[string]*outgoing

	lmu       sync.Mutex
	listeners []func(map[string]bool)
}

// New returns a stopped relay. A non-positive timeout means DefaultTimeout;
// a nil clock means the wall clock.
func New(open func(topic string) Channel, timeout time.Duration, clock Clock, l logging.Logger) *Relay {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if clock == nil {
		clock = realClock{}
	}
	return &Relay{
		open:     open,
		clock:    clock,
		timeout:  timeout,
		logger:   l.With("module", "typing"),
		typing:   make(map[string]bool),
		sentAt:   make(map[string]int64),
		timers:   make(map[string]expiry),
		outgoing: make(map[string]*outgoing),
	}
}

// Start listens on the typing room of userID. It is a no-op while the
// relay is running.
func (r *Relay) Start(userID string) {
	r.mu.Lock()
	if r.userID != "" {
		r.mu.Unlock()
		return
	}
	r.gen++
	gen := r.gen
	r.userID = userID
	ch := r.open(realtime.TypingTopic(userID))
	r.incoming = ch
	r.mu.Unlock()

	ch.OnBroadcast(realtime.TypingEvent, func(raw json.RawMessage) { r.onTyping(gen, raw) })
	err := ch.Subscribe(func(st socket.Status, err error) {
		if st != socket.StatusJoined {
			r.logger.Warn(context.Background(), "typing room unavailable", "status", st.String(), "error", err)
		}
	})
	if err != nil {
		r.logger.Warn(context.Background(), "typing room subscribe failed", "user_id", userID, "error", err)
	}
}

// Stop tears down every channel, cancels pending expiries and clears the
// map.
func (r *Relay) Stop() {
	r.mu.Lock()
	r.gen++
	r.userID = ""
	chans := make([]Channel, 0, len(r.outgoing)+1)
	if r.incoming != nil {
		chans = append(chans, r.incoming)
	}
	r.incoming = nil
	for _, o := range r.outgoing {
		chans = append(chans, o.ch)
	}
	for _, e := range r.timers {
		e.timer.Stop()
	}
	changed := len(r.typing) > 0
	r.outgoing = make(map[string]*outgoing)
	r.timers = make(map[string]expiry)
	r.typing = make(map[string]bool)
	r.sentAt = make(map[string]int64)
	r.mu.Unlock()

	for _, ch := range chans {
		if err := ch.Unsubscribe(); err != nil {
			r.logger.Warn(context.Background(), "typing unsubscribe failed", "error", err)
		}
	}
	if changed {
		r.notify(map[string]bool{})
	}
}

// SetTyping tells recipientID whether the caller is typing. The channel to
// the recipient is opened on first use and reused afterwards; until it is
// joined only the latest value is kept and sent once the join completes.
func (r *Relay) SetTyping(ctx context.Context, recipientID string, isTyping bool) error {
	r.mu.Lock()
	if r.userID == "" {
		r.mu.Unlock()
		return ErrNotStarted
	}
	gen := r.gen
	o, ok := r.outgoing[recipientID]
	if !ok {
		o = &outgoing{ch: r.open(realtime.TypingTopic(recipientID))}
		r.outgoing[recipientID] = o
	}
	if o.subscribed {
		payload := r.payloadLocked(isTyping)
		r.mu.Unlock()
		return o.ch.Send(realtime.TypingEvent, payload)
	}
	o.pending = &isTyping
	r.mu.Unlock()

	if ok {
		return nil
	}
	err := o.ch.Subscribe(func(st socket.Status, err error) { r.onOutgoingStatus(gen, recipientID, o, st, err) })
	if err != nil {
		r.logger.Warn(ctx, "typing channel subscribe failed", "recipient_id", recipientID, "error", err)
	}
	return nil
}

func (r *Relay) IsTyping(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.typing[userID]
}

// Snapshot returns a copy of the sender to typing map.
func (r *Relay) Snapshot() map[string]bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return maps.Clone(r.typing)
}

// OnChange registers fn to receive a snapshot after every change.
func (r *Relay) OnChange(fn func(map[string]bool)) {
	r.lmu.Lock()
	defer r.lmu.Unlock()
	r.listeners = append(r.listeners, fn)
}

func (r *Relay) payloadLocked(isTyping bool) realtime.TypingPayload {
	return realtime.TypingPayload{SenderID: r.userID, IsTyping: isTyping, SentAt: r.clock.Now().UnixMilli()}
}

func (r *Relay) onOutgoingStatus(gen uint64, recipientID string, o *outgoing, st socket.Status, err error) {
	r.mu.Lock()
	if gen != r.gen || r.outgoing[recipientID] != o {
		r.mu.Unlock()
		return
	}
	if st != socket.StatusJoined {
		o.subscribed = false
		r.mu.Unlock()
		r.logger.Warn(context.Background(), "typing channel unavailable", "recipient_id", recipientID, "error", err)
		return
	}
	o.subscribed = true
	pending := o.pending
	o.pending = nil
	var payload realtime.TypingPayload
	if pending != nil {
		payload = r.payloadLocked(*pending)
	}
	r.mu.Unlock()

	if pending == nil {
		return
	}
	if err := o.ch.Send(realtime.TypingEvent, payload); err != nil {
		r.logger.Warn(context.Background(), "typing send failed", "recipient_id", recipientID, "error", err)
	}
}

func (r *Relay) onTyping(gen uint64, raw json.RawMessage) {
	var p realtime.TypingPayload
	if err := json.Unmarshal(raw, &p); err != nil || p.SenderID == "" {
		r.logger.Warn(context.Background(), "malformed typing event", "error", err)
		return
	}

	r.mu.Lock()
	if gen != r.gen {
		r.mu.Unlock()
		return
	}
	if last, ok := r.sentAt[p.SenderID]; ok && p.SentAt < last {
		r.mu.Unlock()
		return
	}
	r.sentAt[p.SenderID] = p.SentAt

	if e, ok := r.timers[p.SenderID]; ok {
		e.timer.Stop()
		delete(r.timers, p.SenderID)
	}
	if p.IsTyping {
		r.armSeq++
		id, sender := r.armSeq, p.SenderID
		r.timers[sender] = expiry{id: id, timer: r.clock.AfterFunc(r.timeout, func() { r.expire(gen, sender, id) })}
	}

	prev, known := r.typing[p.SenderID]
	r.typing[p.SenderID] = p.IsTyping
	changed := !known || prev != p.IsTyping
	snap := maps.Clone(r.typing)
	r.mu.Unlock()

	if changed {
		r.notify(snap)
	}
}

func (r *Relay) expire(gen uint64, senderID string, id uint64) {
	r.mu.Lock()
	e, ok := r.timers[senderID]
	if gen != r.gen || !ok || e.id != id {
		r.mu.Unlock()
		return
	}
	delete(r.timers, senderID)
	changed := r.typing[senderID]
	r.typing[senderID] = false
	snap := maps.Clone(r.typing)
	r.mu.Unlock()

	if changed {
		r.notify(snap)
	}
}

func (r *Relay) notify(snap map[string]bool) {
	r.lmu.Lock()
	ls := append([]func(map[string]bool){}, r.listeners...)
	r.lmu.Unlock()

	for _, fn := range ls {
		fn(snap)
	}
}
