// Package hub is the server side of the realtime channels: a websocket hub
// that routes broadcasts, keeps per-topic presence and fans out row changes
// published by the services.
package hub

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/dmitrijs2005/pulse/internal/common"
	"github.com/dmitrijs2005/pulse/internal/logging"
	"github.com/dmitrijs2005/pulse/internal/realtime"
	"github.com/gorilla/websocket"
)

// Authenticator resolves an access token to a user id.
type Authenticator func(token string) (string, error)

type presenceEntry struct {
	meta realtime.PresenceMeta
	refs int
}

type topicState struct {
	subs     map[*Conn]struct{}
	presence map[string]*presenceEntry
	seq      uint64
}

// Hub owns every live connection and topic.
type Hub struct {
	logger       logging.Logger
	authenticate Authenticator
	upgrader     websocket.Upgrader

	mu     sync.Mutex
	conns  map[*Conn]struct{}
	topics map[string]*topicState
}

func New(l logging.Logger, auth Authenticator) *Hub {
	return &Hub{
		logger:       l.With("module", "realtime_hub"),
		authenticate: auth,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		conns:  make(map[*Conn]struct{}),
		topics: make(map[string]*topicState),
	}
}

// ServeWS authenticates the access_token query parameter (or bearer
// header), upgrades the request and starts the pumps.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get(common.AccessTokenHeaderName)
	if token == "" {
		token = strings.TrimPrefix(r.Header.Get(common.AuthorizationHeaderName), "Bearer ")
	}
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}
	userID, err := h.authenticate(token)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn(r.Context(), "websocket upgrade failed", "error", err)
		return
	}

	c := newConn(userID, ws)
	h.register(c)
	h.logger.Debug(r.Context(), "websocket connected", "user_id", userID)

	go c.writePump()
	go c.readPump(context.WithoutCancel(r.Context()), h)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	conns := make([]*Conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		c.kick()
	}
}

// PublishRowChange delivers a row change to subscribers of the table topic
// that take part in the row.
func (h *Hub) PublishRowChange(ctx context.Context, change realtime.RowChange) {
	topic := realtime.RowChangeTopic(change.Table)
	f, err := realtime.NewFrame(topic, realtime.EventRowChange, change)
	if err != nil {
		h.logger.Error(ctx, "encoding row change failed", "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	ts, ok := h.topics[topic]
	if !ok {
		return
	}
	var targets []*Conn
	for c := range ts.subs {
		if change.Involves(c.userID) {
			targets = append(targets, c)
		}
	}
	h.deliverLocked(f, targets)
}

// Online returns the sorted presence keys of topic.
func (h *Hub) Online(topic string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	ts, ok := h.topics[topic]
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(ts.presence))
	for k := range ts.presence {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (h *Hub) register(c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[c] = struct{}{}
}

func (h *Hub) unregister(c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.conns[c]; !ok {
		return
	}
	delete(h.conns, c)
	for topic := range c.topics {
		h.leaveLocked(c, topic)
	}
	close(c.send)
}

func (h *Hub) handle(ctx context.Context, c *Conn, f realtime.Frame) {
	if f.Topic == "" {
		h.replyError(c, f, "missing topic")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.conns[c]; !ok {
		return
	}

	switch f.Event {
	case realtime.EventSubscribe:
		h.subscribeLocked(c, f)
	case realtime.EventUnsubscribe:
		h.leaveLocked(c, f.Topic)
	case realtime.EventBroadcast:
		h.broadcastLocked(ctx, c, f)
	case realtime.EventTrack:
		h.trackLocked(c, f)
	case realtime.EventUntrack:
		h.untrackLocked(c, f.Topic)
	default:
		h.replyErrorLocked(c, f, "unknown event")
	}
}

func (h *Hub) topic(name string) *topicState {
	ts, ok := h.topics[name]
	if !ok {
		ts = &topicState{subs: make(map[*Conn]struct{}), presence: make(map[string]*presenceEntry)}
		h.topics[name] = ts
	}
	return ts
}

func (h *Hub) subscribeLocked(c *Conn, f realtime.Frame) {
	ts := h.topic(f.Topic)
	ts.subs[c] = struct{}{}
	c.topics[f.Topic] = struct{}{}

	ack := realtime.Frame{Topic: f.Topic, Event: realtime.EventSubscribed, Ref: f.Ref}
	h.deliverLocked(ack, []*Conn{c})

	if f.Topic == realtime.PresenceTopic || len(ts.presence) > 0 {
		h.deliverLocked(h.syncFrameLocked(f.Topic, ts), []*Conn{c})
	}
}

func (h *Hub) syncFrameLocked(topic string, ts *topicState) realtime.Frame {
	state := realtime.PresenceState{Presences: make(map[string]realtime.PresenceMeta, len(ts.presence))}
	for k, e := range ts.presence {
		state.Presences[k] = e.meta
	}
	f, _ := realtime.NewFrame(topic, realtime.EventPresenceSync, state)
	f.Seq = ts.seq
	return f
}

// leaveLocked untracks and unsubscribes c from topic and forgets empty topics.
func (h *Hub) leaveLocked(c *Conn, topic string) {
	h.untrackLocked(c, topic)
	delete(c.topics, topic)

	ts, ok := h.topics[topic]
	if !ok {
		return
	}
	delete(ts.subs, c)
	if len(ts.subs) == 0 && len(ts.presence) == 0 {
		delete(h.topics, topic)
	}
}

func (h *Hub) broadcastLocked(ctx context.Context, c *Conn, f realtime.Frame) {
	if _, ok := c.topics[f.Topic]; !ok {
		h.replyErrorLocked(c, f, "not subscribed")
		return
	}
	if _, ok := realtime.RowChangeTable(f.Topic); ok {
		h.replyErrorLocked(c, f, "read-only topic")
		return
	}

	ts := h.topics[f.Topic]
	out := realtime.Frame{Topic: f.Topic, Event: realtime.EventBroadcast, Payload: f.Payload}

	owner, isTyping := realtime.TypingOwner(f.Topic)
	if isTyping {
		payload, err := stampTypingSender(f.Payload, c.userID)
		if err != nil {
			h.replyErrorLocked(c, f, "malformed typing payload")
			return
		}
		out.Payload = payload
	}

	var targets []*Conn
	for sub := range ts.subs {
		if sub == c {
			continue
		}
		if isTyping && sub.userID != owner {
			continue
		}
		targets = append(targets, sub)
	}
	h.deliverLocked(out, targets)
	h.logger.Debug(ctx, "broadcast", "topic", f.Topic, "from", c.userID, "targets", len(targets))
}

// stampTypingSender overwrites senderId in a typing broadcast with the
// authenticated sender. Other events pass through unchanged.
func stampTypingSender(raw json.RawMessage, senderID string) (json.RawMessage, error) {
	var bp realtime.BroadcastPayload
	if err := json.Unmarshal(raw, &bp); err != nil {
		return nil, err
	}
	if bp.Event != realtime.TypingEvent {
		return raw, nil
	}

	var tp realtime.TypingPayload
	if err := json.Unmarshal(bp.Payload, &tp); err != nil {
		return nil, err
	}
	tp.SenderID = senderID

	inner, err := json.Marshal(tp)
	if err != nil {
		return nil, err
	}
	bp.Payload = inner
	return json.Marshal(bp)
}

func (h *Hub) trackLocked(c *Conn, f realtime.Frame) {
	if _, ok := c.topics[f.Topic]; !ok {
		h.replyErrorLocked(c, f, "not subscribed")
		return
	}

	var meta realtime.PresenceMeta
	if err := f.Decode(&meta); err != nil {
		h.replyErrorLocked(c, f, "malformed presence meta")
		return
	}

	ts := h.topics[f.Topic]
	_, already := c.tracked[f.Topic]
	c.tracked[f.Topic] = meta

	e, ok := ts.presence[c.userID]
	if !ok {
		e = &presenceEntry{}
		ts.presence[c.userID] = e
	}
	e.meta = meta
	if already {
		return
	}
	e.refs++
	if e.refs == 1 {
		h.presenceDiffLocked(f.Topic, ts, realtime.EventPresenceJoin, c.userID, meta)
	}
}

func (h *Hub) untrackLocked(c *Conn, topic string) {
	meta, ok := c.tracked[topic]
	if !ok {
		return
	}
	delete(c.tracked, topic)

	ts, ok := h.topics[topic]
	if !ok {
		return
	}
	e, ok := ts.presence[c.userID]
	if !ok {
		return
	}
	e.refs--
	if e.refs > 0 {
		return
	}
	delete(ts.presence, c.userID)
	h.presenceDiffLocked(topic, ts, realtime.EventPresenceLeave, c.userID, meta)
}

func (h *Hub) presenceDiffLocked(topic string, ts *topicState, event, key string, meta realtime.PresenceMeta) {
	ts.seq++
	f, _ := realtime.NewFrame(topic, event, realtime.PresenceDiff{Key: key, Meta: meta})
	f.Seq = ts.seq

	targets := make([]*Conn, 0, len(ts.subs))
	for sub := range ts.subs {
		targets = append(targets, sub)
	}
	h.deliverLocked(f, targets)
}

// deliverLocked enqueues f on every target. Targets whose buffer is full
// are kicked once the loop is done.
func (h *Hub) deliverLocked(f realtime.Frame, targets []*Conn) {
	if len(targets) == 0 {
		return
	}
	b, err := json.Marshal(f)
	if err != nil {
		return
	}

	var slow []*Conn
	for _, c := range targets {
		if !c.enqueue(b) && !c.dropped {
			slow = append(slow, c)
		}
	}
	for _, c := range slow {
		c.dropped = true
		go c.kick()
	}
}

func (h *Hub) replyError(c *Conn, f realtime.Frame, msg string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conns[c]; !ok {
		return
	}
	h.replyErrorLocked(c, f, msg)
}

func (h *Hub) replyErrorLocked(c *Conn, f realtime.Frame, msg string) {
	out, _ := realtime.NewFrame(f.Topic, realtime.EventError, realtime.ErrorPayload{Message: msg})
	out.Ref = f.Ref
	h.deliverLocked(out, []*Conn{c})
}
