// Package unread keeps the caller's unread message and notification
// counts fresh. Every trigger (start, session change, matching row change,
// poll tick) funnels into one coalescing Refresh.
package unread

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/pulse/internal/client/session"
	"github.com/dmitrijs2005/pulse/internal/client/socket"
	"github.com/dmitrijs2005/pulse/internal/logging"
	"github.com/dmitrijs2005/pulse/internal/realtime"
)

const DefaultPollInterval = 10 * time.Second

const rowQueueSize = 64

// Counter is the backend view the aggregator polls.
type Counter interface {
	CountUnreadMessages(ctx context.Context) (int64, error)
	CountUnreadNotifications(ctx context.Context) (int64, error)
}

// Identity is the session view the aggregator needs.
type Identity interface {
	UserID() string
	Subscribe(l session.Listener) func()
}

// Channel is the part of a realtime channel the aggregator needs.
type Channel interface {
	On(event string, h func(realtime.Frame))
	Subscribe(cb func(socket.Status, error)) error
	Unsubscribe() error
}

// Counts is the unread badge state of the signed-in user.
type Counts struct {
	Messages      int64
	Notifications int64
}

// Aggregator recomputes Counts from the backend on every trigger.
type Aggregator struct {
	api      Counter
	sess     Identity
	open     func(topic string) Channel
	interval time.Duration
	logger   logging.Logger

	mu       sync.Mutex
	counts   Counts
	inflight bool
	dirty    bool
	started  uint64
	finished uint64
	done     *sync.Cond
	rows     chan realtime.RowChange
	ctx      context.Context
	cancel   context.CancelFunc
	unsub    func()
	watchGen uint64
	chans    []Channel
	wg       sync.WaitGroup

	lmu       sync.Mutex
	listeners []func(Counts)
	rowFns    []func(realtime.RowChange)
}

func New(api Counter, sess Identity, open func(topic string) Channel, interval time.Duration, l logging.Logger) *Aggregator {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	a := &Aggregator{
		api:      api,
		sess:     sess,
		open:     open,
		interval: interval,
		logger:   l.With("module", "unread"),
	}
	a.done = sync.NewCond(&a.mu)
	return a
}

// Start refreshes once and begins listening to the session, row changes
// and the poll ticker. It returns after the first refresh.
func (a *Aggregator) Start(ctx context.Context) {
	a.mu.Lock()
	if a.cancel != nil {
		a.mu.Unlock()
		return
	}
	a.ctx, a.cancel = context.WithCancel(ctx)
	runCtx := a.ctx
	a.rows = make(chan realtime.RowChange, rowQueueSize)
	rows := a.rows
	a.mu.Unlock()

	a.wg.Add(1)
	go a.dispatchRows(runCtx, rows)

	unsub := a.sess.Subscribe(a.onSession)
	a.mu.Lock()
	a.unsub = unsub
	a.mu.Unlock()

	if userID := a.sess.UserID(); userID != "" {
		a.watch(userID)
	}

	a.Refresh(runCtx)

	a.wg.Add(1)
	go a.poll(runCtx)
}

// Stop cancels every trigger and waits for running refreshes.
func (a *Aggregator) Stop() {
	a.mu.Lock()
	if a.cancel == nil {
		a.mu.Unlock()
		return
	}
	a.cancel()
	a.cancel = nil
	unsub := a.unsub
	a.unsub = nil
	a.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	a.unwatch()
	a.wg.Wait()
}

// Refresh reloads both counts. A call made while another refresh is
// running returns at once and causes exactly one follow-up refresh after
// the running one.
func (a *Aggregator) Refresh(ctx context.Context) {
	a.mu.Lock()
	if a.inflight {
		a.dirty = true
		a.mu.Unlock()
		return
	}
	a.inflight = true

	for {
		a.started++
		seq := a.started
		a.mu.Unlock()

		a.refreshOnce(ctx)

		a.mu.Lock()
		a.finished = seq
		if !a.dirty || ctx.Err() != nil {
			a.inflight = false
			a.dirty = false
			a.done.Broadcast()
			a.mu.Unlock()
			return
		}
		a.dirty = false
		a.done.Broadcast()
	}
}

// refreshFresh returns once a refresh that started after the call has
// finished, so the counts reflect every row written before it.
func (a *Aggregator) refreshFresh(ctx context.Context) {
	a.mu.Lock()
	target := a.started + 1
	a.mu.Unlock()

	for {
		a.Refresh(ctx)

		a.mu.Lock()
		for a.finished < target && a.inflight && ctx.Err() == nil {
			a.done.Wait()
		}
		fresh := a.finished >= target || ctx.Err() != nil
		a.mu.Unlock()
		if fresh {
			return
		}
	}
}

func (a *Aggregator) Counts() Counts {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.counts
}

// OnChange registers fn to receive the counts whenever they change.
func (a *Aggregator) OnChange(fn func(Counts)) {
	a.lmu.Lock()
	defer a.lmu.Unlock()
	a.listeners = append(a.listeners, fn)
}

// OnRowChange registers fn for every row change that involves the
// signed-in user. fn runs after the counts include the change, in arrival
// order, on the aggregator's own goroutine.
func (a *Aggregator) OnRowChange(fn func(realtime.RowChange)) {
	a.lmu.Lock()
	defer a.lmu.Unlock()
	a.rowFns = append(a.rowFns, fn)
}

func (a *Aggregator) refreshOnce(ctx context.Context) {
	var next Counts
	if a.sess.UserID() != "" {
		msgs, err := a.api.CountUnreadMessages(ctx)
		if err != nil {
			a.logger.Warn(ctx, "counting unread messages failed", "error", err)
			return
		}
		notes, err := a.api.CountUnreadNotifications(ctx)
		if err != nil {
			a.logger.Warn(ctx, "counting unread notifications failed", "error", err)
			return
		}
		next = Counts{Messages: msgs, Notifications: notes}
	}

	a.mu.Lock()
	changed := a.counts != next
	a.counts = next
	a.mu.Unlock()

	if changed {
		a.notify(next)
	}
}

// trigger runs Refresh in the background unless the aggregator is stopped.
func (a *Aggregator) trigger() {
	a.mu.Lock()
	if a.cancel == nil {
		a.mu.Unlock()
		return
	}
	ctx := a.ctx
	a.wg.Add(1)
	a.mu.Unlock()

	go func() {
		defer a.wg.Done()
		a.Refresh(ctx)
	}()
}

func (a *Aggregator) poll(ctx context.Context) {
	defer a.wg.Done()

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.Refresh(ctx)
		}
	}
}

// onSession runs on the goroutine that changed the session, so the
// refresh itself is pushed to the background.
func (a *Aggregator) onSession(ev session.Event) {
	switch ev.Kind {
	case session.SignedIn:
		a.watch(ev.UserID)
	case session.SignedOut:
		a.unwatch()
	}
	a.trigger()
}

func (a *Aggregator) watch(userID string) {
	a.mu.Lock()
	if a.cancel == nil {
		a.mu.Unlock()
		return
	}
	a.watchGen++
	gen := a.watchGen
	old := a.chans
	a.chans = nil
	a.mu.Unlock()
	unsubscribeAll(old)

	topics := []string{
		realtime.RowChangeTopic(realtime.TableMessages),
		realtime.RowChangeTopic(realtime.TableNotifications),
	}
	chans := make([]Channel, 0, len(topics))
	for _, topic := range topics {
		ch := a.open(topic)
		ch.On(realtime.EventRowChange, func(f realtime.Frame) { a.onRowChange(gen, userID, f) })
		if err := ch.Subscribe(nil); err != nil {
			a.logger.Warn(context.Background(), "row change subscribe failed", "topic", topic, "error", err)
		}
		chans = append(chans, ch)
	}

	a.mu.Lock()
	if gen != a.watchGen {
		a.mu.Unlock()
		unsubscribeAll(chans)
		return
	}
	a.chans = chans
	a.mu.Unlock()
}

func (a *Aggregator) unwatch() {
	a.mu.Lock()
	a.watchGen++
	chans := a.chans
	a.chans = nil
	a.mu.Unlock()
	unsubscribeAll(chans)
}

func (a *Aggregator) onRowChange(gen uint64, userID string, f realtime.Frame) {
	a.mu.Lock()
	current := gen == a.watchGen
	a.mu.Unlock()
	if !current {
		return
	}

	var change realtime.RowChange
	if err := f.Decode(&change); err != nil {
		a.logger.Warn(context.Background(), "malformed row change", "topic", f.Topic, "error", err)
		return
	}
	if !change.Involves(userID) {
		return
	}

	a.mu.Lock()
	ctx, rows := a.ctx, a.rows
	running := a.cancel != nil
	a.mu.Unlock()
	if !running {
		return
	}

	select {
	case rows <- change:
	case <-ctx.Done():
	}
}

func (a *Aggregator) dispatchRows(ctx context.Context, rows chan realtime.RowChange) {
	defer a.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case change := <-rows:
			a.refreshFresh(ctx)
			if ctx.Err() != nil {
				return
			}

			a.lmu.Lock()
			fns := append([]func(realtime.RowChange){}, a.rowFns...)
			a.lmu.Unlock()
			for _, fn := range fns {
				fn(change)
			}
		}
	}
}

func (a *Aggregator) notify(c Counts) {
	a.lmu.Lock()
	ls := append([]func(Counts){}, a.listeners...)
	a.lmu.Unlock()

	for _, fn := range ls {
		fn(c)
	}
}

func unsubscribeAll(chans []Channel) {
	for _, ch := range chans {
		_ = ch.Unsubscribe()
	}
}
