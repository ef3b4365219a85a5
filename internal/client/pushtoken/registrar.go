// Package pushtoken keeps this device's push token registered with the
// backend for as long as a user is signed in.
package pushtoken

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/pulse/internal/client/client"
	"github.com/dmitrijs2005/pulse/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/pulse/internal/client/session"
	"github.com/dmitrijs2005/pulse/internal/logging"
	"github.com/google/uuid"
)

const queueSize = 16

type API interface {
	RegisterPushToken(ctx context.Context, token, deviceType string) error
	UnregisterPushToken(ctx context.Context, token string) error
}

type Identity interface {
	SignedIn() bool
	Subscribe(l session.Listener) func()
}

// Registrar reacts to session events. Backend calls run one at a time on
// a worker goroutine in the order the events happened.
type Registrar struct {
	api        API
	sess       Identity
	store      metadata.Repository
	deviceType string
	logger     logging.Logger

	tokenMu sync.Mutex

	mu     sync.Mutex
	ops    chan func(context.Context)
	cancel context.CancelFunc
	unsub  func()
	wg     sync.WaitGroup
}

func New(api API, sess Identity, store metadata.Repository, deviceType string, l logging.Logger) *Registrar {
	return &Registrar{
		api:        api,
		sess:       sess,
		store:      store,
		deviceType: deviceType,
		logger:     l.With("module", "push_token"),
	}
}

func newToken() string {
	return fmt.Sprintf("PulseDeviceToken[%s]", uuid.NewString())
}

// Token returns the device token, generating and persisting it on first
// use.
func (r *Registrar) Token(ctx context.Context) (string, error) {
	r.tokenMu.Lock()
	defer r.tokenMu.Unlock()

	token, ok, err := r.store.Get(ctx, metadata.KeyDeviceToken)
	if err != nil {
		return "", err
	}
	if ok && token != "" {
		return token, nil
	}
	token = newToken()
	if err := r.store.Set(ctx, metadata.KeyDeviceToken, token); err != nil {
		return "", err
	}
	return token, nil
}

// Start listens to the session. If a user is already signed in the token
// is registered right away.
func (r *Registrar) Start(ctx context.Context) {
	r.mu.Lock()
	if r.cancel != nil {
		r.mu.Unlock()
		return
	}
	ctx, r.cancel = context.WithCancel(ctx)
	r.ops = make(chan func(context.Context), queueSize)
	ops := r.ops
	r.mu.Unlock()

	r.wg.Add(1)
	go r.work(ctx, ops)

	unsub := r.sess.Subscribe(r.onSession)
	r.mu.Lock()
	r.unsub = unsub
	r.mu.Unlock()

	if r.sess.SignedIn() {
		r.enqueue(r.register)
	}
}

// Stop drops queued work and waits for the running call.
func (r *Registrar) Stop() {
	r.mu.Lock()
	if r.cancel == nil {
		r.mu.Unlock()
		return
	}
	r.cancel()
	r.cancel = nil
	unsub := r.unsub
	r.unsub = nil
	r.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	r.wg.Wait()
}

// Rotate replaces the device token. While signed in the old token is
// removed from the backend and the new one registered.
func (r *Registrar) Rotate(ctx context.Context) (string, error) {
	r.tokenMu.Lock()
	old, _, err := r.store.Get(ctx, metadata.KeyDeviceToken)
	if err != nil {
		r.tokenMu.Unlock()
		return "", err
	}
	token := newToken()
	err = r.store.Set(ctx, metadata.KeyDeviceToken, token)
	r.tokenMu.Unlock()
	if err != nil {
		return "", err
	}

	if !r.sess.SignedIn() {
		return token, nil
	}
	if old != "" {
		if err := r.api.UnregisterPushToken(ctx, old); err != nil {
			r.logger.Warn(ctx, "removing old push token failed", "error", err)
		}
	}
	if err := r.api.RegisterPushToken(ctx, token, r.deviceType); err != nil {
		return token, err
	}
	return token, nil
}

func (r *Registrar) onSession(ev session.Event) {
	switch ev.Kind {
	case session.SignedIn, session.TokenRefreshed:
		r.enqueue(r.register)
	case session.SignedOut:
		// the session is already cleared, so the last token authorizes the call
		token := ev.AccessToken
		r.enqueue(func(ctx context.Context) {
			r.unregister(client.WithAccessToken(ctx, token))
		})
	}
}

func (r *Registrar) enqueue(op func(context.Context)) {
	r.mu.Lock()
	ops := r.ops
	running := r.cancel != nil
	r.mu.Unlock()
	if !running {
		return
	}

	select {
	case ops <- op:
	default:
		r.logger.Warn(context.Background(), "push token queue full, dropping update")
	}
}

func (r *Registrar) work(ctx context.Context, ops chan func(context.Context)) {
	defer r.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case op := <-ops:
			op(ctx)
		}
	}
}

func (r *Registrar) register(ctx context.Context) {
	token, err := r.Token(ctx)
	if err != nil {
		r.logger.Error(ctx, "loading device token failed", "error", err)
		return
	}
	if err := r.api.RegisterPushToken(ctx, token, r.deviceType); err != nil {
		r.logger.Warn(ctx, "push token registration failed", "error", err)
		return
	}
	r.logger.Debug(ctx, "push token registered", "device_type", r.deviceType)
}

func (r *Registrar) unregister(ctx context.Context) {
	token, ok, err := r.store.Get(ctx, metadata.KeyDeviceToken)
	if err != nil || !ok {
		return
	}
	if err := r.api.UnregisterPushToken(ctx, token); err != nil {
		r.logger.Warn(ctx, "push token removal failed", "error", err)
		return
	}
	r.logger.Debug(ctx, "push token removed")
}
