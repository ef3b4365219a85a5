package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/dmitrijs2005/pulse/internal/api"
	"github.com/dmitrijs2005/pulse/internal/client/notify"
	"github.com/dmitrijs2005/pulse/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/pulse/internal/client/unread"
	"github.com/dmitrijs2005/pulse/internal/logging"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

const (
	pingInterval = 15 * time.Second
	pingTimeout  = 3 * time.Second
)

var ErrNotLoggedIn = errors.New("not logged in")

// API is the backend surface the commands use.
type API interface {
	Ping(ctx context.Context) error
	Register(ctx context.Context, username, displayName, password string) (string, error)
	Login(ctx context.Context, username, password string) error
	Logout(ctx context.Context) error
	SendMessage(ctx context.Context, receiverID, text string) (*api.Message, error)
	MarkMessagesRead(ctx context.Context, senderID string) (int64, error)
	MarkNotificationsRead(ctx context.Context) (int64, error)
	CreatePulse(ctx context.Context, mediaType string) (*api.Pulse, string, error)
	ListPulses(ctx context.Context) ([]api.Pulse, error)
}

type Identity interface {
	UserID() string
}

type Presence interface {
	Online() []string
	IsOnline(userID string) bool
}

type Typing interface {
	SetTyping(ctx context.Context, recipientID string, isTyping bool) error
	Snapshot() map[string]bool
}

type Unread interface {
	Counts() unread.Counts
	Refresh(ctx context.Context)
}

type Uploader interface {
	Upload(ctx context.Context, url, contentType string, body io.Reader) error
}

// service is a background component started with the app.
type service interface {
	Start(ctx context.Context)
	Stop()
}

type App struct {
	logger   logging.Logger
	api      API
	sess     Identity
	store    metadata.Repository
	presence Presence
	typing   Typing
	unread   Unread
	state    *notify.State
	uploader Uploader
	reader   *bufio.Reader

	outMu sync.Mutex
	out   io.Writer

	modeMu   sync.Mutex
	mode     Mode
	userName string

	services []service
	closers  []func() error
}

func (a *App) printf(format string, args ...any) {
	a.outMu.Lock()
	defer a.outMu.Unlock()
	fmt.Fprintf(a.out, format, args...)
}

func (a *App) isLoggedIn() bool {
	return a.sess.UserID() != ""
}

func (a *App) requireLogin() error {
	if !a.isLoggedIn() {
		return ErrNotLoggedIn
	}
	return nil
}

func (a *App) setMode(mode Mode) {
	a.modeMu.Lock()
	defer a.modeMu.Unlock()
	if a.mode != mode {
		a.mode = mode
		a.logger.Info(context.Background(), "connectivity changed", "mode", string(mode))
	}
}

func (a *App) getStatus() string {
	a.modeMu.Lock()
	s := string(a.mode)
	if a.userName != "" && a.isLoggedIn() {
		s = a.userName + " " + s
	}
	a.modeMu.Unlock()

	if a.isLoggedIn() {
		c := a.unread.Counts()
		s = fmt.Sprintf("%s %d/%d", s, c.Messages, c.Notifications)
	}
	if s != "" {
		s = fmt.Sprintf("(%s)", s)
	}
	return s
}

// Present prints a notification according to the gate decision.
func (a *App) Present(n notify.Notification, d notify.Decision, badge int64) {
	switch {
	case d.ShowBanner:
		a.printf("\n* %s: %s [%d unread]\n", n.Title, n.Body, badge)
	case d.ShowInList:
		a.printf("\n  %s: %s [%d unread]\n", n.Title, n.Body, badge)
	default:
		a.logger.Debug(context.Background(), "notification suppressed", "type", n.Type, "actor_id", n.ActorID)
	}
}

// Run starts the background components, runs the REPL on the app reader
// and shuts everything down when the user exits.
func (a *App) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	for _, s := range a.services {
		s.Start(ctx)
	}

	go a.StartOnlineStatusWatcher(ctx, pingInterval)

	a.printf("Welcome to Pulse CLI (type 'help' for commands)\n")
	runREPL(ctx, a, a.getStatus, a.reader)

	for i := len(a.services) - 1; i >= 0; i-- {
		a.services[i].Stop()
	}
	for _, c := range a.closers {
		if err := c(); err != nil {
			a.logger.Warn(ctx, "shutdown", "error", err)
		}
	}
}

// StartOnlineStatusWatcher pings the server every interval and flips the
// mode shown in the prompt.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	a.checkOnline(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.checkOnline(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) checkOnline(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := a.api.Ping(ctx); err != nil {
		a.setMode(ModeOffline)
		return
	}
	a.setMode(ModeOnline)
}
