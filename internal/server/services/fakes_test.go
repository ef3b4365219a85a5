package services

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/pulse/internal/common"
	"github.com/dmitrijs2005/pulse/internal/dbx"
	"github.com/dmitrijs2005/pulse/internal/realtime"
	"github.com/dmitrijs2005/pulse/internal/server/models"
	"github.com/dmitrijs2005/pulse/internal/server/push"
	"github.com/dmitrijs2005/pulse/internal/server/repositories/messages"
	"github.com/dmitrijs2005/pulse/internal/server/repositories/notifications"
	"github.com/dmitrijs2005/pulse/internal/server/repositories/pulses"
	"github.com/dmitrijs2005/pulse/internal/server/repositories/pushtokens"
	"github.com/dmitrijs2005/pulse/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/pulse/internal/server/repositories/users"
	"github.com/stretchr/testify/require"
)

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

type fakeUsersRepo struct {
	byID      map[string]*models.User
	createErr error
	getErr    error
	created   []*models.User
}

func (f *fakeUsersRepo) Create(_ context.Context, u *models.User) (*models.User, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	u.ID = "new-id"
	f.created = append(f.created, u)
	return u, nil
}

func (f *fakeUsersRepo) GetByUserName(_ context.Context, name string) (*models.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, u := range f.byID {
		if u.UserName == name {
			return u, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if u, ok := f.byID[id]; ok {
		return u, nil
	}
	return nil, common.ErrorNotFound
}

type fakeRefreshRepo struct {
	findOut    *models.RefreshToken
	findErr    error
	delErr     error
	createErr  error
	deleted    []string
	created    []string
	expiredErr error
	expiredAt  time.Time
}

func (f *fakeRefreshRepo) Create(_ context.Context, _ string, token string, _ time.Duration) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, token)
	return nil
}

func (f *fakeRefreshRepo) Find(_ context.Context, _ string) (*models.RefreshToken, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.findOut, nil
}

func (f *fakeRefreshRepo) Delete(_ context.Context, token string) error {
	if f.delErr != nil {
		return f.delErr
	}
	f.deleted = append(f.deleted, token)
	return nil
}

func (f *fakeRefreshRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	f.expiredAt = now
	return 0, f.expiredErr
}

type fakeMessagesRepo struct {
	created  []*models.Message
	err      error
	marked   int64
	count    int64
	markArgs [2]string
}

func (f *fakeMessagesRepo) Create(_ context.Context, m *models.Message) (*models.Message, error) {
	if f.err != nil {
		return nil, f.err
	}
	m.ID = "m1"
	f.created = append(f.created, m)
	return m, nil
}

func (f *fakeMessagesRepo) MarkRead(_ context.Context, receiverID, senderID string) (int64, error) {
	f.markArgs = [2]string{receiverID, senderID}
	return f.marked, f.err
}

func (f *fakeMessagesRepo) CountUnread(context.Context, string) (int64, error) {
	return f.count, f.err
}

type fakeNotificationsRepo struct {
	created []*models.Notification
	err     error
	marked  int64
	count   int64
}

func (f *fakeNotificationsRepo) Create(_ context.Context, n *models.Notification) (*models.Notification, error) {
	if f.err != nil {
		return nil, f.err
	}
	n.ID = "n1"
	f.created = append(f.created, n)
	return n, nil
}

func (f *fakeNotificationsRepo) MarkAllRead(context.Context, string) (int64, error) {
	return f.marked, f.err
}

func (f *fakeNotificationsRepo) CountUnread(context.Context, string) (int64, error) {
	return f.count, f.err
}

type fakePushTokensRepo struct {
	mu       sync.Mutex
	tokens   []models.PushToken
	listErr  error
	upserted []models.PushToken
	deleted  []string
	ownerDel [][2]string
	err      error
}

func (f *fakePushTokensRepo) Upsert(_ context.Context, t *models.PushToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.upserted = append(f.upserted, *t)
	return nil
}

func (f *fakePushTokensRepo) ListByUser(context.Context, string) ([]models.PushToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]models.PushToken(nil), f.tokens...), nil
}

func (f *fakePushTokensRepo) Delete(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, token)
	return f.err
}

func (f *fakePushTokensRepo) DeleteForUser(_ context.Context, userID, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ownerDel = append(f.ownerDel, [2]string{userID, token})
	return f.err
}

type fakePulsesRepo struct {
	created     []*models.Pulse
	active      []models.Pulse
	expiredKeys []string
	err         error
}

func (f *fakePulsesRepo) Create(_ context.Context, p *models.Pulse) (*models.Pulse, error) {
	if f.err != nil {
		return nil, f.err
	}
	p.ID = "p1"
	f.created = append(f.created, p)
	return p, nil
}

func (f *fakePulsesRepo) ListActive(context.Context, time.Time) ([]models.Pulse, error) {
	return f.active, f.err
}

func (f *fakePulsesRepo) DeleteExpired(context.Context, time.Time) ([]string, error) {
	return f.expiredKeys, f.err
}

type fakeRepoManager struct {
	users         *fakeUsersRepo
	refresh       *fakeRefreshRepo
	messages      *fakeMessagesRepo
	notifications *fakeNotificationsRepo
	pushTokens    *fakePushTokensRepo
	pulses        *fakePulsesRepo
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{
		users:         &fakeUsersRepo{byID: map[string]*models.User{}},
		refresh:       &fakeRefreshRepo{},
		messages:      &fakeMessagesRepo{},
		notifications: &fakeNotificationsRepo{},
		pushTokens:    &fakePushTokensRepo{},
		pulses:        &fakePulsesRepo{},
	}
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error    { return nil }
func (m *fakeRepoManager) Users(dbx.DBTX) users.Repository                 { return m.users }
func (m *fakeRepoManager) RefreshTokens(dbx.DBTX) refreshtokens.Repository { return m.refresh }
func (m *fakeRepoManager) Messages(dbx.DBTX) messages.Repository           { return m.messages }
func (m *fakeRepoManager) Notifications(dbx.DBTX) notifications.Repository { return m.notifications }
func (m *fakeRepoManager) PushTokens(dbx.DBTX) pushtokens.Repository       { return m.pushTokens }
func (m *fakeRepoManager) Pulses(dbx.DBTX) pulses.Repository               { return m.pulses }

type fakePublisher struct {
	mu      sync.Mutex
	changes []realtime.RowChange
}

func (p *fakePublisher) PublishRowChange(_ context.Context, c realtime.RowChange) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changes = append(p.changes, c)
}

type fakeDispatcher struct {
	mu       sync.Mutex
	payloads []PushPayload
}

func (d *fakeDispatcher) Dispatch(_ context.Context, p PushPayload) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.payloads = append(d.payloads, p)
}

type fakeSender struct {
	mu      sync.Mutex
	calls   [][]push.Message
	tickets []push.Ticket
	err     error
}

func (s *fakeSender) Send(_ context.Context, msgs []push.Message) ([]push.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, msgs)
	if s.err != nil {
		return nil, s.err
	}
	return s.tickets, nil
}
