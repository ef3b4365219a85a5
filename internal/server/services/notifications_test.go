package services

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/pulse/internal/common"
	"github.com/dmitrijs2005/pulse/internal/realtime"
	"github.com/dmitrijs2005/pulse/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newNotificationService(t *testing.T) (*NotificationService, *fakeRepoManager, *fakePublisher, *fakeDispatcher) {
	t.Helper()
	db, _ := newSQLMockDB(t)
	rm := newFakeRepoManager()
	rm.users.byID["bob"] = &models.User{ID: "bob"}
	pub, disp := &fakePublisher{}, &fakeDispatcher{}
	return NewNotificationService(db, rm, pub, disp), rm, pub, disp
}

func TestNotificationService_Create(t *testing.T) {
	s, _, pub, disp := newNotificationService(t)

	n, err := s.Create(context.Background(), "alice", &models.Notification{UserID: "bob", Type: models.NotificationLike, PostID: "p9"})
	require.NoError(t, err)
	assert.Equal(t, "n1", n.ID)
	assert.Equal(t, "alice", n.ActorID)

	require.Len(t, pub.changes, 1)
	assert.Equal(t, realtime.TableNotifications, pub.changes[0].Table)
	assert.Equal(t, "bob", pub.changes[0].Record.UserID)
	assert.Equal(t, models.NotificationLike, pub.changes[0].Record.Type)

	require.Len(t, disp.payloads, 1)
	assert.Equal(t, PushPayload{UserID: "bob", ActorID: "alice", Type: models.NotificationLike, PostID: "p9"}, disp.payloads[0])
}

func TestNotificationService_CreateValidation(t *testing.T) {
	tests := []struct {
		name    string
		n       models.Notification
		wantErr error
	}{
		{name: "no recipient", n: models.Notification{Type: models.NotificationLike}, wantErr: common.ErrorValidation},
		{name: "unknown type", n: models.Notification{UserID: "bob", Type: "poke"}, wantErr: common.ErrorValidation},
		{name: "unknown recipient", n: models.Notification{UserID: "carol", Type: models.NotificationFollow}, wantErr: common.ErrorNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _, pub, _ := newNotificationService(t)
			n := tt.n
			_, err := s.Create(context.Background(), "alice", &n)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, pub.changes)
		})
	}
}

func TestNotificationService_MarkAllReadAndCount(t *testing.T) {
	s, rm, pub, _ := newNotificationService(t)

	rm.notifications.marked = 2
	n, err := s.MarkAllRead(context.Background(), "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	require.Len(t, pub.changes, 1)
	assert.Equal(t, realtime.OpUpdate, pub.changes[0].Type)

	rm.notifications.count = 4
	c, err := s.CountUnread(context.Background(), "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(4), c)

	rm.notifications.err = errBoom{}
	_, err = s.MarkAllRead(context.Background(), "bob")
	assert.Error(t, err)
	_, err = s.CountUnread(context.Background(), "bob")
	assert.Error(t, err)
}
