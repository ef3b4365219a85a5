package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/pulse/internal/common"
	"github.com/dmitrijs2005/pulse/internal/realtime"
	"github.com/dmitrijs2005/pulse/internal/server/models"
	"github.com/dmitrijs2005/pulse/internal/server/repositories/repomanager"
)

var notificationTypes = map[string]struct{}{
	models.NotificationMessage: {},
	models.NotificationLike:    {},
	models.NotificationComment: {},
	models.NotificationFollow:  {},
}

type NotificationService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	publisher   ChangePublisher
	pusher      PushDispatcher
}

func NewNotificationService(db *sql.DB, m repomanager.RepositoryManager, p ChangePublisher, d PushDispatcher) *NotificationService {
	if p == nil {
		p = nopPublisher{}
	}
	if d == nil {
		d = nopDispatcher{}
	}
	return &NotificationService{db: db, repomanager: m, publisher: p, pusher: d}
}

// Create stores a notification for n.UserID caused by actorID. Self
// notifications are stored like any other; only the push is skipped by
// the relay.
func (s *NotificationService) Create(ctx context.Context, actorID string, n *models.Notification) (*models.Notification, error) {
	if n.UserID == "" {
		return nil, common.ErrorValidation
	}
	if _, ok := notificationTypes[n.Type]; !ok {
		return nil, common.ErrorValidation
	}
	n.ActorID = actorID

	if _, err := s.repomanager.Users(s.db).GetByID(ctx, n.UserID); err != nil {
		return nil, fmt.Errorf("error looking up recipient: %w", err)
	}

	created, err := s.repomanager.Notifications(s.db).Create(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("error creating notification: %w", err)
	}

	s.publisher.PublishRowChange(ctx, realtime.RowChange{
		Table: realtime.TableNotifications,
		Type:  realtime.OpInsert,
		Record: realtime.RowRecord{
			ID:      created.ID,
			UserID:  created.UserID,
			ActorID: created.ActorID,
			Type:    created.Type,
			IsRead:  created.IsRead,
		},
	})
	s.pusher.Dispatch(ctx, PushPayload{
		UserID:  created.UserID,
		ActorID: created.ActorID,
		Type:    created.Type,
		PostID:  created.PostID,
		Text:    created.Text,
	})

	return created, nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	n, err := s.repomanager.Notifications(s.db).MarkAllRead(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("error marking notifications read: %w", err)
	}
	if n > 0 {
		s.publisher.PublishRowChange(ctx, realtime.RowChange{
			Table:  realtime.TableNotifications,
			Type:   realtime.OpUpdate,
			Record: realtime.RowRecord{UserID: userID, IsRead: boolPtr(true)},
		})
	}
	return n, nil
}

func (s *NotificationService) CountUnread(ctx context.Context, userID string) (int64, error) {
	n, err := s.repomanager.Notifications(s.db).CountUnread(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("error counting unread notifications: %w", err)
	}
	return n, nil
}
