package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/pulse/internal/common"
	"github.com/dmitrijs2005/pulse/internal/realtime"
	"github.com/dmitrijs2005/pulse/internal/server/models"
	"github.com/dmitrijs2005/pulse/internal/server/repositories/repomanager"
)

const maxMessageLen = 4000

// MessageService stores direct messages and keeps realtime subscribers and
// push devices informed.
type MessageService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	publisher   ChangePublisher
	pusher      PushDispatcher
}

// NewMessageService wires the service. Nil publisher or pusher disable
// the respective side effect.
func NewMessageService(db *sql.DB, m repomanager.RepositoryManager, p ChangePublisher, d PushDispatcher) *MessageService {
	if p == nil {
		p = nopPublisher{}
	}
	if d == nil {
		d = nopDispatcher{}
	}
	return &MessageService{db: db, repomanager: m, publisher: p, pusher: d}
}

// Send stores a message from senderID to receiverID.
func (s *MessageService) Send(ctx context.Context, senderID, receiverID, text string) (*models.Message, error) {
	text = strings.TrimSpace(text)
	if receiverID == "" || receiverID == senderID || text == "" || len(text) > maxMessageLen {
		return nil, common.ErrorValidation
	}

	if _, err := s.repomanager.Users(s.db).GetByID(ctx, receiverID); err != nil {
		return nil, fmt.Errorf("error looking up receiver: %w", err)
	}

	m, err := s.repomanager.Messages(s.db).Create(ctx, &models.Message{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Text:       text,
	})
	if err != nil {
		return nil, fmt.Errorf("error creating message: %w", err)
	}

	s.publisher.PublishRowChange(ctx, realtime.RowChange{
		Table: realtime.TableMessages,
		Type:  realtime.OpInsert,
		Record: realtime.RowRecord{
			ID:         m.ID,
			SenderID:   m.SenderID,
			ReceiverID: m.ReceiverID,
			IsRead:     m.IsRead,
		},
	})
	s.pusher.Dispatch(ctx, PushPayload{
		UserID:  receiverID,
		ActorID: senderID,
		Type:    models.NotificationMessage,
		Text:    text,
	})

	return m, nil
}

// MarkRead marks everything senderID sent to receiverID as read.
func (s *MessageService) MarkRead(ctx context.Context, receiverID, senderID string) (int64, error) {
	if senderID == "" {
		return 0, common.ErrorValidation
	}

	n, err := s.repomanager.Messages(s.db).MarkRead(ctx, receiverID, senderID)
	if err != nil {
		return 0, fmt.Errorf("error marking messages read: %w", err)
	}

	if n > 0 {
		s.publisher.PublishRowChange(ctx, realtime.RowChange{
			Table: realtime.TableMessages,
			Type:  realtime.OpUpdate,
			Record: realtime.RowRecord{
				SenderID:   senderID,
				ReceiverID: receiverID,
				IsRead:     boolPtr(true),
			},
		})
	}
	return n, nil
}

// CountUnread counts messages addressed to userID with is_read not true.
func (s *MessageService) CountUnread(ctx context.Context, userID string) (int64, error) {
	n, err := s.repomanager.Messages(s.db).CountUnread(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("error counting unread messages: %w", err)
	}
	return n, nil
}
