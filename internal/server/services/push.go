package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/pulse/internal/common"
	"github.com/dmitrijs2005/pulse/internal/logging"
	"github.com/dmitrijs2005/pulse/internal/server/models"
	"github.com/dmitrijs2005/pulse/internal/server/push"
	"github.com/dmitrijs2005/pulse/internal/server/repositories/repomanager"
)

const (
	ReasonSelfNotification = "self notification"
	ReasonNoPushTokens     = "no push tokens"

	dispatchTimeout = 15 * time.Second
)

// PushPayload is what the relay needs to notify UserID about something
// ActorID did.
type PushPayload struct {
	UserID  string `json:"user_id"`
	ActorID string `json:"actor_id"`
	Type    string `json:"type"`
	PostID  string `json:"post_id,omitempty"`
	Text    string `json:"text,omitempty"`
}

// RelayResult is the relay answer. Skipped results carry a reason and no
// sent count.
type RelayResult struct {
	Skipped bool
	Reason  string
	Sent    int
}

func (r RelayResult) MarshalJSON() ([]byte, error) {
	if r.Skipped {
		return json.Marshal(struct {
			Skipped bool   `json:"skipped"`
			Reason  string `json:"reason,omitempty"`
		}{true, r.Reason})
	}
	return json.Marshal(struct {
		Sent int `json:"sent"`
	}{r.Sent})
}

// PushService keeps device tokens and relays notifications to them.
type PushService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	sender      push.Sender
	logger      logging.Logger
	async       func(func())
}

func NewPushService(db *sql.DB, m repomanager.RepositoryManager, sender push.Sender, l logging.Logger) *PushService {
	return &PushService{
		db:          db,
		repomanager: m,
		sender:      sender,
		logger:      l.With("module", "push"),
		async:       func(f func()) { go f() },
	}
}

// RegisterToken upserts token for userID; a token seen on another account
// moves to this one.
func (s *PushService) RegisterToken(ctx context.Context, userID, token, deviceType string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return common.ErrorValidation
	}
	if deviceType == "" {
		deviceType = "unknown"
	}
	err := s.repomanager.PushTokens(s.db).Upsert(ctx, &models.PushToken{Token: token, UserID: userID, DeviceType: deviceType})
	if err != nil {
		return fmt.Errorf("error saving push token: %w", err)
	}
	return nil
}

// UnregisterToken removes token if userID owns it.
func (s *PushService) UnregisterToken(ctx context.Context, userID, token string) error {
	if token == "" {
		return common.ErrorValidation
	}
	if err := s.repomanager.PushTokens(s.db).DeleteForUser(ctx, userID, token); err != nil {
		return fmt.Errorf("error deleting push token: %w", err)
	}
	return nil
}

// Relay sends p to every device of p.UserID. Delivery failures are logged
// and reported as Sent: 0; only storage failures are returned as errors.
func (s *PushService) Relay(ctx context.Context, p PushPayload) (*RelayResult, error) {
	if p.UserID == "" {
		return nil, common.ErrorValidation
	}
	if p.UserID == p.ActorID {
		return &RelayResult{Skipped: true, Reason: ReasonSelfNotification}, nil
	}

	tokens, err := s.repomanager.PushTokens(s.db).ListByUser(ctx, p.UserID)
	if err != nil {
		return nil, fmt.Errorf("error listing push tokens: %w", err)
	}
	if len(tokens) == 0 {
		return &RelayResult{Skipped: true, Reason: ReasonNoPushTokens}, nil
	}

	title, body := composePush(p.Type, s.actorName(ctx, p.ActorID), p.Text)
	data := map[string]string{"type": p.Type, "post_id": p.PostID, "actor_id": p.ActorID}

	msgs := make([]push.Message, 0, len(tokens))
	for _, t := range tokens {
		msgs = append(msgs, push.Message{To: t.Token, Title: title, Body: body, Data: data, Sound: "default"})
	}

	tickets, err := s.sender.Send(ctx, msgs)
	if err != nil {
		s.logger.Error(ctx, "push delivery failed", "user_id", p.UserID, "error", err)
		return &RelayResult{}, nil
	}

	sent := 0
	for i, t := range tickets {
		if i >= len(msgs) {
			break
		}
		switch {
		case t.Status == push.StatusOK:
			sent++
		case t.DeviceGone():
			if err := s.repomanager.PushTokens(s.db).Delete(ctx, msgs[i].To); err != nil {
				s.logger.Error(ctx, "pruning push token failed", "error", err)
				continue
			}
			s.logger.Info(ctx, "pruned unregistered push token", "user_id", p.UserID)
		default:
			s.logger.Warn(ctx, "push ticket error", "user_id", p.UserID, "message", t.Message)
		}
	}

	return &RelayResult{Sent: sent}, nil
}

// Dispatch runs Relay in the background, detached from ctx cancellation.
func (s *PushService) Dispatch(ctx context.Context, p PushPayload) {
	ctx = context.WithoutCancel(ctx)
	s.async(func() {
		ctx, cancel := context.WithTimeout(ctx, dispatchTimeout)
		defer cancel()
		if _, err := s.Relay(ctx, p); err != nil {
			s.logger.Error(ctx, "push relay failed", "user_id", p.UserID, "error", err)
		}
	})
}

func (s *PushService) actorName(ctx context.Context, actorID string) string {
	if actorID == "" {
		return "Someone"
	}
	u, err := s.repomanager.Users(s.db).GetByID(ctx, actorID)
	if err != nil {
		return "Someone"
	}
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.UserName
}

func composePush(typ, actor, text string) (title, body string) {
	switch typ {
	case models.NotificationMessage:
		if text == "" {
			return actor, "Sent you a message"
		}
		return actor, text
	case models.NotificationLike:
		return "New like", actor + " liked your pulse"
	case models.NotificationComment:
		if text == "" {
			return "New comment", actor + " commented on your pulse"
		}
		return "New comment", actor + " commented: " + text
	case models.NotificationFollow:
		return "New follower", actor + " started following you"
	default:
		return "Pulse", "You have a new notification"
	}
}
