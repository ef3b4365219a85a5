package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/pulse/internal/api"
	"github.com/dmitrijs2005/pulse/internal/common"
	"github.com/dmitrijs2005/pulse/internal/server/models"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// toStatus converts a service error into a gRPC status. Unknown errors are
// logged and reported as Internal so details do not leak to clients.
func (s *GRPCServer) toStatus(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, common.ErrorValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, common.ErrorNotFound):
		return status.Error(codes.NotFound, "not found")
	case errors.Is(err, common.ErrorAlreadyExists):
		return status.Error(codes.AlreadyExists, "already exists")
	case errors.Is(err, common.ErrRefreshTokenExpired):
		return status.Error(codes.Unauthenticated, "refresh token expired")
	case errors.Is(err, common.ErrorUnauthorized):
		return status.Error(codes.Unauthenticated, "unauthorized")
	}
	s.logger.Error(ctx, "request failed", "error", err)
	return status.Error(codes.Internal, "internal error")
}

func (s *GRPCServer) caller(ctx context.Context) (string, error) {
	id, ok := userIDFromContext(ctx)
	if !ok {
		return "", status.Error(codes.Unauthenticated, "missing token")
	}
	return id, nil
}

func (s *GRPCServer) Ping(ctx context.Context, req *api.PingRequest) (*api.PingResponse, error) {

	return &api.PingResponse{Status: "OK"}, nil

}

func (s *GRPCServer) Register(ctx context.Context, req *api.RegisterRequest) (*api.RegisterResponse, error) {

	s.logger.Info(ctx, "Registration request")

	u, err := s.svc.Users.Register(ctx, req.Username, req.DisplayName, req.Password)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	s.logger.Info(ctx, "Registered", "username", u.UserName)
	return &api.RegisterResponse{UserID: u.ID}, nil

}

func (s *GRPCServer) Login(ctx context.Context, req *api.LoginRequest) (*api.LoginResponse, error) {

	tokens, err := s.svc.Users.Login(ctx, req.Username, req.Password)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return &api.LoginResponse{UserID: tokens.UserID, AccessToken: tokens.AccessToken, RefreshToken: tokens.RefreshToken}, nil

}

func (s *GRPCServer) RefreshToken(ctx context.Context, req *api.RefreshTokenRequest) (*api.RefreshTokenResponse, error) {

	tokens, err := s.svc.Users.RefreshToken(ctx, req.RefreshToken)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return &api.RefreshTokenResponse{AccessToken: tokens.AccessToken, RefreshToken: tokens.RefreshToken}, nil

}

func (s *GRPCServer) Logout(ctx context.Context, req *api.LogoutRequest) (*api.LogoutResponse, error) {

	if err := s.svc.Users.Logout(ctx, req.RefreshToken); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.LogoutResponse{}, nil

}

func (s *GRPCServer) SendMessage(ctx context.Context, req *api.SendMessageRequest) (*api.SendMessageResponse, error) {
	userID, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}

	m, err := s.svc.Messages.Send(ctx, userID, req.ReceiverID, req.Text)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return &api.SendMessageResponse{Message: messageToAPI(m)}, nil
}

func (s *GRPCServer) MarkMessagesRead(ctx context.Context, req *api.MarkMessagesReadRequest) (*api.MarkReadResponse, error) {
	userID, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}

	n, err := s.svc.Messages.MarkRead(ctx, userID, req.SenderID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.MarkReadResponse{Updated: n}, nil
}

func (s *GRPCServer) CountUnreadMessages(ctx context.Context, _ *api.CountUnreadRequest) (*api.CountUnreadResponse, error) {
	userID, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}

	n, err := s.svc.Messages.CountUnread(ctx, userID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.CountUnreadResponse{Count: n}, nil
}

func (s *GRPCServer) CreateNotification(ctx context.Context, req *api.CreateNotificationRequest) (*api.CreateNotificationResponse, error) {
	userID, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}

	n, err := s.svc.Notifications.Create(ctx, userID, &models.Notification{
		UserID: req.UserID,
		Type:   req.Type,
		PostID: req.PostID,
		Text:   req.Text,
	})
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return &api.CreateNotificationResponse{Notification: notificationToAPI(n)}, nil
}

func (s *GRPCServer) MarkNotificationsRead(ctx context.Context, _ *api.MarkNotificationsReadRequest) (*api.MarkReadResponse, error) {
	userID, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}

	n, err := s.svc.Notifications.MarkAllRead(ctx, userID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.MarkReadResponse{Updated: n}, nil
}

func (s *GRPCServer) CountUnreadNotifications(ctx context.Context, _ *api.CountUnreadRequest) (*api.CountUnreadResponse, error) {
	userID, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}

	n, err := s.svc.Notifications.CountUnread(ctx, userID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.CountUnreadResponse{Count: n}, nil
}

func (s *GRPCServer) RegisterPushToken(ctx context.Context, req *api.RegisterPushTokenRequest) (*api.RegisterPushTokenResponse, error) {
	userID, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.svc.PushTokens.RegisterToken(ctx, userID, req.Token, req.DeviceType); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.RegisterPushTokenResponse{}, nil
}

func (s *GRPCServer) UnregisterPushToken(ctx context.Context, req *api.UnregisterPushTokenRequest) (*api.UnregisterPushTokenResponse, error) {
	userID, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.svc.PushTokens.UnregisterToken(ctx, userID, req.Token); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.UnregisterPushTokenResponse{}, nil
}

func (s *GRPCServer) CreatePulse(ctx context.Context, req *api.CreatePulseRequest) (*api.CreatePulseResponse, error) {
	userID, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}

	p, uploadURL, err := s.svc.Pulses.Create(ctx, userID, req.MediaType)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.CreatePulseResponse{Pulse: pulseToAPI(p, ""), UploadURL: uploadURL}, nil
}

func (s *GRPCServer) ListPulses(ctx context.Context, _ *api.ListPulsesRequest) (*api.ListPulsesResponse, error) {
	if _, err := s.caller(ctx); err != nil {
		return nil, err
	}

	items, err := s.svc.Pulses.List(ctx)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	out := make([]api.Pulse, 0, len(items))
	for i := range items {
		out = append(out, pulseToAPI(&items[i].Pulse, items[i].MediaURL))
	}
	return &api.ListPulsesResponse{Pulses: out}, nil
}

func messageToAPI(m *models.Message) api.Message {
	return api.Message{
		ID:         m.ID,
		SenderID:   m.SenderID,
		ReceiverID: m.ReceiverID,
		Text:       m.Text,
		IsRead:     m.IsRead,
		CreatedAt:  m.CreatedAt,
	}
}

func notificationToAPI(n *models.Notification) api.Notification {
	return api.Notification{
		ID:        n.ID,
		UserID:    n.UserID,
		ActorID:   n.ActorID,
		Type:      n.Type,
		PostID:    n.PostID,
		Text:      n.Text,
		IsRead:    n.IsRead,
		CreatedAt: n.CreatedAt,
	}
}

func pulseToAPI(p *models.Pulse, mediaURL string) api.Pulse {
	return api.Pulse{
		ID:        p.ID,
		UserID:    p.UserID,
		MediaType: p.MediaType,
		MediaURL:  mediaURL,
		CreatedAt: p.CreatedAt,
		ExpiresAt: p.ExpiresAt,
	}
}
