package client

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/pulse/internal/api"
	"github.com/dmitrijs2005/pulse/internal/client/session"
	"github.com/dmitrijs2005/pulse/internal/common"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type GRPCClient struct {
	endpointURL string
	conn        *grpc.ClientConn
	client      api.PulseServiceClient
	session     *session.Session

	// serialises token rotation so concurrent expired calls refresh once
	refreshMu sync.Mutex
}

var _ Client = (*GRPCClient)(nil)

// WithAccessToken sets the access token metadata on ctx, replacing any
// previous value.
func WithAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Delete(common.AccessTokenHeaderName)
	md.Set(common.AccessTokenHeaderName, token)

	return metadata.NewOutgoingContext(ctx, md)
}

func isTokenExpired(err error) bool {
	st, ok := status.FromError(err)
	if !ok {
		return false
	}
	return st.Code() == codes.Unauthenticated && st.Message() == common.ErrTokenExpired.Error()
}

func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply interface{},
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {

	// A signed-out session keeps whatever token the caller put on ctx.
	token := s.session.AccessToken()
	if token != "" {
		ctx = WithAccessToken(ctx, token)
	}

	err := invoker(ctx, method, req, reply, cc, opts...)
	if err == nil || !isTokenExpired(err) || method == api.FullMethod("RefreshToken") {
		return err
	}

	if rerr := s.refresh(ctx, token); rerr != nil {
		return err
	}

	ctx = WithAccessToken(ctx, s.session.AccessToken())
	return invoker(ctx, method, req, reply, cc, opts...)
}

// refresh rotates the token pair unless another call already replaced the
// stale access token. A rejected refresh token signs the session out.
func (s *GRPCClient) refresh(ctx context.Context, stale string) error {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	if current := s.session.AccessToken(); current != "" && current != stale {
		return nil
	}

	refreshToken := s.session.RefreshToken()
	if refreshToken == "" {
		return ErrUnauthorized
	}

	resp, err := s.client.RefreshToken(ctx, &api.RefreshTokenRequest{RefreshToken: refreshToken})
	if err != nil {
		if status.Code(err) == codes.Unauthenticated {
			s.session.SignOut()
		}
		return err
	}

	s.session.Refresh(resp.AccessToken, resp.RefreshToken)
	return nil
}

func NewGRPCClient(endpointURL string, sess *session.Session) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL, session: sess}
	err := c.InitGRPCClient()
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *GRPCClient) InitGRPCClient() error {

	conn, err := grpc.NewClient(s.endpointURL, grpc.WithTransportCredentials(insecure.NewCredentials()), grpc.WithUnaryInterceptor(s.accessTokenInterceptor))
	if err != nil {
		return err
	}
	s.conn = conn
	s.client = api.NewPulseServiceClient(conn)
	return nil
}

func (s *GRPCClient) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

func (s *GRPCClient) Ping(ctx context.Context) error {

	resp, err := s.client.Ping(ctx, &api.PingRequest{})
	if err != nil {
		return s.mapError(err)
	}

	if resp.Status != "OK" {
		return ErrUnavailable
	}

	return nil

}

func (s *GRPCClient) Register(ctx context.Context, userName, displayName, password string) (string, error) {

	req := &api.RegisterRequest{Username: userName, DisplayName: displayName, Password: password}

	resp, err := s.client.Register(ctx, req)
	if err != nil {
		return "", s.mapError(err)
	}

	return resp.UserID, nil

}

func (s *GRPCClient) Login(ctx context.Context, userName, password string) error {

	req := &api.LoginRequest{Username: userName, Password: password}

	resp, err := s.client.Login(ctx, req)
	if err != nil {
		return s.mapError(err)
	}

	s.session.SignIn(resp.UserID, resp.AccessToken, resp.RefreshToken)

	return nil

}

// Logout revokes the refresh token and signs the session out. The session
// is cleared even when the server cannot be reached.
func (s *GRPCClient) Logout(ctx context.Context) error {
	var err error
	if rt := s.session.RefreshToken(); rt != "" {
		_, err = s.client.Logout(ctx, &api.LogoutRequest{RefreshToken: rt})
	}
	s.session.SignOut()
	return s.mapError(err)
}

func (s *GRPCClient) SendMessage(ctx context.Context, receiverID, text string) (*api.Message, error) {
	resp, err := s.client.SendMessage(ctx, &api.SendMessageRequest{ReceiverID: receiverID, Text: text})
	if err != nil {
		return nil, s.mapError(err)
	}
	return &resp.Message, nil
}

func (s *GRPCClient) MarkMessagesRead(ctx context.Context, senderID string) (int64, error) {
	resp, err := s.client.MarkMessagesRead(ctx, &api.MarkMessagesReadRequest{SenderID: senderID})
	if err != nil {
		return 0, s.mapError(err)
	}
	return resp.Updated, nil
}

func (s *GRPCClient) CountUnreadMessages(ctx context.Context) (int64, error) {
	resp, err := s.client.CountUnreadMessages(ctx, &api.CountUnreadRequest{})
	if err != nil {
		return 0, s.mapError(err)
	}
	return resp.Count, nil
}

func (s *GRPCClient) CreateNotification(ctx context.Context, userID, typ, postID, text string) (*api.Notification, error) {
	resp, err := s.client.CreateNotification(ctx, &api.CreateNotificationRequest{UserID: userID, Type: typ, PostID: postID, Text: text})
	if err != nil {
		return nil, s.mapError(err)
	}
	return &resp.Notification, nil
}

func (s *GRPCClient) MarkNotificationsRead(ctx context.Context) (int64, error) {
	resp, err := s.client.MarkNotificationsRead(ctx, &api.MarkNotificationsReadRequest{})
	if err != nil {
		return 0, s.mapError(err)
	}
	return resp.Updated, nil
}

func (s *GRPCClient) CountUnreadNotifications(ctx context.Context) (int64, error) {
	resp, err := s.client.CountUnreadNotifications(ctx, &api.CountUnreadRequest{})
	if err != nil {
		return 0, s.mapError(err)
	}
	return resp.Count, nil
}

func (s *GRPCClient) RegisterPushToken(ctx context.Context, token, deviceType string) error {
	_, err := s.client.RegisterPushToken(ctx, &api.RegisterPushTokenRequest{Token: token, DeviceType: deviceType})
	return s.mapError(err)
}

func (s *GRPCClient) UnregisterPushToken(ctx context.Context, token string) error {
	_, err := s.client.UnregisterPushToken(ctx, &api.UnregisterPushTokenRequest{Token: token})
	return s.mapError(err)
}

func (s *GRPCClient) CreatePulse(ctx context.Context, mediaType string) (*api.Pulse, string, error) {
	resp, err := s.client.CreatePulse(ctx, &api.CreatePulseRequest{MediaType: mediaType})
	if err != nil {
		return nil, "", s.mapError(err)
	}
	return &resp.Pulse, resp.UploadURL, nil
}

func (s *GRPCClient) ListPulses(ctx context.Context) ([]api.Pulse, error) {
	resp, err := s.client.ListPulses(ctx, &api.ListPulsesRequest{})
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp.Pulses, nil
}

func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		return ErrUnauthorized
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", ErrInvalidInput, st.Message())
	case codes.NotFound:
		return ErrNotFound
	case codes.AlreadyExists:
		return ErrAlreadyExists
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
