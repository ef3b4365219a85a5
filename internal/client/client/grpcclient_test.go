package client

import (
	"context"
	"errors"
	"testing"

	"github.com/dmitrijs2005/pulse/internal/api"
	"github.com/dmitrijs2005/pulse/internal/client/session"
	"github.com/dmitrijs2005/pulse/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

/*************
 * Fake api client
 *************/

// fakeAPI implements only what the tests call; the embedded nil interface
// panics on anything else.
type fakeAPI struct {
	api.PulseServiceClient

	lastRefreshTokenReq *api.RefreshTokenRequest
	lastLoginReq        *api.LoginRequest
	lastRegisterReq     *api.RegisterRequest
	lastLogoutReq       *api.LogoutRequest
	lastSendReq         *api.SendMessageRequest
	lastMarkReadReq     *api.MarkMessagesReadRequest
	lastNotificationReq *api.CreateNotificationRequest
	lastPushReq         *api.RegisterPushTokenRequest
	lastUnregisterReq   *api.UnregisterPushTokenRequest
	lastPulseReq        *api.CreatePulseRequest
	refreshCalls        int

	refreshTokenResp *api.RefreshTokenResponse
	refreshTokenErr  error
	pingResp         *api.PingResponse
	pingErr          error
	loginResp        *api.LoginResponse
	loginErr         error
	registerErr      error
	logoutErr        error
	err              error
	count            int64
}

func (f *fakeAPI) RefreshToken(ctx context.Context, in *api.RefreshTokenRequest, opts ...grpc.CallOption) (*api.RefreshTokenResponse, error) {
	f.refreshCalls++
	f.lastRefreshTokenReq = in
	return f.refreshTokenResp, f.refreshTokenErr
}

func (f *fakeAPI) Ping(ctx context.Context, in *api.PingRequest, opts ...grpc.CallOption) (*api.PingResponse, error) {
	return f.pingResp, f.pingErr
}

func (f *fakeAPI) Login(ctx context.Context, in *api.LoginRequest, opts ...grpc.CallOption) (*api.LoginResponse, error) {
	f.lastLoginReq = in
	return f.loginResp, f.loginErr
}

func (f *fakeAPI) Register(ctx context.Context, in *api.RegisterRequest, opts ...grpc.CallOption) (*api.RegisterResponse, error) {
	f.lastRegisterReq = in
	if f.registerErr != nil {
		return nil, f.registerErr
	}
	return &api.RegisterResponse{UserID: "u-" + in.Username}, nil
}

func (f *fakeAPI) Logout(ctx context.Context, in *api.LogoutRequest, opts ...grpc.CallOption) (*api.LogoutResponse, error) {
	f.lastLogoutReq = in
	return &api.LogoutResponse{}, f.logoutErr
}

func (f *fakeAPI) SendMessage(ctx context.Context, in *api.SendMessageRequest, opts ...grpc.CallOption) (*api.SendMessageResponse, error) {
	f.lastSendReq = in
	if f.err != nil {
		return nil, f.err
	}
	return &api.SendMessageResponse{Message: api.Message{ID: "m1", ReceiverID: in.ReceiverID, Text: in.Text}}, nil
}

func (f *fakeAPI) MarkMessagesRead(ctx context.Context, in *api.MarkMessagesReadRequest, opts ...grpc.CallOption) (*api.MarkReadResponse, error) {
	f.lastMarkReadReq = in
	if f.err != nil {
		return nil, f.err
	}
	return &api.MarkReadResponse{Updated: f.count}, nil
}

func (f *fakeAPI) CountUnreadMessages(ctx context.Context, in *api.CountUnreadRequest, opts ...grpc.CallOption) (*api.CountUnreadResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &api.CountUnreadResponse{Count: f.count}, nil
}

func (f *fakeAPI) CountUnreadNotifications(ctx context.Context, in *api.CountUnreadRequest, opts ...grpc.CallOption) (*api.CountUnreadResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &api.CountUnreadResponse{Count: f.count + 1}, nil
}

func (f *fakeAPI) CreateNotification(ctx context.Context, in *api.CreateNotificationRequest, opts ...grpc.CallOption) (*api.CreateNotificationResponse, error) {
	f.lastNotificationReq = in
	if f.err != nil {
		return nil, f.err
	}
	return &api.CreateNotificationResponse{Notification: api.Notification{ID: "n1", UserID: in.UserID, Type: in.Type}}, nil
}

func (f *fakeAPI) MarkNotificationsRead(ctx context.Context, in *api.MarkNotificationsReadRequest, opts ...grpc.CallOption) (*api.MarkReadResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &api.MarkReadResponse{Updated: f.count}, nil
}

func (f *fakeAPI) RegisterPushToken(ctx context.Context, in *api.RegisterPushTokenRequest, opts ...grpc.CallOption) (*api.RegisterPushTokenResponse, error) {
	f.lastPushReq = in
	return &api.RegisterPushTokenResponse{}, f.err
}

func (f *fakeAPI) UnregisterPushToken(ctx context.Context, in *api.UnregisterPushTokenRequest, opts ...grpc.CallOption) (*api.UnregisterPushTokenResponse, error) {
	f.lastUnregisterReq = in
	return &api.UnregisterPushTokenResponse{}, f.err
}

func (f *fakeAPI) CreatePulse(ctx context.Context, in *api.CreatePulseRequest, opts ...grpc.CallOption) (*api.CreatePulseResponse, error) {
	f.lastPulseReq = in
	if f.err != nil {
		return nil, f.err
	}
	return &api.CreatePulseResponse{Pulse: api.Pulse{ID: "p1", MediaType: in.MediaType}, UploadURL: "https://up"}, nil
}

func (f *fakeAPI) ListPulses(ctx context.Context, in *api.ListPulsesRequest, opts ...grpc.CallOption) (*api.ListPulsesResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &api.ListPulsesResponse{Pulses: []api.Pulse{{ID: "p1"}, {ID: "p2"}}}, nil
}

func signedIn(access, refresh string) *session.Session {
	s := session.New()
	s.SignIn("u1", access, refresh)
	return s
}

func tokenFrom(t *testing.T, ctx context.Context) string {
	t.Helper()
	md, _ := metadata.FromOutgoingContext(ctx)
	toks := md.Get(common.AccessTokenHeaderName)
	require.Len(t, toks, 1)
	return toks[0]
}

/*************
 * accessTokenInterceptor tests
 *************/

func TestInterceptor_RefreshesTokenOnExpiredAndRetries(t *testing.T) {
	f := &fakeAPI{
		refreshTokenResp: &api.RefreshTokenResponse{AccessToken: "A2", RefreshToken: "R2"},
	}
	sess := signedIn("A1", "R1")
	var events []session.Kind
	sess.Subscribe(func(ev session.Event) { events = append(events, ev.Kind) })
	c := &GRPCClient{client: f, session: sess}

	callCount := 0
	invoker := func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
		callCount++
		tok := tokenFrom(t, ctx)
		if callCount == 1 {
			require.Equal(t, "A1", tok)
			return status.Error(codes.Unauthenticated, common.ErrTokenExpired.Error())
		}
		require.Equal(t, "A2", tok)
		return nil
	}

	err := c.accessTokenInterceptor(context.Background(), api.FullMethod("SendMessage"), nil, nil, nil, invoker)
	require.NoError(t, err)
	assert.Equal(t, 2, callCount)
	assert.Equal(t, "A2", sess.AccessToken())
	assert.Equal(t, "R2", sess.RefreshToken())
	assert.Equal(t, "R1", f.lastRefreshTokenReq.RefreshToken)
	assert.Equal(t, []session.Kind{session.TokenRefreshed}, events)
}

func TestInterceptor_SkipsRefreshWhenTokenAlreadyRotated(t *testing.T) {
	f := &fakeAPI{}
	sess := signedIn("A1", "R1")
	c := &GRPCClient{client: f, session: sess}

	callCount := 0
	invoker := func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
		callCount++
		if callCount == 1 {
			// another call rotates the pair while this one is in flight
			sess.Refresh("A2", "R2")
			return status.Error(codes.Unauthenticated, common.ErrTokenExpired.Error())
		}
		require.Equal(t, "A2", tokenFrom(t, ctx))
		return nil
	}

	require.NoError(t, c.accessTokenInterceptor(context.Background(), api.FullMethod("Ping"), nil, nil, nil, invoker))
	assert.Zero(t, f.refreshCalls)
}

func TestInterceptor_RejectedRefreshSignsOut(t *testing.T) {
	f := &fakeAPI{refreshTokenErr: status.Error(codes.Unauthenticated, "refresh token expired")}
	sess := signedIn("A1", "R1")
	c := &GRPCClient{client: f, session: sess}

	invoker := func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
		return status.Error(codes.Unauthenticated, common.ErrTokenExpired.Error())
	}

	err := c.accessTokenInterceptor(context.Background(), api.FullMethod("CountUnreadMessages"), nil, nil, nil, invoker)
	require.Error(t, err)
	assert.False(t, sess.SignedIn())
}

func TestInterceptor_NoRefreshIfNoRefreshToken(t *testing.T) {
	f := &fakeAPI{}
	c := &GRPCClient{client: f, session: signedIn("A1", "")}

	invoker := func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
		return status.Error(codes.Unauthenticated, common.ErrTokenExpired.Error())
	}

	err := c.accessTokenInterceptor(context.Background(), "/svc/Method", nil, nil, nil, invoker)
	require.Error(t, err)
	assert.Nil(t, f.lastRefreshTokenReq)
}

func TestInterceptor_NeverRefreshesTheRefreshCall(t *testing.T) {
	f := &fakeAPI{}
	c := &GRPCClient{client: f, session: signedIn("A1", "R1")}

	invoker := func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
		return status.Error(codes.Unauthenticated, common.ErrTokenExpired.Error())
	}

	err := c.accessTokenInterceptor(context.Background(), api.FullMethod("RefreshToken"), nil, nil, nil, invoker)
	require.Error(t, err)
	assert.Zero(t, f.refreshCalls)
}

func TestInterceptor_IgnoresOtherErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"internal", status.Error(codes.Internal, "boom")},
		{"unauthenticated for another reason", status.Error(codes.Unauthenticated, "invalid token")},
		{"plain error", errors.New("plain")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeAPI{}
			c := &GRPCClient{client: f, session: signedIn("X", "R")}
			invoker := func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
				return tt.err
			}
			err := c.accessTokenInterceptor(context.Background(), "/svc/Method", nil, nil, nil, invoker)
			require.Error(t, err)
			assert.Zero(t, f.refreshCalls)
		})
	}
}

func TestInterceptor_SignedOutKeepsCallerToken(t *testing.T) {
	c := &GRPCClient{client: &fakeAPI{}, session: session.New()}

	invoker := func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
		assert.Equal(t, "last", tokenFrom(t, ctx))
		return nil
	}

	ctx := WithAccessToken(context.Background(), "last")
	require.NoError(t, c.accessTokenInterceptor(ctx, "/svc/Method", nil, nil, nil, invoker))
}

/*************
 * mapError tests
 *************/

func TestMapError(t *testing.T) {
	c := &GRPCClient{}

	require.NoError(t, c.mapError(nil))
	require.Equal(t, ErrUnauthorized, c.mapError(status.Error(codes.Unauthenticated, "x")))
	require.Equal(t, ErrUnauthorized, c.mapError(status.Error(codes.PermissionDenied, "x")))
	require.Equal(t, ErrUnavailable, c.mapError(status.Error(codes.Unavailable, "x")))
	require.Equal(t, ErrUnavailable, c.mapError(status.Error(codes.DeadlineExceeded, "x")))
	require.Equal(t, ErrNotFound, c.mapError(status.Error(codes.NotFound, "x")))
	require.Equal(t, ErrAlreadyExists, c.mapError(status.Error(codes.AlreadyExists, "x")))

	invalid := c.mapError(status.Error(codes.InvalidArgument, "text is empty"))
	require.ErrorIs(t, invalid, ErrInvalidInput)
	require.ErrorContains(t, invalid, "text is empty")

	require.ErrorContains(t, c.mapError(errors.New("plain")), "rpc error:")
}

/*************
 * auth tests
 *************/

func TestPing(t *testing.T) {
	tests := []struct {
		name    string
		f       *fakeAPI
		wantErr error
	}{
		{"ok", &fakeAPI{pingResp: &api.PingResponse{Status: "OK"}}, nil},
		{"not ok", &fakeAPI{pingResp: &api.PingResponse{Status: "NOT_OK"}}, ErrUnavailable},
		{"rpc error", &fakeAPI{pingErr: status.Error(codes.Unavailable, "down")}, ErrUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &GRPCClient{client: tt.f}
			err := c.Ping(context.Background())
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestLogin_SignsIn(t *testing.T) {
	f := &fakeAPI{loginResp: &api.LoginResponse{UserID: "u1", AccessToken: "A", RefreshToken: "R"}}
	sess := session.New()
	var got session.Event
	sess.Subscribe(func(ev session.Event) { got = ev })
	c := &GRPCClient{client: f, session: sess}

	require.NoError(t, c.Login(context.Background(), "alice", "pw"))
	assert.Equal(t, "u1", sess.UserID())
	assert.Equal(t, "R", sess.RefreshToken())
	assert.Equal(t, session.Event{Kind: session.SignedIn, UserID: "u1", AccessToken: "A"}, got)
	assert.Equal(t, &api.LoginRequest{Username: "alice", Password: "pw"}, f.lastLoginReq)
}

func TestLogin_FailureLeavesSessionEmpty(t *testing.T) {
	f := &fakeAPI{loginErr: status.Error(codes.Unauthenticated, "unauthorized")}
	sess := session.New()
	c := &GRPCClient{client: f, session: sess}

	require.ErrorIs(t, c.Login(context.Background(), "alice", "bad"), ErrUnauthorized)
	assert.False(t, sess.SignedIn())
}

func TestRegister(t *testing.T) {
	f := &fakeAPI{}
	c := &GRPCClient{client: f}

	id, err := c.Register(context.Background(), "alice", "Alice", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "u-alice", id)
	assert.Equal(t, "Alice", f.lastRegisterReq.DisplayName)

	f.registerErr = status.Error(codes.AlreadyExists, "already exists")
	_, err = c.Register(context.Background(), "alice", "Alice", "secret1")
	require.ErrorIs(t, err, ErrAlreadyExists)
}

func TestLogout_SignsOutEvenOnError(t *testing.T) {
	f := &fakeAPI{logoutErr: status.Error(codes.Unavailable, "down")}
	sess := signedIn("A", "R")
	c := &GRPCClient{client: f, session: sess}

	require.ErrorIs(t, c.Logout(context.Background()), ErrUnavailable)
	assert.Equal(t, "R", f.lastLogoutReq.RefreshToken)
	assert.False(t, sess.SignedIn())
}

func TestLogout_WhenSignedOutSkipsRPC(t *testing.T) {
	f := &fakeAPI{}
	c := &GRPCClient{client: f, session: session.New()}

	require.NoError(t, c.Logout(context.Background()))
	assert.Nil(t, f.lastLogoutReq)
}

/*************
 * domain calls
 *************/

func TestMessages(t *testing.T) {
	f := &fakeAPI{count: 5}
	c := &GRPCClient{client: f}
	ctx := context.Background()

	m, err := c.SendMessage(ctx, "u2", "hi")
	require.NoError(t, err)
	assert.Equal(t, "m1", m.ID)
	assert.Equal(t, "u2", f.lastSendReq.ReceiverID)

	n, err := c.MarkMessagesRead(ctx, "u2")
	require.NoError(t, err)
	assert.EqualValues(t, 5, n)
	assert.Equal(t, "u2", f.lastMarkReadReq.SenderID)

	n, err = c.CountUnreadMessages(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 5, n)

	f.err = status.Error(codes.InvalidArgument, "empty text")
	_, err = c.SendMessage(ctx, "u2", "")
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestNotifications(t *testing.T) {
	f := &fakeAPI{count: 2}
	c := &GRPCClient{client: f}
	ctx := context.Background()

	n, err := c.CreateNotification(ctx, "u2", "like", "p1", "")
	require.NoError(t, err)
	assert.Equal(t, "like", n.Type)
	assert.Equal(t, "p1", f.lastNotificationReq.PostID)

	cnt, err := c.CountUnreadNotifications(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, cnt)

	upd, err := c.MarkNotificationsRead(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, upd)
}

func TestPushTokens(t *testing.T) {
	f := &fakeAPI{}
	c := &GRPCClient{client: f}
	ctx := context.Background()

	require.NoError(t, c.RegisterPushToken(ctx, "tok", "cli"))
	assert.Equal(t, &api.RegisterPushTokenRequest{Token: "tok", DeviceType: "cli"}, f.lastPushReq)

	require.NoError(t, c.UnregisterPushToken(ctx, "tok"))
	assert.Equal(t, "tok", f.lastUnregisterReq.Token)

	f.err = status.Error(codes.Unauthenticated, "invalid token")
	require.ErrorIs(t, c.UnregisterPushToken(ctx, "tok"), ErrUnauthorized)
}

func TestPulses(t *testing.T) {
	f := &fakeAPI{}
	c := &GRPCClient{client: f}
	ctx := context.Background()

	p, url, err := c.CreatePulse(ctx, "image/png")
	require.NoError(t, err)
	assert.Equal(t, "image/png", p.MediaType)
	assert.Equal(t, "https://up", url)

	list, err := c.ListPulses(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}
