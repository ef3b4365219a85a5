package grpc

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/dmitrijs2005/pulse/internal/api"
	"github.com/dmitrijs2005/pulse/internal/logging"
	"github.com/dmitrijs2005/pulse/internal/server/models"
	"github.com/dmitrijs2005/pulse/internal/server/services"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"
)

var errBoom = errors.New("boom")

type fakeUsers struct {
	registerErr error
	loginErr    error
	refreshErr  error
	logoutErr   error
	gotLogout   string
}

func (f *fakeUsers) Register(_ context.Context, userName, displayName, _ string) (*models.User, error) {
	if f.registerErr != nil {
		return nil, f.registerErr
	}
	return &models.User{ID: "u-" + userName, UserName: userName, DisplayName: displayName}, nil
}

func (f *fakeUsers) Login(_ context.Context, userName, _ string) (*services.TokenPair, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &services.TokenPair{UserID: "u-" + userName, AccessToken: "at", RefreshToken: "rt"}, nil
}

func (f *fakeUsers) RefreshToken(_ context.Context, _ string) (*services.TokenPair, error) {
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	return &services.TokenPair{AccessToken: "at2", RefreshToken: "rt2"}, nil
}

func (f *fakeUsers) Logout(_ context.Context, refreshToken string) error {
	f.gotLogout = refreshToken
	return f.logoutErr
}

type fakeMessages struct {
	err         error
	gotSender   string
	gotReceiver string
	unread      int64
}

func (f *fakeMessages) Send(_ context.Context, senderID, receiverID, text string) (*models.Message, error) {
	f.gotSender, f.gotReceiver = senderID, receiverID
	if f.err != nil {
		return nil, f.err
	}
	return &models.Message{ID: "m1", SenderID: senderID, ReceiverID: receiverID, Text: text,
		CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}, nil
}

func (f *fakeMessages) MarkRead(_ context.Context, receiverID, senderID string) (int64, error) {
	f.gotReceiver, f.gotSender = receiverID, senderID
	return 2, f.err
}

func (f *fakeMessages) CountUnread(_ context.Context, _ string) (int64, error) {
	return f.unread, f.err
}

type fakeNotifications struct {
	err      error
	gotActor string
	unread   int64
}

func (f *fakeNotifications) Create(_ context.Context, actorID string, n *models.Notification) (*models.Notification, error) {
	f.gotActor = actorID
	if f.err != nil {
		return nil, f.err
	}
	out := *n
	out.ID = "n1"
	out.ActorID = actorID
	return &out, nil
}

func (f *fakeNotifications) MarkAllRead(_ context.Context, _ string) (int64, error) {
	return 3, f.err
}

func (f *fakeNotifications) CountUnread(_ context.Context, _ string) (int64, error) {
	return f.unread, f.err
}

type fakePushTokens struct {
	err       error
	gotUser   string
	gotToken  string
	gotDevice string
}

func (f *fakePushTokens) RegisterToken(_ context.Context, userID, token, deviceType string) error {
	f.gotUser, f.gotToken, f.gotDevice = userID, token, deviceType
	return f.err
}

func (f *fakePushTokens) UnregisterToken(_ context.Context, userID, token string) error {
	f.gotUser, f.gotToken = userID, token
	return f.err
}

type fakePulses struct {
	err   error
	items []services.PulseWithURL
}

func (f *fakePulses) Create(_ context.Context, userID, mediaType string) (*models.Pulse, string, error) {
	if f.err != nil {
		return nil, "", f.err
	}
	return &models.Pulse{ID: "p1", UserID: userID, MediaType: mediaType, MediaKey: "pulses/" + userID + "/x"}, "https://upload", nil
}

func (f *fakePulses) List(_ context.Context) ([]services.PulseWithURL, error) {
	return f.items, f.err
}

type fakes struct {
	users         *fakeUsers
	messages      *fakeMessages
	notifications *fakeNotifications
	pushTokens    *fakePushTokens
	pulses        *fakePulses
}

func newFakes() *fakes {
	return &fakes{
		users:         &fakeUsers{},
		messages:      &fakeMessages{},
		notifications: &fakeNotifications{},
		pushTokens:    &fakePushTokens{},
		pulses:        &fakePulses{},
	}
}

func (f *fakes) services() Services {
	return Services{
		Users:         f.users,
		Messages:      f.messages,
		Notifications: f.notifications,
		PushTokens:    f.pushTokens,
		Pulses:        f.pulses,
	}
}

const testSecret = "test-secret"

// startServer serves s over an in-memory listener and returns a client.
func startServer(t *testing.T, f *fakes) api.PulseServiceClient {
	t.Helper()
	s := NewGRPCServer("bufnet", logging.Nop{}, f.services(), testSecret)

	lis := bufconn.Listen(1 << 20)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.Serve(ctx, lis)
	}()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()
		cancel()
		<-done
	})
	return api.NewPulseServiceClient(conn)
}
