package cli

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/pulse/internal/api"
	"github.com/dmitrijs2005/pulse/internal/client/notify"
	"github.com/dmitrijs2005/pulse/internal/client/session"
	"github.com/dmitrijs2005/pulse/internal/client/unread"
	"github.com/dmitrijs2005/pulse/internal/logging"
)

type fakeAPI struct {
	sess *session.Session

	pingErr error

	regUser, regDisplay, regPass string
	regErr                       error

	loginUser, loginPass string
	loginErr             error

	logoutCalled bool
	logoutErr    error

	sentTo, sentText string
	sendErr          error

	readFrom    string
	readNotes   bool
	markedCount int64
	pulseType   string
	pulseURL    string
	pulseErr    error
	pulses      []api.Pulse
}

func (f *fakeAPI) Ping(ctx context.Context) error { return f.pingErr }

func (f *fakeAPI) Register(ctx context.Context, username, displayName, password string) (string, error) {
	f.regUser, f.regDisplay, f.regPass = username, displayName, password
	return "new-id", f.regErr
}

func (f *fakeAPI) Login(ctx context.Context, username, password string) error {
	f.loginUser, f.loginPass = username, password
	if f.loginErr != nil {
		return f.loginErr
	}
	f.sess.SignIn("id-"+username, "at", "rt")
	return nil
}

func (f *fakeAPI) Logout(ctx context.Context) error {
	f.logoutCalled = true
	f.sess.SignOut()
	return f.logoutErr
}

func (f *fakeAPI) SendMessage(ctx context.Context, receiverID, text string) (*api.Message, error) {
	f.sentTo, f.sentText = receiverID, text
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	return &api.Message{ID: "m1", ReceiverID: receiverID}, nil
}

func (f *fakeAPI) MarkMessagesRead(ctx context.Context, senderID string) (int64, error) {
	f.readFrom = senderID
	return f.markedCount, nil
}

func (f *fakeAPI) MarkNotificationsRead(ctx context.Context) (int64, error) {
	f.readNotes = true
	return f.markedCount, nil
}

func (f *fakeAPI) CreatePulse(ctx context.Context, mediaType string) (*api.Pulse, string, error) {
	f.pulseType = mediaType
	if f.pulseErr != nil {
		return nil, "", f.pulseErr
	}
	return &api.Pulse{ID: "p1", MediaType: mediaType, ExpiresAt: time.Now().Add(24 * time.Hour)}, f.pulseURL, nil
}

func (f *fakeAPI) ListPulses(ctx context.Context) ([]api.Pulse, error) {
	return f.pulses, nil
}

type fakePresence struct {
	online []string
}

func (p *fakePresence) Online() []string { return p.online }

func (p *fakePresence) IsOnline(id string) bool {
	for _, o := range p.online {
		if o == id {
			return true
		}
	}
	return false
}

type typingCall struct {
	to string
	on bool
}

type fakeTyping struct {
	calls []typingCall
	snap  map[string]bool
}

func (t *fakeTyping) SetTyping(ctx context.Context, to string, on bool) error {
	t.calls = append(t.calls, typingCall{to, on})
	return nil
}

func (t *fakeTyping) Snapshot() map[string]bool { return t.snap }

type fakeUnread struct {
	counts    unread.Counts
	refreshes int
}

func (u *fakeUnread) Counts() unread.Counts       { return u.counts }
func (u *fakeUnread) Refresh(ctx context.Context) { u.refreshes++ }

type fakeUploader struct {
	url, contentType string
	body             []byte
	err              error
}

func (u *fakeUploader) Upload(ctx context.Context, url, contentType string, body io.Reader) error {
	u.url, u.contentType = url, contentType
	u.body, _ = io.ReadAll(body)
	return u.err
}

type memStore struct {
	data map[string]string
}

func (m *memStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memStore) Set(ctx context.Context, key, value string) error {
	m.data[key] = value
	return nil
}

func (m *memStore) Delete(ctx context.Context, key string) error {
	delete(m.data, key)
	return nil
}

func (m *memStore) List(ctx context.Context) (map[string]string, error) {
	return m.data, nil
}

type testApp struct {
	*App
	api      *fakeAPI
	session  *session.Session
	store    *memStore
	pres     *fakePresence
	typ      *fakeTyping
	unr      *fakeUnread
	uploader *fakeUploader
	out      *bytes.Buffer
}

func newTestApp(t *testing.T, input string) *testApp {
	t.Helper()
	sess := session.New()
	ta := &testApp{
		api:      &fakeAPI{sess: sess},
		session:  sess,
		store:    &memStore{data: map[string]string{}},
		pres:     &fakePresence{},
		typ:      &fakeTyping{snap: map[string]bool{}},
		unr:      &fakeUnread{},
		uploader: &fakeUploader{},
		out:      &bytes.Buffer{},
	}
	ta.App = &App{
		logger:   logging.Nop{},
		api:      ta.api,
		sess:     sess,
		store:    ta.store,
		presence: ta.pres,
		typing:   ta.typ,
		unread:   ta.unr,
		state:    notify.NewState(),
		uploader: ta.uploader,
		reader:   bufio.NewReader(strings.NewReader(input)),
		out:      ta.out,
		mode:     ModeOffline,
	}
	return ta
}

func (ta *testApp) signIn(userID string) {
	ta.session.SignIn(userID, "at", "rt")
}

// stubInputs replaces the interactive prompts for the duration of the test.
func stubInputs(t *testing.T, texts []string, password string) {
	t.Helper()
	origST, origGP := getSimpleText, getPassword
	t.Cleanup(func() {
		getSimpleText = origST
		getPassword = origGP
	})

	getSimpleText = func(_ *bufio.Reader, _ string, _ io.Writer) (string, error) {
		if len(texts) == 0 {
			return "", io.EOF
		}
		s := texts[0]
		texts = texts[1:]
		return s, nil
	}
	getPassword = func(_ io.Writer) ([]byte, error) { return []byte(password), nil }
}
