package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/dmitrijs2005/pulse/internal/client/chatstatus"
	"github.com/dmitrijs2005/pulse/internal/client/client"
	"github.com/dmitrijs2005/pulse/internal/client/config"
	"github.com/dmitrijs2005/pulse/internal/client/notify"
	"github.com/dmitrijs2005/pulse/internal/client/presence"
	"github.com/dmitrijs2005/pulse/internal/client/pushtoken"
	"github.com/dmitrijs2005/pulse/internal/client/session"
	"github.com/dmitrijs2005/pulse/internal/client/socket"
	"github.com/dmitrijs2005/pulse/internal/client/typing"
	"github.com/dmitrijs2005/pulse/internal/client/unread"
	"github.com/dmitrijs2005/pulse/internal/filex"
	"github.com/dmitrijs2005/pulse/internal/logging"
	"github.com/dmitrijs2005/pulse/internal/netx"
)

// dataDir holds the local store when the configured file has no directory.
const dataDir = "pulse-data"

// NewApp opens the local store, dials the API and assembles the realtime
// components around one session.
func NewApp(ctx context.Context, c *config.Config, l logging.Logger, in io.Reader, out io.Writer) (*App, error) {
	dsn := c.DatabaseFile
	if dsn != ":memory:" && filepath.Base(dsn) == dsn {
		dir, err := filex.EnsureSubdDir(dataDir)
		if err != nil {
			return nil, err
		}
		dsn = filepath.Join(dir, dsn)
	}

	db, err := client.InitDatabase(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("error initializing database: %w", err)
	}
	repos := client.NewRepositories(db)

	sess := session.New()
	apiClient, err := client.NewGRPCClient(c.ServerEndpointAddr, sess)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("error creating api client: %w", err)
	}

	sock := socket.NewSocket(c.RealtimeURL, l)
	pres := presence.New(func(topic string) presence.Channel { return sock.Channel(topic) }, l)
	typ := typing.New(func(topic string) typing.Channel { return sock.Channel(topic) }, c.TypingTimeout, nil, l)
	agg := unread.New(apiClient, sess, func(topic string) unread.Channel { return sock.Channel(topic) }, c.UnreadPollInterval, l)
	state := notify.NewState()
	uploader := netx.NewUploader()

	app := &App{
		logger:   l.With("module", "cli"),
		api:      apiClient,
		sess:     sess,
		store:    repos.Metadata,
		presence: pres,
		typing:   typ,
		unread:   agg,
		state:    state,
		uploader: uploader,
		reader:   bufio.NewReader(in),
		out:      out,
		mode:     ModeOffline,
	}

	status := chatstatus.New(sess, sock, pres, typ, agg, notify.NewGate(state), app, l)
	registrar := pushtoken.New(apiClient, sess, repos.Metadata, c.DeviceType, l)

	app.services = []service{status, registrar, agg}
	app.closers = []func() error{uploader.Close, apiClient.Close, db.Close}
	return app, nil
}
