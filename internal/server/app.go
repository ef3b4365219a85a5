// Package server wires the Pulse backend together: storage, realtime hub,
// push relay, gRPC and HTTP transports and the background sweeper.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/pulse/internal/logging"
	"github.com/dmitrijs2005/pulse/internal/server/auth"
	"github.com/dmitrijs2005/pulse/internal/server/config"
	"github.com/dmitrijs2005/pulse/internal/server/httpapi"
	"github.com/dmitrijs2005/pulse/internal/server/hub"
	"github.com/dmitrijs2005/pulse/internal/server/push"
	"github.com/dmitrijs2005/pulse/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/pulse/internal/server/services"

	gs "github.com/dmitrijs2005/pulse/internal/server/grpc"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	hub    *hub.Hub
	sender *push.ExpoSender

	userService         *services.UserService
	messageService      *services.MessageService
	notificationService *services.NotificationService
	pushService         *services.PushService
	pulseService        *services.PulseService
}

func NewApp(c *config.Config) (*App, error) {

	logger := logging.NewJSONLogger(os.Stdout, slog.LevelInfo)

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	secret := []byte(c.SecretKey)
	h := hub.New(logger, func(token string) (string, error) {
		return auth.GetUserIDFromToken(token, secret)
	})

	sender := push.NewExpoSender(c.PushEndpoint, c.PushAccessToken)
	ps := services.NewPushService(db, rm, sender, logger)

	return &App{
		config:              c,
		logger:              logger,
		db:                  db,
		hub:                 h,
		sender:              sender,
		userService:         services.NewUserService(db, rm, c),
		messageService:      services.NewMessageService(db, rm, h, ps),
		notificationService: services.NewNotificationService(db, rm, h, ps),
		pushService:         ps,
		pulseService:        services.NewPulseService(db, rm, c, logger),
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {

	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, gs.Services{
		Users:         app.userService,
		Messages:      app.messageService,
		Notifications: app.notificationService,
		PushTokens:    app.pushService,
		Pulses:        app.pulseService,
	}, app.config.SecretKey)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {

	secret := []byte(app.config.SecretKey)
	s := httpapi.NewHTTPServer(app.config.EndpointAddrHTTP, app.logger, app.hub, app.pushService, app.db,
		app.config.FunctionKey, func(token string) (string, error) {
			return auth.GetUserIDFromToken(token, secret)
		})

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(3)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		services.RunSweeper(ctx, app.config.SweepInterval, app.logger,
			services.SweepJob{Name: "pulses", Run: app.pulseService.Sweep},
			services.SweepJob{Name: "refresh_tokens", Run: app.userService.PurgeExpiredRefreshTokens},
		)
	}()

	wg.Wait()

	app.hub.Close()
	_ = app.sender.Close()
	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err)
	}
	app.logger.Info(ctx, "Stopped")
}
