// Package app assembles the matchdeck client from its configuration and runs
// it: local storage, backend transports, the engine components, the optional
// metrics endpoint and the interactive CLI.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/matchdeck/internal/client/auth"
	"github.com/dmitrijs2005/matchdeck/internal/client/chat"
	"github.com/dmitrijs2005/matchdeck/internal/client/cli"
	"github.com/dmitrijs2005/matchdeck/internal/client/client"
	"github.com/dmitrijs2005/matchdeck/internal/client/config"
	"github.com/dmitrijs2005/matchdeck/internal/client/dispatch"
	"github.com/dmitrijs2005/matchdeck/internal/client/gesture"
	"github.com/dmitrijs2005/matchdeck/internal/client/metrics"
	"github.com/dmitrijs2005/matchdeck/internal/client/notify"
	"github.com/dmitrijs2005/matchdeck/internal/client/services"
	"github.com/dmitrijs2005/matchdeck/internal/client/unmatch"
	"github.com/dmitrijs2005/matchdeck/internal/filex"
	"github.com/dmitrijs2005/matchdeck/internal/logging"
)

const shutdownTimeout = 3 * time.Second

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	metrics *metrics.Metrics
	cli     *cli.App
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	logger := logging.NewTextLogger(os.Stderr, c.LogLevel)

	if _, err := filex.EnsureParentDir(c.DBPath); err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	db, err := client.InitDatabase(ctx, c.DBPath)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	repos := client.NewRepositories(db)

	creds := auth.NewStaticCredentials(c.CSRFToken, c.AccessToken)
	api, err := client.NewHTTPClient(c.BaseURL, creds,
		client.WithTimeout(c.RequestTimeout),
		client.WithLogger(logger),
		client.WithEndpoints(client.Endpoints{Unmatch: c.UnmatchPath}),
	)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	dialer, err := client.NewWSDialer(c.WSBase(), creds, c.RequestTimeout)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	m := metrics.New()
	console := cli.NewConsole(os.Stdout)
	notices := services.NewNoticeBoard(console.OnNotice)

	chats := services.NewChatService(dialer, api, c.UserID, logger.With("module", "chat"),
		chat.WithDedupEchoes(c.DedupEchoes),
		chat.WithSenderID(c.IncludeSenderID),
		chat.WithMessageHandler(console.OnMessage),
		chat.WithStateHandler(console.OnConnectionState),
		chat.WithLogger(logger.With("module", "chat")),
		chat.WithMetrics(m),
	)
	notifier := notify.New(
		notify.WithNavigator(chats),
		notify.WithShowHandler(console.OnMatch),
		notify.WithLogger(logger.With("module", "notify")),
	)
	disp := dispatch.New(api,
		dispatch.WithMatchSink(notifier),
		dispatch.WithNoticeSink(notices),
		dispatch.WithJournal(repos.Decisions),
		dispatch.WithMetrics(m),
		dispatch.WithLogger(logger.With("module", "dispatch")),
		dispatch.WithTimeout(c.RequestTimeout),
	)
	swipe := services.NewSwipeService(api, disp,
		services.WithDecisionJournal(repos.Decisions),
		services.WithPreferences(repos.Metadata),
		services.WithThresholds(gesture.Thresholds{Distance: c.DistanceThreshold, Velocity: c.VelocityThreshold}),
		services.WithVisibleDepth(c.VisibleDepth),
		services.WithResurfacePolicy(c.ResurfacePolicy),
		services.WithEmptyHandler(console.OnDeckEmpty),
		services.WithSwipeMetrics(m),
		services.WithSwipeLogger(logger.With("module", "swipe")),
	)
	if err := swipe.Restore(ctx); err != nil {
		logger.Warn(ctx, "restoring decisions failed", "error", err)
	}
	um := unmatch.New(api,
		unmatch.WithPromptHandler(console.OnUnmatchPrompt),
		unmatch.WithRemovedHandler(func(targetID string) {
			swipe.Remove(targetID)
			console.OnUnmatched(targetID)
		}),
		unmatch.WithNoticeSink(notices),
		unmatch.WithMetrics(m),
		unmatch.WithLogger(logger.With("module", "unmatch")),
	)

	ui, err := cli.NewApp(cli.Deps{
		Swipe:     swipe,
		Chats:     chats,
		Notifier:  notifier,
		Unmatch:   um,
		Notices:   notices,
		Directory: api,
		UserID:    c.UserID,
		Creds:     creds,
		Console:   console,
		Logger:    logger,
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &App{config: c, logger: logger, db: db, metrics: m, cli: ui}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// startMetricsServer serves /metrics until ctx is done.
func (app *App) startMetricsServer(ctx context.Context) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", app.metrics.Handler())
	srv := &http.Server{Addr: app.config.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(sctx)
	}()

	app.logger.Info(ctx, "Starting metrics server", "address", app.config.MetricsAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, "metrics server failed", "error", err)
	}
}

// Run blocks until the user leaves the REPL or a termination signal arrives.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup
	if app.config.MetricsAddr != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.startMetricsServer(ctx)
		}()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		app.cli.Run(ctx)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		app.logger.Info(ctx, "Stopping...")
	}
	cancelFunc()
	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "closing database failed", "error", err)
	}
}
