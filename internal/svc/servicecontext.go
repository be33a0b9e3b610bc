package svc

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"bitor-console/internal/config"
	"bitor-console/internal/live"
	"bitor-console/internal/notify"
	"bitor-console/internal/pocketbase"
	"bitor-console/internal/refresh"
	"bitor-console/internal/server"
	"bitor-console/internal/settings"
)

// ServiceContext owns the settings store and everything that follows it.
// One is created per process; nothing here is a package level singleton.
type ServiceContext struct {
	Config *config.Config
	Logger *slog.Logger

	Settings   *settings.Store
	Repo       settings.Repository
	PocketBase *pocketbase.Client
	Hub        *live.Hub

	// Notifier and Poller are nil unless Telegram and a PocketBase user
	// are configured.
	Notifier *notify.Notifier
	Poller   *refresh.Poller

	mu       sync.Mutex
	stopSync func()
	closed   bool
}

// New wires the application from cfg
func New(cfg *config.Config, logger *slog.Logger) (*ServiceContext, error) {
	repo, err := settings.NewSQLiteRepository(cfg.Database.Path, cfg.Settings.DefaultSettings())
	if err != nil {
		return nil, fmt.Errorf("failed to open settings repository: %w", err)
	}

	var sender notify.Sender
	if cfg.Telegram.BotToken != "" {
		api, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
		if err != nil {
			repo.Close()
			return nil, fmt.Errorf("failed to create telegram bot: %w", err)
		}
		logger.Info("telegram notifications configured", "username", api.Self.UserName)
		sender = api
	}

	return newServiceContext(cfg, logger, repo, sender), nil
}

// newServiceContext assembles the context from already opened resources.
// sender may be nil.
func newServiceContext(cfg *config.Config, logger *slog.Logger, repo settings.Repository, sender notify.Sender) *ServiceContext {
	s := settings.NewStore()
	pb := pocketbase.NewClient(cfg.PocketBase, logger.With("component", "pocketbase"))

	sc := &ServiceContext{
		Config:     cfg,
		Logger:     logger,
		Settings:   s,
		Repo:       repo,
		PocketBase: pb,
		Hub:        live.NewHub(s, logger.With("component", "live")),
	}

	if sender != nil {
		sc.Notifier = notify.NewNotifier(sender, cfg.Telegram.ChatID, s, logger.With("component", "notify"))
		if cfg.PocketBase.UserID != "" {
			sc.Poller = refresh.NewPoller(pb, sc.Notifier, cfg.PocketBase.UserID,
				cfg.Refresh.DefaultInterval, logger.With("component", "refresh"))
		}
	}

	return sc
}

// Start loads persisted settings into the store, then starts persisting
// changes and the auto refresh poller
func (sc *ServiceContext) Start(ctx context.Context) error {
	stop, err := settings.Bind(ctx, sc.Settings, sc.Repo, sc.Logger.With("component", "settings"))
	if err != nil {
		return err
	}

	sc.mu.Lock()
	sc.stopSync = stop
	sc.mu.Unlock()

	// The console still serves settings while the backend is down.
	if err := sc.PocketBase.CheckHealth(ctx); err != nil {
		sc.Logger.Warn("pocketbase is not reachable", "url", sc.Config.PocketBase.BaseURL, "error", err)
	}

	if sc.Poller != nil {
		if err := sc.Poller.Start(sc.Settings); err != nil {
			return fmt.Errorf("failed to start poller: %w", err)
		}
	}
	return nil
}

// Router returns the HTTP API bound to this context
func (sc *ServiceContext) Router() http.Handler {
	return server.NewRouter(server.Options{
		Settings: sc.Settings,
		Stream:   sc.Hub.Handler(),
		Scans:    sc.PocketBase,
		Logger:   sc.Logger.With("component", "server"),
	})
}

// Close stops background work, drops the session's settings and closes the
// repository. It is safe to call more than once.
func (sc *ServiceContext) Close() {
	sc.mu.Lock()
	if sc.closed {
		sc.mu.Unlock()
		return
	}
	sc.closed = true
	stop := sc.stopSync
	sc.stopSync = nil
	sc.mu.Unlock()

	if sc.Poller != nil {
		sc.Poller.Stop()
	}
	if stop != nil {
		stop()
	}
	sc.Hub.Close()
	if sc.Notifier != nil {
		sc.Notifier.Close()
	}
	sc.Settings.Reset()

	if err := sc.Repo.Close(); err != nil {
		sc.Logger.Error("failed to close settings repository", "error", err)
	}
}
