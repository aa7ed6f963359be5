// Package app wires the festival bot: configuration, content loading, the
// conversation machine and the Telegram routes.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"festbot/core/bootstrap"
	coreconfig "festbot/core/config"
	coredatabase "festbot/core/database"
	"festbot/core/logger"
	coretelegram "festbot/core/telegram"
	"festbot/core/telegram/router"
	"festbot/core/telegram/state"
	"festbot/internal/content"
	"festbot/internal/conversation"

	tele "gopkg.in/telebot.v4"
)

// messageEndpoints are the non-command updates handed to the machine.
var messageEndpoints = []string{
	tele.OnText,
	tele.OnDocument,
	tele.OnPhoto,
	tele.OnSticker,
	tele.OnVoice,
	tele.OnVideo,
	tele.OnAudio,
	tele.OnAnimation,
	tele.OnVideoNote,
	tele.OnLocation,
	tele.OnContact,
}

// App holds the wired festbot components.
type App struct {
	cfg      *Config
	infra    *bootstrap.Result
	content  *content.Store
	sessions state.Store
	machine  *conversation.Machine
	registry *coretelegram.Registry
}

// Options override infrastructure hooks, mainly for tests.
type Options struct {
	LoggerInit func(*coreconfig.Config) error
	Connect    func(coredatabase.Config) (*sqlx.DB, error)
	Migrate    func(coredatabase.Config) error
}

// New bootstraps infrastructure, loads the content and builds the machine.
func New(ctx context.Context, cfg *Config, opts Options) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("app: nil config")
	}

	bopts := bootstrap.Options{
		Config:     &cfg.Config,
		LoggerInit: opts.LoggerInit,
		Connect:    opts.Connect,
		Migrate:    opts.Migrate,
	}
	if cfg.UsesDatabase() {
		bopts.Database = &cfg.Database
		if cfg.Content.SeedFile != "" {
			bopts.Modules.Seeders = append(bopts.Modules.Seeders, bootstrap.NamedSeeder{
				Name: "content",
				Seeder: bootstrap.SeederFunc(func(ctx context.Context, db *sqlx.DB) error {
					return content.NewRepository(db).SeedFile(ctx, cfg.Content.SeedFile, cfg.Content.ScheduleSection)
				}),
			})
		}
	}
	infra, err := bootstrap.Run(ctx, bopts)
	if err != nil {
		return nil, err
	}

	store, err := loadContent(ctx, cfg, infra.DB)
	if err != nil {
		_ = infra.Close()
		return nil, err
	}

	a, err := assemble(cfg, store, state.NewMemoryStore())
	if err != nil {
		_ = infra.Close()
		return nil, err
	}
	a.infra = infra
	return a, nil
}

func loadContent(ctx context.Context, cfg *Config, db *sqlx.DB) (*content.Store, error) {
	var (
		store *content.Store
		err   error
	)
	switch cfg.Content.Source {
	case SourcePostgres:
		if db == nil {
			return nil, fmt.Errorf("app: postgres content source without database")
		}
		store, err = content.NewRepository(db).Load(ctx, cfg.Content.ScheduleSection)
	default:
		store, err = content.LoadFile(cfg.Content.File, cfg.Content.ScheduleSection)
	}
	if err != nil {
		return nil, fmt.Errorf("app: load content: %w", err)
	}
	logger.Info(ctx, "app", "content.ready",
		slog.String("source", cfg.Content.Source),
		slog.Int("sections", len(store.Labels())),
		slog.Int("events", len(store.Events())),
		slog.String("timezone", cfg.Content.Location().String()),
	)
	return store, nil
}

func assemble(cfg *Config, store *content.Store, sessions state.Store) (*App, error) {
	machine, err := conversation.New(conversation.Options{
		Store:         sessions,
		Content:       store,
		Messages:      cfg.Content.Messages,
		CancelPattern: cfg.Content.CancelRegexp(),
		Location:      cfg.Content.Location(),
	})
	if err != nil {
		return nil, fmt.Errorf("app: build conversation: %w", err)
	}
	a := &App{
		cfg:      cfg,
		content:  store,
		sessions: sessions,
		machine:  machine,
		registry: coretelegram.NewRegistry(),
	}
	if err := a.registerCommands(); err != nil {
		return nil, fmt.Errorf("app: register commands: %w", err)
	}
	return a, nil
}

// TelegramRunOptions builds middlewares and routes for the Telegram runtime.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	routes := router.CommandRoutes(a.registry, router.CommandRouteOptions{
		AdminID:       a.cfg.Telegram.AdminID,
		OnAdminReject: a.handleMessage,
	})
	routes = append(routes, router.MessageRoutes(a.handleMessage, messageEndpoints...)...)

	return coretelegram.RunOptions{
		Config:      &a.cfg.Config,
		Registry:    a.registry,
		Middlewares: coretelegram.DefaultMiddlewares(&a.cfg.Config, nil),
		Routes:      routes,
		OnStop: func(ctx context.Context, _ coretelegram.Runtime) error {
			logger.Info(ctx, "app", "sessions.dropped", slog.Int("sessions", a.sessions.Len()))
			return a.Close()
		},
	}, nil
}

// Close releases the database handle, if any.
func (a *App) Close() error {
	return a.infra.Close()
}
