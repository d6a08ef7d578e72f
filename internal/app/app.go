// Package app wires the Attendo bot: backend client, session store, flow
// engine and the Telegram runtime.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/m3rciful/attendobot/core/bootstrap"
	"github.com/m3rciful/attendobot/core/logger"
	coretelegram "github.com/m3rciful/attendobot/core/telegram"
	"github.com/m3rciful/attendobot/core/telegram/commands"
	"github.com/m3rciful/attendobot/core/telegram/format"
	"github.com/m3rciful/attendobot/core/telegram/router"
	"github.com/m3rciful/attendobot/core/telegram/ui"
	"github.com/m3rciful/attendobot/internal/backend"
	"github.com/m3rciful/attendobot/internal/flow"
	"github.com/m3rciful/attendobot/internal/session"
)

// App holds the wired services.
type App struct {
	cfg      *Config
	registry *coretelegram.Registry
	store    *session.Store
	engine   *flow.Engine
	chat     *flow.TelegramChat
	tg       *flow.Telegram
}

// Bootstrap initializes logging and builds the App.
func Bootstrap(ctx context.Context, cfg *Config) (*App, error) {
	return bootstrap.Run(ctx, bootstrap.Options[*App]{
		Config:    &cfg.Config,
		AppConfig: cfg,
		Services: bootstrap.TypedServiceProviderFunc[*App](func(_ context.Context, raw interface{}) (*App, error) {
			c, ok := raw.(*Config)
			if !ok {
				return nil, fmt.Errorf("app: unexpected config type %T", raw)
			}
			return New(c)
		}),
	})
}

// New builds the App without touching the logger.
func New(cfg *Config) (*App, error) {
	api, err := backend.New(backend.Options{
		BaseURL: cfg.Backend.BaseURL,
		Timeout: time.Duration(cfg.Backend.TimeoutSeconds) * time.Second,
		Retries: format.Deref(cfg.Backend.Retries, defaultRetries),
	})
	if err != nil {
		return nil, err
	}

	store := session.NewStore()
	chat := flow.NewTelegramChat(nil)
	engine := flow.New(store, api, chat, flow.Options{TempDir: cfg.Audio.TempDir})
	a := &App{
		cfg:      cfg,
		registry: coretelegram.NewRegistry(),
		store:    store,
		engine:   engine,
		chat:     chat,
		tg:       flow.NewTelegram(engine, chat),
	}
	if err := a.register(); err != nil {
		return nil, err
	}
	logger.Info(logger.Background(), "app", "wired",
		slog.String("backend", api.BaseURL()),
		slog.String("audio_dir", cfg.Audio.TempDir),
	)
	return a, nil
}

func (a *App) register() error {
	tg := a.tg
	cmds := map[string]commands.Command{
		"/start":    {Handler: tg.Command(a.engine.Start), Description: "Log in or switch role"},
		"/menu":     {Handler: tg.Command(a.engine.Menu), Description: "Show your dashboard"},
		"/cancel":   {Handler: tg.Command(a.engine.Cancel), Description: "Stop the current step"},
		"/help":     {Handler: tg.Command(a.engine.Help), Description: "What can this bot do?"},
		"/logout":   {Handler: tg.Command(a.engine.Logout), Description: "Log out"},
		"/sessions": {Handler: tg.Command(a.engine.Sessions), Description: "Active sessions by step", AdminOnly: true, Hidden: true},
	}
	for name, cmd := range cmds {
		if err := a.registry.RegisterCommand(name, cmd); err != nil {
			return err
		}
	}
	for _, key := range a.engine.ActionKeys() {
		if err := a.registry.RegisterCallback(key, tg.Callback); err != nil {
			return err
		}
	}
	a.registry.SetCallbackNotFound(tg.UnknownCallback())
	return nil
}

// TelegramRunOptions assembles routes and middlewares for the runtime.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	var fallbacks ui.Fallbacks = a.tg

	routes := router.CommandRoutes(a.registry, router.CommandRouteOptions{
		AdminID: a.cfg.Telegram.AdminID,
	})
	routes = append(routes, router.CallbackRoute(a.registry, fallbacks.UnknownCallback()))
	routes = append(routes, router.TextRoutes(a.tg, a.registry, fallbacks)...)

	return coretelegram.RunOptions{
		Config:   &a.cfg.Config,
		Registry: a.registry,
		Middlewares: coretelegram.DefaultMiddlewares(coretelegram.MiddlewareOptions{
			Locker: a.store,
			Redact: a.tg.Redact,
		}),
		Routes: routes,
		OnStart: func(ctx context.Context, rt coretelegram.Runtime) error {
			if rt.Bot == nil {
				return fmt.Errorf("app: runtime has no bot")
			}
			a.chat.Bind(rt.Bot)
			logger.Info(ctx, "app", "chat.bound")
			return nil
		},
		OnStop: func(ctx context.Context, _ coretelegram.Runtime) error {
			a.store.Close()
			logger.Info(ctx, "app", "sessions.closed")
			return nil
		},
	}, nil
}
