package bootstrap

import (
	"context"
	"fmt"

	coreconfig "github.com/m3rciful/attendobot/core/config"
	"github.com/m3rciful/attendobot/core/logger"
)

// Options control the generic bootstrap pipeline shared between bots.
type Options[T any] struct {
	Config *coreconfig.Config
	// AppConfig is handed to the service provider; usually the full bot config.
	AppConfig any

	LoggerInit func(*coreconfig.Config) error
	Services   TypedServiceProvider[T]
}

// Run initializes the logger and wires application services.
func Run[T any](ctx context.Context, opts Options[T]) (T, error) {
	var zero T
	if opts.Config == nil {
		return zero, fmt.Errorf("bootstrap: nil config provided")
	}
	if opts.Services == nil {
		return zero, fmt.Errorf("bootstrap: nil service provider")
	}

	loggerInit := opts.LoggerInit
	if loggerInit == nil {
		loggerInit = logger.InitLogger
	}
	if err := loggerInit(opts.Config); err != nil {
		return zero, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}

	appCfg := opts.AppConfig
	if appCfg == nil {
		appCfg = opts.Config
	}
	svc, err := opts.Services.ProvideTyped(ctx, appCfg)
	if err != nil {
		return zero, fmt.Errorf("bootstrap: services init failed: %w", err)
	}
	return svc, nil
}
