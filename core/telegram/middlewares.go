package telegram

import (
	"github.com/m3rciful/attendobot/core/telegram/middleware"
)

// MiddlewareOptions customises the shared middleware chain.
type MiddlewareOptions struct {
	// Locker serializes updates per user when set.
	Locker middleware.KeyLocker
	// Redact hides update payloads from logs for sensitive input.
	Redact middleware.Redactor
}

// DefaultMiddlewares builds the shared middleware chain for bots.
// The logger runs inside the per-user lock so that Redact observes the
// state left by the previous update of the same user.
func DefaultMiddlewares(opts MiddlewareOptions) []Middleware {
	mws := []Middleware{
		{Name: "recover", Use: middleware.RecoverMiddleware},
	}
	if opts.Locker != nil {
		mws = append(mws, Middleware{Name: "serialize", Use: middleware.Serialize(opts.Locker)})
	}
	mws = append(mws,
		Middleware{Name: "logger", Use: middleware.Logger(middleware.LoggerOptions{Redact: opts.Redact})},
		Middleware{Name: "metrics", Use: middleware.MessageMetricsMiddleware},
	)
	return mws
}
