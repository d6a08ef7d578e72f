package middleware

import (
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/attendobot/core/logger"
	"github.com/m3rciful/attendobot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/attendobot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// recentUpdates keeps a short-lived set of processed update IDs to avoid double logging.
var (
	recentMu     sync.Mutex
	recentUpdate = make(map[int]time.Time)
	keepFor      = 10 * time.Second
)

func alreadyLogged(updateID int) bool {
	now := time.Now()
	recentMu.Lock()
	defer recentMu.Unlock()
	// GC old entries
	for id, ts := range recentUpdate {
		if now.Sub(ts) > keepFor {
			delete(recentUpdate, id)
		}
	}
	if _, ok := recentUpdate[updateID]; ok {
		return true
	}
	recentUpdate[updateID] = now
	return false
}

const (
	loggedKey = "update_logged"

	redactedPayload = "<redacted>"
)

// Redactor reports whether the text payload of the current update must not be logged.
type Redactor func(c tele.Context) bool

// LoggerOptions configures Logger.
type LoggerOptions struct {
	Redact Redactor
}

// LoggerMiddleware is Logger without redaction.
var LoggerMiddleware = Logger(LoggerOptions{})

// Logger logs a single receipt line per update and sets rid.
// Nested applications on the same update are no-ops, and update_id is
// deduplicated to prevent double logging across branches.
func Logger(opts LoggerOptions) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			if c.Get(loggedKey) != nil {
				return next(c)
			}
			c.Set(loggedKey, true)
			logUpdate(c, opts)
			return next(c)
		}
	}
}

func logUpdate(c tele.Context, opts LoggerOptions) {
	upd := c.Update()
	user := c.Sender()
	chat := c.Chat()
	_, chatID, userID := tghelpers.Identity(c)

	ctx := tghelpers.NewContext(c)
	rid := logger.RIDFrom(ctx)

	// Deduplicate update receipt logs
	if logger.ShouldSampleDebug() && !alreadyLogged(upd.ID) {
		attrs := []slog.Attr{
			slog.String("status", "ok"),
			slog.String("rid", rid),
			slog.Int("update_id", upd.ID),
		}
		if chatID != 0 {
			attrs = append(attrs, slog.Int64("chat_id", chatID))
			attrs = append(attrs, slog.String("chat_type", string(chat.Type)))
		}
		if userID != 0 {
			attrs = append(attrs, slog.Int64("user_id", userID))
			if user != nil && user.Username != "" {
				attrs = append(attrs, slog.String("username", logger.SanitizeLimit(user.Username, 64)))
			}
			if user != nil && user.LanguageCode != "" {
				attrs = append(attrs, slog.String("lang", user.LanguageCode))
			}
		}

		// Enrich by kind
		switch {
		case upd.Callback != nil:
			key, payload := callbacks.ParseCallbackData(upd.Callback)
			if key != "" {
				attrs = append(attrs, slog.String("cb_key", logger.SanitizeLimit(key, 128)))
			}
			if payload != "" {
				attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(payload, 256)))
			}
		case upd.Message != nil:
			if t := c.Text(); t != "" {
				attrs = append(attrs, slog.String("payload", payloadFor(c, opts, t)))
			}
		}
		logger.LogEvent(ctx, logger.Component("tg"), slog.LevelDebug, "update.received", attrs...)
	}
}

func payloadFor(c tele.Context, opts LoggerOptions, text string) string {
	if opts.Redact != nil && opts.Redact(c) {
		return redactedPayload
	}
	return logger.SanitizeLimit(text, 256)
}
