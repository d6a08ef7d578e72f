package middleware

import (
	"log/slog"
	"time"

	"github.com/m3rciful/attendobot/core/logger"
	tghelpers "github.com/m3rciful/attendobot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// KeyLocker hands out an exclusive lock per user and returns its release func.
type KeyLocker interface {
	Lock(userID int64) func()
}

// slowLock is the wait above which lock acquisition is logged.
const slowLock = 500 * time.Millisecond

// Serialize runs at most one handler per user at a time.
// Updates without a sender pass through unlocked.
func Serialize(locker KeyLocker) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			if locker == nil || user == nil {
				return next(c)
			}
			start := time.Now()
			unlock := locker.Lock(user.ID)
			defer unlock()
			if waited := time.Since(start); waited > slowLock {
				logger.Debug(tghelpers.BuildContext(c), "tg", "serialize.wait",
					slog.Int64("user_id", user.ID),
					slog.Duration("wait", logger.RoundMS(waited)),
				)
			}
			return next(c)
		}
	}
}
