package middleware

import (
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/m3rciful/attendobot/core/logger"
	tghelpers "github.com/m3rciful/attendobot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// ErrPanic is returned for an update whose handler panicked.
type ErrPanic struct {
	Value any
}

func (e *ErrPanic) Error() string { return fmt.Sprintf("handler panic: %v", e.Value) }

// Code implements the error code contract used by handler logs.
func (e *ErrPanic) Code() string { return "panic" }

// RecoverMiddleware turns a handler panic into an *ErrPanic and logs the stack.
func RecoverMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) (err error) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			logger.Error(tghelpers.BuildContext(c), "tg", "panic",
				slog.Any("err", r),
				slog.String("stack", string(debug.Stack())),
			)
			err = &ErrPanic{Value: r}
		}()
		return next(c)
	}
}
