package helpers

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/m3rciful/attendobot/core/logger"
	"github.com/m3rciful/attendobot/core/telegram/sender"
)

var globalDispatcher atomic.Pointer[sender.Dispatcher]

// SetDispatcher wires the asynchronous sender used by helper functions.
func SetDispatcher(d *sender.Dispatcher) {
	globalDispatcher.Store(d)
}

func currentDispatcher() *sender.Dispatcher {
	return globalDispatcher.Load()
}

// Dispatch runs an outbound call through the shared dispatcher, keyed by chat
// so that calls for one chat keep their order. Without a dispatcher run
// executes inline. A full queue fails the call. After the dispatcher is
// closed, run executes inline once the queued jobs have drained.
func Dispatch(ctx context.Context, chatID int64, action, endpoint string, run func() error) error {
	disp := currentDispatcher()
	if disp == nil {
		return run()
	}

	err := disp.Enqueue(ctx, chatID, action, endpoint, run)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sender.ErrQueueClosed):
		select {
		case <-disp.Drained():
		case <-ctx.Done():
			return ctx.Err()
		}
		logger.Debug(ctx, "tg.sender", "queue.closed_inline",
			slog.String("action", action),
			slog.String("endpoint", endpoint),
		)
		return run()
	case errors.Is(err, sender.ErrQueueFull):
		logger.Warn(ctx, "tg.sender", "queue.full",
			slog.String("action", action),
			slog.String("endpoint", endpoint),
			slog.Int64("chat_id", chatID),
		)
		return err
	default:
		return err
	}
}
