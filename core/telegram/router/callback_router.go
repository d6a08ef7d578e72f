package router

import (
	"log/slog"

	tg "github.com/m3rciful/attendobot/core/telegram"
	"github.com/m3rciful/attendobot/core/telegram/callbacks"

	tele "gopkg.in/telebot.v4"
)

// CallbackRoute dispatches button taps by the key before the first '|'.
// Unknown keys go to notFound, or to the registry default when nil.
func CallbackRoute(reg *tg.Registry, notFound tele.HandlerFunc) tg.Route {
	handler := func(c tele.Context) error {
		if c.Callback() == nil {
			return nil
		}
		key, _ := callbacks.ParseCallbackData(c.Callback())
		name := "callback." + handlerName(key)
		keyAttr := slog.String("cb_key", key)

		// Stop the client spinner before any backend work.
		_ = c.Respond()

		if h, ok := reg.GetCallback(key); ok {
			return handled(c, name, h, keyAttr)
		}
		fallback := notFound
		if fallback == nil {
			fallback = reg.CallbackNotFound()
		}
		return handled(c, name, fallback, keyAttr, slog.String("reason", "not_found"))
	}
	return tg.Route{Endpoint: tele.OnCallback, Handler: guarded(handler)}
}
