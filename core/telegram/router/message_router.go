package router

import (
	tg "github.com/m3rciful/attendobot/core/telegram"
	"github.com/m3rciful/attendobot/core/telegram/ui"

	tele "gopkg.in/telebot.v4"
)

// FSM is the flow engine that owns in-progress conversations.
type FSM interface {
	InProgress(userID int64) bool
	ManagerHandler(c tele.Context) error
}

// TextRoutes routes text and media. Users with an active flow go to the
// FSM; other text may still name a command alias; the rest falls back.
func TextRoutes(fsm FSM, reg *tg.Registry, fb ui.Fallbacks) []tg.Route {
	if fb == nil {
		fb = ui.Silent{}
	}
	inFlow := func(c tele.Context) bool {
		return fsm != nil && c.Sender() != nil && fsm.InProgress(c.Sender().ID)
	}

	text := func(c tele.Context) error {
		if inFlow(c) {
			return handled(c, "fsm", fsm.ManagerHandler)
		}
		if reg != nil {
			if key, cmd, ok := reg.LookupCommand(c.Text()); ok && cmd.Handler != nil && !cmd.AdminOnly {
				return handled(c, handlerName(key), cmd.Handler)
			}
		}
		if h := fb.UnknownText(); h != nil {
			return handled(c, "unknown_text", h)
		}
		skipped(c, "unknown_text")
		return nil
	}

	media := func(c tele.Context) error {
		if inFlow(c) {
			return handled(c, "fsm_media", fsm.ManagerHandler)
		}
		if h := fb.UnknownMedia(); h != nil {
			return handled(c, "unexpected_media", h)
		}
		skipped(c, "unexpected_media")
		return nil
	}

	routes := []tg.Route{{Endpoint: tele.OnText, Handler: guarded(text)}}
	for _, ep := range []string{tele.OnVoice, tele.OnAudio, tele.OnDocument} {
		routes = append(routes, tg.Route{Endpoint: ep, Handler: guarded(media)})
	}
	return routes
}
