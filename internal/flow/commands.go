package flow

import (
	"context"
	"log/slog"

	"github.com/m3rciful/attendobot/core/logger"
	"github.com/m3rciful/attendobot/internal/session"
)

// Start resets any flow and shows the role picker.
func (e *Engine) Start(ctx context.Context, u Update) error {
	return e.run(ctx, u, "bot", func(ctx context.Context, sess *session.Session, u Update) error {
		e.clearFlow(ctx, sess)
		e.send(ctx, u, welcomeMessage())
		return nil
	})
}

// Menu shows the dashboard for the user's role.
func (e *Engine) Menu(ctx context.Context, u Update) error {
	return e.run(ctx, u, "bot", func(ctx context.Context, sess *session.Session, u Update) error {
		switch {
		case !sess.LoggedIn():
			e.send(ctx, u, Message{Text: textLoginFirst})
			e.send(ctx, u, welcomeMessage())
		case sess.Step != session.NoFlow:
			e.send(ctx, u, Message{Text: textFinishFirst})
		default:
			e.send(ctx, u, menuMessage(sess.Role))
		}
		return nil
	})
}

// Cancel abandons the current flow.
func (e *Engine) Cancel(ctx context.Context, u Update) error {
	return e.run(ctx, u, "bot", e.onCancel)
}

func (e *Engine) onCancel(ctx context.Context, sess *session.Session, u Update) error {
	if sess.Step == session.NoFlow {
		e.send(ctx, u, Message{Text: textNothingCancel})
		return nil
	}
	logger.Info(ctx, "bot", "flow.cancelled", slog.String("step", string(sess.Step)))
	e.clearFlow(ctx, sess)
	if u.Action.Key != "" {
		e.edit(ctx, u, Message{Text: textCancelled})
	} else {
		e.send(ctx, u, Message{Text: textCancelled})
	}
	if sess.LoggedIn() {
		e.send(ctx, u, menuMessage(sess.Role))
	} else {
		e.send(ctx, u, welcomeMessage())
	}
	return nil
}

// Help explains what the user's role can do.
func (e *Engine) Help(ctx context.Context, u Update) error {
	return e.run(ctx, u, "bot", func(ctx context.Context, sess *session.Session, u Update) error {
		e.send(ctx, u, Message{Text: helpText(sess.Role)})
		return nil
	})
}

// Logout drops the tokens and any flow.
func (e *Engine) Logout(ctx context.Context, u Update) error {
	return e.run(ctx, u, "bot.auth", func(ctx context.Context, sess *session.Session, u Update) error {
		e.clearFlow(ctx, sess)
		sess.Logout()
		e.send(ctx, u, Message{Text: textLoggedOut})
		e.send(ctx, u, welcomeMessage())
		return nil
	})
}

// Sessions reports how many sessions sit in each step.
func (e *Engine) Sessions(ctx context.Context, u Update) error {
	e.send(ctx, u, Message{Text: sessionsText(e.sessions.Count())})
	return nil
}

func (e *Engine) onMenu(ctx context.Context, sess *session.Session, u Update) error {
	if u.Action.Payload == menuHelp {
		e.send(ctx, u, Message{Text: helpText(sess.Role)})
		return nil
	}
	if !sess.LoggedIn() {
		e.send(ctx, u, Message{Text: textLoginFirst})
		e.send(ctx, u, welcomeMessage())
		return nil
	}

	want := session.RoleStudent
	if u.Action.Payload == menuUpload {
		want = session.RoleTeacher
	}
	if sess.Role != want {
		e.send(ctx, u, Message{Text: textWrongRole})
		return nil
	}

	switch u.Action.Payload {
	case menuUpload:
		return e.startUpload(ctx, sess, u)
	case menuLearn:
		return e.startReview(ctx, sess, u, session.ModeLearning)
	case menuReview:
		return e.startReview(ctx, sess, u, session.ModeReview)
	case menuQuiz:
		return e.listQuizzes(ctx, sess, u)
	}
	logger.Debug(ctx, "bot", "menu.invalid", slog.String("cb_data", u.Action.Payload))
	return nil
}
