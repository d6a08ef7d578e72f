package flow

import (
	"context"
	"log/slog"
	"strings"

	"github.com/m3rciful/attendobot/core/logger"
	"github.com/m3rciful/attendobot/internal/backend"
	"github.com/m3rciful/attendobot/internal/session"
	"github.com/pkg/errors"
)

// errExpired is returned by authed after the session was logged out
// because its tokens could not be renewed. The user has been told.
var errExpired = errors.New("flow: session expired")

func (e *Engine) onRole(ctx context.Context, sess *session.Session, u Update) error {
	role, ok := session.ParseRole(u.Action.Payload)
	if !ok {
		logger.Debug(ctx, "bot.auth", "role.invalid", slog.String("cb_data", u.Action.Payload))
		return nil
	}
	e.clearFlow(ctx, sess)
	sess.Logout()
	sess.Role = role
	if err := sess.Goto(session.AwaitingUsername); err != nil {
		return err
	}
	e.edit(ctx, u, prompt(textAskUsername))
	return nil
}

func (e *Engine) onUsername(ctx context.Context, sess *session.Session, u Update) error {
	name := strings.TrimSpace(u.Text)
	if name == "" {
		e.send(ctx, u, prompt(textAskUsername))
		return nil
	}
	sess.PendingUsername = name
	if err := sess.Goto(session.AwaitingPassword); err != nil {
		return err
	}
	e.send(ctx, u, prompt(textAskPassword))
	return nil
}

// onPassword never logs or echoes the password; the user's message is
// deleted before the backend is called.
func (e *Engine) onPassword(ctx context.Context, sess *session.Session, u Update) error {
	e.deleteRef(ctx, u)
	if u.Text == "" {
		e.send(ctx, u, prompt(textAskPassword))
		return nil
	}

	username := sess.PendingUsername
	sess.PendingUsername = ""
	tokens, err := e.api.Login(ctx, username, u.Text)
	if err != nil {
		logger.Warn(ctx, "bot.auth", "login.fail",
			slog.String("error_code", backend.Kind(err)),
			slog.String("role", string(sess.Role)),
		)
		if err := sess.Goto(session.AwaitingUsername); err != nil {
			return err
		}
		e.send(ctx, u, Message{Text: textLoginFailed})
		e.send(ctx, u, prompt(textAskUsername))
		return nil
	}

	sess.AuthToken = tokens.Access
	sess.RefreshToken = tokens.Refresh
	if err := sess.Goto(session.NoFlow); err != nil {
		return err
	}
	logger.Info(ctx, "bot.auth", "login.ok", slog.String("role", string(sess.Role)))
	e.send(ctx, u, menuMessage(sess.Role))
	return nil
}

// authed runs call with a usable access token. A token close to expiry is
// refreshed first, and a 401 is retried once after a refresh. When the
// tokens cannot be renewed the session is logged out and errExpired is
// returned.
func (e *Engine) authed(ctx context.Context, sess *session.Session, u Update, call func(ctx context.Context, token string) error) error {
	if !sess.LoggedIn() {
		e.clearFlow(ctx, sess)
		e.send(ctx, u, Message{Text: textLoginFirst})
		e.send(ctx, u, welcomeMessage())
		return errExpired
	}
	if backend.ExpiresWithin(sess.AuthToken, e.opts.RefreshSkew, e.opts.Now()) {
		if !e.refresh(ctx, sess) {
			return e.expire(ctx, sess, u)
		}
	}

	err := call(ctx, sess.AuthToken)
	if !errors.Is(err, backend.ErrUnauthorized) {
		return err
	}
	if !e.refresh(ctx, sess) {
		return e.expire(ctx, sess, u)
	}
	err = call(ctx, sess.AuthToken)
	if errors.Is(err, backend.ErrUnauthorized) {
		return e.expire(ctx, sess, u)
	}
	return err
}

func (e *Engine) refresh(ctx context.Context, sess *session.Session) bool {
	if sess.RefreshToken == "" {
		return false
	}
	tokens, err := e.api.Refresh(ctx, sess.RefreshToken)
	if err != nil {
		logger.Warn(ctx, "bot.auth", "refresh.fail", slog.String("error_code", backend.Kind(err)))
		return false
	}
	sess.AuthToken = tokens.Access
	sess.RefreshToken = tokens.Refresh
	logger.Debug(ctx, "bot.auth", "refresh.ok")
	return true
}

func (e *Engine) expire(ctx context.Context, sess *session.Session, u Update) error {
	e.clearFlow(ctx, sess)
	sess.Logout()
	e.send(ctx, u, Message{Text: textExpired})
	e.send(ctx, u, welcomeMessage())
	return errExpired
}

// done maps errExpired to nil; the user has already been answered.
func done(err error) error {
	if errors.Is(err, errExpired) {
		return nil
	}
	return err
}
