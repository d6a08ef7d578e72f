// Package flow implements the per-user conversation engine: login, the
// teacher upload wizard, flashcard review and quizzes.
package flow

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/m3rciful/attendobot/core/logger"
	"github.com/m3rciful/attendobot/internal/backend"
	"github.com/m3rciful/attendobot/internal/session"

	tele "gopkg.in/telebot.v4"
)

// Message is an outbound chat message.
type Message struct {
	Text   string
	Markup *tele.ReplyMarkup
	// Markdown selects MarkdownV2; Text must be escaped accordingly.
	Markdown bool
}

// Chat delivers messages to users.
type Chat interface {
	Send(ctx context.Context, chatID int64, msg Message) error
	Edit(ctx context.Context, ref tele.Editable, msg Message) error
	Delete(ctx context.Context, ref tele.Editable) error
	Download(ctx context.Context, fileID string, w io.Writer) error
}

// Backend is the subset of the Attendo API the flows call.
type Backend interface {
	Login(ctx context.Context, username, password string) (backend.Tokens, error)
	Refresh(ctx context.Context, refresh string) (backend.Tokens, error)
	Subjects(ctx context.Context, token string) ([]backend.Subject, error)
	UploadAudio(ctx context.Context, token string, up backend.Upload) (int64, error)
	Generate(ctx context.Context, token string, req backend.GenerateRequest) (backend.GenerateResult, error)
	NewCards(ctx context.Context, token string) ([]backend.Card, error)
	DueCards(ctx context.Context, token string) ([]backend.Card, error)
	Swipe(ctx context.Context, token string, cardID int64, dir backend.SwipeDirection) error
	Review(ctx context.Context, token string, cardID int64, wasCorrect bool) error
	Quizzes(ctx context.Context, token string) ([]backend.QuizSummary, error)
	Quiz(ctx context.Context, token string, id int64) (backend.Quiz, error)
	CompleteQuiz(ctx context.Context, token string, id int64, score float64) error
}

// Sessions stores session records.
type Sessions interface {
	Get(id int64) (session.Session, bool)
	GetOrCreate(id int64) session.Session
	Save(sess session.Session)
	ClearFlow(id int64)
	Count() map[session.Step]int
}

// MediaKind tells how an attachment was sent.
type MediaKind string

const (
	MediaVoice    MediaKind = "voice"
	MediaAudio    MediaKind = "audio"
	MediaDocument MediaKind = "document"
)

// Media is an inbound attachment.
type Media struct {
	Kind     MediaKind
	FileID   string
	FileName string
	MIME     string
}

// Action is a decoded button tap.
type Action struct {
	Key     string
	Payload string
}

// Update is an inbound event decoded once at the transport boundary.
type Update struct {
	UserID int64
	ChatID int64
	Text   string
	Media  *Media
	Action Action
	// Ref points at the message the update came with: the user's own
	// message for text and media, the bot message for button taps.
	Ref tele.Editable
}

// Options tunes the engine.
type Options struct {
	// TempDir receives downloaded audio; empty means os.TempDir().
	TempDir string
	// RefreshSkew is how close to expiry an access token is refreshed ahead of a call.
	RefreshSkew time.Duration
	Now         func() time.Time
}

type handler func(ctx context.Context, sess *session.Session, u Update) error

type action struct {
	component string
	run       handler
	// steps gates the action; empty allows every step.
	steps []session.Step
	// busy is sent when the action is tapped outside its steps.
	busy bool
}

// Engine routes updates to flow steps. Callers serialize updates per user;
// the transport does so with the store's identity lock.
type Engine struct {
	sessions Sessions
	api      Backend
	chat     Chat
	opts     Options

	steps   map[session.Step]handler
	actions map[string]action
}

// New wires an Engine.
func New(sessions Sessions, api Backend, chat Chat, opts Options) *Engine {
	if opts.TempDir == "" {
		opts.TempDir = os.TempDir()
	}
	if opts.RefreshSkew <= 0 {
		opts.RefreshSkew = 30 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	e := &Engine{sessions: sessions, api: api, chat: chat, opts: opts}

	e.steps = map[session.Step]handler{
		session.AwaitingUsername:           e.onUsername,
		session.AwaitingPassword:           e.onPassword,
		session.TeacherAwaitingSubject:     e.remindButtons,
		session.TeacherAwaitingAudio:       e.onAudio,
		session.TeacherAwaitingTitle:       e.onTitle,
		session.TeacherAwaitingDescription: e.onDescription,
		session.TeacherAwaitingContentType: e.remindButtons,
		session.TeacherAwaitingCount:       e.onCount,
		session.StudentInLearning:          e.remindButtons,
		session.StudentInReview:            e.remindButtons,
		session.StudentInQuiz:              e.remindButtons,
	}

	e.actions = map[string]action{
		KeyRole:    {component: "bot.auth", run: e.onRole},
		KeyCancel:  {component: "bot", run: e.onCancel},
		KeyMenu:    {component: "bot", run: e.onMenu, steps: []session.Step{session.NoFlow}, busy: true},
		KeySubject: {component: "bot.upload", run: e.onSubject, steps: []session.Step{session.TeacherAwaitingSubject}},
		KeyContent: {component: "bot.upload", run: e.onContentType, steps: []session.Step{session.TeacherAwaitingContentType}},
		KeyCard: {component: "bot.review", run: e.onCard, steps: []session.Step{
			session.StudentInLearning, session.StudentInReview,
		}},
		KeyQuiz:   {component: "bot.quiz", run: e.onQuizSelected, steps: []session.Step{session.NoFlow}, busy: true},
		KeyAnswer: {component: "bot.quiz", run: e.onAnswer, steps: []session.Step{session.StudentInQuiz}},
	}
	return e
}

// ActionKeys lists the callback keys the engine handles.
func (e *Engine) ActionKeys() []string {
	keys := make([]string, 0, len(e.actions))
	for k := range e.actions {
		keys = append(keys, k)
	}
	return keys
}

// InProgress reports whether the user is inside a flow.
func (e *Engine) InProgress(userID int64) bool {
	sess, ok := e.sessions.Get(userID)
	return ok && sess.Step != session.NoFlow
}

// HandleMessage feeds text or media to the user's current step.
func (e *Engine) HandleMessage(ctx context.Context, u Update) error {
	return e.run(ctx, u, "bot", func(ctx context.Context, sess *session.Session, u Update) error {
		h, ok := e.steps[sess.Step]
		if !ok {
			logger.Debug(ctx, "bot", "message.no_step", slog.String("step", string(sess.Step)))
			return nil
		}
		return h(ctx, sess, u)
	})
}

// HandleAction runs the handler registered for a button tap, if the
// user's current step allows it.
func (e *Engine) HandleAction(ctx context.Context, u Update) error {
	act, ok := e.actions[u.Action.Key]
	if !ok {
		logger.Debug(ctx, "bot", "action.unknown", slog.String("cb_key", u.Action.Key))
		return nil
	}
	return e.run(ctx, u, act.component, func(ctx context.Context, sess *session.Session, u Update) error {
		if !allowed(act.steps, sess.Step) {
			logger.Debug(ctx, act.component, "action.gated",
				slog.String("cb_key", u.Action.Key),
				slog.String("step", string(sess.Step)),
			)
			if act.busy {
				e.send(ctx, u, Message{Text: textFinishFirst})
			}
			return nil
		}
		return act.run(ctx, sess, u)
	})
}

func allowed(steps []session.Step, step session.Step) bool {
	if len(steps) == 0 {
		return true
	}
	for _, s := range steps {
		if s == step {
			return true
		}
	}
	return false
}

// run loads the session, applies h to a copy and saves it back.
func (e *Engine) run(ctx context.Context, u Update, component string, h handler) error {
	sess := e.sessions.GetOrCreate(u.UserID)
	prev := sess.Step
	ctx = logger.WithStep(ctx, string(prev))
	err := h(ctx, &sess, u)
	e.sessions.Save(sess)
	if sess.Step != prev {
		logger.Debug(ctx, component, "step.changed",
			slog.String("step", string(sess.Step)),
			slog.String("prev_step", string(prev)),
		)
	}
	return err
}

// send delivers msg to the update's chat; failures are logged only.
func (e *Engine) send(ctx context.Context, u Update, msg Message) {
	if err := e.chat.Send(ctx, u.ChatID, msg); err != nil {
		logger.Warn(ctx, "bot", "send.fail", slog.String("err", err.Error()))
	}
}

func (e *Engine) edit(ctx context.Context, u Update, msg Message) {
	if u.Ref == nil {
		e.send(ctx, u, msg)
		return
	}
	if err := e.chat.Edit(ctx, u.Ref, msg); err != nil {
		logger.Warn(ctx, "bot", "edit.fail", slog.String("err", err.Error()))
	}
}

// deleteRef removes the message the update refers to.
func (e *Engine) deleteRef(ctx context.Context, u Update) {
	if u.Ref == nil {
		return
	}
	if err := e.chat.Delete(ctx, u.Ref); err != nil {
		logger.Warn(ctx, "bot", "delete.fail", slog.String("err", err.Error()))
	}
}

// clearFlow ends the current flow and releases the draft.
func (e *Engine) clearFlow(ctx context.Context, sess *session.Session) {
	if err := sess.ClearFlow(); err != nil {
		logger.Warn(ctx, "session", "draft.release_failed", slog.String("err", err.Error()))
	}
}

func (e *Engine) remindButtons(ctx context.Context, _ *session.Session, u Update) error {
	e.send(ctx, u, Message{Text: textUseButtons})
	return nil
}
