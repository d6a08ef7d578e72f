package flow

import (
	"context"
	"io"
	"strings"

	"github.com/m3rciful/attendobot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/attendobot/core/telegram/helpers"
	"github.com/m3rciful/attendobot/core/telegram/middleware"
	"github.com/m3rciful/attendobot/internal/session"
	"github.com/pkg/errors"

	tele "gopkg.in/telebot.v4"
)

// BotAPI is the part of *tele.Bot the chat adapter needs.
type BotAPI interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
	Edit(msg tele.Editable, what interface{}, opts ...interface{}) (*tele.Message, error)
	Delete(msg tele.Editable) error
	File(file *tele.File) (io.ReadCloser, error)
}

// ErrNotBound is returned by a TelegramChat that has no bot yet.
var ErrNotBound = errors.New("flow: telegram chat not bound to a bot")

// TelegramChat implements Chat on top of the bot API. Sends and edits go
// through the shared dispatcher keyed by chat; downloads run inline.
type TelegramChat struct {
	api BotAPI
}

// NewTelegramChat wraps api, which may be nil until Bind is called.
func NewTelegramChat(api BotAPI) *TelegramChat {
	return &TelegramChat{api: api}
}

// Bind attaches the bot. It must happen before updates are processed;
// the runtime does so from its start hook.
func (t *TelegramChat) Bind(api BotAPI) {
	t.api = api
}

type teleCtxKey struct{}

func withTeleContext(ctx context.Context, c tele.Context) context.Context {
	return context.WithValue(ctx, teleCtxKey{}, c)
}

// countMessage feeds the per-update message counters when ctx came from an update.
func countMessage(ctx context.Context, msg Message) {
	if c, ok := ctx.Value(teleCtxKey{}).(tele.Context); ok {
		middleware.CountMessage(c, msg.Markup != nil)
	}
}

func sendOptions(msg Message) *tele.SendOptions {
	opts := &tele.SendOptions{ReplyMarkup: msg.Markup}
	if msg.Markdown {
		opts.ParseMode = tele.ModeMarkdownV2
	}
	return opts
}

func (t *TelegramChat) Send(ctx context.Context, chatID int64, msg Message) error {
	if t.api == nil {
		return ErrNotBound
	}
	countMessage(ctx, msg)
	opts := sendOptions(msg)
	return tghelpers.Dispatch(ctx, chatID, "send", "sendMessage", func() error {
		_, err := t.api.Send(tele.ChatID(chatID), msg.Text, opts)
		return err
	})
}

func (t *TelegramChat) Edit(ctx context.Context, ref tele.Editable, msg Message) error {
	if t.api == nil {
		return ErrNotBound
	}
	countMessage(ctx, msg)
	_, chatID := ref.MessageSig()
	opts := sendOptions(msg)
	return tghelpers.Dispatch(ctx, chatID, "edit", "editMessageText", func() error {
		_, err := t.api.Edit(ref, msg.Text, opts)
		return err
	})
}

func (t *TelegramChat) Delete(ctx context.Context, ref tele.Editable) error {
	if t.api == nil {
		return ErrNotBound
	}
	_, chatID := ref.MessageSig()
	return tghelpers.Dispatch(ctx, chatID, "delete", "deleteMessage", func() error {
		return t.api.Delete(ref)
	})
}

func (t *TelegramChat) Download(ctx context.Context, fileID string, w io.Writer) error {
	if t.api == nil {
		return ErrNotBound
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	rc, err := t.api.File(&tele.File{FileID: fileID})
	if err != nil {
		return errors.Wrap(err, "get file")
	}
	defer rc.Close()
	if _, err := io.Copy(w, rc); err != nil {
		return errors.Wrap(err, "copy file")
	}
	return nil
}

// Telegram adapts the engine to telebot handlers and the router contracts.
type Telegram struct {
	engine *Engine
	chat   Chat
}

// NewTelegram binds engine to handlers that answer through chat.
func NewTelegram(engine *Engine, chat Chat) *Telegram {
	return &Telegram{engine: engine, chat: chat}
}

// toUpdate decodes a telebot update once; handlers never touch tele.Context.
func toUpdate(c tele.Context) Update {
	var u Update
	if s := c.Sender(); s != nil {
		u.UserID = s.ID
	}
	if ch := c.Chat(); ch != nil {
		u.ChatID = ch.ID
	} else {
		u.ChatID = u.UserID
	}

	if cb := c.Callback(); cb != nil {
		u.Action.Key, u.Action.Payload = callbacks.ParseCallbackData(cb)
		if cb.Message != nil {
			u.Ref = cb.Message
		}
		return u
	}

	msg := c.Message()
	if msg == nil {
		return u
	}
	u.Text = msg.Text
	u.Ref = msg
	u.Media = mediaOf(msg)
	return u
}

func mediaOf(msg *tele.Message) *Media {
	switch {
	case msg.Voice != nil:
		return &Media{Kind: MediaVoice, FileID: msg.Voice.FileID, MIME: msg.Voice.MIME}
	case msg.Audio != nil:
		return &Media{Kind: MediaAudio, FileID: msg.Audio.FileID, FileName: msg.Audio.FileName, MIME: msg.Audio.MIME}
	case msg.Document != nil && strings.HasPrefix(msg.Document.MIME, "audio/"):
		return &Media{Kind: MediaDocument, FileID: msg.Document.FileID, FileName: msg.Document.FileName, MIME: msg.Document.MIME}
	}
	return nil
}

func contextFor(c tele.Context) context.Context {
	return withTeleContext(tghelpers.BuildContext(c), c)
}

// InProgress reports whether the sender is inside a flow.
func (t *Telegram) InProgress(userID int64) bool {
	return t.engine.InProgress(userID)
}

// ManagerHandler feeds text and media to the active flow.
func (t *Telegram) ManagerHandler(c tele.Context) error {
	return t.engine.HandleMessage(contextFor(c), toUpdate(c))
}

// Callback handles every button tap registered under the engine's keys.
func (t *Telegram) Callback(c tele.Context) error {
	return t.engine.HandleAction(contextFor(c), toUpdate(c))
}

// Command adapts an engine command to a telebot handler.
func (t *Telegram) Command(fn func(ctx context.Context, u Update) error) tele.HandlerFunc {
	return func(c tele.Context) error {
		return fn(contextFor(c), toUpdate(c))
	}
}

// Redact reports whether the update's text must not reach the logs:
// anything typed while the password is awaited.
func (t *Telegram) Redact(c tele.Context) bool {
	if c.Callback() != nil || c.Sender() == nil {
		return false
	}
	sess, ok := t.engine.sessions.Get(c.Sender().ID)
	return ok && sess.Step == session.AwaitingPassword
}

func (t *Telegram) reply(text string) tele.HandlerFunc {
	return func(c tele.Context) error {
		u := toUpdate(c)
		return t.chat.Send(contextFor(c), u.ChatID, Message{Text: text})
	}
}

// UnknownText answers text outside any flow.
func (t *Telegram) UnknownText() tele.HandlerFunc { return t.reply(textUnknown) }

// UnknownMedia answers attachments outside the upload wizard.
func (t *Telegram) UnknownMedia() tele.HandlerFunc { return t.reply(textUnknownMedia) }

// UnknownCallback answers taps on buttons nothing handles anymore.
func (t *Telegram) UnknownCallback() tele.HandlerFunc { return t.reply(textStaleButton) }
