package flow

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/m3rciful/attendobot/core/logger"
	"github.com/m3rciful/attendobot/core/telegram/callbacks"
	"github.com/m3rciful/attendobot/internal/backend"
	"github.com/m3rciful/attendobot/internal/session"
	"github.com/pkg/errors"
)

const audioPattern = "attendo-audio-*"

func (e *Engine) startUpload(ctx context.Context, sess *session.Session, u Update) error {
	var subjects []backend.Subject
	err := e.authed(ctx, sess, u, func(ctx context.Context, token string) error {
		var err error
		subjects, err = e.api.Subjects(ctx, token)
		return err
	})
	if err != nil {
		if errors.Is(err, errExpired) {
			return nil
		}
		logger.Warn(ctx, "bot.upload", "subjects.fail", slog.String("error_code", backend.Kind(err)))
		e.send(ctx, u, Message{Text: textSubjectsFailed})
		return nil
	}
	if len(subjects) == 0 {
		e.send(ctx, u, Message{Text: textNoSubjects})
		return nil
	}
	if err := sess.Goto(session.TeacherAwaitingSubject); err != nil {
		return err
	}
	sess.Draft = &session.UploadDraft{}
	e.send(ctx, u, subjectsMessage(subjects))
	return nil
}

func (e *Engine) onSubject(ctx context.Context, sess *session.Session, u Update) error {
	id, err := callbacks.Int64(u.Action.Payload)
	if err != nil {
		logger.Debug(ctx, "bot.upload", "subject.invalid", slog.String("cb_data", u.Action.Payload))
		return nil
	}
	if err := sess.Goto(session.TeacherAwaitingAudio); err != nil {
		return err
	}
	if sess.Draft == nil {
		sess.Draft = &session.UploadDraft{}
	}
	sess.Draft.SubjectID = id
	e.edit(ctx, u, prompt(textAskAudio))
	return nil
}

// onAudio downloads the attachment to a temporary file owned by the draft.
// The file is removed on every failure path and, later, when the draft is closed.
func (e *Engine) onAudio(ctx context.Context, sess *session.Session, u Update) error {
	if u.Media == nil {
		e.send(ctx, u, Message{Text: textAudioReminder})
		return nil
	}
	e.send(ctx, u, Message{Text: textDownloading})

	path, err := e.download(ctx, u.Media)
	if err != nil {
		logger.Warn(ctx, "bot.upload", "audio.download_fail",
			slog.String("err", err.Error()),
			slog.String("media", string(u.Media.Kind)),
		)
		e.send(ctx, u, Message{Text: textDownloadFailed})
		return nil
	}
	if err := sess.Goto(session.TeacherAwaitingTitle); err != nil {
		_ = os.Remove(path)
		return err
	}
	if sess.Draft == nil {
		sess.Draft = &session.UploadDraft{}
	}
	if err := sess.Draft.Close(); err != nil {
		logger.Warn(ctx, "session", "draft.release_failed", slog.String("err", err.Error()))
	}
	sess.Draft.AudioPath = path
	e.send(ctx, u, prompt(textAskTitle))
	return nil
}

func (e *Engine) download(ctx context.Context, m *Media) (string, error) {
	f, err := os.CreateTemp(e.opts.TempDir, audioPattern+audioExt(m))
	if err != nil {
		return "", errors.Wrap(err, "create temp file")
	}
	path := f.Name()
	err = e.chat.Download(ctx, m.FileID, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return "", errors.Wrap(err, "download audio")
	}
	return path, nil
}

// audioExt keeps the sender's extension; voice notes are always OGG/Opus.
func audioExt(m *Media) string {
	if m.Kind == MediaVoice {
		return ".ogg"
	}
	if ext := filepath.Ext(m.FileName); ext != "" && !strings.ContainsAny(ext, `/\*`) {
		return strings.ToLower(ext)
	}
	switch m.MIME {
	case "audio/mpeg":
		return ".mp3"
	case "audio/ogg":
		return ".ogg"
	case "audio/mp4", "audio/x-m4a":
		return ".m4a"
	case "audio/wav", "audio/x-wav":
		return ".wav"
	}
	return ".bin"
}

func (e *Engine) onTitle(ctx context.Context, sess *session.Session, u Update) error {
	title := strings.TrimSpace(u.Text)
	if title == "" {
		e.send(ctx, u, prompt(textAskTitle))
		return nil
	}
	if err := sess.Goto(session.TeacherAwaitingDescription); err != nil {
		return err
	}
	sess.Draft.Title = title
	e.send(ctx, u, prompt(textAskDescription))
	return nil
}

func (e *Engine) onDescription(ctx context.Context, sess *session.Session, u Update) error {
	desc := strings.TrimSpace(u.Text)
	if desc == "" {
		e.send(ctx, u, prompt(textAskDescription))
		return nil
	}
	if err := sess.Goto(session.TeacherAwaitingContentType); err != nil {
		return err
	}
	sess.Draft.Description = desc
	e.send(ctx, u, contentTypeMessage())
	return nil
}

func (e *Engine) onContentType(ctx context.Context, sess *session.Session, u Update) error {
	ct, ok := session.ParseContentType(u.Action.Payload)
	if !ok {
		logger.Debug(ctx, "bot.upload", "content_type.invalid", slog.String("cb_data", u.Action.Payload))
		return nil
	}
	if err := sess.Goto(session.TeacherAwaitingCount); err != nil {
		return err
	}
	sess.Draft.ContentType = ct
	e.edit(ctx, u, prompt(textAskCount))
	return nil
}

// parseCount falls back to defaultCount for anything but a positive integer.
func parseCount(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return defaultCount
	}
	return n
}

// onCount finishes the wizard: upload, then generate. Whatever happens the
// draft is released and the teacher lands back on the menu.
func (e *Engine) onCount(ctx context.Context, sess *session.Session, u Update) error {
	if u.Media != nil {
		e.send(ctx, u, prompt(textAskCount))
		return nil
	}
	draft := sess.Draft
	draft.Count = parseCount(u.Text)
	e.send(ctx, u, Message{Text: textUploading})

	defer func() {
		e.clearFlow(ctx, sess)
		if sess.LoggedIn() {
			e.send(ctx, u, menuMessage(sess.Role))
		}
	}()

	var audioID int64
	err := e.authed(ctx, sess, u, func(ctx context.Context, token string) error {
		var err error
		audioID, err = e.api.UploadAudio(ctx, token, backend.Upload{
			AudioPath:   draft.AudioPath,
			Title:       draft.Title,
			Description: draft.Description,
			SubjectID:   draft.SubjectID,
		})
		return err
	})
	if err != nil {
		if errors.Is(err, errExpired) {
			return nil
		}
		logger.Warn(ctx, "bot.upload", "upload.fail", slog.String("error_code", backend.Kind(err)))
		e.send(ctx, u, Message{Text: fmt.Sprintf(textUploadFailed, backend.Reason(err))})
		return nil
	}

	var res backend.GenerateResult
	err = e.authed(ctx, sess, u, func(ctx context.Context, token string) error {
		var err error
		res, err = e.api.Generate(ctx, token, backend.GenerateRequest{
			ContentType: string(draft.ContentType),
			AudioID:     audioID,
			Count:       draft.Count,
			SubjectID:   draft.SubjectID,
		})
		return err
	})
	if err != nil {
		if errors.Is(err, errExpired) {
			return nil
		}
		logger.Warn(ctx, "bot.upload", "generate.fail",
			slog.String("error_code", backend.Kind(err)),
			slog.Int64("audio_id", audioID),
		)
		e.send(ctx, u, Message{Text: fmt.Sprintf(textGenerationFailed, backend.Reason(err))})
		return nil
	}
	logger.Info(ctx, "bot.upload", "generate.ok",
		slog.Int64("audio_id", audioID),
		slog.String("content_type", string(draft.ContentType)),
		slog.Int("count", draft.Count),
	)
	e.send(ctx, u, Message{Text: generatedText(draft.ContentType, res)})
	return nil
}
