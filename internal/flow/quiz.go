package flow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/m3rciful/attendobot/core/logger"
	"github.com/m3rciful/attendobot/core/telegram/callbacks"
	"github.com/m3rciful/attendobot/core/telegram/format"
	"github.com/m3rciful/attendobot/internal/backend"
	"github.com/m3rciful/attendobot/internal/session"
	"github.com/pkg/errors"
)

func (e *Engine) listQuizzes(ctx context.Context, sess *session.Session, u Update) error {
	var quizzes []backend.QuizSummary
	err := e.authed(ctx, sess, u, func(ctx context.Context, token string) error {
		var err error
		quizzes, err = e.api.Quizzes(ctx, token)
		return err
	})
	if err != nil {
		if errors.Is(err, errExpired) {
			return nil
		}
		logger.Warn(ctx, "bot.quiz", "list.fail", slog.String("error_code", backend.Kind(err)))
		e.send(ctx, u, Message{Text: textQuizzesFail})
		return nil
	}
	if len(quizzes) == 0 {
		e.send(ctx, u, Message{Text: textNoQuizzes})
		return nil
	}
	e.send(ctx, u, quizListMessage(quizzes))
	return nil
}

func (e *Engine) onQuizSelected(ctx context.Context, sess *session.Session, u Update) error {
	if sess.Role != session.RoleStudent {
		e.send(ctx, u, Message{Text: textWrongRole})
		return nil
	}
	id, err := callbacks.Int64(u.Action.Payload)
	if err != nil {
		logger.Debug(ctx, "bot.quiz", "quiz.invalid", slog.String("cb_data", u.Action.Payload))
		return nil
	}

	var quiz backend.Quiz
	err = e.authed(ctx, sess, u, func(ctx context.Context, token string) error {
		var err error
		quiz, err = e.api.Quiz(ctx, token, id)
		return err
	})
	if err != nil {
		if errors.Is(err, errExpired) {
			return nil
		}
		logger.Warn(ctx, "bot.quiz", "quiz.fail",
			slog.String("error_code", backend.Kind(err)),
			slog.Int64("quiz_id", id),
		)
		e.send(ctx, u, Message{Text: textQuizFailed})
		return nil
	}
	if len(quiz.Questions) == 0 {
		e.send(ctx, u, Message{Text: textQuizEmpty})
		return nil
	}

	if err := sess.Goto(session.StudentInQuiz); err != nil {
		return err
	}
	sess.Quiz = &session.QuizAttempt{Quiz: toQuiz(quiz)}
	e.edit(ctx, u, Message{Text: fmt.Sprintf(textQuizStart, quiz.Title, format.Deref(quiz.Description, ""))})
	e.send(ctx, u, questionMessage(sess.Quiz))
	return nil
}

func toQuiz(q backend.Quiz) session.Quiz {
	out := session.Quiz{
		ID:          q.ID,
		Title:       q.Title,
		Description: format.Deref(q.Description, ""),
		Questions:   make([]session.Question, 0, len(q.Questions)),
	}
	for _, qq := range q.Questions {
		out.Questions = append(out.Questions, session.Question{
			Text:          qq.Text,
			Options:       append([]string(nil), qq.Options...),
			CorrectAnswer: qq.CorrectAnswer,
		})
	}
	return out
}

// onAnswer grades the option at the tapped index. The payload is
// "<cursor>:<option index>"; answers for earlier questions are ignored.
func (e *Engine) onAnswer(ctx context.Context, sess *session.Session, u Update) error {
	attempt := sess.Quiz
	cursor, idx, err := callbacks.TwoInts(u.Action.Payload, ":")
	if err != nil || attempt == nil || cursor != attempt.Cursor {
		logger.Debug(ctx, "bot.quiz", "answer.stale", slog.String("cb_data", u.Action.Payload))
		return nil
	}
	q, ok := attempt.Current()
	if !ok || idx >= len(q.Options) {
		logger.Debug(ctx, "bot.quiz", "answer.invalid", slog.String("cb_data", u.Action.Payload))
		return nil
	}

	attempt.Answer(q.Options[idx])
	e.deleteRef(ctx, u)
	if !attempt.Done() {
		e.send(ctx, u, questionMessage(attempt))
		return nil
	}
	return e.finishQuiz(ctx, sess, u)
}

func (e *Engine) finishQuiz(ctx context.Context, sess *session.Session, u Update) error {
	attempt := sess.Quiz
	score := attempt.Percentage()
	e.send(ctx, u, Message{Text: quizDoneText(attempt)})

	err := e.authed(ctx, sess, u, func(ctx context.Context, token string) error {
		return e.api.CompleteQuiz(ctx, token, attempt.Quiz.ID, score)
	})
	if errors.Is(err, errExpired) {
		return nil
	}
	if err != nil {
		logger.Warn(ctx, "bot.quiz", "complete.fail",
			slog.String("error_code", backend.Kind(err)),
			slog.Int64("quiz_id", attempt.Quiz.ID),
		)
	}
	logger.Info(ctx, "bot.quiz", "quiz.done",
		slog.Int64("quiz_id", attempt.Quiz.ID),
		slog.Int("correct", attempt.Correct),
		slog.Int("total", attempt.Total()),
	)
	e.clearFlow(ctx, sess)
	e.send(ctx, u, Message{Text: textBackToMenu})
	e.send(ctx, u, menuMessage(sess.Role))
	return nil
}
