package flow

import (
	"context"
	"log/slog"

	"github.com/m3rciful/attendobot/core/logger"
	"github.com/m3rciful/attendobot/core/telegram/callbacks"
	"github.com/m3rciful/attendobot/internal/backend"
	"github.com/m3rciful/attendobot/internal/session"
	"github.com/pkg/errors"
)

type cardLoader func(ctx context.Context, token string) ([]backend.Card, error)

// grader records a learner's verdict for a card.
type grader func(ctx context.Context, token string, cardID int64, knew bool) error

type reviewMode struct {
	load    cardLoader
	grade   grader
	loading string
	empty   string
}

func (e *Engine) modes() map[session.ReviewMode]reviewMode {
	return map[session.ReviewMode]reviewMode{
		session.ModeLearning: {
			load: e.api.NewCards,
			grade: func(ctx context.Context, token string, id int64, knew bool) error {
				dir := backend.SwipeLearning
				if knew {
					dir = backend.SwipeKnown
				}
				return e.api.Swipe(ctx, token, id, dir)
			},
			loading: textLoadingNew,
			empty:   textNoNewCards,
		},
		session.ModeReview: {
			load:    e.api.DueCards,
			grade:   e.api.Review,
			loading: textLoadingDue,
			empty:   textNoDueCards,
		},
	}
}

func (e *Engine) startReview(ctx context.Context, sess *session.Session, u Update, mode session.ReviewMode) error {
	m := e.modes()[mode]
	e.send(ctx, u, Message{Text: m.loading})

	var cards []backend.Card
	err := e.authed(ctx, sess, u, func(ctx context.Context, token string) error {
		var err error
		cards, err = m.load(ctx, token)
		return err
	})
	if err != nil {
		if errors.Is(err, errExpired) {
			return nil
		}
		logger.Warn(ctx, "bot.review", "cards.fail",
			slog.String("error_code", backend.Kind(err)),
			slog.String("mode", mode.String()),
		)
		e.send(ctx, u, Message{Text: textCardsFailed})
		return nil
	}
	if len(cards) == 0 {
		e.send(ctx, u, Message{Text: m.empty})
		e.send(ctx, u, menuMessage(sess.Role))
		return nil
	}

	if err := sess.Goto(mode.Step()); err != nil {
		return err
	}
	batch := &session.ReviewBatch{Mode: mode, Cards: make([]session.Card, 0, len(cards))}
	for _, c := range cards {
		batch.Cards = append(batch.Cards, session.Card{ID: c.ID, Term: c.Term, Definition: c.Definition})
	}
	sess.Review = batch
	e.send(ctx, u, cardMessage(batch, false))
	return nil
}

// onCard handles show, skip and both grades. The payload carries the
// cursor the buttons were rendered for; taps on older cards are ignored.
func (e *Engine) onCard(ctx context.Context, sess *session.Session, u Update) error {
	parts, err := callbacks.Fields(u.Action.Payload, "|", 2)
	if err != nil {
		logger.Debug(ctx, "bot.review", "card.invalid", slog.String("cb_data", u.Action.Payload))
		return nil
	}
	cursor, err := callbacks.Int(parts[1])
	batch := sess.Review
	if err != nil || batch == nil || cursor != batch.Cursor || batch.Done() {
		logger.Debug(ctx, "bot.review", "card.stale", slog.String("cb_data", u.Action.Payload))
		return nil
	}

	switch parts[0] {
	case cardShow:
		e.edit(ctx, u, cardMessage(batch, true))
		return nil
	case cardSkip:
		batch.Advance()
		e.deleteRef(ctx, u)
	case cardKnew, cardAgain:
		knew := parts[0] == cardKnew
		if err := e.grade(ctx, sess, u, knew); err != nil {
			return done(err)
		}
		batch.Advance()
		e.deleteRef(ctx, u)
		if knew {
			e.send(ctx, u, Message{Text: textKnewAck})
		} else {
			e.send(ctx, u, Message{Text: textAgainAck})
		}
	default:
		logger.Debug(ctx, "bot.review", "card.invalid", slog.String("cb_data", u.Action.Payload))
		return nil
	}
	return e.nextCard(ctx, sess, u)
}

// grade reports the verdict for the current card. Backend rejections are
// logged and otherwise ignored; only an expired session stops the batch.
func (e *Engine) grade(ctx context.Context, sess *session.Session, u Update, knew bool) error {
	batch := sess.Review
	card, _ := batch.Current()
	g := e.modes()[batch.Mode].grade
	err := e.authed(ctx, sess, u, func(ctx context.Context, token string) error {
		return g(ctx, token, card.ID, knew)
	})
	if errors.Is(err, errExpired) {
		return err
	}
	if err != nil {
		logger.Warn(ctx, "bot.review", "grade.fail",
			slog.String("error_code", backend.Kind(err)),
			slog.String("mode", batch.Mode.String()),
			slog.Int64("card_id", card.ID),
		)
	}
	return nil
}

func (e *Engine) nextCard(ctx context.Context, sess *session.Session, u Update) error {
	if !sess.Review.Done() {
		e.send(ctx, u, cardMessage(sess.Review, false))
		return nil
	}
	logger.Info(ctx, "bot.review", "batch.done",
		slog.String("mode", sess.Review.Mode.String()),
		slog.Int("cards", len(sess.Review.Cards)),
	)
	e.clearFlow(ctx, sess)
	e.send(ctx, u, Message{Text: textBatchDone})
	e.send(ctx, u, menuMessage(sess.Role))
	return nil
}
