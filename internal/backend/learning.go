package backend

import (
	"context"
	"fmt"
)

// NewCards lists cards the user has not learned yet.
func (c *Client) NewCards(ctx context.Context, token string) ([]Card, error) {
	var out []Card
	if err := c.load(ctx, "new_cards", pathNewCards, token, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DueCards lists cards due for review.
func (c *Client) DueCards(ctx context.Context, token string) ([]Card, error) {
	var out []Card
	if err := c.load(ctx, "due_cards", pathDueCards, token, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Swipe grades a card in learning mode.
func (c *Client) Swipe(ctx context.Context, token string, cardID int64, dir SwipeDirection) error {
	return c.send(ctx, "swipe", fmt.Sprintf("/api/core/flashcards/%d/swipe/", cardID), token, swipeRequest{Direction: dir})
}

// Review grades a card in review mode.
func (c *Client) Review(ctx context.Context, token string, cardID int64, wasCorrect bool) error {
	return c.send(ctx, "review", fmt.Sprintf("/api/core/flashcards/%d/review/", cardID), token, reviewRequest{WasCorrect: wasCorrect})
}

// Quizzes lists available quizzes.
func (c *Client) Quizzes(ctx context.Context, token string) ([]QuizSummary, error) {
	var out []QuizSummary
	if err := c.load(ctx, "quizzes", pathQuizzes, token, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Quiz fetches a quiz with all its questions.
func (c *Client) Quiz(ctx context.Context, token string, id int64) (Quiz, error) {
	var out Quiz
	if err := c.load(ctx, "quiz", fmt.Sprintf("/api/core/quizzes/%d/", id), token, &out); err != nil {
		return Quiz{}, err
	}
	return out, nil
}

// CompleteQuiz reports a finished attempt. score is the percentage in [0, 100].
func (c *Client) CompleteQuiz(ctx context.Context, token string, id int64, score float64) error {
	return c.send(ctx, "complete_quiz", fmt.Sprintf("/api/core/quizzes/%d/complete/", id), token, completeRequest{
		QuizID:    id,
		Score:     score,
		Completed: true,
	})
}
