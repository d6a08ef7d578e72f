package session

import (
	"strings"
)

// ReviewMode selects the grading endpoint for a review batch.
type ReviewMode int

const (
	// ModeLearning walks new cards and grades through swipes.
	ModeLearning ReviewMode = iota
	// ModeReview walks due cards and grades through reviews.
	ModeReview
)

func (m ReviewMode) String() string {
	switch m {
	case ModeLearning:
		return "learning"
	case ModeReview:
		return "review"
	}
	return "unknown"
}

// Step returns the flow step that a batch in this mode runs under.
func (m ReviewMode) Step() Step {
	if m == ModeReview {
		return StudentInReview
	}
	return StudentInLearning
}

// Card is a single flashcard.
type Card struct {
	ID         int64
	Term       string
	Definition string
}

// ReviewBatch is an ordered set of cards walked by a cursor.
// 0 <= Cursor <= len(Cards); Cursor == len(Cards) means done.
type ReviewBatch struct {
	Cards  []Card
	Cursor int
	Mode   ReviewMode
}

// Done reports whether every card has been handled.
func (b *ReviewBatch) Done() bool {
	return b.Cursor >= len(b.Cards)
}

// Current returns the card at the cursor.
func (b *ReviewBatch) Current() (Card, bool) {
	if b.Done() || b.Cursor < 0 {
		return Card{}, false
	}
	return b.Cards[b.Cursor], true
}

// Advance moves the cursor forward by one, never past the end.
func (b *ReviewBatch) Advance() {
	if !b.Done() {
		b.Cursor++
	}
}

// Question is one quiz question.
type Question struct {
	Text          string
	Options       []string
	CorrectAnswer string
}

// Quiz is a complete quiz as delivered by the backend.
type Quiz struct {
	ID          int64
	Title       string
	Description string
	Questions   []Question
}

// QuizAttempt tracks progress through a quiz.
type QuizAttempt struct {
	Quiz    Quiz
	Cursor  int
	Correct int
}

// Total returns the number of questions.
func (a *QuizAttempt) Total() int { return len(a.Quiz.Questions) }

// Done reports whether every question has been answered.
func (a *QuizAttempt) Done() bool { return a.Cursor >= a.Total() }

// Current returns the question at the cursor.
func (a *QuizAttempt) Current() (Question, bool) {
	if a.Done() || a.Cursor < 0 {
		return Question{}, false
	}
	return a.Quiz.Questions[a.Cursor], true
}

// Answer grades option against the current question and advances the cursor.
// It reports whether the answer was correct.
func (a *QuizAttempt) Answer(option string) bool {
	q, ok := a.Current()
	if !ok {
		return false
	}
	correct := SameAnswer(option, q.CorrectAnswer)
	if correct {
		a.Correct++
	}
	a.Cursor++
	return correct
}

// Percentage returns 100*Correct/Total, or 0 for an empty quiz.
func (a *QuizAttempt) Percentage() float64 {
	if a.Total() == 0 {
		return 0
	}
	return 100 * float64(a.Correct) / float64(a.Total())
}

// SameAnswer compares answers ignoring case and surrounding whitespace.
func SameAnswer(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
