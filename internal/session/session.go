package session

import (
	"errors"
	"io/fs"
	"os"
	"strings"
)

// Role is the login role chosen by the user.
type Role string

const (
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
)

// ParseRole accepts "teacher" or "student".
func ParseRole(s string) (Role, bool) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleTeacher, RoleStudent:
		return r, true
	}
	return "", false
}

// ContentType selects what the generator produces from an upload.
type ContentType string

const (
	ContentFlashcards ContentType = "flashcards"
	ContentQuiz       ContentType = "quiz"
	ContentBoth       ContentType = "both"
)

// ParseContentType accepts flashcards, quiz or both.
func ParseContentType(s string) (ContentType, bool) {
	switch ct := ContentType(strings.ToLower(strings.TrimSpace(s))); ct {
	case ContentFlashcards, ContentQuiz, ContentBoth:
		return ct, true
	}
	return "", false
}

// WantsFlashcards reports whether flashcards are requested.
func (c ContentType) WantsFlashcards() bool { return c == ContentFlashcards || c == ContentBoth }

// WantsQuiz reports whether quiz questions are requested.
func (c ContentType) WantsQuiz() bool { return c == ContentQuiz || c == ContentBoth }

// UploadDraft accumulates the teacher upload wizard fields.
// It owns the temporary audio file at AudioPath.
type UploadDraft struct {
	SubjectID   int64
	AudioPath   string
	Title       string
	Description string
	ContentType ContentType
	Count       int
}

// Close removes the temporary audio file. It is safe to call repeatedly.
func (d *UploadDraft) Close() error {
	if d == nil || d.AudioPath == "" {
		return nil
	}
	path := d.AudioPath
	d.AudioPath = ""
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Session is the per-user conversation record.
type Session struct {
	ID           int64
	Role         Role
	AuthToken    string
	RefreshToken string
	Step         Step

	PendingUsername string

	Draft  *UploadDraft
	Review *ReviewBatch
	Quiz   *QuizAttempt
}

// LoggedIn reports whether the session holds an access token.
func (s Session) LoggedIn() bool {
	return s.AuthToken != ""
}

// Goto moves the session to step to if the flow graph allows it.
func (s *Session) Goto(to Step) error {
	from := s.Step
	if from == "" {
		from = NoFlow
	}
	if !CanTransition(from, to) {
		return &TransitionError{From: from, To: to}
	}
	s.Step = to
	return nil
}

// Logout drops the tokens and role.
func (s *Session) Logout() {
	s.AuthToken = ""
	s.RefreshToken = ""
	s.Role = ""
}

// ClearFlow ends the current flow, keeping tokens and role, and removes
// the draft's temporary file.
func (s *Session) ClearFlow() error {
	return s.resetFlow().Close()
}

// resetFlow drops every transient field and returns the draft that was detached.
func (s *Session) resetFlow() *UploadDraft {
	draft := s.Draft
	s.Step = NoFlow
	s.PendingUsername = ""
	s.Draft = nil
	s.Review = nil
	s.Quiz = nil
	return draft
}

// clone copies the session so that callers never share mutable state with the store.
func (s *Session) clone() Session {
	out := *s
	if s.Draft != nil {
		d := *s.Draft
		out.Draft = &d
	}
	if s.Review != nil {
		r := *s.Review
		out.Review = &r
	}
	if s.Quiz != nil {
		q := *s.Quiz
		out.Quiz = &q
	}
	return out
}
