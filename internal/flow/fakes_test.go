package flow

import (
	"context"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/m3rciful/attendobot/internal/backend"
	"github.com/m3rciful/attendobot/internal/session"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

const (
	testUser = int64(7)
	testChat = int64(7)
)

type fakeChat struct {
	sent        []Message
	edited      []Message
	deleted     []tele.Editable
	texts       []string
	audio       string
	downloadErr error
}

func (f *fakeChat) Send(_ context.Context, _ int64, msg Message) error {
	f.sent = append(f.sent, msg)
	f.texts = append(f.texts, msg.Text)
	return nil
}

func (f *fakeChat) Edit(_ context.Context, _ tele.Editable, msg Message) error {
	f.edited = append(f.edited, msg)
	f.texts = append(f.texts, msg.Text)
	return nil
}

func (f *fakeChat) Delete(_ context.Context, ref tele.Editable) error {
	f.deleted = append(f.deleted, ref)
	return nil
}

func (f *fakeChat) Download(_ context.Context, _ string, w io.Writer) error {
	if f.downloadErr != nil {
		return f.downloadErr
	}
	_, err := io.WriteString(w, f.audio)
	return err
}

func (f *fakeChat) last() string {
	if len(f.texts) == 0 {
		return ""
	}
	return f.texts[len(f.texts)-1]
}

func (f *fakeChat) saw(text string) bool {
	for _, t := range f.texts {
		if t == text {
			return true
		}
	}
	return false
}

type gradeCall struct {
	Token  string
	CardID int64
	Dir    backend.SwipeDirection
	Knew   bool
}

type completeCall struct {
	QuizID int64
	Score  float64
}

type fakeAPI struct {
	tokens     backend.Tokens
	loginErr   error
	logins     []string
	refreshed  []string
	refreshErr error
	fresh      backend.Tokens

	subjects    []backend.Subject
	subjectErrs []error
	tokensSeen  []string

	uploadErr   error
	uploads     []backend.Upload
	uploadBody  string
	audioExists bool
	genReqs     []backend.GenerateRequest
	genRes      backend.GenerateResult
	genErr      error

	newCards []backend.Card
	dueCards []backend.Card
	swipes   []gradeCall
	reviews  []gradeCall

	quizzes   []backend.QuizSummary
	quiz      backend.Quiz
	completed []completeCall
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		tokens: backend.Tokens{Access: "access-1", Refresh: "refresh-1"},
		fresh:  backend.Tokens{Access: "access-2", Refresh: "refresh-2"},
	}
}

func (f *fakeAPI) Login(_ context.Context, username, _ string) (backend.Tokens, error) {
	f.logins = append(f.logins, username)
	if f.loginErr != nil {
		return backend.Tokens{}, f.loginErr
	}
	return f.tokens, nil
}

func (f *fakeAPI) Refresh(_ context.Context, refresh string) (backend.Tokens, error) {
	f.refreshed = append(f.refreshed, refresh)
	if f.refreshErr != nil {
		return backend.Tokens{}, f.refreshErr
	}
	return f.fresh, nil
}

func (f *fakeAPI) Subjects(_ context.Context, token string) ([]backend.Subject, error) {
	f.tokensSeen = append(f.tokensSeen, token)
	if len(f.subjectErrs) > 0 {
		err := f.subjectErrs[0]
		f.subjectErrs = f.subjectErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	return f.subjects, nil
}

func (f *fakeAPI) UploadAudio(_ context.Context, _ string, up backend.Upload) (int64, error) {
	f.uploads = append(f.uploads, up)
	if data, err := os.ReadFile(up.AudioPath); err == nil {
		f.audioExists = true
		f.uploadBody = string(data)
	}
	if f.uploadErr != nil {
		return 0, f.uploadErr
	}
	return 99, nil
}

func (f *fakeAPI) Generate(_ context.Context, _ string, req backend.GenerateRequest) (backend.GenerateResult, error) {
	f.genReqs = append(f.genReqs, req)
	if f.genErr != nil {
		return backend.GenerateResult{}, f.genErr
	}
	return f.genRes, nil
}

func (f *fakeAPI) NewCards(_ context.Context, token string) ([]backend.Card, error) {
	f.tokensSeen = append(f.tokensSeen, token)
	return f.newCards, nil
}

func (f *fakeAPI) DueCards(_ context.Context, token string) ([]backend.Card, error) {
	f.tokensSeen = append(f.tokensSeen, token)
	return f.dueCards, nil
}

func (f *fakeAPI) Swipe(_ context.Context, token string, cardID int64, dir backend.SwipeDirection) error {
	f.swipes = append(f.swipes, gradeCall{Token: token, CardID: cardID, Dir: dir})
	return nil
}

func (f *fakeAPI) Review(_ context.Context, token string, cardID int64, wasCorrect bool) error {
	f.reviews = append(f.reviews, gradeCall{Token: token, CardID: cardID, Knew: wasCorrect})
	return nil
}

func (f *fakeAPI) Quizzes(_ context.Context, token string) ([]backend.QuizSummary, error) {
	f.tokensSeen = append(f.tokensSeen, token)
	return f.quizzes, nil
}

func (f *fakeAPI) Quiz(_ context.Context, _ string, _ int64) (backend.Quiz, error) {
	return f.quiz, nil
}

func (f *fakeAPI) CompleteQuiz(_ context.Context, _ string, id int64, score float64) error {
	f.completed = append(f.completed, completeCall{QuizID: id, Score: score})
	return nil
}

type harness struct {
	t      *testing.T
	dir    string
	store  *session.Store
	api    *fakeAPI
	chat   *fakeChat
	engine *Engine
	nextID int
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		t:     t,
		dir:   t.TempDir(),
		store: session.NewStore(),
		api:   newFakeAPI(),
		chat:  &fakeChat{audio: "OGGDATA"},
	}
	h.engine = New(h.store, h.api, h.chat, Options{
		TempDir: h.dir,
		Now:     func() time.Time { return time.Unix(1_700_000_000, 0) },
	})
	t.Cleanup(h.store.Close)
	return h
}

func (h *harness) ref() *tele.Message {
	h.nextID++
	return &tele.Message{ID: h.nextID, Chat: &tele.Chat{ID: testChat}}
}

func (h *harness) say(text string) *tele.Message {
	h.t.Helper()
	ref := h.ref()
	require.NoError(h.t, h.engine.HandleMessage(context.Background(), Update{
		UserID: testUser, ChatID: testChat, Text: text, Ref: ref,
	}))
	return ref
}

func (h *harness) send(m *Media) {
	h.t.Helper()
	require.NoError(h.t, h.engine.HandleMessage(context.Background(), Update{
		UserID: testUser, ChatID: testChat, Media: m, Ref: h.ref(),
	}))
}

func (h *harness) tap(key, payload string) {
	h.t.Helper()
	require.NoError(h.t, h.engine.HandleAction(context.Background(), Update{
		UserID: testUser, ChatID: testChat, Action: Action{Key: key, Payload: payload}, Ref: h.ref(),
	}))
}

func (h *harness) login(role session.Role) {
	h.t.Helper()
	h.tap(KeyRole, string(role))
	h.say("alice")
	h.say("s3cret")
	require.Equal(h.t, session.NoFlow, h.sess().Step)
	require.True(h.t, h.sess().LoggedIn())
}

func (h *harness) sess() session.Session {
	sess, _ := h.store.Get(testUser)
	return sess
}

func (h *harness) tempFiles() []string {
	h.t.Helper()
	entries, err := os.ReadDir(h.dir)
	require.NoError(h.t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func containsAny(texts []string, sub string) bool {
	for _, t := range texts {
		if strings.Contains(t, sub) {
			return true
		}
	}
	return false
}
