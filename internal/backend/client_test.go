package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(Options{BaseURL: srv.URL + "/", Timeout: 5 * time.Second})
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestNewValidatesBaseURL(t *testing.T) {
	for _, raw := range []string{"", "localhost:8000", "ftp://x", "http://"} {
		_, err := New(Options{BaseURL: raw})
		require.Error(t, err, raw)
	}
	c, err := New(Options{BaseURL: "https://api.example.com/"})
	require.NoError(t, err)
	require.Equal(t, "https://api.example.com", c.BaseURL())
}

func TestLogin(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, pathToken, r.URL.Path)
		require.NotEmpty(t, r.Header.Get(headerRequestID))
		require.Empty(t, r.Header.Get("Authorization"))
		var body credentials
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body.Password != "secret" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "No active account"})
			return
		}
		writeJSON(w, http.StatusOK, Tokens{Access: "acc", Refresh: "ref"})
	})

	tokens, err := c.Login(context.Background(), "alice", "secret")
	require.NoError(t, err)
	require.Equal(t, Tokens{Access: "acc", Refresh: "ref"}, tokens)

	_, err = c.Login(context.Background(), "alice", "wrong")
	require.ErrorIs(t, err, ErrAuthRejected)
}

func TestTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := New(Options{BaseURL: url, Timeout: time.Second})
	require.NoError(t, err)
	_, err = c.Login(context.Background(), "a", "b")
	require.ErrorIs(t, err, ErrTransportUnavailable)

	var te *TransportError
	require.ErrorAs(t, err, &te)
	require.Equal(t, "login", te.Op)
	require.Equal(t, "transport_unavailable", te.Code())
}

func TestRefresh(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, pathTokenRefresh, r.URL.Path)
		var body refreshRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body.Refresh != "ref" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Token is invalid"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"access": "new"})
	})

	tokens, err := c.Refresh(context.Background(), "ref")
	require.NoError(t, err)
	require.Equal(t, Tokens{Access: "new", Refresh: "ref"}, tokens)

	_, err = c.Refresh(context.Background(), "stale")
	require.ErrorIs(t, err, ErrUnauthorized)
	_, err = c.Refresh(context.Background(), "")
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestLoadErrors(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Header.Get("Authorization") {
		case "Bearer expired":
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "expired"})
		case "Bearer ok":
			writeJSON(w, http.StatusOK, []Subject{{ID: 3, Name: "Physics"}})
		default:
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = io.WriteString(w, "<html>oops</html>")
		}
	})

	subjects, err := c.Subjects(context.Background(), "ok")
	require.NoError(t, err)
	require.Equal(t, []Subject{{ID: 3, Name: "Physics"}}, subjects)

	_, err = c.Subjects(context.Background(), "expired")
	require.ErrorIs(t, err, ErrUnauthorized)

	_, err = c.Subjects(context.Background(), "broken")
	var le *LoadError
	require.ErrorAs(t, err, &le)
	require.Equal(t, "subjects", le.Resource)
	require.Equal(t, http.StatusInternalServerError, le.Status)
	require.Equal(t, UnknownReason, le.Reason)
	require.Equal(t, "load_failed", Kind(err))
}

func TestUploadAudioMultipart(t *testing.T) {
	audio := filepath.Join(t.TempDir(), "lesson.ogg")
	require.NoError(t, os.WriteFile(audio, []byte("OggS-bytes"), 0o600))

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, pathUpload, r.URL.Path)
		require.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		require.Positive(t, r.ContentLength)
		require.Empty(t, r.TransferEncoding)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		require.Equal(t, "Lesson 1", r.FormValue("title"))
		require.Equal(t, "Intro", r.FormValue("description"))
		require.Equal(t, "12", r.FormValue("subject_id"))
		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		data, _ := io.ReadAll(f)
		require.Equal(t, "OggS-bytes", string(data))
		require.Equal(t, "lesson.ogg", hdr.Filename)
		writeJSON(w, http.StatusCreated, map[string]any{"id": 55})
	})

	id, err := c.UploadAudio(context.Background(), "tok", Upload{
		AudioPath:   audio,
		Title:       "Lesson 1",
		Description: "Intro",
		SubjectID:   12,
	})
	require.NoError(t, err)
	require.EqualValues(t, 55, id)
}

func TestUploadAudioRejected(t *testing.T) {
	audio := filepath.Join(t.TempDir(), "a.ogg")
	require.NoError(t, os.WriteFile(audio, []byte("x"), 0o600))

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Unsupported format"})
	})
	_, err := c.UploadAudio(context.Background(), "tok", Upload{AudioPath: audio})
	var ue *UploadError
	require.ErrorAs(t, err, &ue)
	require.Equal(t, "Unsupported format", ue.Reason)
	require.Equal(t, "Unsupported format", Reason(err))

	_, err = c.UploadAudio(context.Background(), "tok", Upload{AudioPath: filepath.Join(t.TempDir(), "missing")})
	require.Error(t, err)
}

func TestGenerate(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req GenerateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, GenerateRequest{InputType: "audio", ContentType: "both", AudioID: 9, Count: 10, SubjectID: 2}, req)
		writeJSON(w, http.StatusCreated, map[string]int{"flashcard_count": 10, "question_count": 4})
	})
	res, err := c.Generate(context.Background(), "tok", GenerateRequest{ContentType: "both", AudioID: 9, Count: 10, SubjectID: 2})
	require.NoError(t, err)
	require.Equal(t, 10, *res.FlashcardCount)
	require.Equal(t, 4, *res.QuestionCount)
}

func TestGenerateFailureReason(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadGateway, map[string]any{"error": map[string]string{"llm": "timeout"}})
	})
	_, err := c.Generate(context.Background(), "tok", GenerateRequest{})
	var ge *GenerationError
	require.ErrorAs(t, err, &ge)
	require.Equal(t, `{"llm":"timeout"}`, ge.Reason)
}

func TestGradingEndpoints(t *testing.T) {
	var got []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		got = append(got, r.URL.Path+" "+strings.TrimSpace(string(data)))
		w.WriteHeader(http.StatusNoContent)
	})
	ctx := context.Background()
	require.NoError(t, c.Swipe(ctx, "t", 4, SwipeKnown))
	require.NoError(t, c.Swipe(ctx, "t", 4, SwipeLearning))
	require.NoError(t, c.Review(ctx, "t", 5, true))
	require.NoError(t, c.CompleteQuiz(ctx, "t", 6, 66.66666666666667))
	require.Equal(t, []string{
		`/api/core/flashcards/4/swipe/ {"direction":"left"}`,
		`/api/core/flashcards/4/swipe/ {"direction":"right"}`,
		`/api/core/flashcards/5/review/ {"was_correct":true}`,
		`/api/core/quizzes/6/complete/ {"quiz_id":6,"score":66.66666666666667,"completed":true}`,
	}, got)
}

func TestQuizzes(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case pathQuizzes:
			writeJSON(w, http.StatusOK, []QuizSummary{{ID: 1, Title: "Capitals"}})
		case "/api/core/quizzes/1/":
			writeJSON(w, http.StatusOK, map[string]any{
				"id":    1,
				"title": "Capitals",
				"questions": []map[string]any{
					{"question_text": "France?", "options": []string{"Paris", "Rome"}, "correct_answer": "Paris"},
				},
			})
		default:
			writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		}
	})
	ctx := context.Background()
	list, err := c.Quizzes(ctx, "t")
	require.NoError(t, err)
	require.Len(t, list, 1)

	quiz, err := c.Quiz(ctx, "t", 1)
	require.NoError(t, err)
	require.Nil(t, quiz.Description)
	require.Equal(t, "France?", quiz.Questions[0].Text)

	_, err = c.Quiz(ctx, "t", 2)
	require.Equal(t, "Not found.", Reason(err))
}

func TestExpiresWithin(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	sign := func(exp time.Time) string {
		tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": exp.Unix()}).SignedString([]byte("k"))
		require.NoError(t, err)
		return tok
	}
	require.True(t, ExpiresWithin(sign(now.Add(10*time.Second)), 30*time.Second, now))
	require.False(t, ExpiresWithin(sign(now.Add(time.Hour)), 30*time.Second, now))
	require.False(t, ExpiresWithin("opaque-token", 30*time.Second, now))
}

func TestKind(t *testing.T) {
	require.Equal(t, "", Kind(nil))
	require.Equal(t, "upload_failed", Kind(errors.Wrap(&UploadError{}, "ctx")))
	require.Equal(t, "unknown", Kind(errors.New("x")))
}
