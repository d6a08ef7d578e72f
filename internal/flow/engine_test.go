package flow

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/m3rciful/attendobot/internal/backend"
	"github.com/m3rciful/attendobot/internal/session"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestLoginNeverEchoesPassword(t *testing.T) {
	h := newHarness(t)
	h.tap(KeyRole, "student")
	require.Equal(t, session.AwaitingUsername, h.sess().Step)

	h.say("alice")
	require.Equal(t, session.AwaitingPassword, h.sess().Step)
	require.Equal(t, "alice", h.sess().PendingUsername)

	pw := h.say("s3cret")
	require.Equal(t, session.NoFlow, h.sess().Step)
	require.Empty(t, h.sess().PendingUsername)
	require.Equal(t, "access-1", h.sess().AuthToken)
	require.Equal(t, []string{"alice"}, h.api.logins)
	require.Contains(t, h.chat.deleted, pw)
	require.False(t, containsAny(h.chat.texts, "s3cret"))
	require.Equal(t, textStudentMenu, h.chat.last())
}

func TestLoginFailureAsksForUsernameAgain(t *testing.T) {
	h := newHarness(t)
	h.api.loginErr = backend.ErrAuthRejected
	h.tap(KeyRole, "teacher")
	h.say("bob")
	h.say("wrong")

	sess := h.sess()
	require.Equal(t, session.AwaitingUsername, sess.Step)
	require.False(t, sess.LoggedIn())
	require.Equal(t, session.RoleTeacher, sess.Role)
	require.True(t, h.chat.saw(textLoginFailed))
	require.Equal(t, textAskUsername, h.chat.last())
}

func TestStudentLearnsTwoCards(t *testing.T) {
	h := newHarness(t)
	h.api.newCards = []backend.Card{
		{ID: 11, Term: "Go", Definition: "A language"},
		{ID: 12, Term: "Gopher", Definition: "The mascot"},
	}
	h.login(session.RoleStudent)

	h.tap(KeyMenu, menuLearn)
	require.Equal(t, session.StudentInLearning, h.sess().Step)

	h.tap(KeyCard, cardPayload(cardShow, 0))
	reveal := h.chat.edited[len(h.chat.edited)-1]
	require.True(t, reveal.Markdown)
	require.Contains(t, reveal.Text, "*Term:*\nGo")

	h.tap(KeyCard, cardPayload(cardKnew, 0))
	require.Equal(t, 1, h.sess().Review.Cursor)
	require.True(t, h.chat.saw(textKnewAck))

	h.tap(KeyCard, cardPayload(cardSkip, 1))

	require.Equal(t, session.NoFlow, h.sess().Step)
	require.Nil(t, h.sess().Review)
	require.Equal(t, []gradeCall{{Token: "access-1", CardID: 11, Dir: backend.SwipeKnown}}, h.api.swipes)
	require.Empty(t, h.api.reviews)
	require.True(t, h.chat.saw(textBatchDone))
	require.Equal(t, textStudentMenu, h.chat.last())
}

func TestReviewModeUsesReviewEndpoint(t *testing.T) {
	h := newHarness(t)
	h.api.dueCards = []backend.Card{{ID: 21, Term: "t", Definition: "d"}}
	h.login(session.RoleStudent)

	h.tap(KeyMenu, menuReview)
	require.Equal(t, session.StudentInReview, h.sess().Step)
	h.tap(KeyCard, cardPayload(cardAgain, 0))

	require.Empty(t, h.api.swipes)
	require.Equal(t, []gradeCall{{Token: "access-1", CardID: 21, Knew: false}}, h.api.reviews)
	require.True(t, h.chat.saw(textAgainAck))
	require.Equal(t, session.NoFlow, h.sess().Step)
}

func TestBatchNeedsOneActionPerCard(t *testing.T) {
	for _, n := range []int{1, 3, 5} {
		t.Run(fmt.Sprint(n), func(t *testing.T) {
			h := newHarness(t)
			for i := 0; i < n; i++ {
				h.api.newCards = append(h.api.newCards, backend.Card{ID: int64(i + 1), Term: "t", Definition: "d"})
			}
			h.login(session.RoleStudent)
			h.tap(KeyMenu, menuLearn)
			for i := 0; i < n; i++ {
				require.Equal(t, session.StudentInLearning, h.sess().Step)
				require.Equal(t, i, h.sess().Review.Cursor)
				act := cardSkip
				if i%2 == 0 {
					act = cardAgain
				}
				h.tap(KeyCard, cardPayload(act, i))
			}
			require.Equal(t, session.NoFlow, h.sess().Step)
		})
	}
}

func TestStaleCardTapIsIgnored(t *testing.T) {
	h := newHarness(t)
	h.api.newCards = []backend.Card{{ID: 1}, {ID: 2}, {ID: 3}}
	h.login(session.RoleStudent)
	h.tap(KeyMenu, menuLearn)

	h.tap(KeyCard, cardPayload(cardKnew, 0))
	h.tap(KeyCard, cardPayload(cardKnew, 0))

	require.Len(t, h.api.swipes, 1)
	require.Equal(t, 1, h.sess().Review.Cursor)
}

func TestEmptyCardBatchStaysOnMenu(t *testing.T) {
	h := newHarness(t)
	h.login(session.RoleStudent)
	h.tap(KeyMenu, menuLearn)
	require.Equal(t, session.NoFlow, h.sess().Step)
	require.True(t, h.chat.saw(textNoNewCards))
	require.Equal(t, textStudentMenu, h.chat.last())
}

func TestQuizScoreIgnoresCaseAndSpaces(t *testing.T) {
	h := newHarness(t)
	desc := "Geography"
	h.api.quizzes = []backend.QuizSummary{{ID: 5, Title: "Capitals"}}
	h.api.quiz = backend.Quiz{ID: 5, Title: "Capitals", Description: &desc, Questions: []backend.Question{
		{Text: "Capital of France?", Options: []string{"Paris", "Rome"}, CorrectAnswer: " paris "},
		{Text: "2+2?", Options: []string{"4", "5"}, CorrectAnswer: "4"},
		{Text: "First letter?", Options: []string{"a", "b"}, CorrectAnswer: "A"},
	}}
	h.login(session.RoleStudent)

	h.tap(KeyMenu, menuQuiz)
	require.Equal(t, textSelectQuiz, h.chat.last())
	h.tap(KeyQuiz, "5")
	require.Equal(t, session.StudentInQuiz, h.sess().Step)
	require.True(t, h.chat.saw("Starting quiz: Capitals\n\nGeography"))

	h.tap(KeyAnswer, "0:0")
	h.tap(KeyAnswer, "0:0") // stale
	h.tap(KeyAnswer, "1:0")
	h.tap(KeyAnswer, "2:1")

	require.Len(t, h.api.completed, 1)
	require.Equal(t, int64(5), h.api.completed[0].QuizID)
	require.InDelta(t, 200.0/3.0, h.api.completed[0].Score, 1e-9)
	require.True(t, h.chat.saw("🎉 Quiz completed!\n\nScore: 2 out of 3 (66.7%)"))
	require.True(t, h.chat.saw(textBackToMenu))
	require.Equal(t, session.NoFlow, h.sess().Step)
	require.Nil(t, h.sess().Quiz)
}

func TestQuizAllCorrectIsHundred(t *testing.T) {
	h := newHarness(t)
	h.api.quiz = backend.Quiz{ID: 1, Title: "Q", Questions: []backend.Question{
		{Text: "x", Options: []string{"YES"}, CorrectAnswer: "yes"},
	}}
	h.login(session.RoleStudent)
	h.tap(KeyQuiz, "1")
	h.tap(KeyAnswer, "0:0")
	require.Equal(t, 100.0, h.api.completed[0].Score)
}

func TestQuizWithoutQuestionsIsRejected(t *testing.T) {
	h := newHarness(t)
	h.api.quiz = backend.Quiz{ID: 3, Title: "Empty"}
	h.login(session.RoleStudent)
	h.tap(KeyQuiz, "3")
	require.Equal(t, session.NoFlow, h.sess().Step)
	require.Equal(t, textQuizEmpty, h.chat.last())
}

func (h *harness) uploadUntilCount(ct session.ContentType) {
	h.t.Helper()
	h.api.subjects = []backend.Subject{{ID: 4, Name: "Biology"}}
	h.login(session.RoleTeacher)
	h.tap(KeyMenu, menuUpload)
	require.Equal(h.t, session.TeacherAwaitingSubject, h.sess().Step)
	h.tap(KeySubject, "4")
	h.send(&Media{Kind: MediaVoice, FileID: "voice-1"})
	require.Equal(h.t, session.TeacherAwaitingTitle, h.sess().Step)
	require.Len(h.t, h.tempFiles(), 1)
	h.say("Cells")
	h.say("Intro to cells")
	h.tap(KeyContent, string(ct))
	require.Equal(h.t, session.TeacherAwaitingCount, h.sess().Step)
}

func TestTeacherUploadEndToEnd(t *testing.T) {
	h := newHarness(t)
	h.api.genRes = backend.GenerateResult{FlashcardCount: intPtr(5), QuestionCount: intPtr(3)}
	h.uploadUntilCount(session.ContentBoth)

	h.say("many")

	require.Len(t, h.api.uploads, 1)
	up := h.api.uploads[0]
	require.Equal(t, "Cells", up.Title)
	require.Equal(t, "Intro to cells", up.Description)
	require.Equal(t, int64(4), up.SubjectID)
	require.Equal(t, ".ogg", filepath.Ext(up.AudioPath))
	require.True(t, h.api.audioExists)
	require.Equal(t, "OGGDATA", h.api.uploadBody)

	require.Equal(t, []backend.GenerateRequest{{
		ContentType: "both", AudioID: 99, Count: defaultCount, SubjectID: 4,
	}}, h.api.genReqs)
	require.True(t, h.chat.saw("✅ Content generated successfully!\n\n📝 5 flashcards created\n❓ 3 quiz questions created\n"))
	require.Equal(t, textTeacherMenu, h.chat.last())
	require.Equal(t, session.NoFlow, h.sess().Step)
	require.Nil(t, h.sess().Draft)
	require.Empty(t, h.tempFiles())
}

func TestUploadFailureSkipsGeneration(t *testing.T) {
	h := newHarness(t)
	h.api.uploadErr = &backend.UploadError{Status: 400, Reason: "file too large"}
	h.uploadUntilCount(session.ContentQuiz)

	h.say("3")

	require.Empty(t, h.api.genReqs)
	require.True(t, h.chat.saw("❌ Audio upload failed: file too large"))
	require.Equal(t, session.NoFlow, h.sess().Step)
	require.Empty(t, h.tempFiles())
}

func TestGenerationFailureReportsReason(t *testing.T) {
	h := newHarness(t)
	h.api.genErr = &backend.GenerationError{Status: 500, Reason: backend.UnknownReason}
	h.uploadUntilCount(session.ContentFlashcards)

	h.say("7")

	require.Equal(t, 7, h.api.genReqs[0].Count)
	require.True(t, h.chat.saw("❌ Content generation failed: Unknown error"))
	require.Empty(t, h.tempFiles())
}

func TestFailedDownloadLeavesNoFile(t *testing.T) {
	h := newHarness(t)
	h.api.subjects = []backend.Subject{{ID: 1, Name: "Math"}}
	h.chat.downloadErr = errors.New("telegram down")
	h.login(session.RoleTeacher)
	h.tap(KeyMenu, menuUpload)
	h.tap(KeySubject, "1")

	h.send(&Media{Kind: MediaAudio, FileID: "a", FileName: "lesson.MP3"})

	require.Equal(t, session.TeacherAwaitingAudio, h.sess().Step)
	require.Equal(t, textDownloadFailed, h.chat.last())
	require.Empty(t, h.tempFiles())
}

func TestCancelReleasesDraft(t *testing.T) {
	h := newHarness(t)
	h.api.subjects = []backend.Subject{{ID: 1, Name: "Math"}}
	h.login(session.RoleTeacher)
	h.tap(KeyMenu, menuUpload)
	h.tap(KeySubject, "1")
	h.send(&Media{Kind: MediaVoice, FileID: "v"})
	require.Len(t, h.tempFiles(), 1)

	h.tap(KeyCancel, "")

	require.Equal(t, session.NoFlow, h.sess().Step)
	require.True(t, h.sess().LoggedIn())
	require.Empty(t, h.tempFiles())
	require.Equal(t, textTeacherMenu, h.chat.last())
}

func TestActionsAreGatedByStep(t *testing.T) {
	h := newHarness(t)
	h.api.subjects = []backend.Subject{{ID: 1, Name: "Math"}}
	h.login(session.RoleTeacher)

	h.tap(KeyCard, cardPayload(cardKnew, 0))
	require.Empty(t, h.api.swipes)

	h.tap(KeyMenu, menuUpload)
	h.tap(KeyMenu, menuUpload)
	require.Equal(t, textFinishFirst, h.chat.last())
	require.Equal(t, session.TeacherAwaitingSubject, h.sess().Step)

	h.say("hello")
	require.Equal(t, textUseButtons, h.chat.last())
}

func TestMenuChecksRole(t *testing.T) {
	h := newHarness(t)
	h.login(session.RoleStudent)
	h.tap(KeyMenu, menuUpload)
	require.Equal(t, textWrongRole, h.chat.last())
	require.Equal(t, session.NoFlow, h.sess().Step)
}

func TestMenuRequiresLogin(t *testing.T) {
	h := newHarness(t)
	h.tap(KeyMenu, menuLearn)
	require.True(t, h.chat.saw(textLoginFirst))
	require.Equal(t, textWelcome, h.chat.last())
}

func TestUnauthorizedCallIsRetriedAfterRefresh(t *testing.T) {
	h := newHarness(t)
	h.api.subjects = []backend.Subject{{ID: 1, Name: "Math"}}
	h.api.subjectErrs = []error{backend.ErrUnauthorized}
	h.login(session.RoleTeacher)

	h.tap(KeyMenu, menuUpload)

	require.Equal(t, []string{"refresh-1"}, h.api.refreshed)
	require.Equal(t, []string{"access-1", "access-2"}, h.api.tokensSeen)
	require.Equal(t, "access-2", h.sess().AuthToken)
	require.Equal(t, "refresh-2", h.sess().RefreshToken)
	require.Equal(t, session.TeacherAwaitingSubject, h.sess().Step)
}

func TestFailedRefreshLogsOut(t *testing.T) {
	h := newHarness(t)
	h.api.subjectErrs = []error{backend.ErrUnauthorized}
	h.api.refreshErr = backend.ErrUnauthorized
	h.login(session.RoleTeacher)

	h.tap(KeyMenu, menuUpload)

	require.False(t, h.sess().LoggedIn())
	require.Equal(t, session.NoFlow, h.sess().Step)
	require.True(t, h.chat.saw(textExpired))
	require.Equal(t, textWelcome, h.chat.last())
}

func TestExpiringTokenIsRefreshedAhead(t *testing.T) {
	h := newHarness(t)
	exp := time.Unix(1_700_000_000, 0).Add(10 * time.Second)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": exp.Unix()}).SignedString([]byte("k"))
	require.NoError(t, err)
	h.store.Save(session.Session{
		ID: testUser, Role: session.RoleStudent, AuthToken: token, RefreshToken: "refresh-1", Step: session.NoFlow,
	})
	h.api.quizzes = []backend.QuizSummary{{ID: 1, Title: "Q"}}

	h.tap(KeyMenu, menuQuiz)

	require.Equal(t, []string{"refresh-1"}, h.api.refreshed)
	require.Equal(t, []string{"access-2"}, h.api.tokensSeen)
}

func TestRoleTapRestartsLogin(t *testing.T) {
	h := newHarness(t)
	h.login(session.RoleStudent)
	h.tap(KeyRole, "teacher")
	sess := h.sess()
	require.False(t, sess.LoggedIn())
	require.Equal(t, session.RoleTeacher, sess.Role)
	require.Equal(t, session.AwaitingUsername, sess.Step)
}

func TestParseCount(t *testing.T) {
	cases := map[string]int{"": 10, "abc": 10, "0": 10, "-3": 10, " 15 ": 15, "1": 1}
	for in, want := range cases {
		require.Equal(t, want, parseCount(in), "input %q", in)
	}
}

func TestAudioExt(t *testing.T) {
	require.Equal(t, ".ogg", audioExt(&Media{Kind: MediaVoice, FileName: "x.mp3"}))
	require.Equal(t, ".mp3", audioExt(&Media{Kind: MediaAudio, FileName: "Lesson.MP3"}))
	require.Equal(t, ".m4a", audioExt(&Media{Kind: MediaDocument, MIME: "audio/mp4"}))
	require.Equal(t, ".bin", audioExt(&Media{Kind: MediaDocument}))
}

func TestCommands(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.engine.Cancel(ctx, Update{UserID: testUser, ChatID: testChat}))
	require.Equal(t, textNothingCancel, h.chat.last())

	h.login(session.RoleStudent)
	require.NoError(t, h.engine.Help(ctx, Update{UserID: testUser, ChatID: testChat}))
	require.Equal(t, textStudentHelp, h.chat.last())

	require.NoError(t, h.engine.Sessions(ctx, Update{UserID: testUser, ChatID: testChat}))
	require.True(t, strings.HasPrefix(h.chat.last(), "Sessions: 1"))

	require.NoError(t, h.engine.Logout(ctx, Update{UserID: testUser, ChatID: testChat}))
	require.False(t, h.sess().LoggedIn())
	require.Equal(t, textWelcome, h.chat.last())

	require.NoError(t, h.engine.Start(ctx, Update{UserID: testUser, ChatID: testChat}))
	require.Equal(t, textWelcome, h.chat.last())

	require.NoError(t, h.engine.Menu(ctx, Update{UserID: testUser, ChatID: testChat}))
	require.Equal(t, textWelcome, h.chat.last())
}
