package flow

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/m3rciful/attendobot/core/telegram/format"
	"github.com/m3rciful/attendobot/core/telegram/keyboard"
	"github.com/m3rciful/attendobot/internal/backend"
	"github.com/m3rciful/attendobot/internal/session"
)

// Callback keys.
const (
	KeyRole    = "role"
	KeyMenu    = "menu"
	KeySubject = "subject"
	KeyContent = "content"
	KeyCard    = "card"
	KeyQuiz    = "quiz"
	KeyAnswer  = "answer"
	KeyCancel  = keyboard.CancelUnique
)

// Menu payloads.
const (
	menuUpload = "upload"
	menuLearn  = "learn"
	menuReview = "review"
	menuQuiz   = "quiz"
	menuHelp   = "help"
)

// Card actions.
const (
	cardShow  = "show"
	cardSkip  = "skip"
	cardKnew  = "knew"
	cardAgain = "again"
)

const (
	textWelcome       = "Welcome to Attendo Learning Bot! Please login to continue."
	textAskUsername   = "Please enter your Attendo username:"
	textAskPassword   = "Please enter your password:"
	textLoginFailed   = "❌ Login failed. Please try again."
	textLoginFirst    = "Please login first."
	textExpired       = "Your session has expired. Please log in again."
	textLoggedOut     = "You have been logged out."
	textWrongRole     = "This option is not available for your role."
	textFinishFirst   = "Please finish the current step first, or send /cancel to stop it."
	textUseButtons    = "Please use the buttons above, or send /cancel to stop."
	textCancelled     = "Cancelled."
	textNothingCancel = "There is nothing to cancel."
	textUnknown       = "Sorry, I didn't understand that. Use /menu to see what you can do."
	textUnknownMedia  = "I can only accept audio while you are uploading a lesson."
	textStaleButton   = "This button is no longer active."

	textTeacherMenu = "Teacher Dashboard - What would you like to do today?"
	textStudentMenu = "Student Dashboard - What would you like to do today?"

	textSubjectsFailed   = "❌ Failed to load subjects. Please try again later."
	textNoSubjects       = "No subjects are available yet."
	textSelectSubject    = "Please select a subject:"
	textAskAudio         = "Please send an audio recording of your lesson."
	textAudioReminder    = "Please send a voice message or an audio file."
	textDownloading      = "⏳ Downloading audio file..."
	textDownloadFailed   = "❌ Failed to download the audio file. Please send it again."
	textAskTitle         = "Please enter a title for this lesson:"
	textAskDescription   = "Please enter a brief description:"
	textAskContentType   = "What type of content would you like to generate?"
	textAskCount         = "How many items would you like to generate? (default: 10)"
	textUploading        = "⏳ Uploading audio file and generating content... This may take a minute."
	textUploadFailed     = "❌ Audio upload failed: %s"
	textGenerationFailed = "❌ Content generation failed: %s"
	textGenerated        = "✅ Content generated successfully!\n\n"
	textFlashcardsMade   = "📝 %d flashcards created\n"
	textQuestionsMade    = "❓ %d quiz questions created\n"

	textLoadingNew   = "⏳ Loading new flashcards..."
	textLoadingDue   = "⏳ Loading flashcards due for review..."
	textNoNewCards   = "You don't have any new flashcards to learn. Try reviewing existing ones!"
	textNoDueCards   = "You don't have any flashcards due for review!"
	textCardsFailed  = "❌ Failed to load flashcards. Please try again later."
	textKnewAck      = "👍 Great job! Marked as known."
	textAgainAck     = "📝 No problem! This card will come back for review."
	textBatchDone    = "You've reviewed all the flashcards in this session! 🎉"
	textQuizzesFail  = "❌ Failed to load quizzes. Please try again later."
	textNoQuizzes    = "No quizzes available at the moment."
	textSelectQuiz   = "Select a quiz to take:"
	textQuizFailed   = "Failed to load quiz. Please try again."
	textQuizEmpty    = "This quiz has no questions yet."
	textQuizStart    = "Starting quiz: %s\n\n%s"
	textQuestion     = "❓ Question %d/%d\n\n%s"
	textQuizDone     = "🎉 Quiz completed!\n\nScore: %d out of %d (%.1f%%)"
	textBackToMenu   = "Returning to the main menu."
	textTeacherHelp  = "Upload a lesson recording and the bot generates flashcards and quizzes for your students.\n\n/menu shows the dashboard, /cancel stops the current step, /logout signs you out."
	textStudentHelp  = "Learn new flashcards, review the ones that are due and take quizzes.\n\n/menu shows the dashboard, /cancel stops the current step, /logout signs you out."
	textGuestHelp    = "Use /start and pick your role to log in with your Attendo account."
	textSessionsHead = "Sessions: %d\n"
)

// defaultCount is used when the requested item count is missing or invalid.
const defaultCount = 10

func welcomeMessage() Message {
	return Message{Text: textWelcome, Markup: keyboard.InlineButtons([]keyboard.InlineBtn{
		{Text: "👨‍🏫 Login as Teacher", Unique: KeyRole, Data: string(session.RoleTeacher)},
		{Text: "👨‍🎓 Login as Student", Unique: KeyRole, Data: string(session.RoleStudent)},
	})}
}

func menuMessage(role session.Role) Message {
	if role == session.RoleTeacher {
		return Message{Text: textTeacherMenu, Markup: keyboard.InlineButtons([]keyboard.InlineBtn{
			{Text: "📝 Upload Audio for Content Generation", Unique: KeyMenu, Data: menuUpload},
			{Text: "📋 Help", Unique: KeyMenu, Data: menuHelp},
		})}
	}
	return Message{Text: textStudentMenu, Markup: keyboard.InlineButtons([]keyboard.InlineBtn{
		{Text: "📚 Learn New Flashcards", Unique: KeyMenu, Data: menuLearn},
		{Text: "🔄 Review Due Flashcards", Unique: KeyMenu, Data: menuReview},
		{Text: "📝 Take Quiz", Unique: KeyMenu, Data: menuQuiz},
		{Text: "📋 Help", Unique: KeyMenu, Data: menuHelp},
	})}
}

func helpText(role session.Role) string {
	switch role {
	case session.RoleTeacher:
		return textTeacherHelp
	case session.RoleStudent:
		return textStudentHelp
	}
	return textGuestHelp
}

func subjectsMessage(subjects []backend.Subject) Message {
	buttons := make([]keyboard.InlineBtn, 0, len(subjects))
	for _, s := range subjects {
		buttons = append(buttons, keyboard.InlineBtn{
			Text:   s.Name,
			Unique: KeySubject,
			Data:   strconv.FormatInt(s.ID, 10),
		})
	}
	return Message{Text: textSelectSubject, Markup: keyboard.WithCancel(keyboard.InlineButtons(buttons))}
}

func contentTypeMessage() Message {
	return Message{Text: textAskContentType, Markup: keyboard.WithCancel(keyboard.InlineButtons([]keyboard.InlineBtn{
		{Text: "Flashcards Only", Unique: KeyContent, Data: string(session.ContentFlashcards)},
		{Text: "Quiz Only", Unique: KeyContent, Data: string(session.ContentQuiz)},
		{Text: "Both Flashcards and Quiz", Unique: KeyContent, Data: string(session.ContentBoth)},
	}))}
}

func prompt(text string) Message {
	return Message{Text: text, Markup: keyboard.SingleCancelMarkup()}
}

func generatedText(ct session.ContentType, res backend.GenerateResult) string {
	var b strings.Builder
	b.WriteString(textGenerated)
	if ct.WantsFlashcards() {
		fmt.Fprintf(&b, textFlashcardsMade, format.Deref(res.FlashcardCount, 0))
	}
	if ct.WantsQuiz() {
		fmt.Fprintf(&b, textQuestionsMade, format.Deref(res.QuestionCount, 0))
	}
	return b.String()
}

func cardPayload(act string, cursor int) string {
	return act + "|" + strconv.Itoa(cursor)
}

// cardMessage renders the card at the batch cursor, hiding or revealing the term.
func cardMessage(b *session.ReviewBatch, revealed bool) Message {
	card, _ := b.Current()
	var text strings.Builder
	fmt.Fprintf(&text, "📝 Card %d/%d\n\n%s", b.Cursor+1, len(b.Cards), format.FieldV2("Definition", card.Definition))

	var buttons []keyboard.InlineBtn
	if revealed {
		fmt.Fprintf(&text, "\n\n%s\n\n%s", format.FieldV2("Term", card.Term), format.EscapeV2("Did you know this?"))
		buttons = []keyboard.InlineBtn{
			{Text: "I knew it ✅", Unique: KeyCard, Data: cardPayload(cardKnew, b.Cursor)},
			{Text: "Still learning ❌", Unique: KeyCard, Data: cardPayload(cardAgain, b.Cursor)},
		}
	} else {
		buttons = []keyboard.InlineBtn{
			{Text: "Show Answer", Unique: KeyCard, Data: cardPayload(cardShow, b.Cursor)},
			{Text: "Skip", Unique: KeyCard, Data: cardPayload(cardSkip, b.Cursor)},
		}
	}
	return Message{
		Text:     text.String(),
		Markup:   keyboard.InlineButtonsNPerRow(buttons, 2),
		Markdown: true,
	}
}

func quizListMessage(quizzes []backend.QuizSummary) Message {
	buttons := make([]keyboard.InlineBtn, 0, len(quizzes))
	for _, q := range quizzes {
		buttons = append(buttons, keyboard.InlineBtn{
			Text:   q.Title,
			Unique: KeyQuiz,
			Data:   strconv.FormatInt(q.ID, 10),
		})
	}
	return Message{Text: textSelectQuiz, Markup: keyboard.InlineButtons(buttons)}
}

// questionMessage renders the question at the attempt cursor. Buttons carry
// the option index rather than its text to stay within Telegram's 64 byte
// callback data limit.
func questionMessage(a *session.QuizAttempt) Message {
	q, _ := a.Current()
	buttons := make([]keyboard.InlineBtn, 0, len(q.Options))
	for i, opt := range q.Options {
		buttons = append(buttons, keyboard.InlineBtn{
			Text:   opt,
			Unique: KeyAnswer,
			Data:   fmt.Sprintf("%d:%d", a.Cursor, i),
		})
	}
	return Message{
		Text:   fmt.Sprintf(textQuestion, a.Cursor+1, a.Total(), q.Text),
		Markup: keyboard.InlineButtons(buttons),
	}
}

func quizDoneText(a *session.QuizAttempt) string {
	return fmt.Sprintf(textQuizDone, a.Correct, a.Total(), a.Percentage())
}

func sessionsText(counts map[session.Step]int) string {
	total := 0
	for _, n := range counts {
		total += n
	}
	var b strings.Builder
	fmt.Fprintf(&b, textSessionsHead, total)
	for _, st := range session.Steps() {
		if n := counts[st]; n > 0 {
			fmt.Fprintf(&b, "%s: %d\n", st, n)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
