package backend

// Tokens is an access/refresh token pair.
type Tokens struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

// Subject is a course subject content is generated for.
type Subject struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Upload holds the fields of an audio upload.
type Upload struct {
	AudioPath   string
	Title       string
	Description string
	SubjectID   int64
}

type uploadResponse struct {
	ID int64 `json:"id"`
}

// GenerateRequest asks the backend to create content from an uploaded audio.
type GenerateRequest struct {
	InputType   string `json:"input_type"`
	ContentType string `json:"content_type"`
	AudioID     int64  `json:"audio_id"`
	Count       int    `json:"count"`
	SubjectID   int64  `json:"subject_id"`
}

// GenerateResult reports created items. Counts are present only for
// the requested content types.
type GenerateResult struct {
	FlashcardCount *int `json:"flashcard_count,omitempty"`
	QuestionCount  *int `json:"question_count,omitempty"`
}

// Card is a flashcard.
type Card struct {
	ID         int64  `json:"id"`
	Term       string `json:"term"`
	Definition string `json:"definition"`
}

// SwipeDirection grades a card in learning mode.
type SwipeDirection string

const (
	// SwipeKnown marks a card as known.
	SwipeKnown SwipeDirection = "left"
	// SwipeLearning keeps a card in the learning pile.
	SwipeLearning SwipeDirection = "right"
)

type swipeRequest struct {
	Direction SwipeDirection `json:"direction"`
}

type reviewRequest struct {
	WasCorrect bool `json:"was_correct"`
}

// QuizSummary is an entry of the quiz list.
type QuizSummary struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

// Question is a quiz question with its options and correct answer.
type Question struct {
	Text          string   `json:"question_text"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
}

// Quiz is a complete quiz.
type Quiz struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	Questions   []Question `json:"questions"`
}

type completeRequest struct {
	QuizID    int64   `json:"quiz_id"`
	Score     float64 `json:"score"`
	Completed bool    `json:"completed"`
}

type errorBody struct {
	Error  rawReason `json:"error"`
	Detail rawReason `json:"detail"`
}
