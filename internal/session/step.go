package session

import "fmt"

// Step is the single flow step a session is waiting on.
type Step string

const (
	NoFlow           Step = "no_flow"
	AwaitingUsername Step = "awaiting_username"
	AwaitingPassword Step = "awaiting_password"

	TeacherAwaitingSubject     Step = "teacher_awaiting_subject"
	TeacherAwaitingAudio       Step = "teacher_awaiting_audio"
	TeacherAwaitingTitle       Step = "teacher_awaiting_title"
	TeacherAwaitingDescription Step = "teacher_awaiting_description"
	TeacherAwaitingContentType Step = "teacher_awaiting_content_type"
	TeacherAwaitingCount       Step = "teacher_awaiting_count"

	StudentInLearning Step = "student_in_learning"
	StudentInReview   Step = "student_in_review"
	StudentInQuiz     Step = "student_in_quiz"
)

// transitions lists the forward edges of the flow graph. Every step may
// also stay where it is or fall back to NoFlow.
var transitions = map[Step][]Step{
	NoFlow: {
		AwaitingUsername,
		TeacherAwaitingSubject,
		StudentInLearning,
		StudentInReview,
		StudentInQuiz,
	},
	AwaitingUsername:           {AwaitingPassword},
	AwaitingPassword:           {AwaitingUsername},
	TeacherAwaitingSubject:     {TeacherAwaitingAudio},
	TeacherAwaitingAudio:       {TeacherAwaitingTitle},
	TeacherAwaitingTitle:       {TeacherAwaitingDescription},
	TeacherAwaitingDescription: {TeacherAwaitingContentType},
	TeacherAwaitingContentType: {TeacherAwaitingCount},
}

// Steps returns every known step in declaration order.
func Steps() []Step {
	return []Step{
		NoFlow, AwaitingUsername, AwaitingPassword,
		TeacherAwaitingSubject, TeacherAwaitingAudio, TeacherAwaitingTitle,
		TeacherAwaitingDescription, TeacherAwaitingContentType, TeacherAwaitingCount,
		StudentInLearning, StudentInReview, StudentInQuiz,
	}
}

// Valid reports whether s is a declared step.
func (s Step) Valid() bool {
	if s == NoFlow {
		return true
	}
	for _, st := range Steps() {
		if st == s {
			return true
		}
	}
	return false
}

// CanTransition reports whether the flow graph allows moving from one step to another.
func CanTransition(from, to Step) bool {
	if !from.Valid() || !to.Valid() {
		return false
	}
	if from == to || to == NoFlow {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// TransitionError reports a step change outside the flow graph.
type TransitionError struct {
	From, To Step
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("session: transition %s -> %s not allowed", e.From, e.To)
}

// Code implements the error code contract used by handler logs.
func (e *TransitionError) Code() string { return "invalid_transition" }
