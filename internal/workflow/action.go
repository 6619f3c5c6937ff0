package workflow

import (
	"fmt"

	"github.com/hyperjump/benkyo/internal/models"
)

// ActionKind names a user action.
type ActionKind string

const (
	ActionStart  ActionKind = "start"
	ActionAnswer ActionKind = "answer"
	ActionNext   ActionKind = "next"
	ActionPrev   ActionKind = "prev"
	ActionReveal ActionKind = "reveal"
	ActionEnd    ActionKind = "end"
	ActionReview ActionKind = "review"
	ActionClose  ActionKind = "close"
)

// Valid reports whether k is a known action.
func (k ActionKind) Valid() bool {
	switch k {
	case ActionStart, ActionAnswer, ActionNext, ActionPrev, ActionReveal, ActionEnd, ActionReview, ActionClose:
		return true
	}
	return false
}

// Action is one user event fed to a workflow's Reduce. Start actions carry the
// generated bank; they are built with the Start* constructors, never decoded from clients.
type Action struct {
	Kind   ActionKind `json:"action"`
	Answer string     `json:"answer,omitempty"`

	quiz      []models.QuizQuestion
	exam      []models.ExamQuestion
	examTotal float64
	warning   string
	deck      []models.Flashcard
}

// Act builds an action that carries no payload.
func Act(kind ActionKind) Action { return Action{Kind: kind} }

// AnswerWith builds an answer action.
func AnswerWith(answer string) Action { return Action{Kind: ActionAnswer, Answer: answer} }

// StartQuiz builds the action that starts a quiz over bank.
func StartQuiz(bank []models.QuizQuestion) Action {
	return Action{Kind: ActionStart, quiz: bank}
}

// StartExam builds the action that starts an exam worth total marks. warning carries
// any score-sum mismatch reported while parsing the bank.
func StartExam(bank []models.ExamQuestion, total float64, warning string) Action {
	return Action{Kind: ActionStart, exam: bank, examTotal: total, warning: warning}
}

// StartFlashcards builds the action that starts a flashcard deck.
func StartFlashcards(deck []models.Flashcard) Action {
	return Action{Kind: ActionStart, deck: deck}
}

func unknown(k ActionKind) error {
	return fmt.Errorf("%w: %q", ErrUnknownAction, k)
}
