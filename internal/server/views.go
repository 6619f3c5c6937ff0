package server

import (
	"github.com/hyperjump/benkyo/internal/study"
	"github.com/hyperjump/benkyo/internal/workflow"
)

// The views below are what clients see of a running workflow. Correct options and
// reference answers stay on the server until the workflow is finished; a flashcard's
// answer is shown only while the card is revealed.

type quizQuestionView struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectOption string   `json:"correct_option,omitempty"`
}

type quizView struct {
	Phase  workflow.Phase        `json:"phase"`
	Bank   []quizQuestionView    `json:"bank,omitempty"`
	Index  int                   `json:"index"`
	Score  int                   `json:"score"`
	Chosen []string              `json:"chosen,omitempty"`
	Review []workflow.QuizReview `json:"review,omitempty"`
}

func newQuizView(q workflow.Quiz) quizView {
	v := quizView{Phase: q.Phase, Index: q.Index, Score: q.Score, Chosen: q.Chosen}
	for _, item := range q.Bank {
		qv := quizQuestionView{Question: item.Question, Options: item.Options}
		if q.Phase.Finished() {
			qv.CorrectOption = item.CorrectOption
		}
		v.Bank = append(v.Bank, qv)
	}
	if q.Phase == workflow.Reviewing {
		v.Review = q.Review()
	}
	return v
}

type flashcardView struct {
	Question string `json:"question"`
	Answer   string `json:"answer,omitempty"`
}

type flashcardsView struct {
	Phase    workflow.Phase  `json:"phase"`
	Deck     []flashcardView `json:"deck,omitempty"`
	Index    int             `json:"index"`
	Revealed bool            `json:"revealed"`
}

func newFlashcardsView(f workflow.Flashcards) flashcardsView {
	v := flashcardsView{Phase: f.Phase, Index: f.Index, Revealed: f.Revealed}
	for i, card := range f.Deck {
		cv := flashcardView{Question: card.Question}
		if f.Revealed && i == f.Index {
			cv.Answer = card.Answer
		}
		v.Deck = append(v.Deck, cv)
	}
	return v
}

type examQuestionView struct {
	Question string  `json:"question"`
	Score    float64 `json:"score"`
	Answer   string  `json:"answer,omitempty"`
}

type examView struct {
	ID      string             `json:"id,omitempty"`
	Phase   workflow.Phase     `json:"phase"`
	Bank    []examQuestionView `json:"bank,omitempty"`
	Total   float64            `json:"total"`
	Warning string             `json:"warning,omitempty"`
	Index   int                `json:"index"`
	Answers []string           `json:"answers,omitempty"`
	Scores  []float64          `json:"scores,omitempty"`
	Graded  bool               `json:"graded"`
}

type examResultView struct {
	Exam         examView              `json:"exam"`
	Score        float64               `json:"score"`
	Review       []workflow.ExamReview `json:"review,omitempty"`
	GradingNotes []string              `json:"grading_notes,omitempty"`
}

func newExamResultView(res *study.ExamResult) examResultView {
	e := res.Exam
	ev := examView{
		ID: e.ID, Phase: e.Phase, Total: e.Total, Warning: e.Warning,
		Index: e.Index, Answers: e.Answers, Scores: e.Scores, Graded: e.Graded,
	}
	for _, q := range e.Bank {
		qv := examQuestionView{Question: q.Question, Score: q.Score}
		if e.Phase.Finished() {
			qv.Answer = q.Answer
		}
		ev.Bank = append(ev.Bank, qv)
	}
	return examResultView{Exam: ev, Score: res.Score, Review: res.Review, GradingNotes: res.GradingNotes}
}
