package workflow

import (
	"github.com/google/uuid"
	"github.com/hyperjump/benkyo/internal/models"
)

// Exam tracks an open-question session. Answers are collected until the exam ends and
// are then graded once; Graded marks that the grading calls have been made.
// ID is assigned by Start and ties grades to the exam they were computed for.
type Exam struct {
	ID      string                `json:"id,omitempty"`
	Phase   Phase                 `json:"phase"`
	Bank    []models.ExamQuestion `json:"bank,omitempty"`
	Total   float64               `json:"total"`
	Warning string                `json:"warning,omitempty"`
	Index   int                   `json:"index"`
	Answers []string              `json:"answers,omitempty"`
	Scores  []float64             `json:"scores,omitempty"`
	Graded  bool                  `json:"graded"`
}

// ExamReview is one line of the post-exam review.
type ExamReview struct {
	Question        string  `json:"question"`
	ReferenceAnswer string  `json:"reference_answer"`
	Answer          string  `json:"answer,omitempty"`
	Answered        bool    `json:"answered"`
	Obtained        float64 `json:"obtained"`
	Max             float64 `json:"max"`
}

// Start begins a fresh exam worth total marks.
func (e Exam) Start(bank []models.ExamQuestion, total float64, warning string) (Exam, error) {
	if len(bank) == 0 {
		return e, ErrEmptyBank
	}
	return Exam{ID: uuid.NewString(), Phase: InProgress, Bank: bank, Total: total, Warning: warning}, nil
}

// Current returns the question awaiting an answer.
func (e Exam) Current() (models.ExamQuestion, bool) {
	if e.Phase != InProgress || e.Index >= len(e.Bank) {
		return models.ExamQuestion{}, false
	}
	return e.Bank[e.Index], true
}

// Answer records the answer to the current question and advances.
// Answering the last question ends the exam.
func (e Exam) Answer(answer string) (Exam, error) {
	if _, ok := e.Current(); !ok {
		return e, ErrNotInProgress
	}
	next := e
	next.Answers = append(append([]string(nil), e.Answers...), answer)
	next.Index++
	if next.Index == len(next.Bank) {
		next.Phase = Ended
	}
	return next, nil
}

// End stops the exam; unanswered questions score nothing.
func (e Exam) End() (Exam, error) {
	switch {
	case e.Phase == InProgress:
		e.Phase = Ended
		return e, nil
	case e.Phase.Finished():
		return e, nil
	default:
		return e, ErrNotInProgress
	}
}

// NeedsGrading reports whether the exam is finished and its answers have not been graded.
func (e Exam) NeedsGrading() bool {
	return e.Phase.Finished() && !e.Graded
}

// ApplyGrades stores one score per collected answer, each clamped to [0, question points],
// and marks the exam graded. It can succeed only once per exam, and only with grades
// computed for this exam's id.
func (e Exam) ApplyGrades(id string, scores []float64) (Exam, error) {
	if id != e.ID {
		return e, ErrStaleGrades
	}
	if !e.Phase.Finished() {
		return e, ErrNotEnded
	}
	if e.Graded {
		return e, ErrAlreadyGraded
	}
	if len(scores) != len(e.Answers) {
		return e, ErrGradeCount
	}
	next := e
	next.Scores = make([]float64, len(scores))
	for i, s := range scores {
		next.Scores[i] = clamp(s, 0, e.Bank[i].Score)
	}
	next.Graded = true
	return next, nil
}

// Score is the total obtained, never above the exam's total marks.
func (e Exam) Score() float64 {
	sum := 0.0
	for _, s := range e.Scores {
		sum += s
	}
	if e.Total > 0 && sum > e.Total {
		return e.Total
	}
	return sum
}

// ToggleReview opens or closes the answer review of a finished exam.
func (e Exam) ToggleReview() (Exam, error) {
	p, err := toggleReview(e.Phase)
	if err != nil {
		return e, err
	}
	e.Phase = p
	return e, nil
}

// Close discards the exam.
func (e Exam) Close() Exam { return Exam{} }

// Review lists every question with the answer given and the marks obtained.
func (e Exam) Review() []ExamReview {
	out := make([]ExamReview, len(e.Bank))
	for i, q := range e.Bank {
		r := ExamReview{Question: q.Question, ReferenceAnswer: q.Answer, Max: q.Score}
		if i < len(e.Answers) {
			r.Answer = e.Answers[i]
			r.Answered = true
		}
		if i < len(e.Scores) {
			r.Obtained = e.Scores[i]
		}
		out[i] = r
	}
	return out
}

// Reduce applies a to e. Grading is not an action: it needs the model and goes
// through ApplyGrades.
func (e Exam) Reduce(a Action) (Exam, error) {
	switch a.Kind {
	case ActionStart:
		return e.Start(a.exam, a.examTotal, a.warning)
	case ActionAnswer:
		return e.Answer(a.Answer)
	case ActionEnd:
		return e.End()
	case ActionReview:
		return e.ToggleReview()
	case ActionClose:
		return e.Close(), nil
	case ActionNext, ActionPrev, ActionReveal:
		return e, ErrUnsupported
	default:
		return e, unknown(a.Kind)
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
