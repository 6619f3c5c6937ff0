package workflow

import "github.com/hyperjump/benkyo/internal/models"

// Quiz tracks a multiple-choice session. Chosen[i] is the option picked for Bank[i].
type Quiz struct {
	Phase  Phase                 `json:"phase"`
	Bank   []models.QuizQuestion `json:"bank,omitempty"`
	Index  int                   `json:"index"`
	Score  int                   `json:"score"`
	Chosen []string              `json:"chosen,omitempty"`
}

// QuizReview is one line of the post-quiz review.
type QuizReview struct {
	Question      string `json:"question"`
	Chosen        string `json:"chosen,omitempty"`
	CorrectOption string `json:"correct_option"`
	Correct       bool   `json:"correct"`
	Answered      bool   `json:"answered"`
}

// Start begins a fresh quiz over bank. An empty bank leaves q unchanged.
func (q Quiz) Start(bank []models.QuizQuestion) (Quiz, error) {
	if len(bank) == 0 {
		return q, ErrEmptyBank
	}
	return Quiz{Phase: InProgress, Bank: bank}, nil
}

// Current returns the question awaiting an answer.
func (q Quiz) Current() (models.QuizQuestion, bool) {
	if q.Phase != InProgress || q.Index >= len(q.Bank) {
		return models.QuizQuestion{}, false
	}
	return q.Bank[q.Index], true
}

// Answer records option for the current question, scoring 1 on an exact match with
// the correct option and 0 otherwise, then advances. Answering the last question ends the quiz.
func (q Quiz) Answer(option string) (Quiz, bool, error) {
	cur, ok := q.Current()
	if !ok {
		return q, false, ErrNotInProgress
	}
	correct := option == cur.CorrectOption
	next := q
	next.Chosen = append(append([]string(nil), q.Chosen...), option)
	if correct {
		next.Score++
	}
	next.Index++
	if next.Index == len(next.Bank) {
		next.Phase = Ended
	}
	return next, correct, nil
}

// End stops the quiz at the current question. Ending a finished quiz is a no-op.
func (q Quiz) End() (Quiz, error) {
	switch {
	case q.Phase == InProgress:
		q.Phase = Ended
		return q, nil
	case q.Phase.Finished():
		return q, nil
	default:
		return q, ErrNotInProgress
	}
}

// ToggleReview opens or closes the answer review of a finished quiz.
func (q Quiz) ToggleReview() (Quiz, error) {
	p, err := toggleReview(q.Phase)
	if err != nil {
		return q, err
	}
	q.Phase = p
	return q, nil
}

// Close discards the quiz.
func (q Quiz) Close() Quiz { return Quiz{} }

// Review lists every question with the option chosen for it.
func (q Quiz) Review() []QuizReview {
	out := make([]QuizReview, len(q.Bank))
	for i, item := range q.Bank {
		r := QuizReview{Question: item.Question, CorrectOption: item.CorrectOption}
		if i < len(q.Chosen) {
			r.Chosen = q.Chosen[i]
			r.Answered = true
			r.Correct = r.Chosen == item.CorrectOption
		}
		out[i] = r
	}
	return out
}

// Reduce applies a to q.
func (q Quiz) Reduce(a Action) (Quiz, error) {
	switch a.Kind {
	case ActionStart:
		return q.Start(a.quiz)
	case ActionAnswer:
		next, _, err := q.Answer(a.Answer)
		return next, err
	case ActionEnd:
		return q.End()
	case ActionReview:
		return q.ToggleReview()
	case ActionClose:
		return q.Close(), nil
	case ActionNext, ActionPrev, ActionReveal:
		return q, ErrUnsupported
	default:
		return q, unknown(a.Kind)
	}
}
