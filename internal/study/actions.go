package study

import (
	"context"
	"errors"
	"fmt"

	"github.com/hyperjump/benkyo/internal/parse"
	"github.com/hyperjump/benkyo/internal/prompt"
	"github.com/hyperjump/benkyo/internal/session"
	"github.com/hyperjump/benkyo/internal/workflow"
	"go.uber.org/zap"
)

// ExamResult is the exam state after an action, with the marks obtained so far and
// any per-question grading problems from this request.
type ExamResult struct {
	Exam         workflow.Exam         `json:"exam"`
	Score        float64               `json:"score"`
	Review       []workflow.ExamReview `json:"review,omitempty"`
	GradingNotes []string              `json:"grading_notes,omitempty"`
}

// clientAction rejects actions a client may not send. Start is reserved for generation.
func clientAction(a workflow.Action) error {
	if !a.Kind.Valid() {
		return invalid(fmt.Errorf("unknown action %q", a.Kind))
	}
	if a.Kind == workflow.ActionStart {
		return invalid(errors.New("workflows are started by generating a bank"))
	}
	return nil
}

// QuizAction applies a user action to the session's quiz.
func (s *Service) QuizAction(sess *session.Session, a workflow.Action) (workflow.Quiz, error) {
	if err := clientAction(a); err != nil {
		return sess.Snapshot().Quiz, err
	}
	var out workflow.Quiz
	err := sess.Update(func(st *session.State) error {
		q, err := st.Quiz.Reduce(a)
		if err != nil {
			return err
		}
		st.Quiz, out = q, q
		return nil
	})
	if err != nil {
		return sess.Snapshot().Quiz, err
	}
	return out, nil
}

// FlashcardAction applies a user action to the session's flashcard deck.
func (s *Service) FlashcardAction(sess *session.Session, a workflow.Action) (workflow.Flashcards, error) {
	if err := clientAction(a); err != nil {
		return sess.Snapshot().Flashcards, err
	}
	var out workflow.Flashcards
	err := sess.Update(func(st *session.State) error {
		f, err := st.Flashcards.Reduce(a)
		if err != nil {
			return err
		}
		st.Flashcards, out = f, f
		return nil
	})
	if err != nil {
		return sess.Snapshot().Flashcards, err
	}
	return out, nil
}

// ExamAction applies a user action to the session's exam. When the action finishes
// the exam, its answers are graded before returning.
func (s *Service) ExamAction(ctx context.Context, sess *session.Session, a workflow.Action) (*ExamResult, error) {
	if err := clientAction(a); err != nil {
		return s.examResult(sess.Snapshot().Exam, nil), err
	}
	err := sess.Update(func(st *session.State) error {
		e, err := st.Exam.Reduce(a)
		if err != nil {
			return err
		}
		st.Exam = e
		return nil
	})
	if err != nil {
		return s.examResult(sess.Snapshot().Exam, nil), err
	}
	return s.GradeExam(ctx, sess)
}

// GradeExam grades a finished exam once. Each collected answer is scored by the model
// against its question's points; a reply that is not a number scores 0 and is noted.
// Calling it again, or while the exam is running, returns the current state without
// contacting the model. A model failure leaves the exam ungraded so it can be retried.
func (s *Service) GradeExam(ctx context.Context, sess *session.Session) (*ExamResult, error) {
	exam := sess.Snapshot().Exam
	if !exam.NeedsGrading() {
		return s.examResult(exam, nil), nil
	}
	v, err, _ := sess.Do("exam-grade|"+exam.ID, func() (any, error) {
		scores, notes, err := s.gradeAnswers(ctx, exam)
		if err != nil {
			return nil, err
		}
		var graded workflow.Exam
		err = sess.Update(func(st *session.State) error {
			e, err := st.Exam.ApplyGrades(exam.ID, scores)
			if err != nil {
				return err
			}
			st.Exam, graded = e, e
			return nil
		})
		switch {
		case errors.Is(err, workflow.ErrStaleGrades):
			s.logger.Debug("exam replaced while grading, grades dropped", zap.String("exam_id", exam.ID))
			return s.examResult(sess.Snapshot().Exam, nil), nil
		case errors.Is(err, workflow.ErrAlreadyGraded):
			return s.examResult(sess.Snapshot().Exam, nil), nil
		case err != nil:
			return nil, err
		}
		s.logger.Info("exam graded", zap.Float64("score", graded.Score()), zap.Float64("total", graded.Total))
		return s.examResult(graded, notes), nil
	})
	if err != nil {
		return s.examResult(sess.Snapshot().Exam, nil), err
	}
	return v.(*ExamResult), nil
}

func (s *Service) gradeAnswers(ctx context.Context, exam workflow.Exam) ([]float64, []string, error) {
	scores := make([]float64, len(exam.Answers))
	var notes []string
	for i, answer := range exam.Answers {
		q := exam.Bank[i]
		p, err := prompt.Grade(q.Answer, answer, q.Score)
		if err != nil {
			return nil, nil, err
		}
		raw, err := s.client.Generate(ctx, p)
		if err != nil {
			s.logger.Warn("grading call failed", zap.Int("question", i+1), zap.Error(err))
			return nil, nil, err
		}
		score, err := parse.Score(raw)
		if err != nil {
			s.logger.Warn("grading reply was not a number", zap.Int("question", i+1), zap.Error(err))
			notes = append(notes, fmt.Sprintf("question %d could not be graded and scores 0", i+1))
			score = 0
		}
		scores[i] = score
	}
	return scores, notes, nil
}

func (s *Service) examResult(e workflow.Exam, notes []string) *ExamResult {
	r := &ExamResult{Exam: e, Score: e.Score(), GradingNotes: notes}
	if e.Phase == workflow.Reviewing {
		r.Review = e.Review()
	}
	return r
}

// ExamState returns the session's exam with its current score.
func (s *Service) ExamState(sess *session.Session) *ExamResult {
	return s.examResult(sess.Snapshot().Exam, nil)
}
