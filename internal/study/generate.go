package study

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strconv"

	"github.com/hyperjump/benkyo/internal/models"
	"github.com/hyperjump/benkyo/internal/parse"
	"github.com/hyperjump/benkyo/internal/prompt"
	"github.com/hyperjump/benkyo/internal/session"
	"github.com/hyperjump/benkyo/internal/vector"
	"github.com/hyperjump/benkyo/internal/workflow"
	"go.uber.org/zap"
)

// generation is what one model round trip produced for a task.
type generation struct {
	quiz    []models.QuizQuestion
	deck    []models.Flashcard
	exam    []models.ExamQuestion
	warning string
	mindMap models.MindMap
}

// generate runs retrieval, prompting, and parsing for task. Concurrent requests for
// the same task, chapter, and variant (question count, total marks) within a session
// share a single model call.
// A chapter without an index yields indexer.ErrIndexAbsent before the model is called.
func (s *Service) generate(ctx context.Context, sess *session.Session, key models.OwnerKey, task models.Task, variant string,
	render func(context string) (string, error), parseFn func(raw string) (*generation, error)) (*generation, error) {
	v, err, shared := sess.Do(string(task)+"|"+key.String()+"|"+variant, func() (any, error) {
		index, err := s.indexer.Load(ctx, key)
		if err != nil {
			return nil, err
		}
		defer index.Close()
		return s.runGeneration(ctx, index, task, render, parseFn)
	})
	if shared {
		s.logger.Debug("generation shared with concurrent request", zap.String("task", string(task)))
	}
	if err != nil {
		return nil, err
	}
	return v.(*generation), nil
}

func (s *Service) runGeneration(ctx context.Context, index vector.VectorIndex, task models.Task,
	render func(string) (string, error), parseFn func(string) (*generation, error)) (*generation, error) {
	contextText, err := s.sampler.Context(ctx, index, task)
	if err != nil {
		return nil, err
	}
	p, err := render(contextText)
	if err != nil {
		return nil, err
	}
	raw, err := s.client.Generate(ctx, p)
	if err != nil {
		s.logger.Warn("generation failed", zap.String("task", string(task)), zap.Error(err))
		return nil, err
	}
	g, err := parseFn(raw)
	if err != nil {
		s.logger.Warn("model output rejected", zap.String("task", string(task)), zap.Error(err))
		return nil, err
	}
	return g, nil
}

func (s *Service) generationKey(ctx context.Context, sess *session.Session, req *models.GenerateRequest) (models.OwnerKey, error) {
	if err := req.Validate(); err != nil {
		return models.OwnerKey{}, invalid(err)
	}
	return s.chapterKey(ctx, sess.User, req.Subject, req.Chapter)
}

// GenerateQuiz builds a quiz for the chapter and starts it. On any failure the
// session's quiz is left as it was.
func (s *Service) GenerateQuiz(ctx context.Context, sess *session.Session, req models.GenerateRequest) (workflow.Quiz, error) {
	key, err := s.generationKey(ctx, sess, &req)
	if err != nil {
		return workflow.Quiz{}, err
	}
	g, err := s.generate(ctx, sess, key, models.TaskQuiz, strconv.Itoa(req.Count),
		func(c string) (string, error) { return prompt.Quiz(c, req.Count) },
		func(raw string) (*generation, error) {
			var bank []models.QuizQuestion
			var perr error
			s.withRand(func(r *rand.Rand) { bank, perr = parse.Quiz(raw, r) })
			return &generation{quiz: bank}, perr
		})
	if err != nil {
		return sess.Snapshot().Quiz, err
	}
	var out workflow.Quiz
	err = sess.Update(func(st *session.State) error {
		q, err := st.Quiz.Reduce(workflow.StartQuiz(g.quiz))
		if err != nil {
			return err
		}
		st.Quiz, st.QuizKey, out = q, key, q
		return nil
	})
	return out, err
}

// GenerateFlashcards builds a deck for the chapter and starts it.
func (s *Service) GenerateFlashcards(ctx context.Context, sess *session.Session, req models.GenerateRequest) (workflow.Flashcards, error) {
	key, err := s.generationKey(ctx, sess, &req)
	if err != nil {
		return workflow.Flashcards{}, err
	}
	g, err := s.generate(ctx, sess, key, models.TaskFlashcards, strconv.Itoa(req.Count),
		func(c string) (string, error) { return prompt.Flashcards(c, req.Count) },
		func(raw string) (*generation, error) {
			var deck []models.Flashcard
			var perr error
			s.withRand(func(r *rand.Rand) { deck, perr = parse.Flashcards(raw, r) })
			return &generation{deck: deck}, perr
		})
	if err != nil {
		return sess.Snapshot().Flashcards, err
	}
	var out workflow.Flashcards
	err = sess.Update(func(st *session.State) error {
		f, err := st.Flashcards.Reduce(workflow.StartFlashcards(g.deck))
		if err != nil {
			return err
		}
		st.Flashcards, st.FlashcardsKey, out = f, key, f
		return nil
	})
	return out, err
}

// GenerateExam builds an exam worth req.TotalScore marks and starts it. When the
// model's per-question scores do not add up to the total, the exam still starts and
// carries a warning.
func (s *Service) GenerateExam(ctx context.Context, sess *session.Session, req models.GenerateRequest) (workflow.Exam, error) {
	key, err := s.generationKey(ctx, sess, &req)
	if err != nil {
		return workflow.Exam{}, err
	}
	g, err := s.generate(ctx, sess, key, models.TaskExam, fmt.Sprintf("%d/%g", req.Count, req.TotalScore),
		func(c string) (string, error) { return prompt.Exam(c, req.Count, req.TotalScore) },
		func(raw string) (*generation, error) {
			var bank []models.ExamQuestion
			var warning string
			var perr error
			s.withRand(func(r *rand.Rand) { bank, warning, perr = parse.Exam(raw, req.TotalScore, r) })
			return &generation{exam: bank, warning: warning}, perr
		})
	if err != nil {
		return sess.Snapshot().Exam, err
	}
	if g.warning != "" {
		s.logger.Warn("exam scores do not match requested total", zap.String("detail", g.warning))
	}
	var out workflow.Exam
	err = sess.Update(func(st *session.State) error {
		e, err := st.Exam.Reduce(workflow.StartExam(g.exam, req.TotalScore, g.warning))
		if err != nil {
			return err
		}
		st.Exam, st.ExamKey, out = e, key, e
		return nil
	})
	return out, err
}

// GenerateMindMap builds a mermaid mind map for the chapter and keeps it in the session.
func (s *Service) GenerateMindMap(ctx context.Context, sess *session.Session, subject, chapter string) (models.MindMap, error) {
	key, err := s.chapterKey(ctx, sess.User, subject, chapter)
	if err != nil {
		return models.MindMap{}, err
	}
	g, err := s.generate(ctx, sess, key, models.TaskMindMap, "", prompt.MindMap,
		func(raw string) (*generation, error) {
			mm, err := parse.MindMap(raw)
			return &generation{mindMap: mm}, err
		})
	if err != nil {
		return models.MindMap{}, err
	}
	err = sess.Update(func(st *session.State) error {
		st.MindMap, st.MindMapKey = g.mindMap, key
		return nil
	})
	return g.mindMap, err
}
