package study

import (
	"context"
	"errors"

	"github.com/hyperjump/benkyo/internal/indexer"
	"github.com/hyperjump/benkyo/internal/models"
	"github.com/hyperjump/benkyo/internal/prompt"
	"github.com/hyperjump/benkyo/internal/search"
	"github.com/hyperjump/benkyo/internal/session"
	"go.uber.org/zap"
)

// answer grounds question on the chapter's most similar passages. A chapter without
// an index is answered from the model's own knowledge.
func (s *Service) answer(ctx context.Context, key models.OwnerKey, question string) (string, error) {
	var contextText string
	index, err := s.indexer.Load(ctx, key)
	switch {
	case errors.Is(err, indexer.ErrIndexAbsent):
		s.logger.Debug("chat without context", zap.String("subject", key.Subject), zap.String("chapter", key.Chapter))
	case err != nil:
		return "", err
	default:
		defer index.Close()
		hits, err := s.sampler.Relevant(ctx, index, question, s.chatK)
		if err != nil {
			return "", err
		}
		contextText = search.Join(hits)
	}
	p, err := prompt.Chat(contextText, question)
	if err != nil {
		return "", err
	}
	return s.client.Generate(ctx, p)
}

func (s *Service) message(role models.Role, content string) models.ChatMessage {
	return models.ChatMessage{Role: role, Content: content, Timestamp: s.now().UTC()}
}

func checkQuestion(q string) error {
	if q == "" {
		return invalid(errors.New("message is empty"))
	}
	return nil
}

// ChapterChat answers a question about a chapter. The exchange is kept in the session
// only, trimmed to the most recent messages, and is recorded only once the model replies.
func (s *Service) ChapterChat(ctx context.Context, sess *session.Session, subject, chapter, question string) (string, error) {
	if err := checkQuestion(question); err != nil {
		return "", err
	}
	key, err := s.chapterKey(ctx, sess.User, subject, chapter)
	if err != nil {
		return "", err
	}
	asked := s.message(models.RoleUser, question)
	reply, err := s.answer(ctx, key, question)
	if err != nil {
		return "", err
	}
	sess.AppendChapterChat(key, asked, s.message(models.RoleAssistant, reply))
	return reply, nil
}

// ChapterChatHistory returns the session's conversation about a chapter.
func (s *Service) ChapterChatHistory(sess *session.Session, subject, chapter string) []models.ChatMessage {
	return sess.ChapterChat(sess.Key(subject, chapter))
}

// ClearChapterChat forgets the session's conversation about a chapter.
func (s *Service) ClearChapterChat(sess *session.Session, subject, chapter string) {
	sess.ClearChapterChat(sess.Key(subject, chapter))
}

// GeneralChat sends message to the model without retrieval. Both sides are persisted;
// the user's message is stored before the model is called.
func (s *Service) GeneralChat(ctx context.Context, sess *session.Session, message string) (string, error) {
	if err := checkQuestion(message); err != nil {
		return "", err
	}
	if err := s.store.AppendChatMessage(ctx, sess.User.ID, s.message(models.RoleUser, message)); err != nil {
		return "", err
	}
	reply, err := s.client.Generate(ctx, message)
	if err != nil {
		return "", err
	}
	if err := s.store.AppendChatMessage(ctx, sess.User.ID, s.message(models.RoleAssistant, reply)); err != nil {
		return "", err
	}
	return reply, nil
}

// GeneralChatHistory returns the persisted general conversation, oldest first.
func (s *Service) GeneralChatHistory(ctx context.Context, sess *session.Session) ([]models.ChatMessage, error) {
	return s.store.ListChatHistory(ctx, sess.User.ID)
}

// ClearGeneralChat deletes the persisted general conversation.
func (s *Service) ClearGeneralChat(ctx context.Context, sess *session.Session) error {
	return s.store.ClearChatHistory(ctx, sess.User.ID)
}
