package study

import (
	"context"
	"errors"
	"io"

	"github.com/hyperjump/benkyo/internal/indexer"
	"github.com/hyperjump/benkyo/internal/models"
	"github.com/hyperjump/benkyo/internal/session"
)

func temporaryKey(sess *session.Session) models.OwnerKey {
	return models.TemporaryKey(sess.UserHash(), sess.ID)
}

// TemporaryUpload adds a file to the session's temporary chat and re-indexes it.
// Temporary material lives until the session ends or ClearTemporary; other sessions
// of the same user never see it.
func (s *Service) TemporaryUpload(ctx context.Context, sess *session.Session, name string, r io.Reader) (*indexer.BuildResult, error) {
	key := temporaryKey(sess)
	if err := s.files.Save(key, name, r); err != nil {
		return nil, err
	}
	return s.indexer.Rebuild(ctx, key)
}

// TemporaryChat answers a question grounded on the temporary material. Messages are
// kept in the session only.
func (s *Service) TemporaryChat(ctx context.Context, sess *session.Session, question string) (string, error) {
	if err := checkQuestion(question); err != nil {
		return "", err
	}
	asked := s.message(models.RoleUser, question)
	reply, err := s.answer(ctx, temporaryKey(sess), question)
	if err != nil {
		return "", err
	}
	sess.AppendTemporaryChat(asked, s.message(models.RoleAssistant, reply))
	return reply, nil
}

// TemporaryChatHistory returns the temporary conversation.
func (s *Service) TemporaryChatHistory(sess *session.Session) []models.ChatMessage {
	return sess.TemporaryChat()
}

// ClearTemporary drops the temporary conversation, material, and index.
func (s *Service) ClearTemporary(ctx context.Context, sess *session.Session) error {
	return s.discardTemporary(ctx, sess)
}

func (s *Service) discardTemporary(ctx context.Context, sess *session.Session) error {
	sess.ClearTemporaryChat()
	key := temporaryKey(sess)
	return errors.Join(s.indexer.Remove(ctx, key), s.files.RemoveChapter(key))
}
