package study

import (
	"context"
	"fmt"
	"slices"

	"github.com/hyperjump/benkyo/internal/materials"
	"github.com/hyperjump/benkyo/internal/models"
	"github.com/hyperjump/benkyo/internal/session"
	"github.com/hyperjump/benkyo/internal/storage"
)

// AddSubject creates a subject for the session user.
func (s *Service) AddSubject(ctx context.Context, sess *session.Session, name string) error {
	if err := checkCatalogName(name); err != nil {
		return err
	}
	if name == models.TemporarySubject {
		return fmt.Errorf("%w: %s", ErrReservedName, name)
	}
	return s.store.AddSubject(ctx, sess.User.ID, name)
}

// ListSubjects returns the session user's subjects.
func (s *Service) ListSubjects(ctx context.Context, sess *session.Session) ([]string, error) {
	return s.store.ListSubjects(ctx, sess.User.ID)
}

// AddChapter creates a chapter, creating its subject when needed.
func (s *Service) AddChapter(ctx context.Context, sess *session.Session, subject, chapter string) error {
	if err := checkCatalogName(subject); err != nil {
		return err
	}
	if err := checkCatalogName(chapter); err != nil {
		return err
	}
	if subject == models.TemporarySubject {
		return fmt.Errorf("%w: %s", ErrReservedName, subject)
	}
	return s.store.AddChapter(ctx, sess.User.ID, subject, chapter)
}

// ListChapters returns the chapters of subject; an unknown subject yields storage.ErrNotFound.
func (s *Service) ListChapters(ctx context.Context, sess *session.Session, subject string) ([]string, error) {
	return s.store.ListChapters(ctx, sess.User.ID, subject)
}

// chapterKey resolves subject and chapter to an owner key, checking that the chapter exists.
func (s *Service) chapterKey(ctx context.Context, user models.User, subject, chapter string) (models.OwnerKey, error) {
	key := models.OwnerKey{UserHash: user.UserHash, Subject: subject, Chapter: chapter}
	if err := materials.ValidKey(key); err != nil {
		return key, invalid(err)
	}
	chapters, err := s.store.ListChapters(ctx, user.ID, subject)
	if err != nil {
		return key, err
	}
	if !slices.Contains(chapters, chapter) {
		return key, fmt.Errorf("chapter %q: %w", chapter, storage.ErrNotFound)
	}
	return key, nil
}

func checkCatalogName(name string) error {
	if err := materials.ValidName(name); err != nil {
		return invalid(err)
	}
	return nil
}
