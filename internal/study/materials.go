package study

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/hyperjump/benkyo/internal/indexer"
	"github.com/hyperjump/benkyo/internal/models"
	"github.com/hyperjump/benkyo/internal/session"
	"go.uber.org/zap"
)

// Upload stores a material file in an existing chapter. The chapter index is not
// touched until Process is called. A same-named file yields materials.ErrDuplicateMaterial.
func (s *Service) Upload(ctx context.Context, sess *session.Session, subject, chapter, name string, r io.Reader) error {
	key, err := s.chapterKey(ctx, sess.User, subject, chapter)
	if err != nil {
		return err
	}
	if err := s.files.Save(key, name, r); err != nil {
		return err
	}
	s.logger.Info("material uploaded", zap.String("subject", subject), zap.String("chapter", chapter), zap.String("name", name))
	return nil
}

// ListMaterials returns the chapter's uploaded files.
func (s *Service) ListMaterials(ctx context.Context, sess *session.Session, subject, chapter string) ([]models.Material, error) {
	key, err := s.chapterKey(ctx, sess.User, subject, chapter)
	if err != nil {
		return nil, err
	}
	return s.files.List(key)
}

// DeleteMaterial removes a file and brings the chapter index in line with what is left:
// rebuilt when materials remain, removed when none do.
func (s *Service) DeleteMaterial(ctx context.Context, sess *session.Session, subject, chapter, name string) (*indexer.BuildResult, error) {
	key, err := s.chapterKey(ctx, sess.User, subject, chapter)
	if err != nil {
		return nil, err
	}
	if err := s.files.Delete(key, name); err != nil {
		return nil, err
	}
	return s.indexer.Refresh(ctx, key)
}

// Process rebuilds the chapter index from its materials. With nothing to index it
// returns indexer.ErrNoMaterials and keeps the previous index.
func (s *Service) Process(ctx context.Context, sess *session.Session, subject, chapter string) (*indexer.BuildResult, error) {
	key, err := s.chapterKey(ctx, sess.User, subject, chapter)
	if err != nil {
		return nil, err
	}
	return s.indexer.Rebuild(ctx, key)
}

// Ingest copies local files into a chapter, creating the chapter when needed, and
// rebuilds its index. It serves command-line bulk loading, where no session exists.
// Files already uploaded under the same name are skipped.
func (s *Service) Ingest(ctx context.Context, user models.User, subject, chapter string, paths []string) (*indexer.BuildResult, error) {
	if err := checkCatalogName(subject); err != nil {
		return nil, err
	}
	if err := checkCatalogName(chapter); err != nil {
		return nil, err
	}
	if subject == models.TemporarySubject {
		return nil, fmt.Errorf("%w: %s", ErrReservedName, subject)
	}
	if err := s.store.AddChapter(ctx, user.ID, subject, chapter); err != nil && !isDuplicate(err) {
		return nil, err
	}
	key := models.OwnerKey{UserHash: user.UserHash, Subject: subject, Chapter: chapter}
	for _, path := range paths {
		if err := s.saveFile(key, path); err != nil {
			if isDuplicateMaterial(err) {
				s.logger.Warn("material already uploaded, skipping", zap.String("path", path))
				continue
			}
			return nil, err
		}
	}
	return s.indexer.Rebuild(ctx, key)
}

func (s *Service) saveFile(key models.OwnerKey, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return s.files.Save(key, filepath.Base(path), f)
}
