// Package materials manages the per-user filesystem layout: uploaded files under
// <root>/<user>/materials/<subject>/<chapter>/ and index artifacts under
// <root>/<user>/data/<subject>/<chapter>/.
package materials

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hyperjump/benkyo/internal/extract"
	"github.com/hyperjump/benkyo/internal/models"
	"go.uber.org/zap"
)

const (
	materialsDirName = "materials"
	dataDirName      = "data"
)

var (
	// ErrDuplicateMaterial is returned when a file with the same name was already uploaded.
	ErrDuplicateMaterial = errors.New("material already exists")
	// ErrMaterialNotFound is returned when deleting a file that does not exist.
	ErrMaterialNotFound = errors.New("material not found")
	// ErrInvalidName is returned for names that cannot be used as a single path element.
	ErrInvalidName = errors.New("invalid name")
)

// Store owns the materials root directory.
type Store struct {
	root   string
	logger *zap.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger for upload and cleanup events.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// NewStore returns a Store rooted at root.
func NewStore(root string, opts ...Option) *Store {
	s := &Store{root: root}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ValidName rejects names that are empty or would escape their parent directory.
func ValidName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" || trimmed == "." || trimmed == ".." ||
		strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// ValidKey checks the subject and chapter of key.
func ValidKey(key models.OwnerKey) error {
	if key.UserHash == "" {
		return fmt.Errorf("%w: empty user", ErrInvalidName)
	}
	if err := ValidName(key.Subject); err != nil {
		return err
	}
	return ValidName(key.Chapter)
}

// UserRoot returns the user's top-level directory.
func (s *Store) UserRoot(userHash string) string {
	return filepath.Join(s.root, userHash)
}

// MaterialsDir returns the directory holding a chapter's uploads.
func (s *Store) MaterialsDir(key models.OwnerKey) string {
	return filepath.Join(s.root, key.UserHash, materialsDirName, key.RelPath())
}

// DataDir returns the directory holding a chapter's index artifacts.
func (s *Store) DataDir(key models.OwnerKey) string {
	return filepath.Join(s.root, key.UserHash, dataDirName, key.RelPath())
}

// EnsureUser creates the user's materials and data directories.
func (s *Store) EnsureUser(userHash string) error {
	for _, dir := range []string{materialsDirName, dataDirName} {
		if err := os.MkdirAll(filepath.Join(s.root, userHash, dir), 0755); err != nil {
			return fmt.Errorf("create user %s dir: %w", dir, err)
		}
	}
	return nil
}

// Save writes an uploaded file into the chapter's materials directory. Existing files
// are never overwritten. Only extractable file types are accepted.
func (s *Store) Save(key models.OwnerKey, name string, r io.Reader) error {
	if err := ValidKey(key); err != nil {
		return err
	}
	name = filepath.Base(name)
	if err := ValidName(name); err != nil {
		return err
	}
	if !extract.Supported(filepath.Ext(name)) {
		return fmt.Errorf("%w: %s", extract.ErrUnsupported, name)
	}
	dir := s.MaterialsDir(key)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create materials dir: %w", err)
	}
	path := filepath.Join(dir, name)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if errors.Is(err, os.ErrExist) {
		return fmt.Errorf("%w: %s", ErrDuplicateMaterial, name)
	}
	if err != nil {
		return fmt.Errorf("create material: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return fmt.Errorf("write material: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return fmt.Errorf("close material: %w", err)
	}
	if s.logger != nil {
		s.logger.Debug("material saved", zap.String("chapter", key.String()), zap.String("name", name))
	}
	return nil
}

// List returns the chapter's uploaded files sorted by name. A chapter without uploads
// yields an empty list.
func (s *Store) List(key models.OwnerKey) ([]models.Material, error) {
	entries, err := os.ReadDir(s.MaterialsDir(key))
	if errors.Is(err, os.ErrNotExist) {
		return []models.Material{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list materials: %w", err)
	}
	out := make([]models.Material, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, models.Material{Name: e.Name(), Size: info.Size(), ModTime: info.ModTime()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Delete removes one uploaded file.
func (s *Store) Delete(key models.OwnerKey, name string) error {
	if err := ValidName(name); err != nil {
		return err
	}
	err := os.Remove(filepath.Join(s.MaterialsDir(key), name))
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrMaterialNotFound, name)
	}
	if err != nil {
		return fmt.Errorf("delete material: %w", err)
	}
	return nil
}

// RemoveChapter deletes the chapter's uploads and index artifacts.
func (s *Store) RemoveChapter(key models.OwnerKey) error {
	if err := ValidKey(key); err != nil {
		return err
	}
	for _, dir := range []string{s.MaterialsDir(key), s.DataDir(key)} {
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("remove %s: %w", dir, err)
		}
	}
	if s.logger != nil {
		s.logger.Debug("chapter files removed", zap.String("chapter", key.String()))
	}
	return nil
}

// ParseMaterialPath maps a file path under the root back to its owner key and file
// name. It reports false for paths that are not chapter materials.
func (s *Store) ParseMaterialPath(path string) (models.OwnerKey, string, bool) {
	rel, err := filepath.Rel(s.root, path)
	if err != nil {
		return models.OwnerKey{}, "", false
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) != 5 || parts[1] != materialsDirName || parts[0] == ".." {
		return models.OwnerKey{}, "", false
	}
	key := models.OwnerKey{UserHash: parts[0], Subject: parts[2], Chapter: parts[3]}
	return key, parts[4], true
}
