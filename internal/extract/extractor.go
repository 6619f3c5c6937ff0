// Package extract turns uploaded study materials into plain text.
package extract

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// ErrUnsupported is returned for file types the extractor cannot read.
var ErrUnsupported = errors.New("unsupported file type")

// SupportedExtensions lists the material types accepted for upload and ingestion.
var SupportedExtensions = []string{".pdf", ".docx", ".txt", ".md", ".pptx", ".xlsx"}

// Extractor extracts plain text from material files.
type Extractor struct {
	logger *zap.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger sets the logger used to report skipped files and pages.
func WithLogger(l *zap.Logger) Option {
	return func(e *Extractor) {
		e.logger = l
	}
}

// NewExtractor returns a new Extractor.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Supported reports whether ext (with leading dot, any case) can be extracted.
func Supported(ext string) bool {
	ext = strings.ToLower(ext)
	for _, s := range SupportedExtensions {
		if ext == s {
			return true
		}
	}
	return false
}

// Extract reads the file at path and returns its text content.
func (e *Extractor) Extract(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if !Supported(ext) {
		return "", fmt.Errorf("%w: %s", ErrUnsupported, filepath.Base(path))
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	return e.ExtractBytes(content, ext)
}

// ExtractBytes extracts text from content based on the given extension.
// ext should include the leading dot (e.g. ".pdf").
func (e *Extractor) ExtractBytes(content []byte, ext string) (string, error) {
	switch strings.ToLower(ext) {
	case ".pdf":
		return e.extractPDF(content)
	case ".docx":
		return extractDOCX(content)
	case ".pptx":
		return extractPPTX(content)
	case ".xlsx":
		return extractExcel(content)
	case ".txt", ".md":
		return extractPlain(content)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupported, ext)
	}
}

// ExtractDirectory extracts every supported file directly inside dir, in lexical
// filename order, and joins the texts with newlines. Unsupported or unreadable files
// are logged and skipped. It returns the joined text and the number of files that
// contributed to it. A missing directory yields no text and no error.
func (e *Extractor) ExtractDirectory(dir string) (string, int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", 0, nil
		}
		return "", 0, fmt.Errorf("read materials dir: %w", err)
	}
	var texts []string
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		text, err := e.Extract(path)
		if err != nil {
			if e.logger != nil {
				e.logger.Warn("skipping material", zap.String("path", path), zap.Error(err))
			}
			continue
		}
		if strings.TrimSpace(text) == "" {
			if e.logger != nil {
				e.logger.Debug("material has no text", zap.String("path", path))
			}
			continue
		}
		texts = append(texts, text)
	}
	return strings.Join(texts, "\n"), len(texts), nil
}
