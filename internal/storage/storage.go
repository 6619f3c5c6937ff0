// Package storage persists accounts, subjects, chapters, and general chat history.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/benkyo/internal/models"
)

var (
	// ErrDuplicate is returned when a user, subject, or chapter already exists.
	ErrDuplicate = errors.New("already exists")
	// ErrNotFound is returned when a referenced user or subject does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials is returned when a user hash and password hash do not match.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Storage defines account, catalog, and chat persistence operations.
// Callers pass identity hashes; raw usernames and passwords never reach storage.
type Storage interface {
	// Accounts
	CreateUser(ctx context.Context, userHash, passwordHash string) (*models.User, error)
	VerifyUser(ctx context.Context, userHash, passwordHash string) (*models.User, error)
	ChangePassword(ctx context.Context, userHash, oldPasswordHash, newPasswordHash string) error

	// Catalog
	AddSubject(ctx context.Context, userID int64, name string) error
	ListSubjects(ctx context.Context, userID int64) ([]string, error)
	AddChapter(ctx context.Context, userID int64, subject, chapter string) error
	ListChapters(ctx context.Context, userID int64, subject string) ([]string, error)

	// General chat
	AppendChatMessage(ctx context.Context, userID int64, msg models.ChatMessage) error
	ListChatHistory(ctx context.Context, userID int64) ([]models.ChatMessage, error)
	ClearChatHistory(ctx context.Context, userID int64) error

	Close() error
}
