package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/hyperjump/benkyo/internal/models"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	// Foreign keys are a per-connection setting, so enable them in the DSN for every pooled connection.
	db, err := sql.Open("sqlite3", "file:"+dbPath+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_hash TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS subjects (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		name TEXT NOT NULL,
		UNIQUE (user_id, name),
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS chapters (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		subject_id INTEGER NOT NULL,
		name TEXT NOT NULL,
		UNIQUE (subject_id, name),
		FOREIGN KEY (subject_id) REFERENCES subjects(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS chat_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		timestamp DATETIME NOT NULL,
		role TEXT NOT NULL CHECK (role IN ('user', 'assistant')),
		message TEXT NOT NULL,
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_chat_history_user_time ON chat_history(user_id, timestamp);
	`
	_, err := db.Exec(schema)
	return err
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}

// CreateUser registers a new account.
func (s *SQLiteStorage) CreateUser(ctx context.Context, userHash, passwordHash string) (*models.User, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (user_hash, password_hash) VALUES (?, ?)`,
		userHash, passwordHash,
	)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("user: %w", ErrDuplicate)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &models.User{ID: id, UserHash: userHash, PasswordHash: passwordHash}, nil
}

func (s *SQLiteStorage) getUser(ctx context.Context, userHash string) (*models.User, error) {
	var u models.User
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_hash, password_hash FROM users WHERE user_hash = ?`, userHash,
	).Scan(&u.ID, &u.UserHash, &u.PasswordHash)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user: %w", ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// VerifyUser returns the user when the password hash matches. Unknown users and wrong
// passwords are indistinguishable to the caller.
func (s *SQLiteStorage) VerifyUser(ctx context.Context, userHash, passwordHash string) (*models.User, error) {
	u, err := s.getUser(ctx, userHash)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if u.PasswordHash != passwordHash {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// ChangePassword replaces the password hash after verifying the old one.
func (s *SQLiteStorage) ChangePassword(ctx context.Context, userHash, oldPasswordHash, newPasswordHash string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ? WHERE user_hash = ? AND password_hash = ?`,
		newPasswordHash, userHash, oldPasswordHash,
	)
	if err != nil {
		return fmt.Errorf("failed to change password: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrInvalidCredentials
	}
	return nil
}

// AddSubject creates a subject for the user.
func (s *SQLiteStorage) AddSubject(ctx context.Context, userID int64, name string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO subjects (user_id, name) VALUES (?, ?)`, userID, name,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("subject %q: %w", name, ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("failed to add subject: %w", err)
	}
	return nil
}

// ListSubjects returns the user's subjects sorted by name.
func (s *SQLiteStorage) ListSubjects(ctx context.Context, userID int64) ([]string, error) {
	return s.names(ctx, `SELECT name FROM subjects WHERE user_id = ? ORDER BY name`, userID)
}

// AddChapter creates a chapter, creating its subject first when it does not exist yet.
func (s *SQLiteStorage) AddChapter(ctx context.Context, userID int64, subject, chapter string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO subjects (user_id, name) VALUES (?, ?)`, userID, subject,
	); err != nil {
		return fmt.Errorf("failed to ensure subject: %w", err)
	}
	var subjectID int64
	if err := tx.QueryRowContext(ctx,
		`SELECT id FROM subjects WHERE user_id = ? AND name = ?`, userID, subject,
	).Scan(&subjectID); err != nil {
		return fmt.Errorf("failed to look up subject: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO chapters (subject_id, name) VALUES (?, ?)`, subjectID, chapter,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("chapter %q: %w", chapter, ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("failed to add chapter: %w", err)
	}
	return tx.Commit()
}

// ListChapters returns the chapters of a subject sorted by name.
func (s *SQLiteStorage) ListChapters(ctx context.Context, userID int64, subject string) ([]string, error) {
	var subjectID int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM subjects WHERE user_id = ? AND name = ?`, userID, subject,
	).Scan(&subjectID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("subject %q: %w", subject, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return s.names(ctx, `SELECT name FROM chapters WHERE subject_id = ? ORDER BY name`, subjectID)
}

func (s *SQLiteStorage) names(ctx context.Context, query string, arg int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

// AppendChatMessage stores one general chat message. A zero timestamp is set to now.
func (s *SQLiteStorage) AppendChatMessage(ctx context.Context, userID int64, msg models.ChatMessage) error {
	if !msg.Role.Valid() {
		return fmt.Errorf("invalid chat role %q", msg.Role)
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_history (user_id, timestamp, role, message) VALUES (?, ?, ?, ?)`,
		userID, msg.Timestamp.UTC(), string(msg.Role), msg.Content,
	)
	if err != nil {
		return fmt.Errorf("failed to append chat message: %w", err)
	}
	return nil
}

// ListChatHistory returns the user's general chat, oldest first.
func (s *SQLiteStorage) ListChatHistory(ctx context.Context, userID int64) ([]models.ChatMessage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT timestamp, role, message FROM chat_history
		 WHERE user_id = ? ORDER BY timestamp ASC, id ASC`, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]models.ChatMessage, 0)
	for rows.Next() {
		var msg models.ChatMessage
		var role string
		if err := rows.Scan(&msg.Timestamp, &role, &msg.Content); err != nil {
			return nil, err
		}
		msg.Role = models.Role(role)
		out = append(out, msg)
	}
	return out, rows.Err()
}

// ClearChatHistory deletes the user's general chat.
func (s *SQLiteStorage) ClearChatHistory(ctx context.Context, userID int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM chat_history WHERE user_id = ?`, userID)
	return err
}

// Close closes the database.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
