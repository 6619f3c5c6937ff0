// Package models defines core data structures for owners, materials, study items, and chat.
package models

import (
	"path/filepath"
	"time"
)

// Temporary chat lives under a reserved subject, one chapter per session, and is
// wiped when the session ends.
const (
	TemporarySubject = "Temporary"
	TemporaryChapter = "Temporary Chat"
)

// OwnerKey scopes materials, indexes, and workflows to one user's chapter.
type OwnerKey struct {
	UserHash string `json:"-"`
	Subject  string `json:"subject"`
	Chapter  string `json:"chapter"`
}

// TemporaryKey returns the temporary chat chapter of one session.
func TemporaryKey(userHash, sessionID string) OwnerKey {
	return OwnerKey{UserHash: userHash, Subject: TemporarySubject, Chapter: TemporaryChapter + " " + sessionID}
}

// IsTemporary reports whether the key points at a temporary chat chapter.
func (k OwnerKey) IsTemporary() bool {
	return k.Subject == TemporarySubject
}

// RelPath returns "<subject>/<chapter>" using the OS separator.
func (k OwnerKey) RelPath() string {
	return filepath.Join(k.Subject, k.Chapter)
}

func (k OwnerKey) String() string {
	return k.UserHash + ":" + k.Subject + "/" + k.Chapter
}

// User is a registered account. Username is never stored; only its hash is.
type User struct {
	ID           int64  `json:"id" db:"id"`
	UserHash     string `json:"user_hash" db:"user_hash"`
	PasswordHash string `json:"-" db:"password_hash"`
}

// Material is an uploaded source file for a chapter.
type Material struct {
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

// Role is the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the roles accepted by chat history.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// ChatMessage is one turn of a conversation.
type ChatMessage struct {
	Role      Role      `json:"role" db:"role"`
	Content   string    `json:"content" db:"message"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"`
}
