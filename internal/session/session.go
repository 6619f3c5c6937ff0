// Package session keeps per-login state in memory: workflow progress, the current
// mind map, and chat histories that are never persisted.
package session

import (
	"maps"
	"sync"
	"time"

	"github.com/hyperjump/benkyo/internal/models"
	"github.com/hyperjump/benkyo/internal/workflow"
	"golang.org/x/sync/singleflight"
)

// State is everything a session remembers between requests.
// The *Key fields record which chapter each workflow was generated from.
type State struct {
	Quiz          workflow.Quiz       `json:"quiz"`
	QuizKey       models.OwnerKey     `json:"quiz_key"`
	Exam          workflow.Exam       `json:"exam"`
	ExamKey       models.OwnerKey     `json:"exam_key"`
	Flashcards    workflow.Flashcards `json:"flashcards"`
	FlashcardsKey models.OwnerKey     `json:"flashcards_key"`
	MindMap       models.MindMap      `json:"mind_map"`
	MindMapKey    models.OwnerKey     `json:"mind_map_key"`

	ChapterChat   map[models.OwnerKey][]models.ChatMessage `json:"-"`
	TemporaryChat []models.ChatMessage                     `json:"-"`
}

// Session is one logged-in user. All state access goes through Snapshot and Update.
type Session struct {
	Token     string
	ID        string // names session-owned files; unlike Token it is not a credential
	User      models.User
	CreatedAt time.Time

	historyLimit int

	mu       sync.Mutex
	lastSeen time.Time
	state    State

	flight singleflight.Group
}

func newSession(token, id string, user models.User, historyLimit int, now time.Time) *Session {
	return &Session{
		Token:        token,
		ID:           id,
		User:         user,
		CreatedAt:    now,
		historyLimit: historyLimit,
		lastSeen:     now,
		state:        State{ChapterChat: make(map[models.OwnerKey][]models.ChatMessage)},
	}
}

// UserHash returns the owner hash of the session's user.
func (s *Session) UserHash() string { return s.User.UserHash }

// Key builds the owner key for one of the user's chapters.
func (s *Session) Key(subject, chapter string) models.OwnerKey {
	return models.OwnerKey{UserHash: s.User.UserHash, Subject: subject, Chapter: chapter}
}

// LastSeen returns when the session was last used.
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

// Snapshot returns a copy of the session state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state
	st.ChapterChat = maps.Clone(s.state.ChapterChat)
	return st
}

// Update runs fn on the state under the session lock. When fn fails the state is left as it was.
func (s *Session) Update(fn func(*State) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.state
	next.ChapterChat = maps.Clone(s.state.ChapterChat)
	if err := fn(&next); err != nil {
		return err
	}
	s.state = next
	return nil
}

// ChapterChat returns the in-session conversation for key.
func (s *Session) ChapterChat(key models.OwnerKey) []models.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.ChatMessage(nil), s.state.ChapterChat[key]...)
}

// AppendChapterChat adds messages to key's conversation, keeping only the most recent ones.
func (s *Session) AppendChapterChat(key models.OwnerKey, msgs ...models.ChatMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.ChapterChat[key] = s.capped(s.state.ChapterChat[key], msgs)
}

// ClearChapterChat forgets key's conversation.
func (s *Session) ClearChapterChat(key models.OwnerKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.state.ChapterChat, key)
}

// TemporaryChat returns the temporary chat conversation.
func (s *Session) TemporaryChat() []models.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.ChatMessage(nil), s.state.TemporaryChat...)
}

// AppendTemporaryChat adds messages to the temporary conversation.
func (s *Session) AppendTemporaryChat(msgs ...models.ChatMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.TemporaryChat = s.capped(s.state.TemporaryChat, msgs)
}

// ClearTemporaryChat forgets the temporary conversation.
func (s *Session) ClearTemporaryChat() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.TemporaryChat = nil
}

func (s *Session) capped(history, msgs []models.ChatMessage) []models.ChatMessage {
	out := make([]models.ChatMessage, 0, len(history)+len(msgs))
	out = append(append(out, history...), msgs...)
	if s.historyLimit > 0 && len(out) > s.historyLimit {
		out = out[len(out)-s.historyLimit:]
	}
	return out
}

// Do runs fn once for concurrent callers sharing key within this session; duplicates
// wait for and receive the first caller's result. shared reports whether the result
// was handed to more than one caller.
func (s *Session) Do(key string, fn func() (any, error)) (v any, err error, shared bool) {
	return s.flight.Do(key, fn)
}
