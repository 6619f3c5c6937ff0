package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hyperjump/benkyo/internal/models"
	"go.uber.org/zap"
)

// ErrNotFound is returned for unknown or expired tokens.
var ErrNotFound = errors.New("session not found or expired")

const (
	DefaultIdleTimeout  = 12 * time.Hour
	DefaultHistoryLimit = 20
)

// Manager issues and tracks sessions by opaque token.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	idle         time.Duration
	historyLimit int
	now          func() time.Time
	logger       *zap.Logger // optional
}

// Option configures a Manager.
type Option func(*Manager)

// WithIdleTimeout expires sessions unused for d. Zero or negative disables expiry.
func WithIdleTimeout(d time.Duration) Option {
	return func(m *Manager) { m.idle = d }
}

// WithHistoryLimit caps in-session chat histories at n messages.
func WithHistoryLimit(n int) Option {
	return func(m *Manager) { m.historyLimit = n }
}

// WithLogger sets a logger for session lifecycle events.
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager creates an empty session manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		sessions:     make(map[string]*Session),
		idle:         DefaultIdleTimeout,
		historyLimit: DefaultHistoryLimit,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create starts a session for user with default workflow state.
func (m *Manager) Create(user models.User) *Session {
	s := newSession(uuid.NewString(), uuid.NewString(), user, m.historyLimit, m.now())
	m.mu.Lock()
	m.sessions[s.Token] = s
	m.mu.Unlock()
	if m.logger != nil {
		m.logger.Debug("session created", zap.Int64("user_id", user.ID))
	}
	return s
}

// Get returns the live session for token and marks it used. An expired session is
// reported as ErrNotFound but stays tracked until Sweep hands it to the caller for cleanup.
func (m *Manager) Get(token string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[token]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	now := m.now()
	if m.expired(s, now) {
		return nil, ErrNotFound
	}
	s.touch(now)
	return s, nil
}

// Delete removes the session and returns it.
func (m *Manager) Delete(token string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[token]
	if ok {
		delete(m.sessions, token)
	}
	return s, ok
}

// Len returns the number of tracked sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep drops expired sessions and returns them so callers can release their resources.
func (m *Manager) Sweep() []*Session {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	var dropped []*Session
	for token, s := range m.sessions {
		if m.expired(s, now) {
			delete(m.sessions, token)
			dropped = append(dropped, s)
		}
	}
	if m.logger != nil && len(dropped) > 0 {
		m.logger.Info("expired sessions removed", zap.Int("count", len(dropped)))
	}
	return dropped
}

// RunSweeper calls Sweep every interval until ctx is done, passing expired sessions to onExpire.
func (m *Manager) RunSweeper(ctx context.Context, interval time.Duration, onExpire func(*Session)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, s := range m.Sweep() {
				if onExpire != nil {
					onExpire(s)
				}
			}
		}
	}
}

func (m *Manager) expired(s *Session, now time.Time) bool {
	return m.idle > 0 && now.Sub(s.LastSeen()) > m.idle
}
