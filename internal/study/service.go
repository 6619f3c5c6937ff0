// Package study implements the user-facing features: accounts, the subject and
// chapter catalog, material upload and indexing, chat, and the quiz, flashcard,
// mind map, and exam workflows. Every feature reports failures as errors; none
// of them end the session.
package study

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/hyperjump/benkyo/internal/indexer"
	"github.com/hyperjump/benkyo/internal/llm"
	"github.com/hyperjump/benkyo/internal/materials"
	"github.com/hyperjump/benkyo/internal/search"
	"github.com/hyperjump/benkyo/internal/session"
	"github.com/hyperjump/benkyo/internal/storage"
	"go.uber.org/zap"
)

var (
	// ErrInvalidInput wraps request validation failures.
	ErrInvalidInput = errors.New("invalid input")
	// ErrReservedName is returned when a user tries to create the temporary chat subject.
	ErrReservedName = errors.New("name is reserved")
)

func invalid(err error) error {
	return fmt.Errorf("%w: %v", ErrInvalidInput, err)
}

// Service wires storage, the material store, indexing, retrieval, and the model together.
type Service struct {
	store    storage.Storage
	files    *materials.Store
	indexer  *indexer.Indexer
	sampler  *search.Sampler
	client   llm.Client
	sessions *session.Manager

	chatK  int
	now    func() time.Time
	logger *zap.Logger

	rngMu sync.Mutex
	rng   *rand.Rand
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithChatK sets how many passages ground a chat answer.
func WithChatK(k int) Option {
	return func(s *Service) {
		if k > 0 {
			s.chatK = k
		}
	}
}

// WithRand sets the source used to shuffle generated banks.
func WithRand(r *rand.Rand) Option {
	return func(s *Service) { s.rng = r }
}

// WithClock overrides time.Now for chat timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates the study service.
func NewService(
	store storage.Storage,
	files *materials.Store,
	idx *indexer.Indexer,
	sampler *search.Sampler,
	client llm.Client,
	sessions *session.Manager,
	opts ...Option,
) *Service {
	s := &Service{
		store:    store,
		files:    files,
		indexer:  idx,
		sampler:  sampler,
		client:   client,
		sessions: sessions,
		chatK:    search.DefaultChatK,
		now:      time.Now,
		logger:   zap.NewNop(),
		rng:      rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// withRand runs fn with exclusive use of the shuffle source.
func (s *Service) withRand(fn func(*rand.Rand)) {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	fn(s.rng)
}

// Sessions exposes the session manager for token lookup.
func (s *Service) Sessions() *session.Manager { return s.sessions }
