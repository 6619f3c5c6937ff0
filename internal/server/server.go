// Package server provides the HTTP API for benkyo.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/benkyo/internal/config"
	"github.com/hyperjump/benkyo/internal/study"
	"go.uber.org/zap"
)

const (
	// requestTimeout covers the slowest request, grading a 20-question exam.
	requestTimeout = 5 * time.Minute
	maxUploadBytes = 50 << 20
)

// Server is the HTTP server for the benkyo API.
type Server struct {
	study  *study.Service
	config *config.ServerConfig
	logger *zap.Logger
	server *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(svc *study.Service, cfg *config.ServerConfig, logger *zap.Logger) *Server {
	return &Server{
		study:  svc,
		config: cfg,
		logger: logger,
	}
}

// Handler returns the API router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(middleware.Compress(5))

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/signup", s.handleSignup)
		r.Post("/auth/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)

			r.Post("/auth/logout", s.handleLogout)
			r.Post("/auth/password", s.handleChangePassword)
			r.Get("/status", s.handleStatus)

			r.Get("/subjects", s.handleListSubjects)
			r.Post("/subjects", s.handleAddSubject)
			r.Route("/subjects/{subject}/chapters", func(r chi.Router) {
				r.Get("/", s.handleListChapters)
				r.Post("/", s.handleAddChapter)
				r.Route("/{chapter}", func(r chi.Router) {
					r.Get("/materials", s.handleListMaterials)
					r.Post("/materials", s.handleUpload)
					r.Delete("/materials/{name}", s.handleDeleteMaterial)
					r.Post("/process", s.handleProcess)
					r.Get("/chat", s.handleChapterChatHistory)
					r.Post("/chat", s.handleChapterChat)
					r.Delete("/chat", s.handleClearChapterChat)
					r.Post("/mindmap", s.handleGenerateMindMap)
				})
			})

			r.Get("/quiz", s.handleGetQuiz)
			r.Post("/quiz", s.handleGenerateQuiz)
			r.Post("/quiz/actions", s.handleQuizAction)

			r.Get("/flashcards", s.handleGetFlashcards)
			r.Post("/flashcards", s.handleGenerateFlashcards)
			r.Post("/flashcards/actions", s.handleFlashcardAction)

			r.Get("/exam", s.handleGetExam)
			r.Post("/exam", s.handleGenerateExam)
			r.Post("/exam/actions", s.handleExamAction)
			r.Post("/exam/grade", s.handleGradeExam)

			r.Get("/mindmap", s.handleGetMindMap)

			r.Get("/chat", s.handleGeneralChatHistory)
			r.Post("/chat", s.handleGeneralChat)
			r.Delete("/chat", s.handleClearGeneralChat)

			r.Post("/temporary/materials", s.handleTemporaryUpload)
			r.Get("/temporary/chat", s.handleTemporaryChatHistory)
			r.Post("/temporary/chat", s.handleTemporaryChat)
			r.Delete("/temporary", s.handleClearTemporary)
		})
	})
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
