package server

import (
	"errors"
	"net/http"

	"github.com/hyperjump/benkyo/internal/extract"
	"github.com/hyperjump/benkyo/internal/indexer"
	"github.com/hyperjump/benkyo/internal/llm"
	"github.com/hyperjump/benkyo/internal/materials"
	"github.com/hyperjump/benkyo/internal/parse"
	"github.com/hyperjump/benkyo/internal/session"
	"github.com/hyperjump/benkyo/internal/storage"
	"github.com/hyperjump/benkyo/internal/study"
	"github.com/hyperjump/benkyo/internal/workflow"
	"go.uber.org/zap"
)

// statusFor maps a feature error to the HTTP status reported to the client.
func statusFor(err error) int {
	var (
		modelErr *llm.ModelInvocationError
		parseErr *parse.ResponseParseError
	)
	switch {
	case errors.Is(err, study.ErrInvalidInput),
		errors.Is(err, study.ErrReservedName),
		errors.Is(err, materials.ErrInvalidName),
		errors.Is(err, extract.ErrUnsupported),
		errors.Is(err, workflow.ErrUnknownAction):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrInvalidCredentials),
		errors.Is(err, session.ErrNotFound):
		return http.StatusUnauthorized
	case errors.Is(err, storage.ErrNotFound),
		errors.Is(err, materials.ErrMaterialNotFound):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrDuplicate),
		errors.Is(err, materials.ErrDuplicateMaterial),
		errors.Is(err, indexer.ErrIndexAbsent),
		errors.Is(err, workflow.ErrEmptyBank),
		errors.Is(err, workflow.ErrNotInProgress),
		errors.Is(err, workflow.ErrNotEnded),
		errors.Is(err, workflow.ErrAlreadyGraded),
		errors.Is(err, workflow.ErrStaleGrades),
		errors.Is(err, workflow.ErrUnsupported):
		return http.StatusConflict
	case errors.Is(err, indexer.ErrNoMaterials):
		return http.StatusUnprocessableEntity
	case errors.As(err, &modelErr), errors.As(err, &parseErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// fail reports err to the client. Server-side failures are logged; client errors are not.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	} else {
		s.logger.Debug("request rejected", zap.String("path", r.URL.Path), zap.Int("status", status), zap.Error(err))
	}
	msg := err.Error()
	if errors.Is(err, indexer.ErrIndexAbsent) {
		msg = "this chapter has no processed materials yet; upload files and process them first"
	}
	s.respondError(w, status, msg)
}
