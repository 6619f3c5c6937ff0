package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hyperjump/benkyo/internal/identity"
	"github.com/hyperjump/benkyo/internal/models"
	"github.com/hyperjump/benkyo/internal/workflow"
	"go.uber.org/zap"
)

type nameRequest struct {
	Name string `json:"name"`
}

type passwordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

type messageRequest struct {
	Message string `json:"message"`
}

type replyResponse struct {
	Reply string `json:"reply"`
}

type loginResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
	})
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var creds identity.Credentials
	if !s.decode(w, r, &creds) {
		return
	}
	user, err := s.study.Signup(r.Context(), creds)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, user)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds identity.Credentials
	if !s.decode(w, r, &creds) {
		return
	}
	sess, err := s.study.Login(r.Context(), creds)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, loginResponse{Token: sess.Token, User: sess.User})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.study.Logout(r.Context(), sessionFrom(r).Token); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req passwordRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.study.ChangePassword(r.Context(), sessionFrom(r), req.OldPassword, req.NewPassword); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.study.Status(r.Context(), sessionFrom(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, st)
}

func (s *Server) handleListSubjects(w http.ResponseWriter, r *http.Request) {
	subjects, err := s.study.ListSubjects(r.Context(), sessionFrom(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"subjects": nonNil(subjects)})
}

func (s *Server) handleAddSubject(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.study.AddSubject(r.Context(), sessionFrom(r), req.Name); err != nil {
		s.fail(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, map[string]string{"subject": req.Name})
}

func (s *Server) handleListChapters(w http.ResponseWriter, r *http.Request) {
	subject, ok := s.param(w, r, "subject")
	if !ok {
		return
	}
	chapters, err := s.study.ListChapters(r.Context(), sessionFrom(r), subject)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"subject": subject, "chapters": nonNil(chapters)})
}

func (s *Server) handleAddChapter(w http.ResponseWriter, r *http.Request) {
	subject, ok := s.param(w, r, "subject")
	if !ok {
		return
	}
	var req nameRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.study.AddChapter(r.Context(), sessionFrom(r), subject, req.Name); err != nil {
		s.fail(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, map[string]string{"subject": subject, "chapter": req.Name})
}

func (s *Server) handleListMaterials(w http.ResponseWriter, r *http.Request) {
	subject, chapter, ok := s.chapterParams(w, r)
	if !ok {
		return
	}
	files, err := s.study.ListMaterials(r.Context(), sessionFrom(r), subject, chapter)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"materials": nonNil(files)})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	subject, chapter, ok := s.chapterParams(w, r)
	if !ok {
		return
	}
	file, name, ok := s.formFile(w, r)
	if !ok {
		return
	}
	defer file.Close()
	if err := s.study.Upload(r.Context(), sessionFrom(r), subject, chapter, name, file); err != nil {
		s.fail(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, map[string]string{"name": name})
}

func (s *Server) handleDeleteMaterial(w http.ResponseWriter, r *http.Request) {
	subject, chapter, ok := s.chapterParams(w, r)
	if !ok {
		return
	}
	name, ok := s.param(w, r, "name")
	if !ok {
		return
	}
	res, err := s.study.DeleteMaterial(r.Context(), sessionFrom(r), subject, chapter, name)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	subject, chapter, ok := s.chapterParams(w, r)
	if !ok {
		return
	}
	res, err := s.study.Process(r.Context(), sessionFrom(r), subject, chapter)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleChapterChatHistory(w http.ResponseWriter, r *http.Request) {
	subject, chapter, ok := s.chapterParams(w, r)
	if !ok {
		return
	}
	history := s.study.ChapterChatHistory(sessionFrom(r), subject, chapter)
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"messages": nonNil(history)})
}

func (s *Server) handleChapterChat(w http.ResponseWriter, r *http.Request) {
	subject, chapter, ok := s.chapterParams(w, r)
	if !ok {
		return
	}
	var req messageRequest
	if !s.decode(w, r, &req) {
		return
	}
	reply, err := s.study.ChapterChat(r.Context(), sessionFrom(r), subject, chapter, req.Message)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, replyResponse{Reply: reply})
}

func (s *Server) handleClearChapterChat(w http.ResponseWriter, r *http.Request) {
	subject, chapter, ok := s.chapterParams(w, r)
	if !ok {
		return
	}
	s.study.ClearChapterChat(sessionFrom(r), subject, chapter)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGenerateMindMap(w http.ResponseWriter, r *http.Request) {
	subject, chapter, ok := s.chapterParams(w, r)
	if !ok {
		return
	}
	mm, err := s.study.GenerateMindMap(r.Context(), sessionFrom(r), subject, chapter)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, mm)
}

func (s *Server) handleGetMindMap(w http.ResponseWriter, r *http.Request) {
	st := sessionFrom(r).Snapshot()
	if st.MindMap.Source == "" {
		s.respondError(w, http.StatusNotFound, "no mind map generated")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"mind_map": st.MindMap, "key": st.MindMapKey})
}

func (s *Server) handleGetQuiz(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, newQuizView(sessionFrom(r).Snapshot().Quiz))
}

func (s *Server) handleGenerateQuiz(w http.ResponseWriter, r *http.Request) {
	var req models.GenerateRequest
	if !s.decode(w, r, &req) {
		return
	}
	q, err := s.study.GenerateQuiz(r.Context(), sessionFrom(r), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, newQuizView(q))
}

func (s *Server) handleQuizAction(w http.ResponseWriter, r *http.Request) {
	var a workflow.Action
	if !s.decode(w, r, &a) {
		return
	}
	q, err := s.study.QuizAction(sessionFrom(r), a)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, newQuizView(q))
}

func (s *Server) handleGetFlashcards(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, newFlashcardsView(sessionFrom(r).Snapshot().Flashcards))
}

func (s *Server) handleGenerateFlashcards(w http.ResponseWriter, r *http.Request) {
	var req models.GenerateRequest
	if !s.decode(w, r, &req) {
		return
	}
	f, err := s.study.GenerateFlashcards(r.Context(), sessionFrom(r), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, newFlashcardsView(f))
}

func (s *Server) handleFlashcardAction(w http.ResponseWriter, r *http.Request) {
	var a workflow.Action
	if !s.decode(w, r, &a) {
		return
	}
	f, err := s.study.FlashcardAction(sessionFrom(r), a)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, newFlashcardsView(f))
}

func (s *Server) handleGetExam(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, newExamResultView(s.study.ExamState(sessionFrom(r))))
}

func (s *Server) handleGenerateExam(w http.ResponseWriter, r *http.Request) {
	var req models.GenerateRequest
	if !s.decode(w, r, &req) {
		return
	}
	sess := sessionFrom(r)
	if _, err := s.study.GenerateExam(r.Context(), sess, req); err != nil {
		s.fail(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, newExamResultView(s.study.ExamState(sess)))
}

func (s *Server) handleExamAction(w http.ResponseWriter, r *http.Request) {
	var a workflow.Action
	if !s.decode(w, r, &a) {
		return
	}
	res, err := s.study.ExamAction(r.Context(), sessionFrom(r), a)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, newExamResultView(res))
}

func (s *Server) handleGradeExam(w http.ResponseWriter, r *http.Request) {
	res, err := s.study.GradeExam(r.Context(), sessionFrom(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, newExamResultView(res))
}

func (s *Server) handleGeneralChatHistory(w http.ResponseWriter, r *http.Request) {
	history, err := s.study.GeneralChatHistory(r.Context(), sessionFrom(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"messages": nonNil(history)})
}

func (s *Server) handleGeneralChat(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if !s.decode(w, r, &req) {
		return
	}
	reply, err := s.study.GeneralChat(r.Context(), sessionFrom(r), req.Message)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, replyResponse{Reply: reply})
}

func (s *Server) handleClearGeneralChat(w http.ResponseWriter, r *http.Request) {
	if err := s.study.ClearGeneralChat(r.Context(), sessionFrom(r)); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTemporaryUpload(w http.ResponseWriter, r *http.Request) {
	file, name, ok := s.formFile(w, r)
	if !ok {
		return
	}
	defer file.Close()
	res, err := s.study.TemporaryUpload(r.Context(), sessionFrom(r), name, file)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, res)
}

func (s *Server) handleTemporaryChatHistory(w http.ResponseWriter, r *http.Request) {
	history := s.study.TemporaryChatHistory(sessionFrom(r))
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"messages": nonNil(history)})
}

func (s *Server) handleTemporaryChat(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if !s.decode(w, r, &req) {
		return
	}
	reply, err := s.study.TemporaryChat(r.Context(), sessionFrom(r), req.Message)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, replyResponse{Reply: reply})
}

func (s *Server) handleClearTemporary(w http.ResponseWriter, r *http.Request) {
	if err := s.study.ClearTemporary(r.Context(), sessionFrom(r)); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// param returns the unescaped URL parameter.
func (s *Server) param(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	v, err := url.PathUnescape(chi.URLParam(r, name))
	if err != nil || v == "" {
		s.respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid %s", name))
		return "", false
	}
	return v, true
}

func (s *Server) chapterParams(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	subject, ok := s.param(w, r, "subject")
	if !ok {
		return "", "", false
	}
	chapter, ok := s.param(w, r, "chapter")
	return subject, chapter, ok
}

func (s *Server) formFile(w http.ResponseWriter, r *http.Request) (multipart.File, string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(w, http.StatusRequestEntityTooLarge, "file too large")
			return nil, "", false
		}
		s.respondError(w, http.StatusBadRequest, "multipart field \"file\" is required")
		return nil, "", false
	}
	return file, header.Filename, true
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
