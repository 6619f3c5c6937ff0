package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/hyperjump/benkyo/internal/session"
)

type ctxKey int

const sessionKey ctxKey = iota

// authenticate resolves the bearer token to a live session.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			s.respondError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		sess, err := s.study.Sessions().Get(token)
		if err != nil {
			s.respondError(w, http.StatusUnauthorized, err.Error())
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey, sess)))
	})
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(h[len(prefix):]), true
}

func sessionFrom(r *http.Request) *session.Session {
	sess, _ := r.Context().Value(sessionKey).(*session.Session)
	return sess
}
