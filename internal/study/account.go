package study

import (
	"context"
	"fmt"

	"github.com/hyperjump/benkyo/internal/identity"
	"github.com/hyperjump/benkyo/internal/models"
	"github.com/hyperjump/benkyo/internal/session"
	"go.uber.org/zap"
)

// Signup registers a new account and creates its file namespace.
// A taken username yields storage.ErrDuplicate.
func (s *Service) Signup(ctx context.Context, creds identity.Credentials) (*models.User, error) {
	if err := creds.Validate(); err != nil {
		return nil, invalid(err)
	}
	user, err := s.store.CreateUser(ctx, creds.UserHash(), creds.PasswordHash())
	if err != nil {
		return nil, err
	}
	if err := s.files.EnsureUser(user.UserHash); err != nil {
		return nil, err
	}
	s.logger.Info("user signed up", zap.Int64("user_id", user.ID))
	return user, nil
}

// Authenticate verifies credentials without opening a session.
func (s *Service) Authenticate(ctx context.Context, creds identity.Credentials) (*models.User, error) {
	if err := creds.Validate(); err != nil {
		return nil, invalid(err)
	}
	return s.store.VerifyUser(ctx, creds.UserHash(), creds.PasswordHash())
}

// Login verifies credentials and opens a session with default workflow state.
// Mismatched credentials yield storage.ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, creds identity.Credentials) (*session.Session, error) {
	user, err := s.Authenticate(ctx, creds)
	if err != nil {
		return nil, err
	}
	if err := s.files.EnsureUser(user.UserHash); err != nil {
		return nil, err
	}
	sess := s.sessions.Create(*user)
	s.logger.Info("user logged in", zap.Int64("user_id", user.ID))
	return sess, nil
}

// ChangePassword replaces the session user's password after checking the old one.
func (s *Service) ChangePassword(ctx context.Context, sess *session.Session, oldPassword, newPassword string) error {
	if newPassword == "" {
		return invalid(fmt.Errorf("new password is required"))
	}
	return s.store.ChangePassword(ctx, sess.UserHash(), identity.Hash(oldPassword), identity.Hash(newPassword))
}

// Logout ends the session and deletes its temporary chat material and index.
func (s *Service) Logout(ctx context.Context, token string) error {
	sess, ok := s.sessions.Delete(token)
	if !ok {
		return nil
	}
	return s.discardTemporary(ctx, sess)
}

// Expire releases what an idle session left behind. It is the session sweeper callback.
func (s *Service) Expire(sess *session.Session) {
	if err := s.discardTemporary(context.Background(), sess); err != nil {
		s.logger.Warn("failed to clean up expired session", zap.Int64("user_id", sess.User.ID), zap.Error(err))
	}
}
