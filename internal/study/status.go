package study

import (
	"context"

	"github.com/hyperjump/benkyo/internal/models"
	"github.com/hyperjump/benkyo/internal/session"
)

// ChapterStatus describes one chapter's materials and index.
type ChapterStatus struct {
	Subject   string `json:"subject"`
	Chapter   string `json:"chapter"`
	Materials int    `json:"materials"`
	Indexed   bool   `json:"indexed"`
}

// Status summarizes a user's catalog and storage use.
type Status struct {
	Subjects       int             `json:"subjects"`
	Chapters       []ChapterStatus `json:"chapters"`
	DiskUsageBytes int64           `json:"disk_usage_bytes"`
}

// Status reports the session user's catalog.
func (s *Service) Status(ctx context.Context, sess *session.Session) (*Status, error) {
	return s.StatusFor(ctx, sess.User)
}

// StatusFor reports user's subjects and chapters with material counts, index presence,
// and bytes on disk.
func (s *Service) StatusFor(ctx context.Context, user models.User) (*Status, error) {
	subjects, err := s.store.ListSubjects(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	st := &Status{Subjects: len(subjects), Chapters: []ChapterStatus{}}
	for _, subject := range subjects {
		chapters, err := s.store.ListChapters(ctx, user.ID, subject)
		if err != nil {
			return nil, err
		}
		for _, chapter := range chapters {
			key := models.OwnerKey{UserHash: user.UserHash, Subject: subject, Chapter: chapter}
			files, err := s.files.List(key)
			if err != nil {
				return nil, err
			}
			st.Chapters = append(st.Chapters, ChapterStatus{
				Subject:   subject,
				Chapter:   chapter,
				Materials: len(files),
				Indexed:   s.indexer.Exists(key),
			})
		}
	}
	if st.DiskUsageBytes, err = s.files.DiskUsage(user.UserHash); err != nil {
		return nil, err
	}
	return st, nil
}
