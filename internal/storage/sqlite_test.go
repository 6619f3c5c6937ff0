package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyperjump/benkyo/internal/models"
)

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	store, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "db", "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStorage_Users(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	u, err := store.CreateUser(ctx, "userhash", "pw1")
	if err != nil {
		t.Fatal(err)
	}
	if u.ID == 0 {
		t.Error("user ID should be set")
	}
	if _, err := store.CreateUser(ctx, "userhash", "other"); !errors.Is(err, ErrDuplicate) {
		t.Errorf("want ErrDuplicate, got %v", err)
	}

	got, err := store.VerifyUser(ctx, "userhash", "pw1")
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != u.ID {
		t.Errorf("VerifyUser returned id %d, want %d", got.ID, u.ID)
	}
	if _, err := store.VerifyUser(ctx, "userhash", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password: got %v", err)
	}
	if _, err := store.VerifyUser(ctx, "nobody", "pw1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown user: got %v", err)
	}
}

func TestSQLiteStorage_ChangePassword(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	if _, err := store.CreateUser(ctx, "u", "old"); err != nil {
		t.Fatal(err)
	}
	if err := store.ChangePassword(ctx, "u", "nope", "new"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("mismatched old password: got %v", err)
	}
	if err := store.ChangePassword(ctx, "u", "old", "new"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.VerifyUser(ctx, "u", "old"); err == nil {
		t.Error("old password should no longer verify")
	}
	if _, err := store.VerifyUser(ctx, "u", "new"); err != nil {
		t.Errorf("new password should verify: %v", err)
	}
}

func TestSQLiteStorage_Catalog(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	u, _ := store.CreateUser(ctx, "u", "p")
	other, _ := store.CreateUser(ctx, "v", "p")

	if err := store.AddSubject(ctx, u.ID, "Bio"); err != nil {
		t.Fatal(err)
	}
	if err := store.AddSubject(ctx, u.ID, "Bio"); !errors.Is(err, ErrDuplicate) {
		t.Errorf("duplicate subject: got %v", err)
	}
	if err := store.AddSubject(ctx, other.ID, "Bio"); err != nil {
		t.Errorf("same subject name for another user should be allowed: %v", err)
	}

	if err := store.AddChapter(ctx, u.ID, "Bio", "Cells"); err != nil {
		t.Fatal(err)
	}
	if err := store.AddChapter(ctx, u.ID, "Bio", "Cells"); !errors.Is(err, ErrDuplicate) {
		t.Errorf("duplicate chapter: got %v", err)
	}
	// Chapter in a new subject creates the subject.
	if err := store.AddChapter(ctx, u.ID, "Chem", "Acids"); err != nil {
		t.Fatal(err)
	}

	subjects, err := store.ListSubjects(ctx, u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(subjects) != 2 || subjects[0] != "Bio" || subjects[1] != "Chem" {
		t.Errorf("subjects = %v", subjects)
	}
	chapters, err := store.ListChapters(ctx, u.ID, "Bio")
	if err != nil {
		t.Fatal(err)
	}
	if len(chapters) != 1 || chapters[0] != "Cells" {
		t.Errorf("chapters = %v", chapters)
	}
	if _, err := store.ListChapters(ctx, u.ID, "Physics"); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown subject: got %v", err)
	}
	empty, err := store.ListChapters(ctx, other.ID, "Bio")
	if err != nil || len(empty) != 0 {
		t.Errorf("other user's chapters = %v, %v", empty, err)
	}
}

func TestSQLiteStorage_ChatHistory(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	u, _ := store.CreateUser(ctx, "u", "p")

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	msgs := []models.ChatMessage{
		{Role: models.RoleAssistant, Content: "second", Timestamp: base.Add(time.Second)},
		{Role: models.RoleUser, Content: "first", Timestamp: base},
	}
	for _, m := range msgs {
		if err := store.AppendChatMessage(ctx, u.ID, m); err != nil {
			t.Fatal(err)
		}
	}
	if err := store.AppendChatMessage(ctx, u.ID, models.ChatMessage{Role: "system", Content: "x"}); err == nil {
		t.Error("invalid role should be rejected")
	}

	history, err := store.ListChatHistory(ctx, u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 2 {
		t.Fatalf("history len = %d", len(history))
	}
	if history[0].Content != "first" || history[1].Content != "second" {
		t.Errorf("history not ordered by timestamp: %+v", history)
	}
	if !history[0].Timestamp.Equal(base) {
		t.Errorf("timestamp = %v, want %v", history[0].Timestamp, base)
	}

	if err := store.ClearChatHistory(ctx, u.ID); err != nil {
		t.Fatal(err)
	}
	history, _ = store.ListChatHistory(ctx, u.ID)
	if len(history) != 0 {
		t.Errorf("history after clear = %d", len(history))
	}
}

func TestSQLiteStorage_ForeignKeys(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	if err := store.AddSubject(ctx, 999, "Orphan"); err == nil {
		t.Error("subject for a missing user should violate the foreign key")
	}
}
