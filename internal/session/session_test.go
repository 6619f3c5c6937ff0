package session

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hyperjump/benkyo/internal/models"
	"github.com/hyperjump/benkyo/internal/workflow"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func msg(i int) models.ChatMessage {
	return models.ChatMessage{Role: models.RoleUser, Content: fmt.Sprintf("m%d", i)}
}

func TestManager_lifecycle(t *testing.T) {
	m := NewManager()
	s := m.Create(models.User{ID: 1, UserHash: "abc"})
	if s.Token == "" || s.ID == "" || s.ID == s.Token {
		t.Fatalf("token = %q, id = %q", s.Token, s.ID)
	}
	got, err := m.Get(s.Token)
	if err != nil || got != s {
		t.Fatalf("Get() = %v, %v", got, err)
	}
	if _, err := m.Get("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown token: %v", err)
	}
	if _, ok := m.Delete(s.Token); !ok {
		t.Error("Delete() should find the session")
	}
	if _, err := m.Get(s.Token); !errors.Is(err, ErrNotFound) {
		t.Errorf("deleted token: %v", err)
	}
}

func TestManager_expiry(t *testing.T) {
	clock := &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	m := NewManager(WithIdleTimeout(time.Hour), WithClock(clock.Now))
	a := m.Create(models.User{ID: 1})
	b := m.Create(models.User{ID: 2})

	clock.Advance(40 * time.Minute)
	if _, err := m.Get(a.Token); err != nil {
		t.Fatal(err)
	}
	clock.Advance(40 * time.Minute)

	if _, err := m.Get(b.Token); !errors.Is(err, ErrNotFound) {
		t.Errorf("idle session should expire: %v", err)
	}
	if _, err := m.Get(b.Token); !errors.Is(err, ErrNotFound) {
		t.Errorf("expired session must stay unusable: %v", err)
	}
	if dropped := m.Sweep(); len(dropped) != 1 || dropped[0] != b {
		t.Errorf("Sweep() must return the expired session for cleanup, got %v", dropped)
	}
	clock.Advance(2 * time.Hour)
	if dropped := m.Sweep(); len(dropped) != 1 || dropped[0] != a {
		t.Errorf("Sweep() = %v", dropped)
	}
	if m.Len() != 0 {
		t.Errorf("Len() = %d", m.Len())
	}
}

func TestSession_Update(t *testing.T) {
	s := NewManager().Create(models.User{UserHash: "u"})
	key := s.Key("Bio", "Cells")
	bank := []models.QuizQuestion{{Question: "q", Options: []string{"a"}, CorrectOption: "a"}}

	err := s.Update(func(st *State) error {
		q, err := st.Quiz.Reduce(workflow.StartQuiz(bank))
		if err != nil {
			return err
		}
		st.Quiz, st.QuizKey = q, key
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	snap := s.Snapshot()
	if snap.Quiz.Phase != workflow.InProgress || snap.QuizKey != key {
		t.Errorf("snapshot = %+v", snap.Quiz)
	}

	boom := errors.New("boom")
	err = s.Update(func(st *State) error {
		st.Quiz = st.Quiz.Close()
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Update() = %v", err)
	}
	if s.Snapshot().Quiz.Phase != workflow.InProgress {
		t.Error("failed update must not change state")
	}
}

func TestSession_chatHistoryCapped(t *testing.T) {
	s := NewManager(WithHistoryLimit(4)).Create(models.User{UserHash: "u"})
	key := s.Key("Bio", "Cells")
	other := s.Key("Bio", "Genes")
	for i := 0; i < 6; i++ {
		s.AppendChapterChat(key, msg(i))
	}
	s.AppendChapterChat(other, msg(99))

	hist := s.ChapterChat(key)
	if len(hist) != 4 || hist[0].Content != "m2" || hist[3].Content != "m5" {
		t.Errorf("history = %v", hist)
	}
	if len(s.ChapterChat(other)) != 1 {
		t.Error("chapters must not share history")
	}
	s.ClearChapterChat(key)
	if len(s.ChapterChat(key)) != 0 {
		t.Error("clear did not drop history")
	}

	s.AppendTemporaryChat(msg(1), msg(2))
	if len(s.TemporaryChat()) != 2 {
		t.Errorf("temporary chat = %v", s.TemporaryChat())
	}
	s.ClearTemporaryChat()
	if s.TemporaryChat() != nil {
		t.Error("temporary chat not cleared")
	}
}

func TestSession_snapshotIsolated(t *testing.T) {
	s := NewManager().Create(models.User{UserHash: "u"})
	key := s.Key("Bio", "Cells")
	s.AppendChapterChat(key, msg(1))
	snap := s.Snapshot()
	s.AppendChapterChat(key, msg(2))
	if len(snap.ChapterChat[key]) != 1 {
		t.Errorf("snapshot changed after append: %v", snap.ChapterChat[key])
	}
}

func TestSession_DoCollapsesConcurrentCalls(t *testing.T) {
	s := NewManager().Create(models.User{UserHash: "u"})
	var calls atomic.Int32
	release := make(chan struct{})
	started := make(chan struct{})

	var wg sync.WaitGroup
	results := make([]any, 5)
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], _, _ = s.Do("quiz", func() (any, error) {
			close(started)
			calls.Add(1)
			<-release
			return "bank", nil
		})
	}()
	<-started
	for i := 1; i < len(results); i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _, _ = s.Do("quiz", func() (any, error) {
				calls.Add(1)
				return "second", nil
			})
		}(i)
	}
	// Give followers time to join the in-flight call.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := calls.Load(); n != 1 {
		t.Errorf("generate ran %d times, want 1", n)
	}
	for i, r := range results {
		if r != "bank" {
			t.Errorf("caller %d got %v", i, r)
		}
	}
}
