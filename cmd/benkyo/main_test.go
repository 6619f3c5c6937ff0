package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/hyperjump/benkyo/internal/config"
	"github.com/hyperjump/benkyo/internal/identity"
	"github.com/hyperjump/benkyo/internal/models"
	"go.uber.org/zap"
)

func TestArgsReorder(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected []string
	}{
		{
			name:     "flags after files are moved first",
			args:     []string{"a.pdf", "b.pdf", "--subject", "Bio"},
			expected: []string{"--subject", "Bio", "a.pdf", "b.pdf"},
		},
		{
			name:     "flags first returns unchanged",
			args:     []string{"--subject", "Bio", "a.pdf"},
			expected: []string{"--subject", "Bio", "a.pdf"},
		},
		{
			name:     "files only returns unchanged",
			args:     []string{"a.pdf"},
			expected: []string{"a.pdf"},
		},
		{
			name:     "empty args returns unchanged",
			args:     []string{},
			expected: []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := argsReorder(tt.args)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("argsReorder() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestCredentials(t *testing.T) {
	t.Setenv("BENKYO_TEST_PASSWORD", "secret")
	creds, err := credentials("alice", "BENKYO_TEST_PASSWORD")
	if err != nil {
		t.Fatal(err)
	}
	if creds != (identity.Credentials{Username: "alice", Password: "secret"}) {
		t.Errorf("credentials = %+v", creds)
	}
	if _, err := credentials("", "BENKYO_TEST_PASSWORD"); err == nil {
		t.Error("missing user should fail")
	}
	if _, err := credentials("alice", "BENKYO_TEST_UNSET_PASSWORD"); err == nil {
		t.Error("unset password env should fail")
	}
}

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig_prefersCwdConfigWhenDefaultPath(t *testing.T) {
	dir := t.TempDir()
	configPath := writeConfig(t, dir, `
debug: true
storage:
  database_path: "./benkyo.db"
`)
	origWd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.Chdir(origWd) }()
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, err := loadConfig(defaultConfigPath)
	if err != nil {
		t.Fatal(err)
	}
	// On macOS, cwd can be /private/var/... while t.TempDir() is /var/...; compare canonical paths.
	resolvedCanon, _ := filepath.EvalSymlinks(resolved)
	configPathCanon, _ := filepath.EvalSymlinks(configPath)
	if resolvedCanon != configPathCanon {
		t.Errorf("resolved path = %s, want %s", resolved, configPath)
	}
	if !cfg.Debug {
		t.Error("debug should be true from cwd config.yaml")
	}
}

func TestLoadConfig_usesExplicitPath(t *testing.T) {
	dir := t.TempDir()
	configPath := writeConfig(t, dir, `
server:
  host: "127.0.0.1"
  port: 9000
`)
	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		t.Fatal(err)
	}
	if resolved != configPath {
		t.Errorf("resolved path = %s, want %s", resolved, configPath)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
}

func mockConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{}
	cfg.Storage.DatabasePath = filepath.Join(dir, "db", "benkyo.db")
	cfg.Storage.DataRoot = filepath.Join(dir, "users")
	cfg.Embedding.Provider = "mock"
	cfg.Embedding.Dimensions = 16
	cfg.Retrieval.ChunkSize = 80
	cfg.Retrieval.ChunkOverlap = 20
	config.ApplyDefaults(cfg)
	if err := config.Validate(cfg); err != nil {
		t.Fatal(err)
	}
	return cfg
}

func TestInitializeComponents_ingestWithoutModel(t *testing.T) {
	cfg := mockConfig(t)
	ctx := context.Background()
	c, err := initializeComponents(ctx, cfg, zap.NewNop(), false)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	creds := identity.Credentials{Username: "alice", Password: "pw"}
	if _, err := c.Service.Signup(ctx, creds); err != nil {
		t.Fatal(err)
	}
	u, err := c.Service.Authenticate(ctx, creds)
	if err != nil {
		t.Fatal(err)
	}

	notes := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(notes, []byte(strings.Repeat("Cells divide by mitosis. ", 20)), 0600); err != nil {
		t.Fatal(err)
	}
	res, err := c.Service.Ingest(ctx, *u, "Bio", "Cells", []string{notes})
	if err != nil {
		t.Fatal(err)
	}
	if res.Files != 1 || res.Chunks == 0 {
		t.Errorf("build result = %+v", res)
	}

	st, err := c.Service.StatusFor(ctx, *u)
	if err != nil {
		t.Fatal(err)
	}
	if len(st.Chapters) != 1 || !st.Chapters[0].Indexed {
		t.Errorf("status = %+v", st)
	}

	sess, err := c.Service.Login(ctx, creds)
	if err != nil {
		t.Fatal(err)
	}
	_, err = c.Service.GenerateQuiz(ctx, sess, models.GenerateRequest{Subject: "Bio", Chapter: "Cells"})
	if !errors.Is(err, errNoModel) {
		t.Errorf("generation without a model: %v", err)
	}
}

func TestMaterialWatcher_refreshesChangedChapter(t *testing.T) {
	cfg := mockConfig(t)
	cfg.Watch.DebounceMillis = 50
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c, err := initializeComponents(ctx, cfg, zap.NewNop(), false)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	creds := identity.Credentials{Username: "bob", Password: "pw"}
	u, err := c.Service.Signup(ctx, creds)
	if err != nil {
		t.Fatal(err)
	}
	key := models.OwnerKey{UserHash: u.UserHash, Subject: "Bio", Chapter: "Cells"}
	if err := os.MkdirAll(c.Files.MaterialsDir(key), 0755); err != nil {
		t.Fatal(err)
	}

	w := newMaterialWatcher(cfg, c, zap.NewNop())
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	path := filepath.Join(c.Files.MaterialsDir(key), "notes.txt")
	if err := os.WriteFile(path, []byte(strings.Repeat("Ribosomes build proteins. ", 20)), 0600); err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(5 * time.Second)
	for !c.Indexer.Exists(key) {
		if time.Now().After(deadline) {
			t.Fatal("chapter was not indexed after its materials changed")
		}
		time.Sleep(25 * time.Millisecond)
	}
}
