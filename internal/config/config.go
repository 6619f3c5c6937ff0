// Package config provides configuration loading and structs for the benkyo server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	LLM       LLMConfig       `yaml:"llm"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Study     StudyConfig     `yaml:"study"`
	Watch     WatchConfig     `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// SessionIdleMinutes expires sessions that have not been used for this long.
	SessionIdleMinutes int `yaml:"session_idle_minutes"`
}

// StorageConfig holds the database path and the root of per-user material folders.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
	DataRoot     string `yaml:"data_root"`
}

// LLMConfig holds chat model settings.
type LLMConfig struct {
	Model       string   `yaml:"model"`
	Temperature *float32 `yaml:"temperature"`
	// APIKeyEnv names the environment variable holding the API key.
	APIKeyEnv string `yaml:"api_key_env"`
}

// TemperatureOrDefault returns the sampling temperature; defaults to 0.2 when unset.
func (l *LLMConfig) TemperatureOrDefault() float32 {
	if l.Temperature != nil {
		return *l.Temperature
	}
	return 0.2
}

// EmbeddingConfig holds embedder settings.
type EmbeddingConfig struct {
	// Provider is "genai" (hosted Gemini embeddings) or "mock" (offline, deterministic).
	Provider   string `yaml:"provider"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	CacheSize  int    `yaml:"cache_size"`
}

// RetrievalConfig holds chunking and context-assembly settings.
type RetrievalConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
	TopK         int `yaml:"top_k"`
	ContextSize  int `yaml:"context_size"`
	ChatK        int `yaml:"chat_k"`
}

// StudyConfig holds session feature settings.
type StudyConfig struct {
	ChatHistoryLimit int `yaml:"chat_history_limit"`
}

// WatchConfig controls automatic re-indexing when material files change on disk.
type WatchConfig struct {
	Enabled        bool     `yaml:"enabled"`
	DebounceMillis int      `yaml:"debounce_millis"`
	Extensions     []string `yaml:"extensions"`
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.DataRoot = expandPath(cfg.Storage.DataRoot, configDir)

	return &cfg, nil
}

// Validate rejects settings the rest of the system cannot work with.
func Validate(cfg *Config) error {
	if cfg.Retrieval.ChunkOverlap >= cfg.Retrieval.ChunkSize {
		return fmt.Errorf("invalid config: chunk_overlap (%d) must be smaller than chunk_size (%d)",
			cfg.Retrieval.ChunkOverlap, cfg.Retrieval.ChunkSize)
	}
	if cfg.Retrieval.ContextSize > cfg.Retrieval.TopK {
		return fmt.Errorf("invalid config: context_size (%d) cannot exceed top_k (%d)",
			cfg.Retrieval.ContextSize, cfg.Retrieval.TopK)
	}
	switch cfg.Embedding.Provider {
	case "genai", "mock":
	default:
		return fmt.Errorf("invalid config: unknown embedding provider %q (supported: genai, mock)", cfg.Embedding.Provider)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
