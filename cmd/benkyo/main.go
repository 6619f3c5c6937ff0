// Package main is the benkyo CLI entry point.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/hyperjump/benkyo/internal/cli"
	"github.com/hyperjump/benkyo/internal/config"
	"github.com/hyperjump/benkyo/internal/embedding"
	"github.com/hyperjump/benkyo/internal/extract"
	"github.com/hyperjump/benkyo/internal/identity"
	"github.com/hyperjump/benkyo/internal/indexer"
	"github.com/hyperjump/benkyo/internal/llm"
	"github.com/hyperjump/benkyo/internal/materials"
	"github.com/hyperjump/benkyo/internal/models"
	"github.com/hyperjump/benkyo/internal/search"
	"github.com/hyperjump/benkyo/internal/server"
	"github.com/hyperjump/benkyo/internal/session"
	"github.com/hyperjump/benkyo/internal/storage"
	"github.com/hyperjump/benkyo/internal/study"
	"github.com/hyperjump/benkyo/internal/watcher"
	"github.com/hyperjump/benkyo/pkg/utils"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

var version = "dev"

const (
	defaultConfigPath  = "/usr/local/etc/benkyo/config.yaml"
	defaultPasswordEnv = "BENKYO_PASSWORD"
	sweepInterval      = time.Minute
)

// errNoModel is returned by commands that run without a configured chat model.
var errNoModel = errors.New("chat model is not configured")

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development); if that exists it is used.
// Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "signup":
		runSignup()
	case "ingest":
		runIngest()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("benkyo version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// setup loads config and builds a logger, exiting on failure.
func setup(configPath string, debugFlag bool) (*config.Config, string, *zap.Logger, bool) {
	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || debugFlag
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	return cfg, resolved, logger, debugMode
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, logger, debugMode := setup(*configPath, *debug)
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	components, err := initializeComponents(ctx, cfg, logger, true)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	svc := components.Service
	go svc.Sessions().RunSweeper(ctx, sweepInterval, svc.Expire)

	if cfg.Watch.Enabled {
		w := newMaterialWatcher(cfg, components, logger)
		if err := w.Start(ctx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		defer w.Stop()
	}

	srv := server.NewServer(svc, &cfg.Server, logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
}

// newMaterialWatcher refreshes a chapter's index whenever files in its materials
// directory change outside the API.
func newMaterialWatcher(cfg *config.Config, c *Components, logger *zap.Logger) *watcher.Watcher {
	resolve := func(path string) (models.OwnerKey, bool) {
		key, _, ok := c.Files.ParseMaterialPath(path)
		return key, ok && !key.IsTemporary()
	}
	refresh := func(key models.OwnerKey) {
		res, err := c.Indexer.Refresh(context.Background(), key)
		if err != nil {
			logger.Warn("watch refresh failed", zap.String("subject", key.Subject), zap.String("chapter", key.Chapter), zap.Error(err))
			return
		}
		if res != nil {
			logger.Info("chapter re-indexed", zap.String("subject", key.Subject), zap.String("chapter", key.Chapter),
				zap.Int("files", res.Files), zap.Int("chunks", res.Chunks))
		}
	}
	return watcher.NewWatcher(cfg.Storage.DataRoot, cfg.Watch.Extensions, resolve, refresh,
		watcher.WithDebounce(time.Duration(cfg.Watch.DebounceMillis)*time.Millisecond),
		watcher.WithLogger(logger))
}

// credentials builds login credentials from a username and the password held in envName.
func credentials(username, envName string) (identity.Credentials, error) {
	if username == "" {
		return identity.Credentials{}, errors.New("--user is required")
	}
	password := os.Getenv(envName)
	if password == "" {
		return identity.Credentials{}, fmt.Errorf("password must be set in $%s", envName)
	}
	return identity.Credentials{Username: username, Password: password}, nil
}

func runSignup() {
	fs := flag.NewFlagSet("signup", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	user := fs.String("user", "", "username")
	passwordEnv := fs.String("password-env", defaultPasswordEnv, "environment variable holding the password")
	_ = fs.Parse(os.Args[2:])

	creds, err := credentials(*user, *passwordEnv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Signup failed: %v\n", err)
		os.Exit(1)
	}
	cfg, _, logger, _ := setup(*configPath, false)
	defer logger.Sync()

	components, err := initializeComponents(context.Background(), cfg, logger, false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	defer components.Close()

	if _, err := components.Service.Signup(context.Background(), creds); err != nil {
		fmt.Fprintf(os.Stderr, "Signup failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Account created: %s\n", creds.Username)
}

// argsReorder moves flags that appear after positional arguments to the front so
// flag.Parse sees them: "benkyo ingest a.pdf b.pdf --subject Bio" works.
func argsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func runIngest() {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	user := fs.String("user", "", "username")
	passwordEnv := fs.String("password-env", defaultPasswordEnv, "environment variable holding the password")
	subject := fs.String("subject", "", "subject name")
	chapter := fs.String("chapter", "", "chapter name (created if missing)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(argsReorder(os.Args[2:]))

	if fs.NArg() < 1 || *subject == "" || *chapter == "" {
		fmt.Println("Usage: benkyo ingest --user <name> --subject <subject> --chapter <chapter> <file>...")
		os.Exit(1)
	}
	format, err := cli.ParseFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	creds, err := credentials(*user, *passwordEnv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ingest failed: %v\n", err)
		os.Exit(1)
	}
	cfg, _, logger, _ := setup(*configPath, false)
	defer logger.Sync()

	ctx := context.Background()
	components, err := initializeComponents(ctx, cfg, logger, false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	defer components.Close()

	u, err := components.Service.Authenticate(ctx, creds)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Login failed: %v\n", err)
		os.Exit(1)
	}
	res, err := components.Service.Ingest(ctx, *u, *subject, *chapter, fs.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ingest failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteBuildResult(os.Stdout, *subject, *chapter, res, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	user := fs.String("user", "", "username")
	passwordEnv := fs.String("password-env", defaultPasswordEnv, "environment variable holding the password")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	creds, err := credentials(*user, *passwordEnv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
		os.Exit(1)
	}
	cfg, _, logger, _ := setup(*configPath, false)
	defer logger.Sync()

	ctx := context.Background()
	components, err := initializeComponents(ctx, cfg, logger, false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	defer components.Close()

	u, err := components.Service.Authenticate(ctx, creds)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Login failed: %v\n", err)
		os.Exit(1)
	}
	st, err := components.Service.StatusFor(ctx, *u)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteStatus(os.Stdout, st, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

// Components holds initialized services.
type Components struct {
	Storage  storage.Storage
	Files    *materials.Store
	Embedder embedding.Embedder
	Indexer  *indexer.Indexer
	Service  *study.Service
}

func (c *Components) Close() {
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
}

func newEmbedder(ctx context.Context, cfg *config.Config, apiKey string) (embedding.Embedder, error) {
	var base embedding.Embedder
	switch cfg.Embedding.Provider {
	case "mock":
		base = embedding.NewMockEmbedder(cfg.Embedding.Dimensions)
	default:
		e, err := embedding.NewGenAIEmbedder(ctx, apiKey, cfg.Embedding.Model, cfg.Embedding.Dimensions)
		if err != nil {
			return nil, err
		}
		base = e
	}
	return embedding.NewCachedEmbedder(base, cfg.Embedding.CacheSize), nil
}

// initializeComponents wires storage, indexing, retrieval, and the study service.
// Without needModel the chat model is not contacted and generation fails with errNoModel.
func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger, needModel bool) (*Components, error) {
	apiKey := os.Getenv(cfg.LLM.APIKeyEnv)

	var client llm.Client = llm.ClientFunc(func(context.Context, string) (string, error) {
		return "", errNoModel
	})
	if needModel {
		c, err := llm.NewGenAIClient(ctx, apiKey, cfg.LLM.Model,
			llm.WithLogger(logger), llm.WithTemperature(cfg.LLM.TemperatureOrDefault()))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize chat model: %w", err)
		}
		client = c
	}

	embedder, err := newEmbedder(ctx, cfg, apiKey)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Storage.DatabasePath), 0755); err != nil {
		_ = embedder.Close()
		return nil, fmt.Errorf("failed to create database dir: %w", err)
	}
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		_ = embedder.Close()
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	files := materials.NewStore(cfg.Storage.DataRoot, materials.WithLogger(logger))
	idx := indexer.NewIndexer(files, embedder, extract.NewExtractor(extract.WithLogger(logger)),
		indexer.WithChunker(indexer.NewChunker(cfg.Retrieval.ChunkSize, cfg.Retrieval.ChunkOverlap)),
		indexer.WithLogger(logger))
	sampler := search.NewSampler(embedder, rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		search.WithLogger(logger), search.WithLimits(cfg.Retrieval.TopK, cfg.Retrieval.ContextSize))
	sessions := session.NewManager(
		session.WithIdleTimeout(time.Duration(cfg.Server.SessionIdleMinutes)*time.Minute),
		session.WithHistoryLimit(cfg.Study.ChatHistoryLimit),
		session.WithLogger(logger))
	svc := study.NewService(store, files, idx, sampler, client, sessions,
		study.WithLogger(logger), study.WithChatK(cfg.Retrieval.ChatK))

	return &Components{
		Storage:  store,
		Files:    files,
		Embedder: embedder,
		Indexer:  idx,
		Service:  svc,
	}, nil
}

func printUsage() {
	fmt.Println(`benkyo - Study assistant for your course materials

Usage:
  benkyo server [flags]                 Start the HTTP API
  benkyo signup --user <name>           Create an account
  benkyo ingest [flags] <file>...       Add files to a chapter and index them
  benkyo status --user <name>           Show subjects, chapters, and index state
  benkyo version                        Show version
  benkyo help                           Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/benkyo/config.yaml)
  --debug            Enable debug logging

Account Flags (signup, ingest, status):
  --user string          Username
  --password-env string  Environment variable holding the password (default: BENKYO_PASSWORD)

Ingest Flags:
  --subject string   Subject name
  --chapter string   Chapter name (created if missing)
  --output string    Output format: text or json (default: text)

Status Flags:
  --output string    Output format: text or json (default: text)

Environment:
  GOOGLE_API_KEY     Gemini API key (name configurable with llm.api_key_env)
  A .env file in the working directory is loaded on startup.

Examples:
  BENKYO_PASSWORD=secret benkyo signup --user alice
  BENKYO_PASSWORD=secret benkyo ingest --user alice --subject Biology --chapter Cells notes.pdf slides.pptx
  BENKYO_PASSWORD=secret benkyo status --user alice --output json
  benkyo server --debug`)
}
