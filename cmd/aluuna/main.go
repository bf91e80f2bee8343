package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/Chronis77/aluuna-monorepo-sub002/internal/api"
	"github.com/Chronis77/aluuna-monorepo-sub002/internal/contextcache"
	"github.com/Chronis77/aluuna-monorepo-sub002/internal/flow"
	"github.com/Chronis77/aluuna-monorepo-sub002/internal/genai"
	"github.com/Chronis77/aluuna-monorepo-sub002/internal/memory"
	"github.com/Chronis77/aluuna-monorepo-sub002/internal/store"
	"github.com/Chronis77/aluuna-monorepo-sub002/internal/util"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for Aluuna state data
	DefaultStateDir = "/var/lib/aluuna"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "aluuna.db"
)

func main() {
	// Initialize structured logger
	initializeLogger()

	// Load environment configuration
	config := loadEnvironmentConfig()

	// Parse command line flags
	flags := parseCommandLineFlags(config)

	// Ensure required directories exist
	if err := ensureDirectoriesExist(flags); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("Bootstrapping Aluuna with configured modules")
	slog.Debug("Final configuration", "state_dir", *flags.stateDir, "dsn_set", *flags.dbDSN != "", "cache_dsn_set", *flags.cacheDSN != "", "api_addr", *flags.apiAddr)
	if err := run(ctx, flags); err != nil {
		slog.Error("Aluuna failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("Aluuna exited successfully")
}

// run wires the storage, cache, model client and conversation flow together
// and serves the API until the context is canceled.
func run(ctx context.Context, flags Flags) error {
	st, err := buildStore(flags)
	if err != nil {
		return err
	}

	cache, err := buildCache(flags)
	if err != nil {
		return err
	}

	client, err := genai.NewClient(buildGenAIOptions(flags)...)
	if err != nil {
		return err
	}

	builder := memory.NewBuilder(st, cache)
	registry := flow.NewToolRegistry(flow.NewMemoryTools(st, builder))
	composer := flow.NewPromptComposer(*flags.identityFile)
	classifier := flow.NewModeClassifier(client)
	orchestrator := flow.NewOrchestrator(client, builder, registry, composer, classifier, st)

	server := api.NewServer(orchestrator, st, cache, buildAPIOptions(flags)...)
	return server.Run(ctx)
}

// Config holds environment configuration
type Config struct {
	DatabaseURL  string
	CacheURL     string
	StateDir     string
	OpenAIKey    string
	OpenAIModel  string
	APIAddr      string
	IdentityFile string
	CacheTTL     string
}

// Flags holds command line flag values
type Flags struct {
	stateDir     *string
	dbDSN        *string
	cacheDSN     *string
	openaiKey    *string
	openaiModel  *string
	apiAddr      *string
	identityFile *string
	cacheTTL     *string
}

// initializeLogger sets up structured logging. LOG_LEVEL selects the level
// (debug/info/warn/error); ALUUNA_DEBUG=true forces debug output.
func initializeLogger() {
	level := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if util.ParseBoolEnv("ALUUNA_DEBUG", false) {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		CacheURL:     os.Getenv("CACHE_URL"),
		StateDir:     os.Getenv("ALUUNA_STATE_DIR"),
		OpenAIKey:    os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:  os.Getenv("OPENAI_MODEL"),
		APIAddr:      os.Getenv("API_ADDR"),
		IdentityFile: os.Getenv("IDENTITY_PROMPT_FILE"),
		CacheTTL:     os.Getenv("CONTEXT_CACHE_TTL"),
	}

	// Set default state directory if not specified
	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No ALUUNA_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	} else {
		slog.Debug("ALUUNA_STATE_DIR found in environment", "state_dir", config.StateDir)
	}

	// Fall back to REDIS_URL for cache configuration
	if config.CacheURL == "" {
		config.CacheURL = os.Getenv("REDIS_URL")
	}

	// If no database URL is provided, default to SQLite in the state directory
	if config.DatabaseURL == "" {
		config.DatabaseURL = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", config.DatabaseURL)
	}

	slog.Debug("environment variables loaded",
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"CACHE_URL_SET", config.CacheURL != "",
		"ALUUNA_STATE_DIR", config.StateDir,
		"OPENAI_API_KEY_SET", config.OpenAIKey != "",
		"OPENAI_MODEL", config.OpenAIModel,
		"API_ADDR", config.APIAddr,
		"IDENTITY_PROMPT_FILE", config.IdentityFile,
		"CONTEXT_CACHE_TTL", config.CacheTTL)

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		stateDir:     flag.String("state-dir", config.StateDir, "state directory for Aluuna data (overrides $ALUUNA_STATE_DIR)"),
		dbDSN:        flag.String("db-dsn", config.DatabaseURL, "database DSN for the memory store (overrides $DATABASE_URL)"),
		cacheDSN:     flag.String("cache-dsn", config.CacheURL, "Redis DSN for the context cache (overrides $CACHE_URL or $REDIS_URL)"),
		openaiKey:    flag.String("openai-api-key", config.OpenAIKey, "OpenAI API key (overrides $OPENAI_API_KEY)"),
		openaiModel:  flag.String("openai-model", config.OpenAIModel, "OpenAI model name (overrides $OPENAI_MODEL)"),
		apiAddr:      flag.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
		identityFile: flag.String("identity-prompt-file", config.IdentityFile, "path to an identity prompt override (overrides $IDENTITY_PROMPT_FILE)"),
		cacheTTL:     flag.String("cache-ttl", config.CacheTTL, "context cache TTL, e.g. 5m (overrides $CONTEXT_CACHE_TTL)"),
	}

	flag.Parse()

	slog.Debug("flags parsed",
		"stateDir", *flags.stateDir,
		"dbDSN_set", *flags.dbDSN != "",
		"cacheDSN_set", *flags.cacheDSN != "",
		"openaiKeySet", *flags.openaiKey != "",
		"openaiModel", *flags.openaiModel,
		"apiAddr", *flags.apiAddr,
		"identityFile", *flags.identityFile,
		"cacheTTL", *flags.cacheTTL)

	// Update database DSN if not explicitly set but state directory is provided
	if *flags.dbDSN == config.DatabaseURL && config.DatabaseURL == filepath.Join(config.StateDir, DefaultDBFileName) && *flags.stateDir != config.StateDir {
		*flags.dbDSN = filepath.Join(*flags.stateDir, DefaultDBFileName)
		slog.Debug("Updated dbDSN based on state directory", "dsn_updated", true, "old_state_dir", config.StateDir, "new_state_dir", *flags.stateDir)
	}

	return flags
}

// ensureDirectoriesExist creates necessary directories for file-based storage
func ensureDirectoriesExist(flags Flags) error {
	if store.DetectDSNType(*flags.dbDSN) == "sqlite" {
		stateDir := filepath.Dir(*flags.dbDSN)
		slog.Debug("Creating state directory for file-based database", "state_dir", stateDir)
		if err := os.MkdirAll(stateDir, store.DefaultDirPermissions); err != nil {
			slog.Error("Failed to create state directory", "error", err, "state_dir", stateDir)
			return err
		}
	}
	return nil
}

// buildStore selects the memory store backend from the DSN.
func buildStore(flags Flags) (store.MemoryStore, error) {
	if store.DetectDSNType(*flags.dbDSN) == "postgres" {
		slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL store", "dsn_set", true)
		return store.NewPostgresStore(store.WithPostgresDSN(*flags.dbDSN))
	}
	slog.Debug("Detected SQLite DSN, configuring SQLite store", "db_path", *flags.dbDSN)
	return store.NewSQLiteStore(store.WithSQLiteDSN(*flags.dbDSN))
}

// buildCache selects Redis when a cache DSN is configured, otherwise in-process.
func buildCache(flags Flags) (contextcache.Cache, error) {
	opts := buildCacheOptions(flags)
	if *flags.cacheDSN != "" && strings.HasPrefix(*flags.cacheDSN, "redis") {
		slog.Debug("Configuring Redis context cache", "dsn_set", true)
		return contextcache.NewRedisCache(opts...)
	}
	slog.Debug("No Redis DSN provided, using in-process context cache")
	return contextcache.NewMemoryCache(opts...), nil
}

// buildCacheOptions constructs context cache configuration options
func buildCacheOptions(flags Flags) []contextcache.Option {
	var cacheOpts []contextcache.Option
	if *flags.cacheDSN != "" {
		cacheOpts = append(cacheOpts, contextcache.WithRedisDSN(*flags.cacheDSN))
	}
	if *flags.cacheTTL != "" {
		ttl, err := time.ParseDuration(*flags.cacheTTL)
		if err != nil {
			// Bare numbers are treated as seconds.
			if secs, convErr := strconv.Atoi(*flags.cacheTTL); convErr == nil {
				ttl = time.Duration(secs) * time.Second
				err = nil
			}
		}
		if err != nil {
			slog.Warn("Invalid cache TTL, using default", "value", *flags.cacheTTL, "error", err)
		} else {
			cacheOpts = append(cacheOpts, contextcache.WithTTL(ttl))
		}
	}
	return cacheOpts
}

// buildGenAIOptions constructs GenAI configuration options
func buildGenAIOptions(flags Flags) []genai.Option {
	var genaiOpts []genai.Option
	if *flags.openaiKey != "" {
		genaiOpts = append(genaiOpts, genai.WithAPIKey(*flags.openaiKey))
	}
	if *flags.openaiModel != "" {
		genaiOpts = append(genaiOpts, genai.WithModel(*flags.openaiModel))
	}
	return genaiOpts
}

// buildAPIOptions constructs API server configuration options
func buildAPIOptions(flags Flags) []api.Option {
	var apiOpts []api.Option
	if *flags.apiAddr != "" {
		apiOpts = append(apiOpts, api.WithAddr(*flags.apiAddr))
	}
	return apiOpts
}
