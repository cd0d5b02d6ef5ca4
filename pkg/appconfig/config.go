// Package appconfig loads the memory service's environment-variable
// configuration, failing fast on missing or malformed values.
package appconfig

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds every runtime setting recognized by the service.
type Config struct {
	DatabaseURL string
	Project     string

	EmbeddingDimensions int

	AccessTrackingEnabled bool
	AccessTrackingTopN    int

	SlowQueryThresholdMS int

	QueryExpansionEnabled bool
	QueryExpansionCount   int

	RefineDefaultBudget int

	MaxToolIterations   int
	MaxSearchIterations int

	LargeFileThresholdBytes int64
	ProjectRoot             string

	AnthropicAPIKey  string
	AnthropicBaseURL string

	EmbedderBaseURL string
	EmbedderAPIKey  string
}

// Load reads and validates configuration from the process environment.
// It loads a local .env file first (if present) without overriding
// variables already set in the environment, matching the teacher's
// dev-convenience use of godotenv.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env file", "error", err)
	}

	cfg := &Config{}
	var err error

	if cfg.DatabaseURL, err = requireString("DATABASE_URL"); err != nil {
		return nil, err
	}
	if cfg.Project, err = requireString("MEMORY_ACTIVE_PROJECT"); err != nil {
		return nil, err
	}
	if cfg.ProjectRoot, err = requireString("MEMORY_PROJECT_ROOT"); err != nil {
		return nil, err
	}

	if cfg.EmbeddingDimensions, err = optionalInt("MEMORY_EMBEDDING_DIMENSIONS", DefaultEmbeddingDimensions); err != nil {
		return nil, err
	}
	if cfg.EmbeddingDimensions <= 0 {
		return nil, &InvalidError{Var: "MEMORY_EMBEDDING_DIMENSIONS", Value: strconv.Itoa(cfg.EmbeddingDimensions), Err: fmt.Errorf("must be positive")}
	}

	if cfg.AccessTrackingEnabled, err = optionalBool("MEMORY_ACCESS_TRACKING_ENABLED", DefaultAccessTrackingEnabled); err != nil {
		return nil, err
	}
	if cfg.AccessTrackingTopN, err = optionalInt("MEMORY_ACCESS_TRACKING_TOP_N", DefaultAccessTrackingTopN); err != nil {
		return nil, err
	}
	if cfg.SlowQueryThresholdMS, err = optionalInt("MEMORY_SLOW_QUERY_THRESHOLD_MS", DefaultSlowQueryThresholdMS); err != nil {
		return nil, err
	}
	if cfg.QueryExpansionEnabled, err = optionalBool("MEMORY_QUERY_EXPANSION_ENABLED", DefaultQueryExpansionEnabled); err != nil {
		return nil, err
	}
	if cfg.QueryExpansionCount, err = optionalInt("MEMORY_QUERY_EXPANSION_COUNT", DefaultQueryExpansionCount); err != nil {
		return nil, err
	}
	if cfg.RefineDefaultBudget, err = optionalInt("MEMORY_REFINE_DEFAULT_BUDGET", DefaultRefineBudget); err != nil {
		return nil, err
	}
	if cfg.RefineDefaultBudget < 0 {
		return nil, &InvalidError{Var: "MEMORY_REFINE_DEFAULT_BUDGET", Value: strconv.Itoa(cfg.RefineDefaultBudget), Err: fmt.Errorf("must be >= 0")}
	}
	if cfg.MaxToolIterations, err = optionalInt("MEMORY_MAX_TOOL_ITERATIONS", DefaultMaxToolIterations); err != nil {
		return nil, err
	}
	if cfg.MaxSearchIterations, err = optionalInt("MEMORY_MAX_SEARCH_ITERATIONS", DefaultMaxSearchIterations); err != nil {
		return nil, err
	}

	largeFileThreshold, err := optionalInt("MEMORY_LARGE_FILE_THRESHOLD_BYTES", DefaultLargeFileThresholdBytes)
	if err != nil {
		return nil, err
	}
	cfg.LargeFileThresholdBytes = int64(largeFileThreshold)

	cfg.AnthropicAPIKey = os.Getenv("ANTHROPIC_API_KEY")
	cfg.AnthropicBaseURL = os.Getenv("ANTHROPIC_BASE_URL")
	cfg.EmbedderBaseURL = os.Getenv("MEMORY_EMBEDDER_BASE_URL")
	cfg.EmbedderAPIKey = os.Getenv("MEMORY_EMBEDDER_API_KEY")

	return cfg, nil
}

func requireString(name string) (string, error) {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return "", &MissingError{Var: name}
	}
	return v, nil
}

func optionalInt(name string, def int) (int, error) {
	raw, ok := os.LookupEnv(name)
	if !ok || strings.TrimSpace(raw) == "" {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, &InvalidError{Var: name, Value: raw, Err: err}
	}
	return n, nil
}

func optionalBool(name string, def bool) (bool, error) {
	raw, ok := os.LookupEnv(name)
	if !ok || strings.TrimSpace(raw) == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return false, &InvalidError{Var: name, Value: raw, Err: err}
	}
	return b, nil
}
