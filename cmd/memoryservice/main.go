// Command memoryservice runs the agentic long-term memory service: an
// HTTP surface over the memorize/recall/forget/refine operations,
// backed by Postgres+pgvector and an Anthropic tool-calling loop.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/agenticmem/memoryd/pkg/appconfig"
	"github.com/agenticmem/memoryd/pkg/embedding"
	"github.com/agenticmem/memoryd/pkg/fileio"
	"github.com/agenticmem/memoryd/pkg/llm"
	"github.com/agenticmem/memoryd/pkg/mcpsurface"
	"github.com/agenticmem/memoryd/pkg/ops"
	"github.com/agenticmem/memoryd/pkg/prompt"
	"github.com/agenticmem/memoryd/pkg/store"
)

const (
	defaultAgentModel     = "claude-sonnet-4-5"
	defaultEmbeddingModel = "text-embedding-3-small"
	circuitBreakerTrips   = 5
	circuitBreakerTimeout = 30 * time.Second
)

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	cfg, err := appconfig.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	ctx := context.Background()

	client, err := store.NewClient(ctx, store.ClientConfig{
		DatabaseURL:           cfg.DatabaseURL,
		MaxOpenConns:          20,
		MaxIdleConns:          5,
		ConnMaxLifetime:       time.Hour,
		SlowQueryThreshold:    time.Duration(cfg.SlowQueryThresholdMS) * time.Millisecond,
		AccessTrackingEnabled: cfg.AccessTrackingEnabled,
	})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	log.Println("connected to Postgres")

	embedder := embedding.NewHTTPProvider(cfg.EmbedderBaseURL, cfg.EmbedderAPIKey, defaultEmbeddingModel, cfg.EmbeddingDimensions)
	repo := store.NewRepository(client, embedder)

	llmClient := llm.NewAnthropicClient(cfg.AnthropicAPIKey, cfg.AnthropicBaseURL, circuitBreakerTrips, circuitBreakerTimeout)
	builder := prompt.NewDefaultBuilder()
	files := fileio.NewReader(cfg.ProjectRoot, appconfig.DefaultMaxFileBytes)

	agentModel := getEnv("MEMORY_AGENT_MODEL", defaultAgentModel)
	controller := ops.New(repo, llmClient, builder, files, cfg, agentModel)

	gin.SetMode(getEnv("GIN_MODE", "release"))
	router := gin.Default()
	mcpsurface.NewServer(controller, repo).Routes(router)

	httpPort := getEnv("HTTP_PORT", "8080")
	slog.Info("memory service listening", "port", httpPort, "project", cfg.Project)
	if err := router.Run(":" + httpPort); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
