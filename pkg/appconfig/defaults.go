package appconfig

import "time"

// Default values applied when the corresponding environment variable is unset.
const (
	DefaultEmbeddingDimensions     = 1536
	DefaultAccessTrackingEnabled   = true
	DefaultAccessTrackingTopN      = 20
	DefaultSlowQueryThresholdMS    = 200
	DefaultQueryExpansionEnabled   = false
	DefaultQueryExpansionCount     = 2
	DefaultRefineBudget            = 10
	DefaultMaxToolIterations       = 10
	DefaultMaxSearchIterations     = 3
	DefaultLargeFileThresholdBytes = 256 * 1024
	DefaultMaxFileBytes            = 2 * 1024 * 1024

	DefaultChunkSize       = 16_000
	DefaultChunkOverlap    = 2_000
	DefaultMaxChunks       = 24
	DefaultMaxMemoriesFile = 50

	DefaultAgentTokenCap    = 16_384
	DefaultAnalysisTokenCap = 4_096

	envLoadTimeout = 10 * time.Second
)
