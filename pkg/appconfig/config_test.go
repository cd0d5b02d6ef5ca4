package appconfig

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingRequired(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("MEMORY_ACTIVE_PROJECT", "")
	t.Setenv("MEMORY_PROJECT_ROOT", "")

	_, err := Load()
	require.Error(t, err)

	var missing *MissingError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "DATABASE_URL", missing.Var)
}

func TestLoad_DefaultsApplied(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/memory")
	t.Setenv("MEMORY_ACTIVE_PROJECT", "acme")
	t.Setenv("MEMORY_PROJECT_ROOT", "/data/acme")
	t.Setenv("MEMORY_EMBEDDING_DIMENSIONS", "")
	t.Setenv("MEMORY_ACCESS_TRACKING_ENABLED", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultEmbeddingDimensions, cfg.EmbeddingDimensions)
	assert.Equal(t, DefaultAccessTrackingEnabled, cfg.AccessTrackingEnabled)
	assert.Equal(t, DefaultMaxToolIterations, cfg.MaxToolIterations)
}

func TestLoad_InvalidInt(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/memory")
	t.Setenv("MEMORY_ACTIVE_PROJECT", "acme")
	t.Setenv("MEMORY_PROJECT_ROOT", "/data/acme")
	t.Setenv("MEMORY_EMBEDDING_DIMENSIONS", "not-a-number")

	_, err := Load()
	require.Error(t, err)

	var invalid *InvalidError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "MEMORY_EMBEDDING_DIMENSIONS", invalid.Var)
}
