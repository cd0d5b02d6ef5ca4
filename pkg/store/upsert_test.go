package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDynamics_NewMemoryUsesSuppliedStability(t *testing.T) {
	dyn := buildDynamics(nil, "belief", map[string]any{"stability": "stable"}, time.Now())
	assert.Equal(t, "stable", dyn.Stability)
}

func TestBuildDynamics_NewMemoryDefaultsToTentative(t *testing.T) {
	dyn := buildDynamics(nil, "episodic", map[string]any{}, time.Now())
	assert.Equal(t, "tentative", dyn.Stability)
}

func TestBuildDynamics_ExistingMemoryKeepsItsOwnStability(t *testing.T) {
	existing := &Memory{Dynamics: Dynamics{Stability: "canonical", CreatedAt: time.Now()}}
	dyn := buildDynamics(existing, "belief", map[string]any{"stability": "tentative"}, time.Now())
	assert.Equal(t, "canonical", dyn.Stability)
}

func TestValidateMergedMetadata_RejectsBadStability(t *testing.T) {
	err := validateMergedMetadata("belief", map[string]any{"stability": "daydream"})
	require.Error(t, err)
}

func TestValidateMergedMetadata_RejectsOutOfRangeDynamics(t *testing.T) {
	err := validateMergedMetadata("belief", map[string]any{
		"dynamics": map[string]any{"currentPriority": 1.5},
	})
	require.Error(t, err)
}

func TestValidateMergedMetadata_RejectsNonNumericAccessCount(t *testing.T) {
	err := validateMergedMetadata("belief", map[string]any{
		"dynamics": map[string]any{"accessCount": "lots"},
	})
	require.Error(t, err)
}

func TestValidateMergedMetadata_RejectsUnparseableTimestamp(t *testing.T) {
	err := validateMergedMetadata("belief", map[string]any{
		"dynamics": map[string]any{"createdAt": "not-a-date"},
	})
	require.Error(t, err)
}

func TestValidateMergedMetadata_AcceptsWellFormedDynamics(t *testing.T) {
	err := validateMergedMetadata("belief", map[string]any{
		"stability": "stable",
		"dynamics": map[string]any{
			"currentPriority": 0.5,
			"accessCount":     float64(3),
			"createdAt":       "2026-01-01T00:00:00Z",
		},
	})
	assert.NoError(t, err)
}
