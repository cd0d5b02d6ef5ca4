package priority

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCompute_S4_EpisodicLowImportance(t *testing.T) {
	now := time.Date(2026, 1, 30, 0, 0, 0, 0, time.UTC)
	created := now.AddDate(0, 0, -30)

	score, _ := Compute(Input{
		MemoryType:  TypeEpisodic,
		Importance:  ImportanceLow,
		CreatedAt:   &created,
		AccessCount: 0,
	}, now)

	assert.InDelta(t, 0.26, score, 0.001)
}

func TestCompute_S5_CanonicalBeliefFloor(t *testing.T) {
	now := time.Date(2026, 1, 30, 0, 0, 0, 0, time.UTC)
	created := now.AddDate(-1, 0, 0)

	score, _ := Compute(Input{
		MemoryType:  TypeBelief,
		Importance:  ImportanceHigh,
		Stability:   StabilityCanonical,
		CreatedAt:   &created,
		AccessCount: 0,
	}, now)

	assert.GreaterOrEqual(t, score, 0.4)
	assert.InDelta(t, 0.4001, score, 0.005)
}

func TestCompute_AlwaysInRange(t *testing.T) {
	now := time.Now()
	created := now.AddDate(-5, 0, 0)
	intensity := 1.0

	score, _ := Compute(Input{
		MemoryType:       TypeSemantic,
		Importance:       ImportanceHigh,
		CreatedAt:        &created,
		AccessCount:      1_000_000,
		EmotionIntensity: &intensity,
	}, now)

	assert.GreaterOrEqual(t, score, 0.0)
	assert.LessOrEqual(t, score, 1.0)
}

func TestCompute_MonotonicInAge(t *testing.T) {
	now := time.Now()
	recent := now.AddDate(0, 0, -1)
	old := now.AddDate(0, 0, -100)

	recentScore, _ := Compute(Input{MemoryType: TypePattern, Importance: ImportanceMedium, CreatedAt: &recent}, now)
	oldScore, _ := Compute(Input{MemoryType: TypePattern, Importance: ImportanceMedium, CreatedAt: &old}, now)

	assert.GreaterOrEqual(t, recentScore, oldScore)
}

func TestCompute_MissingImportanceDefaultsLow(t *testing.T) {
	now := time.Now()
	score, comps := Compute(Input{MemoryType: TypeSelf, CreatedAt: &now}, now)
	assert.InDelta(t, 0.3, comps.Importance, 1e-9)
	assert.GreaterOrEqual(t, score, 0.0)
}

func TestCompute_NonCanonicalNoFloor(t *testing.T) {
	now := time.Date(2026, 1, 30, 0, 0, 0, 0, time.UTC)
	created := now.AddDate(-5, 0, 0)

	score, _ := Compute(Input{
		MemoryType: TypeBelief,
		Importance: ImportanceLow,
		Stability:  StabilityTentative,
		CreatedAt:  &created,
	}, now)

	assert.Less(t, score, 0.4)
}
