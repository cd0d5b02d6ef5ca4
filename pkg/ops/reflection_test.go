package ops

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseBeliefs_ValidJSON(t *testing.T) {
	content := `{"beliefs":[{"text":"x","memoryType":"belief","kind":"derived","stability":"stable","derivedFromIds":["mem_1"]}]}`
	beliefs := parseBeliefs(content)
	assert.Len(t, beliefs, 1)
	assert.Equal(t, "belief", beliefs[0].MemoryType)
}

func TestValidateBeliefs_RejectsWrongKind(t *testing.T) {
	beliefs := []belief{{Text: "x", Kind: "raw", MemoryType: "belief", Stability: "stable", DerivedFromIDs: []string{"p1"}}}
	valid, errs := validateBeliefs(beliefs, map[string]bool{"p1": true})
	assert.Empty(t, valid)
	assert.Len(t, errs, 1)
}

func TestValidateBeliefs_RejectsUnknownDerivedFrom(t *testing.T) {
	beliefs := []belief{{Text: "x", Kind: "derived", MemoryType: "belief", Stability: "stable", DerivedFromIDs: []string{"outside"}}}
	valid, errs := validateBeliefs(beliefs, map[string]bool{"p1": true})
	assert.Empty(t, valid)
	assert.Len(t, errs, 1)
}

func TestValidateBeliefs_AcceptsValidBelief(t *testing.T) {
	beliefs := []belief{{Text: "x", Kind: "derived", MemoryType: "self", Stability: "stable", DerivedFromIDs: []string{"p1", "p2"}}}
	valid, errs := validateBeliefs(beliefs, map[string]bool{"p1": true, "p2": true})
	assert.Len(t, valid, 1)
	assert.Empty(t, errs)
}

func TestValidateBeliefs_RejectsRelationshipOutsidePatternSet(t *testing.T) {
	beliefs := []belief{{
		Text: "x", Kind: "derived", MemoryType: "belief", Stability: "stable",
		DerivedFromIDs: []string{"p1"},
		Relationships: []struct {
			TargetID string `json:"targetId"`
			Type     string `json:"type"`
		}{{TargetID: "outside", Type: "supports"}},
	}}
	valid, errs := validateBeliefs(beliefs, map[string]bool{"p1": true})
	assert.Empty(t, valid)
	assert.Len(t, errs, 1)
}

func TestImportanceRank_Ordering(t *testing.T) {
	assert.True(t, importanceRank("high") > importanceRank("medium"))
	assert.True(t, importanceRank("medium") > importanceRank("low"))
}

func TestContainsString(t *testing.T) {
	assert.True(t, containsString([]string{"a", "b"}, "b"))
	assert.False(t, containsString([]string{"a", "b"}, "c"))
}

func TestAllKnown(t *testing.T) {
	known := map[string]bool{"a": true}
	assert.True(t, allKnown([]string{"a"}, known))
	assert.False(t, allKnown([]string{"a", "b"}, known))
}
