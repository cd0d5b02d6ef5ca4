package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_RejectsBadEnum(t *testing.T) {
	err := Validate(Metadata{MemoryType: "daydream"})
	require.Error(t, err)
	var ve *Error
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "memoryType", ve.Errors[0].Field)
}

func TestValidate_RejectsOutOfRangePriority(t *testing.T) {
	bad := 1.5
	err := Validate(Metadata{Dynamics: DynamicsInput{CurrentPriority: &bad}})
	require.Error(t, err)
}

func TestValidate_RejectsNegativeAccessCount(t *testing.T) {
	neg := int64(-1)
	err := Validate(Metadata{Dynamics: DynamicsInput{AccessCount: &neg}})
	require.Error(t, err)
}

func TestValidate_RejectsBadTimestamp(t *testing.T) {
	err := Validate(Metadata{Dynamics: DynamicsInput{CreatedAt: "not-a-date"}})
	require.Error(t, err)
}

func TestValidate_RejectsBadRelationship(t *testing.T) {
	err := Validate(Metadata{Relationships: []RelationshipInput{{TargetID: "", Type: "made_up"}}})
	require.Error(t, err)
	var ve *Error
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Errors, 2)
}

func TestValidate_RejectsBadEmotion(t *testing.T) {
	intensity := 2.0
	err := Validate(Metadata{Emotion: &EmotionInput{Intensity: &intensity}})
	require.Error(t, err)
}

func TestValidate_AcceptsWellFormed(t *testing.T) {
	priority := 0.5
	accessCount := int64(3)
	err := Validate(Metadata{
		MemoryType: "episodic",
		Importance: "medium",
		Source:     "user",
		Kind:       "raw",
		Dynamics: DynamicsInput{
			CurrentPriority: &priority,
			AccessCount:     &accessCount,
			CreatedAt:       "2026-01-01T00:00:00Z",
			Stability:       "stable",
		},
		Relationships: []RelationshipInput{{TargetID: "mem_1", Type: "similar_to"}},
	})
	assert.NoError(t, err)
}

func TestTimestamp_RejectsCalendarInvalidDates(t *testing.T) {
	assert.False(t, Timestamp("2026-04-31").Valid)
	assert.False(t, Timestamp("2026-02-31").Valid)
	assert.False(t, Timestamp("2024-02-30").Valid)
}

func TestTimestamp_AcceptsLeapDay(t *testing.T) {
	res := Timestamp("2024-02-29")
	assert.True(t, res.Valid)
	assert.Contains(t, res.Normalized, "2024-02-29")
}

func TestTimestamp_AcceptsISO8601AndNormalizes(t *testing.T) {
	res := Timestamp("2026-01-15T10:30:00Z")
	assert.True(t, res.Valid)
	assert.Empty(t, res.Warning)
}

func TestTimestamp_DateOnlyWarns(t *testing.T) {
	res := Timestamp("2026-01-15")
	assert.True(t, res.Valid)
	assert.NotEmpty(t, res.Warning)
}

func TestParseDynamicsInput_AbsentIsZeroValue(t *testing.T) {
	di, errs := ParseDynamicsInput(nil)
	assert.Empty(t, errs)
	assert.Equal(t, DynamicsInput{}, di)
}

func TestParseDynamicsInput_RejectsNonObject(t *testing.T) {
	_, errs := ParseDynamicsInput("not-an-object")
	require.Len(t, errs, 1)
}

func TestParseDynamicsInput_RejectsNonNumericAccessCount(t *testing.T) {
	_, errs := ParseDynamicsInput(map[string]any{"accessCount": "three"})
	require.Len(t, errs, 1)
	assert.Equal(t, "dynamics.accessCount", errs[0].Field)
}

func TestParseDynamicsInput_ParsesWellFormedFields(t *testing.T) {
	di, errs := ParseDynamicsInput(map[string]any{
		"currentPriority": 0.5,
		"accessCount":     float64(2),
		"createdAt":       "2026-01-01T00:00:00Z",
	})
	assert.Empty(t, errs)
	require.NotNil(t, di.CurrentPriority)
	assert.Equal(t, 0.5, *di.CurrentPriority)
	require.NotNil(t, di.AccessCount)
	assert.Equal(t, int64(2), *di.AccessCount)
	assert.Equal(t, "2026-01-01T00:00:00Z", di.CreatedAt)
}

func TestCombineErrors_MergesAllGroups(t *testing.T) {
	err := CombineErrors([]FieldError{{"a", "bad"}}, nil, []FieldError{{"b", "bad"}})
	require.Error(t, err)
	var ve *Error
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Errors, 2)
}

func TestCombineErrors_EmptyIsNil(t *testing.T) {
	assert.NoError(t, CombineErrors(nil, nil))
}

func TestStringList_RejectsNonStringElements(t *testing.T) {
	_, err := StringList("tags", []any{"ok", 5})
	require.Error(t, err)
}

func TestStringList_NilIsAbsent(t *testing.T) {
	out, err := StringList("tags", nil)
	require.NoError(t, err)
	assert.Nil(t, out)
}
