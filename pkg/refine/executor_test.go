package refine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStringsFromAny(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, stringsFromAny([]any{"a", "b"}))
	assert.Nil(t, stringsFromAny(nil))
	assert.Equal(t, []string{"x"}, stringsFromAny([]string{"x"}))
}

func TestIsSystemID(t *testing.T) {
	assert.True(t, isSystemID("sys_123"))
	assert.False(t, isSystemID("mem_123"))
}

func TestAnySlice(t *testing.T) {
	out := anySlice([]string{"a", "b"})
	assert.Equal(t, []any{"a", "b"}, out)
}

func TestExecute_UnknownActionKindIsCollectedNotFatal(t *testing.T) {
	e := &Executor{}
	result := e.Execute(t.Context(), "proj", "idx", []Action{{Kind: "BOGUS"}})
	assert.Equal(t, 0, result.AppliedCount)
	assert.Equal(t, 1, result.SkippedCount)
	assert.Len(t, result.Errors, 1)
}
