package ops

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStringsFromAnyField(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, stringsFromAnyField([]any{"a", "b"}))
	assert.Nil(t, stringsFromAnyField(nil))
	assert.Equal(t, []string{"x"}, stringsFromAnyField([]string{"x"}))
}

func TestRefineDefaultBudget_FallsBackWhenConfigNil(t *testing.T) {
	c := &Controller{}
	assert.Greater(t, c.refineDefaultBudget(), 0)
}
