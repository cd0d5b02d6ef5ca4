package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultBuilder_MemorizeSystemPrompt(t *testing.T) {
	b := NewDefaultBuilder()
	out := b.BuildMemorizeSystemPrompt("work")
	assert.Contains(t, out, `index "work"`)
	assert.Contains(t, out, "upsert_memories")
}

func TestDefaultBuilder_ForgetSystemPrompt_DryRun(t *testing.T) {
	b := NewDefaultBuilder()
	out := b.BuildForgetSystemPrompt("work", true)
	assert.Contains(t, out, "Do not call delete_memories")
}

func TestDefaultBuilder_ForgetSystemPrompt_Execute(t *testing.T) {
	b := NewDefaultBuilder()
	out := b.BuildForgetSystemPrompt("work", false)
	assert.NotContains(t, out, "Do not call delete_memories")
	assert.Contains(t, out, "Call\ndelete_memories")
}

func TestDefaultBuilder_ReflectionPrompt(t *testing.T) {
	b := NewDefaultBuilder()
	out := b.BuildReflectionPrompt("work", []string{"pattern one", "pattern two"})
	assert.Contains(t, out, "pattern one")
	assert.Contains(t, out, "pattern two")
}
