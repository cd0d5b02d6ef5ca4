package llm

import (
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/stretchr/testify/assert"
)

func TestTranslateResponse_ToolUse(t *testing.T) {
	resp := &anthropic.Message{
		StopReason: anthropic.StopReasonToolUse,
		Content: []anthropic.ContentBlockUnion{
			anthropic.NewTextBlock("checking memories").ToUnion(),
			anthropic.NewToolUseBlock("call_1", map[string]any{"query": "x"}, "search_memories").ToUnion(),
		},
	}
	out := translateResponse(resp)
	assert.Equal(t, FinishReasonToolUse, out.FinishReason)
	assert.Contains(t, out.Content, "checking memories")
	assert.Len(t, out.ToolCalls, 1)
	assert.Equal(t, "search_memories", out.ToolCalls[0].Name)
}

func TestTranslateResponse_MaxTokens(t *testing.T) {
	resp := &anthropic.Message{StopReason: anthropic.StopReasonMaxTokens}
	out := translateResponse(resp)
	assert.Equal(t, FinishReasonLength, out.FinishReason)
}

func TestTranslateResponse_Malformed(t *testing.T) {
	resp := &anthropic.Message{}
	out := translateResponse(resp)
	assert.Equal(t, FinishReasonMalformed, out.FinishReason)
}
