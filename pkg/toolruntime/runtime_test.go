package toolruntime

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/agenticmem/memoryd/pkg/fileio"
	"github.com/agenticmem/memoryd/pkg/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListTools_ModeGating(t *testing.T) {
	normal := ListTools(ModeNormal)
	assert.Len(t, normal, 6)

	restricted := ListTools(ModeForgetDryRun)
	assert.Len(t, restricted, 4)
	for _, tool := range restricted {
		assert.NotEqual(t, ToolUpsertMemories, tool.Name)
		assert.NotEqual(t, ToolDeleteMemories, tool.Name)
	}
}

func TestDispatch_PolicyErrorInRestrictedMode(t *testing.T) {
	rt := &Runtime{}
	rc := NewRequestContext("proj", "idx", ModeForgetDryRun, 5)

	content, isError := rt.Dispatch(context.Background(), rc, ToolUpsertMemories, `{"memories":[]}`)
	assert.True(t, isError)
	assert.Contains(t, content, ToolUpsertMemories)
	require.Len(t, rc.OperationLog, 1)
	assert.NotEmpty(t, rc.OperationLog[0].ErrorMessage)
}

func TestDispatch_UnknownTool(t *testing.T) {
	rt := &Runtime{}
	rc := NewRequestContext("proj", "idx", ModeNormal, 5)

	_, isError := rt.Dispatch(context.Background(), rc, "does_not_exist", `{}`)
	assert.True(t, isError)
}

func TestFilterSystemIDs(t *testing.T) {
	kept, skipped := filterSystemIDs([]string{"sys_1", "mem_abc", "sys_2", "mem_def"})
	assert.Equal(t, []string{"mem_abc", "mem_def"}, kept)
	assert.Equal(t, 2, skipped)
}

func TestDispatch_SearchIterationLimit(t *testing.T) {
	rt := &Runtime{}
	rc := NewRequestContext("proj", "idx", ModeNormal, 2)
	rc.SearchIterationCount = 2

	content, isError := rt.Dispatch(context.Background(), rc, ToolSearchMemories, `{"query":"x"}`)
	assert.True(t, isError)
	assert.Contains(t, content, "iteration limit")
}

type fakeLLMClient struct {
	outputs []*llm.GenerateOutput
	calls   int
}

func (f *fakeLLMClient) Generate(_ context.Context, _ llm.GenerateInput) (*llm.GenerateOutput, error) {
	out := f.outputs[f.calls]
	if f.calls < len(f.outputs)-1 {
		f.calls++
	}
	return out, nil
}

func TestRun_ReturnsFinalAnswerWithoutToolCalls(t *testing.T) {
	client := &fakeLLMClient{outputs: []*llm.GenerateOutput{
		{Content: "final answer", FinishReason: llm.FinishReasonStop},
	}}
	rt := &Runtime{LLMClient: client, AgentTokens: 1024}
	rc := NewRequestContext("proj", "idx", ModeNormal, 5)

	result, err := rt.Run(context.Background(), rc, "test-model", "system", "find things", 0)
	require.NoError(t, err)
	assert.Equal(t, "final answer", result.Content)
}

func TestRun_DispatchesToolCallThenConcludes(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hello"), 0o644))

	client := &fakeLLMClient{outputs: []*llm.GenerateOutput{
		{
			FinishReason: llm.FinishReasonToolUse,
			ToolCalls:    []llm.ToolCall{{ID: "call_1", Name: ToolReadFile, Arguments: `{"path":"notes.txt"}`}},
		},
		{Content: "done", FinishReason: llm.FinishReasonStop},
	}}
	rt := &Runtime{LLMClient: client, Files: fileio.NewReader(dir, 1024), AgentTokens: 1024}
	rc := NewRequestContext("proj", "idx", ModeNormal, 5)

	result, err := rt.Run(context.Background(), rc, "test-model", "system", "read the file", 0)
	require.NoError(t, err)
	assert.Equal(t, "done", result.Content)
	require.Len(t, rc.OperationLog, 1)
	assert.Equal(t, ToolReadFile, rc.OperationLog[0].Tool)
}

func TestRun_MaxIterationsForcesConclusion(t *testing.T) {
	loopOutput := &llm.GenerateOutput{
		FinishReason: llm.FinishReasonToolUse,
		ToolCalls:    []llm.ToolCall{{ID: "call_1", Name: ToolReadFile, Arguments: `{"path":"missing.txt"}`}},
	}
	client := &fakeLLMClient{outputs: []*llm.GenerateOutput{loopOutput}}
	rt := &Runtime{LLMClient: client, Files: fileio.NewReader(t.TempDir(), 1024), AgentTokens: 1024}
	rc := NewRequestContext("proj", "idx", ModeNormal, 5)

	_, err := rt.Run(context.Background(), rc, "test-model", "system", "loop forever", 2)
	require.Error(t, err)
	var maxErr *MaxIterationsError
	assert.ErrorAs(t, err, &maxErr)
}

func TestRun_LengthFinishReasonIsDependencyError(t *testing.T) {
	client := &fakeLLMClient{outputs: []*llm.GenerateOutput{
		{Content: "truncated...", FinishReason: llm.FinishReasonLength},
	}}
	rt := &Runtime{LLMClient: client, AgentTokens: 1024}
	rc := NewRequestContext("proj", "idx", ModeNormal, 5)

	_, err := rt.Run(context.Background(), rc, "test-model", "system", "go long", 0)
	require.Error(t, err)
	var depErr *llm.DependencyError
	assert.ErrorAs(t, err, &depErr)
	assert.Equal(t, llm.FinishReasonLength, depErr.Reason)
}
