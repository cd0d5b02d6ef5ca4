package toolruntime

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/agenticmem/memoryd/pkg/fileio"
	"github.com/agenticmem/memoryd/pkg/llm"
	"github.com/agenticmem/memoryd/pkg/prompt"
	"github.com/agenticmem/memoryd/pkg/store"
	"github.com/agenticmem/memoryd/pkg/validate"
)

const (
	maxSearchLimit          = 100
	maxUpsertBatch          = 50
	confidenceExplicitID    = 0.0
	confidenceWithFilters   = 0.4
	confidenceWithoutFilter = 0.6
)

// Runtime dispatches the fixed tool catalog (C5) against the repository,
// LLM client, prompt composer, and sandboxed file reader.
type Runtime struct {
	Repo           *store.Repository
	LLMClient      llm.Client
	Prompts        prompt.Builder
	Files          *fileio.Reader
	AnalysisModel  string
	AgentModel     string
	AnalysisTokens int
	AgentTokens    int
}

// Dispatch routes one LLM tool call to its implementation, returning the
// content string to feed back as a tool-result message and whether it
// represents an error (spec §4.5's per-tool contracts).
func (rt *Runtime) Dispatch(ctx context.Context, rc *RequestContext, name, argumentsJSON string) (content string, isError bool) {
	if !allowedByMode[rc.Mode][name] {
		err := &PolicyError{Tool: name, Reason: fmt.Sprintf("not available in mode %q", rc.Mode)}
		rc.log(OperationLogEntry{Tool: name, Arguments: argumentsJSON, ErrorMessage: err.Error()})
		return err.Error(), true
	}

	switch name {
	case ToolSearchMemories:
		return rt.searchMemories(ctx, rc, argumentsJSON)
	case ToolGetMemories:
		return rt.getMemories(ctx, rc, argumentsJSON)
	case ToolUpsertMemories:
		return rt.upsertMemories(ctx, rc, argumentsJSON)
	case ToolDeleteMemories:
		return rt.deleteMemories(ctx, rc, argumentsJSON)
	case ToolReadFile:
		return rt.readFile(ctx, rc, argumentsJSON)
	case ToolAnalyzeText:
		return rt.analyzeText(ctx, rc, argumentsJSON)
	default:
		err := &UnknownToolError{Name: name}
		rc.log(OperationLogEntry{Tool: name, Arguments: argumentsJSON, ErrorMessage: err.Error()})
		return err.Error(), true
	}
}

type searchMemoriesArgs struct {
	Query            string `json:"query"`
	FilterExpression string `json:"filterExpression"`
	Limit            int    `json:"limit"`
}

func (rt *Runtime) searchMemories(ctx context.Context, rc *RequestContext, argumentsJSON string) (string, bool) {
	if rc.MaxSearchIterations > 0 && rc.SearchIterationCount >= rc.MaxSearchIterations {
		err := &SearchIterationLimitError{Limit: rc.MaxSearchIterations}
		rc.log(OperationLogEntry{Tool: ToolSearchMemories, Arguments: argumentsJSON, ErrorMessage: err.Error()})
		return err.Error(), true
	}

	var args searchMemoriesArgs
	if err := json.Unmarshal([]byte(argumentsJSON), &args); err != nil {
		return argError(ToolSearchMemories, argumentsJSON, err, rc)
	}

	limit := args.Limit
	if limit <= 0 || limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	minScore := 0.0
	if rc.ForgetContext != nil {
		switch {
		case len(rc.ForgetContext.ExplicitMemoryIDs) > 0:
			minScore = confidenceExplicitID
		case rc.ForgetContext.DryRun, rc.ForgetContext.HasFilters:
			minScore = confidenceWithFilters
		default:
			minScore = confidenceWithoutFilter
		}
	}

	rc.SearchIterationCount++

	results, err := rt.Repo.SearchMemories(ctx, rc.Project, rc.Index, nil, args.Query, store.SearchOptions{
		FilterExpression: args.FilterExpression,
		Limit:            limit,
		MinScore:         minScore,
	})
	if err != nil {
		return toolError(ToolSearchMemories, argumentsJSON, err, rc)
	}

	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.Memory.ID
		rc.trackMemory(r.Memory.ID)
	}

	payload, _ := json.Marshal(results)
	rc.log(OperationLogEntry{
		Tool:            ToolSearchMemories,
		Arguments:       argumentsJSON,
		MemoriesCount:   len(results),
		SearchResultIDs: ids,
		ResultSummary:   fmt.Sprintf("%d results", len(results)),
	})
	return string(payload), false
}

type getMemoriesArgs struct {
	IDs []string `json:"ids"`
}

func (rt *Runtime) getMemories(ctx context.Context, rc *RequestContext, argumentsJSON string) (string, bool) {
	var args getMemoriesArgs
	if err := json.Unmarshal([]byte(argumentsJSON), &args); err != nil {
		return argError(ToolGetMemories, argumentsJSON, err, rc)
	}

	memories, err := rt.Repo.GetMemories(ctx, rc.Project, rc.Index, args.IDs)
	if err != nil {
		return toolError(ToolGetMemories, argumentsJSON, err, rc)
	}

	for _, m := range memories {
		rc.trackMemory(m.ID)
	}

	payload, _ := json.Marshal(memories)
	rc.log(OperationLogEntry{
		Tool: ToolGetMemories, Arguments: argumentsJSON, MemoriesCount: len(memories),
		ResultSummary: fmt.Sprintf("%d memories", len(memories)),
	})
	return string(payload), false
}

type upsertMemoryArg struct {
	ID         string         `json:"id"`
	Text       string         `json:"text"`
	MemoryType string         `json:"memoryType"`
	Timestamp  string         `json:"timestamp"`
	Metadata   map[string]any `json:"metadata"`
}

type upsertMemoriesArgs struct {
	Memories []upsertMemoryArg `json:"memories"`
}

func (rt *Runtime) upsertMemories(ctx context.Context, rc *RequestContext, argumentsJSON string) (string, bool) {
	var args upsertMemoriesArgs
	if err := json.Unmarshal([]byte(argumentsJSON), &args); err != nil {
		return argError(ToolUpsertMemories, argumentsJSON, err, rc)
	}

	items := args.Memories
	if len(items) > maxUpsertBatch {
		items = items[:maxUpsertBatch]
	}

	upsertItems := make([]store.UpsertItem, 0, len(items))
	for _, m := range items {
		if strings.TrimSpace(m.Text) == "" {
			continue
		}
		metadata := m.Metadata
		if metadata == nil {
			metadata = map[string]any{}
		}
		if m.MemoryType != "" {
			metadata["memoryType"] = m.MemoryType
		}

		var ts *string
		if m.Timestamp != "" {
			result := validate.Timestamp(m.Timestamp)
			if !result.Valid {
				if !rc.ForceValidationBypass {
					continue
				}
				rc.ValidationMessages = append(rc.ValidationMessages,
					fmt.Sprintf("memory %q: invalid timestamp %q bypassed: %s", m.ID, m.Timestamp, result.Error))
			} else {
				ts = &result.Normalized
				if result.Warning != "" {
					rc.ValidationMessages = append(rc.ValidationMessages, result.Warning)
				}
			}
		}

		item := store.UpsertItem{ID: m.ID, Text: m.Text, MemoryType: m.MemoryType, Metadata: metadata}
		if ts != nil {
			t, err := parseNormalizedTimestamp(*ts)
			if err == nil {
				item.Timestamp = &t
			}
		}
		upsertItems = append(upsertItems, item)
	}

	if len(upsertItems) == 0 {
		rc.log(OperationLogEntry{Tool: ToolUpsertMemories, Arguments: argumentsJSON, ResultSummary: "0 stored"})
		return `{"storedIds":[]}`, false
	}

	ids, err := rt.Repo.UpsertMemories(ctx, rc.Project, rc.Index, upsertItems, nil)
	if err != nil {
		return toolError(ToolUpsertMemories, argumentsJSON, err, rc)
	}

	rc.StoredMemoryIDs = append(rc.StoredMemoryIDs, ids...)
	rc.log(OperationLogEntry{
		Tool: ToolUpsertMemories, Arguments: argumentsJSON, StoredIDs: ids,
		ResultSummary: fmt.Sprintf("%d stored", len(ids)),
	})

	payload, _ := json.Marshal(map[string]any{"storedIds": ids})
	return string(payload), false
}

type deleteMemoriesArgs struct {
	IDs []string `json:"ids"`
}

func (rt *Runtime) deleteMemories(ctx context.Context, rc *RequestContext, argumentsJSON string) (string, bool) {
	var args deleteMemoriesArgs
	if err := json.Unmarshal([]byte(argumentsJSON), &args); err != nil {
		return argError(ToolDeleteMemories, argumentsJSON, err, rc)
	}

	ids, skipped := filterSystemIDs(args.IDs)

	count, err := rt.Repo.DeleteMemories(ctx, rc.Project, rc.Index, ids)
	if err != nil {
		return toolError(ToolDeleteMemories, argumentsJSON, err, rc)
	}

	rc.log(OperationLogEntry{
		Tool: ToolDeleteMemories, Arguments: argumentsJSON,
		ResultSummary: fmt.Sprintf("deleted %d, skipped %d system", count, skipped),
	})
	payload, _ := json.Marshal(map[string]any{"deletedCount": count, "skippedSystemCount": skipped})
	return string(payload), false
}

type readFileArgs struct {
	Path string `json:"path"`
}

func (rt *Runtime) readFile(ctx context.Context, rc *RequestContext, argumentsJSON string) (string, bool) {
	var args readFileArgs
	if err := json.Unmarshal([]byte(argumentsJSON), &args); err != nil {
		return argError(ToolReadFile, argumentsJSON, err, rc)
	}
	content, err := rt.Files.Read(ctx, args.Path)
	if err != nil {
		return toolError(ToolReadFile, argumentsJSON, err, rc)
	}
	rc.log(OperationLogEntry{Tool: ToolReadFile, Arguments: argumentsJSON, ResultSummary: fmt.Sprintf("%d bytes", len(content))})
	return content, false
}

type analyzeTextArgs struct {
	Text string `json:"text"`
}

func (rt *Runtime) analyzeText(ctx context.Context, rc *RequestContext, argumentsJSON string) (string, bool) {
	var args analyzeTextArgs
	if err := json.Unmarshal([]byte(argumentsJSON), &args); err != nil {
		return argError(ToolAnalyzeText, argumentsJSON, err, rc)
	}

	systemPrompt := rt.Prompts.BuildAnalysisPrompt(args.Text)
	out, err := rt.LLMClient.Generate(ctx, llm.GenerateInput{
		Model:     rt.AnalysisModel,
		System:    systemPrompt,
		Messages:  []llm.ConversationMessage{{Role: llm.RoleUser, Content: args.Text}},
		MaxTokens: rt.AnalysisTokens,
	})
	if err != nil {
		return toolError(ToolAnalyzeText, argumentsJSON, err, rc)
	}

	rc.log(OperationLogEntry{Tool: ToolAnalyzeText, Arguments: argumentsJSON, ResultSummary: "analysis complete"})
	return out.Content, false
}

// filterSystemIDs strips protected system-memory IDs (the "sys_" prefix)
// from a caller-supplied delete list before it reaches the repository.
func filterSystemIDs(ids []string) (kept []string, skipped int) {
	for _, id := range ids {
		if strings.HasPrefix(id, "sys_") {
			skipped++
			continue
		}
		kept = append(kept, id)
	}
	return kept, skipped
}

func argError(tool, args string, err error, rc *RequestContext) (string, bool) {
	msg := fmt.Sprintf("invalid arguments for %s (%s): %s", tool, args, err)
	rc.log(OperationLogEntry{Tool: tool, Arguments: args, ErrorMessage: msg})
	return msg, true
}

func toolError(tool, args string, err error, rc *RequestContext) (string, bool) {
	rc.log(OperationLogEntry{Tool: tool, Arguments: args, ErrorMessage: err.Error()})
	return err.Error(), true
}
