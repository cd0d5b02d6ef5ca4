package ops

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/agenticmem/memoryd/pkg/appconfig"
	"github.com/agenticmem/memoryd/pkg/llm"
	"github.com/agenticmem/memoryd/pkg/store"
	"github.com/agenticmem/memoryd/pkg/toolruntime"
)

// Memorize runs the memorize operation (spec §4.6): large files are
// preprocessed in-process through analyze_text, smaller files are handed
// to the model via read_file, then the tool loop runs and its self-
// reported decision is reconciled against what the repository actually
// recorded.
func (c *Controller) Memorize(ctx context.Context, req MemorizeRequest) (*MemorizeResult, error) {
	if _, err := c.Repo.EnsureIndex(ctx, req.Project, req.Index, ""); err != nil {
		return nil, fmt.Errorf("ops: memorize ensure index: %w", err)
	}

	threshold := appconfig.DefaultLargeFileThresholdBytes
	if c.Config != nil && c.Config.LargeFileThresholdBytes > 0 {
		threshold = c.Config.LargeFileThresholdBytes
	}

	var preStoredIDs []string
	var smallFiles []string

	for _, path := range req.Files {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if info.Size() >= threshold {
			ids, err := c.preprocessLargeFile(ctx, req, path)
			if err != nil {
				return nil, fmt.Errorf("ops: memorize preprocess %s: %w", path, err)
			}
			preStoredIDs = append(preStoredIDs, ids...)
			continue
		}
		smallFiles = append(smallFiles, path)
	}

	rc := toolruntime.NewRequestContext(req.Project, req.Index, toolruntime.ModeNormal, c.maxSearchIterations())

	userMessage := buildMemorizeUserMessage(req, smallFiles)
	systemPrompt := c.Prompts.BuildMemorizeSystemPrompt(req.Index)

	result, err := c.Runtime.Run(ctx, rc, c.AgentModel, systemPrompt, userMessage, c.maxToolIterations())
	if err != nil {
		return nil, err
	}

	storedIDs := append(append([]string{}, preStoredIDs...), rc.StoredMemoryIDs...)

	decision := parseMemorizeDecision(result.Content)
	reconciled, notes := reconcileMemorizeDecision(decision, storedIDs, rc)

	return &MemorizeResult{
		Status:      "ok",
		Index:       req.Index,
		StoredCount: len(storedIDs),
		MemoryIDs:   storedIDs,
		Notes:       notes,
		Decision:    reconciled,
	}, nil
}

func buildMemorizeUserMessage(req MemorizeRequest, smallFiles []string) string {
	payload := map[string]any{
		"input":    req.Input,
		"files":    smallFiles,
		"metadata": req.Metadata,
		"force":    req.Force,
	}
	b, _ := json.Marshal(payload)
	return string(b)
}

// preprocessLargeFile reads, chunks, analyzes, and upserts one large file
// entirely in-process, per spec §4.6.
func (c *Controller) preprocessLargeFile(ctx context.Context, req MemorizeRequest, path string) ([]string, error) {
	content, err := c.Files.Read(ctx, path)
	if err != nil {
		return nil, err
	}

	chunks := chunkText(content, appconfig.DefaultChunkSize, appconfig.DefaultChunkOverlap, appconfig.DefaultMaxChunks)

	var storedIDs []string
	for _, chunk := range chunks {
		items, err := c.analyzeChunk(ctx, chunk, path)
		if err != nil {
			return storedIDs, err
		}
		if len(items) == 0 {
			continue
		}
		if len(storedIDs)+len(items) > appconfig.DefaultMaxMemoriesFile {
			items = items[:appconfig.DefaultMaxMemoriesFile-len(storedIDs)]
		}
		if len(items) == 0 {
			break
		}

		ids, err := c.Repo.UpsertMemories(ctx, req.Project, req.Index, items, map[string]any{
			"source":     "file",
			"sourcePath": path,
		})
		if err != nil {
			return storedIDs, err
		}
		storedIDs = append(storedIDs, ids...)
		if len(storedIDs) >= appconfig.DefaultMaxMemoriesFile {
			break
		}
	}
	return storedIDs, nil
}

type analyzedMemory struct {
	Text       string         `json:"text"`
	MemoryType string         `json:"memoryType"`
	Metadata   map[string]any `json:"metadata"`
}

type analysisPayload struct {
	Memories []analyzedMemory `json:"memories"`
}

func (c *Controller) analyzeChunk(ctx context.Context, chunk, sourcePath string) ([]store.UpsertItem, error) {
	systemPrompt := c.Prompts.BuildAnalysisPrompt(chunk)
	out, err := c.Runtime.LLMClient.Generate(ctx, llm.GenerateInput{
		Model:     c.Runtime.AnalysisModel,
		System:    systemPrompt,
		Messages:  []llm.ConversationMessage{{Role: llm.RoleUser, Content: chunk}},
		MaxTokens: c.Runtime.AnalysisTokens,
	})
	if err != nil {
		return nil, err
	}

	var payload analysisPayload
	if err := json.Unmarshal([]byte(out.Content), &payload); err != nil {
		return nil, nil
	}

	items := make([]store.UpsertItem, 0, len(payload.Memories))
	for _, m := range payload.Memories {
		if strings.TrimSpace(m.Text) == "" {
			continue
		}
		metadata := m.Metadata
		if metadata == nil {
			metadata = map[string]any{}
		}
		metadata["sourcePath"] = sourcePath
		items = append(items, store.UpsertItem{Text: m.Text, MemoryType: m.MemoryType, Metadata: metadata})
	}
	return items, nil
}

func parseMemorizeDecision(content string) *Decision {
	var parsed struct {
		Decision struct {
			Action string `json:"action"`
		} `json:"decision"`
		RelatedIDs []string `json:"relatedIds"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil
	}
	return &Decision{Action: strings.ToUpper(parsed.Decision.Action), RelatedIDs: parsed.RelatedIDs}
}

// reconcileMemorizeDecision enforces testable property 7: decision.action
// = STORED iff storedCount > 0.
func reconcileMemorizeDecision(decision *Decision, storedIDs []string, rc *toolruntime.RequestContext) (*Decision, string) {
	if decision == nil {
		decision = &Decision{}
	}

	if len(storedIDs) > 0 {
		decision.Action = "STORED"
		return decision, fmt.Sprintf("STORED: %d memories written", len(storedIDs))
	}

	if decision.Action == "STORED" {
		related := overlappingSearchIDs(rc)
		if len(related) > 0 {
			decision.Action = "DEDUPLICATED"
			decision.RelatedIDs = related
			return decision, "DEDUPLICATED: no new memories written, overlapping memories already present"
		}
		decision.Action = "REJECTED"
		return decision, "REJECTED: no new memories written and no overlapping memories found"
	}

	if decision.Action == "" {
		decision.Action = "REJECTED"
	}
	return decision, fmt.Sprintf("%s: no memories written", decision.Action)
}

// overlappingSearchIDs returns up to 5 IDs surfaced by any search_memories
// call in the operation log, for a DEDUPLICATED decision's relatedIds.
func overlappingSearchIDs(rc *toolruntime.RequestContext) []string {
	var ids []string
	for _, entry := range rc.OperationLog {
		if entry.Tool != toolruntime.ToolSearchMemories {
			continue
		}
		ids = append(ids, entry.SearchResultIDs...)
		if len(ids) >= 5 {
			break
		}
	}
	if len(ids) > 5 {
		ids = ids[:5]
	}
	return ids
}
