package refine

import (
	"context"
	"fmt"
	"strings"

	"github.com/agenticmem/memoryd/pkg/store"
)

// Executor applies a validated plan of Actions deterministically, with no
// LLM involvement (spec §4.7). Per-action errors are collected; the batch
// never aborts early.
type Executor struct {
	repo *store.Repository
}

// NewExecutor builds an Executor bound to a repository.
func NewExecutor(repo *store.Repository) *Executor {
	return &Executor{repo: repo}
}

// Execute applies every action in order against (project, index) and
// returns the aggregate result, per spec §4.7.
func (e *Executor) Execute(ctx context.Context, project, index string, actions []Action) Result {
	var result Result

	for _, action := range actions {
		var err error
		switch action.Kind {
		case ActionUpdate:
			err = e.applyUpdate(ctx, project, index, action)
		case ActionMerge:
			err = e.applyMerge(ctx, project, index, action)
		case ActionCreate:
			var newID string
			newID, err = e.applyCreate(ctx, project, index, action)
			if err == nil && newID != "" {
				result.NewMemoryIDs = append(result.NewMemoryIDs, newID)
			}
		case ActionDelete:
			var skipped int
			skipped, err = e.applyDelete(ctx, project, index, action)
			result.SkippedCount += skipped
		default:
			err = fmt.Errorf("refine: unknown action kind %q", action.Kind)
		}

		if err != nil {
			result.Errors = append(result.Errors, err.Error())
			result.SkippedCount++
			continue
		}
		result.AppliedCount++
	}

	return result
}

func (e *Executor) applyUpdate(ctx context.Context, project, index string, action Action) error {
	existing, err := e.repo.GetMemory(ctx, project, index, action.TargetID)
	if err != nil {
		return fmt.Errorf("refine: UPDATE %s: %w", action.TargetID, err)
	}

	merged := map[string]any{}
	for k, v := range existing.Metadata {
		merged[k] = v
	}
	for k, v := range action.Metadata {
		merged[k] = v
	}

	_, err = e.repo.UpsertMemories(ctx, project, index, []store.UpsertItem{{
		ID:         existing.ID,
		Text:       existing.Content.Text,
		MemoryType: existing.MemoryType,
		Metadata:   merged,
	}}, nil)
	if err != nil {
		return fmt.Errorf("refine: UPDATE %s: %w", action.TargetID, err)
	}
	return nil
}

func (e *Executor) applyMerge(ctx context.Context, project, index string, action Action) error {
	target, err := e.repo.GetMemory(ctx, project, index, action.TargetID)
	if err != nil {
		return fmt.Errorf("refine: MERGE target %s: %w", action.TargetID, err)
	}

	text := action.Text
	if text == "" {
		text = target.Content.Text
	}

	derivedFrom := append(append([]string{}, target.DerivedFromIDs...), action.SourceIDs...)
	merged := map[string]any{}
	for k, v := range target.Metadata {
		merged[k] = v
	}
	for k, v := range action.Metadata {
		merged[k] = v
	}
	merged["derivedFromIds"] = anySlice(derivedFrom)

	if _, err := e.repo.UpsertMemories(ctx, project, index, []store.UpsertItem{{
		ID:         target.ID,
		Text:       text,
		MemoryType: target.MemoryType,
		Metadata:   merged,
	}}, nil); err != nil {
		return fmt.Errorf("refine: MERGE target %s: %w", action.TargetID, err)
	}

	var toDelete []string
	var warnings []string
	for _, sourceID := range action.SourceIDs {
		if isSystemID(sourceID) {
			warnings = append(warnings, fmt.Sprintf("source %s is a system memory, skipped", sourceID))
			continue
		}
		toDelete = append(toDelete, sourceID)
	}

	if len(toDelete) > 0 {
		if err := e.repo.MarkMemoriesSuperseded(ctx, project, index, target.ID, toDelete); err != nil {
			return fmt.Errorf("refine: MERGE supersede sources of %s: %w", action.TargetID, err)
		}
		if _, err := e.repo.DeleteMemories(ctx, project, index, toDelete); err != nil {
			return fmt.Errorf("refine: MERGE delete sources of %s: %w", action.TargetID, err)
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("refine: MERGE %s: %s", action.TargetID, strings.Join(warnings, "; "))
	}
	return nil
}

var forbiddenCreateKeys = map[string]bool{"index": true, "id": true}

func (e *Executor) applyCreate(ctx context.Context, project, index string, action Action) (string, error) {
	metadata := map[string]any{}
	for k, v := range action.Metadata {
		metadata[k] = v
	}
	for k, v := range action.Fields {
		if forbiddenCreateKeys[k] {
			continue
		}
		if k == "text" || k == "memoryType" {
			continue
		}
		metadata[k] = v
	}

	text, _ := action.Fields["text"].(string)
	if text == "" {
		text = action.Text
	}
	memoryType, _ := action.Fields["memoryType"].(string)

	ids, err := e.repo.UpsertMemories(ctx, project, index, []store.UpsertItem{{
		Text:       text,
		MemoryType: memoryType,
		Metadata:   metadata,
	}}, nil)
	if err != nil {
		return "", fmt.Errorf("refine: CREATE: %w", err)
	}
	newID := ids[0]

	kind, _ := metadata["kind"].(string)
	if kind == "derived" && memoryType == "pattern" {
		derivedFromIDs := stringsFromAny(metadata["derivedFromIds"])
		if len(derivedFromIDs) > 0 {
			if err := e.repo.MarkMemoriesSuperseded(ctx, project, index, newID, derivedFromIDs); err != nil {
				return newID, fmt.Errorf("refine: CREATE pattern %s supersede sources: %w", newID, err)
			}
		}
	}

	return newID, nil
}

func (e *Executor) applyDelete(ctx context.Context, project, index string, action Action) (int, error) {
	var ids []string
	skipped := 0
	for _, id := range action.IDs {
		if isSystemID(id) {
			skipped++
			continue
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return skipped, nil
	}
	if _, err := e.repo.DeleteMemories(ctx, project, index, ids); err != nil {
		return skipped, fmt.Errorf("refine: DELETE: %w", err)
	}
	return skipped, nil
}

func anySlice(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func isSystemID(id string) bool {
	return strings.HasPrefix(id, "sys_")
}

func stringsFromAny(v any) []string {
	items, ok := v.([]any)
	if !ok {
		if ss, ok := v.([]string); ok {
			return ss
		}
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
