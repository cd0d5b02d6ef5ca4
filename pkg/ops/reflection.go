package ops

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/agenticmem/memoryd/pkg/filter"
	"github.com/agenticmem/memoryd/pkg/llm"
	"github.com/agenticmem/memoryd/pkg/store"
)

const reflectionPatternLimit = 50

// belief is the wire shape of one proposed derived belief returned by
// the reflection prompt.
type belief struct {
	Text           string         `json:"text"`
	MemoryType     string         `json:"memoryType"`
	Kind           string         `json:"kind"`
	Stability      string         `json:"stability"`
	Metadata       map[string]any `json:"metadata"`
	DerivedFromIDs []string       `json:"derivedFromIds"`
	Relationships  []struct {
		TargetID string `json:"targetId"`
		Type     string `json:"type"`
	} `json:"relationships"`
}

// reflect runs the reflection sub-operation (spec §4.6): unlike the
// other three refine operations, reflection is a single LLM call with no
// tool loop, over a pre-fetched set of candidate patterns.
func (c *Controller) reflect(ctx context.Context, req RefineRequest) (*RefineResult, error) {
	patternFilter := reflectionFilterExpression(req.Scope)
	patterns, err := c.fetchCandidateMemories(ctx, req.Project, req.Index, reflectionQueryText(req.Scope), patternFilter, reflectionPatternLimit)
	if err != nil {
		return nil, fmt.Errorf("ops: reflection fetch patterns: %w", err)
	}
	patterns = filterBySeedIDs(patterns, req.Scope)

	patternIDs := map[string]bool{}
	patternTexts := make([]string, 0, len(patterns))
	for _, p := range patterns {
		patternIDs[p.Memory.ID] = true
		patternTexts = append(patternTexts, fmt.Sprintf("[%s] %s", p.Memory.ID, p.Memory.Content.Text))
	}

	if len(patterns) == 0 {
		return &RefineResult{Status: "ok", Index: req.Index, Operation: "reflection"}, nil
	}

	systemPrompt := c.Prompts.BuildReflectionPrompt(req.Index, patternTexts)
	out, err := c.Runtime.LLMClient.Generate(ctx, llm.GenerateInput{
		Model:     c.AgentModel,
		System:    systemPrompt,
		Messages:  []llm.ConversationMessage{{Role: llm.RoleUser, Content: "Propose derived beliefs from the patterns above."}},
		MaxTokens: c.Runtime.AgentTokens,
	})
	if err != nil {
		return nil, err
	}

	beliefs := parseBeliefs(out.Content)
	validBeliefs, errs := validateBeliefs(beliefs, patternIDs)

	result := &RefineResult{
		Status:              "ok",
		Index:               req.Index,
		Operation:           "reflection",
		SkippedActionsCount: len(beliefs) - len(validBeliefs),
		Errors:              errs,
	}

	if req.DryRun {
		result.AppliedActionsCount = 0
		return result, nil
	}

	for _, b := range validBeliefs {
		metadata := b.Metadata
		if metadata == nil {
			metadata = map[string]any{}
		}
		metadata["kind"] = b.Kind
		metadata["derivedFromIds"] = stringsToAnySlice(b.DerivedFromIDs)
		if len(b.Relationships) > 0 {
			rels := make([]any, 0, len(b.Relationships))
			for _, rel := range b.Relationships {
				rels = append(rels, map[string]any{"targetId": rel.TargetID, "type": rel.Type})
			}
			metadata["relationships"] = rels
		}
		metadata["stability"] = b.Stability

		ids, err := c.Repo.UpsertMemories(ctx, req.Project, req.Index, []store.UpsertItem{{
			Text: b.Text, MemoryType: b.MemoryType, Metadata: metadata,
		}}, nil)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("reflection: upsert belief: %s", err))
			continue
		}
		result.NewMemoryIDs = append(result.NewMemoryIDs, ids...)
		result.AppliedActionsCount++
	}

	return result, nil
}

func reflectionFilterExpression(scope map[string]any) string {
	filters := map[string]any{"memoryType": "pattern"}
	if topic, ok := scope["topic"].(string); ok && topic != "" {
		filters["topic"] = topic
	}
	return filter.SerializeStructured(filters)
}

func reflectionQueryText(scope map[string]any) string {
	if topic, ok := scope["topic"].(string); ok && topic != "" {
		return topic
	}
	return "patterns"
}

func filterBySeedIDs(results []store.SearchResult, scope map[string]any) []store.SearchResult {
	seedIDs := stringsFromAnyField(scope["seedIds"])
	minImportance, hasMin := scope["minImportance"].(string)

	var out []store.SearchResult
	for _, r := range results {
		if len(seedIDs) > 0 && !containsString(seedIDs, r.Memory.ID) {
			continue
		}
		if hasMin && importanceRank(r.Memory.ImportanceString()) < importanceRank(minImportance) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func containsString(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

func importanceRank(s string) int {
	switch s {
	case "high":
		return 2
	case "low":
		return 0
	default:
		return 1
	}
}

func parseBeliefs(content string) []belief {
	var parsed struct {
		Beliefs []belief `json:"beliefs"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil
	}
	return parsed.Beliefs
}

// validateBeliefs enforces spec §4.6's reflection constraints: required
// fields, kind=derived, memoryType in {belief, self}, stability=stable,
// and every ID referenced (derivedFromIds, relationship targets) must be
// one of the candidate pattern IDs.
func validateBeliefs(beliefs []belief, patternIDs map[string]bool) ([]belief, []string) {
	var valid []belief
	var errs []string
	for i, b := range beliefs {
		if b.Text == "" {
			errs = append(errs, fmt.Sprintf("belief %d: text is required", i))
			continue
		}
		if b.Kind != "derived" {
			errs = append(errs, fmt.Sprintf("belief %d: kind must be \"derived\"", i))
			continue
		}
		if b.MemoryType != "belief" && b.MemoryType != "self" {
			errs = append(errs, fmt.Sprintf("belief %d: memoryType must be belief or self", i))
			continue
		}
		if b.Stability != "stable" {
			errs = append(errs, fmt.Sprintf("belief %d: stability must be \"stable\"", i))
			continue
		}
		if len(b.DerivedFromIDs) == 0 {
			errs = append(errs, fmt.Sprintf("belief %d: derivedFromIds is required", i))
			continue
		}
		if !allKnown(b.DerivedFromIDs, patternIDs) {
			errs = append(errs, fmt.Sprintf("belief %d: derivedFromIds references a memory outside the candidate pattern set", i))
			continue
		}
		relOK := true
		for _, rel := range b.Relationships {
			if !patternIDs[rel.TargetID] {
				errs = append(errs, fmt.Sprintf("belief %d: relationship target %q is outside the candidate pattern set", i, rel.TargetID))
				relOK = false
				break
			}
		}
		if !relOK {
			continue
		}
		valid = append(valid, b)
	}
	return valid, errs
}

func stringsToAnySlice(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func allKnown(ids []string, known map[string]bool) bool {
	for _, id := range ids {
		if !known[id] {
			return false
		}
	}
	return true
}
