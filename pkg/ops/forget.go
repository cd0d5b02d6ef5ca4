package ops

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/agenticmem/memoryd/pkg/filter"
	"github.com/agenticmem/memoryd/pkg/toolruntime"
)

// Forget runs the forget operation (spec §4.6): explicit IDs are
// sanitized, the mode is gated by dryRun, and the tool loop plans (and, in
// execution mode, actually performs) deletions under the confidence-tier
// thresholds search_memories applies in a forget context.
func (c *Controller) Forget(ctx context.Context, req ForgetRequest) (*ForgetResult, error) {
	explicitIDs := sanitizeIDs(req.ExplicitMemoryIDs)

	dryRun := req.DryRun
	mode := toolruntime.ModeNormal
	if dryRun {
		mode = toolruntime.ModeForgetDryRun
	}

	rc := toolruntime.NewRequestContext(req.Project, req.Index, mode, c.maxSearchIterations())
	rc.ForgetContext = &toolruntime.ForgetContext{
		ExplicitMemoryIDs: explicitIDs,
		DryRun:            dryRun,
		HasFilters:        len(req.Filters) > 0 || req.FilterExpression != "",
	}

	filterExpr := filter.CombineAnd(filter.SerializeStructured(req.Filters), req.FilterExpression)

	systemPrompt := c.Prompts.BuildForgetSystemPrompt(req.Index, dryRun)
	userMessage := buildForgetUserMessage(req, explicitIDs, filterExpr)

	result, err := c.Runtime.Run(ctx, rc, c.AgentModel, systemPrompt, userMessage, c.maxToolIterations())
	if err != nil {
		return nil, err
	}

	deleted := collectDeletedIDs(rc)
	planned := parseForgetPlan(result.Content)

	status := "ok"
	notes := result.Content
	if dryRun {
		notes = "dry run: no memories were deleted"
	}

	return &ForgetResult{
		Status:     status,
		Index:      req.Index,
		DryRun:     dryRun,
		DeletedIDs: deleted,
		PlannedIDs: planned,
		Notes:      notes,
	}, nil
}

func sanitizeIDs(ids []string) []string {
	var out []string
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		out = append(out, id)
	}
	return out
}

func buildForgetUserMessage(req ForgetRequest, explicitIDs []string, filterExpr string) string {
	payload := map[string]any{
		"input":             req.Input,
		"explicitMemoryIds": explicitIDs,
		"filterExpression":  filterExpr,
	}
	b, _ := json.Marshal(payload)
	return string(b)
}

// collectDeletedIDs reads the operation log for delete_memories calls
// that actually ran (execution mode only; dry-run mode never reaches
// delete_memories, per the tool catalog's mode gating).
func collectDeletedIDs(rc *toolruntime.RequestContext) []string {
	var ids []string
	for _, entry := range rc.OperationLog {
		if entry.Tool != toolruntime.ToolDeleteMemories || entry.ErrorMessage != "" {
			continue
		}
		var args struct {
			IDs []string `json:"ids"`
		}
		if err := json.Unmarshal([]byte(entry.Arguments), &args); err == nil {
			ids = append(ids, args.IDs...)
		}
	}
	return ids
}

func parseForgetPlan(content string) []string {
	var parsed struct {
		PlannedIDs []string `json:"plannedIds"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil
	}
	return parsed.PlannedIDs
}
