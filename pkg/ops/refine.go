package ops

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/agenticmem/memoryd/pkg/appconfig"
	"github.com/agenticmem/memoryd/pkg/refine"
	"github.com/agenticmem/memoryd/pkg/store"
	"github.com/agenticmem/memoryd/pkg/toolruntime"
)

const minConsolidationSources = 3

// Refine runs the refine_memories operation (spec §4.6). Reflection is a
// single LLM call with its own belief validator; the other three
// operations (consolidation, decay, cleanup) share a plan-then-execute
// shape: the tool loop runs in refinement-planning mode, where mutation
// tools are unavailable, so its final JSON answer is only ever a plan,
// never a side effect.
func (c *Controller) Refine(ctx context.Context, req RefineRequest) (*RefineResult, error) {
	if req.Operation == "reflection" {
		return c.reflect(ctx, req)
	}
	return c.planThenExecute(ctx, req)
}

func (c *Controller) planThenExecute(ctx context.Context, req RefineRequest) (*RefineResult, error) {
	budget := req.Budget
	if budget <= 0 {
		budget = c.refineDefaultBudget()
	}
	if budget < 0 {
		budget = 0
	}

	rc := toolruntime.NewRequestContext(req.Project, req.Index, toolruntime.ModeRefinementPlanning, c.maxSearchIterations())

	systemPrompt := c.Prompts.BuildRefinementPlanningPrompt(req.Index, req.Operation, budget)
	userMessage := buildRefineUserMessage(req)

	result, err := c.Runtime.Run(ctx, rc, c.AgentModel, systemPrompt, userMessage, c.maxToolIterations())
	if err != nil {
		return nil, err
	}

	rawActions := parsePlan(result.Content)
	validActions, errs := validatePlan(rawActions)

	if req.Operation == "consolidation" {
		var consolidationErrs []string
		validActions, consolidationErrs = c.validateConsolidationPatterns(ctx, req, validActions)
		errs = append(errs, consolidationErrs...)
	}

	status := "ok"
	if len(rawActions) > budget {
		status = "budget_reached"
	}
	if len(validActions) > budget {
		validActions = validActions[:budget]
	}

	out := &RefineResult{
		Status:              status,
		Index:               req.Index,
		Operation:           req.Operation,
		SkippedActionsCount: len(rawActions) - len(validActions),
		Errors:              errs,
	}

	if req.DryRun {
		out.AppliedActionsCount = 0
		return out, nil
	}

	execResult := c.Executor.Execute(ctx, req.Project, req.Index, validActions)
	out.AppliedActionsCount = execResult.AppliedCount
	out.SkippedActionsCount += execResult.SkippedCount
	out.NewMemoryIDs = execResult.NewMemoryIDs
	out.Errors = append(out.Errors, execResult.Errors...)

	if req.Operation == "decay" {
		if err := c.Repo.IncrementSleepCycles(ctx, req.Project, req.Index); err != nil {
			out.Errors = append(out.Errors, fmt.Sprintf("decay: increment sleep cycles: %s", err))
		}
	}

	return out, nil
}

func (c *Controller) refineDefaultBudget() int {
	if c.Config != nil && c.Config.RefineDefaultBudget > 0 {
		return c.Config.RefineDefaultBudget
	}
	return appconfig.DefaultRefineBudget
}

func buildRefineUserMessage(req RefineRequest) string {
	payload := map[string]any{
		"operation": req.Operation,
		"scope":     req.Scope,
		"budget":    req.Budget,
		"dryRun":    req.DryRun,
	}
	b, _ := json.Marshal(payload)
	return string(b)
}

// validateConsolidationPatterns drops any CREATE pattern action whose
// derivedFromIds do not all resolve to memories that actually exist in
// this index, or whose count falls below the minimum source requirement.
func (c *Controller) validateConsolidationPatterns(ctx context.Context, req RefineRequest, actions []refine.Action) ([]refine.Action, []string) {
	candidateIDs := map[string]bool{}
	for _, a := range actions {
		if memoryType, _ := a.Fields["memoryType"].(string); a.Kind != refine.ActionCreate || memoryType != "pattern" {
			continue
		}
		for _, id := range stringsFromAnyField(a.Fields["derivedFromIds"]) {
			candidateIDs[id] = false
		}
	}
	if len(candidateIDs) == 0 {
		return actions, nil
	}

	ids := make([]string, 0, len(candidateIDs))
	for id := range candidateIDs {
		ids = append(ids, id)
	}
	existing, err := c.Repo.GetMemories(ctx, req.Project, req.Index, ids)
	if err != nil {
		return actions, []string{fmt.Sprintf("consolidation: could not verify derivedFromIds: %s", err)}
	}
	known := map[string]bool{}
	for _, m := range existing {
		known[m.ID] = true
	}

	var kept []refine.Action
	var errs []string
	for i, a := range actions {
		if memoryType, _ := a.Fields["memoryType"].(string); a.Kind != refine.ActionCreate || memoryType != "pattern" {
			kept = append(kept, a)
			continue
		}
		sources := stringsFromAnyField(a.Fields["derivedFromIds"])
		if len(sources) < minConsolidationSources {
			errs = append(errs, fmt.Sprintf("action %d: pattern requires at least %d derivedFromIds, got %d", i, minConsolidationSources, len(sources)))
			continue
		}
		allKnown := true
		for _, id := range sources {
			if !known[id] {
				allKnown = false
				errs = append(errs, fmt.Sprintf("action %d: derivedFromIds references unknown memory %q", i, id))
				break
			}
		}
		if !allKnown {
			continue
		}
		kept = append(kept, a)
	}
	return kept, errs
}

func stringsFromAnyField(v any) []string {
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

// fetchCandidateMemories returns a broad sample of non-superseded
// memories in the index matching filterExpr, for reflection's pattern
// scope and for any future candidate-set needs.
func (c *Controller) fetchCandidateMemories(ctx context.Context, project, index, queryText, filterExpr string, limit int) ([]store.SearchResult, error) {
	return c.Repo.SearchMemories(ctx, project, index, nil, queryText, store.SearchOptions{
		FilterExpression: filterExpr,
		Limit:            limit,
	})
}
