package ops

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/agenticmem/memoryd/pkg/appconfig"
	"github.com/agenticmem/memoryd/pkg/filter"
	"github.com/agenticmem/memoryd/pkg/store"
	"github.com/agenticmem/memoryd/pkg/toolruntime"
	"golang.org/x/sync/errgroup"
)

// Recall runs the recall operation (spec §4.6): optionally expands the
// query, fans searches out in parallel, merges and truncates results,
// hands them to the model as context, and tracks access on whatever
// memory IDs end up in the final answer.
func (c *Controller) Recall(ctx context.Context, req RecallRequest) (*RecallResult, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = 10
	}

	filterExpr := c.mergedFilterExpression(req)

	queries := []string{req.Query}
	if c.Config != nil && c.Config.QueryExpansionEnabled {
		queries = append(queries, expandQuery(req.Query, c.Config.QueryExpansionCount)...)
	}

	merged, diagnostics, err := c.fanOutSearches(ctx, req.Project, req.Index, queries, filterExpr, limit)
	if err != nil {
		return nil, err
	}

	rc := toolruntime.NewRequestContext(req.Project, req.Index, toolruntime.ModeNormal, c.maxSearchIterations())
	rc.SearchDiagnostics = diagnostics
	for _, r := range merged {
		rc.TrackedMemoryIDs[r.Memory.ID] = struct{}{}
	}

	systemPrompt := c.Prompts.BuildRecallSystemPrompt(req.Index)
	userMessage := buildRecallUserMessage(req, merged)

	result, err := c.Runtime.Run(ctx, rc, c.AgentModel, systemPrompt, userMessage, c.maxToolIterations())
	if err != nil {
		return nil, err
	}

	answer, finalIDs, trackingShortCircuited := parseRecallResponse(result.Content)

	out := &RecallResult{
		Status:            "ok",
		Index:             req.Index,
		Answer:            answer,
		SearchStatus:      "ok",
		SearchDiagnostics: rc.SearchDiagnostics,
	}

	switch req.ResponseMode {
	case "memories":
		out.Memories = merged
	case "both":
		out.Memories = merged
		out.SupportingMemories = filterByIDs(merged, finalIDs)
	default:
		out.SupportingMemories = filterByIDs(merged, finalIDs)
	}

	// Open question (c) in the design notes: when the model returns a
	// non-array memories field we still track every pre-fetched ID rather
	// than silently skip access tracking for the whole call.
	trackIDs := finalIDs
	if trackingShortCircuited {
		trackIDs = idsOf(merged)
	}
	c.trackAccess(req.Project, req.Index, trackIDs, rc.TrackedMemoryIDs)

	return out, nil
}

func (c *Controller) mergedFilterExpression(req RecallRequest) string {
	structured := filter.SerializeStructured(req.Filters)
	return filter.CombineAnd(structured, req.FilterExpression)
}

func (c *Controller) fanOutSearches(ctx context.Context, project, index string, queries []string, filterExpr string, limit int) ([]store.SearchResult, []store.SearchDiagnostics, error) {
	results := make([][]store.SearchResult, len(queries))
	diagnostics := make([]store.SearchDiagnostics, len(queries))

	g, gctx := errgroup.WithContext(ctx)
	for i, q := range queries {
		i, q := i, q
		g.Go(func() error {
			start := time.Now()
			hits, err := c.Repo.SearchMemories(gctx, project, index, nil, q, store.SearchOptions{
				FilterExpression: filterExpr,
				Limit:            limit,
			})
			if err != nil {
				return err
			}
			results[i] = hits
			diagnostics[i] = store.SearchDiagnostics{
				Index:          index,
				Query:          q,
				FilterApplied:  filterExpr,
				ResultCount:    len(hits),
				DurationMillis: time.Since(start).Milliseconds(),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, fmt.Errorf("ops: recall search: %w", err)
	}

	return mergeSearchResults(results, limit), diagnostics, nil
}

// mergeSearchResults merges multiple result sets by memory ID, keeping the
// highest score per ID, then truncates to limit.
func mergeSearchResults(sets [][]store.SearchResult, limit int) []store.SearchResult {
	best := map[string]store.SearchResult{}
	var order []string
	for _, set := range sets {
		for _, r := range set {
			existing, ok := best[r.Memory.ID]
			if !ok {
				order = append(order, r.Memory.ID)
				best[r.Memory.ID] = r
				continue
			}
			if r.Score > existing.Score {
				best[r.Memory.ID] = r
			}
		}
	}

	out := make([]store.SearchResult, 0, len(order))
	for _, id := range order {
		out = append(out, best[id])
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func expandQuery(query string, count int) []string {
	if count <= 0 {
		return nil
	}
	variations := make([]string, 0, count)
	for i := 0; i < count; i++ {
		variations = append(variations, fmt.Sprintf("%s (variation %d)", query, i+1))
	}
	return variations
}

func buildRecallUserMessage(req RecallRequest, merged []store.SearchResult) string {
	payload := map[string]any{
		"query":             req.Query,
		"prefetchedResults": merged,
	}
	b, _ := json.Marshal(payload)
	return string(b)
}

// parseRecallResponse tolerantly parses the model's final JSON. A
// `memories` field that is the literal string "none", or any other
// non-array shape, yields no memory IDs and sets trackingShortCircuited,
// so the caller falls back to the pre-fetched IDs for access tracking.
func parseRecallResponse(content string) (answer string, memoryIDs []string, trackingShortCircuited bool) {
	var raw struct {
		Answer    string          `json:"answer"`
		Memories  json.RawMessage `json:"memories"`
	}
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return content, nil, true
	}
	answer = raw.Answer

	var ids []string
	if err := json.Unmarshal(raw.Memories, &ids); err != nil {
		return answer, nil, true
	}
	return answer, ids, false
}

func filterByIDs(results []store.SearchResult, ids []string) []store.SearchResult {
	if ids == nil {
		return results
	}
	want := map[string]bool{}
	for _, id := range ids {
		want[id] = true
	}
	var out []store.SearchResult
	for _, r := range results {
		if want[r.Memory.ID] {
			out = append(out, r)
		}
	}
	return out
}

func idsOf(results []store.SearchResult) []string {
	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.Memory.ID
	}
	return ids
}

// trackAccess fires UpdateAccessStats detached from the caller's request,
// capped at the configured top-N, for any ID not already tracked by the
// tool loop's own search_memories/get_memories calls.
func (c *Controller) trackAccess(project, index string, ids []string, alreadyTracked map[string]struct{}) {
	if !c.accessTrackingEnabled() {
		return
	}
	var fresh []string
	for _, id := range ids {
		if _, ok := alreadyTracked[id]; ok {
			continue
		}
		fresh = append(fresh, id)
	}
	if len(fresh) == 0 {
		return
	}

	topN := c.accessTrackingTopN()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.Repo.UpdateAccessStats(ctx, project, index, fresh, topN); err != nil {
			slog.Warn("recall access tracking failed", "index", index, "error", err)
		}
	}()
}
