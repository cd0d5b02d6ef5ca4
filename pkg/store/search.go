package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/agenticmem/memoryd/pkg/priority"
)

const maxSearchLimit = 1000
const defaultSearchLimit = 10

func (r *Repository) getOneTx(ctx context.Context, tx *sql.Tx, project, id string) (*Memory, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+memoryColumns+` FROM memories WHERE project = $1 AND id = $2`, project, id)
	m, err := scanMemory(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return m, nil
}

// GetMemory fetches a single memory by ID, tenant-scoped, populates its
// relationships, and fires access tracking (fire-and-forget).
func (r *Repository) GetMemory(ctx context.Context, project, indexName, id string) (*Memory, error) {
	results, err := r.GetMemories(ctx, project, indexName, []string{id})
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, ErrNotFound
	}
	return &results[0], nil
}

// GetMemories fetches several memories by ID, tenant-scoped.
func (r *Repository) GetMemories(ctx context.Context, project, indexName string, ids []string) ([]Memory, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	indexID, err := r.resolveIndexID(ctx, project, indexName)
	if err != nil {
		return nil, err
	}

	placeholders := make([]string, len(ids))
	args := make([]any, 0, len(ids)+2)
	args = append(args, project, indexID)
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+3)
		args = append(args, id)
	}

	q := fmt.Sprintf(`SELECT %s FROM memories WHERE project = $1 AND index_id = $2 AND id IN (%s)`,
		memoryColumns, strings.Join(placeholders, ","))

	var out []Memory
	err = r.client.timed(ctx, "GetMemories", func() error {
		rows, err := r.client.db.QueryContext(ctx, q, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			m, err := scanMemory(rows)
			if err != nil {
				return err
			}
			out = append(out, *m)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	if err := r.attachRelationships(ctx, indexID, out); err != nil {
		return nil, err
	}

	r.fireAccessTracking(project, indexName, ids, 0)

	return out, nil
}

func (r *Repository) attachRelationships(ctx context.Context, indexID string, memories []Memory) error {
	if len(memories) == 0 {
		return nil
	}
	byID := make(map[string]*Memory, len(memories))
	for i := range memories {
		byID[memories[i].ID] = &memories[i]
	}

	ids := make([]string, 0, len(memories))
	for id := range byID {
		ids = append(ids, id)
	}
	placeholders := make([]string, len(ids))
	args := make([]any, 0, len(ids)+1)
	args = append(args, indexID)
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+2)
		args = append(args, id)
	}

	q := fmt.Sprintf(`SELECT source_id, target_id, relationship_type, confidence FROM memory_relationships
WHERE index_id = $1 AND source_id IN (%s)`, strings.Join(placeholders, ","))

	rows, err := r.client.db.QueryContext(ctx, q, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var rel Relationship
		var weight sql.NullFloat64
		if err := rows.Scan(&rel.SourceID, &rel.TargetID, &rel.Type, &weight); err != nil {
			return err
		}
		if weight.Valid {
			w := weight.Float64
			rel.Weight = &w
		}
		if m, ok := byID[rel.SourceID]; ok {
			m.Relationships = append(m.Relationships, rel)
		}
	}
	return rows.Err()
}

// DeleteMemories permanently removes the given IDs, excluding any with
// a sys_ ID prefix or source = "system" (invariant 3), and returns the
// actual delete count.
func (r *Repository) DeleteMemories(ctx context.Context, project, indexName string, ids []string) (int, error) {
	indexID, err := r.resolveIndexID(ctx, project, indexName)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, 0, len(ids)+2)
	args = append(args, project, indexID)
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+3)
		args = append(args, id)
	}

	q := fmt.Sprintf(`DELETE FROM memories
WHERE project = $1 AND index_id = $2 AND id IN (%s)
  AND id NOT LIKE 'sys\_%%' ESCAPE '\' AND (source IS DISTINCT FROM 'system')`,
		strings.Join(placeholders, ","))

	var count int64
	err = r.client.timed(ctx, "DeleteMemories", func() error {
		res, err := r.client.db.ExecContext(ctx, q, args...)
		if err != nil {
			return err
		}
		count, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

// SearchMemories returns results ordered by descending cosine similarity,
// filtered by an optional DSL predicate and supersededById IS NULL.
func (r *Repository) SearchMemories(ctx context.Context, project, indexName string, queryEmbedding []float32, queryText string, opts SearchOptions) ([]SearchResult, error) {
	indexID, err := r.resolveIndexID(ctx, project, indexName)
	if err != nil {
		return nil, err
	}

	if len(queryEmbedding) == 0 {
		if r.embedder == nil {
			return nil, ErrEmbedderRequired
		}
		vecs, err := r.embedder.Embed(ctx, []string{queryText})
		if err != nil {
			return nil, fmt.Errorf("store: embed query: %w", err)
		}
		queryEmbedding = vecs[0]
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	args := []any{encodeVector(queryEmbedding), project, indexID}
	where := `project = $2 AND index_id = $3 AND superseded_by_id IS NULL`

	if opts.FilterExpression != "" {
		filterSQL, filterParams, err := compileFilter(opts.FilterExpression, len(args)+1)
		if err != nil {
			return nil, err
		}
		where += " AND " + filterSQL
		args = append(args, filterParams...)
	}

	limitPos := len(args) + 1
	args = append(args, limit)

	q := fmt.Sprintf(`
SELECT %s, 1 - (embedding <=> $1::vector) AS score
FROM memories
WHERE %s
ORDER BY embedding <=> $1::vector ASC
LIMIT $%d`, memoryColumns, where, limitPos)

	var out []SearchResult
	start := time.Now()
	err = r.client.timed(ctx, "SearchMemories", func() error {
		rows, err := r.client.db.QueryContext(ctx, q, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			m, score, err := scanSearchRow(rows)
			if err != nil {
				return err
			}
			if opts.MinScore > 0 && score < opts.MinScore {
				continue
			}
			out = append(out, SearchResult{Memory: *m, Score: score})
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	diag := SearchDiagnostics{
		Index:          indexName,
		Query:          queryText,
		FilterApplied:  opts.FilterExpression,
		ResultCount:    len(out),
		DurationMillis: time.Since(start).Milliseconds(),
	}
	if len(out) > 0 && out[0].Memory.ContentHash == contentHash(queryText) {
		diag.DuplicateHash = out[0].Memory.ContentHash
	}
	if r.client.logger != nil {
		r.client.logger(diag)
	}

	ids := make([]string, len(out))
	for i, res := range out {
		ids[i] = res.Memory.ID
	}
	r.fireAccessTracking(project, indexName, ids, 0)

	return out, nil
}

// scanSearchRow scans a memory row plus its trailing cosine-similarity score.
func scanSearchRow(rows *sql.Rows) (*Memory, float64, error) {
	var score float64
	m, err := scanMemoryWithScore(rows, &score)
	return m, score, err
}

// UpdateAccessStats increments accessCount, bumps maxAccessCount, sets
// lastAccessedAt, and recomputes currentPriority via the priority
// engine. Never returns an error the caller must act on immediately;
// callers are expected to log and swallow, per spec §5's fire-and-forget
// contract, but the function itself is synchronous and honest about
// failures for testability.
func (r *Repository) UpdateAccessStats(ctx context.Context, project, indexName string, ids []string, topN int) error {
	if len(ids) == 0 {
		return nil
	}
	if topN > 0 && len(ids) > topN {
		ids = ids[:topN]
	}

	indexID, err := r.resolveIndexID(ctx, project, indexName)
	if err != nil {
		return err
	}

	return r.withTx(ctx, func(tx *sql.Tx) error {
		for _, id := range ids {
			m, err := r.getOneTx(ctx, tx, project, id)
			if err != nil {
				if errors.Is(err, ErrNotFound) {
					continue
				}
				return err
			}
			if m.IndexID != indexID {
				continue
			}

			now := r.now()
			accessCount := m.Dynamics.AccessCount + 1
			maxAccessCount := m.Dynamics.MaxAccessCount
			if accessCount > maxAccessCount {
				maxAccessCount = accessCount
			}

			score, _ := priority.Compute(priority.Input{
				MemoryType:       priority.MemoryType(m.MemoryType),
				Stability:        priority.Stability(m.Dynamics.Stability),
				Importance:       priority.Importance(m.ImportanceString()),
				LastAccessedAt:   &now,
				CreatedAt:        &m.Dynamics.CreatedAt,
				AccessCount:      accessCount,
				EmotionIntensity: emotionIntensityOf(m.Emotion),
			}, now)

			_, err = tx.ExecContext(ctx, `
UPDATE memories SET access_count = $1, max_access_count = $2, last_accessed_at = $3, current_priority = $4
WHERE id = $5`, accessCount, maxAccessCount, now, score, id)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func emotionIntensityOf(e *Emotion) *float64 {
	if e == nil {
		return nil
	}
	v := e.Intensity
	return &v
}

// fireAccessTracking detaches from the caller's context (spec §5: fire-
// and-forget tasks detach from the request signal but log any error) and
// runs UpdateAccessStats in the background.
func (r *Repository) fireAccessTracking(project, indexName string, ids []string, topN int) {
	if len(ids) == 0 {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := r.UpdateAccessStats(ctx, project, indexName, ids, topN); err != nil {
			slog.Warn("access tracking failed", "index", indexName, "error", err)
		}
	}()
}
