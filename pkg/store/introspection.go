package store

import (
	"context"
	"database/sql"
	"time"
)

const (
	priorityHighThreshold = 0.7
	priorityLowThreshold  = 0.3
	decayingPriorityMax   = 0.2
	decayingStaleDays     = 60

	defaultGraphViewLimit = 200
	defaultTopBeliefs     = 10
)

// TypeDistribution returns the count of active (non-superseded) memories
// per memory type.
func (r *Repository) TypeDistribution(ctx context.Context, project, indexName string) ([]TypeDistribution, error) {
	indexID, err := r.resolveIndexID(ctx, project, indexName)
	if err != nil {
		return nil, err
	}

	const q = `
SELECT memory_type, COUNT(*) FROM memories
WHERE project = $1 AND index_id = $2 AND superseded_by_id IS NULL
GROUP BY memory_type ORDER BY memory_type`

	var out []TypeDistribution
	err = r.client.timed(ctx, "TypeDistribution", func() error {
		rows, err := r.client.db.QueryContext(ctx, q, project, indexID)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var td TypeDistribution
			if err := rows.Scan(&td.MemoryType, &td.Count); err != nil {
				return err
			}
			out = append(out, td)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// TopBeliefs returns the highest-priority self/belief memories, a
// canonical-memory digest useful for reflection prompts.
func (r *Repository) TopBeliefs(ctx context.Context, project, indexName string, limit int) ([]Memory, error) {
	if limit <= 0 {
		limit = defaultTopBeliefs
	}
	indexID, err := r.resolveIndexID(ctx, project, indexName)
	if err != nil {
		return nil, err
	}

	q := `SELECT ` + memoryColumns + ` FROM memories
WHERE project = $1 AND index_id = $2 AND superseded_by_id IS NULL
  AND memory_type IN ('self', 'belief')
ORDER BY current_priority DESC LIMIT $3`

	var out []Memory
	err = r.client.timed(ctx, "TopBeliefs", func() error {
		rows, err := r.client.db.QueryContext(ctx, q, project, indexID, limit)
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
	return out, nil
}

// EmotionMap returns the count of active memories per emotion label,
// omitting memories with no emotion recorded.
func (r *Repository) EmotionMap(ctx context.Context, project, indexName string) ([]EmotionBucket, error) {
	indexID, err := r.resolveIndexID(ctx, project, indexName)
	if err != nil {
		return nil, err
	}

	const q = `
SELECT emotion_label, COUNT(*) FROM memories
WHERE project = $1 AND index_id = $2 AND superseded_by_id IS NULL AND emotion_label IS NOT NULL
GROUP BY emotion_label ORDER BY COUNT(*) DESC`

	var out []EmotionBucket
	err = r.client.timed(ctx, "EmotionMap", func() error {
		rows, err := r.client.db.QueryContext(ctx, q, project, indexID)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var b EmotionBucket
			if err := rows.Scan(&b.Label, &b.Count); err != nil {
				return err
			}
			out = append(out, b)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RelationshipGraphView returns a capped snapshot of the relationship
// graph (every active memory and edge up to the node/edge caps), used by
// the outer adapter's graph inspection tool.
func (r *Repository) RelationshipGraphView(ctx context.Context, project, indexName string, nodeLimit, edgeLimit int) ([]Memory, []Relationship, error) {
	if nodeLimit <= 0 {
		nodeLimit = defaultGraphViewLimit
	}
	if edgeLimit <= 0 {
		edgeLimit = defaultGraphViewLimit
	}
	indexID, err := r.resolveIndexID(ctx, project, indexName)
	if err != nil {
		return nil, nil, err
	}

	nodesQ := `SELECT ` + memoryColumns + ` FROM memories
WHERE project = $1 AND index_id = $2 AND superseded_by_id IS NULL
ORDER BY current_priority DESC LIMIT $3`

	var nodes []Memory
	err = r.client.timed(ctx, "RelationshipGraphView.nodes", func() error {
		rows, err := r.client.db.QueryContext(ctx, nodesQ, project, indexID, nodeLimit)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			m, err := scanMemory(rows)
			if err != nil {
				return err
			}
			nodes = append(nodes, *m)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, nil, err
	}

	edgesQ := `SELECT source_id, target_id, relationship_type, confidence FROM memory_relationships
WHERE index_id = $1 LIMIT $2`

	var edges []Relationship
	err = r.client.timed(ctx, "RelationshipGraphView.edges", func() error {
		rows, err := r.client.db.QueryContext(ctx, edgesQ, indexID, edgeLimit)
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
			edges = append(edges, rel)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, nil, err
	}

	return nodes, edges, nil
}

// PriorityHealthReport buckets active memories into High/Medium/Low
// priority tiers and surfaces the decaying set: memories whose current
// priority has fallen below decayingPriorityMax with no access in
// decayingStaleDays, each annotated with a recency diagnostic.
func (r *Repository) PriorityHealthReport(ctx context.Context, project, indexName string) (*PriorityHealth, error) {
	indexID, err := r.resolveIndexID(ctx, project, indexName)
	if err != nil {
		return nil, err
	}

	var health PriorityHealth
	err = r.client.timed(ctx, "PriorityHealthReport.buckets", func() error {
		const q = `
SELECT
  COUNT(*) FILTER (WHERE current_priority >= $3),
  COUNT(*) FILTER (WHERE current_priority < $3 AND current_priority >= $4),
  COUNT(*) FILTER (WHERE current_priority < $4)
FROM memories WHERE project = $1 AND index_id = $2 AND superseded_by_id IS NULL`
		return r.client.db.QueryRowContext(ctx, q, project, indexID, priorityHighThreshold, priorityLowThreshold).
			Scan(&health.High, &health.Medium, &health.Low)
	})
	if err != nil {
		return nil, err
	}

	cutoff := r.now().AddDate(0, 0, -decayingStaleDays)
	const decayingQ = `SELECT ` + memoryColumns + ` FROM memories
WHERE project = $1 AND index_id = $2 AND superseded_by_id IS NULL
  AND current_priority < $3
  AND (last_accessed_at IS NULL OR last_accessed_at < $4)
ORDER BY current_priority ASC`

	err = r.client.timed(ctx, "PriorityHealthReport.decaying", func() error {
		rows, err := r.client.db.QueryContext(ctx, decayingQ, project, indexID, decayingPriorityMax, cutoff)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			m, err := scanMemory(rows)
			if err != nil {
				return err
			}
			health.Decaying = append(health.Decaying, DecayingMemory{
				Memory:  *m,
				Recency: recencyDiagnostic(*m, r.now()),
			})
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	return &health, nil
}

func recencyDiagnostic(m Memory, now time.Time) float64 {
	ref := m.Dynamics.CreatedAt
	if m.Dynamics.LastAccessedAt != nil {
		ref = *m.Dynamics.LastAccessedAt
	}
	days := now.Sub(ref).Hours() / 24
	if days < 0 {
		days = 0
	}
	return days
}

// IncrementSleepCycles bumps sleep_cycles for every active memory in an
// index by one, used by the refine controller's decay pass.
func (r *Repository) IncrementSleepCycles(ctx context.Context, project, indexName string) error {
	indexID, err := r.resolveIndexID(ctx, project, indexName)
	if err != nil {
		return err
	}
	return r.client.timed(ctx, "IncrementSleepCycles", func() error {
		_, err := r.client.db.ExecContext(ctx, `
UPDATE memories SET sleep_cycles = sleep_cycles + 1
WHERE project = $1 AND index_id = $2 AND superseded_by_id IS NULL`, project, indexID)
		return err
	})
}

// MarkMemoriesSuperseded sets superseded_by_id on each of oldIDs,
// pointing at newID, used by the refinement executor's MERGE action.
func (r *Repository) MarkMemoriesSuperseded(ctx context.Context, project, indexName, newID string, oldIDs []string) error {
	if len(oldIDs) == 0 {
		return nil
	}
	indexID, err := r.resolveIndexID(ctx, project, indexName)
	if err != nil {
		return err
	}
	return r.withTx(ctx, func(tx *sql.Tx) error {
		for _, old := range oldIDs {
			if old == newID {
				continue
			}
			_, err := tx.ExecContext(ctx, `
UPDATE memories SET superseded_by_id = $1, updated_at = now()
WHERE project = $2 AND index_id = $3 AND id = $4`, newID, project, indexID, old)
			if err != nil {
				return err
			}
		}
		return nil
	})
}
