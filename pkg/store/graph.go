package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

const (
	defaultGraphMaxDepth = 5
	maxGraphMaxDepth     = 10
)

// GetRelatedMemories performs a cycle-safe BFS over the relationship
// graph, deduplicating by target keeping the shortest depth, ordered by
// (depth, id).
func (r *Repository) GetRelatedMemories(ctx context.Context, project, indexName, rootID string, opts GraphOptions) ([]RelatedMemory, error) {
	indexID, err := r.resolveIndexID(ctx, project, indexName)
	if err != nil {
		return nil, err
	}

	maxDepth := opts.MaxDepth
	if maxDepth <= 0 {
		maxDepth = defaultGraphMaxDepth
	}
	if maxDepth > maxGraphMaxDepth {
		maxDepth = maxGraphMaxDepth
	}
	direction := opts.Direction
	if direction == "" {
		direction = DirectionForward
	}

	edgeSQL := directionalEdgeQuery(direction)

	typeFilter := ""
	args := []any{indexID, rootID}
	if len(opts.RelationshipTypes) > 0 {
		placeholders := make([]string, len(opts.RelationshipTypes))
		for i, t := range opts.RelationshipTypes {
			args = append(args, t)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		typeFilter = " AND relationship_type IN (" + strings.Join(placeholders, ",") + ")"
	}

	q := fmt.Sprintf(`
WITH RECURSIVE walk(target_id, relationship_type, depth, visited) AS (
  SELECT %s, 1, ARRAY[$2]
  FROM memory_relationships
  WHERE index_id = $1 AND %s%s

  UNION ALL

  SELECT %s, w.depth + 1, w.visited || mr.%s
  FROM memory_relationships mr
  JOIN walk w ON mr.%s = w.target_id
  WHERE mr.index_id = $1 AND w.depth < %d
    AND NOT (mr.%s = ANY(w.visited))%s
)
SELECT DISTINCT ON (target_id) target_id, relationship_type, depth
FROM walk
ORDER BY target_id, depth ASC`,
		edgeSQL.selectTarget, edgeSQL.rootPredicate, typeFilter,
		edgeSQL.selectTarget, edgeSQL.sourceCol, edgeSQL.sourceCol, maxDepth, edgeSQL.targetCol, typeFilter)

	rows, err := r.client.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, classify("GetRelatedMemories", err)
	}
	defer rows.Close()

	type hit struct {
		id    string
		typ   string
		depth int
	}
	var hits []hit
	for rows.Next() {
		var h hit
		if err := rows.Scan(&h.id, &h.typ, &h.depth); err != nil {
			return nil, err
		}
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].depth != hits[j].depth {
			return hits[i].depth < hits[j].depth
		}
		return hits[i].id < hits[j].id
	})

	limit := opts.Limit
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}

	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.id
	}
	memories, err := r.GetMemories(ctx, project, indexName, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]Memory, len(memories))
	for _, m := range memories {
		byID[m.ID] = m
	}

	out := make([]RelatedMemory, 0, len(hits))
	for _, h := range hits {
		m, ok := byID[h.id]
		if !ok {
			continue
		}
		out = append(out, RelatedMemory{Memory: m, Depth: h.depth, RelationshipType: h.typ})
	}
	return out, nil
}

type edgeShape struct {
	selectTarget  string
	rootPredicate string
	sourceCol     string
	targetCol     string
}

func directionalEdgeQuery(direction GraphDirection) edgeShape {
	switch direction {
	case DirectionBackward:
		return edgeShape{
			selectTarget:  "source_id",
			rootPredicate: "target_id = $2",
			sourceCol:     "target_id",
			targetCol:     "source_id",
		}
	case DirectionBoth:
		// Both directions: treat the edge table as undirected by
		// selecting whichever endpoint is not the walk's current node.
		return edgeShape{
			selectTarget:  "CASE WHEN source_id = $2 THEN target_id ELSE source_id END",
			rootPredicate: "(source_id = $2 OR target_id = $2)",
			sourceCol:     "CASE WHEN source_id = w.target_id THEN source_id ELSE target_id END",
			targetCol:     "CASE WHEN source_id = w.target_id THEN target_id ELSE source_id END",
		}
	default: // forward
		return edgeShape{
			selectTarget:  "target_id",
			rootPredicate: "source_id = $2",
			sourceCol:     "source_id",
			targetCol:     "target_id",
		}
	}
}

// FindRelationshipPath performs a bounded recursive shortest-edge-path
// search from source to target.
func (r *Repository) FindRelationshipPath(ctx context.Context, project, indexName, sourceID, targetID string, maxDepth int) ([]RelatedMemory, error) {
	if maxDepth <= 0 {
		maxDepth = defaultGraphMaxDepth
	}
	if maxDepth > maxGraphMaxDepth {
		maxDepth = maxGraphMaxDepth
	}

	indexID, err := r.resolveIndexID(ctx, project, indexName)
	if err != nil {
		return nil, err
	}

	const q = `
WITH RECURSIVE path(target_id, relationship_type, depth, visited, found) AS (
  SELECT target_id, relationship_type, 1, ARRAY[$2], (target_id = $3)
  FROM memory_relationships
  WHERE index_id = $1 AND source_id = $2

  UNION ALL

  SELECT mr.target_id, mr.relationship_type, p.depth + 1, p.visited || mr.source_id, (mr.target_id = $3)
  FROM memory_relationships mr
  JOIN path p ON mr.source_id = p.target_id
  WHERE mr.index_id = $1 AND p.depth < $4 AND NOT (mr.target_id = ANY(p.visited)) AND NOT p.found
)
SELECT target_id, relationship_type, depth FROM path WHERE found ORDER BY depth ASC LIMIT 1`

	row := r.client.db.QueryRowContext(ctx, q, indexID, sourceID, targetID, maxDepth)
	var id, relType string
	var depth int
	if err := row.Scan(&id, &relType, &depth); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, nil
		}
		return nil, classify("FindRelationshipPath", err)
	}

	memories, err := r.GetMemories(ctx, project, indexName, []string{id})
	if err != nil || len(memories) == 0 {
		return nil, err
	}
	return []RelatedMemory{{Memory: memories[0], Depth: depth, RelationshipType: relType}}, nil
}
