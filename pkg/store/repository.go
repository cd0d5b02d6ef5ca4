package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Embedder is the repository's view of the embedding provider collaborator
// (spec §1's "out of scope" external embedder).
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Repository implements spec §4.4 against a Postgres+pgvector backend.
type Repository struct {
	client   *Client
	embedder Embedder
	now      func() time.Time
}

// NewRepository wires a Client and an optional Embedder (nil is valid;
// upsertMemories then fails with ErrEmbedderRequired for any item
// lacking a caller-supplied embedding).
func NewRepository(client *Client, embedder Embedder) *Repository {
	return &Repository{client: client, embedder: embedder, now: time.Now}
}

// EnsureIndex is an idempotent insert; if the index already exists and a
// description is provided, it is updated.
func (r *Repository) EnsureIndex(ctx context.Context, project, name, description string) (*Index, error) {
	id := "idx_" + uuid.NewString()
	const q = `
INSERT INTO memory_indexes (id, project, name, description)
VALUES ($1, $2, $3, NULLIF($4, ''))
ON CONFLICT (project, name) DO UPDATE
SET description = COALESCE(NULLIF(EXCLUDED.description, ''), memory_indexes.description)
RETURNING id, project, name, COALESCE(description, ''), created_at`

	var idx Index
	err := r.client.timed(ctx, "EnsureIndex", func() error {
		return r.client.db.QueryRowContext(ctx, q, id, project, name, description).
			Scan(&idx.ID, &idx.Project, &idx.Name, &idx.Description, &idx.CreatedAt)
	})
	if err != nil {
		return nil, err
	}
	return &idx, nil
}

// resolveIndexID looks up an index's opaque ID by (project, name), the
// tenant-scoping invariant 7 requires on every query.
func (r *Repository) resolveIndexID(ctx context.Context, project, name string) (string, error) {
	const q = `SELECT id FROM memory_indexes WHERE project = $1 AND name = $2`
	var id string
	err := r.client.timed(ctx, "resolveIndexID", func() error {
		return r.client.db.QueryRowContext(ctx, q, project, name).Scan(&id)
	})
	if err != nil {
		return "", fmt.Errorf("%w: (%s, %s)", ErrIndexNotFound, project, name)
	}
	return id, nil
}

// ListIndexes returns every index for a project, with memory counts and
// no embeddings (spec §4.4).
func (r *Repository) ListIndexes(ctx context.Context, project string) ([]IndexCount, error) {
	const q = `
SELECT mi.id, mi.project, mi.name, COALESCE(mi.description, ''), mi.created_at,
       COUNT(m.id) FILTER (WHERE m.superseded_by_id IS NULL)
FROM memory_indexes mi
LEFT JOIN memories m ON m.index_id = mi.id
WHERE mi.project = $1
GROUP BY mi.id
ORDER BY mi.name`

	var out []IndexCount
	err := r.client.timed(ctx, "ListIndexes", func() error {
		rows, err := r.client.db.QueryContext(ctx, q, project)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var ic IndexCount
			if err := rows.Scan(&ic.Index.ID, &ic.Index.Project, &ic.Index.Name, &ic.Index.Description, &ic.Index.CreatedAt, &ic.Count); err != nil {
				return err
			}
			out = append(out, ic)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetDatabaseInfo is an alias over ListIndexes, matching the two named
// operations in spec §4.4 (they share an implementation; only the outer
// adapter distinguishes their presentation).
func (r *Repository) GetDatabaseInfo(ctx context.Context, project string) (*DatabaseInfo, error) {
	indexes, err := r.ListIndexes(ctx, project)
	if err != nil {
		return nil, err
	}
	return &DatabaseInfo{Indexes: indexes}, nil
}
