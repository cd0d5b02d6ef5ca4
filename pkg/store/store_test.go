package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

type fakeEmbedder struct {
	dims int
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v := make([]float32, f.dims)
		for j := range v {
			v[j] = float32(len(t)%7) / float32(j+1)
		}
		out[i] = v
	}
	return out, nil
}

func newTestRepository(t *testing.T) *Repository {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"pgvector/pgvector:pg16",
		postgres.WithDatabase("test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(pgContainer); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	client, err := NewClient(ctx, ClientConfig{
		DatabaseURL:           connStr,
		MaxOpenConns:          10,
		MaxIdleConns:          5,
		ConnMaxLifetime:       time.Hour,
		SlowQueryThreshold:    200 * time.Millisecond,
		AccessTrackingEnabled: true,
	})
	require.NoError(t, err)
	t.Cleanup(client.Close)

	return NewRepository(client, &fakeEmbedder{dims: 1536})
}

func TestEnsureIndex_Idempotent(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	idx1, err := repo.EnsureIndex(ctx, "proj-a", "default", "first description")
	require.NoError(t, err)
	assert.Equal(t, "first description", idx1.Description)

	idx2, err := repo.EnsureIndex(ctx, "proj-a", "default", "")
	require.NoError(t, err)
	assert.Equal(t, idx1.ID, idx2.ID)
	assert.Equal(t, "first description", idx2.Description)

	idx3, err := repo.EnsureIndex(ctx, "proj-a", "default", "updated description")
	require.NoError(t, err)
	assert.Equal(t, idx1.ID, idx3.ID)
	assert.Equal(t, "updated description", idx3.Description)
}

func TestUpsertMemories_RoundTrip(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	_, err := repo.EnsureIndex(ctx, "proj-a", "default", "")
	require.NoError(t, err)

	ids, err := repo.UpsertMemories(ctx, "proj-a", "default", []UpsertItem{
		{Text: "first memory", MemoryType: "episodic"},
	}, nil)
	require.NoError(t, err)
	require.Len(t, ids, 1)

	got, err := repo.GetMemory(ctx, "proj-a", "default", ids[0])
	require.NoError(t, err)
	assert.Equal(t, "first memory", got.Content.Text)
	assert.Equal(t, "episodic", got.MemoryType)
	assert.Len(t, got.Embedding, 1536)

	_, err = repo.UpsertMemories(ctx, "proj-a", "default", []UpsertItem{
		{ID: ids[0], Text: "first memory, revised"},
	}, nil)
	require.NoError(t, err)

	updated, err := repo.GetMemory(ctx, "proj-a", "default", ids[0])
	require.NoError(t, err)
	assert.Equal(t, ids[0], updated.ID)
	assert.Equal(t, "first memory, revised", updated.Content.Text)
}

func TestUpsertMemories_RelationshipSyncTriState(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	_, err := repo.EnsureIndex(ctx, "proj-a", "default", "")
	require.NoError(t, err)

	ids, err := repo.UpsertMemories(ctx, "proj-a", "default", []UpsertItem{
		{Text: "source memory"},
		{Text: "target memory"},
	}, nil)
	require.NoError(t, err)
	sourceID, targetID := ids[0], ids[1]

	_, err = repo.UpsertMemories(ctx, "proj-a", "default", []UpsertItem{
		{ID: sourceID, Text: "source memory", Metadata: map[string]any{
			"relationships": []any{
				map[string]any{"targetId": targetID, "type": "supports"},
			},
		}},
	}, nil)
	require.NoError(t, err)

	withRel, err := repo.GetMemory(ctx, "proj-a", "default", sourceID)
	require.NoError(t, err)
	require.Len(t, withRel.Relationships, 1)
	assert.Equal(t, targetID, withRel.Relationships[0].TargetID)

	// Absent "relationships" key: preserve existing edges.
	_, err = repo.UpsertMemories(ctx, "proj-a", "default", []UpsertItem{
		{ID: sourceID, Text: "source memory, touched"},
	}, nil)
	require.NoError(t, err)
	preserved, err := repo.GetMemory(ctx, "proj-a", "default", sourceID)
	require.NoError(t, err)
	assert.Len(t, preserved.Relationships, 1)

	// Explicit empty list: clear edges.
	_, err = repo.UpsertMemories(ctx, "proj-a", "default", []UpsertItem{
		{ID: sourceID, Text: "source memory, touched", Metadata: map[string]any{
			"relationships": []any{},
		}},
	}, nil)
	require.NoError(t, err)
	cleared, err := repo.GetMemory(ctx, "proj-a", "default", sourceID)
	require.NoError(t, err)
	assert.Empty(t, cleared.Relationships)
}

func TestSearchMemories_ExcludesSuperseded(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	_, err := repo.EnsureIndex(ctx, "proj-a", "default", "")
	require.NoError(t, err)

	ids, err := repo.UpsertMemories(ctx, "proj-a", "default", []UpsertItem{
		{Text: "visible memory"},
		{Text: "superseded memory"},
	}, nil)
	require.NoError(t, err)

	err = repo.MarkMemoriesSuperseded(ctx, "proj-a", "default", ids[0], []string{ids[1]})
	require.NoError(t, err)

	results, err := repo.SearchMemories(ctx, "proj-a", "default", nil, "memory", SearchOptions{Limit: 10})
	require.NoError(t, err)

	for _, r := range results {
		assert.NotEqual(t, ids[1], r.Memory.ID)
	}
}

func TestDeleteMemories_ProtectsSystemMemories(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	_, err := repo.EnsureIndex(ctx, "proj-a", "default", "")
	require.NoError(t, err)

	ids, err := repo.UpsertMemories(ctx, "proj-a", "default", []UpsertItem{
		{ID: "sys_bootstrap", Text: "system seeded memory", Metadata: map[string]any{"source": "system"}},
		{Text: "ordinary memory"},
	}, nil)
	require.NoError(t, err)

	deleted, err := repo.DeleteMemories(ctx, "proj-a", "default", []string{ids[0], ids[1]})
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	_, err = repo.GetMemory(ctx, "proj-a", "default", ids[0])
	assert.NoError(t, err)
}

func TestSearchMemories_DimensionMismatchClassifies(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	_, err := repo.EnsureIndex(ctx, "proj-a", "default", "")
	require.NoError(t, err)

	_, err = repo.SearchMemories(ctx, "proj-a", "default", make([]float32, 3), "", SearchOptions{})
	assert.Error(t, err)
}
