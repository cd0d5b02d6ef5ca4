package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/agenticmem/memoryd/pkg/priority"
	"github.com/agenticmem/memoryd/pkg/validate"
	"github.com/google/uuid"
)

// UpsertMemories batches an insert-or-update of memories into one index,
// merging default <- existing <- new metadata, validating via C3,
// computing embeddings and initial dynamics, and syncing relationships
// per invariant 5. Returns memory IDs in input order.
func (r *Repository) UpsertMemories(ctx context.Context, project, indexName string, items []UpsertItem, defaultMetadata map[string]any) ([]string, error) {
	indexID, err := r.resolveIndexID(ctx, project, indexName)
	if err != nil {
		return nil, err
	}

	texts := make([]string, len(items))
	for i, item := range items {
		texts[i] = item.Text
	}

	var embeddings [][]float32
	if len(items) > 0 {
		needsEmbedding := false
		for _, item := range items {
			if item.Metadata == nil || item.Metadata["embedding"] == nil {
				needsEmbedding = true
				break
			}
		}
		if needsEmbedding {
			if r.embedder == nil {
				return nil, ErrEmbedderRequired
			}
			embeddings, err = r.embedder.Embed(ctx, texts)
			if err != nil {
				return nil, fmt.Errorf("store: embed upsert batch: %w", err)
			}
			if len(embeddings) != len(items) {
				return nil, fmt.Errorf("store: embedder returned %d vectors for %d items", len(embeddings), len(items))
			}
		}
	}

	ids := make([]string, len(items))

	err = r.withTx(ctx, func(tx *sql.Tx) error {
		for i, item := range items {
			id, upsertErr := r.upsertOne(ctx, tx, project, indexID, item, embeddings, i, defaultMetadata)
			if upsertErr != nil {
				return fmt.Errorf("item %d (id=%q): %w", i, item.ID, upsertErr)
			}
			ids[i] = id
		}
		return nil
	})
	if err != nil {
		return nil, classify("UpsertMemories", err)
	}

	return ids, nil
}

func (r *Repository) upsertOne(ctx context.Context, tx *sql.Tx, project, indexID string, item UpsertItem, embeddings [][]float32, i int, defaultMetadata map[string]any) (string, error) {
	id := item.ID
	var existing *Memory
	if id != "" {
		var err error
		existing, err = r.getOneTx(ctx, tx, project, id)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return "", err
		}
	}
	if id == "" {
		id = "mem_" + uuid.NewString()
	}

	merged := mergeMetadata(defaultMetadata, existing, item.Metadata)

	memoryType := item.MemoryType
	if memoryType == "" {
		if mt, ok := merged["memoryType"].(string); ok {
			memoryType = mt
		}
	}
	delete(merged, "memoryType")

	if err := validateMergedMetadata(memoryType, merged); err != nil {
		return "", err
	}

	contentTime := time.Now()
	if item.Timestamp != nil {
		contentTime = *item.Timestamp
	} else if existing != nil {
		contentTime = existing.Content.Timestamp
	}

	var embedding []float32
	if embeddings != nil {
		embedding = embeddings[i]
	} else if existing != nil {
		embedding = existing.Embedding
	}
	if len(embedding) == 0 {
		return "", ErrEmbedderRequired
	}

	dyn := buildDynamics(existing, memoryType, merged, r.now())

	topic, _ := merged["topic"].(string)
	source, _ := merged["source"].(string)
	sourcePath, _ := merged["sourcePath"].(string)
	channel, _ := merged["channel"].(string)
	kind, _ := merged["kind"].(string)
	if kind == "" {
		kind = "raw"
	}
	importanceStr, _ := merged["importance"].(string)
	importance := ImportanceFromString(importanceStr)

	tags, err := validate.StringList("tags", merged["tags"])
	if err != nil {
		return "", err
	}
	derivedFrom, err := validate.StringList("derivedFromIds", merged["derivedFromIds"])
	if err != nil {
		return "", err
	}

	var emotionLabel *string
	var emotionIntensity *float64
	if em, ok := merged["emotion"].(map[string]any); ok {
		if l, ok := em["label"].(string); ok {
			emotionLabel = &l
		}
		if v, ok := em["intensity"].(float64); ok {
			emotionIntensity = &v
		}
	}

	// dynamics never leaks into the stored JSON blob (invariant 1);
	// stability is part of dynamics even though callers set it at the
	// top level of metadata, so it's excluded here too.
	blobMetadata := map[string]any{}
	for k, v := range merged {
		if k == "dynamics" || k == "relationships" || k == "stability" {
			continue
		}
		blobMetadata[k] = v
	}
	metadataJSON, err := json.Marshal(blobMetadata)
	if err != nil {
		return "", fmt.Errorf("marshal metadata: %w", err)
	}

	hash := contentHash(item.Text)

	const q = `
INSERT INTO memories (
  id, index_id, project, content_text, content_timestamp, embedding,
  memory_type, kind, topic, importance, tags, source, source_path, channel,
  emotion_label, emotion_intensity,
  initial_priority, current_priority, created_at, last_accessed_at,
  access_count, max_access_count, stability, sleep_cycles,
  derived_from_ids, superseded_by_id, content_hash, metadata, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6::vector,
  $7,$8,$9,$10,$11,$12,$13,$14,
  $15,$16,
  $17,$18,$19,$20,
  $21,$22,$23,$24,
  $25,$26,$27,$28,now()
)
ON CONFLICT (id) DO UPDATE SET
  content_text = EXCLUDED.content_text,
  content_timestamp = EXCLUDED.content_timestamp,
  embedding = EXCLUDED.embedding,
  memory_type = EXCLUDED.memory_type,
  kind = EXCLUDED.kind,
  topic = EXCLUDED.topic,
  importance = EXCLUDED.importance,
  tags = EXCLUDED.tags,
  source = EXCLUDED.source,
  source_path = EXCLUDED.source_path,
  channel = EXCLUDED.channel,
  emotion_label = EXCLUDED.emotion_label,
  emotion_intensity = EXCLUDED.emotion_intensity,
  current_priority = EXCLUDED.current_priority,
  derived_from_ids = EXCLUDED.derived_from_ids,
  content_hash = EXCLUDED.content_hash,
  metadata = EXCLUDED.metadata,
  updated_at = now()`

	_, err = tx.ExecContext(ctx, q,
		id, indexID, project, item.Text, contentTime, encodeVector(embedding),
		memoryType, kind, nullIfEmpty(topic), importance, pqStringArray(tags), nullIfEmpty(source), nullIfEmpty(sourcePath), nullIfEmpty(channel),
		emotionLabel, emotionIntensity,
		dyn.InitialPriority, dyn.CurrentPriority, dyn.CreatedAt, dyn.LastAccessedAt,
		dyn.AccessCount, dyn.MaxAccessCount, dyn.Stability, dyn.SleepCycles,
		pqStringArray(derivedFrom), nil, hash, string(metadataJSON),
	)
	if err != nil {
		return "", err
	}

	if err := r.syncRelationships(ctx, tx, project, indexID, id, merged["relationships"]); err != nil {
		return "", err
	}

	return id, nil
}

func validateMergedMetadata(memoryType string, merged map[string]any) error {
	rels, _, err := validate.RelationshipList(merged["relationships"])
	if err != nil {
		return err
	}

	var emotion *validate.EmotionInput
	if em, ok := merged["emotion"].(map[string]any); ok {
		ei := &validate.EmotionInput{}
		if l, ok := em["label"].(string); ok {
			ei.Label = &l
		}
		if v, ok := em["intensity"].(float64); ok {
			ei.Intensity = &v
		}
		emotion = ei
	}

	importanceStr, _ := merged["importance"].(string)
	source, _ := merged["source"].(string)
	kind, _ := merged["kind"].(string)

	dynamics, dynErrs := validate.ParseDynamicsInput(merged["dynamics"])
	if s, ok := merged["stability"].(string); ok {
		dynamics.Stability = s
	}

	err = validate.Validate(validate.Metadata{
		MemoryType:    memoryType,
		Importance:    importanceStr,
		Source:        source,
		Kind:          kind,
		Dynamics:      dynamics,
		Relationships: rels,
		Emotion:       emotion,
	})
	if err == nil && len(dynErrs) == 0 {
		return nil
	}
	var fieldErrs []validate.FieldError
	if ve, ok := err.(*validate.Error); ok {
		fieldErrs = ve.Errors
	}
	return validate.CombineErrors(dynErrs, fieldErrs)
}

// mergeMetadata implements "default <- existing <- new": new overrides
// existing overrides default.
func mergeMetadata(defaultMetadata map[string]any, existing *Memory, newMetadata map[string]any) map[string]any {
	out := map[string]any{}
	for k, v := range defaultMetadata {
		out[k] = v
	}
	if existing != nil {
		for k, v := range existing.Metadata {
			out[k] = v
		}
		out["importance"] = existing.ImportanceString()
		out["memoryType"] = existing.MemoryType
		out["kind"] = existing.Kind
		out["source"] = existing.Source
		out["topic"] = existing.Topic
		out["tags"] = toAnySlice(existing.Tags)
		out["derivedFromIds"] = toAnySlice(existing.DerivedFromIDs)
	}
	for k, v := range newMetadata {
		out[k] = v
	}
	return out
}

func toAnySlice(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func buildDynamics(existing *Memory, memoryType string, merged map[string]any, now time.Time) Dynamics {
	if existing != nil {
		dyn := existing.Dynamics
		score, _ := priority.Compute(priority.Input{
			MemoryType:      priority.MemoryType(memoryType),
			Stability:       priority.Stability(dyn.Stability),
			Importance:      priority.Importance(importanceLabel(merged)),
			LastAccessedAt:  dyn.LastAccessedAt,
			CreatedAt:       &dyn.CreatedAt,
			AccessCount:     dyn.AccessCount,
			EmotionIntensity: emotionIntensity(merged),
		}, now)
		dyn.CurrentPriority = score
		return dyn
	}

	score, _ := priority.Compute(priority.Input{
		MemoryType: priority.MemoryType(memoryType),
		Importance: priority.Importance(importanceLabel(merged)),
		CreatedAt:  &now,
	}, now)

	stability := "tentative"
	if s, ok := merged["stability"].(string); ok && s != "" {
		stability = s
	}

	return Dynamics{
		InitialPriority: score,
		CurrentPriority: score,
		CreatedAt:       now,
		Stability:       stability,
	}
}

func importanceLabel(merged map[string]any) string {
	s, _ := merged["importance"].(string)
	return s
}

func emotionIntensity(merged map[string]any) *float64 {
	if em, ok := merged["emotion"].(map[string]any); ok {
		if v, ok := em["intensity"].(float64); ok {
			return &v
		}
	}
	return nil
}

// syncRelationships implements invariant 5: field absent -> preserve;
// empty list -> clear; non-empty -> atomic replace within tx.
func (r *Repository) syncRelationships(ctx context.Context, tx *sql.Tx, project, indexID, sourceID string, raw any) error {
	if raw == nil {
		return nil
	}

	rels, present, err := validate.RelationshipList(raw)
	if err != nil {
		return err
	}
	if !present {
		return nil
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM memory_relationships WHERE source_id = $1 AND index_id = $2`, sourceID, indexID); err != nil {
		return err
	}

	for _, rel := range rels {
		relID := "rel_" + uuid.NewString()
		_, err := tx.ExecContext(ctx, `
INSERT INTO memory_relationships (id, project, index_id, source_id, target_id, relationship_type, confidence)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (source_id, target_id, relationship_type, index_id) DO UPDATE SET confidence = EXCLUDED.confidence`,
			relID, project, indexID, sourceID, rel.TargetID, rel.Type, rel.Weight)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *Repository) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := r.client.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
