package store

import (
	"database/sql"
	"encoding/json"
)

const memoryColumns = `
id, index_id, project, content_text, content_timestamp, embedding,
memory_type, kind, topic, importance, tags, source, source_path, channel,
emotion_label, emotion_intensity,
initial_priority, current_priority, created_at, last_accessed_at,
access_count, max_access_count, stability, sleep_cycles,
derived_from_ids, COALESCE(superseded_by_id, ''), COALESCE(content_hash, ''), metadata, updated_at`

// rowScanner is implemented by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanMemory(row rowScanner) (*Memory, error) {
	return scanMemoryExtra(row)
}

// scanMemoryWithScore scans a memory row plus a trailing cosine-similarity
// score column, as produced by SearchMemories' query.
func scanMemoryWithScore(row rowScanner, score *float64) (*Memory, error) {
	return scanMemoryExtra(row, score)
}

func scanMemoryExtra(row rowScanner, extra ...any) (*Memory, error) {
	var m Memory
	var embeddingText string
	var tags, derivedFrom pqTextArray
	var topic, source, sourcePath, channel sql.NullString
	var emotionLabel sql.NullString
	var emotionIntensity sql.NullFloat64
	var lastAccessedAt sql.NullTime
	var metadataRaw []byte

	dest := []any{
		&m.ID, &m.IndexID, &m.Project, &m.Content.Text, &m.Content.Timestamp, &embeddingText,
		&m.MemoryType, &m.Kind, &topic, &m.Importance, &tags, &source, &sourcePath, &channel,
		&emotionLabel, &emotionIntensity,
		&m.Dynamics.InitialPriority, &m.Dynamics.CurrentPriority, &m.Dynamics.CreatedAt, &lastAccessedAt,
		&m.Dynamics.AccessCount, &m.Dynamics.MaxAccessCount, &m.Dynamics.Stability, &m.Dynamics.SleepCycles,
		&derivedFrom, &m.SupersededByID, &m.ContentHash, &metadataRaw, &m.UpdatedAt,
	}
	dest = append(dest, extra...)

	err := row.Scan(dest...)
	if err != nil {
		return nil, err
	}

	m.Topic = topic.String
	m.Source = source.String
	m.SourcePath = sourcePath.String
	m.Channel = channel.String
	m.Tags = []string(tags)
	m.DerivedFromIDs = []string(derivedFrom)

	if emotionLabel.Valid || emotionIntensity.Valid {
		m.Emotion = &Emotion{Label: emotionLabel.String, Intensity: emotionIntensity.Float64}
	}
	if lastAccessedAt.Valid {
		t := lastAccessedAt.Time
		m.Dynamics.LastAccessedAt = &t
	}

	vec, err := decodeVector(embeddingText)
	if err != nil {
		return nil, err
	}
	m.Embedding = vec

	if len(metadataRaw) > 0 {
		if err := json.Unmarshal(metadataRaw, &m.Metadata); err != nil {
			return nil, err
		}
	}
	if m.Metadata == nil {
		m.Metadata = map[string]any{}
	}

	return &m, nil
}

// pqTextArray scans a Postgres TEXT[] into a []string and, conversely,
// is passed back as a plain []string (pgx's stdlib driver encodes Go
// string slices as TEXT[] natively).
type pqTextArray []string

func (a *pqTextArray) Scan(src any) error {
	if src == nil {
		*a = nil
		return nil
	}
	switch v := src.(type) {
	case []string:
		*a = v
		return nil
	case []byte:
		return a.parseLiteral(string(v))
	case string:
		return a.parseLiteral(v)
	default:
		*a = nil
		return nil
	}
}

// parseLiteral handles the Postgres array text literal form {a,b,c} as a
// fallback for drivers that do not decode TEXT[] into []string directly.
func (a *pqTextArray) parseLiteral(s string) error {
	if len(s) < 2 {
		*a = nil
		return nil
	}
	inner := s[1 : len(s)-1]
	if inner == "" {
		*a = []string{}
		return nil
	}
	out := []string{}
	cur := ""
	for _, r := range inner {
		if r == ',' {
			out = append(out, cur)
			cur = ""
			continue
		}
		cur += string(r)
	}
	out = append(out, cur)
	*a = out
	return nil
}

func pqStringArray(ss []string) any {
	if ss == nil {
		return []string{}
	}
	return ss
}
