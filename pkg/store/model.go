// Package store implements the repository (spec §4.4): persistence,
// vector search, the relationship graph, access-stat tracking, and
// introspection reports, backed by Postgres + pgvector.
package store

import "time"

// Content is the memory's primary text payload (spec §3).
type Content struct {
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Emotion mirrors spec §3's optional emotion object.
type Emotion struct {
	Label     string  `json:"label,omitempty"`
	Intensity float64 `json:"intensity,omitempty"`
}

// Dynamics holds the denormalized lifecycle columns (invariant 1: never
// read from the metadata JSON blob).
type Dynamics struct {
	InitialPriority float64    `json:"initialPriority"`
	CurrentPriority float64    `json:"currentPriority"`
	CreatedAt       time.Time  `json:"createdAt"`
	LastAccessedAt  *time.Time `json:"lastAccessedAt,omitempty"`
	AccessCount     int64      `json:"accessCount"`
	MaxAccessCount  int64      `json:"maxAccessCount"`
	Stability       string     `json:"stability"`
	SleepCycles     int64      `json:"sleepCycles"`
}

// Memory is the primary entity (spec §3).
type Memory struct {
	ID        string
	IndexID   string
	Project   string
	Content   Content
	Embedding []float32

	MemoryType string
	Kind       string
	Importance int // 0/1/2, surfaced as low/medium/high by ImportanceString
	Tags       []string
	Topic      string
	Source     string
	SourcePath string
	Channel    string
	Emotion    *Emotion

	Dynamics Dynamics

	DerivedFromIDs  []string
	SupersededByID  string
	ContentHash     string // supplemented: SHA-256 of normalized text
	Metadata        map[string]any
	Relationships   []Relationship
	UpdatedAt       time.Time
}

// ImportanceString surfaces the persisted 0/1/2 importance as a string,
// per invariant 4.
func (m Memory) ImportanceString() string {
	switch m.Importance {
	case 0:
		return "low"
	case 2:
		return "high"
	default:
		return "medium"
	}
}

// ImportanceFromString maps the spec's three importance labels to their
// persisted integer form; unknown strings default to medium (1).
func ImportanceFromString(s string) int {
	switch s {
	case "low":
		return 0
	case "high":
		return 2
	default:
		return 1
	}
}

// Relationship is a directed, typed edge between two memories (spec §3).
type Relationship struct {
	SourceID string
	TargetID string
	Type     string
	Weight   *float64
	Metadata map[string]any
}

// Index is a named namespace within a tenant project (spec §3).
type Index struct {
	ID          string
	Project     string
	Name        string
	Description string
	CreatedAt   time.Time
}

// UpsertItem is one caller-supplied memory to upsert. ID is empty for a
// new memory.
type UpsertItem struct {
	ID         string
	Text       string
	Timestamp  *time.Time
	MemoryType string
	Metadata   map[string]any
}

// SearchOptions tunes searchMemories (spec §4.4).
type SearchOptions struct {
	FilterExpression string
	Limit            int
	MinScore         float64
}

// SearchResult is one scored hit from searchMemories.
type SearchResult struct {
	Memory Memory
	Score  float64
}

// SearchDiagnostics is emitted once per searchMemories call to an
// optional listener (spec §4.4).
type SearchDiagnostics struct {
	Index          string
	Query          string
	FilterApplied  string
	ResultCount    int
	DurationMillis int64
	DuplicateHash  string // supplemented: set when the top hit shares a content hash with the query text
}

// RelatedMemory is one node returned by getRelatedMemories, annotated
// with its graph depth and the edge that reached it.
type RelatedMemory struct {
	Memory         Memory
	Depth          int
	RelationshipType string
}

// GraphDirection controls getRelatedMemories traversal direction.
type GraphDirection string

const (
	DirectionForward  GraphDirection = "forward"
	DirectionBackward GraphDirection = "backward"
	DirectionBoth     GraphDirection = "both"
)

// GraphOptions tunes getRelatedMemories (spec §4.4).
type GraphOptions struct {
	MaxDepth          int
	Direction         GraphDirection
	RelationshipTypes []string
	Limit             int
}

// DatabaseInfo is the summary returned by getDatabaseInfo.
type DatabaseInfo struct {
	Indexes []IndexCount
}

// IndexCount pairs an index with its memory count (no embeddings).
type IndexCount struct {
	Index Index
	Count int64
}

// TypeDistribution is one bucket of the introspection type-distribution report.
type TypeDistribution struct {
	MemoryType string
	Count      int64
}

// EmotionBucket is one bucket of the introspection emotion map.
type EmotionBucket struct {
	Label string
	Count int64
}

// PriorityHealth buckets memories by currentPriority (spec §4.4 thresholds
// 0.7 / 0.3) plus the decaying set.
type PriorityHealth struct {
	High     int64 // currentPriority >= 0.7
	Medium   int64 // 0.3 <= currentPriority < 0.7
	Low      int64 // currentPriority < 0.3
	Decaying []DecayingMemory
}

// DecayingMemory is one entry of the decaying set: currentPriority < 0.2
// and no access for >= 60 days. The Recency field is the supplemented
// decay-bucket diagnostic (SPEC_FULL §C.2).
type DecayingMemory struct {
	Memory  Memory
	Recency float64
}
