package ops

import "github.com/agenticmem/memoryd/pkg/store"

// MemorizeRequest is the memorize operation's input (spec §6).
type MemorizeRequest struct {
	Project  string
	Index    string
	Input    string
	Files    []string
	Metadata map[string]any
	Force    bool
}

// Decision is the reconciled memorize outcome (spec §4.6, §9 testable
// property 7): STORED, FILTERED, DEDUPLICATED, or REJECTED.
type Decision struct {
	Action     string
	RelatedIDs []string
}

// MemorizeResult is the memorize operation's output (spec §6).
type MemorizeResult struct {
	Status      string
	Index       string
	StoredCount int
	MemoryIDs   []string
	Notes       string
	Decision    *Decision
}

// RecallRequest is the recall operation's input (spec §6).
type RecallRequest struct {
	Project          string
	Index            string
	Query            string
	Limit            int
	Filters          map[string]any
	FilterExpression string
	ResponseMode     string // "answer" | "memories" | "both"
}

// RecallResult is the recall operation's output (spec §6).
type RecallResult struct {
	Status             string
	Index              string
	Answer             string
	Memories           []store.SearchResult
	SupportingMemories []store.SearchResult
	SearchStatus       string
	SearchDiagnostics  []store.SearchDiagnostics
}

// ForgetRequest is the forget operation's input (spec §6).
type ForgetRequest struct {
	Project           string
	Index             string
	Input             string
	Filters           map[string]any
	FilterExpression  string
	DryRun            bool
	ExplicitMemoryIDs []string
}

// ForgetResult is the forget operation's output.
type ForgetResult struct {
	Status     string
	Index      string
	DryRun     bool
	DeletedIDs []string
	PlannedIDs []string
	Notes      string
}

// RefineRequest is the refine_memories operation's input (spec §6).
type RefineRequest struct {
	Project   string
	Index     string
	Operation string // consolidation | decay | cleanup | reflection
	Scope     map[string]any
	Budget    int
	DryRun    bool
}

// RefineResult is the refine_memories operation's output.
type RefineResult struct {
	Status              string
	Index               string
	Operation           string
	AppliedActionsCount int
	SkippedActionsCount int
	NewMemoryIDs        []string
	Errors              []string
}
