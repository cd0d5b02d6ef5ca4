package toolruntime

import "github.com/agenticmem/memoryd/pkg/store"

// OperationMode gates which tools are available and how search results are
// filtered, per spec §4.5's tool catalog table.
type OperationMode string

const (
	ModeNormal             OperationMode = "normal"
	ModeForgetDryRun       OperationMode = "forget-dryrun"
	ModeRefinementPlanning OperationMode = "refinement-planning"
)

// ForgetContext carries the forget operation's explicit IDs and dry-run
// flag, consulted by search_memories' confidence-tier filtering.
type ForgetContext struct {
	ExplicitMemoryIDs []string
	DryRun            bool
	HasFilters        bool
}

// OperationLogEntry records one tool invocation for the final response and
// for memorize reconciliation.
type OperationLogEntry struct {
	Tool            string
	Arguments       string
	ResultSummary   string
	MemoriesCount   int
	StoredIDs       []string
	SearchResultIDs []string
	ErrorMessage    string
}

// RequestContext is the per-request, single-goroutine-owned state shared
// by every tool dispatched within one operation's tool loop. There is no
// cross-request mutable state; the only shared state lives in the
// repository, which is tenant-scoped.
type RequestContext struct {
	Project               string
	Index                 string
	Mode                  OperationMode
	StoredMemoryIDs       []string
	SearchIterationCount  int
	MaxSearchIterations   int
	TrackedMemoryIDs      map[string]struct{}
	SearchDiagnostics     []store.SearchDiagnostics
	OperationLog          []OperationLogEntry
	ForgetContext         *ForgetContext
	ForceValidationBypass bool
	ValidationMessages    []string
}

// NewRequestContext builds an empty context for one operation invocation.
func NewRequestContext(project, index string, mode OperationMode, maxSearchIterations int) *RequestContext {
	return &RequestContext{
		Project:             project,
		Index:               index,
		Mode:                mode,
		TrackedMemoryIDs:    map[string]struct{}{},
		MaxSearchIterations: maxSearchIterations,
	}
}

func (rc *RequestContext) trackMemory(id string) {
	rc.TrackedMemoryIDs[id] = struct{}{}
}

func (rc *RequestContext) log(entry OperationLogEntry) {
	rc.OperationLog = append(rc.OperationLog, entry)
}
