package toolruntime

import "fmt"

// PolicyError is returned as a tool-result error (never raised) when a
// tool call attempts a mutation forbidden by the current OperationMode.
// Protected system-memory IDs in a delete_memories call are skipped and
// counted instead, without a PolicyError.
type PolicyError struct {
	Tool   string
	Reason string
}

func (e *PolicyError) Error() string {
	return fmt.Sprintf("toolruntime: %s: %s", e.Tool, e.Reason)
}

// SearchIterationLimitError is the sentinel returned by search_memories
// once maxSearchIterations has been reached; the loop is expected to
// produce a final answer from what has already been found.
type SearchIterationLimitError struct {
	Limit int
}

func (e *SearchIterationLimitError) Error() string {
	return fmt.Sprintf("toolruntime: search iteration limit (%d) reached", e.Limit)
}

// UnknownToolError is an internal-invariant violation (spec §7 kind 6):
// the LLM requested a tool name outside the fixed catalog.
type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("toolruntime: unknown tool %q", e.Name)
}
