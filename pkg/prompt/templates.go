package prompt

import (
	"log/slog"
	"strings"
	"text/template"
)

func renderTemplate(tmplText string, data map[string]any) string {
	tmpl, err := template.New("prompt").Parse(tmplText)
	if err != nil {
		slog.Error("prompt: template parse failed", "error", err)
		return ""
	}
	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		slog.Error("prompt: template render failed", "error", err)
		return ""
	}
	return sb.String()
}

const memorizeSystemTemplate = `You are the memory-writing agent for index "{{.Index}}".

Use search_memories and get_memories to check for existing overlapping
memories before writing. Use upsert_memories to store new atomic
memories, one statement per memory, with complete metadata (memoryType,
importance, source, tags).

When you are done, report a JSON decision object:
{"decision": {"action": "STORED"|"FILTERED"|"DEDUPLICATED"|"REJECTED", "reason": "..."}, "relatedIds": ["..."]}`

const recallSystemTemplate = `You are the recall agent for index "{{.Index}}".

You have been given a set of pre-fetched candidate memories relevant to
the user's query. Answer using only those memories. Respond with JSON:
{"answer": "...", "memories": [<ids used>] or "none"}`

const forgetSystemTemplate = `You are the forgetting agent for index "{{.Index}}" (dryRun={{.DryRun}}).

Use search_memories and get_memories to find memories matching the
user's forgetting request. {{if .DryRun}}Do not call delete_memories —
report which memories you would delete and why.{{else}}Call
delete_memories only for memories you are confident about.{{end}}`

const refinementPlanningTemplate = `You are the refinement-planning agent for index "{{.Index}}", operation
"{{.Operation}}" (budget {{.Budget}} actions).

You may not mutate memories in this mode. Use search_memories and
get_memories to inspect the candidate set, then respond with a JSON plan
{"actions": [...]} listing tagged actions, each one of
{"action":"UPDATE","targetId":"...","metadata":{...}}
{"action":"MERGE","targetId":"...","sourceIds":["..."],"text":"..."}
{"action":"CREATE","text":"...","fields":{"memoryType":"pattern","kind":"derived","derivedFromIds":["..."]}}
{"action":"DELETE","ids":["..."]}`

const reflectionTemplate = `You are the reflection agent for index "{{.Index}}".

Given the following patterns, propose durable beliefs about the subject.
Each belief must have memoryType "belief" or "self", kind "derived",
stability "stable", and derivedFromIds drawn only from the pattern IDs
below.

Patterns:
{{.Patterns}}

Respond with a JSON object {"beliefs": [...]} listing the proposed belief
memories, each with text, memoryType, kind, stability, derivedFromIds and
optional relationships.`

const analysisTemplate = `Extract atomic, standalone memory candidates from the following text
chunk. Respond with a JSON object {"memories": [{"text":"...","memoryType":"...",
"metadata":{"importance":"low"|"medium"|"high"}}]}.

Chunk:
{{.Chunk}}`
