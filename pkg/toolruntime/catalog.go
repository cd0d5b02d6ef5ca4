package toolruntime

import "github.com/agenticmem/memoryd/pkg/llm"

const (
	ToolSearchMemories = "search_memories"
	ToolGetMemories    = "get_memories"
	ToolUpsertMemories = "upsert_memories"
	ToolDeleteMemories = "delete_memories"
	ToolReadFile       = "read_file"
	ToolAnalyzeText    = "analyze_text"
)

// allowedByMode is the spec §4.5 catalog-by-mode table: tools not present
// for a mode are omitted from ListTools entirely and also rejected by
// Dispatch as a defense in depth.
var allowedByMode = map[OperationMode]map[string]bool{
	ModeNormal: {
		ToolSearchMemories: true,
		ToolGetMemories:    true,
		ToolUpsertMemories: true,
		ToolDeleteMemories: true,
		ToolReadFile:       true,
		ToolAnalyzeText:    true,
	},
	ModeForgetDryRun: {
		ToolSearchMemories: true,
		ToolGetMemories:    true,
		ToolReadFile:       true,
		ToolAnalyzeText:    true,
	},
	ModeRefinementPlanning: {
		ToolSearchMemories: true,
		ToolGetMemories:    true,
		ToolReadFile:       true,
		ToolAnalyzeText:    true,
	},
}

var toolSchemas = map[string]llm.ToolDefinition{
	ToolSearchMemories: {
		Name:        ToolSearchMemories,
		Description: "Search memories in the bound index by semantic similarity, with an optional filter expression.",
		ParametersSchema: `{"type":"object","properties":{
			"query":{"type":"string"},
			"filterExpression":{"type":"string"},
			"limit":{"type":"integer"}
		},"required":["query"]}`,
	},
	ToolGetMemories: {
		Name:        ToolGetMemories,
		Description: "Fetch memories in the bound index by exact ID.",
		ParametersSchema: `{"type":"object","properties":{
			"ids":{"type":"array","items":{"type":"string"}}
		},"required":["ids"]}`,
	},
	ToolUpsertMemories: {
		Name:        ToolUpsertMemories,
		Description: "Create or update up to 50 memories in the bound index.",
		ParametersSchema: `{"type":"object","properties":{
			"memories":{"type":"array","items":{"type":"object"}}
		},"required":["memories"]}`,
	},
	ToolDeleteMemories: {
		Name:        ToolDeleteMemories,
		Description: "Permanently delete memories by ID (system memories are never deleted).",
		ParametersSchema: `{"type":"object","properties":{
			"ids":{"type":"array","items":{"type":"string"}}
		},"required":["ids"]}`,
	},
	ToolReadFile: {
		Name:        ToolReadFile,
		Description: "Read a file relative to the project root.",
		ParametersSchema: `{"type":"object","properties":{
			"path":{"type":"string"}
		},"required":["path"]}`,
	},
	ToolAnalyzeText: {
		Name:        ToolAnalyzeText,
		Description: "Analyze a chunk of text with a cheaper model, extracting candidate memories.",
		ParametersSchema: `{"type":"object","properties":{
			"text":{"type":"string"}
		},"required":["text"]}`,
	},
}

// ListTools returns the tool definitions visible for a given mode, in a
// stable order.
func ListTools(mode OperationMode) []llm.ToolDefinition {
	order := []string{ToolSearchMemories, ToolGetMemories, ToolUpsertMemories, ToolDeleteMemories, ToolReadFile, ToolAnalyzeText}
	allowed := allowedByMode[mode]
	out := make([]llm.ToolDefinition, 0, len(order))
	for _, name := range order {
		if allowed[name] {
			out = append(out, toolSchemas[name])
		}
	}
	return out
}
