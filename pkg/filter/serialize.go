package filter

import (
	"fmt"
	"sort"
	"strings"
)

// SerializeStructured renders a caller-supplied structured filter map into
// the DSL's own target syntax (spec §4.6 recall): scalar fields become
// `@metadata.k = v`, array-valued fields become an OR-joined group of
// `CONTAINS` clauses, and every field is joined with AND. It runs ahead of
// Compile rather than inverting it: it never touches SQL, only produces DSL
// text the compiler can parse.
//
// Keys recognized by the compiler's known-column table (topic, importance,
// tags, source, kind, memoryType, ...) are emitted the same way as any
// other metadata field; Compile resolves the column mapping.
func SerializeStructured(filters map[string]any) string {
	if len(filters) == 0 {
		return ""
	}

	keys := make([]string, 0, len(filters))
	for k := range filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var clauses []string
	for _, k := range keys {
		clause := serializeField(k, filters[k])
		if clause != "" {
			clauses = append(clauses, clause)
		}
	}
	return strings.Join(clauses, " AND ")
}

func serializeField(key string, value any) string {
	switch v := value.(type) {
	case []any:
		return serializeArray(key, v)
	case []string:
		items := make([]any, len(v))
		for i, s := range v {
			items[i] = s
		}
		return serializeArray(key, items)
	default:
		return fmt.Sprintf("@metadata.%s = %s", key, dslLiteral(v))
	}
}

func serializeArray(key string, values []any) string {
	if len(values) == 0 {
		return ""
	}
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("@metadata.%s CONTAINS %s", key, dslLiteral(v))
	}
	if len(parts) == 1 {
		return parts[0]
	}
	return "(" + strings.Join(parts, " OR ") + ")"
}

func dslLiteral(v any) string {
	switch val := v.(type) {
	case string:
		return fmt.Sprintf("%q", val)
	case bool:
		if val {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprintf("%v", val)
	}
}

// CombineAnd joins two already-valid DSL expressions with AND, omitting
// either side if empty. Used to merge a structured-filter serialization
// with a caller-supplied filterExpression.
func CombineAnd(exprs ...string) string {
	var parts []string
	for _, e := range exprs {
		if strings.TrimSpace(e) != "" {
			parts = append(parts, e)
		}
	}
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	default:
		return strings.Join(parts, " AND ")
	}
}
