package filter

import (
	"fmt"
	"regexp"
	"strings"
)

// Result is the compiled output: a SQL boolean expression with
// positional placeholders starting at $1, and the parameter values in
// the order the placeholders appear.
type Result struct {
	SQL    string
	Params []any
}

var jsonKeyPattern = regexp.MustCompile(`^[A-Za-z0-9_][A-Za-z0-9_-]*[A-Za-z0-9_]$|^[A-Za-z0-9_]$`)

var knownMetadataColumns = map[string]string{
	"topic":        "topic",
	"importance":   "importance",
	"tags":         "tags",
	"source":       "source",
	"sourcePath":   "source_path",
	"source_path":  "source_path",
	"kind":         "kind",
	"memoryType":   "memory_type",
	"memory_type":  "memory_type",
}

// translator walks the AST and emits SQL, numbering placeholders
// starting at $1 (the caller offsets them when composing a larger query).
type translator struct {
	input  string
	params []any
}

// Compile parses and translates a filter DSL string into a SQL
// fragment and its parameters.
func Compile(input string) (*Result, error) {
	toks, err := tokenize(input)
	if err != nil {
		return nil, err
	}
	ast, err := parse(input, toks)
	if err != nil {
		return nil, err
	}
	t := &translator{input: input}
	sql, err := t.translate(ast)
	if err != nil {
		return nil, err
	}
	return &Result{SQL: sql, Params: t.params}, nil
}

func (t *translator) translate(n *node) (string, error) {
	switch {
	case n.orTerms != nil:
		parts := make([]string, len(n.orTerms))
		for i, term := range n.orTerms {
			s, err := t.translate(term)
			if err != nil {
				return "", err
			}
			parts[i] = s
		}
		return "(" + strings.Join(parts, " OR ") + ")", nil

	case n.andTerms != nil:
		parts := make([]string, len(n.andTerms))
		for i, term := range n.andTerms {
			s, err := t.translate(term)
			if err != nil {
				return "", err
			}
			parts[i] = s
		}
		return "(" + strings.Join(parts, " AND ") + ")", nil

	default:
		return t.translateComparison(n)
	}
}

func (t *translator) bind(v any) string {
	t.params = append(t.params, v)
	return fmt.Sprintf("$%d", len(t.params))
}

func (t *translator) translateComparison(n *node) (string, error) {
	isContains := n.op == "CONTAINS"

	if n.field.isID {
		if isContains {
			return "", newError(StageTranslator, t.input, n.pos, "CONTAINS is not allowed on @id")
		}
		if n.literal.kind != litString {
			return "", newError(StageTranslator, t.input, n.literal.pos, "@id must be compared to a string")
		}
		return fmt.Sprintf("id = %s", t.bind(n.literal.strVal)), nil
	}

	key := n.field.subfield
	if col, ok := knownMetadataColumns[key]; ok {
		return t.translateKnownColumn(n, col, isContains)
	}

	return t.translateJSONBColumn(n, key, isContains)
}

func (t *translator) translateKnownColumn(n *node, col string, isContains bool) (string, error) {
	if col == "tags" {
		if !isContains {
			return "", newError(StageTranslator, t.input, n.pos, "tags only supports CONTAINS, not equality")
		}
		if n.literal.kind != litString {
			return "", newError(StageTranslator, t.input, n.literal.pos, "tags CONTAINS requires a string literal")
		}
		return fmt.Sprintf("%s @> ARRAY[%s]", col, t.bind(n.literal.strVal)), nil
	}

	if isContains {
		return "", newError(StageTranslator, t.input, n.pos, fmt.Sprintf("CONTAINS is not supported on %s", col))
	}

	if col == "importance" {
		val, err := importanceLiteralToInt(t.input, n.literal)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("importance = %s", t.bind(val)), nil
	}

	v, err := scalarParam(n.literal)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s = %s", col, t.bind(v)), nil
}

func importanceLiteralToInt(input string, lit literal) (int, error) {
	if lit.kind == litNumber {
		return int(lit.numVal), nil
	}
	if lit.kind != litString {
		return 0, newError(StageTranslator, input, lit.pos, "importance must be a string (low/medium/high) or number")
	}
	switch lit.strVal {
	case "low":
		return 0, nil
	case "medium":
		return 1, nil
	case "high":
		return 2, nil
	default:
		return 0, newError(StageTranslator, input, lit.pos, fmt.Sprintf("unknown importance value %q, expected low/medium/high", lit.strVal))
	}
}

func (t *translator) translateJSONBColumn(n *node, key string, isContains bool) (string, error) {
	if key == "" {
		return "", newError(StageTranslator, t.input, n.field.pos, "@metadata requires a subfield")
	}
	if !jsonKeyPattern.MatchString(key) {
		return "", newError(StageTranslator, t.input, n.field.pos, fmt.Sprintf("invalid metadata key %q", key))
	}

	if isContains {
		if n.literal.kind != litString {
			return "", newError(StageTranslator, t.input, n.literal.pos, "CONTAINS requires a string literal")
		}
		jsonArray := fmt.Sprintf("[%q]", n.literal.strVal)
		return fmt.Sprintf("metadata->'%s' @> %s::jsonb", key, t.bind(jsonArray)), nil
	}

	v, err := scalarParam(n.literal)
	if err != nil {
		return "", err
	}
	text := fmt.Sprintf("%v", v)
	if n.literal.kind == litBool {
		if n.literal.boolVal {
			text = "true"
		} else {
			text = "false"
		}
	}
	return fmt.Sprintf("metadata->>'%s' = %s", key, t.bind(text)), nil
}

func scalarParam(lit literal) (any, error) {
	switch lit.kind {
	case litString:
		return lit.strVal, nil
	case litNumber:
		return lit.numVal, nil
	case litBool:
		return lit.boolVal, nil
	default:
		return nil, fmt.Errorf("unknown literal kind")
	}
}
