package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompile_Scenarios(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		sql    string
		params []any
	}{
		{
			name:   "S1 id or and",
			input:  `@id = "a" OR @id = "b" AND @metadata.kind = "raw"`,
			sql:    `(id = $1 OR (id = $2 AND kind = $3))`,
			params: []any{"a", "b", "raw"},
		},
		{
			name:   "S2 importance mapping",
			input:  `@metadata.importance = "high"`,
			sql:    `importance = $1`,
			params: []any{2},
		},
		{
			name:   "S3 jsonb contains",
			input:  `@metadata.customField CONTAINS "foo"`,
			sql:    `metadata->'customField' @> $1::jsonb`,
			params: []any{`["foo"]`},
		},
		{
			name:   "tags contains",
			input:  `@metadata.tags CONTAINS "urgent"`,
			sql:    `tags @> ARRAY[$1]`,
			params: []any{"urgent"},
		},
		{
			name:   "explicit parens",
			input:  `(@metadata.topic = "go" OR @metadata.topic = "rust") AND @metadata.kind = "raw"`,
			sql:    `((topic = $1 OR topic = $2) AND kind = $3)`,
			params: []any{"go", "rust", "raw"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res, err := Compile(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.sql, res.SQL)
			assert.Equal(t, tc.params, res.Params)
		})
	}
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		stage Stage
	}{
		{"id contains", `@id CONTAINS "x"`, StageTranslator},
		{"bare metadata", `@metadata = "x"`, StageParser},
		{"tags equality", `@metadata.tags = "x"`, StageTranslator},
		{"unknown importance", `@metadata.importance = "urgent"`, StageTranslator},
		{"bad json key", `@metadata.bad-key$ = "x"`, StageTranslator},
		{"unterminated string", `@id = "x`, StageTokenizer},
		{"missing operator", `@id "x"`, StageParser},
		{"trailing input", `@id = "x" )`, StageParser},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Compile(tc.input)
			require.Error(t, err)
			var fe *Error
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, tc.stage, fe.Stage)
		})
	}
}

func TestCompile_NeverInterpolatesLiterals(t *testing.T) {
	res, err := Compile(`@metadata.topic = "'; DROP TABLE memories; --"`)
	require.NoError(t, err)
	assert.NotContains(t, res.SQL, "DROP TABLE")
	assert.Contains(t, res.Params, `'; DROP TABLE memories; --`)
}
