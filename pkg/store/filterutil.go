package store

import (
	"fmt"
	"regexp"

	"github.com/agenticmem/memoryd/pkg/filter"
)

var placeholderPattern = regexp.MustCompile(`\$(\d+)`)

// compileFilter compiles a DSL expression and renumbers its placeholders
// to start at startAt, so it can be appended after the repository's own
// positional parameters in a larger WHERE clause.
func compileFilter(expr string, startAt int) (sql string, params []any, err error) {
	if expr == "" {
		return "", nil, nil
	}
	res, err := filter.Compile(expr)
	if err != nil {
		return "", nil, err
	}
	renumbered := placeholderPattern.ReplaceAllStringFunc(res.SQL, func(m string) string {
		var n int
		fmt.Sscanf(m, "$%d", &n)
		return fmt.Sprintf("$%d", n+startAt-1)
	})
	return renumbered, res.Params, nil
}
