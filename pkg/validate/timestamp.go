package validate

import (
	"regexp"
	"strconv"
	"time"
)

var dateOnlyPattern = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)

// TimestampResult is the tolerant outcome of validating a timestamp: a
// value may be valid-with-normalization, valid-with-a-warning (date-only
// input coerced to UTC midnight), or outright invalid.
type TimestampResult struct {
	Valid      bool
	Normalized string
	Error      string
	Warning    string
}

// Timestamp accepts a full ISO-8601 timestamp or a YYYY-MM-DD date-only
// string, validating calendar correctness (April 31 and February 31 are
// rejected, not silently rolled forward) and normalizing to ISO-8601 UTC.
func Timestamp(s string) TimestampResult {
	if s == "" {
		return TimestampResult{Valid: false, Error: "timestamp is empty"}
	}

	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return TimestampResult{Valid: true, Normalized: t.UTC().Format(time.RFC3339)}
	}

	if m := dateOnlyPattern.FindStringSubmatch(s); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		if !isValidCalendarDate(year, month, day) {
			return TimestampResult{Valid: false, Error: "not a calendar-valid date"}
		}
		normalized := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC).Format(time.RFC3339)
		return TimestampResult{
			Valid:      true,
			Normalized: normalized,
			Warning:    "date-only input normalized to UTC midnight",
		}
	}

	return TimestampResult{Valid: false, Error: "not a parseable ISO-8601 timestamp or YYYY-MM-DD date"}
}

func isValidCalendarDate(year, month, day int) bool {
	if month < 1 || month > 12 || day < 1 {
		return false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return t.Year() == year && int(t.Month()) == month && t.Day() == day
}
