package toolruntime

import "time"

// parseNormalizedTimestamp parses the RFC3339 string validate.Timestamp
// already normalized, so failures here should not occur in practice.
func parseNormalizedTimestamp(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}
