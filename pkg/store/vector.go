package store

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// encodeVector renders a float32 slice as pgvector's text input format,
// e.g. "[0.1,0.2,0.3]". No pgvector client library is wired in (see
// DESIGN.md); the vector column is written and read through this literal
// text format with an explicit ::vector cast, the same raw-SQL-fragment
// idiom the teacher uses for full-text search predicates.
func encodeVector(v []float32) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatFloat(float64(f), 'g', -1, 32))
	}
	sb.WriteByte(']')
	return sb.String()
}

// decodeVector parses pgvector's text output format back into a float32 slice.
func decodeVector(s string) ([]float32, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]float32, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, fmt.Errorf("decode vector element %d: %w", i, err)
		}
		out[i] = float32(f)
	}
	return out, nil
}

// contentHash computes the supplemented dedup-detection hash (SPEC_FULL §C.1):
// SHA-256 of the normalized (trimmed, lower-cased) memory text.
func contentHash(text string) string {
	normalized := strings.ToLower(strings.TrimSpace(text))
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}
