package embedding

import "fmt"

// DimensionError reports an embedding vector whose length does not match
// the configured MEMORY_EMBEDDING_DIMENSIONS.
type DimensionError struct {
	Expected int
	Got      int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("embedding: expected %d dimensions, got %d", e.Expected, e.Got)
}
