package store

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// Sentinel errors for category membership (spec §7).
var (
	ErrNotFound         = errors.New("memory not found")
	ErrIndexNotFound    = errors.New("index not found")
	ErrEmbedderRequired = errors.New("embedder_required")
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// RepositoryError wraps a database failure with enough context to act on
// without leaking connection strings (spec §4.4's error classification).
type RepositoryError struct {
	Op           string
	PostgresCode string
	Hint         string
	Suggestions  []string
	Err          error
}

func (e *RepositoryError) Error() string {
	return fmt.Sprintf("store: %s failed (pg code %s): %v. %s", e.Op, e.PostgresCode, e.Err, e.Hint)
}

func (e *RepositoryError) Unwrap() error {
	return e.Err
}

// classify turns a raw database/sql or pgx error into a RepositoryError,
// never surfacing the connection string (only structural facts about the
// failure).
func classify(op string, err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return &RepositoryError{
			Op:           op,
			PostgresCode: pgErr.Code,
			Hint:         pgHint(pgErr.Code),
			Suggestions:  pgSuggestions(pgErr.Code),
			Err:          err,
		}
	}

	return &RepositoryError{
		Op:          op,
		PostgresCode: "",
		Hint:        "transport or connection failure; check DATABASE_URL host/port reachability",
		Suggestions: []string{"verify the database is reachable", "check connection pool exhaustion"},
		Err:         err,
	}
}

func pgHint(code string) string {
	switch code {
	case "23505":
		return "unique constraint violated; this usually indicates a concurrent duplicate insert"
	case "23503":
		return "foreign key violated; the referenced index or memory does not exist"
	case "22P02":
		return "invalid input syntax; check the vector dimension matches MEMORY_EMBEDDING_DIMENSIONS"
	case "57014":
		return "statement timed out"
	default:
		return "unclassified database error"
	}
}

func pgSuggestions(code string) []string {
	switch code {
	case "23505":
		return []string{"retry as an update instead of insert", "check for a racing writer"}
	case "23503":
		return []string{"call ensureIndex before upserting", "verify the memory ID exists before referencing it"}
	case "22P02":
		return []string{"confirm the embedding provider's dimension matches MEMORY_EMBEDDING_DIMENSIONS"}
	default:
		return nil
	}
}
