package store

import (
	"context"
	stdsql "database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the pgx driver for database/sql

	"github.com/agenticmem/memoryd/pkg/metrics"
)

//go:embed migrations
var migrationsFS embed.FS

// ClientConfig configures the repository's database connection pool.
type ClientConfig struct {
	DatabaseURL          string
	MaxOpenConns         int
	MaxIdleConns         int
	ConnMaxLifetime      time.Duration
	SlowQueryThreshold   time.Duration
	AccessTrackingEnabled bool
}

// Client owns the connection pool and runs embedded migrations on start,
// the way the teacher's database.Client wraps a *sql.DB beneath a
// generated ORM client — here the *sql.DB is the whole story, since
// queries are written by hand instead of code-generated.
type Client struct {
	db     *stdsql.DB
	cfg    ClientConfig
	logger func(SearchDiagnostics)
}

// NewClient opens the pool, pings it, and applies any pending migrations.
func NewClient(ctx context.Context, cfg ClientConfig) (*Client, error) {
	db, err := stdsql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: ping database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: run migrations: %w", err)
	}

	return &Client{db: db, cfg: cfg}, nil
}

// NewClientFromDB wraps an already-open *sql.DB, useful for tests against
// a testcontainers-managed Postgres instance.
func NewClientFromDB(db *stdsql.DB, cfg ClientConfig) *Client {
	return &Client{db: db, cfg: cfg}
}

// Close releases the connection pool.
func (c *Client) Close() error {
	return c.db.Close()
}

// OnSearchDiagnostics registers the optional listener searchMemories
// reports one SearchDiagnostics row to per call (spec §4.4).
func (c *Client) OnSearchDiagnostics(fn func(SearchDiagnostics)) {
	c.logger = fn
}

func runMigrations(db *stdsql.DB) error {
	has, err := hasEmbeddedMigrations()
	if err != nil {
		return fmt.Errorf("check embedded migrations: %w", err)
	}
	if !has {
		return fmt.Errorf("no embedded migration files found; binary built incorrectly")
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create postgres migrate driver: %w", err)
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "memoryd", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}

	// Only close the source driver; closing the migrate instance would
	// also close the shared *sql.DB via the postgres driver.
	if err := sourceDriver.Close(); err != nil {
		return fmt.Errorf("close migration source: %w", err)
	}

	return nil
}

func hasEmbeddedMigrations() (bool, error) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		return false, err
	}
	for _, e := range entries {
		if !e.IsDir() && len(e.Name()) > 7 && e.Name()[len(e.Name())-7:] == ".up.sql" {
			return true, nil
		}
	}
	return false, nil
}

// timed wraps a query with the slow-query logging shim (spec §4.4's
// performance contract).
func (c *Client) timed(ctx context.Context, op string, fn func() error) error {
	start := time.Now()
	err := fn()
	elapsed := time.Since(start)

	threshold := c.cfg.SlowQueryThreshold
	if threshold <= 0 {
		threshold = 200 * time.Millisecond
	}
	if elapsed > threshold {
		slog.Warn("slow query", "op", op, "duration_ms", elapsed.Milliseconds())
		metrics.SlowQueries.WithLabelValues(op).Inc()
	}

	if err != nil {
		return classify(op, err)
	}
	return nil
}
