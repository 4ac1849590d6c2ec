// Package testutil provides testing utilities for PharmPOS backend
// services: a testcontainers PostgreSQL wrapper, sqlmock helpers, mock
// factories, and catalog fixtures.
package testutil

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// PostgresContainer wraps a testcontainers PostgreSQL instance
type PostgresContainer struct {
	*postgres.PostgresContainer
	DSN string
}

// PostgresContainerConfig configures the test PostgreSQL container
type PostgresContainerConfig struct {
	Database string
	Username string
	Password string
	Image    string // Optional: defaults to postgres:15-alpine
}

// DefaultPostgresConfig returns sensible defaults for test containers
func DefaultPostgresConfig() PostgresContainerConfig {
	return PostgresContainerConfig{
		Database: "pharmpos_test",
		Username: "test",
		Password: "test",
		Image:    "postgres:15-alpine",
	}
}

// NewPostgresContainer creates a new PostgreSQL test container.
//
// Usage:
//
//	func TestMain(m *testing.M) {
//	    ctx := context.Background()
//	    container, err := testutil.NewPostgresContainer(ctx, testutil.DefaultPostgresConfig())
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    defer container.Terminate(ctx)
//
//	    // Run tests
//	    code := m.Run()
//	    os.Exit(code)
//	}
func NewPostgresContainer(ctx context.Context, cfg PostgresContainerConfig) (*PostgresContainer, error) {
	if cfg.Image == "" {
		cfg.Image = "postgres:15-alpine"
	}
	if cfg.Database == "" {
		cfg.Database = "pharmpos_test"
	}
	if cfg.Username == "" {
		cfg.Username = "test"
	}
	if cfg.Password == "" {
		cfg.Password = "test"
	}

	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage(cfg.Image),
		postgres.WithDatabase(cfg.Database),
		postgres.WithUsername(cfg.Username),
		postgres.WithPassword(cfg.Password),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	return &PostgresContainer{
		PostgresContainer: container,
		DSN:               dsn,
	}, nil
}

// Connect returns a sqlx.DB connection to the container
func (c *PostgresContainer) Connect(ctx context.Context) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", c.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to test database: %w", err)
	}
	return db, nil
}

// Terminate stops and removes the container
func (c *PostgresContainer) Terminate(ctx context.Context) error {
	return c.PostgresContainer.Terminate(ctx)
}

// CreateCatalogSchema creates the retail and wholesale item tables the
// scan service resolves against. Wholesale mirrors retail column for
// column; the resolver treats them as interchangeable catalogs.
func (c *PostgresContainer) CreateCatalogSchema(ctx context.Context, db *sqlx.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS items (
			id BIGSERIAL PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			brand VARCHAR(255),
			unit VARCHAR(50),
			price NUMERIC(12,2) NOT NULL DEFAULT 0,
			cost NUMERIC(12,2) NOT NULL DEFAULT 0,
			stock INTEGER NOT NULL DEFAULT 0,
			barcode VARCHAR(255),
			barcode_type VARCHAR(50),
			gtin VARCHAR(50),
			batch_number VARCHAR(100),
			serial_number VARCHAR(100),
			exp_date VARCHAR(10),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_items_barcode ON items(barcode);
		CREATE INDEX IF NOT EXISTS idx_items_gtin ON items(gtin);
		CREATE INDEX IF NOT EXISTS idx_items_batch ON items(batch_number);
		CREATE INDEX IF NOT EXISTS idx_items_serial ON items(serial_number);

		CREATE TABLE IF NOT EXISTS wholesale_items (
			id BIGSERIAL PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			brand VARCHAR(255),
			unit VARCHAR(50),
			price NUMERIC(12,2) NOT NULL DEFAULT 0,
			cost NUMERIC(12,2) NOT NULL DEFAULT 0,
			stock INTEGER NOT NULL DEFAULT 0,
			barcode VARCHAR(255),
			barcode_type VARCHAR(50),
			gtin VARCHAR(50),
			batch_number VARCHAR(100),
			serial_number VARCHAR(100),
			exp_date VARCHAR(10),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_wholesale_items_barcode ON wholesale_items(barcode);
		CREATE INDEX IF NOT EXISTS idx_wholesale_items_gtin ON wholesale_items(gtin);
	`

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create catalog schema: %w", err)
	}
	return nil
}

// TruncateCatalog clears both item tables between tests.
func (c *PostgresContainer) TruncateCatalog(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, `TRUNCATE items, wholesale_items RESTART IDENTITY`); err != nil {
		return fmt.Errorf("failed to truncate catalog tables: %w", err)
	}
	return nil
}
