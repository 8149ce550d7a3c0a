// Package database opens the link store's SQL database and applies schema
// migrations for each supported engine.
package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationsFS embed.FS

// Dialect identifies the database engine behind a connection.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectLibSQL   Dialect = "libsql"
	DialectPostgres Dialect = "postgres"
)

// Postgres reports whether the dialect uses PostgreSQL syntax.
// SQLite and libSQL share the SQLite syntax.
func (d Dialect) Postgres() bool {
	return d == DialectPostgres
}

// DetectDialect picks the engine from the database URL scheme. Anything that
// is not a postgres or libSQL URL is treated as a local SQLite path.
func DetectDialect(databaseURL string) Dialect {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		return DialectPostgres
	case strings.HasPrefix(databaseURL, "libsql://"), strings.HasPrefix(databaseURL, "wss://"):
		return DialectLibSQL
	default:
		return DialectSQLite
	}
}

// OpenDB opens a connection pool for databaseURL, applies per-engine settings
// and verifies connectivity.
func OpenDB(ctx context.Context, databaseURL string) (*sql.DB, Dialect, error) {
	dialect := DetectDialect(databaseURL)

	db, err := sql.Open(string(dialect), databaseURL)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open database: %w", err)
	}

	switch dialect {
	case DialectSQLite:
		err = configureSQLite(ctx, db)
	case DialectPostgres:
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(30 * time.Minute)
	}
	if err == nil {
		err = db.PingContext(ctx)
	}
	if err != nil {
		db.Close()
		return nil, "", fmt.Errorf("failed to connect to %s database: %w", dialect, err)
	}

	return db, dialect, nil
}

// configureSQLite pins the pool to a single connection so that in-memory
// databases survive and writers never contend.
func configureSQLite(ctx context.Context, db *sql.DB) error {
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}
	return nil
}

// RunMigrations applies all pending migrations for the dialect.
func RunMigrations(db *sql.DB, dialect Dialect) error {
	dir := "migrations/sqlite"
	if dialect.Postgres() {
		dir = "migrations/postgres"
	}

	sourceDriver, err := iofs.New(migrationsFS, dir)
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	var dbDriver migratedb.Driver
	if dialect.Postgres() {
		dbDriver, err = postgres.WithInstance(db, &postgres.Config{})
	} else {
		dbDriver, err = sqlite.WithInstance(db, &sqlite.Config{})
	}
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, string(dialect), dbDriver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}
