package db

import (
	"context"
	"embed"
	"fmt"
	"io/fs"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver for database/sql
	"github.com/pressly/goose/v3"
	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite" // pure Go SQLite driver for local runs and tests
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Options tunes the connection pool.
type Options struct {
	MaxOpenConns int
	MaxIdleConns int
}

// Connect opens and pings a connection pool for driver ("postgres" or "sqlite").
func Connect(ctx context.Context, driver, dbURL string, opts Options) (*sqlx.DB, error) {
	switch driver {
	case DriverPostgres, DriverSQLite:
	default:
		return nil, fmt.Errorf("db: unsupported driver %q", driver)
	}

	conn, err := sqlx.Open(driver, dbURL)
	if err != nil {
		log.Errorf("Connect: failed to open database: %v", err)
		return nil, err
	}

	if err = conn.PingContext(ctx); err != nil {
		log.Errorf("Connect: failed to ping database: %v", err)
		conn.Close()
		return nil, err
	}

	if driver == DriverSQLite {
		// SQLite allows one writer; a single connection avoids SQLITE_BUSY.
		conn.SetMaxOpenConns(1)
	} else {
		if opts.MaxOpenConns > 0 {
			conn.SetMaxOpenConns(opts.MaxOpenConns)
		}
		if opts.MaxIdleConns > 0 {
			conn.SetMaxIdleConns(opts.MaxIdleConns)
		}
	}

	log.Infof("Connect: %s connection pool initialized.", driver)
	return conn, nil
}

// Migrate applies the embedded schema migrations.
func Migrate(ctx context.Context, conn *sqlx.DB) error {
	dialect := goose.DialectPostgres
	if conn.DriverName() == DriverSQLite {
		dialect = goose.DialectSQLite3
	}

	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("db: migrations fs: %w", err)
	}

	provider, err := goose.NewProvider(dialect, conn.DB, sub)
	if err != nil {
		return fmt.Errorf("db: goose new provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("db: goose up: %w", err)
	}
	for _, r := range results {
		log.Infof("Migrate: applied %s in %s", r.Source.Path, r.Duration)
	}
	return nil
}

// Builder returns a squirrel statement builder using the driver's placeholders.
func Builder(conn *sqlx.DB) squirrel.StatementBuilderType {
	if conn.DriverName() == DriverPostgres {
		return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	}
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question)
}

// Close closes the pool and logs the outcome.
func Close(conn *sqlx.DB) {
	if conn == nil {
		return
	}
	if err := conn.Close(); err != nil {
		log.Errorf("Close: error closing database connection: %v", err)
		return
	}
	log.Info("Close: database connection pool closed.")
}
