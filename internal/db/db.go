package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
	_ "github.com/tursodatabase/libsql-client-go/libsql"

	"github.com/vytor/openingtiers/internal/logger"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type DB struct {
	*sql.DB
	log *logger.Logger
}

// Driver picks the database/sql driver for dsn: remote libsql/Turso URLs use
// libsql, everything else the local SQLite driver.
func Driver(dsn string) string {
	switch {
	case strings.HasPrefix(dsn, "libsql://"),
		strings.HasPrefix(dsn, "https://"),
		strings.HasPrefix(dsn, "http://"),
		strings.HasPrefix(dsn, "wss://"),
		strings.HasPrefix(dsn, "ws://"):
		return "libsql"
	default:
		return "sqlite3"
	}
}

// Open connects to dsn and applies pending migrations. authToken is only used
// for remote libsql databases.
func Open(ctx context.Context, dsn, authToken string) (*DB, error) {
	log := logger.Default().WithPrefix("db")

	driver := Driver(dsn)
	source := dsn
	switch driver {
	case "libsql":
		if authToken != "" {
			source = withParam(dsn, "authToken="+authToken)
		}
		log.Info("opening remote database: %s", dsn)
	default:
		source = withParam(dsn, "_busy_timeout=5000&_foreign_keys=on&_journal_mode=WAL&_synchronous=NORMAL")
		log.Info("opening database: %s", dsn)
	}

	sqlDB, err := sql.Open(driver, source)
	if err != nil {
		log.Error("failed to open database: %v", err)
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1) // SQLite best practice for single writer

	db := &DB{DB: sqlDB, log: log}

	if driver == "libsql" {
		if _, err := sqlDB.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
			log.Warn("failed to enable foreign keys: %v", err)
		}
	}

	if err := db.Migrate(ctx); err != nil {
		log.Error("failed to apply migrations: %v", err)
		_ = sqlDB.Close()
		return nil, err
	}

	log.Info("database ready")
	return db, nil
}

// Migrate applies every embedded migration that has not been applied yet.
func (db *DB) Migrate(ctx context.Context) error {
	return Migrate(ctx, db.DB)
}

// Migrate applies the embedded migrations to an arbitrary connection.
func Migrate(ctx context.Context, sqlDB *sql.DB) error {
	log := logger.FromContext(ctx).WithPrefix("db")

	provider, err := newProvider(sqlDB)
	if err != nil {
		return err
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	for _, r := range results {
		log.Info("migration %s applied in %v", r.Source.Path, r.Duration)
	}
	return nil
}

// Version returns the current schema version.
func (db *DB) Version(ctx context.Context) (int64, error) {
	provider, err := newProvider(db.DB)
	if err != nil {
		return 0, err
	}
	return provider.GetDBVersion(ctx)
}

func newProvider(sqlDB *sql.DB) (*goose.Provider, error) {
	fsys, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return nil, err
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, sqlDB, fsys)
	if err != nil {
		return nil, fmt.Errorf("init migrations: %w", err)
	}
	return provider, nil
}

func withParam(dsn, param string) string {
	if strings.Contains(dsn, "?") {
		return dsn + "&" + param
	}
	return dsn + "?" + param
}
