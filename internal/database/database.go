package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx database/sql driver
	"github.com/rs/zerolog"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
)

// Options configure the underlying store.
type Options struct {
	Driver       string
	Path         string // sqlite file path
	DSN          string // postgres connection string
	MaxOpenConns int
	LockTimeout  time.Duration
}

// DB is the relational slot, booking and directory store.
type DB struct {
	*sql.DB
	dialect     dialect
	lockTimeout time.Duration
	logger      *zerolog.Logger
}

// NewDB opens the database and creates tables if they don't exist.
func NewDB(opts Options, logger *zerolog.Logger) (*DB, error) {
	if opts.Driver == "" {
		opts.Driver = DriverSQLite
	}
	if opts.LockTimeout <= 0 {
		opts.LockTimeout = 5 * time.Second
	}
	if opts.MaxOpenConns <= 0 {
		opts.MaxOpenConns = 10
	}

	var (
		d   dialect
		dsn string
	)
	switch opts.Driver {
	case DriverSQLite:
		if opts.Path == "" {
			return nil, fmt.Errorf("sqlite path is required")
		}
		if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		d = sqliteDialect
		// Immediate transactions take the write lock up front, so writers queue on busy_timeout
		// instead of failing on lock upgrade.
		dsn = fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_foreign_keys=on&_txlock=immediate&_busy_timeout=%d",
			opts.Path, opts.LockTimeout.Milliseconds())
	case DriverPostgres:
		if opts.DSN == "" {
			return nil, fmt.Errorf("postgres dsn is required")
		}
		d = postgresDialect
		dsn = opts.DSN
	default:
		return nil, fmt.Errorf("unsupported database driver %q", opts.Driver)
	}

	sqlDB, err := sql.Open(opts.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	sqlDB.SetMaxIdleConns(opts.MaxOpenConns / 2)
	sqlDB.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db := &DB{
		DB:          sqlDB,
		dialect:     d,
		lockTimeout: opts.LockTimeout,
		logger:      logger,
	}

	if err := db.createTables(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Info().Str("driver", opts.Driver).Msg("database initialized")
	return db, nil
}

// Driver returns the database/sql driver name in use.
func (db *DB) Driver() string {
	return db.dialect.driver
}

func (db *DB) createTables(ctx context.Context) error {
	for _, q := range db.dialect.schema {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("exec %q: %w", firstLine(q), err)
		}
	}
	return nil
}

func firstLine(q string) string {
	for i, r := range q {
		if r == '\n' {
			return q[:i]
		}
	}
	return q
}
