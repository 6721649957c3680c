package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// MemoryPath opens a private in-memory database
const MemoryPath = ":memory:"

var (
	db   *sql.DB
	once sync.Once
)

// Config holds database configuration
type Config struct {
	Path   string
	Logger zerolog.Logger
}

// Open opens a SQLite database and applies all pending migrations
func Open(ctx context.Context, cfg Config) (*sql.DB, error) {
	if cfg.Path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", dsn(cfg.Path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Set connection pool settings
	if cfg.Path == MemoryPath {
		// Every connection to :memory: is a separate database
		conn.SetMaxOpenConns(1)
	} else {
		conn.SetMaxOpenConns(10)
		conn.SetMaxIdleConns(5)
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	manager := NewMigrationManager(conn, migrationFiles, "migrations", cfg.Logger)
	if err := manager.RunMigrations(ctx); err != nil {
		conn.Close()
		return nil, err
	}

	cfg.Logger.Info().Str("path", cfg.Path).Msg("database initialized")
	return conn, nil
}

// dsn attaches per-connection pragmas so every pooled connection gets them
func dsn(path string) string {
	pragmas := []string{
		"foreign_keys(1)",
		"busy_timeout(5000)",
	}
	if path != MemoryPath {
		// Enable WAL mode for better concurrency
		pragmas = append(pragmas, "journal_mode(WAL)")
	}
	return path + "?_pragma=" + strings.Join(pragmas, "&_pragma=")
}

// Init opens the process-wide database once
func Init(ctx context.Context, cfg Config) error {
	var err error
	once.Do(func() {
		db, err = Open(ctx, cfg)
	})
	return err
}

// GetDB returns the database instance
func GetDB() *sql.DB {
	if db == nil {
		panic("database not initialized; call Init first")
	}
	return db
}

// Close closes the database connection
func Close() error {
	if db != nil {
		return db.Close()
	}
	return nil
}

// Transaction executes a function within a database transaction
func Transaction(ctx context.Context, conn *sql.DB, fn func(*sql.Tx) error) error {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("transaction error: %w, rollback error: %w", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
