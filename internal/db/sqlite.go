package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// Run embedded sqlite migrations against the database file
func MigrateSQLite(path string) error {
	return migrateUp("migrations/sqlite", "sqlite3://"+path)
}

// Open sqlite database file
// Foreign keys are enforced and transactions take the write lock at start,
// so concurrent read-then-write transactions wait on busy timeout instead of failing
func ConnectSQLite(ctx context.Context, path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000&_txlock=immediate", path)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("cant open sqlite database. Err: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("cant connect to sqlite database. Err: %w", err)
	}

	return db, nil
}

// Create database file directory if needed, migrate and connect
func ConnectAndMigrateSQLite(ctx context.Context, path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("cant create database directory. Err: %w", err)
		}
	}

	err := MigrateSQLite(path)
	if err != nil {
		return nil, err
	}

	return ConnectSQLite(ctx, path)
}
