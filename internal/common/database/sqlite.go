package database

import (
	"fmt"
	"os"
	"path/filepath"

	"agritrust-workers/internal/common/config"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// NewSQLite opens a file-backed database, creating its directory if needed.
// SQLite allows one writer, so the pool is capped at one connection.
func NewSQLite(cfg config.SQLiteConfig) (*SQLClient, error) {
	if dir := filepath.Dir(cfg.Path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create sqlite directory %s: %w", dir, err)
		}
	}

	db, err := sqlx.Open("sqlite", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite %s: %w", cfg.Path, err)
	}
	db.SetMaxOpenConns(1)

	return &SQLClient{DB: db, Driver: config.DriverSQLite}, nil
}
