// Zaparoo Console
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Zaparoo Console.
//
// Zaparoo Console is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Zaparoo Console is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Zaparoo Console.  If not, see <http://www.gnu.org/licenses/>.

package kvstore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ZaparooProject/zaparoo-console/pkg/database"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

const sqliteConnParams = "?_journal_mode=WAL&_synchronous=FULL&_busy_timeout=5000"

var ErrNullSQL = errors.New("sqlite store is not connected")

type SQLite struct {
	ctx   context.Context
	sql   *sql.DB
	quota int64
}

// OpenSQLite opens the database file at path and applies migrations.
func OpenSQLite(ctx context.Context, path string, quota int64) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create directory for database: %w", err)
	}

	sqlInstance, err := sql.Open("sqlite3", path+sqliteConnParams)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := database.MigrateUp(sqlInstance, migrationFiles, "migrations"); err != nil {
		_ = sqlInstance.Close()
		return nil, err
	}

	return NewSQLite(ctx, sqlInstance, quota), nil
}

// NewSQLite wraps an already migrated connection.
func NewSQLite(ctx context.Context, db *sql.DB, quota int64) *SQLite {
	return &SQLite{ctx: ctx, sql: db, quota: quota}
}

func (s *SQLite) Get(key string) (string, bool, error) {
	if s.sql == nil {
		return "", false, ErrNullSQL
	}
	return sqlGet(s.ctx, s.sql, key)
}

func (s *SQLite) Set(key, value string) error {
	return s.SetMany(map[string]string{key: value})
}

func (s *SQLite) SetMany(entries map[string]string) error {
	if s.sql == nil {
		return ErrNullSQL
	}
	return sqlSetMany(s.ctx, s.sql, s.quota, entries)
}

func (s *SQLite) Remove(keys ...string) error {
	if s.sql == nil {
		return ErrNullSQL
	}
	return sqlRemove(s.ctx, s.sql, keys)
}

func (s *SQLite) Close() error {
	if s.sql == nil {
		return nil
	}
	if err := s.sql.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

func sqlGet(ctx context.Context, db *sql.DB, key string) (string, bool, error) {
	var val string
	err := db.QueryRowContext(ctx, "SELECT value FROM kv WHERE key = ?", key).Scan(&val)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return val, true, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func sqlSetMany(ctx context.Context, db *sql.DB, quota int64, entries map[string]string) error {
	keys := sortedKeys(entries)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if quota > 0 && len(keys) > 0 {
		args := make([]any, len(keys))
		for i, k := range keys {
			args[i] = k
		}
		var existing int64
		err = tx.QueryRowContext(ctx,
			"SELECT COALESCE(SUM(LENGTH(CAST(key AS BLOB)) + LENGTH(CAST(value AS BLOB))), 0) "+
				"FROM kv WHERE key NOT IN ("+placeholders(len(keys))+")",
			args...,
		).Scan(&existing)
		if err != nil {
			return fmt.Errorf("failed to measure store size: %w", err)
		}
		if err := checkQuota(quota, existing, entries); err != nil {
			return err
		}
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO kv (key, value) VALUES (?, ?) "+
			"ON CONFLICT(key) DO UPDATE SET value = excluded.value",
	)
	if err != nil {
		return fmt.Errorf("failed to prepare write: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, k := range keys {
		if _, err := stmt.ExecContext(ctx, k, entries[k]); err != nil {
			return fmt.Errorf("failed to write %s: %w", k, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

func sqlRemove(ctx context.Context, db *sql.DB, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}
	_, err := db.ExecContext(ctx,
		"DELETE FROM kv WHERE key IN ("+placeholders(len(keys))+")",
		args...,
	)
	if err != nil {
		return fmt.Errorf("failed to delete entries: %w", err)
	}
	return nil
}
