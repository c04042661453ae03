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

// Package kvstore is the synchronous, size-bounded textual key-value layer
// under the library store. Backends: bbolt (default), sqlite and memory.
package kvstore

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/ZaparooProject/zaparoo-console/pkg/config"
)

var (
	ErrQuotaExceeded = errors.New("storage quota exceeded")
	ErrClosed        = errors.New("store is closed")
)

type Store interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	// SetMany writes all entries or none of them.
	SetMany(entries map[string]string) error
	Remove(keys ...string) error
	Close() error
}

// Open creates the backend named by backend inside dataDir. quota bounds the
// summed size of keys and values in bytes, 0 means unbounded.
func Open(ctx context.Context, backend, dataDir string, quota int64) (Store, error) {
	switch backend {
	case config.BackendBolt, "":
		return OpenBolt(filepath.Join(dataDir, config.LibraryBoltFile), quota)
	case config.BackendSQLite:
		return OpenSQLite(ctx, filepath.Join(dataDir, config.LibrarySQLiteFile), quota)
	case config.BackendMemory:
		return NewMemory(quota), nil
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", backend)
	}
}

func entrySize(key, value string) int64 {
	return int64(len(key) + len(value))
}

func sortedKeys(entries map[string]string) []string {
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// checkQuota reports whether replacing the entries keeps the store within
// quota. existing is the size of everything not being replaced.
func checkQuota(quota, existing int64, entries map[string]string) error {
	if quota <= 0 {
		return nil
	}
	total := existing
	for k, v := range entries {
		total += entrySize(k, v)
	}
	if total > quota {
		return fmt.Errorf("%w: %d of %d bytes", ErrQuotaExceeded, total, quota)
	}
	return nil
}
