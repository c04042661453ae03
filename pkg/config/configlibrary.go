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

package config

const (
	PersistenceNone     = "none"
	PersistenceMetadata = "metadata"
	PersistenceEncoded  = "encoded"

	BackendBolt   = "bolt"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"

	DefaultPersistMaxFileMB = 10
	DefaultStorageQuotaMB   = 64
	DefaultFolderLabel      = "Selected folder"

	mebibyte = 1024 * 1024
)

type Library struct {
	PersistenceMode    string `toml:"persistence_mode" validate:"omitempty,oneof=none metadata encoded"`
	StorageBackend     string `toml:"storage_backend" validate:"omitempty,oneof=bolt sqlite memory"`
	DefaultFolderLabel string `toml:"default_folder_label,omitempty"`
	PersistMaxFileMB   int    `toml:"persist_max_file_mb" validate:"gte=0"`
	StorageQuotaMB     int    `toml:"storage_quota_mb" validate:"gte=0"`
	WatchFolder        bool   `toml:"watch_folder"`
}

func (c *Instance) PersistenceMode() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.Library.PersistenceMode == "" {
		return PersistenceEncoded
	}
	return c.vals.Library.PersistenceMode
}

func (c *Instance) SetPersistenceMode(mode string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Library.PersistenceMode = mode
}

// StorageBackend returns the key-value backend for the library store. The
// "none" persistence mode always uses the in-memory backend.
func (c *Instance) StorageBackend() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.Library.PersistenceMode == PersistenceNone {
		return BackendMemory
	}
	if c.vals.Library.StorageBackend == "" {
		return BackendBolt
	}
	return c.vals.Library.StorageBackend
}

// PersistMaxFileBytes is the payload ceiling. Only files strictly below it
// are encoded into the store.
func (c *Instance) PersistMaxFileBytes() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return int64(c.vals.Library.PersistMaxFileMB) * mebibyte
}

// StorageQuotaBytes is the total size bound of the store, 0 means unbounded.
func (c *Instance) StorageQuotaBytes() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return int64(c.vals.Library.StorageQuotaMB) * mebibyte
}

func (c *Instance) DefaultFolderLabel() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.Library.DefaultFolderLabel == "" {
		return DefaultFolderLabel
	}
	return c.vals.Library.DefaultFolderLabel
}

func (c *Instance) WatchFolder() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Library.WatchFolder
}

func (c *Instance) SetWatchFolder(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Library.WatchFolder = enabled
}
