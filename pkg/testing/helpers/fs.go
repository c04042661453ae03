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

package helpers

import (
	"archive/zip"
	"bytes"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
)

// FSHelper builds ROM folders on an afero filesystem for tests.
type FSHelper struct {
	Fs afero.Fs
}

func NewMemoryFS() *FSHelper {
	return &FSHelper{
		Fs: afero.NewMemMapFs(),
	}
}

// NewOSFS uses the real filesystem, for tests that need a path on disk.
func NewOSFS() *FSHelper {
	return &FSHelper{
		Fs: afero.NewOsFs(),
	}
}

// CreateDirectoryStructure creates files and folders below basePath. Values
// are string or []byte for files, nested maps for folders and nil for empty
// folders.
func (h *FSHelper) CreateDirectoryStructure(basePath string, structure map[string]any) error {
	for name, content := range structure {
		fullPath := filepath.Join(basePath, name)

		switch v := content.(type) {
		case string:
			if err := h.WriteFile(fullPath, []byte(v)); err != nil {
				return err
			}
		case []byte:
			if err := h.WriteFile(fullPath, v); err != nil {
				return err
			}
		case map[string]any:
			if err := h.Fs.MkdirAll(fullPath, 0o755); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", fullPath, err)
			}
			if err := h.CreateDirectoryStructure(fullPath, v); err != nil {
				return err
			}
		case nil:
			if err := h.Fs.MkdirAll(fullPath, 0o755); err != nil {
				return fmt.Errorf("failed to create empty directory %s: %w", fullPath, err)
			}
		default:
			return fmt.Errorf("unsupported content type %T for %s", content, fullPath)
		}
	}
	return nil
}

func (h *FSHelper) WriteFile(path string, content []byte) error {
	if err := h.Fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for file %s: %w", path, err)
	}
	if err := afero.WriteFile(h.Fs, path, content, 0o644); err != nil {
		return fmt.Errorf("failed to write file %s: %w", path, err)
	}
	return nil
}

func (h *FSHelper) FileExists(path string) bool {
	exists, err := afero.Exists(h.Fs, path)
	if err != nil {
		return false
	}
	return exists
}

// ZipEntry is a file inside a test archive.
type ZipEntry struct {
	Name    string
	Content []byte
}

// ZipArchive builds an in-memory zip with entries in the given order.
func ZipArchive(entries ...ZipEntry) ([]byte, error) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, e := range entries {
		f, err := w.Create(e.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to add %s: %w", e.Name, err)
		}
		if _, err := f.Write(e.Content); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", e.Name, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish zip: %w", err)
	}
	return buf.Bytes(), nil
}

// BasicRomFolder is a small mixed library: three gba, two nes, one snes, a
// file no platform claims and hidden entries.
func BasicRomFolder() map[string]any {
	return map[string]any{
		"Roms": map[string]any{
			"gba": map[string]any{
				"Golden Sun.gba":   []byte("gba1"),
				"Metroid.gba":      []byte("gba2"),
				"Pokemon Gold.gbc": []byte("gbc1"),
			},
			"Mario.nes":          []byte("NES\x1a"),
			"Zelda.nes":          []byte("NES\x1a2"),
			"Chrono Trigger.sfc": []byte("snes"),
			"notes.txt":          "not a game",
			".DS_Store":          []byte{0},
			".trash": map[string]any{
				"Old.nes": []byte("NES\x1a"),
			},
		},
	}
}
