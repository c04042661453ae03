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

package mediascanner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"github.com/ZaparooProject/zaparoo-console/pkg/database"
	"github.com/ZaparooProject/zaparoo-console/pkg/database/blob"
)

// ScanFolder builds an ingestion batch from a local directory. Hidden files
// and folders are skipped. Paths are relative to the parent of root and use
// forward slashes, so the first segment is the folder's own name. File
// contents are read lazily.
func ScanFolder(ctx context.Context, fs afero.Fs, root string) (database.Batch, error) {
	root = filepath.Clean(root)
	info, err := fs.Stat(root)
	if err != nil {
		return database.Batch{}, fmt.Errorf("failed to open folder: %w", err)
	}
	if !info.IsDir() {
		return database.Batch{}, fmt.Errorf("%s is not a folder", root)
	}

	parent := filepath.Dir(root)
	batch := database.Batch{FolderPath: root}

	err = afero.Walk(fs, root, func(p string, info os.FileInfo, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			log.Warn().Err(err).Msgf("skipping unreadable path: %s", p)
			if info != nil && info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if p != root && strings.HasPrefix(info.Name(), ".") {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if info.IsDir() || !info.Mode().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(parent, p)
		if err != nil {
			return err
		}

		h, err := blob.FromFile(fs, p)
		if err != nil {
			log.Warn().Err(err).Msgf("skipping file: %s", p)
			return nil
		}

		batch.Files = append(batch.Files, database.SourceFile{
			Path:   filepath.ToSlash(rel),
			Name:   info.Name(),
			Size:   info.Size(),
			Handle: h,
		})
		return nil
	})
	if err != nil {
		return database.Batch{}, fmt.Errorf("folder scan failed: %w", err)
	}

	log.Info().Msgf("found %d files in %s", len(batch.Files), root)
	return batch, nil
}
