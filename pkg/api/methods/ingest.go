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

package methods

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/ZaparooProject/zaparoo-console/pkg/api/models/requests"
	"github.com/ZaparooProject/zaparoo-console/pkg/api/validation"
	"github.com/ZaparooProject/zaparoo-console/pkg/database"
	"github.com/ZaparooProject/zaparoo-console/pkg/database/blob"
)

// IngestFormField is the multipart field carrying folder files.
const IngestFormField = "files"

// MaxIngestFileSize bounds a single uploaded file. Larger files are skipped.
const MaxIngestFileSize int64 = 512 << 20

// partPath returns the client supplied file name with its directories.
// multipart.Part.FileName strips them, but a folder picker sends the path
// relative to the selected folder's parent and ingestion needs it.
func partPath(p *multipart.Part) string {
	_, params, err := mime.ParseMediaType(p.Header.Get("Content-Disposition"))
	if err == nil {
		if fn := params["filename"]; fn != "" {
			fn = strings.TrimPrefix(path.Clean(strings.ReplaceAll(fn, "\\", "/")), "/")
			if fn != "." && !strings.HasPrefix(fn, "../") {
				return fn
			}
		}
	}
	return p.FileName()
}

// ReadIngestBatch reads every file of a multipart folder upload into memory.
func ReadIngestBatch(r *http.Request) (database.Batch, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return database.Batch{}, fmt.Errorf("%w: %w", validation.ErrInvalidParams, err)
	}

	var batch database.Batch
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return database.Batch{}, fmt.Errorf("failed to read upload: %w", err)
		}
		if part.FormName() != IngestFormField || part.FileName() == "" {
			_ = part.Close()
			continue
		}

		p := partPath(part)
		data, err := io.ReadAll(io.LimitReader(part, MaxIngestFileSize+1))
		_ = part.Close()
		if err != nil {
			return database.Batch{}, fmt.Errorf("failed to read %s: %w", p, err)
		}
		if int64(len(data)) > MaxIngestFileSize {
			log.Warn().Msgf("skipping oversized upload: %s", p)
			continue
		}

		name := path.Base(p)
		batch.Files = append(batch.Files, database.SourceFile{
			Path:   p,
			Name:   name,
			Size:   int64(len(data)),
			Handle: blob.New(name, part.Header.Get("Content-Type"), data),
		})
	}
	return batch, nil
}

// HandleLibraryIngest ingests a multipart folder upload.
func HandleLibraryIngest(env requests.RequestEnv, r *http.Request) (any, error) { //nolint:gocritic // single-use parameter in API handler
	batch, err := ReadIngestBatch(r)
	if err != nil {
		return nil, err
	}
	log.Info().Msgf("received library ingest request with %d files", len(batch.Files))

	snap, err := env.Library.Ingest(env.Context, batch)
	if err != nil {
		return nil, err
	}
	return LibraryResponse(&snap), nil
}
