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
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/bodgit/sevenzip"
	"github.com/gabriel-vasile/mimetype"
	"github.com/nwaples/rardecode/v2"

	"github.com/ZaparooProject/zaparoo-console/pkg/database/systemdefs"
)

var (
	ErrNoGameInArchive  = errors.New("no supported game in archive")
	ErrArchiveTooLarge  = errors.New("archive is too large")
	ErrUnknownContainer = errors.New("unrecognised archive format")
)

const (
	mimeZip      = "application/zip"
	mimeSevenZip = "application/x-7z-compressed"
	mimeRar      = "application/x-rar-compressed"
)

// containerOf sniffs the archive format from its content, so a mislabelled
// extension does not matter.
func containerOf(data []byte) string {
	for m := mimetype.Detect(data); m != nil; m = m.Parent() {
		switch {
		case m.Is(mimeZip):
			return mimeZip
		case m.Is(mimeSevenZip):
			return mimeSevenZip
		case m.Is(mimeRar):
			return mimeRar
		}
	}
	return ""
}

// extractFirstGame returns the base name and content of the first entry in
// the archive whose extension classifies to a platform.
func extractFirstGame(data []byte, limit int64) (string, []byte, error) {
	switch containerOf(data) {
	case mimeZip:
		return extractFromZip(data, limit)
	case mimeSevenZip:
		return extractFrom7z(data, limit)
	case mimeRar:
		return extractFromRar(data, limit)
	default:
		return "", nil, ErrUnknownContainer
	}
}

func isGameEntry(name string) bool {
	_, ok := systemdefs.Classify(name)
	return ok
}

func limitedRead(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, ErrArchiveTooLarge
	}
	return data, nil
}

func extractFromZip(data []byte, limit int64) (string, []byte, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", nil, fmt.Errorf("failed to open zip: %w", err)
	}

	for _, f := range r.File {
		if f.FileInfo().IsDir() || !isGameEntry(f.Name) {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", nil, fmt.Errorf("failed to open %s in archive: %w", f.Name, err)
		}
		payload, err := limitedRead(rc, limit)
		_ = rc.Close()
		if err != nil {
			return "", nil, fmt.Errorf("failed to read %s: %w", f.Name, err)
		}
		return path.Base(f.Name), payload, nil
	}
	return "", nil, ErrNoGameInArchive
}

func extractFrom7z(data []byte, limit int64) (string, []byte, error) {
	r, err := sevenzip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", nil, fmt.Errorf("failed to open 7z: %w", err)
	}

	for _, f := range r.File {
		if f.FileInfo().IsDir() || !isGameEntry(f.Name) {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", nil, fmt.Errorf("failed to open %s in archive: %w", f.Name, err)
		}
		payload, err := limitedRead(rc, limit)
		_ = rc.Close()
		if err != nil {
			return "", nil, fmt.Errorf("failed to read %s: %w", f.Name, err)
		}
		return path.Base(f.Name), payload, nil
	}
	return "", nil, ErrNoGameInArchive
}

func extractFromRar(data []byte, limit int64) (string, []byte, error) {
	r, err := rardecode.NewReader(bytes.NewReader(data))
	if err != nil {
		return "", nil, fmt.Errorf("failed to open rar: %w", err)
	}

	for {
		header, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", nil, fmt.Errorf("failed to read rar entry: %w", err)
		}
		if header.IsDir || !isGameEntry(header.Name) {
			continue
		}
		payload, err := limitedRead(r, limit)
		if err != nil {
			return "", nil, fmt.Errorf("failed to read %s: %w", header.Name, err)
		}
		return path.Base(header.Name), payload, nil
	}
	return "", nil, ErrNoGameInArchive
}
