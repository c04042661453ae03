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

// Package mediascanner turns a batch of user-selected files into a library
// snapshot: every file is classified by extension (or by the first playable
// entry of an archive) and grouped per platform.
package mediascanner

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"golang.org/x/text/unicode/norm"

	"github.com/ZaparooProject/zaparoo-console/pkg/config"
	"github.com/ZaparooProject/zaparoo-console/pkg/database"
	"github.com/ZaparooProject/zaparoo-console/pkg/database/blob"
	"github.com/ZaparooProject/zaparoo-console/pkg/database/systemdefs"
	"github.com/ZaparooProject/zaparoo-console/pkg/helpers"
)

var (
	ErrEmptyBatch       = errors.New("no files selected")
	ErrNoSupportedGames = errors.New("no supported games found in the selected folder")
)

const (
	dateLayout = "2006-01-02"
	// DefaultMaxArchiveSize bounds how much of an archive, and of the entry
	// extracted from it, is read into memory.
	DefaultMaxArchiveSize = 512 * 1024 * 1024
)

type Scanner struct {
	clock          clockwork.Clock
	defaultLabel   string
	maxArchiveSize int64
}

type Option func(*Scanner)

func WithClock(clock clockwork.Clock) Option {
	return func(s *Scanner) {
		s.clock = clock
	}
}

// WithDefaultLabel sets the folder label used when the batch paths carry no
// folder name.
func WithDefaultLabel(label string) Option {
	return func(s *Scanner) {
		if label != "" {
			s.defaultLabel = label
		}
	}
}

func WithMaxArchiveSize(n int64) Option {
	return func(s *Scanner) {
		if n > 0 {
			s.maxArchiveSize = n
		}
	}
}

func New(opts ...Option) *Scanner {
	s := &Scanner{
		clock:          clockwork.NewRealClock(),
		defaultLabel:   config.DefaultFolderLabel,
		maxArchiveSize: DefaultMaxArchiveSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FolderLabel is the first segment of a batch path, or the default label for
// paths with no folder.
func (s *Scanner) FolderLabel(p string) string {
	first, _, found := strings.Cut(strings.TrimPrefix(p, "/"), "/")
	if !found || first == "" {
		return s.defaultLabel
	}
	return first
}

// DisplayName is a filename minus its last extension, NFC normalised so
// names from macOS file pickers compare equal to typed ones.
func DisplayName(filename string) string {
	name := filename
	if i := strings.LastIndex(name, "."); i > 0 {
		name = name[:i]
	}
	return norm.NFC.String(name)
}

// Ingest classifies the batch in input order. Unclassifiable files are
// skipped, platforms are ordered by game count with ties kept in the order
// they were first seen. The returned snapshot has no FolderPath unless the
// batch carried one. ctx is checked between files.
func (s *Scanner) Ingest(ctx context.Context, batch database.Batch) (database.Snapshot, error) {
	if len(batch.Files) == 0 {
		return database.Snapshot{}, ErrEmptyBatch
	}

	now := s.clock.Now()
	stamp := now.UnixMilli()
	date := now.Format(dateLayout)

	groups := make(map[string]int)
	var platforms []database.PlatformGames
	skipped := 0

	for i, f := range batch.Files {
		if err := ctx.Err(); err != nil {
			log.Info().Msgf("ingestion cancelled after %d of %d files", i, len(batch.Files))
			return database.Snapshot{}, err
		}

		game, ok, err := s.classify(f)
		if err != nil {
			log.Warn().Err(err).Msgf("skipping unreadable file: %s", f.Path)
			skipped++
			continue
		}
		if !ok {
			log.Debug().Msgf("no platform for file: %s", f.Path)
			skipped++
			continue
		}

		game.ID = fmt.Sprintf("%s_%d_%d", game.PlatformID, stamp, i)
		game.UploadDate = date
		game.FileSize = helpers.FormatBytes(game.SizeBytes)

		idx, seen := groups[game.PlatformID]
		if !seen {
			p, err := systemdefs.LookupPlatform(game.PlatformID)
			if err != nil {
				return database.Snapshot{}, err
			}
			idx = len(platforms)
			groups[game.PlatformID] = idx
			platforms = append(platforms, database.PlatformGames{Platform: *p})
		}
		platforms[idx].Games = append(platforms[idx].Games, game)
	}

	if len(platforms) == 0 {
		log.Info().Msgf("no supported games in %d files", len(batch.Files))
		return database.Snapshot{}, ErrNoSupportedGames
	}

	sort.SliceStable(platforms, func(a, b int) bool {
		return len(platforms[a].Games) > len(platforms[b].Games)
	})

	snap := database.Snapshot{
		FolderLabel: s.FolderLabel(batch.Files[0].Path),
		FolderPath:  batch.FolderPath,
		Platforms:   platforms,
	}
	log.Info().Msgf(
		"ingested %d games across %d platforms from %s, skipped %d files",
		snap.GameCount(), len(platforms), snap.FolderLabel, skipped,
	)
	return snap, nil
}

func (s *Scanner) classify(f database.SourceFile) (database.Game, bool, error) {
	name := f.Name
	if name == "" {
		name = path.Base(f.Path)
	}

	if systemdefs.IsArchive(name) {
		return s.classifyArchive(f, name)
	}

	platformID, ok := systemdefs.Classify(name)
	if !ok {
		return database.Game{}, false, nil
	}

	size := f.Size
	if size == 0 && f.Handle != nil {
		size = f.Handle.Size()
	}

	return database.Game{
		Name:       DisplayName(name),
		FileName:   name,
		SizeBytes:  size,
		PlatformID: platformID,
		SourcePath: f.Path,
		File:       f.Handle,
	}, true, nil
}

func (s *Scanner) classifyArchive(f database.SourceFile, name string) (database.Game, bool, error) {
	if f.Handle == nil {
		return database.Game{}, false, fmt.Errorf("archive %s has no readable content", name)
	}
	if f.Handle.Size() > s.maxArchiveSize {
		return database.Game{}, false, fmt.Errorf("%w: %s", ErrArchiveTooLarge, name)
	}

	data, err := f.Handle.Bytes()
	if err != nil {
		return database.Game{}, false, err
	}

	entry, payload, err := extractFirstGame(data, s.maxArchiveSize)
	if errors.Is(err, ErrNoGameInArchive) {
		return database.Game{}, false, nil
	}
	if err != nil {
		return database.Game{}, false, fmt.Errorf("failed to read archive %s: %w", name, err)
	}

	platformID, _ := systemdefs.Classify(entry)
	return database.Game{
		Name:       DisplayName(name),
		FileName:   entry,
		SizeBytes:  int64(len(payload)),
		PlatformID: platformID,
		SourcePath: f.Path + "/" + entry,
		File:       blob.New(entry, "", payload),
	}, true, nil
}
