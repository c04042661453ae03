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

// Package librarydb persists library snapshots to the key-value store and
// rehydrates them. It is the only reader and writer of the library entries.
package librarydb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/ZaparooProject/zaparoo-console/pkg/config"
	"github.com/ZaparooProject/zaparoo-console/pkg/database"
	"github.com/ZaparooProject/zaparoo-console/pkg/database/blob"
	"github.com/ZaparooProject/zaparoo-console/pkg/database/kvstore"
	"github.com/ZaparooProject/zaparoo-console/pkg/database/systemdefs"
	"github.com/ZaparooProject/zaparoo-console/pkg/helpers"
	"github.com/ZaparooProject/zaparoo-console/pkg/helpers/syncutil"
)

// Entry names in the key-value store.
const (
	KeyGames       = "userGames"
	KeyPlatforms   = "userConsoles"
	KeyFolderLabel = "currentFolderPath"
	KeyFiles       = "gameFiles"
	KeyFolderRoot  = "currentFolderRoot"
)

var allKeys = []string{KeyGames, KeyPlatforms, KeyFolderLabel, KeyFiles, KeyFolderRoot}

const defaultConcurrency = 4

type Options struct {
	// Mode is one of the config persistence modes.
	Mode string
	// MaxFileSize is the payload ceiling, only files strictly smaller are
	// encoded.
	MaxFileSize int64
	Concurrency int
}

type Store struct {
	kv   kvstore.Store
	opts Options
	// serialises saves so two snapshots never interleave their writes
	mu syncutil.Mutex
}

func New(kv kvstore.Store, opts Options) *Store {
	if opts.Mode == "" {
		opts.Mode = config.PersistenceEncoded
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}
	return &Store{kv: kv, opts: opts}
}

// SetMode switches the persistence mode for later saves.
func (s *Store) SetMode(mode string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opts.Mode = mode
}

// fileKey names a payload in the files map. The source path keeps two games
// with the same file name in different subfolders apart.
func fileKey(g *database.Game) string {
	if g.SourcePath != "" {
		return g.SourcePath
	}
	return g.FileName
}

// Save persists the snapshot and logs failures instead of returning them.
func (s *Store) Save(ctx context.Context, snap *database.Snapshot) {
	if err := s.SaveE(ctx, snap); err != nil {
		log.Error().Err(err).Msg("failed to save library")
	}
}

// SaveE encodes every payload under the ceiling, waits for all encodes and
// then writes all entries in one batch. A cancelled ctx aborts before
// anything is written.
func (s *Store) SaveE(ctx context.Context, snap *database.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.opts.Mode == config.PersistenceNone {
		log.Debug().Msg("library persistence disabled, skipping save")
		return nil
	}

	meta := make(map[string][]database.Game, len(snap.Platforms))
	ids := make([]string, 0, len(snap.Platforms))
	for _, p := range snap.Platforms {
		ids = append(ids, p.Platform.ID)
		meta[p.Platform.ID] = p.Games
	}

	files := map[string]string{}
	if s.opts.Mode == config.PersistenceEncoded {
		var err error
		files, err = s.encodeFiles(ctx, snap)
		if err != nil {
			return err
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	entries, err := buildEntries(snap, ids, meta, files)
	if err != nil {
		return err
	}

	err = s.kv.SetMany(entries)
	if errors.Is(err, kvstore.ErrQuotaExceeded) && len(files) > 0 {
		log.Warn().Err(err).Msg("library payloads exceed storage quota, saving metadata only")
		entries[KeyFiles] = "{}"
		err = s.kv.SetMany(entries)
	}
	if err != nil {
		return fmt.Errorf("failed to write library: %w", err)
	}

	log.Info().Msgf(
		"saved library: %d platforms, %d games, %d payloads",
		len(ids), snap.GameCount(), len(files),
	)
	return nil
}

func buildEntries(
	snap *database.Snapshot,
	ids []string,
	meta map[string][]database.Game,
	files map[string]string,
) (map[string]string, error) {
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal games: %w", err)
	}
	idsJSON, err := json.Marshal(ids)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal platforms: %w", err)
	}
	filesJSON, err := json.Marshal(files)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal files: %w", err)
	}

	return map[string]string{
		KeyGames:       string(metaJSON),
		KeyPlatforms:   string(idsJSON),
		KeyFolderLabel: snap.FolderLabel,
		KeyFiles:       string(filesJSON),
		KeyFolderRoot:  snap.FolderPath,
	}, nil
}

func (s *Store) encodeFiles(ctx context.Context, snap *database.Snapshot) (map[string]string, error) {
	files := make(map[string]string)
	var filesMu syncutil.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)

	for pi := range snap.Platforms {
		for gi := range snap.Platforms[pi].Games {
			game := &snap.Platforms[pi].Games[gi]
			if game.File == nil {
				continue
			}
			size := game.File.Size()
			if size >= s.opts.MaxFileSize {
				log.Info().Msgf(
					"not persisting %s (%s), at or above the %s ceiling",
					game.FileName,
					helpers.FormatBytes(size),
					helpers.FormatBytes(s.opts.MaxFileSize),
				)
				continue
			}

			g.Go(func() error {
				text, err := blob.Encode(gctx, game.File)
				if err != nil {
					if ctxErr := gctx.Err(); ctxErr != nil {
						return ctxErr
					}
					log.Warn().Err(err).Msgf("skipping payload for %s", game.FileName)
					return nil
				}
				filesMu.Lock()
				files[fileKey(game)] = text
				filesMu.Unlock()
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("library save aborted: %w", err)
	}
	return files, nil
}

// Load rehydrates the last saved snapshot. Failures are logged and reported
// as an empty library.
func (s *Store) Load(ctx context.Context) (database.Snapshot, bool) {
	snap, ok, err := s.LoadE(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to load library")
		return database.Snapshot{}, false
	}
	return snap, ok
}

// LoadE returns false when no library is stored. Unknown platform ids are
// dropped and payloads that are missing or fail to decode leave the game
// without a file.
func (s *Store) LoadE(ctx context.Context) (database.Snapshot, bool, error) {
	idsText, idsOK, err := s.kv.Get(KeyPlatforms)
	if err != nil {
		return database.Snapshot{}, false, err
	}
	metaText, metaOK, err := s.kv.Get(KeyGames)
	if err != nil {
		return database.Snapshot{}, false, err
	}
	if !idsOK || !metaOK {
		return database.Snapshot{}, false, nil
	}

	var ids []string
	if err := json.Unmarshal([]byte(idsText), &ids); err != nil {
		return database.Snapshot{}, false, fmt.Errorf("failed to parse %s: %w", KeyPlatforms, err)
	}
	var meta map[string][]database.Game
	if err := json.Unmarshal([]byte(metaText), &meta); err != nil {
		return database.Snapshot{}, false, fmt.Errorf("failed to parse %s: %w", KeyGames, err)
	}
	if len(ids) == 0 || len(meta) == 0 {
		return database.Snapshot{}, false, nil
	}

	files := s.loadFiles()

	snap := database.Snapshot{}
	if snap.FolderLabel, _, err = s.kv.Get(KeyFolderLabel); err != nil {
		return database.Snapshot{}, false, err
	}
	if snap.FolderPath, _, err = s.kv.Get(KeyFolderRoot); err != nil {
		return database.Snapshot{}, false, err
	}

	for _, id := range ids {
		p, err := systemdefs.LookupPlatform(id)
		if err != nil {
			log.Warn().Msgf("dropping stored platform: %s", id)
			continue
		}
		games := meta[id]
		if len(games) == 0 {
			continue
		}
		snap.Platforms = append(snap.Platforms, database.PlatformGames{
			Platform: *p,
			Games:    games,
		})
	}
	if len(snap.Platforms) == 0 {
		return database.Snapshot{}, false, nil
	}

	if err := s.decodeFiles(ctx, &snap, files); err != nil {
		return database.Snapshot{}, false, err
	}

	return snap, true, nil
}

func (s *Store) loadFiles() map[string]string {
	files := map[string]string{}
	text, ok, err := s.kv.Get(KeyFiles)
	if err != nil {
		log.Warn().Err(err).Msg("failed to read stored payloads")
		return files
	}
	if !ok {
		return files
	}
	if err := json.Unmarshal([]byte(text), &files); err != nil {
		log.Warn().Err(err).Msg("stored payloads are corrupt, ignoring")
		return map[string]string{}
	}
	return files
}

func (s *Store) decodeFiles(ctx context.Context, snap *database.Snapshot, files map[string]string) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)

	for pi := range snap.Platforms {
		for gi := range snap.Platforms[pi].Games {
			game := &snap.Platforms[pi].Games[gi]
			text, ok := files[fileKey(game)]
			if !ok {
				continue
			}
			g.Go(func() error {
				res := <-blob.DecodeAsync(gctx, text, game.FileName)
				if res.Err != nil {
					if ctxErr := gctx.Err(); ctxErr != nil {
						return ctxErr
					}
					log.Warn().Err(res.Err).Msgf("stored payload for %s is unreadable", game.FileName)
					return nil
				}
				game.File = res.Handle
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("library load aborted: %w", err)
	}
	return nil
}

// Reset removes every library entry and logs failures.
func (s *Store) Reset() {
	if err := s.ResetE(); err != nil {
		log.Error().Err(err).Msg("failed to reset library")
	}
}

func (s *Store) ResetE() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.kv.Remove(allKeys...); err != nil {
		return fmt.Errorf("failed to remove library entries: %w", err)
	}
	log.Info().Msg("library store reset")
	return nil
}

func (s *Store) Close() error {
	return s.kv.Close()
}
