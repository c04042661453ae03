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

// Package library drives the game library: ingestion into state,
// persistence through the library store and playback through the emulator
// bridge.
package library

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"github.com/ZaparooProject/zaparoo-console/pkg/api/models"
	"github.com/ZaparooProject/zaparoo-console/pkg/api/notifications"
	"github.com/ZaparooProject/zaparoo-console/pkg/config"
	"github.com/ZaparooProject/zaparoo-console/pkg/database"
	"github.com/ZaparooProject/zaparoo-console/pkg/database/librarydb"
	"github.com/ZaparooProject/zaparoo-console/pkg/database/mediascanner"
	"github.com/ZaparooProject/zaparoo-console/pkg/emulator"
	"github.com/ZaparooProject/zaparoo-console/pkg/helpers/syncutil"
	"github.com/ZaparooProject/zaparoo-console/pkg/service/state"
)

var (
	ErrGameNotFound     = errors.New("game not found")
	ErrNoFolder         = errors.New("library was not scanned from a local folder")
	ErrIngestInProgress = errors.New("an ingestion is already running")
)

type Manager struct {
	cfg     *config.Instance
	st      *state.State
	store   *librarydb.Store
	scanner *mediascanner.Scanner
	bridge  *emulator.Bridge
	fs      afero.Fs
	watcher *Watcher
	cancel  context.CancelFunc
	mu      syncutil.Mutex
}

type Options struct {
	Config  *config.Instance
	State   *state.State
	Store   *librarydb.Store
	Scanner *mediascanner.Scanner
	Bridge  *emulator.Bridge
	// Fs backs local folder scans, the OS filesystem when nil.
	Fs      afero.Fs
	Watcher *Watcher
}

func NewManager(opts Options) *Manager {
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.Scanner == nil {
		opts.Scanner = mediascanner.New()
	}
	return &Manager{
		cfg:     opts.Config,
		st:      opts.State,
		store:   opts.Store,
		scanner: opts.Scanner,
		bridge:  opts.Bridge,
		fs:      opts.Fs,
		watcher: opts.Watcher,
	}
}

func (m *Manager) Bridge() *emulator.Bridge {
	return m.bridge
}

// Restore loads the persisted library into state. It reports whether a
// library was found.
func (m *Manager) Restore(ctx context.Context) bool {
	snap, ok := m.store.Load(ctx)
	if !ok {
		log.Info().Msg("no saved library found")
		return false
	}
	m.st.SetSnapshot(snap)
	log.Info().Msgf("restored library %q with %d games", snap.FolderLabel, snap.GameCount())
	m.watch(snap.FolderPath)
	return true
}

// Reload replaces the in-memory library with the persisted one.
func (m *Manager) Reload(ctx context.Context) (database.Snapshot, error) {
	snap, ok, err := m.store.LoadE(ctx)
	if err != nil {
		return database.Snapshot{}, fmt.Errorf("failed to load library: %w", err)
	}
	if !ok {
		m.st.Clear()
		return database.Snapshot{}, nil
	}
	m.st.SetSnapshot(snap)
	return snap, nil
}

func (m *Manager) beginIngest(ctx context.Context) (context.Context, func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		return nil, nil, ErrIngestInProgress
	}
	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	return ctx, func() {
		m.mu.Lock()
		m.cancel = nil
		m.mu.Unlock()
		cancel()
	}, nil
}

// CancelIngest stops a running ingestion, reporting whether one was
// running. The previous library is left untouched.
func (m *Manager) CancelIngest() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel == nil {
		return false
	}
	m.cancel()
	return true
}

// Ingest classifies batch, persists it and then replaces the library.
// Empty batches, batches without supported games and cancelled ingestions
// leave both the library and the store as they were. Other persistence
// failures are logged and the new library is still used.
func (m *Manager) Ingest(ctx context.Context, batch database.Batch) (database.Snapshot, error) {
	ctx, done, err := m.beginIngest(ctx)
	if err != nil {
		return database.Snapshot{}, err
	}
	defer done()

	snap, err := m.scanner.Ingest(ctx, batch)
	if err != nil {
		return database.Snapshot{}, fmt.Errorf("ingestion failed: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return database.Snapshot{}, fmt.Errorf("ingestion failed: %w", err)
	}

	if err := m.store.SaveE(ctx, &snap); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return database.Snapshot{}, fmt.Errorf("ingestion failed: %w", ctxErr)
		}
		log.Error().Err(err).Msg("failed to save library")
	}

	m.bridge.Close()
	m.st.SetSnapshot(snap)
	return snap, nil
}

// Scan ingests a local directory.
func (m *Manager) Scan(ctx context.Context, root string) (database.Snapshot, error) {
	batch, err := mediascanner.ScanFolder(ctx, m.fs, root)
	if err != nil {
		return database.Snapshot{}, fmt.Errorf("failed to scan %s: %w", root, err)
	}
	snap, err := m.Ingest(ctx, batch)
	if err != nil {
		return database.Snapshot{}, err
	}
	m.watch(snap.FolderPath)
	return snap, nil
}

// Rescan ingests the current folder again.
func (m *Manager) Rescan(ctx context.Context) (database.Snapshot, error) {
	root := m.st.FolderPath()
	if root == "" {
		return database.Snapshot{}, ErrNoFolder
	}
	return m.Scan(ctx, root)
}

// Reset closes any session, clears the persisted library and empties state.
func (m *Manager) Reset() error {
	m.CancelIngest()
	m.bridge.Close()
	if m.watcher != nil {
		m.watcher.Stop()
	}
	m.st.Clear()
	if err := m.store.ResetE(); err != nil {
		return fmt.Errorf("failed to reset library: %w", err)
	}
	return nil
}

// Launch plays a game from the library. Without confirmed an oversize file
// returns emulator.ErrConfirmationRequired.
func (m *Manager) Launch(ctx context.Context, gameID string, confirmed bool) (*emulator.Session, error) {
	game, platform, ok := m.st.FindGame(gameID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrGameNotFound, gameID)
	}
	var confirm emulator.Confirmer
	if confirmed {
		confirm = emulator.AlwaysConfirm
	}
	s, err := m.bridge.Launch(ctx, game, platform, confirm)
	if err != nil {
		return nil, fmt.Errorf("failed to launch %s: %w", game.Name, err)
	}
	return s, nil
}

// SetPersistenceMode updates the config and the store together.
func (m *Manager) SetPersistenceMode(mode string) {
	m.cfg.SetPersistenceMode(mode)
	m.store.SetMode(mode)
}

// SetWatchFolder toggles folder watching for the current library.
func (m *Manager) SetWatchFolder(enabled bool) {
	m.cfg.SetWatchFolder(enabled)
	if !enabled {
		if m.watcher != nil {
			m.watcher.Stop()
		}
		return
	}
	m.watch(m.st.FolderPath())
}

func (m *Manager) watch(root string) {
	if m.watcher == nil || root == "" || !m.cfg.WatchFolder() {
		return
	}
	if m.watcher.Root() == root {
		return
	}
	if err := m.watcher.Watch(root); err != nil {
		log.Warn().Err(err).Msgf("failed to watch folder: %s", root)
	}
}

// FolderChanged is the watcher callback. It tells clients the folder
// changed so they can offer a rescan.
func (m *Manager) FolderChanged(root string) {
	log.Info().Msgf("library folder changed: %s", root)
	notifications.LibraryFolderChanged(m.st.Notifications, models.FolderChangedParams{Path: root})
}

// Close ends playback and stops watching. The store is owned by the caller.
func (m *Manager) Close() {
	m.CancelIngest()
	m.bridge.Close()
	if m.watcher != nil {
		m.watcher.Stop()
	}
}
