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

package state

import (
	"context"
	"errors"
	"fmt"

	"github.com/ZaparooProject/zaparoo-console/pkg/api/models"
	"github.com/ZaparooProject/zaparoo-console/pkg/api/notifications"
	"github.com/ZaparooProject/zaparoo-console/pkg/database"
	"github.com/ZaparooProject/zaparoo-console/pkg/database/systemdefs"
	"github.com/ZaparooProject/zaparoo-console/pkg/helpers/syncutil"
)

var (
	ErrEmptyLibrary     = errors.New("library is empty")
	ErrCursorOutOfRange = errors.New("cursor out of range")
	ErrUnknownDirection = errors.New("unknown cursor direction")
)

// Direction moves the selection cursor. Left and right change platform,
// up and down change game within the platform.
type Direction string

const (
	DirectionLeft  Direction = "left"
	DirectionRight Direction = "right"
	DirectionUp    Direction = "up"
	DirectionDown  Direction = "down"
)

// Cursor is the selected platform index and game index within it.
type Cursor struct {
	Platform int `json:"platform"`
	Game     int `json:"game"`
}

// State holds the in-memory library and the selection cursor.
//
// LOCKING RULES: mu protects all mutable fields. Never send notifications
// while holding the lock: lock → modify state → copy needed data → unlock →
// send notifications.
type State struct {
	ctx           context.Context
	ctxCancelFunc context.CancelFunc
	Notifications chan<- models.Notification
	snapshot      database.Snapshot
	cursor        Cursor
	mu            syncutil.RWMutex
	stopService   bool
}

func NewState() (state *State, notificationCh <-chan models.Notification) {
	ns := make(chan models.Notification, 100)
	ctx, ctxCancelFunc := context.WithCancel(context.Background())
	return &State{
		Notifications: ns,
		ctx:           ctx,
		ctxCancelFunc: ctxCancelFunc,
	}, ns
}

func (s *State) GetContext() context.Context {
	return s.ctx
}

func (s *State) StopService() {
	s.mu.Lock()
	s.stopService = true
	s.mu.Unlock()
	s.ctxCancelFunc()
}

func (s *State) ShouldStopService() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stopService
}

func summarize(snap *database.Snapshot) models.LibraryChangedParams {
	return models.LibraryChangedParams{
		FolderLabel:   snap.FolderLabel,
		FolderPath:    snap.FolderPath,
		GameCount:     snap.GameCount(),
		PlatformCount: len(snap.Platforms),
	}
}

// SetSnapshot replaces the library and resets the cursor to the first game
// of the first platform.
func (s *State) SetSnapshot(snap database.Snapshot) { //nolint:gocritic // stored by value
	s.mu.Lock()
	s.snapshot = snap
	s.cursor = Cursor{}
	payload := summarize(&s.snapshot)
	s.mu.Unlock()

	notifications.LibraryUpdated(s.Notifications, payload)
}

// Clear empties the library.
func (s *State) Clear() {
	s.mu.Lock()
	s.snapshot = database.Snapshot{}
	s.cursor = Cursor{}
	s.mu.Unlock()

	notifications.LibraryReset(s.Notifications)
}

// Snapshot returns a copy of the library. Game slices are shared and must
// be treated as read-only.
func (s *State) Snapshot() database.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := s.snapshot
	snap.Platforms = make([]database.PlatformGames, len(s.snapshot.Platforms))
	copy(snap.Platforms, s.snapshot.Platforms)
	return snap
}

func (s *State) FolderPath() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot.FolderPath
}

func (s *State) FindGame(id string) (database.Game, systemdefs.Platform, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot.FindGame(id)
}

func (s *State) Cursor() Cursor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cursor
}

// Selected returns the game under the cursor.
func (s *State) Selected() (database.Game, systemdefs.Platform, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selectedLocked()
}

func (s *State) selectedLocked() (database.Game, systemdefs.Platform, bool) {
	if s.cursor.Platform >= len(s.snapshot.Platforms) {
		return database.Game{}, systemdefs.Platform{}, false
	}
	pg := s.snapshot.Platforms[s.cursor.Platform]
	if s.cursor.Game >= len(pg.Games) {
		return database.Game{}, pg.Platform, false
	}
	return pg.Games[s.cursor.Game], pg.Platform, true
}

func (s *State) cursorPayloadLocked() models.CursorChangedParams {
	payload := models.CursorChangedParams{
		Platform: s.cursor.Platform,
		Game:     s.cursor.Game,
	}
	game, platform, ok := s.selectedLocked()
	payload.PlatformID = platform.ID
	if ok {
		payload.GameID = game.ID
	}
	return payload
}

// SetCursor selects a platform and game by index.
func (s *State) SetCursor(c Cursor) error {
	s.mu.Lock()
	if len(s.snapshot.Platforms) == 0 {
		s.mu.Unlock()
		return ErrEmptyLibrary
	}
	if c.Platform < 0 || c.Platform >= len(s.snapshot.Platforms) {
		s.mu.Unlock()
		return fmt.Errorf("%w: platform %d", ErrCursorOutOfRange, c.Platform)
	}
	if c.Game < 0 || c.Game >= len(s.snapshot.Platforms[c.Platform].Games) {
		s.mu.Unlock()
		return fmt.Errorf("%w: game %d", ErrCursorOutOfRange, c.Game)
	}
	s.cursor = c
	payload := s.cursorPayloadLocked()
	s.mu.Unlock()

	notifications.CursorChanged(s.Notifications, payload)
	return nil
}

// MoveCursor moves the selection one step, wrapping at both ends. Changing
// platform selects its first game.
func (s *State) MoveCursor(dir Direction) (Cursor, error) {
	s.mu.Lock()
	platforms := len(s.snapshot.Platforms)
	if platforms == 0 {
		s.mu.Unlock()
		return Cursor{}, ErrEmptyLibrary
	}

	c := s.cursor
	switch dir {
	case DirectionLeft:
		c.Platform = (c.Platform - 1 + platforms) % platforms
		c.Game = 0
	case DirectionRight:
		c.Platform = (c.Platform + 1) % platforms
		c.Game = 0
	case DirectionUp, DirectionDown:
		games := len(s.snapshot.Platforms[c.Platform].Games)
		if games == 0 {
			c.Game = 0
			break
		}
		if dir == DirectionUp {
			c.Game = (c.Game - 1 + games) % games
		} else {
			c.Game = (c.Game + 1) % games
		}
	default:
		s.mu.Unlock()
		return Cursor{}, fmt.Errorf("%w: %s", ErrUnknownDirection, dir)
	}

	s.cursor = c
	payload := s.cursorPayloadLocked()
	s.mu.Unlock()

	notifications.CursorChanged(s.Notifications, payload)
	return c, nil
}
