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

// Package emulator brokers playback sessions with the embedded web emulator.
// The emulator itself runs in an isolated page and is reached only through
// the Runtime interface, which speaks the INIT_GAME/COMMAND message protocol
// outbound and reports lifecycle events inbound.
package emulator

import (
	"context"
	"errors"
	"fmt"
)

// Outbound message types.
const (
	MessageInitEmulator = "INIT_EMULATOR"
	MessageInitGame     = "INIT_GAME"
	MessageCommand      = "COMMAND"
)

// EventType is an inbound lifecycle message from the emulator page.
type EventType string

const (
	EventEmulatorLoaded EventType = "EMULATOR_LOADED"
	EventGameStarted    EventType = "GAME_STARTED"
	EventGamePaused     EventType = "GAME_PAUSED"
)

func (t EventType) Valid() bool {
	switch t {
	case EventEmulatorLoaded, EventGameStarted, EventGamePaused:
		return true
	default:
		return false
	}
}

// Event is a lifecycle message. SessionID is echoed back by the page from
// the INIT_GAME message and may be empty for older pages.
type Event struct {
	Type      EventType `json:"type"`
	SessionID string    `json:"sessionId,omitempty"`
}

// Playback commands accepted by SendCommand.
const (
	CommandToggleFullscreen = "toggleFullscreen"
	CommandSaveState        = "saveState"
	CommandLoadState        = "loadState"
	CommandRestart          = "restart"
	CommandExitFullscreen   = "exitFullscreen"
	// CommandClose tears the running game down. It is only sent by the
	// bridge when a session closes.
	CommandClose = "close"
)

var userCommands = map[string]struct{}{
	CommandToggleFullscreen: {},
	CommandSaveState:        {},
	CommandLoadState:        {},
	CommandRestart:          {},
	CommandExitFullscreen:   {},
}

// ValidCommand reports whether action is a user playback command.
func ValidCommand(action string) bool {
	_, ok := userCommands[action]
	return ok
}

var (
	ErrConfirmationRequired = errors.New("file exceeds the size warning threshold and needs confirmation")
	ErrLaunchCancelled      = errors.New("launch cancelled")
	ErrUnknownCommand       = errors.New("unknown emulator command")
	ErrNoSession            = errors.New("no active emulator session")
	ErrNoRuntime            = errors.New("emulator page is not connected")
)

// MissingFileError is returned when a game has no payload, usually because
// it was restored from a metadata-only snapshot.
type MissingFileError struct {
	GameID   string
	GameName string
}

func (e *MissingFileError) Error() string {
	return fmt.Sprintf("game file for %q is not available, re-select the folder", e.GameName)
}

// LaunchMeta is descriptive data forwarded with INIT_GAME.
type LaunchMeta struct {
	SessionID string
	GameName  string
	Platform  string
}

// Runtime is the emulator host. Implementations must be safe for concurrent
// use.
type Runtime interface {
	// Launch asks the host to boot core with the game at sourceRef.
	Launch(ctx context.Context, core, sourceRef string, meta LaunchMeta) error
	// OnLifecycleEvent registers a handler for inbound lifecycle events.
	OnLifecycleEvent(fn func(Event))
	SendCommand(action string) error
}

// SessionState is the lifecycle of one playback session.
type SessionState int

const (
	StateIdle SessionState = iota
	StateInitializing
	StateAwaitingCoreReady
	StateRunning
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateInitializing:
		return "initializing"
	case StateAwaitingCoreReady:
		return "awaitingCoreReady"
	case StateRunning:
		return "running"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// canTransition encodes the session state machine. Closed is reachable from
// every state except itself.
func canTransition(from, to SessionState) bool {
	switch to {
	case StateInitializing:
		return from == StateIdle
	case StateAwaitingCoreReady:
		return from == StateInitializing
	case StateRunning:
		return from == StateAwaitingCoreReady
	case StateClosed:
		return from != StateClosed
	default:
		return false
	}
}
