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

package emulator

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/ZaparooProject/zaparoo-console/pkg/database"
	"github.com/ZaparooProject/zaparoo-console/pkg/database/systemdefs"
	"github.com/ZaparooProject/zaparoo-console/pkg/helpers/syncutil"
)

// Confirmer is asked before launching a file above the size warning
// threshold. Returning false cancels the launch.
type Confirmer func(game database.Game, size int64) bool

// AlwaysConfirm approves every oversize launch.
func AlwaysConfirm(database.Game, int64) bool { return true }

type Options struct {
	// OnStateChange is called outside any lock after every transition.
	OnStateChange func(s *Session, from, to SessionState)
	// OnEvent is called for every lifecycle event of the active session.
	OnEvent     func(s *Session, ev Event)
	DefaultCore string
	// WarnSize is the launch confirmation threshold in bytes, zero disables
	// the check.
	WarnSize int64
}

// Bridge owns the single active playback session.
type Bridge struct {
	rt       Runtime
	refs     *RefRegistry
	active   *Session
	opts     Options
	mu       syncutil.Mutex
	launchMu syncutil.Mutex
}

func NewBridge(rt Runtime, refs *RefRegistry, opts Options) *Bridge {
	if refs == nil {
		refs = NewRefRegistry(DefaultRefPrefix)
	}
	b := &Bridge{
		rt:   rt,
		refs: refs,
		opts: opts,
	}
	rt.OnLifecycleEvent(b.handleEvent)
	return b
}

func (b *Bridge) Refs() *RefRegistry {
	return b.refs
}

// Active returns the current session, nil when nothing is playing.
func (b *Bridge) Active() *Session {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.active
}

func (b *Bridge) coreFor(game *database.Game, platform *systemdefs.Platform) string {
	if core, ok := systemdefs.CoreMap[systemdefs.Ext(game.FileName)]; ok {
		return core
	}
	if platform.Core != "" {
		return platform.Core
	}
	if b.opts.DefaultCore != "" {
		return b.opts.DefaultCore
	}
	return systemdefs.FallbackCore
}

// Launch starts a session for game. Any running session is closed only
// once the new launch passes the file and size checks. A nil confirm with an oversize file returns ErrConfirmationRequired so
// callers without an interactive prompt can ask and retry.
func (b *Bridge) Launch(
	ctx context.Context,
	game database.Game, //nolint:gocritic // copied into the session
	platform systemdefs.Platform, //nolint:gocritic // copied into the session
	confirm Confirmer,
) (*Session, error) {
	b.launchMu.Lock()
	defer b.launchMu.Unlock()

	s := &Session{
		ID:       uuid.New().String(),
		Game:     game,
		Platform: platform,
		bridge:   b,
	}
	s.transition(StateInitializing)

	if game.File == nil {
		log.Warn().Str("game", game.ID).Msg("launch requested for game without file")
		return nil, &MissingFileError{GameID: game.ID, GameName: game.Name}
	}

	size := game.File.Size()
	if b.opts.WarnSize > 0 && size > b.opts.WarnSize {
		if confirm == nil {
			s.Close()
			return nil, ErrConfirmationRequired
		}
		if !confirm(game, size) {
			log.Info().Str("game", game.ID).Int64("size", size).Msg("oversize launch declined")
			s.Close()
			return nil, ErrLaunchCancelled
		}
	}

	if err := ctx.Err(); err != nil {
		s.Close()
		return nil, fmt.Errorf("launch aborted: %w", err)
	}

	b.mu.Lock()
	prev := b.active
	b.active = nil
	b.mu.Unlock()
	if prev != nil {
		log.Info().Str("session", prev.ID).Msg("closing previous emulator session")
		prev.Close()
	}

	token, ref := b.refs.Create(game.File)
	s.mu.Lock()
	s.token = token
	s.ref = ref
	s.core = b.coreFor(&game, &platform)
	core := s.core
	s.mu.Unlock()

	s.transition(StateAwaitingCoreReady)

	b.mu.Lock()
	b.active = s
	b.mu.Unlock()

	log.Info().
		Str("session", s.ID).
		Str("game", game.Name).
		Str("core", core).
		Int64("size", size).
		Msg("launching game")

	err := b.rt.Launch(ctx, core, ref, LaunchMeta{
		SessionID: s.ID,
		GameName:  game.Name,
		Platform:  platform.Name,
	})
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to start emulator: %w", err)
	}

	return s, nil
}

// SendCommand forwards a playback command to the active session.
func (b *Bridge) SendCommand(action string) error {
	if !ValidCommand(action) {
		return fmt.Errorf("%w: %s", ErrUnknownCommand, action)
	}
	if b.Active() == nil {
		return ErrNoSession
	}
	if err := b.rt.SendCommand(action); err != nil {
		return fmt.Errorf("failed to send %s: %w", action, err)
	}
	return nil
}

// Close ends the active session, if any.
func (b *Bridge) Close() {
	if s := b.Active(); s != nil {
		s.Close()
	}
}

func (b *Bridge) release(s *Session) {
	b.mu.Lock()
	if b.active == s {
		b.active = nil
	}
	b.mu.Unlock()
}

func (b *Bridge) handleEvent(ev Event) {
	s := b.Active()
	if s == nil {
		log.Debug().Str("event", string(ev.Type)).Msg("ignoring emulator event without session")
		return
	}
	if ev.SessionID != "" && ev.SessionID != s.ID {
		log.Debug().
			Str("event", string(ev.Type)).
			Str("session", ev.SessionID).
			Msg("ignoring emulator event for stale session")
		return
	}

	switch ev.Type {
	case EventEmulatorLoaded:
		s.transition(StateRunning)
		log.Info().Str("session", s.ID).Msg("emulator core ready")
	case EventGameStarted:
		log.Info().Str("session", s.ID).Str("game", s.Game.Name).Msg("game started")
	case EventGamePaused:
		log.Debug().Str("session", s.ID).Msg("game paused")
	default:
		log.Warn().Str("event", string(ev.Type)).Msg("unknown emulator event")
		return
	}

	if b.opts.OnEvent != nil {
		b.opts.OnEvent(s, ev)
	}
}

// Session is one playback of one game.
type Session struct {
	bridge   *Bridge
	ID       string
	token    string
	ref      string
	core     string
	Platform systemdefs.Platform
	Game     database.Game
	state    SessionState
	mu       syncutil.Mutex
	closing  bool
}

func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Ref is the playback URL handed to the runtime, empty before launch and
// after close.
func (s *Session) Ref() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ref
}

func (s *Session) Core() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.core
}

func (s *Session) transition(to SessionState) bool {
	s.mu.Lock()
	from := s.state
	if !canTransition(from, to) {
		s.mu.Unlock()
		log.Debug().
			Str("session", s.ID).
			Stringer("from", from).
			Stringer("to", to).
			Msg("ignoring invalid session transition")
		return false
	}
	s.state = to
	s.mu.Unlock()

	if cb := s.bridge.opts.OnStateChange; cb != nil {
		cb(s, from, to)
	}
	return true
}

// Close revokes the playback reference and asks the page to leave
// fullscreen and stop the game. Safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closing || s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	s.closing = true
	token := s.token
	started := s.state >= StateAwaitingCoreReady
	s.token = ""
	s.ref = ""
	s.mu.Unlock()

	if token != "" {
		s.bridge.refs.Revoke(token)
	}
	if started {
		for _, cmd := range []string{CommandExitFullscreen, CommandClose} {
			if err := s.bridge.rt.SendCommand(cmd); err != nil {
				log.Warn().Err(err).Str("session", s.ID).Str("command", cmd).Msg("error sending close command")
			}
		}
	}

	s.transition(StateClosed)
	s.bridge.release(s)
	log.Info().Str("session", s.ID).Msg("emulator session closed")
}
