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

package service

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/ZaparooProject/zaparoo-console/pkg/api/models"
	"github.com/ZaparooProject/zaparoo-console/pkg/api/notifications"
	"github.com/ZaparooProject/zaparoo-console/pkg/emulator"
)

func eventParams(s *emulator.Session) models.EmulatorEventParams {
	return models.EmulatorEventParams{
		SessionID:  s.ID,
		GameID:     s.Game.ID,
		GameName:   s.Game.Name,
		PlatformID: s.Platform.ID,
		State:      s.State().String(),
	}
}

// emulatorNotifier turns bridge callbacks into client notifications.
func emulatorNotifier(ns chan<- models.Notification) (
	onEvent func(*emulator.Session, emulator.Event),
	onStateChange func(*emulator.Session, emulator.SessionState, emulator.SessionState),
) {
	onEvent = func(s *emulator.Session, ev emulator.Event) {
		switch ev.Type {
		case emulator.EventEmulatorLoaded:
			notifications.EmulatorLoaded(ns, eventParams(s))
		case emulator.EventGameStarted:
			notifications.EmulatorStarted(ns, eventParams(s))
		case emulator.EventGamePaused:
			notifications.EmulatorPaused(ns, eventParams(s))
		}
	}
	onStateChange = func(s *emulator.Session, from, to emulator.SessionState) {
		// sessions refused before launch never reached the page
		if to != emulator.StateClosed || from < emulator.StateAwaitingCoreReady {
			return
		}
		notifications.EmulatorClosed(ns, eventParams(s))
	}
	return onEvent, onStateChange
}

// logActivity records library and playback activity until notifs closes.
func logActivity(notifs <-chan models.Notification) {
	for notif := range notifs {
		switch notif.Method {
		case models.NotificationEmulatorStarted, models.NotificationEmulatorClosed:
			var p models.EmulatorEventParams
			if err := json.Unmarshal(notif.Params, &p); err != nil {
				log.Warn().Err(err).Msg("invalid emulator notification")
				continue
			}
			log.Info().
				Str("event", notif.Method).
				Str("game", p.GameName).
				Str("platform", p.PlatformID).
				Str("session", p.SessionID).
				Msg("playback activity")
		case models.NotificationLibraryUpdated:
			var p models.LibraryChangedParams
			if err := json.Unmarshal(notif.Params, &p); err != nil {
				log.Warn().Err(err).Msg("invalid library notification")
				continue
			}
			log.Info().
				Str("folder", p.FolderLabel).
				Int("games", p.GameCount).
				Int("platforms", p.PlatformCount).
				Msg("library updated")
		default:
			log.Debug().Str("method", notif.Method).Msg("notification")
		}
	}
}
