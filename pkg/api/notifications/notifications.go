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

// Package notifications sends JSON-RPC notifications to connected UI
// clients through the state notification channel.
package notifications

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/ZaparooProject/zaparoo-console/pkg/api/models"
)

// sendNotification never blocks. A full channel drops the notification,
// since a stalled websocket must not freeze library or emulator callers.
func sendNotification(ns chan<- models.Notification, method string, payload any) {
	var params json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			log.Error().Err(err).Str("method", method).Msg("marshalling notification params")
			return
		}
		params = data
	}

	select {
	case ns <- models.Notification{Method: method, Params: params}:
	default:
		log.Warn().Str("method", method).Msg("notification channel full, dropping notification")
	}
}

func LibraryUpdated(ns chan<- models.Notification, payload models.LibraryChangedParams) {
	sendNotification(ns, models.NotificationLibraryUpdated, payload)
}

func LibraryReset(ns chan<- models.Notification) {
	sendNotification(ns, models.NotificationLibraryReset, nil)
}

func LibraryFolderChanged(ns chan<- models.Notification, payload models.FolderChangedParams) {
	sendNotification(ns, models.NotificationLibraryFolderChanged, payload)
}

func CursorChanged(ns chan<- models.Notification, payload models.CursorChangedParams) {
	sendNotification(ns, models.NotificationCursorChanged, payload)
}

func EmulatorLoaded(ns chan<- models.Notification, payload models.EmulatorEventParams) {
	sendNotification(ns, models.NotificationEmulatorLoaded, payload)
}

func EmulatorStarted(ns chan<- models.Notification, payload models.EmulatorEventParams) {
	sendNotification(ns, models.NotificationEmulatorStarted, payload)
}

func EmulatorPaused(ns chan<- models.Notification, payload models.EmulatorEventParams) {
	sendNotification(ns, models.NotificationEmulatorPaused, payload)
}

func EmulatorClosed(ns chan<- models.Notification, payload models.EmulatorEventParams) {
	sendNotification(ns, models.NotificationEmulatorClosed, payload)
}
