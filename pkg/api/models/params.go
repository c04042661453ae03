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

package models

type ScanParams struct {
	Path string `json:"path" validate:"required"`
}

type CursorParams struct {
	Platform *int `json:"platform" validate:"required,gte=0"`
	Game     *int `json:"game" validate:"required,gte=0"`
}

type MoveCursorParams struct {
	Direction string `json:"direction" validate:"required,oneof=left right up down"`
}

type LaunchParams struct {
	GameID    string `json:"gameId" validate:"required"`
	Confirmed bool   `json:"confirmed"`
}

type SessionCommandParams struct {
	Action string `json:"action" validate:"required,command"`
}

type UpdateSettingsParams struct {
	PersistenceMode *string `json:"persistenceMode" validate:"omitempty,oneof=none metadata encoded"`
	WatchFolder     *bool   `json:"watchFolder"`
	DebugLogging    *bool   `json:"debugLogging"`
	ErrorReporting  *bool   `json:"errorReporting"`
}

// LibraryChangedParams is the payload of library.updated and
// library.folderChanged.
type LibraryChangedParams struct {
	FolderLabel   string `json:"folderLabel"`
	FolderPath    string `json:"folderPath,omitempty"`
	GameCount     int    `json:"gameCount"`
	PlatformCount int    `json:"platformCount"`
}

type FolderChangedParams struct {
	Path string `json:"path"`
}

type CursorChangedParams struct {
	PlatformID string `json:"platformId,omitempty"`
	GameID     string `json:"gameId,omitempty"`
	Platform   int    `json:"platform"`
	Game       int    `json:"game"`
}

type EmulatorEventParams struct {
	SessionID  string `json:"sessionId"`
	GameID     string `json:"gameId"`
	GameName   string `json:"gameName"`
	PlatformID string `json:"platformId"`
	State      string `json:"state"`
}
