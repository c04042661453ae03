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

type PlatformResponse struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Color      string   `json:"color"`
	Icon       string   `json:"icon"`
	Core       string   `json:"core"`
	Extensions []string `json:"extensions"`
}

type GameResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	FileName   string `json:"fileName"`
	FileSize   string `json:"fileSize"`
	UploadDate string `json:"uploadDate"`
	PlatformID string `json:"platformId"`
	SizeBytes  int64  `json:"sizeBytes"`
	// Playable is false for games restored without their payload.
	Playable bool `json:"playable"`
}

type PlatformGamesResponse struct {
	Games    []GameResponse   `json:"games"`
	Platform PlatformResponse `json:"platform"`
}

type LibraryResponse struct {
	FolderLabel string                  `json:"folderLabel"`
	FolderPath  string                  `json:"folderPath,omitempty"`
	Platforms   []PlatformGamesResponse `json:"platforms"`
	GameCount   int                     `json:"gameCount"`
}

type CursorResponse struct {
	PlatformID string `json:"platformId,omitempty"`
	GameID     string `json:"gameId,omitempty"`
	Platform   int    `json:"platform"`
	Game       int    `json:"game"`
}

type SessionResponse struct {
	SessionID  string `json:"sessionId"`
	GameID     string `json:"gameId"`
	GameName   string `json:"gameName"`
	PlatformID string `json:"platformId"`
	Core       string `json:"core"`
	GameURL    string `json:"gameUrl"`
	State      string `json:"state"`
}

// LaunchConfirmationResponse is returned with 409 when an oversize launch
// was not confirmed.
type LaunchConfirmationResponse struct {
	Message           string `json:"message"`
	FileSize          string `json:"fileSize"`
	SizeBytes         int64  `json:"sizeBytes"`
	NeedsConfirmation bool   `json:"needsConfirmation"`
}

type UploadResponse struct {
	Filename     string `json:"filename"`
	OriginalName string `json:"originalName"`
	Path         string `json:"path"`
	Success      bool   `json:"success"`
}

type CleanupResponse struct {
	Success bool `json:"success"`
}

type SettingsResponse struct {
	PersistenceMode string `json:"persistenceMode"`
	StorageBackend  string `json:"storageBackend"`
	EmulatorData    string `json:"emulatorDataPath"`
	PersistMaxBytes int64  `json:"persistMaxBytes"`
	WarnSizeBytes   int64  `json:"warnSizeBytes"`
	WatchFolder     bool   `json:"watchFolder"`
	DebugLogging    bool   `json:"debugLogging"`
	ErrorReporting  bool   `json:"errorReporting"`
}

type VersionResponse struct {
	Version string `json:"version"`
	AppName string `json:"appName"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
