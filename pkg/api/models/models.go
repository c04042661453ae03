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

import (
	"encoding/json"
)

// JSON-RPC methods served on /api/ws. Each has a REST equivalent.
const (
	MethodPlatforms      = "platforms"
	MethodLibrary        = "library"
	MethodLibraryScan    = "library.scan"
	MethodLibraryReload  = "library.reload"
	MethodLibraryRescan  = "library.rescan"
	MethodLibraryReset   = "library.reset"
	MethodLibraryCancel  = "library.cancel"
	MethodCursor         = "cursor"
	MethodCursorUpdate   = "cursor.update"
	MethodCursorMove     = "cursor.move"
	MethodLaunch         = "launch"
	MethodSession        = "session"
	MethodSessionCommand = "session.command"
	MethodSessionClose   = "session.close"
	MethodSettings       = "settings"
	MethodSettingsUpdate = "settings.update"
	MethodVersion        = "version"
)

const (
	NotificationLibraryUpdated       = "library.updated"
	NotificationLibraryReset         = "library.reset"
	NotificationLibraryFolderChanged = "library.folderChanged"
	NotificationCursorChanged        = "cursor.changed"
	NotificationEmulatorLoaded       = "emulator.loaded"
	NotificationEmulatorStarted      = "emulator.started"
	NotificationEmulatorPaused       = "emulator.paused"
	NotificationEmulatorClosed       = "emulator.closed"
)

type Notification struct {
	Method string
	Params json.RawMessage
}

type RequestObject struct {
	ID      *RPCID          `json:"id,omitempty"`
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type ErrorObject struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
}

type ResponseObject struct {
	Result  any          `json:"result"`
	Error   *ErrorObject `json:"error,omitempty"`
	JSONRPC string       `json:"jsonrpc"`
	ID      RPCID        `json:"id"`
}

// ResponseErrorObject omits result so error replies stay valid JSON-RPC
// while nil results are still sent on success.
type ResponseErrorObject struct {
	Error   *ErrorObject `json:"error"`
	JSONRPC string       `json:"jsonrpc"`
	ID      RPCID        `json:"id"`
}
