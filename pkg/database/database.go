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

package database

import (
	"github.com/ZaparooProject/zaparoo-console/pkg/database/blob"
	"github.com/ZaparooProject/zaparoo-console/pkg/database/systemdefs"
)

/*
 * Library records shared by the store, the ingestion pipeline, service
 * state and the API. Concrete persistence lives in librarydb.
 */

// Game is a single classified ROM. File is nil when the payload was not
// persisted or could not be decoded after a reload.
type Game struct {
	File       *blob.Handle `json:"-"`
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	FileName   string       `json:"fileName"`
	FileSize   string       `json:"fileSize"`
	UploadDate string       `json:"uploadDate"`
	PlatformID string       `json:"platformId"`
	SourcePath string       `json:"sourcePath,omitempty"`
	SizeBytes  int64        `json:"sizeBytes"`
}

// HasFile reports whether the game can be launched without re-ingesting.
func (g *Game) HasFile() bool {
	return g.File != nil
}

// PlatformGames pairs a platform definition with its games in ingestion
// order.
type PlatformGames struct {
	Games    []Game              `json:"games"`
	Platform systemdefs.Platform `json:"platform"`
}

// Snapshot is the whole library: platforms ordered by game count, the label
// of the selected folder and, for local scans, its absolute path.
type Snapshot struct {
	FolderLabel string          `json:"folderLabel"`
	FolderPath  string          `json:"folderPath,omitempty"`
	Platforms   []PlatformGames `json:"platforms"`
}

func (s Snapshot) Empty() bool {
	return len(s.Platforms) == 0
}

// GameCount is the total number of games across all platforms.
func (s Snapshot) GameCount() int {
	n := 0
	for _, p := range s.Platforms {
		n += len(p.Games)
	}
	return n
}

// FindGame returns the game with id and its platform.
func (s Snapshot) FindGame(id string) (Game, systemdefs.Platform, bool) {
	for _, p := range s.Platforms {
		for _, g := range p.Games {
			if g.ID == id {
				return g, p.Platform, true
			}
		}
	}
	return Game{}, systemdefs.Platform{}, false
}

// SourceFile is one entry of an ingestion batch. Path is relative to the
// selected folder's parent, so its first segment is the folder name.
type SourceFile struct {
	Handle *blob.Handle
	Path   string
	Name   string
	Size   int64
}

// Batch is a set of user-selected files to ingest. FolderPath is set when
// the batch came from a local directory scan.
type Batch struct {
	FolderPath string
	Files      []SourceFile
}
