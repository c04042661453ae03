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

package methods

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/ZaparooProject/zaparoo-console/pkg/api/models"
	"github.com/ZaparooProject/zaparoo-console/pkg/api/models/requests"
	"github.com/ZaparooProject/zaparoo-console/pkg/api/validation"
	"github.com/ZaparooProject/zaparoo-console/pkg/database"
	"github.com/ZaparooProject/zaparoo-console/pkg/database/systemdefs"
)

func platformResponse(p *systemdefs.Platform) models.PlatformResponse {
	exts := make([]string, len(p.Extensions))
	copy(exts, p.Extensions)
	return models.PlatformResponse{
		ID:         p.ID,
		Name:       p.Name,
		Color:      p.Color,
		Icon:       p.Icon,
		Core:       p.Core,
		Extensions: exts,
	}
}

func gameResponse(g *database.Game) models.GameResponse {
	return models.GameResponse{
		ID:         g.ID,
		Name:       g.Name,
		FileName:   g.FileName,
		FileSize:   g.FileSize,
		UploadDate: g.UploadDate,
		PlatformID: g.PlatformID,
		SizeBytes:  g.SizeBytes,
		Playable:   g.HasFile(),
	}
}

// LibraryResponse converts a snapshot for the wire.
func LibraryResponse(snap *database.Snapshot) models.LibraryResponse {
	resp := models.LibraryResponse{
		FolderLabel: snap.FolderLabel,
		FolderPath:  snap.FolderPath,
		GameCount:   snap.GameCount(),
		Platforms:   make([]models.PlatformGamesResponse, 0, len(snap.Platforms)),
	}
	for i := range snap.Platforms {
		pg := &snap.Platforms[i]
		games := make([]models.GameResponse, 0, len(pg.Games))
		for j := range pg.Games {
			games = append(games, gameResponse(&pg.Games[j]))
		}
		resp.Platforms = append(resp.Platforms, models.PlatformGamesResponse{
			Platform: platformResponse(&pg.Platform),
			Games:    games,
		})
	}
	return resp
}

func HandlePlatforms(_ requests.RequestEnv) (any, error) { //nolint:gocritic // single-use parameter in API handler
	log.Info().Msg("received platforms request")
	all := systemdefs.AllPlatforms()
	resp := make([]models.PlatformResponse, 0, len(all))
	for i := range all {
		resp = append(resp, platformResponse(&all[i]))
	}
	return resp, nil
}

func HandleLibrary(env requests.RequestEnv) (any, error) { //nolint:gocritic // single-use parameter in API handler
	log.Info().Msg("received library request")
	snap := env.State.Snapshot()
	return LibraryResponse(&snap), nil
}

func HandleLibraryScan(env requests.RequestEnv) (any, error) { //nolint:gocritic // single-use parameter in API handler
	log.Info().Msg("received library scan request")

	var params models.ScanParams
	if err := validation.ValidateAndUnmarshal(env.Params, &params); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}

	snap, err := env.Library.Scan(env.Context, params.Path)
	if err != nil {
		return nil, err
	}
	return LibraryResponse(&snap), nil
}

func HandleLibraryReload(env requests.RequestEnv) (any, error) { //nolint:gocritic // single-use parameter in API handler
	log.Info().Msg("received library reload request")
	snap, err := env.Library.Reload(env.Context)
	if err != nil {
		return nil, err
	}
	return LibraryResponse(&snap), nil
}

func HandleLibraryRescan(env requests.RequestEnv) (any, error) { //nolint:gocritic // single-use parameter in API handler
	log.Info().Msg("received library rescan request")
	snap, err := env.Library.Rescan(env.Context)
	if err != nil {
		return nil, err
	}
	return LibraryResponse(&snap), nil
}

func HandleLibraryReset(env requests.RequestEnv) (any, error) { //nolint:gocritic // single-use parameter in API handler
	log.Info().Msg("received library reset request")
	if err := env.Library.Reset(); err != nil {
		return nil, err
	}
	return nil, nil
}

// HandleLibraryCancel stops a running ingestion. The result reports
// whether one was running.
func HandleLibraryCancel(env requests.RequestEnv) (any, error) { //nolint:gocritic // single-use parameter in API handler
	log.Info().Msg("received library cancel request")
	return map[string]bool{"cancelled": env.Library.CancelIngest()}, nil
}
