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

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ZaparooProject/zaparoo-console/pkg/api/models"
	"github.com/ZaparooProject/zaparoo-console/pkg/api/models/requests"
	"github.com/ZaparooProject/zaparoo-console/pkg/api/validation"
	"github.com/ZaparooProject/zaparoo-console/pkg/config"
)

func settingsResponse(cfg *config.Instance) models.SettingsResponse {
	return models.SettingsResponse{
		PersistenceMode: cfg.PersistenceMode(),
		StorageBackend:  cfg.StorageBackend(),
		EmulatorData:    cfg.EmulatorDataPath(),
		PersistMaxBytes: cfg.PersistMaxFileBytes(),
		WarnSizeBytes:   cfg.WarnSizeBytes(),
		WatchFolder:     cfg.WatchFolder(),
		DebugLogging:    cfg.DebugLogging(),
		ErrorReporting:  cfg.ErrorReporting(),
	}
}

func HandleSettings(env requests.RequestEnv) (any, error) { //nolint:gocritic // single-use parameter in API handler
	log.Info().Msg("received settings request")
	return settingsResponse(env.Config), nil
}

func HandleSettingsUpdate(env requests.RequestEnv) (any, error) { //nolint:gocritic // single-use parameter in API handler
	log.Info().Msg("received settings update request")

	var params models.UpdateSettingsParams
	if err := validation.ValidateAndUnmarshal(env.Params, &params); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}

	if params.PersistenceMode != nil {
		log.Info().Msgf("setting persistence mode: %s", *params.PersistenceMode)
		env.Library.SetPersistenceMode(*params.PersistenceMode)
	}
	if params.WatchFolder != nil {
		env.Library.SetWatchFolder(*params.WatchFolder)
	}
	if params.DebugLogging != nil {
		env.Config.SetDebugLogging(*params.DebugLogging)
		if *params.DebugLogging {
			zerolog.SetGlobalLevel(zerolog.DebugLevel)
		} else {
			zerolog.SetGlobalLevel(zerolog.InfoLevel)
		}
	}
	if params.ErrorReporting != nil {
		env.Config.SetErrorReporting(*params.ErrorReporting)
	}

	if err := env.Config.Save(); err != nil {
		return nil, fmt.Errorf("failed to save settings: %w", err)
	}
	return settingsResponse(env.Config), nil
}

func HandleVersion(_ requests.RequestEnv) (any, error) { //nolint:gocritic // single-use parameter in API handler
	log.Info().Msg("received version request")
	return models.VersionResponse{
		Version: config.AppVersion,
		AppName: config.AppName,
	}, nil
}
