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
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/ZaparooProject/zaparoo-console/pkg/api/models"
	"github.com/ZaparooProject/zaparoo-console/pkg/api/models/requests"
	"github.com/ZaparooProject/zaparoo-console/pkg/api/validation"
	"github.com/ZaparooProject/zaparoo-console/pkg/emulator"
	"github.com/ZaparooProject/zaparoo-console/pkg/helpers"
)

// ConfirmationError carries the details a client needs to ask the user
// before retrying an oversize launch with confirmed set.
type ConfirmationError struct {
	Response models.LaunchConfirmationResponse
}

func (e *ConfirmationError) Error() string {
	return e.Response.Message
}

func (*ConfirmationError) Unwrap() error {
	return emulator.ErrConfirmationRequired
}

// SessionResponse describes a session for the wire.
func SessionResponse(s *emulator.Session) models.SessionResponse {
	return models.SessionResponse{
		SessionID:  s.ID,
		GameID:     s.Game.ID,
		GameName:   s.Game.Name,
		PlatformID: s.Platform.ID,
		Core:       s.Core(),
		GameURL:    s.Ref(),
		State:      s.State().String(),
	}
}

func HandleLaunch(env requests.RequestEnv) (any, error) { //nolint:gocritic // single-use parameter in API handler
	var params models.LaunchParams
	if err := validation.ValidateAndUnmarshal(env.Params, &params); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	log.Info().Msgf("received launch request: %s", params.GameID)

	s, err := env.Library.Launch(env.Context, params.GameID, params.Confirmed)
	if errors.Is(err, emulator.ErrConfirmationRequired) {
		game, _, _ := env.State.FindGame(params.GameID)
		size := game.SizeBytes
		if game.File != nil {
			size = game.File.Size()
		}
		return nil, &ConfirmationError{Response: models.LaunchConfirmationResponse{
			NeedsConfirmation: true,
			SizeBytes:         size,
			FileSize:          helpers.FormatBytes(size),
			Message: fmt.Sprintf(
				"%s is %s and may take a while to load, launch anyway?",
				game.Name, helpers.FormatBytes(size),
			),
		}}
	}
	if err != nil {
		return nil, err
	}
	return SessionResponse(s), nil
}

// HandleSession returns the active session or nil.
func HandleSession(env requests.RequestEnv) (any, error) { //nolint:gocritic // single-use parameter in API handler
	s := env.Library.Bridge().Active()
	if s == nil {
		return nil, nil
	}
	return SessionResponse(s), nil
}

func HandleSessionCommand(env requests.RequestEnv) (any, error) { //nolint:gocritic // single-use parameter in API handler
	var params models.SessionCommandParams
	if err := validation.ValidateAndUnmarshal(env.Params, &params); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	log.Info().Msgf("received session command: %s", params.Action)
	if err := env.Library.Bridge().SendCommand(params.Action); err != nil {
		return nil, err
	}
	return nil, nil
}

func HandleSessionClose(env requests.RequestEnv) (any, error) { //nolint:gocritic // single-use parameter in API handler
	log.Info().Msg("received session close request")
	s := env.Library.Bridge().Active()
	if s == nil {
		return nil, emulator.ErrNoSession
	}
	s.Close()
	return nil, nil
}
