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
	"github.com/ZaparooProject/zaparoo-console/pkg/service/state"
)

func cursorResponse(st *state.State) models.CursorResponse {
	c := st.Cursor()
	resp := models.CursorResponse{Platform: c.Platform, Game: c.Game}
	game, platform, ok := st.Selected()
	resp.PlatformID = platform.ID
	if ok {
		resp.GameID = game.ID
	}
	return resp
}

func HandleCursor(env requests.RequestEnv) (any, error) { //nolint:gocritic // single-use parameter in API handler
	return cursorResponse(env.State), nil
}

func HandleCursorUpdate(env requests.RequestEnv) (any, error) { //nolint:gocritic // single-use parameter in API handler
	var params models.CursorParams
	if err := validation.ValidateAndUnmarshal(env.Params, &params); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	err := env.State.SetCursor(state.Cursor{Platform: *params.Platform, Game: *params.Game})
	if err != nil {
		return nil, err
	}
	return cursorResponse(env.State), nil
}

func HandleCursorMove(env requests.RequestEnv) (any, error) { //nolint:gocritic // single-use parameter in API handler
	var params models.MoveCursorParams
	if err := validation.ValidateAndUnmarshal(env.Params, &params); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	log.Debug().Msgf("moving cursor %s", params.Direction)
	if _, err := env.State.MoveCursor(state.Direction(params.Direction)); err != nil {
		return nil, err
	}
	return cursorResponse(env.State), nil
}
