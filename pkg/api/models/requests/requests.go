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

package requests

import (
	"context"
	"encoding/json"

	"github.com/ZaparooProject/zaparoo-console/pkg/api/models"
	"github.com/ZaparooProject/zaparoo-console/pkg/config"
	"github.com/ZaparooProject/zaparoo-console/pkg/service/library"
	"github.com/ZaparooProject/zaparoo-console/pkg/service/state"
)

// RequestEnv is everything a method handler can reach. The same handlers
// serve JSON-RPC over /api/ws and the REST routes.
type RequestEnv struct {
	Context context.Context
	Config  *config.Instance
	State   *state.State
	Library *library.Manager
	Params  json.RawMessage
	ID      models.RPCID
	IsLocal bool
}
