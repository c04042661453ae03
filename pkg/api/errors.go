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

package api

import (
	"context"
	"errors"
	"net/http"
	"os"

	"github.com/ZaparooProject/zaparoo-console/pkg/api/methods"
	"github.com/ZaparooProject/zaparoo-console/pkg/api/models"
	"github.com/ZaparooProject/zaparoo-console/pkg/api/validation"
	"github.com/ZaparooProject/zaparoo-console/pkg/database/mediascanner"
	"github.com/ZaparooProject/zaparoo-console/pkg/emulator"
	"github.com/ZaparooProject/zaparoo-console/pkg/service/library"
	"github.com/ZaparooProject/zaparoo-console/pkg/service/state"
)

var JSONRPCErrorParseError = models.ErrorObject{
	Code:    -32700,
	Message: "Parse error",
}

var JSONRPCErrorInvalidRequest = models.ErrorObject{
	Code:    -32600,
	Message: "Invalid Request",
}

var JSONRPCErrorMethodNotFound = models.ErrorObject{
	Code:    -32601,
	Message: "Method not found",
}

const (
	jsonRPCInvalidParams = -32602
	jsonRPCServerError   = -32000
)

func isInvalidParams(err error) bool {
	var verr *validation.Error
	return errors.As(err, &verr) ||
		errors.Is(err, validation.ErrMissingParams) ||
		errors.Is(err, validation.ErrInvalidParams)
}

// errorStatus maps handler errors to HTTP status codes.
func errorStatus(err error) int {
	var missing *emulator.MissingFileError
	switch {
	case isInvalidParams(err),
		errors.Is(err, emulator.ErrUnknownCommand),
		errors.Is(err, state.ErrCursorOutOfRange),
		errors.Is(err, state.ErrUnknownDirection):
		return http.StatusBadRequest
	case errors.Is(err, library.ErrGameNotFound),
		errors.Is(err, emulator.ErrNoSession),
		errors.Is(err, os.ErrNotExist):
		return http.StatusNotFound
	case errors.Is(err, emulator.ErrConfirmationRequired),
		errors.Is(err, emulator.ErrLaunchCancelled),
		errors.Is(err, library.ErrIngestInProgress),
		errors.Is(err, library.ErrNoFolder),
		errors.Is(err, state.ErrEmptyLibrary),
		errors.Is(err, context.Canceled):
		return http.StatusConflict
	case errors.As(err, &missing):
		return http.StatusGone
	case errors.Is(err, mediascanner.ErrNoSupportedGames),
		errors.Is(err, mediascanner.ErrEmptyBatch):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeMethodError(w http.ResponseWriter, err error) {
	var confirm *methods.ConfirmationError
	if errors.As(err, &confirm) {
		methods.WriteJSON(w, http.StatusConflict, confirm.Response)
		return
	}
	methods.WriteError(w, errorStatus(err), err.Error())
}

func rpcError(err error) models.ErrorObject {
	if isInvalidParams(err) {
		return models.ErrorObject{Code: jsonRPCInvalidParams, Message: err.Error()}
	}
	return models.ErrorObject{Code: jsonRPCServerError, Message: err.Error()}
}
