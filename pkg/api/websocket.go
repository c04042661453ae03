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
	"encoding/json"
	"fmt"

	"github.com/olahol/melody"
	"github.com/rs/zerolog/log"

	"github.com/ZaparooProject/zaparoo-console/pkg/api/middleware"
	"github.com/ZaparooProject/zaparoo-console/pkg/api/models"
	"github.com/ZaparooProject/zaparoo-console/pkg/api/models/requests"
)

func sendResponse(session *melody.Session, id models.RPCID, result any) error {
	log.Debug().Str("id", id.String()).Msg("sending response")

	resp := models.ResponseObject{
		JSONRPC: "2.0",
		ID:      id,
		Result:  result,
	}
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("failed to marshal response: %w", err)
	}
	if err := session.Write(data); err != nil {
		return fmt.Errorf("failed to write response: %w", err)
	}
	return nil
}

func sendError(session *melody.Session, id models.RPCID, errObj models.ErrorObject) error {
	log.Debug().Str("id", id.String()).Msg("sending error")

	resp := models.ResponseErrorObject{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &errObj,
	}
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("failed to marshal error response: %w", err)
	}
	if err := session.Write(data); err != nil {
		return fmt.Errorf("failed to write error response: %w", err)
	}
	return nil
}

func handleRequest(env requests.RequestEnv, req models.RequestObject) (any, *models.ErrorObject) {
	log.Debug().Str("method", req.Method).Msg("received request")

	fn, ok := methodMap[req.Method]
	if !ok {
		log.Error().Str("method", req.Method).Msg("unknown method")
		return nil, &JSONRPCErrorMethodNotFound
	}

	env.Params = req.Params
	resp, err := fn(env)
	if err != nil {
		log.Error().Err(err).Str("method", req.Method).Msg("error handling request")
		errObj := rpcError(err)
		return nil, &errObj
	}
	return resp, nil
}

func (s *Server) handleWSMessage(session *melody.Session, msg []byte) {
	if string(msg) == "ping" {
		if err := session.Write([]byte("pong")); err != nil {
			log.Error().Err(err).Msg("sending pong")
		}
		return
	}

	if !json.Valid(msg) {
		log.Error().Msg("message does not appear to be valid json")
		if err := sendError(session, models.NullRPCID, JSONRPCErrorParseError); err != nil {
			log.Error().Err(err).Msg("error sending error response")
		}
		return
	}

	var req models.RequestObject
	if err := json.Unmarshal(msg, &req); err != nil {
		log.Error().Err(err).Msg("error unmarshalling request")
		if err := sendError(session, models.NullRPCID, JSONRPCErrorInvalidRequest); err != nil {
			log.Error().Err(err).Msg("error sending error response")
		}
		return
	}

	if req.JSONRPC != "2.0" {
		log.Error().Str("version", req.JSONRPC).Msg("unsupported JSON-RPC version")
		if err := sendError(session, models.NullRPCID, JSONRPCErrorInvalidRequest); err != nil {
			log.Error().Err(err).Msg("error sending error response")
		}
		return
	}

	// requests without an id are notifications and are ignored
	if req.ID == nil || req.ID.IsAbsent() {
		log.Debug().Str("method", req.Method).Msg("ignoring notification from client")
		return
	}
	id := *req.ID

	env := requests.RequestEnv{
		Context: s.opts.State.GetContext(),
		Config:  s.opts.Config,
		State:   s.opts.State,
		Library: s.opts.Library,
		ID:      id,
		IsLocal: middleware.IsLoopbackAddr(session.Request.RemoteAddr),
	}

	resp, rpcErr := handleRequest(env, req)
	if rpcErr != nil {
		if err := sendError(session, id, *rpcErr); err != nil {
			log.Error().Err(err).Msg("error sending error response")
		}
		return
	}
	if err := sendResponse(session, id, resp); err != nil {
		log.Error().Err(err).Msg("error sending response")
	}
}
