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

package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/ZaparooProject/zaparoo-console/pkg/api/models"
	"github.com/ZaparooProject/zaparoo-console/pkg/config"
)

var (
	ErrRequestTimeout   = errors.New("request timed out")
	ErrInvalidParams    = errors.New("invalid params")
	ErrRequestCancelled = errors.New("request cancelled")
)

const APIPath = "/api/ws"

// LocalURL is the websocket address of the service running on this host.
func LocalURL(cfg *config.Instance) string {
	u := url.URL{
		Scheme: "ws",
		Host:   "localhost:" + strconv.Itoa(cfg.APIPort()),
		Path:   APIPath,
	}
	return u.String()
}

// LocalClient sends a single method call to the local running service and
// returns the JSON encoded result.
func LocalClient(ctx context.Context, cfg *config.Instance, method, params string) (string, error) {
	return Call(ctx, LocalURL(cfg), config.APIRequestTimeout, method, params)
}

func closeConn(c *websocket.Conn) {
	if err := c.Close(); err != nil {
		log.Warn().Err(err).Msg("error closing websocket")
	}
}

// Call dials wsURL, sends one request and waits for its response.
func Call(ctx context.Context, wsURL string, timeout time.Duration, method, params string) (string, error) {
	id := models.NewStringID(uuid.New().String())

	req := models.RequestObject{
		JSONRPC: "2.0",
		ID:      &id,
		Method:  method,
	}
	switch {
	case params == "":
	case json.Valid([]byte(params)):
		req.Params = json.RawMessage(params)
	default:
		return "", ErrInvalidParams
	}

	c, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return "", fmt.Errorf("failed to connect to service: %w", err)
	}
	defer closeConn(c)

	done := make(chan struct{})
	var result *models.ResponseObject

	go func() {
		defer close(done)
		for {
			_, message, err := c.ReadMessage()
			if err != nil {
				log.Debug().Err(err).Msg("websocket read ended")
				return
			}

			var m models.ResponseObject
			if err := json.Unmarshal(message, &m); err != nil {
				continue
			}
			if m.JSONRPC != "2.0" || m.ID.String() != id.String() {
				continue
			}

			result = &m
			return
		}
	}()

	if err := c.WriteJSON(req); err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
	case <-timer.C:
		closeConn(c)
		return "", ErrRequestTimeout
	case <-ctx.Done():
		closeConn(c)
		return "", ErrRequestCancelled
	}

	if result == nil {
		return "", ErrRequestTimeout
	}
	if result.Error != nil {
		return "", errors.New(result.Error.Message)
	}

	b, err := json.Marshal(result.Result)
	if err != nil {
		return "", fmt.Errorf("failed to encode result: %w", err)
	}
	return string(b), nil
}

// WaitNotification blocks until the service broadcasts the named
// notification and returns its params. A negative timeout waits forever.
func WaitNotification(ctx context.Context, wsURL string, timeout time.Duration, method string) (string, error) {
	c, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return "", fmt.Errorf("failed to connect to service: %w", err)
	}
	defer closeConn(c)

	done := make(chan struct{})
	var notif *models.RequestObject

	go func() {
		defer close(done)
		for {
			_, message, err := c.ReadMessage()
			if err != nil {
				log.Debug().Err(err).Msg("websocket read ended")
				return
			}

			var m models.RequestObject
			if err := json.Unmarshal(message, &m); err != nil {
				continue
			}
			if m.JSONRPC != "2.0" || m.ID != nil || m.Method != method {
				continue
			}

			notif = &m
			return
		}
	}()

	var timerChan <-chan time.Time
	if timeout >= 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		timerChan = timer.C
	}

	select {
	case <-done:
	case <-timerChan:
		closeConn(c)
		return "", ErrRequestTimeout
	case <-ctx.Done():
		closeConn(c)
		return "", ErrRequestCancelled
	}

	if notif == nil {
		return "", ErrRequestTimeout
	}
	return string(notif.Params), nil
}
