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

package emulator

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/ZaparooProject/zaparoo-console/pkg/helpers/syncutil"
)

// Broadcaster delivers a message to every connected emulator page.
// *melody.Melody satisfies it.
type Broadcaster interface {
	Broadcast(msg []byte) error
}

// InitMessage is the INIT_GAME payload.
type InitMessage struct {
	Type      string `json:"type"`
	Core      string `json:"core"`
	GameURL   string `json:"gameUrl"`
	GameName  string `json:"gameName"`
	Platform  string `json:"platform"`
	SessionID string `json:"sessionId"`
}

type CommandMessage struct {
	Type   string `json:"type"`
	Action string `json:"action"`
}

// WSRuntime is a Runtime over the emulator page websocket. The last
// INIT_GAME is kept so a page that connects after Launch still boots the
// game.
type WSRuntime struct {
	out      Broadcaster
	pending  *InitMessage
	handlers []func(Event)
	mu       syncutil.RWMutex
}

func NewWSRuntime(out Broadcaster) *WSRuntime {
	return &WSRuntime{out: out}
}

func (w *WSRuntime) Launch(_ context.Context, core, sourceRef string, meta LaunchMeta) error {
	msg := InitMessage{
		Type:      MessageInitGame,
		Core:      core,
		GameURL:   sourceRef,
		GameName:  meta.GameName,
		Platform:  meta.Platform,
		SessionID: meta.SessionID,
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal init message: %w", err)
	}

	w.mu.Lock()
	w.pending = &msg
	w.mu.Unlock()

	if err := w.out.Broadcast(data); err != nil {
		return fmt.Errorf("failed to broadcast init message: %w", err)
	}
	return nil
}

func (w *WSRuntime) OnLifecycleEvent(fn func(Event)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers = append(w.handlers, fn)
}

func (w *WSRuntime) SendCommand(action string) error {
	if action == CommandClose {
		w.mu.Lock()
		w.pending = nil
		w.mu.Unlock()
	}
	data, err := json.Marshal(CommandMessage{Type: MessageCommand, Action: action})
	if err != nil {
		return fmt.Errorf("failed to marshal command: %w", err)
	}
	if err := w.out.Broadcast(data); err != nil {
		return fmt.Errorf("failed to broadcast command: %w", err)
	}
	return nil
}

// Pending returns the INIT_GAME of the current session.
func (w *WSRuntime) Pending() (InitMessage, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.pending == nil {
		return InitMessage{}, false
	}
	return *w.pending, true
}

// PendingMessage is Pending encoded for a page that connected after the
// launch, sent as INIT_EMULATOR so the page boots the core from scratch.
func (w *WSRuntime) PendingMessage() ([]byte, bool) {
	msg, ok := w.Pending()
	if !ok {
		return nil, false
	}
	msg.Type = MessageInitEmulator
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Msg("marshalling pending init message")
		return nil, false
	}
	return data, true
}

// HandleMessage parses an inbound page message and dispatches it to the
// registered handlers.
func (w *WSRuntime) HandleMessage(msg []byte) error {
	var ev Event
	if err := json.Unmarshal(msg, &ev); err != nil {
		return fmt.Errorf("invalid emulator message: %w", err)
	}
	if !ev.Type.Valid() {
		return fmt.Errorf("unknown emulator message type: %q", ev.Type)
	}

	w.mu.RLock()
	handlers := make([]func(Event), len(w.handlers))
	copy(handlers, w.handlers)
	w.mu.RUnlock()

	for _, fn := range handlers {
		fn(ev)
	}
	return nil
}
