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

package mocks

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stretchr/testify/mock"

	"github.com/ZaparooProject/zaparoo-console/pkg/emulator"
	"github.com/ZaparooProject/zaparoo-console/pkg/helpers/syncutil"
)

// MockRuntime mocks emulator.Runtime. Lifecycle handlers are recorded
// without expectations so tests can drive events with Emit.
type MockRuntime struct {
	mock.Mock
	handlers []func(emulator.Event)
	mu       syncutil.Mutex
}

// NewMockRuntime returns a runtime whose Launch and SendCommand succeed.
func NewMockRuntime() *MockRuntime {
	m := &MockRuntime{}
	m.On("Launch", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	m.On("SendCommand", mock.Anything).Return(nil).Maybe()
	return m
}

func (m *MockRuntime) Launch(ctx context.Context, core, sourceRef string, meta emulator.LaunchMeta) error {
	args := m.Called(ctx, core, sourceRef, meta)
	if err := args.Error(0); err != nil {
		return fmt.Errorf("mock operation failed: %w", err)
	}
	return nil
}

func (m *MockRuntime) OnLifecycleEvent(fn func(emulator.Event)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = append(m.handlers, fn)
}

func (m *MockRuntime) SendCommand(action string) error {
	args := m.Called(action)
	if err := args.Error(0); err != nil {
		return fmt.Errorf("mock operation failed: %w", err)
	}
	return nil
}

// Emit delivers ev to every registered lifecycle handler.
func (m *MockRuntime) Emit(ev emulator.Event) {
	m.mu.Lock()
	handlers := make([]func(emulator.Event), len(m.handlers))
	copy(handlers, m.handlers)
	m.mu.Unlock()
	for _, fn := range handlers {
		fn(ev)
	}
}

// MockBroadcaster records broadcast messages.
type MockBroadcaster struct {
	Err      error
	Messages [][]byte
	mu       syncutil.Mutex
}

func (m *MockBroadcaster) Broadcast(msg []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	msgCopy := make([]byte, len(msg))
	copy(msgCopy, msg)
	m.Messages = append(m.Messages, msgCopy)
	return nil
}

// Decoded returns every recorded message as a generic JSON object.
func (m *MockBroadcaster) Decoded() []map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]map[string]any, 0, len(m.Messages))
	for _, msg := range m.Messages {
		var v map[string]any
		if err := json.Unmarshal(msg, &v); err == nil {
			out = append(out, v)
		}
	}
	return out
}
