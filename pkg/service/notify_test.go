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

package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZaparooProject/zaparoo-console/pkg/api/models"
	"github.com/ZaparooProject/zaparoo-console/pkg/config"
	"github.com/ZaparooProject/zaparoo-console/pkg/database"
	"github.com/ZaparooProject/zaparoo-console/pkg/database/blob"
	"github.com/ZaparooProject/zaparoo-console/pkg/database/systemdefs"
	"github.com/ZaparooProject/zaparoo-console/pkg/emulator"
	"github.com/ZaparooProject/zaparoo-console/pkg/testing/mocks"
)

func drain(ch <-chan models.Notification) []models.Notification {
	var out []models.Notification
	for {
		select {
		case n := <-ch:
			out = append(out, n)
		default:
			return out
		}
	}
}

func TestEmulatorNotifier(t *testing.T) {
	t.Parallel()

	ns := make(chan models.Notification, 10)
	onEvent, onStateChange := emulatorNotifier(ns)

	rt := mocks.NewMockRuntime()
	b := emulator.NewBridge(rt, nil, emulator.Options{
		OnEvent:       onEvent,
		OnStateChange: onStateChange,
	})

	platform, err := systemdefs.LookupPlatform(systemdefs.PlatformNES)
	require.NoError(t, err)
	game := database.Game{
		ID:         "nes_1_0",
		Name:       "Mario",
		FileName:   "Mario.nes",
		PlatformID: systemdefs.PlatformNES,
		SizeBytes:  4,
		File:       blob.New("Mario.nes", "", []byte("NES\x1a")),
	}

	s, err := b.Launch(context.Background(), game, *platform, nil)
	require.NoError(t, err)
	assert.Empty(t, drain(ns))

	rt.Emit(emulator.Event{Type: emulator.EventEmulatorLoaded, SessionID: s.ID})
	rt.Emit(emulator.Event{Type: emulator.EventGameStarted, SessionID: s.ID})
	s.Close()

	got := drain(ns)
	require.Len(t, got, 3)
	assert.Equal(t, models.NotificationEmulatorLoaded, got[0].Method)
	assert.Equal(t, models.NotificationEmulatorStarted, got[1].Method)
	assert.Equal(t, models.NotificationEmulatorClosed, got[2].Method)

	var params models.EmulatorEventParams
	require.NoError(t, json.Unmarshal(got[1].Params, &params))
	assert.Equal(t, s.ID, params.SessionID)
	assert.Equal(t, "Mario", params.GameName)
	assert.Equal(t, systemdefs.PlatformNES, params.PlatformID)
	assert.Equal(t, emulator.StateRunning.String(), params.State)
}

func TestEmulatorNotifier_RefusedLaunchIsSilent(t *testing.T) {
	t.Parallel()

	ns := make(chan models.Notification, 10)
	onEvent, onStateChange := emulatorNotifier(ns)

	rt := mocks.NewMockRuntime()
	b := emulator.NewBridge(rt, nil, emulator.Options{
		WarnSize:      2,
		OnEvent:       onEvent,
		OnStateChange: onStateChange,
	})

	platform, err := systemdefs.LookupPlatform(systemdefs.PlatformNES)
	require.NoError(t, err)
	game := database.Game{
		ID:         "nes_1_0",
		Name:       "Mario",
		FileName:   "Mario.nes",
		PlatformID: systemdefs.PlatformNES,
		SizeBytes:  4,
		File:       blob.New("Mario.nes", "", []byte("NES\x1a")),
	}

	_, err = b.Launch(context.Background(), game, *platform, nil)
	require.ErrorIs(t, err, emulator.ErrConfirmationRequired)
	assert.Empty(t, drain(ns))
}

func TestLogActivity_ReturnsWhenClosed(t *testing.T) {
	t.Parallel()

	ch := make(chan models.Notification, 3)
	ch <- models.Notification{Method: models.NotificationLibraryUpdated, Params: json.RawMessage(`{"gameCount":2}`)}
	ch <- models.Notification{Method: models.NotificationEmulatorStarted, Params: json.RawMessage(`not json`)}
	ch <- models.Notification{Method: models.NotificationCursorChanged}
	close(ch)

	logActivity(ch)
	assert.Empty(t, ch)
}

func TestSetupEnvironment(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg, err := config.NewConfig(dir, config.BaseDefaults)
	require.NoError(t, err)

	require.NoError(t, setupEnvironment(cfg, dir))
	assert.DirExists(t, cfg.UploadDir(dir))
}
