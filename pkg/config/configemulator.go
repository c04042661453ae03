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

package config

import "strings"

const (
	DefaultEmulatorDataPath = "https://cdn.emulatorjs.org/latest/data/"
	DefaultWarnSizeMB       = 25
	DefaultCore             = "nes"
)

type Emulator struct {
	DataPath    string `toml:"data_path"`
	DefaultCore string `toml:"default_core,omitempty"`
	WarnSizeMB  int    `toml:"warn_size_mb" validate:"gte=0"`
}

// EmulatorDataPath returns the EmulatorJS data location, always with a
// trailing slash. A non-URL value is a local directory served by the API.
func (c *Instance) EmulatorDataPath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p := c.vals.Emulator.DataPath
	if p == "" {
		return DefaultEmulatorDataPath
	}
	if !strings.HasSuffix(p, "/") {
		p += "/"
	}
	return p
}

func (c *Instance) EmulatorDataIsLocal() bool {
	p := c.EmulatorDataPath()
	return !strings.HasPrefix(p, "http://") && !strings.HasPrefix(p, "https://")
}

// WarnSizeBytes is the launch size above which playback needs confirmation.
// 0 disables the warning.
func (c *Instance) WarnSizeBytes() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return int64(c.vals.Emulator.WarnSizeMB) * mebibyte
}

func (c *Instance) DefaultCore() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.Emulator.DefaultCore == "" {
		return DefaultCore
	}
	return c.vals.Emulator.DefaultCore
}
