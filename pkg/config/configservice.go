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

import (
	"path/filepath"
	"strconv"
)

const DefaultAPIPort = 3001

type Service struct {
	APIPort        *int      `toml:"api_port,omitempty" validate:"omitempty,gte=1,lte=65535"`
	DeviceID       string    `toml:"device_id"`
	APIListen      string    `toml:"api_listen,omitempty"`
	UploadDir      string    `toml:"upload_dir,omitempty"`
	AllowedOrigins []string  `toml:"allowed_origins,omitempty"`
	Discovery      Discovery `toml:"discovery,omitempty"`
}

type Discovery struct {
	Enabled      *bool  `toml:"enabled,omitempty"`
	InstanceName string `toml:"instance_name,omitempty"`
}

func (c *Instance) APIPort() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.apiPortLocked()
}

// apiPortLocked returns the API port. Caller must hold mu (read or write).
func (c *Instance) apiPortLocked() int {
	if c.vals.Service.APIPort == nil {
		return DefaultAPIPort
	}
	return *c.vals.Service.APIPort
}

func (c *Instance) SetAPIPort(port int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Service.APIPort = &port
}

func (c *Instance) APIListen() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.Service.APIListen == "" {
		return ":" + strconv.Itoa(c.apiPortLocked())
	}
	return c.vals.Service.APIListen
}

// AllowedOrigins returns the extra CORS origins. The local web front end
// dev server is always allowed.
func (c *Instance) AllowedOrigins() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	origins := []string{"http://localhost:3000"}
	return append(origins, c.vals.Service.AllowedOrigins...)
}

// UploadDir resolves the directory used by the upload endpoint. Relative
// paths are resolved against dataDir.
func (c *Instance) UploadDir(dataDir string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	dir := c.vals.Service.UploadDir
	switch {
	case dir == "":
		return filepath.Join(dataDir, UploadsDir)
	case filepath.IsAbs(dir):
		return dir
	default:
		return filepath.Join(dataDir, dir)
	}
}

func (c *Instance) DeviceID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Service.DeviceID
}

func (c *Instance) DiscoveryEnabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.Service.Discovery.Enabled == nil {
		return false
	}
	return *c.vals.Service.Discovery.Enabled
}

func (c *Instance) DiscoveryInstanceName() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Service.Discovery.InstanceName
}
