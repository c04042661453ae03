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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, CfgFile), []byte(contents), 0o600))
	return dir
}

func TestNewConfig_CreatesDefaultFile(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "nested")
	cfg, err := NewConfig(dir, BaseDefaults)
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, CfgFile))
	require.NoError(t, err)

	assert.NotEmpty(t, cfg.DeviceID())
	assert.Equal(t, PersistenceEncoded, cfg.PersistenceMode())
	assert.Equal(t, BackendBolt, cfg.StorageBackend())
	assert.Equal(t, int64(10*1024*1024), cfg.PersistMaxFileBytes())
	assert.Equal(t, int64(25*1024*1024), cfg.WarnSizeBytes())
	assert.Equal(t, DefaultAPIPort, cfg.APIPort())
}

func TestNewConfig_PreservesDeviceID(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	first, err := NewConfig(dir, BaseDefaults)
	require.NoError(t, err)

	second, err := NewConfig(dir, BaseDefaults)
	require.NoError(t, err)

	assert.Equal(t, first.DeviceID(), second.DeviceID())
}

func TestLoad_FileValuesOverrideDefaults(t *testing.T) {
	t.Parallel()

	dir := writeConfig(t, `config_schema = 1
debug_logging = true

[library]
persistence_mode = "metadata"
storage_backend = "sqlite"
persist_max_file_mb = 4
`)

	cfg, err := NewConfig(dir, BaseDefaults)
	require.NoError(t, err)

	assert.True(t, cfg.DebugLogging())
	assert.Equal(t, PersistenceMetadata, cfg.PersistenceMode())
	assert.Equal(t, BackendSQLite, cfg.StorageBackend())
	assert.Equal(t, int64(4*1024*1024), cfg.PersistMaxFileBytes())
	// untouched section keeps defaults
	assert.Equal(t, DefaultEmulatorDataPath, cfg.EmulatorDataPath())
	assert.Equal(t, int64(25*1024*1024), cfg.WarnSizeBytes())
}

func TestLoad_SchemaMismatch(t *testing.T) {
	t.Parallel()

	dir := writeConfig(t, "config_schema = 99\n")
	_, err := NewConfig(dir, BaseDefaults)
	require.ErrorIs(t, err, ErrSchemaMismatch)
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		contents string
	}{
		{
			name:     "unknown persistence mode",
			contents: "config_schema = 1\n[library]\npersistence_mode = \"everything\"\n",
		},
		{
			name:     "unknown backend",
			contents: "config_schema = 1\n[library]\nstorage_backend = \"redis\"\n",
		},
		{
			name:     "negative ceiling",
			contents: "config_schema = 1\n[library]\npersist_max_file_mb = -1\n",
		},
		{
			name:     "port out of range",
			contents: "config_schema = 1\n[service]\napi_port = 70000\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			dir := writeConfig(t, tt.contents)
			_, err := NewConfig(dir, BaseDefaults)
			require.Error(t, err)
		})
	}
}

func TestLoad_InvalidTOML(t *testing.T) {
	t.Parallel()

	dir := writeConfig(t, "config_schema = = 1")
	_, err := NewConfig(dir, BaseDefaults)
	require.Error(t, err)
}

//nolint:paralleltest // modifies env
func TestNewConfig_EnvOverride(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "custom.toml")
	t.Setenv(CfgEnv, cfgPath)

	cfg, err := NewConfig(t.TempDir(), BaseDefaults)
	require.NoError(t, err)
	assert.Equal(t, cfgPath, cfg.Path())

	_, err = os.Stat(cfgPath)
	require.NoError(t, err)
}

func TestSave_RoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg, err := NewConfig(dir, BaseDefaults)
	require.NoError(t, err)

	cfg.SetPersistenceMode(PersistenceNone)
	cfg.SetWatchFolder(true)
	cfg.SetAPIPort(8080)
	require.NoError(t, cfg.Save())

	reloaded, err := NewConfig(dir, BaseDefaults)
	require.NoError(t, err)
	assert.Equal(t, PersistenceNone, reloaded.PersistenceMode())
	assert.Equal(t, BackendMemory, reloaded.StorageBackend())
	assert.True(t, reloaded.WatchFolder())
	assert.Equal(t, 8080, reloaded.APIPort())
	assert.Equal(t, ":8080", reloaded.APIListen())
}

func TestUploadDir(t *testing.T) {
	t.Parallel()

	dataDir := filepath.Join(string(filepath.Separator), "data")
	absDir := filepath.Join(string(filepath.Separator), "srv", "roms")

	tests := []struct {
		name     string
		value    string
		expected string
	}{
		{name: "default", value: "", expected: filepath.Join(dataDir, UploadsDir)},
		{name: "relative", value: "uploads", expected: filepath.Join(dataDir, "uploads")},
		{name: "absolute", value: absDir, expected: absDir},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := &Instance{vals: Values{Service: Service{UploadDir: tt.value}}}
			assert.Equal(t, tt.expected, cfg.UploadDir(dataDir))
		})
	}
}

func TestEmulatorDataPath(t *testing.T) {
	t.Parallel()

	cfg := &Instance{}
	assert.Equal(t, DefaultEmulatorDataPath, cfg.EmulatorDataPath())
	assert.False(t, cfg.EmulatorDataIsLocal())

	cfg = &Instance{vals: Values{Emulator: Emulator{DataPath: "/opt/emulatorjs/data"}}}
	assert.Equal(t, "/opt/emulatorjs/data/", cfg.EmulatorDataPath())
	assert.True(t, cfg.EmulatorDataIsLocal())
}

func TestAllowedOrigins_IncludesDevServer(t *testing.T) {
	t.Parallel()

	cfg := &Instance{vals: Values{Service: Service{
		AllowedOrigins: []string{"http://console.local"},
	}}}
	assert.Equal(t,
		[]string{"http://localhost:3000", "http://console.local"},
		cfg.AllowedOrigins(),
	)
}

func TestGetters_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	cfg := &Instance{}

	done := make(chan struct{})
	for range 10 {
		go func() {
			for range 100 {
				_ = cfg.APIPort()
				_ = cfg.APIListen()
				_ = cfg.PersistenceMode()
				cfg.SetWatchFolder(true)
			}
			done <- struct{}{}
		}()
	}

	for range 10 {
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("concurrent access deadlocked")
		}
	}
}

func TestMQTTPublishers(t *testing.T) {
	t.Parallel()

	dir := writeConfig(t, `config_schema = 1

[[publishers.mqtt]]
broker = "localhost:1883"
topic = "console/events"
filter = ["emulator."]

[[publishers.mqtt]]
enabled = false
broker = "other:1883"
topic = "ignored"
`)

	cfg, err := NewConfig(dir, BaseDefaults)
	require.NoError(t, err)

	pubs := cfg.MQTTPublishers()
	require.Len(t, pubs, 1)
	assert.Equal(t, "localhost:1883", pubs[0].Broker)
	assert.Equal(t, "console/events", pubs[0].Topic)
	assert.Equal(t, []string{"emulator."}, pubs[0].Filter)
}

func TestMQTTPublishers_RequiresTopic(t *testing.T) {
	t.Parallel()

	dir := writeConfig(t, `config_schema = 1

[[publishers.mqtt]]
broker = "localhost:1883"
`)

	_, err := NewConfig(dir, BaseDefaults)
	require.Error(t, err)
}
