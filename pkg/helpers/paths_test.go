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

package helpers

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZaparooProject/zaparoo-console/pkg/config"
)

func TestEnsureDirectories(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	data := filepath.Join(root, "data", "nested")
	logs := filepath.Join(root, "logs")

	require.NoError(t, EnsureDirectories(data, logs))
	// existing dirs are fine
	require.NoError(t, EnsureDirectories(data, logs))

	for _, dir := range []string{data, logs} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

func TestEnsureDirectories_FileInTheWay(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	blocker := filepath.Join(root, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	err := EnsureDirectories(filepath.Join(blocker, "child"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create directory")
}

func TestDirsUseAppName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, config.AppName, filepath.Base(DataDir()))
	assert.Equal(t, config.AppName, filepath.Base(ConfigDir()))
	assert.True(t, strings.HasPrefix(LogDir(), DataDir()))
}
