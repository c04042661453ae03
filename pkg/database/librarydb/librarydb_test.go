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

package librarydb

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/ZaparooProject/zaparoo-console/pkg/config"
	"github.com/ZaparooProject/zaparoo-console/pkg/database"
	"github.com/ZaparooProject/zaparoo-console/pkg/database/blob"
	"github.com/ZaparooProject/zaparoo-console/pkg/database/kvstore"
	"github.com/ZaparooProject/zaparoo-console/pkg/database/systemdefs"
)

const testCeiling = 1024

func platform(t require.TestingT, id string) systemdefs.Platform {
	p, err := systemdefs.LookupPlatform(id)
	require.NoError(t, err)
	return *p
}

func game(platformID, fileName string, size int) database.Game {
	data := bytes.Repeat([]byte{0xAB}, size)
	return database.Game{
		ID:         fmt.Sprintf("%s_1700000000000_%s", platformID, fileName),
		Name:       fileName,
		FileName:   fileName,
		FileSize:   fmt.Sprintf("%d Bytes", size),
		SizeBytes:  int64(size),
		UploadDate: "2025-03-01",
		PlatformID: platformID,
		SourcePath: "Roms/" + fileName,
		File:       blob.New(fileName, "application/octet-stream", data),
	}
}

func testSnapshot(t *testing.T) *database.Snapshot {
	return &database.Snapshot{
		FolderLabel: "Roms",
		FolderPath:  "/home/user/Roms",
		Platforms: []database.PlatformGames{
			{
				Platform: platform(t, systemdefs.PlatformNES),
				Games: []database.Game{
					game(systemdefs.PlatformNES, "small.nes", 600),
					game(systemdefs.PlatformNES, "exact.nes", testCeiling),
				},
			},
			{
				Platform: platform(t, systemdefs.PlatformGBA),
				Games: []database.Game{
					game(systemdefs.PlatformGBA, "big.gba", testCeiling+1),
				},
			},
		},
	}
}

func newStore(mode string, quota int64) (*Store, *kvstore.Memory) {
	kv := kvstore.NewMemory(quota)
	return New(kv, Options{Mode: mode, MaxFileSize: testCeiling}), kv
}

func TestSaveLoad_RespectsCeiling(t *testing.T) {
	t.Parallel()

	s, _ := newStore(config.PersistenceEncoded, 0)
	require.NoError(t, s.SaveE(context.Background(), testSnapshot(t)))

	snap, ok := s.Load(context.Background())
	require.True(t, ok)
	assert.Equal(t, "Roms", snap.FolderLabel)
	assert.Equal(t, "/home/user/Roms", snap.FolderPath)
	require.Len(t, snap.Platforms, 2)
	assert.Equal(t, systemdefs.PlatformNES, snap.Platforms[0].Platform.ID)
	assert.Equal(t, "Nintendo NES", snap.Platforms[0].Platform.Name)
	assert.Equal(t, systemdefs.PlatformGBA, snap.Platforms[1].Platform.ID)

	small := snap.Platforms[0].Games[0]
	require.NotNil(t, small.File)
	assert.Equal(t, int64(600), small.File.Size())
	data, err := small.File.Bytes()
	require.NoError(t, err)
	assert.Equal(t, bytes.Repeat([]byte{0xAB}, 600), data)
	assert.Equal(t, "small.nes", small.File.Name)

	exact := snap.Platforms[0].Games[1]
	assert.Nil(t, exact.File, "files at the ceiling are not persisted")
	assert.Equal(t, "exact.nes", exact.FileName)
	assert.Equal(t, int64(testCeiling), exact.SizeBytes)

	big := snap.Platforms[1].Games[0]
	assert.Nil(t, big.File)
	assert.Equal(t, "2025-03-01", big.UploadDate)
	assert.Equal(t, "gba_1700000000000_big.gba", big.ID)
}

func TestResetThenLoadIsEmpty(t *testing.T) {
	t.Parallel()

	s, kv := newStore(config.PersistenceEncoded, 0)
	require.NoError(t, s.SaveE(context.Background(), testSnapshot(t)))
	s.Reset()

	snap, ok := s.Load(context.Background())
	assert.False(t, ok)
	assert.True(t, snap.Empty())

	for _, key := range allKeys {
		_, found, err := kv.Get(key)
		require.NoError(t, err)
		assert.False(t, found, key)
	}
}

func TestLoad_NothingStored(t *testing.T) {
	t.Parallel()

	s, _ := newStore(config.PersistenceEncoded, 0)
	snap, ok := s.Load(context.Background())
	assert.False(t, ok)
	assert.True(t, snap.Empty())
}

func TestSave_MetadataMode(t *testing.T) {
	t.Parallel()

	s, kv := newStore(config.PersistenceMetadata, 0)
	require.NoError(t, s.SaveE(context.Background(), testSnapshot(t)))

	files, _, err := kv.Get(KeyFiles)
	require.NoError(t, err)
	assert.Equal(t, "{}", files)

	snap, ok := s.Load(context.Background())
	require.True(t, ok)
	assert.Equal(t, 3, snap.GameCount())
	for _, p := range snap.Platforms {
		for _, g := range p.Games {
			assert.Nil(t, g.File)
		}
	}
}

func TestSave_NoneMode(t *testing.T) {
	t.Parallel()

	s, kv := newStore(config.PersistenceNone, 0)
	require.NoError(t, s.SaveE(context.Background(), testSnapshot(t)))

	_, found, err := kv.Get(KeyGames)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSave_QuotaFallsBackToMetadata(t *testing.T) {
	t.Parallel()

	// room for metadata but not for the encoded payload
	s, kv := newStore(config.PersistenceEncoded, 900)
	require.NoError(t, s.SaveE(context.Background(), testSnapshot(t)))

	files, _, err := kv.Get(KeyFiles)
	require.NoError(t, err)
	assert.Equal(t, "{}", files)

	snap, ok := s.Load(context.Background())
	require.True(t, ok)
	assert.Equal(t, 3, snap.GameCount())
}

func TestSave_QuotaTooSmallDegradesToNoop(t *testing.T) {
	t.Parallel()

	s, kv := newStore(config.PersistenceEncoded, 10)
	err := s.SaveE(context.Background(), testSnapshot(t))
	require.ErrorIs(t, err, kvstore.ErrQuotaExceeded)

	// the non-returning variant swallows it
	s.Save(context.Background(), testSnapshot(t))

	_, found, err := kv.Get(KeyGames)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSave_CancelledWritesNothing(t *testing.T) {
	t.Parallel()

	s, kv := newStore(config.PersistenceEncoded, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.SaveE(ctx, testSnapshot(t))
	require.ErrorIs(t, err, context.Canceled)

	_, found, err := kv.Get(KeyPlatforms)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSave_ReplacesPreviousSnapshot(t *testing.T) {
	t.Parallel()

	s, _ := newStore(config.PersistenceEncoded, 0)
	require.NoError(t, s.SaveE(context.Background(), testSnapshot(t)))

	next := &database.Snapshot{
		FolderLabel: "Other",
		Platforms: []database.PlatformGames{{
			Platform: platform(t, systemdefs.PlatformSNES),
			Games:    []database.Game{game(systemdefs.PlatformSNES, "ct.sfc", 10)},
		}},
	}
	require.NoError(t, s.SaveE(context.Background(), next))

	snap, ok := s.Load(context.Background())
	require.True(t, ok)
	require.Len(t, snap.Platforms, 1)
	assert.Equal(t, "Other", snap.FolderLabel)
	assert.Empty(t, snap.FolderPath)
	assert.NotNil(t, snap.Platforms[0].Games[0].File)
}

func TestSave_MissingSourceFileIsSkipped(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/Roms/gone.nes", []byte("nes"), 0o644))
	h, err := blob.FromFile(fs, "/Roms/gone.nes")
	require.NoError(t, err)
	require.NoError(t, fs.Remove("/Roms/gone.nes"))

	g := game(systemdefs.PlatformNES, "gone.nes", 3)
	g.File = h
	snap := &database.Snapshot{
		FolderLabel: "Roms",
		Platforms: []database.PlatformGames{{
			Platform: platform(t, systemdefs.PlatformNES),
			Games:    []database.Game{g},
		}},
	}

	s, _ := newStore(config.PersistenceEncoded, 0)
	require.NoError(t, s.SaveE(context.Background(), snap))

	loaded, ok := s.Load(context.Background())
	require.True(t, ok)
	assert.Nil(t, loaded.Platforms[0].Games[0].File)
}

func TestLoad_DropsUnknownPlatformsAndBadPayloads(t *testing.T) {
	t.Parallel()

	kv := kvstore.NewMemory(0)
	require.NoError(t, kv.SetMany(map[string]string{
		KeyPlatforms:   `["dreamcast","nes"]`,
		KeyGames:       `{"dreamcast":[{"id":"d1","fileName":"a.cdi"}],"nes":[{"id":"n1","fileName":"a.nes"},{"id":"n2","fileName":"b.nes"}]}`,
		KeyFiles:       `{"a.nes":"not a data url","b.nes":"data:application/octet-stream;base64,AQI="}`,
		KeyFolderLabel: "Roms",
	}))

	s := New(kv, Options{MaxFileSize: testCeiling})
	snap, ok := s.Load(context.Background())
	require.True(t, ok)
	require.Len(t, snap.Platforms, 1)
	assert.Equal(t, systemdefs.PlatformNES, snap.Platforms[0].Platform.ID)
	assert.Nil(t, snap.Platforms[0].Games[0].File)
	require.NotNil(t, snap.Platforms[0].Games[1].File)
	assert.Equal(t, int64(2), snap.Platforms[0].Games[1].File.Size())
}

func TestLoad_EmptyEntries(t *testing.T) {
	t.Parallel()

	tests := []struct {
		entries map[string]string
		name    string
	}{
		{name: "empty platform list", entries: map[string]string{KeyPlatforms: `[]`, KeyGames: `{"nes":[]}`}},
		{name: "empty games map", entries: map[string]string{KeyPlatforms: `["nes"]`, KeyGames: `{}`}},
		{name: "missing games", entries: map[string]string{KeyPlatforms: `["nes"]`}},
		{name: "only unknown platforms", entries: map[string]string{
			KeyPlatforms: `["saturn"]`,
			KeyGames:     `{"saturn":[{"id":"s"}]}`,
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			kv := kvstore.NewMemory(0)
			require.NoError(t, kv.SetMany(tt.entries))
			_, ok := New(kv, Options{}).Load(context.Background())
			assert.False(t, ok)
		})
	}
}

func TestLoad_CorruptMetadata(t *testing.T) {
	t.Parallel()

	kv := kvstore.NewMemory(0)
	require.NoError(t, kv.SetMany(map[string]string{KeyPlatforms: `["nes"`, KeyGames: `{}`}))

	s := New(kv, Options{})
	_, _, err := s.LoadE(context.Background())
	require.Error(t, err)

	snap, ok := s.Load(context.Background())
	assert.False(t, ok)
	assert.True(t, snap.Empty())
}

type failingKV struct {
	kvstore.Store
}

var errDisk = errors.New("disk full")

func (failingKV) Get(string) (string, bool, error) { return "", false, errDisk }
func (failingKV) SetMany(map[string]string) error { return errDisk }
func (failingKV) Remove(...string) error { return errDisk }

func TestPersistenceFailuresDegrade(t *testing.T) {
	t.Parallel()

	s := New(failingKV{}, Options{MaxFileSize: testCeiling})

	require.ErrorIs(t, s.SaveE(context.Background(), testSnapshot(t)), errDisk)
	require.ErrorIs(t, s.ResetE(), errDisk)

	assert.NotPanics(t, func() {
		s.Save(context.Background(), testSnapshot(t))
		s.Reset()
	})
	snap, ok := s.Load(context.Background())
	assert.False(t, ok)
	assert.True(t, snap.Empty())
}

// TestPropertyCeiling verifies every payload strictly below the ceiling is
// restored with identical length and every other payload is absent.
func TestPropertyCeiling(t *testing.T) {
	t.Parallel()
	nes := platform(t, systemdefs.PlatformNES)

	rapid.Check(t, func(t *rapid.T) {
		sizes := rapid.SliceOfN(rapid.IntRange(0, 2*testCeiling), 1, 8).Draw(t, "sizes")

		games := make([]database.Game, len(sizes))
		for i, size := range sizes {
			games[i] = game(systemdefs.PlatformNES, fmt.Sprintf("g%d.nes", i), size)
		}
		snap := &database.Snapshot{
			FolderLabel: "Roms",
			Platforms:   []database.PlatformGames{{Platform: nes, Games: games}},
		}

		s, _ := newStore(config.PersistenceEncoded, 0)
		if err := s.SaveE(context.Background(), snap); err != nil {
			t.Fatalf("save failed: %v", err)
		}
		loaded, ok := s.Load(context.Background())
		if !ok {
			t.Fatal("nothing loaded")
		}

		for i, g := range loaded.Platforms[0].Games {
			below := sizes[i] < testCeiling
			switch {
			case below && g.File == nil:
				t.Fatalf("game %d (%d bytes) lost its payload", i, sizes[i])
			case below && g.File.Size() != int64(sizes[i]):
				t.Fatalf("game %d size %d, expected %d", i, g.File.Size(), sizes[i])
			case !below && g.File != nil:
				t.Fatalf("game %d (%d bytes) should not be persisted", i, sizes[i])
			}
		}
	})
}
