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

package cli

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZaparooProject/zaparoo-console/pkg/api/models"
	"github.com/ZaparooProject/zaparoo-console/pkg/config"
)

type call struct {
	method string
	params string
}

type fakeService struct {
	resp  map[string]string
	err   error
	calls []call
}

func (f *fakeService) call(_ context.Context, method, params string) (string, error) {
	f.calls = append(f.calls, call{method: method, params: params})
	if f.err != nil {
		return "", f.err
	}
	return f.resp[method], nil
}

const libraryJSON = `{"folderLabel":"Roms","gameCount":2,"platforms":[` +
	`{"platform":{"id":"nes","name":"Nintendo Entertainment System"},"games":[` +
	`{"id":"nes_1_0","name":"Mario","fileName":"Mario.nes","fileSize":"4 Bytes","playable":true},` +
	`{"id":"nes_1_1","name":"Zelda","fileName":"Zelda.nes","fileSize":"5 Bytes","playable":false}]}]}`

func newFlags(t *testing.T, args ...string) *Flags {
	t.Helper()
	f := SetupFlags(flag.NewFlagSet("console", flag.ContinueOnError))
	exit, err := f.Pre(args, &bytes.Buffer{})
	require.NoError(t, err)
	require.False(t, exit)
	return f
}

func noPick() (string, error) {
	return "", errors.New("unexpected pick")
}

func TestPre_Version(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	f := SetupFlags(flag.NewFlagSet("console", flag.ContinueOnError))
	exit, err := f.Pre([]string{"-version"}, &out)
	require.NoError(t, err)
	assert.True(t, exit)
	assert.Contains(t, out.String(), config.AppName)
}

func TestPre_BadFlag(t *testing.T) {
	t.Parallel()

	fs := flag.NewFlagSet("console", flag.ContinueOnError)
	fs.SetOutput(&bytes.Buffer{})
	f := SetupFlags(fs)
	exit, err := f.Pre([]string{"-nope"}, &bytes.Buffer{})
	require.Error(t, err)
	assert.True(t, exit)
}

func TestPost_Scan(t *testing.T) {
	t.Parallel()

	svc := &fakeService{resp: map[string]string{models.MethodLibraryScan: libraryJSON}}
	f := newFlags(t, "-scan", "/media/Roms")

	var out bytes.Buffer
	handled, err := f.Post(context.Background(), svc.call, noPick, &out)
	require.NoError(t, err)
	assert.True(t, handled)
	require.Len(t, svc.calls, 1)
	assert.JSONEq(t, `{"path":"/media/Roms"}`, svc.calls[0].params)
	assert.Contains(t, out.String(), "Roms: 2 games on 1 platforms")
	assert.Contains(t, out.String(), "Mario.nes")
}

func TestPost_ScanNeedsValue(t *testing.T) {
	t.Parallel()

	f := newFlags(t, "-scan", "")
	handled, err := f.Post(context.Background(), (&fakeService{}).call, noPick, &bytes.Buffer{})
	assert.True(t, handled)
	require.ErrorIs(t, err, ErrFlagValue)
}

func TestPost_Pick(t *testing.T) {
	t.Parallel()

	svc := &fakeService{resp: map[string]string{models.MethodLibraryScan: libraryJSON}}
	f := newFlags(t, "-pick")

	handled, err := f.Post(context.Background(), svc.call, func() (string, error) {
		return "/home/sam/roms", nil
	}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.True(t, handled)
	assert.JSONEq(t, `{"path":"/home/sam/roms"}`, svc.calls[0].params)

	f = newFlags(t, "-pick")
	_, err = f.Post(context.Background(), svc.call, noPick, &bytes.Buffer{})
	require.Error(t, err)
}

func TestPost_List(t *testing.T) {
	t.Parallel()

	svc := &fakeService{resp: map[string]string{models.MethodLibrary: libraryJSON}}
	f := newFlags(t, "-list")

	var out bytes.Buffer
	handled, err := f.Post(context.Background(), svc.call, noPick, &out)
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Contains(t, out.String(), "Nintendo Entertainment System (2)")
	assert.Contains(t, out.String(), "missing")
}

func TestPost_Reset(t *testing.T) {
	t.Parallel()

	svc := &fakeService{}
	f := newFlags(t, "-reset")

	var out bytes.Buffer
	handled, err := f.Post(context.Background(), svc.call, noPick, &out)
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Equal(t, models.MethodLibraryReset, svc.calls[0].method)
	assert.Equal(t, "Library cleared\n", out.String())
}

func TestPost_API(t *testing.T) {
	t.Parallel()

	svc := &fakeService{resp: map[string]string{models.MethodCursorMove: `{"game":1}`}}
	f := newFlags(t, "-api", `cursor.move:{"direction":"down"}`)

	var out bytes.Buffer
	handled, err := f.Post(context.Background(), svc.call, noPick, &out)
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Equal(t, call{method: models.MethodCursorMove, params: `{"direction":"down"}`}, svc.calls[0])
	assert.Equal(t, "{\"game\":1}\n", out.String())
}

func TestPost_ServiceError(t *testing.T) {
	t.Parallel()

	svc := &fakeService{err: errors.New("connection refused")}
	f := newFlags(t, "-list")

	_, err := f.Post(context.Background(), svc.call, noPick, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestPost_NothingToDo(t *testing.T) {
	t.Parallel()

	f := newFlags(t, "-daemon")
	handled, err := f.Post(context.Background(), (&fakeService{}).call, noPick, &bytes.Buffer{})
	require.NoError(t, err)
	assert.False(t, handled)
	assert.True(t, *f.Daemon)
}

func TestWriteLibrary_Empty(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	require.NoError(t, WriteLibrary(&out, &models.LibraryResponse{}))
	assert.Equal(t, "Library is empty\n", out.String())
}
