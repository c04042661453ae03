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

package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZaparooProject/zaparoo-console/pkg/api/methods"
	"github.com/ZaparooProject/zaparoo-console/pkg/api/models"
	"github.com/ZaparooProject/zaparoo-console/pkg/api/validation"
	"github.com/ZaparooProject/zaparoo-console/pkg/config"
	"github.com/ZaparooProject/zaparoo-console/pkg/database/kvstore"
	"github.com/ZaparooProject/zaparoo-console/pkg/database/librarydb"
	"github.com/ZaparooProject/zaparoo-console/pkg/database/mediascanner"
	"github.com/ZaparooProject/zaparoo-console/pkg/emulator"
	"github.com/ZaparooProject/zaparoo-console/pkg/service/library"
	"github.com/ZaparooProject/zaparoo-console/pkg/service/state"
	"github.com/ZaparooProject/zaparoo-console/pkg/testing/helpers"
)

type testServer struct {
	server  *Server
	state   *state.State
	manager *library.Manager
	runtime *emulator.WSRuntime
	notifs  <-chan models.Notification
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	cfg, err := config.NewConfig(t.TempDir(), config.BaseDefaults)
	require.NoError(t, err)

	fs := helpers.NewMemoryFS()
	require.NoError(t, fs.CreateDirectoryStructure("/media", helpers.BasicRomFolder()))

	st, ns := state.NewState()
	t.Cleanup(st.StopService)

	hub := NewEmulatorHub()
	rt := emulator.NewWSRuntime(hub)
	bridge := emulator.NewBridge(rt, nil, emulator.Options{WarnSize: 4})
	store := librarydb.New(kvstore.NewMemory(0), librarydb.Options{
		Mode:        config.PersistenceEncoded,
		MaxFileSize: 1024,
	})
	m := library.NewManager(library.Options{
		Config:  cfg,
		State:   st,
		Store:   store,
		Scanner: mediascanner.New(),
		Bridge:  bridge,
		Fs:      fs.Fs,
	})
	t.Cleanup(m.Close)

	s := NewServer(Options{
		Config:      cfg,
		State:       st,
		Library:     m,
		Runtime:     rt,
		EmulatorHub: hub,
		Uploads:     methods.NewUploads(helpers.NewMemoryFS().Fs, nil),
	})

	return &testServer{server: s, state: st, manager: m, runtime: rt, notifs: ns}
}

func (ts *testServer) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	ts.server.Handler().ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) scan(t *testing.T) {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/api/library/scan", `{"path":"/media/Roms"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func (ts *testServer) gameID(t *testing.T, fileName string) string {
	t.Helper()
	snap := ts.state.Snapshot()
	for _, pg := range snap.Platforms {
		for _, g := range pg.Games {
			if g.FileName == fileName {
				return g.ID
			}
		}
	}
	t.Fatalf("game %s not in library", fileName)
	return ""
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestErrorStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		name string
		want int
	}{
		{name: "validation", err: &validation.Error{Fields: []validation.FieldError{{Field: "path", Tag: "required"}}}, want: http.StatusBadRequest},
		{name: "missing params", err: fmt.Errorf("invalid params: %w", validation.ErrMissingParams), want: http.StatusBadRequest},
		{name: "unknown command", err: emulator.ErrUnknownCommand, want: http.StatusBadRequest},
		{name: "cursor range", err: state.ErrCursorOutOfRange, want: http.StatusBadRequest},
		{name: "game not found", err: library.ErrGameNotFound, want: http.StatusNotFound},
		{name: "no session", err: emulator.ErrNoSession, want: http.StatusNotFound},
		{name: "not exist", err: os.ErrNotExist, want: http.StatusNotFound},
		{name: "confirmation", err: emulator.ErrConfirmationRequired, want: http.StatusConflict},
		{name: "busy", err: library.ErrIngestInProgress, want: http.StatusConflict},
		{name: "no folder", err: library.ErrNoFolder, want: http.StatusConflict},
		{name: "empty library", err: state.ErrEmptyLibrary, want: http.StatusConflict},
		{name: "cancelled", err: fmt.Errorf("ingestion failed: %w", context.Canceled), want: http.StatusConflict},
		{name: "missing file", err: &emulator.MissingFileError{GameID: "x", GameName: "X"}, want: http.StatusGone},
		{name: "no games", err: mediascanner.ErrNoSupportedGames, want: http.StatusUnprocessableEntity},
		{name: "empty batch", err: mediascanner.ErrEmptyBatch, want: http.StatusUnprocessableEntity},
		{name: "other", err: errors.New("boom"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, errorStatus(tt.err))
		})
	}
}

func TestRPCError(t *testing.T) {
	t.Parallel()

	obj := rpcError(fmt.Errorf("invalid params: %w", validation.ErrInvalidParams))
	assert.Equal(t, jsonRPCInvalidParams, obj.Code)

	obj = rpcError(library.ErrGameNotFound)
	assert.Equal(t, jsonRPCServerError, obj.Code)
	assert.Equal(t, library.ErrGameNotFound.Error(), obj.Message)
}

func TestREST_ScanAndLibrary(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/library", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, decode[models.LibraryResponse](t, rec).GameCount)

	ts.scan(t)

	rec = ts.do(t, http.MethodGet, "/api/library", "")
	require.Equal(t, http.StatusOK, rec.Code)
	lib := decode[models.LibraryResponse](t, rec)
	assert.Equal(t, 6, lib.GameCount)
	assert.Equal(t, "Roms", lib.FolderLabel)
	assert.Contains(t, rec.Header().Get("Cache-Control"), "no-cache")

	rec = ts.do(t, http.MethodPost, "/api/library/rescan", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 6, decode[models.LibraryResponse](t, rec).GameCount)

	rec = ts.do(t, http.MethodDelete, "/api/library", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 0, ts.state.Snapshot().GameCount())
}

func TestREST_ScanErrors(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/library/scan", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/library/scan", `{"path":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/library/rescan", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, decode[models.ErrorResponse](t, rec).Error, library.ErrNoFolder.Error())
}

func TestREST_Platforms(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/platforms", "")
	require.Equal(t, http.StatusOK, rec.Code)
	platforms := decode[[]models.PlatformResponse](t, rec)
	require.NotEmpty(t, platforms)

	var ids []string
	for _, p := range platforms {
		ids = append(ids, p.ID)
	}
	assert.Contains(t, ids, "nes")
}

func TestREST_Cursor(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/cursor/right", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	ts.scan(t)

	rec = ts.do(t, http.MethodPost, "/api/cursor/down", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	first := ts.state.Snapshot().Platforms[0]
	assert.Equal(t, 1%len(first.Games), decode[models.CursorResponse](t, rec).Game)

	rec = ts.do(t, http.MethodPost, "/api/cursor/sideways", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPut, "/api/cursor", `{"platform":0,"game":99}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPut, "/api/cursor", `{"platform":0,"game":0}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/cursor", "")
	require.Equal(t, http.StatusOK, rec.Code)
	cur := decode[models.CursorResponse](t, rec)
	assert.Equal(t, 0, cur.Game)
	assert.NotEmpty(t, cur.GameID)
}

func TestREST_LaunchAndServeRom(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	ts.scan(t)

	rec := ts.do(t, http.MethodGet, "/api/session", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	body := fmt.Sprintf(`{"gameId":%q}`, ts.gameID(t, "Mario.nes"))
	rec = ts.do(t, http.MethodPost, "/api/launch", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	sess := decode[models.SessionResponse](t, rec)
	assert.Equal(t, "nes", sess.Core)
	assert.Equal(t, emulator.StateAwaitingCoreReady.String(), sess.State)
	require.True(t, strings.HasPrefix(sess.GameURL, emulator.DefaultRefPrefix))

	pending, ok := ts.runtime.Pending()
	require.True(t, ok)
	assert.Equal(t, sess.GameURL, pending.GameURL)
	assert.Equal(t, sess.SessionID, pending.SessionID)

	rec = ts.do(t, http.MethodGet, sess.GameURL, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "NES\x1a", rec.Body.String())

	rec = ts.do(t, http.MethodGet, "/api/session", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, sess.SessionID, decode[models.SessionResponse](t, rec).SessionID)

	rec = ts.do(t, http.MethodPost, "/api/session/command", `{"action":"saveState"}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/session/command", `{"action":"selfDestruct"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodDelete, "/api/session", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.do(t, http.MethodGet, sess.GameURL, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodDelete, "/api/session", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestREST_LaunchNeedsConfirmation(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	ts.scan(t)

	id := ts.gameID(t, "Zelda.nes")

	rec := ts.do(t, http.MethodPost, "/api/launch", fmt.Sprintf(`{"gameId":%q}`, id))
	require.Equal(t, http.StatusConflict, rec.Code)
	confirm := decode[models.LaunchConfirmationResponse](t, rec)
	assert.True(t, confirm.NeedsConfirmation)
	assert.Equal(t, int64(5), confirm.SizeBytes)
	assert.Equal(t, "5 Bytes", confirm.FileSize)
	assert.Nil(t, ts.manager.Bridge().Active())

	rec = ts.do(t, http.MethodPost, "/api/launch", fmt.Sprintf(`{"gameId":%q,"confirmed":true}`, id))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodPost, "/api/launch", `{"gameId":"nope"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestREST_SettingsAndVersion(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/version", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, config.AppName, decode[models.VersionResponse](t, rec).AppName)

	rec = ts.do(t, http.MethodPut, "/api/settings", `{"persistenceMode":"metadata"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, config.PersistenceMetadata, decode[models.SettingsResponse](t, rec).PersistenceMode)

	rec = ts.do(t, http.MethodPut, "/api/settings", `{"persistenceMode":"everything"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEmulatorPage(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/emulator/play", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "cdn.emulatorjs.org")
	assert.Contains(t, rec.Body.String(), "WebSocket")
}

func dial(t *testing.T, srv *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(srv.URL, "http") + path
	conn, resp, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readJSON(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var v map[string]any
	require.NoError(t, json.Unmarshal(data, &v), string(data))
	return v
}

func TestUIWebSocket_JSONRPC(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	srv := httptest.NewServer(ts.server.Handler())
	t.Cleanup(srv.Close)

	conn := dial(t, srv, "/api/ws")

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("ping")))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "pong", string(data))

	require.NoError(t, conn.WriteMessage(websocket.TextMessage,
		[]byte(`{"jsonrpc":"2.0","id":1,"method":"version"}`)))
	resp := readJSON(t, conn)
	assert.InDelta(t, 1, resp["id"], 0)
	result, ok := resp["result"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, config.AppName, result["appName"])

	require.NoError(t, conn.WriteMessage(websocket.TextMessage,
		[]byte(`{"jsonrpc":"2.0","id":"a","method":"nope"}`)))
	resp = readJSON(t, conn)
	assert.Equal(t, "a", resp["id"])
	errObj, ok := resp["error"].(map[string]any)
	require.True(t, ok)
	assert.InDelta(t, JSONRPCErrorMethodNotFound.Code, errObj["code"], 0)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage,
		[]byte(`{"jsonrpc":"2.0","id":2,"method":"library.scan","params":{}}`)))
	resp = readJSON(t, conn)
	errObj, ok = resp["error"].(map[string]any)
	require.True(t, ok)
	assert.InDelta(t, jsonRPCInvalidParams, errObj["code"], 0)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{not json`)))
	resp = readJSON(t, conn)
	errObj, ok = resp["error"].(map[string]any)
	require.True(t, ok)
	assert.InDelta(t, JSONRPCErrorParseError.Code, errObj["code"], 0)
}

func TestUIWebSocket_Notifications(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	srv := httptest.NewServer(ts.server.Handler())
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	conn := dial(t, srv, "/api/ws")

	// confirm the session is registered before broadcasting
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("ping")))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := conn.ReadMessage()
	require.NoError(t, err)

	go ts.server.BroadcastNotifications(ctx, ts.notifs)

	ts.scan(t)

	msg := readJSON(t, conn)
	assert.Equal(t, models.NotificationLibraryUpdated, msg["method"])
	params, ok := msg["params"].(map[string]any)
	require.True(t, ok)
	assert.InDelta(t, 6, params["gameCount"], 0)
}

func TestEmulatorWebSocket_Lifecycle(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	srv := httptest.NewServer(ts.server.Handler())
	t.Cleanup(srv.Close)

	ts.scan(t)
	session, err := ts.manager.Launch(context.Background(), ts.gameID(t, "Mario.nes"), false)
	require.NoError(t, err)

	conn := dial(t, srv, EmulatorSocketPath)

	initMsg := readJSON(t, conn)
	assert.Equal(t, emulator.MessageInitEmulator, initMsg["type"])
	assert.Equal(t, session.Ref(), initMsg["gameUrl"])
	assert.Equal(t, session.ID, initMsg["sessionId"])

	loaded := fmt.Sprintf(`{"type":%q,"sessionId":%q}`, emulator.EventEmulatorLoaded, session.ID)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(loaded)))

	assert.Eventually(t, func() bool {
		return session.State() == emulator.StateRunning
	}, 5*time.Second, 10*time.Millisecond)
}
