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
	"fmt"
	"html/template"
	"io"
)

// PageData configures the emulator page. The game itself arrives over the
// socket in INIT_GAME.
type PageData struct {
	Title      string
	DataPath   string
	SocketPath string
	Volume     float64
}

var pageTemplate = template.Must(template.New("emulator").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>{{.Title}}</title>
  <style>
    html, body { margin: 0; padding: 0; width: 100%; height: 100%; background: #000; overflow: hidden; }
    #game { width: 100%; height: 100%; }
    #status { position: absolute; top: 50%; width: 100%; text-align: center; color: #fff; font-family: sans-serif; }
  </style>
</head>
<body>
  <div id="status">Waiting for a game...</div>
  <div id="game"></div>
  <script>
    (function () {
      var dataPath = {{.DataPath}};
      var proto = location.protocol === "https:" ? "wss://" : "ws://";
      var socket = new WebSocket(proto + location.host + {{.SocketPath}});
      var sessionId = "";
      var booted = false;

      function send(type) {
        if (socket.readyState === WebSocket.OPEN) {
          socket.send(JSON.stringify({ type: type, sessionId: sessionId }));
        }
      }

      function boot(msg) {
        if (booted) {
          location.reload();
          return;
        }
        booted = true;
        sessionId = msg.sessionId || "";
        document.getElementById("status").textContent = "Loading " + msg.gameName + "...";

        window.EJS_player = "#game";
        window.EJS_core = msg.core;
        window.EJS_gameUrl = msg.gameUrl;
        window.EJS_gameName = msg.gameName;
        window.EJS_platform = msg.platform || "";
        window.EJS_pathtodata = dataPath;
        window.EJS_volume = {{.Volume}};
        window.EJS_startOnLoaded = true;
        window.EJS_defaultControls = true;
        window.EJS_buttonOpts = "controller,none";
        window.EJS_buttons = { saveState: false, loadState: false, fullscreen: true, restart: true };
        window.EJS_onStart = function () {
          document.getElementById("status").style.display = "none";
          send("EMULATOR_LOADED");
        };
        window.EJS_onGameStart = function () { send("GAME_STARTED"); };
        window.EJS_onGamePause = function () { send("GAME_PAUSED"); };

        var loader = document.createElement("script");
        loader.src = dataPath + "loader.js";
        document.body.appendChild(loader);
      }

      function command(action) {
        var emu = window.EJS_emulator;
        switch (action) {
        case "toggleFullscreen":
          if (window.EJS_toggleFullscreen) { window.EJS_toggleFullscreen(); }
          else if (document.fullscreenElement) { document.exitFullscreen(); }
          else { document.documentElement.requestFullscreen(); }
          break;
        case "exitFullscreen":
          if (document.fullscreenElement) { document.exitFullscreen(); }
          break;
        case "saveState":
          if (window.EJS_saveState) { window.EJS_saveState(); }
          else if (emu && emu.gameManager) { emu.gameManager.saveState(); }
          break;
        case "loadState":
          if (window.EJS_loadState) { window.EJS_loadState(); }
          else if (emu && emu.gameManager) { emu.gameManager.loadState(emu.gameManager.getState()); }
          break;
        case "restart":
          if (window.EJS_resetGame) { window.EJS_resetGame(); }
          else if (emu && emu.gameManager) { emu.gameManager.restart(); }
          break;
        case "close":
          if (booted) { location.reload(); }
          break;
        }
      }

      socket.onmessage = function (e) {
        var msg;
        try { msg = JSON.parse(e.data); } catch (err) { return; }
        if (msg.type === "INIT_GAME" || msg.type === "INIT_EMULATOR") {
          boot(msg);
        } else if (msg.type === "COMMAND") {
          command(msg.action);
        }
      };
    })();
  </script>
</body>
</html>
`))

// RenderPage writes the emulator page.
func RenderPage(w io.Writer, data PageData) error {
	if data.Title == "" {
		data.Title = "Emulator"
	}
	if data.Volume == 0 {
		data.Volume = 0.7
	}
	if err := pageTemplate.Execute(w, data); err != nil {
		return fmt.Errorf("failed to render emulator page: %w", err)
	}
	return nil
}
