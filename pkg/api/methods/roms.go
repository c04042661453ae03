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

package methods

import (
	"bytes"
	"mime"
	"net/http"
	"path"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/ZaparooProject/zaparoo-console/pkg/emulator"
)

// HandleRom serves a playback reference to the emulator page. Revoked or
// unknown tokens are 404.
func HandleRom(refs *emulator.RefRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := chi.URLParam(r, "token")
		h, ok := refs.Resolve(token)
		if !ok {
			http.NotFound(w, r)
			return
		}

		data, err := h.Bytes()
		if err != nil {
			log.Error().Err(err).Msgf("reading rom for reference %s", token)
			http.Error(w, "game file is no longer available", http.StatusGone)
			return
		}

		ctype := h.MIME
		if ctype == "" {
			ctype = mime.TypeByExtension(path.Ext(h.Name))
		}
		if ctype == "" {
			ctype = "application/octet-stream"
		}
		w.Header().Set("Content-Type", ctype)
		w.Header().Set("Cache-Control", "no-store")
		http.ServeContent(w, r, h.Name, time.Time{}, bytes.NewReader(data))
	}
}
