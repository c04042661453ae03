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
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"github.com/ZaparooProject/zaparoo-console/pkg/api/models"
)

const (
	UploadFormField = "rom"
	UploadsRoute    = "/temp_roms"
	// MaxUploadSize bounds a single ROM upload.
	MaxUploadSize int64 = 512 << 20
)

// Uploads stores single ROM uploads for direct launching and serves them
// back to the emulator page.
type Uploads struct {
	fs    afero.Fs
	clock clockwork.Clock
}

// NewUploads serves the uploads kept in fs, usually a BasePathFs rooted at
// the upload dir.
func NewUploads(fs afero.Fs, clock clockwork.Clock) *Uploads {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Uploads{fs: fs, clock: clock}
}

func validUploadName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\`) && path.Base(name) == name
}

func (u *Uploads) HandleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize)
	file, header, err := r.FormFile(UploadFormField)
	if err != nil {
		log.Warn().Err(err).Msg("upload without file")
		WriteError(w, http.StatusBadRequest, "no file uploaded")
		return
	}
	defer func() {
		if err := file.Close(); err != nil {
			log.Warn().Err(err).Msg("closing uploaded file")
		}
	}()

	original := path.Base(strings.ReplaceAll(header.Filename, "\\", "/"))
	if !validUploadName(original) {
		WriteError(w, http.StatusBadRequest, "invalid file name")
		return
	}
	name := fmt.Sprintf("%d_%s", u.clock.Now().UnixMilli(), original)

	out, err := u.fs.Create(name)
	if err != nil {
		log.Error().Err(err).Msgf("creating upload: %s", name)
		WriteError(w, http.StatusInternalServerError, "failed to store file")
		return
	}
	_, err = io.Copy(out, file)
	closeErr := out.Close()
	if err != nil || closeErr != nil {
		log.Error().Err(errors.Join(err, closeErr)).Msgf("writing upload: %s", name)
		_ = u.fs.Remove(name)
		WriteError(w, http.StatusInternalServerError, "failed to store file")
		return
	}

	log.Info().Msgf("stored upload %s (%d bytes)", name, header.Size)
	WriteJSON(w, http.StatusOK, models.UploadResponse{
		Success:      true,
		Filename:     name,
		OriginalName: original,
		Path:         UploadsRoute + "/" + name,
	})
}

// HandleCleanup deletes an upload. A missing file is not an error.
func (u *Uploads) HandleCleanup(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("filename")
	if name == "" {
		WriteJSON(w, http.StatusOK, models.CleanupResponse{Success: true})
		return
	}
	if !validUploadName(name) {
		log.Warn().Msgf("rejected cleanup of %q", name)
		WriteError(w, http.StatusBadRequest, "invalid file name")
		return
	}

	err := u.fs.Remove(name)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Error().Err(err).Msgf("removing upload: %s", name)
		WriteError(w, http.StatusInternalServerError, "failed to remove file")
		return
	}
	WriteJSON(w, http.StatusOK, models.CleanupResponse{Success: true})
}

// FileServer serves uploads under UploadsRoute.
func (u *Uploads) FileServer() http.Handler {
	return http.StripPrefix(UploadsRoute, http.FileServer(afero.NewHttpFs(u.fs)))
}
