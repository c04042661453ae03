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

// Package blob holds binary file handles and their data URL text form, which
// is how payloads are kept in the textual library store.
package blob

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/spf13/afero"

	"github.com/ZaparooProject/zaparoo-console/pkg/helpers/syncutil"
)

// Handle is a named binary payload. In-memory handles own their bytes while
// file handles read through an afero.Fs on demand, so a large folder scan
// does not pull every ROM into memory.
type Handle struct {
	fs   afero.Fs
	Name string
	MIME string
	path string
	data []byte
	size int64
	mu   syncutil.Mutex
}

func New(name, mimeType string, data []byte) *Handle {
	return &Handle{
		Name: name,
		MIME: mimeType,
		data: data,
		size: int64(len(data)),
	}
}

// FromFile returns a lazy handle for path. The file is stat'd immediately so
// Size is known without reading it.
func FromFile(fs afero.Fs, path string) (*Handle, error) {
	info, err := fs.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	return &Handle{
		fs:   fs,
		path: path,
		Name: info.Name(),
		size: info.Size(),
	}, nil
}

func (h *Handle) Size() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.size
}

// Path is the backing file of a lazy handle, empty for in-memory handles.
func (h *Handle) Path() string {
	return h.path
}

func (h *Handle) Open() (io.ReadCloser, error) {
	if h.fs == nil {
		return io.NopCloser(bytes.NewReader(h.data)), nil
	}
	f, err := h.fs.Open(h.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", h.path, err)
	}
	return f, nil
}

// Bytes returns the whole payload. For lazy handles the file is read on
// every call and the recorded size is refreshed.
func (h *Handle) Bytes() ([]byte, error) {
	if h.fs == nil {
		return h.data, nil
	}
	data, err := afero.ReadFile(h.fs, h.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("source file %s is gone: %w", h.path, err)
		}
		return nil, fmt.Errorf("failed to read %s: %w", h.path, err)
	}
	h.mu.Lock()
	h.size = int64(len(data))
	h.mu.Unlock()
	return data, nil
}
