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

package blob

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const (
	dataPrefix    = "data:"
	base64Marker  = ";base64"
	DefaultMIME   = "application/octet-stream"
	readChunkSize = 256 * 1024
)

var ErrInvalidDataURL = errors.New("invalid data URL")

type Result struct {
	Handle *Handle
	Err    error
}

// Encode reads the full payload of h and returns it as a base64 data URL.
// Reading stops early when ctx is cancelled.
func Encode(ctx context.Context, h *Handle) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	r, err := h.Open()
	if err != nil {
		return "", err
	}
	defer func() { _ = r.Close() }()

	var buf bytes.Buffer
	chunk := make([]byte, readChunkSize)
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		n, err := r.Read(chunk)
		buf.Write(chunk[:n])
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", h.Name, err)
		}
	}

	data := buf.Bytes()
	mimeType := resolveMIME(h, data)

	var sb strings.Builder
	sb.Grow(len(dataPrefix) + len(mimeType) + len(base64Marker) + 1 +
		base64.StdEncoding.EncodedLen(len(data)))
	sb.WriteString(dataPrefix)
	sb.WriteString(mimeType)
	sb.WriteString(base64Marker)
	sb.WriteByte(',')
	sb.WriteString(base64.StdEncoding.EncodeToString(data))
	return sb.String(), nil
}

func resolveMIME(h *Handle, data []byte) string {
	candidates := []string{
		h.MIME,
		mime.TypeByExtension(filepath.Ext(h.Name)),
		mimetype.Detect(data).String(),
	}
	for _, c := range candidates {
		if mt, ok := canonicalMIME(c); ok {
			return mt
		}
	}
	return DefaultMIME
}

// canonicalMIME reformats a media type so its parameters are quoted where
// needed and it can sit in a data URL header.
func canonicalMIME(s string) (string, bool) {
	if s == "" {
		return "", false
	}
	mt, params, err := mime.ParseMediaType(s)
	if err != nil {
		return "", false
	}
	out := mime.FormatMediaType(mt, params)
	return out, out != ""
}

// Decode parses a base64 data URL back into a handle named filename.
func Decode(text, filename string) (*Handle, error) {
	if !strings.HasPrefix(text, dataPrefix) {
		return nil, fmt.Errorf("%w: missing data: prefix", ErrInvalidDataURL)
	}

	// base64 never contains a comma but quoted MIME parameters can
	rest := text[len(dataPrefix):]
	sep := strings.LastIndexByte(rest, ',')
	if sep < 0 {
		return nil, fmt.Errorf("%w: missing payload separator", ErrInvalidDataURL)
	}
	header, payload := rest[:sep], rest[sep+1:]

	mimeType, found := strings.CutSuffix(header, base64Marker)
	if !found {
		return nil, fmt.Errorf("%w: payload is not base64", ErrInvalidDataURL)
	}
	if mt, ok := canonicalMIME(mimeType); ok {
		mimeType = mt
	} else {
		mimeType = DefaultMIME
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDataURL, err)
	}

	return New(filename, mimeType, data), nil
}

// DecodeAsync decodes on its own goroutine. The channel receives exactly one
// result, or the context error if ctx ends first.
func DecodeAsync(ctx context.Context, text, filename string) <-chan Result {
	out := make(chan Result, 1)
	go func() {
		defer close(out)
		if err := ctx.Err(); err != nil {
			out <- Result{Err: err}
			return
		}
		h, err := Decode(text, filename)
		if ctxErr := ctx.Err(); ctxErr != nil {
			out <- Result{Err: ctxErr}
			return
		}
		out <- Result{Handle: h, Err: err}
	}()
	return out
}
