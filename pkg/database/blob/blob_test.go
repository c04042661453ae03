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
	"io"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"pgregory.net/rapid"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestEncode_UsesHandleMIME(t *testing.T) {
	t.Parallel()

	h := New("game.nes", "application/x-nes-rom", []byte("NES\x1a"))
	text, err := Encode(context.Background(), h)
	require.NoError(t, err)
	assert.Equal(t, "data:application/x-nes-rom;base64,TkVTGg==", text)
}

func TestEncode_MIMEFromExtension(t *testing.T) {
	t.Parallel()

	h := New("cover.png", "", []byte("not really a png"))
	text, err := Encode(context.Background(), h)
	require.NoError(t, err)
	assert.True(t, len(text) > 0)
	assert.Contains(t, text, "data:image/png;base64,")
}

func TestEncode_MIMEFromContent(t *testing.T) {
	t.Parallel()

	h := New("cover", "", pngMagic)
	text, err := Encode(context.Background(), h)
	require.NoError(t, err)
	assert.Contains(t, text, "data:image/png;base64,")
}

func TestEncode_EmptyPayload(t *testing.T) {
	t.Parallel()

	h := New("empty", "application/octet-stream", nil)
	text, err := Encode(context.Background(), h)
	require.NoError(t, err)
	assert.Equal(t, "data:application/octet-stream;base64,", text)

	decoded, err := Decode(text, "empty")
	require.NoError(t, err)
	assert.Equal(t, int64(0), decoded.Size())
}

func TestEncode_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Encode(ctx, New("a.gba", "", []byte("abc")))
	require.ErrorIs(t, err, context.Canceled)
}

func TestDecode_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
	}{
		{name: "no prefix", text: "application/octet-stream;base64,AAAA"},
		{name: "no separator", text: "data:application/octet-stream;base64"},
		{name: "not base64", text: "data:text/plain,hello"},
		{name: "bad payload", text: "data:application/octet-stream;base64,!!!"},
		{name: "empty", text: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Decode(tt.text, "x.nes")
			require.ErrorIs(t, err, ErrInvalidDataURL)
		})
	}
}

func TestEncode_MIMEParameters(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{in: "text/plain; charset=utf-8", want: "text/plain; charset=utf-8"},
		{in: "text/plain;charset=utf-8", want: "text/plain; charset=utf-8"},
		{in: `application/x-rom; name="a,b"`, want: `application/x-rom; name="a,b"`},
		{in: "not a mime type", want: "text/plain; charset=utf-8"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			text, err := Encode(context.Background(), New("notes", tt.in, []byte("hello")))
			require.NoError(t, err)

			h, err := Decode(text, "notes")
			require.NoError(t, err)
			assert.Equal(t, tt.want, h.MIME)

			data, err := h.Bytes()
			require.NoError(t, err)
			assert.Equal(t, []byte("hello"), data)
		})
	}
}

func TestDecode_DefaultsMIME(t *testing.T) {
	t.Parallel()

	h, err := Decode("data:;base64,AQID", "x.gba")
	require.NoError(t, err)
	assert.Equal(t, DefaultMIME, h.MIME)
	assert.Equal(t, "x.gba", h.Name)

	data, err := h.Bytes()
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, data)
}

func TestFromFile_IsLazy(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/roms/Mario.nes", []byte("first"), 0o644))

	h, err := FromFile(fs, "/roms/Mario.nes")
	require.NoError(t, err)
	assert.Equal(t, "Mario.nes", h.Name)
	assert.Equal(t, int64(5), h.Size())
	assert.Equal(t, "/roms/Mario.nes", h.Path())

	require.NoError(t, afero.WriteFile(fs, "/roms/Mario.nes", []byte("second!"), 0o644))
	data, err := h.Bytes()
	require.NoError(t, err)
	assert.Equal(t, "second!", string(data))
	assert.Equal(t, int64(7), h.Size())

	r, err := h.Open()
	require.NoError(t, err)
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	assert.Equal(t, "second!", string(got))
}

func TestFromFile_Errors(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/roms", 0o755))

	_, err := FromFile(fs, "/missing.nes")
	require.Error(t, err)

	_, err = FromFile(fs, "/roms")
	require.Error(t, err)
}

func TestFromFile_SourceRemoved(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/a.gba", []byte("x"), 0o644))
	h, err := FromFile(fs, "/a.gba")
	require.NoError(t, err)
	require.NoError(t, fs.Remove("/a.gba"))

	_, err = h.Bytes()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is gone")
}

func TestDecodeAsync(t *testing.T) {
	t.Parallel()

	text, err := Encode(context.Background(), New("a.sfc", "", []byte("snes")))
	require.NoError(t, err)

	res := <-DecodeAsync(context.Background(), text, "a.sfc")
	require.NoError(t, res.Err)
	data, err := res.Handle.Bytes()
	require.NoError(t, err)
	assert.Equal(t, "snes", string(data))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res = <-DecodeAsync(ctx, text, "a.sfc")
	require.ErrorIs(t, res.Err, context.Canceled)
	assert.Nil(t, res.Handle)
}

// TestPropertyRoundTrip verifies decode(encode(x)) preserves content, length
// and MIME type for arbitrary payloads.
func TestPropertyRoundTrip(t *testing.T) {
	t.Parallel()
	rapid.Check(t, func(t *rapid.T) {
		data := rapid.SliceOfN(rapid.Byte(), 0, 4096).Draw(t, "data")
		name := rapid.StringMatching(`[A-Za-z0-9 ]{1,12}\.(nes|gba|sfc|md|z64|iso|bin)`).Draw(t, "name")
		mimeType := rapid.SampledFrom([]string{
			"application/octet-stream",
			"application/x-nes-rom",
			"application/x-gba-rom",
			"image/png",
			"text/plain; charset=utf-8",
			`application/x-rom; name="a,b"`,
		}).Draw(t, "mime")

		text, err := Encode(context.Background(), New(name, mimeType, data))
		if err != nil {
			t.Fatalf("encode failed: %v", err)
		}

		h, err := Decode(text, name)
		if err != nil {
			t.Fatalf("decode failed: %v", err)
		}
		got, err := h.Bytes()
		if err != nil {
			t.Fatalf("bytes failed: %v", err)
		}
		if h.Size() != int64(len(data)) || !bytes.Equal(got, data) {
			t.Fatalf("payload changed: %d bytes in, %d out", len(data), len(got))
		}
		if h.MIME != mimeType || h.Name != name {
			t.Fatalf("metadata changed: %q/%q", h.MIME, h.Name)
		}
	})
}

// TestPropertyRoundTripWithoutMIME verifies payloads survive regardless of
// which MIME source was used.
func TestPropertyRoundTripWithoutMIME(t *testing.T) {
	t.Parallel()
	rapid.Check(t, func(t *rapid.T) {
		data := rapid.SliceOfN(rapid.Byte(), 0, 1024).Draw(t, "data")

		text, err := Encode(context.Background(), New("rom", "", data))
		if err != nil {
			t.Fatalf("encode failed: %v", err)
		}
		h, err := Decode(text, "rom")
		if err != nil {
			t.Fatalf("decode failed: %v", err)
		}
		got, _ := h.Bytes()
		if !bytes.Equal(got, data) {
			t.Fatal("payload changed")
		}
	})
}
