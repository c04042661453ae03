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
	"net/url"
	"path"

	"github.com/google/uuid"

	"github.com/ZaparooProject/zaparoo-console/pkg/database/blob"
	"github.com/ZaparooProject/zaparoo-console/pkg/helpers/syncutil"
)

// DefaultRefPrefix is the URL path the API serves playback references on.
const DefaultRefPrefix = "/roms/"

// RefRegistry hands out ephemeral URLs for file handles. A reference stays
// resolvable until it is revoked.
type RefRegistry struct {
	refs   map[string]*blob.Handle
	prefix string
	mu     syncutil.RWMutex
}

func NewRefRegistry(prefix string) *RefRegistry {
	if prefix == "" {
		prefix = DefaultRefPrefix
	}
	return &RefRegistry{
		refs:   make(map[string]*blob.Handle),
		prefix: prefix,
	}
}

// Create registers h and returns its token and the URL the emulator page
// fetches it from. The handle name is kept as the last path segment because
// cores pick their loader from the file extension.
func (r *RefRegistry) Create(h *blob.Handle) (token, ref string) {
	token = uuid.New().String()

	r.mu.Lock()
	r.refs[token] = h
	r.mu.Unlock()

	name := path.Base(h.Name)
	if name == "." || name == "/" {
		name = "game"
	}
	return token, r.prefix + token + "/" + url.PathEscape(name)
}

func (r *RefRegistry) Resolve(token string) (*blob.Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.refs[token]
	return h, ok
}

// Revoke removes a reference. It reports whether the token was live.
func (r *RefRegistry) Revoke(token string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.refs[token]
	delete(r.refs, token)
	return ok
}

// Len is the number of live references.
func (r *RefRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.refs)
}
