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

// Package systemdefs is the reference table of playable platforms. Each
// platform claims a set of file extensions, which is how files in a selected
// folder are associated with a platform, and maps to an EmulatorJS core.
package systemdefs

import (
	"errors"
	"fmt"
	"strings"
)

const (
	PlatformGBA     = "gba"
	PlatformNES     = "nes"
	PlatformSNES    = "snes"
	PlatformGenesis = "genesis"
	PlatformN64     = "n64"
	PlatformPSP     = "psp"
)

// FallbackCore is used by CoreFor when an extension has no core mapping.
const FallbackCore = "nes"

const defaultIcon = "fas fa-gamepad"

type Platform struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Color      string   `json:"color"`
	Icon       string   `json:"icon"`
	Core       string   `json:"core"`
	Extensions []string `json:"extensions"`
}

// Platforms is ordered. Classification returns the first platform claiming
// an extension and the library UI lists platforms in this order on ties.
var Platforms = []Platform{
	{
		ID:         PlatformGBA,
		Name:       "Game Boy Advance",
		Color:      "#73b7ff",
		Icon:       defaultIcon,
		Core:       "gba",
		Extensions: []string{"gba", "gb", "gbc"},
	},
	{
		ID:         PlatformNES,
		Name:       "Nintendo NES",
		Color:      "#ff3366",
		Icon:       defaultIcon,
		Core:       "nes",
		Extensions: []string{"nes", "fds"},
	},
	{
		ID:         PlatformSNES,
		Name:       "Super Nintendo",
		Color:      "#9966ff",
		Icon:       defaultIcon,
		Core:       "snes",
		Extensions: []string{"sfc", "smc"},
	},
	{
		ID:         PlatformGenesis,
		Name:       "Sega Genesis",
		Color:      "#ffcc00",
		Icon:       defaultIcon,
		Core:       "segaMD",
		Extensions: []string{"md", "gen", "smd"},
	},
	{
		ID:         PlatformN64,
		Name:       "Nintendo 64",
		Color:      "#ff9900",
		Icon:       defaultIcon,
		Core:       "n64",
		Extensions: []string{"z64", "n64", "v64"},
	},
	{
		ID:         PlatformPSP,
		Name:       "PlayStation Portable",
		Color:      "#ff6b3d",
		Icon:       defaultIcon,
		Core:       "psp",
		Extensions: []string{"iso", "cso", "pbp"},
	},
}

// CoreMap maps an extension to an EmulatorJS core id. It covers more
// extensions than the platform table since files can be launched directly
// by upload, and several extensions share a core.
var CoreMap = map[string]string{
	"gba": "gba",
	"gb":  "gb",
	"gbc": "gbc",
	"nds": "nds",
	"sfc": "snes",
	"smc": "snes",
	"z64": "n64",
	"n64": "n64",
	"v64": "n64",
	"nes": "nes",
	"fds": "nes",
	"md":  "segaMD",
	"gen": "segaMD",
	"smd": "segaMD",
	"iso": "psp",
	"cso": "psp",
	"pbp": "psp",
	"bin": "psx",
	"cue": "psx",
	"img": "psx",
	"ngp": "ngp",
	"ngc": "ngp",
	"pce": "pce",
	"ws":  "ws",
	"wsc": "ws",
	"col": "coleco",
	"gg":  "segaGG",
	"sms": "segaMS",
}

var archiveExts = map[string]struct{}{
	"zip": {},
	"7z":  {},
	"rar": {},
}

var byExt map[string]int

func init() {
	if err := Validate(Platforms); err != nil {
		panic(err)
	}
	byExt = indexExtensions(Platforms)
}

func indexExtensions(platforms []Platform) map[string]int {
	idx := make(map[string]int)
	for i, p := range platforms {
		for _, ext := range p.Extensions {
			if _, ok := idx[ext]; !ok {
				idx[ext] = i
			}
		}
	}
	return idx
}

// Validate checks a platform table: ids must be unique and non-empty, every
// platform needs at least one extension, extensions must be lowercase with no
// leading dot and may only be claimed by one platform.
func Validate(platforms []Platform) error {
	var errs []error
	ids := make(map[string]struct{}, len(platforms))
	owners := make(map[string]string)

	for _, p := range platforms {
		if p.ID == "" {
			errs = append(errs, errors.New("platform with empty id"))
			continue
		}
		if _, ok := ids[p.ID]; ok {
			errs = append(errs, fmt.Errorf("duplicate platform id: %s", p.ID))
		}
		ids[p.ID] = struct{}{}

		if len(p.Extensions) == 0 {
			errs = append(errs, fmt.Errorf("platform %s has no extensions", p.ID))
		}
		for _, ext := range p.Extensions {
			if ext == "" || ext != strings.ToLower(ext) || strings.HasPrefix(ext, ".") {
				errs = append(errs, fmt.Errorf("platform %s has invalid extension %q", p.ID, ext))
				continue
			}
			if _, ok := archiveExts[ext]; ok {
				errs = append(errs, fmt.Errorf("platform %s claims archive extension %q", p.ID, ext))
			}
			if owner, ok := owners[ext]; ok {
				errs = append(errs, fmt.Errorf(
					"extension %q claimed by both %s and %s", ext, owner, p.ID,
				))
				continue
			}
			owners[ext] = p.ID
		}
	}

	return errors.Join(errs...)
}

// Ext returns the lowercased text after the final dot of a filename, or an
// empty string when there is none.
func Ext(filename string) string {
	i := strings.LastIndex(filename, ".")
	if i < 0 || i == len(filename)-1 {
		return ""
	}
	return strings.ToLower(filename[i+1:])
}

// Classify returns the id of the first platform claiming the file's
// extension.
func Classify(filename string) (string, bool) {
	ext := Ext(filename)
	if ext == "" {
		return "", false
	}
	i, ok := byExt[ext]
	if !ok {
		return "", false
	}
	return Platforms[i].ID, true
}

// CoreFor returns the emulator core for a file, FallbackCore when unmapped.
func CoreFor(filename string) string {
	if core, ok := CoreMap[Ext(filename)]; ok {
		return core
	}
	return FallbackCore
}

// IsArchive reports whether the file is a container that must be classified
// by its contents.
func IsArchive(filename string) bool {
	_, ok := archiveExts[Ext(filename)]
	return ok
}

// LookupPlatform returns the platform definition for an id.
func LookupPlatform(id string) (*Platform, error) {
	for i := range Platforms {
		if Platforms[i].ID == id {
			p := Platforms[i]
			return &p, nil
		}
	}
	return nil, fmt.Errorf("unknown platform: %s", id)
}

// AllPlatforms returns a copy of the table in declaration order.
func AllPlatforms() []Platform {
	platforms := make([]Platform, len(Platforms))
	copy(platforms, Platforms)
	return platforms
}

// SupportedExtensions lists every classifiable extension.
func SupportedExtensions() []string {
	exts := make([]string, 0, len(byExt))
	for _, p := range Platforms {
		exts = append(exts, p.Extensions...)
	}
	return exts
}
