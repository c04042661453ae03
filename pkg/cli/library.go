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
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/ZaparooProject/zaparoo-console/pkg/api/models"
)

// WriteLibrary prints the library grouped by platform.
func WriteLibrary(out io.Writer, lib *models.LibraryResponse) error {
	if lib.GameCount == 0 {
		_, err := fmt.Fprintln(out, "Library is empty")
		return err
	}

	_, _ = fmt.Fprintf(out, "%s: %d games on %d platforms\n\n", lib.FolderLabel, lib.GameCount, len(lib.Platforms))

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, pg := range lib.Platforms {
		_, _ = fmt.Fprintf(tw, "%s (%d)\n", pg.Platform.Name, len(pg.Games))
		for _, g := range pg.Games {
			status := ""
			if !g.Playable {
				status = "missing"
			}
			_, _ = fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", g.Name, g.FileName, g.FileSize, status)
		}
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("failed to write library: %w", err)
	}
	return nil
}
