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

package helpers

import (
	"math"
	"strconv"
)

var byteUnits = []string{"Bytes", "KB", "MB", "GB"}

// FormatBytes renders a byte count with 1024-based units, rounded to two
// decimals with trailing zeros dropped: 0 is "0 Bytes", 1536 is "1.5 KB".
// Negative counts render as "0 Bytes" and anything past GB stays in GB.
func FormatBytes(n int64) string {
	if n <= 0 {
		return "0 Bytes"
	}

	i := 0
	div := int64(1)
	for i < len(byteUnits)-1 && n >= div*1024 {
		div *= 1024
		i++
	}

	v := float64(n) / float64(div)
	v = math.Round(v*100) / 100

	return strconv.FormatFloat(v, 'f', -1, 64) + " " + byteUnits[i]
}
