// go-cardbridge
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-cardbridge.
//
// go-cardbridge is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-cardbridge is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-cardbridge; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

package cardbridge

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/lmittmann/tint"
)

// NewLogger builds the diagnostic sink: a tint handler writing one
// human-readable line per record, stamped with time since start.
func NewLogger(w io.Writer, level slog.Level, noColor bool) *slog.Logger {
	start := time.Now()
	return slog.New(
		tint.NewHandler(w, &tint.Options{
			Level:      level,
			NoColor:    noColor,
			TimeFormat: time.Kitchen,
			ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
				if a.Key == slog.TimeKey {
					elapsed := time.Since(start)
					mins := int(elapsed.Minutes())
					secs := elapsed.Seconds() - float64(mins*60)
					a.Value = slog.StringValue(fmt.Sprintf("%02d:%05.2f", mins, secs))
				}
				return a
			},
		}),
	)
}

func componentLogger(name string) *slog.Logger {
	return slog.Default().With("component", name)
}
