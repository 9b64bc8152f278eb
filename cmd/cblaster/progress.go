// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"io"
	"os"

	"github.com/schollz/progressbar/v3"

	"github.com/DrBoothTJ/cblaster/internal/ui"
)

// ProgressConfig decides whether progress indicators are drawn.
type ProgressConfig struct {
	Enabled bool
	Writer  io.Writer
}

// NewProgressConfig enables progress output only for interactive, non-quiet,
// non-JSON runs.
func NewProgressConfig(globals GlobalFlags) ProgressConfig {
	return ProgressConfig{
		Enabled: !globals.Quiet && !globals.JSON && ui.IsTerminal(os.Stderr),
		Writer:  os.Stderr,
	}
}

// NewSpinner returns an indeterminate progress indicator, or nil when
// progress is disabled. All methods on a nil spinner are no-ops.
func NewSpinner(cfg ProgressConfig, description string) *Spinner {
	if !cfg.Enabled {
		return nil
	}
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(cfg.Writer),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
	)
	return &Spinner{bar: bar}
}

// Spinner wraps a progressbar used in spinner mode.
type Spinner struct {
	bar *progressbar.ProgressBar
}

// Describe replaces the spinner text and redraws it.
func (s *Spinner) Describe(description string) {
	if s == nil {
		return
	}
	s.bar.Describe(description)
	_ = s.bar.Add(1)
}

// Finish clears the spinner.
func (s *Spinner) Finish() {
	if s == nil {
		return
	}
	_ = s.bar.Finish()
}
