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

// Package ui provides colored terminal output helpers for the cblaster CLI.
//
// Status messages go to stderr so that search summaries written to stdout
// stay machine readable.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// Shared color printers.
var (
	Green  = color.New(color.FgGreen)
	Yellow = color.New(color.FgYellow)
	Red    = color.New(color.FgRed)
	Cyan   = color.New(color.FgCyan)
	Dim    = color.New(color.Faint)
	Bold   = color.New(color.Bold)
)

// Out is where status output is written.
var Out io.Writer = os.Stderr

// InitColors disables color when requested, when NO_COLOR is set, or when
// stderr is not a terminal.
func InitColors(noColor bool) {
	if noColor || os.Getenv("NO_COLOR") != "" || !IsTerminal(os.Stderr) {
		color.NoColor = true
	}
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Header prints an underlined section title.
func Header(title string) {
	_, _ = Bold.Fprintln(Out, title)
	_, _ = Dim.Fprintln(Out, strings.Repeat("=", len(title)))
}

// SubHeader prints a minor section title.
func SubHeader(title string) {
	_, _ = Cyan.Fprintln(Out, title)
}

// Label formats a field label.
func Label(s string) string {
	return Bold.Sprint(s)
}

// DimText formats secondary text.
func DimText(s string) string {
	return Dim.Sprint(s)
}

// CountText formats a count, dimming zero.
func CountText(n int) string {
	if n == 0 {
		return Dim.Sprint("0")
	}
	return Green.Sprint(n)
}

// Info prints an informational line.
func Info(msg string) {
	fmt.Fprintf(Out, "%s %s\n", Cyan.Sprint("→"), msg)
}

// Infof prints a formatted informational line.
func Infof(format string, args ...any) {
	Info(fmt.Sprintf(format, args...))
}

// Success prints a success line.
func Success(msg string) {
	fmt.Fprintf(Out, "%s %s\n", Green.Sprint("✓"), msg)
}

// Successf prints a formatted success line.
func Successf(format string, args ...any) {
	Success(fmt.Sprintf(format, args...))
}

// Warning prints a warning line.
func Warning(msg string) {
	fmt.Fprintf(Out, "%s %s\n", Yellow.Sprint("!"), msg)
}

// Warningf prints a formatted warning line.
func Warningf(format string, args ...any) {
	Warning(fmt.Sprintf(format, args...))
}
