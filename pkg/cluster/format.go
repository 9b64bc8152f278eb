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

package cluster

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// hitColumns are the summary table column headers, in Hit.Values order.
var hitColumns = []string{
	"Query", "Subject", "Identity", "Coverage", "E-value",
	"Bitscore", "Start", "End", "Strand",
}

// SummaryOptions controls summary table rendering.
type SummaryOptions struct {
	Headers   bool   // include column headers
	Human     bool   // padded columns instead of delimited fields
	Decimals  int    // significant digits for scores
	Delimiter string // field separator when Human is false
}

// DefaultSummaryOptions returns human-readable tables with headers.
func DefaultSummaryOptions() SummaryOptions {
	return SummaryOptions{Headers: true, Human: true, Decimals: 4, Delimiter: ","}
}

// HeaderString underlines text with symbol repeated to the text's length.
func HeaderString(text, symbol string) string {
	return text + "\n" + strings.Repeat(symbol, utf8.RuneCountInString(text))
}

// ClusterTable renders one cluster of hits as a table.
func ClusterTable(hits []*Hit, opts SummaryOptions) string {
	rows := make([][]string, 0, len(hits)+1)
	if opts.Headers {
		rows = append(rows, hitColumns)
	}
	for _, h := range hits {
		rows = append(rows, h.Values(opts.Decimals))
	}
	return renderRows(rows, opts.Human, opts.Delimiter)
}

// renderRows joins rows either as padded two-space columns or with delim.
func renderRows(rows [][]string, human bool, delim string) string {
	if human {
		rows = humanise(rows)
		delim = "  "
	}
	lines := make([]string, len(rows))
	for i, row := range rows {
		lines[i] = strings.Join(row, delim)
	}
	return strings.Join(lines, "\n")
}

// humanise right-pads every field to the widest value in its column.
func humanise(rows [][]string) [][]string {
	if len(rows) == 0 {
		return rows
	}
	widths := make([]int, len(rows[0]))
	for _, row := range rows {
		for i, field := range row {
			if n := utf8.RuneCountInString(field); n > widths[i] {
				widths[i] = n
			}
		}
	}
	out := make([][]string, len(rows))
	for r, row := range rows {
		padded := make([]string, len(row))
		for i, field := range row {
			padded[i] = fmt.Sprintf("%-*s", widths[i], field)
		}
		out[r] = padded
	}
	return out
}

// BinaryKey selects the per-query value of a binary table cell.
type BinaryKey string

const (
	// BinaryCount counts hits per query.
	BinaryCount BinaryKey = "count"
	// BinaryMax takes the highest identity per query.
	BinaryMax BinaryKey = "max"
	// BinarySum sums identities per query.
	BinarySum BinaryKey = "sum"
)

// ParseBinaryKey validates a binary key name.
func ParseBinaryKey(s string) (BinaryKey, error) {
	switch k := BinaryKey(s); k {
	case BinaryCount, BinaryMax, BinarySum:
		return k, nil
	}
	return "", fmt.Errorf("unknown binary key %q (expected count, max or sum)", s)
}

// BinaryOptions controls binary table rendering.
type BinaryOptions struct {
	Headers   bool
	Human     bool
	Delimiter string
	Key       BinaryKey
}

// DefaultBinaryOptions returns a headerless, comma delimited count table.
func DefaultBinaryOptions() BinaryOptions {
	return BinaryOptions{Delimiter: ",", Key: BinaryCount}
}

// BinaryTable renders a presence/absence table with one row per cluster and
// one value column per query.
func BinaryTable(organisms []*Organism, queries []string, opts BinaryOptions) string {
	var rows [][]string
	if opts.Headers {
		rows = append(rows, append([]string{"Organism", "Scaffold", "Start", "End"}, queries...))
	}
	for _, o := range organisms {
		for _, s := range o.Scaffolds {
			for _, c := range s.Clusters {
				if len(c) == 0 {
					continue
				}
				row := []string{
					o.FullName(),
					s.Accession,
					strconv.Itoa(c[0].Start),
					strconv.Itoa(c[len(c)-1].End),
				}
				for _, q := range queries {
					row = append(row, binaryValue(c, q, opts.Key))
				}
				rows = append(rows, row)
			}
		}
	}
	return renderRows(rows, opts.Human, opts.Delimiter)
}

func binaryValue(hits []*Hit, query string, key BinaryKey) string {
	var count int
	var maxID, sumID float64
	for _, h := range hits {
		if h.Query != query {
			continue
		}
		count++
		sumID += h.Identity
		if h.Identity > maxID {
			maxID = h.Identity
		}
	}
	switch key {
	case BinaryMax:
		return FormatFloat(maxID, 4)
	case BinarySum:
		return FormatFloat(sumID, 4)
	default:
		return strconv.Itoa(count)
	}
}
