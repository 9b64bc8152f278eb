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

package cblaster

import (
	"io"
	"strings"

	"github.com/DrBoothTJ/cblaster/pkg/cluster"
)

// Summarizer is anything that can be summarised: in practice
// *cluster.Organism.
type Summarizer interface {
	Summary(opts cluster.SummaryOptions) string
	CountHitClusters() int
}

// Summarise writes the summaries of the organisms that have at least one
// hit cluster, separated by two blank lines and followed by one newline.
func Summarise[T Summarizer](w io.Writer, organisms []T, opts cluster.SummaryOptions) error {
	blocks := make([]string, 0, len(organisms))
	for _, o := range organisms {
		if o.CountHitClusters() == 0 {
			continue
		}
		blocks = append(blocks, o.Summary(opts))
	}
	_, err := io.WriteString(w, strings.Join(blocks, "\n\n\n")+"\n")
	return err
}

// WriteBinary writes the binary (presence/absence) table of the clusters
// found in organisms, one column per query, followed by one newline.
func WriteBinary(w io.Writer, organisms []*cluster.Organism, queries []string, opts cluster.BinaryOptions) error {
	_, err := io.WriteString(w, cluster.BinaryTable(organisms, queries, opts)+"\n")
	return err
}
