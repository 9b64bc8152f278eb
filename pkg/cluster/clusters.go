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
	"errors"
	"fmt"
	"sort"
)

// ErrNegativeParameter is returned when gap or conserve is negative.
var ErrNegativeParameter = errors.New("gap and conserve must not be negative")

// FindClusters groups hits into blocks of physically co-located genes.
//
// Hits are sorted by start coordinate (in place) and split wherever the
// distance from the end of one hit to the start of the next exceeds gap.
// Only blocks containing hits from at least conserve distinct queries are
// returned.
func FindClusters(hits []*Hit, conserve, gap int) ([][]*Hit, error) {
	if conserve < 0 || gap < 0 {
		return nil, fmt.Errorf("find clusters (conserve=%d, gap=%d): %w", conserve, gap, ErrNegativeParameter)
	}
	if len(hits) == 0 || len(hits) < conserve {
		return nil, nil
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Start < hits[j].Start })

	var clusters [][]*Hit
	start := 0
	for j := 1; j <= len(hits); j++ {
		if j < len(hits) && hits[j].Start-hits[j-1].End <= gap {
			continue
		}
		if block := hits[start:j]; distinctQueries(block) >= conserve {
			clusters = append(clusters, block)
		}
		start = j
	}
	return clusters, nil
}

func distinctQueries(hits []*Hit) int {
	seen := make(map[string]struct{}, len(hits))
	for _, h := range hits {
		seen[h.Query] = struct{}{}
	}
	return len(seen)
}

// FindOrganismClusters runs FindClusters on every scaffold of o and stores
// the result on the scaffold.
func FindOrganismClusters(o *Organism, conserve, gap int) error {
	for _, s := range o.Scaffolds {
		clusters, err := FindClusters(s.Hits, conserve, gap)
		if err != nil {
			return err
		}
		s.Clusters = clusters
	}
	return nil
}
