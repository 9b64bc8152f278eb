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
	"strings"
)

// Organism groups the scaffolds carrying hits from one species/strain.
type Organism struct {
	Name      string
	Strain    string
	Scaffolds []*Scaffold // first-seen order
}

// NewOrganism returns an empty Organism.
func NewOrganism(name, strain string) *Organism {
	return &Organism{Name: name, Strain: strain}
}

// FullName is the name with the strain appended, unless the strain is empty
// or already part of the name.
func (o *Organism) FullName() string {
	if strings.Contains(o.Name, o.Strain) {
		return o.Name
	}
	return o.Name + " " + o.Strain
}

// String implements fmt.Stringer.
func (o *Organism) String() string {
	hits := 0
	for _, s := range o.Scaffolds {
		hits += len(s.Hits)
	}
	return fmt.Sprintf("%s [%d hits on %d scaffolds]", o.FullName(), hits, len(o.Scaffolds))
}

// Scaffold returns the scaffold with the given accession, or nil.
func (o *Organism) Scaffold(accession string) *Scaffold {
	for _, s := range o.Scaffolds {
		if s.Accession == accession {
			return s
		}
	}
	return nil
}

// AddScaffold returns the scaffold with the given accession, creating it if
// needed.
func (o *Organism) AddScaffold(accession string) *Scaffold {
	if s := o.Scaffold(accession); s != nil {
		return s
	}
	s := &Scaffold{Accession: accession}
	o.Scaffolds = append(o.Scaffolds, s)
	return s
}

// CountHitClusters returns the number of clusters over all scaffolds.
func (o *Organism) CountHitClusters() int {
	n := 0
	for _, s := range o.Scaffolds {
		n += len(s.Clusters)
	}
	return n
}

// Summary reports every scaffold that has clusters under an "=" underlined
// organism header.
func (o *Organism) Summary(opts SummaryOptions) string {
	var blocks []string
	for _, s := range o.Scaffolds {
		if len(s.Clusters) == 0 {
			continue
		}
		blocks = append(blocks, s.Summary(opts))
	}
	return HeaderString(o.FullName(), "=") + "\n" + strings.Join(blocks, "\n\n")
}

// Scaffold is a nucleotide sequence (contig, chromosome) carrying hits.
type Scaffold struct {
	Accession string
	Hits      []*Hit
	Clusters  [][]*Hit
}

// String implements fmt.Stringer.
func (s *Scaffold) String() string {
	return fmt.Sprintf("%s [%d hits in %d clusters]", s.Accession, len(s.Hits), len(s.Clusters))
}

// Summary reports each cluster table under a "-" underlined accession header.
func (s *Scaffold) Summary(opts SummaryOptions) string {
	tables := make([]string, 0, len(s.Clusters))
	for _, c := range s.Clusters {
		tables = append(tables, ClusterTable(c, opts))
	}
	return HeaderString(s.Accession, "-") + "\n" + strings.Join(tables, "\n\n")
}
