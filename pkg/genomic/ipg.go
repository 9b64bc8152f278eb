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

package genomic

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/DrBoothTJ/cblaster/pkg/cluster"
)

// IPG report columns.
const (
	colIPG = iota
	colSource
	colAccession
	colStart
	colStop
	colStrand
	colProtein
	colProteinName
	colOrganism
	colStrain
	colAssembly
	ipgColumns
)

const ipgHeader = "Id\tSource"

// organismIndex builds organisms in first-seen order, keyed by name and
// then strain.
type organismIndex struct {
	names   []string
	strains map[string][]*cluster.Organism
}

func (x *organismIndex) get(name, strain string) *cluster.Organism {
	if x.strains == nil {
		x.strains = make(map[string][]*cluster.Organism)
	}
	list, ok := x.strains[name]
	if !ok {
		x.names = append(x.names, name)
	}
	for _, o := range list {
		if o.Strain == strain {
			return o
		}
	}
	o := cluster.NewOrganism(name, strain)
	x.strains[name] = append(list, o)
	return o
}

func (x *organismIndex) list() []*cluster.Organism {
	var out []*cluster.Organism
	for _, name := range x.names {
		out = append(out, x.strains[name]...)
	}
	return out
}

// ParseIPG reads an Identical Protein Group report and places hits on the
// scaffolds of the organisms they were found in.
//
// Only the first row of each group is used. Rows without a nucleotide
// accession or an assembly (vectors, single gene entries) are skipped.
// Every hit whose subject matches the row's protein is given the row's
// coordinates and strand; a subject is placed at most once.
//
// The returned slice, their scaffolds and the scaffold hits are all in
// first-seen order.
func ParseIPG(r io.Reader, hits []*cluster.Hit) ([]*cluster.Organism, error) {
	bySubject := make(map[string][]*cluster.Hit, len(hits))
	for _, h := range hits {
		bySubject[h.Subject] = append(bySubject[h.Subject], h)
	}

	var (
		index   organismIndex
		lastIPG string
		lineNo  int
	)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		lineNo++
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, ipgHeader) {
			continue
		}

		f := strings.Split(line, "\t")
		if len(f) < ipgColumns {
			return nil, fmt.Errorf("ipg line %d: expected %d columns, got %d", lineNo, ipgColumns, len(f))
		}

		if f[colAccession] == "" || strings.TrimSpace(f[colAssembly]) == "" {
			continue
		}
		if f[colIPG] == lastIPG {
			continue
		}
		lastIPG = f[colIPG]

		name, strain := f[colOrganism], f[colStrain]
		if strings.Contains(name, strain) {
			name = strings.TrimSpace(strings.ReplaceAll(name, strain, ""))
		}

		scaffold := index.get(name, strain).AddScaffold(f[colAccession])

		matched, ok := bySubject[f[colProtein]]
		if !ok {
			continue
		}
		delete(bySubject, f[colProtein])

		start, err := strconv.Atoi(f[colStart])
		if err != nil {
			return nil, fmt.Errorf("ipg line %d: start %q: %w", lineNo, f[colStart], err)
		}
		end, err := strconv.Atoi(f[colStop])
		if err != nil {
			return nil, fmt.Errorf("ipg line %d: stop %q: %w", lineNo, f[colStop], err)
		}

		for _, h := range matched {
			h.Start = start
			h.End = end
			h.Strand = f[colStrand]
			scaffold.Hits = append(scaffold.Hits, h)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read ipg table: %w", err)
	}
	return index.list(), nil
}
