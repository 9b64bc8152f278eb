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
	"regexp"
	"strconv"
	"strings"
)

// Hit is a single BLAST/DIAMOND alignment between a query and a subject
// protein. Genomic coordinates are filled in by the genomic context step.
type Hit struct {
	Query    string
	Subject  string
	Identity float64 // percent identity
	Coverage float64 // percent query coverage
	Evalue   float64
	Bitscore float64

	Start  int
	End    int
	Strand string
}

// subjectAccession extracts ACC from NCBI style identifiers such as
// "gb|ACC|" or "ref|ACC|".
var subjectAccession = regexp.MustCompile(`\|([A-Za-z0-9._]+)\|`)

// NormalizeSubject reduces an NCBI pipe-delimited subject identifier to its
// accession. Other identifiers are returned unchanged.
func NormalizeSubject(subject string) string {
	if !strings.Contains(subject, "gb") && !strings.Contains(subject, "ref") {
		return subject
	}
	if m := subjectAccession.FindStringSubmatch(subject); m != nil {
		return m[1]
	}
	return subject
}

// NewHit builds a Hit from the string fields of a tabular search result.
func NewHit(query, subject, identity, coverage, evalue, bitscore string) (*Hit, error) {
	h := &Hit{Query: query, Subject: NormalizeSubject(subject)}

	fields := []struct {
		name string
		raw  string
		dst  *float64
	}{
		{"identity", identity, &h.Identity},
		{"coverage", coverage, &h.Coverage},
		{"evalue", evalue, &h.Evalue},
		{"bitscore", bitscore, &h.Bitscore},
	}
	for _, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f.raw), 64)
		if err != nil {
			return nil, fmt.Errorf("parse %s %q: %w", f.name, f.raw, err)
		}
		*f.dst = v
	}
	return h, nil
}

// String returns a short description of the hit.
func (h *Hit) String() string {
	return fmt.Sprintf("HIT: %s - %s [%s, %s]", h.Query, h.Subject,
		FormatFloat(h.Identity, 4), FormatFloat(h.Coverage, 4))
}

// Values returns the nine summary table fields of the hit. Floats are shown
// with at most decimals significant digits.
func (h *Hit) Values(decimals int) []string {
	return []string{
		h.Query,
		h.Subject,
		FormatFloat(h.Identity, decimals),
		FormatFloat(h.Coverage, decimals),
		FormatFloat(h.Evalue, decimals),
		FormatFloat(h.Bitscore, decimals),
		strconv.Itoa(h.Start),
		strconv.Itoa(h.End),
		h.Strand,
	}
}

// FormatFloat renders v in its shortest form using at most digits
// significant digits. Zero digits rounds to an integer.
func FormatFloat(v float64, digits int) string {
	if digits <= 0 {
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
	return strconv.FormatFloat(v, 'g', digits, 64)
}

// Thresholds are the score cut-offs a hit must pass to be kept. All
// comparisons are strict.
type Thresholds struct {
	MinIdentity float64
	MinCoverage float64
	MaxEvalue   float64
}

// DefaultThresholds returns 30% identity, 50% coverage and an e-value of 0.01.
func DefaultThresholds() Thresholds {
	return Thresholds{MinIdentity: 30, MinCoverage: 50, MaxEvalue: 0.01}
}

// Accept reports whether h passes all thresholds.
func (t Thresholds) Accept(h *Hit) bool {
	return h.Identity > t.MinIdentity &&
		h.Coverage > t.MinCoverage &&
		h.Evalue < t.MaxEvalue
}
