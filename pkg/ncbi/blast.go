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

package ncbi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrSearchFailed is returned when NCBI reports a search as failed or
	// unknown (RIDs expire after 24 hours).
	ErrSearchFailed = errors.New("remote BLAST search failed")

	// ErrNoHits is returned when a search completed without hits.
	ErrNoHits = errors.New("remote BLAST search completed but found no hits")
)

// SearchParams are the parameters of a new BLAST search.
type SearchParams struct {
	Query       string // FASTA text or newline separated identifiers
	Database    string
	Program     string
	Filter      string
	Evalue      float64
	GapCosts    string
	Matrix      string
	HitlistSize int
	WordSize    int
	CompStats   int
	EntrezQuery string

	// blastp only.
	Threshold int

	// blastn only.
	Megablast   bool
	NuclReward  int
	NuclPenalty int
}

// DefaultSearchParams returns blastp against nr with cblaster's defaults.
func DefaultSearchParams() SearchParams {
	return SearchParams{
		Database:    "nr",
		Program:     "blastp",
		Filter:      "F",
		Evalue:      0.01,
		GapCosts:    "11 1",
		Matrix:      "BLOSUM62",
		HitlistSize: 0,
		WordSize:    6,
		CompStats:   2,
		Threshold:   11,
	}
}

// values builds the CMD=PUT form for p.
func (p SearchParams) values() url.Values {
	v := url.Values{}
	v.Set("CMD", "PUT")
	v.Set("QUERY", p.Query)
	v.Set("DATABASE", p.Database)
	v.Set("PROGRAM", p.Program)
	v.Set("FILTER", p.Filter)
	v.Set("EXPECT", strconv.FormatFloat(p.Evalue, 'g', -1, 64))
	v.Set("GAPCOSTS", p.GapCosts)
	v.Set("MATRIX", p.Matrix)
	v.Set("HITLIST_SIZE", strconv.Itoa(p.HitlistSize))
	v.Set("WORD_SIZE", strconv.Itoa(p.WordSize))
	v.Set("COMPOSITION_BASED_STATISTICS", strconv.Itoa(p.CompStats))
	if p.EntrezQuery != "" {
		v.Set("ENTREZ_QUERY", p.EntrezQuery)
	}
	if p.Program == "blastn" {
		if p.Megablast {
			v.Set("MEGABLAST", "on")
		}
		if p.NuclReward != 0 {
			v.Set("NUCL_REWARD", strconv.Itoa(p.NuclReward))
		}
		if p.NuclPenalty != 0 {
			v.Set("NUCL_PENALTY", strconv.Itoa(p.NuclPenalty))
		}
	} else {
		v.Set("THRESHOLD", strconv.Itoa(p.Threshold))
	}
	return v
}

var (
	ridPattern    = regexp.MustCompile(`\bRID = (\S+)`)
	rtoePattern   = regexp.MustCompile(`\bRTOE = (\d+)`)
	statusPattern = regexp.MustCompile(`(Status|ThereAreHits)=(\S+)`)
)

// StartSearch launches a BLAST search and returns its request identifier
// (RID) and NCBI's estimate of time to completion (RTOE).
func (c *Client) StartSearch(ctx context.Context, p SearchParams) (string, time.Duration, error) {
	if strings.TrimSpace(p.Query) == "" {
		return "", 0, fmt.Errorf("start search: empty query")
	}
	form := p.values()
	c.identify(form, true)

	body, err := c.do(ctx, "blast_put", http.MethodPost, c.cfg.BlastURL, form)
	if err != nil {
		return "", 0, err
	}

	rid := ridPattern.FindStringSubmatch(body)
	rtoe := rtoePattern.FindStringSubmatch(body)
	if rid == nil || rtoe == nil {
		return "", 0, fmt.Errorf("start search: no RID/RTOE in response: %w", ErrBadResponse)
	}
	secs, err := strconv.Atoi(rtoe[1])
	if err != nil {
		return "", 0, fmt.Errorf("start search: RTOE %q: %w", rtoe[1], ErrBadResponse)
	}
	return rid[1], time.Duration(secs) * time.Second, nil
}

// CheckSearch reports whether the search identified by rid has finished
// with hits. A search that is still running returns false.
func (c *Client) CheckSearch(ctx context.Context, rid string) (bool, error) {
	form := url.Values{}
	form.Set("CMD", "Get")
	form.Set("RID", rid)
	form.Set("FORMAT_OBJECT", "SearchInfo")

	body, err := c.do(ctx, "blast_status", http.MethodGet, c.cfg.BlastURL, form)
	if err != nil {
		return false, err
	}

	var status, hits string
	for _, m := range statusPattern.FindAllStringSubmatch(body, -1) {
		if m[1] == "Status" {
			status = m[2]
		} else {
			hits = m[2]
		}
	}

	switch status {
	case "WAITING":
		return false, nil
	case "UNKNOWN", "FAILED":
		return false, fmt.Errorf("search %s (status=%s): %w", rid, status, ErrSearchFailed)
	case "READY":
		if hits == "yes" {
			return true, nil
		}
		return false, fmt.Errorf("search %s: %w", rid, ErrNoHits)
	case "":
		return false, fmt.Errorf("search %s: no status in response: %w", rid, ErrBadResponse)
	default:
		return false, nil
	}
}

// RetrieveResults fetches the tabular results of a finished search and
// returns its data rows, without HTML and comment lines.
func (c *Client) RetrieveResults(ctx context.Context, rid string) ([]string, error) {
	form := url.Values{}
	form.Set("CMD", "Get")
	form.Set("RID", rid)
	form.Set("FORMAT_TYPE", "Tabular")
	form.Set("FORMAT_OBJECT", "Alignment")
	form.Set("HITLIST_SIZE", "0")
	form.Set("NCBI_GI", "F")

	body, err := c.do(ctx, "blast_get", http.MethodGet, c.cfg.BlastURL, form)
	if err != nil {
		return nil, err
	}

	var rows []string
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "<") {
			continue
		}
		if strings.Count(line, "\t") < 11 {
			continue
		}
		rows = append(rows, line)
	}
	return rows, nil
}
