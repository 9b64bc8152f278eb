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
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/DrBoothTJ/cblaster/pkg/query"
)

// MaxIPGRecords is the most records EFetch returns for one IPG request.
const MaxIPGRecords = 10000

func (c *Client) efetch(ctx context.Context, endpoint, rettype string, ids []string) (string, error) {
	if len(ids) == 0 {
		return "", fmt.Errorf("%s: no identifiers", endpoint)
	}
	form := url.Values{}
	form.Set("db", "protein")
	form.Set("rettype", rettype)
	form.Set("retmode", "text")
	form.Set("id", strings.Join(ids, ","))
	if rettype == "ipg" {
		form.Set("retmax", strconv.Itoa(MaxIPGRecords))
	}
	c.identify(form, false)

	return c.do(ctx, endpoint, http.MethodPost, c.efetchURL(), form)
}

// FetchSequences retrieves protein sequences for ids. The returned map is
// keyed by the requested identifier; NCBI headers carry the accession
// followed by a description, so each record is matched to the first
// requested identifier its header contains.
func (c *Client) FetchSequences(ctx context.Context, ids []string) (map[string]string, error) {
	body, err := c.efetch(ctx, "efetch_fasta", "fasta", ids)
	if err != nil {
		return nil, err
	}

	records, err := query.ReadFASTA(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("efetch_fasta: %w", err)
	}

	seqs := make(map[string]string, len(ids))
	for _, r := range records {
		header := r.ID
		if r.Description != "" {
			header += " " + r.Description
		}
		for _, id := range ids {
			if _, done := seqs[id]; done {
				continue
			}
			if strings.Contains(header, id) {
				seqs[id] = r.Sequence
				break
			}
		}
	}
	return seqs, nil
}

// FetchIPG retrieves the Identical Protein Group report for ids as a tab
// separated table. At most MaxIPGRecords rows are returned, so callers
// should batch large ID lists.
func (c *Client) FetchIPG(ctx context.Context, ids []string) (string, error) {
	return c.efetch(ctx, "efetch_ipg", "ipg", ids)
}
