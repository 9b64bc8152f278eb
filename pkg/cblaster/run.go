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
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/DrBoothTJ/cblaster/pkg/cluster"
	"github.com/DrBoothTJ/cblaster/pkg/local"
	"github.com/DrBoothTJ/cblaster/pkg/query"
	"github.com/DrBoothTJ/cblaster/pkg/remote"
)

// LocalBackend searches a DIAMOND database.
type LocalBackend interface {
	Search(ctx context.Context, req local.Request) ([]*cluster.Hit, error)
}

// RemoteBackend searches NCBI BLAST and returns the search RID with the hits.
type RemoteBackend interface {
	Search(ctx context.Context, req remote.Request) (string, []*cluster.Hit, error)
}

// ContextBackend places hits on their organisms and scaffolds and finds
// the hit clusters.
type ContextBackend interface {
	Search(ctx context.Context, hits []*cluster.Hit, conserve, gap int) ([]*cluster.Organism, error)
}

// SummariseFunc writes the summary of organisms to w.
type SummariseFunc func(w io.Writer, organisms []*cluster.Organism, opts cluster.SummaryOptions) error

// Result is the outcome of a search.
type Result struct {
	Queries   []string // query names in input order
	RID       string   // remote searches only
	Hits      []*cluster.Hit
	Organisms []*cluster.Organism
}

// Runner dispatches a search to its backend, runs the genomic context step
// and summarises the result.
type Runner struct {
	Local   LocalBackend
	Remote  RemoteBackend
	Context ContextBackend

	// Summarise defaults to Summarise.
	Summarise SummariseFunc

	Logger *slog.Logger
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}
	return r.Logger
}

// Run executes the search described by opts and writes the summary to out.
// Exactly one backend is called, chosen by the Search variant, and the
// summary is written exactly once. Backend errors are returned unchanged.
func (r *Runner) Run(ctx context.Context, opts *Options, out io.Writer) (*Result, error) {
	names, err := query.Names(opts.Query)
	if err != nil {
		return nil, err
	}
	res := &Result{Queries: names}

	switch s := opts.Search.(type) {
	case LocalSearch:
		if r.Local == nil {
			return nil, fmt.Errorf("local search: no backend configured")
		}
		r.logger().Info("search.local", "database", s.Database, "queries", len(names))
		res.Hits, err = r.Local.Search(ctx, local.Request{
			Database:   s.Database,
			Query:      opts.Query,
			Thresholds: opts.Thresholds(),
		})
	case RemoteSearch:
		if r.Remote == nil {
			return nil, fmt.Errorf("remote search: no backend configured")
		}
		r.logger().Info("search.remote", "database", s.Database, "rid", s.RID, "queries", len(names))
		res.RID, res.Hits, err = r.Remote.Search(ctx, remote.Request{
			Database:    s.Database,
			EntrezQuery: s.EntrezQuery,
			RID:         s.RID,
			Query:       opts.Query,
			Thresholds:  opts.Thresholds(),
		})
	default:
		return nil, fmt.Errorf("search: unsupported search type %T", opts.Search)
	}
	if err != nil {
		return res, err
	}
	r.logger().Info("search.hits", "count", len(res.Hits))

	if r.Context == nil {
		return res, fmt.Errorf("genomic context: no backend configured")
	}
	res.Organisms, err = r.Context.Search(ctx, res.Hits, opts.Conserve, opts.Gap)
	if err != nil {
		return res, err
	}

	summarise := r.Summarise
	if summarise == nil {
		summarise = Summarise[*cluster.Organism]
	}
	if err := summarise(out, res.Organisms, opts.SummaryOptions()); err != nil {
		return res, fmt.Errorf("write summary: %w", err)
	}
	return res, nil
}
