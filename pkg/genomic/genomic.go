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

// Package genomic places search hits in their genomic context. Hit subjects
// are looked up in NCBI's Identical Protein Groups resource to find the
// organism, scaffold and coordinates of each protein, and co-located hits
// are then grouped into clusters.
package genomic

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/DrBoothTJ/cblaster/pkg/cluster"
)

// Defaults for IPG fetching. Three concurrent requests is NCBI's limit for
// clients without an API key.
const (
	DefaultBatchSize = 1000
	DefaultWorkers   = 3
)

// IPGFetcher retrieves IPG reports for protein identifiers.
type IPGFetcher interface {
	FetchIPG(ctx context.Context, ids []string) (string, error)
}

// Searcher runs the genomic context step.
type Searcher struct {
	Fetcher   IPGFetcher
	BatchSize int
	Workers   int
	Logger    *slog.Logger
}

func (s *Searcher) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

// Search fetches the IPG reports of the hit subjects, builds organisms from
// them and finds the hit clusters on every scaffold.
func (s *Searcher) Search(ctx context.Context, hits []*cluster.Hit, conserve, gap int) ([]*cluster.Organism, error) {
	if conserve < 0 || gap < 0 {
		return nil, fmt.Errorf("genomic context (conserve=%d, gap=%d): %w", conserve, gap, cluster.ErrNegativeParameter)
	}

	table, err := s.fetch(ctx, Subjects(hits))
	if err != nil {
		return nil, err
	}

	organisms, err := ParseIPG(strings.NewReader(table), hits)
	if err != nil {
		return nil, err
	}

	clusters := 0
	for _, o := range organisms {
		if err := cluster.FindOrganismClusters(o, conserve, gap); err != nil {
			return nil, err
		}
		clusters += o.CountHitClusters()
	}
	s.logger().Info("context.done", "organisms", len(organisms), "clusters", clusters)
	return organisms, nil
}

// fetch retrieves the IPG reports of ids in batches, a few at a time, and
// concatenates them in batch order.
func (s *Searcher) fetch(ctx context.Context, ids []string) (string, error) {
	if len(ids) == 0 {
		return "", nil
	}
	batches := Batches(ids, s.BatchSize)
	tables := make([]string, len(batches))

	workers := s.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, batch := range batches {
		i, batch := i, batch
		g.Go(func() error {
			s.logger().Debug("context.ipg.fetch", "batch", i+1, "of", len(batches), "ids", len(batch))
			table, err := s.Fetcher.FetchIPG(gctx, batch)
			if err != nil {
				return fmt.Errorf("fetch IPG batch %d/%d: %w", i+1, len(batches), err)
			}
			tables[i] = table
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	var b strings.Builder
	for _, t := range tables {
		b.WriteString(t)
		if t != "" && !strings.HasSuffix(t, "\n") {
			b.WriteByte('\n')
		}
	}
	return b.String(), nil
}

// Subjects returns the distinct hit subjects in first-seen order.
func Subjects(hits []*cluster.Hit) []string {
	seen := make(map[string]struct{}, len(hits))
	var ids []string
	for _, h := range hits {
		if _, ok := seen[h.Subject]; ok {
			continue
		}
		seen[h.Subject] = struct{}{}
		ids = append(ids, h.Subject)
	}
	return ids
}

// Batches splits ids into consecutive slices of at most size elements.
func Batches(ids []string, size int) [][]string {
	if size <= 0 {
		size = DefaultBatchSize
	}
	var out [][]string
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		out = append(out, ids[start:end])
	}
	return out
}
