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

// Package local runs cblaster searches against a DIAMOND database on disk.
package local

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/DrBoothTJ/cblaster/pkg/cluster"
	"github.com/DrBoothTJ/cblaster/pkg/query"
)

// ErrNoResults is returned when no hit passes the thresholds.
var ErrNoResults = errors.New("no results found")

// ErrNoDatabase is returned when a search is started without a database.
var ErrNoDatabase = errors.New("local search requires a DIAMOND database")

// Request describes one local search.
type Request struct {
	Database   string // path to a DIAMOND .dmnd database
	Query      query.Query
	Thresholds cluster.Thresholds
}

// Searcher runs local searches.
type Searcher struct {
	Runner  Runner
	Fetcher query.SequenceFetcher // resolves query IDs; unused for query files
	Threads int
	Logger  *slog.Logger
}

func (s *Searcher) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

// Search runs DIAMOND for req and returns the hits that pass the
// thresholds. Query IDs are fetched from NCBI and written to a temporary
// FASTA file first.
func (s *Searcher) Search(ctx context.Context, req Request) ([]*cluster.Hit, error) {
	if req.Database == "" {
		return nil, ErrNoDatabase
	}
	if err := req.Query.Validate(); err != nil {
		return nil, err
	}

	queryFile := req.Query.File
	if queryFile == "" {
		path, err := s.writeQueryIDs(ctx, req.Query.IDs)
		if err != nil {
			return nil, err
		}
		defer func() { _ = os.Remove(path) }()
		queryFile = path
	}

	args := Command(queryFile, req.Database, req.Thresholds, s.Threads)
	s.logger().Info("search.local.start",
		"program", s.Runner.Program(),
		"database", req.Database,
		"query", queryFile,
	)
	s.logger().Debug("search.local.command", "args", strings.Join(args, " "))

	out, err := s.Runner.Run(ctx, args...)
	if err != nil {
		return nil, err
	}

	hits, err := Parse(strings.Split(out, "\n"), req.Thresholds)
	if err != nil {
		return nil, err
	}
	s.logger().Info("search.local.done", "hits", len(hits))
	return hits, nil
}

// writeQueryIDs fetches the sequences of ids and writes them, in order, to
// a temporary FASTA file whose path is returned.
func (s *Searcher) writeQueryIDs(ctx context.Context, ids []string) (string, error) {
	seqs, err := query.Sequences(ctx, query.Query{IDs: ids}, s.Fetcher)
	if err != nil {
		return "", fmt.Errorf("fetch query sequences: %w", err)
	}

	records := make([]query.Record, 0, len(ids))
	for _, id := range ids {
		seq, ok := seqs[id]
		if !ok {
			return "", fmt.Errorf("fetch query sequences: no sequence returned for %s", id)
		}
		records = append(records, query.Record{ID: id, Sequence: seq})
	}

	f, err := os.CreateTemp("", "cblaster-query-*.faa")
	if err != nil {
		return "", fmt.Errorf("create query file: %w", err)
	}
	if err := query.WriteFASTA(f, records); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("write query file: %w", err)
	}
	return f.Name(), nil
}
