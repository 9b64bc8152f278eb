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

// Package remote runs cblaster searches against NCBI's BLAST service.
//
// A search is launched, left alone for NCBI's estimated time of completion,
// then polled at a fixed interval until it is ready. The tabular results do
// not include query coverage, so it is computed from the query lengths.
package remote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/DrBoothTJ/cblaster/pkg/cluster"
	"github.com/DrBoothTJ/cblaster/pkg/ncbi"
	"github.com/DrBoothTJ/cblaster/pkg/query"
)

// Databases accepted by the BLAST URL API for protein searches.
var Databases = []string{"nr", "refseq_protein", "swissprot", "pdbaa"}

// DefaultDatabase is searched when none is given.
const DefaultDatabase = "nr"

// Polling defaults. NCBI asks for no more than one status check per minute.
const (
	DefaultPollInterval = 60 * time.Second
	DefaultMaxPolls     = 120
)

var (
	// ErrRetryLimit is returned when a search is still running after the
	// maximum number of status checks.
	ErrRetryLimit = errors.New("remote search did not finish within the retry limit")

	// ErrNoResults is returned when no hit passes the thresholds.
	ErrNoResults = errors.New("no results found")
)

// ValidDatabase reports whether db is a supported remote database.
func ValidDatabase(db string) bool {
	for _, d := range Databases {
		if d == db {
			return true
		}
	}
	return false
}

// Client is the subset of the NCBI client used by a Searcher.
type Client interface {
	StartSearch(ctx context.Context, p ncbi.SearchParams) (string, time.Duration, error)
	CheckSearch(ctx context.Context, rid string) (bool, error)
	RetrieveResults(ctx context.Context, rid string) ([]string, error)
}

// Request describes one remote search.
type Request struct {
	Database    string
	EntrezQuery string

	// RID retrieves the results of an earlier search instead of
	// launching a new one.
	RID string

	Query      query.Query
	Thresholds cluster.Thresholds
}

// Searcher runs remote searches.
type Searcher struct {
	Client  Client
	Fetcher query.SequenceFetcher

	PollInterval time.Duration
	MaxPolls     int

	// OnPoll, if set, is called before every status check.
	OnPoll func(rid string, attempt int)

	Logger *slog.Logger

	sleep func(ctx context.Context, d time.Duration) error
}

// NewSearcher creates a Searcher with the default polling schedule. The
// fetcher resolves query IDs to sequences and may be the client itself.
func NewSearcher(client Client, fetcher query.SequenceFetcher, logger *slog.Logger) *Searcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Searcher{
		Client:       client,
		Fetcher:      fetcher,
		PollInterval: DefaultPollInterval,
		MaxPolls:     DefaultMaxPolls,
		Logger:       logger,
		sleep:        sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (s *Searcher) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

func (s *Searcher) wait(ctx context.Context, d time.Duration) error {
	if s.sleep == nil {
		return sleepContext(ctx, d)
	}
	return s.sleep(ctx, d)
}

// Search launches (or resumes, when req.RID is set) a remote search and
// returns its RID with the hits that pass the thresholds.
func (s *Searcher) Search(ctx context.Context, req Request) (string, []*cluster.Hit, error) {
	db := req.Database
	if db == "" {
		db = DefaultDatabase
	}
	if !ValidDatabase(db) {
		return "", nil, fmt.Errorf("remote database %q: expected one of %s", db, strings.Join(Databases, ", "))
	}

	seqs, err := query.Sequences(ctx, req.Query, s.Fetcher)
	if err != nil {
		return "", nil, fmt.Errorf("load query sequences: %w", err)
	}

	rid := req.RID
	if rid == "" {
		text, err := queryText(req.Query)
		if err != nil {
			return "", nil, err
		}
		params := ncbi.DefaultSearchParams()
		params.Query = text
		params.Database = db
		params.EntrezQuery = req.EntrezQuery
		params.Evalue = req.Thresholds.MaxEvalue

		s.logger().Info("search.remote.start", "database", db, "entrez_query", req.EntrezQuery)
		var rtoe time.Duration
		rid, rtoe, err = s.Client.StartSearch(ctx, params)
		if err != nil {
			return "", nil, fmt.Errorf("start remote search: %w", err)
		}
		s.logger().Info("search.remote.launched", "rid", rid, "rtoe", rtoe)

		if err := s.wait(ctx, rtoe); err != nil {
			return rid, nil, err
		}
		if err := s.Poll(ctx, rid); err != nil {
			return rid, nil, err
		}
	} else {
		s.logger().Info("search.remote.resume", "rid", rid)
	}

	rows, err := s.Client.RetrieveResults(ctx, rid)
	if err != nil {
		return rid, nil, fmt.Errorf("retrieve results for %s: %w", rid, err)
	}

	hits, err := Parse(rows, seqs, req.Thresholds)
	if err != nil {
		return rid, nil, fmt.Errorf("search %s: %w", rid, err)
	}
	s.logger().Info("search.remote.done", "rid", rid, "rows", len(rows), "hits", len(hits))
	return rid, hits, nil
}

// Poll checks the status of rid until it is ready, sleeping PollInterval
// between checks. It gives up with ErrRetryLimit after MaxPolls checks.
func (s *Searcher) Poll(ctx context.Context, rid string) error {
	maxPolls := s.MaxPolls
	if maxPolls <= 0 {
		maxPolls = DefaultMaxPolls
	}

	for attempt := 1; attempt <= maxPolls; attempt++ {
		if attempt > 1 {
			if err := s.wait(ctx, s.PollInterval); err != nil {
				return err
			}
		}
		if s.OnPoll != nil {
			s.OnPoll(rid, attempt)
		}
		s.logger().Debug("search.remote.poll", "rid", rid, "attempt", attempt)

		ready, err := s.Client.CheckSearch(ctx, rid)
		if err != nil {
			return fmt.Errorf("check search %s: %w", rid, err)
		}
		if ready {
			return nil
		}
	}
	return fmt.Errorf("search %s after %d checks: %w", rid, maxPolls, ErrRetryLimit)
}

// queryText is the QUERY parameter for q: the FASTA file contents, or the
// identifiers one per line.
func queryText(q query.Query) (string, error) {
	if len(q.IDs) > 0 {
		return strings.Join(q.IDs, "\n"), nil
	}
	data, err := os.ReadFile(q.File) //nolint:gosec // G304: path is a user supplied query file
	if err != nil {
		return "", fmt.Errorf("read query file: %w", err)
	}
	return string(data), nil
}

// Tabular column positions.
const (
	colQuery    = 0
	colSubject  = 1
	colIdentity = 2
	colQStart   = 6
	colQEnd     = 7
	colEvalue   = 10
	colBitscore = 11
)

// Parse converts BLAST tabular rows into hits, keeping those that pass th.
// Query coverage is (qend - qstart + 1) / len(query) * 100, using the query
// sequences in seqs.
func Parse(rows []string, seqs map[string]string, th cluster.Thresholds) ([]*cluster.Hit, error) {
	var hits []*cluster.Hit
	for i, row := range rows {
		fields := strings.Split(strings.TrimRight(row, "\r\n"), "\t")
		if len(fields) <= colBitscore {
			return nil, fmt.Errorf("row %d: expected at least %d columns, got %d", i+1, colBitscore+1, len(fields))
		}

		qid := fields[colQuery]
		seq, ok := lookupSequence(seqs, qid)
		if !ok || len(seq) == 0 {
			return nil, fmt.Errorf("row %d: no sequence for query %q", i+1, qid)
		}
		qstart, err := strconv.Atoi(fields[colQStart])
		if err != nil {
			return nil, fmt.Errorf("row %d: qstart: %w", i+1, err)
		}
		qend, err := strconv.Atoi(fields[colQEnd])
		if err != nil {
			return nil, fmt.Errorf("row %d: qend: %w", i+1, err)
		}
		coverage := float64(qend-qstart+1) / float64(len(seq)) * 100

		hit, err := cluster.NewHit(
			qid,
			fields[colSubject],
			fields[colIdentity],
			strconv.FormatFloat(coverage, 'g', -1, 64),
			fields[colEvalue],
			fields[colBitscore],
		)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		if th.Accept(hit) {
			hits = append(hits, hit)
		}
	}
	if len(hits) == 0 {
		return nil, ErrNoResults
	}
	return hits, nil
}

// lookupSequence finds the sequence for a result query ID. NCBI reports
// versioned accessions, so "ABC123.1" also matches a query given as
// "ABC123".
func lookupSequence(seqs map[string]string, qid string) (string, bool) {
	if seq, ok := seqs[qid]; ok {
		return seq, true
	}
	if i := strings.LastIndexByte(qid, '.'); i > 0 {
		if seq, ok := seqs[qid[:i]]; ok {
			return seq, true
		}
	}
	return "", false
}
