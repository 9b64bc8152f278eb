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

// Package query loads the protein sequences a search starts from: either a
// FASTA file on disk or a list of NCBI protein identifiers.
package query

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/biogo/biogo/alphabet"
	"github.com/biogo/biogo/io/seqio/fasta"
	"github.com/biogo/biogo/seq/linear"
)

// ErrNoQuery is returned when neither a file nor IDs are given.
var ErrNoQuery = errors.New("expected a query file or query IDs")

// ErrAmbiguousQuery is returned when both a file and IDs are given.
var ErrAmbiguousQuery = errors.New("query file and query IDs are mutually exclusive")

// Query is the source of query sequences. Exactly one field is set.
type Query struct {
	File string   // path to a FASTA file
	IDs  []string // NCBI protein identifiers
}

// Validate checks that exactly one source is set.
func (q Query) Validate() error {
	switch {
	case q.File == "" && len(q.IDs) == 0:
		return ErrNoQuery
	case q.File != "" && len(q.IDs) > 0:
		return ErrAmbiguousQuery
	}
	return nil
}

// Record is one FASTA entry.
type Record struct {
	ID          string // header up to the first space
	Description string
	Sequence    string
}

// ReadFASTA parses all records from r.
func ReadFASTA(r io.Reader) ([]Record, error) {
	fr := fasta.NewReader(r, linear.NewSeq("", nil, alphabet.Protein))
	var records []Record
	for {
		s, err := fr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read fasta record %d: %w", len(records)+1, err)
		}
		ls, ok := s.(*linear.Seq)
		if !ok {
			return nil, fmt.Errorf("unexpected sequence type %T", s)
		}
		seq := make([]byte, len(ls.Seq))
		for i, l := range ls.Seq {
			seq[i] = byte(l)
		}
		records = append(records, Record{ID: ls.ID, Description: ls.Desc, Sequence: string(seq)})
	}
	return records, nil
}

// ReadFASTAFile parses all records of the FASTA file at path.
func ReadFASTAFile(path string) ([]Record, error) {
	f, err := os.Open(path) //nolint:gosec // G304: path is a user supplied query file
	if err != nil {
		return nil, fmt.Errorf("open query file: %w", err)
	}
	defer func() { _ = f.Close() }()

	records, err := ReadFASTA(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return records, nil
}

// WriteFASTA writes records to w, wrapping sequences at 80 columns.
func WriteFASTA(w io.Writer, records []Record) error {
	fw := fasta.NewWriter(w, 80)
	for _, r := range records {
		s := linear.NewSeq(r.ID, alphabet.BytesToLetters([]byte(r.Sequence)), alphabet.Protein)
		s.Desc = r.Description
		if _, err := fw.Write(s); err != nil {
			return fmt.Errorf("write fasta record %s: %w", r.ID, err)
		}
	}
	return nil
}

// SequenceFetcher retrieves protein sequences from a remote database, keyed
// by the requested identifiers.
type SequenceFetcher interface {
	FetchSequences(ctx context.Context, ids []string) (map[string]string, error)
}

// Sequences returns the query sequences keyed by ID, reading the query file
// or fetching the query IDs.
func Sequences(ctx context.Context, q Query, fetcher SequenceFetcher) (map[string]string, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if q.File != "" {
		records, err := ReadFASTAFile(q.File)
		if err != nil {
			return nil, err
		}
		seqs := make(map[string]string, len(records))
		for _, r := range records {
			seqs[r.ID] = r.Sequence
		}
		return seqs, nil
	}
	if fetcher == nil {
		return nil, fmt.Errorf("fetch %d query sequences: no sequence fetcher configured", len(q.IDs))
	}
	return fetcher.FetchSequences(ctx, q.IDs)
}

// Names returns the query names in input order: the IDs, or the record IDs
// of the query file.
func Names(q Query) ([]string, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if len(q.IDs) > 0 {
		return append([]string(nil), q.IDs...), nil
	}
	records, err := ReadFASTAFile(q.File)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(records))
	for i, r := range records {
		names[i] = r.ID
	}
	return names, nil
}

// ReadIDFile reads newline separated identifiers, skipping blank lines.
func ReadIDFile(path string) ([]string, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is a user supplied ID list
	if err != nil {
		return nil, fmt.Errorf("read query ID file: %w", err)
	}
	var ids []string
	for _, line := range strings.Split(string(data), "\n") {
		if id := strings.TrimSpace(line); id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// ExpandIDs treats a single identifier naming an existing file as a list of
// identifiers stored in that file.
func ExpandIDs(ids []string) ([]string, error) {
	if len(ids) != 1 {
		return ids, nil
	}
	if info, err := os.Stat(ids[0]); err != nil || info.IsDir() {
		return ids, nil
	}
	return ReadIDFile(ids[0])
}
