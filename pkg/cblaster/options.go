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

// Package cblaster ties a cblaster search together: it turns command-line
// arguments into validated Options, runs the selected search backend and
// the genomic context step, and writes the cluster summary.
package cblaster

import (
	"github.com/DrBoothTJ/cblaster/pkg/cluster"
	"github.com/DrBoothTJ/cblaster/pkg/query"
)

// Mode selects the search backend.
type Mode string

const (
	// ModeLocal searches a DIAMOND database on disk.
	ModeLocal Mode = "local"
	// ModeRemote searches NCBI's BLAST service.
	ModeRemote Mode = "remote"
)

// Search is the backend-specific part of Options: either LocalSearch or
// RemoteSearch. Remote-only settings have no field in LocalSearch, so they
// cannot be set for a local search.
type Search interface {
	Mode() Mode
	isSearch()
}

// LocalSearch is a search of a DIAMOND database.
type LocalSearch struct {
	Database string // path to the .dmnd file
}

// Mode implements Search.
func (LocalSearch) Mode() Mode { return ModeLocal }
func (LocalSearch) isSearch()  {}

// RemoteSearch is a search of an NCBI BLAST database.
type RemoteSearch struct {
	Database    string // nr, refseq_protein, swissprot or pdbaa
	EntrezQuery string // optional Entrez filter, e.g. "Aspergillus"[ORGN]
	RID         string // retrieve an earlier search instead of starting one
}

// Mode implements Search.
func (RemoteSearch) Mode() Mode { return ModeRemote }
func (RemoteSearch) isSearch()  {}

// Options is the validated configuration of one search.
type Options struct {
	Subcommand string

	Query  query.Query
	Search Search

	Gap         int
	Conserve    int
	MaxEvalue   float64
	MinIdentity float64
	MinCoverage float64

	// Output is the summary file; empty means standard output.
	Output          string
	OutputHeaders   bool
	OutputHuman     bool
	OutputDelimiter string
	OutputDecimals  int

	// Binary is the binary table file; empty means none is written.
	Binary          string
	BinaryHeaders   bool
	BinaryHuman     bool
	BinaryDelimiter string
	BinaryKey       cluster.BinaryKey

	Debug       bool
	MetricsAddr string
}

// DefaultOptions returns the defaults of a remote search against nr.
func DefaultOptions() Options {
	th := cluster.DefaultThresholds()
	return Options{
		Subcommand:      "search",
		Search:          RemoteSearch{Database: "nr"},
		Gap:             20000,
		Conserve:        3,
		MaxEvalue:       th.MaxEvalue,
		MinIdentity:     th.MinIdentity,
		MinCoverage:     th.MinCoverage,
		OutputHeaders:   true,
		OutputHuman:     true,
		OutputDelimiter: ",",
		OutputDecimals:  4,
		BinaryDelimiter: ",",
		BinaryKey:       cluster.BinaryCount,
	}
}

// Mode returns the mode of the search variant.
func (o *Options) Mode() Mode {
	if o.Search == nil {
		return ModeRemote
	}
	return o.Search.Mode()
}

// Thresholds returns the hit score cut-offs.
func (o *Options) Thresholds() cluster.Thresholds {
	return cluster.Thresholds{
		MinIdentity: o.MinIdentity,
		MinCoverage: o.MinCoverage,
		MaxEvalue:   o.MaxEvalue,
	}
}

// SummaryOptions returns the summary table settings.
func (o *Options) SummaryOptions() cluster.SummaryOptions {
	return cluster.SummaryOptions{
		Headers:   o.OutputHeaders,
		Human:     o.OutputHuman,
		Decimals:  o.OutputDecimals,
		Delimiter: o.OutputDelimiter,
	}
}

// BinaryOptions returns the binary table settings.
func (o *Options) BinaryOptions() cluster.BinaryOptions {
	return cluster.BinaryOptions{
		Headers:   o.BinaryHeaders,
		Human:     o.BinaryHuman,
		Delimiter: o.BinaryDelimiter,
		Key:       o.BinaryKey,
	}
}
