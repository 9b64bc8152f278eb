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
	stderrors "errors"
	"fmt"
	"io"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/DrBoothTJ/cblaster/internal/errors"
	"github.com/DrBoothTJ/cblaster/pkg/cluster"
	"github.com/DrBoothTJ/cblaster/pkg/query"
	"github.com/DrBoothTJ/cblaster/pkg/remote"
)

// Validation failures. ParseArgs wraps them in an input *errors.UserError.
var (
	ErrInvalidCombination = stderrors.New("option is not valid in this mode")
	ErrInvalidDatabase    = stderrors.New("invalid database")
	ErrInvalidMode        = stderrors.New("invalid mode")
	ErrMissingQuery       = stderrors.New("missing query")
	ErrInvalidArgument    = stderrors.New("invalid argument")
)

// legacyFlags maps the multi-letter short options of earlier releases to
// their long names; pflag shorthands are single letters.
var legacyFlags = map[string]string{
	"-qf": "--query-file",
	"-qi": "--query-ids",
	"-db": "--database",
	"-eq": "--entrez-query",
}

// searchFlags receives the raw values of the search flags.
type searchFlags struct {
	queryFile   string
	queryIDs    []string
	mode        string
	database    string
	entrezQuery string
	rid         string

	gap         int
	conserve    int
	maxEvalue   float64
	minIdentity float64
	minCoverage float64

	output            string
	outputHideHeaders bool
	outputDelimiter   string
	outputDecimals    int

	binary          string
	binaryHeaders   bool
	binaryHuman     bool
	binaryDelimiter string
	binaryKey       string

	debug       bool
	metricsAddr string
}

// newSearchFlagSet defines the search flags on a new flag set bound to sf.
func newSearchFlagSet(sf *searchFlags) *flag.FlagSet {
	d := DefaultOptions()

	fs := flag.NewFlagSet("search", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.SortFlags = false
	fs.SetNormalizeFunc(func(_ *flag.FlagSet, name string) flag.NormalizedName {
		return flag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVar(&sf.queryFile, "query-file", "", "Path to FASTA file containing protein sequences to search (-qf)")
	fs.StringSliceVar(&sf.queryIDs, "query-ids", nil, "NCBI protein IDs to search, or a file with one ID per line (-qi)")
	fs.StringVarP(&sf.mode, "mode", "m", string(ModeRemote), "Search mode: local or remote")
	fs.StringVar(&sf.database, "database", "", "Remote: nr, refseq_protein, swissprot or pdbaa (default nr). Local: DIAMOND database path (-db)")
	fs.StringVar(&sf.entrezQuery, "entrez-query", "", `Remote only: Entrez query to filter the search, e.g. "Aspergillus"[ORGN] (-eq)`)
	fs.StringVar(&sf.rid, "rid", "", "Remote only: retrieve results of an earlier search by request identifier")

	fs.IntVarP(&sf.gap, "gap", "g", d.Gap, "Maximum distance (bp) between hits in a cluster")
	fs.IntVarP(&sf.conserve, "conserve", "u", d.Conserve, "Minimum number of distinct queries in a cluster")
	fs.Float64VarP(&sf.maxEvalue, "max-evalue", "e", d.MaxEvalue, "Maximum e-value of a hit")
	fs.Float64VarP(&sf.minIdentity, "min-identity", "i", d.MinIdentity, "Minimum percent identity of a hit")
	fs.Float64VarP(&sf.minCoverage, "min-coverage", "s", d.MinCoverage, "Minimum percent query coverage of a hit")

	fs.StringVarP(&sf.output, "output", "o", "", "Write the summary to this file (default: standard output)")
	fs.BoolVar(&sf.outputHideHeaders, "output-hide-headers", false, "Omit table headers from the summary")
	fs.StringVar(&sf.outputDelimiter, "output-delimiter", "", "Delimit summary fields with this string instead of padding columns")
	fs.IntVar(&sf.outputDecimals, "output-decimals", d.OutputDecimals, "Significant digits of scores in the summary")

	fs.StringVarP(&sf.binary, "binary", "b", "", "Write a binary (presence/absence) table to this file")
	fs.BoolVar(&sf.binaryHeaders, "binary-headers", false, "Include headers in the binary table")
	fs.BoolVar(&sf.binaryHuman, "binary-human", false, "Pad binary table columns for reading")
	fs.StringVar(&sf.binaryDelimiter, "binary-delimiter", d.BinaryDelimiter, "Binary table field delimiter")
	fs.StringVar(&sf.binaryKey, "binary-key", string(d.BinaryKey), "Binary table cell value: count, max or sum")

	fs.BoolVar(&sf.debug, "debug", false, "Enable debug logging")
	fs.StringVar(&sf.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address during the search (e.g. :9090)")
	return fs
}

// SearchUsage writes the search option help to w.
func SearchUsage(w io.Writer) {
	fs := newSearchFlagSet(&searchFlags{})
	_, _ = fmt.Fprint(w, fs.FlagUsages())
}

// rewriteLegacy replaces legacy short options with their long names. The
// token after "--" and everything following it are left untouched.
func rewriteLegacy(args []string) []string {
	out := make([]string, 0, len(args))
	for i, arg := range args {
		if arg == "--" {
			return append(out, args[i:]...)
		}
		if long, ok := legacyFlags[arg]; ok {
			out = append(out, long)
			continue
		}
		if k, v, ok := strings.Cut(arg, "="); ok {
			if long, ok := legacyFlags[k]; ok {
				out = append(out, long+"="+v)
				continue
			}
		}
		out = append(out, arg)
	}
	return out
}

// ParseArgs builds validated Options from command-line tokens. args[0] is
// the subcommand; only "search" is accepted. A help flag returns
// pflag.ErrHelp.
func ParseArgs(args []string) (*Options, error) {
	if len(args) == 0 {
		return nil, errors.NewInputError(
			"No subcommand given",
			"cblaster expects a subcommand before its options",
			"Run 'cblaster search --help' for usage",
		)
	}
	if args[0] != "search" {
		return nil, errors.NewInputError(
			fmt.Sprintf("Unknown subcommand %q", args[0]),
			"Only the 'search' subcommand takes search options",
			"Run 'cblaster search --help' for usage",
		)
	}

	var sf searchFlags
	fs := newSearchFlagSet(&sf)
	if err := fs.Parse(rewriteLegacy(args[1:])); err != nil {
		if stderrors.Is(err, flag.ErrHelp) {
			return nil, err
		}
		return nil, errors.NewValidationError(
			"Invalid search options",
			err.Error(),
			"Run 'cblaster search --help' for usage",
			ErrInvalidArgument,
		)
	}

	// --query-ids takes several space separated values.
	if rest := fs.Args(); len(rest) > 0 {
		if !fs.Changed("query-ids") {
			return nil, errors.NewValidationError(
				"Unexpected arguments",
				fmt.Sprintf("Arguments %q do not belong to any option", rest),
				"Pass query identifiers with --query-ids",
				ErrInvalidArgument,
			)
		}
		sf.queryIDs = append(sf.queryIDs, rest...)
	}

	opts := DefaultOptions()
	opts.Subcommand = args[0]
	opts.Query = query.Query{File: sf.queryFile, IDs: sf.queryIDs}
	if err := opts.Query.Validate(); err != nil {
		return nil, errors.NewValidationError(
			"A single query source is required",
			err.Error(),
			"Use either --query-file or --query-ids",
			fmt.Errorf("%w: %w", ErrMissingQuery, err),
		)
	}

	search, err := buildSearch(fs, &sf)
	if err != nil {
		return nil, err
	}
	opts.Search = search

	if sf.gap < 0 || sf.conserve < 0 {
		return nil, errors.NewValidationError(
			"Invalid cluster parameters",
			fmt.Sprintf("gap (%d) and conserve (%d) must not be negative", sf.gap, sf.conserve),
			"Pass zero or positive values to --gap and --conserve",
			ErrInvalidArgument,
		)
	}
	if sf.outputDecimals < 0 {
		return nil, errors.NewValidationError(
			"Invalid --output-decimals",
			fmt.Sprintf("%d is negative", sf.outputDecimals),
			"Pass zero or a positive number of digits",
			ErrInvalidArgument,
		)
	}
	key, err := cluster.ParseBinaryKey(sf.binaryKey)
	if err != nil {
		return nil, errors.NewValidationError(
			"Invalid --binary-key",
			err.Error(),
			"Use one of: count, max, sum",
			fmt.Errorf("%w: %w", ErrInvalidArgument, err),
		)
	}

	opts.Gap = sf.gap
	opts.Conserve = sf.conserve
	opts.MaxEvalue = sf.maxEvalue
	opts.MinIdentity = sf.minIdentity
	opts.MinCoverage = sf.minCoverage

	opts.Output = sf.output
	opts.OutputHeaders = !sf.outputHideHeaders
	opts.OutputDecimals = sf.outputDecimals
	if fs.Changed("output-delimiter") {
		opts.OutputHuman = false
		opts.OutputDelimiter = sf.outputDelimiter
	}

	opts.Binary = sf.binary
	opts.BinaryHeaders = sf.binaryHeaders
	opts.BinaryHuman = sf.binaryHuman
	opts.BinaryDelimiter = sf.binaryDelimiter
	opts.BinaryKey = key

	opts.Debug = sf.debug
	opts.MetricsAddr = sf.metricsAddr
	return &opts, nil
}

// buildSearch validates the mode-specific flags and returns the matching
// Search variant.
func buildSearch(fs *flag.FlagSet, sf *searchFlags) (Search, error) {
	switch Mode(sf.mode) {
	case ModeRemote:
		db := sf.database
		if db == "" {
			db = remote.DefaultDatabase
		}
		if !remote.ValidDatabase(db) {
			return nil, errors.NewValidationError(
				fmt.Sprintf("Invalid remote database %q", db),
				"NCBI BLAST searches support: "+strings.Join(remote.Databases, ", "),
				"Pick one of the supported databases, or use --mode local with a DIAMOND database",
				ErrInvalidDatabase,
			)
		}
		return RemoteSearch{Database: db, EntrezQuery: sf.entrezQuery, RID: sf.rid}, nil

	case ModeLocal:
		for _, name := range []string{"entrez-query", "rid"} {
			if fs.Changed(name) {
				return nil, errors.NewValidationError(
					fmt.Sprintf("--%s is only valid in remote mode", name),
					"Local searches run DIAMOND on your machine and never contact NCBI BLAST",
					fmt.Sprintf("Remove --%s or use --mode remote", name),
					ErrInvalidCombination,
				)
			}
		}
		if sf.database == "" {
			return nil, errors.NewValidationError(
				"Local mode requires a database",
				"No DIAMOND database was given",
				"Pass the path of a .dmnd file with --database",
				ErrInvalidCombination,
			)
		}
		return LocalSearch{Database: sf.database}, nil

	default:
		return nil, errors.NewValidationError(
			fmt.Sprintf("Invalid mode %q", sf.mode),
			"Supported modes are local and remote",
			"Use --mode local or --mode remote",
			ErrInvalidMode,
		)
	}
}
