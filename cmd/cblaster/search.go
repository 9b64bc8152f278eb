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

package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	flag "github.com/spf13/pflag"

	"github.com/DrBoothTJ/cblaster/internal/errors"
	"github.com/DrBoothTJ/cblaster/internal/ui"
	"github.com/DrBoothTJ/cblaster/pkg/cblaster"
	"github.com/DrBoothTJ/cblaster/pkg/cluster"
	"github.com/DrBoothTJ/cblaster/pkg/genomic"
	"github.com/DrBoothTJ/cblaster/pkg/local"
	"github.com/DrBoothTJ/cblaster/pkg/ncbi"
	"github.com/DrBoothTJ/cblaster/pkg/query"
	"github.com/DrBoothTJ/cblaster/pkg/remote"
)

// runSearch executes the 'search' CLI command: a remote (NCBI BLAST) or
// local (DIAMOND) search followed by the genomic context step, writing the
// cluster summary to stdout or --output.
func runSearch(args []string, configPath string, globals GlobalFlags) {
	opts, err := cblaster.ParseArgs(append([]string{"search"}, args...))
	if err != nil {
		if stderrors.Is(err, flag.ErrHelp) {
			printSearchUsage()
			os.Exit(0)
		}
		errors.FatalError(err, globals.JSON)
	}

	logger := newLogger(opts.Debug, globals)
	slog.SetDefault(logger)

	cfg, cfgPath, err := LoadConfig(configPath)
	if err != nil {
		errors.FatalError(err, globals.JSON)
	}
	logger.Debug("config.loaded", "path", cfgPath)

	// A single query ID naming a file is a file of IDs.
	if len(opts.Query.IDs) > 0 {
		opts.Query.IDs, err = query.ExpandIDs(opts.Query.IDs)
		if err != nil {
			errors.FatalError(errors.NewInputError(
				"Cannot read query identifiers",
				err.Error(),
				"Check that the file exists and lists one identifier per line",
			), globals.JSON)
		}
	}

	var reg prometheus.Registerer
	if opts.MetricsAddr != "" {
		reg = prometheus.DefaultRegisterer
		serveMetrics(logger, opts.MetricsAddr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	progress := NewProgressConfig(globals)
	runner, spinner, err := newRunner(opts, cfg, ncbi.NewMetrics(reg), logger, progress)
	if err != nil {
		errors.FatalError(searchError(err, ""), globals.JSON)
	}

	out, closeOut, err := openOutput(opts.Output, os.Stdout)
	if err != nil {
		errors.FatalError(err, globals.JSON)
	}

	start := time.Now()
	res, err := runner.Run(ctx, opts, out)
	spinner.Finish()
	if err != nil {
		_ = closeOut()
		rid := ""
		if res != nil {
			rid = res.RID
		}
		errors.FatalError(searchError(err, rid), globals.JSON)
	}
	if err := closeOut(); err != nil {
		errors.FatalError(errors.NewPermissionError(
			"Cannot write summary",
			fmt.Sprintf("Closing %s failed", opts.Output),
			"Check available disk space",
			err,
		), globals.JSON)
	}

	if opts.Binary != "" {
		if err := writeBinaryFile(opts, res); err != nil {
			errors.FatalError(err, globals.JSON)
		}
	}

	if !globals.Quiet {
		printSearchResult(opts, res, time.Since(start))
	}
}

// newRunner wires the backends needed by opts.
func newRunner(opts *cblaster.Options, cfg *Config, metrics *ncbi.Metrics, logger *slog.Logger, progress ProgressConfig) (*cblaster.Runner, *Spinner, error) {
	client := ncbi.NewClient(cfg.ncbiConfig(), metrics, logger)
	runner := &cblaster.Runner{
		Context: &genomic.Searcher{
			Fetcher:   client,
			BatchSize: genomic.DefaultBatchSize,
			Workers:   genomic.DefaultWorkers,
			Logger:    logger,
		},
		Logger: logger,
	}

	var spinner *Spinner
	switch opts.Mode() {
	case cblaster.ModeLocal:
		exec, err := local.NewExecutor(cfg.Local.DiamondPath)
		if err != nil {
			return nil, nil, err
		}
		logger.Debug("diamond.found", "program", exec.Program())
		runner.Local = &local.Searcher{
			Runner:  exec,
			Fetcher: client,
			Threads: cfg.Local.Threads,
			Logger:  logger,
		}
	case cblaster.ModeRemote:
		searcher := remote.NewSearcher(client, client, logger)
		if cfg.Remote.PollInterval > 0 {
			searcher.PollInterval = cfg.Remote.PollInterval
		}
		if cfg.Remote.MaxPolls > 0 {
			searcher.MaxPolls = cfg.Remote.MaxPolls
		}
		spinner = NewSpinner(progress, "Submitting search")
		searcher.OnPoll = func(rid string, attempt int) {
			spinner.Describe(fmt.Sprintf("Waiting for %s (check %d/%d)", rid, attempt, searcher.MaxPolls))
		}
		runner.Remote = searcher
	}
	return runner, spinner, nil
}

func newLogger(debug bool, globals GlobalFlags) *slog.Logger {
	level := slog.LevelInfo
	switch {
	case debug || globals.Verbose >= 2:
		level = slog.LevelDebug
	case globals.Quiet:
		level = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func serveMetrics(logger *slog.Logger, addr string) {
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
		logger.Info("metrics.http.start", "addr", addr, "path", "/metrics")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Warn("metrics.http.error", "err", err)
		}
	}()
}

func writeBinaryFile(opts *cblaster.Options, res *cblaster.Result) error {
	f, closeFile, err := openOutput(opts.Binary, os.Stdout)
	if err != nil {
		return err
	}
	if err := cblaster.WriteBinary(f, res.Organisms, res.Queries, opts.BinaryOptions()); err != nil {
		_ = closeFile()
		return errors.NewPermissionError(
			"Cannot write binary table",
			fmt.Sprintf("Writing %s failed", opts.Binary),
			"Check available disk space and permissions",
			err,
		)
	}
	return closeFile()
}

// searchError converts a search failure into a UserError. rid, when known,
// is offered so that an interrupted remote search can be resumed.
func searchError(err error, rid string) error {
	var userErr *errors.UserError
	if stderrors.As(err, &userErr) {
		return err
	}

	resume := "Check your network connection and try again"
	if rid != "" {
		resume = fmt.Sprintf("Resume the search later with '--rid %s'", rid)
	}

	var httpErr *ncbi.HTTPError
	switch {
	case stderrors.Is(err, local.ErrProgramNotFound):
		return errors.NewConfigError(
			"DIAMOND not found",
			err.Error(),
			"Install DIAMOND or set local.diamond_path (or CBLASTER_DIAMOND)",
			err,
		)
	case stderrors.Is(err, context.Canceled):
		return errors.NewInputError(
			"Search interrupted",
			"The search was cancelled before it finished",
			resume,
		)
	case stderrors.Is(err, remote.ErrRetryLimit):
		return errors.NewNetworkError(
			"Remote search timed out",
			err.Error(),
			resume,
			err,
		)
	case stderrors.As(err, &httpErr):
		return errors.NewNetworkError(
			"NCBI request failed",
			err.Error(),
			resume,
			err,
		)
	case stderrors.Is(err, remote.ErrNoResults),
		stderrors.Is(err, local.ErrNoResults),
		stderrors.Is(err, ncbi.ErrNoHits):
		return errors.NewDatabaseError(
			"No results found",
			err.Error(),
			"Relax --max-evalue, --min-identity or --min-coverage, or search another database",
			err,
		)
	case stderrors.Is(err, ncbi.ErrSearchFailed):
		return errors.NewDatabaseError(
			"Remote search failed",
			err.Error(),
			"Check the query sequences and the Entrez query, then try again",
			err,
		)
	case stderrors.Is(err, cluster.ErrNegativeParameter):
		return errors.NewValidationError(
			"Invalid clustering parameters",
			err.Error(),
			"Use non-negative --gap and --conserve values",
			err,
		)
	}
	return errors.NewInternalError(
		"Search failed",
		err.Error(),
		"Re-run with --debug for details",
		err,
	)
}

func printSearchResult(opts *cblaster.Options, res *cblaster.Result, elapsed time.Duration) {
	clusters := 0
	for _, o := range res.Organisms {
		clusters += o.CountHitClusters()
	}
	fmt.Fprintln(ui.Out)
	ui.Successf("Search complete in %s", elapsed.Round(time.Second))
	if res.RID != "" {
		ui.Infof("RID: %s", res.RID)
	}
	ui.Infof("%s hits, %s organisms, %s clusters",
		ui.CountText(len(res.Hits)), ui.CountText(len(res.Organisms)), ui.CountText(clusters))
	if opts.Output != "" {
		ui.Infof("Summary written to %s", opts.Output)
	}
	if opts.Binary != "" {
		ui.Infof("Binary table written to %s", opts.Binary)
	}
}

func printSearchUsage() {
	fmt.Fprintf(os.Stderr, `Usage: cblaster search [options]

Description:
  Find clusters of co-located homologues of the query proteins.

  A remote search submits the queries to NCBI BLAST, polls until the
  search finishes and keeps the hits passing the thresholds. A local
  search runs DIAMOND against a local database. The genomic position of
  every hit is then looked up in NCBI's Identical Protein Groups and hits
  are grouped into clusters on each scaffold.

Options:
`)
	cblaster.SearchUsage(os.Stderr)
	fmt.Fprintf(os.Stderr, `
Examples:
  # Remote search of nr with a FASTA file
  cblaster search -qf cluster.fasta

  # Remote search by protein accession, restricted by an Entrez query
  cblaster search -qi AEK75490.1 AEK75502.1 -eq "Aspergillus[orgn]"

  # Resume a remote search
  cblaster search -qf cluster.fasta --rid VCZ1ZD6K01R

  # Local search with DIAMOND
  cblaster search -m local -db proteins.dmnd -qf cluster.fasta

  # Write the summary and a binary table to files
  cblaster search -qf cluster.fasta -o summary.txt -b binary.csv

Notes:
  The short options -qf, -qi, -db and -eq are accepted, as are option
  names written with underscores (--max_evalue).

  Remote searches may take several minutes; if interrupted, the search
  can be resumed with --rid.

`)
}
