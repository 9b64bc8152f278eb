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
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/DrBoothTJ/cblaster/internal/ui"
)

// Version information (set via ldflags during build)
var (
	version = "dev"     // Version string
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// GlobalFlags holds the global CLI flags that apply to all commands.
type GlobalFlags struct {
	JSON    bool // Output in JSON format (for applicable commands)
	NoColor bool // Disable color output
	Verbose int  // Verbosity level: 0=normal, 1=-v (info), 2=-vv (debug)
	Quiet   bool // Suppress non-essential output (progress, info messages)
}

func main() {
	var (
		showVersion = flag.BoolP("version", "V", false, "Show version and exit")
		configPath  = flag.StringP("config", "c", "", "Path to .cblaster/config.yaml (default: search current and parent directories)")
		jsonOutput  = flag.Bool("json", false, "Output in JSON format (for applicable commands)")
		noColor     = flag.Bool("no-color", false, "Disable color output")
		verbose     = flag.CountP("verbose", "v", "Increase verbosity (-v for info, -vv for debug)")
		quiet       = flag.BoolP("quiet", "q", false, "Suppress non-essential output (progress, info messages)")
	)

	// Stop at the command name so that search options such as -qf reach
	// the search parser untouched.
	flag.SetInterspersed(false)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `cblaster - find clusters of co-located homologous genes

cblaster searches query proteins against NCBI BLAST or a local DIAMOND
database, places every hit on its genomic scaffold using NCBI's
Identical Protein Groups, and reports hits that sit close together as
clusters.

Usage:
  cblaster [global options] <command> [options]

Commands:
  search        Search and summarise hit clusters
  init          Create .cblaster/config.yaml configuration
  config        Show current configuration

Global Options:
  --json            Output in JSON format (for applicable commands)
  --no-color        Disable color output (respects NO_COLOR env var)
  -v, --verbose     Increase verbosity (-v for info, -vv for debug)
  -q, --quiet       Suppress non-essential output (progress, info messages)
  -c, --config      Path to .cblaster/config.yaml
  -V, --version     Show version and exit

Examples:
  cblaster init                               Create configuration interactively
  cblaster search -qf cluster.fasta           Remote search of nr
  cblaster search -qi AEK75490.1 AEK75502.1   Search by protein accession
  cblaster search -m local -db db.dmnd -qf cluster.fasta
  cblaster --json config                      Show configuration as JSON

Environment Variables:
  NCBI_EMAIL            E-mail address sent to NCBI
  NCBI_API_KEY          NCBI API key
  CBLASTER_CONFIG_PATH  Configuration file
  CBLASTER_DIAMOND      DIAMOND executable
  CBLASTER_THREADS      DIAMOND threads

For detailed command help: cblaster <command> --help

`)
	}

	flag.Parse()

	if *showVersion {
		fmt.Printf("cblaster version %s\n", version)
		fmt.Printf("commit: %s\n", commit)
		fmt.Printf("built: %s\n", date)
		os.Exit(0)
	}

	if os.Getenv("NO_COLOR") != "" {
		*noColor = true
	}

	if *quiet && *verbose > 0 {
		fmt.Fprintf(os.Stderr, "Error: cannot use --quiet and --verbose together\n")
		os.Exit(1)
	}

	// JSON mode auto-enables quiet to keep stdout machine readable
	if *jsonOutput {
		*quiet = true
	}

	globals := GlobalFlags{
		JSON:    *jsonOutput,
		NoColor: *noColor,
		Verbose: *verbose,
		Quiet:   *quiet,
	}

	ui.InitColors(globals.NoColor)

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(1)
	}

	command := args[0]
	cmdArgs := args[1:]

	switch command {
	case "search":
		runSearch(cmdArgs, *configPath, globals)
	case "init":
		runInit(cmdArgs, globals)
	case "config":
		runConfig(cmdArgs, *configPath, globals)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		flag.Usage()
		os.Exit(1)
	}
}
