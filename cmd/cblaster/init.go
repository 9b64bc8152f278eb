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
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/DrBoothTJ/cblaster/internal/errors"
	"github.com/DrBoothTJ/cblaster/internal/ui"
	"github.com/DrBoothTJ/cblaster/pkg/local"
)

// initFlags holds parsed flags for the init command.
type initFlags struct {
	force, nonInteractive bool
	email, apiKey         string
	diamond               string
	threads               int
}

// runInit executes the 'init' CLI command, creating .cblaster/config.yaml
// in the current directory.
//
// Flags:
//   - --force: Overwrite existing configuration
//   - -y: Non-interactive mode, use all defaults
//   - --email, --api-key: NCBI identification
//   - --diamond: DIAMOND executable
//   - --threads: DIAMOND threads
func runInit(args []string, globals GlobalFlags) {
	flags := parseInitFlags(args)

	cwd, err := os.Getwd()
	if err != nil {
		errors.FatalError(errors.NewInternalError(
			"Cannot access working directory",
			"Failed to determine current directory path",
			"This is unexpected. Please report this issue if it persists",
			err,
		), globals.JSON)
	}

	configPath := ConfigPath(cwd)
	if _, err := os.Stat(configPath); err == nil && !flags.force {
		errors.FatalError(errors.NewInputError(
			"Configuration already exists",
			fmt.Sprintf("%s already exists in this directory", configPath),
			"Use 'cblaster init --force' to overwrite the existing configuration",
		), globals.JSON)
	}

	cfg := createInitConfig(flags)
	if !flags.nonInteractive {
		runInteractiveConfig(bufio.NewReader(os.Stdin), cfg)
	}

	if err := SaveConfig(cfg, configPath); err != nil {
		errors.FatalError(err, globals.JSON)
	}
	if !globals.Quiet {
		ui.Successf("Created %s", configPath)
		printNextSteps()
	}
}

func parseInitFlags(args []string) initFlags {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	var f initFlags
	fs.BoolVar(&f.force, "force", false, "Overwrite existing configuration")
	fs.BoolVarP(&f.nonInteractive, "yes", "y", false, "Non-interactive mode (use defaults)")
	fs.StringVar(&f.email, "email", "", "E-mail address sent to NCBI with every request")
	fs.StringVar(&f.apiKey, "api-key", "", "NCBI API key (raises E-utilities rate limits)")
	fs.StringVar(&f.diamond, "diamond", "", "DIAMOND executable (default: search PATH)")
	fs.IntVar(&f.threads, "threads", 0, "Threads used by DIAMOND")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: cblaster init [options]

Description:
  Create a .cblaster/config.yaml configuration file in the current
  directory.

  By default, runs in interactive mode with prompts for each setting.
  Use -y for non-interactive mode with sensible defaults.

  The configuration defines:
  - NCBI identification (e-mail, API key) and service endpoints
  - Remote search polling (interval, maximum checks)
  - The DIAMOND executable and thread count for local searches

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  # Interactive setup with prompts
  cblaster init

  # Non-interactive with all defaults
  cblaster init -y --email me@example.org

  # Point at a DIAMOND build outside PATH
  cblaster init -y --diamond /opt/diamond/bin/diamond --threads 8

Notes:
  cblaster searches for .cblaster/config.yaml in the current directory
  and its parents. Without one, built-in defaults are used.

`)
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	return f
}

func createInitConfig(f initFlags) *Config {
	cfg := DefaultConfig()
	cfg.NCBI.Email = getEnv("NCBI_EMAIL", f.email)
	cfg.NCBI.APIKey = f.apiKey
	cfg.Local.DiamondPath = f.diamond
	if cfg.Local.DiamondPath == "" {
		if p, err := local.FindProgram(local.Aliases...); err == nil {
			cfg.Local.DiamondPath = p
		}
	}
	if f.threads > 0 {
		cfg.Local.Threads = f.threads
	}
	return cfg
}

func runInteractiveConfig(reader *bufio.Reader, cfg *Config) {
	ui.Header("cblaster configuration")

	ui.SubHeader("NCBI")
	cfg.NCBI.Email = prompt(reader, "E-mail address", cfg.NCBI.Email)
	cfg.NCBI.APIKey = prompt(reader, "API key (optional)", cfg.NCBI.APIKey)

	fmt.Println()
	ui.SubHeader("Local searches")
	if cfg.Local.DiamondPath == "" {
		ui.Warning("DIAMOND was not found on PATH")
	}
	cfg.Local.DiamondPath = prompt(reader, "DIAMOND executable", cfg.Local.DiamondPath)
	threads := prompt(reader, "DIAMOND threads", strconv.Itoa(cfg.Local.Threads))
	if n, err := strconv.Atoi(threads); err == nil && n > 0 {
		cfg.Local.Threads = n
	} else {
		ui.Warningf("Invalid thread count %q, keeping %d", threads, cfg.Local.Threads)
	}
	fmt.Println()
}

func printNextSteps() {
	fmt.Println()
	ui.SubHeader("Next steps:")
	fmt.Printf("  1. Review and edit %s if needed\n", ui.DimText(".cblaster/config.yaml"))
	fmt.Printf("  2. Run '%s' to search NCBI\n", ui.Cyan.Sprint("cblaster search -qf query.fasta"))
}

// prompt displays an interactive prompt and reads one line from reader.
// An empty answer returns defaultValue.
func prompt(reader *bufio.Reader, label, defaultValue string) string {
	if defaultValue != "" {
		fmt.Printf("%s [%s]: ", label, defaultValue)
	} else {
		fmt.Printf("%s: ", label)
	}

	input, _ := reader.ReadString('\n')
	input = strings.TrimSpace(input)

	if input == "" {
		return defaultValue
	}
	return input
}
