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
	"encoding/json"
	"fmt"
	"io"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/DrBoothTJ/cblaster/internal/errors"
	"github.com/DrBoothTJ/cblaster/internal/ui"
)

// ConfigOutput is the JSON form of the effective configuration.
type ConfigOutput struct {
	ConfigPath string       `json:"config_path,omitempty"`
	Version    string       `json:"version"`
	NCBI       NCBIOutput   `json:"ncbi"`
	Remote     RemoteOutput `json:"remote"`
	Local      LocalOutput  `json:"local"`
}

// NCBIOutput omits the API key; only its presence is reported.
type NCBIOutput struct {
	Email     string `json:"email,omitempty"`
	Tool      string `json:"tool"`
	APIKeySet bool   `json:"api_key_set"`
	BlastURL  string `json:"blast_url"`
	EUtilsURL string `json:"eutils_url"`
	Timeout   string `json:"timeout"`
}

type RemoteOutput struct {
	PollInterval string `json:"poll_interval"`
	MaxPolls     int    `json:"max_polls"`
}

type LocalOutput struct {
	DiamondPath string `json:"diamond_path,omitempty"`
	Threads     int    `json:"threads"`
}

// runConfig executes the 'config' CLI command, displaying the effective
// configuration (file plus environment overrides).
func runConfig(args []string, configPath string, globals GlobalFlags) {
	fs := flag.NewFlagSet("config", flag.ExitOnError)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: cblaster config [options]

Description:
  Display the effective cblaster configuration: the values read from
  .cblaster/config.yaml (or the defaults) with environment variable
  overrides applied.

  Note: API keys are never displayed.

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  cblaster config
  cblaster --json config | jq '.ncbi.email'

`)
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	cfg, cfgPath, err := LoadConfig(configPath)
	if err != nil {
		errors.FatalError(err, globals.JSON)
	}
	if cfgPath != "" {
		if abs, absErr := absPath(cfgPath); absErr == nil {
			cfgPath = abs
		}
	}

	result := buildConfigOutput(cfgPath, cfg)
	if globals.JSON {
		if err := writeJSON(os.Stdout, result); err != nil {
			errors.FatalError(errors.NewInternalError(
				"Cannot encode configuration as JSON",
				"JSON encoding failed unexpectedly",
				"This is a bug. Please report it",
				err,
			), globals.JSON)
		}
		return
	}
	printConfigHuman(result)
}

func buildConfigOutput(cfgPath string, cfg *Config) ConfigOutput {
	return ConfigOutput{
		ConfigPath: cfgPath,
		Version:    cfg.Version,
		NCBI: NCBIOutput{
			Email:     cfg.NCBI.Email,
			Tool:      cfg.NCBI.Tool,
			APIKeySet: cfg.NCBI.APIKey != "",
			BlastURL:  cfg.NCBI.BlastURL,
			EUtilsURL: cfg.NCBI.EUtilsURL,
			Timeout:   cfg.NCBI.Timeout.String(),
		},
		Remote: RemoteOutput{
			PollInterval: cfg.Remote.PollInterval.String(),
			MaxPolls:     cfg.Remote.MaxPolls,
		},
		Local: LocalOutput{
			DiamondPath: cfg.Local.DiamondPath,
			Threads:     cfg.Local.Threads,
		},
	}
}

func printConfigHuman(c ConfigOutput) {
	ui.Header("cblaster configuration")
	if c.ConfigPath != "" {
		fmt.Printf("%s %s\n", ui.Label("Config file:"), c.ConfigPath)
	} else {
		fmt.Printf("%s %s\n", ui.Label("Config file:"), ui.DimText("(none, using defaults)"))
	}
	fmt.Printf("%s %s\n", ui.Label("Version:"), c.Version)

	fmt.Println()
	ui.SubHeader("NCBI")
	fmt.Printf("  %s %s\n", ui.Label("E-mail:"), orDim(c.NCBI.Email))
	fmt.Printf("  %s %s\n", ui.Label("Tool:"), c.NCBI.Tool)
	fmt.Printf("  %s %t\n", ui.Label("API key set:"), c.NCBI.APIKeySet)
	fmt.Printf("  %s %s\n", ui.Label("BLAST URL:"), c.NCBI.BlastURL)
	fmt.Printf("  %s %s\n", ui.Label("E-utilities URL:"), c.NCBI.EUtilsURL)
	fmt.Printf("  %s %s\n", ui.Label("Timeout:"), c.NCBI.Timeout)

	fmt.Println()
	ui.SubHeader("Remote")
	fmt.Printf("  %s %s\n", ui.Label("Poll interval:"), c.Remote.PollInterval)
	fmt.Printf("  %s %d\n", ui.Label("Max polls:"), c.Remote.MaxPolls)

	fmt.Println()
	ui.SubHeader("Local")
	fmt.Printf("  %s %s\n", ui.Label("DIAMOND:"), orDim(c.Local.DiamondPath))
	fmt.Printf("  %s %d\n", ui.Label("Threads:"), c.Local.Threads)
}

func orDim(s string) string {
	if s == "" {
		return ui.DimText("(not set)")
	}
	return s
}

// writeJSON writes v to w as indented JSON.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
