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
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/DrBoothTJ/cblaster/internal/errors"
	"github.com/DrBoothTJ/cblaster/pkg/ncbi"
	"github.com/DrBoothTJ/cblaster/pkg/remote"
)

const (
	defaultConfigDir  = ".cblaster"
	defaultConfigFile = "config.yaml"
	configVersion     = "1"
)

// Config represents the .cblaster/config.yaml configuration file.
type Config struct {
	Version string       `yaml:"version"`
	NCBI    NCBIConfig   `yaml:"ncbi"`
	Remote  RemoteConfig `yaml:"remote"`
	Local   LocalConfig  `yaml:"local"`
}

// NCBIConfig identifies cblaster to NCBI and locates its services.
type NCBIConfig struct {
	Email     string        `yaml:"email"`
	Tool      string        `yaml:"tool"`
	APIKey    string        `yaml:"api_key,omitempty"`
	BlastURL  string        `yaml:"blast_url"`
	EUtilsURL string        `yaml:"eutils_url"`
	Timeout   time.Duration `yaml:"timeout"` // per request
}

// RemoteConfig controls polling of remote searches.
type RemoteConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
	MaxPolls     int           `yaml:"max_polls"`
}

// LocalConfig configures DIAMOND.
type LocalConfig struct {
	DiamondPath string `yaml:"diamond_path"` // empty: search $PATH
	Threads     int    `yaml:"threads"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		Version: configVersion,
		NCBI: NCBIConfig{
			Tool:      ncbi.DefaultTool,
			BlastURL:  ncbi.DefaultBlastURL,
			EUtilsURL: ncbi.DefaultEUtilsURL,
			Timeout:   5 * time.Minute,
		},
		Remote: RemoteConfig{
			PollInterval: remote.DefaultPollInterval,
			MaxPolls:     remote.DefaultMaxPolls,
		},
		Local: LocalConfig{
			Threads: 1,
		},
	}
}

// LoadConfig loads configuration from configPath or finds it automatically.
//
// If configPath is empty, CBLASTER_CONFIG_PATH is used, then a
// .cblaster/config.yaml in the current or a parent directory. When no file
// is found the defaults are used and the returned path is empty. An
// explicitly named file must exist.
//
// Environment variables override the file in every case.
func LoadConfig(configPath string) (*Config, string, error) {
	if configPath == "" {
		configPath = os.Getenv("CBLASTER_CONFIG_PATH")
	}
	if configPath == "" {
		found, err := findConfigFile()
		if err != nil {
			return nil, "", err
		}
		if found == "" {
			cfg := DefaultConfig()
			cfg.applyEnvOverrides()
			return cfg, "", nil
		}
		configPath = found
	}

	data, err := os.ReadFile(configPath) //nolint:gosec // G304: Path comes from user config or discovery
	if err != nil {
		return nil, "", errors.NewConfigError(
			"Cannot read configuration file",
			fmt.Sprintf("Failed to read %s", configPath),
			"Check the path and file permissions, or run 'cblaster init' to create a config",
			err,
		)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, "", errors.NewConfigError(
			"Invalid configuration format",
			"YAML parsing failed - the config file contains syntax errors",
			fmt.Sprintf("Edit %s to fix syntax errors, or run 'cblaster init --force' to recreate", configPath),
			err,
		)
	}

	if cfg.Version != configVersion {
		return nil, "", errors.NewConfigError(
			"Unsupported configuration version",
			fmt.Sprintf("Config version '%s' is not supported (expected '%s')", cfg.Version, configVersion),
			"Run 'cblaster init --force' to regenerate the configuration file",
			nil,
		)
	}

	cfg.applyEnvOverrides()
	return cfg, configPath, nil
}

// SaveConfig writes cfg to configPath as YAML, creating its directory.
func SaveConfig(cfg *Config, configPath string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.NewInternalError(
			"Cannot encode configuration",
			"YAML marshaling failed unexpectedly",
			"This is a bug. Please report it with your configuration details",
			err,
		)
	}

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return errors.NewPermissionError(
			"Cannot create configuration directory",
			fmt.Sprintf("Permission denied creating %s", dir),
			"Check directory permissions or run with appropriate privileges",
			err,
		)
	}

	// 0600: the file may hold an NCBI API key.
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return errors.NewPermissionError(
			"Cannot write configuration file",
			fmt.Sprintf("Permission denied writing to %s", configPath),
			"Check file permissions and ensure sufficient disk space",
			err,
		)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides:
//   - NCBI_EMAIL, NCBI_API_KEY: NCBI identification
//   - CBLASTER_BLAST_URL, CBLASTER_EUTILS_URL: service endpoints
//   - CBLASTER_DIAMOND: DIAMOND executable
//   - CBLASTER_THREADS: DIAMOND threads
func (c *Config) applyEnvOverrides() {
	c.NCBI.Email = getEnv("NCBI_EMAIL", c.NCBI.Email)
	c.NCBI.APIKey = getEnv("NCBI_API_KEY", c.NCBI.APIKey)
	c.NCBI.BlastURL = getEnv("CBLASTER_BLAST_URL", c.NCBI.BlastURL)
	c.NCBI.EUtilsURL = getEnv("CBLASTER_EUTILS_URL", c.NCBI.EUtilsURL)
	c.Local.DiamondPath = getEnv("CBLASTER_DIAMOND", c.Local.DiamondPath)
	if n, err := strconv.Atoi(os.Getenv("CBLASTER_THREADS")); err == nil && n > 0 {
		c.Local.Threads = n
	}
}

// ncbiConfig converts the file settings into a client configuration.
func (c *Config) ncbiConfig() ncbi.Config {
	return ncbi.Config{
		BlastURL:  c.NCBI.BlastURL,
		EUtilsURL: c.NCBI.EUtilsURL,
		Tool:      c.NCBI.Tool,
		Email:     c.NCBI.Email,
		APIKey:    c.NCBI.APIKey,
		Timeout:   c.NCBI.Timeout,
	}
}

// getEnv retrieves an environment variable or returns fallback if it is
// not set or empty.
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
