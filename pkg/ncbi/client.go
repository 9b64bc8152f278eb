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

// Package ncbi is a small client for the NCBI services cblaster talks to:
// the BLAST URL API (https://ncbi.github.io/blast-cloud/dev/api.html) and
// the EFetch E-utility.
//
// NCBI usage guidelines ask clients to identify themselves with a tool name
// and contact email, not to poll a single RID more than once a minute, and
// to stay under three E-utility requests per second without an API key.
package ncbi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Default service endpoints.
const (
	DefaultBlastURL  = "https://blast.ncbi.nlm.nih.gov/Blast.cgi"
	DefaultEUtilsURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"
	DefaultTool      = "cblaster"
)

// HTTPError is returned for non-200 responses.
type HTTPError struct {
	Endpoint   string
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s: unexpected HTTP status %d", e.Endpoint, e.StatusCode)
}

// ErrBadResponse is returned when a response cannot be understood.
var ErrBadResponse = errors.New("unrecognised response from NCBI")

// Config configures a Client.
type Config struct {
	// BlastURL is the BLAST URL API endpoint. Defaults to DefaultBlastURL.
	BlastURL string

	// EUtilsURL is the E-utilities base URL. Defaults to DefaultEUtilsURL.
	EUtilsURL string

	// Tool and Email identify the client to NCBI.
	Tool  string
	Email string

	// APIKey raises the E-utilities rate limit. Optional.
	APIKey string

	// Timeout bounds a single HTTP request. Defaults to 5 minutes; IPG
	// responses for large hit lists are slow.
	Timeout time.Duration
}

// Client talks to NCBI over HTTP. It is safe for concurrent use.
type Client struct {
	cfg     Config
	http    *http.Client
	metrics *Metrics
	logger  *slog.Logger
}

// NewClient creates a Client. metrics and logger may be nil.
func NewClient(cfg Config, metrics *Metrics, logger *slog.Logger) *Client {
	if cfg.BlastURL == "" {
		cfg.BlastURL = DefaultBlastURL
	}
	if cfg.EUtilsURL == "" {
		cfg.EUtilsURL = DefaultEUtilsURL
	}
	if cfg.Tool == "" {
		cfg.Tool = DefaultTool
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		metrics: metrics,
		logger:  logger,
	}
}

// efetchURL returns the EFetch endpoint.
func (c *Client) efetchURL() string {
	return strings.TrimRight(c.cfg.EUtilsURL, "/") + "/efetch.fcgi"
}

// identify adds tool/email/api_key parameters using the given key spelling.
func (c *Client) identify(v url.Values, upper bool) {
	tool, email := "tool", "email"
	if upper {
		tool, email = "TOOL", "EMAIL"
	}
	v.Set(tool, c.cfg.Tool)
	if c.cfg.Email != "" {
		v.Set(email, c.cfg.Email)
	}
	if !upper && c.cfg.APIKey != "" {
		v.Set("api_key", c.cfg.APIKey)
	}
}

// do sends a request and returns the body of a 200 response.
func (c *Client) do(ctx context.Context, endpoint, method, target string, form url.Values) (string, error) {
	var body io.Reader
	if method == http.MethodPost {
		body = strings.NewReader(form.Encode())
	} else if len(form) > 0 {
		target += "?" + form.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return "", fmt.Errorf("%s: build request: %w", endpoint, err)
	}
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.observe(endpoint, "error", time.Since(start))
		return "", fmt.Errorf("%s: %w", endpoint, err)
	}
	defer func() { _ = resp.Body.Close() }()
	c.metrics.observe(endpoint, strconv.Itoa(resp.StatusCode), time.Since(start))

	c.logger.Debug("ncbi.request",
		"endpoint", endpoint,
		"method", method,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	if resp.StatusCode != http.StatusOK {
		return "", &HTTPError{Endpoint: endpoint, StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%s: read body: %w", endpoint, err)
	}
	return string(data), nil
}
