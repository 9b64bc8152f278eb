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

package local

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/DrBoothTJ/cblaster/pkg/cluster"
)

// ErrProgramNotFound is returned when no DIAMOND executable can be found.
var ErrProgramNotFound = errors.New("DIAMOND executable not found")

// Aliases DIAMOND is installed under. Debian packages it as diamond-aligner.
var Aliases = []string{"diamond", "diamond-aligner"}

// Runner is the interface for executing DIAMOND.
// This allows mocking in tests.
type Runner interface {
	Run(ctx context.Context, args ...string) (string, error)
	Program() string
}

// FindProgram returns the path of the first alias found on $PATH.
func FindProgram(aliases ...string) (string, error) {
	for _, alias := range aliases {
		if path, err := exec.LookPath(alias); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("looked for %s: %w", strings.Join(aliases, ", "), ErrProgramNotFound)
}

// Executor runs a DIAMOND binary.
type Executor struct {
	program string
}

// NewExecutor creates an Executor for program, or for the first of Aliases
// found on $PATH when program is empty.
func NewExecutor(program string) (*Executor, error) {
	if program == "" {
		path, err := FindProgram(Aliases...)
		if err != nil {
			return nil, err
		}
		return &Executor{program: path}, nil
	}
	path, err := exec.LookPath(program)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", program, ErrProgramNotFound)
	}
	return &Executor{program: path}, nil
}

// Program returns the path of the DIAMOND binary.
func (e *Executor) Program() string {
	return e.program
}

// Run executes DIAMOND with args and returns its standard output.
func (e *Executor) Run(ctx context.Context, args ...string) (string, error) {
	if len(args) == 0 {
		return "", fmt.Errorf("no diamond command specified")
	}

	cmd := exec.CommandContext(ctx, e.program, args...) //nolint:gosec // G204: program is resolved from $PATH or config
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("diamond canceled: %w", ctx.Err())
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("diamond %s failed: %s", args[0], lastLine(msg))
		}
		return "", fmt.Errorf("diamond %s failed: %w", args[0], err)
	}
	return stdout.String(), nil
}

// lastLine keeps the final line of DIAMOND's verbose stderr, which holds
// the error message.
func lastLine(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}

// Command returns the DIAMOND blastp arguments for a search of queryFile
// against db. Identity and coverage cut-offs are passed through so DIAMOND
// can discard weak alignments early; Parse applies them again strictly.
func Command(queryFile, db string, th cluster.Thresholds, threads int) []string {
	if threads < 1 {
		threads = 1
	}
	return []string{
		"blastp",
		"--query", queryFile,
		"--db", db,
		"--id", formatNumber(th.MinIdentity),
		"--evalue", formatNumber(th.MaxEvalue),
		"--outfmt", "6", "qseqid", "sseqid", "pident", "qcovhsp", "evalue", "bitscore",
		"--threads", strconv.Itoa(threads),
		"--query-cover", formatNumber(th.MinCoverage),
		"--max-hsps", "1",
	}
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Parse converts DIAMOND tabular output (qseqid sseqid pident qcovhsp
// evalue bitscore) into hits, keeping those that pass th.
func Parse(lines []string, th cluster.Thresholds) ([]*cluster.Hit, error) {
	var hits []*cluster.Hit
	for i, line := range lines {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		f := strings.Split(line, "\t")
		if len(f) != 6 {
			return nil, fmt.Errorf("line %d: expected 6 columns, got %d", i+1, len(f))
		}
		hit, err := cluster.NewHit(f[0], f[1], f[2], f[3], f[4], f[5])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
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
