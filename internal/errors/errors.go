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

// Package errors provides user-facing errors for the cblaster CLI.
//
// A UserError carries three pieces of text: what went wrong (Message), why it
// happened (Cause) and what the user can do about it (Fix). The underlying
// error, if any, is kept for errors.Is/errors.As and shown in debug output.
//
// Library code should return plain wrapped errors; the CLI layer converts
// them into UserErrors and terminates through FatalError.
package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
)

// ErrorType classifies a UserError and selects its exit code.
type ErrorType int

const (
	// InternalError is a bug or an unexpected condition.
	InternalError ErrorType = iota
	// ConfigError is a missing or malformed configuration file.
	ConfigError
	// InputError is invalid command line input.
	InputError
	// NetworkError is a failure talking to NCBI.
	NetworkError
	// DatabaseError is a failure of a search backend or its database.
	DatabaseError
	// PermissionError is a filesystem permission problem.
	PermissionError
)

// String returns the lowercase name of the error type.
func (t ErrorType) String() string {
	switch t {
	case ConfigError:
		return "config"
	case InputError:
		return "input"
	case NetworkError:
		return "network"
	case DatabaseError:
		return "database"
	case PermissionError:
		return "permission"
	default:
		return "internal"
	}
}

// ExitCode returns the process exit code used for this error type.
func (t ErrorType) ExitCode() int {
	switch t {
	case ConfigError:
		return 2
	case InputError:
		return 3
	case NetworkError:
		return 4
	case DatabaseError:
		return 5
	case PermissionError:
		return 6
	default:
		return 1
	}
}

// UserError is an error meant to be shown to the person running cblaster.
type UserError struct {
	Type    ErrorType
	Message string // what went wrong
	Cause   string // why it happened
	Fix     string // how to resolve it
	Err     error  // underlying error, may be nil
}

// Error implements the error interface.
func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *UserError) Unwrap() error {
	return e.Err
}

// Format renders the error for terminal output. When verbose is set the
// underlying error chain is included.
func (e *UserError) Format(verbose bool) string {
	red := color.New(color.FgRed, color.Bold).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", red("Error:"), e.Message)
	if e.Cause != "" {
		fmt.Fprintf(&b, "%s %s\n", dim("Cause:"), e.Cause)
	}
	if e.Fix != "" {
		fmt.Fprintf(&b, "%s   %s\n", cyan("Fix:"), e.Fix)
	}
	if verbose && e.Err != nil {
		fmt.Fprintf(&b, "%s %v\n", dim("Details:"), e.Err)
	}
	return strings.TrimRight(b.String(), "\n")
}

type jsonError struct {
	Type    string `json:"type"`
	Error   string `json:"error"`
	Cause   string `json:"cause,omitempty"`
	Fix     string `json:"fix,omitempty"`
	Details string `json:"details,omitempty"`
}

func (e *UserError) toJSON() jsonError {
	out := jsonError{
		Type:  e.Type.String(),
		Error: e.Message,
		Cause: e.Cause,
		Fix:   e.Fix,
	}
	if e.Err != nil {
		out.Details = e.Err.Error()
	}
	return out
}

func newUserError(t ErrorType, msg, cause, fix string, err error) *UserError {
	return &UserError{Type: t, Message: msg, Cause: cause, Fix: fix, Err: err}
}

// NewConfigError creates an error for configuration problems.
func NewConfigError(msg, cause, fix string, err error) *UserError {
	return newUserError(ConfigError, msg, cause, fix, err)
}

// NewInputError creates an error for invalid user input.
func NewInputError(msg, cause, fix string) *UserError {
	return newUserError(InputError, msg, cause, fix, nil)
}

// NewValidationError creates an input error that wraps a sentinel, so callers
// can tell validation failures apart with errors.Is.
func NewValidationError(msg, cause, fix string, err error) *UserError {
	return newUserError(InputError, msg, cause, fix, err)
}

// NewNetworkError creates an error for failed requests to remote services.
func NewNetworkError(msg, cause, fix string, err error) *UserError {
	return newUserError(NetworkError, msg, cause, fix, err)
}

// NewDatabaseError creates an error for search backend failures.
func NewDatabaseError(msg, cause, fix string, err error) *UserError {
	return newUserError(DatabaseError, msg, cause, fix, err)
}

// NewPermissionError creates an error for filesystem permission problems.
func NewPermissionError(msg, cause, fix string, err error) *UserError {
	return newUserError(PermissionError, msg, cause, fix, err)
}

// NewInternalError creates an error for unexpected conditions.
func NewInternalError(msg, cause, fix string, err error) *UserError {
	return newUserError(InternalError, msg, cause, fix, err)
}

// Verbose controls whether FatalError prints the underlying error chain.
var Verbose bool

// exit is replaced in tests.
var exit = os.Exit

// FatalError prints err to stderr and terminates the process with the exit
// code of its type. Errors that are not UserErrors are reported as internal.
func FatalError(err error, jsonOutput bool) {
	var ue *UserError
	if !stderrors.As(err, &ue) {
		ue = NewInternalError(
			"Unexpected error",
			err.Error(),
			"Re-run with -vv for details and report this issue if it persists",
			err,
		)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stderr)
		enc.SetIndent("", "  ")
		_ = enc.Encode(ue.toJSON())
	} else {
		fmt.Fprintln(os.Stderr, ue.Format(Verbose))
	}
	exit(ue.Type.ExitCode())
}
