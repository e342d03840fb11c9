// Copyright 2026 The Outline Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package privexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// Result is the outcome of a process that was started and ran to completion.
type Result struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
}

// Success reports whether the process exited with status 0.
func (r Result) Success() bool {
	return r.ExitCode == 0
}

// StderrText returns the captured standard error without its final newline.
// Any other whitespace is kept.
func (r Result) StderrText() string {
	return strings.TrimSuffix(string(r.Stderr), "\n")
}

// Runner runs a command synchronously and waits for it to exit.
//
// The returned error is non-nil only if the process could not be started or
// waited on. A process that exits with a non-zero status returns a nil error
// and a [Result] carrying the exit code and captured output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (Result, error)
}

// RunnerFunc adapts a function to the [Runner] interface.
type RunnerFunc func(ctx context.Context, name string, args ...string) (Result, error)

func (f RunnerFunc) Run(ctx context.Context, name string, args ...string) (Result, error) {
	return f(ctx, name, args...)
}

// ExecRunner is a [Runner] backed by os/exec.
type ExecRunner struct {
	// Logger receives a debug record per command. Defaults to slog.Default().
	Logger *slog.Logger
}

var _ Runner = (*ExecRunner)(nil)

func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) (Result, error) {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("running command", "name", name, "args", args)

	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return res, nil
	case errors.As(err, &exitErr) && exitErr.ExitCode() >= 0:
		res.ExitCode = exitErr.ExitCode()
		logger.Debug("command exited", "name", name, "code", res.ExitCode)
		return res, nil
	default:
		return res, fmt.Errorf("failed to run %s: %w", name, err)
	}
}

// Output runs the command and returns its trimmed standard output. A non-zero
// exit becomes an error carrying the captured standard error.
func Output(ctx context.Context, r Runner, name string, args ...string) (string, error) {
	res, err := r.Run(ctx, name, args...)
	if err != nil {
		return "", err
	}
	if !res.Success() {
		return "", fmt.Errorf("%s exited with status %d: %s", name, res.ExitCode, res.StderrText())
	}
	return strings.TrimSpace(string(res.Stdout)), nil
}

// LookPathFunc finds an executable in PATH, like [exec.LookPath].
type LookPathFunc func(file string) (string, error)

// Elevator returns the program used to run a command as root on Unix
// systems without osascript: pkexec when it is installed, sudo otherwise.
func Elevator(lookPath LookPathFunc) string {
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	if _, err := lookPath("pkexec"); err == nil {
		return "pkexec"
	}
	return "sudo"
}
