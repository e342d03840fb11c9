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

// Package appbundle locates the macOS application bundle that contains the
// running executable and moves it into /Applications.
package appbundle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/Jigsaw-Code/corectl/privexec"
)

// ApplicationsDir is where installed bundles live.
const ApplicationsDir = "/Applications"

// ErrNotInBundle is returned when the executable is not inside an .app bundle.
var ErrNotInBundle = errors.New("not running from an .app bundle")

// ErrUnsupported is returned by [Mover.MoveToApplications] outside macOS.
var ErrUnsupported = errors.New("moving to /Applications is only supported on macOS")

// Locate returns the nearest ancestor of exe whose name ends in ".app".
func Locate(exe string) (string, error) {
	for dir := filepath.Clean(exe); ; {
		if filepath.Ext(dir) == ".app" {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrNotInBundle
		}
		dir = parent
	}
}

// IsInstalled reports whether bundle is inside /Applications.
func IsInstalled(bundle string) bool {
	return strings.HasPrefix(bundle, ApplicationsDir+"/")
}

// Mover moves the running application bundle into /Applications.
type Mover struct {
	GOOS       string
	Executable func() (string, error)
	// Exists reports whether a path exists. Defaults to os.Stat.
	Exists func(path string) bool
	Runner privexec.Runner
	Logger *slog.Logger
}

// NewMover returns a Mover for the current platform.
func NewMover(runner privexec.Runner, logger *slog.Logger) *Mover {
	return &Mover{GOOS: runtime.GOOS, Executable: os.Executable, Runner: runner, Logger: logger}
}

// Bundle returns the bundle path of the running executable.
func (m *Mover) Bundle() (string, error) {
	exe, err := m.Executable()
	if err != nil {
		return "", err
	}
	return Locate(exe)
}

// Installed reports whether the running executable is inside a bundle in
// /Applications.
func (m *Mover) Installed() (bool, error) {
	bundle, err := m.Bundle()
	if err != nil {
		return false, err
	}
	return IsInstalled(bundle), nil
}

// Script returns the shell commands that replace the bundle at dst with src.
func Script(src, dst string, dstExists bool) string {
	cmd := fmt.Sprintf("cp -R %s %s && rm -R %s", privexec.QuoteShell(src), privexec.QuoteShell(dst), privexec.QuoteShell(src))
	if dstExists {
		cmd = fmt.Sprintf("rm -R %s && %s", privexec.QuoteShell(dst), cmd)
	}
	return cmd
}

// MoveToApplications copies the running bundle into /Applications, replacing
// any bundle with the same name, and removes the original. The user is asked
// for administrator credentials.
func (m *Mover) MoveToApplications(ctx context.Context) error {
	if m.GOOS != "darwin" {
		return ErrUnsupported
	}
	src, err := m.Bundle()
	if err != nil {
		return err
	}
	dst := filepath.Join(ApplicationsDir, filepath.Base(src))
	if dst == src {
		return nil
	}
	exists := m.Exists
	if exists == nil {
		exists = func(path string) bool {
			_, err := os.Stat(path)
			return err == nil
		}
	}
	shell := Script(src, dst, exists(dst))
	if _, err := privexec.ParseScript(shell); err != nil {
		return fmt.Errorf("refusing to run move script: %w", err)
	}
	m.logger().Info("moving bundle", "from", src, "to", dst)

	res, err := m.Runner.Run(ctx, "osascript", "-e", privexec.AdminShellScript(shell))
	if err != nil {
		return err
	}
	if !res.Success() {
		return errors.New(res.StderrText())
	}
	return nil
}

func (m *Mover) logger() *slog.Logger {
	if m.Logger == nil {
		return slog.Default()
	}
	return m.Logger
}
