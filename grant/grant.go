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

package grant

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/Jigsaw-Code/corectl/privexec"
)

// Granter grants network permissions to core binaries. Use [New] to create one.
type Granter struct {
	goos       string
	executable func() (string, error)
	stat       func(path string) (Ownership, error)
	fileCaps   func(path string) ([]byte, error)
	runner     privexec.Runner
	lookPath   privexec.LookPathFunc
	logger     *slog.Logger
}

// Option configures a [Granter].
type Option func(*Granter)

// WithGOOS overrides the target OS, which defaults to runtime.GOOS.
func WithGOOS(goos string) Option {
	return func(g *Granter) { g.goos = goos }
}

// WithExecutable overrides how the running executable is found.
func WithExecutable(f func() (string, error)) Option {
	return func(g *Granter) { g.executable = f }
}

// WithStat overrides how file ownership and mode are read.
func WithStat(f func(path string) (Ownership, error)) Option {
	return func(g *Granter) { g.stat = f }
}

// WithFileCaps overrides how the raw security.capability attribute is read.
func WithFileCaps(f func(path string) ([]byte, error)) Option {
	return func(g *Granter) { g.fileCaps = f }
}

// WithRunner sets the runner for the privileged command.
func WithRunner(r privexec.Runner) Option {
	return func(g *Granter) { g.runner = r }
}

// WithLookPath overrides how pkexec is looked up.
func WithLookPath(f privexec.LookPathFunc) Option {
	return func(g *Granter) { g.lookPath = f }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(g *Granter) { g.logger = l }
}

// New creates a Granter for the current platform.
func New(opts ...Option) *Granter {
	g := &Granter{
		goos:       runtime.GOOS,
		executable: os.Executable,
		stat:       statOwnership,
		fileCaps:   readFileCaps,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.logger == nil {
		g.logger = slog.Default()
	}
	if g.runner == nil {
		g.runner = &privexec.ExecRunner{Logger: g.logger}
	}
	return g
}

// ResolveCorePath returns the canonical absolute path of the file named core
// in the directory of the running executable.
func (g *Granter) ResolveCorePath(core string) (string, error) {
	if core == "" || core == "." || core == ".." || strings.ContainsAny(core, `/\`) {
		return "", &Error{Kind: PathResolution, Err: fmt.Errorf("invalid core name %q", core)}
	}
	exe, err := g.executable()
	if err != nil {
		return "", &Error{Kind: PathResolution, Err: fmt.Errorf("failed to locate executable: %w", err)}
	}
	path := filepath.Join(filepath.Dir(exe), core)
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return "", &Error{Kind: PathResolution, Path: path, Err: fmt.Errorf("failed to resolve core: %w", err)}
	}
	abs, err := filepath.Abs(resolved)
	if err != nil {
		return "", &Error{Kind: PathResolution, Path: resolved, Err: fmt.Errorf("failed to resolve core: %w", err)}
	}
	return abs, nil
}

// Grant gives the core binary named core permission to bind privileged ports
// and administer network interfaces. It may show the OS credentials prompt and
// blocks until the privileged command exits.
func (g *Granter) Grant(ctx context.Context, core string) error {
	if g.goos != "darwin" && g.goos != "linux" {
		return &Error{Kind: UnsupportedPlatform, Err: fmt.Errorf("cannot grant permission on %s", g.goos)}
	}
	path, err := g.ResolveCorePath(core)
	if err != nil {
		return err
	}
	g.logger.Debug("granting permission", "core", core, "path", path)

	if g.goos == "darwin" {
		return g.grantDarwin(ctx, path)
	}
	return g.grantLinux(ctx, path)
}

func (g *Granter) grantDarwin(ctx context.Context, path string) error {
	if own, err := g.stat(path); err == nil && IsGranted(own) {
		g.logger.Debug("core already owned by root:admin with setuid/setgid", "path", path)
		return nil
	}
	script, err := DarwinScript(path)
	if err != nil {
		return &Error{Kind: PathResolution, Path: path, Err: err}
	}
	return g.run(ctx, path, "osascript", "-e", script)
}

func (g *Granter) grantLinux(ctx context.Context, path string) error {
	if raw, err := g.fileCaps(path); err == nil && HasNetCaps(raw) {
		g.logger.Debug("core already has network capabilities", "path", path)
		return nil
	}
	elevator := privexec.Elevator(g.lookPath)
	return g.run(ctx, path, elevator, LinuxArgs(path)...)
}

func (g *Granter) run(ctx context.Context, path, name string, args ...string) error {
	res, err := g.runner.Run(ctx, name, args...)
	if err != nil {
		return &Error{Kind: CommandFailed, Path: path, Err: err}
	}
	if !res.Success() {
		g.logger.Warn("privileged command failed", "command", name, "code", res.ExitCode, "stderr", res.StderrText())
		return &Error{Kind: CommandFailed, Path: path, ExitCode: res.ExitCode, Stderr: res.StderrText()}
	}
	g.logger.Info("granted network permission", "path", path)
	return nil
}
