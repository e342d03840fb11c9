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

// Package core supervises the proxy core process: it starts the selected core
// binary with the runtime configuration, captures its output, and restarts
// it on request or when the configuration file changes.
package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/Jigsaw-Code/corectl/corelog"
)

// DefaultCores are the core binaries that may be selected.
var DefaultCores = []string{"verge-mihomo", "verge-mihomo-alpha"}

// ErrCoreNotAllowed is returned by [Manager.ChangeCore] for unknown cores.
var ErrCoreNotAllowed = errors.New("core is not allowed")

// Options configures a [Manager].
type Options struct {
	// Dir is the directory holding the core binaries.
	Dir string
	// Home is passed to the core with -d.
	Home string
	// ConfigFile is passed to the core with -f.
	ConfigFile string
	// Core is the initially selected core.
	Core string
	// AllowedCores defaults to DefaultCores.
	AllowedCores []string
	// Log receives the core's stdout and stderr lines.
	Log *corelog.Buffer
	// Output, if set, also receives every line, newline terminated.
	Output io.Writer
	Logger *slog.Logger
	// Ready, if set, is called after the core starts and must return nil once
	// the core is serving.
	Ready func(ctx context.Context) error
	// WatchDebounce delays restarts triggered by config changes. Defaults to
	// 500ms.
	WatchDebounce time.Duration
	// WaitDelay bounds how long output is read after the core exits or is
	// killed, in case a child of the core keeps its stdout or stderr open.
	// Defaults to 5s.
	WaitDelay time.Duration

	// command builds the process. Defaults to exec.CommandContext.
	command func(ctx context.Context, name string, args ...string) *exec.Cmd
}

type process struct {
	cmd    *exec.Cmd
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// Manager runs at most one core process at a time. Safe for concurrent use;
// operations are serialized.
type Manager struct {
	opts Options

	mu   sync.Mutex
	core string
	proc *process
}

// NewManager creates a Manager. No process is started until [Manager.Run].
func NewManager(opts Options) *Manager {
	if len(opts.AllowedCores) == 0 {
		opts.AllowedCores = DefaultCores
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Log == nil {
		opts.Log = corelog.New(0)
	}
	if opts.WatchDebounce <= 0 {
		opts.WatchDebounce = 500 * time.Millisecond
	}
	if opts.WaitDelay <= 0 {
		opts.WaitDelay = 5 * time.Second
	}
	if opts.command == nil {
		opts.command = exec.CommandContext
	}
	core := opts.Core
	if core == "" {
		core = opts.AllowedCores[0]
	}
	return &Manager{opts: opts, core: core}
}

// Current returns the selected core.
func (m *Manager) Current() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.core
}

// Running reports whether a core process is alive.
func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.proc != nil && !m.proc.exited()
}

func (p *process) exited() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// Run (re)starts the selected core. Any running core is stopped first.
func (m *Manager) Run(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.runLocked(ctx)
}

// Restart is an alias of [Manager.Run].
func (m *Manager) Restart(ctx context.Context) error {
	return m.Run(ctx)
}

// ChangeCore switches to the core called name and restarts. If the new core
// fails to start, the previous one is restored and restarted.
func (m *Manager) ChangeCore(ctx context.Context, name string) error {
	if !slices.Contains(m.opts.AllowedCores, name) {
		return fmt.Errorf("%w: %q", ErrCoreNotAllowed, name)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	prev := m.core
	m.core = name
	err := m.runLocked(ctx)
	if err == nil {
		m.opts.Logger.Info("changed core", "from", prev, "to", name)
		return nil
	}
	m.core = prev
	if rerr := m.runLocked(ctx); rerr != nil {
		m.opts.Logger.Error("failed to restore previous core", "core", prev, "error", rerr)
	}
	return err
}

// Stop kills the core process and waits for it to exit. Stopping a stopped
// manager is a no-op.
func (m *Manager) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked()
	return nil
}

func (m *Manager) stopLocked() {
	if m.proc == nil {
		return
	}
	m.proc.cancel()
	<-m.proc.done
	m.proc = nil
}

func (m *Manager) runLocked(ctx context.Context) error {
	m.stopLocked()

	path := filepath.Join(m.opts.Dir, m.core)
	args := []string{"-d", m.opts.Home, "-f", m.opts.ConfigFile}
	procCtx, cancel := context.WithCancel(context.Background())
	cmd := m.opts.command(procCtx, path, args...)
	out := &sink{log: m.opts.Log, out: m.opts.Output}
	stdout, stderr := &lineWriter{sink: out}, &lineWriter{sink: out}
	cmd.Stdout, cmd.Stderr = stdout, stderr
	cmd.WaitDelay = m.opts.WaitDelay
	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("failed to start core %s: %w", m.core, err)
	}
	m.opts.Logger.Info("core started", "core", m.core, "pid", cmd.Process.Pid)

	p := &process{cmd: cmd, cancel: cancel, done: make(chan struct{})}
	go func(core string) {
		err := cmd.Wait()
		stdout.flush()
		stderr.flush()
		if errors.Is(err, exec.ErrWaitDelay) {
			m.opts.Logger.Warn("core output still open after exit, closed it", "core", core)
		}
		p.err = errors.Join(err, out.writeErr())
		m.opts.Logger.Info("core exited", "core", core, "error", p.err)
		close(p.done)
	}(m.core)
	m.proc = p

	if m.opts.Ready == nil {
		return nil
	}
	readyCtx, cancelReady := context.WithCancel(ctx)
	defer cancelReady()
	ready := make(chan error, 1)
	go func() { ready <- m.opts.Ready(readyCtx) }()
	select {
	case err := <-ready:
		if err != nil {
			m.stopLocked()
			return fmt.Errorf("core %s did not become ready: %w", m.core, err)
		}
		return nil
	case <-p.done:
		m.proc = nil
		return fmt.Errorf("core %s exited during startup: %w", m.core, p.err)
	}
}
