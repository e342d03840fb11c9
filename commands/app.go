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

// Package commands is the command surface of corectl. Each method of [App]
// does one user-visible thing and reports failure as a single message.
//
// An App is built from explicitly constructed services, in this order:
// config, logger, application directories, core log buffer, command runner,
// then the granter, system proxy, opener, bundle mover and controller client,
// and finally the core manager, which depends on the log buffer and the
// controller client. Tear down by stopping the core manager.
package commands

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"time"

	"github.com/Jigsaw-Code/corectl/appdirs"
	"github.com/Jigsaw-Code/corectl/clashapi"
	"github.com/Jigsaw-Code/corectl/grant"
	"github.com/Jigsaw-Code/corectl/sysproxy"
)

// Granter grants a core binary the privileges it needs for TUN mode.
type Granter interface {
	Grant(ctx context.Context, core string) error
}

// CoreManager controls the running core.
type CoreManager interface {
	Current() string
	Running() bool
	Restart(ctx context.Context) error
	ChangeCore(ctx context.Context, name string) error
}

// ProxySettings reads and changes the system proxy.
type ProxySettings interface {
	Get(ctx context.Context) (sysproxy.Settings, error)
	Set(ctx context.Context, host string, port int, bypass []string) error
	Unset(ctx context.Context) error
}

// Opener opens paths and URLs with the desktop's default handler.
type Opener interface {
	Open(ctx context.Context, target string) error
	OpenURL(ctx context.Context, rawURL string) error
}

// BundleMover installs the running .app bundle into /Applications.
type BundleMover interface {
	Installed() (bool, error)
	MoveToApplications(ctx context.Context) error
}

// DelayTester measures proxy delays through the core's controller.
type DelayTester interface {
	ProxyDelay(ctx context.Context, name, testURL string, timeout time.Duration) (clashapi.Delay, error)
}

// LogSource returns the recent core output, oldest first.
type LogSource interface {
	Read() ([]string, error)
}

// Services are the dependencies of an [App].
type Services struct {
	Granter  Granter
	Core     CoreManager
	SysProxy ProxySettings
	Opener   Opener
	Bundle   BundleMover
	Clash    DelayTester
	Log      LogSource
	Dirs     appdirs.Dirs
	// CoreDir is the directory holding the core binaries.
	CoreDir string
	// DelayURL and DelayTimeout are used when a delay test names no URL.
	DelayURL     string
	DelayTimeout time.Duration
	GOOS         string
	Logger       *slog.Logger
}

// App implements the corectl commands.
type App struct {
	s Services
}

// New creates an App.
func New(s Services) *App {
	if s.GOOS == "" {
		s.GOOS = runtime.GOOS
	}
	if s.Logger == nil {
		s.Logger = slog.Default()
	}
	if s.DelayURL == "" {
		s.DelayURL = clashapi.DefaultTestURL
	}
	if s.DelayTimeout <= 0 {
		s.DelayTimeout = clashapi.DefaultDelayTimeout
	}
	return &App{s: s}
}

// ErrServiceUnsupported is returned by the service commands on Windows.
var ErrServiceUnsupported = errors.New("service mode is not supported")

// message drops the error chain, keeping only the text shown to the user.
func message(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, grant.UnsupportedPlatform) {
		return errors.New("Unsupported target")
	}
	return errors.New(err.Error())
}

// SysProxy is the system proxy as reported to the user.
type SysProxy struct {
	Enable bool   `json:"enable" yaml:"enable"`
	Server string `json:"server" yaml:"server"`
	Bypass string `json:"bypass" yaml:"bypass"`
}
