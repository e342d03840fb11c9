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

package commands

import (
	"context"
	"errors"

	"github.com/Jigsaw-Code/corectl/clashapi"
	"github.com/Jigsaw-Code/corectl/sysproxy"
)

// GrantPermission lets core open TUN devices and bind privileged ports. When
// core is running it is restarted so the new privileges apply.
func (a *App) GrantPermission(ctx context.Context, core string) error {
	if err := a.s.Granter.Grant(ctx, core); err != nil {
		a.s.Logger.Warn("grant permission failed", "core", core, "error", err)
		return message(err)
	}
	if a.s.Core == nil || !a.s.Core.Running() || a.s.Core.Current() != core {
		return nil
	}
	return message(a.s.Core.Restart(ctx))
}

// RestartSidecar restarts the running core.
func (a *App) RestartSidecar(ctx context.Context) error {
	return message(a.s.Core.Restart(ctx))
}

// ChangeClashCore switches to another core and starts it.
func (a *App) ChangeClashCore(ctx context.Context, name string) error {
	return message(a.s.Core.ChangeCore(ctx, name))
}

// GetSysProxy reports the current system proxy.
func (a *App) GetSysProxy(ctx context.Context) (SysProxy, error) {
	s, err := a.s.SysProxy.Get(ctx)
	if err != nil {
		return SysProxy{}, message(err)
	}
	return SysProxy{Enable: s.Enable, Server: s.Server(), Bypass: s.Bypass}, nil
}

// SetSysProxy points the system proxy at host:port. A nil bypass uses
// [sysproxy.DefaultBypass].
func (a *App) SetSysProxy(ctx context.Context, host string, port int, bypass []string) error {
	if bypass == nil {
		bypass = sysproxy.DefaultBypass
	}
	return message(a.s.SysProxy.Set(ctx, host, port, bypass))
}

// UnsetSysProxy disables the system proxy.
func (a *App) UnsetSysProxy(ctx context.Context) error {
	return message(a.s.SysProxy.Unset(ctx))
}

// GetClashLogs returns the recent core output, oldest first.
func (a *App) GetClashLogs() ([]string, error) {
	lines, err := a.s.Log.Read()
	return lines, message(err)
}

// OpenAppDir opens the application home.
func (a *App) OpenAppDir(ctx context.Context) error {
	return message(a.s.Opener.Open(ctx, a.s.Dirs.Home))
}

// OpenCoreDir opens the directory holding the core binaries.
func (a *App) OpenCoreDir(ctx context.Context) error {
	if a.s.CoreDir == "" {
		return errors.New("failed to get core dir")
	}
	return message(a.s.Opener.Open(ctx, a.s.CoreDir))
}

// OpenLogsDir opens the log directory.
func (a *App) OpenLogsDir(ctx context.Context) error {
	return message(a.s.Opener.Open(ctx, a.s.Dirs.Logs))
}

// OpenWebURL opens an http or https URL in the browser.
func (a *App) OpenWebURL(ctx context.Context, url string) error {
	return message(a.s.Opener.OpenURL(ctx, url))
}

// CheckIfInstalledInApplications reports whether the running bundle lives in
// /Applications.
func (a *App) CheckIfInstalledInApplications() (bool, error) {
	ok, err := a.s.Bundle.Installed()
	return ok, message(err)
}

// MoveToApplications moves the running bundle into /Applications.
func (a *App) MoveToApplications(ctx context.Context) error {
	return message(a.s.Bundle.MoveToApplications(ctx))
}

// ClashAPIGetProxyDelay measures the delay of the named proxy. An empty
// testURL uses the configured one.
func (a *App) ClashAPIGetProxyDelay(ctx context.Context, name, testURL string) (clashapi.Delay, error) {
	if testURL == "" {
		testURL = a.s.DelayURL
	}
	d, err := a.s.Clash.ProxyDelay(ctx, name, testURL, a.s.DelayTimeout)
	if err != nil {
		return clashapi.Delay{}, message(err)
	}
	return d, nil
}

// CheckService reports whether the privileged helper service is usable. It
// succeeds trivially outside Windows, where no service is needed.
func (a *App) CheckService(ctx context.Context) error {
	return a.serviceOp()
}

// InstallService installs the privileged helper service.
func (a *App) InstallService(ctx context.Context) error {
	return a.serviceOp()
}

// UninstallService removes the privileged helper service.
func (a *App) UninstallService(ctx context.Context) error {
	return a.serviceOp()
}

func (a *App) serviceOp() error {
	if a.s.GOOS == "windows" {
		return ErrServiceUnsupported
	}
	return nil
}
