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
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Jigsaw-Code/corectl/appdirs"
	"github.com/Jigsaw-Code/corectl/clashapi"
	"github.com/Jigsaw-Code/corectl/corelog"
	"github.com/Jigsaw-Code/corectl/grant"
	"github.com/Jigsaw-Code/corectl/sysproxy"
)

type fakeGranter struct {
	err   error
	cores []string
}

func (g *fakeGranter) Grant(_ context.Context, core string) error {
	g.cores = append(g.cores, core)
	return g.err
}

type fakeCore struct {
	current  string
	stopped  bool
	restarts int
	changed  []string
	err      error
}

func (c *fakeCore) Current() string { return c.current }

func (c *fakeCore) Running() bool { return !c.stopped }

func (c *fakeCore) Restart(context.Context) error {
	c.restarts++
	return c.err
}

func (c *fakeCore) ChangeCore(_ context.Context, name string) error {
	c.changed = append(c.changed, name)
	if c.err == nil {
		c.current = name
	}
	return c.err
}

type fakeProxy struct {
	settings sysproxy.Settings
	err      error
	bypass   []string
	unset    bool
}

func (p *fakeProxy) Get(context.Context) (sysproxy.Settings, error) { return p.settings, p.err }

func (p *fakeProxy) Set(_ context.Context, host string, port int, bypass []string) error {
	p.settings = sysproxy.Settings{Enable: true, Host: host, Port: port}
	p.bypass = bypass
	return p.err
}

func (p *fakeProxy) Unset(context.Context) error {
	p.unset = true
	return p.err
}

type fakeOpener struct {
	opened []string
	err    error
}

func (o *fakeOpener) Open(_ context.Context, target string) error {
	o.opened = append(o.opened, target)
	return o.err
}

func (o *fakeOpener) OpenURL(_ context.Context, rawURL string) error {
	o.opened = append(o.opened, rawURL)
	return o.err
}

type fakeBundle struct {
	installed bool
	moved     bool
	err       error
}

func (b *fakeBundle) Installed() (bool, error) { return b.installed, b.err }

func (b *fakeBundle) MoveToApplications(context.Context) error {
	b.moved = true
	return b.err
}

type fakeClash struct {
	name, url string
	timeout   time.Duration
	delay     clashapi.Delay
	err       error
}

func (c *fakeClash) ProxyDelay(_ context.Context, name, testURL string, timeout time.Duration) (clashapi.Delay, error) {
	c.name, c.url, c.timeout = name, testURL, timeout
	return c.delay, c.err
}

type fakeLog struct {
	lines []string
	err   error
}

func (l fakeLog) Read() ([]string, error) { return l.lines, l.err }

func TestGrantPermissionRestartsActiveCore(t *testing.T) {
	g := &fakeGranter{}
	c := &fakeCore{current: "verge-mihomo"}
	app := New(Services{Granter: g, Core: c})

	require.NoError(t, app.GrantPermission(context.Background(), "verge-mihomo"))
	require.Equal(t, []string{"verge-mihomo"}, g.cores)
	require.Equal(t, 1, c.restarts)

	require.NoError(t, app.GrantPermission(context.Background(), "verge-mihomo-alpha"))
	require.Equal(t, 1, c.restarts)

	c.stopped = true
	require.NoError(t, app.GrantPermission(context.Background(), "verge-mihomo"))
	require.Equal(t, 1, c.restarts)
}

func TestGrantPermissionFailureMessage(t *testing.T) {
	c := &fakeCore{current: "verge-mihomo"}
	app := New(Services{
		Granter: &fakeGranter{err: &grant.Error{Kind: grant.CommandFailed, ExitCode: 1, Stderr: "setcap: permission denied"}},
		Core:    c,
	})
	err := app.GrantPermission(context.Background(), "verge-mihomo")
	require.EqualError(t, err, "setcap: permission denied")
	require.Zero(t, c.restarts)
	// Only the message crosses the command boundary.
	var gerr *grant.Error
	require.False(t, errors.As(err, &gerr))
}

func TestGrantPermissionUnsupported(t *testing.T) {
	app := New(Services{Granter: &fakeGranter{err: &grant.Error{Kind: grant.UnsupportedPlatform}}})
	require.EqualError(t, app.GrantPermission(context.Background(), "verge-mihomo"), "Unsupported target")
}

func TestCoreCommands(t *testing.T) {
	c := &fakeCore{current: "verge-mihomo"}
	app := New(Services{Core: c})
	require.NoError(t, app.RestartSidecar(context.Background()))
	require.Equal(t, 1, c.restarts)
	require.NoError(t, app.ChangeClashCore(context.Background(), "verge-mihomo-alpha"))
	require.Equal(t, "verge-mihomo-alpha", c.current)

	c.err = errors.New("core exited")
	require.EqualError(t, app.ChangeClashCore(context.Background(), "verge-mihomo"), "core exited")
}

func TestGetSysProxy(t *testing.T) {
	p := &fakeProxy{settings: sysproxy.Settings{Enable: true, Host: "127.0.0.1", Port: 7897, Bypass: "localhost,127.0.0.1"}}
	app := New(Services{SysProxy: p})
	got, err := app.GetSysProxy(context.Background())
	require.NoError(t, err)
	require.Equal(t, SysProxy{Enable: true, Server: "127.0.0.1:7897", Bypass: "localhost,127.0.0.1"}, got)

	p.err = sysproxy.ErrUnsupported
	_, err = app.GetSysProxy(context.Background())
	require.EqualError(t, err, sysproxy.ErrUnsupported.Error())
}

func TestSetSysProxyDefaultBypass(t *testing.T) {
	p := &fakeProxy{}
	app := New(Services{SysProxy: p})
	require.NoError(t, app.SetSysProxy(context.Background(), "127.0.0.1", 7897, nil))
	require.Equal(t, sysproxy.DefaultBypass, p.bypass)
	require.NoError(t, app.SetSysProxy(context.Background(), "127.0.0.1", 7897, []string{"corp.example"}))
	require.Equal(t, []string{"corp.example"}, p.bypass)
	require.NoError(t, app.UnsetSysProxy(context.Background()))
	require.True(t, p.unset)
}

func TestOpenCommands(t *testing.T) {
	o := &fakeOpener{}
	app := New(Services{
		Opener:  o,
		Dirs:    appdirs.Dirs{Home: "/home/me/.config/app", Logs: "/home/me/.config/app/logs"},
		CoreDir: "/opt/app",
	})
	ctx := context.Background()
	require.NoError(t, app.OpenAppDir(ctx))
	require.NoError(t, app.OpenCoreDir(ctx))
	require.NoError(t, app.OpenLogsDir(ctx))
	require.NoError(t, app.OpenWebURL(ctx, "https://github.com/MetaCubeX/mihomo"))
	require.Equal(t, []string{
		"/home/me/.config/app",
		"/opt/app",
		"/home/me/.config/app/logs",
		"https://github.com/MetaCubeX/mihomo",
	}, o.opened)

	require.EqualError(t, New(Services{Opener: o}).OpenCoreDir(ctx), "failed to get core dir")
}

func TestBundleCommands(t *testing.T) {
	b := &fakeBundle{installed: true}
	app := New(Services{Bundle: b})
	ok, err := app.CheckIfInstalledInApplications()
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, app.MoveToApplications(context.Background()))
	require.True(t, b.moved)

	b.err = errors.New("User canceled.")
	require.EqualError(t, app.MoveToApplications(context.Background()), "User canceled.")
}

func TestClashAPIGetProxyDelay(t *testing.T) {
	c := &fakeClash{delay: clashapi.Delay{Delay: 42}}
	app := New(Services{Clash: c, DelayURL: "http://cp.cloudflare.com", DelayTimeout: 3 * time.Second})

	d, err := app.ClashAPIGetProxyDelay(context.Background(), "HK 01", "")
	require.NoError(t, err)
	require.Equal(t, 42, d.Delay)
	require.Equal(t, "HK 01", c.name)
	require.Equal(t, "http://cp.cloudflare.com", c.url)
	require.Equal(t, 3*time.Second, c.timeout)

	_, err = app.ClashAPIGetProxyDelay(context.Background(), "HK 01", "https://example.com/")
	require.NoError(t, err)
	require.Equal(t, "https://example.com/", c.url)

	c.err = &clashapi.APIError{StatusCode: 408, Message: "Timeout"}
	_, err = app.ClashAPIGetProxyDelay(context.Background(), "HK 01", "")
	require.Error(t, err)
}

func TestClashAPIGetProxyDelayDefaults(t *testing.T) {
	c := &fakeClash{}
	app := New(Services{Clash: c})
	_, err := app.ClashAPIGetProxyDelay(context.Background(), "DIRECT", "")
	require.NoError(t, err)
	require.Equal(t, clashapi.DefaultTestURL, c.url)
	require.Equal(t, clashapi.DefaultDelayTimeout, c.timeout)
}

func TestGetClashLogs(t *testing.T) {
	lines, err := New(Services{Log: fakeLog{lines: []string{"a", "b"}}}).GetClashLogs()
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, lines)

	_, err = New(Services{Log: fakeLog{err: errors.New("permission denied")}}).GetClashLogs()
	require.EqualError(t, err, "permission denied")
}

func TestGetClashLogsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), corelog.FileName)
	f := corelog.NewFile(path, 0)
	for _, line := range []string{"a", "b", "c"} {
		_, err := f.Write([]byte(line + "\n"))
		require.NoError(t, err)
	}
	require.NoError(t, f.Close())

	lines, err := New(Services{Log: corelog.Tail{Path: path, Lines: 2}}).GetClashLogs()
	require.NoError(t, err)
	require.Equal(t, []string{"b", "c"}, lines)
}

func TestServiceCommands(t *testing.T) {
	ctx := context.Background()
	app := New(Services{GOOS: "linux"})
	require.NoError(t, app.CheckService(ctx))
	require.NoError(t, app.InstallService(ctx))
	require.NoError(t, app.UninstallService(ctx))

	win := New(Services{GOOS: "windows"})
	require.ErrorIs(t, win.CheckService(ctx), ErrServiceUnsupported)
	require.ErrorIs(t, win.InstallService(ctx), ErrServiceUnsupported)
	require.ErrorIs(t, win.UninstallService(ctx), ErrServiceUnsupported)
}
