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

package sysproxy

import (
	"context"
	"testing"

	"github.com/Jigsaw-Code/corectl/privexec/privexectest"
	"github.com/stretchr/testify/require"
)

const serviceOrder = `An asterisk (*) denotes that a network service is disabled.
(1) USB 10/100/1000 LAN
(Hardware Port: USB 10/100/1000 LAN, Device: en7)

(2) Wi-Fi
(Hardware Port: Wi-Fi, Device: en0)

(*) Thunderbolt Bridge
(Hardware Port: Thunderbolt Bridge, Device: bridge0)
`

const routeGet = `   route to: default
destination: default
       mask: default
    gateway: 192.168.1.1
  interface: en0
      flags: <UP,GATEWAY,DONE,STATIC,PRCLONING,GLOBAL>
`

func TestParseRouteInterface(t *testing.T) {
	iface, err := parseRouteInterface(routeGet)
	require.NoError(t, err)
	require.Equal(t, "en0", iface)

	_, err = parseRouteInterface("route: writing to routing socket: not in table\n")
	require.Error(t, err)
}

func TestParseServiceOrder(t *testing.T) {
	service, err := parseServiceOrder(serviceOrder, "en0")
	require.NoError(t, err)
	require.Equal(t, "Wi-Fi", service)

	service, err = parseServiceOrder(serviceOrder, "en7")
	require.NoError(t, err)
	require.Equal(t, "USB 10/100/1000 LAN", service)

	_, err = parseServiceOrder(serviceOrder, "en1")
	require.Error(t, err)
}

func TestParseWebProxy(t *testing.T) {
	s, err := parseWebProxy("Enabled: Yes\nServer: 127.0.0.1\nPort: 7897\nAuthenticated Proxy Enabled: 0\n")
	require.NoError(t, err)
	require.Equal(t, Settings{Enable: true, Host: "127.0.0.1", Port: 7897}, s)

	s, err = parseWebProxy("Enabled: No\nServer: \nPort: 0\nAuthenticated Proxy Enabled: 0\n")
	require.NoError(t, err)
	require.False(t, s.Enable)

	_, err = parseWebProxy("Enabled: Yes\nServer: x\nPort: abc\n")
	require.Error(t, err)
}

func TestParseBypassDomains(t *testing.T) {
	require.Equal(t, "*.local,169.254/16", parseBypassDomains("*.local\n169.254/16\n"))
	require.Equal(t, "", parseBypassDomains("There aren't any bypass domains set on Wi-Fi.\n"))
}

func TestParseGVariant(t *testing.T) {
	require.Equal(t, "manual", parseGVariantString("'manual'\n"))
	require.Equal(t, "it's", parseGVariantString(`'it\'s'`))
	require.Equal(t, []string{"localhost", "127.0.0.0/8", "::1"}, parseGVariantStrings("['localhost', '127.0.0.0/8', '::1']"))
	require.Empty(t, parseGVariantStrings("@as []"))
	require.Equal(t, "['localhost', '*.local']", formatGVariantStrings([]string{"localhost", "*.local"}))
}

func TestParseWindowsServer(t *testing.T) {
	host, port, err := parseWindowsServer("127.0.0.1:7897")
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1", host)
	require.Equal(t, 7897, port)

	host, port, err = parseWindowsServer("http=10.0.0.1:8080;https=10.0.0.1:8443")
	require.NoError(t, err)
	require.Equal(t, "10.0.0.1", host)
	require.Equal(t, 8080, port)

	host, port, err = parseWindowsServer("")
	require.NoError(t, err)
	require.Equal(t, "", host)
	require.Zero(t, port)

	_, _, err = parseWindowsServer("nonsense")
	require.Error(t, err)
}

func TestSettingsServer(t *testing.T) {
	require.Equal(t, "127.0.0.1:7897", Settings{Host: "127.0.0.1", Port: 7897}.Server())
}

func TestGetDarwin(t *testing.T) {
	rec := privexectest.NewRecorder().
		OnStdout("route", routeGet).
		OnStdout("networksetup", serviceOrder).
		OnStdout("networksetup", "Enabled: Yes\nServer: 127.0.0.1\nPort: 7897\n").
		OnStdout("networksetup", "*.local\n")
	m := &Manager{GOOS: "darwin", Runner: rec}

	s, err := m.Get(context.Background())
	require.NoError(t, err)
	require.Equal(t, Settings{Enable: true, Host: "127.0.0.1", Port: 7897, Bypass: "*.local"}, s)
	calls := rec.CallsTo("networksetup")
	require.Len(t, calls, 3)
	require.Equal(t, []string{"-getwebproxy", "Wi-Fi"}, calls[1].Args)
	require.Equal(t, []string{"-getproxybypassdomains", "Wi-Fi"}, calls[2].Args)
}

func TestSetUnsetDarwin(t *testing.T) {
	rec := privexectest.NewRecorder().
		OnStdout("route", routeGet).
		OnStdout("networksetup", serviceOrder)
	m := &Manager{GOOS: "darwin", Runner: rec}

	require.NoError(t, m.Set(context.Background(), "127.0.0.1", 7897, []string{"*.local"}))
	var lines []string
	for _, c := range rec.CallsTo("networksetup")[1:] {
		lines = append(lines, c.String())
	}
	require.Equal(t, []string{
		"networksetup -setwebproxy Wi-Fi 127.0.0.1 7897",
		"networksetup -setsecurewebproxy Wi-Fi 127.0.0.1 7897",
		"networksetup -setproxybypassdomains Wi-Fi *.local",
	}, lines)
}

func TestGetGnome(t *testing.T) {
	rec := privexectest.NewRecorder().
		OnStdout("gsettings", "'manual'\n").
		OnStdout("gsettings", "'127.0.0.1'\n").
		OnStdout("gsettings", "7897\n").
		OnStdout("gsettings", "['localhost', '127.0.0.0/8']\n")
	m := &Manager{GOOS: "linux", Runner: rec}

	s, err := m.Get(context.Background())
	require.NoError(t, err)
	require.Equal(t, Settings{Enable: true, Host: "127.0.0.1", Port: 7897, Bypass: "localhost,127.0.0.0/8"}, s)
}

func TestGetGnomeFailure(t *testing.T) {
	rec := privexectest.NewRecorder().OnExit("gsettings", 1, "No such schema “org.gnome.system.proxy”\n")
	m := &Manager{GOOS: "linux", Runner: rec}

	_, err := m.Get(context.Background())
	require.ErrorContains(t, err, "No such schema")
}

func TestSetUnsetGnome(t *testing.T) {
	rec := privexectest.NewRecorder()
	m := &Manager{GOOS: "linux", Runner: rec}

	require.NoError(t, m.Set(context.Background(), "127.0.0.1", 7897, nil))
	calls := rec.Calls()
	require.Len(t, calls, 8)
	require.Equal(t, "gsettings set org.gnome.system.proxy.http host 127.0.0.1", calls[0].String())
	require.Equal(t, "gsettings set org.gnome.system.proxy.http port 7897", calls[1].String())
	require.Equal(t, []string{"set", "org.gnome.system.proxy", "ignore-hosts", formatGVariantStrings(DefaultBypass)}, calls[6].Args)
	require.Equal(t, "gsettings set org.gnome.system.proxy mode manual", calls[7].String())

	require.NoError(t, m.Unset(context.Background()))
	calls = rec.Calls()
	require.Equal(t, "gsettings set org.gnome.system.proxy mode none", calls[len(calls)-1].String())
}

func TestSetGnomeFailureKeepsMode(t *testing.T) {
	rec := privexectest.NewRecorder().
		OnStdout("gsettings", "").
		OnStdout("gsettings", "").
		OnExit("gsettings", 1, "GLib-GIO-CRITICAL: dconf not writable\n")
	m := &Manager{GOOS: "linux", Runner: rec}

	err := m.Set(context.Background(), "127.0.0.1", 7897, nil)
	require.ErrorContains(t, err, "dconf not writable")
	for _, c := range rec.Calls() {
		require.NotContains(t, c.Args, "mode", c.String())
	}
}

func TestSetInvalid(t *testing.T) {
	m := &Manager{GOOS: "linux", Runner: privexectest.NewRecorder()}
	require.Error(t, m.Set(context.Background(), "", 7897, nil))
	require.Error(t, m.Set(context.Background(), "127.0.0.1", 0, nil))
	require.Error(t, m.Set(context.Background(), "127.0.0.1", 70000, nil))
}

func TestUnsupported(t *testing.T) {
	m := &Manager{GOOS: "plan9", Runner: privexectest.NewRecorder()}
	_, err := m.Get(context.Background())
	require.ErrorIs(t, err, ErrUnsupported)
	require.ErrorIs(t, m.Set(context.Background(), "127.0.0.1", 1, nil), ErrUnsupported)
	require.ErrorIs(t, m.Unset(context.Background()), ErrUnsupported)
}
