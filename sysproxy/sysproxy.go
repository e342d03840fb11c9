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
	"errors"
	"fmt"
	"net"
	"runtime"
	"strconv"
	"strings"

	"github.com/Jigsaw-Code/corectl/privexec"
)

// ErrUnsupported is returned on platforms without a known proxy setting.
var ErrUnsupported = errors.New("system proxy is not supported on this platform")

// DefaultBypass is the bypass list used by [Manager.Set] when none is given.
var DefaultBypass = []string{"localhost", "127.0.0.1", "::1", "*.local"}

// Settings is the system HTTP proxy configuration.
type Settings struct {
	Enable bool
	Host   string
	Port   int
	// Bypass is the comma-separated list of hosts that skip the proxy.
	Bypass string
}

// Server returns the proxy address as host:port.
func (s Settings) Server() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// Manager reads and writes the system proxy of one platform.
type Manager struct {
	GOOS   string
	Runner privexec.Runner
}

// New returns a Manager for the current platform.
func New(runner privexec.Runner) *Manager {
	return &Manager{GOOS: runtime.GOOS, Runner: runner}
}

// Get returns the current system proxy settings.
func (m *Manager) Get(ctx context.Context) (Settings, error) {
	switch m.GOOS {
	case "darwin":
		return m.getDarwin(ctx)
	case "linux":
		return m.getGnome(ctx)
	case "windows":
		return getRegistry()
	default:
		return Settings{}, ErrUnsupported
	}
}

// Set enables the system proxy at host:port. A nil bypass uses [DefaultBypass].
func (m *Manager) Set(ctx context.Context, host string, port int, bypass []string) error {
	if host == "" || port <= 0 || port > 65535 {
		return fmt.Errorf("invalid proxy address %q", net.JoinHostPort(host, strconv.Itoa(port)))
	}
	if bypass == nil {
		bypass = DefaultBypass
	}
	switch m.GOOS {
	case "darwin":
		return m.setDarwin(ctx, host, port, bypass)
	case "linux":
		return m.setGnome(ctx, host, port, bypass)
	case "windows":
		return setRegistry(net.JoinHostPort(host, strconv.Itoa(port)), strings.Join(bypass, ";"))
	default:
		return ErrUnsupported
	}
}

// Unset disables the system proxy.
func (m *Manager) Unset(ctx context.Context) error {
	switch m.GOOS {
	case "darwin":
		return m.unsetDarwin(ctx)
	case "linux":
		return m.unsetGnome(ctx)
	case "windows":
		return unsetRegistry()
	default:
		return ErrUnsupported
	}
}

// parseWindowsServer parses the ProxyServer registry value, which is either
// "host:port" or a list such as "http=host:port;https=host:port".
func parseWindowsServer(value string) (string, int, error) {
	server := strings.TrimSpace(value)
	if strings.Contains(server, "=") {
		server = ""
		for _, entry := range strings.Split(value, ";") {
			scheme, addr, ok := strings.Cut(strings.TrimSpace(entry), "=")
			if ok && strings.EqualFold(scheme, "http") {
				server = addr
				break
			}
		}
	}
	if server == "" {
		return "", 0, nil
	}
	host, portStr, err := net.SplitHostPort(server)
	if err != nil {
		return "", 0, fmt.Errorf("invalid proxy server %q: %w", value, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid proxy port %q: %w", portStr, err)
	}
	return host, port, nil
}
