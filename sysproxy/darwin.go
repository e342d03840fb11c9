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
	"bufio"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/Jigsaw-Code/corectl/privexec"
)

var serviceLine = regexp.MustCompile(`^\((\d+|\*)\)\s+(.+)$`)

// parseRouteInterface extracts the interface from `route -n get 0.0.0.0`.
func parseRouteInterface(out string) (string, error) {
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		key, value, ok := strings.Cut(strings.TrimSpace(scanner.Text()), ":")
		if ok && key == "interface" {
			return strings.TrimSpace(value), nil
		}
	}
	return "", fmt.Errorf("no interface for the default route")
}

// parseServiceOrder finds the network service bound to device in the output of
// `networksetup -listnetworkserviceorder`.
func parseServiceOrder(out, device string) (string, error) {
	var service string
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if m := serviceLine.FindStringSubmatch(line); m != nil {
			service = m[2]
			continue
		}
		if strings.HasPrefix(line, "(Hardware Port:") && strings.Contains(line, "Device: "+device+")") {
			if service == "" {
				break
			}
			return service, nil
		}
	}
	return "", fmt.Errorf("no network service for device %q", device)
}

// parseKeyValues parses "Key: Value" lines as printed by networksetup.
func parseKeyValues(out string) map[string]string {
	values := make(map[string]string)
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), ":")
		if ok {
			values[strings.TrimSpace(key)] = strings.TrimSpace(value)
		}
	}
	return values
}

// parseWebProxy parses `networksetup -getwebproxy <service>`.
func parseWebProxy(out string) (Settings, error) {
	values := parseKeyValues(out)
	s := Settings{
		Enable: values["Enabled"] == "Yes",
		Host:   values["Server"],
	}
	if p := values["Port"]; p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return Settings{}, fmt.Errorf("invalid proxy port %q: %w", p, err)
		}
		s.Port = port
	}
	return s, nil
}

// parseBypassDomains parses `networksetup -getproxybypassdomains <service>`.
func parseBypassDomains(out string) string {
	var domains []string
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "There aren't any bypass domains") {
			continue
		}
		domains = append(domains, line)
	}
	return strings.Join(domains, ",")
}

// activeService returns the network service of the default route.
func (m *Manager) activeService(ctx context.Context) (string, error) {
	route, err := privexec.Output(ctx, m.Runner, "route", "-n", "get", "0.0.0.0")
	if err != nil {
		return "", err
	}
	device, err := parseRouteInterface(route)
	if err != nil {
		return "", err
	}
	order, err := privexec.Output(ctx, m.Runner, "networksetup", "-listnetworkserviceorder")
	if err != nil {
		return "", err
	}
	return parseServiceOrder(order, device)
}

func (m *Manager) getDarwin(ctx context.Context) (Settings, error) {
	service, err := m.activeService(ctx)
	if err != nil {
		return Settings{}, err
	}
	out, err := privexec.Output(ctx, m.Runner, "networksetup", "-getwebproxy", service)
	if err != nil {
		return Settings{}, err
	}
	s, err := parseWebProxy(out)
	if err != nil {
		return Settings{}, err
	}
	bypass, err := privexec.Output(ctx, m.Runner, "networksetup", "-getproxybypassdomains", service)
	if err != nil {
		return Settings{}, err
	}
	s.Bypass = parseBypassDomains(bypass)
	return s, nil
}

func (m *Manager) setDarwin(ctx context.Context, host string, port int, bypass []string) error {
	service, err := m.activeService(ctx)
	if err != nil {
		return err
	}
	p := strconv.Itoa(port)
	for _, args := range [][]string{
		{"-setwebproxy", service, host, p},
		{"-setsecurewebproxy", service, host, p},
		append([]string{"-setproxybypassdomains", service}, bypass...),
	} {
		if _, err := privexec.Output(ctx, m.Runner, "networksetup", args...); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) unsetDarwin(ctx context.Context) error {
	service, err := m.activeService(ctx)
	if err != nil {
		return err
	}
	for _, flag := range []string{"-setwebproxystate", "-setsecurewebproxystate"} {
		if _, err := privexec.Output(ctx, m.Runner, "networksetup", flag, service, "off"); err != nil {
			return err
		}
	}
	return nil
}
