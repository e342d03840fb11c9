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
	"fmt"
	"strconv"
	"strings"

	"github.com/Jigsaw-Code/corectl/privexec"
)

const gnomeSchema = "org.gnome.system.proxy"

// parseGVariantString unquotes a GVariant string literal such as 'manual'.
func parseGVariantString(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && (s[0] == '\'' || s[0] == '"') && s[len(s)-1] == s[0] {
		s = s[1 : len(s)-1]
	}
	return strings.ReplaceAll(s, `\'`, `'`)
}

// parseGVariantStrings parses a GVariant string array such as
// ['localhost', '127.0.0.0/8'] or @as [].
func parseGVariantStrings(s string) []string {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "@as"))
	s = strings.TrimSuffix(strings.TrimPrefix(s, "["), "]")
	var out []string
	for _, item := range strings.Split(s, ",") {
		if v := parseGVariantString(item); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// formatGVariantStrings renders items as a GVariant string array.
func formatGVariantStrings(items []string) string {
	quoted := make([]string, len(items))
	for i, item := range items {
		quoted[i] = "'" + strings.ReplaceAll(item, "'", `\'`) + "'"
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

func (m *Manager) gsettingsGet(ctx context.Context, schema, key string) (string, error) {
	return privexec.Output(ctx, m.Runner, "gsettings", "get", schema, key)
}

func (m *Manager) gsettingsSet(ctx context.Context, schema, key, value string) error {
	_, err := privexec.Output(ctx, m.Runner, "gsettings", "set", schema, key, value)
	return err
}

func (m *Manager) getGnome(ctx context.Context) (Settings, error) {
	mode, err := m.gsettingsGet(ctx, gnomeSchema, "mode")
	if err != nil {
		return Settings{}, err
	}
	host, err := m.gsettingsGet(ctx, gnomeSchema+".http", "host")
	if err != nil {
		return Settings{}, err
	}
	portStr, err := m.gsettingsGet(ctx, gnomeSchema+".http", "port")
	if err != nil {
		return Settings{}, err
	}
	port, err := strconv.Atoi(strings.TrimSpace(portStr))
	if err != nil {
		return Settings{}, fmt.Errorf("invalid proxy port %q: %w", portStr, err)
	}
	ignore, err := m.gsettingsGet(ctx, gnomeSchema, "ignore-hosts")
	if err != nil {
		return Settings{}, err
	}
	return Settings{
		Enable: parseGVariantString(mode) == "manual",
		Host:   parseGVariantString(host),
		Port:   port,
		Bypass: strings.Join(parseGVariantStrings(ignore), ","),
	}, nil
}

// setGnome writes the proxy addresses first and switches the mode last, so a
// failure leaves the previous mode in effect.
func (m *Manager) setGnome(ctx context.Context, host string, port int, bypass []string) error {
	for _, kind := range []string{"http", "https", "socks"} {
		schema := gnomeSchema + "." + kind
		if err := m.gsettingsSet(ctx, schema, "host", host); err != nil {
			return err
		}
		if err := m.gsettingsSet(ctx, schema, "port", strconv.Itoa(port)); err != nil {
			return err
		}
	}
	if err := m.gsettingsSet(ctx, gnomeSchema, "ignore-hosts", formatGVariantStrings(bypass)); err != nil {
		return err
	}
	return m.gsettingsSet(ctx, gnomeSchema, "mode", "manual")
}

func (m *Manager) unsetGnome(ctx context.Context) error {
	return m.gsettingsSet(ctx, gnomeSchema, "mode", "none")
}
