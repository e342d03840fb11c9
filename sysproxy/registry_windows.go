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

//go:build windows

package sysproxy

import (
	"errors"
	"fmt"

	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/registry"
)

const internetSettingsKey = `Software\Microsoft\Windows\CurrentVersion\Internet Settings`

var (
	modwininet            = windows.NewLazySystemDLL("wininet.dll")
	procInternetSetOption = modwininet.NewProc("InternetSetOptionW")
)

// https://learn.microsoft.com/en-us/windows/win32/wininet/option-flags
const (
	internetOptionSettingsChanged = 39
	internetOptionRefresh         = 37
)

func getRegistry() (Settings, error) {
	key, err := registry.OpenKey(registry.CURRENT_USER, internetSettingsKey, registry.QUERY_VALUE)
	if err != nil {
		return Settings{}, err
	}
	defer key.Close()

	enable, _, err := key.GetIntegerValue("ProxyEnable")
	if err != nil && !errors.Is(err, registry.ErrNotExist) {
		return Settings{}, err
	}
	server, _, err := key.GetStringValue("ProxyServer")
	if err != nil && !errors.Is(err, registry.ErrNotExist) {
		return Settings{}, err
	}
	bypass, _, err := key.GetStringValue("ProxyOverride")
	if err != nil && !errors.Is(err, registry.ErrNotExist) {
		return Settings{}, err
	}
	host, port, err := parseWindowsServer(server)
	if err != nil {
		return Settings{}, err
	}
	return Settings{Enable: enable == 1, Host: host, Port: port, Bypass: bypass}, nil
}

func setRegistry(server, bypass string) error {
	key, err := registry.OpenKey(registry.CURRENT_USER, internetSettingsKey, registry.SET_VALUE)
	if err != nil {
		return err
	}
	defer key.Close()

	if err = key.SetStringValue("ProxyServer", server); err != nil {
		return err
	}
	if err = key.SetStringValue("ProxyOverride", bypass); err != nil {
		return err
	}
	if err = key.SetDWordValue("ProxyEnable", 1); err != nil {
		return err
	}
	return notifySettingsChanged()
}

func unsetRegistry() error {
	key, err := registry.OpenKey(registry.CURRENT_USER, internetSettingsKey, registry.SET_VALUE)
	if err != nil {
		return err
	}
	defer key.Close()

	if err = key.SetDWordValue("ProxyEnable", 0); err != nil {
		return err
	}
	return notifySettingsChanged()
}

func internetSetOption(option uintptr) error {
	// InternetSetOptionW returns TRUE on success.
	ret, _, lastErr := procInternetSetOption.Call(0, option, 0, 0)
	if ret == 0 {
		return lastErr
	}
	return nil
}

func notifySettingsChanged() error {
	if err := internetSetOption(internetOptionSettingsChanged); err != nil {
		return fmt.Errorf("failed to notify the system that the registry settings have been changed: %w", err)
	}
	if err := internetSetOption(internetOptionRefresh); err != nil {
		return fmt.Errorf("failed to refresh the proxy data from the registry: %w", err)
	}
	return nil
}
