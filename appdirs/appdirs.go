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

// Package appdirs resolves the per-user directories of the application.
package appdirs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// DefaultID is the application identifier used for directory names.
const DefaultID = "io.github.clash-verge-rev.clash-verge-rev"

// Dirs are the application directories.
type Dirs struct {
	// Home holds the configuration, profiles and runtime files.
	Home string
	// Logs holds log files.
	Logs string
	// Profiles holds downloaded profile files.
	Profiles string
}

// Env is the part of the environment used to resolve the directories.
type Env struct {
	GOOS      string
	HomeDir   func() (string, error)
	ConfigDir func() (string, error)
}

// SystemEnv returns the Env of the running process.
func SystemEnv() Env {
	return Env{GOOS: runtime.GOOS, HomeDir: os.UserHomeDir, ConfigDir: os.UserConfigDir}
}

// Resolve returns the directories for the application id.
func Resolve(env Env, id string) (Dirs, error) {
	if id == "" {
		return Dirs{}, errors.New("empty application id")
	}
	var d Dirs
	switch env.GOOS {
	case "darwin":
		home, err := env.HomeDir()
		if err != nil {
			return Dirs{}, fmt.Errorf("failed to get home dir: %w", err)
		}
		d.Home = filepath.Join(home, "Library", "Application Support", id)
		d.Logs = filepath.Join(home, "Library", "Logs", id)
	default:
		// Windows %AppData%, XDG_CONFIG_HOME or ~/.config elsewhere.
		config, err := env.ConfigDir()
		if err != nil {
			return Dirs{}, fmt.Errorf("failed to get config dir: %w", err)
		}
		d.Home = filepath.Join(config, id)
		d.Logs = filepath.Join(d.Home, "logs")
	}
	d.Profiles = filepath.Join(d.Home, "profiles")
	return d, nil
}

// Ensure creates the directories.
func (d Dirs) Ensure() error {
	for _, dir := range []string{d.Home, d.Logs, d.Profiles} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}
