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

// Package config loads the corectl configuration file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/Jigsaw-Code/corectl/appdirs"
	"github.com/Jigsaw-Code/corectl/clashapi"
	"github.com/Jigsaw-Code/corectl/core"
	"github.com/Jigsaw-Code/corectl/corelog"
)

// FileName is the name of the configuration file in the application home.
const FileName = "corectl.yaml"

// Controller locates the core's RESTful controller.
type Controller struct {
	Address string `yaml:"address"`
	Secret  string `yaml:"secret"`
}

// Delay configures proxy delay tests.
type Delay struct {
	URL       string `yaml:"url"`
	TimeoutMS int    `yaml:"timeout_ms"`
}

// Timeout returns the delay test timeout.
func (d Delay) Timeout() time.Duration {
	return time.Duration(d.TimeoutMS) * time.Millisecond
}

// Log configures logging.
type Log struct {
	Level string `yaml:"level"`
	// Capacity is the number of core log lines kept in memory.
	Capacity int `yaml:"capacity"`
}

// Config is the corectl configuration.
type Config struct {
	AppID        string   `yaml:"app_id"`
	Core         string   `yaml:"core"`
	AllowedCores []string `yaml:"allowed_cores"`
	// CoreConfig is the runtime configuration passed to the core, relative to
	// the application home unless absolute.
	CoreConfig string     `yaml:"core_config"`
	Controller Controller `yaml:"controller"`
	Delay      Delay      `yaml:"delay"`
	Log        Log        `yaml:"log"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		AppID:        appdirs.DefaultID,
		Core:         core.DefaultCores[0],
		AllowedCores: slices.Clone(core.DefaultCores),
		CoreConfig:   "clash-verge.yaml",
		Controller:   Controller{Address: "127.0.0.1:9097"},
		Delay: Delay{
			URL:       clashapi.DefaultTestURL,
			TimeoutMS: int(clashapi.DefaultDelayTimeout / time.Millisecond),
		},
		Log: Log{Level: "info", Capacity: corelog.DefaultCapacity},
	}
}

// Load reads the file at path over the defaults. A missing file yields the
// defaults. Unknown fields are an error.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, err
	}
	if err := Parse(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML data into cfg and validates the result.
func Parse(data []byte, cfg *Config) error {
	if err := yaml.UnmarshalWithOptions(data, cfg, yaml.Strict()); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return cfg.Validate()
}

// Validate checks the configuration for consistency.
func (c Config) Validate() error {
	if c.AppID == "" {
		return errors.New("app_id must not be empty")
	}
	if len(c.AllowedCores) == 0 {
		return errors.New("allowed_cores must not be empty")
	}
	if !slices.Contains(c.AllowedCores, c.Core) {
		return fmt.Errorf("core %q is not in allowed_cores", c.Core)
	}
	if c.Log.Capacity < 0 {
		return errors.New("log.capacity must not be negative")
	}
	if c.Delay.TimeoutMS < 0 {
		return errors.New("delay.timeout_ms must not be negative")
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	return nil
}

// LogLevel parses Log.Level.
func (c Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, fmt.Errorf("invalid log.level: %w", err)
	}
	return level, nil
}

// CoreConfigPath resolves CoreConfig against home.
func (c Config) CoreConfigPath(home string) string {
	if filepath.IsAbs(c.CoreConfig) {
		return c.CoreConfig
	}
	return filepath.Join(home, c.CoreConfig)
}

// Marshal renders cfg as YAML.
func Marshal(cfg Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}
