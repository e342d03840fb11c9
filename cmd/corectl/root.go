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

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Jigsaw-Code/corectl/appbundle"
	"github.com/Jigsaw-Code/corectl/appdirs"
	"github.com/Jigsaw-Code/corectl/clashapi"
	"github.com/Jigsaw-Code/corectl/commands"
	"github.com/Jigsaw-Code/corectl/config"
	"github.com/Jigsaw-Code/corectl/core"
	"github.com/Jigsaw-Code/corectl/corelog"
	"github.com/Jigsaw-Code/corectl/grant"
	"github.com/Jigsaw-Code/corectl/opener"
	"github.com/Jigsaw-Code/corectl/privexec"
	"github.com/Jigsaw-Code/corectl/sysproxy"
)

// readyTimeout bounds how long a started core may take to serve its
// controller.
const readyTimeout = 15 * time.Second

// cli holds the flags and the services built from them.
type cli struct {
	configPath string
	logLevel   string
	controller string
	secret     string

	env        appdirs.Env
	executable func() (string, error)

	levelVar slog.LevelVar
	cfg      config.Config
	core     *core.Manager
	// coreOut is the core log file, written while a core runs.
	coreOut *corelog.File
	app     *commands.App
}

func newCLI() *cli {
	return &cli{env: appdirs.SystemEnv(), executable: os.Executable}
}

func newRootCmd() *cobra.Command {
	return newCLI().rootCmd()
}

func (c *cli) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "corectl",
		Short:         "Manage a Clash-compatible proxy core",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup(cmd.ErrOrStderr())
		},
	}
	flags := root.PersistentFlags()
	flags.StringVar(&c.configPath, "config", "", "Configuration file (default <app home>/"+config.FileName+")")
	flags.StringVar(&c.logLevel, "log-level", "", "Log level: debug, info, warn or error (overrides log.level)")
	flags.StringVar(&c.controller, "controller", "", "Controller address (overrides controller.address)")
	flags.StringVar(&c.secret, "secret", "", "Controller secret (overrides controller.secret)")

	root.AddCommand(
		c.grantCmd(),
		c.coreCmd(),
		c.sysproxyCmd(),
		c.logsCmd(),
		c.openCmd(),
		c.bundleCmd(),
		c.delayCmd(),
		c.serviceCmd(),
		c.configCmd(),
	)
	return root
}

// setup builds the services: config, logger, directories, core log buffer and
// file, runner, the platform services, then the core manager. A core started
// by this process writes its output to the log file, which later runs read.
func (c *cli) setup(stderr io.Writer) error {
	if c.configPath == "" {
		dirs, err := appdirs.Resolve(c.env, appdirs.DefaultID)
		if err != nil {
			return err
		}
		c.configPath = filepath.Join(dirs.Home, config.FileName)
	}
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	if c.logLevel != "" {
		cfg.Log.Level = c.logLevel
	}
	if c.controller != "" {
		cfg.Controller.Address = c.controller
	}
	if c.secret != "" {
		cfg.Controller.Secret = c.secret
	}
	level, err := cfg.LogLevel()
	if err != nil {
		return err
	}
	c.cfg = cfg

	c.levelVar.Set(level)
	noColor := true
	if f, ok := stderr.(*os.File); ok {
		noColor = !term.IsTerminal(int(f.Fd()))
	}
	logger := slog.New(tint.NewHandler(stderr, &tint.Options{NoColor: noColor, Level: &c.levelVar}))
	slog.SetDefault(logger)

	dirs, err := appdirs.Resolve(c.env, cfg.AppID)
	if err != nil {
		return err
	}
	if err := dirs.Ensure(); err != nil {
		return fmt.Errorf("failed to create app dirs: %w", err)
	}
	logger.Debug("loaded config", "file", c.configPath, "home", dirs.Home)

	coreLog := corelog.New(cfg.Log.Capacity)
	c.coreOut = corelog.NewFile(filepath.Join(dirs.Logs, corelog.FileName), 0)
	runner := &privexec.ExecRunner{Logger: logger}

	clash, err := clashapi.New(cfg.Controller.Address, cfg.Controller.Secret, nil)
	if err != nil {
		return err
	}
	exe, err := c.executable()
	if err != nil {
		return fmt.Errorf("failed to locate executable: %w", err)
	}
	coreDir := filepath.Dir(exe)

	c.core = core.NewManager(core.Options{
		Dir:          coreDir,
		Home:         dirs.Home,
		ConfigFile:   cfg.CoreConfigPath(dirs.Home),
		Core:         cfg.Core,
		AllowedCores: cfg.AllowedCores,
		Log:          coreLog,
		Output:       c.coreOut,
		Logger:       logger,
		Ready: func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, readyTimeout)
			defer cancel()
			v, err := clash.WaitReady(ctx, 200*time.Millisecond)
			if err == nil {
				logger.Info("core ready", "version", v.Version)
			}
			return err
		},
	})
	c.app = commands.New(commands.Services{
		Granter:      grant.New(grant.WithExecutable(c.executable), grant.WithRunner(runner), grant.WithLogger(logger)),
		Core:         c.core,
		SysProxy:     sysproxy.New(runner),
		Opener:       opener.New(runner),
		Bundle:       appbundle.NewMover(runner, logger),
		Clash:        clash,
		Log:          corelog.Tail{Path: c.coreOut.Path(), Lines: cfg.Log.Capacity},
		Dirs:         dirs,
		CoreDir:      coreDir,
		DelayURL:     cfg.Delay.URL,
		DelayTimeout: cfg.Delay.Timeout(),
		Logger:       logger,
	})
	return nil
}
