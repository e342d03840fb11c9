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
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Jigsaw-Code/corectl/config"
)

func printYAML(w io.Writer, v any) error {
	out, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}

func (c *cli) grantCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "grant <core>",
		Short: "Allow a core to create TUN devices and bind privileged ports",
		Long: `Grants the core binary next to corectl the network privileges TUN mode
needs. On macOS the binary is made setuid root, on Linux it is given the
cap_net_bind_service and cap_net_admin file capabilities. The system asks
for administrator credentials.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.app.GrantPermission(cmd.Context(), args[0])
		},
	}
}

func (c *cli) coreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "core",
		Short: "Run the proxy core",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:     "run",
			Aliases: []string{"restart"},
			Short:   "Run the configured core until interrupted",
			Long: `Starts the core and keeps it running until interrupted. The core is
restarted when its configuration file changes or corectl receives SIGHUP.`,
			Args: cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.supervise(cmd.Context(), c.app.RestartSidecar)
			},
		},
		&cobra.Command{
			Use:   "change <name>",
			Short: "Run another allowed core until interrupted",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.supervise(cmd.Context(), func(ctx context.Context) error {
					return c.app.ChangeClashCore(ctx, args[0])
				})
			},
		},
	)
	return cmd
}

// supervise starts the core with start and keeps it running until ctx is
// done or the process is interrupted.
func (c *cli) supervise(ctx context.Context, start func(context.Context) error) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer c.coreOut.Close()
	defer c.core.Stop()

	if err := start(ctx); err != nil {
		return err
	}
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.core.WatchConfig(ctx) })
	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-hup:
				if err := c.app.RestartSidecar(ctx); err != nil {
					slog.Error("Failed to restart core", "error", err)
				}
			}
		}
	})
	return g.Wait()
}

func (c *cli) sysproxyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sysproxy",
		Short: "Inspect or change the system proxy",
	}
	var bypass []string
	set := &cobra.Command{
		Use:   "set <host:port>",
		Short: "Point the system proxy at host:port",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			host, portStr, err := net.SplitHostPort(args[0])
			if err != nil {
				return err
			}
			port, err := strconv.Atoi(portStr)
			if err != nil || port <= 0 || port > 65535 {
				return fmt.Errorf("invalid port %q", portStr)
			}
			return c.app.SetSysProxy(cmd.Context(), host, port, bypass)
		},
	}
	set.Flags().StringSliceVar(&bypass, "bypass", nil, "Hosts that skip the proxy (default localhost, loopback and *.local)")
	cmd.AddCommand(
		&cobra.Command{
			Use:   "get",
			Short: "Print the system proxy",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				p, err := c.app.GetSysProxy(cmd.Context())
				if err != nil {
					return err
				}
				return printYAML(cmd.OutOrStdout(), p)
			},
		},
		set,
		&cobra.Command{
			Use:   "unset",
			Short: "Disable the system proxy",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.app.UnsetSysProxy(cmd.Context())
			},
		},
	)
	return cmd
}

func (c *cli) logsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logs",
		Short: "Print the latest output of the core",
		Long: `Prints the last log.capacity lines that cores run by "corectl core" wrote
to core.log in the log directory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			lines, err := c.app.GetClashLogs()
			if err != nil {
				return err
			}
			for _, line := range lines {
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), line); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func (c *cli) openCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "open",
		Short: "Open an application directory or a web page",
	}
	dir := func(use, short string, open func(context.Context) error) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return open(cmd.Context())
			},
		}
	}
	cmd.AddCommand(
		dir("app", "Open the application home", func(ctx context.Context) error { return c.app.OpenAppDir(ctx) }),
		dir("core", "Open the directory holding the cores", func(ctx context.Context) error { return c.app.OpenCoreDir(ctx) }),
		dir("logs", "Open the log directory", func(ctx context.Context) error { return c.app.OpenLogsDir(ctx) }),
		&cobra.Command{
			Use:   "url <url>",
			Short: "Open an http or https URL in the browser",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.app.OpenWebURL(cmd.Context(), args[0])
			},
		},
	)
	return cmd
}

func (c *cli) bundleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bundle",
		Short: "Manage the macOS application bundle",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "check",
			Short: "Report whether the bundle is installed in /Applications",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				ok, err := c.app.CheckIfInstalledInApplications()
				if err != nil {
					return err
				}
				return printYAML(cmd.OutOrStdout(), map[string]bool{"installed": ok})
			},
		},
		&cobra.Command{
			Use:   "install",
			Short: "Move the running bundle into /Applications",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.app.MoveToApplications(cmd.Context())
			},
		},
	)
	return cmd
}

func (c *cli) delayCmd() *cobra.Command {
	var testURL string
	cmd := &cobra.Command{
		Use:   "delay <proxy>",
		Short: "Measure the delay of a proxy through the core's controller",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := c.app.ClashAPIGetProxyDelay(cmd.Context(), args[0], testURL)
			if err != nil {
				return err
			}
			return printYAML(cmd.OutOrStdout(), d)
		},
	}
	cmd.Flags().StringVar(&testURL, "url", "", "URL to fetch through the proxy (overrides delay.url)")
	return cmd
}

func (c *cli) serviceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service",
		Short: "Manage the privileged helper service (Windows)",
	}
	op := func(use, short string, run func(context.Context) error) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return run(cmd.Context())
			},
		}
	}
	cmd.AddCommand(
		op("check", "Check the helper service", func(ctx context.Context) error { return c.app.CheckService(ctx) }),
		op("install", "Install the helper service", func(ctx context.Context) error { return c.app.InstallService(ctx) }),
		op("uninstall", "Remove the helper service", func(ctx context.Context) error { return c.app.UninstallService(ctx) }),
	)
	return cmd
}

func (c *cli) configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := config.Marshal(c.cfg)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}
