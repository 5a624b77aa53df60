// Copyright 2023 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"strconv"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/u-root/aspeed-wdt/pkg/hardware/aspeed"
	"github.com/u-root/aspeed-wdt/pkg/hardware/aspeed/wdt"
)

// NewStatusCommand only reads registers, unlike the others it does not take
// ownership of the watchdog.
func NewStatusCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the watchdog registers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := e.open(e.soc)
			if err != nil {
				return err
			}
			defer a.Close()

			model, err := a.ModelName()
			if err != nil {
				return err
			}
			gen, err := a.Generation()
			if err != nil {
				return err
			}
			v := wdt.AST2400
			if gen == aspeed.GEN_AST2500 {
				v = wdt.AST2500
			}
			w, err := a.Watchdog(e.instance)
			if err != nil {
				return err
			}
			s := wdt.ReadState(w, v)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "SoC: %s\n", model)
			fmt.Fprintf(out, "WDT%d at %08x: %v\n", e.instance, w.Base(), s)
			fmt.Fprintf(out, "WDT_CTRL: %08x\n", s.RawControl)
			if s.HasResetWidth {
				fmt.Fprintf(out, "Reset pulse: %dus\n", s.PulseDuration)
			}
			if s.BootSecondary {
				fmt.Fprintln(out, "Boot code source: secondary flash")
			}
			if n := a.WatchdogResetCause(); n != 0 {
				fmt.Fprintf(out, "Last reset caused by WDT%d\n", n)
			}
			return nil
		},
	}
}

func NewStartCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Arm the watchdog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.probe(cmd, func(c *wdt.Controller) error {
				c.Start()
				fmt.Fprintln(cmd.OutOrStdout(), c.State())
				return nil
			})
		},
	}
}

func NewStopCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Disarm the watchdog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.probe(cmd, func(c *wdt.Controller) error {
				c.Stop()
				fmt.Fprintln(cmd.OutOrStdout(), c.State())
				return nil
			})
		},
	}
}

func NewPingCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Reload the watchdog counter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.probe(cmd, func(c *wdt.Controller) error {
				c.Ping()
				return nil
			})
		},
	}
}

func NewTimeoutCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "timeout SECONDS",
		Short: "Change the reload value, without arming or disarming",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := strconv.ParseUint(args[0], 10, 32)
			if err != nil {
				return errors.Wrapf(err, "timeout %q", args[0])
			}
			if s == 0 {
				return errors.New("timeout must be at least 1s")
			}
			return e.probe(cmd, func(c *wdt.Controller) error {
				c.SetTimeout(uint32(s))
				fmt.Fprintln(cmd.OutOrStdout(), c.State())
				return nil
			})
		},
	}
}

func NewRestartCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "restart",
		Short: "Reset the system through the watchdog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.probe(cmd, func(c *wdt.Controller) error {
				log.Warnf("restarting through WDT%d", e.instance)
				c.Restart("wdtctl")
				return errors.New("still alive after restart")
			})
		},
	}
}
