// Copyright 2023 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"io"

	"github.com/jmhodges/clock"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/u-root/aspeed-wdt/pkg/hardware/aspeed"
	"github.com/u-root/aspeed-wdt/pkg/hardware/aspeed/wdt"
	"github.com/u-root/aspeed-wdt/pkg/logger"
)

const (
	InstanceOptionName       = "instance"
	ResetTypeOptionName      = "reset-type"
	ExternalSignalOptionName = "external-signal"
	FDTOptionName            = "fdt"
	LogLevelOptionName       = "log-level"
	LpcCacheOptionName       = "lpc-cache"
	LpcStatsOptionName       = "lpc-stats"
)

var log = logger.LogContainer.GetSimpleLogger()

// env is what the subcommands share: how to reach the SoC and which
// watchdog to work on.
type env struct {
	open func(aspeed.Options) (*aspeed.Ast, error)
	fs   afero.Fs
	clk  clock.Clock
	soc  aspeed.Options

	instance       int
	resetType      string
	externalSignal bool
	fdtPath        string
	logLevel       string
}

func (e *env) probe(cmd *cobra.Command, fn func(*wdt.Controller) error) error {
	a, err := e.open(e.soc)
	if err != nil {
		return err
	}
	defer a.Close()

	d := &wdt.Description{ExternalSignal: e.externalSignal}
	if cmd.Flags().Changed(ResetTypeOptionName) {
		d.ResetType = &e.resetType
	}
	c, err := wdt.Probe(a, e.fs, wdt.ProbeOptions{
		Instance: e.instance,
		FDTPath:  e.fdtPath,
		Fallback: d,
		Options:  []wdt.Option{wdt.WithClock(e.clk)},
	})
	if err != nil {
		return err
	}
	return fn(c)
}

func NewRootCommand(out io.Writer, e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "wdtctl",
		Short:         "Inspect and drive the ASPEED watchdog timers",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return logger.LogContainer.SetLevel(e.logLevel)
		},
	}
	cmd.SetOut(out)
	cmd.AddCommand(NewStatusCommand(e))
	cmd.AddCommand(NewStartCommand(e))
	cmd.AddCommand(NewStopCommand(e))
	cmd.AddCommand(NewPingCommand(e))
	cmd.AddCommand(NewTimeoutCommand(e))
	cmd.AddCommand(NewRestartCommand(e))

	f := cmd.PersistentFlags()
	f.IntVar(&e.instance, InstanceOptionName, 1, "Watchdog instance, counting from 1")
	f.StringVar(&e.resetType, ResetTypeOptionName, "system", "What expiry resets when the device tree does not say: cpu, soc or system")
	f.BoolVar(&e.externalSignal, ExternalSignalOptionName, false, "Drive the external reset signal on expiry when the device tree does not say")
	f.StringVar(&e.fdtPath, FDTOptionName, wdt.FDT_PATH, "Flattened device tree describing the watchdogs")
	f.StringVar(&e.logLevel, LogLevelOptionName, "warn", "Log level: debug, info, warn or error")
	f.BoolVar(&e.soc.Lpc.Cache, LpcCacheOptionName, false, "Skip LPC2AHB register writes that match the cached value (host only)")
	f.BoolVar(&e.soc.Lpc.Stats, LpcStatsOptionName, false, "Log LPC bus statistics on exit (host only)")
	return cmd
}
