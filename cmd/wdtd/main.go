// Copyright 2023 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// wdtd owns one ASPEED watchdog: it arms it, keeps it fed while the BMC is
// healthy, and serves its state and metrics over HTTP.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmhodges/clock"
	"github.com/spf13/afero"
	"github.com/u-root/aspeed-wdt/config"
	"github.com/u-root/aspeed-wdt/pkg/hardware/aspeed"
	"github.com/u-root/aspeed-wdt/pkg/hardware/aspeed/wdt"
	"github.com/u-root/aspeed-wdt/pkg/logger"
	"github.com/u-root/aspeed-wdt/pkg/network/web"
	"github.com/u-root/aspeed-wdt/pkg/watchdog"
	"golang.org/x/sync/errgroup"
)

var (
	configPath = flag.String("config", config.DEFAULT_CONFIG_PATH, "YAML configuration file, defaults are used if it does not exist")

	log = logger.LogContainer.GetSimpleLogger()
)

func main() {
	flag.Parse()

	fs := afero.NewOsFs()
	c, err := config.Load(fs, *configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := logger.LogContainer.SetLevel(c.Log.Level); err != nil {
		log.Fatalf("log level %q: %v", c.Log.Level, err)
	}
	if c.Log.File != "" {
		if err := logger.LogContainer.SetLogFile(c.Log.File); err != nil {
			log.Warnf("unable to open logfile %s: %v", c.Log.File, err)
		}
	}
	log.Infof("wdtd %s (%s)", c.Version.Version, c.Version.GitHash)

	a, err := aspeed.Open(c.SoC)
	if err != nil {
		log.Fatalf("aspeed: %v", err)
	}
	if n := a.WatchdogResetCause(); n != 0 {
		log.Warnf("last reset was caused by WDT%d", n)
	}

	ctrl, err := wdt.Probe(a, fs, wdt.ProbeOptions{
		Instance: c.Watchdog.Instance,
		Base:     c.Watchdog.Base,
		FDTPath:  c.Watchdog.FDTPath,
		Fallback: c.Watchdog.Description,
	})
	if err != nil {
		log.Fatalf("probe: %v", err)
	}
	log.Infof("%s: %v", ctrl.Variant(), ctrl.State())

	dev, err := watchdog.Register(ctrl, watchdog.Options{
		Identity:       fmt.Sprintf("wdt%d", c.Watchdog.Instance),
		Timeout:        ctrl.Timeout(),
		MaxHWHeartbeat: ctrl.MaxHWHeartbeat(),
		HWRunning:      ctrl.HWRunning(),
		NoWayOut:       c.Watchdog.NoWayOut,
	})
	if err != nil {
		log.Fatalf("register: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, c, dev, clock.New())
	stop()
	dev.Unregister()
	a.Close()
	if err != nil {
		log.Fatalf("wdtd: %v", err)
	}
}

// run holds the watchdog open until ctx is done, then closes it with the
// magic character.
func run(ctx context.Context, c *config.Config, dev *watchdog.Device, clk clock.Clock) error {
	ws := web.NewWebserver()
	if err := ws.SetServer(ctx, c.Metrics.Address); err != nil {
		return err
	}

	if err := dev.Open(); err != nil {
		ws.Listener.Close()
		return err
	}
	defer func() {
		if _, err := dev.Write([]byte("V")); err != nil {
			log.Errorf("magic close: %v", err)
		}
		dev.Close()
	}()
	if c.Watchdog.Timeout != 0 {
		if err := dev.SetTimeout(c.Watchdog.Timeout); err != nil {
			ws.Listener.Close()
			return err
		}
	}

	interval := keepaliveInterval(c, dev.Timeout())
	ws.HandleWatchdog(dev, interval)

	g, ctx := errgroup.WithContext(ctx)
	if interval == 0 {
		log.Infof("keepalives are expected on the API, timeout %ds", dev.Timeout())
	} else {
		g.Go(func() error {
			return pingLoop(ctx, dev, clk, interval)
		})
	}
	g.Go(func() error {
		return ws.Serve(ctx)
	})
	return g.Wait()
}

// keepaliveInterval is the ping period for a watchdog that expires after
// timeout seconds, or 0 if the API owns keepalives. A configured interval that
// would let the watchdog expire is halved down to fit.
func keepaliveInterval(c *config.Config, timeout uint32) time.Duration {
	if c.Watchdog.ExternalKeepalive {
		return 0
	}
	interval := c.Watchdog.PingInterval.Duration
	if t := time.Duration(timeout) * time.Second; t != 0 && interval >= t {
		log.Warnf("ping interval %v is not shorter than the %ds timeout, pinging every %v", interval, timeout, t/2)
		interval = t / 2
	}
	return interval
}

func pingLoop(ctx context.Context, dev *watchdog.Device, clk clock.Clock, interval time.Duration) error {
	log.Infof("pinging every %v, timeout %ds", interval, dev.Timeout())
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-clk.After(interval):
			if err := dev.KeepAlive(); err != nil {
				return err
			}
		}
	}
}
