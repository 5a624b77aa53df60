// Copyright 2023 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package wdt drives the watchdog timers of the AST2400/AST2500.
//
// The counter always runs off the 1MHz reference. The AST2400 can also run
// it at PCLK, the AST2500 only at 1MHz, and there is no good reason to have
// a faster watchdog counter.
//
// A Controller is not safe for concurrent use. It is meant to be driven by
// pkg/watchdog, which serializes calls.
package wdt

import (
	"time"

	"github.com/jmhodges/clock"
	"github.com/pkg/errors"
	"github.com/u-root/aspeed-wdt/pkg/logger"
)

var log = logger.LogContainer.GetSimpleLogger()

// Registers is a watchdog register block, addressed by offset from its base.
type Registers interface {
	MustRead32(off uintptr) uint32
	MustWrite32(off uintptr, v uint32)
}

type Controller struct {
	regs    Registers
	variant Variant
	clk     clock.Clock

	// What we want WDT_CTRL to be, written back on every change
	ctrl      Control
	timeout   uint32
	hwRunning bool
}

type Option func(*Controller)

// WithClock replaces the clock used for the restart delay.
func WithClock(clk clock.Clock) Option {
	return func(c *Controller) {
		c.clk = clk
	}
}

// New takes ownership of a watchdog block. A watchdog that is already
// running is adopted, never stopped: whoever armed it expects to be
// supervised.
func New(regs Registers, v Variant, d *Description, opts ...Option) (*Controller, error) {
	if regs == nil {
		return nil, errors.New("no watchdog registers")
	}
	if d == nil {
		d = &Description{}
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}

	c := &Controller{
		regs:    regs,
		variant: v,
		clk:     clock.New(),
		ctrl:    d.control(),
		timeout: d.initialTimeout(),
	}
	for _, o := range opts {
		o(c)
	}

	if ParseControl(c.regs.MustRead32(WDT_CTRL)).Enable {
		// Re-latch our configuration, primarily the 1MHz clock source,
		// without a window where nothing is armed.
		log.Infof("%s watchdog is already running, adopting it", v)
		c.Start()
		c.hwRunning = true
	}

	if v.hasResetWidth() {
		c.configureResetWidth(d)
	} else if d.ExtPulseDuration != nil {
		log.Warnf("%s has no reset width register, ignoring pulse duration %d", v, *d.ExtPulseDuration)
	}

	return c, nil
}

func (c *Controller) configureResetWidth(d *Description) {
	reg := c.regs.MustRead32(WDT_RESET_WIDTH)

	reg &= resetWidthDuration
	if d.ExtPushPull {
		reg |= resetWidthPushPullMagic
	} else {
		reg |= resetWidthOpenDrainMagic
	}
	c.regs.MustWrite32(WDT_RESET_WIDTH, reg)

	reg &= resetWidthDuration
	if d.ExtActiveHigh {
		reg |= resetWidthActiveHighMagic
	} else {
		reg |= resetWidthActiveLowMagic
	}
	c.regs.MustWrite32(WDT_RESET_WIDTH, reg)

	if d.ExtPulseDuration != nil {
		// Always 1MHz, so the microseconds go in unscaled
		c.regs.MustWrite32(WDT_RESET_WIDTH, *d.ExtPulseDuration)
	}
}

func (c *Controller) enable(count uint32) {
	c.ctrl.Enable = true

	// Disarm first so the old count can't run out while we reload
	c.regs.MustWrite32(WDT_CTRL, 0)
	c.regs.MustWrite32(WDT_RELOAD_VALUE, count)
	c.regs.MustWrite32(WDT_RESTART, WDT_RESTART_MAGIC)
	c.regs.MustWrite32(WDT_CTRL, c.ctrl.Value())
}

func (c *Controller) Start() {
	c.enable(count(c.timeout))
}

func (c *Controller) Stop() {
	c.ctrl.Enable = false
	c.regs.MustWrite32(WDT_CTRL, c.ctrl.Value())
}

// Ping reloads the counter. The hardware ignores it while disarmed.
func (c *Controller) Ping() {
	c.regs.MustWrite32(WDT_RESTART, WDT_RESTART_MAGIC)
}

// SetTimeout changes the reload value of the running counter. It neither
// arms nor disarms.
func (c *Controller) SetTimeout(seconds uint32) {
	c.timeout = seconds

	c.regs.MustWrite32(WDT_RELOAD_VALUE, count(seconds))
	c.regs.MustWrite32(WDT_RESTART, WDT_RESTART_MAGIC)
}

// Restart arms the watchdog with a 128ms count and waits a second for it to
// take the system down. The wait can't be cancelled. If we are still here
// afterwards the reset did not happen and there is nothing left to try.
func (c *Controller) Restart(reason string) {
	c.enable(restartCount)

	c.clk.Sleep(time.Second)
}

func (c *Controller) Timeout() uint32 {
	return c.timeout
}

// HWRunning reports whether the watchdog was found armed by New.
func (c *Controller) HWRunning() bool {
	return c.hwRunning
}

func (c *Controller) Control() Control {
	return c.ctrl
}

func (c *Controller) Variant() Variant {
	return c.variant
}

func (c *Controller) MaxHWHeartbeat() time.Duration {
	return WDT_MAX_TIMEOUT_MS * time.Millisecond
}

func (c *Controller) State() State {
	return ReadState(c.regs, c.variant)
}
