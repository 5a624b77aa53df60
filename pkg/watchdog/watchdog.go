// Copyright 2023 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package watchdog is the hardware independent half of a watchdog: the
// policy for timeouts, who may open it, when closing it disarms it, and
// keeping hardware fed that is running while nobody has it open or that
// can't count as far as the timeout asks for.
//
// The semantics follow the Linux watchdog core, so a Device behaves like
// /dev/watchdog would: writes are keepalives and a 'V' written before
// closing disarms it.
package watchdog

import (
	"math"
	"sync"
	"time"

	"github.com/jmhodges/clock"
	"github.com/pkg/errors"
	"github.com/u-root/aspeed-wdt/pkg/logger"
)

var log = logger.LogContainer.GetSimpleLogger()

const DEFAULT_TIMEOUT = 30

var (
	ErrBusy           = errors.New("watchdog is already open")
	ErrNotActive      = errors.New("watchdog is not active")
	ErrInvalidTimeout = errors.New("invalid timeout")
	ErrUnregistered   = errors.New("watchdog is unregistered")
)

// Ops is what a driver provides. None of the operations may fail, a driver
// that can fail has to deal with it itself.
type Ops interface {
	Start()
	Stop()
	Ping()
	SetTimeout(seconds uint32)
	Restart(reason string)
}

type Options struct {
	Identity string
	// Initial timeout in seconds, replaced by DEFAULT_TIMEOUT if not
	// within [MinTimeout, MaxTimeout]
	Timeout    uint32
	MinTimeout uint32
	// 0 means no limit besides what fits in milliseconds
	MaxTimeout uint32
	// Longest interval the hardware can go between pings. Timeouts beyond
	// it are handled by pinging on behalf of the opener.
	MaxHWHeartbeat time.Duration
	// The hardware was found running before we got to it
	HWRunning bool
	// Once started, never stop
	NoWayOut bool
	Clock    clock.Clock
}

type Device struct {
	ops  Ops
	opts Options
	clk  clock.Clock
	m    *metrics

	mu            sync.Mutex
	timeout       uint32
	open          bool
	active        bool
	hwRunning     bool
	expectClose   bool
	unregistered  bool
	lastKeepalive time.Time

	kick chan struct{}
	done chan struct{}
	wg   sync.WaitGroup
}

type Status struct {
	Identity      string        `json:"identity"`
	Timeout       uint32        `json:"timeout"`
	Open          bool          `json:"open"`
	Active        bool          `json:"active"`
	HWRunning     bool          `json:"hwRunning"`
	NoWayOut      bool          `json:"noWayOut"`
	LastKeepalive time.Time     `json:"lastKeepalive"`
	TimeLeft      time.Duration `json:"timeLeft"`
}

func timeoutInvalid(o *Options, t uint32) bool {
	return t > math.MaxUint32/1000 || t < o.MinTimeout ||
		(o.MaxHWHeartbeat == 0 && o.MaxTimeout != 0 && t > o.MaxTimeout)
}

// Register puts ops under control of a new Device. If the hardware is
// already running the device starts feeding it right away.
func Register(ops Ops, opts Options) (*Device, error) {
	if ops == nil {
		return nil, errors.New("watchdog without operations")
	}
	if opts.MinTimeout == 0 {
		opts.MinTimeout = 1
	}
	if opts.Identity == "" {
		opts.Identity = "watchdog"
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	d := &Device{
		ops:       ops,
		opts:      opts,
		clk:       opts.Clock,
		m:         newMetrics(opts.Identity),
		timeout:   opts.Timeout,
		hwRunning: opts.HWRunning,
		kick:      make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
	if timeoutInvalid(&d.opts, d.timeout) {
		if d.timeout != 0 {
			log.Warnf("%s: invalid timeout %d, using %d", opts.Identity, d.timeout, DEFAULT_TIMEOUT)
		}
		d.timeout = DEFAULT_TIMEOUT
	}
	if d.hwRunning {
		log.Infof("%s: hardware is running, keeping it alive until opened", opts.Identity)
	}
	d.m.update(d)

	d.wg.Add(1)
	go d.worker()
	return d, nil
}

// Unregister stops the worker. The hardware is left as it is.
func (d *Device) Unregister() {
	d.mu.Lock()
	if d.unregistered {
		d.mu.Unlock()
		return
	}
	d.unregistered = true
	d.mu.Unlock()
	close(d.done)
	d.wg.Wait()
	d.m.unregister()
}

// Open starts the watchdog, or takes over keeping it alive if the
// hardware was already running. Only one opener at a time.
func (d *Device) Open() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.unregistered {
		return ErrUnregistered
	}
	if d.open {
		return ErrBusy
	}
	d.open = true
	d.expectClose = false
	d.start()
	return nil
}

func (d *Device) start() {
	if d.active {
		return
	}
	now := d.clk.Now()
	if d.hwRunning {
		d.ops.Ping()
	} else {
		d.ops.Start()
	}
	d.active = true
	d.lastKeepalive = now
	d.changed()
}

func (d *Device) stop() error {
	if !d.active {
		return nil
	}
	if d.opts.NoWayOut {
		return errors.Errorf("%s: nowayout is set", d.opts.Identity)
	}
	d.ops.Stop()
	d.active = false
	d.hwRunning = false
	d.changed()
	return nil
}

// Close disarms the watchdog if a magic close was written and nowayout is
// not set. Otherwise the watchdog keeps counting and will fire unless it
// is opened again in time.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.open {
		return nil
	}
	var err error
	if d.active {
		if d.expectClose {
			err = d.stop()
		} else {
			err = errors.Errorf("%s: closed without magic", d.opts.Identity)
		}
	}
	if err != nil {
		log.Errorf("%s: watchdog did not stop! (%v)", d.opts.Identity, err)
		d.keepalive()
	}
	d.expectClose = false
	d.open = false
	d.changed()
	return nil
}

func (d *Device) keepalive() {
	d.lastKeepalive = d.clk.Now()
	d.ops.Ping()
	d.m.keepalives.Inc()
	d.changed()
}

// KeepAlive pings the watchdog on behalf of the opener.
func (d *Device) KeepAlive() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.unregistered {
		return ErrUnregistered
	}
	if !d.active {
		return ErrNotActive
	}
	d.keepalive()
	return nil
}

// Write is a keepalive. A 'V' anywhere in p arms the magic close, any
// write without one disarms it again.
func (d *Device) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.unregistered {
		return 0, ErrUnregistered
	}
	d.expectClose = false
	if !d.opts.NoWayOut {
		for _, c := range p {
			if c == 'V' {
				d.expectClose = true
			}
		}
	}
	if d.active {
		d.keepalive()
	}
	return len(p), nil
}

func (d *Device) SetTimeout(t uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.unregistered {
		return ErrUnregistered
	}
	if timeoutInvalid(&d.opts, t) {
		return errors.Wrapf(ErrInvalidTimeout, "%d", t)
	}
	d.ops.SetTimeout(t)
	d.timeout = t
	if d.active {
		d.keepalive()
	}
	d.changed()
	return nil
}

func (d *Device) Timeout() uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timeout
}

// Restart asks the hardware to reset the system. If it returns, it didn't.
func (d *Device) Restart(reason string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	log.Warnf("%s: restarting system: %s", d.opts.Identity, reason)
	d.ops.Restart(reason)
	log.Errorf("%s: still alive after restart", d.opts.Identity)
}

func (d *Device) Status() Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := Status{
		Identity:      d.opts.Identity,
		Timeout:       d.timeout,
		Open:          d.open,
		Active:        d.active,
		HWRunning:     d.hwRunning,
		NoWayOut:      d.opts.NoWayOut,
		LastKeepalive: d.lastKeepalive,
	}
	if d.active {
		left := d.lastKeepalive.Add(d.timeoutDuration()).Sub(d.clk.Now())
		if left > 0 {
			s.TimeLeft = left
		}
	}
	return s
}

func (d *Device) timeoutDuration() time.Duration {
	return time.Duration(d.timeout) * time.Second
}

// changed tells the worker to look at the state again.
func (d *Device) changed() {
	d.m.update(d)
	select {
	case d.kick <- struct{}{}:
	default:
	}
}
