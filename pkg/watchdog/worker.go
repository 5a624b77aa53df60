// Copyright 2023 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package watchdog

import (
	"time"
)

// needWorker is true when the hardware has to be pinged by us: either it is
// running and nobody has started it, or the opener asked for a timeout the
// hardware can't count to.
func (d *Device) needWorker() bool {
	if d.unregistered {
		return false
	}
	hw := d.opts.MaxHWHeartbeat
	t := d.timeoutDuration()
	return (hw != 0 && d.active && t > hw) ||
		(t != 0 && !d.active && d.hwRunning)
}

// nextKeepalive is how long until the worker has to ping. When active the
// last worker ping lands one hardware heartbeat before the opener's
// timeout, so the hardware fires when the opener's timeout runs out. Zero
// or less means no more pings.
func (d *Device) nextKeepalive() time.Duration {
	t := d.timeoutDuration()
	hw := t
	if d.opts.MaxHWHeartbeat != 0 && d.opts.MaxHWHeartbeat < hw {
		hw = d.opts.MaxHWHeartbeat
	}
	interval := hw / 2
	if !d.active {
		return interval
	}
	last := d.lastKeepalive.Add(t).Add(-hw)
	if next := last.Sub(d.clk.Now()); next < interval {
		return next
	}
	return interval
}

// schedule returns the channel that fires at the next worker ping, or nil
// if there is none.
func (d *Device) schedule() <-chan time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.needWorker() {
		return nil
	}
	next := d.nextKeepalive()
	if next <= 0 {
		return nil
	}
	return d.clk.After(next)
}

func (d *Device) workerPing() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.needWorker() {
		return
	}
	d.ops.Ping()
	d.m.workerPings.Inc()
}

func (d *Device) worker() {
	defer d.wg.Done()
	for {
		tick := d.schedule()
		select {
		case <-tick:
			d.workerPing()
		case <-d.kick:
		case <-d.done:
			return
		}
	}
}
