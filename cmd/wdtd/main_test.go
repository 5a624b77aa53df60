// Copyright 2023 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jmhodges/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/u-root/aspeed-wdt/config"
	"github.com/u-root/aspeed-wdt/pkg/watchdog"
)

type countingOps struct {
	m     sync.Mutex
	calls map[string]int
}

func (o *countingOps) inc(s string) {
	o.m.Lock()
	defer o.m.Unlock()
	if o.calls == nil {
		o.calls = map[string]int{}
	}
	o.calls[s]++
}

func (o *countingOps) get(s string) int {
	o.m.Lock()
	defer o.m.Unlock()
	return o.calls[s]
}

func (o *countingOps) Start()            { o.inc("start") }
func (o *countingOps) Stop()             { o.inc("stop") }
func (o *countingOps) Ping()             { o.inc("ping") }
func (o *countingOps) SetTimeout(uint32) { o.inc("timeout") }
func (o *countingOps) Restart(string)    { o.inc("restart") }

func testDevice(t *testing.T, clk clock.Clock) (*watchdog.Device, *countingOps) {
	ops := &countingOps{}
	d, err := watchdog.Register(ops, watchdog.Options{
		Identity: t.Name(),
		Clock:    clk,
	})
	require.NoError(t, err)
	t.Cleanup(d.Unregister)
	return d, ops
}

func TestPingLoop(t *testing.T) {
	clk := clock.NewFake()
	d, ops := testDevice(t, clk)
	require.NoError(t, d.Open())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- pingLoop(ctx, d, clk, 10*time.Second)
	}()
	require.Eventually(t, func() bool {
		clk.Add(10 * time.Second)
		return ops.get("ping") >= 3
	}, 5*time.Second, 10*time.Millisecond)
	cancel()
	assert.NoError(t, <-done)
}

func TestPingLoopStopsWhenClosed(t *testing.T) {
	clk := clock.NewFake()
	d, _ := testDevice(t, clk)

	done := make(chan error, 1)
	go func() {
		done <- pingLoop(context.Background(), d, clk, time.Second)
	}()
	require.Eventually(t, func() bool {
		clk.Add(time.Second)
		return len(done) > 0
	}, 5*time.Second, 10*time.Millisecond)
	assert.ErrorIs(t, <-done, watchdog.ErrNotActive)
}

func TestRunClosesWithMagic(t *testing.T) {
	clk := clock.NewFake()
	d, ops := testDevice(t, clk)
	c := *config.DefaultConfig
	c.Metrics.Address = "127.0.0.1:0"
	c.Watchdog.Timeout = 60

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- run(ctx, &c, d, clk)
	}()
	require.Eventually(t, func() bool {
		return d.Status().Open
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, uint32(60), d.Timeout())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("run did not return")
	}
	s := d.Status()
	assert.False(t, s.Open)
	assert.False(t, s.Active)
	assert.Equal(t, 1, ops.get("start"))
	assert.Equal(t, 1, ops.get("stop"))
}

func TestRunNoWayOut(t *testing.T) {
	clk := clock.NewFake()
	ops := &countingOps{}
	d, err := watchdog.Register(ops, watchdog.Options{
		Identity: t.Name(),
		NoWayOut: true,
		Clock:    clk,
	})
	require.NoError(t, err)
	defer d.Unregister()
	c := *config.DefaultConfig
	c.Metrics.Address = "127.0.0.1:0"
	c.Watchdog.ExternalKeepalive = true

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, run(ctx, &c, d, clk))
	assert.True(t, d.Status().Active)
	assert.Equal(t, 0, ops.get("stop"))
}

func TestKeepaliveInterval(t *testing.T) {
	for _, tt := range []struct {
		name     string
		interval time.Duration
		external bool
		timeout  uint32
		want     time.Duration
	}{
		{"configured", 10 * time.Second, false, 30, 10 * time.Second},
		{"timeout unknown", 10 * time.Second, false, 0, 10 * time.Second},
		{"equal to timeout", 10 * time.Second, false, 10, 5 * time.Second},
		{"past timeout", 10 * time.Second, false, 5, 2500 * time.Millisecond},
		{"external", 10 * time.Second, true, 5, 0},
	} {
		t.Run(tt.name, func(t *testing.T) {
			c := *config.DefaultConfig
			c.Watchdog.PingInterval.Duration = tt.interval
			c.Watchdog.ExternalKeepalive = tt.external
			assert.Equal(t, tt.want, keepaliveInterval(&c, tt.timeout))
		})
	}
}

func TestRunPingsWithinShortTimeout(t *testing.T) {
	clk := clock.NewFake()
	ops := &countingOps{}
	d, err := watchdog.Register(ops, watchdog.Options{
		Identity: t.Name(),
		Timeout:  5,
		Clock:    clk,
	})
	require.NoError(t, err)
	defer d.Unregister()
	c := *config.DefaultConfig
	c.Metrics.Address = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- run(ctx, &c, d, clk)
	}()
	require.Eventually(t, func() bool {
		return d.Status().Open
	}, 5*time.Second, 10*time.Millisecond)

	// The configured 10s would need 40s for four pings
	start := clk.Now()
	require.Eventually(t, func() bool {
		clk.Add(100 * time.Millisecond)
		return ops.get("ping") >= 4
	}, 10*time.Second, 10*time.Millisecond)
	assert.Less(t, clk.Now().Sub(start), 20*time.Second)

	cancel()
	assert.NoError(t, <-done)
}
