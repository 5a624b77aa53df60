// Copyright 2018-2023 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package aspeed

import (
	"fmt"
	"os"
	"time"
)

// LpcOptions tune the LPC2AHB bridge used when running on the host.
type LpcOptions struct {
	// Do not write values that match the cached view of LPC2AHB F0-F8
	// registers.
	// TODO(bluecmd): Maybe it's worth only caching address? There has been
	// some weird lockups on doing data caching, but address caching seems fine.
	Cache bool `json:"cache,omitempty"`
	// Log LPC statistics on Close.
	Stats bool `json:"stats,omitempty"`
}

type lpc struct {
	p    *os.File
	off  int64
	opts LpcOptions
	// Fx register cache (F0-F8)
	f [9]byte

	stat struct {
		wrTime        time.Duration
		rdTime        time.Duration
		wrCount       int
		rdCount       int
		cachedWrCount int
	}
}

func openLpcMemory(port int, opts LpcOptions) (*lpc, error) {
	p, err := os.OpenFile("/dev/port", os.O_RDWR, 0600)
	if err != nil {
		return nil, fmt.Errorf("open /dev/port: %v", err)
	}

	l := &lpc{p: p, off: int64(port), opts: opts}
	l.unlock()
	l.selectDevice(0xd)

	// "cache invalidation" by making the controller match our cache
	for i := 0; i < len(l.f); i++ {
		l.ctrl(byte(0xf0 + i))
		l.w(0)
	}

	l.enable()
	return l, nil
}

func (l *lpc) ctrl(d byte) {
	l.stat.wrCount++
	t := time.Now()
	if _, err := l.p.WriteAt([]byte{d}, l.off); err != nil {
		panic(fmt.Sprintf("lpc index write: %v", err))
	}
	l.stat.wrTime += time.Since(t)
}

func (l *lpc) w(d byte) {
	l.stat.wrCount++
	t := time.Now()
	if _, err := l.p.WriteAt([]byte{d}, l.off+1); err != nil {
		panic(fmt.Sprintf("lpc data write: %v", err))
	}
	l.stat.wrTime += time.Since(t)
}

func (l *lpc) r() byte {
	b := make([]byte, 1)
	l.stat.rdCount++
	t := time.Now()
	if _, err := l.p.ReadAt(b, l.off+1); err != nil {
		panic(fmt.Sprintf("lpc data read: %v", err))
	}
	l.stat.rdTime += time.Since(t)
	return b[0]
}

// Write F0-F8 through the cache to avoid redundant writes
func (l *lpc) wf(f int, d byte) {
	i := f - 0xf0
	if l.f[i] != d || !l.opts.Cache {
		l.ctrl(byte(f))
		l.w(d)
		l.f[i] = d
	} else {
		l.stat.cachedWrCount++
	}
}

// Enable SIO iLPC2AHB
func (l *lpc) enable() {
	l.ctrl(0x30)
	l.w(0x1)
}

func (l *lpc) unlock() {
	l.ctrl(0xa5)
	l.ctrl(0xa5)
}

func (l *lpc) Close() error {
	// Lock SIO
	l.ctrl(0xaa)

	if l.opts.Stats {
		log.Infof("LPC stats: %v RDs (time %v), %v WRs (time %v), cached %v WRs",
			l.stat.rdCount, l.stat.rdTime, l.stat.wrCount, l.stat.wrTime,
			l.stat.cachedWrCount)
	}
	return l.p.Close()
}

func (l *lpc) selectDevice(d int) {
	l.ctrl(0x07)
	l.w(byte(d))
}

func (l *lpc) addr(a uintptr) {
	l.wf(0xf0, byte(a>>24&0xff))
	l.wf(0xf1, byte(a>>16&0xff))
	l.wf(0xf2, byte(a>>8&0xff))
	l.wf(0xf3, byte(a&0xff))
}

func (l *lpc) MustRead32(a uintptr) uint32 {
	l.addr(a)
	// Select 32 bit
	l.wf(0xf8, 0x2)
	// Trigger
	l.ctrl(0xfe)
	l.r()
	var res uint32
	for i := 0; i < 4; i++ {
		l.ctrl(byte(0xf4 + i))
		f := l.r()
		l.f[4+i] = f
		res |= uint32(f) << (24 - 8*uint(i))
	}
	return res
}

func (l *lpc) MustWrite32(a uintptr, d uint32) {
	l.addr(a)
	// Select 32 bit
	l.wf(0xf8, 0x2)
	l.wf(0xf4, byte(d>>24&0xff))
	l.wf(0xf5, byte(d>>16&0xff))
	l.wf(0xf6, byte(d>>8&0xff))
	l.wf(0xf7, byte(d&0xff))
	// Trigger
	l.ctrl(0xfe)
	l.w(0xcf)
}
