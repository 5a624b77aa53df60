// Copyright 2018-2023 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package aspeed

import (
	"fmt"
)

const (
	WDT_BASE   uintptr = 0x1e785000
	WDT_STRIDE uintptr = 0x20
)

// Window is one register block of the SoC, addressed relative to its base.
type Window struct {
	mem  Memory
	base uintptr
}

func (w *Window) Base() uintptr {
	return w.base
}

func (w *Window) MustRead32(off uintptr) uint32 {
	return w.mem.MustRead32(w.base + off)
}

func (w *Window) MustWrite32(off uintptr, v uint32) {
	w.mem.MustWrite32(w.base+off, v)
}

func (a *Ast) WatchdogCount() (int, error) {
	g, err := a.Generation()
	if err != nil {
		return 0, err
	}
	if g == GEN_AST2500 {
		return 3, nil
	}
	return 2, nil
}

// Watchdog returns the register window of WDTn, counting from 1 like the
// datasheet does.
func (a *Ast) Watchdog(n int) (*Window, error) {
	c, err := a.WatchdogCount()
	if err != nil {
		return nil, err
	}
	if n < 1 || n > c {
		return nil, fmt.Errorf("no such watchdog %d, SoC has %d", n, c)
	}
	return a.WatchdogAt(WDT_BASE + uintptr(n-1)*WDT_STRIDE), nil
}

// WatchdogAt returns a window at an explicit base, e.g. from a device tree.
func (a *Ast) WatchdogAt(base uintptr) *Window {
	return &Window{a.mem, base}
}
