// Copyright 2018-2023 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package aspeed

import (
	"testing"
)

func TestWatchdogWindow(t *testing.T) {
	fm := fakeMemory(t)
	a := OpenWithMemory(fm)
	fm.FakeRead32(0x1E6E207C, 0x04030303)
	w, err := a.Watchdog(2)
	if err != nil {
		t.Fatalf("Watchdog(2): %v", err)
	}
	if w.Base() != 0x1e785020 {
		t.Errorf("Expected WDT2 at 1e785020, got %08x", w.Base())
	}
	fm.ExpectWrite32(0x1e785028, 0x4755)
	w.MustWrite32(0x08, 0x4755)
	fm.FakeRead32(0x1e78502c, 0x13)
	if v := w.MustRead32(0x0c); v != 0x13 {
		t.Errorf("Expected 13 from WDT2 control, got %08x", v)
	}
}

func TestWatchdogOutOfRange(t *testing.T) {
	fm := fakeMemory(t)
	a := OpenWithMemory(fm)
	// AST2400 only has two
	fm.FakeRead32(0x1E6E207C, 0x02010303)
	if _, err := a.Watchdog(3); err == nil {
		t.Errorf("Expected WDT3 to be rejected on AST2400")
	}
	fm.FakeRead32(0x1E6E207C, 0x04030303)
	if _, err := a.Watchdog(0); err == nil {
		t.Errorf("Expected WDT0 to be rejected")
	}
}
