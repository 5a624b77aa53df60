// Copyright 2023 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wdt

import (
	"fmt"
	"time"
)

// State is what the hardware currently has, as opposed to what a Controller
// wants it to have.
type State struct {
	Counter uint32
	Reload  uint32
	Control Control
	// Raw WDT_CTRL, for bits Control does not model
	RawControl uint32

	HasResetWidth bool
	PulseDuration uint32

	BootSecondary bool
}

// ReadState only reads. Calling it never changes what the watchdog does.
func ReadState(regs Registers, v Variant) State {
	raw := regs.MustRead32(WDT_CTRL)
	s := State{
		Counter:    regs.MustRead32(WDT_STATUS),
		Reload:     regs.MustRead32(WDT_RELOAD_VALUE),
		Control:    ParseControl(raw),
		RawControl: raw,

		BootSecondary: regs.MustRead32(WDT_TIMEOUT_STATUS)&timeoutStatusBootSecondary != 0,
	}
	if v.hasResetWidth() {
		s.HasResetWidth = true
		s.PulseDuration = regs.MustRead32(WDT_RESET_WIDTH) & resetWidthDuration
	}
	return s
}

// Remaining is the time until expiry, assuming the 1MHz clock.
func (s State) Remaining() time.Duration {
	if !s.Control.Enable {
		return 0
	}
	return time.Duration(s.Counter) * time.Microsecond
}

func (s State) String() string {
	armed := "disarmed"
	if s.Control.Enable {
		armed = fmt.Sprintf("armed, %v left", s.Remaining())
	}
	return fmt.Sprintf("%s, reload %v, scope %v, reset system %v, external %v, 1MHz %v",
		armed, time.Duration(s.Reload)*time.Microsecond, s.Control.Scope,
		s.Control.ResetSystem, s.Control.External, s.Control.Clock1MHz)
}
