// Copyright 2023 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wdt

// Register offsets from the base of a watchdog block
const (
	WDT_STATUS         uintptr = 0x00 // current counter (R)
	WDT_RELOAD_VALUE   uintptr = 0x04 // loaded into the counter on restart (RW)
	WDT_RESTART        uintptr = 0x08 // takes WDT_RESTART_MAGIC only (W)
	WDT_CTRL           uintptr = 0x0c // see ctrl* bits (RW)
	WDT_TIMEOUT_STATUS uintptr = 0x10 // latched by an expiry (R)
	WDT_RESET_WIDTH    uintptr = 0x18 // AST2500 only (RW)
)

const (
	WDT_RESTART_MAGIC uint32 = 0x4755

	// 32 bits at 1MHz, in milliseconds
	WDT_MAX_TIMEOUT_MS  = 4294967
	WDT_DEFAULT_TIMEOUT = 30
	WDT_RATE_1MHZ       = 1000000

	// Longest timeout that still fits the counter, in seconds
	maxTimeout = WDT_MAX_TIMEOUT_MS / 1000
	// Count used to force a reset on restart, 128ms
	restartCount = 128 * WDT_RATE_1MHZ / 1000
)

// WDT_CTRL bits
const (
	ctrlEnable      uint32 = 1 << 0
	ctrlResetSystem uint32 = 1 << 1
	ctrlInterrupt   uint32 = 1 << 2
	ctrlExternal    uint32 = 1 << 3
	ctrl1MHzClock   uint32 = 1 << 4

	ctrlResetModeSoC      uint32 = 0x00 << 5
	ctrlResetModeFullChip uint32 = 0x01 << 5
	ctrlResetModeArmCPU   uint32 = 0x10 << 5
)

// The last expiry switched the boot code source to the second flash
const timeoutStatusBootSecondary uint32 = 1 << 1

// WDT_RESET_WIDTH fields. The tag byte selects which of the two properties
// a write changes, the duration is kept by every write.
const (
	resetWidthDuration uint32 = 0xfff

	resetWidthActiveHighMagic uint32 = 0xA5 << 24
	resetWidthActiveLowMagic  uint32 = 0x5A << 24
	resetWidthPushPullMagic   uint32 = 0xA8 << 24
	resetWidthOpenDrainMagic  uint32 = 0x8A << 24

	MaxPulseDuration = resetWidthDuration
)

// Scope is the part of the system a watchdog expiry resets.
type Scope int

const (
	// SoC domain, leaving CPU-external peripherals alone. Encodes as zero.
	ScopeSoC Scope = iota
	ScopeFullChip
	// ARM CPU core only
	ScopeCPU
)

func (s Scope) String() string {
	switch s {
	case ScopeSoC:
		return "soc"
	case ScopeFullChip:
		return "full-chip"
	case ScopeCPU:
		return "cpu"
	}
	return "invalid"
}

func (s Scope) bits() uint32 {
	switch s {
	case ScopeFullChip:
		return ctrlResetModeFullChip
	case ScopeCPU:
		return ctrlResetModeArmCPU
	}
	return ctrlResetModeSoC
}

// Control is WDT_CTRL kept as separate fields. Only Value() knows the bit
// layout.
type Control struct {
	Enable      bool
	ResetSystem bool
	Interrupt   bool
	External    bool
	Clock1MHz   bool
	Scope       Scope
}

func (c Control) Value() uint32 {
	v := c.Scope.bits()
	if c.Enable {
		v |= ctrlEnable
	}
	if c.ResetSystem {
		v |= ctrlResetSystem
	}
	if c.Interrupt {
		v |= ctrlInterrupt
	}
	if c.External {
		v |= ctrlExternal
	}
	if c.Clock1MHz {
		v |= ctrl1MHzClock
	}
	return v
}

// ParseControl is the inverse of Value for the bits we know about. If both
// mode bits are set the CPU scope wins.
func ParseControl(v uint32) Control {
	c := Control{
		Enable:      v&ctrlEnable != 0,
		ResetSystem: v&ctrlResetSystem != 0,
		Interrupt:   v&ctrlInterrupt != 0,
		External:    v&ctrlExternal != 0,
		Clock1MHz:   v&ctrl1MHzClock != 0,
	}
	switch {
	case v&ctrlResetModeArmCPU != 0:
		c.Scope = ScopeCPU
	case v&ctrlResetModeFullChip != 0:
		c.Scope = ScopeFullChip
	default:
		c.Scope = ScopeSoC
	}
	return c
}

// count converts a timeout to counter ticks, clamped to what the 32 bit
// counter can hold.
func count(seconds uint32) uint32 {
	if seconds > maxTimeout {
		seconds = maxTimeout
	}
	return seconds * WDT_RATE_1MHZ
}
