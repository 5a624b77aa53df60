// Copyright 2018-2023 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package aspeed

import (
	"fmt"
)

const (
	SCU_BASE uintptr = 0x1E6E2000

	// SCU3C: System Reset Control/Status Register
	SCU_RESET_STATUS uintptr = SCU_BASE + 0x3C
	// SCU7C: Silicon Revision ID Register
	SCU_SILICON_REVISION uintptr = SCU_BASE + 0x7C
)

// Generation is the SoC family, the upper byte of the silicon revision.
type Generation int

const (
	GEN_UNKNOWN Generation = iota
	GEN_AST2400
	GEN_AST2500
)

func (g Generation) String() string {
	switch g {
	case GEN_AST2400:
		return "AST2400"
	case GEN_AST2500:
		return "AST2500"
	}
	return "unknown"
}

var modelNames = map[uint32]string{
	0x02000303: "AST2400-A0",
	0x02010103: "AST1400-A1",
	0x02010303: "AST1250-A1 or AST2400-A1",
	0x04000303: "AST2500-A0",
	0x04000103: "AST2510-A0",
	0x04000203: "AST2520-A0",
	0x04000403: "AST2530-A0",
	0x04010303: "AST2500-A1",
	0x04010103: "AST2510-A1",
	0x04010203: "AST2520-A1",
	0x04010403: "AST2530-A1",
	0x04030303: "AST2500-A2",
	0x04030103: "AST2510-A2",
	0x04030203: "AST2520-A2",
	0x04030403: "AST2530-A2",
}

func (a *Ast) GetSiliconRevision() uint32 {
	return a.Mem().MustRead32(SCU_SILICON_REVISION)
}

// GetResetStatus returns SCU3C, which among others latches which watchdog
// caused the last reset.
func (a *Ast) GetResetStatus() uint32 {
	return a.Mem().MustRead32(SCU_RESET_STATUS)
}

// ModelName only knows about the generations that carry the watchdog
// blocks this library drives.
func (a *Ast) ModelName() (string, error) {
	rev := a.GetSiliconRevision()
	if name, ok := modelNames[rev]; ok {
		return name, nil
	}
	return "", fmt.Errorf("unknown revision %#08x", rev)
}

func (a *Ast) Generation() (Generation, error) {
	rev := a.GetSiliconRevision()
	if _, ok := modelNames[rev]; !ok {
		return GEN_UNKNOWN, fmt.Errorf("unknown revision %#08x", rev)
	}
	switch rev >> 24 {
	case 0x02:
		return GEN_AST2400, nil
	case 0x04:
		return GEN_AST2500, nil
	}
	return GEN_UNKNOWN, fmt.Errorf("unknown generation in revision %#08x", rev)
}

// WatchdogResetCause decodes SCU3C into the 1-based index of the watchdog
// that caused the last reset, or 0 if none of them did.
func (a *Ast) WatchdogResetCause() int {
	v := a.GetResetStatus()
	// Bits 2-4 are WDT1-3 reset flags
	for i := 0; i < 3; i++ {
		if v&(1<<(2+uint(i))) != 0 {
			return i + 1
		}
	}
	return 0
}
