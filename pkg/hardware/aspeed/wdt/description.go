// Copyright 2023 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wdt

import (
	"math"

	"github.com/pkg/errors"
)

// Variant selects between the register layouts of the supported SoCs.
type Variant int

const (
	AST2400 Variant = iota
	// AST2500 adds the external reset pulse register
	AST2500
)

func (v Variant) String() string {
	if v == AST2500 {
		return "ast2500"
	}
	return "ast2400"
}

func (v Variant) Compatible() string {
	return "aspeed," + v.String() + "-wdt"
}

func (v Variant) hasResetWidth() bool {
	return v == AST2500
}

// VariantFromCompatible picks the variant out of a device tree compatible
// list.
func VariantFromCompatible(compatible []string) (Variant, bool) {
	for _, c := range compatible {
		switch c {
		case AST2400.Compatible():
			return AST2400, true
		case AST2500.Compatible():
			return AST2500, true
		}
	}
	return AST2400, false
}

// Description is the per-instance hardware description, usually read from
// the device tree.
type Description struct {
	// "cpu", "soc" or "system". Absent means "system".
	ResetType *string `json:"resetType,omitempty"`
	// Route the expiry signal to the external reset pin
	ExternalSignal bool `json:"externalSignal,omitempty"`

	// AST2500 only
	ExtPushPull      bool    `json:"extPushPull,omitempty"`
	ExtActiveHigh    bool    `json:"extActiveHigh,omitempty"`
	ExtPulseDuration *uint32 `json:"extPulseDuration,omitempty"`

	// Initial timeout in seconds, 0 for the default
	TimeoutSec uint32 `json:"timeoutSec,omitempty"`
}

var ErrInvalidResetWidth = errors.New("invalid reset width")

func (d *Description) Validate() error {
	if d.ExtPulseDuration != nil && *d.ExtPulseDuration > MaxPulseDuration {
		return errors.Wrapf(ErrInvalidResetWidth, "%d exceeds %d", *d.ExtPulseDuration, MaxPulseDuration)
	}
	return nil
}

// control builds the persistent part of WDT_CTRL. Unknown reset types fall
// back to the SoC scope without complaint.
func (d *Description) control() Control {
	c := Control{Clock1MHz: true}
	switch {
	case d.ResetType == nil:
		c.ResetSystem = true
	case *d.ResetType == "cpu":
		c.Scope = ScopeCPU
	case *d.ResetType == "soc":
		c.Scope = ScopeSoC
	case *d.ResetType == "system":
		c.ResetSystem = true
	default:
		log.Debugf("unknown reset type %q, using soc", *d.ResetType)
	}
	c.External = d.ExternalSignal
	return c
}

// initialTimeout mirrors the core's rule: a described timeout is taken if it
// fits in milliseconds, anything else means the default. Timeouts beyond
// what the counter holds are split into hardware heartbeats by the core.
func (d *Description) initialTimeout() uint32 {
	switch {
	case d.TimeoutSec == 0:
		return WDT_DEFAULT_TIMEOUT
	case d.TimeoutSec > math.MaxUint32/1000:
		log.Warnf("timeout-sec %d out of range, using %d", d.TimeoutSec, WDT_DEFAULT_TIMEOUT)
		return WDT_DEFAULT_TIMEOUT
	}
	return d.TimeoutSec
}
