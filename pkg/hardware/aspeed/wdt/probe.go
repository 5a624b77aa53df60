// Copyright 2023 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wdt

import (
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/u-root/aspeed-wdt/pkg/hardware/aspeed"
)

type ProbeOptions struct {
	// 1-based instance, ignored if Base is set
	Instance int
	Base     uintptr
	FDTPath  string
	// Used when the device tree does not describe the instance
	Fallback *Description
	Options  []Option
}

// Probe finds the watchdog instance on a, describes it from the device tree
// or the fallback, and takes ownership of it with New.
func Probe(a *aspeed.Ast, fs afero.Fs, o ProbeOptions) (*Controller, error) {
	return probe(a, o, func(base uintptr) (*Description, Variant, error) {
		return Describe(fs, o.FDTPath, base)
	})
}

type describer func(base uintptr) (*Description, Variant, error)

// The variant comes from the node's compatible when the tree describes the
// instance, from the SoC revision otherwise.
func probe(a *aspeed.Ast, o ProbeOptions, describe describer) (*Controller, error) {
	gen, err := a.Generation()
	if err != nil {
		return nil, err
	}
	v := AST2400
	if gen == aspeed.GEN_AST2500 {
		v = AST2500
	}

	var w *aspeed.Window
	if o.Base != 0 {
		w = a.WatchdogAt(o.Base)
	} else if w, err = a.Watchdog(o.Instance); err != nil {
		return nil, err
	}

	d, dv, err := describe(w.Base())
	switch {
	case err == nil:
		if dv != v {
			log.Warnf("device tree says %s at %08x, SoC is %s, going with the device tree", dv, w.Base(), gen)
		}
		v = dv
	case errors.Is(err, ErrInvalidResetWidth):
		return nil, err
	default:
		log.Infof("no device tree description of %08x (%v), using configuration", w.Base(), err)
		d = o.Fallback
	}

	c, err := New(w, v, d, o.Options...)
	if err != nil {
		return nil, errors.Wrapf(err, "watchdog at %08x", w.Base())
	}
	return c, nil
}
