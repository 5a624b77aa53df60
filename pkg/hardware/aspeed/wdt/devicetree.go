// Copyright 2023 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wdt

import (
	"encoding/binary"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/u-root/u-root/pkg/dt"
)

// FDT_PATH is where the kernel exposes the tree it booted with.
const FDT_PATH = "/sys/firmware/fdt"

var ErrNoNode = errors.New("no matching watchdog node")

func ReadDeviceTree(fs afero.Fs, path string) (*dt.FDT, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open device tree")
	}
	defer f.Close()
	fdt, err := dt.ReadFDT(f)
	if err != nil {
		return nil, errors.Wrapf(err, "parse device tree %s", path)
	}
	return fdt, nil
}

func property(n *dt.Node, name string) (*dt.Property, bool) {
	for i := range n.Properties {
		if n.Properties[i].Name == name {
			return &n.Properties[i], true
		}
	}
	return nil, false
}

func compatible(n *dt.Node) []string {
	p, ok := property(n, "compatible")
	if !ok {
		return nil
	}
	return strings.Split(strings.TrimRight(string(p.Value), "\x00"), "\x00")
}

// The APB bus the watchdogs sit on uses one address cell.
func baseAddress(n *dt.Node) (uintptr, bool) {
	p, ok := property(n, "reg")
	if !ok || len(p.Value) < 4 {
		return 0, false
	}
	return uintptr(binary.BigEndian.Uint32(p.Value)), true
}

// FindNode looks for the watchdog node at base anywhere below root.
func FindNode(root *dt.Node, base uintptr) (*dt.Node, Variant, error) {
	if root == nil {
		return nil, AST2400, ErrNoNode
	}
	if v, ok := VariantFromCompatible(compatible(root)); ok {
		if b, ok := baseAddress(root); ok && b == base {
			return root, v, nil
		}
	}
	for _, c := range root.Children {
		if n, v, err := FindNode(c, base); err == nil {
			return n, v, nil
		}
	}
	return nil, AST2400, errors.Wrapf(ErrNoNode, "at %08x", base)
}

// DescriptionFromNode collects the aspeed,* properties of a watchdog node.
func DescriptionFromNode(n *dt.Node) (*Description, error) {
	d := &Description{}
	if p, ok := property(n, "aspeed,reset-type"); ok {
		s, err := p.AsString()
		if err != nil {
			return nil, errors.Wrapf(err, "%s: aspeed,reset-type", n.Name)
		}
		d.ResetType = &s
	}
	_, d.ExternalSignal = property(n, "aspeed,external-signal")
	_, d.ExtPushPull = property(n, "aspeed,ext-push-pull")
	_, d.ExtActiveHigh = property(n, "aspeed,ext-active-high")
	if p, ok := property(n, "aspeed,ext-pulse-duration"); ok {
		v, err := p.AsU32()
		if err != nil {
			return nil, errors.Wrapf(err, "%s: aspeed,ext-pulse-duration", n.Name)
		}
		d.ExtPulseDuration = &v
	}
	if p, ok := property(n, "timeout-sec"); ok {
		v, err := p.AsU32()
		if err != nil {
			return nil, errors.Wrapf(err, "%s: timeout-sec", n.Name)
		}
		d.TimeoutSec = v
	}
	return d, d.Validate()
}

// Describe reads the tree at path and returns the description and variant
// of the watchdog at base.
func Describe(fs afero.Fs, path string, base uintptr) (*Description, Variant, error) {
	fdt, err := ReadDeviceTree(fs, path)
	if err != nil {
		return nil, AST2400, err
	}
	n, v, err := FindNode(fdt.RootNode, base)
	if err != nil {
		return nil, AST2400, err
	}
	d, err := DescriptionFromNode(n)
	return d, v, err
}
