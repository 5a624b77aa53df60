// Copyright 2018-2023 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wdt

import (
	"fmt"
	"testing"
)

type op struct {
	write bool
	off   uintptr
	data  uint32
}

func opstr(o *op) string {
	t := "read"
	if o.write {
		t = "write"
	}
	return fmt.Sprintf("{%s @ +%02x = %08x}", t, o.off, o.data)
}

// fakeRegs checks accesses against a script, in order.
type fakeRegs struct {
	t   *testing.T
	ops []op
}

func fakeRegisters(t *testing.T) *fakeRegs {
	r := &fakeRegs{t: t}
	t.Cleanup(func() {
		for _, o := range r.ops {
			t.Errorf("Expected %s, never happened", opstr(&o))
		}
	})
	return r
}

func (r *fakeRegs) next() (op, bool) {
	if len(r.ops) == 0 {
		return op{}, false
	}
	o := r.ops[0]
	r.ops = r.ops[1:]
	return o, true
}

func (r *fakeRegs) MustRead32(off uintptr) uint32 {
	o, ok := r.next()
	if !ok {
		r.t.Errorf("Unexpected read on +%02x", off)
		return 0
	}
	if o.write || o.off != off {
		r.t.Errorf("Expected %s, got read on +%02x", opstr(&o), off)
	}
	return o.data
}

func (r *fakeRegs) MustWrite32(off uintptr, d uint32) {
	o, ok := r.next()
	if !ok {
		r.t.Errorf("Unexpected write of %08x on +%02x", d, off)
		return
	}
	if !o.write || o.off != off || o.data != d {
		r.t.Errorf("Expected %s, got write of %08x on +%02x", opstr(&o), d, off)
	}
}

func (r *fakeRegs) ExpectWrite32(off uintptr, d uint32) {
	r.ops = append(r.ops, op{true, off, d})
}

func (r *fakeRegs) FakeRead32(off uintptr, d uint32) {
	r.ops = append(r.ops, op{false, off, d})
}

// memRegs is a plain register file that remembers every write.
type memRegs struct {
	v      map[uintptr]uint32
	writes []op
}

func memRegisters() *memRegs {
	return &memRegs{v: make(map[uintptr]uint32)}
}

func (r *memRegs) MustRead32(off uintptr) uint32 {
	return r.v[off]
}

func (r *memRegs) MustWrite32(off uintptr, d uint32) {
	r.v[off] = d
	r.writes = append(r.writes, op{true, off, d})
}

func (r *memRegs) reset() {
	r.writes = nil
}
