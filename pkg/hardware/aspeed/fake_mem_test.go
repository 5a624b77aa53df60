// Copyright 2018-2023 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package aspeed

import (
	"fmt"
	"testing"
)

type op struct {
	write   bool
	address uintptr
	data    uint32
}

type fakeMem struct {
	t   *testing.T
	ops []op
}

func opstr(o *op) string {
	t := "read"
	if o.write {
		t = "write"
	}
	return fmt.Sprintf("{%s @ %08x = %08x}", t, o.address, o.data)
}

func (m *fakeMem) next() (op, bool) {
	if len(m.ops) == 0 {
		return op{}, false
	}
	o := m.ops[0]
	m.ops = m.ops[1:]
	return o, true
}

func (m *fakeMem) MustRead32(a uintptr) uint32 {
	o, ok := m.next()
	if !ok {
		m.t.Errorf("Unexpected 32 bit read on %08x", a)
		return 0
	}
	if o.write || o.address != a {
		m.t.Errorf("Expected %s, got 32 bit read on %08x", opstr(&o), a)
	}
	return o.data
}

func (m *fakeMem) MustWrite32(a uintptr, d uint32) {
	o, ok := m.next()
	if !ok {
		m.t.Errorf("Unexpected 32 bit write of %08x on %08x", d, a)
		return
	}
	if !o.write || o.address != a || o.data != d {
		m.t.Errorf("Expected %s, got 32 bit write of %08x on %08x", opstr(&o), d, a)
	}
}

func (m *fakeMem) ExpectWrite32(a uintptr, d uint32) {
	m.ops = append(m.ops, op{true, a, d})
}

func (m *fakeMem) FakeRead32(a uintptr, d uint32) {
	m.ops = append(m.ops, op{false, a, d})
}

func (m *fakeMem) Close() error {
	return nil
}

func fakeMemory(t *testing.T) *fakeMem {
	m := &fakeMem{t, make([]op, 0)}
	t.Cleanup(func() {
		for _, o := range m.ops {
			t.Errorf("Expected %s, never happened", opstr(&o))
		}
	})
	return m
}
