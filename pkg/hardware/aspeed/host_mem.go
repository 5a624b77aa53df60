// Copyright 2018-2023 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package aspeed

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

type hostMem struct {
	mf *os.File
	ps uintptr

	m     sync.Mutex
	pages map[uintptr][]byte
}

func openHostMemory() (*hostMem, error) {
	f, err := os.OpenFile("/dev/mem", os.O_RDWR|os.O_SYNC, 0600)
	if err != nil {
		return nil, fmt.Errorf("open /dev/mem: %v", err)
	}
	return &hostMem{
		mf:    f,
		ps:    uintptr(unix.Getpagesize()),
		pages: make(map[uintptr][]byte),
	}, nil
}

// Pages stay mapped until Close.
func (m *hostMem) word(address uintptr) *uint32 {
	if address&0x3 != 0 {
		panic(fmt.Sprintf("unaligned 32 bit access at %08x", address))
	}
	page := address & ^(m.ps - 1)
	m.m.Lock()
	defer m.m.Unlock()
	mem, ok := m.pages[page]
	if !ok {
		var err error
		mem, err = unix.Mmap(int(m.mf.Fd()), int64(page), int(m.ps), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
		if err != nil {
			panic(fmt.Sprintf("mmap of %08x failed: %v", page, err))
		}
		m.pages[page] = mem
	}
	return (*uint32)(unsafe.Pointer(&mem[address-page]))
}

func (m *hostMem) MustRead32(address uintptr) uint32 {
	return atomic.LoadUint32(m.word(address))
}

func (m *hostMem) MustWrite32(address uintptr, data uint32) {
	atomic.StoreUint32(m.word(address), data)
}

func (m *hostMem) Close() error {
	m.m.Lock()
	defer m.m.Unlock()
	for page, mem := range m.pages {
		if err := unix.Munmap(mem); err != nil {
			log.Warnf("munmap of %08x failed: %v", page, err)
		}
		delete(m.pages, page)
	}
	return m.mf.Close()
}
