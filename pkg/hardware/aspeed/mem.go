// Copyright 2018-2023 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package aspeed

// Memory is the physical address space of the SoC as seen from wherever
// we happen to be running. Accesses that fail panic, the SoC is either
// reachable or nothing useful can be done.
type Memory interface {
	MustRead32(uintptr) uint32
	MustWrite32(uintptr, uint32)
	Close() error
}
