// Copyright 2018 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build arm
// +build arm

// Assume arm hosts are the BMC

package aspeed

func openMem(Options) (Memory, error) {
	return openHostMemory()
}
