// Copyright 2018-2023 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Library for accessing AST2400/AST2500 series BMC functions
//
// Usually packages like these contain a notice to say use on your own risk
// but this time, it's for real. The watchdog blocks in particular will reset
// the BMC, and depending on strapping the host, if they are armed and left
// alone. Be warned.
//
// Call aspeed.Open and Close() as the first and last thing before and
// after you want to run any library commands.
//
// The library supports being run both on the host CPU and the BMC CPU.
// When not run on the BMC, it will use the LPC bus and the LPC2AHB feature
// of the SuperIO. If that has been disabled, running on the host CPU will
// not work.

package aspeed

import (
	"fmt"

	"github.com/u-root/aspeed-wdt/pkg/logger"
)

var log = logger.LogContainer.GetSimpleLogger()

type Ast struct {
	mem Memory
}

// Options apply to Open. Lpc is only used when reaching the BMC from the host.
type Options struct {
	Lpc LpcOptions `json:"lpc"`
}

func Open(opts Options) (*Ast, error) {
	mem, err := openMem(opts)
	if err != nil {
		return nil, err
	}
	a := &Ast{mem}

	if _, err := a.ModelName(); err != nil {
		mem.Close()
		return nil, fmt.Errorf("could not detect supported SOC: %v", err)
	}
	return a, nil
}

func OpenWithMemory(mem Memory) *Ast {
	return &Ast{mem}
}

func (a *Ast) Mem() Memory {
	return a.mem
}

func (a *Ast) Close() error {
	return a.mem.Close()
}
