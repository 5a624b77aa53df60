// Copyright 2023 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// wdtctl pokes at a watchdog directly, without going through wdtd. Only
// stop disarms a running watchdog, every other command leaves it armed.
package main

import (
	"os"

	"github.com/jmhodges/clock"
	"github.com/spf13/afero"
	"github.com/u-root/aspeed-wdt/pkg/hardware/aspeed"
)

func main() {
	e := &env{
		open: aspeed.Open,
		fs:   afero.NewOsFs(),
		clk:  clock.New(),
	}
	if err := NewRootCommand(os.Stdout, e).Execute(); err != nil {
		log.Fatal(err)
	}
}
