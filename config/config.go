// Copyright 2018-2023 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package config

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/u-root/aspeed-wdt/pkg/hardware/aspeed"
	"github.com/u-root/aspeed-wdt/pkg/hardware/aspeed/wdt"
	"sigs.k8s.io/yaml"
)

// Set with -ldflags "-X github.com/u-root/aspeed-wdt/config.gitVersion=..."
var (
	gitVersion = "devel"
	gitHash    = "unknown"
)

const DEFAULT_CONFIG_PATH = "/config/wdtd.yaml"

type Version struct {
	Version string `json:"version"`
	GitHash string `json:"gitHash"`
}

type Duration struct {
	time.Duration
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	if len(b) < 2 || b[0] != '"' || b[len(b)-1] != '"' {
		return errors.Errorf("duration %s is not a string", b)
	}
	v, err := time.ParseDuration(string(b[1 : len(b)-1]))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

type Watchdog struct {
	// 1-based, WDT1 is the one the boot ROM arms
	Instance int `json:"instance"`
	// Overrides the base address derived from Instance
	Base uintptr `json:"base,omitempty"`
	// Seconds, 0 keeps what the hardware description says
	Timeout      uint32   `json:"timeout,omitempty"`
	PingInterval Duration `json:"pingInterval"`
	NoWayOut     bool     `json:"noWayOut,omitempty"`
	// Don't ping from the daemon, keepalives come in over the API
	ExternalKeepalive bool   `json:"externalKeepalive,omitempty"`
	FDTPath           string `json:"fdtPath"`
	// Used when the device tree has no node for the instance
	Description *wdt.Description `json:"description,omitempty"`
}

type Metrics struct {
	Address string `json:"address"`
}

type Log struct {
	File  string `json:"file,omitempty"`
	Level string `json:"level"`
}

type Config struct {
	Version Version `json:"-"`
	// How the SoC is reached, see aspeed.Options
	SoC      aspeed.Options `json:"soc"`
	Watchdog Watchdog       `json:"watchdog"`
	Metrics  Metrics        `json:"metrics"`
	Log      Log            `json:"log"`
}

var DefaultConfig = &Config{
	Version: Version{
		Version: gitVersion,
		GitHash: gitHash,
	},

	Watchdog: Watchdog{
		Instance:     1,
		PingInterval: Duration{10 * time.Second},
		FDTPath:      wdt.FDT_PATH,
	},

	Metrics: Metrics{
		// u-bmc has been allocated port 9370
		Address: "[::]:9370",
	},

	Log: Log{
		Level: "info",
	},
}

// Load reads path on top of DefaultConfig. A missing file is not an error.
func Load(fs afero.Fs, path string) (*Config, error) {
	c := *DefaultConfig
	b, err := afero.ReadFile(fs, path)
	if errors.Is(err, os.ErrNotExist) {
		return &c, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	if err := yaml.UnmarshalStrict(b, &c); err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	return &c, c.Validate()
}

func (c *Config) Validate() error {
	w := &c.Watchdog
	if w.Instance < 1 && w.Base == 0 {
		return errors.Errorf("watchdog instance %d, instances count from 1", w.Instance)
	}
	if w.PingInterval.Duration <= 0 && !w.ExternalKeepalive {
		return errors.New("watchdog ping interval must be positive")
	}
	if w.Timeout != 0 && w.PingInterval.Duration >= time.Duration(w.Timeout)*time.Second {
		return errors.Errorf("ping interval %v does not fit in timeout %ds", w.PingInterval, w.Timeout)
	}
	if w.Description != nil {
		if err := w.Description.Validate(); err != nil {
			return err
		}
	}
	if c.Metrics.Address == "" {
		return errors.New("no metrics address")
	}
	return nil
}
