// Copyright 2023 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package watchdog

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	keepalivesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ubmc",
		Subsystem: "watchdog",
		Name:      "keepalives_total",
		Help:      "Keepalives received from whoever has the watchdog open",
	}, []string{"device"})
	workerPingsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ubmc",
		Subsystem: "watchdog",
		Name:      "worker_pings_total",
		Help:      "Pings sent to the hardware on behalf of the opener",
	}, []string{"device"})
	timeoutSeconds = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "ubmc",
		Subsystem: "watchdog",
		Name:      "timeout_seconds",
		Help:      "Current watchdog timeout",
	}, []string{"device"})
	active = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "ubmc",
		Subsystem: "watchdog",
		Name:      "active",
		Help:      "Whether the watchdog has been started",
	}, []string{"device"})
	hwRunning = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "ubmc",
		Subsystem: "watchdog",
		Name:      "hw_running",
		Help:      "Whether the hardware is counting without an opener",
	}, []string{"device"})
)

func init() {
	prometheus.MustRegister(keepalivesTotal)
	prometheus.MustRegister(workerPingsTotal)
	prometheus.MustRegister(timeoutSeconds)
	prometheus.MustRegister(active)
	prometheus.MustRegister(hwRunning)
}

type metrics struct {
	device      string
	keepalives  prometheus.Counter
	workerPings prometheus.Counter
}

func newMetrics(device string) *metrics {
	return &metrics{
		device:      device,
		keepalives:  keepalivesTotal.WithLabelValues(device),
		workerPings: workerPingsTotal.WithLabelValues(device),
	}
}

func b2f(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// update is called with the device lock held
func (m *metrics) update(d *Device) {
	timeoutSeconds.WithLabelValues(m.device).Set(float64(d.timeout))
	active.WithLabelValues(m.device).Set(b2f(d.active))
	hwRunning.WithLabelValues(m.device).Set(b2f(d.hwRunning && !d.active))
}

func (m *metrics) unregister() {
	keepalivesTotal.DeleteLabelValues(m.device)
	workerPingsTotal.DeleteLabelValues(m.device)
	timeoutSeconds.DeleteLabelValues(m.device)
	active.DeleteLabelValues(m.device)
	hwRunning.DeleteLabelValues(m.device)
}
