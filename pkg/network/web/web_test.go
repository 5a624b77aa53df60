// Copyright 2023 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package web

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jmhodges/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/u-root/aspeed-wdt/pkg/watchdog"
)

type nopOps struct{}

func (nopOps) Start()            {}
func (nopOps) Stop()             {}
func (nopOps) Ping()             {}
func (nopOps) SetTimeout(uint32) {}
func (nopOps) Restart(string)    {}

func testServer(t *testing.T) (*WebServer, *watchdog.Device) {
	return testServerPinging(t, 0)
}

func testServerPinging(t *testing.T, interval time.Duration) (*WebServer, *watchdog.Device) {
	d, err := watchdog.Register(nopOps{}, watchdog.Options{
		Identity: t.Name(),
		Timeout:  30,
		Clock:    clock.NewFake(),
	})
	require.NoError(t, err)
	t.Cleanup(d.Unregister)
	w := NewWebserver()
	w.HandleWatchdog(d, interval)
	return w, d
}

func do(w *WebServer, method, path, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	rec := httptest.NewRecorder()
	w.Router.ServeHTTP(rec, httptest.NewRequest(method, path, r))
	return rec
}

func TestStatus(t *testing.T) {
	w, _ := testServer(t)
	rec := do(w, http.MethodGet, "/api/v1/watchdog", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var s watchdog.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &s))
	assert.Equal(t, t.Name(), s.Identity)
	assert.Equal(t, uint32(30), s.Timeout)
	assert.False(t, s.Active)
}

func TestKeepAlive(t *testing.T) {
	w, d := testServer(t)
	rec := do(w, http.MethodPost, "/api/v1/watchdog/keepalive", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	require.NoError(t, d.Open())
	rec = do(w, http.MethodPost, "/api/v1/watchdog/keepalive", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(w, http.MethodGet, "/api/v1/watchdog/keepalive", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestSetTimeout(t *testing.T) {
	w, d := testServer(t)
	rec := do(w, http.MethodPut, "/api/v1/watchdog/timeout", `{"timeout": 120}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, uint32(120), d.Timeout())

	for _, body := range []string{`{"timeout": 0}`, `{"seconds": 5}`, `120`, ``} {
		rec = do(w, http.MethodPut, "/api/v1/watchdog/timeout", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "body %q", body)
	}
	assert.Equal(t, uint32(120), d.Timeout())
}

func TestSetTimeoutBelowPingInterval(t *testing.T) {
	w, d := testServerPinging(t, 10*time.Second)
	for _, body := range []string{`{"timeout": 5}`, `{"timeout": 10}`} {
		rec := do(w, http.MethodPut, "/api/v1/watchdog/timeout", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "body %q", body)
	}
	assert.Equal(t, uint32(30), d.Timeout())

	rec := do(w, http.MethodPut, "/api/v1/watchdog/timeout", `{"timeout": 11}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, uint32(11), d.Timeout())
}

func TestMetrics(t *testing.T) {
	w, _ := testServer(t)
	rec := do(w, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `ubmc_watchdog_timeout_seconds{device="TestMetrics"} 30`)
}

func TestServe(t *testing.T) {
	w, _ := testServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.SetServer(ctx, "127.0.0.1:0"))
	done := make(chan error, 1)
	go func() {
		done <- w.Serve(ctx)
	}()

	resp, err := http.Get("http://" + w.Listener.Addr().String() + "/api/v1/watchdog")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestSetServerGivesUp(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	w := NewWebserver()
	w.attempts = 2
	w.retry.Min = time.Millisecond
	w.retry.Max = time.Millisecond
	assert.Error(t, w.SetServer(context.Background(), l.Addr().String()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w.attempts = 0
	assert.Error(t, w.SetServer(ctx, l.Addr().String()))
}
