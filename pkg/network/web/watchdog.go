// Copyright 2023 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package web

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/u-root/aspeed-wdt/pkg/watchdog"
)

// Watchdog is the part of a watchdog.Device the API exposes.
type Watchdog interface {
	Status() watchdog.Status
	KeepAlive() error
	SetTimeout(seconds uint32) error
}

type TimeoutRequest struct {
	Timeout uint32 `json:"timeout"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// HandleWatchdog routes the watchdog API under /api/v1/watchdog. A non-zero
// interval is the period of the local ping loop, timeouts not longer than it
// are refused.
func (w *WebServer) HandleWatchdog(wd Watchdog, interval time.Duration) {
	w.Router.HandleFunc("/api/v1/watchdog", handleStatus(wd)).Methods(http.MethodGet)
	s := w.Router.PathPrefix("/api/v1/watchdog").Subrouter()
	s.HandleFunc("/keepalive", handleKeepAlive(wd)).Methods(http.MethodPost)
	s.HandleFunc("/timeout", handleTimeout(wd, interval)).Methods(http.MethodPut)
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warnf("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch errors.Cause(err) {
	case watchdog.ErrNotActive:
		code = http.StatusConflict
	case watchdog.ErrInvalidTimeout:
		code = http.StatusBadRequest
	case watchdog.ErrUnregistered:
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, ErrorResponse{Error: err.Error()})
}

func handleStatus(wd Watchdog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, wd.Status())
	}
}

func handleKeepAlive(wd Watchdog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := wd.KeepAlive(); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleTimeout(wd Watchdog, interval time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req TimeoutRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
		if interval != 0 && time.Duration(req.Timeout)*time.Second <= interval {
			err := errors.Wrapf(watchdog.ErrInvalidTimeout, "%ds with a ping every %v", req.Timeout, interval)
			writeError(w, err)
			return
		}
		if err := wd.SetTimeout(req.Timeout); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, wd.Status())
	}
}
