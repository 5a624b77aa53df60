// Copyright 2021-2023 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package web

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/jpillora/backoff"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/u-root/aspeed-wdt/pkg/logger"
	"go.uber.org/zap"
)

var log = logger.LogContainer.GetSimpleLogger()

// WebServer is the struct that holds all necessary information
// for a single port on which web services are served on
type WebServer struct {
	Router   *mux.Router
	Serv     *http.Server
	Listener net.Listener

	retry *backoff.Backoff
	// Give up listening after this many failed attempts, 0 retries forever
	attempts int
}

// NewWebserver returns a WebServer with /metrics already routed
func NewWebserver() *WebServer {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	return &WebServer{
		Router: r,
		retry: &backoff.Backoff{
			Min:    100 * time.Millisecond,
			Max:    10 * time.Second,
			Factor: 2,
			Jitter: true,
		},
	}
}

// SetServer starts listening on addr. The address may still be held by a
// previous instance shutting down, so failures are retried with backoff
// until ctx is done.
func (w *WebServer) SetServer(ctx context.Context, addr string) error {
	w.Serv = &http.Server{
		Addr:              addr,
		Handler:           handlers.CombinedLoggingHandler(accessLog(), w.Router),
		ReadHeaderTimeout: 10 * time.Second,
	}
	defer w.retry.Reset()
	for {
		l, err := net.Listen("tcp", addr)
		if err == nil {
			w.Listener = l
			return nil
		}
		if w.attempts != 0 && int(w.retry.Attempt())+1 >= w.attempts {
			return errors.Wrapf(err, "listen on %s", addr)
		}
		d := w.retry.Duration()
		log.Warnf("listen on %s: %v, retrying in %v", addr, err, d)
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return errors.Wrapf(ctx.Err(), "listen on %s", addr)
		}
	}
}

// Serve serves until ctx is done, then shuts down gracefully
func (w *WebServer) Serve(ctx context.Context) error {
	if w.Listener == nil {
		return errors.New("web server is not listening")
	}
	errc := make(chan error, 1)
	go func() {
		errc <- w.Serv.Serve(w.Listener)
	}()
	log.Infof("serving on %s", w.Listener.Addr())
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := w.Serv.Shutdown(sctx); err != nil {
		return err
	}
	if err := <-errc; err != http.ErrServerClosed {
		return err
	}
	return nil
}

func accessLog() *zapWriter {
	return &zapWriter{logger.LogContainer.GetLogger().Named("http")}
}

type zapWriter struct {
	l *zap.Logger
}

func (z *zapWriter) Write(p []byte) (int, error) {
	n := len(p)
	if n > 0 && p[n-1] == '\n' {
		p = p[:n-1]
	}
	z.l.Debug(string(p))
	return n, nil
}
