// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package emulator

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/Thermoquad/helix/internal/transport"
)

// WebSocketServer exposes a Device over WebSocket. Only one client is
// served at a time, like a serial port.
type WebSocketServer struct {
	dev      *Device
	path     string
	logger   zerolog.Logger
	upgrader websocket.Upgrader

	mu     sync.Mutex
	active bool
	ctx    context.Context
}

// NewWebSocketServer creates a server for dev at path. Connections end when
// ctx is cancelled.
func NewWebSocketServer(ctx context.Context, dev *Device, path string, logger zerolog.Logger) *WebSocketServer {
	return &WebSocketServer{
		dev:    dev,
		path:   path,
		logger: logger,
		ctx:    ctx,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (s *WebSocketServer) acquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		return false
	}
	s.active = true
	return true
}

func (s *WebSocketServer) release() {
	s.mu.Lock()
	s.active = false
	s.mu.Unlock()
}

// ServeHTTP implements http.Handler
func (s *WebSocketServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != s.path {
		http.NotFound(w, r)
		return
	}
	if !s.acquire() {
		http.Error(w, "device busy", http.StatusConflict)
		return
	}
	defer s.release()

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	conn := transport.NewWebSocketConnection(ws)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-s.ctx.Done():
		case <-done:
		}
		conn.Close()
	}()

	s.logger.Info().Str("remote", r.RemoteAddr).Msg("client connected")
	if err := s.dev.Serve(s.ctx, conn); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Debug().Err(err).Str("remote", r.RemoteAddr).Msg("client disconnected")
	}
}

// ListenAndServe serves the WebSocket endpoint on addr until ctx is
// cancelled. ready, if not nil, receives the bound address.
func (s *WebSocketServer) ListenAndServe(addr string, ready chan<- net.Addr) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	if ready != nil {
		ready <- ln.Addr()
	}

	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-s.ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info().Str("addr", ln.Addr().String()).Str("path", s.path).Msg("websocket listening")
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ServeSerial runs dev on a serial port until ctx is cancelled or the port
// fails
func ServeSerial(ctx context.Context, dev *Device, portName string, baudRate int) error {
	conn, err := transport.OpenSerial(portName, baudRate)
	if err != nil {
		return err
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
		}
		conn.Close()
	}()

	err = dev.Serve(ctx, conn)
	if ctx.Err() != nil {
		// Closing the port on cancel fails the pending read
		return nil
	}
	return err
}
