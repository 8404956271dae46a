// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package conn is the connection server: it owns the listening socket,
// accepts connections and runs one goroutine per connection.
package conn

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/NVIDIA/httpdispatch/pkg/defaults"
)

var (
	// ErrServerClosed is returned by Serve after Close.
	ErrServerClosed = fmt.Errorf("conn: server closed: %w", net.ErrClosed)

	// ErrExhausted is returned by Serve once MaxRequests connections were
	// accepted or MaxLifeTime elapsed.
	ErrExhausted = errors.New("conn: server exhausted")

	// ErrNotStarted is returned by Serve before Start.
	ErrNotStarted = errors.New("conn: server not started")
)

// Handler serves a single connection. The connection is closed by the
// server when ServeConn returns.
type Handler interface {
	ServeConn(c net.Conn)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(c net.Conn)

// ServeConn calls f(c).
func (f HandlerFunc) ServeConn(c net.Conn) {
	f(c)
}

// Config tunes the accept loop. Zero values mean unlimited.
type Config struct {
	// MaxWorkers caps concurrently served connections.
	MaxWorkers int64

	// MaxRequests is the number of connections accepted before Serve
	// returns ErrExhausted.
	MaxRequests int64

	// MaxLifeTime is how long Serve accepts connections before returning
	// ErrExhausted.
	MaxLifeTime time.Duration
}

type deadliner interface {
	SetDeadline(t time.Time) error
}

// Server accepts connections and hands them to a Handler.
type Server struct {
	cfg     Config
	handler Handler

	mu      sync.Mutex
	ln      net.Listener
	started time.Time
	cancel  context.CancelFunc

	sem    *semaphore.Weighted
	wg     sync.WaitGroup
	served atomic.Int64
	closed atomic.Bool
}

// New returns a Server that is not yet listening.
func New(cfg Config, h Handler) *Server {
	s := &Server{cfg: cfg, handler: h}
	if cfg.MaxWorkers > 0 {
		s.sem = semaphore.NewWeighted(cfg.MaxWorkers)
	}
	return s
}

// Start listens on the TCP address addr.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.StartListener(ln)
	return nil
}

// StartListener adopts an existing listener, e.g. one passed in by systemd.
func (s *Server) StartListener(ln net.Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ln = ln
	s.started = time.Now()
}

// Addr returns the listening address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Served returns the number of accepted connections.
func (s *Server) Served() int64 {
	return s.served.Load()
}

// Serve accepts connections until the listener is closed, ctx is done or
// the configured limits are reached. Temporary accept errors are retried.
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	ln, started := s.ln, s.started
	s.mu.Unlock()
	if ln == nil {
		return ErrNotStarted
	}

	// Close cancels ctx so a loop parked on a full worker pool returns.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()
	if s.closed.Load() {
		return ErrServerClosed
	}

	var deadline time.Time
	if s.cfg.MaxLifeTime > 0 {
		deadline = started.Add(s.cfg.MaxLifeTime)
		if d, ok := ln.(deadliner); ok {
			_ = d.SetDeadline(deadline)
		}
	}

	var backoff time.Duration
	for {
		if s.exhausted(deadline) {
			return ErrExhausted
		}

		if s.sem != nil {
			if err := s.sem.Acquire(ctx, 1); err != nil {
				if s.closed.Load() {
					return ErrServerClosed
				}
				return err
			}
		}

		c, err := ln.Accept()
		if err != nil {
			s.release()

			if s.closed.Load() || errors.Is(err, net.ErrClosed) {
				return ErrServerClosed
			}
			if s.exhausted(deadline) {
				return ErrExhausted
			}

			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				backoff = nextBackoff(backoff)
				slog.Warn("accept error, retrying", "error", err, "backoff", backoff)
				select {
				case <-time.After(backoff):
					continue
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			return err
		}
		backoff = 0

		s.served.Add(1)
		s.wg.Add(1)
		go s.serveConn(c)
	}
}

func (s *Server) serveConn(c net.Conn) {
	defer s.wg.Done()
	defer s.release()
	defer c.Close()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("connection handler panic",
				"error", fmt.Sprint(r),
				"remote", c.RemoteAddr().String(),
				"stack", string(debug.Stack()))
		}
	}()

	s.handler.ServeConn(c)
}

func (s *Server) release() {
	if s.sem != nil {
		s.sem.Release(1)
	}
}

func (s *Server) exhausted(deadline time.Time) bool {
	if s.cfg.MaxRequests > 0 && s.served.Load() >= s.cfg.MaxRequests {
		return true
	}
	return !deadline.IsZero() && !time.Now().Before(deadline)
}

func nextBackoff(d time.Duration) time.Duration {
	if d == 0 {
		return 5 * time.Millisecond
	}
	d *= 2
	if d > defaults.ServerAcceptRetryMax {
		d = defaults.ServerAcceptRetryMax
	}
	return d
}

// Close closes the listener, unblocking a pending Accept or a wait for a
// free worker. In-flight connections are left to finish; see Wait.
func (s *Server) Close() error {
	s.closed.Store(true)

	s.mu.Lock()
	ln, cancel := s.ln, s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	if ln == nil {
		return nil
	}

	if err := ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}

// Wait blocks until every in-flight connection finished or ctx is done.
func (s *Server) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
