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

package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/coreos/go-systemd/v22/activation"
	"github.com/coreos/go-systemd/v22/daemon"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/NVIDIA/httpdispatch/pkg/auth"
	"github.com/NVIDIA/httpdispatch/pkg/conn"
	cnserrors "github.com/NVIDIA/httpdispatch/pkg/errors"
	"github.com/NVIDIA/httpdispatch/pkg/mimetype"
)

// Server owns the command router, the options table and the connection
// server. Router, options and credential store are read-only after Init.
type Server struct {
	callerOpts *Options
	listener   net.Listener
	opts       *Options
	router     *Router
	gate       *auth.Gate
	classifier mimetype.Classifier
	limiter    *rate.Limiter
	logger     *slog.Logger
	handler    stage

	contentTypes []string
	multipart    bool

	mu          sync.Mutex
	conn        *conn.Server
	initialized bool
	started     bool

	ready    atomic.Bool
	killed   atomic.Bool
	stopOnce sync.Once
	done     chan struct{}
}

// Option is a functional option for configuring Server instances.
type Option func(*Server)

// WithOptions sets the caller options merged over the defaults by Init.
func WithOptions(opts *Options) Option {
	return func(s *Server) {
		s.callerOpts = opts
	}
}

// WithListener serves on an already bound listener instead of
// listen_addr:listen_port.
func WithListener(ln net.Listener) Option {
	return func(s *Server) {
		s.listener = ln
	}
}

// WithRouter uses an existing router instead of an empty one.
func WithRouter(r *Router) Option {
	return func(s *Server) {
		s.router = r
	}
}

// WithLogger sets the logger used for request and lifecycle records.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithClassifier sets the MIME classifier used by static commands.
func WithClassifier(c mimetype.Classifier) Option {
	return func(s *Server) {
		s.classifier = c
	}
}

// New creates a new Server. Commands are registered on it before Init.
func New(opts ...Option) *Server {
	s := &Server{
		router:     NewRouter(),
		classifier: mimetype.NewDetector(),
		logger:     slog.Default(),
		multipart:  true,
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.opts = NewOptions().Merge(s.callerOpts)
	return s
}

// Router returns the server router.
func (s *Server) Router() *Router {
	return s.router
}

// Options returns the options table. It is only complete after Init.
func (s *Server) Options() *Options {
	return s.opts
}

// Register adds a command. See Router.Register.
func (s *Server) Register(h HandlerFunc, methods []string, opts ...CommandOption) (*Command, error) {
	return s.router.Register(h, methods, opts...)
}

// PermitContentType adds a request content type accepted by commands that
// do not declare their own list. With an empty list any type is accepted.
func (s *Server) PermitContentType(ctype string) *Server {
	ctype = strings.ToLower(strings.TrimSpace(ctype))
	if ctype != "" && !slices.Contains(s.contentTypes, ctype) {
		s.contentTypes = append(s.contentTypes, ctype)
	}
	return s
}

// ForbidContentType removes a content type added by PermitContentType.
func (s *Server) ForbidContentType(ctype string) *Server {
	ctype = strings.ToLower(strings.TrimSpace(ctype))
	s.contentTypes = slices.DeleteFunc(s.contentTypes, func(t string) bool { return t == ctype })
	return s
}

// PermitMultipart accepts multipart/form-data bodies by default.
func (s *Server) PermitMultipart() *Server {
	s.multipart = true
	return s
}

// ForbidMultipart rejects multipart/form-data bodies by default.
func (s *Server) ForbidMultipart() *Server {
	s.multipart = false
	return s
}

// Init merges the options, registers the built-in commands, loads the
// credential store and runs every safe_init callback in registration
// order. It must be called once, after registration and before Run.
func (s *Server) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return cnserrors.New(cnserrors.ErrCodeInternal, "server already initialized")
	}

	s.opts = NewOptions().Merge(s.callerOpts)
	if err := s.opts.Validate(); err != nil {
		return err
	}

	if err := s.registerBuiltins(); err != nil {
		return err
	}

	var store *auth.Store
	if s.opts.AuthBasicFile != "" {
		var err error
		if store, err = auth.Load(s.opts.AuthBasicFile); err != nil {
			return err
		}
		s.logger.Info("credential store loaded",
			"file", s.opts.AuthBasicFile,
			"users", store.Len())
	}
	s.gate = auth.NewGate(store, s.opts.AuthBasic)

	if s.opts.RateLimit > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(s.opts.RateLimit), s.opts.RateLimitBurst)
	}

	for _, cmd := range s.router.Commands() {
		if cmd.safeInit == nil {
			continue
		}
		s.logger.Info("safe_init", "command", cmd.name)
		if err := cmd.safeInit(s.opts); err != nil {
			return cnserrors.Wrap(cnserrors.ErrCodeInternal,
				fmt.Sprintf("safe_init failed for %q", cmd.name), err)
		}
	}

	s.router.freeze()
	s.handler = s.withMiddleware(s.dispatch)
	s.conn = conn.New(conn.Config{
		MaxWorkers:  s.opts.MaxWorkers,
		MaxRequests: s.opts.MaxRequests,
		MaxLifeTime: s.opts.MaxLifeTimeDuration(),
	}, s)
	s.initialized = true

	return nil
}

func (s *Server) registerBuiltins() error {
	if s.opts.TestMethods {
		if _, err := s.router.Register(fortytwo, []string{"GET"}); err != nil {
			return err
		}
		if _, err := s.router.Register(ping, []string{"POST"}); err != nil {
			return err
		}
	}

	if s.opts.Probes {
		if _, err := s.router.Register(s.handleHealth, []string{"GET"}, WithName("health"), WithLog(false)); err != nil {
			return err
		}
		if _, err := s.router.Register(s.handleReady, []string{"GET"}, WithName("ready"), WithLog(false)); err != nil {
			return err
		}
	}

	if s.opts.MetricsPath != "" {
		if _, err := s.router.Register(metricsHandler, []string{"GET"},
			WithName(strings.Trim(s.opts.MetricsPath, "/")), WithLog(false)); err != nil {
			return err
		}
	}

	return nil
}

// fortytwo is the GET test method.
func fortytwo(_ *Request) (any, error) {
	return 42, nil
}

// ping is the POST test method; it echoes the payload parameters.
func ping(req *Request) (any, error) {
	return req.PayloadParams(), nil
}

// Start binds the listener, from systemd socket activation when enabled.
// Run calls it when needed.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return cnserrors.New(cnserrors.ErrCodeInternal, "server not initialized")
	}
	if s.started {
		return nil
	}

	switch {
	case s.listener != nil:
		s.conn.StartListener(s.listener)
	case s.opts.SystemdSocket:
		listeners, err := activation.Listeners()
		if err != nil {
			return cnserrors.Wrap(cnserrors.ErrCodeUnavailable, "failed to read systemd sockets", err)
		}
		if len(listeners) == 0 || listeners[0] == nil {
			return cnserrors.New(cnserrors.ErrCodeInvalidConfig, "no socket passed by systemd")
		}
		s.conn.StartListener(listeners[0])
	default:
		if err := s.conn.Start(s.opts.Addr()); err != nil {
			return cnserrors.Wrap(cnserrors.ErrCodeUnavailable, "failed to start connection server", err)
		}
	}

	s.started = true
	return nil
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	return s.conn.Addr()
}

// Run starts the connection server, runs every at_start callback and
// serves until Stop is called or ctx is done. In-flight connections get
// up to shutdown_timeout to finish.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Start(); err != nil {
		return err
	}
	defer context.AfterFunc(ctx, s.Stop)()

	for _, cmd := range s.router.Commands() {
		if cmd.atStart == nil {
			continue
		}
		s.logger.Info("at_start", "command", cmd.name)
		if err := cmd.atStart(s.opts); err != nil {
			s.Stop()
			return cnserrors.Wrap(cnserrors.ErrCodeInternal,
				fmt.Sprintf("at_start failed for %q", cmd.name), err)
		}
	}

	s.ready.Store(!s.killed.Load())
	if _, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		s.logger.Debug("systemd notify failed", "error", err)
	}

	s.logger.Info("will now serve", "addr", s.Addr().String())

	for !s.killed.Load() {
		err := s.conn.Serve(ctx)
		switch {
		case err == nil:
		case errors.Is(err, syscall.EINTR):
			s.logger.Debug("interrupted system call")
		case s.killed.Load() && (errors.Is(err, net.ErrClosed) || errors.Is(err, syscall.EBADF)):
			s.logger.Debug("server close")
		case errors.Is(err, conn.ErrExhausted):
			s.logger.Info("connection limits reached",
				"maxRequests", s.opts.MaxRequests,
				"maxLifeTime", s.opts.MaxLifeTime)
			s.Stop()
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			s.Stop()
		default:
			s.Stop()
			return fmt.Errorf("serve failed: %w", err)
		}
	}

	if err := s.conn.Close(); err != nil {
		s.logger.Warn("failed to close listener", "error", err)
	}

	drainCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()
	if err := s.conn.Wait(drainCtx); err != nil {
		s.logger.Warn("in-flight connections still running after shutdown timeout",
			"timeout", s.opts.ShutdownTimeout.String())
	}

	s.logger.Info("exiting")
	return nil
}

// Stop runs every at_stop callback, sets the kill flag and closes the
// listener. It is safe to call more than once and from any goroutine.
// A connection accepted concurrently with Stop may still be served.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		s.ready.Store(false)
		if _, err := daemon.SdNotify(false, daemon.SdNotifyStopping); err != nil {
			s.logger.Debug("systemd notify failed", "error", err)
		}

		for _, cmd := range s.router.Commands() {
			if cmd.atStop == nil {
				continue
			}
			s.logger.Info("at_stop", "command", cmd.name)
			cmd.atStop()
		}

		s.killed.Store(true)

		s.mu.Lock()
		c := s.conn
		s.mu.Unlock()
		if c != nil {
			if err := c.Close(); err != nil {
				s.logger.Warn("failed to close listener", "error", err)
			}
		}

		close(s.done)
	})
}

// Done is closed once Stop has run.
func (s *Server) Done() <-chan struct{} {
	return s.done
}

// notifyContext is replaced in tests.
var notifyContext = signal.NotifyContext

// Serve initializes the server if needed and runs it until SIGINT or
// SIGTERM, or until ctx is done.
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	initialized := s.initialized
	s.mu.Unlock()
	if !initialized {
		if err := s.Init(); err != nil {
			return err
		}
	}

	version, commit, date := BuildInfo()
	s.logger.Info("starting server",
		"version", version,
		"commit", commit,
		"date", date,
		"addr", s.opts.Addr(),
		"maxBodySize", s.opts.MaxBodySize,
		"maxWorkers", s.opts.MaxWorkers,
		"maxRequests", s.opts.MaxRequests,
		"maxLifeTime", s.opts.MaxLifeTime,
		"rateLimit", s.opts.RateLimit,
		"shutdownTimeout", s.opts.ShutdownTimeout.String(),
		"auth", s.gate.Enabled(),
	)

	ctx, stop := notifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.Run(gctx)
	})

	g.Go(func() error {
		select {
		case <-gctx.Done():
			// restore default signal handling so a second signal ends a
			// drain that does not finish
			stop()
			s.logger.Info("shutdown requested")
			s.Stop()
		case <-s.done:
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	s.logger.Info("server stopped gracefully")
	return nil
}
