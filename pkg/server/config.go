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
	"fmt"
	"net"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/NVIDIA/httpdispatch/pkg/defaults"
	cnserrors "github.com/NVIDIA/httpdispatch/pkg/errors"
)

// Environment variables consulted by NewOptions.
const (
	EnvListenAddr      = "HTTPDIS_LISTEN_ADDR"
	EnvListenPort      = "HTTPDIS_LISTEN_PORT"
	EnvPort            = "PORT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT_SECONDS"
	EnvMaxBodySize     = "HTTPDIS_MAX_BODY_SIZE"
)

// Protocol versions accepted for the response status line.
const (
	ProtocolHTTP10 = "HTTP/1.0"
	ProtocolHTTP11 = "HTTP/1.1"
)

// Options is the server options table. It is read-only once Init returns.
type Options struct {
	// Basic authentication realm and credential file. An empty file
	// disables authentication entirely.
	AuthBasic     string `json:"auth_basic" yaml:"auth_basic" toml:"auth_basic"`
	AuthBasicFile string `json:"auth_basic_file" yaml:"auth_basic_file" toml:"auth_basic_file"`

	// TestMethods registers GET /fortytwo and POST /ping.
	TestMethods bool `json:"testmethods" yaml:"testmethods" toml:"testmethods"`

	// MaxBodySize is the largest accepted Content-Length in bytes.
	MaxBodySize int64 `json:"max_body_size" yaml:"max_body_size" toml:"max_body_size"`

	// Connection server tuning; zero means unlimited.
	MaxWorkers  int64 `json:"max_workers" yaml:"max_workers" toml:"max_workers"`
	MaxRequests int64 `json:"max_requests" yaml:"max_requests" toml:"max_requests"`
	MaxLifeTime int64 `json:"max_life_time" yaml:"max_life_time" toml:"max_life_time"` // seconds

	ListenAddr string `json:"listen_addr" yaml:"listen_addr" toml:"listen_addr"`
	ListenPort int    `json:"listen_port" yaml:"listen_port" toml:"listen_port"`

	// ServerVersion and SysVersion make up the Server response header.
	ServerVersion string `json:"server_version" yaml:"server_version" toml:"server_version"`
	SysVersion    string `json:"sys_version" yaml:"sys_version" toml:"sys_version"`

	ProtocolVersion   string        `json:"protocol_version" yaml:"protocol_version" toml:"protocol_version"`
	ReadHeaderTimeout time.Duration `json:"read_header_timeout" yaml:"read_header_timeout" toml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout" toml:"shutdown_timeout"`

	// RateLimit is requests per second across all connections; zero
	// disables the limiter.
	RateLimit      float64 `json:"rate_limit" yaml:"rate_limit" toml:"rate_limit"`
	RateLimitBurst int     `json:"rate_limit_burst" yaml:"rate_limit_burst" toml:"rate_limit_burst"`

	// MetricsPath, when set, exposes the Prometheus registry as a GET command.
	MetricsPath string `json:"metrics_path" yaml:"metrics_path" toml:"metrics_path"`

	// Probes registers GET /health and GET /ready.
	Probes bool `json:"probes" yaml:"probes" toml:"probes"`

	// SystemdSocket takes the listener from systemd socket activation
	// instead of binding ListenAddr:ListenPort.
	SystemdSocket bool `json:"systemd_socket" yaml:"systemd_socket" toml:"systemd_socket"`

	LogLevel string `json:"log_level" yaml:"log_level" toml:"log_level"`
}

// NewOptions returns the default options with environment overrides applied.
func NewOptions() *Options {
	return parseOptions()
}

func parseOptions() *Options {
	opts := &Options{
		AuthBasic:         "",
		MaxBodySize:       defaults.MaxBodySize,
		ListenAddr:        "",
		ListenPort:        8080,
		ServerVersion:     name + "/" + version,
		SysVersion:        strings.Replace(runtime.Version(), "go", "Go/", 1),
		ProtocolVersion:   ProtocolHTTP10,
		ReadHeaderTimeout: defaults.ServerReadHeaderTimeout,
		ShutdownTimeout:   defaults.ServerShutdownTimeout,
		RateLimitBurst:    1,
	}

	if addr := os.Getenv(EnvListenAddr); addr != "" {
		opts.ListenAddr = addr
	}

	for _, key := range []string{EnvPort, EnvListenPort} {
		if portStr := os.Getenv(key); portStr != "" {
			var port int
			if _, err := fmt.Sscanf(portStr, "%d", &port); err == nil {
				opts.ListenPort = port
			}
		}
	}

	if shutdownStr := os.Getenv(EnvShutdownTimeout); shutdownStr != "" {
		var seconds int
		if _, err := fmt.Sscanf(shutdownStr, "%d", &seconds); err == nil && seconds > 0 {
			opts.ShutdownTimeout = time.Duration(seconds) * time.Second
		}
	}

	if sizeStr := os.Getenv(EnvMaxBodySize); sizeStr != "" {
		var size int64
		if _, err := fmt.Sscanf(sizeStr, "%d", &size); err == nil && size >= 0 {
			opts.MaxBodySize = size
		}
	}

	return opts
}

// Merge overlays every non-zero field of other onto o. Boolean switches can
// only be turned on by the overlay.
func (o *Options) Merge(other *Options) *Options {
	if other == nil {
		return o
	}

	mergeString(&o.AuthBasic, other.AuthBasic)
	mergeString(&o.AuthBasicFile, other.AuthBasicFile)
	o.TestMethods = o.TestMethods || other.TestMethods
	mergeNumber(&o.MaxBodySize, other.MaxBodySize)
	mergeNumber(&o.MaxWorkers, other.MaxWorkers)
	mergeNumber(&o.MaxRequests, other.MaxRequests)
	mergeNumber(&o.MaxLifeTime, other.MaxLifeTime)
	mergeString(&o.ListenAddr, other.ListenAddr)
	mergeNumber(&o.ListenPort, other.ListenPort)
	mergeString(&o.ServerVersion, other.ServerVersion)
	mergeString(&o.SysVersion, other.SysVersion)
	mergeString(&o.ProtocolVersion, other.ProtocolVersion)
	mergeNumber(&o.ReadHeaderTimeout, other.ReadHeaderTimeout)
	mergeNumber(&o.ShutdownTimeout, other.ShutdownTimeout)
	mergeNumber(&o.RateLimit, other.RateLimit)
	mergeNumber(&o.RateLimitBurst, other.RateLimitBurst)
	mergeString(&o.MetricsPath, other.MetricsPath)
	o.Probes = o.Probes || other.Probes
	o.SystemdSocket = o.SystemdSocket || other.SystemdSocket
	mergeString(&o.LogLevel, other.LogLevel)

	return o
}

func mergeString(dst *string, src string) {
	if src != "" {
		*dst = src
	}
}

func mergeNumber[T int | int64 | float64 | time.Duration](dst *T, src T) {
	if src != 0 {
		*dst = src
	}
}

// Validate rejects option values the server cannot run with.
func (o *Options) Validate() error {
	invalid := func(key string, value any) error {
		return cnserrors.NewWithContext(cnserrors.ErrCodeInvalidConfig,
			fmt.Sprintf("invalid value for %s: %v", key, value),
			map[string]any{"option": key, "value": value})
	}

	switch {
	case o.MaxBodySize < 0:
		return invalid("max_body_size", o.MaxBodySize)
	case o.MaxWorkers < 0:
		return invalid("max_workers", o.MaxWorkers)
	case o.MaxRequests < 0:
		return invalid("max_requests", o.MaxRequests)
	case o.MaxLifeTime < 0:
		return invalid("max_life_time", o.MaxLifeTime)
	case o.ListenPort < 0 || o.ListenPort > 65535:
		return invalid("listen_port", o.ListenPort)
	case o.ProtocolVersion != ProtocolHTTP10 && o.ProtocolVersion != ProtocolHTTP11:
		return invalid("protocol_version", o.ProtocolVersion)
	case o.ReadHeaderTimeout < 0:
		return invalid("read_header_timeout", o.ReadHeaderTimeout)
	case o.ShutdownTimeout < 0:
		return invalid("shutdown_timeout", o.ShutdownTimeout)
	case o.RateLimit < 0:
		return invalid("rate_limit", o.RateLimit)
	case o.RateLimit > 0 && o.RateLimitBurst < 1:
		return invalid("rate_limit_burst", o.RateLimitBurst)
	case o.MetricsPath != "" && strings.Trim(o.MetricsPath, "/") == "":
		return invalid("metrics_path", o.MetricsPath)
	}

	return nil
}

// Addr returns the host:port pair to listen on.
func (o *Options) Addr() string {
	return net.JoinHostPort(o.ListenAddr, strconv.Itoa(o.ListenPort))
}

// MaxLifeTimeDuration returns MaxLifeTime as a duration.
func (o *Options) MaxLifeTimeDuration() time.Duration {
	return time.Duration(o.MaxLifeTime) * time.Second
}
