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

package cli

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/NVIDIA/httpdispatch/pkg/config"
	"github.com/NVIDIA/httpdispatch/pkg/server"
)

func serverFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to a YAML, TOML or JSON config file",
			Sources: cli.EnvVars("HTTPDIS_CONFIG"),
		},
		&cli.StringFlag{
			Name:  "listen-addr",
			Usage: "Address to bind (default: all interfaces)",
		},
		&cli.IntFlag{
			Name:  "listen-port",
			Usage: "Port to bind",
		},
		&cli.StringFlag{
			Name:    "log-level",
			Value:   "info",
			Usage:   "Log level (debug, info, warn, error)",
			Sources: cli.EnvVars("LOG_LEVEL"),
		},
		&cli.StringFlag{
			Name:  "auth-file",
			Usage: "htpasswd style credential file enabling Basic authentication",
		},
		&cli.StringFlag{
			Name:  "realm",
			Usage: "Basic authentication realm",
		},
		&cli.StringFlag{
			Name:  "static-root",
			Usage: "Directory to serve as static files",
		},
		&cli.StringFlag{
			Name:  "static-prefix",
			Value: "static",
			Usage: "Path prefix of the static files",
		},
		&cli.BoolFlag{
			Name:  "static-auth",
			Usage: "Require Basic authentication for static files",
		},
		&cli.BoolFlag{
			Name:  "testmethods",
			Usage: "Register GET /fortytwo and POST /ping",
		},
		&cli.StringFlag{
			Name:  "metrics",
			Usage: "Path of the Prometheus metrics command (e.g. /metrics)",
		},
		&cli.BoolFlag{
			Name:  "probes",
			Usage: "Register GET /health and GET /ready",
		},
		&cli.BoolFlag{
			Name:  "systemd-socket",
			Usage: "Take the listener from systemd socket activation",
		},
	}
}

// optionsFromCmd loads the config file, if any, and applies the flags the
// user set on top of it.
func optionsFromCmd(cmd *cli.Command) (*server.Options, error) {
	opts := server.NewOptions()
	if path := cmd.String("config"); path != "" {
		var err error
		if opts, err = config.Load(path); err != nil {
			return nil, err
		}
	}

	if cmd.IsSet("listen-addr") {
		opts.ListenAddr = cmd.String("listen-addr")
	}
	if cmd.IsSet("listen-port") {
		opts.ListenPort = int(cmd.Int("listen-port"))
	}
	if cmd.IsSet("log-level") || opts.LogLevel == "" {
		opts.LogLevel = cmd.String("log-level")
	}
	if cmd.IsSet("auth-file") {
		opts.AuthBasicFile = cmd.String("auth-file")
	}
	if cmd.IsSet("realm") {
		opts.AuthBasic = cmd.String("realm")
	}
	if cmd.IsSet("testmethods") {
		opts.TestMethods = cmd.Bool("testmethods")
	}
	if cmd.IsSet("metrics") {
		opts.MetricsPath = cmd.String("metrics")
	}
	if cmd.IsSet("probes") {
		opts.Probes = cmd.Bool("probes")
	}
	if cmd.IsSet("systemd-socket") {
		opts.SystemdSocket = cmd.Bool("systemd-socket")
	}

	if err := opts.Validate(); err != nil {
		return nil, err
	}

	return opts, nil
}

// registerStatic adds a GET/HEAD command serving --static-root below
// --static-prefix.
func registerStatic(srv *server.Server, cmd *cli.Command) error {
	root := cmd.String("static-root")
	if root == "" {
		return nil
	}

	copts := []server.CommandOption{
		server.WithPattern(staticPattern(cmd.String("static-prefix"))),
		server.WithReplacement("${path}"),
		server.WithStatic(root),
	}
	if cmd.Bool("static-auth") {
		copts = append(copts, server.WithAuth())
	}

	if _, err := srv.Register(nil, []string{http.MethodGet, http.MethodHead}, copts...); err != nil {
		return fmt.Errorf("failed to register static root %q: %w", root, err)
	}
	return nil
}

func staticPattern(prefix string) string {
	prefix = regexp.QuoteMeta(strings.Trim(prefix, "/"))
	if prefix == "" {
		return `(?P<path>.+)`
	}
	return prefix + `/(?P<path>.*)`
}
