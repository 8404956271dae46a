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
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/NVIDIA/httpdispatch/pkg/logging"
	"github.com/NVIDIA/httpdispatch/pkg/server"
)

const name = "httpdisd"

// Execute runs the root command with the process arguments and exits
// non-zero on failure.
func Execute() {
	if err := newRootCmd().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cli.Command {
	version, commit, date := server.BuildInfo()

	return &cli.Command{
		Name:                  name,
		Version:               version,
		EnableShellCompletion: true,
		Usage:                 "Dispatch HTTP requests to registered commands",
		Description: fmt.Sprintf(`httpdisd - HTTP request dispatch server

Version: %s
Commit:  %s
Built:   %s

Serves a directory of static files and the built-in commands
(test methods, health probes, metrics) behind optional Basic
authentication.`, version, commit, date),
		Flags:  serverFlags(),
		Before: initLogger,
		Action: serveAction,
		Commands: []*cli.Command{
			configCmd(),
		},
	}
}

// initLogger configures slog after flags are parsed so --log-level takes
// effect before the server is built.
func initLogger(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	version, commit, date := server.BuildInfo()
	level := cmd.String("log-level")

	logging.SetDefaultStructuredLoggerWithLevel(name, version, level)
	slog.Debug("starting",
		"name", name,
		"version", version,
		"commit", commit,
		"date", date,
		"logLevel", level)

	return ctx, nil
}

func serveAction(ctx context.Context, cmd *cli.Command) error {
	opts, err := optionsFromCmd(cmd)
	if err != nil {
		return err
	}

	// the config file may carry its own log level
	version, _, _ := server.BuildInfo()
	logging.SetDefaultStructuredLoggerWithLevel(name, version, opts.LogLevel)

	srv := server.New(server.WithOptions(opts), server.WithLogger(slog.Default()))
	if err := registerStatic(srv, cmd); err != nil {
		return err
	}

	return srv.Serve(ctx)
}
