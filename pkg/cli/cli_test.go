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
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"github.com/NVIDIA/httpdispatch/pkg/server"
)

// runFlags parses args with the server flags and returns what the action saw.
func runFlags(t *testing.T, args ...string) (*server.Options, error) {
	t.Helper()

	var opts *server.Options
	var captured error
	testCmd := &cli.Command{
		Name:  "test",
		Flags: serverFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			opts, captured = optionsFromCmd(cmd)
			return nil
		},
	}

	err := testCmd.Run(context.Background(), append([]string{"test"}, args...))
	require.NoError(t, err)
	return opts, captured
}

func TestOptionsFromCmd(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		opts, err := runFlags(t)
		require.NoError(t, err)

		defaults := server.NewOptions()
		assert.Equal(t, defaults.ListenPort, opts.ListenPort)
		assert.Equal(t, "info", opts.LogLevel)
		assert.False(t, opts.TestMethods)
	})

	t.Run("flags", func(t *testing.T) {
		opts, err := runFlags(t,
			"--listen-addr", "127.0.0.1",
			"--listen-port", "9090",
			"--auth-file", "/etc/htpasswd",
			"--realm", "files",
			"--testmethods",
			"--metrics", "/metrics",
			"--probes",
			"--log-level", "debug",
		)
		require.NoError(t, err)

		assert.Equal(t, "127.0.0.1", opts.ListenAddr)
		assert.Equal(t, 9090, opts.ListenPort)
		assert.Equal(t, "/etc/htpasswd", opts.AuthBasicFile)
		assert.Equal(t, "files", opts.AuthBasic)
		assert.True(t, opts.TestMethods)
		assert.Equal(t, "/metrics", opts.MetricsPath)
		assert.True(t, opts.Probes)
		assert.Equal(t, "debug", opts.LogLevel)
	})

	t.Run("flags override config file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "httpdisd.yaml")
		require.NoError(t, os.WriteFile(path, []byte("listen_port: 7000\nmax_workers: 3\nlog_level: warn\n"), 0o600))

		opts, err := runFlags(t, "--config", path, "--listen-port", "7001")
		require.NoError(t, err)

		assert.Equal(t, 7001, opts.ListenPort)
		assert.Equal(t, int64(3), opts.MaxWorkers)
		assert.Equal(t, "warn", opts.LogLevel)
	})

	t.Run("missing config file", func(t *testing.T) {
		_, err := runFlags(t, "--config", filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
	})

	t.Run("invalid port", func(t *testing.T) {
		_, err := runFlags(t, "--listen-port", "99999")
		assert.Error(t, err)
	})
}

func TestStaticPattern(t *testing.T) {
	tests := []struct {
		prefix string
		want   string
	}{
		{"static", `static/(?P<path>.*)`},
		{"/assets/", `assets/(?P<path>.*)`},
		{"v1.0", `v1\.0/(?P<path>.*)`},
		{"", `(?P<path>.+)`},
	}

	for _, tt := range tests {
		t.Run(tt.prefix, func(t *testing.T) {
			assert.Equal(t, tt.want, staticPattern(tt.prefix))
		})
	}
}

func TestRegisterStatic(t *testing.T) {
	root := t.TempDir()

	var srv *server.Server
	testCmd := &cli.Command{
		Name:  "test",
		Flags: serverFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			srv = server.New()
			return registerStatic(srv, cmd)
		},
	}

	require.NoError(t, testCmd.Run(context.Background(), []string{"test", "--static-root", root, "--static-auth"}))

	cmds := srv.Router().Commands()
	require.Len(t, cmds, 1)
	assert.True(t, cmds[0].Static())
	assert.Equal(t, root, cmds[0].Root())
	assert.Equal(t, []string{"GET", "HEAD"}, cmds[0].Methods())
	assert.Equal(t, `static/(?P<path>.*)`, cmds[0].Name())
}

func TestConfigCommand(t *testing.T) {
	var out bytes.Buffer
	root := newRootCmd()
	root.Writer = &out

	err := root.Run(context.Background(), []string{
		name, "--listen-port", "9191", "--testmethods", "--log-level", "error",
		"config", "--format", "json",
	})
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, float64(9191), got["listen_port"])
	assert.Equal(t, true, got["testmethods"])
	assert.Equal(t, "error", got["log_level"])
}

func TestConfigCommandUnknownFormat(t *testing.T) {
	root := newRootCmd()
	root.Writer = &bytes.Buffer{}

	err := root.Run(context.Background(), []string{name, "--log-level", "error", "config", "--format", "xml"})
	assert.Error(t, err)
}
