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
	"bufio"
	"bytes"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestServer returns an initialized server. register runs before Init.
func newTestServer(t *testing.T, opts *Options, register func(s *Server)) *Server {
	t.Helper()

	s := New(WithOptions(opts), WithLogger(quietLogger()))
	if register != nil {
		register(s)
	}
	require.NoError(t, s.Init())
	return s
}

func mustRegister(t *testing.T, s *Server, h HandlerFunc, methods []string, opts ...CommandOption) *Command {
	t.Helper()

	c, err := s.Register(h, methods, opts...)
	require.NoError(t, err)
	return c
}

func text(body string) HandlerFunc {
	return func(*Request) (any, error) {
		return body, nil
	}
}

// rawRoundTrip feeds raw to ServeConn over an in-memory pipe and returns
// every byte the server wrote before closing the connection.
func rawRoundTrip(t *testing.T, s *Server, raw string) []byte {
	t.Helper()

	client, srv := net.Pipe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer srv.Close()
		s.ServeConn(srv)
	}()
	go func() {
		_, _ = client.Write([]byte(raw))
	}()

	_ = client.SetDeadline(time.Now().Add(5 * time.Second))
	out, err := io.ReadAll(client)
	require.NoError(t, err)

	client.Close()
	<-done

	return out
}

// roundTrip is rawRoundTrip with the response parsed.
func roundTrip(t *testing.T, s *Server, raw string) (*http.Response, string) {
	t.Helper()

	resp, err := http.ReadResponse(bufio.NewReader(bytes.NewReader(rawRoundTrip(t, s, raw))), nil)
	require.NoError(t, err)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	_ = resp.Body.Close()

	return resp, string(body)
}

// headerNames returns the header field names of a raw response in wire order.
func headerNames(raw []byte) []string {
	head, _, _ := strings.Cut(string(raw), "\r\n\r\n")
	lines := strings.Split(head, "\r\n")[1:]
	names := make([]string, 0, len(lines))
	for _, line := range lines {
		name, _, _ := strings.Cut(line, ":")
		names = append(names, name)
	}
	return names
}

func get(t *testing.T, s *Server, target string, headers ...string) (*http.Response, string) {
	t.Helper()
	return roundTrip(t, s, buildRequest("GET", target, "", headers...))
}

func buildRequest(method, target, body string, headers ...string) string {
	raw := method + " " + target + " HTTP/1.1\r\nHost: localhost\r\n"
	for _, h := range headers {
		raw += h + "\r\n"
	}
	return raw + "\r\n" + body
}
