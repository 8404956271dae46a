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

// Package server implements the request dispatch engine: a command
// router, the per-request parsing pipeline, the Basic authentication gate,
// the static file responder and the server lifecycle.
//
// # Architecture
//
// Every accepted connection carries exactly one request. The connection
// server (pkg/conn) runs ServeConn on its own goroutine, which:
//
//   - Reads the request line and headers
//   - Normalizes the path and decodes the query string (pkg/params)
//   - Resolves the command, literal routes first, then patterns longest first
//   - Runs the authentication gate for commands that require it (pkg/auth)
//   - Validates and decodes the body for PATCH, POST and PUT
//   - Invokes the handler or the static responder
//   - Renders the response or error and closes the connection
//
// Stages return (*Response, error). An *Error is rendered with its status
// in HTML or JSON mode; any other error, and any panic, is a 500 carrying
// the failure text.
//
// # Usage
//
//	s := server.New(server.WithOptions(&server.Options{ListenPort: 8080}))
//
//	_, err := s.Register(func(*server.Request) (any, error) {
//	    return "pong", nil
//	}, []string{"GET"}, server.WithName("ping"))
//	if err != nil {
//	    return err
//	}
//
//	_, err = s.Register(nil, []string{"GET", "HEAD"},
//	    server.WithPattern(`static/(?P<file>.+)`),
//	    server.WithReplacement("${file}"),
//	    server.WithStatic("/srv/www"))
//	if err != nil {
//	    return err
//	}
//
//	return s.Serve(ctx) // Init, Run, SIGINT/SIGTERM handling
//
// # Handler results
//
// A handler returns a *Response, or a value coerced into a text body:
// nil is empty, booleans are 0 or 1, strings, byte slices, numbers and
// fmt.Stringer use their textual form, anything else its Go syntax
// representation.
//
// # Wire format
//
// Responses start with the status line, Server and Date, followed by
// Cache-Control (no-cache), Pragma (no-cache), Connection (close),
// Content-Type (text/plain) and Content-Length, in that order, where the
// response may override the defaults. Bodies are not sent for HEAD,
// 1xx, 204 and 304.
//
// OPTIONS is answered with 204 and permissive CORS headers regardless of
// the registered commands.
//
// # Observability
//
// Request IDs are taken from a valid UUID X-Request-Id header or generated,
// and echoed in the response. Prometheus metrics are labelled by command
// key. Set Options.MetricsPath to expose them, and Options.Probes for
// GET /health and GET /ready.
package server
