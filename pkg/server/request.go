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
	"io"
	"maps"
	"mime/multipart"
	"net"
	"net/http"
	"strings"

	"github.com/NVIDIA/httpdispatch/pkg/params"
)

// Server variable names exposed through Request.ServerVars.
const (
	VarClientAddrHost = "CLIENT_ADDR_HOST"
	VarClientAddrPort = "CLIENT_ADDR_PORT"
	VarAuthUser       = "HTTP_AUTH_USER"
	VarAuthPassword   = "HTTP_AUTH_PASSWD"
	VarRequestID      = "REQUEST_ID"
)

// Request is the per-request state handed to a command handler. It is
// owned by the goroutine serving the connection.
type Request struct {
	ctx context.Context

	method      string
	uri         string
	proto       string
	requestLine string
	header      http.Header
	body        io.Reader
	conn        net.Conn

	path     string
	fragment string
	query    params.Values

	payload       []byte
	payloadParams params.Values
	form          *multipart.Form

	cmd   *Command
	vars  map[string]string
	toLog bool
}

func newRequest(ctx context.Context, head *requestHead, remote net.Addr) *Request {
	r := &Request{
		ctx:    ctx,
		header: http.Header{},
		query:  params.Values{},
		vars:   map[string]string{},
		toLog:  true,
	}

	if head != nil {
		r.method = head.method
		r.uri = head.uri
		r.proto = head.proto
		r.requestLine = head.line
		r.header = head.header
	}

	if remote != nil {
		host, port, err := net.SplitHostPort(remote.String())
		if err != nil {
			host = remote.String()
		}
		r.vars[VarClientAddrHost] = host
		r.vars[VarClientAddrPort] = port
	}

	return r
}

// Context returns the request context. It carries the request ID.
func (r *Request) Context() context.Context { return r.ctx }

// Method returns the request method.
func (r *Request) Method() string { return r.method }

// Path returns the normalized request path.
func (r *Request) Path() string { return r.path }

// Fragment returns the URI fragment, if any.
func (r *Request) Fragment() string { return r.fragment }

// Header returns the request headers.
func (r *Request) Header() http.Header { return r.header }

// Payload returns the raw request body.
func (r *Request) Payload() []byte { return r.payload }

// PayloadParams returns the decoded body parameters. For multipart bodies
// these are the form values; see Multipart for files.
func (r *Request) PayloadParams() params.Values { return r.payloadParams }

// Multipart returns the parsed multipart form, or nil.
func (r *Request) Multipart() *multipart.Form { return r.form }

// QueryParams returns the decoded query string merged with the named
// captures of a pattern route.
func (r *Request) QueryParams() params.Values { return r.query }

// ServerVars returns a copy of the server variables.
func (r *Request) ServerVars() map[string]string { return maps.Clone(r.vars) }

// ServerVar returns a single server variable.
func (r *Request) ServerVar(key string) string { return r.vars[key] }

// ID returns the request ID.
func (r *Request) ID() string { return r.vars[VarRequestID] }

// SetLog enables or disables the request log line for this request.
func (r *Request) SetLog(enabled bool) *Request {
	r.toLog = enabled
	return r
}

// LogEnabled reports whether the request will be logged.
func (r *Request) LogEnabled() bool { return r.toLog }

// Command returns the resolved command, or nil before resolution.
func (r *Request) Command() *Command { return r.cmd }

// Cookies parses the Cookie headers.
func (r *Request) Cookies() []*http.Cookie {
	var out []*http.Cookie
	for _, line := range r.header.Values("Cookie") {
		cookies, err := http.ParseCookie(strings.TrimSpace(line))
		if err != nil {
			continue
		}
		out = append(out, cookies...)
	}
	return out
}

// Cookie returns the named cookie or http.ErrNoCookie.
func (r *Request) Cookie(name string) (*http.Cookie, error) {
	for _, c := range r.Cookies() {
		if c.Name == name {
			return c, nil
		}
	}
	return nil, http.ErrNoCookie
}

func (r *Request) commandKey() string {
	if r.cmd == nil {
		return ""
	}
	return r.cmd.key(r.method)
}
