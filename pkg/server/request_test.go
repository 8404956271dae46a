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
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NVIDIA/httpdispatch/pkg/params"
)

func TestPathify(t *testing.T) {
	tests := []struct {
		name     string
		uri      string
		path     string
		fragment string
		query    params.Values
		wantErr  bool
	}{
		{name: "root", uri: "/", path: "/"},
		{name: "collapsed slashes", uri: "//a//b///c", path: "/a/b/c"},
		{name: "only slashes", uri: "///", path: "/"},
		{name: "query and fragment", uri: "/x?a=1&b[]=2&b[]=3#top", path: "/x", fragment: "top",
			query: params.Values{"a": "1", "b": params.Values{"0": "2", "1": "3"}}},
		{name: "cache buster dropped", uri: "/x?____ts=123&a=1", path: "/x", query: params.Values{"a": "1"}},
		{name: "absolute uri", uri: "http://example.com/abs/path?q=1", path: "/abs/path", query: params.Values{"q": "1"}},
		{name: "escaped path", uri: "/a%20b", path: "/a b"},
		{name: "asterisk", uri: "*", wantErr: true},
		{name: "bad escape", uri: "/%zz", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := newRequest(context.Background(), &requestHead{method: "GET", uri: tt.uri, header: http.Header{}}, nil)

			err := req.pathify()
			if tt.wantErr {
				var herr *Error
				require.True(t, errors.As(err, &herr), "expected *Error, got %v", err)
				assert.Equal(t, http.StatusBadRequest, herr.Code)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.path, req.Path())
			assert.Equal(t, tt.fragment, req.Fragment())
			if tt.query == nil {
				assert.Empty(t, req.QueryParams())
			} else {
				assert.Equal(t, tt.query, req.QueryParams())
			}
		})
	}
}

func TestReadRequestHead(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		method string
		uri    string
		status int
	}{
		{name: "valid", raw: "GET /x HTTP/1.1\r\nHost: a\r\n\r\n", method: "GET", uri: "/x"},
		{name: "http 1.0", raw: "POST /y?z=1 HTTP/1.0\r\n\r\n", method: "POST", uri: "/y?z=1"},
		{name: "missing version", raw: "GET /x\r\n\r\n", status: http.StatusBadRequest},
		{name: "bad version", raw: "GET /x HTTP/x.y\r\n\r\n", status: http.StatusBadRequest},
		{name: "bad header", raw: "GET /x HTTP/1.1\r\nno colon here\r\n\r\n", status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			head, err := readRequestHead(bufio.NewReader(strings.NewReader(tt.raw)))
			if tt.status != 0 {
				var herr *Error
				require.True(t, errors.As(err, &herr), "expected *Error, got %v", err)
				assert.Equal(t, tt.status, herr.Code)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.method, head.method)
			assert.Equal(t, tt.uri, head.uri)
		})
	}
}

func TestReadRequestHeadEOF(t *testing.T) {
	_, err := readRequestHead(bufio.NewReader(strings.NewReader("")))
	require.Error(t, err)

	var herr *Error
	assert.False(t, errors.As(err, &herr))
}

func TestRequestCookies(t *testing.T) {
	h := http.Header{}
	h.Add("Cookie", "a=1; b=2")
	h.Add("Cookie", "c=3")
	req := newRequest(context.Background(), &requestHead{method: "GET", uri: "/", header: h}, nil)

	cookies := req.Cookies()
	require.Len(t, cookies, 3)

	c, err := req.Cookie("b")
	require.NoError(t, err)
	assert.Equal(t, "2", c.Value)

	_, err = req.Cookie("missing")
	assert.ErrorIs(t, err, http.ErrNoCookie)
}

func TestRequestServerVars(t *testing.T) {
	remote := &net.TCPAddr{IP: net.ParseIP("192.0.2.7"), Port: 4242}
	req := newRequest(context.Background(), &requestHead{method: "GET", uri: "/", header: http.Header{}}, remote)

	assert.Equal(t, "192.0.2.7", req.ServerVar(VarClientAddrHost))
	assert.Equal(t, "4242", req.ServerVar(VarClientAddrPort))

	vars := req.ServerVars()
	vars[VarClientAddrHost] = "changed"
	assert.Equal(t, "192.0.2.7", req.ServerVar(VarClientAddrHost))

	assert.True(t, req.LogEnabled())
	req.SetLog(false)
	assert.False(t, req.LogEnabled())
	assert.Nil(t, req.Command())
}
