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
	"fmt"
	"net/http"
	"net/textproto"
	"net/url"
	"regexp"
	"strings"

	"github.com/NVIDIA/httpdispatch/pkg/params"
)

// requestHead is the request line and header block of a request.
type requestHead struct {
	line   string
	method string
	uri    string
	proto  string
	header http.Header
}

var (
	leadingSlashes  = regexp.MustCompile(`^/+`)
	repeatedSlashes = regexp.MustCompile(`/+`)
)

// readRequestHead reads the request line and headers. Body framing headers
// are left for the dispatcher to validate.
func readRequestHead(br *bufio.Reader) (*requestHead, error) {
	tp := textproto.NewReader(br)

	line, err := tp.ReadLine()
	if err != nil {
		return nil, err
	}

	method, rest, ok1 := strings.Cut(line, " ")
	uri, proto, ok2 := strings.Cut(rest, " ")
	if !ok1 || !ok2 || method == "" || uri == "" {
		return nil, Errorf(http.StatusBadRequest, "Bad request syntax (%q)", line)
	}
	if _, _, ok := http.ParseHTTPVersion(proto); !ok {
		return nil, Errorf(http.StatusBadRequest, "Bad request version (%q)", proto)
	}

	mh, err := tp.ReadMIMEHeader()
	if err != nil {
		return nil, Errorf(http.StatusBadRequest, "Bad request headers: %v", err)
	}

	return &requestHead{
		line:   line,
		method: method,
		uri:    uri,
		proto:  proto,
		header: http.Header(mh),
	}, nil
}

// pathify normalizes the request target into path, query and fragment. An
// absolute URI is reduced to its path.
func (r *Request) pathify() error {
	raw := r.uri
	if raw != "" {
		raw = leadingSlashes.ReplaceAllString(raw, "/")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return NewError(http.StatusBadRequest, err.Error())
	}

	path := u.Path
	if path == "" {
		path = "/"
	}
	if path[0] != '/' {
		return Errorf(http.StatusBadRequest, "path %q does not start with \"/\"", path)
	}

	r.path = repeatedSlashes.ReplaceAllString(path, "/")
	r.fragment = u.Fragment

	if u.RawQuery != "" {
		q, err := params.ParseQuery(u.RawQuery)
		if err != nil {
			return NewError(http.StatusBadRequest, fmt.Sprintf("invalid query: %v", err))
		}
		r.query = q
	}

	return nil
}
