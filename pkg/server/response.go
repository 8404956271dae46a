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
	"net/http"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/NVIDIA/httpdispatch/pkg/defaults"
)

const (
	defaultCharset     = defaults.Charset
	defaultContentType = defaults.ContentType

	// MagicContentType as a command content type forces MIME sniffing of
	// static files.
	MagicContentType = "__MAGIC__"
)

// Response is a structured handler result. Fields are not read again after
// the response is rendered.
type Response struct {
	Code    int
	Body    []byte
	Header  http.Header
	Message string // reason phrase, defaults to the standard text

	sendBody bool
}

// NewResponse returns a Response whose body is the textual form of body,
// using the same coercion as plain handler results.
func NewResponse(code int, body any) *Response {
	return &Response{
		Code:     code,
		Body:     coerce(body),
		Header:   http.Header{},
		sendBody: true,
	}
}

// NewJSONResponse returns a Response carrying v encoded as JSON.
func NewJSONResponse(code int, v any) (*Response, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode response: %w", err)
	}

	r := NewResponse(code, body)
	r.Header.Set("Content-Type", "application/json")
	return r, nil
}

// SetHeader replaces the values of a header.
func (r *Response) SetHeader(key, value string) *Response {
	r.header().Set(key, value)
	return r
}

// AddHeader appends a header value.
func (r *Response) AddHeader(key, value string) *Response {
	r.header().Add(key, value)
	return r
}

// SetCookie adds a Set-Cookie header. Invalid cookies are dropped.
func (r *Response) SetCookie(c *http.Cookie) *Response {
	if v := c.String(); v != "" {
		r.header().Add("Set-Cookie", v)
	}
	return r
}

// SetBody replaces the body.
func (r *Response) SetBody(body []byte) *Response {
	r.Body = body
	return r
}

// SetSendBody controls whether the body is written at all.
func (r *Response) SetSendBody(send bool) *Response {
	r.sendBody = send
	return r
}

// SendBody reports whether the body will be written.
func (r *Response) SendBody() bool {
	return r.sendBody
}

func (r *Response) header() http.Header {
	if r.Header == nil {
		r.Header = http.Header{}
	}
	return r.Header
}

// coerce turns a handler result into body bytes: nil is empty, booleans
// are 0 or 1, scalars use their textual form and anything else its Go
// syntax representation.
func coerce(v any) []byte {
	switch x := v.(type) {
	case nil:
		return nil
	case []byte:
		return x
	case string:
		return []byte(x)
	case bool:
		if x {
			return []byte("1")
		}
		return []byte("0")
	case int:
		return []byte(strconv.Itoa(x))
	case int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return []byte(fmt.Sprintf("%d", x))
	case float32:
		return []byte(strconv.FormatFloat(float64(x), 'g', -1, 32))
	case float64:
		return []byte(strconv.FormatFloat(x, 'g', -1, 64))
	case fmt.Stringer:
		return []byte(x.String())
	case error:
		return []byte(x.Error())
	default:
		return []byte(fmt.Sprintf("%#v", x))
	}
}
