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
	"html"
	"net/http"
	"strings"

	"github.com/goccy/go-json"
)

// ErrorMode selects how an Error is rendered.
type ErrorMode string

const (
	// ModeMessage renders an HTML error page with the message in a <pre> block.
	ModeMessage ErrorMode = "msg"
	// ModeJSON renders {"code": ..., "message": ...} as application/json.
	ModeJSON ErrorMode = "json"
)

// Error is an expected request failure. Handlers return it to answer with
// a specific status; the dispatcher renders it exactly once.
type Error struct {
	Code   int
	Text   string
	Detail any
	Trace  string
	Mode   ErrorMode
	Header http.Header
}

// NewError returns an Error rendered as an HTML page.
func NewError(code int, text string) *Error {
	return &Error{Code: code, Text: text, Mode: ModeMessage}
}

// NewJSONError returns an Error rendered as a JSON document.
func NewJSONError(code int, text string) *Error {
	return &Error{Code: code, Text: text, Mode: ModeJSON}
}

// Errorf returns an HTML-mode Error with a formatted message.
func Errorf(code int, format string, args ...any) *Error {
	return NewError(code, fmt.Sprintf(format, args...))
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%d %s", e.Code, e.message())
}

// WithHeader adds a header sent with the error response.
func (e *Error) WithHeader(key, value string) *Error {
	if e.Header == nil {
		e.Header = http.Header{}
	}
	e.Header.Add(key, value)
	return e
}

// WithDetail attaches a structured payload used in place of Text.
func (e *Error) WithDetail(detail any) *Error {
	e.Detail = detail
	return e
}

func (e *Error) message() string {
	switch {
	case e.Text != "":
		return e.Text
	case e.Detail != nil:
		return fmt.Sprintf("%v", e.Detail)
	case http.StatusText(e.Code) != "":
		return http.StatusText(e.Code)
	default:
		return "Unknown error"
	}
}

// internalError wraps an uncaught handler failure. It always renders as
// an HTML page carrying the trace, whatever mode the command prefers.
func internalError(trace string) *Error {
	return &Error{Code: http.StatusInternalServerError, Trace: trace, Mode: ModeMessage}
}

const errorPage = `<!DOCTYPE HTML PUBLIC "-//W3C//DTD HTML 4.01//EN"
        "http://www.w3.org/TR/html4/strict.dtd">
<html>
    <head>
        <meta http-equiv="Content-Type" content="text/html;charset=%s">
        <title>Error response</title>
    </head>
    <body>
        <h1>Error response</h1>
        <p>Error code: %d</p>
        <p>Message: %s.</p>
        <p>Error code explanation: %d - %s.</p>
    </body>
</html>
`

var explanations = map[int]string{
	http.StatusNotModified:           "Document has not changed since given time",
	http.StatusBadRequest:            "Bad request syntax or unsupported method",
	http.StatusUnauthorized:          "No permission -- see authorization schemes",
	http.StatusForbidden:             "Request forbidden -- authorization will not help",
	http.StatusNotFound:              "Nothing matches the given URI",
	http.StatusMethodNotAllowed:      "Specified method is invalid for this resource",
	http.StatusRequestTimeout:        "Request timed out; try again later",
	http.StatusLengthRequired:        "Client must specify Content-Length",
	http.StatusRequestEntityTooLarge: "Entity is too large",
	http.StatusUnsupportedMediaType:  "Entity body in unsupported format",
	http.StatusTooManyRequests:       "The user has sent too many requests in a given amount of time",
	http.StatusInternalServerError:   "Server got itself in trouble",
	http.StatusNotImplemented:        "Server does not support this operation",
	http.StatusServiceUnavailable:    "The server cannot process the request due to a high load",
}

// errorResponse converts e into the Response written to the client.
func errorResponse(e *Error, charset string) *Response {
	if charset == "" {
		charset = defaultCharset
	}

	resp := &Response{Code: e.Code, Header: http.Header{}, sendBody: true}
	for k, vs := range e.Header {
		for _, v := range vs {
			resp.Header.Add(k, v)
		}
	}

	if e.Mode == ModeJSON && e.Trace == "" {
		var msg any = e.message()
		if e.Text == "" && e.Detail != nil {
			msg = e.Detail
		}
		body, err := json.Marshal(ErrorResponse{Code: e.Code, Message: msg})
		if err == nil {
			resp.Header.Set("Content-Type", "application/json")
			resp.Body = body
			return resp
		}
	}

	text := e.message()
	if e.Trace != "" {
		text = e.Trace
	}

	message := "<pre>\n" + html.EscapeString(text) + "</pre>\n"
	resp.Header.Set("Content-Type", "text/html; charset="+charset)
	resp.Body = []byte(fmt.Sprintf(errorPage, charset, e.Code, message, e.Code,
		strings.TrimSpace(explanations[e.Code])))

	return resp
}
