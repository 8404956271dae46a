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
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"syscall"

	"golang.org/x/net/http/httpguts"
)

// responseWriter buffers a single HTTP response on the wire and tracks the
// status and body size that were written. The first write error sticks;
// later writes are no-ops.
type responseWriter struct {
	w          *bufio.Writer
	statusCode int
	size       int
	err        error
}

// newResponseWriter creates a responseWriter on top of w.
func newResponseWriter(w io.Writer) *responseWriter {
	return &responseWriter{
		w:          bufio.NewWriter(w),
		statusCode: http.StatusOK,
	}
}

// WriteStatus writes the status line.
func (rw *responseWriter) WriteStatus(proto string, code int, message string) {
	rw.statusCode = code
	rw.printf("%s %d %s\r\n", proto, code, message)
}

// WriteHeader writes a single header line. Lines with an invalid field
// name are dropped.
func (rw *responseWriter) WriteHeader(key, value string) {
	if !httpguts.ValidHeaderFieldName(key) {
		return
	}
	rw.printf("%s: %s\r\n", key, headerValueReplacer.Replace(value))
}

// EndHeaders terminates the header block.
func (rw *responseWriter) EndHeaders() {
	rw.printf("\r\n")
}

// Write writes body bytes.
func (rw *responseWriter) Write(b []byte) (int, error) {
	if rw.err != nil {
		return 0, rw.err
	}
	n, err := rw.w.Write(b)
	rw.size += n
	rw.err = err
	return n, err
}

// Flush sends buffered bytes and returns the first error encountered.
func (rw *responseWriter) Flush() error {
	if rw.err == nil {
		rw.err = rw.w.Flush()
	}
	return rw.err
}

// Status returns the HTTP status code that was written.
func (rw *responseWriter) Status() int {
	return rw.statusCode
}

// Size returns the number of body bytes written.
func (rw *responseWriter) Size() int {
	return rw.size
}

func (rw *responseWriter) printf(format string, args ...any) {
	if rw.err != nil {
		return
	}
	_, rw.err = fmt.Fprintf(rw.w, format, args...)
}

// header values must not break the framing
var headerValueReplacer = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")

// isClientGone reports whether err is a reset or broken pipe from a client
// that went away mid-response.
func isClientGone(err error) bool {
	return errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.EPIPE)
}
