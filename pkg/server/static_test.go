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
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NVIDIA/httpdispatch/pkg/mimetype"
)

func staticRoot(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "data.txt"), []byte("hello static"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "logo"), []byte("<svg/>"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "page.html"), []byte("<p>hi</p>"), 0o644))

	old := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "data.txt"), old, old))

	return dir
}

func staticServer(t *testing.T, root string, extra ...CommandOption) *Server {
	t.Helper()

	classifier := mimetype.ClassifierFunc(func(path string) (string, error) {
		switch filepath.Ext(path) {
		case ".txt":
			return "text/plain", nil
		case ".html":
			return "text/html", nil
		default:
			return "image/svg", nil
		}
	})

	s := New(WithLogger(quietLogger()), WithClassifier(classifier))
	opts := append([]CommandOption{
		WithPattern(`files/(?P<path>.*)`),
		WithReplacement("${path}"),
		WithStatic(root),
	}, extra...)
	mustRegister(t, s, nil, []string{"GET", "HEAD"}, opts...)
	require.NoError(t, s.Init())
	return s
}

func TestStaticServesFiles(t *testing.T) {
	root := staticRoot(t)
	s := staticServer(t, root)

	resp, body := get(t, s, "/files/data.txt")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "hello static", body)
	assert.Equal(t, "text/plain; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.Equal(t, "Thu, 02 Jan 2020 03:04:05 GMT", resp.Header.Get("Last-Modified"))

	resp, body = get(t, s, "/files/sub/page.html")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "<p>hi</p>", body)
	assert.Equal(t, "text/html; charset=utf-8", resp.Header.Get("Content-Type"))

	resp, _ = get(t, s, "/files/logo")
	assert.Equal(t, "image/svg+xml", resp.Header.Get("Content-Type"))

	resp, body = roundTrip(t, s, buildRequest("HEAD", "/files/data.txt", ""))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, body)
	assert.NotEmpty(t, resp.Header.Get("Last-Modified"))
}

func TestStaticConfinement(t *testing.T) {
	root := staticRoot(t)
	s := staticServer(t, root)

	tests := []struct {
		name   string
		target string
		status int
	}{
		{"parent traversal", "/files/../../etc/passwd", http.StatusForbidden},
		{"encoded traversal", "/files/%2e%2e/%2e%2e/etc/passwd", http.StatusForbidden},
		{"root itself", "/files/", http.StatusForbidden},
		{"missing file", "/files/nope.txt", http.StatusNotFound},
		{"directory", "/files/sub", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, _ := get(t, s, tt.target)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestStaticUnreadableFile(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission checks do not apply to root")
	}

	root := staticRoot(t)
	locked := filepath.Join(root, "locked.txt")
	require.NoError(t, os.WriteFile(locked, []byte("secret"), 0o000))

	s := staticServer(t, root)
	resp, body := get(t, s, "/files/locked.txt")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.NotContains(t, body, "secret")
}

func TestStaticConditionalGet(t *testing.T) {
	root := staticRoot(t)
	s := staticServer(t, root)

	tests := []struct {
		name   string
		ims    string
		status int
	}{
		{"same second", "Thu, 02 Jan 2020 03:04:05 GMT", http.StatusNotModified},
		{"newer", "Fri, 03 Jan 2020 00:00:00 GMT", http.StatusNotModified},
		{"with parameters", "Fri, 03 Jan 2020 00:00:00 GMT; length=12", http.StatusNotModified},
		{"rfc850", "Friday, 03-Jan-20 00:00:00 GMT", http.StatusNotModified},
		{"asctime", "Fri Jan  3 00:00:00 2020", http.StatusNotModified},
		{"older", "Wed, 01 Jan 2020 00:00:00 GMT", http.StatusOK},
		{"unparsable", "yesterday", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := get(t, s, "/files/data.txt", "If-Modified-Since: "+tt.ims)
			assert.Equal(t, tt.status, resp.StatusCode)
			if tt.status == http.StatusNotModified {
				assert.Empty(t, body)
				assert.Equal(t, int64(0), resp.ContentLength)
			} else {
				assert.Equal(t, "hello static", body)
			}
		})
	}
}

func TestStaticContentTypeResolution(t *testing.T) {
	root := staticRoot(t)

	t.Run("command content type", func(t *testing.T) {
		s := staticServer(t, root, WithContentType("text/X-Custom"))
		resp, _ := get(t, s, "/files/logo")
		assert.Equal(t, "text/x-custom; charset=utf-8", resp.Header.Get("Content-Type"))
	})

	t.Run("magic forces sniffing", func(t *testing.T) {
		s := staticServer(t, root, WithContentType(MagicContentType))
		resp, _ := get(t, s, "/files/logo")
		assert.Equal(t, "image/svg+xml", resp.Header.Get("Content-Type"))
	})

	t.Run("charset already present", func(t *testing.T) {
		s := staticServer(t, root, WithContentType("text/plain; charset=latin1"))
		resp, _ := get(t, s, "/files/data.txt")
		assert.Equal(t, "text/plain; charset=latin1", resp.Header.Get("Content-Type"))
	})

	t.Run("no charset configured", func(t *testing.T) {
		s := staticServer(t, root, WithCharset(""))
		resp, _ := get(t, s, "/files/data.txt")
		assert.Equal(t, "text/plain", resp.Header.Get("Content-Type"))
	})
}

func TestStaticHandlerPreprocessing(t *testing.T) {
	root := staticRoot(t)

	s := New(WithLogger(quietLogger()))
	mustRegister(t, s, func(r *Request) (any, error) {
		return NewResponse(http.StatusOK, nil).
			SetHeader("Content-Type", "application/octet-stream").
			SetHeader("Content-Disposition", "attachment").
			SetHeader("X-Served-By", "static"), nil
	}, []string{"GET"}, WithPattern(`dl/(?P<path>.*)`), WithReplacement("${path}"),
		WithStatic(root), WithContentType("text/plain"))
	mustRegister(t, s, func(r *Request) (any, error) {
		return NewResponse(http.StatusOK, nil).
			SetHeader("Content-Disposition", `attachment; filename="custom.bin"`), nil
	}, []string{"GET"}, WithPattern(`named/(?P<path>.*)`), WithReplacement("${path}"), WithStatic(root))
	mustRegister(t, s, func(r *Request) (any, error) {
		return nil, NewError(http.StatusForbidden, "denied")
	}, []string{"GET"}, WithPattern(`private/.*`), WithStatic(root))
	require.NoError(t, s.Init())

	resp, body := get(t, s, "/dl/data.txt")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "hello static", body)
	assert.Equal(t, "application/octet-stream", resp.Header.Get("Content-Type"))
	assert.Equal(t, "attachment; filename=data.txt", resp.Header.Get("Content-Disposition"))
	assert.Equal(t, "static", resp.Header.Get("X-Served-By"))

	resp, _ = get(t, s, "/named/data.txt")
	assert.Equal(t, `attachment; filename="custom.bin"`, resp.Header.Get("Content-Disposition"))

	resp, _ = get(t, s, "/private/data.txt")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestStaticWithoutReplacement(t *testing.T) {
	root := staticRoot(t)

	s := New(WithLogger(quietLogger()))
	mustRegister(t, s, nil, []string{"GET"}, WithPattern(`.+\.txt`), WithStatic(root))
	require.NoError(t, s.Init())

	resp, body := get(t, s, "/data.txt")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "hello static", body)
}
