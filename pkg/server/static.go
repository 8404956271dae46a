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
	"bytes"
	"errors"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/NVIDIA/httpdispatch/pkg/defaults"
)

// serveStatic completes partial, the optional response returned by the
// command handler, with the file that urlpath resolves to under the
// command root.
func (s *Server) serveStatic(req *Request, urlpath string, partial *Response) (*Response, error) {
	cmd := req.cmd

	root, err := filepath.Abs(cmd.root)
	if err != nil {
		return nil, NewError(http.StatusForbidden, "Access denied.")
	}
	root += string(filepath.Separator)

	name := urlpath
	if cmd.search != nil && cmd.replacement != "" {
		name = cmd.search.ReplaceAllString(urlpath, cmd.replacement)
	}

	filename := filepath.Join(root, strings.Trim(name, "/\\"))
	if !strings.HasPrefix(filename, root) {
		return nil, NewError(http.StatusForbidden, "Access denied.")
	}

	info, err := os.Stat(filename)
	if err != nil || !info.Mode().IsRegular() {
		return nil, NewError(http.StatusNotFound, "File does not exist.")
	}

	f, err := os.Open(filename)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return nil, NewError(http.StatusForbidden, "You do not have permission to access this file.")
		}
		return nil, NewError(http.StatusNotFound, "File does not exist.")
	}
	defer f.Close()

	res := partial
	if res == nil {
		res = NewResponse(http.StatusOK, nil)
	}

	contentType := res.header().Get("Content-Type")
	if contentType == "" {
		contentType = cmd.contentType
	}
	if contentType == "" || contentType == MagicContentType {
		contentType, err = s.classifier.TypeByFile(filename)
		if err != nil {
			s.logger.Warn("failed to detect content type", "file", filename, "error", err)
			contentType = "application/octet-stream"
		}
		if contentType == "image/svg" {
			contentType += "+xml"
		}
	}
	contentType = strings.ToLower(contentType)
	if strings.HasPrefix(contentType, "text/") && cmd.charset != "" && !strings.Contains(contentType, "charset") {
		contentType += "; charset=" + cmd.charset
	}
	res.SetHeader("Content-Type", contentType)

	if disposition := res.header().Get("Content-Disposition"); disposition != "" {
		kind, dparams, err := mime.ParseMediaType(disposition)
		if err == nil && kind == "attachment" && dparams["filename"] == "" {
			res.SetHeader("Content-Disposition",
				mime.FormatMediaType("attachment", map[string]string{"filename": filepath.Base(filename)}))
		}
	}

	res.SetHeader("Last-Modified", info.ModTime().UTC().Format(http.TimeFormat))

	if ims := req.header.Get("If-Modified-Since"); ims != "" {
		value, _, _ := strings.Cut(ims, ";")
		if t, err := http.ParseTime(strings.TrimSpace(value)); err == nil && t.Unix() >= info.ModTime().Unix() {
			res.Code = http.StatusNotModified
			res.Body = nil
			return res.SetSendBody(false), nil
		}
	}

	var body []byte
	if req.method != http.MethodHead {
		body, err = readChunks(f, info.Size())
		if err != nil {
			return nil, NewError(http.StatusForbidden, "You do not have permission to access this file.")
		}
	}

	res.Code = http.StatusOK
	res.Body = body
	return res.SetSendBody(true), nil
}

func readChunks(r io.Reader, size int64) ([]byte, error) {
	var body bytes.Buffer
	if size > 0 {
		body.Grow(int(size))
	}

	buf := make([]byte, defaults.FileBufferSize)
	for {
		n, err := r.Read(buf)
		body.Write(buf[:n])
		if errors.Is(err, io.EOF) {
			return body.Bytes(), nil
		}
		if err != nil {
			return nil, err
		}
	}
}
