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
	"context"
	"errors"
	"io"
	"log/slog"
	"maps"
	"math"
	"mime"
	"mime/multipart"
	"net"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/encoding/htmlindex"

	"github.com/NVIDIA/httpdispatch/pkg/defaults"
	"github.com/NVIDIA/httpdispatch/pkg/params"
)

// reservedHeaders are written in a fixed order ahead of the caller headers
// and never repeated after them.
var reservedHeaders = map[string]bool{
	"Cache-Control":  true,
	"Connection":     true,
	"Content-Length": true,
	"Content-Type":   true,
	"Date":           true,
	"Pragma":         true,
	"Server":         true,
	"X-Request-Id":   true,
}

// ServeConn reads one request from c, dispatches it and writes the
// response. The connection is not reused.
func (s *Server) ServeConn(c net.Conn) {
	lr := &io.LimitedReader{R: c, N: defaults.MaxHeaderBytes}
	br := bufio.NewReader(lr)

	if s.opts.ReadHeaderTimeout > 0 {
		_ = c.SetReadDeadline(time.Now().Add(s.opts.ReadHeaderTimeout))
	}

	head, err := readRequestHead(br)
	req := newRequest(context.Background(), head, c.RemoteAddr())

	var resp *Response
	if err != nil {
		var herr *Error
		if !errors.As(err, &herr) {
			s.logger.Debug("connection closed before a request was read",
				"remote", c.RemoteAddr().String(), "error", err)
			return
		}
		resp = s.render(req, nil, herr)
	} else {
		lr.N = math.MaxInt64
		req.body = br
		req.conn = c
		out, herr := s.handler(req)
		resp = s.render(req, out, herr)
	}

	_ = c.SetWriteDeadline(time.Now().Add(defaults.ServerWriteTimeout))

	rw, err := s.writeResponse(c, req, resp)
	if err != nil {
		if isClientGone(err) {
			return
		}
		s.logger.Error("exception",
			"command", req.commandKey(),
			"method", req.method,
			"error", err)
	}

	if req.toLog || s.logger.Enabled(req.ctx, slog.LevelDebug) {
		s.logger.Info("request",
			"request", req.requestLine,
			"status", rw.Status(),
			"size", rw.Size(),
			"requestID", req.ID(),
			"command", req.commandKey(),
			"remote", req.vars[VarClientAddrHost])
	}
}

// render is the single place where a stage error becomes a Response.
// Errors other than *Error are uncaught failures and answer 500.
func (s *Server) render(req *Request, resp *Response, err error) *Response {
	if err == nil {
		if resp == nil {
			resp = NewResponse(http.StatusOK, nil)
		}
		return resp
	}

	var herr *Error
	if !errors.As(err, &herr) {
		s.logger.Error("exception",
			"command", req.commandKey(),
			"method", req.method,
			"error", err)
		herr = internalError(err.Error())
	}

	charset := defaultCharset
	if req.cmd != nil && req.cmd.charset != "" {
		charset = req.cmd.charset
	}

	return errorResponse(herr, charset)
}

// dispatch routes the request by method.
func (s *Server) dispatch(req *Request) (*Response, error) {
	switch req.method {
	case http.MethodOptions:
		return optionsResponse(), nil
	case http.MethodGet, http.MethodHead, http.MethodDelete:
		return s.fromQuery(req)
	case http.MethodPatch, http.MethodPost, http.MethodPut:
		return s.fromPayload(req)
	default:
		return nil, Errorf(http.StatusNotImplemented, "Unsupported method (%q)", req.method)
	}
}

func optionsResponse() *Response {
	return NewResponse(http.StatusNoContent, nil).
		SetHeader("Access-Control-Allow-Origin", "*").
		SetHeader("Access-Control-Allow-Methods", "OPTIONS, POST").
		SetHeader("Access-Control-Allow-Headers", "Origin, X-Requested-With, Content-Type, Accept, Authorization").
		SetHeader("Access-Control-Max-Age", strconv.Itoa(int(defaults.CORSMaxAge.Seconds())))
}

// fromQuery serves DELETE, GET and HEAD.
func (s *Server) fromQuery(req *Request) (*Response, error) {
	name, err := s.resolve(req)
	if err != nil {
		return nil, err
	}

	if err := s.authenticate(req); err != nil {
		return nil, err
	}

	if req.cmd.static {
		var partial *Response
		if req.cmd.handler != nil {
			out, err := req.cmd.handler(req)
			if err != nil {
				return nil, err
			}
			partial, _ = out.(*Response)
		}
		return s.serveStatic(req, name, partial)
	}

	return s.invoke(req)
}

// fromPayload serves PATCH, POST and PUT.
func (s *Server) fromPayload(req *Request) (*Response, error) {
	if _, err := s.resolve(req); err != nil {
		return nil, err
	}

	if err := s.authenticate(req); err != nil {
		return nil, err
	}

	if err := s.readBody(req); err != nil {
		return nil, err
	}
	if req.form != nil {
		defer func() {
			if err := req.form.RemoveAll(); err != nil {
				s.logger.Warn("failed to remove multipart files", "error", err)
			}
		}()
	}

	return s.invoke(req)
}

// resolve normalizes the path and looks up the command. It returns the
// command name, the path without its leading slash.
func (s *Server) resolve(req *Request) (string, error) {
	if err := req.pathify(); err != nil {
		s.logger.Error("invalid URI", "uri", req.uri, "error", err)
		return "", err
	}

	name := req.path[1:]
	cmd, captures, ok := s.router.Resolve(req.method, name)
	if !ok {
		return name, NewError(http.StatusNotFound, "")
	}

	req.cmd = cmd
	req.query.Merge(captures)
	req.ctx = context.WithValue(req.ctx, contextKeyCommand, req.commandKey())

	if !cmd.toLog {
		req.toLog = false
	}

	return name, nil
}

// authenticate runs the Basic gate for commands that require it. The
// presented identity is exposed as server variables even on failure.
func (s *Server) authenticate(req *Request) error {
	delete(req.vars, VarAuthUser)
	delete(req.vars, VarAuthPassword)

	if !req.cmd.toAuth || !s.gate.Enabled() {
		return nil
	}

	creds, err := s.gate.Authorize(req.header.Get("Authorization"), req.cmd.authUsers)
	if creds.User != "" || creds.Password != "" {
		req.vars[VarAuthUser] = creds.User
		req.vars[VarAuthPassword] = creds.Password
	}
	if err != nil {
		authFailures.Inc()
		s.logger.Debug("authentication failed",
			"requestID", req.ID(),
			"command", req.commandKey(),
			"user", creds.User,
			"error", err)
		return NewError(http.StatusUnauthorized, "").
			WithHeader("WWW-Authenticate", s.gate.Challenge())
	}

	return nil
}

// invoke runs the command handler and coerces its result.
func (s *Server) invoke(req *Request) (*Response, error) {
	out, err := req.cmd.handler(req)
	if err != nil {
		return nil, err
	}

	if r, ok := out.(*Response); ok {
		if r == nil {
			r = NewResponse(http.StatusOK, nil)
		}
		return r, nil
	}

	resp := NewResponse(http.StatusOK, out)
	if req.method == http.MethodHead {
		resp.SetSendBody(false)
	}
	return resp, nil
}

// readBody validates the framing headers, reads exactly Content-Length
// bytes and decodes them into payload parameters.
func (s *Server) readBody(req *Request) error {
	if te := req.header.Get("Transfer-Encoding"); te != "" && !strings.EqualFold(strings.TrimSpace(te), "identity") {
		return Errorf(http.StatusNotImplemented, "Not supported; Transfer-Encoding: %s", te)
	}

	rawType := req.header.Get("Content-Type")
	ctype, _, _ := strings.Cut(rawType, ";")
	ctype = strings.ToLower(strings.TrimSpace(ctype))

	isMultipart := false
	if ctype != "" {
		if ctype == "multipart/form-data" {
			if !s.multipartAllowed(req.cmd) {
				return Errorf(http.StatusNotImplemented, "Not supported; Content-Type: %s", ctype)
			}
			isMultipart = true
		} else if allowed := s.allowedContentTypes(req.cmd); len(allowed) > 0 && !slices.Contains(allowed, ctype) {
			return Errorf(http.StatusNotImplemented, "Not supported; Content-Type: %s", ctype)
		}
	}

	clen, err := contentLength(req.header)
	if err != nil {
		return NewError(http.StatusLengthRequired, "")
	}
	if clen > s.opts.MaxBodySize {
		return NewError(http.StatusRequestEntityTooLarge, "")
	}
	if clen == 0 {
		return nil
	}

	if req.conn != nil {
		_ = req.conn.SetReadDeadline(time.Now().Add(defaults.ServerReadTimeout))
	}

	body := make([]byte, clen)
	if _, err := io.ReadFull(req.body, body); err != nil {
		return Errorf(http.StatusBadRequest, "Incomplete request body: %v", err)
	}
	req.payload = body

	if isMultipart {
		return req.parseMultipart(rawType, body)
	}

	charset := req.cmd.charset
	if _, mp, err := mime.ParseMediaType(rawType); err == nil && mp["charset"] != "" {
		charset = mp["charset"]
	}
	if charset == "" {
		charset = defaultCharset
	}

	text, err := decodeCharset(body, charset)
	if err != nil {
		return NewError(http.StatusUnsupportedMediaType, err.Error())
	}

	pairs, err := params.ParsePairs(text)
	if err != nil {
		if isFormType(ctype) {
			return NewError(http.StatusUnsupportedMediaType, err.Error())
		}
		return nil
	}
	req.payloadParams = params.Decode(pairs)

	return nil
}

func (r *Request) parseMultipart(contentType string, body []byte) error {
	_, mp, err := mime.ParseMediaType(contentType)
	if err != nil || mp["boundary"] == "" {
		return NewError(http.StatusUnsupportedMediaType, "missing multipart boundary")
	}

	form, err := multipart.NewReader(bytes.NewReader(body), mp["boundary"]).ReadForm(defaults.MultipartMemory)
	if err != nil {
		return NewError(http.StatusUnsupportedMediaType, err.Error())
	}
	r.form = form

	var pairs []params.Pair
	for _, key := range slices.Sorted(maps.Keys(form.Value)) {
		for _, v := range form.Value[key] {
			pairs = append(pairs, params.Pair{Key: key, Value: v})
		}
	}
	r.payloadParams = params.Decode(pairs)

	return nil
}

// isFormType reports whether ctype promises a url-encoded body.
func isFormType(ctype string) bool {
	return ctype == "" || ctype == "application/x-www-form-urlencoded" || ctype == "text/plain"
}

// contentLength parses Content-Length. A missing header is zero.
func contentLength(h http.Header) (int64, error) {
	raw := strings.TrimSpace(h.Get("Content-Length"))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, errors.New("negative content length")
	}
	return n, nil
}

func decodeCharset(b []byte, charset string) (string, error) {
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return "", errors.New("unsupported charset: " + charset)
	}

	if canonical, _ := htmlindex.Name(enc); canonical == "utf-8" {
		if !utf8.Valid(b) {
			return "", errors.New("payload is not valid utf-8")
		}
		return string(b), nil
	}

	out, err := enc.NewDecoder().Bytes(b)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func (s *Server) allowedContentTypes(cmd *Command) []string {
	if cmd != nil && cmd.contentTypes != nil {
		return cmd.contentTypes
	}
	return s.contentTypes
}

func (s *Server) multipartAllowed(cmd *Command) bool {
	if cmd != nil && cmd.multipart != nil {
		return *cmd.multipart
	}
	return s.multipart
}

// writeResponse renders resp: status line, Server and Date, the fixed
// header group, the remaining headers, then the body unless suppressed.
func (s *Server) writeResponse(w io.Writer, req *Request, resp *Response) (*responseWriter, error) {
	rw := newResponseWriter(w)

	code := resp.Code
	if code == 0 {
		code = http.StatusOK
	}

	var body []byte
	if resp.sendBody && req.method != http.MethodHead &&
		code >= http.StatusOK && code != http.StatusNoContent && code != http.StatusNotModified {
		body = resp.Body
	}

	message := resp.Message
	if message == "" {
		message = http.StatusText(code)
	}

	h := resp.header()

	contentType := h.Get("Content-Type")
	if contentType == "" && req.cmd != nil && req.cmd.contentType != MagicContentType {
		contentType = req.cmd.contentType
	}
	if contentType == "" {
		contentType = defaultContentType
	}

	rw.WriteStatus(s.opts.ProtocolVersion, code, message)
	rw.WriteHeader("Server", s.versionString())
	rw.WriteHeader("Date", time.Now().UTC().Format(http.TimeFormat))
	rw.WriteHeader("Cache-Control", valueOr(h.Get("Cache-Control"), "no-cache"))
	rw.WriteHeader("Pragma", valueOr(h.Get("Pragma"), "no-cache"))
	rw.WriteHeader("Connection", valueOr(h.Get("Connection"), "close"))
	rw.WriteHeader("Content-Type", contentType)
	rw.WriteHeader("Content-Length", strconv.Itoa(len(body)))
	if id := valueOr(h.Get("X-Request-Id"), req.ID()); id != "" {
		rw.WriteHeader("X-Request-Id", id)
	}

	for _, key := range slices.Sorted(maps.Keys(h)) {
		if reservedHeaders[http.CanonicalHeaderKey(key)] {
			continue
		}
		for _, v := range h[key] {
			rw.WriteHeader(key, v)
		}
	}
	rw.EndHeaders()

	if len(body) > 0 {
		_, _ = rw.Write(body)
	}

	return rw, rw.Flush()
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
