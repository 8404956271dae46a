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
	"reflect"
	"regexp"
	"runtime"
	"slices"
	"strings"
)

// HandlerFunc serves a resolved request. The result is either a *Response
// or a value coerced into a text body; a returned *Error answers with its
// status, any other error is an internal failure.
type HandlerFunc func(req *Request) (any, error)

// Command is a registered unit of work. It is immutable once registered.
type Command struct {
	name        string
	pattern     *regexp.Regexp // anchored at the start, nil for literal routes
	search      *regexp.Regexp // unanchored copy used for replacement
	patternErr  error
	replacement string

	methods []string
	handler HandlerFunc

	safeInit func(opts *Options) error
	atStart  func(opts *Options) error
	atStop   func()

	static      bool
	root        string
	charset     string
	contentType string

	toAuth    bool
	authUsers []string
	toLog     bool

	contentTypes []string
	multipart    *bool
}

// CommandOption configures a Command at registration.
type CommandOption func(*Command)

// WithName sets the literal route name. Without it the handler's function
// name is used.
func WithName(name string) CommandOption {
	return func(c *Command) {
		c.name = strings.TrimPrefix(name, "/")
	}
}

// WithPattern routes the command by a regular expression matched against
// the path without its leading slash. Named groups are merged into the
// query parameters.
func WithPattern(expr string) CommandOption {
	return func(c *Command) {
		c.name = expr
		c.pattern, c.patternErr = regexp.Compile("^(?:" + expr + ")")
		if c.patternErr == nil {
			c.search = regexp.MustCompile(expr)
		}
	}
}

// WithReplacement rewrites the path of a pattern static command before the
// file lookup, using regexp expansion syntax ($1, ${name}).
func WithReplacement(repl string) CommandOption {
	return func(c *Command) {
		c.replacement = repl
	}
}

// WithStatic serves files below root.
func WithStatic(root string) CommandOption {
	return func(c *Command) {
		c.static = true
		c.root = root
	}
}

// WithCharset sets the charset used for text responses and body decoding.
func WithCharset(charset string) CommandOption {
	return func(c *Command) {
		c.charset = charset
	}
}

// WithContentType sets the response content type. MagicContentType forces
// MIME sniffing for static commands.
func WithContentType(contentType string) CommandOption {
	return func(c *Command) {
		c.contentType = contentType
	}
}

// WithAuth requires Basic authentication. When users are given, only they
// are accepted.
func WithAuth(users ...string) CommandOption {
	return func(c *Command) {
		c.toAuth = true
		c.authUsers = nil
		for _, u := range users {
			if u != "" {
				c.authUsers = append(c.authUsers, u)
			}
		}
	}
}

// WithLog enables or disables request logging for the command.
func WithLog(enabled bool) CommandOption {
	return func(c *Command) {
		c.toLog = enabled
	}
}

// WithSafeInit registers a callback run once by Init.
func WithSafeInit(fn func(opts *Options) error) CommandOption {
	return func(c *Command) {
		c.safeInit = fn
	}
}

// WithAtStart registers a callback run once before the server accepts
// connections.
func WithAtStart(fn func(opts *Options) error) CommandOption {
	return func(c *Command) {
		c.atStart = fn
	}
}

// WithAtStop registers a callback run once when the server stops.
func WithAtStop(fn func()) CommandOption {
	return func(c *Command) {
		c.atStop = fn
	}
}

// WithContentTypes overrides the server's accepted request content types
// for this command. An empty list accepts any type.
func WithContentTypes(types ...string) CommandOption {
	return func(c *Command) {
		c.contentTypes = normalizeContentTypes(types)
	}
}

// WithMultipart overrides whether multipart/form-data bodies are accepted.
func WithMultipart(allowed bool) CommandOption {
	return func(c *Command) {
		c.multipart = &allowed
	}
}

// Name returns the literal name or the pattern source.
func (c *Command) Name() string { return c.name }

// Methods returns the HTTP methods the command is registered for.
func (c *Command) Methods() []string { return slices.Clone(c.methods) }

// IsPattern reports whether the command is routed by a pattern.
func (c *Command) IsPattern() bool { return c.pattern != nil }

// Static reports whether the command serves files.
func (c *Command) Static() bool { return c.static }

// Root returns the static root directory.
func (c *Command) Root() string { return c.root }

// Charset returns the command charset.
func (c *Command) Charset() string { return c.charset }

// ContentType returns the configured response content type.
func (c *Command) ContentType() string { return c.contentType }

// key returns the registry key for method.
func (c *Command) key(method string) string {
	if c.pattern != nil {
		return method + " " + c.name
	}
	return method + " /" + c.name
}

func handlerName(h HandlerFunc) string {
	if h == nil {
		return ""
	}
	fn := runtime.FuncForPC(reflect.ValueOf(h).Pointer())
	if fn == nil {
		return ""
	}
	full := fn.Name()
	if i := strings.LastIndexByte(full, '.'); i >= 0 {
		full = full[i+1:]
	}
	return strings.TrimSuffix(full, "-fm")
}

func normalizeContentTypes(types []string) []string {
	out := make([]string, 0, len(types))
	for _, t := range types {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" && !slices.Contains(out, t) {
			out = append(out, t)
		}
	}
	return out
}

var knownMethods = []string{
	http.MethodHead,
	http.MethodGet,
	http.MethodDelete,
	http.MethodPatch,
	http.MethodPost,
	http.MethodPut,
}
