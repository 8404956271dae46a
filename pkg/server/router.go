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
	"slices"
	"strings"
	"sync"

	"github.com/NVIDIA/httpdispatch/pkg/defaults"
	cnserrors "github.com/NVIDIA/httpdispatch/pkg/errors"
)

// route is a registry entry: a literal path or a compiled pattern.
type route struct {
	key string
	cmd *Command
}

// Router maps "METHOD /name" and "METHOD pattern" keys to commands.
// Registration is not allowed once the owning server has been initialized.
type Router struct {
	mu       sync.RWMutex
	commands []*Command
	literal  map[string]*Command
	patterns []route // longest key first
	frozen   bool
}

// NewRouter returns an empty Router.
func NewRouter() *Router {
	return &Router{literal: map[string]*Command{}}
}

// Register validates and adds a command serving methods.
func (r *Router) Register(h HandlerFunc, methods []string, opts ...CommandOption) (*Command, error) {
	c := &Command{
		handler: h,
		charset: defaults.Charset,
		toLog:   true,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.patternErr != nil {
		return nil, cnserrors.Wrap(cnserrors.ErrCodeInvalidConfig,
			fmt.Sprintf("invalid route pattern %q", c.name), c.patternErr)
	}
	if c.pattern == nil {
		c.replacement = ""
		if c.name == "" {
			c.name = handlerName(h)
		}
	}
	if c.name == "" && c.pattern == nil {
		return nil, cnserrors.New(cnserrors.ErrCodeInvalidConfig, "command has no name")
	}
	if h == nil && !c.static {
		return nil, cnserrors.New(cnserrors.ErrCodeInvalidConfig,
			fmt.Sprintf("command %q has no handler", c.name))
	}

	for _, m := range methods {
		m = strings.ToUpper(strings.TrimSpace(m))
		if !slices.Contains(knownMethods, m) {
			return nil, cnserrors.New(cnserrors.ErrCodeInvalidConfig,
				fmt.Sprintf("unknown HTTP method: %q", m))
		}
		if c.static && m != "GET" && m != "HEAD" {
			return nil, cnserrors.New(cnserrors.ErrCodeInvalidConfig,
				"static command must be GET or HEAD")
		}
		if !slices.Contains(c.methods, m) {
			c.methods = append(c.methods, m)
		}
	}
	if len(c.methods) == 0 {
		return nil, cnserrors.New(cnserrors.ErrCodeInvalidConfig, "missing HTTP method")
	}
	if c.static && c.root == "" {
		return nil, cnserrors.New(cnserrors.ErrCodeInvalidConfig, "missing root for static command")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return nil, cnserrors.New(cnserrors.ErrCodeInvalidConfig,
			fmt.Sprintf("cannot register %q after init", c.name))
	}

	for _, m := range c.methods {
		key := c.key(m)
		if _, dup := r.literal[key]; dup || r.hasPattern(key) {
			return nil, cnserrors.NewWithContext(cnserrors.ErrCodeConflict,
				fmt.Sprintf("%s is already registered", c.name),
				map[string]any{"key": key})
		}
	}

	for _, m := range c.methods {
		key := c.key(m)
		if c.pattern != nil {
			r.patterns = append(r.patterns, route{key: key, cmd: c})
		} else {
			r.literal[key] = c
		}
	}
	slices.SortStableFunc(r.patterns, func(a, b route) int {
		if len(a.key) != len(b.key) {
			return len(b.key) - len(a.key)
		}
		return strings.Compare(a.key, b.key)
	})
	r.commands = append(r.commands, c)

	return c, nil
}

func (r *Router) hasPattern(key string) bool {
	return slices.ContainsFunc(r.patterns, func(rt route) bool { return rt.key == key })
}

// Resolve finds the command for method and name, the request path without
// its leading slash. Literal routes win; patterns are tried longest first
// and their named captures are returned.
func (r *Router) Resolve(method, name string) (*Command, map[string]string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if c, ok := r.literal[method+" /"+name]; ok {
		return c, nil, true
	}

	prefix := method + " "
	for _, rt := range r.patterns {
		if !strings.HasPrefix(rt.key, prefix) {
			continue
		}
		m := rt.cmd.pattern.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		captures := map[string]string{}
		for i, group := range rt.cmd.pattern.SubexpNames() {
			if i > 0 && group != "" && i < len(m) {
				captures[group] = m[i]
			}
		}
		return rt.cmd, captures, true
	}

	return nil, nil, false
}

// Commands returns every registered command once, in registration order.
func (r *Router) Commands() []*Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.commands)
}

// Keys returns every registry key, literal routes first.
func (r *Router) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.literal)+len(r.patterns))
	for k := range r.literal {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, rt := range r.patterns {
		keys = append(keys, rt.key)
	}
	return keys
}

func (r *Router) freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
}
