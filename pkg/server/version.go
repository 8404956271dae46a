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

import "strings"

const (
	name           = "httpdispatch"
	versionDefault = "dev"
)

var (
	// overridden during build with ldflags
	version = versionDefault
	commit  = "unknown"
	date    = "unknown"
)

// BuildInfo returns the version, commit and date the binary was built with.
func BuildInfo() (string, string, string) {
	return version, commit, date
}

// versionString is the value of the Server response header.
func (s *Server) versionString() string {
	return strings.TrimSpace(s.opts.ServerVersion + " " + s.opts.SysVersion)
}
