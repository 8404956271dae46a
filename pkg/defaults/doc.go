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

// Package defaults provides centralized configuration constants for the
// dispatch server.
//
// This package defines timeouts, request limits and rendering defaults used
// across the codebase. Centralizing these values ensures consistency and makes
// tuning easier.
//
// # Categories
//
//   - Server timeouts: header/body read, write, shutdown drain
//   - Request limits: body size, header size, multipart memory
//   - Static files: chunk size, default charset and content type
//   - CORS: preflight max age
//
// # Usage
//
//	import "github.com/NVIDIA/httpdispatch/pkg/defaults"
//
//	conn.SetReadDeadline(time.Now().Add(defaults.ServerReadHeaderTimeout))
package defaults
