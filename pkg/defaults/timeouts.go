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

package defaults

import "time"

// Server timeouts for the connection server.
const (
	// ServerReadHeaderTimeout bounds reading the request line and headers.
	ServerReadHeaderTimeout = 10 * time.Second

	// ServerReadTimeout bounds reading a request body once headers are in.
	ServerReadTimeout = 30 * time.Second

	// ServerWriteTimeout is the maximum duration for writing a response.
	ServerWriteTimeout = 30 * time.Second

	// ServerShutdownTimeout is the maximum duration to wait for in-flight
	// connections after a stop.
	ServerShutdownTimeout = 30 * time.Second

	// ServerAcceptRetryMax caps the backoff after a temporary accept error.
	ServerAcceptRetryMax = 1 * time.Second
)

// Request limits.
const (
	// MaxBodySize is the default maximum request body size in bytes.
	MaxBodySize int64 = 1 << 20

	// MaxHeaderBytes caps the size of the request line plus headers.
	MaxHeaderBytes = 1 << 20

	// MultipartMemory is the in-memory budget for multipart forms; larger
	// file parts spill to temporary files.
	MultipartMemory int64 = 32 << 20
)

// Static file serving.
const (
	// FileBufferSize is the chunk size used when streaming static files.
	FileBufferSize = 64 * 1024

	// Charset is applied when a command does not declare one.
	Charset = "utf-8"

	// ContentType is used when neither the response nor the command set one.
	ContentType = "text/plain"
)

// CORS preflight.
const (
	// CORSMaxAge is the Access-Control-Max-Age sent on OPTIONS responses.
	CORSMaxAge = 1728000 * time.Second
)
