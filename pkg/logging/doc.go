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

// Package logging configures slog for httpdisd and the dispatch server.
//
// Records are JSON on stderr and carry the module and version of the
// binary. Debug level adds the source location.
//
// Levels are parsed case-insensitively: debug, info (default),
// warn or warning, error. LOG_LEVEL sets the level when no explicit one
// is given:
//
//	LOG_LEVEL=debug httpdisd --static-root ./public
//
// Usage:
//
//	logging.SetDefaultStructuredLoggerWithLevel("httpdisd", version, "info")
//	srv := server.New(server.WithLogger(slog.Default()))
//
// A record written by the dispatcher after each response:
//
//	{
//	    "time": "2025-01-15T10:30:00.123Z",
//	    "level": "INFO",
//	    "msg": "request",
//	    "module": "httpdisd",
//	    "version": "v1.0.0",
//	    "request": "GET /ping HTTP/1.1",
//	    "status": 200,
//	    "size": 4,
//	    "requestID": "0b6c1f0e-3f7a-4c55-9a9e-2d1d8f0e7b11",
//	    "command": "GET /ping",
//	    "remote": "127.0.0.1"
//	}
//
// Commands registered with WithLog(false) are only logged at debug level.
package logging
