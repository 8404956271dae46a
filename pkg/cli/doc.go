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

// Package cli implements the httpdisd command line.
//
// httpdisd runs a dispatch server configured from an optional config file
// and command line flags. Flags win over the file, the file wins over the
// environment defaults of server.NewOptions.
//
// # Usage
//
//	httpdisd [flags]
//	httpdisd config [--format yaml|toml|json]
//
// # Examples
//
// Serve a directory under /static with the test commands enabled:
//
//	httpdisd --listen-port 8080 --static-root ./public --testmethods
//
// Protect the static files with Basic authentication:
//
//	httpdisd --static-root ./public --static-auth \
//	  --auth-file /etc/httpdisd/htpasswd --realm files
//
// Print the effective configuration:
//
//	httpdisd --config /etc/httpdisd.yaml config --format toml
//
// # Global Flags
//
//	--config         Config file (.yaml, .yml, .toml, .json)
//	--listen-addr    Address to bind
//	--listen-port    Port to bind
//	--log-level      Log level: debug, info, warn, error
//	--auth-file      htpasswd style credential file
//	--realm          Basic authentication realm
//	--static-root    Directory served below --static-prefix
//	--testmethods    Register GET /fortytwo and POST /ping
//	--metrics        Path of the Prometheus metrics command
//	--probes         Register GET /health and GET /ready
//	--help, -h       Show command help
//	--version, -v    Show version information
package cli
