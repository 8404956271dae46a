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

// Package config loads server options from a file.
//
// The format is chosen by file extension:
//   - .yaml, .yml → YAML
//   - .toml → TOML
//   - .json → JSON
//
// Keys use the snake_case option names (listen_port, max_body_size,
// auth_basic_file, ...). Values present in the file replace the defaults
// returned by server.NewOptions; absent keys keep them. Unknown keys are
// rejected.
//
// Usage:
//
//	opts, err := config.Load("/etc/httpdisd.yaml")
//	if err != nil {
//	    return err
//	}
//	srv := server.New(server.WithOptions(opts))
//
// Durations (read_header_timeout, shutdown_timeout) are written as Go
// duration strings ("15s") in YAML and TOML, and as nanoseconds in JSON.
package config
