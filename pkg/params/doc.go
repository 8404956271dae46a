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

// Package params decodes url-encoded key/value pairs into nested mappings.
//
// Keys may use bracket notation to build nested structures:
//
//	pairs, _ := params.ParsePairs("user[name]=ada&tags[]=a&tags[]=b&____ts=123")
//	v := params.Decode(pairs)
//	// v = {"user": {"name": "ada"}, "tags": {"0": "a", "1": "b"}}
//
// The same decoder is used for query strings and for
// application/x-www-form-urlencoded request bodies. The "____ts" key, which
// clients append as a cache buster, never appears in a decoded result.
package params
