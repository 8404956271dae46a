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

// Package auth implements HTTP Basic authentication against an
// htpasswd-style credential file.
//
// # Credential File
//
// One "user:secret" entry per line. Blank lines, lines starting with '#',
// lines without a user name and lines with an empty secret are ignored:
//
//	# admins
//	alice:{SHA}qUqP5cyxm6YcTAhz05Hph5gvu9M=
//	bob:rl.3StKT.4T8M
//	carol:$2y$05$...
//
// Supported secrets:
//   - {SHA}<base64 sha1>
//   - bcrypt ($2a$, $2b$, $2y$)
//   - MD5, APR1, SHA-256 and SHA-512 crypt ($1$, $apr1$, $5$, $6$)
//   - traditional crypt(3), salted with the first two characters of the secret
//
// # Usage
//
//	store, err := auth.Load("/etc/httpdis/htpasswd")
//	if err != nil {
//	    return err
//	}
//	gate := auth.NewGate(store, "restricted")
//
//	creds, err := gate.Authorize(r.Header.Get("Authorization"), []string{"alice"})
//	if errors.Is(err, auth.ErrUnauthorized) {
//	    // respond 401 with WWW-Authenticate: gate.Challenge()
//	}
//
// A Gate without a store is disabled and authorizes every request.
package auth
