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

package auth

import (
	"encoding/base64"
	"errors"
	"fmt"
	"slices"
	"strings"
)

var (
	// ErrUnauthorized is the root of every authentication failure.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrMissingCredentials is returned when no Authorization header is sent.
	ErrMissingCredentials = fmt.Errorf("%w: missing credentials", ErrUnauthorized)

	// ErrInvalidCredentials is returned for a malformed header, unknown user
	// or wrong password.
	ErrInvalidCredentials = fmt.Errorf("%w: invalid credentials", ErrUnauthorized)

	// ErrUserNotAllowed is returned when valid credentials belong to a user
	// outside the command's allow-list.
	ErrUserNotAllowed = fmt.Errorf("%w: user not allowed", ErrUnauthorized)
)

// Credentials is the identity presented in an Authorization header,
// whether or not it was accepted.
type Credentials struct {
	User     string
	Password string
}

// Gate validates Basic authorization headers against a Store.
type Gate struct {
	store *Store
	realm string
}

// NewGate returns a Gate. A nil store disables authentication.
func NewGate(store *Store, realm string) *Gate {
	return &Gate{store: store, realm: realm}
}

// Enabled reports whether a credential store is configured.
func (g *Gate) Enabled() bool {
	return g != nil && g.store != nil
}

// Realm returns the configured realm.
func (g *Gate) Realm() string {
	if g == nil {
		return ""
	}
	return g.realm
}

// Challenge returns the WWW-Authenticate value sent with 401 responses.
func (g *Gate) Challenge() string {
	return fmt.Sprintf("Basic realm=%q", g.Realm())
}

// Validate decodes a "Basic <base64>" header and checks it against the
// store. The decoded credentials are returned even when the check fails,
// so callers can tell who was refused.
func (g *Gate) Validate(header string) (Credentials, bool) {
	kind, data, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || strings.TrimSpace(kind) != "Basic" {
		return Credentials{}, false
	}

	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(data))
	if err != nil {
		return Credentials{}, false
	}

	user, password, _ := strings.Cut(string(raw), ":")
	creds := Credentials{User: user, Password: password}

	secret, ok := g.store.Lookup(user)
	if !ok || secret == "" {
		return creds, false
	}

	return creds, Verify(secret, password)
}

// Authorize checks header and, when allowed is non-empty, that the user is
// listed. It is a no-op returning nil when the gate is disabled.
// Every failure wraps ErrUnauthorized.
func (g *Gate) Authorize(header string, allowed []string) (Credentials, error) {
	if !g.Enabled() {
		return Credentials{}, nil
	}

	if header == "" {
		return Credentials{}, ErrMissingCredentials
	}

	creds, ok := g.Validate(header)

	if len(allowed) > 0 && !slices.Contains(allowed, creds.User) {
		return creds, ErrUserNotAllowed
	}

	if !ok {
		return creds, ErrInvalidCredentials
	}

	return creds, nil
}
