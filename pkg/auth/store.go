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
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	cnserrors "github.com/NVIDIA/httpdispatch/pkg/errors"
)

// Store maps user names to hashed secrets. It is read-only once loaded.
type Store struct {
	users map[string]string
}

// NewStore returns a Store backed by a copy of users.
func NewStore(users map[string]string) *Store {
	s := &Store{users: make(map[string]string, len(users))}
	for u, secret := range users {
		s.users[u] = secret
	}
	return s
}

// Load reads a credential file. It fails when the file cannot be opened.
func Load(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, cnserrors.WrapWithContext(cnserrors.ErrCodeNotFound,
			"failed to open credential file", err, map[string]any{"path": path})
	}
	defer f.Close()

	s, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read credential file %s: %w", path, err)
	}
	return s, nil
}

// Parse reads "user:secret" lines from r.
func Parse(r io.Reader) (*Store, error) {
	s := &Store{users: make(map[string]string)}

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.Index(line, ":") < 1 {
			continue
		}
		user, secret, _ := strings.Cut(line, ":")
		if secret == "" {
			continue
		}
		s.users[user] = secret
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	return s, nil
}

// Lookup returns the hashed secret for user.
func (s *Store) Lookup(user string) (string, bool) {
	if s == nil {
		return "", false
	}
	secret, ok := s.users[user]
	return secret, ok
}

// Len returns the number of loaded users.
func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	return len(s.users)
}
