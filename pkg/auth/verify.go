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
	"crypto/sha1" //nolint:gosec // required by the {SHA} htpasswd format
	"crypto/subtle"
	"encoding/base64"
	"strings"

	"github.com/GehirnInc/crypt"
	_ "github.com/GehirnInc/crypt/apr1_crypt"
	_ "github.com/GehirnInc/crypt/md5_crypt"
	_ "github.com/GehirnInc/crypt/sha256_crypt"
	_ "github.com/GehirnInc/crypt/sha512_crypt"
	"golang.org/x/crypto/bcrypt"

	"github.com/NVIDIA/httpdispatch/pkg/auth/descrypt"
)

const shaPrefix = "{SHA}"

// SHASecret returns the {SHA} form of password.
func SHASecret(password string) string {
	sum := sha1.Sum([]byte(password)) //nolint:gosec
	return shaPrefix + base64.StdEncoding.EncodeToString(sum[:])
}

// Verify reports whether password matches the hashed secret.
func Verify(secret, password string) bool {
	switch {
	case secret == "":
		return false
	case strings.HasPrefix(secret, shaPrefix):
		return equal(secret, SHASecret(password))
	case strings.HasPrefix(secret, "$2a$"),
		strings.HasPrefix(secret, "$2b$"),
		strings.HasPrefix(secret, "$2y$"):
		return bcrypt.CompareHashAndPassword([]byte(secret), []byte(password)) == nil
	case crypt.IsHashSupported(secret):
		return crypt.NewFromHash(secret).Verify(secret, []byte(password)) == nil
	default:
		return equal(secret, descrypt.Crypt(password, secret))
	}
}

func equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
