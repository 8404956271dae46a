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

package descrypt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCryptKnownVectors(t *testing.T) {
	tests := []struct {
		password, salt, want string
	}{
		{"rasmuslerdorf", "rl", "rl.3StKT.4T8M"},
		{"test", "ab", "abgOeLfPimXQo"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Crypt(tt.password, tt.salt), "password %q salt %q", tt.password, tt.salt)
	}
}

func TestCryptShape(t *testing.T) {
	h := Crypt("secret", "ab")

	assert.Len(t, h, 13)
	assert.Equal(t, "ab", h[:2])
	for _, c := range h {
		ok := c == '.' || c == '/' ||
			(c >= '0' && c <= '9') ||
			(c >= 'A' && c <= 'Z') ||
			(c >= 'a' && c <= 'z')
		assert.True(t, ok, "unexpected character %q in %q", c, h)
	}
}

func TestCryptDeterministic(t *testing.T) {
	assert.Equal(t, Crypt("secret", "ab"), Crypt("secret", "ab"))
	assert.Equal(t, Crypt("secret", "ab"), Crypt("secret", "abXYZ"))
}

func TestCryptSensitivity(t *testing.T) {
	base := Crypt("secret", "ab")

	assert.NotEqual(t, base, Crypt("secreT", "ab"))
	assert.NotEqual(t, base[2:], Crypt("secret", "ac")[2:])
}

func TestCryptOnlyFirstEightCharacters(t *testing.T) {
	assert.Equal(t, Crypt("password", "xy"), Crypt("password123", "xy"))
}

func TestCryptShortSalt(t *testing.T) {
	assert.Equal(t, "aa", Crypt("x", "a")[:2])
	assert.Equal(t, "..", Crypt("x", "")[:2])
}
