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

// Package descrypt implements the traditional crypt(3) password hash: 25
// rounds of salt-perturbed DES over a zero block, keyed by the first eight
// characters of the password.
//
// The result is 13 characters: the two salt characters followed by eleven
// characters of encoded output, drawn from the alphabet "./0-9A-Za-z".
package descrypt

// Crypt hashes key with the first two characters of salt.
// A salt shorter than two characters is padded by repeating its first
// character, and an empty salt behaves as "..".
func Crypt(key, salt string) string {
	var s [2]byte
	switch {
	case len(salt) >= 2:
		s[0], s[1] = salt[0], salt[1]
	case len(salt) == 1:
		s[0], s[1] = salt[0], salt[0]
	default:
		s[0], s[1] = '.', '.'
	}

	var block [66]byte
	for i, n := 0, 0; n < len(key) && i < 64; n++ {
		c := key[n]
		for j := 0; j < 7; j++ {
			block[i] = (c >> (6 - j)) & 1
			i++
		}
		i++
	}

	ks := schedule(block[:64])

	e := expansion
	for i := 0; i < 2; i++ {
		c := saltValue(s[i])
		for j := 0; j < 6; j++ {
			if (c>>j)&1 == 1 {
				e[6*i+j], e[6*i+j+24] = e[6*i+j+24], e[6*i+j]
			}
		}
	}

	for i := range block {
		block[i] = 0
	}
	for i := 0; i < 25; i++ {
		encrypt(&block, &ks, &e)
	}

	out := make([]byte, 13)
	out[0], out[1] = s[0], s[1]
	for i := 0; i < 11; i++ {
		var c byte
		for j := 0; j < 6; j++ {
			c = c<<1 | block[6*i+j]
		}
		out[i+2] = encodeChar(c)
	}

	return string(out)
}

func saltValue(c byte) byte {
	if c > 'Z' {
		c -= 6
	}
	if c > '9' {
		c -= 7
	}
	return (c - '.') & 0x3f
}

func encodeChar(c byte) byte {
	c += '.'
	if c > '9' {
		c += 7
	}
	if c > 'Z' {
		c += 6
	}
	return c
}

func schedule(key []byte) [16][48]byte {
	var ks [16][48]byte
	var c, d [28]byte

	for i := 0; i < 28; i++ {
		c[i] = key[pc1C[i]-1]
		d[i] = key[pc1D[i]-1]
	}

	for i := 0; i < 16; i++ {
		for k := 0; k < shifts[i]; k++ {
			t := c[0]
			copy(c[:], c[1:])
			c[27] = t

			t = d[0]
			copy(d[:], d[1:])
			d[27] = t
		}
		for j := 0; j < 24; j++ {
			ks[i][j] = c[pc2C[j]-1]
			ks[i][j+24] = d[pc2D[j]-28-1]
		}
	}

	return ks
}

func encrypt(block *[66]byte, ks *[16][48]byte, e *[48]byte) {
	var lr [64]byte
	for j := 0; j < 64; j++ {
		lr[j] = block[ip[j]-1]
	}
	l, r := lr[:32], lr[32:]

	var tmp [32]byte
	var pre [48]byte
	var f [32]byte

	for round := 0; round < 16; round++ {
		copy(tmp[:], r)

		for j := 0; j < 48; j++ {
			pre[j] = r[e[j]-1] ^ ks[round][j]
		}

		for j := 0; j < 8; j++ {
			t := 6 * j
			idx := int(pre[t])<<5 | int(pre[t+1])<<3 | int(pre[t+2])<<2 |
				int(pre[t+3])<<1 | int(pre[t+4]) | int(pre[t+5])<<4
			k := sbox[j][idx]
			t = 4 * j
			f[t] = (k >> 3) & 1
			f[t+1] = (k >> 2) & 1
			f[t+2] = (k >> 1) & 1
			f[t+3] = k & 1
		}

		for j := 0; j < 32; j++ {
			r[j] = l[j] ^ f[perm[j]-1]
		}
		copy(l, tmp[:])
	}

	for j := 0; j < 32; j++ {
		l[j], r[j] = r[j], l[j]
	}

	for j := 0; j < 64; j++ {
		block[j] = lr[fp[j]-1]
	}
}
