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

package params

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// CacheBusterKey is stripped from every decoded result.
const CacheBusterKey = "____ts"

// Pair is a single key/value entry in the order it appeared on the wire.
type Pair struct {
	Key   string
	Value string
}

// Values is a nested parameter mapping. Leaf values are strings, nested
// levels are Values.
type Values map[string]any

// Get returns the string stored under key, or "" when the key is missing
// or holds a nested mapping.
func (v Values) Get(key string) string {
	s, _ := v[key].(string)
	return s
}

// Lookup returns the string stored under key and whether it was present as
// a leaf.
func (v Values) Lookup(key string) (string, bool) {
	s, ok := v[key].(string)
	return s, ok
}

// Map returns the nested mapping stored under key, or nil.
func (v Values) Map(key string) Values {
	m, _ := v[key].(Values)
	return m
}

// List returns the leaves of the nested mapping under key ordered by their
// integer index. Entries with non-integer keys are skipped.
func (v Values) List(key string) []string {
	m := v.Map(key)
	if m == nil {
		return nil
	}

	idx := make([]int, 0, len(m))
	for k := range m {
		if n, err := strconv.Atoi(k); err == nil && n >= 0 {
			idx = append(idx, n)
		}
	}
	sort.Ints(idx)

	out := make([]string, 0, len(idx))
	for _, n := range idx {
		if s, ok := m[strconv.Itoa(n)].(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Merge copies every top-level entry of other into v, overwriting existing keys.
func (v Values) Merge(other map[string]string) {
	for k, val := range other {
		v[k] = val
	}
}

// Decode turns an ordered list of pairs into a nested mapping using
// bracket-key semantics:
//
//	a=1           -> {"a": "1"}
//	a[b]=1        -> {"a": {"b": "1"}}
//	a[]=x&a[]=y   -> {"a": {"0": "x", "1": "y"}}
//
// Plain keys are last-write-wins. An empty bracket appends at the lowest
// unused non-negative integer index of its level. An intermediate segment
// that already holds a leaf is replaced by a fresh mapping.
func Decode(pairs []Pair) Values {
	ret := Values{}

	for _, p := range pairs {
		key := p.Key
		if key == "" || !strings.Contains(key, "]") {
			ret[key] = p.Value
			continue
		}

		lbracket := strings.IndexByte(key, '[')
		if lbracket == -1 {
			ret[key] = p.Value
			continue
		}

		segments := bracketSegments(key[lbracket:])
		root := key[:lbracket]
		if len(segments) == 0 {
			ret[root] = p.Value
			continue
		}

		ref, ok := ret[root].(Values)
		if !ok {
			ref = Values{}
			ret[root] = ref
		}

		last := len(segments) - 1
		for i, seg := range segments {
			if seg == "" {
				seg = nextIndex(ref)
			}

			if i == last {
				ref[seg] = p.Value
				break
			}

			next, ok := ref[seg].(Values)
			if !ok {
				next = Values{}
				ref[seg] = next
			}
			ref = next
		}
	}

	delete(ret, CacheBusterKey)

	return ret
}

// bracketSegments extracts every "[...]" group from s, in order.
func bracketSegments(s string) []string {
	var out []string
	for {
		open := strings.IndexByte(s, '[')
		if open == -1 {
			return out
		}
		end := strings.IndexByte(s[open+1:], ']')
		if end == -1 {
			return out
		}
		out = append(out, s[open+1:open+1+end])
		s = s[open+1+end+1:]
	}
}

func nextIndex(m Values) string {
	for j := 0; ; j++ {
		k := strconv.Itoa(j)
		if _, used := m[k]; !used {
			return k
		}
	}
}

// ParsePairs splits a url-encoded string ("a=1&b=2") into ordered pairs.
// Both '&' and ';' separate entries. Keys without '=' get an empty value.
// Empty entries are skipped.
func ParsePairs(raw string) ([]Pair, error) {
	var pairs []Pair

	for raw != "" {
		var part string
		if i := strings.IndexAny(raw, "&;"); i >= 0 {
			part, raw = raw[:i], raw[i+1:]
		} else {
			part, raw = raw, ""
		}
		if part == "" {
			continue
		}

		k, v, _ := strings.Cut(part, "=")
		key, err := url.QueryUnescape(k)
		if err != nil {
			return nil, fmt.Errorf("invalid key %q: %w", k, err)
		}
		val, err := url.QueryUnescape(v)
		if err != nil {
			return nil, fmt.Errorf("invalid value for key %q: %w", key, err)
		}
		pairs = append(pairs, Pair{Key: key, Value: val})
	}

	return pairs, nil
}

// ParseQuery is ParsePairs followed by Decode.
func ParseQuery(raw string) (Values, error) {
	pairs, err := ParsePairs(raw)
	if err != nil {
		return nil, err
	}
	return Decode(pairs), nil
}
