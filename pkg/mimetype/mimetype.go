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

// Package mimetype classifies files by content for the static responder.
package mimetype

import (
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Classifier returns the media type of the file at path, without parameters.
type Classifier interface {
	TypeByFile(path string) (string, error)
}

// ClassifierFunc adapts a function to the Classifier interface.
type ClassifierFunc func(path string) (string, error)

// TypeByFile calls f(path).
func (f ClassifierFunc) TypeByFile(path string) (string, error) {
	return f(path)
}

// Detector sniffs file contents.
type Detector struct{}

// NewDetector returns a content-sniffing Classifier.
func NewDetector() *Detector {
	return &Detector{}
}

// TypeByFile reads the head of the file and returns its media type,
// e.g. "text/plain" or "image/png".
func (d *Detector) TypeByFile(path string) (string, error) {
	m, err := mimetype.DetectFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to detect media type of %s: %w", path, err)
	}
	return Essence(m.String()), nil
}

// Essence strips parameters and lower-cases a media type:
// "Text/HTML; charset=utf-8" becomes "text/html".
func Essence(mediaType string) string {
	base, _, _ := strings.Cut(mediaType, ";")
	return strings.ToLower(strings.TrimSpace(base))
}
