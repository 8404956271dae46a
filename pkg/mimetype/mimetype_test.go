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

package mimetype

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetector(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content []byte
		want    string
	}{
		{"note.txt", []byte("hello world\n"), "text/plain"},
		{"pixel.png", []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), "image/png"},
		{"doc.pdf", []byte("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n"), "application/pdf"},
	}

	d := NewDetector()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name)
			require.NoError(t, os.WriteFile(path, tt.content, 0o600))

			got, err := d.TypeByFile(path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDetectorMissingFile(t *testing.T) {
	_, err := NewDetector().TypeByFile(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestEssence(t *testing.T) {
	assert.Equal(t, "text/html", Essence("Text/HTML; charset=utf-8"))
	assert.Equal(t, "image/svg", Essence("image/svg"))
	assert.Equal(t, "", Essence(""))
}

func TestClassifierFunc(t *testing.T) {
	var c Classifier = ClassifierFunc(func(string) (string, error) { return "image/svg", nil })
	got, err := c.TypeByFile("x.svg")
	require.NoError(t, err)
	assert.Equal(t, "image/svg", got)
}
