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

package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	cnserrors "github.com/NVIDIA/httpdispatch/pkg/errors"
	"github.com/NVIDIA/httpdispatch/pkg/server"
)

// Format is a configuration file encoding.
type Format string

const (
	FormatYAML    Format = "yaml"
	FormatTOML    Format = "toml"
	FormatJSON    Format = "json"
	FormatUnknown Format = ""
)

// IsUnknown reports whether f is not a supported format.
func (f Format) IsUnknown() bool {
	return !slices.Contains([]Format{FormatYAML, FormatTOML, FormatJSON}, f)
}

// FormatFromPath determines the format from the file extension.
// Extension matching is case-insensitive.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".toml":
		return FormatTOML
	case ".json":
		return FormatJSON
	default:
		return FormatUnknown
	}
}

// Load reads path and returns the default options overlaid with its
// content. The result is validated.
func Load(path string) (*server.Options, error) {
	format := FormatFromPath(path)
	if format.IsUnknown() {
		return nil, cnserrors.NewWithContext(cnserrors.ErrCodeInvalidConfig,
			"unsupported config file extension", map[string]any{"path": path})
	}

	f, err := os.Open(path)
	if err != nil {
		code := cnserrors.ErrCodeInternal
		if os.IsNotExist(err) {
			code = cnserrors.ErrCodeNotFound
		}
		return nil, cnserrors.WrapWithContext(code, "failed to open config file", err,
			map[string]any{"path": path})
	}
	defer f.Close()

	opts := server.NewOptions()
	if err := Decode(format, f, opts); err != nil {
		return nil, cnserrors.WrapWithContext(cnserrors.ErrCodeInvalidConfig,
			"failed to parse config file", err, map[string]any{"path": path})
	}

	if err := opts.Validate(); err != nil {
		return nil, err
	}

	return opts, nil
}

// Decode reads options in format from r into opts. Keys missing from the
// input leave the corresponding fields untouched.
func Decode(format Format, r io.Reader, opts *server.Options) error {
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(opts); err != nil && err != io.EOF {
			return err
		}
		return nil
	case FormatTOML:
		md, err := toml.NewDecoder(r).Decode(opts)
		if err != nil {
			return err
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return fmt.Errorf("unknown keys: %v", undecoded)
		}
		return nil
	case FormatJSON:
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(opts); err != nil && err != io.EOF {
			return err
		}
		return nil
	default:
		return fmt.Errorf("unknown format: %q", format)
	}
}

// Write encodes opts in format to w.
func Write(w io.Writer, format Format, opts *server.Options) error {
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(opts); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		return enc.Close()
	case FormatTOML:
		if err := toml.NewEncoder(w).Encode(opts); err != nil {
			return fmt.Errorf("failed to encode toml: %w", err)
		}
		return nil
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(opts)
	default:
		return fmt.Errorf("unknown format: %q", format)
	}
}
