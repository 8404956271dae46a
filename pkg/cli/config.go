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

package cli

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/NVIDIA/httpdispatch/pkg/config"
)

func configCmd() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Print the effective server configuration",
		Description: `Print the options the server would run with: defaults, the
environment, the --config file and the root flags, in that order.

The output can be saved and passed back with --config.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"t"},
				Value:   string(config.FormatYAML),
				Usage:   "Output format (yaml, toml, json)",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			format := config.Format(cmd.String("format"))
			if format.IsUnknown() {
				return fmt.Errorf("unknown output format: %q", cmd.String("format"))
			}

			opts, err := optionsFromCmd(cmd)
			if err != nil {
				return err
			}

			return config.Write(cmd.Root().Writer, format, opts)
		},
	}
}
