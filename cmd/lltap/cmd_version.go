// Copyright The LLTap Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"runtime"

	"github.com/urfave/cli/v3"
)

//nolint:gochecknoglobals // CLI command table entry
var commandVersion = &cli.Command{
	Name:        "version",
	Description: "Print the version of the tool",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "verbose",
			Usage: "Print additional information about the tool",
		},
	},
	Action: func(_ context.Context, cmd *cli.Command) error {
		if _, err := fmt.Fprintf(cmd.Writer, "lltap version %s", Version); err != nil {
			return cli.Exit(err, exitCodeFailure)
		}
		if CommitHash != "unknown" {
			if _, err := fmt.Fprintf(cmd.Writer, "+%s", CommitHash); err != nil {
				return cli.Exit(err, exitCodeFailure)
			}
		}
		if BuildTime != "unknown" {
			if _, err := fmt.Fprintf(cmd.Writer, " (%s)", BuildTime); err != nil {
				return cli.Exit(err, exitCodeFailure)
			}
		}
		if _, err := fmt.Fprint(cmd.Writer, "\n"); err != nil {
			return cli.Exit(err, exitCodeFailure)
		}

		if cmd.Bool("verbose") {
			if _, err := fmt.Fprintf(cmd.Writer, "%s\n", runtime.Version()); err != nil {
				return cli.Exit(err, exitCodeFailure)
			}
		}
		return nil
	},
}
