// Copyright The LLTap Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/lltap/lltap/internal/ex"
	"github.com/lltap/lltap/internal/setup"
	"github.com/lltap/lltap/internal/util"
)

// commandSetup validates that the current module is ready to be built
// with `lltap go`: it resolves the module's default hook-namespace and
// confirms the named (or default) packages load cleanly, without
// actually invoking the compiler. Useful as a fast pre-flight check in
// CI before a full instrumented build.
//
//nolint:gochecknoglobals // CLI command table entry
var commandSetup = &cli.Command{
	Name:        "setup",
	Description: "Validate that the current module is ready for `lltap go`",
	ArgsUsage:   "[package patterns]",
	Action: func(ctx context.Context, cmd *cli.Command) error {
		logger := util.LoggerFromContext(ctx)

		patterns := setup.PackagePatterns(cmd.Args().Slice())
		if len(patterns) == 0 {
			patterns = []string{"."}
		}

		if err := setup.VerifyPackages(ctx, patterns); err != nil {
			return cli.Exit(ex.Wrap(err), exitCodeFailure)
		}

		namespace := setup.DefaultNamespaceFromModule(".")
		logger.Info("lltap: setup check passed", "packages", patterns, "default_namespace", namespace)

		if _, err := fmt.Fprintf(cmd.Writer, "lltap: %v resolves cleanly\n", patterns); err != nil {
			return cli.Exit(err, exitCodeFailure)
		}
		if namespace != "" {
			if _, err := fmt.Fprintf(cmd.Writer, "lltap: default hook-namespace %q (pass -hook-namespace to override)\n", namespace); err != nil {
				return cli.Exit(err, exitCodeFailure)
			}
		}
		return nil
	},
}
