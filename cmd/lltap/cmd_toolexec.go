// Copyright The LLTap Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/lltap/lltap/internal/ex"
	"github.com/lltap/lltap/internal/pass"
	"github.com/lltap/lltap/internal/util"
)

// commandToolexec is the subcommand go build invokes via -toolexec. The Go
// toolchain runs it once per underlying tool (compile, asm, link, ...),
// passing that tool's own argv as our args and setting TOOLEXEC_IMPORT_PATH
// to the package currently being built.
//
//nolint:gochecknoglobals // CLI command table entry
var commandToolexec = &cli.Command{
	Name:            "toolexec",
	Description:     "Internal: invoked by `go build -toolexec`",
	Hidden:          true,
	SkipFlagParsing: true,
	Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
		if os.Getenv("TOOLEXEC_IMPORT_PATH") == "" {
			return ctx, ex.New("toolexec must be invoked by the Go toolchain (TOOLEXEC_IMPORT_PATH unset)")
		}
		return ctx, nil
	},
	Action: func(ctx context.Context, cmd *cli.Command) error {
		logger := util.LoggerFromContext(ctx)
		rewritten, err := pass.Toolexec(ctx, cmd.Args().Slice())
		if err != nil {
			logger.Error("lltap: toolexec pass failed", "err", err)
			return cli.Exit(err, exitCodeFailure)
		}
		return util.RunCmd(ctx, rewritten...)
	},
}
