// Copyright The LLTap Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/lltap/lltap/internal/ex"
	"github.com/lltap/lltap/internal/pass"
	"github.com/lltap/lltap/internal/policy"
	"github.com/lltap/lltap/internal/setup"
	"github.com/lltap/lltap/internal/util"
)

//nolint:gochecknoglobals // CLI command table entry
var commandGo = &cli.Command{
	Name:            "go",
	Description:     "Run `go build` with LLTap's instrumentation pass enabled",
	ArgsUsage:       "[go build flags and packages]",
	SkipFlagParsing: false,
	Flags: []cli.Flag{
		&cli.StringSliceFlag{Name: "inst-func", Usage: "whitelist a callee by exact name (repeatable)"},
		&cli.StringSliceFlag{Name: "inst-funcs-re", Usage: "whitelist callees by regex (repeatable)"},
		&cli.StringSliceFlag{Name: "no-inst-func", Usage: "blacklist a callee by exact name (repeatable)"},
		&cli.StringSliceFlag{Name: "no-inst-funcs-re", Usage: "blacklist callees by regex (repeatable)"},
		&cli.StringFlag{Name: "inst-mode", Usage: "internal | external | both (default both)"},
		&cli.BoolFlag{Name: "no-inst-fptrs", Usage: "do not rewrite stores of function addresses"},
		&cli.StringFlag{Name: "hook-namespace", Usage: "register callees under <namespace>_<name>"},
		&cli.StringFlag{Name: "policy-file", Usage: "optional lltap.yaml selection-policy file", Value: "lltap.yaml"},
	},
	Action: func(ctx context.Context, cmd *cli.Command) error {
		logger := util.LoggerFromContext(ctx)

		buildArgs := cmd.Args().Slice()

		fileCfg, err := policy.LoadFile(cmd.String("policy-file"))
		if err != nil {
			return cli.Exit(ex.Wrap(err), exitCodeUsageError)
		}
		if fileCfg != nil {
			logger.Debug("lltap: loaded selection policy file", "path", cmd.String("policy-file"))
		}

		flags := policy.Merge(policy.FileConfig{
			InstFuncs:     cmd.StringSlice("inst-func"),
			InstFuncsRe:   cmd.StringSlice("inst-funcs-re"),
			NoInstFuncs:   cmd.StringSlice("no-inst-func"),
			NoInstFuncsRe: cmd.StringSlice("no-inst-funcs-re"),
			InstMode:      policy.Mode(cmd.String("inst-mode")),
			NoInstFptrs:   cmd.Bool("no-inst-fptrs"),
			HookNamespace: cmd.String("hook-namespace"),
		}, fileCfg)

		if flags.HookNamespace == "" {
			flags.HookNamespace = setup.DefaultNamespaceFromModule(".")
			if flags.HookNamespace != "" {
				logger.Debug("lltap: defaulting hook-namespace from go.mod", "namespace", flags.HookNamespace)
			}
		}

		if err := setup.VerifyPackages(ctx, setup.PackagePatterns(buildArgs)); err != nil {
			return cli.Exit(ex.Wrap(err), exitCodeUsageError)
		}

		pol, err := policy.New(
			flags.InstFuncs,
			flags.InstFuncsRe,
			flags.NoInstFuncs,
			flags.NoInstFuncsRe,
			flags.InstMode,
			flags.NoInstFptrs,
			flags.HookNamespace,
		)
		if err != nil {
			return cli.Exit(err, exitCodeUsageError)
		}
		if err := policy.Save(pol); err != nil {
			return cli.Exit(err, exitCodeFailure)
		}
		// Drop added-imports records from any previous build; this
		// build's link steps must only merge entries its own compile
		// steps record.
		pass.CleanupImportTracking()

		execPath, err := os.Executable()
		if err != nil {
			return cli.Exit(ex.Wrap(err), exitCodeFailure)
		}

		// Splice -a (force rebuild, so every package passes through the
		// interceptor even when cached) and -toolexec right after the go
		// verb, ahead of the user's own flags and package patterns: the go
		// command stops flag parsing at the first non-flag argument.
		verb := "build"
		rest := buildArgs
		if len(buildArgs) > 0 && (buildArgs[0] == "build" || buildArgs[0] == "install") {
			verb = buildArgs[0]
			rest = buildArgs[1:]
		}
		args := make([]string, 0, len(rest)+3)
		args = append(args, verb, "-a", "-toolexec="+execPath+" toolexec")
		args = append(args, rest...)

		env := []string{fmt.Sprintf("%s=%s", util.EnvWorkDir, util.GetWorkDir())}
		logger.Info("lltap: running go build with toolexec", "args", args)

		if err := util.RunCmdWithEnv(ctx, env, append([]string{"go"}, args...)...); err != nil {
			return cli.Exit(err, exitCodeFailure)
		}
		return nil
	},
}
