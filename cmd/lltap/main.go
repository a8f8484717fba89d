// Copyright The LLTap Authors
// SPDX-License-Identifier: Apache-2.0

// Command lltap drives LLTap's compile-time instrumentation: it wraps
// `go build` with a -toolexec interceptor that rewrites eligible call
// sites and function-pointer stores into trampoline dispatch, backed by
// the process-wide hook registry in github.com/lltap/lltap/pkg/lltap.
package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/lltap/lltap/internal/ex"
	"github.com/lltap/lltap/internal/util"
)

const (
	exitCodeFailure    = 1
	exitCodeUsageError = 2

	debugLogFilename = "debug.log"
)

func main() {
	app := &cli.Command{
		Name:        "lltap",
		Usage:       "Compile-time function interposition for Go",
		HideVersion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "work-dir",
				Aliases: []string{"w"},
				Usage:   "directory where working files will be written",
				Value:   filepath.Join(".", util.BuildTempDir),
			},
		},
		Commands: []*cli.Command{
			commandSetup,
			commandGo,
			commandToolexec,
			commandVersion,
		},
		Before: initLogger,
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		ex.Fatal(err)
	}
}

func initLogger(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	workDir := cmd.String("work-dir")
	// A toolexec subprocess inherits the work directory its parent `go`
	// command exported; keep it unless -work-dir was given explicitly.
	if inherited := os.Getenv(util.EnvWorkDir); inherited != "" && !cmd.IsSet("work-dir") {
		workDir = inherited
	}
	if abs, err := filepath.Abs(workDir); err == nil {
		workDir = abs
	}
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return ctx, ex.Wrapf(err, "creating work directory %q", workDir)
	}
	os.Setenv(util.EnvWorkDir, workDir)

	writer, err := os.OpenFile(filepath.Join(workDir, debugLogFilename), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return ctx, ex.Wrapf(err, "opening log file in %q", workDir)
	}

	handler := slog.NewTextHandler(writer, &slog.HandlerOptions{
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.Format("06/1/2 15:04:05"))
				}
			}
			return a
		},
	})
	logger := slog.New(handler)
	return util.ContextWithLogger(ctx, logger), nil
}
