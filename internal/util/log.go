// Copyright The LLTap Authors
// SPDX-License-Identifier: Apache-2.0

package util

import (
	"context"
	"log/slog"
)

type contextKeyLogger struct{}

// ContextWithLogger returns a context carrying logger, retrievable later via
// LoggerFromContext.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, contextKeyLogger{}, logger)
}

// LoggerFromContext returns the logger stored in ctx, or slog.Default() if
// none was stored (or the stored value is not a *slog.Logger).
func LoggerFromContext(ctx context.Context) *slog.Logger {
	logger, ok := ctx.Value(contextKeyLogger{}).(*slog.Logger)
	if !ok {
		return slog.Default()
	}
	return logger
}
