// Copyright The LLTap Authors
// SPDX-License-Identifier: Apache-2.0

package util

import "strings"

// isCompileTool reports whether toolPath points at the Go compiler.
func isCompileTool(toolPath string) bool {
	return strings.HasSuffix(toolPath, "/compile") || strings.HasSuffix(toolPath, "compile.exe")
}

// isLinkTool reports whether toolPath points at the Go linker.
func isLinkTool(toolPath string) bool {
	return strings.HasSuffix(toolPath, "/link") || strings.HasSuffix(toolPath, "link.exe")
}

func hasFlag(args []string, flag string) bool {
	for _, arg := range args {
		if arg == flag || strings.HasPrefix(arg, flag+"=") {
			return true
		}
	}
	return false
}

// IsCompileArgs reports whether args is a `go tool compile` invocation,
// i.e. the per-package compile step that -toolexec intercepts.
func IsCompileArgs(args []string) bool {
	if len(args) == 0 || !isCompileTool(args[0]) {
		return false
	}
	for _, flag := range []string{"-o", "-p", "-buildid"} {
		if !hasFlag(args, flag) {
			return false
		}
	}
	// The PGO pre-profiling compile pass recompiles the same package; skip
	// it so a package is never instrumented twice.
	return !hasFlag(args, "-pgoprofile")
}

// IsLinkArgs reports whether args is a `go tool link` invocation.
func IsLinkArgs(args []string) bool {
	if len(args) == 0 || !isLinkTool(args[0]) {
		return false
	}
	for _, flag := range []string{"-o", "-buildid", "-importcfg"} {
		if !hasFlag(args, flag) {
			return false
		}
	}
	return true
}

// FindFlagValue returns the value of flag in cmd, supporting both
// "-flag value" and "-flag=value" forms. Returns "" if absent.
func FindFlagValue(cmd []string, flag string) string {
	flagWithValue := flag + "="
	for i, v := range cmd {
		if v == flag {
			if i+1 < len(cmd) {
				return cmd[i+1]
			}
			return ""
		}
		if strings.HasPrefix(v, flagWithValue) {
			return strings.TrimPrefix(v, flagWithValue)
		}
	}
	return ""
}
