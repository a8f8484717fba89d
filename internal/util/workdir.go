// Copyright The LLTap Authors
// SPDX-License-Identifier: Apache-2.0

package util

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// EnvWorkDir overrides the directory LLTap uses for scratch files
	// (matched selection policy, generated sources kept for debugging).
	EnvWorkDir = "LLTAP_WORK_DIR"
	// BuildTempDir is the default scratch directory name, relative to the
	// current working directory, when EnvWorkDir is unset.
	BuildTempDir = ".lltap-build"
)

// GetWorkDir returns the configured LLTap scratch directory.
func GetWorkDir() string {
	if wd := os.Getenv(EnvWorkDir); wd != "" {
		return wd
	}
	wd, _ := os.Getwd()
	return wd
}

// GetBuildTempDir returns $WORK_DIR/.lltap-build.
func GetBuildTempDir() string {
	return filepath.Join(GetWorkDir(), BuildTempDir)
}

// GetBuildTemp returns $WORK_DIR/.lltap-build/name.
func GetBuildTemp(name string) string {
	return filepath.Join(GetBuildTempDir(), name)
}

// GetAddedImportsFile returns the per-process file recording the package
// archives a compile step spliced into its importcfg; the link step merges
// every process's file. One file per compile process avoids inter-process
// races without locking.
func GetAddedImportsFile(pid int) string {
	return GetBuildTemp(fmt.Sprintf("added-imports-%d.json", pid))
}

// GetAddedImportsPattern globs every per-process added-imports file.
func GetAddedImportsPattern() string {
	return GetBuildTemp("added-imports-*.json")
}
