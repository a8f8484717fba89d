// Copyright The LLTap Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides small helpers shared across the module's test
// files, in particular running a test binary against itself to exercise
// code paths that call os.Exit.
package testutil

import (
	"bytes"
	"os"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/require"
)

// RunSelfTest re-invokes the current test binary, running only testName,
// with env set to "1" in the child's environment. It returns the child's
// exit code and combined stdout/stderr output.
func RunSelfTest(t *testing.T, testName, env string) (int, string) {
	t.Helper()

	exe, err := os.Executable()
	require.NoError(t, err)

	cmd := exec.Command(exe, "-test.run="+testName)
	cmd.Env = append(os.Environ(), env+"=1")

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	_ = cmd.Run()
	return cmd.ProcessState.ExitCode(), out.String()
}
