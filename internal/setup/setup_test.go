// Copyright The LLTap Authors
// SPDX-License-Identifier: Apache-2.0

package setup

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultNamespaceFromModuleFindsModuleRoot(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "go.mod"), []byte("module github.com/acme/widget\n\ngo 1.23\n"), 0o644))

	assert.Equal(t, "widget", DefaultNamespaceFromModule(nested))
}

func TestDefaultNamespaceFromModuleReturnsEmptyWithoutGoMod(t *testing.T) {
	dir := t.TempDir()
	assert.Equal(t, "", DefaultNamespaceFromModule(dir))
}

func TestPackagePatternsStripsFlags(t *testing.T) {
	assert.Equal(t, []string{"./cmd"}, PackagePatterns([]string{"build", "-a", "-o", "bin", "./cmd"}))
	assert.Nil(t, PackagePatterns([]string{"-a", "-race"}))
}
