// Copyright The LLTap Authors
// SPDX-License-Identifier: Apache-2.0

package pass

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lltap/lltap/internal/imports"
	"github.com/lltap/lltap/internal/util"
)

func TestUpdateImportConfigNoopWhenPackagesAlreadyPresent(t *testing.T) {
	t.Setenv(util.EnvWorkDir, t.TempDir())

	path := filepath.Join(t.TempDir(), "importcfg")
	cfg := imports.Config{
		PackageFile: map[string]string{RuntimeImportPath: "/cache/lltap.a"},
	}
	require.NoError(t, cfg.WriteFile(path))
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	added := map[string]struct{}{RuntimeImportPath: {}}
	require.NoError(t, updateImportConfig(context.Background(), path, cfg, added))

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after), "an importcfg that already lists every added package must not be rewritten")
}

func TestUpdateImportConfigNoopWithoutImportcfgOrAdditions(t *testing.T) {
	assert.NoError(t, updateImportConfig(context.Background(), "", imports.Config{}, map[string]struct{}{RuntimeImportPath: {}}))
	assert.NoError(t, updateImportConfig(context.Background(), "importcfg", imports.Config{}, nil))
}

func TestTrackAndLoadAddedImportsRoundTrip(t *testing.T) {
	t.Setenv(util.EnvWorkDir, t.TempDir())

	require.NoError(t, trackAddedImports(map[string]string{
		RuntimeImportPath: "/cache/lltap.a",
	}))
	// A second compile process would write its own pid-keyed file; merge
	// must see both.
	other := util.GetAddedImportsFile(os.Getpid() + 1)
	require.NoError(t, os.WriteFile(other, []byte(`{"example.com/dep": "/cache/dep.a"}`), 0o644))

	merged, err := loadAddedImports(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/cache/lltap.a", merged[RuntimeImportPath])
	assert.Equal(t, "/cache/dep.a", merged["example.com/dep"])
}

func TestInterceptLinkSplicesTrackedPackages(t *testing.T) {
	t.Setenv(util.EnvWorkDir, t.TempDir())

	require.NoError(t, trackAddedImports(map[string]string{
		RuntimeImportPath: "/cache/lltap.a",
	}))

	importcfgPath := filepath.Join(t.TempDir(), "importcfg.link")
	cfg := imports.Config{PackageFile: map[string]string{"fmt": "/cache/fmt.a"}}
	require.NoError(t, cfg.WriteFile(importcfgPath))

	args := []string{
		"/usr/lib/go/pkg/tool/linux_amd64/link",
		"-o", "out", "-buildid", "abc", "-importcfg", importcfgPath,
	}
	got, err := interceptLink(context.Background(), args)
	require.NoError(t, err)
	assert.Equal(t, args, got, "link argv itself is passed through; only the importcfg file changes")

	patched, err := imports.ParseFile(importcfgPath)
	require.NoError(t, err)
	assert.Equal(t, "/cache/lltap.a", patched.PackageFile[RuntimeImportPath])
	assert.Equal(t, "/cache/fmt.a", patched.PackageFile["fmt"])
}

func TestInterceptLinkPassthroughWithoutImportcfg(t *testing.T) {
	t.Setenv(util.EnvWorkDir, t.TempDir())

	args := []string{"/usr/lib/go/pkg/tool/linux_amd64/link", "-o", "out"}
	got, err := interceptLink(context.Background(), args)
	require.NoError(t, err)
	assert.Equal(t, args, got)
}

func TestCleanupImportTrackingRemovesRecords(t *testing.T) {
	t.Setenv(util.EnvWorkDir, t.TempDir())

	require.NoError(t, trackAddedImports(map[string]string{RuntimeImportPath: "/cache/lltap.a"}))
	files, err := filepath.Glob(util.GetAddedImportsPattern())
	require.NoError(t, err)
	require.NotEmpty(t, files)

	CleanupImportTracking()

	files, err = filepath.Glob(util.GetAddedImportsPattern())
	require.NoError(t, err)
	assert.Empty(t, files)
}
