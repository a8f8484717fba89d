// Copyright The LLTap Authors
// SPDX-License-Identifier: Apache-2.0

package imports

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os/exec"

	"github.com/lltap/lltap/internal/ex"
)

// packageInfo is the subset of `go list -json` output the resolver reads.
type packageInfo struct {
	ImportPath string `json:"ImportPath"`
	Export     string `json:"Export"`
}

// ResolvePackageInfo retrieves the compiled export archive for importPath
// and each of its dependencies via `go list -export -json -deps`. The go
// command builds any archive that is missing, so the result can be
// spliced into an importcfg whose original author did not know about
// importPath.
func ResolvePackageInfo(ctx context.Context, importPath string) (map[string]string, error) {
	cmd := exec.CommandContext(ctx, "go", "list", "-export", "-json", "-deps", importPath)
	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, ex.Wrapf(err, "go list %s failed\nstderr: %s", importPath, string(exitErr.Stderr))
		}
		return nil, ex.Wrapf(err, "go list %s failed", importPath)
	}

	// go list -json emits one JSON object per package, concatenated.
	result := make(map[string]string)
	decoder := json.NewDecoder(bytes.NewReader(output))
	for {
		var pkg packageInfo
		if err := decoder.Decode(&pkg); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, ex.Wrapf(err, "decoding go list output for %s", importPath)
		}
		if pkg.Export != "" {
			result[pkg.ImportPath] = pkg.Export
		}
	}

	if _, ok := result[importPath]; !ok {
		return nil, ex.Newf("package %q has no export archive in go list output", importPath)
	}
	return result, nil
}
