// Copyright The LLTap Authors
// SPDX-License-Identifier: Apache-2.0

// Package setup resolves the ambient configuration the `lltap go` command
// needs before it can hand a build off to the toolexec interceptor: the
// target module's path (for a default hook-namespace) and a sanity check
// that the build packages named on the command line actually resolve.
package setup

import (
	"context"
	"os"
	"path/filepath"

	"golang.org/x/mod/modfile"
	"golang.org/x/tools/go/packages"

	"github.com/lltap/lltap/internal/ex"
	"github.com/lltap/lltap/internal/util"
)

// DefaultNamespaceFromModule returns the last path element of the go.mod
// found by walking up from dir, e.g. "github.com/acme/widget" -> "widget".
// It returns "" (no default) if no go.mod is found or it cannot be parsed;
// callers fall back to no namespace rather than treating this as fatal,
// since hook-namespace is an opt-in convenience, not a requirement.
func DefaultNamespaceFromModule(dir string) string {
	path, err := findGoMod(dir)
	if err != nil {
		return ""
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	f, err := modfile.Parse(path, data, nil)
	if err != nil || f.Module == nil {
		return ""
	}
	return filepath.Base(f.Module.Mod.Path)
}

// findGoMod walks up from dir looking for a go.mod file, the same
// resolution order the go command itself uses to find a module root.
func findGoMod(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", ex.Wrapf(err, "resolving %s", dir)
	}
	for {
		candidate := filepath.Join(abs, "go.mod")
		if util.PathExists(candidate) {
			return candidate, nil
		}
		parent := filepath.Dir(abs)
		if parent == abs {
			return "", ex.Newf("no go.mod found above %s", dir)
		}
		abs = parent
	}
}

// VerifyPackages loads the package patterns a `go build` invocation names
// (or "." if none are given) just far enough to confirm they resolve,
// surfacing a clear configuration error before handing off to toolexec
// rather than letting an unresolvable pattern fail deep inside a
// per-package compile subprocess.
func VerifyPackages(ctx context.Context, patterns []string) error {
	if len(patterns) == 0 {
		patterns = []string{"."}
	}
	cfg := &packages.Config{
		Context: ctx,
		Mode:    packages.NeedName | packages.NeedFiles,
	}
	pkgs, err := packages.Load(cfg, patterns...)
	if err != nil {
		return ex.Wrapf(err, "loading packages %v", patterns)
	}
	var loadErrs []error
	packages.Visit(pkgs, nil, func(pkg *packages.Package) {
		for _, e := range pkg.Errors {
			loadErrs = append(loadErrs, ex.New(e.Error()))
		}
	})
	if len(loadErrs) > 0 {
		return ex.Wrapf(loadErrs[0], "package load errors for %v (%d total)", patterns, len(loadErrs))
	}
	return nil
}

// flagsWithValues are `go build` flags that consume the next argument as
// their value, so that value must not be mistaken for a package pattern
// (e.g. "-o bin ./cmd" must not yield "bin" as a pattern).
//
//nolint:gochecknoglobals // static lookup table
var flagsWithValues = map[string]bool{
	"-o": true, "-p": true, "-C": true, "-tags": true, "-mod": true,
	"-modfile": true, "-gcflags": true, "-ldflags": true, "-asmflags": true,
	"-buildmode": true, "-pkgdir": true, "-overlay": true, "-coverpkg": true,
}

// PackagePatterns extracts the trailing package patterns from a `go
// build`-style argument list (packages always come last: "go build
// [flags] [packages]"), scanning from the end and stopping at the first
// flag or at a flag's own value. It returns nil (meaning "default to .")
// if every argument is consumed by flags.
func PackagePatterns(buildArgs []string) []string {
	var patterns []string
	for i := len(buildArgs) - 1; i >= 0; i-- {
		arg := buildArgs[i]
		if i > 0 && flagsWithValues[buildArgs[i-1]] {
			break
		}
		if len(arg) == 0 || arg[0] == '-' || arg == "build" || arg == "install" {
			break
		}
		patterns = append([]string{arg}, patterns...)
	}
	return patterns
}
