// Copyright The LLTap Authors
// SPDX-License-Identifier: Apache-2.0

package pass

import (
	"go/token"
	"go/types"
	"os"
	"sync"

	"golang.org/x/tools/go/gcexportdata"

	"github.com/lltap/lltap/internal/ex"
	"github.com/lltap/lltap/internal/imports"
)

// PackageResolver resolves the exported signature of a function declared
// in an imported package from that package's compiled export-data
// archive — the only type information a toolexec interceptor has
// available for a dependency it never sees in source form, since the go
// command hands the compiler pre-built archives (listed in -importcfg),
// not the dependency's source tree.
//
// It implements go/types.Importer so the same resolver also serves as the
// Importer passed to types.Config when best-effort type-checking the file
// currently being instrumented (typecheck.go).
type PackageResolver struct {
	fset *token.FileSet

	mu      sync.Mutex
	archive map[string]string
	cache   map[string]*types.Package
}

// NewPackageResolver builds a PackageResolver over the package archives
// named in cfg, the importcfg the go command handed the compiler for the
// compile invocation currently being intercepted.
func NewPackageResolver(cfg imports.Config) *PackageResolver {
	return &PackageResolver{
		fset:    token.NewFileSet(),
		archive: cfg.PackageFile,
		cache:   make(map[string]*types.Package),
	}
}

// Import implements types.Importer, reading path's export data archive
// on first use and caching the decoded package for subsequent lookups
// within the same compile invocation.
func (r *PackageResolver) Import(path string) (*types.Package, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if pkg, ok := r.cache[path]; ok {
		return pkg, nil
	}
	archive, ok := r.archive[path]
	if !ok {
		return nil, ex.Newf("lltap: no export data archive for %q", path)
	}

	file, err := os.Open(archive)
	if err != nil {
		return nil, ex.Wrapf(err, "opening export data for %s", path)
	}
	defer file.Close()

	reader, err := gcexportdata.NewReader(file)
	if err != nil {
		return nil, ex.Wrapf(err, "reading export data header for %s", path)
	}
	pkg, err := gcexportdata.Read(reader, r.fset, r.cache, path)
	if err != nil {
		return nil, ex.Wrapf(err, "decoding export data for %s", path)
	}
	r.cache[path] = pkg
	return pkg, nil
}

// Func looks up the exported top-level function funcName in the package
// at importPath and returns its signature. It reports false if the
// package has no archive available, or exports no such function.
func (r *PackageResolver) Func(importPath, funcName string) (*types.Signature, bool) {
	pkg, err := r.Import(importPath)
	if err != nil {
		return nil, false
	}
	obj := pkg.Scope().Lookup(funcName)
	if obj == nil {
		return nil, false
	}
	fn, ok := obj.(*types.Func)
	if !ok {
		return nil, false
	}
	sig, ok := fn.Type().(*types.Signature)
	return sig, ok
}
