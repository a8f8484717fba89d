// Copyright The LLTap Authors
// SPDX-License-Identifier: Apache-2.0

package pass

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/lltap/lltap/internal/astutil"
	"github.com/lltap/lltap/internal/ex"
	"github.com/lltap/lltap/internal/imports"
	"github.com/lltap/lltap/internal/policy"
	"github.com/lltap/lltap/internal/util"
)

// Toolexec implements the go command's -toolexec protocol: it is handed
// the exact argv of the tool the go command was about to run (compiler,
// linker, asm, ...) and returns the argv to actually run, having first
// instrumented any Go source files destined for the compiler and patched
// the tool's importcfg to cover the imports instrumentation added.
//
// Every invocation is a fresh process (one per compiled package, per the
// go command's own concurrency model), so the selection policy is
// reloaded from the work directory rather than re-parsed from flags.
func Toolexec(ctx context.Context, args []string) ([]string, error) {
	if len(args) == 0 {
		return args, nil
	}

	if util.IsLinkArgs(args) {
		return interceptLink(ctx, args)
	}
	if !util.IsCompileArgs(args) {
		return args, nil
	}

	pol, err := policy.Load()
	if err != nil {
		// No persisted policy means setup never ran for this build;
		// pass the compile through unmodified rather than fail it.
		return args, nil
	}

	importPath := os.Getenv("TOOLEXEC_IMPORT_PATH")
	logger := util.LoggerFromContext(ctx)

	// The -importcfg file lists every package archive this compile unit
	// depends on; it is the only source of type information toolexec has
	// for a dependency it never sees in source form (see resolve.go).
	// Its absence (an older go command, or a compile step with no
	// imports) is not fatal: external selection and real call-site
	// argument typing are simply skipped, falling back to the fixed-arity
	// and declared-type paths.
	var cfg imports.Config
	var resolver *PackageResolver
	importcfgPath := util.FindFlagValue(args, "-importcfg")
	if importcfgPath != "" {
		if parsed, err := imports.ParseFile(importcfgPath); err != nil {
			logger.Warn("lltap: could not parse importcfg, external call resolution and importcfg patching disabled", "path", importcfgPath, "error", err)
			// Never rewrite a file we could not read back: clearing the
			// path keeps updateImportConfig away from it.
			importcfgPath = ""
		} else {
			cfg = parsed
			resolver = NewPackageResolver(cfg)
		}
	}

	// Every file in this one compile invocation belongs to the same
	// package but is parsed, rewritten, and written back through its own
	// independent token.FileSet and decorator, so files are safe to
	// instrument concurrently; errgroup fans them out and returns the
	// first error encountered (the other files still run to completion,
	// nothing is canceled). The resolver is shared
	// across files (its cache is guarded by its own mutex) since all
	// files of one compile unit see the same set of package archives.
	emitted := NewEmittedSet()
	added := make(map[string]struct{})
	var addedMu sync.Mutex
	group, _ := errgroup.WithContext(ctx)
	for _, arg := range args {
		if !util.IsGoFile(arg) {
			continue
		}
		path := arg
		group.Go(func() error {
			paths, err := instrumentFile(pol, importPath, path, resolver, emitted)
			if err != nil {
				return ex.Wrapf(err, "instrumenting %s", path)
			}
			addedMu.Lock()
			for _, p := range paths {
				added[p] = struct{}{}
			}
			addedMu.Unlock()
			logger.Debug("lltap: processed file", "path", path, "import_path", importPath)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	// The go command wrote this compile's importcfg before any file was
	// instrumented, so archives for the imports instrumentation just
	// added (the hook registry package above all) have to be spliced in
	// before the real compiler runs.
	if err := updateImportConfig(ctx, importcfgPath, cfg, added); err != nil {
		return nil, err
	}

	return args, nil
}

func instrumentFile(pol *policy.Policy, importPath, path string, resolver *PackageResolver, emitted *EmittedSet) ([]string, error) {
	root, err := astutil.ParseFile(path)
	if err != nil {
		return nil, err
	}

	phase := NewPhase(pol, importPath, path, resolver)
	phase.Emitted = emitted
	changed := phase.Run(root)
	if !changed {
		return nil, nil
	}

	return phase.AddedImports, WriteBack(path, root)
}

// updateImportConfig splices a packagefile entry into the compile's
// importcfg for every package the instrumented sources now import but the
// go command did not list when it wrote the file. Archives are resolved
// through `go list -export` (which builds any that are missing), and the
// resolved set is recorded for the link step, whose own importcfg needs
// the same entries (see interceptLink).
func updateImportConfig(ctx context.Context, path string, cfg imports.Config, added map[string]struct{}) error {
	if path == "" || len(added) == 0 {
		return nil
	}
	if cfg.PackageFile == nil {
		cfg.PackageFile = make(map[string]string)
	}
	logger := util.LoggerFromContext(ctx)

	resolved := make(map[string]string)
	updated := false
	for importPath := range added {
		if importPath == "unsafe" || importPath == "C" {
			// unsafe is built-in, C is the cgo pseudo-package; neither
			// has an archive file.
			continue
		}
		if cfg.HasPackage(importPath) {
			continue
		}

		archives, err := imports.ResolvePackageInfo(ctx, importPath)
		if err != nil {
			return ex.Wrapf(err, "resolving archive for %q", importPath)
		}
		for pkg, archive := range archives {
			if cfg.HasPackage(pkg) {
				continue
			}
			logger.Debug("lltap: adding package to importcfg", "package", pkg, "archive", archive)
			cfg.PackageFile[pkg] = archive
			resolved[pkg] = archive
			updated = true
		}
	}
	if !updated {
		return nil
	}

	if err := replaceFile(path, cfg.WriteFile); err != nil {
		return err
	}
	logger.Debug("lltap: updated importcfg", "path", path, "added", len(resolved))

	if err := trackAddedImports(resolved); err != nil {
		// Non-fatal: the link step may still resolve if the entries were
		// already present in its own importcfg.
		logger.Warn("lltap: could not record added imports for the link step", "error", err)
	}
	return nil
}

// replaceFile atomically replaces the file at path with content produced
// by write: write to a sibling temp file, then rename over the original.
// Windows cannot rename over an existing file, so the original is removed
// first there.
func replaceFile(path string, write func(string) error) error {
	tempPath := path + ".tmp"
	if err := write(tempPath); err != nil {
		return ex.Wrapf(err, "writing %s", tempPath)
	}
	if util.IsWindows() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			_ = os.Remove(tempPath)
			return ex.Wrapf(err, "removing %s", path)
		}
	}
	if err := os.Rename(tempPath, path); err != nil {
		return ex.Wrapf(err, "replacing %s", path)
	}
	return nil
}

// trackAddedImports records the archives this compile process spliced
// into its importcfg. Each compile process writes its own file (keyed by
// pid) so concurrent compiles never contend; the link step merges them
// all.
func trackAddedImports(packages map[string]string) error {
	if len(packages) == 0 {
		return nil
	}
	path := util.GetAddedImportsFile(os.Getpid())
	data, err := json.MarshalIndent(packages, "", "  ")
	if err != nil {
		return ex.Wrap(err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return ex.Wrap(err)
	}
	return replaceFile(path, func(tempPath string) error {
		return os.WriteFile(tempPath, data, 0o644)
	})
}

// loadAddedImports merges every per-process added-imports file written
// during this build's compile steps.
func loadAddedImports(ctx context.Context) (map[string]string, error) {
	files, err := filepath.Glob(util.GetAddedImportsPattern())
	if err != nil {
		return nil, ex.Wrap(err)
	}
	logger := util.LoggerFromContext(ctx)

	merged := make(map[string]string)
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("lltap: could not read added-imports file", "path", path, "error", err)
			continue
		}
		var packages map[string]string
		if err := json.Unmarshal(data, &packages); err != nil {
			logger.Warn("lltap: could not parse added-imports file", "path", path, "error", err)
			continue
		}
		for pkg, archive := range packages {
			merged[pkg] = archive
		}
	}
	return merged, nil
}

// interceptLink adds the packages the compile steps spliced into their
// importcfgs to the link step's own importcfg, so the linker can find the
// hook registry's (and any other added package's) archive.
func interceptLink(ctx context.Context, args []string) ([]string, error) {
	importcfgPath := util.FindFlagValue(args, "-importcfg")
	if importcfgPath == "" {
		return args, nil
	}

	logger := util.LoggerFromContext(ctx)
	addedImports, err := loadAddedImports(ctx)
	if err != nil {
		logger.Warn("lltap: could not load added imports for the link step", "error", err)
		return args, nil
	}
	if len(addedImports) == 0 {
		return args, nil
	}

	cfg, err := imports.ParseFile(importcfgPath)
	if err != nil {
		return nil, ex.Wrapf(err, "parsing link importcfg")
	}
	if cfg.PackageFile == nil {
		cfg.PackageFile = make(map[string]string)
	}

	updated := false
	for pkg, archive := range addedImports {
		if cfg.HasPackage(pkg) {
			continue
		}
		logger.Debug("lltap: adding package to link importcfg", "package", pkg, "archive", archive)
		cfg.PackageFile[pkg] = archive
		updated = true
	}
	if !updated {
		return args, nil
	}

	if err := replaceFile(importcfgPath, cfg.WriteFile); err != nil {
		return nil, err
	}
	logger.Debug("lltap: updated link importcfg", "path", importcfgPath, "added", len(addedImports))

	// The tracking files are left in place: a multi-binary build
	// (go build ./cmd/...) runs one link step per binary and each needs
	// them. CleanupImportTracking removes them at the start of the next
	// build.
	return args, nil
}

// CleanupImportTracking removes the per-process added-imports files a
// previous build left behind, so this build's link steps only merge
// entries recorded by its own compile steps.
func CleanupImportTracking() {
	files, err := filepath.Glob(util.GetAddedImportsPattern())
	if err != nil {
		return
	}
	for _, path := range files {
		_ = os.Remove(path)
	}
}
