// Copyright The LLTap Authors
// SPDX-License-Identifier: Apache-2.0

package pass

import (
	"sync"

	"github.com/dave/dst"

	"github.com/lltap/lltap/internal/astutil"
	"github.com/lltap/lltap/internal/imports"
	"github.com/lltap/lltap/internal/policy"
)

// EmittedSet tracks the trampoline names already synthesized into some
// file of the current compile unit. A fixed-arity or variadic trampoline
// is only ever emitted by the file that declares its callee, but an
// external callee can be called from several files of one package, and
// one package-level declaration must serve them all.
type EmittedSet struct {
	mu    sync.Mutex
	names map[string]bool
}

func NewEmittedSet() *EmittedSet {
	return &EmittedSet{names: make(map[string]bool)}
}

// Claim reports whether the caller is the first to claim name and should
// therefore emit its declaration.
func (s *EmittedSet) Claim(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.names[name] {
		return false
	}
	s.names[name] = true
	return true
}

// Phase instruments a single parsed Go source file end to end: selection,
// trampoline synthesis, call-site and function-pointer rewriting, and
// registration constructor emission. It is the per-file unit of work the
// toolexec compiler interceptor drives for every .go file in a
// compilation unit.
type Phase struct {
	Policy      *policy.Policy
	ImportPath  string
	FileName    string
	Resolver    *PackageResolver
	Diagnostics []string
	Warnings    []string

	// Emitted is shared by every Phase of one compile invocation; nil
	// means this is the only file (single-file tests) and every
	// trampoline is emitted unconditionally.
	Emitted *EmittedSet

	// AddedImports records the import paths Run added to the file's
	// import block, so the toolexec driver can splice matching
	// packagefile entries into the compile's importcfg — the go command
	// wrote that file before instrumentation added any imports, so it has
	// no archive entry for them (above all the hook registry package
	// itself, which most target packages do not import on their own).
	AddedImports []string
}

// NewPhase constructs a Phase for one file of importPath, using pol as
// its selection policy. resolver resolves externally declared callees
// (inst-mode=external) and, best-effort, real call-site argument types
// for variadic mangling; it is nil when the toolexec invocation's
// -importcfg could not be located or parsed, in which case external
// selection and real-type mangling are both skipped gracefully (the
// fixed-arity and declared-type paths are unaffected).
func NewPhase(pol *policy.Policy, importPath, fileName string, resolver *PackageResolver) *Phase {
	return &Phase{Policy: pol, ImportPath: importPath, FileName: fileName, Resolver: resolver}
}

// Run instruments root in place and reports whether it made any change
// (an unchanged file lets the caller skip rewriting it back to disk).
func (p *Phase) Run(root *dst.File) bool {
	fixed, diags := SelectTargets(root, p.Policy)
	p.Diagnostics = append(p.Diagnostics, diags...)

	variadic := VariadicTargets(root, p.Policy)

	external, extDiags := SelectExternalTargets(root, p.Policy, p.Resolver)
	p.Diagnostics = append(p.Diagnostics, extDiags...)

	fixedByName := make(map[string]Target, len(fixed))
	for _, t := range fixed {
		fixedByName[t.Name] = t
	}
	externalByKey := make(map[string]ExternalTarget, len(external))
	for _, t := range external {
		externalByKey[t.ImportPath+"."+t.FuncName] = t
	}

	realArgTypes, qualPaths := callSiteArgTypes(p.FileName, p.Resolver)

	extra, constructed := RewriteCallSites(root, fixedByName, variadic, externalByKey, realArgTypes)

	if !p.Policy.NoInstFptrs {
		rewritten, warnings := RewriteFuncPointers(root, fixedByName, variadic)
		constructed = append(constructed, rewritten...)
		p.Warnings = append(p.Warnings, warnings...)
	}

	if len(constructed) == 0 {
		return false
	}

	// Every rewrite path reports the callee's hooked (optionally
	// namespaced) name, which is also the name its trampoline queries, so
	// registration uses it verbatim.
	ctor := NewConstructor(ModuleID(p.ImportPath, p.FileName))
	registered := make(map[string]bool)
	for _, hookedName := range constructed {
		if registered[hookedName] {
			continue
		}
		registered[hookedName] = true
		ctor.AddTarget(hookedName)
	}

	for _, t := range fixed {
		if !registered[t.HookedName] {
			continue
		}
		trampoline := Synthesize(t.Decl, t.HookedName)
		root.Decls = append(root.Decls, trampoline)
	}
	// An external callee may be called from several files of this compile
	// unit; the first file to claim its trampoline name emits the one
	// package-level declaration (and the imports its types need), the
	// rest only rewrite their call sites against it.
	var externalImports []string
	for _, t := range external {
		if !registered[t.HookedName] {
			continue
		}
		if p.Emitted != nil && !p.Emitted.Claim(TrampolineName(t.HookedName)) {
			continue
		}
		trampoline := SynthesizeExternal(t.Callee, t.HookedName, t.Params, t.Result)
		root.Decls = append(root.Decls, trampoline)
		externalImports = append(externalImports, t.Imports...)
	}
	var variadicImports []string
	for _, decl := range extra {
		root.Decls = append(root.Decls, decl)
		variadicImports = append(variadicImports, foreignSignatureImports(decl, qualPaths)...)
	}

	root.Decls = append(root.Decls, ctor.Decl())
	imports.AddImport(root, runtimePkg, RuntimeImportPath)
	p.AddedImports = append(p.AddedImports, RuntimeImportPath)
	for _, path := range append(externalImports, variadicImports...) {
		imports.AddImport(root, "", path)
		p.AddedImports = append(p.AddedImports, path)
	}

	return true
}

// WriteBack serializes root back to its original path, used after Run
// reports a change.
func WriteBack(path string, root *dst.File) error {
	return astutil.WriteFile(path, root)
}
