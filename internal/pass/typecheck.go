// Copyright The LLTap Authors
// SPDX-License-Identifier: Apache-2.0

package pass

import (
	"go/ast"
	"go/parser"
	"go/token"
	"go/types"

	"github.com/dave/dst"
	"github.com/dave/dst/dstutil"

	"github.com/lltap/lltap/internal/astutil"
)

// callSiteArgTypes type-checks the file at fileName (best-effort, against
// the same compiled package archives PackageResolver already holds) and
// returns, for every distinct callee called through a bare identifier
// (variadic or not; RewriteCallSites only consults the variadic ones),
// the real argument types observed at each successive call to that name
// in source order.
//
// dst and go/types operate on two different trees (dst itself has no
// type-checker integration), so this parses fileName a second time as
// plain go/ast purely to run go/types.Config.Check over it. The result is
// correlated back to the dst call sites RewriteCallSites visits not by
// node identity or position, but by counting occurrences: both
// dstutil.Apply and ast.Inspect visit CallExprs in the same deterministic
// top-to-bottom source order, so "the Nth dst call to callee X" and "the
// Nth go/ast call to callee X" name the same call site.
//
// A file that only partially type-checks (e.g. because a cross-file,
// package-level reference can't be resolved in isolation — toolexec hands
// the pass one file of a multi-file package at a time) still yields
// go/types facts for every expression the checker could type: the
// Config.Error callback makes it report each error and keep going, and
// the returned error is ignored; this is strictly additive precision on top
// of the declared-type fallback (inferArgTypes), never a hard requirement.
//
// The second result maps each package name the rendered type expressions
// qualify with to its import path. Which of those packages actually need
// importing is decided later, from the trampolines that end up emitted
// (see foreignSignatureImports) — most recorded calls are never
// rewritten, and importing for them would leave unused imports behind.
func callSiteArgTypes(fileName string, resolver *PackageResolver) (map[string][][]dst.Expr, map[string]string) {
	if resolver == nil || fileName == "" {
		return nil, nil
	}

	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, fileName, nil, parser.SkipObjectResolution)
	if err != nil {
		return nil, nil
	}

	info := &types.Info{Types: make(map[ast.Expr]types.TypeAndValue)}
	conf := types.Config{Importer: resolver, Error: func(error) {}}
	_, _ = conf.Check(file.Name.Name, fset, []*ast.File{file}, info)

	raw := make(map[string][][]types.Type)
	ast.Inspect(file, func(n ast.Node) bool {
		call, ok := n.(*ast.CallExpr)
		if !ok {
			return true
		}
		ident, ok := call.Fun.(*ast.Ident)
		if !ok {
			// Only local (bare-identifier) callees can be variadic
			// targets in this pass; qualified calls are handled by
			// SelectExternalTargets/ExternalTarget instead.
			return true
		}

		argTypes := make([]types.Type, len(call.Args))
		for i, arg := range call.Args {
			if tv, ok := info.Types[arg]; ok {
				argTypes[i] = tv.Type
			}
		}
		raw[ident.Name] = append(raw[ident.Name], argTypes)
		return true
	})

	out := make(map[string][][]dst.Expr, len(raw))
	qualPaths := make(map[string]string)
	qualifier := func(pkg *types.Package) string {
		qualPaths[pkg.Name()] = pkg.Path()
		return pkg.Name()
	}
	for name, occurrences := range raw {
		converted := make([][]dst.Expr, len(occurrences))
		for i, shapes := range occurrences {
			exprs := make([]dst.Expr, len(shapes))
			for j, t := range shapes {
				if t == nil {
					continue
				}
				expr, err := astutil.ParseTypeExpr(types.TypeString(t, qualifier))
				if err != nil {
					continue
				}
				exprs[j] = expr
			}
			converted[i] = exprs
		}
		out[name] = converted
	}
	return out, qualPaths
}

// foreignSignatureImports returns the import paths of every
// package-qualified type in decl's signature, resolved through the
// name->path map the type renderer recorded. Only a trampoline that is
// actually emitted contributes imports; anything else would strand an
// unused import in the instrumented file.
func foreignSignatureImports(decl *dst.FuncDecl, qualPaths map[string]string) []string {
	var paths []string
	dstutil.Apply(decl.Type, func(cursor *dstutil.Cursor) bool {
		sel, ok := cursor.Node().(*dst.SelectorExpr)
		if !ok {
			return true
		}
		pkgIdent, ok := sel.X.(*dst.Ident)
		if !ok {
			return true
		}
		if path, ok := qualPaths[pkgIdent.Name]; ok {
			paths = append(paths, path)
		}
		return true
	}, nil)
	return paths
}

// realArgTypesFor returns the argType slice real recorded for the occIdx'th
// call to key, falling back to fallback when real has nothing for this
// occurrence, a shape of the wrong arity, or any unresolved (nil) slot —
// any of which means go/types could not fully account for this call site.
func realArgTypesFor(key string, occIdx int, real map[string][][]dst.Expr, fallback []dst.Expr) []dst.Expr {
	occurrences, ok := real[key]
	if !ok || occIdx >= len(occurrences) {
		return fallback
	}
	candidate := occurrences[occIdx]
	if len(candidate) != len(fallback) {
		return fallback
	}
	for _, e := range candidate {
		if e == nil {
			return fallback
		}
	}
	return candidate
}
