// Copyright The LLTap Authors
// SPDX-License-Identifier: Apache-2.0

package pass

import (
	"github.com/dave/dst"
	"github.com/dave/dst/dstutil"

	"github.com/lltap/lltap/internal/astutil"
	"github.com/lltap/lltap/internal/imports"
)

// RewriteCallSites walks root and replaces every direct call to one of
// fixedTargets (keyed by plain callee name) with a call to its
// fixed-arity trampoline, every call to one of variadicTargets with a
// call to the trampoline synthesized for that call site's own argument
// shape (appending newly-needed variadic trampolines to extra as they
// are discovered — trampoline caching: a call-site shape already built
// for this file is reused rather than re-synthesized), and every call to
// one of externalTargets (keyed by "importPath.FuncName") — a call
// through a *dst.SelectorExpr into an imported package, resolved ahead of
// time by SelectExternalTargets — with a call to its trampoline.
//
// realArgTypes, when non-nil, supplies the real call-site argument types
// callSiteArgTypes resolved via go/types for each variadic callee, keyed
// and ordered exactly as encountered here (see realArgTypesFor); nil or
// an unresolved occurrence falls back to inferArgTypes' declared-type
// shape.
//
// A call is only rewritten when its callee is a bare identifier or a
// single-level qualified selector, per the Non-goals: calls through a
// value stored in a variable, a struct field, or received indirectly are
// not rewritten, since the callee is not resolvable at compile time in
// that form.
func RewriteCallSites(root *dst.File, fixedTargets map[string]Target, variadicTargets map[string]Target, externalTargets map[string]ExternalTarget, realArgTypes map[string][][]dst.Expr) (extraTrampolines []*dst.FuncDecl, constructed []string) {
	seen := make(map[string]bool)
	occurrence := make(map[string]int)
	aliasToPath := imports.AliasToPath(root)

	dstutil.Apply(root, func(cursor *dstutil.Cursor) bool {
		call, ok := cursor.Node().(*dst.CallExpr)
		if !ok {
			return true
		}

		switch fun := call.Fun.(type) {
		case *dst.Ident:
			if target, ok := fixedTargets[fun.Name]; ok {
				cursor.Replace(rewriteCall(call, astutil.Ident(TrampolineName(target.HookedName))))
				constructed = append(constructed, target.HookedName)
				return true
			}

			if target, ok := variadicTargets[fun.Name]; ok {
				occIdx := occurrence[fun.Name]
				occurrence[fun.Name]++

				// A spread call (f(xs...)) has no per-argument shape to
				// mirror into a fixed-arity trampoline; leave it direct.
				if call.Ellipsis {
					return true
				}

				argTypes := realArgTypesFor(fun.Name, occIdx, realArgTypes, inferArgTypes(target.Decl, call))
				name := MangledTrampolineName(target.HookedName, argTypes)
				if !seen[name] {
					seen[name] = true
					extraTrampolines = append(extraTrampolines, SynthesizeVariadic(target.Decl, target.HookedName, argTypes))
				}
				cursor.Replace(rewriteCall(call, astutil.Ident(name)))
				constructed = append(constructed, target.HookedName)
				return true
			}

		case *dst.SelectorExpr:
			pkgIdent, ok := fun.X.(*dst.Ident)
			if !ok {
				return true
			}
			importPath, ok := aliasToPath[pkgIdent.Name]
			if !ok {
				return true
			}
			target, ok := externalTargets[importPath+"."+fun.Sel.Name]
			if !ok {
				return true
			}
			cursor.Replace(rewriteCall(call, astutil.Ident(TrampolineName(target.HookedName))))
			constructed = append(constructed, target.HookedName)
		}

		return true
	}, nil)

	return extraTrampolines, constructed
}

// rewriteCall clones call with its Fun replaced by trampoline, preserving
// arguments, the ellipsis flag, and other call attributes, per "Rewriting
// a direct call": substitute the callee operand only.
func rewriteCall(call *dst.CallExpr, trampoline dst.Expr) *dst.CallExpr {
	clone := dst.Clone(call).(*dst.CallExpr)
	clone.Fun = trampoline
	return clone
}

// inferArgTypes derives the fixed-arity parameter types a variadic
// callee's trampoline needs for this specific call, from the callee's
// own declared non-variadic prefix plus one slot per variadic argument
// actually passed, using the variadic parameter's element type for each.
// A caller with full type-checker facts for this compilation unit should
// prefer those over this syntactic fallback, which assumes (as the
// common case) that call-site arguments share the declared element type.
func inferArgTypes(fn *dst.FuncDecl, call *dst.CallExpr) []dst.Expr {
	declared := expandParams(fn.Type.Params)
	declaredTypes := make([]dst.Expr, len(declared))
	for i, s := range declared {
		declaredTypes[i] = s.typ
	}
	// The last declared parameter is the `...T` slot; unwrap it to its
	// element type for use as the repeated fallback type.
	if n := len(declaredTypes); n > 0 {
		if ell, ok := declaredTypes[n-1].(*dst.Ellipsis); ok {
			declaredTypes[n-1] = ell.Elt
		}
	}
	return ArgTypesAtCallSite(call, declaredTypes)
}
