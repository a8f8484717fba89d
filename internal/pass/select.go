// Copyright The LLTap Authors
// SPDX-License-Identifier: Apache-2.0

package pass

import (
	"fmt"

	"github.com/dave/dst"
	"github.com/dave/dst/dstutil"

	"github.com/lltap/lltap/internal/astutil"
	"github.com/lltap/lltap/internal/imports"
	"github.com/lltap/lltap/internal/policy"
)

// Target is one locally-defined callee selected for instrumentation
// within a file: its declaration, its plain name, and the name it is
// registered under in the Hook Manager. A callee merely declared in an
// imported package (no local *dst.FuncDecl) is never a Target — see
// ExternalTarget for that case, selected by SelectExternalTargets.
type Target struct {
	Decl       *dst.FuncDecl
	Name       string
	HookedName string
}

// ExternalTarget is one externally declared callee selected for
// instrumentation: a function with no local *dst.FuncDecl, resolved
// instead from its own imported package's compiled export data. This is
// what inst-mode=external selects — callees referenced here but defined
// outside the unit being compiled.
type ExternalTarget struct {
	Callee     dst.Expr
	ImportPath string
	FuncName   string
	HookedName string
	Params     []slot
	Result     *slot
	// Imports lists every foreign package path the resolved parameter and
	// result types reference; only the file that emits this target's
	// trampoline needs them imported.
	Imports []string
}

// SelectTargets walks root's top-level function declarations and returns
// the ones eligible for trampoline synthesis: shape-eligible per
// Eligible, and selected by pol against defined=true (every function
// declared with a body in this file is, by construction, "defined in
// this unit" for inst-mode purposes). Variadic and multi-result callees
// are skipped with a diagnostic rather than silently dropped.
func SelectTargets(root *dst.File, pol *policy.Policy) (targets []Target, diagnostics []string) {
	for _, fn := range astutil.ListFuncDecls(root) {
		if astutil.HasReceiver(fn) {
			continue
		}
		name := fn.Name.Name

		if !pol.Eligible(name, true) {
			diagnostics = append(diagnostics, compileTimeEligibility(name, false, SkipPolicyExcluded))
			continue
		}

		ok, reason := Eligible(fn)
		if !ok {
			diagnostics = append(diagnostics, compileTimeEligibility(name, false, reason))
			continue
		}

		diagnostics = append(diagnostics, compileTimeEligibility(name, true, SkipNone))
		targets = append(targets, Target{
			Decl:       fn,
			Name:       name,
			HookedName: pol.HookedName(name),
		})
	}
	return targets, diagnostics
}

// VariadicTargets returns the variadic, non-method top-level functions in
// root: these are not trampoline-synthesized here (no single fixed-arity
// trampoline can represent them), but call sites that invoke them are
// handled per call-site in callsite.go via SynthesizeVariadic. Each is
// returned as a Target so the per-call-site trampolines query and
// register the same (optionally namespaced) hooked name the fixed path
// uses.
func VariadicTargets(root *dst.File, pol *policy.Policy) map[string]Target {
	out := make(map[string]Target)
	for _, fn := range astutil.ListFuncDecls(root) {
		if astutil.HasReceiver(fn) {
			continue
		}
		if !astutil.IsVariadic(fn) {
			continue
		}
		name := fn.Name.Name
		if !pol.Eligible(name, true) {
			continue
		}
		out[name] = Target{Decl: fn, Name: name, HookedName: pol.HookedName(name)}
	}
	return out
}

// SelectExternalTargets walks root's call sites for calls of the form
// pkgalias.Func(...) where pkgalias resolves, via root's own import
// declarations, to an imported package; resolves Func's signature from
// that package's compiled export data through resolver; and returns the
// ones eligible under pol with defined=false — inst-mode=external's half
// of the selection policy (see policy.Eligible), previously unreachable
// because nothing ever called it with defined=false.
//
// Variadic external declarations are skipped with a diagnostic rather
// than guessed at: no single fixed-arity trampoline shape can be derived
// from a declaration alone, and with no local definition there is no
// per-call-site type information reliable enough to build one from.
func SelectExternalTargets(root *dst.File, pol *policy.Policy, resolver *PackageResolver) (targets []ExternalTarget, diagnostics []string) {
	if resolver == nil {
		return nil, nil
	}
	aliasToPath := imports.AliasToPath(root)
	seen := make(map[string]bool)

	dstutil.Apply(root, func(cursor *dstutil.Cursor) bool {
		call, ok := cursor.Node().(*dst.CallExpr)
		if !ok {
			return true
		}
		sel, ok := call.Fun.(*dst.SelectorExpr)
		if !ok {
			return true
		}
		pkgIdent, ok := sel.X.(*dst.Ident)
		if !ok {
			return true
		}
		importPath, ok := aliasToPath[pkgIdent.Name]
		if !ok {
			return true
		}

		funcName := sel.Sel.Name
		key := importPath + "." + funcName
		if seen[key] {
			return true
		}

		sig, ok := resolver.Func(importPath, funcName)
		if !ok {
			return true
		}
		if !pol.Eligible(funcName, false) {
			diagnostics = append(diagnostics, compileTimeEligibility(funcName, false, SkipPolicyExcluded))
			return true
		}
		if sig.Variadic() {
			diagnostics = append(diagnostics, fmt.Sprintf(
				"lltap: skipping external %s.%s: %s", importPath, funcName,
				"variadic external callees are not supported"))
			return true
		}
		if sig.Results().Len() > 1 {
			diagnostics = append(diagnostics, compileTimeEligibility(funcName, false, SkipMultiResult))
			return true
		}

		var used []string
		params, result, err := slotsFromSignature(sig, &used)
		if err != nil {
			diagnostics = append(diagnostics, fmt.Sprintf("lltap: skipping external %s.%s: %v", importPath, funcName, err))
			return true
		}

		seen[key] = true
		diagnostics = append(diagnostics, compileTimeEligibility(funcName, true, SkipNone))
		targets = append(targets, ExternalTarget{
			Callee:     dst.Clone(sel).(dst.Expr),
			ImportPath: importPath,
			FuncName:   funcName,
			HookedName: pol.HookedName(funcName),
			Params:     params,
			Result:     result,
			Imports:    used,
		})
		return true
	}, nil)

	return targets, diagnostics
}
