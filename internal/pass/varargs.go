// Copyright The LLTap Authors
// SPDX-License-Identifier: Apache-2.0

package pass

import (
	"strconv"
	"strings"

	"github.com/dave/dst"

	"github.com/lltap/lltap/internal/astutil"
)

// MangleType renders typ's printed form and folds it into an identifier
// fragment: `*` becomes `p`, whitespace becomes `_`, and every other
// character outside [A-Za-z0-9_] is dropped. Used to give each distinct
// call-site argument shape of a variadic callee its own trampoline name.
func MangleType(typ dst.Expr) string {
	printed := printExpr(typ)

	var b strings.Builder
	b.Grow(len(printed))
	for _, r := range printed {
		switch {
		case r == '*':
			b.WriteByte('p')
		case r == ' ' || r == '\t' || r == '\n':
			b.WriteByte('_')
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			// deleted
		}
	}
	return b.String()
}

// printExpr renders typ the way it would appear in source, good enough
// for mangling purposes without pulling in a full go/printer pass over a
// throwaway node.
func printExpr(e dst.Expr) string {
	switch t := e.(type) {
	case *dst.Ident:
		return t.Name
	case *dst.StarExpr:
		return "*" + printExpr(t.X)
	case *dst.SelectorExpr:
		return printExpr(t.X) + "." + t.Sel.Name
	case *dst.ArrayType:
		if t.Len == nil {
			return "[]" + printExpr(t.Elt)
		}
		return "[N]" + printExpr(t.Elt)
	case *dst.Ellipsis:
		return "..." + printExpr(t.Elt)
	case *dst.MapType:
		return "map[" + printExpr(t.Key) + "]" + printExpr(t.Value)
	case *dst.InterfaceType:
		return "interface{}"
	default:
		return "T"
	}
}

// MangledTrampolineName returns the variadic trampoline name for a call
// to hookedName whose fixed-arity parameters are given by argTypes in
// call-site order: __lltap_hook_<callee>_<mangled>.
func MangledTrampolineName(hookedName string, argTypes []dst.Expr) string {
	var b strings.Builder
	for _, t := range argTypes {
		b.WriteString(MangleType(t))
	}
	return "__lltap_hook_" + hookedName + "_" + b.String()
}

// SynthesizeVariadic builds the trampoline for one observed call-site
// shape of the variadic callee fn: a fixed-arity function whose
// parameters mirror argTypes exactly (the non-variadic prefix plus one
// slot per variadic argument actually passed at this call site).
// Two call sites with different argTypes produce two distinct
// trampolines via MangledTrampolineName.
func SynthesizeVariadic(fn *dst.FuncDecl, hookedName string, argTypes []dst.Expr) *dst.FuncDecl {
	params := make([]slot, len(argTypes))
	for i, t := range argTypes {
		params[i] = slot{name: paramName(i), typ: dst.Clone(t).(dst.Expr)}
	}
	result := expandResult(fn.Type.Results)
	body := buildTrampolineBody(hookedName, params, result, astutil.Ident(fn.Name.Name))
	return buildTrampolineDecl(MangledTrampolineName(hookedName, argTypes), params, result, body)
}

func paramName(i int) string {
	return "p" + strconv.Itoa(i+1)
}

// ArgTypesAtCallSite returns one type expression per argument of call,
// taken from declaredTypes alone: the first len(call.Args) declared types,
// with the last declared (variadic element) type repeated for any extra
// arguments. The arguments' own expressions are not inspected; callers
// holding full type-checker info should prefer that over this fallback.
// It exists so call-site mangling has a deterministic, dependency-free
// path when go/types facts are unavailable for a given argument.
func ArgTypesAtCallSite(call *dst.CallExpr, declaredTypes []dst.Expr) []dst.Expr {
	if len(declaredTypes) >= len(call.Args) {
		return declaredTypes[:len(call.Args)]
	}
	// Fall back to repeating the last declared (variadic element) type
	// for the extra arguments the fixed signature didn't name.
	out := make([]dst.Expr, len(call.Args))
	copy(out, declaredTypes)
	last := declaredTypes[len(declaredTypes)-1]
	for i := len(declaredTypes); i < len(call.Args); i++ {
		out[i] = dst.Clone(last).(dst.Expr)
	}
	return out
}
