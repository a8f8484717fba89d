// Copyright The LLTap Authors
// SPDX-License-Identifier: Apache-2.0

package pass

import (
	"github.com/dave/dst"
	"github.com/dave/dst/dstutil"
)

// RewriteFuncPointers walks root and replaces every bare reference to a
// fixed-arity target's name used as a value (not as a call) with a
// reference to its trampoline, implementing "Rewriting a store": when
// function-pointer instrumentation is enabled and the callee is not
// variadic, an identifier denoting F used anywhere other than as a call
// expression's own Fun slot is assumed to store F's address (assigned to
// a variable, passed as a value, etc.) and is retargeted to the
// trampoline instead.
//
// Variadic callees are left alone with a warning: a variadic function's
// trampoline is synthesized per call site, so there is no single address
// that could stand in for "the" trampoline of a variadic callee.
func RewriteFuncPointers(root *dst.File, fixedTargets map[string]Target, variadicNames map[string]Target) (rewritten []string, warnings []string) {
	dstutil.Apply(root, func(cursor *dstutil.Cursor) bool {
		ident, ok := cursor.Node().(*dst.Ident)
		if !ok {
			return true
		}
		if isCallFunSlot(cursor) {
			return true
		}
		if !isValueReference(cursor) {
			return true
		}

		if _, variadic := variadicNames[ident.Name]; variadic {
			warnings = append(warnings, "lltap: "+ident.Name+": function-pointer use of a variadic callee is not rewritten")
			return true
		}

		if target, ok := fixedTargets[ident.Name]; ok {
			cursor.Replace(&dst.Ident{Name: TrampolineName(target.HookedName)})
			rewritten = append(rewritten, target.HookedName)
			return true
		}
		return true
	}, nil)
	return rewritten, warnings
}

// isCallFunSlot reports whether cursor is positioned at a CallExpr's own
// Fun operand, which RewriteCallSites (not this pass) is responsible for.
func isCallFunSlot(cursor *dstutil.Cursor) bool {
	parent, ok := cursor.Parent().(*dst.CallExpr)
	return ok && cursor.Name() == "Fun" && parent != nil
}

// isValueReference reports whether the ident at cursor can denote the
// package-level function's value at all. It filters out positions where
// the same spelling names something else entirely: a FuncDecl's own name,
// the Sel of a selector (a field or method on some other value), a
// composite-literal key, and declared names in field lists or value
// specs.
func isValueReference(cursor *dstutil.Cursor) bool {
	switch cursor.Parent().(type) {
	case *dst.FuncDecl:
		return cursor.Name() != "Name"
	case *dst.SelectorExpr:
		return cursor.Name() != "Sel"
	case *dst.KeyValueExpr:
		return cursor.Name() != "Key"
	case *dst.Field:
		return cursor.Name() != "Names"
	case *dst.ValueSpec:
		return cursor.Name() != "Names"
	case *dst.ImportSpec, *dst.TypeSpec, *dst.LabeledStmt, *dst.BranchStmt:
		return false
	default:
		return true
	}
}
