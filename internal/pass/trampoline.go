// Copyright The LLTap Authors
// SPDX-License-Identifier: Apache-2.0

// Package pass implements LLTap's compile-time instrumentation: given a
// parsed Go source file, it synthesizes a trampoline for every eligible
// callee, rewrites call sites and function-pointer stores to target that
// trampoline, and emits the per-file registration constructor. It is
// driven by the toolexec compiler interceptor (toolexec.go).
package pass

import (
	"fmt"
	"go/token"

	"github.com/dave/dst"

	"github.com/lltap/lltap/internal/astutil"
)

// runtimePkg is the import alias trampoline-generated code uses for the
// hook registry's runtime package.
const runtimePkg = "lltap"

// RuntimeImportPath is the hook registry package every instrumented file
// needs imported under the runtimePkg alias.
const RuntimeImportPath = "github.com/lltap/lltap/pkg/lltap"

// TrampolineName returns the name of the fixed-arity trampoline for a
// non-variadic callee registered under hookedName.
func TrampolineName(hookedName string) string {
	return "__lltap_hook_" + hookedName
}

// SkipReason explains why a callee was left uninstrumented.
type SkipReason string

const (
	SkipNone           SkipReason = ""
	SkipMethod         SkipReason = "method receivers are not interposable callees"
	SkipMultiResult    SkipReason = "callees with more than one result value are not supported"
	SkipVariadic       SkipReason = "variadic callees require a per-call-site trampoline"
	SkipPolicyExcluded SkipReason = "excluded by selection policy"
)

// Eligible reports whether fn may be instrumented at all, independent of
// the per-use selection policy check (policy.Eligible), which the caller
// must also apply using fn's defined-in-this-unit status.
func Eligible(fn *dst.FuncDecl) (ok bool, reason SkipReason) {
	if astutil.HasReceiver(fn) {
		return false, SkipMethod
	}
	if astutil.ResultCount(fn) > 1 {
		return false, SkipMultiResult
	}
	if astutil.IsVariadic(fn) {
		return false, SkipVariadic
	}
	return true, SkipNone
}

// Synthesize builds the fixed-arity trampoline for the non-variadic,
// single-result (or void), non-method callee fn, registered in the Hook
// Manager under hookedName. The generated body implements the
// entry/init/check_pre/call_pre/check_rh/call_rh/call_orig/check_post/
// call_post/return control graph: a fast path when no hooks are
// installed, pointer argument marshalling for the pre-hook, a hook that
// can replace the call to fn entirely, and a pointer return slot for the
// post-hook.
func Synthesize(fn *dst.FuncDecl, hookedName string) *dst.FuncDecl {
	params := expandParams(fn.Type.Params)
	result := expandResult(fn.Type.Results)
	body := buildTrampolineBody(hookedName, params, result, astutil.Ident(fn.Name.Name))
	return buildTrampolineDecl(TrampolineName(hookedName), params, result, body)
}

// SynthesizeExternal builds the fixed-arity trampoline for an externally
// declared callee — one with no local *dst.FuncDecl, only a qualified
// selector expression (e.g. pkgalias.Func) and the param/result slots
// resolved from its compiled export-data signature (see
// internal/pass/resolve.go, slotsFromSignature). This is
// inst-mode=external's own trampoline path: the callee is defined
// outside the unit being compiled and only referenced here.
func SynthesizeExternal(callee dst.Expr, hookedName string, params []slot, result *slot) *dst.FuncDecl {
	body := buildTrampolineBody(hookedName, params, result, callee)
	return buildTrampolineDecl(TrampolineName(hookedName), params, result, body)
}

// buildTrampolineBody builds the entry/init/check_pre/call_pre/check_rh/
// call_rh/call_orig/check_post/call_post/return control graph shared by
// every trampoline shape (fixed-arity local, per-call-site variadic, and
// external): calleeFun is the call's own Fun operand — a bare identifier
// for a local callee, a qualified selector for an external one.
func buildTrampolineBody(hookedName string, params []slot, result *slot, calleeFun dst.Expr) *dst.BlockStmt {
	body := &dst.BlockStmt{}

	// init: bm := lltap.HasHooks(name)
	body.List = append(body.List, astutil.DefineStmt(
		astutil.Ident("bm"),
		runtimeCall("HasHooks", astutil.StringLit(hookedName)),
	))

	// check_pre / call_pre
	body.List = append(body.List, ifBitSet("bm", "Pre", callPreStmt(hookedName, params)))

	callOrig := &dst.CallExpr{Fun: dst.Clone(calleeFun).(dst.Expr), Args: paramIdents(params)}

	// check_rh / call_rh / call_orig: replace-hook, if installed, runs
	// instead of the callee; otherwise the callee itself runs.
	replaceStmt := callReplaceStmt(hookedName, params, result)
	var origStmt dst.Stmt
	if result != nil {
		origStmt = astutil.AssignStmt(astutil.Ident(result.name), callOrig)
	} else {
		origStmt = astutil.ExprStmt(callOrig)
	}
	body.List = append(body.List, ifBitSetElse("bm", "Replace", replaceStmt, origStmt))

	// check_post / call_post
	body.List = append(body.List, ifBitSet("bm", "Post", callPostStmt(hookedName, params, result)))

	// return
	if result != nil {
		body.List = append(body.List, astutil.ReturnStmt(astutil.Ident(result.name)))
	} else {
		body.List = append(body.List, astutil.ReturnStmt())
	}
	return body
}

// buildTrampolineDecl wraps body in a *dst.FuncDecl named name, with a
// parameter list mirroring params and, if non-nil, a single result
// mirroring result.
func buildTrampolineDecl(name string, params []slot, result *slot, body *dst.BlockStmt) *dst.FuncDecl {
	decl := &dst.FuncDecl{
		Name: astutil.Ident(name),
		Type: &dst.FuncType{
			Params: &dst.FieldList{List: paramFields(params)},
		},
		Body: body,
	}
	if result != nil {
		decl.Type.Results = &dst.FieldList{List: []*dst.Field{astutil.Field(result.name, result.typ)}}
	}
	return decl
}

// ifBitSet builds `if bm&int(lltap.Kind) != 0 { then... }`. then is spliced
// directly into the if-body rather than nested in an inner block.
func ifBitSet(bmName, kind string, then *dst.BlockStmt) *dst.IfStmt {
	return astutil.IfStmt(bitSetCond(bmName, kind), then, nil)
}

// ifBitSetElse builds `if bm&int(lltap.Kind) != 0 { thenBlock } else { elseStmt }`,
// used for the check_rh/call_rh/call_orig block: the replace-hook runs
// instead of, never alongside, the original callee.
func ifBitSetElse(bmName, kind string, thenBlock *dst.BlockStmt, elseStmt dst.Stmt) *dst.IfStmt {
	return astutil.IfStmt(bitSetCond(bmName, kind), thenBlock, astutil.Block(elseStmt))
}

func bitSetCond(bmName, kind string) *dst.BinaryExpr {
	return &dst.BinaryExpr{
		X: &dst.BinaryExpr{
			X:  astutil.Ident(bmName),
			Op: token.AND,
			Y:  astutil.CallTo("int", []dst.Expr{astutil.SelectorExpr(astutil.Ident(runtimePkg), kind)}),
		},
		Op: token.NEQ,
		Y:  astutil.IntLit(0),
	}
}

// The hook-call blocks below type-assert the looked-up HookPointer
// directly, without a nil guard: the bitmap just claimed the slot was
// installed, so a nil here is a broken registry invariant and the failed
// assertion's panic is the abort it calls for.
func callPreStmt(hookedName string, params []slot) *dst.BlockStmt {
	getHook := astutil.DefineStmt(astutil.Ident("h"), getHookCall(hookedName, "Pre"))
	call := astutil.ExprStmt(&dst.CallExpr{
		Fun:  astutil.TypeAssertExpr(astutil.Ident("h"), funcType(pointerFields(params), nil)),
		Args: addressOfAll(params),
	})
	return astutil.Block(getHook, call)
}

func callReplaceStmt(hookedName string, params []slot, result *slot) *dst.BlockStmt {
	getHook := astutil.DefineStmt(astutil.Ident("h"), getHookCall(hookedName, "Replace"))

	var resultField *dst.Field
	if result != nil {
		resultField = &dst.Field{Type: dst.Clone(result.typ).(dst.Expr)}
	}
	castCall := &dst.CallExpr{
		Fun:  astutil.TypeAssertExpr(astutil.Ident("h"), funcType(valueFields(params), resultField)),
		Args: paramIdents(params),
	}

	var invoke dst.Stmt
	if result != nil {
		invoke = astutil.AssignStmt(astutil.Ident(result.name), castCall)
	} else {
		invoke = astutil.ExprStmt(castCall)
	}
	return astutil.Block(getHook, invoke)
}

func callPostStmt(hookedName string, params []slot, result *slot) *dst.BlockStmt {
	getHook := astutil.DefineStmt(astutil.Ident("h"), getHookCall(hookedName, "Post"))

	postParams := make([]*dst.Field, 0, len(params)+1)
	args := make([]dst.Expr, 0, len(params)+1)
	if result != nil {
		postParams = append(postParams, &dst.Field{Type: astutil.DereferenceOf(result.typ)})
		args = append(args, astutil.AddressOf(astutil.Ident(result.name)))
	}
	postParams = append(postParams, valueFields(params)...)
	args = append(args, paramIdents(params)...)

	call := astutil.ExprStmt(&dst.CallExpr{
		Fun:  astutil.TypeAssertExpr(astutil.Ident("h"), funcType(postParams, nil)),
		Args: args,
	})
	return astutil.Block(getHook, call)
}

func getHookCall(hookedName, kind string) *dst.CallExpr {
	return runtimeCall("GetHook", astutil.StringLit(hookedName), astutil.SelectorExpr(astutil.Ident(runtimePkg), kind))
}

// runtimeCall builds a call to lltap.<fn>(args...), the hook registry's
// package-qualified runtime API.
func runtimeCall(fn string, args ...dst.Expr) *dst.CallExpr {
	return &dst.CallExpr{Fun: astutil.SelectorExpr(astutil.Ident(runtimePkg), fn), Args: args}
}

func addressOfAll(params []slot) []dst.Expr {
	exprs := make([]dst.Expr, len(params))
	for i, s := range params {
		exprs[i] = astutil.AddressOf(astutil.Ident(s.name))
	}
	return exprs
}

// compileTimeEligibility formats why a callee (eligible by shape) was or
// was not selected by the policy, for diagnostics.
func compileTimeEligibility(name string, ok bool, reason SkipReason) string {
	if ok {
		return fmt.Sprintf("lltap: instrumenting %s", name)
	}
	return fmt.Sprintf("lltap: skipping %s: %s", name, reason)
}
